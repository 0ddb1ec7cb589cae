package dst

// Locker provides the exclusive-access guarantee Start and Abort rely
// on: two start/abort commands on the same device can never
// interleave, spec.md §4.3 (C3). Poll does not take the lock.
// device.Handle satisfies this structurally.
type Locker interface {
	WithExclusiveLock(fn func() error) error
}

// Start validates and issues a self-test start command while holding
// the device's exclusive lock for the entire operation — acquired and
// released on every path, including the Dispatch validation failure
// path, spec.md §4.3's "acquire/release on every path" invariant.
func Start(transport Transport, locker Locker, kind Kind, mode Mode) error {
	return locker.WithExclusiveLock(func() error {
		if err := Dispatch(transport, kind); err != nil {
			return err
		}
		return transport.Start(kind, mode)
	})
}

// Abort issues a self-test abort command under the same exclusive lock.
func Abort(transport Transport, locker Locker) error {
	return locker.WithExclusiveLock(transport.Abort)
}
