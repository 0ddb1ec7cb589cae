package dst

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLocker struct {
	locked   bool
	reentred bool
}

func (f *fakeLocker) WithExclusiveLock(fn func() error) error {
	if f.locked {
		f.reentred = true
	}
	f.locked = true
	defer func() { f.locked = false }()
	return fn()
}

type fakeTransport struct {
	supports   map[Kind]bool
	startErr   error
	abortErr   error
	progresses []Progress
	progressIx int
	progressErr error
	estimate   uint32
}

func (f *fakeTransport) SupportsKind(k Kind) bool { return f.supports[k] }
func (f *fakeTransport) Start(Kind, Mode) error   { return f.startErr }
func (f *fakeTransport) Abort() error             { return f.abortErr }
func (f *fakeTransport) EstimatedSeconds(Kind) uint32 { return f.estimate }
func (f *fakeTransport) ReadProgress() (Progress, error) {
	if f.progressErr != nil {
		return Progress{}, f.progressErr
	}
	p := f.progresses[f.progressIx]
	if f.progressIx < len(f.progresses)-1 {
		f.progressIx++
	}
	return p, nil
}

func TestDispatchRejectsUnsupportedKind(t *testing.T) {
	tr := &fakeTransport{supports: map[Kind]bool{Short: true}}
	err := Dispatch(tr, Conveyance)
	assert.Error(t, err)
}

func TestStartAcquiresAndReleasesLockOnSuccess(t *testing.T) {
	tr := &fakeTransport{supports: map[Kind]bool{Short: true}}
	lock := &fakeLocker{}

	err := Start(tr, lock, Short, Offline)
	require.NoError(t, err)
	assert.False(t, lock.locked, "lock must be released after Start returns")
	assert.False(t, lock.reentred)
}

func TestStartReleasesLockOnDispatchFailure(t *testing.T) {
	tr := &fakeTransport{supports: map[Kind]bool{}}
	lock := &fakeLocker{}

	err := Start(tr, lock, Short, Offline)
	assert.Error(t, err)
	assert.False(t, lock.locked, "lock must be released even when Dispatch rejects the kind")
}

func TestStartReleasesLockOnTransportFailure(t *testing.T) {
	tr := &fakeTransport{supports: map[Kind]bool{Short: true}, startErr: errors.New("boom")}
	lock := &fakeLocker{}

	err := Start(tr, lock, Short, Offline)
	assert.Error(t, err)
	assert.False(t, lock.locked)
}

func TestNormalizeProgressClampsInProgress(t *testing.T) {
	p := NormalizeProgress(Progress{PercentComplete: 150, Status: StatusInProgress})
	assert.EqualValues(t, 99, p.PercentComplete)
}

func TestNormalizeProgressTerminalIsAlways100(t *testing.T) {
	p := NormalizeProgress(Progress{PercentComplete: 40, Status: StatusCompleted})
	assert.EqualValues(t, 100, p.PercentComplete)
}

func TestPollSucceedsWhenStatusReachesCompleted(t *testing.T) {
	tr := &fakeTransport{
		estimate: 1,
		progresses: []Progress{
			{Status: StatusInProgress, PercentComplete: 10},
			{Status: StatusInProgress, PercentComplete: 50},
			{Status: StatusCompleted, PercentComplete: 100},
		},
	}

	outcome, err := Poll(context.Background(), tr, Short, false)
	require.NoError(t, err)
	assert.Equal(t, Success, outcome)
}

func TestPollReportsAbortedByHost(t *testing.T) {
	tr := &fakeTransport{
		estimate:   1,
		progresses: []Progress{{Status: StatusAbortedByHost}},
	}

	outcome, err := Poll(context.Background(), tr, Short, false)
	require.NoError(t, err)
	assert.Equal(t, Aborted, outcome)
}

func TestPollPropagatesReadError(t *testing.T) {
	tr := &fakeTransport{estimate: 1, progressErr: errors.New("transport down")}

	_, err := Poll(context.Background(), tr, Short, false)
	assert.Error(t, err)
}

func TestPollWatchdogAbortsOnContextCancel(t *testing.T) {
	tr := &fakeTransport{
		estimate:   100000,
		progresses: []Progress{{Status: StatusInProgress}},
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	outcome, err := Poll(ctx, tr, Short, false)
	assert.Error(t, err)
	assert.Equal(t, WatchdogAborted, outcome)
}

func TestPollContextTimeoutOnPerpetualInProgressReportsWatchdogAborted(t *testing.T) {
	tr := &fakeTransport{
		estimate:   0, // makes Poll fall back to FallbackShortDSTSeconds
		progresses: []Progress{{Status: StatusInProgress}},
	}

	// Use a context timeout well under the watchdog's real deadline so
	// this test doesn't actually wait out FallbackShortDSTSeconds*5.
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	outcome, err := Poll(ctx, tr, Short, false)
	assert.Error(t, err)
	assert.Equal(t, WatchdogAborted, outcome)
}

// TestPollWatchdogRequiresMaxExtensionsBeforeAborting pins down spec.md
// §4.4's "time_extension_count exceeded max AND elapsed > max_wait_seconds"
// watchdog condition: a tiny device estimate makes max_wait_seconds elapse
// almost immediately, but the watchdog must still hold off until the
// back-off has actually maxed out its two extensions (each gated on a
// full time_diff stall: 30s, then 60s), not fire the instant the deadline
// passes. Percent never advances, so every tick after the first counts
// toward the stall.
func TestPollWatchdogRequiresMaxExtensionsBeforeAborting(t *testing.T) {
	tr := &fakeTransport{
		estimate:   1, // max_wait_seconds = 5*1 = 5s, elapses almost at once
		progresses: []Progress{{Status: StatusInProgress, PercentComplete: 0}},
	}

	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Second)
	defer cancel()

	start := time.Now()
	outcome, err := Poll(ctx, tr, Short, false)
	elapsed := time.Since(start)

	assert.Error(t, err)
	assert.Equal(t, WatchdogAborted, outcome)
	assert.GreaterOrEqual(t, elapsed, 90*time.Second,
		"watchdog must wait out both 30s and 60s stalls before the second extension is reached")
}

// TestPollIgnoreMaxTimeSuppressesWatchdogAbort exercises spec.md §4.7
// step 1 / §5 Cancellation (b): with ignoreMaxTime set, the watchdog
// never aborts even once extensions have maxed out and max_wait_seconds
// has long since elapsed; only the caller's own context ends the poll.
func TestPollIgnoreMaxTimeSuppressesWatchdogAbort(t *testing.T) {
	tr := &fakeTransport{
		estimate:   1,
		progresses: []Progress{{Status: StatusInProgress, PercentComplete: 0}},
	}

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Second)
	defer cancel()

	start := time.Now()
	outcome, err := Poll(ctx, tr, Short, true)
	elapsed := time.Since(start)

	assert.Error(t, err)
	assert.Equal(t, WatchdogAborted, outcome)
	assert.Equal(t, context.DeadlineExceeded, err,
		"with ignoreMaxTime, only the context deadline ends the poll, never the internal watchdog")
	assert.GreaterOrEqual(t, elapsed, 99*time.Second)
}
