package dst

import (
	"fmt"

	"github.com/dswarbrick/dstclean/dsterr"
)

// Transport is the per-device capability every backend (ATA, SCSI,
// NVMe) must provide for the orchestrator to drive a self-test without
// knowing which wire protocol is underneath, spec.md §4.1 (C1).
//
// Implementations live in package device; this package only ever sees
// the interface, so there is no import edge back to device.
type Transport interface {
	// SupportsKind reports whether this device can run the given self-test kind.
	SupportsKind(kind Kind) bool

	// Start issues the self-test start command. For Mode == Captive,
	// Start blocks until the command itself completes (the device is
	// unavailable for the whole captive run); for Mode == Offline it
	// returns once the test has been accepted and is running in the
	// background.
	Start(kind Kind, mode Mode) error

	// Abort issues the self-test abort command.
	Abort() error

	// ReadProgress reads the current raw progress indication. Poll
	// normalizes it through NormalizeProgress before inspecting it.
	ReadProgress() (Progress, error)

	// EstimatedSeconds returns the device-reported (or, absent that,
	// the fallback) estimated duration for kind, used to size the
	// watchdog timeout (spec.md §4.4).
	EstimatedSeconds(kind Kind) uint32
}

// Dispatch validates that transport supports kind before any command is
// issued, returning a clear error instead of letting an unsupported
// self-test kind reach the wire, spec.md §4.1's dispatcher responsibility.
func Dispatch(transport Transport, kind Kind) error {
	if transport == nil {
		return fmt.Errorf("dst: nil transport")
	}
	if !transport.SupportsKind(kind) {
		return dsterr.New("dispatch", dsterr.NotSupported, fmt.Errorf("dst: %s self-test not supported by this device", kind))
	}
	return nil
}
