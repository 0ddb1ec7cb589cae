// Package repair implements the sector-repair engine (C6) and the bad
// LBA error list it operates on (C8), spec.md §4.6.
package repair

import (
	"fmt"

	"github.com/dswarbrick/dstclean/dsterr"
)

// Status is the outcome of attempting to repair one LBA, mirroring
// original_source/include/sector_repair.h's eRepairStatus enum.
type Status int

const (
	NotRepaired Status = iota
	RepairFailed
	Repaired
	RepairNotRequired
	UnableToRepairAccessDenied
)

func (s Status) String() string {
	switch s {
	case NotRepaired:
		return "not repaired"
	case RepairFailed:
		return "repair failed"
	case Repaired:
		return "repaired"
	case RepairNotRequired:
		return "repair not required"
	case UnableToRepairAccessDenied:
		return "unable to repair: access denied"
	default:
		return "unknown"
	}
}

// BlockIO is the narrow surface the repair engine needs from a device;
// device.Handle satisfies it structurally, so this package never
// imports package device (accept interfaces, return structs).
type BlockIO interface {
	PhysicalBlockSize() uint32
	ReadLBA(lba uint64, n int) ([]byte, error)
	WriteLBA(lba uint64, data []byte) error
	VerifyLBA(lba uint64, n int) error
	FlushCache() error
	ReassignBlocks(lbas []uint64) error

	// SupportsATAPassthrough reports whether this device is a native
	// ATA drive the force-passthrough branch and the access-denied
	// retry (spec.md §4.6 step 2 / step 6) can target.
	SupportsATAPassthrough() bool
	// PassthroughWriteVerify writes data to lba via the low-level ATA
	// pass-through path, flushes the cache, and read-verifies it. Only
	// called when SupportsATAPassthrough is true.
	PassthroughWriteVerify(lba uint64, data []byte) error
}

// Options tunes how aggressively the engine tries to repair a sector,
// spec.md §4.6 and §6.
type Options struct {
	// ForcePassthrough, on a device where SupportsATAPassthrough is true,
	// replaces the whole read/write-realloc/REASSIGN BLOCKS sequence with
	// the terminal ATA pass-through write+flush+verify branch, for drives
	// where normal I/O is known not to trigger the drive's own
	// auto-reallocation. On other devices it has no effect.
	ForcePassthrough bool
	AutoReadRealloc  bool
	AutoWriteRealloc bool
}

// Engine repairs individual bad LBAs, spec.md §4.6 (C6).
type Engine struct {
	dev  BlockIO
	opts Options
}

// New returns a repair Engine bound to dev.
func New(dev BlockIO, opts Options) *Engine {
	return &Engine{dev: dev, opts: opts}
}

// align rounds lba down to the start of the physical block it falls
// within, so a repair touches the whole physical sector a 4Kn drive
// actually reallocates, not just the 512-byte logical sector reported
// as bad.
func (e *Engine) align(lba uint64) uint64 {
	phys := uint64(e.dev.PhysicalBlockSize())
	if phys <= 512 {
		return lba
	}
	sectorsPerPhys := phys / 512
	return (lba / sectorsPerPhys) * sectorsPerPhys
}

// Repair attempts to recover the physical sector containing lba,
// spec.md §4.6's ordering: align, then the force-passthrough branch
// (terminal, ATA-only) or read-reallocate then write-reallocate then
// REASSIGN BLOCKS. A permission-denied outcome on a non-forced attempt
// against an ATA drive is retried exactly once with the pass-through
// branch forced on, spec.md §4.6 step 6 / §7.
func (e *Engine) Repair(lba uint64) (Status, error) {
	return e.repair(e.align(lba), e.opts.ForcePassthrough)
}

func (e *Engine) repair(lba uint64, forcePassthrough bool) (Status, error) {
	if forcePassthrough && e.dev.SupportsATAPassthrough() {
		return e.tryPassthrough(lba)
	}

	status, err := e.tryReallocThenReassign(lba)

	// Access denied on the normal path: one retry via the pass-through
	// branch, whose outcome is final.
	if status == UnableToRepairAccessDenied && e.dev.SupportsATAPassthrough() {
		return e.tryPassthrough(lba)
	}
	return status, err
}

// tryPassthrough implements spec.md §4.6 step 2: write a zeroed
// physical block via the ATA pass-through path, flush, read-verify.
// It never falls through to read/write-realloc or REASSIGN BLOCKS.
func (e *Engine) tryPassthrough(lba uint64) (Status, error) {
	zero := make([]byte, e.dev.PhysicalBlockSize())
	if err := e.dev.PassthroughWriteVerify(lba, zero); err != nil {
		if dsterr.Is(err, dsterr.AccessDenied) {
			return UnableToRepairAccessDenied, err
		}
		return RepairFailed, fmt.Errorf("repair: ATA pass-through write for LBA %d failed: %w", lba, err)
	}
	return Repaired, nil
}

func (e *Engine) tryReallocThenReassign(lba uint64) (Status, error) {
	if e.opts.AutoReadRealloc {
		if status, err := e.tryReadRealloc(lba); status == Repaired || status == UnableToRepairAccessDenied {
			return status, err
		}
	}
	if e.opts.AutoWriteRealloc {
		if status, err := e.tryWriteRealloc(lba); status == Repaired || status == UnableToRepairAccessDenied {
			return status, err
		}
	}
	return e.tryReassign(lba)
}

func (e *Engine) rewriteAndVerify(lba uint64) error {
	zero := make([]byte, e.dev.PhysicalBlockSize())
	if err := e.dev.WriteLBA(lba, zero); err != nil {
		return err
	}
	if err := e.dev.FlushCache(); err != nil {
		return err
	}
	return e.dev.VerifyLBA(lba, 1)
}

// tryReadRealloc repeatedly reads the sector, hoping the drive's own
// read-retry/reallocation logic recovers it. A successful read-then-
// verify preserves the data the write-realloc path would discard.
func (e *Engine) tryReadRealloc(lba uint64) (Status, error) {
	const maxAttempts = 3
	var lastErr error
	for i := 0; i < maxAttempts; i++ {
		_, err := e.dev.ReadLBA(lba, 1)
		if err == nil {
			verr := e.dev.VerifyLBA(lba, 1)
			if verr == nil {
				return Repaired, nil
			}
			if dsterr.Is(verr, dsterr.AccessDenied) {
				return UnableToRepairAccessDenied, verr
			}
			return NotRepaired, verr
		}
		if dsterr.Is(err, dsterr.AccessDenied) {
			return UnableToRepairAccessDenied, err
		}
		lastErr = err
	}
	return NotRepaired, lastErr
}

// tryWriteRealloc writes zeroes to the sector, which forces most
// drives to reallocate a sector they can no longer read correctly.
// This discards the sector's data, so it only runs after read-realloc
// has already failed to preserve it.
func (e *Engine) tryWriteRealloc(lba uint64) (Status, error) {
	if err := e.rewriteAndVerify(lba); err != nil {
		if dsterr.Is(err, dsterr.AccessDenied) {
			return UnableToRepairAccessDenied, err
		}
		return NotRepaired, err
	}
	return Repaired, nil
}

func (e *Engine) tryReassign(lba uint64) (Status, error) {
	if err := e.dev.ReassignBlocks([]uint64{lba}); err != nil {
		if dsterr.Is(err, dsterr.AccessDenied) {
			return UnableToRepairAccessDenied, err
		}
		return RepairFailed, fmt.Errorf("repair: REASSIGN BLOCKS for LBA %d failed: %w", lba, err)
	}
	return Repaired, nil
}
