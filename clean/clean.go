// Package clean implements the DST-and-Clean orchestrator (C7): run a
// short self-test, find the LBA it blames for a failure, repair it,
// verify the surrounding neighborhood, and repeat until the device
// passes or the error budget is exhausted, spec.md §4.7.
package clean

import (
	"context"
	"fmt"

	"github.com/dswarbrick/dstclean/config"
	"github.com/dswarbrick/dstclean/dst"
	"github.com/dswarbrick/dstclean/dstlog"
	"github.com/dswarbrick/dstclean/repair"
)

// Device is the narrow surface Run needs from an open device. It is
// satisfied structurally by *device.Handle; this package never imports
// package device.
type Device interface {
	Transport() dst.Transport
	WithExclusiveLock(fn func() error) error
	ReadDSTLog() (dstlog.Log, error)
	TotalLBACount() uint64
	repair.BlockIO
}

// Result summarizes a completed (or aborted) clean.Run pass.
type Result struct {
	Outcome  dst.Outcome
	Repaired bool
	Errors   *repair.ErrorList
}

// Run drives the main loop spec.md §4.7 describes. It returns once the
// device passes a short DST cleanly, the configured error budget is
// exhausted, or an unrepairable condition (access denied, a DST
// failure with no attributable LBA, or a watchdog timeout) is hit.
//
// Termination invariant: the returned Errors list never holds more
// than cfg.ErrorLimit+1 entries — the +1 being the LBA whose discovery
// tripped the budget, spec.md §4.7's "errors_recorded ≤ error_limit + 1".
func Run(ctx context.Context, dev Device, cfg config.Config) (Result, error) {
	if cfg.ErrorLimit < 1 {
		cfg.ErrorLimit = 1
	}

	engine := repair.New(dev, repair.Options{
		ForcePassthrough: cfg.ForcePassthrough,
		AutoReadRealloc:  cfg.AutoReadRealloc,
		AutoWriteRealloc: cfg.AutoWriteRealloc,
	})

	list := &repair.ErrorList{}
	res := Result{Errors: list}

	for {
		if err := dst.Start(dev.Transport(), dev, dst.Short, dst.Offline); err != nil {
			return res, fmt.Errorf("clean: starting short self-test: %w", err)
		}

		// spec.md §4.7 step 1: the embedded short self-test always
		// runs with ignore_max_time=true, so a slow read-scan never
		// gets cut off by the watchdog mid-loop; a caller-initiated
		// ctx cancellation still terminates it.
		outcome, err := dst.Poll(ctx, dev.Transport(), dst.Short, true)
		res.Outcome = outcome
		if outcome == dst.WatchdogAborted {
			return res, fmt.Errorf("clean: watchdog aborted short self-test: %w", err)
		}
		if outcome == dst.Aborted {
			return res, fmt.Errorf("clean: short self-test was aborted")
		}
		if outcome == dst.Success {
			return res, nil
		}
		if err != nil && outcome != dst.Failure {
			return res, fmt.Errorf("clean: polling short self-test: %w", err)
		}

		lba, attributable, err := newestFailureLBA(dev)
		if err != nil {
			return res, fmt.Errorf("clean: reading self-test log: %w", err)
		}
		if !attributable {
			return res, fmt.Errorf("clean: self-test failed with no attributable LBA; unrepairable")
		}

		if list.Len() >= cfg.ErrorLimit {
			list.Add(repair.Entry{LBA: lba, Status: repair.NotRepaired})
			return res, fmt.Errorf("clean: error budget (%d) exhausted at LBA %d", cfg.ErrorLimit, lba)
		}

		status, rerr := engine.Repair(lba)
		list.Add(repair.Entry{LBA: lba, Status: status})

		switch status {
		case repair.UnableToRepairAccessDenied:
			return res, rerr
		case repair.RepairFailed, repair.NotRepaired:
			return res, fmt.Errorf("clean: repairing LBA %d: %w", lba, rerr)
		}
		res.Repaired = true

		if err := verifyNeighborhood(dev, engine, list, lba, cfg); err != nil {
			return res, err
		}
	}
}

// newestFailureLBA reads the device's self-test log and extracts the
// LBA from its newest entry, but only when that entry's status is
// StatusReadFailure (0x7) and it actually carries an LBA — spec.md
// §4.7 step 4.
func newestFailureLBA(dev Device) (lba uint64, attributable bool, err error) {
	log, err := dev.ReadDSTLog()
	if err != nil {
		return 0, false, err
	}
	if len(log.Entries) == 0 {
		return 0, false, nil
	}

	newest := log.Entries[0]
	if dst.Status(newest.Status) != dst.StatusReadFailure {
		return 0, false, nil
	}
	if newest.LBAOfFailure == dstlog.SentinelLBA {
		return 0, false, nil
	}
	return newest.LBAOfFailure, true, nil
}

// verifyNeighborhood implements spec.md §4.7 steps 6-7: verify a
// ±cfg.NeighborhoodRadius window around lba (capped at
// cfg.NeighborhoodMaxRange and the device's reported end), and on
// failure fall back to a per-physical-block walk, repairing every LBA
// that doesn't verify clean until the range passes or the error budget
// runs out.
func verifyNeighborhood(dev Device, engine *repair.Engine, list *repair.ErrorList, lba uint64, cfg config.Config) error {
	start := uint64(0)
	if lba > cfg.NeighborhoodRadius {
		start = lba - cfg.NeighborhoodRadius
	}

	length := cfg.NeighborhoodMaxRange
	if devMax := dev.TotalLBACount(); devMax > start {
		if remaining := devMax - start; remaining < length {
			length = remaining
		}
	}
	if length == 0 {
		return nil
	}

	if err := dev.VerifyLBA(start, int(length)); err == nil {
		return nil
	}

	step := uint64(dev.PhysicalBlockSize() / 512)
	if step == 0 {
		step = 1
	}

	for i := start; i < start+length; i += step {
		if err := dev.VerifyLBA(i, 1); err == nil {
			continue
		}

		if list.Len() >= cfg.ErrorLimit {
			list.Add(repair.Entry{LBA: i, Status: repair.NotRepaired})
			return fmt.Errorf("clean: error budget (%d) exhausted during neighborhood verify at LBA %d", cfg.ErrorLimit, i)
		}

		status, rerr := engine.Repair(i)
		list.Add(repair.Entry{LBA: i, Status: status})
		if status != repair.Repaired && status != repair.RepairNotRequired {
			return fmt.Errorf("clean: repairing neighborhood LBA %d: %w", i, rerr)
		}
	}

	return nil
}
