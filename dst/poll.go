package dst

import (
	"context"
	"fmt"
	"time"
)

// Poll drives the adaptive-backoff polling loop that waits for an
// already-started offline self-test to reach a terminal state, spec.md
// §4.4 (C4).
//
// Each tick, if the device has gone at least time_diff without its
// percent-complete advancing, delay and time_diff both double (up to
// MaxShortTimeExtensionCount/MaxLongTimeExtensionCount extensions) so a
// drive stalled in internal error recovery isn't hammered with pointless
// reads, while a test that keeps advancing is polled at the original
// cadence. A watchdog bounds total wait time to WatchdogMultiplier times
// the device's own estimate (or the fallback constant, if the device
// doesn't report one); it fires only once the back-off has maxed out its
// extensions AND the wait has actually run past that bound, and never
// fires at all when ignoreMaxTime is set.
func Poll(ctx context.Context, transport Transport, kind Kind, ignoreMaxTime bool) (Outcome, error) {
	delay := InitialShortDelay
	timeDiff := InitialShortTimeDiff
	maxExtensions := MaxShortTimeExtensionCount
	fallbackSeconds := uint32(FallbackShortDSTSeconds)

	if kind == Long || kind == Conveyance {
		delay = InitialLongDelay
		timeDiff = InitialLongTimeDiff
		maxExtensions = MaxLongTimeExtensionCount
		fallbackSeconds = uint32(FallbackLongDSTSeconds)
	}

	totalSeconds := transport.EstimatedSeconds(kind)
	if totalSeconds == 0 {
		totalSeconds = fallbackSeconds
	}
	maxWait := time.Duration(WatchdogMultiplier) * time.Duration(totalSeconds) * time.Second
	deadline := time.Now().Add(maxWait)

	extensions := 0
	haveLastPercent := false
	var lastPercent uint32
	lastProgressTime := time.Now()

	for {
		select {
		case <-ctx.Done():
			return WatchdogAborted, ctx.Err()
		default:
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return WatchdogAborted, ctx.Err()
		case <-timer.C:
		}

		raw, err := transport.ReadProgress()
		if err != nil {
			return Failure, fmt.Errorf("dst: reading self-test progress: %w", err)
		}
		p := NormalizeProgress(raw)

		switch p.Status {
		case StatusCompleted:
			return Success, nil
		case StatusAbortedByHost, StatusInterruptedByReset:
			return Aborted, nil
		case StatusInProgress:
			// keep polling
		default:
			return Failure, fmt.Errorf("dst: self-test reported failure status %#x", uint8(p.Status))
		}

		now := time.Now()
		advanced := !haveLastPercent || p.PercentComplete != lastPercent
		if advanced {
			lastPercent = p.PercentComplete
			lastProgressTime = now
			haveLastPercent = true
		} else if extensions < maxExtensions && now.Sub(lastProgressTime) >= timeDiff {
			delay *= 2
			timeDiff *= 2
			extensions++
			lastProgressTime = now
		}

		if !ignoreMaxTime && extensions >= maxExtensions && now.After(deadline) {
			return WatchdogAborted, fmt.Errorf("dst: watchdog timeout after %s waiting for %s self-test", maxWait, kind)
		}
	}
}
