package dstlog

import "fmt"

func errShortLog(kind string, want, got int) error {
	return fmt.Errorf("dstlog: %s log too short: want at least %d bytes, got %d", kind, want, got)
}
