//go:build linux

// Command dstctl drives device self-tests and bad-sector remediation
// from the command line: start/poll/abort a DST, print a device's
// self-test log, scan for candidate devices, and run the DST-and-clean
// loop end to end.
package main

import "os"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
