// Copyright 2017-18 Daniel Swarbrick. All rights reserved.
// Use of this source code is governed by a GPL license that can be found in the LICENSE file.

// Package byteutil collects small byte-level and formatting helpers.
// Package device uses SwapBytes and NativeEndian from it.
package byteutil

import (
	"encoding/binary"
	"fmt"
	"math/bits"
	"unsafe"
)

// NativeEndian is the byte order of the running host, used when decoding
// structures that the kernel fills in using native layout (e.g. the NVMe
// passthrough command result).
var NativeEndian binary.ByteOrder

func init() {
	i := uint32(1)
	b := (*[4]byte)(unsafe.Pointer(&i))
	if b[0] == 1 {
		NativeEndian = binary.LittleEndian
	} else {
		NativeEndian = binary.BigEndian
	}
}

// SwapBytes swaps the order of every second byte in a byte slice, in place.
// ATA IDENTIFY DEVICE returns the model number, serial number and firmware
// revision fields as byte-swapped ASCII; this undoes that swap.
func SwapBytes(s []byte) []byte {
	for i := 0; i+1 < len(s); i += 2 {
		s[i], s[i+1] = s[i+1], s[i]
	}

	return s
}

// Log2b finds the most significant bit set in x, or 0 if x is 0.
func Log2b(x uint) int {
	if x == 0 {
		return 0
	}

	return bits.Len(x) - 1
}

// FormatBytes formats a uint64 byte quantity using human-readable units.
func FormatBytes(v uint64) string {
	var i int

	suffixes := [...]string{"B", "KB", "MB", "GB", "TB", "PB", "EB"}
	d := uint64(1)

	for i = 0; i < len(suffixes)-1; i++ {
		if v >= d*1000 {
			d *= 1000
		} else {
			break
		}
	}

	if i == 0 {
		return fmt.Sprintf("%d %s", v, suffixes[i])
	}

	// Print 3 significant digits.
	return fmt.Sprintf("%.3g %s", float64(v)/float64(d), suffixes[i])
}
