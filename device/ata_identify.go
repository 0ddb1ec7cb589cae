// Copyright 2017 Daniel Swarbrick. All rights reserved.
// Use of this source code is governed by a GPL license that can be found in the LICENSE file.

package device

import (
	"bytes"
	"encoding/binary"
	"strings"

	"github.com/dswarbrick/dstclean/internal/byteutil"
)

// decodeIdentify unmarshals a raw 512-byte IDENTIFY DEVICE response.
func decodeIdentify(raw []byte, id *IdentifyDeviceData) error {
	return binary.Read(bytes.NewReader(raw), binary.LittleEndian, id)
}

// IdentifyDeviceData is the 512-byte response to ATA IDENTIFY DEVICE
// (and IDENTIFY PACKET DEVICE), fields relevant to self-test support
// and capability reporting.
type IdentifyDeviceData struct {
	GeneralConfiguration uint16
	NumCylinders         uint16
	ReservedWord2        uint16
	NumHeads             uint16
	Retired1             [2]uint16
	NumSectorsPerTrack   uint16
	VendorUnique         [3]uint16
	SerialNumber         [20]byte
	Retired2             [2]uint16
	Obsolete1            uint16
	FirmwareRevision     [8]byte
	ModelNumber          [40]byte
	MaxBlockTransfer     uint8
	VendorUnique2        uint8
	ReservedWord48       uint16
	Capabilities         uint32
	ObsoleteWords51      [2]uint16
	_                    [60 - 53]uint16
	TotalLBA28           uint32   // words 60-61, 28-bit addressable sector count
	_                    [80 - 62]uint16
	MajorVersion         uint16 // word 80
	MinorVersion         uint16 // word 81
	CommandSetSupport    [3]uint16
	_                    [100 - 85]uint16
	TotalLBA48           uint64 // words 100-103, 48-bit addressable sector count
	_                    [512 - 208]byte
}

// ataString trims trailing spaces/NULs from a byte-swapped ATA
// identify text field (ATA strings are stored as big-endian word
// pairs), spec.md §6 device identification.
func ataString(b []byte) string {
	swapped := byteutil.SwapBytes(append([]byte(nil), b...))
	return strings.TrimSpace(strings.TrimRight(string(swapped), "\x00"))
}

// Model returns the trimmed ASCII model number string.
func (id *IdentifyDeviceData) Model() string { return ataString(id.ModelNumber[:]) }

// Serial returns the trimmed ASCII serial number string.
func (id *IdentifyDeviceData) Serial() string { return ataString(id.SerialNumber[:]) }

// Firmware returns the trimmed ASCII firmware revision string.
func (id *IdentifyDeviceData) Firmware() string { return ataString(id.FirmwareRevision[:]) }

// TotalLBACount returns the 48-bit addressable sector count when the
// drive reports one (LBA48 support, command set support word 83 bit
// 10), falling back to the 28-bit field otherwise.
func (id *IdentifyDeviceData) TotalLBACount() uint64 {
	if id.CommandSetSupport[1]&(1<<10) != 0 && id.TotalLBA48 != 0 {
		return id.TotalLBA48
	}
	return uint64(id.TotalLBA28)
}

// SupportsSelfTest reports whether word 84/87 bit 1 (SMART self-test
// supported) would be set; callers pass the relevant command-set-support
// word directly since its index varies across ACS revisions.
func SupportsSelfTest(commandSetSupportWord uint16) bool {
	return commandSetSupportWord&(1<<1) != 0
}

// ataMinorVersions maps ATA/ATAPI-n minor version codes (IDENTIFY
// DEVICE word 81) to the human-readable standard name.
//
// Table 10 of X3T13/2008D (ATA-3) Revision 7b, January 27, 1997
// Table 28 of T13/1410D (ATA/ATAPI-6) Revision 3b, February 26, 2002
// Table 31 of T13/1699-D (ATA8-ACS) Revision 6a, September 6, 2008
// Table 46 of T13/BSR INCITS 529 (ACS-4) Revision 08, April 28, 2015
var ataMinorVersions = map[uint16]string{
	0x0001: "ATA-1 X3T9.2/781D prior to revision 4",
	0x0002: "ATA-1 published, ANSI X3.221-1994",
	0x0003: "ATA-1 X3T9.2/781D revision 4",
	0x0004: "ATA-2 published, ANSI X3.279-1996",
	0x0005: "ATA-2 X3T10/948D prior to revision 2k",
	0x0006: "ATA-3 X3T10/2008D revision 1",
	0x0007: "ATA-2 X3T10/948D revision 2k",
	0x0008: "ATA-3 X3T10/2008D revision 0",
	0x0009: "ATA-2 X3T10/948D revision 3",
	0x000a: "ATA-3 published, ANSI X3.298-1997",
	0x000b: "ATA-3 X3T10/2008D revision 6",
	0x000c: "ATA-3 X3T13/2008D revision 7 and 7a",
	0x000d: "ATA/ATAPI-4 X3T13/1153D revision 6",
	0x000e: "ATA/ATAPI-4 T13/1153D revision 13",
	0x000f: "ATA/ATAPI-4 X3T13/1153D revision 7",
	0x0010: "ATA/ATAPI-4 T13/1153D revision 18",
	0x0011: "ATA/ATAPI-4 T13/1153D revision 15",
	0x0012: "ATA/ATAPI-4 published, ANSI NCITS 317-1998",
	0x0013: "ATA/ATAPI-5 T13/1321D revision 3",
	0x0014: "ATA/ATAPI-4 T13/1153D revision 14",
	0x0015: "ATA/ATAPI-5 T13/1321D revision 1",
	0x0016: "ATA/ATAPI-5 published, ANSI NCITS 340-2000",
	0x0017: "ATA/ATAPI-4 T13/1153D revision 17",
	0x0018: "ATA/ATAPI-6 T13/1410D revision 0",
	0x0019: "ATA/ATAPI-6 T13/1410D revision 3a",
	0x001a: "ATA/ATAPI-7 T13/1532D revision 1",
	0x001b: "ATA/ATAPI-6 T13/1410D revision 2",
	0x001c: "ATA/ATAPI-6 T13/1410D revision 1",
	0x001d: "ATA/ATAPI-7 published, ANSI INCITS 397-2005",
	0x001e: "ATA/ATAPI-7 T13/1532D revision 0",
	0x001f: "ACS-3 T13/2161-D revision 3b",
	0x0021: "ATA/ATAPI-7 T13/1532D revision 4a",
	0x0022: "ATA/ATAPI-6 published, ANSI INCITS 361-2002",
	0x0027: "ATA8-ACS T13/1699-D revision 3c",
	0x0028: "ATA8-ACS T13/1699-D revision 6",
	0x0029: "ATA8-ACS T13/1699-D revision 4",
	0x0031: "ACS-2 T13/2015-D revision 2",
	0x0033: "ATA8-ACS T13/1699-D revision 3e",
	0x0039: "ATA8-ACS T13/1699-D revision 4c",
	0x0042: "ATA8-ACS T13/1699-D revision 3f",
	0x0052: "ATA8-ACS T13/1699-D revision 3b",
	0x005e: "ACS-4 T13/BSR INCITS 529 revision 5",
	0x006d: "ACS-3 T13/2161-D revision 5",
	0x0082: "ACS-2 published, ANSI INCITS 482-2012",
	0x0107: "ATA8-ACS T13/1699-D revision 2d",
	0x010a: "ACS-3 published, ANSI INCITS 522-2014",
	0x0110: "ACS-2 T13/2015-D revision 3",
	0x011b: "ACS-3 T13/2161-D revision 4",
}

// MinorVersionString resolves the ATA standard name for an IDENTIFY
// DEVICE word 81 minor version code, used when rendering device
// capability summaries.
func MinorVersionString(code uint16) string {
	if s, ok := ataMinorVersions[code]; ok {
		return s
	}
	return "unknown/reserved"
}
