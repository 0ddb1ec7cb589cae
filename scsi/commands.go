// Copyright 2017-18 Daniel Swarbrick. All rights reserved.
// Use of this source code is governed by a GPL license that can be found in the LICENSE file.

// SCSI command definitions.

package scsi

const (
	// SCSI commands used by this package
	SCSI_INQUIRY              = 0x12
	SCSI_MODE_SENSE_6         = 0x1a
	SCSI_MODE_SENSE_10        = 0x5a
	SCSI_READ_CAPACITY_10     = 0x25
	SCSI_SERVICE_ACTION_IN_16 = 0x9e
	SCSI_READ_CAPACITY_16_SA  = 0x10
	SCSI_ATA_PASSTHRU_16      = 0x85
	SCSI_REQUEST_SENSE        = 0x03
	SCSI_REASSIGN_BLOCKS      = 0x07
	SCSI_LOG_SENSE            = 0x4d
	SCSI_SEND_DIAGNOSTIC      = 0x1d
	SCSI_READ_16              = 0x88
	SCSI_WRITE_16             = 0x8a
	SCSI_VERIFY_16            = 0x8f

	// Minimum length of standard INQUIRY response
	INQ_REPLY_LEN = 36

	// SCSI-3 mode pages
	RIGID_DISK_DRIVE_GEOMETRY_PAGE = 0x04
	MP_CONTROL                     = 0x0a

	// Mode page control field
	MPAGE_CONTROL_CURRENT = 0
	MPAGE_CONTROL_DEFAULT = 2

	// Mode parameter header lengths (no block descriptor, DBD=1)
	MODE_PARAMETER_HEADER_6_LEN  = 4
	MODE_PARAMETER_HEADER_10_LEN = 8

	// Byte offset of the extended self-test completion time field
	// (seconds, big-endian) within the Control mode page's parameter
	// data, SPC-4 table 317.
	MP_CONTROL_LONG_DST_TIME_OFFSET = 10

	// Log page for self-test results (spc-4 7.2.11), spec.md §6
	LOG_PAGE_SELF_TEST_RESULTS = 0x10

	// SEND DIAGNOSTIC self-test code field, spec.md §6
	SELF_TEST_CODE_SHORT_BACKGROUND = 0x01
	SELF_TEST_CODE_LONG_BACKGROUND  = 0x02
	SELF_TEST_CODE_ABORT            = 0x04
	SELF_TEST_CODE_SHORT_FOREGROUND = 0x05
	SELF_TEST_CODE_LONG_FOREGROUND  = 0x06

	// Sense keys needed by the reassign-blocks list-adjustment loop
	SENSE_KEY_NO_SENSE        = 0x0
	SENSE_KEY_RECOVERED_ERROR = 0x1
	SENSE_KEY_NOT_READY       = 0x2
	SENSE_KEY_MEDIUM_ERROR    = 0x3
	SENSE_KEY_HARDWARE_ERROR  = 0x4
	SENSE_KEY_ILLEGAL_REQUEST = 0x5
	SENSE_KEY_ABORTED_COMMAND = 0xb
)

// SCSI CDB types
type CDB6 [6]byte
type CDB10 [10]byte
type CDB16 [16]byte
