// Copyright 2017-18 Daniel Swarbrick. All rights reserved.
// Use of this source code is governed by a GPL license that can be found in the LICENSE file.

// ATA command definitions.

package ata

const (
	// ATA commands
	ATA_SMART                   = 0xb0
	ATA_IDENTIFY_DEVICE         = 0xec
	ATA_READ_LOG_EXT            = 0x2f
	ATA_EXECUTE_DIAG            = 0x90
	ATA_WRITE_SECTORS_EXT       = 0x34
	ATA_FLUSH_CACHE_EXT         = 0xea
	ATA_READ_VERIFY_SECTORS_EXT = 0x42

	// ATA feature register values for SMART
	SMART_READ_DATA     = 0xd0
	SMART_READ_LOG      = 0xd5
	SMART_RETURN_STATUS = 0xda
	SMART_EXEC_OFFLINE  = 0xd4

	// SMART EXECUTE OFFLINE IMMEDIATE subcommands, spec.md §6.
	SMART_OFFLINE_EXEC_OFFLINE                 = 0x00
	SMART_OFFLINE_SHORT_SELF_TEST              = 0x01
	SMART_OFFLINE_EXTENDED_SELF_TEST           = 0x02
	SMART_OFFLINE_CONVEYANCE_SELF_TEST         = 0x03
	SMART_OFFLINE_SELECTIVE_SELF_TEST          = 0x04
	SMART_OFFLINE_CAPTIVE_SHORT_SELF_TEST      = 0x81
	SMART_OFFLINE_CAPTIVE_EXTENDED_SELF_TEST   = 0x82
	SMART_OFFLINE_CAPTIVE_CONVEYANCE_SELF_TEST = 0x83
	SMART_OFFLINE_CAPTIVE_SELECTIVE_SELF_TEST  = 0x84
	SMART_OFFLINE_ABORT_SELF_TEST              = 0x7f

	// SMART log addresses, spec.md §6.
	SMART_LOG_DIRECTORY     = 0x00
	SMART_LOG_SELF_TEST     = 0x06 // legacy SMART self-test log, 24-byte descriptors
	SMART_LOG_EXT_SELF_TEST = 0x07 // GPL extended self-test log, 26-byte descriptors

	// Byte offset of the self-test status nibble / percent-remaining
	// nibble within the 512-byte SMART DATA structure, spec.md §6.
	SMART_DATA_SELF_TEST_STATUS_OFFSET = 363

	// Extended self-test completion time, in minutes, within SMART DATA
	// (spec.md §4.4's total_dst_seconds source for Long/Conveyance).
	// 0xFF means "see the 2-byte value at LONG_DST_TIME_EXT instead".
	SMART_DATA_LONG_DST_TIME_OFFSET          = 373
	SMART_DATA_LONG_DST_TIME_EXT_LOW_OFFSET  = 375
	SMART_DATA_LONG_DST_TIME_EXT_HIGH_OFFSET = 376

	// 28-bit and 48-bit "no LBA" sentinels as the drive encodes them on
	// the wire, before normalization to the canonical 64-bit sentinel.
	MAX_28_BIT_LBA = 0x0FFFFFFF
	MAX_48_BIT_LBA = 0x0000FFFFFFFFFFFF
)
