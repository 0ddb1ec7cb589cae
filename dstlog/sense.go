package dstlog

import "github.com/dswarbrick/dstclean/scsi"

// synthesizeSense builds the sense triple a SAT layer would report for a
// given ATA self-test status nibble, spec.md §4.5 "Synthesized sense
// data". ATA has no native sense data; everything downstream (repair
// classification, rendering) expects a (sense key, ASC, ASCQ) triple
// regardless of transport, so ATA entries get one synthesized here
// rather than forcing every consumer to branch on transport type.
func synthesizeSense(statusNibble uint8) ScsiSpecific {
	switch statusNibble {
	case 0x0: // completed without error
		return ScsiSpecific{SenseKey: scsi.SENSE_KEY_NO_SENSE, AdditionalSenseCode: 0x00, AdditionalSenseQualifier: 0x00}
	case 0x1: // aborted by host
		return ScsiSpecific{SenseKey: scsi.SENSE_KEY_ABORTED_COMMAND, AdditionalSenseCode: 0x40, AdditionalSenseQualifier: 0x81}
	case 0x2: // interrupted by reset
		return ScsiSpecific{SenseKey: scsi.SENSE_KEY_ABORTED_COMMAND, AdditionalSenseCode: 0x40, AdditionalSenseQualifier: 0x82}
	case 0x3: // fatal or unknown error
		return ScsiSpecific{SenseKey: scsi.SENSE_KEY_HARDWARE_ERROR, AdditionalSenseCode: 0x40, AdditionalSenseQualifier: 0x83}
	case 0x4: // unknown test element failed
		return ScsiSpecific{SenseKey: scsi.SENSE_KEY_HARDWARE_ERROR, AdditionalSenseCode: 0x40, AdditionalSenseQualifier: 0x84}
	case 0x5: // electrical element failed
		return ScsiSpecific{SenseKey: scsi.SENSE_KEY_HARDWARE_ERROR, AdditionalSenseCode: 0x40, AdditionalSenseQualifier: 0x85}
	case 0x6: // servo/seek element failed
		return ScsiSpecific{SenseKey: scsi.SENSE_KEY_HARDWARE_ERROR, AdditionalSenseCode: 0x40, AdditionalSenseQualifier: 0x86}
	case 0x7: // read element failed
		return ScsiSpecific{SenseKey: scsi.SENSE_KEY_MEDIUM_ERROR, AdditionalSenseCode: 0x40, AdditionalSenseQualifier: 0x87}
	case 0x8: // handling damage
		return ScsiSpecific{SenseKey: scsi.SENSE_KEY_HARDWARE_ERROR, AdditionalSenseCode: 0x40, AdditionalSenseQualifier: 0x88}
	default: // reserved, or still in progress (0xf handled upstream)
		return ScsiSpecific{SenseKey: scsi.SENSE_KEY_NO_SENSE, AdditionalSenseCode: 0x00, AdditionalSenseQualifier: 0x00}
	}
}
