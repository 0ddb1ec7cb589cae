package dstlog

import "github.com/dswarbrick/dstclean/ata"

const (
	ataExtPageSize     = 512
	ataExtDescLen      = 26
	ataExtFirstOffset  = 4
	ataExtLastOffset   = 4 + 18*ataExtDescLen // 472
	ataExtDescPerPage  = 19
	ataLegacyDescLen   = 24
	ataLegacyFirst     = 2
	ataLegacyLast      = 2 + 20*ataLegacyDescLen // 482
	ataLegacyIndexByte = 508
)

func allZero(b []byte) bool {
	for _, v := range b {
		if v != 0 {
			return false
		}
	}
	return true
}

func le16(lo, hi byte) uint64 { return uint64(lo) | uint64(hi)<<8 }

// ParseATAExt canonicalizes the GPL extended self-test log (address
// 0x07), spec.md §4.5. raw is one or more concatenated 512-byte pages,
// oldest-appended-last in whatever order the drive returned them; page 0
// must be first since only it carries the self-test index.
func ParseATAExt(raw []byte) (Log, error) {
	if len(raw) < ataExtPageSize {
		return Log{}, errShortLog("ATA ext", ataExtPageSize, len(raw))
	}
	numPages := len(raw) / ataExtPageSize

	selfTestIndex := le16(raw[2], raw[3])
	if selfTestIndex == 0 || int(selfTestIndex) > ataExtDescPerPage {
		// Some firmwares leave this zero when no test has ever run.
		return Log{Type: ATA}, nil
	}

	pageIdx := 0
	offset := ataExtFirstOffset + (int(selfTestIndex)-1)*ataExtDescLen

	log := Log{Type: ATA}
	for i := 0; i < MaxATAEntries && i < numPages*ataExtDescPerPage; i++ {
		start := pageIdx*ataExtPageSize + offset
		desc := raw[start : start+ataExtDescLen]
		if allZero(desc) {
			break
		}
		log.Entries = append(log.Entries, parseATAExtDescriptor(desc))

		offset -= ataExtDescLen
		if offset < ataExtFirstOffset {
			pageIdx--
			if pageIdx < 0 {
				pageIdx = numPages - 1
			}
			offset = ataExtLastOffset
		}
	}
	return log, nil
}

func parseATAExtDescriptor(d []byte) Descriptor {
	status := d[1] >> 4
	lba := uint64(d[5]) | uint64(d[6])<<8 | uint64(d[7])<<16 |
		uint64(d[8])<<24 | uint64(d[9])<<32 | uint64(d[10])<<40
	if lba == ata.MAX_48_BIT_LBA {
		lba = SentinelLBA
	}

	var vs [15]byte
	copy(vs[:], d[11:26])

	return Descriptor{
		Valid:               true,
		KindField:           d[0],
		Status:              status,
		Timestamp:           le16(d[2], d[3]),
		CheckpointOrSegment: d[4],
		LBAOfFailure:        lba,
		Transport: AtaSpecific{
			VendorSpecific:   vs,
			SynthesizedSense: synthesizeSense(status),
		},
	}
}

// ParseATALegacy canonicalizes the single-page legacy SMART self-test
// log (SMART READ LOG address 0x06), spec.md §4.5.
func ParseATALegacy(raw []byte) (Log, error) {
	if len(raw) < ataExtPageSize {
		return Log{}, errShortLog("ATA legacy", ataExtPageSize, len(raw))
	}

	selfTestIndex := raw[ataLegacyIndexByte]
	if selfTestIndex == 0 || int(selfTestIndex) > 21 {
		return Log{Type: ATA}, nil
	}

	offset := ataLegacyFirst + (int(selfTestIndex)-1)*ataLegacyDescLen

	log := Log{Type: ATA}
	for i := 0; i < MaxATAEntries; i++ {
		desc := raw[offset : offset+ataLegacyDescLen]
		if allZero(desc) {
			break
		}
		log.Entries = append(log.Entries, parseATALegacyDescriptor(desc))

		offset -= ataLegacyDescLen
		if offset < ataLegacyFirst {
			offset = ataLegacyLast
		}
	}
	return log, nil
}

func parseATALegacyDescriptor(d []byte) Descriptor {
	status := d[1] >> 4
	lba := uint64(d[5]) | uint64(d[6])<<8 | uint64(d[7])<<16 | uint64(d[8])<<24
	if lba == ata.MAX_28_BIT_LBA || lba == 0xFFFFFFFF {
		lba = SentinelLBA
	}

	var vs [15]byte
	copy(vs[:], d[9:24])

	return Descriptor{
		Valid:               true,
		KindField:           d[0],
		Status:              status,
		Timestamp:           le16(d[2], d[3]),
		CheckpointOrSegment: d[4],
		LBAOfFailure:        lba,
		Transport: AtaSpecific{
			VendorSpecific:   vs,
			SynthesizedSense: synthesizeSense(status),
		},
	}
}
