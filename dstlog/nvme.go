package dstlog

const (
	nvmeFirstOffset = 4
	nvmeDescLen     = 28

	nvmeBitNamespaceIDValid     = 1 << 0
	nvmeBitFailingLBAValid      = 1 << 1
	nvmeBitStatusCodeTypeValid  = 1 << 2
	nvmeBitStatusCodeValid      = 1 << 3

	nvmeStatusUnused = 0x0f
)

func le32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}

func le64(b []byte) uint64 {
	var v uint64
	for i := 7; i >= 0; i-- {
		v = v<<8 | uint64(b[i])
	}
	return v
}

// ParseNVMe canonicalizes the device self-test log (LID 0x06, 564
// bytes), NVMe base spec §5.14.1, spec.md §4.5. raw must be the full
// 564-byte log; byte 0 (current operation) and byte 1 (current
// completion percentage) are ignored here — callers interested in an
// in-progress test use the NVMe transport's ReadProgress (reached via
// device.Handle.Transport()) instead.
func ParseNVMe(raw []byte) (Log, error) {
	if len(raw) < nvmeFirstOffset+nvmeDescLen {
		return Log{}, errShortLog("NVMe", nvmeFirstOffset+nvmeDescLen, len(raw))
	}

	log := Log{Type: NVMe}
	offset := nvmeFirstOffset
	for i := 0; i < MaxNVMeEntries && offset+nvmeDescLen <= len(raw); i++ {
		desc := raw[offset : offset+nvmeDescLen]
		offset += nvmeDescLen

		status := desc[0] & 0x0f
		if allZero(desc) || status == nvmeStatusUnused {
			break
		}
		log.Entries = append(log.Entries, parseNVMeDescriptor(desc))
	}
	return log, nil
}

func parseNVMeDescriptor(d []byte) Descriptor {
	validBits := d[2]
	status := d[0] & 0x0f
	kindField := (d[0] & 0xf0) >> 4

	desc := Descriptor{
		Valid:               true,
		KindField:           kindField,
		Status:              status,
		Timestamp:           le64(d[4:12]),
		CheckpointOrSegment: d[1],
		LBAOfFailure:        SentinelLBA,
	}

	if validBits&nvmeBitNamespaceIDValid != 0 {
		nsid := le32(d[12:16])
		desc.NamespaceID = &nsid
	}

	if validBits&nvmeBitFailingLBAValid != 0 {
		desc.LBAOfFailure = le64(d[16:24])
	}

	spec := NvmeSpecific{VendorSpecific: uint16(d[26]) | uint16(d[27])<<8}
	if validBits&nvmeBitStatusCodeTypeValid != 0 {
		sct := d[24]
		spec.StatusCodeType = &sct
	}
	if validBits&nvmeBitStatusCodeValid != 0 {
		sc := d[25]
		spec.StatusCode = &sc
	}
	desc.Transport = spec

	return desc
}
