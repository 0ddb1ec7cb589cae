//go:build linux

package device

import (
	"fmt"
	"sort"

	"github.com/dswarbrick/dstclean/dst"
	"github.com/dswarbrick/dstclean/dstlog"
	"github.com/dswarbrick/dstclean/scsi"
)

// scsiTransport adapts a Handle to dst.Transport for native SCSI
// devices, driving the self-test via SEND DIAGNOSTIC, spec.md §4.1/§6.
type scsiTransport Handle

func (t *scsiTransport) h() *Handle { return (*Handle)(t) }

func (t *scsiTransport) SupportsKind(kind dst.Kind) bool {
	return kind == dst.Short || kind == dst.Long
}

func selfTestCodeFor(kind dst.Kind, mode dst.Mode) (byte, error) {
	switch {
	case kind == dst.Short && mode == dst.Offline:
		return scsi.SELF_TEST_CODE_SHORT_BACKGROUND, nil
	case kind == dst.Short && mode == dst.Captive:
		return scsi.SELF_TEST_CODE_SHORT_FOREGROUND, nil
	case kind == dst.Long && mode == dst.Offline:
		return scsi.SELF_TEST_CODE_LONG_BACKGROUND, nil
	case kind == dst.Long && mode == dst.Captive:
		return scsi.SELF_TEST_CODE_LONG_FOREGROUND, nil
	default:
		return 0, fmt.Errorf("device: SCSI does not support %s self-test", kind)
	}
}

func (t *scsiTransport) Start(kind dst.Kind, mode dst.Mode) error {
	code, err := selfTestCodeFor(kind, mode)
	if err != nil {
		return err
	}

	var cdb scsi.CDB6
	cdb[0] = scsi.SCSI_SEND_DIAGNOSTIC
	cdb[1] = (code << 5) | 0x04 // SELF-TEST CODE field, SELFTEST bit

	timeout := dst.OfflineCommandTimeout
	if mode == dst.Captive {
		timeout = dst.CaptiveShortTimeout
	}
	_, err = execSgIO(t.h().fd, cdb[:], nil, nil, timeout)
	return classify("start_dst", err)
}

func (t *scsiTransport) Abort() error {
	var cdb scsi.CDB6
	cdb[0] = scsi.SCSI_SEND_DIAGNOSTIC
	cdb[1] = scsi.SELF_TEST_CODE_ABORT << 5
	_, err := execSgIO(t.h().fd, cdb[:], nil, nil, dst.OfflineCommandTimeout)
	return classify("abort_dst", err)
}

func (t *scsiTransport) ReadProgress() (dst.Progress, error) {
	buf := make([]byte, 20+4)
	var cdb scsi.CDB10
	cdb[0] = scsi.SCSI_LOG_SENSE
	cdb[2] = 0x40 | scsi.LOG_PAGE_SELF_TEST_RESULTS // PC=01b (current cumulative values)
	cdb[7] = byte(len(buf) >> 8)
	cdb[8] = byte(len(buf))

	raw, err := execSgIO(t.h().fd, cdb[:], buf, nil, dst.OfflineCommandTimeout)
	if err != nil {
		return dst.Progress{}, classify("get_dst_progress", err)
	}

	log, err := dstlog.ParseSCSI(raw)
	if err != nil || len(log.Entries) == 0 {
		return dst.Progress{Status: dst.StatusInProgress, PercentComplete: 0}, nil
	}

	latest := log.Entries[0]
	status := dst.Status(latest.Status)
	if status == dst.StatusInProgress {
		return dst.Progress{Status: status, PercentComplete: 0}, nil
	}
	return dst.Progress{Status: status, PercentComplete: 100}, nil
}

func (t *scsiTransport) EstimatedSeconds(kind dst.Kind) uint32 {
	if kind == dst.Long {
		if seconds, ok := t.longDSTTimeSeconds(); ok {
			return seconds
		}
		return dst.FallbackLongDSTSeconds
	}
	return dst.FallbackShortDSTSeconds
}

// longDSTTimeSeconds reads the extended self-test completion time
// field out of the Control mode page (already reported in seconds),
// spec.md §4.4's total_dst_seconds source for Long self-tests. MODE
// SENSE(10) is tried first, falling back to MODE SENSE(6) for drives
// or bridges that don't support the 10-byte form.
func (t *scsiTransport) longDSTTimeSeconds() (uint32, bool) {
	if seconds, ok := t.modeSenseLongDSTTime(true); ok {
		return seconds, true
	}
	return t.modeSenseLongDSTTime(false)
}

func (t *scsiTransport) modeSenseLongDSTTime(use10 bool) (uint32, bool) {
	headerLen := scsi.MODE_PARAMETER_HEADER_6_LEN
	if use10 {
		headerLen = scsi.MODE_PARAMETER_HEADER_10_LEN
	}
	offset := headerLen + scsi.MP_CONTROL_LONG_DST_TIME_OFFSET
	buf := make([]byte, offset+2)

	var raw []byte
	var err error
	if use10 {
		var cdb scsi.CDB10
		cdb[0] = scsi.SCSI_MODE_SENSE_10
		cdb[1] = 0x08 // DBD: no block descriptors
		cdb[2] = scsi.MPAGE_CONTROL_DEFAULT<<6 | scsi.MP_CONTROL
		cdb[7] = byte(len(buf) >> 8)
		cdb[8] = byte(len(buf))
		raw, err = execSgIO(t.h().fd, cdb[:], buf, nil, dst.OfflineCommandTimeout)
	} else {
		var cdb scsi.CDB6
		cdb[0] = scsi.SCSI_MODE_SENSE_6
		cdb[1] = 0x08 // DBD: no block descriptors
		cdb[2] = scsi.MPAGE_CONTROL_DEFAULT<<6 | scsi.MP_CONTROL
		cdb[4] = byte(len(buf))
		raw, err = execSgIO(t.h().fd, cdb[:], buf, nil, dst.OfflineCommandTimeout)
	}
	if err != nil || len(raw) < offset+2 {
		return 0, false
	}

	seconds := uint32(raw[offset])<<8 | uint32(raw[offset+1])
	if seconds == 0 || seconds == 0xffff {
		return 0, false
	}
	return seconds, true
}

func (t *scsiTransport) readLog() (dstlog.Log, error) {
	buf := make([]byte, 4+dstlog.MaxSCSIEntries*20)
	var cdb scsi.CDB10
	cdb[0] = scsi.SCSI_LOG_SENSE
	cdb[2] = 0x40 | scsi.LOG_PAGE_SELF_TEST_RESULTS
	cdb[7] = byte(len(buf) >> 8)
	cdb[8] = byte(len(buf))

	raw, err := execSgIO(t.h().fd, cdb[:], buf, nil, dst.OfflineCommandTimeout)
	if err != nil {
		return dstlog.Log{}, fmt.Errorf("device: reading SCSI self-test log: %w", err)
	}
	return dstlog.ParseSCSI(raw)
}

func (h *Handle) probeSCSI() error {
	buf := make([]byte, scsi.INQ_REPLY_LEN)
	var cdb scsi.CDB6
	cdb[0] = scsi.SCSI_INQUIRY
	cdb[4] = scsi.INQ_REPLY_LEN

	if _, err := execSgIO(h.fd, cdb[:], buf, nil, dst.OfflineCommandTimeout); err != nil {
		return err
	}

	h.view.LogicalBlockSize = 512
	h.view.PhysicalBlockSize = 512
	h.view.AutomaticReallocation = true // ARRE/AWRE default on for most SCSI disks; refined by readCapacity/modeSense if needed

	if n, err := readCapacity16(h.fd); err == nil {
		h.view.TotalLBACount = n
	}
	return nil
}

// readCapacity16 issues READ CAPACITY(16) and returns the number of
// addressable logical blocks, used to bound neighborhood verification
// ranges (spec.md §4.7 step 6's dev_max).
func readCapacity16(fd int) (uint64, error) {
	buf := make([]byte, 32)
	var cdb scsi.CDB16
	cdb[0] = scsi.SCSI_SERVICE_ACTION_IN_16
	cdb[1] = scsi.SCSI_READ_CAPACITY_16_SA
	cdb[13] = byte(len(buf))

	raw, err := execSgIO(fd, cdb[:], buf, nil, dst.OfflineCommandTimeout)
	if err != nil {
		return 0, err
	}
	if len(raw) < 8 {
		return 0, fmt.Errorf("device: short READ CAPACITY(16) response")
	}
	lastLBA := beUint64(raw[:8])
	return lastLBA + 1, nil
}

// ReadLBA, WriteLBA, VerifyLBA and ReassignBlocks below speak native
// SCSI block commands over SG_IO. On Linux this also reaches ATA disks
// transparently: libata's SCSI emulation layer translates READ(16) /
// WRITE(16) / VERIFY(16) / REASSIGN BLOCKS into the equivalent ATA
// commands, so /dev/sdX works for both SCSI and SATA drives without a
// separate ATA-specific code path here. A Handle probed as KindNVMe
// also has these methods, since device.Handle is shared across all
// three transports, and package repair calls them on it in its normal
// read-realloc/write-realloc/reassign order like on any other device;
// SupportsATAPassthrough() is false there, so the force-passthrough and
// access-denied-retry branches never select it. A REASSIGN
// BLOCKS call that somehow reaches an NVMe char device here would
// fail the SG_IO ioctl outright, since NVMe has no REASSIGN BLOCKS
// equivalent and relies on its FTL to reallocate bad LBAs.

// ReadLBA reads n logical blocks starting at lba using READ(16).
func (h *Handle) ReadLBA(lba uint64, n int) ([]byte, error) {
	buf := make([]byte, n*int(h.view.LogicalBlockSize))
	var cdb scsi.CDB16
	cdb[0] = scsi.SCSI_READ_16
	for i := 0; i < 8; i++ {
		cdb[2+i] = byte(lba >> uint(8*(7-i)))
	}
	cdb[10] = byte(n >> 24)
	cdb[11] = byte(n >> 16)
	cdb[12] = byte(n >> 8)
	cdb[13] = byte(n)
	_, err := execSgIO(h.fd, cdb[:], buf, nil, dst.OfflineCommandTimeout)
	return buf, classify("read_lba", err)
}

// WriteLBA writes data (a whole number of logical blocks) starting at lba using WRITE(16).
func (h *Handle) WriteLBA(lba uint64, data []byte) error {
	var cdb scsi.CDB16
	cdb[0] = scsi.SCSI_WRITE_16
	for i := 0; i < 8; i++ {
		cdb[2+i] = byte(lba >> uint(8*(7-i)))
	}
	n := len(data) / int(h.view.LogicalBlockSize)
	cdb[10] = byte(n >> 24)
	cdb[11] = byte(n >> 16)
	cdb[12] = byte(n >> 8)
	cdb[13] = byte(n)
	_, err := execSgIO(h.fd, cdb[:], nil, data, dst.OfflineCommandTimeout)
	return classify("write_lba", err)
}

// VerifyLBA verifies n logical blocks starting at lba using VERIFY(16).
func (h *Handle) VerifyLBA(lba uint64, n int) error {
	var cdb scsi.CDB16
	cdb[0] = scsi.SCSI_VERIFY_16
	cdb[1] = 0x00 // BYTCHK=0, VRPROTECT=0; medium verify only
	for i := 0; i < 8; i++ {
		cdb[2+i] = byte(lba >> uint(8*(7-i)))
	}
	cdb[10] = byte(n >> 24)
	cdb[11] = byte(n >> 16)
	cdb[12] = byte(n >> 8)
	cdb[13] = byte(n)
	_, err := execSgIO(h.fd, cdb[:], nil, nil, dst.OfflineCommandTimeout)
	return classify("verify_lba", err)
}

// FlushCache issues SYNCHRONIZE CACHE(10) for the whole medium.
func (h *Handle) FlushCache() error {
	var cdb scsi.CDB10
	cdb[0] = 0x35 // SYNCHRONIZE CACHE(10)
	_, err := execSgIO(h.fd, cdb[:], nil, nil, dst.OfflineCommandTimeout)
	return classify("flush_cache", err)
}

func (h *Handle) PhysicalBlockSize() uint32   { return h.view.PhysicalBlockSize }
func (h *Handle) AutomaticReallocation() bool { return h.view.AutomaticReallocation }

// ReassignBlocks issues SCSI REASSIGN BLOCKS for the given defect list,
// feeding the 5-round sense-driven list adjustment spec.md §4.6
// describes: when the sense data's command-specific-information field
// names the first LBA the drive refused, every LBA before it is
// removed and the rest (refused LBA included) is resubmitted; an
// additional bad LBA the drive reports (the information field) is
// inserted in sorted order and the whole list is resubmitted.
func (h *Handle) ReassignBlocks(lbas []uint64) error {
	const maxRounds = 5
	list := append([]uint64(nil), lbas...)
	sort.Slice(list, func(i, j int) bool { return list[i] < list[j] })

	for round := 0; round < maxRounds; round++ {
		payload := make([]byte, 4+8*len(list))
		payload[3] = byte(8 * len(list))
		for i, lba := range list {
			off := 4 + i*8
			for b := 0; b < 8; b++ {
				payload[off+b] = byte(lba >> uint(8*(7-b)))
			}
		}

		var cdb scsi.CDB6
		cdb[0] = scsi.SCSI_REASSIGN_BLOCKS

		_, err := execSgIO(h.fd, cdb[:], nil, payload, dst.OfflineCommandTimeout)
		if err == nil {
			return nil
		}

		sgErr, ok := err.(*SgioError)
		if !ok {
			return err
		}

		refused, additional, adjustErr := adjustReassignList(sgErr.SenseBuffer[:])
		if adjustErr != nil {
			return fmt.Errorf("device: REASSIGN BLOCKS failed and sense data could not be interpreted: %w", err)
		}
		list = adjustList(list, refused, additional)
	}

	return fmt.Errorf("device: REASSIGN BLOCKS did not succeed after %d rounds", maxRounds)
}

// adjustReassignList extracts the refused LBA (command-specific
// information) and any additional bad LBA (information field) the
// drive reported in descriptor-format sense data.
func adjustReassignList(sense []byte) (refused *uint64, additional *uint64, err error) {
	if len(sense) < 8 || sense[0]&0x7f != 0x72 && sense[0]&0x7f != 0x73 {
		return nil, nil, fmt.Errorf("device: unsupported sense data format %#02x", sense[0])
	}

	for i := 8; i+1 < len(sense); {
		descType := sense[i]
		descLen := int(sense[i+1])
		body := sense[i+2:]
		if len(body) < descLen {
			break
		}

		switch descType {
		case 0x02: // Information
			if descLen >= 8 {
				v := beUint64(body[:8])
				additional = &v
			}
		case 0x03: // Command-specific information
			if descLen >= 8 {
				v := beUint64(body[:8])
				refused = &v
			}
		}
		i += 2 + descLen
	}

	return refused, additional, nil
}

func beUint64(b []byte) uint64 {
	var v uint64
	for _, c := range b[:8] {
		v = v<<8 | uint64(c)
	}
	return v
}

// adjustList drops every LBA the drive has already accepted — everything
// preceding the refused one in sorted order, spec.md §4.6 step 5 — and
// inserts any additional bad LBA the drive reported, in sorted position.
func adjustList(list []uint64, refused, additional *uint64) []uint64 {
	out := make([]uint64, 0, len(list)+1)
	for _, v := range list {
		if refused != nil && v < *refused {
			continue
		}
		out = append(out, v)
	}
	if additional != nil {
		inserted := false
		for i, v := range out {
			if v == *additional {
				inserted = true
				break
			}
			if v > *additional {
				out = append(out[:i], append([]uint64{*additional}, out[i:]...)...)
				inserted = true
				break
			}
		}
		if !inserted {
			out = append(out, *additional)
		}
	}
	return out
}
