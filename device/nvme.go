//go:build linux

package device

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"unsafe"

	"github.com/dswarbrick/dstclean/dst"
	"github.com/dswarbrick/dstclean/dstlog"
	"github.com/dswarbrick/dstclean/internal/byteutil"
	"github.com/dswarbrick/dstclean/nvme"
)

// nvmePassthruCommand mirrors struct nvme_passthru_cmd from
// <linux/nvme_ioctl.h>.
type nvmePassthruCommand struct {
	opcode      uint8
	flags       uint8
	rsvd1       uint16
	nsid        uint32
	cdw2        uint32
	cdw3        uint32
	metadata    uint64
	addr        uint64
	metadataLen uint32
	dataLen     uint32
	cdw10       uint32
	cdw11       uint32
	cdw12       uint32
	cdw13       uint32
	cdw14       uint32
	cdw15       uint32
	timeoutMs   uint32
	result      uint32
}

var nvmeAdminCmdIoctl = iowr('N', 0x41, unsafe.Sizeof(nvmePassthruCommand{}))

func (h *Handle) nvmeAdminCmd(cmd *nvmePassthruCommand) error {
	return ioctl(uintptr(h.fd), nvmeAdminCmdIoctl, uintptr(unsafe.Pointer(cmd)))
}

// nvmeIdentController is the subset of the 4096-byte IDENTIFY
// CONTROLLER response this module needs.
type nvmeIdentController struct {
	VendorID     uint16
	Ssvid        uint16
	SerialNumber [20]byte
	ModelNumber  [40]byte
	Firmware     [8]byte
	_            [316 - 72]byte
	EDSTT        uint16 // Extended Device Self-test Time, minutes
	_            [4096 - 318]byte
}

// nvmeTransport adapts a Handle to dst.Transport for NVMe devices,
// driving the self-test via the Device Self-test admin command,
// spec.md §4.1/§6.
type nvmeTransport Handle

func (t *nvmeTransport) h() *Handle { return (*Handle)(t) }

func (t *nvmeTransport) SupportsKind(kind dst.Kind) bool {
	return kind == dst.Short || kind == dst.Long
}

func (t *nvmeTransport) stcFor(kind dst.Kind) (uint32, error) {
	switch kind {
	case dst.Short:
		return nvme.NVME_DST_STC_SHORT, nil
	case dst.Long:
		return nvme.NVME_DST_STC_LONG, nil
	default:
		return 0, fmt.Errorf("device: NVMe does not support %s self-test", kind)
	}
}

// Start issues the Device Self-test admin command. NVMe has no captive
// mode (spec.md §9 note (a)); mode is accepted for interface symmetry
// but otherwise ignored here — the simulated captive wait lives in
// dst.Poll's initial delay, not in this Start call.
func (t *nvmeTransport) Start(kind dst.Kind, mode dst.Mode) error {
	stc, err := t.stcFor(kind)
	if err != nil {
		return err
	}
	cmd := nvmePassthruCommand{
		opcode: nvme.NVME_ADMIN_DEVICE_SELF_TEST,
		nsid:   nvme.NVME_NSID_ALL,
		cdw10:  stc,
	}
	return classify("start_dst", t.h().nvmeAdminCmd(&cmd))
}

func (t *nvmeTransport) Abort() error {
	cmd := nvmePassthruCommand{
		opcode: nvme.NVME_ADMIN_DEVICE_SELF_TEST,
		nsid:   nvme.NVME_NSID_ALL,
		cdw10:  nvme.NVME_DST_STC_ABORT,
	}
	return classify("abort_dst", t.h().nvmeAdminCmd(&cmd))
}

func (t *nvmeTransport) ReadProgress() (dst.Progress, error) {
	buf := make([]byte, nvme.NVME_LOG_DEVICE_SELF_TEST_LEN)
	if err := t.readLogPage(nvme.NVME_LOG_DEVICE_SELF_TEST, buf); err != nil {
		return dst.Progress{}, classify("get_dst_progress", err)
	}

	currentOp := buf[0]
	if currentOp == 0 {
		// No test running: report the newest log entry's status nibble,
		// with the "entry not used" value 0xF rewritten to 0x0.
		status := dst.Status(buf[4] & 0x0f)
		if status == dst.StatusInProgress {
			status = dst.StatusCompleted
		}
		return dst.Progress{Status: status, PercentComplete: 100}, nil
	}
	return dst.Progress{Status: dst.StatusInProgress, PercentComplete: uint32(buf[1])}, nil
}

func (t *nvmeTransport) EstimatedSeconds(kind dst.Kind) uint32 {
	if kind == dst.Long {
		if t.h().view.LongDSTMinutes > 0 {
			return uint32(t.h().view.LongDSTMinutes) * 60
		}
		return dst.FallbackLongDSTSeconds
	}
	return dst.FallbackShortDSTSeconds
}

func (t *nvmeTransport) readLogPage(logID uint8, buf []byte) error {
	if len(buf) < 4 || len(buf)%4 != 0 {
		return fmt.Errorf("device: invalid NVMe log page buffer size %d", len(buf))
	}
	cmd := nvmePassthruCommand{
		opcode:  nvme.NVME_ADMIN_GET_LOG_PAGE,
		nsid:    nvme.NVME_NSID_ALL,
		addr:    uint64(uintptr(unsafe.Pointer(&buf[0]))),
		dataLen: uint32(len(buf)),
		cdw10:   uint32(logID) | (((uint32(len(buf)) / 4) - 1) << 16),
	}
	return t.h().nvmeAdminCmd(&cmd)
}

func (t *nvmeTransport) readLog() (dstlog.Log, error) {
	buf := make([]byte, nvme.NVME_LOG_DEVICE_SELF_TEST_LEN)
	if err := t.readLogPage(nvme.NVME_LOG_DEVICE_SELF_TEST, buf); err != nil {
		return dstlog.Log{}, fmt.Errorf("device: reading NVMe self-test log: %w", err)
	}
	return dstlog.ParseNVMe(buf)
}

func (h *Handle) probeNVMe() (*nvmeIdentController, error) {
	buf := make([]byte, 4096)
	cmd := nvmePassthruCommand{
		opcode:  nvme.NVME_ADMIN_IDENTIFY,
		nsid:    0,
		addr:    uint64(uintptr(unsafe.Pointer(&buf[0]))),
		dataLen: uint32(len(buf)),
		cdw10:   1, // identify controller
	}
	if err := h.nvmeAdminCmd(&cmd); err != nil {
		return nil, err
	}

	var ctrl nvmeIdentController
	if err := binary.Read(bytes.NewReader(buf), byteutil.NativeEndian, &ctrl); err != nil {
		return nil, err
	}
	return &ctrl, nil
}

// identifyNamespaceSize issues IDENTIFY NAMESPACE for nsid 1 and
// returns NSZE (bytes 0-7 of the response), the namespace size in
// logical blocks.
func (h *Handle) identifyNamespaceSize() (uint64, error) {
	buf := make([]byte, 4096)
	cmd := nvmePassthruCommand{
		opcode:  nvme.NVME_ADMIN_IDENTIFY,
		nsid:    1,
		addr:    uint64(uintptr(unsafe.Pointer(&buf[0]))),
		dataLen: uint32(len(buf)),
		cdw10:   0, // identify namespace
	}
	if err := h.nvmeAdminCmd(&cmd); err != nil {
		return 0, err
	}
	return byteutil.NativeEndian.Uint64(buf[0:8]), nil
}

func (h *Handle) applyNVMeIdentify(id *nvmeIdentController) {
	h.view.Model = trimNulls(id.ModelNumber[:])
	h.view.Serial = trimNulls(id.SerialNumber[:])
	h.view.Firmware = trimNulls(id.Firmware[:])
	h.view.LogicalBlockSize = 512
	h.view.PhysicalBlockSize = 512
	h.view.AutomaticReallocation = true // NVMe always reallocates bad LBAs transparently
	h.view.LongDSTMinutes = id.EDSTT

	if nsze, err := h.identifyNamespaceSize(); err == nil {
		h.view.TotalLBACount = nsze
	}
}

func trimNulls(b []byte) string {
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}
