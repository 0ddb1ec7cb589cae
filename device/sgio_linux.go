// Copyright 2017-18 Daniel Swarbrick. All rights reserved.
// Use of this source code is governed by a GPL license that can be found in the LICENSE file.

//go:build linux

// SCSI generic IO, used both for native SCSI commands and for ATA
// pass-through via SAT (SCSI/ATA Translation).

package device

import (
	"fmt"
	"time"
	"unsafe"
)

const (
	sgDxferNone       = -1
	sgDxferToDev      = -2
	sgDxferFromDev    = -3
	sgDxferToFromDev  = -4
	sgIO              = 0x2285
	sgInfoOKMask      = 0x1
	sgInfoOK          = 0x0
	defaultSgTimeout  = 20 * time.Second
	senseBufferLength = 32
)

// sgIOHdr mirrors struct sg_io_hdr from <scsi/sg.h>.
type sgIOHdr struct {
	interfaceID   int32
	dxferDir      int32
	cmdLen        uint8
	mxSbLen       uint8
	iovecCount    uint16
	dxferLen      uint32
	dxferp        uintptr
	cmdp          uintptr
	sbp           uintptr
	timeout       uint32
	flags         uint32
	packID        int32
	usrPtr        uintptr
	status        uint8
	maskedStatus  uint8
	msgStatus     uint8
	sbLenWr       uint8
	hostStatus    uint16
	driverStatus  uint16
	resid         int32
	duration      uint32
	info          uint32
}

// SgioError reports a failed SG_IO transaction, including the sense
// buffer for callers (principally the repair engine's reassign-blocks
// list adjustment) that need to inspect sense key / ASC / ASCQ /
// information / command-specific-information fields.
type SgioError struct {
	ScsiStatus   uint8
	HostStatus   uint16
	DriverStatus uint16
	SenseBuffer  [senseBufferLength]byte
}

func (e *SgioError) Error() string {
	return fmt.Sprintf("SCSI status: %#02x, host status: %#02x, driver status: %#02x",
		e.ScsiStatus, e.HostStatus, e.DriverStatus)
}

// execSgIO issues cdb via SG_IO against fd, transferring data in the
// direction implied by dataIn (read from device) / dataOut (write to
// device). Exactly one of dataIn / dataOut may be non-nil; both nil means
// no data transfer.
func execSgIO(fd int, cdb []byte, dataIn, dataOut []byte, timeout time.Duration) ([]byte, error) {
	var sense [senseBufferLength]byte

	hdr := sgIOHdr{
		interfaceID: 'S',
		cmdLen:      uint8(len(cdb)),
		mxSbLen:     senseBufferLength,
		cmdp:        uintptr(unsafe.Pointer(&cdb[0])),
		sbp:         uintptr(unsafe.Pointer(&sense[0])),
		timeout:     uint32(timeout.Milliseconds()),
	}

	switch {
	case dataIn != nil:
		hdr.dxferDir = sgDxferFromDev
		hdr.dxferLen = uint32(len(dataIn))
		hdr.dxferp = uintptr(unsafe.Pointer(&dataIn[0]))
	case dataOut != nil:
		hdr.dxferDir = sgDxferToDev
		hdr.dxferLen = uint32(len(dataOut))
		hdr.dxferp = uintptr(unsafe.Pointer(&dataOut[0]))
	default:
		hdr.dxferDir = sgDxferNone
	}

	if err := ioctl(uintptr(fd), sgIO, uintptr(unsafe.Pointer(&hdr))); err != nil {
		return nil, err
	}

	if hdr.info&sgInfoOKMask != sgInfoOK {
		return nil, &SgioError{
			ScsiStatus:   hdr.status,
			HostStatus:   hdr.hostStatus,
			DriverStatus: hdr.driverStatus,
			SenseBuffer:  sense,
		}
	}

	return dataIn, nil
}
