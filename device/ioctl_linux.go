// Copyright 2017-18 Daniel Swarbrick. All rights reserved.
// Use of this source code is governed by a GPL license that can be found in the LICENSE file.

//go:build linux

// Package device implements the Linux-specific transport layer that the
// dst, dstlog, repair and clean packages consume through small
// per-package interfaces. It owns everything spec.md calls "out of
// scope": ATA pass-through, SCSI CDB issuance, NVMe admin/IO submission,
// the device handle, and the identify-data snapshot.
package device

import "golang.org/x/sys/unix"

// ioctl executes an ioctl command on the specified file descriptor.
func ioctl(fd, cmd, ptr uintptr) error {
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, fd, cmd, ptr)
	if errno != 0 {
		return errno
	}
	return nil
}

// Linux <uapi/asm-generic/ioctl.h> macros, just enough to build the NVMe
// admin-passthrough ioctl number.
const (
	iocNRBits   = 8
	iocTypeBits = 8
	iocSizeBits = 14

	iocNRShift   = 0
	iocTypeShift = iocNRShift + iocNRBits
	iocSizeShift = iocTypeShift + iocTypeBits
	iocDirShift  = iocSizeShift + iocSizeBits

	iocWrite = 1
	iocRead  = 2
)

func ioc(dir, typ, nr, size uintptr) uintptr {
	return (dir << iocDirShift) | (typ << iocTypeShift) | (nr << iocNRShift) | (size << iocSizeShift)
}

func iowr(typ, nr byte, size uintptr) uintptr {
	return ioc(iocRead|iocWrite, uintptr(typ), uintptr(nr), size)
}
