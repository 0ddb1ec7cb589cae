//go:build linux

package device

import (
	"syscall"

	"github.com/dswarbrick/dstclean/dsterr"
	"github.com/dswarbrick/dstclean/scsi"
)

// classify wraps a raw syscall/SG_IO error with the dsterr.Kind taxonomy
// so callers two or three layers up (repair.Engine, dst.Poll) can branch
// on *why* a command failed without knowing anything about ioctls or
// sense buffers, spec.md §7.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}

	var errno syscall.Errno
	if e, ok := err.(syscall.Errno); ok {
		errno = e
	}
	switch errno {
	case syscall.EACCES, syscall.EPERM:
		return dsterr.New(op, dsterr.AccessDenied, err)
	case syscall.ENOMEM:
		return dsterr.New(op, dsterr.MemoryFailure, err)
	}

	if sgErr, ok := err.(*SgioError); ok {
		switch sgErr.SenseBuffer[2] & 0x0f {
		case scsi.SENSE_KEY_ILLEGAL_REQUEST:
			return dsterr.New(op, dsterr.AccessDenied, err)
		case scsi.SENSE_KEY_NOT_READY:
			return dsterr.New(op, dsterr.TransportFailure, err)
		}
		return dsterr.New(op, dsterr.TransportFailure, err)
	}

	return dsterr.New(op, dsterr.TransportFailure, err)
}
