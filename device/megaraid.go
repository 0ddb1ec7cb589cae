// Copyright 2017 Daniel Swarbrick. All rights reserved.
// Use of this source code is governed by a GPL license that can be found in the LICENSE file.

// Avago/Broadcom MegaRAID ioctl passthrough for drives that sit behind a
// MegaRAID HBA, where ordinary read/write never reaches the physical
// disk's own reallocation logic. No other package calls into it; the
// sector-repair engine's force-passthrough branch uses the ATA
// pass-through path of device.Handle instead.

package device

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"syscall"
)

// megasasIoctl manages the /dev/megaraid_sas_ioctl_node character
// device used to issue passthrough commands to a physical drive behind
// a MegaRAID controller.
type megasasIoctl struct {
	deviceMajor int
	fd          int
}

// makeDev returns the device ID for the specified major and minor
// numbers, equivalent to makedev(3). Based on the gnu_dev_makedev
// macro; platform dependent.
func makeDev(major, minor uint) uint {
	return (minor & 0xff) | ((major & 0xfff) << 8) |
		((minor &^ 0xff) << 12) | ((major &^ 0xfff) << 32)
}

// openMegasasIoctl determines the device ID for the MegaRAID SAS ioctl
// device, creates its node if necessary, and opens it.
func openMegasasIoctl() (*megasasIoctl, error) {
	m := &megasasIoctl{}

	file, err := os.Open("/proc/devices")
	if err != nil {
		return nil, err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		if strings.HasSuffix(scanner.Text(), "megaraid_sas_ioctl") {
			if _, err := fmt.Sscanf(scanner.Text(), "%d", &m.deviceMajor); err == nil {
				break
			}
		}
	}
	if m.deviceMajor == 0 {
		return nil, fmt.Errorf("device: could not determine megaraid_sas_ioctl major number")
	}

	syscall.Mknod("/dev/megaraid_sas_ioctl_node", syscall.S_IFCHR, int(makeDev(uint(m.deviceMajor), 0)))

	m.fd, err = syscall.Open("/dev/megaraid_sas_ioctl_node", syscall.O_RDWR, 0600)
	if err != nil {
		return nil, err
	}
	return m, nil
}

func (m *megasasIoctl) Close() error {
	return syscall.Close(m.fd)
}

// BridgedDevice is a drive reached through a MegaRAID HBA rather than
// directly. Its only command path is PassthroughCDB, which targets the
// controller's passthrough command rather than a plain SG_IO
// transaction; it has no ReadLBA/WriteLBA/VerifyLBA methods.
type BridgedDevice struct {
	ioctlDev  *megasasIoctl
	targetID  int
	enclosure int
}

// OpenBridged opens the MegaRAID ioctl device and binds it to one
// physical drive identified by (enclosure, targetID), as reported by
// the controller's PD list.
func OpenBridged(enclosure, targetID int) (*BridgedDevice, error) {
	m, err := openMegasasIoctl()
	if err != nil {
		return nil, err
	}
	return &BridgedDevice{ioctlDev: m, targetID: targetID, enclosure: enclosure}, nil
}

func (b *BridgedDevice) Close() error {
	return b.ioctlDev.Close()
}

// PassthroughCDB issues a raw SCSI CDB to the physical drive behind the
// bridge. The real MegaRAID firmware interface (MFI_CMD_PD_SCSI_IO)
// requires a DMA-mapped frame the passthrough ioctl fills in; that frame
// construction is HBA-generation specific and is intentionally left
// unimplemented here — every call returns a plain (not dsterr-classified)
// error rather than corrupting an MFI command frame by guessing its layout.
func (b *BridgedDevice) PassthroughCDB(cdb []byte, dataIn, dataOut []byte) error {
	return fmt.Errorf("device: MegaRAID passthrough frame construction not implemented for enclosure %d target %d", b.enclosure, b.targetID)
}
