//go:build linux

package main

import (
	"fmt"
	"unsafe"

	"github.com/spf13/cobra"
	"golang.org/x/sys/unix"
)

// Build information (set via ldflags).
var (
	version = "dev"
	commit  = "unknown"
)

const (
	_LINUX_CAPABILITY_VERSION_3 = 0x20080522

	CAP_SYS_RAWIO = 1 << 17
	CAP_SYS_ADMIN = 1 << 21
)

type capHeader struct {
	version uint32
	pid     int
}

type capData struct {
	effective   uint32
	permitted   uint32
	inheritable uint32
}

type capsV3 struct {
	hdr  capHeader
	data [2]capData
}

// checkCaps invokes the capget syscall to check for the capabilities
// device I/O needs. It depends on the binary having them set (via
// `setcap`) or being run as root, same as the teacher's smartctl.
func checkCaps() {
	caps := new(capsV3)
	caps.hdr.version = _LINUX_CAPABILITY_VERSION_3

	_, _, errno := unix.RawSyscall(unix.SYS_CAPGET, uintptr(unsafe.Pointer(&caps.hdr)), uintptr(unsafe.Pointer(&caps.data)), 0)
	if errno != 0 {
		fmt.Println("capget() failed:", errno.Error())
		return
	}

	if (caps.data[0].effective&CAP_SYS_RAWIO == 0) && (caps.data[0].effective&CAP_SYS_ADMIN == 0) {
		fmt.Println("Neither cap_sys_rawio nor cap_sys_admin are in effect. Device access will probably fail.")
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	rootCmd := &cobra.Command{
		Use:     "dstctl",
		Short:   "Orchestrate ATA/SCSI/NVMe device self-tests and bad-sector repair",
		Version: version + " (" + commit + ")",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			checkCaps()
		},
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "/etc/dstctl.yaml", "path to the dstctl YAML config file")

	rootCmd.AddCommand(newScanCmd())
	rootCmd.AddCommand(newRunCmd(&configPath))
	rootCmd.AddCommand(newLogCmd())
	rootCmd.AddCommand(newCleanCmd(&configPath))

	return rootCmd
}
