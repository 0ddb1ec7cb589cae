// Copyright 2017 Daniel Swarbrick. All rights reserved.
// Use of this source code is governed by a GPL license that can be found in the LICENSE file.

package device

import (
	"path/filepath"
	"sort"
	"strings"
)

// ScanDevices enumerates candidate block devices for DST orchestration:
// SCSI/SATA disks exposed as /dev/sd*, and NVMe namespaces exposed as
// /dev/nvme*n*. It intentionally excludes partitions.
func ScanDevices() ([]string, error) {
	var found []string

	sdGlobs, err := filepath.Glob("/dev/sd*[^0-9]")
	if err != nil {
		return nil, err
	}
	found = append(found, sdGlobs...)

	nvmeGlobs, err := filepath.Glob("/dev/nvme[0-9]*n[0-9]*")
	if err != nil {
		return nil, err
	}
	for _, p := range nvmeGlobs {
		// nvme0n1p1 and the like are partitions.
		if !strings.Contains(strings.TrimPrefix(p, "/dev/nvme"), "p") {
			found = append(found, p)
		}
	}

	sort.Strings(found)
	return found, nil
}
