// Copyright 2017-18 Daniel Swarbrick. All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Thin wrapper around github.com/dswarbrick/go-nvme/nvme's identify
// decode. No other package in this module calls it: cmd/dstctl's scan
// output and device's NVMe identify decode do not go through it. The
// self-test admin command is issued directly by package device, since
// go-nvme has no notion of Device Self-test.

package nvme

import (
	"io"

	"github.com/dswarbrick/go-nvme/nvme"
)

type NVMeDevice struct {
	Name  string
	_nvme nvme.NVMeDevice
}

func NewNVMeDevice(name string) *NVMeDevice {
	return &NVMeDevice{name, *nvme.NewNVMeDevice(name)}
}

func (d *NVMeDevice) Open() (err error) {
	return d._nvme.Open()
}

func (d *NVMeDevice) Close() error {
	return d._nvme.Close()
}

// PrintIdentity writes the controller and namespace 1 identify
// summaries to w.
func (d *NVMeDevice) PrintIdentity(w io.Writer) error {
	if _, err := d._nvme.IdentifyController(w); err != nil {
		return err
	}
	return d._nvme.IdentifyNamespace(w, 1)
}
