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

package nvme

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewNVMeDeviceSetsName(t *testing.T) {
	d := NewNVMeDevice("/dev/nvme0n1")
	assert.Equal(t, "/dev/nvme0n1", d.Name)
}

func TestAdminCommandConstants(t *testing.T) {
	assert.EqualValues(t, 0x02, NVME_ADMIN_GET_LOG_PAGE)
	assert.EqualValues(t, 0x06, NVME_ADMIN_IDENTIFY)
	assert.EqualValues(t, 0x14, NVME_ADMIN_DEVICE_SELF_TEST)
}
