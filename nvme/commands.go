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

// NVMe admin command and log-page constants needed for device self-test,
// spec.md §6.

package nvme

const (
	NVME_ADMIN_GET_LOG_PAGE = 0x02
	NVME_ADMIN_IDENTIFY     = 0x06
	NVME_ADMIN_DEVICE_SELF_TEST = 0x14

	// Device self-test command STC (CDW10 bits 3:0) field values.
	NVME_DST_STC_SHORT = 0x1
	NVME_DST_STC_LONG  = 0x2
	NVME_DST_STC_ABORT = 0xf

	// Device self-test log, spec.md §6: LID 0x06, 564 bytes.
	NVME_LOG_DEVICE_SELF_TEST     = 0x06
	NVME_LOG_DEVICE_SELF_TEST_LEN = 564

	// "All namespaces" value used by abort_dst per spec.md §4.1.
	NVME_NSID_ALL = 0xffffffff
)
