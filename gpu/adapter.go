// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gpu

import (
	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
)

// RankDeviceType orders physical devices by preference:
// discrete > integrated > virtual > cpu > other.
func RankDeviceType(t gputypes.DeviceType) int {
	switch t {
	case gputypes.DeviceTypeDiscreteGPU:
		return 4
	case gputypes.DeviceTypeIntegratedGPU:
		return 3
	case gputypes.DeviceTypeVirtualGPU:
		return 2
	case gputypes.DeviceTypeCPU:
		return 1
	default:
		return 0
	}
}

// AdapterType maps a WebGPU device type to the gpucontext classification.
func AdapterType(t gputypes.DeviceType) gpucontext.AdapterType {
	switch t {
	case gputypes.DeviceTypeDiscreteGPU:
		return gpucontext.AdapterTypeDiscrete
	case gputypes.DeviceTypeIntegratedGPU:
		return gpucontext.AdapterTypeIntegrated
	case gputypes.DeviceTypeCPU:
		return gpucontext.AdapterTypeSoftware
	default:
		return gpucontext.AdapterTypeUnknown
	}
}
