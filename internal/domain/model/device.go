package model

import (
	"fmt"
	"os"
	"strings"
)

var acceleratorNodes = []string{"/dev/nvidiactl", "/dev/nvidia0"}

// DetectAccelerator reports whether an NVIDIA device is usable by this
// process. CUDA_VISIBLE_DEVICES set to "" or "-1" hides all devices.
func DetectAccelerator() bool {
	if v, ok := os.LookupEnv("CUDA_VISIBLE_DEVICES"); ok {
		v = strings.TrimSpace(v)
		if v == "" || v == "-1" {
			return false
		}
	}
	for _, node := range acceleratorNodes {
		if _, err := os.Stat(node); err == nil {
			return true
		}
	}
	return false
}

// SelectPlacement resolves the configured device preference. "auto" picks
// the accelerator when present; half precision goes with the accelerator.
func SelectPlacement(preference string, accelerator func() bool) (Placement, error) {
	var device Device
	switch strings.ToLower(strings.TrimSpace(preference)) {
	case "", "auto":
		device = DeviceCPU
		if accelerator != nil && accelerator() {
			device = DeviceCUDA
		}
	case string(DeviceCPU):
		device = DeviceCPU
	case string(DeviceCUDA):
		device = DeviceCUDA
	default:
		return Placement{}, fmt.Errorf("unknown device %q", preference)
	}
	if device == DeviceCUDA {
		return Placement{Device: device, Precision: PrecisionFP16}, nil
	}
	return Placement{Device: device, Precision: PrecisionFP32}, nil
}
