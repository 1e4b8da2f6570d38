package classifier

import "errors"

// ErrDeviceUnavailable is returned for devices this build or host cannot use.
var ErrDeviceUnavailable = errors.New("device not available")

// builtWith records optional OpenCV backends enabled with build tags
// (-tags openvino, -tags vulkan).
var builtWith = map[Device]bool{}

// Available reports whether d can run here. CUDA needs the cuda build tag and
// at least one CUDA device; OpenVINO and Vulkan need their build tags.
func Available(d Device) bool {
	switch d {
	case DeviceCPU:
		return true
	case DeviceCUDA, DeviceCUDAFP16:
		return cudaDeviceCount() > 0
	case DeviceOpenVINO, DeviceVulkan:
		return builtWith[d]
	default:
		return false
	}
}
