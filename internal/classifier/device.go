package classifier

import (
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"

	"github.com/ayusman/bhava/internal/logging"
)

// Device is a compute backend for the emotion network.
type Device string

// Known devices. DeviceAuto is a preference, not a device a model runs on.
const (
	DeviceAuto     Device = "auto"
	DeviceCPU      Device = "cpu"
	DeviceCUDA     Device = "cuda"
	DeviceCUDAFP16 Device = "cuda-fp16"
	DeviceOpenVINO Device = "openvino"
	DeviceVulkan   Device = "vulkan"
)

// ErrUnknownDevice is returned for device names that are not recognized.
var ErrUnknownDevice = errors.New("unknown device")

// autoOrder is tried in order when the preference is DeviceAuto.
var autoOrder = []Device{DeviceCUDA, DeviceOpenVINO, DeviceCPU}

// ParseDevice validates a device name. The empty string means DeviceAuto.
func ParseDevice(name string) (Device, error) {
	d := Device(strings.ToLower(strings.TrimSpace(name)))
	switch d {
	case "":
		return DeviceAuto, nil
	case DeviceAuto, DeviceCPU, DeviceCUDA, DeviceCUDAFP16, DeviceOpenVINO, DeviceVulkan:
		return d, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownDevice, name)
}

// backend returns the OpenCV dnn backend and target for d.
func (d Device) backend() (gocv.NetBackendType, gocv.NetTargetType) {
	switch d {
	case DeviceCUDA:
		return gocv.NetBackendCUDA, gocv.NetTargetCUDA
	case DeviceCUDAFP16:
		return gocv.NetBackendCUDA, gocv.NetTargetCUDAFP16
	case DeviceOpenVINO:
		return gocv.NetBackendOpenVINO, gocv.NetTargetCPU
	case DeviceVulkan:
		return gocv.NetBackendVKCOM, gocv.NetTargetVulkan
	default:
		return gocv.NetBackendOpenCV, gocv.NetTargetCPU
	}
}

// Candidates returns the devices to try, in order, for a preference.
// An explicit accelerator falls back to the CPU.
func Candidates(pref Device) []Device {
	switch pref {
	case DeviceAuto, "":
		return append([]Device(nil), autoOrder...)
	case DeviceCPU:
		return []Device{DeviceCPU}
	default:
		return []Device{pref, DeviceCPU}
	}
}

// ResolveDevice picks the first candidate device for pref that is available
// and whose probe succeeds. OpenCV silently runs on the CPU when a backend is
// missing, so a passing probe alone does not prove the device exists; devices
// rejected by available are never probed. A nil available means Available.
// It is meant to run once at startup.
func ResolveDevice(pref string, available func(Device) bool, probe func(Device) error, log logrus.FieldLogger) (Device, error) {
	want, err := ParseDevice(pref)
	if err != nil {
		return "", err
	}
	if available == nil {
		available = Available
	}

	var errs []error
	for _, d := range Candidates(want) {
		entry := log.WithField(logging.DeviceKey, d)
		if !available(d) {
			entry.Debug("Inference device not present, skipping")
			errs = append(errs, fmt.Errorf("%s: %w", d, ErrDeviceUnavailable))
			continue
		}
		err := probe(d)
		if err == nil {
			entry.Info("Selected inference device")
			return d, nil
		}
		entry.WithError(err).Warn("Inference device failed, falling back")
		errs = append(errs, fmt.Errorf("%s: %w", d, err))
	}
	return "", fmt.Errorf("no usable inference device: %w", errors.Join(errs...))
}
