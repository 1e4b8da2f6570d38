//go:build openvino

package classifier

func init() {
	builtWith[DeviceOpenVINO] = true
}
