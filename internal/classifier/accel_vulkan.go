//go:build vulkan

package classifier

func init() {
	builtWith[DeviceVulkan] = true
}
