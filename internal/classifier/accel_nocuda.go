//go:build !cuda

package classifier

func cudaDeviceCount() int {
	return 0
}
