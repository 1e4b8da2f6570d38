//go:build cuda

package classifier

import "gocv.io/x/gocv/cuda"

func cudaDeviceCount() int {
	return cuda.GetCudaEnabledDeviceCount()
}
