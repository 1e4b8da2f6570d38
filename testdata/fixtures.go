// Package testdata builds synthetic images for tests and locates fixture
// files: the committed linear7.onnx network and optional real face photos.
package testdata

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"gocv.io/x/gocv"
)

// ErrFixtureMissing is returned when an optional fixture file is not present.
var ErrFixtureMissing = errors.New("fixture not found")

// Dir returns the absolute path of the testdata directory.
func Dir() string {
	_, file, _, ok := runtime.Caller(0)
	if !ok {
		return "testdata"
	}
	return filepath.Dir(file)
}

// Solid returns a BGR image filled with a single color.
func Solid(rows, cols int, b, g, r float64) gocv.Mat {
	return gocv.NewMatWithSizeFromScalar(gocv.NewScalar(b, g, r, 0), rows, cols, gocv.MatTypeCV8UC3)
}

// Gradient returns a BGR image whose intensity grows left to right.
func Gradient(rows, cols int) gocv.Mat {
	img := gocv.NewMatWithSize(rows, cols, gocv.MatTypeCV8UC3)
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			v := uint8(x * 255 / max(cols-1, 1))
			img.SetUCharAt3(y, x, 0, v)
			img.SetUCharAt3(y, x, 1, v)
			img.SetUCharAt3(y, x, 2, v)
		}
	}
	return img
}

// Encode encodes img with the given extension, e.g. ".png" or ".jpg".
func Encode(img gocv.Mat, ext string) ([]byte, error) {
	buf, err := gocv.IMEncode(gocv.FileExt(ext), img)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", ext, err)
	}
	defer buf.Close()
	return bytes.Clone(buf.GetBytes()), nil
}

// PNG returns a solid gray PNG of the given size.
func PNG(rows, cols int) ([]byte, error) {
	img := Solid(rows, cols, 128, 128, 128)
	defer img.Close()
	return Encode(img, ".png")
}

// Path returns the absolute path of a fixture file, or ErrFixtureMissing.
func Path(name string) (string, error) {
	p := filepath.Join(Dir(), name)
	if _, err := os.Stat(p); err != nil {
		return "", fmt.Errorf("%w: %s", ErrFixtureMissing, name)
	}
	return p, nil
}

// LoadImage decodes an image fixture from testdata/images.
func LoadImage(name string) (gocv.Mat, error) {
	p, err := Path(filepath.Join("images", name))
	if err != nil {
		return gocv.Mat{}, err
	}
	img := gocv.IMRead(p, gocv.IMReadColor)
	if img.Empty() {
		img.Close()
		return gocv.Mat{}, fmt.Errorf("decode image %s", name)
	}
	return img, nil
}

// LinearModelPath returns the committed linear7.onnx network. Its output for a
// face is LinearWeight·channel means + LinearBias, see models/gen_linear7.go.
func LinearModelPath() (string, error) {
	return Path(filepath.Join("models", "linear7.onnx"))
}

// LinearWeight is the Gemm weight of linear7.onnx for output j and channel c.
func LinearWeight(j, c int) float32 { return float32(j-3)*0.5 + float32(c)*0.25 }

// LinearBias is the Gemm bias of linear7.onnx for output j.
func LinearBias(j int) float32 { return float32(0.1 * float64(j)) }
