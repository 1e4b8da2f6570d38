package emotion

import (
	"encoding/binary"
	"math"
)

// Face tensor geometry. Every tensor handed to a classifier has shape
// (Batch, Channels, Height, Width) in NCHW order.
const (
	Batch    = 1
	Channels = 3
	Height   = 64
	Width    = 64

	// PlaneSize is the number of values in one channel plane.
	PlaneSize = Height * Width
	// TensorSize is the number of values in one face tensor.
	TensorSize = Channels * PlaneSize
)

// Per-channel normalization constants, in RGB order.
var (
	Mean = [Channels]float32{0.485, 0.456, 0.406}
	Std  = [Channels]float32{0.229, 0.224, 0.225}
)

// FaceTensor is one normalized face crop ready for the classifier.
type FaceTensor struct {
	Data []float32
}

// NewFaceTensor returns a zero-filled tensor.
func NewFaceTensor() FaceTensor {
	return FaceTensor{Data: make([]float32, TensorSize)}
}

// Shape returns the tensor dimensions (batch, channels, height, width).
func (t FaceTensor) Shape() [4]int {
	return [4]int{Batch, Channels, Height, Width}
}

// Valid reports whether the tensor holds exactly one face worth of values.
func (t FaceTensor) Valid() bool {
	return len(t.Data) == TensorSize
}

// At returns the value at channel c, row y, column x.
func (t FaceTensor) At(c, y, x int) float32 {
	return t.Data[c*PlaneSize+y*Width+x]
}

// ChannelBounds returns the smallest and largest value a normalized pixel can take
// in channel c, i.e. (0-mean)/std and (1-mean)/std.
func ChannelBounds(c int) (lo, hi float32) {
	return (0 - Mean[c]) / Std[c], (1 - Mean[c]) / Std[c]
}

// Bytes returns the tensor data as little-endian float32 bytes, the layout OpenCV
// expects when wrapping a blob.
func (t FaceTensor) Bytes() []byte {
	buf := make([]byte, 4*len(t.Data))
	for i, v := range t.Data {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(v))
	}
	return buf
}

// BatchBytes concatenates the bytes of several tensors into one NCHW batch.
func BatchBytes(tensors []FaceTensor) []byte {
	buf := make([]byte, 0, 4*TensorSize*len(tensors))
	for _, t := range tensors {
		buf = append(buf, t.Bytes()...)
	}
	return buf
}
