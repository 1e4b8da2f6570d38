// Package preprocess turns a face crop into the normalized tensor the emotion
// classifier consumes.
//
// The steps are fixed: resize to 64x64 without keeping the aspect ratio,
// convert to grayscale and replicate into three channels, scale to [0,1], then
// normalize each channel with emotion.Mean and emotion.Std. The output depends
// only on the crop pixels.
package preprocess

import (
	"errors"
	"fmt"
	"image"

	"gocv.io/x/gocv"

	"github.com/ayusman/bhava/internal/emotion"
)

var (
	// ErrInvalidCrop is returned for empty crops and crops with an unsupported pixel format.
	ErrInvalidCrop = errors.New("invalid face crop")
	// ErrUnsupportedChannels is returned by Gray for images that are not 1, 3 or 4 channel.
	ErrUnsupportedChannels = errors.New("unsupported channel count")
)

// Preprocess converts an 8-bit BGR, BGRA or grayscale crop into a FaceTensor.
func Preprocess(crop gocv.Mat) (emotion.FaceTensor, error) {
	if crop.Empty() || crop.Rows() == 0 || crop.Cols() == 0 {
		return emotion.FaceTensor{}, fmt.Errorf("%w: empty", ErrInvalidCrop)
	}
	switch crop.Type() {
	case gocv.MatTypeCV8UC1, gocv.MatTypeCV8UC3, gocv.MatTypeCV8UC4:
	default:
		return emotion.FaceTensor{}, fmt.Errorf("%w: mat type %v", ErrInvalidCrop, crop.Type())
	}

	resized := gocv.NewMat()
	defer resized.Close()
	gocv.Resize(crop, &resized, image.Pt(emotion.Width, emotion.Height), 0, 0, interpolation(crop))
	if resized.Empty() {
		return emotion.FaceTensor{}, fmt.Errorf("%w: resize failed", ErrInvalidCrop)
	}

	gray, err := Gray(resized)
	if err != nil {
		return emotion.FaceTensor{}, fmt.Errorf("%w: %v", ErrInvalidCrop, err)
	}
	defer gray.Close()

	return NormalizeGray(gray.ToBytes())
}

// interpolation picks area averaging when shrinking and bilinear when enlarging.
func interpolation(crop gocv.Mat) gocv.InterpolationFlags {
	if crop.Cols() >= emotion.Width && crop.Rows() >= emotion.Height {
		return gocv.InterpolationArea
	}
	return gocv.InterpolationLinear
}

// Gray returns a new single-channel copy of img. The caller must close it.
func Gray(img gocv.Mat) (gocv.Mat, error) {
	switch img.Channels() {
	case 1:
		return img.Clone(), nil
	case 3:
		gray := gocv.NewMat()
		gocv.CvtColor(img, &gray, gocv.ColorBGRToGray)
		return gray, nil
	case 4:
		gray := gocv.NewMat()
		gocv.CvtColor(img, &gray, gocv.ColorBGRAToGray)
		return gray, nil
	default:
		return gocv.Mat{}, fmt.Errorf("%w: %d", ErrUnsupportedChannels, img.Channels())
	}
}

// NormalizeGray builds a FaceTensor from a 64x64 row-major grayscale plane.
// The plane is replicated into all three channels before normalization.
func NormalizeGray(pix []byte) (emotion.FaceTensor, error) {
	if len(pix) != emotion.PlaneSize {
		return emotion.FaceTensor{}, fmt.Errorf("%w: got %d gray values, want %d",
			ErrInvalidCrop, len(pix), emotion.PlaneSize)
	}

	t := emotion.NewFaceTensor()
	for c := 0; c < emotion.Channels; c++ {
		plane := t.Data[c*emotion.PlaneSize : (c+1)*emotion.PlaneSize]
		mean, std := emotion.Mean[c], emotion.Std[c]
		for i, p := range pix {
			plane[i] = (float32(p)/255 - mean) / std
		}
	}
	return t, nil
}
