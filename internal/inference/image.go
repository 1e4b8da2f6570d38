package inference

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"os"

	"gocv.io/x/gocv"
)

// DecodeImage decodes an encoded image (JPEG, PNG, BMP, ...) into a BGR Mat.
// The caller must close the returned Mat.
func DecodeImage(data []byte) (gocv.Mat, error) {
	if len(data) == 0 {
		return gocv.Mat{}, ErrMissingInput
	}
	img, err := gocv.IMDecode(data, gocv.IMReadColor)
	if err != nil {
		return gocv.Mat{}, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	if img.Empty() {
		img.Close()
		return gocv.Mat{}, ErrInvalidImage
	}
	return img, nil
}

// ReadImage loads and decodes an image file.
func ReadImage(path string) (gocv.Mat, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return gocv.Mat{}, fmt.Errorf("%w: %s", ErrMissingInput, path)
	}
	if err != nil {
		return gocv.Mat{}, fmt.Errorf("read image: %w", err)
	}
	img, err := DecodeImage(data)
	if err != nil {
		return gocv.Mat{}, fmt.Errorf("%s: %w", path, err)
	}
	return img, nil
}

// ResizeForAnalysis returns a copy of img scaled to exactly width x height.
// Non-positive sizes return an unscaled copy. The caller must close the result.
func ResizeForAnalysis(img gocv.Mat, width, height int) gocv.Mat {
	if width <= 0 || height <= 0 {
		return img.Clone()
	}
	interp := gocv.InterpolationLinear
	if img.Cols() > width && img.Rows() > height {
		interp = gocv.InterpolationArea
	}
	out := gocv.NewMat()
	gocv.Resize(img, &out, image.Pt(width, height), 0, 0, interp)
	return out
}

var (
	boxColor  = color.RGBA{R: 0, G: 200, B: 0, A: 255}
	textColor = color.RGBA{R: 255, G: 255, B: 255, A: 255}
)

// Annotate draws each face box and its top emotion onto img. It stops at the
// first drawing error.
func Annotate(img *gocv.Mat, r *Result) error {
	if img == nil || img.Empty() {
		return ErrMissingInput
	}
	for i, f := range r.Faces {
		rect := f.Box.Rect()
		if err := gocv.Rectangle(img, rect, boxColor, 2); err != nil {
			return fmt.Errorf("draw face %d: %w", i, err)
		}

		top := f.Emotions.Top()
		label := fmt.Sprintf("%s %.2f", top.Label, top.Value)
		origin := image.Pt(rect.Min.X, max(rect.Min.Y-6, 12))
		if err := gocv.PutText(img, label, origin, gocv.FontHersheySimplex, 0.5, textColor, 1); err != nil {
			return fmt.Errorf("label face %d: %w", i, err)
		}
	}
	return nil
}

// WriteImage encodes img to path; the format follows the file extension.
func WriteImage(path string, img gocv.Mat) error {
	if ok := gocv.IMWrite(path, img); !ok {
		return fmt.Errorf("write image %s", path)
	}
	return nil
}
