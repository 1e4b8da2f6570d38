// Package detector locates faces in images.
package detector

import (
	"fmt"
	"image"

	jsoniter "github.com/json-iterator/go"
	"gocv.io/x/gocv"
)

// Detector defines the interface for face detection implementations.
type Detector interface {
	// Detect returns the bounding boxes of all faces found in img, in the order
	// the underlying detector reports them. Returns an empty slice if no faces
	// are detected.
	Detect(img gocv.Mat) ([]Box, error)

	// Close releases any resources held by the detector.
	Close() error
}

// Box is an axis-aligned face rectangle in pixel coordinates of the source image.
type Box struct {
	X, Y, W, H int
}

// FromRect converts an image.Rectangle to a Box.
func FromRect(r image.Rectangle) Box {
	return Box{X: r.Min.X, Y: r.Min.Y, W: r.Dx(), H: r.Dy()}
}

// Rect returns the box as an image.Rectangle.
func (b Box) Rect() image.Rectangle {
	return image.Rect(b.X, b.Y, b.X+b.W, b.Y+b.H)
}

// Area returns the box area in pixels.
func (b Box) Area() int {
	return b.W * b.H
}

// Empty reports whether the box covers no pixels.
func (b Box) Empty() bool {
	return b.W <= 0 || b.H <= 0
}

// Clip returns the part of b that lies inside an image of the given size.
// The result may be empty.
func (b Box) Clip(width, height int) Box {
	r := b.Rect().Intersect(image.Rect(0, 0, width, height))
	if r.Empty() {
		return Box{X: max(0, min(b.X, width)), Y: max(0, min(b.Y, height))}
	}
	return FromRect(r)
}

// MarshalJSON encodes the box as [x, y, w, h].
func (b Box) MarshalJSON() ([]byte, error) {
	return jsoniter.ConfigCompatibleWithStandardLibrary.Marshal([4]int{b.X, b.Y, b.W, b.H})
}

// UnmarshalJSON decodes a box from [x, y, w, h].
func (b *Box) UnmarshalJSON(data []byte) error {
	var v [4]int
	if err := jsoniter.ConfigCompatibleWithStandardLibrary.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("decode box: %w", err)
	}
	*b = Box{X: v[0], Y: v[1], W: v[2], H: v[3]}
	return nil
}

// Config holds configuration options for face detection.
type Config struct {
	// CascadePath is the Haar cascade XML file. Empty means search the default locations.
	CascadePath string

	// ScaleFactor is the image pyramid step between detection scales (default: 1.1).
	ScaleFactor float64

	// MinNeighbors is how many overlapping candidates a detection needs to be kept (default: 5).
	MinNeighbors int

	// MinSize is the smallest face edge in pixels (default: 24).
	MinSize int
}

// DefaultConfig returns a Config with the standard cascade parameters.
func DefaultConfig() Config {
	return Config{
		ScaleFactor:  1.1,
		MinNeighbors: 5,
		MinSize:      24,
	}
}

// Validate checks the detection parameters.
func (c Config) Validate() error {
	if c.ScaleFactor <= 1 {
		return fmt.Errorf("scale factor must be greater than 1, got %v", c.ScaleFactor)
	}
	if c.MinNeighbors < 0 {
		return fmt.Errorf("min neighbors must not be negative, got %d", c.MinNeighbors)
	}
	if c.MinSize < 1 {
		return fmt.Errorf("min size must be at least 1, got %d", c.MinSize)
	}
	return nil
}
