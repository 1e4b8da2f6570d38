package detector

import (
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"sync"

	"gocv.io/x/gocv"

	"github.com/ayusman/bhava/internal/preprocess"
)

// CascadeFile is the frontal face Haar cascade shipped with OpenCV.
const CascadeFile = "haarcascade_frontalface_default.xml"

var (
	// ErrCascadeNotFound is returned when no cascade file could be located.
	ErrCascadeNotFound = errors.New("face cascade not found")
	// ErrEmptyImage is returned when Detect is called with an empty Mat.
	ErrEmptyImage = errors.New("empty image")
)

// CascadeDetector implements Detector with an OpenCV Haar cascade.
type CascadeDetector struct {
	config     Config
	path       string
	classifier gocv.CascadeClassifier
	mu         sync.Mutex
	closed     bool
}

// NewCascadeDetector loads the cascade named in config, or the first one found
// in the default locations when config.CascadePath is empty.
func NewCascadeDetector(config Config) (*CascadeDetector, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	path := config.CascadePath
	if path == "" {
		path = FindCascade()
		if path == "" {
			return nil, ErrCascadeNotFound
		}
	} else if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCascadeNotFound, err)
	}

	classifier := gocv.NewCascadeClassifier()
	if !classifier.Load(path) {
		classifier.Close()
		return nil, fmt.Errorf("load cascade %s: invalid cascade file", path)
	}

	return &CascadeDetector{
		config:     config,
		path:       path,
		classifier: classifier,
	}, nil
}

// Path returns the cascade file in use.
func (d *CascadeDetector) Path() string {
	return d.path
}

// Detect runs the cascade over a grayscale copy of img.
func (d *CascadeDetector) Detect(img gocv.Mat) ([]Box, error) {
	if img.Empty() {
		return nil, ErrEmptyImage
	}

	gray, err := preprocess.Gray(img)
	if err != nil {
		return nil, fmt.Errorf("grayscale: %w", err)
	}
	defer gray.Close()

	minSize := image.Pt(d.config.MinSize, d.config.MinSize)

	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil, errors.New("detector closed")
	}
	rects := d.classifier.DetectMultiScaleWithParams(
		gray, d.config.ScaleFactor, d.config.MinNeighbors, 0, minSize, image.Pt(0, 0),
	)
	d.mu.Unlock()

	boxes := make([]Box, 0, len(rects))
	for _, r := range rects {
		boxes = append(boxes, FromRect(r).Clip(img.Cols(), img.Rows()))
	}
	return boxes, nil
}

// Close releases the cascade.
func (d *CascadeDetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	d.closed = true
	return d.classifier.Close()
}

// FindCascade looks for the frontal face cascade in the usual locations and
// returns its absolute path, or "" if none exists.
func FindCascade() string {
	execPath, err := os.Executable()
	var execDir string
	if err == nil {
		execDir = filepath.Dir(execPath)
	}

	candidates := []string{
		filepath.Join("data", CascadeFile),
		filepath.Join("..", "data", CascadeFile),
		filepath.Join(execDir, "data", CascadeFile),
		filepath.Join(os.Getenv("HOME"), ".bhava", CascadeFile),
		filepath.Join("/usr/share/opencv4/haarcascades", CascadeFile),
		filepath.Join("/usr/local/share/opencv4/haarcascades", CascadeFile),
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			absPath, err := filepath.Abs(path)
			if err == nil {
				return absPath
			}
			return path
		}
	}
	return ""
}
