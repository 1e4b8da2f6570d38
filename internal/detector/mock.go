package detector

import (
	"sync"

	"gocv.io/x/gocv"
)

// MockDetector is a test implementation of the Detector interface.
// It allows tests to control the detection results.
type MockDetector struct {
	mu    sync.Mutex
	boxes []Box
	err   error
	calls int
}

// NewMockDetector creates a new MockDetector instance.
func NewMockDetector() *MockDetector {
	return &MockDetector{}
}

// SetBoxes sets the boxes that will be returned by Detect.
func (m *MockDetector) SetBoxes(boxes []Box) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.boxes = boxes
}

// SetError sets the error that will be returned by Detect.
func (m *MockDetector) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Calls returns how many times Detect has been called.
func (m *MockDetector) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Detect returns the pre-configured boxes or error.
func (m *MockDetector) Detect(img gocv.Mat) ([]Box, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	out := make([]Box, len(m.boxes))
	copy(out, m.boxes)
	return out, nil
}

// Close is a no-op for the mock detector.
func (m *MockDetector) Close() error {
	return nil
}

// CenteredBox returns a square box of the given edge centered in an image of
// the given size.
func CenteredBox(width, height, edge int) Box {
	return Box{X: (width - edge) / 2, Y: (height - edge) / 2, W: edge, H: edge}
}
