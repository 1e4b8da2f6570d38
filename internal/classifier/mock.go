package classifier

import (
	"sync"

	"github.com/ayusman/bhava/internal/emotion"
)

// MockClassifier is a test implementation of BatchClassifier.
// Without preset scores it derives scores from the tensor mean, so equal
// tensors get equal scores.
type MockClassifier struct {
	mu         sync.Mutex
	scores     []float32
	err        error
	failAt     int
	calls      int
	batchCalls int
	closed     bool
}

// NewMockClassifier creates a new MockClassifier instance.
func NewMockClassifier() *MockClassifier {
	return &MockClassifier{failAt: -1}
}

// SetScores sets the raw scores returned for every face.
func (m *MockClassifier) SetScores(scores []float32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scores = scores
}

// SetError makes every call fail with err.
func (m *MockClassifier) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
	m.failAt = -1
}

// SetErrorAt makes only the face with the given zero-based index, counted
// across all calls, fail with err.
func (m *MockClassifier) SetErrorAt(face int, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
	m.failAt = face
}

// Calls returns how many faces Classify has scored.
func (m *MockClassifier) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// BatchCalls returns how many times ClassifyBatch has been called.
func (m *MockClassifier) BatchCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.batchCalls
}

// Closed reports whether Close has been called.
func (m *MockClassifier) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// Classify returns the preset or derived scores for one face.
func (m *MockClassifier) Classify(t emotion.FaceTensor) ([]float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.classify(t)
}

// ClassifyBatch scores every tensor in order, failing as a whole if any face fails.
func (m *MockClassifier) ClassifyBatch(ts []emotion.FaceTensor) ([][]float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.batchCalls++
	out := make([][]float32, 0, len(ts))
	for _, t := range ts {
		s, err := m.classify(t)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

func (m *MockClassifier) classify(t emotion.FaceTensor) ([]float32, error) {
	face := m.calls
	m.calls++
	if m.closed {
		return nil, ErrClosed
	}
	if m.err != nil && (m.failAt < 0 || m.failAt == face) {
		return nil, m.err
	}
	if !t.Valid() {
		return nil, ErrBadInput
	}
	if m.scores != nil {
		out := make([]float32, len(m.scores))
		copy(out, m.scores)
		return out, nil
	}

	var sum float32
	for _, v := range t.Data {
		sum += v
	}
	mean := sum / float32(len(t.Data))
	out := make([]float32, emotion.NumLabels)
	for i := range out {
		out[i] = mean * float32(i+1)
	}
	return out, nil
}

// Close marks the mock closed.
func (m *MockClassifier) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
