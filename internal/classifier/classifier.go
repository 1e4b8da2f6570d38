// Package classifier runs the emotion network over face tensors.
package classifier

import (
	"errors"

	"github.com/ayusman/bhava/internal/emotion"
)

var (
	// ErrBadInput is returned for tensors that do not have the (1,3,64,64) layout.
	ErrBadInput = errors.New("invalid face tensor")
	// ErrBadOutput is returned when the network does not produce one score per label.
	ErrBadOutput = errors.New("unexpected model output")
	// ErrClosed is returned by a classifier after Close.
	ErrClosed = errors.New("classifier closed")
)

// Classifier maps one face tensor to one raw score per emotion label, in label order.
// Implementations must be safe for concurrent use.
type Classifier interface {
	Classify(t emotion.FaceTensor) ([]float32, error)
	Close() error
}

// BatchClassifier is implemented by classifiers that can score several faces in
// one forward pass. Result i belongs to tensor i.
type BatchClassifier interface {
	Classifier
	ClassifyBatch(ts []emotion.FaceTensor) ([][]float32, error)
}
