package inference

import (
	"errors"
	"fmt"

	"github.com/ayusman/bhava/internal/detector"
)

// Sentinel errors returned by Analyze and the image helpers. Use errors.Is to test for them.
var (
	ErrMissingInput    = errors.New("no image provided")
	ErrInvalidImage    = errors.New("invalid image")
	ErrNoFaceDetected  = errors.New("no faces detected")
	ErrPreprocessing   = errors.New("face preprocessing failed")
	ErrModelInvocation = errors.New("emotion model failed")
)

// Stage names the per-face step that failed.
type Stage string

// Per-face stages.
const (
	StagePreprocess Stage = "preprocess"
	StageClassify   Stage = "classify"
)

func (s Stage) sentinel() error {
	if s == StagePreprocess {
		return ErrPreprocessing
	}
	return ErrModelInvocation
}

// FaceError reports a failure while handling one detected face. It matches
// ErrPreprocessing or ErrModelInvocation depending on Stage, and the
// underlying cause.
type FaceError struct {
	Index int // -1 when a batched forward pass failed for every face
	Box   detector.Box
	Stage Stage
	Err   error
}

func (e *FaceError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("%s all faces: %v", e.Stage, e.Err)
	}
	return fmt.Sprintf("%s face %d at %v: %v", e.Stage, e.Index, [4]int{e.Box.X, e.Box.Y, e.Box.W, e.Box.H}, e.Err)
}

func (e *FaceError) Unwrap() []error {
	return []error{e.Stage.sentinel(), e.Err}
}
