// Package inference ties face detection, preprocessing and emotion
// classification into one call per image.
package inference

import (
	"errors"
	"fmt"

	"gocv.io/x/gocv"

	"github.com/ayusman/bhava/internal/classifier"
	"github.com/ayusman/bhava/internal/detector"
	"github.com/ayusman/bhava/internal/emotion"
	"github.com/ayusman/bhava/internal/preprocess"
)

// Options tunes how Analyze runs.
type Options struct {
	// BatchFaces scores all faces of an image in one forward pass when the
	// classifier supports it.
	BatchFaces bool
}

// Engine is the immutable handle shared by all callers. It is safe for
// concurrent use as long as its detector and classifier are.
type Engine struct {
	detector   detector.Detector
	classifier classifier.Classifier
	opts       Options
}

// New creates an Engine. The engine takes ownership of d and c.
func New(d detector.Detector, c classifier.Classifier, opts Options) *Engine {
	return &Engine{detector: d, classifier: c, opts: opts}
}

// Analyze detects every face in img and scores its emotions.
//
// Faces are processed in detection order. A failure on any face aborts the
// whole call with a *FaceError; partial results are never returned.
func (e *Engine) Analyze(img gocv.Mat) (*Result, error) {
	if img.Empty() {
		return nil, ErrMissingInput
	}

	boxes, err := e.detector.Detect(img)
	if err != nil {
		return nil, fmt.Errorf("detect faces: %w", err)
	}
	if len(boxes) == 0 {
		return nil, ErrNoFaceDetected
	}

	if bc, ok := e.classifier.(classifier.BatchClassifier); ok && e.opts.BatchFaces && len(boxes) > 1 {
		return e.analyzeBatch(img, boxes, bc)
	}

	result := &Result{Faces: make([]FaceResult, 0, len(boxes))}
	for i, box := range boxes {
		tensor, err := crop(img, box)
		if err != nil {
			return nil, &FaceError{Index: i, Box: box, Stage: StagePreprocess, Err: err}
		}

		raw, err := e.classifier.Classify(tensor)
		if err != nil {
			return nil, &FaceError{Index: i, Box: box, Stage: StageClassify, Err: err}
		}

		scores, err := emotion.Format(raw)
		if err != nil {
			return nil, &FaceError{Index: i, Box: box, Stage: StageClassify, Err: err}
		}

		result.Faces = append(result.Faces, FaceResult{Box: box, Emotions: scores})
	}
	return result, nil
}

// AnalyzeBytes decodes an encoded image and analyzes it.
func (e *Engine) AnalyzeBytes(data []byte) (*Result, error) {
	img, err := DecodeImage(data)
	if err != nil {
		return nil, err
	}
	defer img.Close()
	return e.Analyze(img)
}

func (e *Engine) analyzeBatch(img gocv.Mat, boxes []detector.Box, bc classifier.BatchClassifier) (*Result, error) {
	tensors := make([]emotion.FaceTensor, len(boxes))
	for i, box := range boxes {
		tensor, err := crop(img, box)
		if err != nil {
			return nil, &FaceError{Index: i, Box: box, Stage: StagePreprocess, Err: err}
		}
		tensors[i] = tensor
	}

	raws, err := bc.ClassifyBatch(tensors)
	if err != nil {
		return nil, &FaceError{Index: -1, Stage: StageClassify, Err: err}
	}
	if len(raws) != len(boxes) {
		return nil, &FaceError{Index: -1, Stage: StageClassify,
			Err: fmt.Errorf("%w: %d score vectors for %d faces", classifier.ErrBadOutput, len(raws), len(boxes))}
	}

	result := &Result{Faces: make([]FaceResult, len(boxes))}
	for i, box := range boxes {
		scores, err := emotion.Format(raws[i])
		if err != nil {
			return nil, &FaceError{Index: i, Box: box, Stage: StageClassify, Err: err}
		}
		result.Faces[i] = FaceResult{Box: box, Emotions: scores}
	}
	return result, nil
}

// errEmptyCrop is returned for boxes that do not overlap the image.
var errEmptyCrop = errors.New("face box does not overlap the image")

// crop cuts box out of img and preprocesses it.
func crop(img gocv.Mat, box detector.Box) (emotion.FaceTensor, error) {
	clipped := box.Clip(img.Cols(), img.Rows())
	if clipped.Empty() {
		return emotion.FaceTensor{}, errEmptyCrop
	}

	region := img.Region(clipped.Rect())
	defer region.Close()
	return preprocess.Preprocess(region)
}

// Close releases the detector and the classifier.
func (e *Engine) Close() error {
	return errors.Join(e.detector.Close(), e.classifier.Close())
}
