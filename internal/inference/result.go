package inference

import (
	"github.com/ayusman/bhava/internal/detector"
	"github.com/ayusman/bhava/internal/emotion"
)

// FaceResult is the outcome for one detected face.
type FaceResult struct {
	Box      detector.Box   `json:"face_coordinates"`
	Emotions emotion.Scores `json:"emotions"`
}

// Result holds one FaceResult per detected face, in detection order.
// A successful Result always has at least one face.
type Result struct {
	Faces []FaceResult `json:"results"`
}

// Len returns the number of faces.
func (r *Result) Len() int {
	return len(r.Faces)
}
