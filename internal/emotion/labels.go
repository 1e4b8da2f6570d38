// Package emotion defines the fixed emotion label set, the face tensor fed to the
// classifier, and the formatting of raw classifier output into labeled scores.
package emotion

// Label is one of the seven emotion categories.
type Label string

// Emotion labels. The order of Labels is the order of the classifier output vector.
const (
	Happy    Label = "happy"
	Surprise Label = "surprise"
	Sad      Label = "sad"
	Anger    Label = "anger"
	Disgust  Label = "disgust"
	Fear     Label = "fear"
	Neutral  Label = "neutral"
)

// NumLabels is the length of every raw score vector.
const NumLabels = 7

// labels is unexported so callers cannot reorder it.
var labels = [NumLabels]Label{Happy, Surprise, Sad, Anger, Disgust, Fear, Neutral}

// Labels returns the label list in classifier output order.
func Labels() [NumLabels]Label {
	return labels
}

// Index returns the position of l in the label list, or -1 if l is not a known label.
func Index(l Label) int {
	for i, v := range labels {
		if v == l {
			return i
		}
	}
	return -1
}

// SameLabels reports whether names matches the label list exactly, in order.
func SameLabels(names []string) bool {
	if len(names) != NumLabels {
		return false
	}
	for i, n := range names {
		if Label(n) != labels[i] {
			return false
		}
	}
	return true
}
