package emotion

import (
	"bytes"
	"errors"
	"fmt"
	"math"

	jsoniter "github.com/json-iterator/go"
)

// ErrScoreCount is returned when a raw score vector does not have one entry per label.
var ErrScoreCount = errors.New("score vector length does not match label count")

// Score is a single labeled value.
type Score struct {
	Label Label
	Value float64
}

// Scores maps every label to its rounded raw classifier output, in label order.
// Values are not probabilities: they are not passed through softmax and need
// not sum to 1 or lie in [0,1].
type Scores [NumLabels]Score

// Format pairs raw score i with label i and rounds each value to two decimals.
func Format(raw []float32) (Scores, error) {
	var s Scores
	if len(raw) != NumLabels {
		return s, fmt.Errorf("%w: got %d, want %d", ErrScoreCount, len(raw), NumLabels)
	}
	for i, v := range raw {
		s[i] = Score{Label: labels[i], Value: Round2(float64(v))}
	}
	return s, nil
}

// Round2 rounds v to two decimal places, halves away from zero.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Get returns the score for label l.
func (s Scores) Get(l Label) (float64, bool) {
	i := Index(l)
	if i < 0 {
		return 0, false
	}
	return s[i].Value, true
}

// Top returns the highest scoring entry. Ties go to the earlier label.
func (s Scores) Top() Score {
	best := s[0]
	for _, v := range s[1:] {
		if v.Value > best.Value {
			best = v
		}
	}
	return best
}

// Map returns the scores as a plain map.
func (s Scores) Map() map[Label]float64 {
	m := make(map[Label]float64, NumLabels)
	for _, v := range s {
		m[v.Label] = v.Value
	}
	return m
}

// MarshalJSON encodes the scores as an object whose keys follow label order.
func (s Scores) MarshalJSON() ([]byte, error) {
	stream := jsoniter.ConfigCompatibleWithStandardLibrary.BorrowStream(nil)
	defer jsoniter.ConfigCompatibleWithStandardLibrary.ReturnStream(stream)

	stream.WriteObjectStart()
	for i, v := range s {
		if math.IsNaN(v.Value) || math.IsInf(v.Value, 0) {
			return nil, fmt.Errorf("unsupported score for %s: %v", v.Label, v.Value)
		}
		if i > 0 {
			stream.WriteMore()
		}
		stream.WriteObjectField(string(v.Label))
		stream.WriteFloat64(v.Value)
	}
	stream.WriteObjectEnd()
	if stream.Error != nil {
		return nil, stream.Error
	}
	return bytes.Clone(stream.Buffer()), nil
}

// UnmarshalJSON decodes an object holding exactly one value per label.
func (s *Scores) UnmarshalJSON(b []byte) error {
	var m map[string]float64
	if err := jsoniter.ConfigCompatibleWithStandardLibrary.Unmarshal(b, &m); err != nil {
		return err
	}
	if len(m) != NumLabels {
		return fmt.Errorf("%w: got %d, want %d", ErrScoreCount, len(m), NumLabels)
	}
	for i, l := range labels {
		v, ok := m[string(l)]
		if !ok {
			return fmt.Errorf("missing score for %s", l)
		}
		s[i] = Score{Label: l, Value: v}
	}
	return nil
}
