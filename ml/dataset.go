package ml

import (
	"errors"
	"fmt"
	"strings"
)

// NumFeatures is the fixed width of every feature vector, hypothesis list and
// weight vector. Index i refers to the same linguistic feature everywhere.
const NumFeatures = 10

var (
	ErrMalformedInput      = errors.New("malformed input")
	ErrInternalConsistency = errors.New("internal consistency error")
	ErrEmptyDataset        = errors.New("dataset is empty")
	ErrNotTrained          = errors.New("model not trained")
	ErrUnknownModelKind    = errors.New("unknown model kind")
)

// Label is one of the two classes a sample can belong to.
type Label string

const (
	English Label = "en"
	Dutch   Label = "nl"
)

// ParseLabel accepts "en" or "nl" in any case, ignoring surrounding space.
func ParseLabel(s string) (Label, error) {
	switch Label(strings.ToLower(strings.TrimSpace(s))) {
	case English:
		return English, nil
	case Dutch:
		return Dutch, nil
	default:
		return "", fmt.Errorf("%w: unknown label %q", ErrMalformedInput, s)
	}
}

// Valid reports whether l is one of the two known classes.
func (l Label) Valid() bool {
	return l == English || l == Dutch
}

// Other returns the opposite class.
func (l Label) Other() Label {
	if l == English {
		return Dutch
	}
	return English
}

// FeatureVector holds the ten boolean predicate results for one sentence.
type FeatureVector []bool

// Validate requires exactly NumFeatures entries.
func (v FeatureVector) Validate() error {
	if len(v) != NumFeatures {
		return fmt.Errorf("%w: feature vector has %d entries, want %d", ErrMalformedInput, len(v), NumFeatures)
	}
	return nil
}

// String renders v as [T F ...].
func (v FeatureVector) String() string {
	var b strings.Builder
	b.WriteByte('[')
	for i, f := range v {
		if i > 0 {
			b.WriteByte(' ')
		}
		if f {
			b.WriteByte('T')
		} else {
			b.WriteByte('F')
		}
	}
	b.WriteByte(']')
	return b.String()
}

// LabeledExample is one training sample.
type LabeledExample struct {
	Features FeatureVector `json:"features"`
	Label    Label         `json:"label"`
}

// Dataset is an ordered set of training samples.
type Dataset []LabeledExample

// Validate reports the first row that is not a ten-entry vector with a known label.
func (ds Dataset) Validate() error {
	if len(ds) == 0 {
		return ErrEmptyDataset
	}
	for i, ex := range ds {
		if err := ex.Features.Validate(); err != nil {
			return fmt.Errorf("row %d: %w", i, err)
		}
		if !ex.Label.Valid() {
			return fmt.Errorf("row %d: %w: unknown label %q", i, ErrMalformedInput, ex.Label)
		}
	}
	return nil
}

// Vectors drops the labels.
func (ds Dataset) Vectors() []FeatureVector {
	out := make([]FeatureVector, len(ds))
	for i, ex := range ds {
		out[i] = ex.Features
	}
	return out
}

// Labels drops the feature vectors.
func (ds Dataset) Labels() []Label {
	out := make([]Label, len(ds))
	for i, ex := range ds {
		out[i] = ex.Label
	}
	return out
}

// majority returns the class with more samples, English on a tie.
func majority(a, b int) Label {
	if a >= b {
		return English
	}
	return Dutch
}
