package ml

import (
	"fmt"
	"math"
)

// Stump is a weak hypothesis over a single feature with fixed polarity:
// it votes Positive when its feature is set and Positive.Other() otherwise.
type Stump struct {
	Feature  int   `json:"feature"`
	Positive Label `json:"positive"`
}

// Classify votes the stump's class when its feature is set.
func (s Stump) Classify(v FeatureVector) Label {
	if v[s.Feature] {
		return s.Positive
	}
	return s.Positive.Other()
}

// Hypotheses returns one stump per feature, in feature order.
func Hypotheses(positive Label) []Stump {
	hs := make([]Stump, NumFeatures)
	for i := range hs {
		hs[i] = Stump{Feature: i, Positive: positive}
	}
	return hs
}

// WeightVector holds one weight per hypothesis, positionally aligned.
type WeightVector []float64

// Validate requires exactly one weight per hypothesis.
func (w WeightVector) Validate() error {
	if len(w) != NumFeatures {
		return fmt.Errorf("%w: weight vector has %d entries, want %d", ErrMalformedInput, len(w), NumFeatures)
	}
	return nil
}

// AdaBoost weights the fixed stump hypotheses. Every feature predicate is an
// indicator for Dutch text, so the stumps vote Dutch when their feature is
// set and the weighted vote breaks ties toward Dutch.
type AdaBoost struct {
	Positive   Label        `json:"positive"`
	Hypotheses []Stump      `json:"hypotheses"`
	Weights    WeightVector `json:"weights"`
}

// NewAdaBoost returns an untrained ensemble over the ten stumps.
func NewAdaBoost() *AdaBoost {
	return &AdaBoost{Positive: Dutch, Hypotheses: Hypotheses(Dutch)}
}

func (a *AdaBoost) Kind() Kind { return KindAdaBoost }

// Train visits every hypothesis once, in order, and returns the resulting
// weights. Rounds whose weighted error is 0 or 1 leave the hypothesis at its
// initial weight of 1 and do not touch the example weights.
func (a *AdaBoost) Train(ds Dataset) (WeightVector, error) {
	if err := ds.Validate(); err != nil {
		return nil, err
	}
	if len(a.Hypotheses) == 0 {
		a.Hypotheses = Hypotheses(a.positive())
	}
	n := len(ds)
	w := make([]float64, n)
	for j := range w {
		w[j] = 1 / float64(n)
	}
	z := make(WeightVector, len(a.Hypotheses))
	for k := range z {
		z[k] = 1
	}

	correct := make([]bool, n)
	for k, h := range a.Hypotheses {
		errSum := 0.0
		for j, ex := range ds {
			correct[j] = h.Classify(ex.Features) == ex.Label
			if !correct[j] {
				errSum += w[j]
			}
		}
		if errSum <= 0 || errSum >= 1 {
			continue
		}
		for j := range w {
			if correct[j] {
				w[j] = w[j] * errSum / (1 - errSum)
			}
		}
		normalize(w)
		z[k] = math.Log((1 - errSum) / errSum)
	}
	a.Weights = z
	return z, nil
}

func normalize(w []float64) {
	sum := 0.0
	for _, v := range w {
		sum += v
	}
	factor := 1 / sum
	for i := range w {
		w[i] *= factor
	}
}

// Vote scores v against an explicit weight vector. The score is the sum of
// +z[i] for hypotheses voting Positive and -z[i] for the others.
func (a *AdaBoost) Vote(v FeatureVector, z WeightVector) (Label, float64, error) {
	if err := v.Validate(); err != nil {
		return "", 0, err
	}
	if err := z.Validate(); err != nil {
		return "", 0, err
	}
	if len(a.Hypotheses) != len(z) {
		return "", 0, fmt.Errorf("%w: %d hypotheses for %d weights", ErrMalformedInput, len(a.Hypotheses), len(z))
	}
	positive := a.positive()
	score := 0.0
	for i, h := range a.Hypotheses {
		if h.Classify(v) == positive {
			score += z[i]
		} else {
			score -= z[i]
		}
	}
	if score >= 0 {
		return positive, score, nil
	}
	return positive.Other(), score, nil
}

// Predict labels v with the trained weights.
func (a *AdaBoost) Predict(v FeatureVector) (Label, error) {
	if a.Weights == nil {
		return "", ErrNotTrained
	}
	label, _, err := a.Vote(v, a.Weights)
	return label, err
}

// Score returns the raw weighted vote for v. It is not a probability.
func (a *AdaBoost) Score(v FeatureVector) (float64, error) {
	if a.Weights == nil {
		return 0, ErrNotTrained
	}
	_, score, err := a.Vote(v, a.Weights)
	return score, err
}

// PredictAll labels every vector in order and stops at the first error.
func (a *AdaBoost) PredictAll(vs []FeatureVector) ([]Label, error) {
	out := make([]Label, len(vs))
	for i, v := range vs {
		label, err := a.Predict(v)
		if err != nil {
			return nil, fmt.Errorf("vector %d: %w", i, err)
		}
		out[i] = label
	}
	return out, nil
}

func (a *AdaBoost) positive() Label {
	if a.Positive.Valid() {
		return a.Positive
	}
	return Dutch
}

func (a *AdaBoost) validate() error {
	if !a.Positive.Valid() {
		return fmt.Errorf("%w: positive label %q", ErrMalformedInput, a.Positive)
	}
	if len(a.Hypotheses) != NumFeatures {
		return fmt.Errorf("%w: %d hypotheses, want %d", ErrMalformedInput, len(a.Hypotheses), NumFeatures)
	}
	for i, h := range a.Hypotheses {
		if h.Feature != i || h.Positive != a.Positive {
			return fmt.Errorf("%w: hypothesis %d is %+v", ErrMalformedInput, i, h)
		}
	}
	return a.Weights.Validate()
}
