package ml

import "fmt"

// Kind names a learner.
type Kind string

const (
	KindTree     Kind = "tree"
	KindAdaBoost Kind = "adaboost"
)

// ParseKind accepts the learner names used on the command line.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "dt", "tree", "decision_tree":
		return KindTree, nil
	case "ada", "adaboost":
		return KindAdaBoost, nil
	default:
		return "", fmt.Errorf("%w: %q (must be dt or ada)", ErrUnknownModelKind, s)
	}
}

// Model is a trained, read-only classifier. Implementations are safe for
// concurrent Predict calls once trained.
type Model interface {
	Kind() Kind
	Predict(v FeatureVector) (Label, error)
	PredictAll(vs []FeatureVector) ([]Label, error)
}

// Scorer is implemented by models that expose a raw voting score.
type Scorer interface {
	Score(v FeatureVector) (float64, error)
}

// Train fits a model of the given kind. maxDepth only applies to trees.
func Train(kind Kind, ds Dataset, maxDepth int) (Model, error) {
	switch kind {
	case KindTree:
		return TrainTree(ds, maxDepth)
	case KindAdaBoost:
		a := NewAdaBoost()
		if _, err := a.Train(ds); err != nil {
			return nil, err
		}
		return a, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownModelKind, kind)
	}
}
