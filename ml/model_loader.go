package ml

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

type envelope struct {
	Kind  Kind            `json:"kind"`
	Model json.RawMessage `json:"model"`
}

// MarshalModel encodes m together with its kind so UnmarshalModel can
// restore the concrete type.
func MarshalModel(m Model) ([]byte, error) {
	payload, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return json.Marshal(envelope{Kind: m.Kind(), Model: payload})
}

// UnmarshalModel validates data against the model schema and restores the
// concrete model it describes.
func UnmarshalModel(data []byte) (Model, error) {
	if err := validateEnvelope(data); err != nil {
		return nil, err
	}
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedInput, err)
	}
	switch env.Kind {
	case KindTree:
		dt := NewDecisionTree(0)
		if err := json.Unmarshal(env.Model, dt); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedInput, err)
		}
		if err := dt.validate(); err != nil {
			return nil, err
		}
		return dt, nil
	case KindAdaBoost:
		a := &AdaBoost{}
		if err := json.Unmarshal(env.Model, a); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedInput, err)
		}
		if err := a.validate(); err != nil {
			return nil, err
		}
		return a, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownModelKind, env.Kind)
	}
}

// SaveModel writes m to path, creating parent directories.
func SaveModel(path string, m Model) error {
	payload, err := MarshalModel(m)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, payload, 0o600)
}

// LoadModel reads a file written by SaveModel.
func LoadModel(path string) (Model, error) {
	payload, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	m, err := UnmarshalModel(payload)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return m, nil
}
