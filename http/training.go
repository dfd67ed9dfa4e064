package http

import (
	"context"
	"fmt"
	"path/filepath"
	"regexp"

	"go.uber.org/zap"

	"langclass/db"
	"langclass/features"
	"langclass/ml"
)

// TrainingConfig holds the server-side defaults for POST /api/train.
type TrainingConfig struct {
	MaxTreeDepth int
	// ModelDir, when set, receives a <name>.json copy of every trained model.
	ModelDir string
}

// TrainRequest is the body of POST /api/train.
type TrainRequest struct {
	Name     string   `json:"name"`
	Learner  string   `json:"learner"`
	MaxDepth int      `json:"max_depth"`
	Examples []string `json:"examples"`
	Activate bool     `json:"activate"`
}

// TrainResponse reports the trained model and its training-set score.
type TrainResponse struct {
	Name     string    `json:"name"`
	Kind     ml.Kind   `json:"kind"`
	ID       string    `json:"id,omitempty"`
	Path     string    `json:"path,omitempty"`
	Examples int       `json:"examples"`
	Report   ml.Report `json:"report"`
	Active   bool      `json:"active"`
}

var modelName = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.-]{0,63}$`)

func (a *API) train(ctx context.Context, req TrainRequest) (TrainResponse, error) {
	if !modelName.MatchString(req.Name) {
		return TrainResponse{}, fmt.Errorf("%w: invalid model name %q", ml.ErrMalformedInput, req.Name)
	}
	kind, err := ml.ParseKind(req.Learner)
	if err != nil {
		return TrainResponse{}, err
	}
	if len(req.Examples) == 0 {
		return TrainResponse{}, ml.ErrEmptyDataset
	}

	ds := make(ml.Dataset, 0, len(req.Examples))
	for i, line := range req.Examples {
		ex, err := features.ParseLabeledLine(line)
		if err != nil {
			return TrainResponse{}, fmt.Errorf("example %d: %w", i, err)
		}
		ds = append(ds, ex)
	}

	depth := req.MaxDepth
	if depth <= 0 {
		depth = a.training.MaxTreeDepth
	}
	m, err := ml.Train(kind, ds, depth)
	if err != nil {
		return TrainResponse{}, err
	}
	report, err := ml.Evaluate(m, ds)
	if err != nil {
		return TrainResponse{}, err
	}

	resp := TrainResponse{Name: req.Name, Kind: kind, Examples: len(ds), Report: report}
	if a.training.ModelDir != "" {
		resp.Path = filepath.Join(a.training.ModelDir, req.Name+".json")
		if err := ml.SaveModel(resp.Path, m); err != nil {
			return TrainResponse{}, fmt.Errorf("save model: %w", err)
		}
	}
	if a.store != nil {
		rec, err := a.store.SaveModel(ctx, req.Name, m, len(ds))
		if err != nil {
			return TrainResponse{}, fmt.Errorf("store model: %w", err)
		}
		resp.ID = rec.ID
		if err := a.store.LogTraining(ctx, db.NewTrainingLog(rec, report)); err != nil {
			a.logger.Warn("training log failed", zap.String("model", req.Name), zap.Error(err))
		}
	}

	if resp.Path != "" {
		a.registry.RegisterFile(req.Name, m, resp.Path)
	} else {
		a.registry.Register(req.Name, m)
	}
	if req.Activate {
		if err := a.registry.SetActive(req.Name); err != nil {
			return TrainResponse{}, err
		}
	}
	resp.Active = a.registry.Active() == req.Name

	a.logger.Info("model trained",
		zap.String("name", req.Name),
		zap.String("kind", string(kind)),
		zap.Int("examples", len(ds)),
		zap.Float64("accuracy", report.Accuracy),
	)
	return resp, nil
}
