// Package tuning sweeps decision tree depths and picks the one that scores
// best on held-out data.
package tuning

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"langclass/ml"
)

// Metric selects the report field depths are ranked by.
type Metric string

const (
	MetricAccuracy Metric = "accuracy"
	MetricF1       Metric = "f1"
)

// ParseMetric accepts "accuracy" or "f1".
func ParseMetric(s string) (Metric, error) {
	switch Metric(s) {
	case MetricAccuracy, MetricF1:
		return Metric(s), nil
	default:
		return "", fmt.Errorf("%w: metric %q (must be accuracy or f1)", ml.ErrMalformedInput, s)
	}
}

func (m Metric) of(r ml.Report) float64 {
	if m == MetricF1 {
		return r.F1
	}
	return r.Accuracy
}

// SearchConfig bounds the depth range to try.
type SearchConfig struct {
	MinDepth int
	MaxDepth int
	Metric   Metric
	// Workers bounds concurrent trainings. <= 0 means one per depth.
	Workers int
}

// Iteration is the outcome of training at one depth.
type Iteration struct {
	Depth    int           `json:"depth"`
	Metric   float64       `json:"metric"`
	Report   ml.Report     `json:"report"`
	Nodes    int           `json:"nodes"`
	Leaves   int           `json:"leaves"`
	Height   int           `json:"height"`
	Duration time.Duration `json:"duration"`
}

// SearchResult holds every iteration in depth order and the best one.
type SearchResult struct {
	Best       Iteration   `json:"best"`
	Iterations []Iteration `json:"iterations"`
}

// DepthSearch trains one tree per candidate depth.
type DepthSearch struct {
	config SearchConfig
	logger *zap.Logger
}

// NewDepthSearch validates config. MinDepth <= 0 becomes 1.
func NewDepthSearch(config SearchConfig, logger *zap.Logger) (*DepthSearch, error) {
	if config.MinDepth <= 0 {
		config.MinDepth = 1
	}
	if config.MaxDepth < config.MinDepth {
		return nil, fmt.Errorf("%w: max depth %d below min depth %d", ml.ErrMalformedInput, config.MaxDepth, config.MinDepth)
	}
	if config.Metric == "" {
		config.Metric = MetricAccuracy
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DepthSearch{config: config, logger: logger.Named("tuning")}, nil
}

// Run trains one tree per depth on train and scores it on validation. Ties go
// to the shallower tree.
func (s *DepthSearch) Run(ctx context.Context, train, validation ml.Dataset) (SearchResult, error) {
	if len(validation) == 0 {
		return SearchResult{}, fmt.Errorf("validation set: %w", ml.ErrEmptyDataset)
	}
	n := s.config.MaxDepth - s.config.MinDepth + 1
	iterations := make([]Iteration, n)

	g, ctx := errgroup.WithContext(ctx)
	if s.config.Workers > 0 {
		g.SetLimit(s.config.Workers)
	}
	for i := 0; i < n; i++ {
		depth := s.config.MinDepth + i
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			start := time.Now()
			tree, err := ml.TrainTree(train, depth)
			if err != nil {
				return fmt.Errorf("depth %d: %w", depth, err)
			}
			report, err := ml.Evaluate(tree, validation)
			if err != nil {
				return fmt.Errorf("depth %d: %w", depth, err)
			}
			iterations[i] = Iteration{
				Depth:    depth,
				Metric:   s.config.Metric.of(report),
				Report:   report,
				Nodes:    len(tree.Nodes),
				Leaves:   len(tree.Leaves),
				Height:   tree.Depth(),
				Duration: time.Since(start),
			}
			s.logger.Debug("depth evaluated", zap.Int("depth", depth), zap.Float64(string(s.config.Metric), iterations[i].Metric))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return SearchResult{}, err
	}

	best := iterations[0]
	for _, it := range iterations[1:] {
		if it.Metric > best.Metric {
			best = it
		}
	}
	s.logger.Info("depth search finished",
		zap.Int("candidates", n),
		zap.Int("best_depth", best.Depth),
		zap.Float64(string(s.config.Metric), best.Metric),
	)
	return SearchResult{Best: best, Iterations: iterations}, nil
}

// Top returns the n best iterations, best first. n is clamped to the
// number of iterations; n <= 0 yields none.
func (r SearchResult) Top(n int) []Iteration {
	if n <= 0 {
		return []Iteration{}
	}
	sorted := append([]Iteration(nil), r.Iterations...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Metric > sorted[j].Metric })
	if n < len(sorted) {
		sorted = sorted[:n]
	}
	return sorted
}
