package tuning

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"langclass/ml"
)

func vec(on ...int) ml.FeatureVector {
	v := make(ml.FeatureVector, ml.NumFeatures)
	for _, i := range on {
		v[i] = true
	}
	return v
}

// Feature 0 marks Dutch; feature 1 only matters one level down.
func sampleData() ml.Dataset {
	return ml.Dataset{
		{Features: vec(0), Label: ml.Dutch},
		{Features: vec(0, 1), Label: ml.Dutch},
		{Features: vec(0, 2), Label: ml.Dutch},
		{Features: vec(1), Label: ml.English},
		{Features: vec(2), Label: ml.English},
		{Features: vec(), Label: ml.English},
	}
}

func TestDepthSearchRun(t *testing.T) {
	s, err := NewDepthSearch(SearchConfig{MinDepth: 1, MaxDepth: 5, Workers: 2}, zap.NewNop())
	require.NoError(t, err)

	ds := sampleData()
	result, err := s.Run(context.Background(), ds, ds)
	require.NoError(t, err)
	require.Len(t, result.Iterations, 5)

	for i, it := range result.Iterations {
		assert.Equal(t, i+1, it.Depth)
		assert.Equal(t, len(ds), it.Report.Total)
		assert.LessOrEqual(t, it.Metric, result.Best.Metric)
		assert.Equal(t, it.Report.Accuracy, it.Metric)
	}
	assert.Equal(t, 1.0, result.Best.Metric)

	// The best entry is the shallowest one reaching the top score.
	for _, it := range result.Iterations {
		if it.Depth < result.Best.Depth {
			assert.Less(t, it.Metric, result.Best.Metric)
		}
	}

	top := result.Top(2)
	require.Len(t, top, 2)
	assert.GreaterOrEqual(t, top[0].Metric, top[1].Metric)
	assert.Len(t, result.Top(10), 5)
	assert.Empty(t, result.Top(0))
	assert.NotPanics(t, func() { assert.Empty(t, result.Top(-3)) })
}

func TestDepthSearchF1(t *testing.T) {
	s, err := NewDepthSearch(SearchConfig{MinDepth: 2, MaxDepth: 3, Metric: MetricF1}, nil)
	require.NoError(t, err)
	ds := sampleData()
	result, err := s.Run(context.Background(), ds, ds)
	require.NoError(t, err)
	for _, it := range result.Iterations {
		assert.Equal(t, it.Report.F1, it.Metric)
	}
}

func TestDepthSearchErrors(t *testing.T) {
	_, err := NewDepthSearch(SearchConfig{MinDepth: 4, MaxDepth: 2}, nil)
	assert.ErrorIs(t, err, ml.ErrMalformedInput)

	_, err = ParseMetric("auc")
	assert.ErrorIs(t, err, ml.ErrMalformedInput)

	s, err := NewDepthSearch(SearchConfig{MaxDepth: 2}, nil)
	require.NoError(t, err)
	_, err = s.Run(context.Background(), sampleData(), nil)
	assert.ErrorIs(t, err, ml.ErrEmptyDataset)

	_, err = s.Run(context.Background(), nil, sampleData())
	assert.ErrorIs(t, err, ml.ErrEmptyDataset)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = s.Run(ctx, sampleData(), sampleData())
	assert.ErrorIs(t, err, context.Canceled)
}
