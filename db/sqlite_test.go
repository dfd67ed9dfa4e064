package db

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"langclass/ml"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "data", "langclass.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func trainedAdaBoost(t *testing.T) *ml.AdaBoost {
	t.Helper()
	a := ml.NewAdaBoost()
	a.Weights = ml.WeightVector{1, 0.5, 0, 0, 0, 0, 0, 0, 0, 2}
	return a
}

func TestSaveAndLoadModel(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	a := trainedAdaBoost(t)
	rec, err := store.SaveModel(ctx, "ada", a, 42)
	require.NoError(t, err)
	assert.Len(t, rec.ID, 36)
	assert.Equal(t, ml.KindAdaBoost, rec.Kind)

	byName, gotRec, err := store.LoadModel(ctx, "ada")
	require.NoError(t, err)
	assert.Equal(t, a, byName)
	assert.Equal(t, rec.ID, gotRec.ID)
	assert.Equal(t, 42, gotRec.Examples)
	assert.WithinDuration(t, rec.CreatedAt, gotRec.CreatedAt, time.Second)

	byID, _, err := store.LoadModel(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, a, byID)
}

func TestLoadModelReturnsNewestVersion(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	first := trainedAdaBoost(t)
	_, err := store.SaveModel(ctx, "m", first, 1)
	require.NoError(t, err)

	second := trainedAdaBoost(t)
	second.Weights[0] = 7
	latest, err := store.SaveModel(ctx, "m", second, 2)
	require.NoError(t, err)

	m, rec, err := store.LoadModel(ctx, "m")
	require.NoError(t, err)
	assert.Equal(t, latest.ID, rec.ID)
	assert.Equal(t, second, m)

	records, err := store.ListModels(ctx)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, latest.ID, records[0].ID)
}

func TestLoadModelNotFound(t *testing.T) {
	_, _, err := openTestStore(t).LoadModel(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrModelNotFound)
}

func TestSaveTreeRecordsDepth(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	ds := ml.Dataset{
		{Features: ml.FeatureVector{true, false, false, false, false, false, false, false, false, false}, Label: ml.Dutch},
		{Features: make(ml.FeatureVector, ml.NumFeatures), Label: ml.English},
	}
	tree, err := ml.TrainTree(ds, 3)
	require.NoError(t, err)

	rec, err := store.SaveModel(ctx, "dt", tree, len(ds))
	require.NoError(t, err)
	assert.Equal(t, 3, rec.MaxDepth)

	m, _, err := store.LoadModel(ctx, "dt")
	require.NoError(t, err)
	label, err := m.Predict(ds[0].Features)
	require.NoError(t, err)
	assert.Equal(t, ml.Dutch, label)
}

func TestTrainingLogs(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	rec, err := store.SaveModel(ctx, "ada", trainedAdaBoost(t), 10)
	require.NoError(t, err)
	require.NoError(t, store.LogTraining(ctx, NewTrainingLog(rec, ml.Report{Accuracy: 0.9, Precision: 0.8, Recall: 0.7, F1: 0.75})))
	require.NoError(t, store.LogTraining(ctx, TrainingLog{ModelName: "later", Kind: ml.KindTree, Accuracy: 0.5}))

	logs, err := store.TrainingLogs(ctx, 0)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, "later", logs[0].ModelName)
	assert.Equal(t, rec.ID, logs[1].ModelID)
	assert.Equal(t, 10, logs[1].DataPoints)
	assert.InDelta(t, 0.75, logs[1].F1, 1e-12)

	limited, err := store.TrainingLogs(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestLogPredictions(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	require.NoError(t, store.LogPredictions(ctx, "ada", nil))
	require.NoError(t, store.LogPredictions(ctx, "ada", []Prediction{
		{Sentence: "een kat", Label: ml.Dutch, Score: 1.5},
		{Sentence: "the cat", Label: ml.English, Score: -2},
		{Sentence: "de hond", Label: ml.Dutch, Score: 0.5},
	}))

	counts, err := store.CountPredictions(ctx, "ada")
	require.NoError(t, err)
	assert.Equal(t, map[ml.Label]int{ml.Dutch: 2, ml.English: 1}, counts)
}
