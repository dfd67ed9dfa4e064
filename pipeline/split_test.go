package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"langclass/ml"
)

func dataset(n int) ml.Dataset {
	ds := make(ml.Dataset, n)
	for i := range ds {
		v := make(ml.FeatureVector, ml.NumFeatures)
		v[i%ml.NumFeatures] = true
		label := ml.English
		if i%2 == 1 {
			label = ml.Dutch
		}
		ds[i] = ml.LabeledExample{Features: v, Label: label}
	}
	return ds
}

func TestSplitDataset(t *testing.T) {
	ds := dataset(50)
	train, test := SplitDataset(ds, 0.2, 7)
	assert.Len(t, train, 40)
	assert.Len(t, test, 10)
	assert.ElementsMatch(t, ds, append(append(ml.Dataset{}, train...), test...))

	train2, test2 := SplitDataset(ds, 0.2, 7)
	assert.Equal(t, train, train2)
	assert.Equal(t, test, test2)
}

func TestSplitDatasetRatioOutOfRange(t *testing.T) {
	ds := dataset(12)
	for _, ratio := range []float64{0, -1, 1, 1.5} {
		train, test := SplitDataset(ds, ratio, 1)
		assert.Equal(t, ds, train)
		assert.Empty(t, test)
	}
}
