package pipeline

import (
	"math"
	"math/rand"

	"langclass/ml"
)

// SplitDataset shuffles ds with the given seed and holds out testRatio of it.
// A ratio outside (0, 1) keeps every example for training.
func SplitDataset(ds ml.Dataset, testRatio float64, seed int64) (train, test ml.Dataset) {
	if testRatio <= 0 || testRatio >= 1 {
		return append(ml.Dataset(nil), ds...), nil
	}
	rnd := rand.New(rand.NewSource(seed))
	indices := rnd.Perm(len(ds))

	split := int(math.Round(float64(len(ds)) * (1 - testRatio)))
	for i, idx := range indices {
		if i < split {
			train = append(train, ds[idx])
		} else {
			test = append(test, ds[idx])
		}
	}
	return train, test
}
