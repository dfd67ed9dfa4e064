package ml

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func vec(set ...int) FeatureVector {
	v := make(FeatureVector, NumFeatures)
	for _, i := range set {
		v[i] = true
	}
	return v
}

func TestEntropy(t *testing.T) {
	assert.Equal(t, 0.0, Entropy(0))
	assert.Equal(t, 0.0, Entropy(1))
	assert.Equal(t, 1.0, Entropy(0.5))

	for _, p := range []float64{0.1, 0.25, 0.3, 0.45} {
		assert.InDelta(t, Entropy(p), Entropy(1-p), 1e-12, "p=%v", p)
		assert.Greater(t, Entropy(p), 0.0)
		assert.Less(t, Entropy(p), 1.0)
	}
}

func TestScoreAttributesCounts(t *testing.T) {
	ds := Dataset{
		{Features: vec(0, 1), Label: English},
		{Features: vec(0), Label: Dutch},
		{Features: vec(1), Label: Dutch},
		{Features: vec(), Label: Dutch},
	}
	stats := ScoreAttributes(ds, []int{0, 1, 2, 3})

	assert.Len(t, stats, NumFeatures)
	assert.Equal(t, AttributeStats{TrueA: 1, TrueB: 1, FalseA: 0, FalseB: 2, Remainder: 0.5}, stats[0])
	assert.Equal(t, stats[0], stats[1])

	// constant-false attribute: pFalse = 1/4
	assert.Equal(t, 0, stats[5].TrueA+stats[5].TrueB)
	assert.InDelta(t, Entropy(0.25), stats[5].Remainder, 1e-12)
}

func TestScoreAttributesEmptySubset(t *testing.T) {
	ds := Dataset{{Features: vec(0), Label: English}}
	stats := ScoreAttributes(ds, nil)
	for i, s := range stats {
		assert.Equal(t, AttributeStats{}, s, "attribute %d", i)
	}
	assert.Equal(t, NoSplit, LeastRemainder(stats))
}

func TestLeastRemainderPicksUniqueMinimum(t *testing.T) {
	stats := make([]AttributeStats, NumFeatures)
	for i := range stats {
		stats[i].Remainder = 0.9
	}
	stats[6].Remainder = 0.2
	stats[3].Remainder = 0.4

	got := LeastRemainder(stats)
	assert.Equal(t, 6, got)
	for i, s := range stats {
		assert.LessOrEqual(t, stats[got].Remainder, s.Remainder, "attribute %d", i)
	}
}

func TestLeastRemainderTieReturnsNoSplit(t *testing.T) {
	stats := make([]AttributeStats, NumFeatures)
	for i := range stats {
		stats[i].Remainder = 0.7
	}
	stats[2].Remainder = 0.1
	stats[8].Remainder = 0.1
	assert.Equal(t, NoSplit, LeastRemainder(stats))
}

func TestLeastRemainderAllMaximal(t *testing.T) {
	stats := make([]AttributeStats, NumFeatures)
	for i := range stats {
		stats[i].Remainder = 1
	}
	assert.Equal(t, NoSplit, LeastRemainder(stats))
}

func TestSplitSamples(t *testing.T) {
	ds := Dataset{
		{Features: vec(4), Label: English},
		{Features: vec(), Label: Dutch},
		{Features: vec(4, 5), Label: Dutch},
	}
	trueSide, falseSide := splitSamples(ds, []int{0, 1, 2}, 4)
	assert.Equal(t, []int{0, 2}, trueSide)
	assert.Equal(t, []int{1}, falseSide)
}
