package ml

import "math"

// NoSplit marks a node whose attribute selection found no unique best split.
const NoSplit = -1

// AttributeStats holds the class counts of one attribute over a node's
// samples. A counts English rows and B counts Dutch rows.
type AttributeStats struct {
	TrueA     int     `json:"true_a"`
	TrueB     int     `json:"true_b"`
	FalseA    int     `json:"false_a"`
	FalseB    int     `json:"false_b"`
	Remainder float64 `json:"remainder"`
}

// Branch returns the two class counts for one side of the split.
func (s AttributeStats) Branch(value bool) (a, b int) {
	if value {
		return s.TrueA, s.TrueB
	}
	return s.FalseA, s.FalseB
}

// Entropy of a boolean variable that is true with probability p.
func Entropy(p float64) float64 {
	if p == 0 || p == 1 {
		return 0
	}
	return -(p*math.Log2(p) + (1-p)*math.Log2(1-p))
}

// ScoreAttributes computes per-attribute statistics over the given sample
// indices of ds.
func ScoreAttributes(ds Dataset, samples []int) []AttributeStats {
	stats := make([]AttributeStats, NumFeatures)
	total := float64(len(samples))
	for i := range stats {
		s := &stats[i]
		for _, j := range samples {
			ex := ds[j]
			switch {
			case ex.Features[i] && ex.Label == English:
				s.TrueA++
			case ex.Features[i] && ex.Label == Dutch:
				s.TrueB++
			case !ex.Features[i] && ex.Label == English:
				s.FalseA++
			case !ex.Features[i] && ex.Label == Dutch:
				s.FalseB++
			}
		}
		if total == 0 {
			continue
		}
		pTrue, pFalse := 0.0, 0.0
		if n := s.TrueA + s.TrueB; n != 0 {
			pTrue = float64(s.TrueA) / float64(n)
		}
		if n := s.FalseA + s.FalseB; n != 0 {
			pFalse = float64(s.FalseA) / float64(n)
		}
		s.Remainder = Entropy(pTrue)*float64(s.TrueA+s.TrueB)/total +
			Entropy(pFalse)*float64(s.FalseA+s.FalseB)/total
	}
	return stats
}

// LeastRemainder picks the attribute with the strictly smallest remainder.
// If another attribute shares that remainder the choice is undefined and
// NoSplit is returned.
func LeastRemainder(stats []AttributeStats) int {
	smallest := 1.0
	attribute := 0
	for i, s := range stats {
		if s.Remainder < smallest {
			smallest = s.Remainder
			attribute = i
		}
	}
	for i, s := range stats {
		if i != attribute && s.Remainder == smallest {
			return NoSplit
		}
	}
	return attribute
}

func splitSamples(ds Dataset, samples []int, feature int) (trueSide, falseSide []int) {
	trueSide = make([]int, 0, len(samples))
	falseSide = make([]int, 0, len(samples))
	for _, j := range samples {
		if ds[j].Features[feature] {
			trueSide = append(trueSide, j)
		} else {
			falseSide = append(falseSide, j)
		}
	}
	return trueSide, falseSide
}
