package ml

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultStoppingRulesOrder(t *testing.T) {
	rules := DefaultStoppingRules()
	names := make([]string, len(rules))
	for i, r := range rules {
		names[i] = r.Name
	}
	assert.Equal(t, []string{RulePureSplit, RuleMaxDepth, RulePlateau, RuleNoSplit}, names)
}

func stopContext() StopContext {
	parent := &TreeNode{Features: make([]AttributeStats, NumFeatures), NextFeature: 2}
	parent.Features[2] = AttributeStats{TrueA: 3, TrueB: 2, FalseA: 1, FalseB: 4}
	child := &TreeNode{
		Features:    make([]AttributeStats, NumFeatures),
		NextFeature: 5,
		Hypothesis:  []Split{{Feature: 2, Value: true}},
	}
	return StopContext{Parent: parent, Child: child, Branch: true, MaxDepth: 3}
}

func TestPureSplitRule(t *testing.T) {
	c := stopContext()
	assert.False(t, pureSplit(c))

	c.Parent.Features[2].TrueB = 0
	assert.True(t, pureSplit(c))

	c = stopContext()
	c.Branch = false
	c.Parent.Features[2].FalseA = 0
	assert.True(t, pureSplit(c))
}

func TestMaxDepthRule(t *testing.T) {
	c := stopContext()
	assert.False(t, maxDepthReached(c))

	c.Child.Hypothesis = append(c.Child.Hypothesis, Split{Feature: 5}, Split{Feature: 6})
	assert.True(t, maxDepthReached(c))
}

func TestPlateauRuleReadsParentAttributeOnChild(t *testing.T) {
	c := stopContext()
	c.Child.Features[5].Remainder = 1
	assert.False(t, plateau(c))

	c.Child.Features[2].Remainder = 1
	assert.True(t, plateau(c))
}

func TestNoSplitRule(t *testing.T) {
	c := stopContext()
	assert.False(t, noSplit(c))
	c.Child.NextFeature = NoSplit
	assert.True(t, noSplit(c))
}

func TestCustomRulesStillStopOnNoSplit(t *testing.T) {
	depthOnly := []StoppingRule{{Name: RuleMaxDepth, Stop: maxDepthReached}}
	tree := NewDecisionTree(2, depthOnly...)
	require.NoError(t, tree.Train(synthetic(200, 21)))

	for i, n := range tree.Nodes {
		if n.Stop {
			assert.Contains(t, []string{RuleMaxDepth, RuleNoSplit}, n.StopReason, "node %d", i)
			continue
		}
		assert.NotEqual(t, NoSplit, n.NextFeature, "node %d", i)
	}
	assert.NoError(t, tree.validate())
}
