package ml

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// synthetic draws n random vectors labelled by an interaction of features
// 0, 3 and 7, with roughly one label in ten flipped.
func synthetic(n int, seed int64) Dataset {
	r := rand.New(rand.NewSource(seed))
	ds := make(Dataset, n)
	for i := range ds {
		v := make(FeatureVector, NumFeatures)
		for j := range v {
			v[j] = r.Intn(2) == 1
		}
		label := English
		if (v[0] && v[3]) || (!v[0] && v[7]) {
			label = Dutch
		}
		if r.Intn(10) == 0 {
			label = label.Other()
		}
		ds[i] = LabeledExample{Features: v, Label: label}
	}
	return ds
}

func TestTrainTreePerfectSplit(t *testing.T) {
	ds := Dataset{
		{Features: vec(0), Label: English},
		{Features: vec(0), Label: English},
		{Features: vec(), Label: Dutch},
		{Features: vec(), Label: Dutch},
	}
	tree, err := TrainTree(ds, 10)
	require.NoError(t, err)

	root := tree.Root()
	require.NotNil(t, root)
	assert.Equal(t, 0, root.NextFeature)
	assert.Equal(t, 0.0, root.Features[0].Remainder)
	assert.False(t, root.Stop)

	require.Len(t, tree.Nodes, 3)
	left, right := tree.Nodes[root.TrueBranch], tree.Nodes[root.FalseBranch]
	assert.True(t, left.Stop)
	assert.True(t, right.Stop)
	assert.Equal(t, RulePureSplit, left.StopReason)
	assert.Equal(t, RulePureSplit, right.StopReason)
	assert.Equal(t, English, left.Decision)
	assert.Equal(t, Dutch, right.Decision)
	assert.Equal(t, []Split{{Feature: 0, Value: true}}, left.Hypothesis)
	assert.Equal(t, []Split{{Feature: 0, Value: false}}, right.Hypothesis)
	assert.Equal(t, 0, left.Parent)
	assert.Equal(t, 0, right.Parent)

	assert.Equal(t, []int{root.TrueBranch, root.FalseBranch}, tree.Leaves)

	got, err := tree.PredictAll([]FeatureVector{vec(0), vec(), vec(0, 9)})
	require.NoError(t, err)
	assert.Equal(t, []Label{English, Dutch, English}, got)
}

func TestTrainTreeTiedRootBecomesLeaf(t *testing.T) {
	ds := Dataset{
		{Features: vec(0, 1), Label: English},
		{Features: vec(), Label: Dutch},
		{Features: vec(), Label: Dutch},
		{Features: vec(), Label: Dutch},
	}
	tree, err := TrainTree(ds, 10)
	require.NoError(t, err)

	require.Len(t, tree.Nodes, 1)
	root := tree.Root()
	assert.Equal(t, NoSplit, root.NextFeature)
	assert.True(t, root.Stop)
	assert.Equal(t, RuleNoSplit, root.StopReason)
	assert.Equal(t, noNode, root.TrueBranch)
	assert.Equal(t, noNode, root.FalseBranch)
	assert.Equal(t, Dutch, root.Decision)
	assert.Equal(t, []int{0}, tree.Leaves)

	label, err := tree.Predict(vec(0, 1))
	require.NoError(t, err)
	assert.Equal(t, Dutch, label)
}

func TestTrainTreeLearnsSingleFeature(t *testing.T) {
	ds := synthetic(200, 7)
	for i := range ds {
		ds[i].Label = English
		if ds[i].Features[2] {
			ds[i].Label = Dutch
		}
	}
	tree, err := TrainTree(ds, 0)
	require.NoError(t, err)
	assert.Equal(t, DefaultMaxDepth, tree.MaxDepth)
	assert.Equal(t, 2, tree.Root().NextFeature)

	report, err := Evaluate(tree, ds)
	require.NoError(t, err)
	assert.Equal(t, 1.0, report.Accuracy)
}

func TestTrainTreeStructuralInvariants(t *testing.T) {
	for _, depth := range []int{1, 2, 3, 10} {
		ds := synthetic(300, int64(depth))
		tree, err := TrainTree(ds, depth)
		require.NoError(t, err)

		leaves := 0
		for i, n := range tree.Nodes {
			if n.Stop {
				leaves++
				assert.Equal(t, noNode, n.TrueBranch, "leaf %d", i)
				assert.Equal(t, noNode, n.FalseBranch, "leaf %d", i)
				assert.LessOrEqual(t, len(n.Hypothesis), depth, "leaf %d", i)
				assert.NotEmpty(t, n.StopReason, "leaf %d", i)
				continue
			}
			require.NotEqual(t, noNode, n.TrueBranch, "node %d", i)
			require.NotEqual(t, noNode, n.FalseBranch, "node %d", i)
			assert.Equal(t, i, tree.Nodes[n.TrueBranch].Parent)
			assert.Equal(t, i, tree.Nodes[n.FalseBranch].Parent)
			assert.Equal(t, n.Size, tree.Nodes[n.TrueBranch].Size+tree.Nodes[n.FalseBranch].Size)
		}
		assert.Len(t, tree.Leaves, leaves)
		assert.LessOrEqual(t, tree.Depth(), depth)
		assert.NoError(t, tree.validate())
	}
}

func TestCollectLeavesTrueBranchFirst(t *testing.T) {
	tree, err := TrainTree(synthetic(300, 11), 4)
	require.NoError(t, err)

	var want []int
	var walk func(int)
	walk = func(idx int) {
		n := tree.Nodes[idx]
		if n.Stop {
			want = append(want, idx)
			return
		}
		walk(n.TrueBranch)
		walk(n.FalseBranch)
	}
	walk(0)

	assert.Equal(t, want, tree.CollectLeaves())
	assert.Len(t, tree.LeafNodes(), len(want))
}

func TestPredictIsDeterministic(t *testing.T) {
	ds := synthetic(250, 3)
	tree, err := TrainTree(ds, 10)
	require.NoError(t, err)

	for _, ex := range ds[:50] {
		first, err := tree.Predict(ex.Features)
		require.NoError(t, err)
		second, err := tree.Predict(ex.Features)
		require.NoError(t, err)
		assert.Equal(t, first, second)
	}
}

func TestTreeDecisionTieFavoursEnglish(t *testing.T) {
	ds := Dataset{
		{Features: vec(4), Label: English},
		{Features: vec(4), Label: Dutch},
		{Features: vec(), Label: Dutch},
		{Features: vec(), Label: Dutch},
		{Features: vec(), Label: Dutch},
	}
	tree, err := TrainTree(ds, 10)
	require.NoError(t, err)

	root := tree.Root()
	require.Equal(t, 4, root.NextFeature)
	assert.Equal(t, Dutch, root.Decision)

	tied := tree.Nodes[root.TrueBranch]
	assert.Equal(t, English, tied.Decision)
	assert.True(t, tied.Stop)
	// the branch is 1:1 on feature 4, so it stops on the plateau rule
	assert.Equal(t, RulePlateau, tied.StopReason)

	pure := tree.Nodes[root.FalseBranch]
	assert.Equal(t, Dutch, pure.Decision)
	assert.Equal(t, RulePureSplit, pure.StopReason)
}

func TestTrainTreeRejectsMalformedInput(t *testing.T) {
	_, err := TrainTree(nil, 10)
	assert.ErrorIs(t, err, ErrEmptyDataset)

	_, err = TrainTree(Dataset{{Features: FeatureVector{true, false}, Label: English}}, 10)
	assert.ErrorIs(t, err, ErrMalformedInput)

	_, err = TrainTree(Dataset{{Features: vec(1), Label: "fr"}}, 10)
	assert.ErrorIs(t, err, ErrMalformedInput)
}

func TestPredictErrors(t *testing.T) {
	_, err := NewDecisionTree(3).Predict(vec())
	assert.ErrorIs(t, err, ErrNotTrained)

	tree, err := TrainTree(synthetic(100, 5), 3)
	require.NoError(t, err)

	_, err = tree.Predict(FeatureVector{true, true, true})
	assert.ErrorIs(t, err, ErrMalformedInput)

	_, err = tree.PredictAll([]FeatureVector{vec(), vec(1)[:9]})
	assert.ErrorIs(t, err, ErrMalformedInput)

	root := tree.Root()
	require.False(t, root.Stop)
	root.TrueBranch = noNode
	root.FalseBranch = noNode
	_, err = tree.Predict(vec())
	assert.ErrorIs(t, err, ErrInternalConsistency)
	assert.ErrorIs(t, tree.validate(), ErrInternalConsistency)
}

func TestNodeString(t *testing.T) {
	n := TreeNode{
		Hypothesis: []Split{{Feature: 3, Value: true}, {Feature: 1, Value: false}},
		Decision:   Dutch,
	}
	assert.Equal(t, "Decision list: [(3, true), (1, false)] Decision: nl", n.String())
}
