package ml

import (
	"fmt"
	"strings"
)

// DefaultMaxDepth bounds the split history of any node when no depth is given.
const DefaultMaxDepth = 10

const noNode = -1

// Split is one step of the path from the root to a node.
type Split struct {
	Feature int  `json:"feature"`
	Value   bool `json:"value"`
}

// TreeNode lives in the DecisionTree arena; all references are node indices
// and noNode (-1) means unset.
type TreeNode struct {
	Samples     []int            `json:"-"`
	Size        int              `json:"size"`
	Features    []AttributeStats `json:"features"`
	NextFeature int              `json:"next_feature"`
	TrueBranch  int              `json:"true_branch"`
	FalseBranch int              `json:"false_branch"`
	Parent      int              `json:"parent"`
	Stop        bool             `json:"stop"`
	StopReason  string           `json:"stop_reason,omitempty"`
	Decision    Label            `json:"decision"`
	Hypothesis  []Split          `json:"hypothesis"`
}

// String summarises the node for logs.
func (n TreeNode) String() string {
	parts := make([]string, len(n.Hypothesis))
	for i, s := range n.Hypothesis {
		parts[i] = fmt.Sprintf("(%d, %t)", s.Feature, s.Value)
	}
	return fmt.Sprintf("Decision list: [%s] Decision: %s", strings.Join(parts, ", "), n.Decision)
}

// DecisionTree is a binary tree stored as an arena: Nodes[0] is the root and
// children are referenced by index.
type DecisionTree struct {
	Nodes    []TreeNode `json:"nodes"`
	Leaves   []int      `json:"leaves"`
	MaxDepth int        `json:"max_depth"`

	rules    []StoppingRule
	examples Dataset
}

// NewDecisionTree returns an untrained tree. A non-positive maxDepth selects
// DefaultMaxDepth; no rules selects DefaultStoppingRules.
func NewDecisionTree(maxDepth int, rules ...StoppingRule) *DecisionTree {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	if len(rules) == 0 {
		rules = DefaultStoppingRules()
	}
	return &DecisionTree{MaxDepth: maxDepth, rules: rules}
}

// TrainTree induces a decision tree over ds.
func TrainTree(ds Dataset, maxDepth int) (*DecisionTree, error) {
	dt := NewDecisionTree(maxDepth)
	if err := dt.Train(ds); err != nil {
		return nil, err
	}
	return dt, nil
}

func (dt *DecisionTree) Kind() Kind { return KindTree }

// Train builds the whole tree eagerly and collects its leaves. Any previous
// tree is discarded.
func (dt *DecisionTree) Train(ds Dataset) error {
	if err := ds.Validate(); err != nil {
		return err
	}
	if dt.MaxDepth <= 0 {
		dt.MaxDepth = DefaultMaxDepth
	}
	if len(dt.rules) == 0 {
		dt.rules = DefaultStoppingRules()
	}
	dt.examples = ds
	dt.Nodes = nil
	dt.Leaves = nil
	defer func() { dt.examples = nil }()

	samples := make([]int, len(ds))
	english := 0
	for i, ex := range ds {
		samples[i] = i
		if ex.Label == English {
			english++
		}
	}
	root := dt.newNode(samples)
	dt.Nodes[root].Decision = majority(english, len(ds)-english)
	if dt.Nodes[root].NextFeature == NoSplit {
		dt.Nodes[root].Stop = true
		dt.Nodes[root].StopReason = RuleNoSplit
	}
	dt.induce(root)
	dt.CollectLeaves()
	return nil
}

func (dt *DecisionTree) newNode(samples []int) int {
	stats := ScoreAttributes(dt.examples, samples)
	dt.Nodes = append(dt.Nodes, TreeNode{
		Samples:     samples,
		Size:        len(samples),
		Features:    stats,
		NextFeature: LeastRemainder(stats),
		TrueBranch:  noNode,
		FalseBranch: noNode,
		Parent:      noNode,
		Decision:    English,
	})
	return len(dt.Nodes) - 1
}

func (dt *DecisionTree) induce(idx int) {
	node := &dt.Nodes[idx]
	if node.Stop {
		return
	}
	if node.NextFeature == NoSplit {
		node.Stop = true
		node.StopReason = RuleNoSplit
		return
	}
	trueSide, falseSide := splitSamples(dt.examples, node.Samples, node.NextFeature)
	left := dt.attach(idx, trueSide, true)
	right := dt.attach(idx, falseSide, false)
	dt.induce(left)
	dt.induce(right)
}

// attach creates the child for one branch of parent and applies the
// stopping rules to it.
func (dt *DecisionTree) attach(parent int, samples []int, value bool) int {
	child := dt.newNode(samples)
	p := &dt.Nodes[parent]
	c := &dt.Nodes[child]

	c.Parent = parent
	c.Hypothesis = make([]Split, 0, len(p.Hypothesis)+1)
	c.Hypothesis = append(c.Hypothesis, p.Hypothesis...)
	c.Hypothesis = append(c.Hypothesis, Split{Feature: p.NextFeature, Value: value})
	c.Decision = majority(p.Features[p.NextFeature].Branch(value))
	if value {
		p.TrueBranch = child
	} else {
		p.FalseBranch = child
	}

	sc := StopContext{Parent: p, Child: c, Branch: value, MaxDepth: dt.MaxDepth}
	for _, rule := range dt.rules {
		if rule.Stop(sc) {
			c.Stop = true
			c.StopReason = rule.Name
			break
		}
	}
	return child
}

// CollectLeaves gathers every leaf depth-first, true branch first. The
// result is for inspection only and does not affect prediction.
func (dt *DecisionTree) CollectLeaves() []int {
	dt.Leaves = dt.Leaves[:0]
	if len(dt.Nodes) > 0 {
		dt.collect(0)
	}
	return dt.Leaves
}

func (dt *DecisionTree) collect(idx int) {
	if idx == noNode {
		return
	}
	node := dt.Nodes[idx]
	if node.Stop {
		dt.Leaves = append(dt.Leaves, idx)
		return
	}
	dt.collect(node.TrueBranch)
	dt.collect(node.FalseBranch)
}

// LeafNodes returns copies of the collected leaves in collection order.
func (dt *DecisionTree) LeafNodes() []TreeNode {
	out := make([]TreeNode, 0, len(dt.Leaves))
	for _, idx := range dt.Leaves {
		out = append(out, dt.Nodes[idx])
	}
	return out
}

// Root returns the root node, or nil for an untrained tree.
func (dt *DecisionTree) Root() *TreeNode {
	if len(dt.Nodes) == 0 {
		return nil
	}
	return &dt.Nodes[0]
}

// Depth is the longest split history among the leaves.
func (dt *DecisionTree) Depth() int {
	depth := 0
	for _, n := range dt.Nodes {
		if n.Stop && len(n.Hypothesis) > depth {
			depth = len(n.Hypothesis)
		}
	}
	return depth
}

// Predict walks from the root to a leaf and returns its decision.
func (dt *DecisionTree) Predict(v FeatureVector) (Label, error) {
	if len(dt.Nodes) == 0 {
		return "", ErrNotTrained
	}
	if err := v.Validate(); err != nil {
		return "", err
	}
	idx := 0
	for steps := 0; steps <= len(dt.Nodes); steps++ {
		node := &dt.Nodes[idx]
		if node.Stop {
			return node.Decision, nil
		}
		if node.NextFeature < 0 || node.NextFeature >= NumFeatures {
			return "", fmt.Errorf("%w: node %d splits on feature %d", ErrInternalConsistency, idx, node.NextFeature)
		}
		next := node.FalseBranch
		if v[node.NextFeature] {
			next = node.TrueBranch
		}
		if next < 0 || next >= len(dt.Nodes) {
			return "", fmt.Errorf("%w: node %d has no %t branch", ErrInternalConsistency, idx, v[node.NextFeature])
		}
		idx = next
	}
	return "", fmt.Errorf("%w: traversal did not reach a leaf", ErrInternalConsistency)
}

// PredictAll labels every vector in order and stops at the first error.
func (dt *DecisionTree) PredictAll(vs []FeatureVector) ([]Label, error) {
	out := make([]Label, len(vs))
	for i, v := range vs {
		label, err := dt.Predict(v)
		if err != nil {
			return nil, fmt.Errorf("vector %d: %w", i, err)
		}
		out[i] = label
	}
	return out, nil
}

// validate checks the arena invariants of a decoded tree: internal nodes
// have both children, leaves have none, and child/parent indices agree.
func (dt *DecisionTree) validate() error {
	if len(dt.Nodes) == 0 {
		return ErrNotTrained
	}
	for i, n := range dt.Nodes {
		if len(n.Features) != NumFeatures {
			return fmt.Errorf("%w: node %d has %d attribute stats", ErrMalformedInput, i, len(n.Features))
		}
		if !n.Decision.Valid() {
			return fmt.Errorf("%w: node %d has decision %q", ErrMalformedInput, i, n.Decision)
		}
		if n.Stop {
			if n.TrueBranch != noNode || n.FalseBranch != noNode {
				return fmt.Errorf("%w: leaf %d has children", ErrInternalConsistency, i)
			}
			continue
		}
		for _, c := range []int{n.TrueBranch, n.FalseBranch} {
			if c <= i || c >= len(dt.Nodes) {
				return fmt.Errorf("%w: node %d has child index %d", ErrInternalConsistency, i, c)
			}
			if dt.Nodes[c].Parent != i {
				return fmt.Errorf("%w: node %d is not the parent of %d", ErrInternalConsistency, i, c)
			}
		}
	}
	return nil
}
