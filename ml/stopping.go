package ml

// StopContext is what a stopping rule sees when a child has just been
// attached to its parent.
type StopContext struct {
	Parent   *TreeNode
	Child    *TreeNode
	Branch   bool
	MaxDepth int
}

// StoppingRule turns a freshly attached child into a leaf when Stop
// returns true.
type StoppingRule struct {
	Name string
	Stop func(StopContext) bool
}

const (
	RulePureSplit = "pure-split"
	RuleMaxDepth  = "max-depth"
	RulePlateau   = "plateau"
	RuleNoSplit   = "no-split"
)

// DefaultStoppingRules returns the induction stopping rules in evaluation
// order. The first rule that fires is recorded as the leaf's StopReason.
func DefaultStoppingRules() []StoppingRule {
	return []StoppingRule{
		{Name: RulePureSplit, Stop: pureSplit},
		{Name: RuleMaxDepth, Stop: maxDepthReached},
		{Name: RulePlateau, Stop: plateau},
		{Name: RuleNoSplit, Stop: noSplit},
	}
}

// pureSplit fires when the branch that produced the child holds one class only.
func pureSplit(c StopContext) bool {
	a, b := c.Parent.Features[c.Parent.NextFeature].Branch(c.Branch)
	return a == 0 || b == 0
}

func maxDepthReached(c StopContext) bool {
	return len(c.Child.Hypothesis) >= c.MaxDepth
}

// plateau fires when the parent's attribute, scored over the child's
// samples, is maximally impure.
func plateau(c StopContext) bool {
	return c.Child.Features[c.Parent.NextFeature].Remainder == 1
}

func noSplit(c StopContext) bool {
	return c.Child.NextFeature == NoSplit
}
