package pipeline

import (
	"strings"
	"unicode"
)

// CleaningRule rewrites one raw input line. Returning keep=false drops it.
type CleaningRule interface {
	Apply(line string) (out string, keep bool)
	Name() string
}

// CleaningStats counts what the cleaner did to a stream of lines.
type CleaningStats struct {
	TotalProcessed int            `json:"total_processed"`
	Passed         int            `json:"passed"`
	Dropped        int            `json:"dropped"`
	Corrected      int            `json:"corrected"`
	DroppedBy      map[string]int `json:"dropped_by"`
}

// LineCleaner runs every rule over each line, in order.
type LineCleaner struct {
	rules []CleaningRule
	stats CleaningStats
}

// NewLineCleaner applies rules in order; no rules means DefaultCleaningRules.
func NewLineCleaner(rules ...CleaningRule) *LineCleaner {
	if len(rules) == 0 {
		rules = DefaultCleaningRules()
	}
	return &LineCleaner{
		rules: rules,
		stats: CleaningStats{DroppedBy: make(map[string]int)},
	}
}

// DefaultCleaningRules normalise a line and drop blank and # comment lines.
func DefaultCleaningRules() []CleaningRule {
	return []CleaningRule{
		controlCharRule{},
		whitespaceRule{},
		blankLineRule{},
		commentRule{},
	}
}

// SentenceCleaningRules normalise a line without ever dropping it, so
// prediction output stays aligned with its input lines.
func SentenceCleaningRules() []CleaningRule {
	return []CleaningRule{
		controlCharRule{},
		whitespaceRule{},
	}
}

// AddRule appends rule to the chain.
func (lc *LineCleaner) AddRule(rule CleaningRule) {
	lc.rules = append(lc.rules, rule)
}

// Clean returns the cleaned line and whether it survived every rule.
func (lc *LineCleaner) Clean(line string) (string, bool) {
	lc.stats.TotalProcessed++
	original := line
	for _, rule := range lc.rules {
		var keep bool
		line, keep = rule.Apply(line)
		if !keep {
			lc.stats.Dropped++
			lc.stats.DroppedBy[rule.Name()]++
			return "", false
		}
	}
	if line != original {
		lc.stats.Corrected++
	}
	lc.stats.Passed++
	return line, true
}

// Stats returns a copy of the counters so far.
func (lc *LineCleaner) Stats() CleaningStats {
	s := lc.stats
	s.DroppedBy = make(map[string]int, len(lc.stats.DroppedBy))
	for k, v := range lc.stats.DroppedBy {
		s.DroppedBy[k] = v
	}
	return s
}

type controlCharRule struct{}

func (controlCharRule) Name() string { return "control_chars" }

func (controlCharRule) Apply(line string) (string, bool) {
	return strings.Map(func(r rune) rune {
		if r == '\t' {
			return ' '
		}
		if unicode.IsControl(r) || r == '\uFEFF' {
			return -1
		}
		return r
	}, line), true
}

// whitespaceRule trims the line and collapses inner runs of spaces.
type whitespaceRule struct{}

func (whitespaceRule) Name() string { return "whitespace" }

func (whitespaceRule) Apply(line string) (string, bool) {
	return strings.Join(strings.Fields(line), " "), true
}

type blankLineRule struct{}

func (blankLineRule) Name() string { return "blank" }

func (blankLineRule) Apply(line string) (string, bool) {
	return line, strings.TrimSpace(line) != ""
}

type commentRule struct{}

func (commentRule) Name() string { return "comment" }

func (commentRule) Apply(line string) (string, bool) {
	return line, !strings.HasPrefix(strings.TrimSpace(line), "#")
}
