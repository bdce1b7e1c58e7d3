package model

const (
	RuleTypeBasic    = "basic"
	RuleTypeAdvanced = "advanced"
)

const (
	ComparatorEq            = "eq"
	ComparatorNe            = "ne"
	ComparatorGt            = "gt"
	ComparatorGte           = "gte"
	ComparatorLt            = "lt"
	ComparatorLte           = "lte"
	ComparatorContain       = "contain"
	ComparatorNotContain    = "not_contain"
	ComparatorLike          = "like"
	ComparatorRegexMatch    = "regex_match"
	ComparatorNotRegexMatch = "not_regex_match"
	ComparatorIn            = "in"
	ComparatorNin           = "nin"
)

// Predicate is a single comparator applied to a dotted path into file
// metadata. A basic rule holds an ordered list of these, combined with
// logical AND.
type Predicate struct {
	Attribute  string      `json:"attribute"`
	Comparator string      `json:"comparator"`
	Value      interface{} `json:"value"`
}

// Rule is a user-authored relevance rule. Basic rules carry Predicates and
// are evaluated against file metadata; advanced rules carry Question, a
// free-text yes/no question judged against chunk content by an LLM.
type Rule struct {
	ID         string      `json:"id"`
	UserID     string      `json:"user_id"`
	Name       string      `json:"name"`
	Type       string      `json:"type"`
	Weight     float64     `json:"weight"`
	Predicates []Predicate `json:"predicates,omitempty"`
	Question   string      `json:"question,omitempty"`
	Active     bool        `json:"active"`
	Ctime      int64       `json:"ctime"`
	Mtime      int64       `json:"mtime"`
}

// BasicRuleRanking is one file's result from the basic rule engine.
type BasicRuleRanking struct {
	FileID            string          `json:"file_id"`
	ComparisonResults map[string]bool `json:"comparison_results"`
	TotalScore        float64         `json:"total_score"`
}
