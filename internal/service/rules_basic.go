package service

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/docrankhq/docrank/internal/model"
)

// RankFilesByBasicRules evaluates every basic rule against every file's
// metadata. A file satisfies a rule only when all of the rule's predicates
// hold. The total score is the weight sum of satisfied rules normalized by
// the number of applied rules; a file with zero applicable rules scores 0,
// it is never excluded by basic rules alone.
func RankFilesByBasicRules(rules []model.Rule, files []model.File) []model.BasicRuleRanking {
	basic := make([]model.Rule, 0, len(rules))
	for _, r := range rules {
		if r.Type == model.RuleTypeBasic {
			basic = append(basic, r)
		}
	}
	rankings := make([]model.BasicRuleRanking, 0, len(files))
	for _, file := range files {
		ranking := model.BasicRuleRanking{
			FileID:            file.ID,
			ComparisonResults: make(map[string]bool, len(basic)),
		}
		var weightSum float64
		for _, rule := range basic {
			satisfied := EvaluateBasicRule(rule, file.Metadata)
			ranking.ComparisonResults[rule.Name] = satisfied
			if satisfied {
				weightSum += rule.Weight
			}
		}
		if len(basic) > 0 {
			ranking.TotalScore = weightSum / float64(len(basic))
		}
		rankings = append(rankings, ranking)
	}
	return rankings
}

// EvaluateBasicRule applies the rule's predicate list with AND semantics.
// A rule without predicates matches nothing.
func EvaluateBasicRule(rule model.Rule, metadata map[string]interface{}) bool {
	if len(rule.Predicates) == 0 {
		return false
	}
	for _, p := range rule.Predicates {
		if !evaluatePredicate(p, metadata) {
			return false
		}
	}
	return true
}

func evaluatePredicate(p model.Predicate, metadata map[string]interface{}) bool {
	attr, found := lookupPath(metadata, p.Attribute)
	if !found {
		// A missing attribute satisfies only the negated comparators.
		switch p.Comparator {
		case model.ComparatorNe, model.ComparatorNotContain, model.ComparatorNotRegexMatch, model.ComparatorNin:
			return true
		default:
			return false
		}
	}
	switch p.Comparator {
	case model.ComparatorEq:
		return valuesEqual(attr, p.Value)
	case model.ComparatorNe:
		return !valuesEqual(attr, p.Value)
	case model.ComparatorGt:
		return compareNumeric(attr, p.Value, func(a, b float64) bool { return a > b })
	case model.ComparatorGte:
		return compareNumeric(attr, p.Value, func(a, b float64) bool { return a >= b })
	case model.ComparatorLt:
		return compareNumeric(attr, p.Value, func(a, b float64) bool { return a < b })
	case model.ComparatorLte:
		return compareNumeric(attr, p.Value, func(a, b float64) bool { return a <= b })
	case model.ComparatorContain:
		return contains(attr, p.Value)
	case model.ComparatorNotContain:
		return !contains(attr, p.Value)
	case model.ComparatorLike:
		return matchLike(attr, p.Value)
	case model.ComparatorRegexMatch:
		return matchRegex(attr, p.Value)
	case model.ComparatorNotRegexMatch:
		return !matchRegex(attr, p.Value)
	case model.ComparatorIn:
		return inList(attr, p.Value)
	case model.ComparatorNin:
		return !inList(attr, p.Value)
	default:
		return false
	}
}

// lookupPath walks a dotted path into nested metadata objects.
func lookupPath(metadata map[string]interface{}, path string) (interface{}, bool) {
	if path == "" {
		return nil, false
	}
	parts := strings.Split(path, ".")
	var current interface{} = metadata
	for _, part := range parts {
		obj, ok := current.(map[string]interface{})
		if !ok {
			return nil, false
		}
		current, ok = obj[part]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

func valuesEqual(a, b interface{}) bool {
	if fa, oka := asFloat(a); oka {
		if fb, okb := asFloat(b); okb {
			return fa == fb
		}
	}
	if ba, oka := a.(bool); oka {
		if bb, okb := b.(bool); okb {
			return ba == bb
		}
	}
	sa, oka := asString(a)
	sb, okb := asString(b)
	if oka && okb {
		return sa == sb
	}
	return false
}

func compareNumeric(a, b interface{}, cmp func(a, b float64) bool) bool {
	fa, oka := asFloat(a)
	fb, okb := asFloat(b)
	if !oka || !okb {
		return false
	}
	return cmp(fa, fb)
}

func contains(attr, value interface{}) bool {
	if list, ok := attr.([]interface{}); ok {
		for _, item := range list {
			if valuesEqual(item, value) {
				return true
			}
		}
		return false
	}
	sa, oka := asString(attr)
	sv, okv := asString(value)
	if !oka || !okv {
		return false
	}
	return strings.Contains(strings.ToLower(sa), strings.ToLower(sv))
}

// matchLike implements SQL LIKE semantics: % matches any sequence, _ a
// single character, comparison is case-insensitive.
func matchLike(attr, value interface{}) bool {
	sa, oka := asString(attr)
	pattern, okv := asString(value)
	if !oka || !okv {
		return false
	}
	var sb strings.Builder
	sb.WriteString("(?is)^")
	for _, r := range pattern {
		switch r {
		case '%':
			sb.WriteString(".*")
		case '_':
			sb.WriteString(".")
		default:
			sb.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	sb.WriteString("$")
	re, err := regexp.Compile(sb.String())
	if err != nil {
		return false
	}
	return re.MatchString(sa)
}

func matchRegex(attr, value interface{}) bool {
	sa, oka := asString(attr)
	pattern, okv := asString(value)
	if !oka || !okv {
		return false
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return false
	}
	return re.MatchString(sa)
}

func inList(attr, value interface{}) bool {
	list, ok := value.([]interface{})
	if !ok {
		return false
	}
	for _, item := range list {
		if valuesEqual(attr, item) {
			return true
		}
	}
	return false
}

func asFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

func asString(v interface{}) (string, bool) {
	switch s := v.(type) {
	case string:
		return s, true
	case float64, float32, int, int32, int64, bool:
		return fmt.Sprintf("%v", s), true
	default:
		return "", false
	}
}
