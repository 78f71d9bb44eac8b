// Package conflict decides whether a candidate value may overwrite, merge
// with, or be discarded against an existing knowledge-base field value.
//
// Decision table, in order:
//  1. current empty (nil / "" / empty array) -> replace, apply
//  2. both arrays                            -> merge (dedup union), apply
//  3. both strings, equal (fold+trim)        -> keep, no-op
//     both strings, confidence >= high       -> replace, apply, track history
//     both strings otherwise                 -> keep
//  4. both plain objects                     -> merge, apply
//  5. any other shape mismatch               -> keep
//
// History is tracked only for the string replace, the one case where
// human-provided data is silently overwritten.
package conflict

import "strings"

type Strategy string

const (
	StrategyReplace Strategy = "replace"
	StrategyMerge   Strategy = "merge"
	StrategyKeep    Strategy = "keep"
	StrategyAppend  Strategy = "append"
)

type Resolution struct {
	ShouldApply  bool
	Strategy     Strategy
	Reason       string
	TrackHistory bool
}

// DefaultHighConfidence is the string-replace override threshold used when no
// configuration is injected.
const DefaultHighConfidence = 90

// Resolve applies the decision table to (current, candidate) at the given
// confidence. fieldName only decorates the reason text.
func Resolve(current, candidate interface{}, confidence int, fieldName string, highConfidence int) Resolution {
	if highConfidence <= 0 {
		highConfidence = DefaultHighConfidence
	}

	if isEmpty(current) {
		return Resolution{
			ShouldApply: true,
			Strategy:    StrategyReplace,
			Reason:      "no existing value for " + fieldName,
		}
	}

	if isArray(current) && isArray(candidate) {
		return Resolution{
			ShouldApply: true,
			Strategy:    StrategyMerge,
			Reason:      "array values merge additively",
		}
	}

	currentStr, currentIsStr := current.(string)
	candidateStr, candidateIsStr := candidate.(string)
	if currentIsStr && candidateIsStr {
		if foldEqual(currentStr, candidateStr) {
			return Resolution{
				ShouldApply: false,
				Strategy:    StrategyKeep,
				Reason:      "candidate equals existing value",
			}
		}
		if confidence >= highConfidence {
			return Resolution{
				ShouldApply:  true,
				Strategy:     StrategyReplace,
				Reason:       "high-confidence claim overrides existing " + fieldName,
				TrackHistory: true,
			}
		}
		return Resolution{
			ShouldApply: false,
			Strategy:    StrategyKeep,
			Reason:      "confidence insufficient to override existing value",
		}
	}

	_, currentIsObj := current.(map[string]interface{})
	_, candidateIsObj := candidate.(map[string]interface{})
	if currentIsObj && candidateIsObj {
		return Resolution{
			ShouldApply: true,
			Strategy:    StrategyMerge,
			Reason:      "object values merge additively",
		}
	}

	return Resolution{
		ShouldApply: false,
		Strategy:    StrategyKeep,
		Reason:      "incompatible value shapes",
	}
}

// MergeStringSets unions two string lists, deduplicating case-insensitively
// and preserving first-seen order and casing.
func MergeStringSets(current, incoming []string) []string {
	seen := make(map[string]struct{}, len(current))
	merged := make([]string, 0, len(current)+len(incoming))
	for _, v := range current {
		key := strings.ToLower(strings.TrimSpace(v))
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		merged = append(merged, v)
	}
	for _, v := range incoming {
		key := strings.ToLower(strings.TrimSpace(v))
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		merged = append(merged, v)
	}
	return merged
}

// MergeObjects shallow-merges candidate keys over current, returning a new map.
func MergeObjects(current, candidate map[string]interface{}) map[string]interface{} {
	merged := make(map[string]interface{}, len(current)+len(candidate))
	for k, v := range current {
		merged[k] = v
	}
	for k, v := range candidate {
		merged[k] = v
	}
	return merged
}

func foldEqual(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

func isEmpty(v interface{}) bool {
	if v == nil {
		return true
	}
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t) == ""
	case []string:
		return len(t) == 0
	case []interface{}:
		return len(t) == 0
	case map[string]interface{}:
		return len(t) == 0
	}
	return false
}

func isArray(v interface{}) bool {
	switch v.(type) {
	case []interface{}, []string:
		return true
	}
	return false
}
