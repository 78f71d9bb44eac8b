package fieldmap

import (
	"strings"
	"unicode"

	"org-knowledge-be/internal/entity"
)

// Words that start with a capital in running text but are never tool names.
var toolScanStopwords = map[string]struct{}{
	"we": {}, "our": {}, "the": {}, "they": {}, "it": {}, "this": {},
	"that": {}, "a": {}, "an": {}, "i": {}, "you": {}, "and": {}, "for": {},
	"with": {}, "all": {}, "every": {}, "when": {}, "after": {}, "before": {},
	"team": {}, "monday": {}, "tuesday": {}, "wednesday": {}, "thursday": {},
	"friday": {}, "saturday": {}, "sunday": {},
}

var toolTLDSuffixes = []string{".com", ".io", ".app", ".ai", ".co", ".net", ".org"}

// ExtractTools pulls tool-name candidates from an event: explicit metadata
// (`newTool`, `tools`) first, a capitalized-token scan of the insight text as
// a last resort.
func ExtractTools(event *entity.LearningEvent) []string {
	var tools []string

	if event.Metadata != nil {
		if v, ok := event.Metadata["newTool"].(string); ok && strings.TrimSpace(v) != "" {
			tools = append(tools, strings.TrimSpace(v))
		}
		switch v := event.Metadata["tools"].(type) {
		case []interface{}:
			for _, item := range v {
				if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
					tools = append(tools, strings.TrimSpace(s))
				}
			}
		case []string:
			for _, s := range v {
				if strings.TrimSpace(s) != "" {
					tools = append(tools, strings.TrimSpace(s))
				}
			}
		case string:
			for _, s := range strings.Split(v, ",") {
				if strings.TrimSpace(s) != "" {
					tools = append(tools, strings.TrimSpace(s))
				}
			}
		}
	}

	if len(tools) == 0 {
		tools = scanCapitalizedTokens(event.Insight)
	}

	return dedupeTools(tools)
}

// NormalizeToolName produces the comparison key for a tool name: lowercased,
// punctuation-trimmed, trailing TLD stripped. "slack.com" and "Slack"
// normalize identically.
func NormalizeToolName(name string) string {
	n := strings.ToLower(strings.TrimSpace(name))
	n = strings.TrimFunc(n, func(r rune) bool {
		return unicode.IsPunct(r) && r != '.'
	})
	for _, suffix := range toolTLDSuffixes {
		if strings.HasSuffix(n, suffix) {
			n = strings.TrimSuffix(n, suffix)
			break
		}
	}
	return strings.TrimSuffix(n, ".")
}

// MergeToolStack unions incoming tools into the existing stack, matching on
// normalized names so near-duplicates collapse. Existing entries keep their
// stored casing/format; genuinely new tools are appended as extracted.
// Returns the merged stack and the names actually added.
func MergeToolStack(existing, incoming []string) (merged []string, added []string) {
	merged = make([]string, len(existing))
	copy(merged, existing)

	seen := make(map[string]struct{}, len(existing))
	for _, t := range existing {
		seen[NormalizeToolName(t)] = struct{}{}
	}

	for _, t := range incoming {
		key := NormalizeToolName(t)
		if key == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		merged = append(merged, cleanToolName(t))
		added = append(added, cleanToolName(t))
	}
	return merged, added
}

// cleanToolName keeps the candidate's own casing but trims surrounding
// punctuation so "Asana," stores as "Asana".
func cleanToolName(name string) string {
	return strings.TrimFunc(strings.TrimSpace(name), unicode.IsPunct)
}

func scanCapitalizedTokens(text string) []string {
	var tools []string
	for _, raw := range strings.Fields(text) {
		token := strings.TrimFunc(raw, unicode.IsPunct)
		if len(token) < 3 {
			continue
		}
		runes := []rune(token)
		if !unicode.IsUpper(runes[0]) {
			continue
		}
		if _, stop := toolScanStopwords[strings.ToLower(token)]; stop {
			continue
		}
		tools = append(tools, token)
	}
	return tools
}

func dedupeTools(tools []string) []string {
	seen := make(map[string]struct{}, len(tools))
	var out []string
	for _, t := range tools {
		key := NormalizeToolName(t)
		if key == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, t)
	}
	return out
}
