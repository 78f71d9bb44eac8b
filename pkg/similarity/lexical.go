package similarity

import (
	"strings"
	"unicode"
)

// LexicalSimilarity scores two insight texts in [0,1] without embeddings:
// the max of token Jaccard overlap and normalized Levenshtein over the
// normalized forms. Token overlap catches reordered phrasings, edit distance
// catches small in-place rewrites.
func LexicalSimilarity(a, b string) float64 {
	aNorm := normalizeText(a)
	bNorm := normalizeText(b)
	if aNorm == "" || bNorm == "" {
		return 0
	}
	if aNorm == bNorm {
		return 1
	}
	j := tokenJaccard(aNorm, bNorm)
	l := normalizedLevenshtein(aNorm, bNorm)
	if j > l {
		return j
	}
	return l
}

// normalizeText lowercases, strips punctuation and collapses whitespace.
func normalizeText(s string) string {
	var sb strings.Builder
	sb.Grow(len(s))
	for _, r := range strings.ToLower(s) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			sb.WriteRune(r)
		case unicode.IsSpace(r):
			sb.WriteRune(' ')
		default:
			sb.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(sb.String()), " ")
}

func tokenJaccard(a, b string) float64 {
	aSet := map[string]struct{}{}
	for _, t := range strings.Fields(a) {
		aSet[t] = struct{}{}
	}
	bSet := map[string]struct{}{}
	for _, t := range strings.Fields(b) {
		bSet[t] = struct{}{}
	}
	if len(aSet) == 0 && len(bSet) == 0 {
		return 1
	}
	inter := 0
	for t := range aSet {
		if _, ok := bSet[t]; ok {
			inter++
		}
	}
	union := len(aSet) + len(bSet) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

func normalizedLevenshtein(a, b string) float64 {
	ar := []rune(a)
	br := []rune(b)
	maxLen := len(ar)
	if len(br) > maxLen {
		maxLen = len(br)
	}
	if maxLen == 0 {
		return 1
	}
	return 1 - float64(levenshtein(ar, br))/float64(maxLen)
}

func levenshtein(a, b []rune) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := 0; j <= len(b); j++ {
		prev[j] = j
	}

	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min3(
				prev[j]+1,      // deletion
				curr[j-1]+1,    // insertion
				prev[j-1]+cost, // substitution
			)
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}
