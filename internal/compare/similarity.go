package compare

import "strings"

// Strategy decides fuzzy equality of two canonical values that are not
// byte-equal. Strategies are selected per field kind from the rule file.
type Strategy interface {
	Name() string
	Equal(a, b string) bool
}

// Exact accepts only canonical byte equality, which the comparator already
// checked, so Equal is always false.
type Exact struct{}

func (Exact) Name() string { return "exact" }

func (Exact) Equal(_, _ string) bool { return false }

// Levenshtein accepts values whose edit-distance ratio meets a threshold.
// Ratio is 1 - distance/maxLen over runes.
type Levenshtein struct {
	Threshold float64
}

func (Levenshtein) Name() string { return "levenshtein" }

func (l Levenshtein) Equal(a, b string) bool {
	return Ratio(a, b) >= l.Threshold
}

// Ratio returns the normalized edit-distance similarity of two strings in
// [0, 1]. Identical strings score 1.
func Ratio(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	longest := len(ra)
	if len(rb) > longest {
		longest = len(rb)
	}
	if longest == 0 {
		return 1
	}
	return 1 - float64(distance(ra, rb))/float64(longest)
}

// distance is the classic two-row Levenshtein DP.
func distance(a, b []rune) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, min(curr[j-1]+1, prev[j-1]+cost))
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}

// Containment accepts when one canonical value contains the other, for
// address-like fields where one system stores a longer rendering.
type Containment struct{}

func (Containment) Name() string { return "containment" }

func (Containment) Equal(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	return strings.Contains(a, b) || strings.Contains(b, a)
}

// Jaccard accepts values whose lowercased word-set overlap ratio meets a
// threshold.
type Jaccard struct {
	Threshold float64
}

func (Jaccard) Name() string { return "jaccard" }

func (j Jaccard) Equal(a, b string) bool {
	wordsA := wordSet(a)
	wordsB := wordSet(b)
	if len(wordsA) == 0 || len(wordsB) == 0 {
		return false
	}

	intersection := 0
	for w := range wordsA {
		if wordsB[w] {
			intersection++
		}
	}
	union := len(wordsA)
	for w := range wordsB {
		if !wordsA[w] {
			union++
		}
	}
	return float64(intersection)/float64(union) >= j.Threshold
}

func wordSet(s string) map[string]bool {
	words := strings.Fields(s)
	set := make(map[string]bool, len(words))
	for _, w := range words {
		w = strings.Trim(w, ".,;:!?()[]{}\"'")
		if w != "" {
			set[w] = true
		}
	}
	return set
}
