package duplicate

import "strings"

// Normalize lower-cases s and collapses every run of whitespace to a single
// space, trimming both ends.
func Normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// Levenshtein returns the edit distance between a and b counted in runes.
func Levenshtein(a, b string) int {
	return levenshteinRunes([]rune(a), []rune(b))
}

func levenshteinRunes(a, b []rune) int {
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
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}

// StringSimilarity returns 1 - distance/maxLen over the normalized forms of
// a and b. An empty string on either side yields 0.
func StringSimilarity(a, b string) float64 {
	return runeSimilarity([]rune(Normalize(a)), []rune(Normalize(b)))
}

func runeSimilarity(a, b []rune) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	longest := max(len(a), len(b))
	return 1 - float64(levenshteinRunes(a, b))/float64(longest)
}
