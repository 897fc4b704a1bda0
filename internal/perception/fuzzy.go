package perception

import (
	"strings"

	"github.com/agnivade/levenshtein"
)

// Fuzzy similarity on a 0-100 scale. The resolver accepts feature arguments
// above 70; the search engine requires 91 before it will touch a file.

// Ratio returns the case-insensitive Levenshtein similarity of a and b.
func Ratio(a, b string) int {
	a = strings.ToLower(strings.TrimSpace(a))
	b = strings.ToLower(strings.TrimSpace(b))
	if a == b {
		return 100
	}
	longest := len(a)
	if len(b) > longest {
		longest = len(b)
	}
	if longest == 0 {
		return 100
	}
	dist := levenshtein.ComputeDistance(a, b)
	return (longest - dist) * 100 / longest
}

// partialRatio slides the shorter string over the longer one and returns the
// best window ratio. "oldgame" against "OldGame.exe" scores 100 this way,
// which a plain edit distance would not.
func partialRatio(a, b string) int {
	a = strings.ToLower(strings.TrimSpace(a))
	b = strings.ToLower(strings.TrimSpace(b))
	short, long := a, b
	if len(short) > len(long) {
		short, long = long, short
	}
	if len(short) == 0 {
		return 0
	}
	best := 0
	for i := 0; i+len(short) <= len(long); i++ {
		r := Ratio(short, long[i:i+len(short)])
		if r > best {
			best = r
			if best == 100 {
				break
			}
		}
	}
	return best
}

// Score combines full and windowed similarity into one 0-100 score.
func Score(query, candidate string) int {
	full := Ratio(query, candidate)
	part := partialRatio(query, candidate)
	if part > full {
		return part
	}
	return full
}

// BestMatch returns the candidate with the highest Score at or above cutoff.
// Ties keep the earlier candidate.
func BestMatch(query string, candidates []string, cutoff int) (match string, score int, ok bool) {
	best := -1
	for _, c := range candidates {
		s := Score(query, c)
		if s > best {
			best = s
			match = c
		}
	}
	if best < cutoff || best < 0 {
		return "", 0, false
	}
	return match, best, true
}
