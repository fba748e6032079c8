package keyword

import (
	"sort"
	"strings"
)

// Suggest proposes a corrected query when some terms do not occur in the index.
// Each unknown term is replaced by the closest indexed term within maxDistance edits,
// preferring smaller distance, then higher document frequency, then lexical order.
// ok is false when no term was changed.
func Suggest(query string, dictionary map[string]int, maxDistance int) (corrected string, ok bool) {
	terms := strings.Fields(strings.ToLower(query))
	if len(terms) == 0 || len(dictionary) == 0 {
		return "", false
	}
	candidates := make([]string, 0, len(dictionary))
	for t := range dictionary {
		candidates = append(candidates, t)
	}
	sort.Strings(candidates)

	for i, term := range terms {
		if _, known := dictionary[term]; known {
			continue
		}
		best, bestDist := "", maxDistance+1
		for _, c := range candidates {
			if abs(len([]rune(c))-len([]rune(term))) > maxDistance {
				continue
			}
			d := levenshtein(term, c)
			if d < bestDist || (d == bestDist && best != "" && dictionary[c] > dictionary[best]) {
				best, bestDist = c, d
			}
		}
		if best != "" {
			terms[i] = best
			ok = true
		}
	}
	if !ok {
		return "", false
	}
	return strings.Join(terms, " "), true
}

// levenshtein counts single-rune insertions, deletions and substitutions turning a into b.
func levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
