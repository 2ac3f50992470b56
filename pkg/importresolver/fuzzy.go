package importresolver

import (
	"fmt"
	"path/filepath"
	"strings"
)

// FuzzyMatchError reports that local matching found more than one
// equally-close candidate. Open Question (spec.md §9): the source does
// not specify error vs. deterministic tiebreak for equal scores; this
// implementation fails rather than silently picking one, since an
// arbitrary tiebreak on an import path is a worse surprise than asking
// the author to disambiguate (decision recorded in DESIGN.md).
type FuzzyMatchError struct {
	Target     string
	Candidates []string
}

func (e *FuzzyMatchError) Error() string {
	return fmt.Sprintf("ambiguous import %q: matches %v equally closely", e.Target, e.Candidates)
}

// FuzzyMatchThreshold is the default maximum edit distance considered a
// plausible match (spec.md §4.E: "a configurable edit-distance/score
// threshold").
const FuzzyMatchThreshold = 2

// FuzzyMatch finds the closest sibling to target among siblings (file
// names, not full paths) within FuzzyMatchThreshold edits. Returns the
// literal target unchanged if it's already among siblings. Fails if two
// or more siblings tie for the best score.
func FuzzyMatch(target string, siblings []string) (string, error) {
	for _, s := range siblings {
		if s == target {
			return target, nil
		}
	}

	base := strings.TrimSuffix(filepath.Base(target), filepath.Ext(target))
	best := FuzzyMatchThreshold + 1
	var bestMatches []string

	for _, s := range siblings {
		sBase := strings.TrimSuffix(filepath.Base(s), filepath.Ext(s))
		d := levenshtein(base, sBase)
		if d > FuzzyMatchThreshold {
			continue
		}
		if d < best {
			best = d
			bestMatches = []string{s}
		} else if d == best {
			bestMatches = append(bestMatches, s)
		}
	}

	switch len(bestMatches) {
	case 0:
		return "", fmt.Errorf("no fuzzy match for %q among %v", target, siblings)
	case 1:
		return bestMatches[0], nil
	default:
		return "", &FuzzyMatchError{Target: target, Candidates: bestMatches}
	}
}

func levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	la, lb := len(ra), len(rb)

	prev := make([]int, lb+1)
	curr := make([]int, lb+1)
	for j := 0; j <= lb; j++ {
		prev[j] = j
	}

	for i := 1; i <= la; i++ {
		curr[0] = i
		for j := 1; j <= lb; j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min3(curr[j-1]+1, prev[j]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[lb]
}

func min3(a, b, c int) int {
	m := a
	if b < m {
		m = b
	}
	if c < m {
		m = c
	}
	return m
}
