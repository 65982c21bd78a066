// Package matcher resolves free-text name phrases against a participant directory.
package matcher

import (
	"fmt"
	"sort"
	"strings"

	"github.com/mmynk/splitledger/internal/models"
)

// Threshold is the minimum score for a name phrase to resolve to a participant.
const Threshold = 60

const (
	scoreExact           = 100
	scoreNameContains    = 80
	scoreTokenContains   = 70
	scorePerSharedWord   = 20
	maxWordOverlapScore  = 60
	minSharedWordLength  = 3
	minSuggestionsPrefix = 2
)

var fillerWords = map[string]bool{
	"with":    true,
	"and":     true,
	"between": true,
	"among":   true,
	"for":     true,
	"to":      true,
}

// Normalize lower-cases s, collapses whitespace and trims leading
// conjunctions such as "with" and "and" along with stray commas.
func Normalize(s string) string {
	words := strings.Fields(strings.ToLower(s))
	for len(words) > 0 {
		w := strings.TrimLeft(words[0], ",")
		switch {
		case w == "" || fillerWords[strings.TrimRight(w, ",")]:
			words = words[1:]
			continue
		case w != words[0]:
			words[0] = w
		}
		break
	}
	return strings.Join(words, " ")
}

// Score returns a 0-100 confidence that token refers to a participant named name.
// It is pure: both inputs are normalized before comparison.
func Score(token, name string) int {
	t := Normalize(token)
	n := Normalize(name)
	if t == "" || n == "" {
		return 0
	}

	switch {
	case t == n:
		return scoreExact
	case strings.Contains(n, t):
		return scoreNameContains
	case strings.Contains(t, n):
		return scoreTokenContains
	}

	shared := sharedWords(t, n)
	if shared == 0 {
		return 0
	}
	return min(maxWordOverlapScore, scorePerSharedWord*shared)
}

// sharedWords counts distinct words longer than two characters present in both strings.
func sharedWords(a, b string) int {
	inB := make(map[string]bool)
	for _, w := range strings.Fields(b) {
		if len(w) >= minSharedWordLength {
			inB[w] = true
		}
	}
	seen := make(map[string]bool)
	count := 0
	for _, w := range strings.Fields(a) {
		if len(w) < minSharedWordLength || seen[w] {
			continue
		}
		seen[w] = true
		if inB[w] {
			count++
		}
	}
	return count
}

// Match is a resolved name phrase.
type Match struct {
	Participant models.Participant
	Score       int
}

// Resolve returns the best-scoring participant for token.
// Participants whose ID is in claimed are skipped. Ties keep the participant
// listed first. The match is accepted only when its score reaches Threshold.
func Resolve(token string, participants []models.Participant, claimed map[string]bool) (Match, bool) {
	best := Match{}
	found := false
	for _, p := range participants {
		if claimed[p.ID] {
			continue
		}
		score := Score(token, p.DisplayName)
		if !found || score > best.Score {
			best = Match{Participant: p, Score: score}
			found = true
		}
	}
	if !found || best.Score < Threshold {
		return Match{}, false
	}
	return best, true
}

// Suggest ranks participants that plausibly match an unresolved token:
// those scoring above zero or sharing a name prefix of at least two
// characters with it. Ranking is by score, then prefix length, then list order.
func Suggest(token string, participants []models.Participant) []models.Participant {
	t := Normalize(token)
	if t == "" {
		return nil
	}

	type ranked struct {
		p      models.Participant
		score  int
		prefix int
		index  int
	}
	var candidates []ranked
	for i, p := range participants {
		score := Score(t, p.DisplayName)
		prefix := longestSharedPrefix(t, Normalize(p.DisplayName))
		if score == 0 && prefix < minSuggestionsPrefix {
			continue
		}
		candidates = append(candidates, ranked{p: p, score: score, prefix: prefix, index: i})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		if candidates[i].prefix != candidates[j].prefix {
			return candidates[i].prefix > candidates[j].prefix
		}
		return candidates[i].index < candidates[j].index
	})

	out := make([]models.Participant, len(candidates))
	for i, c := range candidates {
		out[i] = c.p
	}
	return out
}

// longestSharedPrefix compares every word of token with every word of name.
func longestSharedPrefix(token, name string) int {
	best := 0
	for _, tw := range strings.Fields(token) {
		for _, nw := range strings.Fields(name) {
			n := 0
			for n < len(tw) && n < len(nw) && tw[n] == nw[n] {
				n++
			}
			best = max(best, n)
		}
	}
	return best
}

// UnmatchedNameError reports a name phrase that did not resolve to any
// participant, with ranked suggestions the caller can offer the user.
type UnmatchedNameError struct {
	Name        string
	Suggestions []models.Participant
}

func (e *UnmatchedNameError) Error() string {
	if len(e.Suggestions) == 0 {
		return fmt.Sprintf("no participant matches %q", e.Name)
	}
	names := make([]string, len(e.Suggestions))
	for i, s := range e.Suggestions {
		names[i] = s.DisplayName
	}
	return fmt.Sprintf("no participant matches %q (did you mean %s?)", e.Name, strings.Join(names, ", "))
}

// Unmatched builds an UnmatchedNameError for token with suggestions from participants.
func Unmatched(token string, participants []models.Participant) *UnmatchedNameError {
	return &UnmatchedNameError{Name: strings.TrimSpace(token), Suggestions: Suggest(token, participants)}
}
