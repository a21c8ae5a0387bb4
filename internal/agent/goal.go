package agent

import (
	"regexp"
	"strings"
)

// GoalDetector decides whether an observation indicates the goal is done.
// Pluggable so tests can substitute a deterministic oracle for the phrase
// heuristics.
type GoalDetector interface {
	Achieved(goal, observation string) bool
}

// TagDetector is the default detector. Priority order:
//  1. an explicit status tag wins unconditionally, either way
//  2. negative phrases are checked before positive ones, so "not done yet"
//     never reads as done
//  3. a keyword-overlap heuristic needs half the goal keywords plus a
//     positive-outcome word
type TagDetector struct{}

var statusTagRe = regexp.MustCompile(`(?is)<status\s*>(.*?)</status\s*>`)

var (
	positiveStatuses = []string{"completed", "achieved", "done", "success"}
	negativeStatuses = []string{"incomplete", "pending", "continue", "in_progress"}

	negativePhrases = []string{
		"not yet", "not found", "not complete", "incomplete", "still need",
		"unable to", "could not", "couldn't", "failed to", "no results",
		"more information needed", "requires further",
	}
	positivePhrases = []string{
		"goal achieved", "task complete", "successfully completed",
		"found the answer", "objective met", "finished the task",
	}
	positiveWords = []string{"found", "completed", "achieved", "success", "done", "finished"}
)

func (TagDetector) Achieved(goal, observation string) bool {
	obs := strings.ToLower(observation)

	if m := statusTagRe.FindStringSubmatch(observation); m != nil {
		status := strings.ToLower(strings.TrimSpace(m[1]))
		for _, s := range positiveStatuses {
			if status == s {
				return true
			}
		}
		for _, s := range negativeStatuses {
			if status == s {
				return false
			}
		}
	}

	for _, p := range negativePhrases {
		if strings.Contains(obs, p) {
			return false
		}
	}
	for _, p := range positivePhrases {
		if strings.Contains(obs, p) {
			return true
		}
	}

	return keywordOverlap(goal, obs)
}

// keywordOverlap needs at least half the goal's significant words in the
// observation, plus one positive-outcome word.
func keywordOverlap(goal, obs string) bool {
	keywords := significantWords(goal)
	if len(keywords) == 0 {
		return false
	}
	matched := 0
	for _, w := range keywords {
		if strings.Contains(obs, w) {
			matched++
		}
	}
	if float64(matched)/float64(len(keywords)) < 0.5 {
		return false
	}
	for _, w := range positiveWords {
		if strings.Contains(obs, w) {
			return true
		}
	}
	return false
}

var stopWords = map[string]bool{
	"the": true, "a": true, "an": true, "and": true, "or": true, "of": true,
	"in": true, "on": true, "to": true, "for": true, "with": true, "is": true,
	"find": true, "get": true, "what": true, "how": true, "me": true,
}

func significantWords(goal string) []string {
	var out []string
	for _, w := range strings.Fields(strings.ToLower(goal)) {
		w = strings.Trim(w, ".,!?\"'")
		if len(w) > 2 && !stopWords[w] {
			out = append(out, w)
		}
	}
	return out
}
