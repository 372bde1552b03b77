// Package grading implements the deterministic scoring rules applied to a
// submitted answer when an exam session is finished. Grading is a pure
// function of the question definition and the raw submitted text; it never
// touches storage.
package grading

import (
	"sort"
	"strings"

	"github.com/quizforge/quizforge-backend/internal/model"
)

// Verdict is the outcome of grading one answer slot.
type Verdict struct {
	IsCorrect bool
	Score     int
}

// Grade compares a raw submitted answer against a question's canonical
// answer and returns the verdict.
//
// All comparisons are case-insensitive and ignore surrounding whitespace.
// MULTIPLE_CHOICE answers are comma-joined label sets compared order-
// independently: both sides are split, trimmed, sorted, and compared for
// exact equality. Duplicate labels are not collapsed, so "A,B,B" does not
// match a key of "A,B". SINGLE_CHOICE and TRUE_FALSE compare the two
// normalized strings directly.
//
// A correct answer is worth the question's full score; anything else is
// worth zero. An empty submission never matches a non-empty key.
func Grade(q model.Question, submitted string) Verdict {
	got := strings.ToLower(strings.TrimSpace(submitted))
	want := strings.ToLower(strings.TrimSpace(q.Answer))

	var correct bool
	if q.QuestionType == model.QuestionTypeMultipleChoice {
		correct = equalLabelSets(splitLabels(got), splitLabels(want))
	} else {
		correct = got == want
	}

	if !correct {
		return Verdict{}
	}
	return Verdict{IsCorrect: true, Score: q.Score}
}

// splitLabels splits a comma-joined label string into sorted labels,
// dropping empty entries but keeping duplicates.
func splitLabels(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	labels := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			labels = append(labels, trimmed)
		}
	}
	sort.Strings(labels)
	return labels
}

func equalLabelSets(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
