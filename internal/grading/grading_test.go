package grading

import (
	"testing"

	"github.com/quizforge/quizforge-backend/internal/model"
)

func question(qtype model.QuestionType, answer string, score int) model.Question {
	return model.Question{
		QuestionType: qtype,
		Answer:       answer,
		Score:        score,
	}
}

func TestGrade_SingleChoice(t *testing.T) {
	tests := []struct {
		name      string
		key       string
		submitted string
		correct   bool
	}{
		{name: "exact match", key: "A", submitted: "A", correct: true},
		{name: "case insensitive", key: "A", submitted: "a", correct: true},
		{name: "surrounding whitespace", key: "A", submitted: "  a  ", correct: true},
		{name: "wrong label", key: "A", submitted: "B", correct: false},
		{name: "empty submission", key: "A", submitted: "", correct: false},
		{name: "whitespace only submission", key: "A", submitted: "   ", correct: false},
		{name: "no splitting on comma", key: "A", submitted: "A,A", correct: false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := Grade(question(model.QuestionTypeSingleChoice, tc.key, 5), tc.submitted)
			assertVerdict(t, got, tc.correct, 5)
		})
	}
}

func TestGrade_MultipleChoice(t *testing.T) {
	tests := []struct {
		name      string
		key       string
		submitted string
		correct   bool
	}{
		{name: "same order", key: "A,B", submitted: "A,B", correct: true},
		{name: "order independent", key: "A,B", submitted: "B,A", correct: true},
		{name: "case and whitespace", key: "A,B", submitted: " b , A ", correct: true},
		{name: "duplicate label breaks equality", key: "A,B", submitted: "A,B,B", correct: false},
		{name: "duplicate in key breaks equality", key: "A,A,B", submitted: "A,B", correct: false},
		{name: "missing label", key: "A,B,C", submitted: "A,B", correct: false},
		{name: "extra label", key: "A,B", submitted: "A,B,C", correct: false},
		{name: "empty labels dropped", key: "A,B", submitted: "A,,B,", correct: true},
		{name: "empty submission", key: "A,B", submitted: "", correct: false},
		{name: "only commas", key: "A,B", submitted: ",,,", correct: false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := Grade(question(model.QuestionTypeMultipleChoice, tc.key, 10), tc.submitted)
			assertVerdict(t, got, tc.correct, 10)
		})
	}
}

func TestGrade_TrueFalse(t *testing.T) {
	tests := []struct {
		name      string
		key       string
		submitted string
		correct   bool
	}{
		{name: "exact", key: "True", submitted: "True", correct: true},
		{name: "uppercase", key: "True", submitted: "TRUE", correct: true},
		{name: "lowercase key", key: "false", submitted: "False", correct: true},
		{name: "opposite", key: "True", submitted: "False", correct: false},
		{name: "empty submission", key: "True", submitted: "", correct: false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := Grade(question(model.QuestionTypeTrueFalse, tc.key, 2), tc.submitted)
			assertVerdict(t, got, tc.correct, 2)
		})
	}
}

func TestGrade_ZeroScoreQuestion(t *testing.T) {
	got := Grade(question(model.QuestionTypeSingleChoice, "A", 0), "a")
	if !got.IsCorrect {
		t.Fatalf("expected correct verdict")
	}
	if got.Score != 0 {
		t.Fatalf("expected score 0, got %d", got.Score)
	}
}

func assertVerdict(t *testing.T, got Verdict, correct bool, fullScore int) {
	t.Helper()
	if got.IsCorrect != correct {
		t.Fatalf("expected is_correct=%v, got=%v", correct, got.IsCorrect)
	}
	want := 0
	if correct {
		want = fullScore
	}
	if got.Score != want {
		t.Fatalf("expected score=%d, got=%d", want, got.Score)
	}
}
