package service

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/quizforge/quizforge-backend/internal/model"
)

func TestBuildPaper_StripsAnswerKeys(t *testing.T) {
	examID := uuid.New()
	exam := &model.Exam{ID: examID, Title: "Algebra I", TimeLimitMinutes: 60, TotalScore: 15}
	questions := []model.Question{
		{ID: uuid.New(), ExamID: examID, Content: "2+2?", QuestionType: model.QuestionTypeSingleChoice,
			Options: json.RawMessage(`{"A":"3","B":"4"}`), Answer: "B", Score: 5, OrderNum: 1},
		{ID: uuid.New(), ExamID: examID, Content: "Primes?", QuestionType: model.QuestionTypeMultipleChoice,
			Options: json.RawMessage(`{"A":"2","B":"4","C":"5"}`), Answer: "A,C", Score: 10, OrderNum: 2},
	}

	paper := BuildPaper(exam, questions)

	if len(paper.Questions) != 2 {
		t.Fatalf("expected 2 questions, got %d", len(paper.Questions))
	}
	if paper.TotalScore != 15 {
		t.Fatalf("expected total score 15, got %d", paper.TotalScore)
	}

	raw, err := json.Marshal(paper)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	for _, q := range questions {
		var probe map[string]any
		b, _ := json.Marshal(q)
		_ = json.Unmarshal(b, &probe)
		if _, ok := probe["answer"]; !ok {
			t.Fatal("fixture question should carry an answer field")
		}
	}
	var decoded map[string]any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	qs := decoded["questions"].([]any)
	for i, item := range qs {
		if _, leaked := item.(map[string]any)["answer"]; leaked {
			t.Fatalf("question %d leaked its answer key into the paper", i)
		}
	}
}

func TestBuildPaper_PreservesQuestionOrder(t *testing.T) {
	examID := uuid.New()
	exam := &model.Exam{ID: examID}
	questions := []model.Question{
		{ID: uuid.New(), OrderNum: 1, Content: "first"},
		{ID: uuid.New(), OrderNum: 2, Content: "second"},
		{ID: uuid.New(), OrderNum: 3, Content: "third"},
	}

	paper := BuildPaper(exam, questions)
	for i, q := range paper.Questions {
		if q.Content != questions[i].Content {
			t.Fatalf("question %d out of order: %q", i, q.Content)
		}
	}
}
