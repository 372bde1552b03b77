package model

import (
	"encoding/json"

	"github.com/google/uuid"
)

// QuestionType enumerates the supported question kinds.
type QuestionType string

const (
	QuestionTypeSingleChoice   QuestionType = "SINGLE_CHOICE"
	QuestionTypeMultipleChoice QuestionType = "MULTIPLE_CHOICE"
	QuestionTypeTrueFalse      QuestionType = "TRUE_FALSE"
)

// Question represents a single exam question. Answer holds the canonical
// key: a single label for SINGLE_CHOICE, a comma-joined label set for
// MULTIPLE_CHOICE, or "True"/"False" for TRUE_FALSE. Options is a
// label→text JSON object, empty for TRUE_FALSE.
type Question struct {
	ID           uuid.UUID       `json:"id"`
	ExamID       uuid.UUID       `json:"exam_id"`
	Content      string          `json:"content"`
	QuestionType QuestionType    `json:"question_type"`
	Options      json.RawMessage `json:"options"`
	Answer       string          `json:"answer"`
	Score        int             `json:"score"`
	OrderNum     int             `json:"order_num"`
}

// QuestionForUser is a question without the answer key, sent to test-takers.
type QuestionForUser struct {
	ID           uuid.UUID       `json:"id"`
	Content      string          `json:"content"`
	QuestionType QuestionType    `json:"question_type"`
	Options      json.RawMessage `json:"options"`
	Score        int             `json:"score"`
	OrderNum     int             `json:"order_num"`
}

// ForUser strips the answer key off a question.
func (q Question) ForUser() QuestionForUser {
	return QuestionForUser{
		ID:           q.ID,
		Content:      q.Content,
		QuestionType: q.QuestionType,
		Options:      q.Options,
		Score:        q.Score,
		OrderNum:     q.OrderNum,
	}
}

// AddQuestionRequest is the payload for adding a question to an exam.
type AddQuestionRequest struct {
	Content      string          `json:"content" binding:"required,min=1,max=2000"`
	QuestionType string          `json:"question_type" binding:"required,oneof=SINGLE_CHOICE MULTIPLE_CHOICE TRUE_FALSE"`
	Options      json.RawMessage `json:"options" binding:"omitempty"`
	Answer       string          `json:"answer" binding:"required,max=100"`
	Score        int             `json:"score" binding:"min=0"`
	OrderNum     int             `json:"order_num" binding:"min=0"`
}

// ReplaceQuestionsRequest is the payload for bulk replacing an exam's questions.
type ReplaceQuestionsRequest struct {
	Questions []AddQuestionRequest `json:"questions" binding:"dive"`
}
