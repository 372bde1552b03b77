package model

import (
	"time"

	"github.com/google/uuid"
)

// Exam represents an exam definition. TotalScore is derived — it is
// recomputed from the question set whenever the question set changes,
// never written directly by callers.
type Exam struct {
	ID               uuid.UUID `json:"id"`
	Title            string    `json:"title"`
	Description      string    `json:"description"`
	TimeLimitMinutes int       `json:"time_limit_minutes"`
	TotalScore       int       `json:"total_score"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// ExamDetail is an exam together with its ordered questions.
type ExamDetail struct {
	Exam
	Questions []Question `json:"questions"`
}

// ExamPaper is the student-facing view of an exam: questions are included
// but answer keys are stripped. This is what gets cached in Redis.
type ExamPaper struct {
	ID               uuid.UUID         `json:"id"`
	Title            string            `json:"title"`
	Description      string            `json:"description"`
	TimeLimitMinutes int               `json:"time_limit_minutes"`
	TotalScore       int               `json:"total_score"`
	Questions        []QuestionForUser `json:"questions"`
}

// CreateExamRequest is the payload for creating a new exam.
type CreateExamRequest struct {
	Title            string `json:"title" binding:"required,min=3,max=200"`
	Description      string `json:"description" binding:"omitempty,max=2000"`
	TimeLimitMinutes int    `json:"time_limit_minutes" binding:"required,min=1,max=480"`
}

// UpdateExamRequest is the payload for updating an existing exam.
type UpdateExamRequest struct {
	Title            string `json:"title" binding:"omitempty,min=3,max=200"`
	Description      string `json:"description" binding:"omitempty,max=2000"`
	TimeLimitMinutes int    `json:"time_limit_minutes" binding:"omitempty,min=1,max=480"`
}
