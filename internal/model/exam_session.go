package model

import (
	"time"

	"github.com/google/uuid"
)

// SessionStatus enumerates exam session states. The transition is one-way:
// ONGOING → COMPLETED, and COMPLETED is terminal.
type SessionStatus string

const (
	SessionStatusOngoing   SessionStatus = "ONGOING"
	SessionStatusCompleted SessionStatus = "COMPLETED"
)

// ExamSession represents one user's attempt at one exam. Score stays 0
// until the session is completed, then holds the sum of slot scores.
type ExamSession struct {
	ID         uuid.UUID     `json:"id"`
	ExamID     uuid.UUID     `json:"exam_id"`
	UserID     int           `json:"user_id"`
	Status     SessionStatus `json:"status"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt *time.Time    `json:"finished_at,omitempty"`
	Score      int           `json:"score"`
}

// AnswerSlot holds one question's submitted answer and its eventual verdict
// within a session. Exactly one slot exists per (session, question) pair;
// slots are created in bulk with the session and never added or removed
// afterwards.
type AnswerSlot struct {
	ID         uuid.UUID `json:"id"`
	SessionID  uuid.UUID `json:"session_id"`
	QuestionID uuid.UUID `json:"question_id"`
	Answer     string    `json:"answer"`
	IsCorrect  bool      `json:"is_correct"`
	Score      int       `json:"score"`
}

// SessionResult is a completed (or just-finished) session with its slots.
type SessionResult struct {
	ExamSession
	Slots []AnswerSlot `json:"answer_slots"`
}

// StartSessionRequest is the payload for starting an exam session.
type StartSessionRequest struct {
	ExamID uuid.UUID `json:"exam_id" binding:"required"`
}

// AnswerSubmission is one entry of a SaveAnswers call. QuestionID is a
// pointer so entries that omit it can be skipped rather than rejected.
type AnswerSubmission struct {
	QuestionID *uuid.UUID `json:"question_id"`
	Answer     string     `json:"answer"`
}

// SaveAnswersRequest is the payload for submitting partial answers.
type SaveAnswersRequest struct {
	Answers []AnswerSubmission `json:"answers" binding:"required"`
}
