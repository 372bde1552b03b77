package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/quizforge/quizforge-backend/internal/grading"
	"github.com/quizforge/quizforge-backend/internal/model"
	"github.com/rs/zerolog"
)

// Session lifecycle errors. A session owned by another user reports
// ErrSessionNotFound rather than a distinct forbidden error so that
// session existence is never leaked across principals.
var (
	ErrSessionNotFound  = errors.New("session not found")
	ErrSessionCompleted = errors.New("session already completed")
)

// SessionStore is the persistence contract the lifecycle controller needs.
// Implemented by repository.ExamSessionRepository; tests substitute an
// in-memory fake. Lookups report pgx.ErrNoRows for missing rows.
type SessionStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.ExamSession, error)
	FindOngoing(ctx context.Context, userID int, examID uuid.UUID) (*model.ExamSession, error)
	ListByUser(ctx context.Context, userID int) ([]model.ExamSession, error)
	Create(ctx context.Context, userID int, examID uuid.UUID, questions []model.Question) (*model.ExamSession, error)
	ListSlots(ctx context.Context, sessionID uuid.UUID) ([]model.AnswerSlot, error)
	UpsertAnswer(ctx context.Context, sessionID, questionID uuid.UUID, answer string) (bool, error)
	Complete(ctx context.Context, s *model.ExamSession, slots []model.AnswerSlot) error
}

// ExamCatalog resolves exam definitions for session creation.
type ExamCatalog interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.Exam, error)
}

// QuestionCatalog resolves an exam's ordered question set.
type QuestionCatalog interface {
	ListByExam(ctx context.Context, examID uuid.UUID) ([]model.Question, error)
}

// ExamSessionService drives the session state machine: start, incremental
// answer saving, and the one-way finish transition that grades every slot.
type ExamSessionService struct {
	store     SessionStore
	exams     ExamCatalog
	questions QuestionCatalog
	log       zerolog.Logger
}

// NewExamSessionService creates a new ExamSessionService.
func NewExamSessionService(
	store SessionStore,
	exams ExamCatalog,
	questions QuestionCatalog,
	log zerolog.Logger,
) *ExamSessionService {
	return &ExamSessionService{
		store:     store,
		exams:     exams,
		questions: questions,
		log:       log.With().Str("component", "session_service").Logger(),
	}
}

// Start returns the user's ongoing session for the exam, creating one —
// with an answer slot per question — when none exists. Starting twice never
// duplicates a session or resets progress; when two concurrent starts race,
// the loser adopts the winner's session.
func (s *ExamSessionService) Start(ctx context.Context, userID int, examID uuid.UUID) (*model.ExamSession, error) {
	if _, err := s.exams.GetByID(ctx, examID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) || errors.Is(err, ErrExamNotFound) {
			return nil, ErrExamNotFound
		}
		return nil, fmt.Errorf("get exam: %w", err)
	}

	existing, err := s.store.FindOngoing(ctx, userID, examID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("find ongoing session: %w", err)
	}

	questions, err := s.questions.ListByExam(ctx, examID)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}

	session, err := s.store.Create(ctx, userID, examID, questions)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Concurrent start won the insert — return its session.
			winner, fetchErr := s.store.FindOngoing(ctx, userID, examID)
			if fetchErr != nil {
				return nil, fmt.Errorf("concurrent start detected, but fetch failed: %w", fetchErr)
			}
			return winner, nil
		}
		return nil, fmt.Errorf("create session: %w", err)
	}

	s.log.Info().
		Str("session_id", session.ID.String()).
		Str("exam_id", examID.String()).
		Int("user_id", userID).
		Int("slots", len(questions)).
		Msg("Session started")

	return session, nil
}

// SaveAnswers upserts submitted answers into the session's slots and
// returns how many slots actually changed. Entries without a question id
// and entries referencing questions outside the session's exam are skipped
// silently; resubmitting identical answers reports 0 updates.
func (s *ExamSessionService) SaveAnswers(ctx context.Context, userID int, sessionID uuid.UUID, answers []model.AnswerSubmission) (int, error) {
	session, err := s.resolveOwned(ctx, userID, sessionID)
	if err != nil {
		return 0, err
	}
	if session.Status == model.SessionStatusCompleted {
		return 0, ErrSessionCompleted
	}

	updated := 0
	for _, ans := range answers {
		if ans.QuestionID == nil {
			continue
		}
		changed, err := s.store.UpsertAnswer(ctx, session.ID, *ans.QuestionID, strings.TrimSpace(ans.Answer))
		if err != nil {
			return updated, fmt.Errorf("upsert answer: %w", err)
		}
		if changed {
			updated++
		}
	}
	return updated, nil
}

// Finish closes the session: every slot is graded against its question,
// verdicts and the aggregate score are persisted atomically, and the
// populated result is returned. Finishing a completed session fails with
// ErrSessionCompleted — finalization is one-time and irreversible.
func (s *ExamSessionService) Finish(ctx context.Context, userID int, sessionID uuid.UUID) (*model.SessionResult, error) {
	session, err := s.resolveOwned(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Status == model.SessionStatusCompleted {
		return nil, ErrSessionCompleted
	}

	slots, err := s.store.ListSlots(ctx, session.ID)
	if err != nil {
		return nil, fmt.Errorf("list slots: %w", err)
	}
	questions, err := s.questions.ListByExam(ctx, session.ExamID)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}

	byID := make(map[uuid.UUID]model.Question, len(questions))
	for _, q := range questions {
		byID[q.ID] = q
	}

	total := 0
	for i := range slots {
		q, ok := byID[slots[i].QuestionID]
		if !ok {
			continue
		}
		verdict := grading.Grade(q, slots[i].Answer)
		slots[i].IsCorrect = verdict.IsCorrect
		slots[i].Score = verdict.Score
		total += verdict.Score
	}
	session.Score = total

	if err := s.store.Complete(ctx, session, slots); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// A concurrent finish got there first.
			return nil, ErrSessionCompleted
		}
		return nil, fmt.Errorf("complete session: %w", err)
	}

	s.log.Info().
		Str("session_id", session.ID.String()).
		Int("user_id", userID).
		Int("score", total).
		Msg("Session finished")

	return &model.SessionResult{ExamSession: *session, Slots: slots}, nil
}

// GetResult returns a completed session with its graded slots. In-progress
// sessions and sessions owned by other users report ErrSessionNotFound.
func (s *ExamSessionService) GetResult(ctx context.Context, userID int, sessionID uuid.UUID) (*model.SessionResult, error) {
	session, err := s.resolveOwned(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Status != model.SessionStatusCompleted {
		return nil, ErrSessionNotFound
	}

	slots, err := s.store.ListSlots(ctx, session.ID)
	if err != nil {
		return nil, fmt.Errorf("list slots: %w", err)
	}
	return &model.SessionResult{ExamSession: *session, Slots: slots}, nil
}

// ListByUser returns all of a user's sessions, newest first.
func (s *ExamSessionService) ListByUser(ctx context.Context, userID int) ([]model.ExamSession, error) {
	sessions, err := s.store.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return sessions, nil
}

// resolveOwned loads a session and verifies ownership, collapsing both
// "missing" and "not yours" into ErrSessionNotFound.
func (s *ExamSessionService) resolveOwned(ctx context.Context, userID int, sessionID uuid.UUID) (*model.ExamSession, error) {
	session, err := s.store.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("get session: %w", err)
	}
	if session.UserID != userID {
		return nil, ErrSessionNotFound
	}
	return session, nil
}
