package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/quizforge/quizforge-backend/internal/model"
)

// ExamSessionRepository handles exam session and answer slot data access.
type ExamSessionRepository struct {
	pool *pgxpool.Pool
}

// NewExamSessionRepository creates a new ExamSessionRepository.
func NewExamSessionRepository(pool *pgxpool.Pool) *ExamSessionRepository {
	return &ExamSessionRepository{pool: pool}
}

// GetByID retrieves a session by id.
func (r *ExamSessionRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.ExamSession, error) {
	s := &model.ExamSession{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, exam_id, user_id, status, started_at, finished_at, score
		 FROM exam_sessions WHERE id = $1`, id,
	).Scan(&s.ID, &s.ExamID, &s.UserID, &s.Status, &s.StartedAt, &s.FinishedAt, &s.Score)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// FindOngoing retrieves the at-most-one ONGOING session for a (user, exam)
// pair. Returns pgx.ErrNoRows when none exists.
func (r *ExamSessionRepository) FindOngoing(ctx context.Context, userID int, examID uuid.UUID) (*model.ExamSession, error) {
	s := &model.ExamSession{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, exam_id, user_id, status, started_at, finished_at, score
		 FROM exam_sessions
		 WHERE exam_id = $1 AND user_id = $2 AND status = $3`,
		examID, userID, model.SessionStatusOngoing,
	).Scan(&s.ID, &s.ExamID, &s.UserID, &s.Status, &s.StartedAt, &s.FinishedAt, &s.Score)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// ListByUser retrieves all sessions for a given user, newest first.
func (r *ExamSessionRepository) ListByUser(ctx context.Context, userID int) ([]model.ExamSession, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, exam_id, user_id, status, started_at, finished_at, score
		 FROM exam_sessions
		 WHERE user_id = $1
		 ORDER BY started_at DESC`, userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []model.ExamSession
	for rows.Next() {
		var s model.ExamSession
		if err := rows.Scan(&s.ID, &s.ExamID, &s.UserID, &s.Status, &s.StartedAt, &s.FinishedAt, &s.Score); err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}

// Create atomically inserts a session plus one empty answer slot per
// question. The insert is guarded by the partial unique index on
// (exam_id, user_id) WHERE status = 'ONGOING': when a concurrent caller
// already created an ongoing session, no row comes back and pgx.ErrNoRows
// is returned so the caller can adopt the winner's session. Slots are only
// written when this caller won the insert, inside the same transaction.
func (r *ExamSessionRepository) Create(ctx context.Context, userID int, examID uuid.UUID, questions []model.Question) (*model.ExamSession, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	s := &model.ExamSession{
		ExamID: examID,
		UserID: userID,
		Status: model.SessionStatusOngoing,
	}
	err = tx.QueryRow(ctx,
		`INSERT INTO exam_sessions (exam_id, user_id, status)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (exam_id, user_id) WHERE status = 'ONGOING' DO NOTHING
		 RETURNING id, started_at`,
		examID, userID, model.SessionStatusOngoing,
	).Scan(&s.ID, &s.StartedAt)
	if err != nil {
		// pgx.ErrNoRows here means a concurrent create won the race.
		return nil, err
	}

	if len(questions) > 0 {
		rows := make([][]any, 0, len(questions))
		for i := range questions {
			rows = append(rows, []any{s.ID, questions[i].ID})
		}
		_, err = tx.CopyFrom(ctx,
			pgx.Identifier{"answer_slots"},
			[]string{"session_id", "question_id"},
			pgx.CopyFromRows(rows),
		)
		if err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// ListSlots retrieves a session's answer slots in question order.
func (r *ExamSessionRepository) ListSlots(ctx context.Context, sessionID uuid.UUID) ([]model.AnswerSlot, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT a.id, a.session_id, a.question_id, a.answer, a.is_correct, a.score
		 FROM answer_slots a
		 JOIN questions q ON q.id = a.question_id
		 WHERE a.session_id = $1
		 ORDER BY q.order_num`, sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var slots []model.AnswerSlot
	for rows.Next() {
		var a model.AnswerSlot
		if err := rows.Scan(&a.ID, &a.SessionID, &a.QuestionID, &a.Answer, &a.IsCorrect, &a.Score); err != nil {
			return nil, err
		}
		slots = append(slots, a)
	}
	return slots, rows.Err()
}

// UpsertAnswer writes a submitted answer into its slot only when the value
// actually differs from what is stored and the parent session is still
// ONGOING. The status guard closes the race with a concurrent Complete:
// once the session flips to COMPLETED no slot can be written, even by a
// save that passed its status check before the finish committed. Returns
// whether a write happened: an unknown question id, an identical
// resubmission, and a completed session all report false.
func (r *ExamSessionRepository) UpsertAnswer(ctx context.Context, sessionID, questionID uuid.UUID, answer string) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE answer_slots a
		 SET answer = $3
		 FROM exam_sessions s
		 WHERE s.id = a.session_id AND s.status = $4
		   AND a.session_id = $1 AND a.question_id = $2 AND a.answer IS DISTINCT FROM $3`,
		sessionID, questionID, answer, model.SessionStatusOngoing)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// Complete flips a session to COMPLETED and persists every slot's verdict
// and score in one transaction. The session update is guarded by
// status = 'ONGOING'; pgx.ErrNoRows is returned when the session was
// already completed by a concurrent finish, leaving nothing modified.
func (r *ExamSessionRepository) Complete(ctx context.Context, s *model.ExamSession, slots []model.AnswerSlot) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	now := time.Now()
	tag, err := tx.Exec(ctx,
		`UPDATE exam_sessions
		 SET status = $1, finished_at = $2, score = $3
		 WHERE id = $4 AND status = $5`,
		model.SessionStatusCompleted, now, s.Score, s.ID, model.SessionStatusOngoing)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}

	batch := &pgx.Batch{}
	for i := range slots {
		batch.Queue(
			`UPDATE answer_slots SET is_correct = $1, score = $2 WHERE id = $3`,
			slots[i].IsCorrect, slots[i].Score, slots[i].ID)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}

	s.Status = model.SessionStatusCompleted
	s.FinishedAt = &now
	return nil
}
