package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/quizforge/quizforge-backend/internal/model"
)

// ExamRepository handles exam data access.
type ExamRepository struct {
	pool *pgxpool.Pool
}

// NewExamRepository creates a new ExamRepository.
func NewExamRepository(pool *pgxpool.Pool) *ExamRepository {
	return &ExamRepository{pool: pool}
}

// GetByID retrieves an exam by its UUID.
func (r *ExamRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Exam, error) {
	e := &model.Exam{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, title, description, time_limit_minutes, total_score, created_at, updated_at
		 FROM exams WHERE id = $1`, id,
	).Scan(&e.ID, &e.Title, &e.Description, &e.TimeLimitMinutes, &e.TotalScore, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return e, nil
}

// List retrieves all exams ordered by creation time, newest first.
func (r *ExamRepository) List(ctx context.Context) ([]model.Exam, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, title, description, time_limit_minutes, total_score, created_at, updated_at
		 FROM exams ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var exams []model.Exam
	for rows.Next() {
		var e model.Exam
		if err := rows.Scan(&e.ID, &e.Title, &e.Description, &e.TimeLimitMinutes,
			&e.TotalScore, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, err
		}
		exams = append(exams, e)
	}
	return exams, rows.Err()
}

// Create inserts a new exam. TotalScore starts at 0 until questions exist.
func (r *ExamRepository) Create(ctx context.Context, e *model.Exam) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO exams (title, description, time_limit_minutes)
		 VALUES ($1, $2, $3)
		 RETURNING id, total_score, created_at, updated_at`,
		e.Title, e.Description, e.TimeLimitMinutes,
	).Scan(&e.ID, &e.TotalScore, &e.CreatedAt, &e.UpdatedAt)
}

// Update modifies an exam's descriptive fields. Zero-valued fields are kept.
func (r *ExamRepository) Update(ctx context.Context, id uuid.UUID, req *model.UpdateExamRequest) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE exams
		 SET title = COALESCE(NULLIF($1, ''), title),
		     description = COALESCE(NULLIF($2, ''), description),
		     time_limit_minutes = CASE WHEN $3 > 0 THEN $3 ELSE time_limit_minutes END,
		     updated_at = NOW()
		 WHERE id = $4`,
		req.Title, req.Description, req.TimeLimitMinutes, id)
	return err
}

// Delete removes an exam. Questions, sessions, and slots cascade.
func (r *ExamRepository) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM exams WHERE id = $1`, id)
	return err
}

// RecomputeTotalScore sets an exam's total score to the sum of its
// questions' scores. Called explicitly after every question-set change.
func (r *ExamRepository) RecomputeTotalScore(ctx context.Context, id uuid.UUID) (int, error) {
	var total int
	err := r.pool.QueryRow(ctx,
		`UPDATE exams
		 SET total_score = (SELECT COALESCE(SUM(score), 0) FROM questions WHERE exam_id = $1),
		     updated_at = NOW()
		 WHERE id = $1
		 RETURNING total_score`, id,
	).Scan(&total)
	return total, err
}
