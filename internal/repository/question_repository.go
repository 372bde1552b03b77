package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/quizforge/quizforge-backend/internal/model"
)

// QuestionRepository handles question data access.
type QuestionRepository struct {
	pool *pgxpool.Pool
}

// NewQuestionRepository creates a new QuestionRepository.
func NewQuestionRepository(pool *pgxpool.Pool) *QuestionRepository {
	return &QuestionRepository{pool: pool}
}

// ListByExam retrieves all questions for a given exam, ordered by order_num.
func (r *QuestionRepository) ListByExam(ctx context.Context, examID uuid.UUID) ([]model.Question, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, exam_id, content, question_type, options, answer, score, order_num
		 FROM questions WHERE exam_id = $1
		 ORDER BY order_num`, examID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var questions []model.Question
	for rows.Next() {
		var q model.Question
		if err := rows.Scan(&q.ID, &q.ExamID, &q.Content, &q.QuestionType,
			&q.Options, &q.Answer, &q.Score, &q.OrderNum); err != nil {
			return nil, err
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

// Create inserts a new question.
func (r *QuestionRepository) Create(ctx context.Context, q *model.Question) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO questions (exam_id, content, question_type, options, answer, score, order_num)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id`,
		q.ExamID, q.Content, q.QuestionType, q.Options, q.Answer, q.Score, q.OrderNum,
	).Scan(&q.ID)
}

// ReplaceForExam deletes an exam's questions and bulk-inserts the given set
// in a single transaction.
func (r *QuestionRepository) ReplaceForExam(ctx context.Context, examID uuid.UUID, questions []model.Question) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM questions WHERE exam_id = $1`, examID); err != nil {
		return err
	}

	if len(questions) > 0 {
		rows := make([][]any, 0, len(questions))
		for i := range questions {
			q := &questions[i]
			rows = append(rows, []any{examID, q.Content, q.QuestionType, q.Options, q.Answer, q.Score, q.OrderNum})
		}
		_, err = tx.CopyFrom(ctx,
			pgx.Identifier{"questions"},
			[]string{"exam_id", "content", "question_type", "options", "answer", "score", "order_num"},
			pgx.CopyFromRows(rows),
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

// Delete removes a single question, scoped to its exam. Returns
// pgx.ErrNoRows when the question does not belong to the exam.
func (r *QuestionRepository) Delete(ctx context.Context, examID, questionID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM questions WHERE id = $1 AND exam_id = $2`,
		questionID, examID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
