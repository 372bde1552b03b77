package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/quizforge/quizforge-backend/internal/config"
	"github.com/quizforge/quizforge-backend/internal/model"
	"github.com/quizforge/quizforge-backend/internal/repository"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Exam catalog errors.
var (
	ErrExamNotFound     = errors.New("exam not found")
	ErrQuestionNotFound = errors.New("question not found")
)

// ExamService handles the exam catalog: the read path used by test-takers
// and the authoring path used by admins. Student-facing exam papers
// (questions with answer keys stripped) are cached in Redis.
type ExamService struct {
	examRepo     *repository.ExamRepository
	questionRepo *repository.QuestionRepository
	rdb          *redis.Client
	cfg          *config.Config
	log          zerolog.Logger
}

// NewExamService creates a new ExamService.
func NewExamService(
	examRepo *repository.ExamRepository,
	questionRepo *repository.QuestionRepository,
	rdb *redis.Client,
	cfg *config.Config,
	log zerolog.Logger,
) *ExamService {
	return &ExamService{
		examRepo:     examRepo,
		questionRepo: questionRepo,
		rdb:          rdb,
		cfg:          cfg,
		log:          log.With().Str("component", "exam_service").Logger(),
	}
}

// List returns all exam summaries, served from Redis when cached. Any
// authoring write invalidates the entry since summaries carry total_score.
func (s *ExamService) List(ctx context.Context) ([]model.Exam, error) {
	cacheKey := config.CacheKey.ExamListKey()

	raw, err := s.rdb.Get(ctx, cacheKey).Result()
	if err == nil {
		var exams []model.Exam
		if err := json.Unmarshal([]byte(raw), &exams); err == nil {
			return exams, nil
		}
		s.log.Warn().Msg("Dropping unreadable cached exam list")
	} else if !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("get cached exam list: %w", err)
	}

	exams, err := s.examRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list exams: %w", err)
	}
	if raw, err := json.Marshal(exams); err == nil {
		if err := s.rdb.Set(ctx, cacheKey, raw, s.cfg.ExamCacheTTL).Err(); err != nil {
			s.log.Warn().Err(err).Msg("Exam list cache write failed")
		}
	}
	return exams, nil
}

// GetByID returns one exam summary.
func (s *ExamService) GetByID(ctx context.Context, id uuid.UUID) (*model.Exam, error) {
	exam, err := s.examRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrExamNotFound
		}
		return nil, fmt.Errorf("get exam: %w", err)
	}
	return exam, nil
}

// GetPaper returns the student-facing exam paper, served from Redis when
// cached and rebuilt from PostgreSQL on a miss.
func (s *ExamService) GetPaper(ctx context.Context, id uuid.UUID) (*model.ExamPaper, error) {
	cacheKey := config.CacheKey.ExamPaperKey(id.String())

	raw, err := s.rdb.Get(ctx, cacheKey).Result()
	if err == nil {
		var paper model.ExamPaper
		if err := json.Unmarshal([]byte(raw), &paper); err == nil {
			return &paper, nil
		}
		// Corrupt cache entry — fall through and rebuild.
		s.log.Warn().Str("exam_id", id.String()).Msg("Dropping unreadable cached paper")
	} else if !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("get cached paper: %w", err)
	}

	paper, err := s.buildAndCachePaper(ctx, id)
	if err != nil {
		return nil, err
	}
	return paper, nil
}

// GetDetail returns an exam with its full questions, answer keys included.
// Admin authoring path only.
func (s *ExamService) GetDetail(ctx context.Context, id uuid.UUID) (*model.ExamDetail, error) {
	exam, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	questions, err := s.questionRepo.ListByExam(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	return &model.ExamDetail{Exam: *exam, Questions: questions}, nil
}

// Create inserts a new exam.
func (s *ExamService) Create(ctx context.Context, req *model.CreateExamRequest) (*model.Exam, error) {
	exam := &model.Exam{
		Title:            req.Title,
		Description:      req.Description,
		TimeLimitMinutes: req.TimeLimitMinutes,
	}
	if err := s.examRepo.Create(ctx, exam); err != nil {
		return nil, fmt.Errorf("create exam: %w", err)
	}
	s.invalidateList(ctx)
	return exam, nil
}

// Update modifies an exam's descriptive fields and refreshes its cache.
func (s *ExamService) Update(ctx context.Context, id uuid.UUID, req *model.UpdateExamRequest) (*model.Exam, error) {
	if _, err := s.GetByID(ctx, id); err != nil {
		return nil, err
	}
	if err := s.examRepo.Update(ctx, id, req); err != nil {
		return nil, fmt.Errorf("update exam: %w", err)
	}
	s.invalidatePaper(ctx, id)
	s.invalidateList(ctx)
	return s.GetByID(ctx, id)
}

// Delete removes an exam and drops its cached paper.
func (s *ExamService) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.GetByID(ctx, id); err != nil {
		return err
	}
	if err := s.examRepo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete exam: %w", err)
	}
	s.invalidatePaper(ctx, id)
	s.invalidateList(ctx)
	return nil
}

// AddQuestion appends a question to an exam, then recomputes the exam's
// total score and invalidates the cached paper.
func (s *ExamService) AddQuestion(ctx context.Context, examID uuid.UUID, req *model.AddQuestionRequest) (*model.Question, error) {
	if _, err := s.GetByID(ctx, examID); err != nil {
		return nil, err
	}

	q := &model.Question{
		ExamID:       examID,
		Content:      req.Content,
		QuestionType: model.QuestionType(req.QuestionType),
		Options:      normalizeOptions(req.Options),
		Answer:       req.Answer,
		Score:        req.Score,
		OrderNum:     req.OrderNum,
	}
	if err := s.questionRepo.Create(ctx, q); err != nil {
		return nil, fmt.Errorf("create question: %w", err)
	}

	if err := s.afterQuestionChange(ctx, examID); err != nil {
		return nil, err
	}
	return q, nil
}

// ReplaceQuestions swaps an exam's entire question set, then recomputes the
// total score and invalidates the cached paper.
func (s *ExamService) ReplaceQuestions(ctx context.Context, examID uuid.UUID, req *model.ReplaceQuestionsRequest) ([]model.Question, error) {
	if _, err := s.GetByID(ctx, examID); err != nil {
		return nil, err
	}

	questions := make([]model.Question, 0, len(req.Questions))
	for i, in := range req.Questions {
		questions = append(questions, model.Question{
			ExamID:       examID,
			Content:      in.Content,
			QuestionType: model.QuestionType(in.QuestionType),
			Options:      normalizeOptions(in.Options),
			Answer:       in.Answer,
			Score:        in.Score,
			OrderNum:     i + 1,
		})
	}
	if err := s.questionRepo.ReplaceForExam(ctx, examID, questions); err != nil {
		return nil, fmt.Errorf("replace questions: %w", err)
	}

	if err := s.afterQuestionChange(ctx, examID); err != nil {
		return nil, err
	}
	return s.questionRepo.ListByExam(ctx, examID)
}

// DeleteQuestion removes one question from an exam, then recomputes the
// total score and invalidates the cached paper.
func (s *ExamService) DeleteQuestion(ctx context.Context, examID, questionID uuid.UUID) error {
	if _, err := s.GetByID(ctx, examID); err != nil {
		return err
	}
	if err := s.questionRepo.Delete(ctx, examID, questionID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrQuestionNotFound
		}
		return fmt.Errorf("delete question: %w", err)
	}
	return s.afterQuestionChange(ctx, examID)
}

// PrewarmPaperCaches loads every exam's paper into Redis. Run at startup
// so the first taker of each exam never hits a cold cache.
func (s *ExamService) PrewarmPaperCaches(ctx context.Context) error {
	exams, err := s.examRepo.List(ctx)
	if err != nil {
		return fmt.Errorf("list exams: %w", err)
	}
	for i := range exams {
		if _, err := s.buildAndCachePaper(ctx, exams[i].ID); err != nil {
			s.log.Warn().Err(err).Str("exam_id", exams[i].ID.String()).Msg("Paper prewarm failed")
			continue
		}
	}
	s.log.Info().Int("exams", len(exams)).Msg("Paper caches prewarmed")
	return nil
}

// afterQuestionChange runs the bookkeeping every question-set mutation
// requires: total score recompute plus paper and list cache invalidation.
func (s *ExamService) afterQuestionChange(ctx context.Context, examID uuid.UUID) error {
	total, err := s.examRepo.RecomputeTotalScore(ctx, examID)
	if err != nil {
		return fmt.Errorf("recompute total score: %w", err)
	}
	s.log.Debug().Str("exam_id", examID.String()).Int("total_score", total).Msg("Total score recomputed")
	s.invalidatePaper(ctx, examID)
	s.invalidateList(ctx)
	return nil
}

// invalidateList drops the cached exam summary listing.
func (s *ExamService) invalidateList(ctx context.Context) {
	if err := s.rdb.Del(ctx, config.CacheKey.ExamListKey()).Err(); err != nil {
		s.log.Warn().Err(err).Msg("Exam list cache invalidation failed")
	}
}

func (s *ExamService) invalidatePaper(ctx context.Context, examID uuid.UUID) {
	if err := s.rdb.Del(ctx, config.CacheKey.ExamPaperKey(examID.String())).Err(); err != nil {
		s.log.Warn().Err(err).Str("exam_id", examID.String()).Msg("Paper cache invalidation failed")
	}
}

func (s *ExamService) buildAndCachePaper(ctx context.Context, id uuid.UUID) (*model.ExamPaper, error) {
	exam, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	questions, err := s.questionRepo.ListByExam(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}

	paper := BuildPaper(exam, questions)

	raw, err := json.Marshal(paper)
	if err != nil {
		return nil, fmt.Errorf("marshal paper: %w", err)
	}
	cacheKey := config.CacheKey.ExamPaperKey(id.String())
	if err := s.rdb.Set(ctx, cacheKey, raw, s.cfg.ExamCacheTTL).Err(); err != nil {
		// Serving from PostgreSQL still works; only log the cache failure.
		s.log.Warn().Err(err).Str("exam_id", id.String()).Msg("Paper cache write failed")
	}
	return paper, nil
}

// BuildPaper assembles the student-facing view of an exam: question order
// is preserved and answer keys are stripped.
func BuildPaper(exam *model.Exam, questions []model.Question) *model.ExamPaper {
	paper := &model.ExamPaper{
		ID:               exam.ID,
		Title:            exam.Title,
		Description:      exam.Description,
		TimeLimitMinutes: exam.TimeLimitMinutes,
		TotalScore:       exam.TotalScore,
		Questions:        make([]model.QuestionForUser, 0, len(questions)),
	}
	for _, q := range questions {
		paper.Questions = append(paper.Questions, q.ForUser())
	}
	return paper
}

// normalizeOptions defaults a missing options object to {} so TRUE_FALSE
// questions can omit it.
func normalizeOptions(raw json.RawMessage) json.RawMessage {
	if len(raw) == 0 {
		return json.RawMessage(`{}`)
	}
	return raw
}
