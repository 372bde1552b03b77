package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/quizforge/quizforge-backend/internal/model"
	"github.com/rs/zerolog"
)

// fakeStore is an in-memory SessionStore honoring the repository contract:
// pgx.ErrNoRows for missing rows, write-if-changed upserts, and a
// status-guarded Complete.
type fakeStore struct {
	sessions map[uuid.UUID]*model.ExamSession
	slots    map[uuid.UUID][]model.AnswerSlot

	// forceConflict makes the next Create behave as if a concurrent
	// caller won the insert: the winner session is planted and
	// pgx.ErrNoRows is returned.
	forceConflict bool
	createCalls   int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		sessions: make(map[uuid.UUID]*model.ExamSession),
		slots:    make(map[uuid.UUID][]model.AnswerSlot),
	}
}

func (f *fakeStore) GetByID(_ context.Context, id uuid.UUID) (*model.ExamSession, error) {
	s, ok := f.sessions[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *s
	return &cp, nil
}

func (f *fakeStore) FindOngoing(_ context.Context, userID int, examID uuid.UUID) (*model.ExamSession, error) {
	for _, s := range f.sessions {
		if s.UserID == userID && s.ExamID == examID && s.Status == model.SessionStatusOngoing {
			cp := *s
			return &cp, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeStore) ListByUser(_ context.Context, userID int) ([]model.ExamSession, error) {
	var out []model.ExamSession
	for _, s := range f.sessions {
		if s.UserID == userID {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (f *fakeStore) Create(_ context.Context, userID int, examID uuid.UUID, questions []model.Question) (*model.ExamSession, error) {
	f.createCalls++
	if f.forceConflict {
		f.forceConflict = false
		f.plant(userID, examID, questions)
		return nil, pgx.ErrNoRows
	}
	return f.plant(userID, examID, questions), nil
}

func (f *fakeStore) plant(userID int, examID uuid.UUID, questions []model.Question) *model.ExamSession {
	s := &model.ExamSession{
		ID:     uuid.New(),
		ExamID: examID,
		UserID: userID,
		Status: model.SessionStatusOngoing,
	}
	f.sessions[s.ID] = s
	slots := make([]model.AnswerSlot, 0, len(questions))
	for _, q := range questions {
		slots = append(slots, model.AnswerSlot{
			ID:         uuid.New(),
			SessionID:  s.ID,
			QuestionID: q.ID,
		})
	}
	f.slots[s.ID] = slots
	return s
}

func (f *fakeStore) ListSlots(_ context.Context, sessionID uuid.UUID) ([]model.AnswerSlot, error) {
	out := make([]model.AnswerSlot, len(f.slots[sessionID]))
	copy(out, f.slots[sessionID])
	return out, nil
}

func (f *fakeStore) UpsertAnswer(_ context.Context, sessionID, questionID uuid.UUID, answer string) (bool, error) {
	s, ok := f.sessions[sessionID]
	if !ok || s.Status != model.SessionStatusOngoing {
		return false, nil
	}
	slots := f.slots[sessionID]
	for i := range slots {
		if slots[i].QuestionID == questionID {
			if slots[i].Answer == answer {
				return false, nil
			}
			slots[i].Answer = answer
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStore) Complete(_ context.Context, s *model.ExamSession, slots []model.AnswerSlot) error {
	stored, ok := f.sessions[s.ID]
	if !ok || stored.Status != model.SessionStatusOngoing {
		return pgx.ErrNoRows
	}
	stored.Status = model.SessionStatusCompleted
	stored.Score = s.Score
	f.slots[s.ID] = append([]model.AnswerSlot(nil), slots...)
	s.Status = model.SessionStatusCompleted
	return nil
}

type fakeCatalog struct {
	exams     map[uuid.UUID]*model.Exam
	questions map[uuid.UUID][]model.Question
}

func (f *fakeCatalog) GetByID(_ context.Context, id uuid.UUID) (*model.Exam, error) {
	e, ok := f.exams[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return e, nil
}

func (f *fakeCatalog) ListByExam(_ context.Context, examID uuid.UUID) ([]model.Question, error) {
	return f.questions[examID], nil
}

// newFixture builds a service over one exam with three questions:
// single-choice "A" (5), multiple-choice "A,B" (10), true-false "True" (2).
func newFixture(t *testing.T) (*ExamSessionService, *fakeStore, uuid.UUID, []model.Question) {
	t.Helper()

	examID := uuid.New()
	questions := []model.Question{
		{ID: uuid.New(), ExamID: examID, QuestionType: model.QuestionTypeSingleChoice, Answer: "A", Score: 5, OrderNum: 1},
		{ID: uuid.New(), ExamID: examID, QuestionType: model.QuestionTypeMultipleChoice, Answer: "A,B", Score: 10, OrderNum: 2},
		{ID: uuid.New(), ExamID: examID, QuestionType: model.QuestionTypeTrueFalse, Answer: "True", Score: 2, OrderNum: 3},
	}

	store := newFakeStore()
	catalog := &fakeCatalog{
		exams:     map[uuid.UUID]*model.Exam{examID: {ID: examID, Title: "Fixture Exam", TotalScore: 17}},
		questions: map[uuid.UUID][]model.Question{examID: questions},
	}

	svc := NewExamSessionService(store, catalog, catalog, zerolog.Nop())
	return svc, store, examID, questions
}

func submission(id uuid.UUID, answer string) model.AnswerSubmission {
	return model.AnswerSubmission{QuestionID: &id, Answer: answer}
}

func TestStart_CreatesSlotsOncePerQuestion(t *testing.T) {
	svc, store, examID, questions := newFixture(t)
	ctx := context.Background()

	first, err := svc.Start(ctx, 1, examID)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if got := len(store.slots[first.ID]); got != len(questions) {
		t.Fatalf("expected %d slots, got %d", len(questions), got)
	}

	second, err := svc.Start(ctx, 1, examID)
	if err != nil {
		t.Fatalf("second start: %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("expected idempotent start to return session %s, got %s", first.ID, second.ID)
	}
	if store.createCalls != 1 {
		t.Fatalf("expected 1 create call, got %d", store.createCalls)
	}
	if got := len(store.slots[first.ID]); got != len(questions) {
		t.Fatalf("slot count changed after idempotent start: %d", got)
	}
}

func TestStart_UnknownExam(t *testing.T) {
	svc, _, _, _ := newFixture(t)

	_, err := svc.Start(context.Background(), 1, uuid.New())
	if err != ErrExamNotFound {
		t.Fatalf("expected ErrExamNotFound, got %v", err)
	}
}

func TestStart_ConcurrentLoserAdoptsWinner(t *testing.T) {
	svc, store, examID, _ := newFixture(t)
	store.forceConflict = true

	session, err := svc.Start(context.Background(), 1, examID)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	winner, _ := store.FindOngoing(context.Background(), 1, examID)
	if session.ID != winner.ID {
		t.Fatalf("expected loser to adopt winner session %s, got %s", winner.ID, session.ID)
	}
}

func TestSaveAnswers_CountsOnlyChangedSlots(t *testing.T) {
	svc, _, examID, questions := newFixture(t)
	ctx := context.Background()

	session, err := svc.Start(ctx, 1, examID)
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	answers := []model.AnswerSubmission{
		submission(questions[0].ID, " a "),
		submission(questions[1].ID, "b,a"),
	}
	updated, err := svc.SaveAnswers(ctx, 1, session.ID, answers)
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if updated != 2 {
		t.Fatalf("expected 2 updates, got %d", updated)
	}

	// Identical resubmission must be a no-op.
	updated, err = svc.SaveAnswers(ctx, 1, session.ID, answers)
	if err != nil {
		t.Fatalf("resave: %v", err)
	}
	if updated != 0 {
		t.Fatalf("expected 0 updates on resubmission, got %d", updated)
	}
}

func TestSaveAnswers_SkipsMissingAndUnknownQuestionIDs(t *testing.T) {
	svc, store, examID, questions := newFixture(t)
	ctx := context.Background()

	session, _ := svc.Start(ctx, 1, examID)

	foreign := uuid.New()
	answers := []model.AnswerSubmission{
		{QuestionID: nil, Answer: "ignored"},
		submission(foreign, "A"),
		submission(questions[2].ID, "true"),
	}
	updated, err := svc.SaveAnswers(ctx, 1, session.ID, answers)
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if updated != 1 {
		t.Fatalf("expected 1 update, got %d", updated)
	}
	for _, slot := range store.slots[session.ID] {
		if slot.QuestionID == foreign {
			t.Fatalf("foreign question id must not create a slot")
		}
	}
}

func TestSaveAnswers_TrimsSubmittedAnswer(t *testing.T) {
	svc, store, examID, questions := newFixture(t)
	ctx := context.Background()

	session, _ := svc.Start(ctx, 1, examID)
	if _, err := svc.SaveAnswers(ctx, 1, session.ID, []model.AnswerSubmission{submission(questions[0].ID, "  A  ")}); err != nil {
		t.Fatalf("save: %v", err)
	}
	for _, slot := range store.slots[session.ID] {
		if slot.QuestionID == questions[0].ID && slot.Answer != "A" {
			t.Fatalf("expected trimmed answer %q, got %q", "A", slot.Answer)
		}
	}
}

func TestSaveAnswers_OwnershipCollapsedToNotFound(t *testing.T) {
	svc, _, examID, questions := newFixture(t)
	ctx := context.Background()

	session, _ := svc.Start(ctx, 1, examID)
	_, err := svc.SaveAnswers(ctx, 2, session.ID, []model.AnswerSubmission{submission(questions[0].ID, "A")})
	if err != ErrSessionNotFound {
		t.Fatalf("expected ErrSessionNotFound for foreign owner, got %v", err)
	}
}

func TestFinish_GradesAndAggregates(t *testing.T) {
	svc, _, examID, questions := newFixture(t)
	ctx := context.Background()

	session, _ := svc.Start(ctx, 1, examID)
	_, err := svc.SaveAnswers(ctx, 1, session.ID, []model.AnswerSubmission{
		submission(questions[0].ID, "a"),   // correct: 5
		submission(questions[1].ID, "B,A"), // correct: 10
		submission(questions[2].ID, "false"),
	})
	if err != nil {
		t.Fatalf("save: %v", err)
	}

	result, err := svc.Finish(ctx, 1, session.ID)
	if err != nil {
		t.Fatalf("finish: %v", err)
	}
	if result.Status != model.SessionStatusCompleted {
		t.Fatalf("expected COMPLETED, got %s", result.Status)
	}
	if result.Score != 15 {
		t.Fatalf("expected aggregate score 15, got %d", result.Score)
	}

	sum := 0
	for _, slot := range result.Slots {
		sum += slot.Score
	}
	if sum != result.Score {
		t.Fatalf("aggregate %d does not equal slot sum %d", result.Score, sum)
	}
}

func TestFinish_IsTerminal(t *testing.T) {
	svc, store, examID, questions := newFixture(t)
	ctx := context.Background()

	session, _ := svc.Start(ctx, 1, examID)
	_, _ = svc.SaveAnswers(ctx, 1, session.ID, []model.AnswerSubmission{submission(questions[0].ID, "A")})

	first, err := svc.Finish(ctx, 1, session.ID)
	if err != nil {
		t.Fatalf("finish: %v", err)
	}

	if _, err := svc.Finish(ctx, 1, session.ID); err != ErrSessionCompleted {
		t.Fatalf("expected ErrSessionCompleted on second finish, got %v", err)
	}

	stored := store.sessions[session.ID]
	if stored.Score != first.Score {
		t.Fatalf("score changed after rejected finish: %d vs %d", stored.Score, first.Score)
	}
}

func TestSaveAnswers_RejectedAfterFinish(t *testing.T) {
	svc, store, examID, questions := newFixture(t)
	ctx := context.Background()

	session, _ := svc.Start(ctx, 1, examID)
	_, _ = svc.SaveAnswers(ctx, 1, session.ID, []model.AnswerSubmission{submission(questions[0].ID, "A")})
	if _, err := svc.Finish(ctx, 1, session.ID); err != nil {
		t.Fatalf("finish: %v", err)
	}

	before, _ := store.ListSlots(ctx, session.ID)
	_, err := svc.SaveAnswers(ctx, 1, session.ID, []model.AnswerSubmission{submission(questions[0].ID, "B")})
	if err != ErrSessionCompleted {
		t.Fatalf("expected ErrSessionCompleted, got %v", err)
	}
	after, _ := store.ListSlots(ctx, session.ID)
	for i := range before {
		if before[i] != after[i] {
			t.Fatalf("slot %d modified after completed session rejected the save", i)
		}
	}
}

// completeDuringSave flips the session to COMPLETED the moment the first
// slot write arrives, modeling a concurrent finish committing between the
// service's status check and the store write.
type completeDuringSave struct {
	*fakeStore
	fired bool
}

func (f *completeDuringSave) UpsertAnswer(ctx context.Context, sessionID, questionID uuid.UUID, answer string) (bool, error) {
	if !f.fired {
		f.fired = true
		f.sessions[sessionID].Status = model.SessionStatusCompleted
	}
	return f.fakeStore.UpsertAnswer(ctx, sessionID, questionID, answer)
}

func TestSaveAnswers_ConcurrentFinishLeavesSlotsUntouched(t *testing.T) {
	examID := uuid.New()
	questions := []model.Question{
		{ID: uuid.New(), ExamID: examID, QuestionType: model.QuestionTypeSingleChoice, Answer: "A", Score: 5, OrderNum: 1},
	}
	store := &completeDuringSave{fakeStore: newFakeStore()}
	catalog := &fakeCatalog{
		exams:     map[uuid.UUID]*model.Exam{examID: {ID: examID, Title: "Race Exam", TotalScore: 5}},
		questions: map[uuid.UUID][]model.Question{examID: questions},
	}
	svc := NewExamSessionService(store, catalog, catalog, zerolog.Nop())
	ctx := context.Background()

	session, err := svc.Start(ctx, 1, examID)
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	updated, err := svc.SaveAnswers(ctx, 1, session.ID, []model.AnswerSubmission{submission(questions[0].ID, "A")})
	if err != nil {
		t.Fatalf("save answers: %v", err)
	}
	if updated != 0 {
		t.Fatalf("expected 0 updated slots once the session completed mid-save, got %d", updated)
	}

	slots, _ := store.ListSlots(ctx, session.ID)
	if slots[0].Answer != "" {
		t.Fatalf("slot written after session completion: %q", slots[0].Answer)
	}
}

func TestGetResult_CompletedAndOwnedOnly(t *testing.T) {
	svc, _, examID, questions := newFixture(t)
	ctx := context.Background()

	session, _ := svc.Start(ctx, 1, examID)

	if _, err := svc.GetResult(ctx, 1, session.ID); err != ErrSessionNotFound {
		t.Fatalf("expected ErrSessionNotFound for ongoing session, got %v", err)
	}

	_, _ = svc.SaveAnswers(ctx, 1, session.ID, []model.AnswerSubmission{submission(questions[0].ID, "A")})
	if _, err := svc.Finish(ctx, 1, session.ID); err != nil {
		t.Fatalf("finish: %v", err)
	}

	if _, err := svc.GetResult(ctx, 2, session.ID); err != ErrSessionNotFound {
		t.Fatalf("expected ErrSessionNotFound for foreign owner, got %v", err)
	}

	result, err := svc.GetResult(ctx, 1, session.ID)
	if err != nil {
		t.Fatalf("get result: %v", err)
	}
	if len(result.Slots) != len(questions) {
		t.Fatalf("expected %d slots in result, got %d", len(questions), len(result.Slots))
	}
}
