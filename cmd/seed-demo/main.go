package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/quizforge/quizforge-backend/internal/config"
	"github.com/quizforge/quizforge-backend/internal/database"
	"github.com/quizforge/quizforge-backend/internal/logger"
	"github.com/quizforge/quizforge-backend/internal/model"
	"github.com/quizforge/quizforge-backend/internal/repository"
	"golang.org/x/crypto/bcrypt"
)

const (
	demoExamTitle = "General Knowledge Demo"
	demoUserEmail = "demo@quizforge.dev"
	demoPassword  = "demo-password"
)

type seedQuestion struct {
	content string
	qType   model.QuestionType
	// options maps answer labels to display text, matching the labels
	// the canonical answer references.
	options map[string]string
	answer  string
	score   int
}

func main() {
	cfg := config.Load()
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	userRepo := repository.NewUserRepository(pool)
	examRepo := repository.NewExamRepository(pool)
	questionRepo := repository.NewQuestionRepository(pool)

	fmt.Println("=== Seeding Demo Data ===")

	// Demo user.
	user, err := userRepo.GetByEmail(ctx, demoUserEmail)
	if err == nil {
		fmt.Printf("Found existing demo user (id %d)\n", user.ID)
	} else if err == pgx.ErrNoRows {
		hash, err := bcrypt.GenerateFromPassword([]byte(demoPassword), cfg.BcryptCost)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to hash demo password")
		}
		user = &model.User{
			Email:        demoUserEmail,
			Name:         "Demo Taker",
			PasswordHash: string(hash),
		}
		if err := userRepo.Create(ctx, user); err != nil {
			log.Fatal().Err(err).Msg("Failed to create demo user")
		}
		fmt.Printf("Created demo user %q (id %d)\n", demoUserEmail, user.ID)
	} else {
		log.Fatal().Err(err).Msg("Failed to check demo user")
	}

	// Skip exam seeding if the demo exam already exists.
	var existing int
	err = pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM exams WHERE title = $1`, demoExamTitle,
	).Scan(&existing)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to check existing demo exam")
	}
	if existing > 0 {
		fmt.Println("Demo exam already seeded, nothing to do")
		return
	}

	exam := &model.Exam{
		Title:            demoExamTitle,
		Description:      "A short mixed-type exam for trying out the API.",
		TimeLimitMinutes: 15,
	}
	if err := examRepo.Create(ctx, exam); err != nil {
		log.Fatal().Err(err).Msg("Failed to create demo exam")
	}
	fmt.Printf("Created exam %q (%s)\n", exam.Title, exam.ID)

	seeds := []seedQuestion{
		{
			content: "Which planet is known as the Red Planet?",
			qType:   model.QuestionTypeSingleChoice,
			options: map[string]string{"A": "Venus", "B": "Mars", "C": "Jupiter", "D": "Saturn"},
			answer:  "B",
			score:   5,
		},
		{
			content: "Select every prime number.",
			qType:   model.QuestionTypeMultipleChoice,
			options: map[string]string{"A": "2", "B": "4", "C": "7", "D": "9"},
			answer:  "A,C",
			score:   10,
		},
		{
			content: "The chemical symbol for gold is Au.",
			qType:   model.QuestionTypeTrueFalse,
			answer:  "True",
			score:   2,
		},
	}

	for i, s := range seeds {
		opts, _ := json.Marshal(s.options)
		if s.options == nil {
			opts = []byte(`{}`)
		}
		q := &model.Question{
			ExamID:       exam.ID,
			Content:      s.content,
			QuestionType: s.qType,
			Options:      opts,
			Answer:       s.answer,
			Score:        s.score,
			OrderNum:     i + 1,
		}
		if err := questionRepo.Create(ctx, q); err != nil {
			log.Fatal().Err(err).Msg("Failed to create demo question")
		}
	}

	total, err := examRepo.RecomputeTotalScore(ctx, exam.ID)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to recompute total score")
	}
	fmt.Printf("Seeded %d questions, total score %d\n", len(seeds), total)
}
