package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/quizforge/quizforge-backend/internal/config"
	"github.com/quizforge/quizforge-backend/internal/handler"
	"github.com/quizforge/quizforge-backend/internal/middleware"
	"github.com/quizforge/quizforge-backend/internal/response"
	"github.com/quizforge/quizforge-backend/internal/service"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Auth      *handler.AuthHandler
	Exam      *handler.ExamHandler
	Session   *handler.SessionHandler
	AdminExam *handler.AdminExamHandler
}

// SetupRouter configures all Gin route groups with their middlewares.
func SetupRouter(
	authService *service.AuthService,
	handlers *Handlers,
	cfg *config.Config,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.Default()

	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Request ID first so every response carries metadata, then compression.
	router.Use(response.RequestIDMiddleware())
	router.Use(middleware.Brotli())

	router.GET("/health", func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	})

	// Rate limiter for credential endpoints (30 requests per minute per IP).
	authLimiter := middleware.NewRateLimiter(30, time.Minute)

	auth := router.Group("/api/v1/auth")
	{
		auth.POST("/token", authLimiter.Middleware(), handlers.Auth.Login)

		auth.POST("/logout", middleware.RequireAuth(authService), handlers.Auth.Logout)
		auth.GET("/me", middleware.RequireAuth(authService), handlers.Auth.Me)
	}

	// Authenticated API. CheckActiveToken enforces one live token per user.
	api := router.Group("/api/v1")
	api.Use(
		middleware.RequireAuth(authService),
		middleware.CheckActiveToken(authService),
	)
	{
		api.GET("/exams", middleware.CacheControl(30), handlers.Exam.ListExams)
		api.GET("/exams/:exam_id", handlers.Exam.GetExam)

		api.POST("/sessions", handlers.Session.StartSession)
		api.GET("/sessions", handlers.Session.ListSessions)
		api.PUT("/sessions/:session_id/answers", handlers.Session.SaveAnswers)
		api.POST("/sessions/:session_id/finish", handlers.Session.FinishSession)
		api.GET("/sessions/:session_id/result", handlers.Session.GetResult)
	}

	// Admin authoring surface.
	admin := router.Group("/api/v1/admin")
	admin.Use(
		middleware.RequireAuth(authService),
		middleware.CheckActiveToken(authService),
		middleware.RequireAdmin(),
	)
	{
		admin.POST("/exams", handlers.AdminExam.CreateExam)
		admin.GET("/exams/:exam_id", handlers.AdminExam.GetExamDetail)
		admin.PATCH("/exams/:exam_id", handlers.AdminExam.UpdateExam)
		admin.DELETE("/exams/:exam_id", handlers.AdminExam.DeleteExam)
		admin.POST("/exams/:exam_id/questions", handlers.AdminExam.AddQuestion)
		admin.PUT("/exams/:exam_id/questions", handlers.AdminExam.ReplaceQuestions)
		admin.DELETE("/exams/:exam_id/questions/:question_id", handlers.AdminExam.DeleteQuestion)
	}

	return router
}
