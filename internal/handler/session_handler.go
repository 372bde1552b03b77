package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/quizforge/quizforge-backend/internal/middleware"
	"github.com/quizforge/quizforge-backend/internal/model"
	"github.com/quizforge/quizforge-backend/internal/response"
	"github.com/quizforge/quizforge-backend/internal/service"
	"github.com/quizforge/quizforge-backend/internal/validator"
)

// SessionHandler handles the exam session lifecycle endpoints.
type SessionHandler struct {
	sessionService *service.ExamSessionService
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(sessionService *service.ExamSessionService) *SessionHandler {
	return &SessionHandler{sessionService: sessionService}
}

// StartSession godoc
// POST /api/v1/sessions
// Starts an exam session, or returns the caller's ongoing one for the
// same exam. Starting is idempotent per (user, exam).
func (h *SessionHandler) StartSession(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	var req model.StartSessionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	session, err := h.sessionService.Start(c.Request.Context(), claims.UserID, req.ExamID)
	if err != nil {
		if errors.Is(err, service.ErrExamNotFound) {
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"session": session})
}

// ListSessions godoc
// GET /api/v1/sessions
// Lists the caller's sessions, newest first.
func (h *SessionHandler) ListSessions(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	sessions, err := h.sessionService.ListByUser(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"sessions": sessions})
}

// SaveAnswers godoc
// PUT /api/v1/sessions/:session_id/answers
// Saves a partial batch of answers. Entries without a question id or
// referencing questions outside the session are skipped. Returns how many
// slots actually changed.
func (h *SessionHandler) SaveAnswers(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	sessionID, err := uuid.Parse(c.Param("session_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	var req model.SaveAnswersRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	updated, err := h.sessionService.SaveAnswers(c.Request.Context(), claims.UserID, sessionID, req.Answers)
	if err != nil {
		h.failSession(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"updated_count": updated})
}

// FinishSession godoc
// POST /api/v1/sessions/:session_id/finish
// Grades every answer, stores the aggregate score, and closes the
// session. A second finish call fails with SESSION_COMPLETED.
func (h *SessionHandler) FinishSession(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	sessionID, err := uuid.Parse(c.Param("session_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	result, err := h.sessionService.Finish(c.Request.Context(), claims.UserID, sessionID)
	if err != nil {
		h.failSession(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"result": result})
}

// GetResult godoc
// GET /api/v1/sessions/:session_id/result
// Returns the graded result of a completed session the caller owns.
func (h *SessionHandler) GetResult(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	sessionID, err := uuid.Parse(c.Param("session_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	result, err := h.sessionService.GetResult(c.Request.Context(), claims.UserID, sessionID)
	if err != nil {
		h.failSession(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"result": result})
}

// failSession maps session service errors onto API error codes.
// Sessions owned by someone else surface as NOT_FOUND, never 403, so the
// API does not leak which session ids exist.
func (h *SessionHandler) failSession(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrSessionNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
	case errors.Is(err, service.ErrSessionCompleted):
		response.Fail(c, http.StatusBadRequest, response.ErrSessionCompleted)
	default:
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
	}
}
