package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/quizforge/quizforge-backend/internal/model"
	"github.com/quizforge/quizforge-backend/internal/response"
	"github.com/quizforge/quizforge-backend/internal/service"
	"github.com/quizforge/quizforge-backend/internal/validator"
)

// AdminExamHandler handles the exam authoring endpoints. Every question
// mutation recomputes the exam's total score and drops the cached paper.
type AdminExamHandler struct {
	examService *service.ExamService
}

// NewAdminExamHandler creates a new AdminExamHandler.
func NewAdminExamHandler(examService *service.ExamService) *AdminExamHandler {
	return &AdminExamHandler{examService: examService}
}

// CreateExam godoc
// POST /api/v1/admin/exams
func (h *AdminExamHandler) CreateExam(c *gin.Context) {
	var req model.CreateExamRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	exam, err := h.examService.Create(c.Request.Context(), &req)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"exam": exam})
}

// GetExamDetail godoc
// GET /api/v1/admin/exams/:exam_id
// Returns the exam with its full question set, answer keys included.
func (h *AdminExamHandler) GetExamDetail(c *gin.Context) {
	examID, err := uuid.Parse(c.Param("exam_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	detail, err := h.examService.GetDetail(c.Request.Context(), examID)
	if err != nil {
		h.failExam(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"exam": detail})
}

// UpdateExam godoc
// PATCH /api/v1/admin/exams/:exam_id
func (h *AdminExamHandler) UpdateExam(c *gin.Context) {
	examID, err := uuid.Parse(c.Param("exam_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	var req model.UpdateExamRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	exam, err := h.examService.Update(c.Request.Context(), examID, &req)
	if err != nil {
		h.failExam(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"exam": exam})
}

// DeleteExam godoc
// DELETE /api/v1/admin/exams/:exam_id
// Cascades to questions, sessions, and answer slots.
func (h *AdminExamHandler) DeleteExam(c *gin.Context) {
	examID, err := uuid.Parse(c.Param("exam_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	if err := h.examService.Delete(c.Request.Context(), examID); err != nil {
		h.failExam(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{})
}

// AddQuestion godoc
// POST /api/v1/admin/exams/:exam_id/questions
func (h *AdminExamHandler) AddQuestion(c *gin.Context) {
	examID, err := uuid.Parse(c.Param("exam_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	var req model.AddQuestionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	question, err := h.examService.AddQuestion(c.Request.Context(), examID, &req)
	if err != nil {
		h.failExam(c, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"question": question})
}

// ReplaceQuestions godoc
// PUT /api/v1/admin/exams/:exam_id/questions
// Replaces the full question set in one transaction.
func (h *AdminExamHandler) ReplaceQuestions(c *gin.Context) {
	examID, err := uuid.Parse(c.Param("exam_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	var req model.ReplaceQuestionsRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	questions, err := h.examService.ReplaceQuestions(c.Request.Context(), examID, &req)
	if err != nil {
		h.failExam(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"questions": questions})
}

// DeleteQuestion godoc
// DELETE /api/v1/admin/exams/:exam_id/questions/:question_id
func (h *AdminExamHandler) DeleteQuestion(c *gin.Context) {
	examID, err := uuid.Parse(c.Param("exam_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}
	questionID, err := uuid.Parse(c.Param("question_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	if err := h.examService.DeleteQuestion(c.Request.Context(), examID, questionID); err != nil {
		h.failExam(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{})
}

func (h *AdminExamHandler) failExam(c *gin.Context, err error) {
	if errors.Is(err, service.ErrExamNotFound) || errors.Is(err, service.ErrQuestionNotFound) {
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		return
	}
	response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
}
