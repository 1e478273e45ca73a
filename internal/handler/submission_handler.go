package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/quizdesk/quizdesk-backend/internal/middleware"
	"github.com/quizdesk/quizdesk-backend/internal/model"
	"github.com/quizdesk/quizdesk-backend/internal/response"
	"github.com/quizdesk/quizdesk-backend/internal/scoring"
	"github.com/quizdesk/quizdesk-backend/internal/service"
	"github.com/quizdesk/quizdesk-backend/internal/validator"
)

// SubmissionHandler handles student-facing quiz taking endpoints.
type SubmissionHandler struct {
	quizService       *service.QuizService
	submissionService *service.SubmissionService
}

// NewSubmissionHandler creates a new SubmissionHandler.
func NewSubmissionHandler(quizService *service.QuizService, submissionService *service.SubmissionService) *SubmissionHandler {
	return &SubmissionHandler{
		quizService:       quizService,
		submissionService: submissionService,
	}
}

// GetQuizPayload godoc
// GET /api/v1/student/quizzes/:quiz_id
// Returns the taker-facing quiz payload, without answer keys.
func (h *SubmissionHandler) GetQuizPayload(c *gin.Context) {
	quizID, err := uuid.Parse(c.Param("quiz_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	payload, err := h.quizService.GetQuizPayload(c.Request.Context(), quizID)
	if err != nil {
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		case errors.Is(err, service.ErrQuizNotOpen):
			response.Fail(c, http.StatusConflict, response.ErrQuizNotOpen)
		default:
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		}
		return
	}

	response.Success(c, http.StatusOK, gin.H{"quiz": payload})
}

// SubmitQuiz godoc
// POST /api/v1/student/quizzes/:quiz_id/submit
// Scores the answer sheet and records the submission.
func (h *SubmissionHandler) SubmitQuiz(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	quizID, err := uuid.Parse(c.Param("quiz_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	var req model.SubmitQuizRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	outcome, err := h.submissionService.Submit(c.Request.Context(), quizID, claims.UserID, &req)
	if err != nil {
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		case errors.Is(err, service.ErrQuizNotOpen):
			response.Fail(c, http.StatusConflict, response.ErrQuizNotOpen)
		case errors.Is(err, service.ErrAttemptsExhausted):
			response.Fail(c, http.StatusConflict, response.ErrAttemptsExhausted)
		case errors.Is(err, scoring.ErrMalformedSubmission):
			response.Fail(c, http.StatusBadRequest, response.ErrMalformedSubmission)
		case errors.Is(err, scoring.ErrInvalidQuestionDefinition):
			response.Fail(c, http.StatusConflict, response.ErrInvalidQuiz)
		default:
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		}
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"result": outcome})
}

// GetMyQuizResult godoc
// GET /api/v1/student/quizzes/:quiz_id/result?attempt=N
// Returns the student's submission for a quiz; the latest attempt when no
// attempt number is given.
func (h *SubmissionHandler) GetMyQuizResult(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	quizID, err := uuid.Parse(c.Param("quiz_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	attempt, _ := strconv.Atoi(c.DefaultQuery("attempt", "0"))

	submission, err := h.submissionService.GetAttempt(c.Request.Context(), quizID, claims.UserID, attempt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"submission": submission})
}

// GetMySubmission godoc
// GET /api/v1/student/submissions/:submission_id
// Returns one of the student's own submissions.
func (h *SubmissionHandler) GetMySubmission(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	submissionID, err := uuid.Parse(c.Param("submission_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	submission, err := h.submissionService.GetOwn(c.Request.Context(), submissionID, claims.UserID)
	if err != nil {
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		case errors.Is(err, service.ErrNotSubmissionOwner):
			response.Fail(c, http.StatusForbidden, response.ErrForbidden)
		default:
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		}
		return
	}

	response.Success(c, http.StatusOK, gin.H{"submission": submission})
}

// ListMySubmissions godoc
// GET /api/v1/student/submissions
// Lists all of the student's submissions, newest first.
func (h *SubmissionHandler) ListMySubmissions(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	submissions, err := h.submissionService.ListMine(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"submissions": submissions})
}
