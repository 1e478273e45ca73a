package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/quizdesk/quizdesk-backend/internal/grading"
	"github.com/quizdesk/quizdesk-backend/internal/middleware"
	"github.com/quizdesk/quizdesk-backend/internal/model"
	"github.com/quizdesk/quizdesk-backend/internal/response"
	"github.com/quizdesk/quizdesk-backend/internal/service"
	"github.com/quizdesk/quizdesk-backend/internal/validator"
)

// GradingHandler handles the teacher grading workflow endpoints.
type GradingHandler struct {
	gradingService *service.GradingService
}

// NewGradingHandler creates a new GradingHandler.
func NewGradingHandler(gradingService *service.GradingService) *GradingHandler {
	return &GradingHandler{gradingService: gradingService}
}

// batchItemView is the JSON shape of one batch grading outcome.
type batchItemView struct {
	QuestionIndex int    `json:"question_index"`
	Applied       bool   `json:"applied"`
	Reason        string `json:"reason,omitempty"`
}

func batchItemViews(results []grading.BatchItemResult) []batchItemView {
	views := make([]batchItemView, len(results))
	for i, r := range results {
		views[i] = batchItemView{
			QuestionIndex: r.QuestionIndex,
			Applied:       r.Applied,
			Reason:        r.Reason(),
		}
	}
	return views
}

// failGrading maps grading workflow errors onto the response envelope.
func failGrading(c *gin.Context, err error) {
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
	case errors.Is(err, service.ErrNotQuizCreator):
		response.Fail(c, http.StatusForbidden, response.ErrNotQuizCreator)
	case errors.Is(err, grading.ErrQuestionNotFound):
		response.Fail(c, http.StatusBadRequest, response.ErrQuestionNotFound)
	case errors.Is(err, grading.ErrNotAnEssayQuestion):
		response.Fail(c, http.StatusBadRequest, response.ErrNotEssayQuestion)
	case errors.Is(err, grading.ErrScoreOutOfRange):
		response.Fail(c, http.StatusBadRequest, response.ErrScoreOutOfRange)
	case errors.Is(err, service.ErrGradingConflict):
		response.Fail(c, http.StatusConflict, response.ErrGradingConflict)
	default:
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
	}
}

// ListPending godoc
// GET /api/v1/teacher/grading/pending
// Lists submissions to the caller's quizzes that still need essay grading.
func (h *GradingHandler) ListPending(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", "10"))

	pending, pagination, err := h.gradingService.ListPending(c.Request.Context(), creatorFilter(claims), page, perPage)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.SuccessWithPagination(c, http.StatusOK, gin.H{"pending": pending}, pagination)
}

// Overview godoc
// GET /api/v1/teacher/grading/overview
// Summarizes the grading workload across all of the caller's quizzes.
func (h *GradingHandler) Overview(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	overview, err := h.gradingService.Overview(c.Request.Context(), creatorFilter(claims))
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"overview": overview})
}

// GetDetail godoc
// GET /api/v1/teacher/grading/submissions/:submission_id
// Returns a submission with its grading history for the grading screen.
func (h *GradingHandler) GetDetail(c *gin.Context) {
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

	detail, err := h.gradingService.GetDetail(c.Request.Context(), submissionID, creatorFilter(claims))
	if err != nil {
		failGrading(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"detail": detail})
}

// GradeEssay godoc
// POST /api/v1/teacher/grading/submissions/:submission_id/grade
// Scores one essay answer and rederives the submission.
func (h *GradingHandler) GradeEssay(c *gin.Context) {
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

	var req model.GradeEssayRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	submission, err := h.gradingService.GradeEssay(c.Request.Context(), submissionID,
		creatorFilter(claims), claims.UserID, *req.QuestionIndex, *req.Score, req.Comment)
	if err != nil {
		failGrading(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"submission": submission})
}

// GradeBatch godoc
// POST /api/v1/teacher/grading/submissions/:submission_id/grade-batch
// Scores several essay answers in one save; invalid entries are reported
// per item without aborting the rest.
func (h *GradingHandler) GradeBatch(c *gin.Context) {
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

	var req model.GradeBatchRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	submission, results, err := h.gradingService.GradeBatch(c.Request.Context(), submissionID,
		creatorFilter(claims), claims.UserID, &req)
	if err != nil {
		failGrading(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"submission": submission,
		"results":    batchItemViews(results),
	})
}

// RederiveSubmission godoc
// POST /api/v1/teacher/grading/submissions/:submission_id/rederive
// Recomputes all derived fields from the stored answers. Repair tool for
// submissions whose aggregates drifted.
func (h *GradingHandler) RederiveSubmission(c *gin.Context) {
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

	submission, err := h.gradingService.Rederive(c.Request.Context(), submissionID, creatorFilter(claims))
	if err != nil {
		failGrading(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"submission": submission})
}

// ListQuizSubmissions godoc
// GET /api/v1/teacher/quizzes/:quiz_id/submissions
// Lists a quiz's submissions (all statuses) with pagination.
func (h *GradingHandler) ListQuizSubmissions(c *gin.Context) {
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

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", "10"))

	submissions, pagination, err := h.gradingService.ListByQuiz(c.Request.Context(), quizID, creatorFilter(claims), page, perPage)
	if err != nil {
		failGrading(c, err)
		return
	}

	response.SuccessWithPagination(c, http.StatusOK, gin.H{"submissions": submissions}, pagination)
}

// QuizStats godoc
// GET /api/v1/teacher/grading/quizzes/:quiz_id/stats
// Returns a quiz's aggregate statistics (cached, recomputed on miss).
func (h *GradingHandler) QuizStats(c *gin.Context) {
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

	stats, err := h.gradingService.Stats(c.Request.Context(), quizID, creatorFilter(claims))
	if err != nil {
		failGrading(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"stats": stats})
}
