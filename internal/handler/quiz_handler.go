package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/quizdesk/quizdesk-backend/internal/middleware"
	"github.com/quizdesk/quizdesk-backend/internal/model"
	"github.com/quizdesk/quizdesk-backend/internal/response"
	"github.com/quizdesk/quizdesk-backend/internal/service"
	"github.com/quizdesk/quizdesk-backend/internal/validator"
)

// QuizHandler handles quiz authoring and lifecycle endpoints.
type QuizHandler struct {
	quizService *service.QuizService
}

// NewQuizHandler creates a new QuizHandler.
func NewQuizHandler(quizService *service.QuizService) *QuizHandler {
	return &QuizHandler{quizService: quizService}
}

// creatorFilter derives the authorization filter from claims: admins see and
// manage every quiz, teachers only their own.
func creatorFilter(claims *service.Claims) int {
	if claims.Role == model.RoleAdmin {
		return 0
	}
	return claims.UserID
}

// ListQuizzes godoc
// GET /api/v1/teacher/quizzes
// Lists quizzes with pagination. Admins see all; teachers see only their own.
func (h *QuizHandler) ListQuizzes(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", "10"))

	quizzes, pagination, err := h.quizService.ListByCreator(c.Request.Context(), creatorFilter(claims), page, perPage)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.SuccessWithPagination(c, http.StatusOK, gin.H{"quizzes": quizzes}, pagination)
}

// GetQuiz godoc
// GET /api/v1/teacher/quizzes/:quiz_id
// Returns the full quiz definition including answer keys.
func (h *QuizHandler) GetQuiz(c *gin.Context) {
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

	quiz, err := h.quizService.GetByID(c.Request.Context(), quizID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	if filter := creatorFilter(claims); filter != 0 && quiz.CreatorID != filter {
		response.Fail(c, http.StatusForbidden, response.ErrNotQuizCreator)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"quiz": quiz})
}

// CreateQuiz godoc
// POST /api/v1/teacher/quizzes
// Creates a new draft quiz after validating every question definition.
func (h *QuizHandler) CreateQuiz(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	var req model.CreateQuizRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	quiz, err := h.quizService.Create(c.Request.Context(), &req, claims.UserID)
	if err != nil {
		if isQuizDefinitionError(err) {
			response.FailWithFields(c, http.StatusBadRequest, response.ErrInvalidQuiz,
				map[string]string{"detail": err.Error()})
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"quiz": quiz})
}

// UpdateQuiz godoc
// PUT /api/v1/teacher/quizzes/:quiz_id
// Replaces a draft quiz's content.
func (h *QuizHandler) UpdateQuiz(c *gin.Context) {
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

	var req model.CreateQuizRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	quiz, err := h.quizService.Update(c.Request.Context(), quizID, creatorFilter(claims), &req)
	if err != nil {
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		case errors.Is(err, service.ErrNotQuizCreator):
			response.Fail(c, http.StatusForbidden, response.ErrNotQuizCreator)
		case errors.Is(err, service.ErrQuizNotDraft):
			response.Fail(c, http.StatusConflict, response.ErrQuizNotDraft)
		case isQuizDefinitionError(err):
			response.FailWithFields(c, http.StatusBadRequest, response.ErrInvalidQuiz,
				map[string]string{"detail": err.Error()})
		default:
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		}
		return
	}

	response.Success(c, http.StatusOK, gin.H{"quiz": quiz})
}

// OpenQuiz godoc
// POST /api/v1/teacher/quizzes/:quiz_id/open
// Opens a draft quiz for submissions and warms the taker payload cache.
func (h *QuizHandler) OpenQuiz(c *gin.Context) {
	h.transition(c, h.quizService.Open, "quiz opened successfully")
}

// CloseQuiz godoc
// POST /api/v1/teacher/quizzes/:quiz_id/close
// Closes an open quiz to new submissions.
func (h *QuizHandler) CloseQuiz(c *gin.Context) {
	h.transition(c, h.quizService.Close, "quiz closed successfully")
}

// transition runs a lifecycle change shared by OpenQuiz and CloseQuiz.
func (h *QuizHandler) transition(c *gin.Context, fn func(ctx context.Context, quizID uuid.UUID, creatorID int) error, okMsg string) {
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

	if err := fn(c.Request.Context(), quizID, creatorFilter(claims)); err != nil {
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		case errors.Is(err, service.ErrNotQuizCreator):
			response.Fail(c, http.StatusForbidden, response.ErrNotQuizCreator)
		case errors.Is(err, service.ErrQuizNotDraft):
			response.Fail(c, http.StatusConflict, response.ErrQuizNotDraft)
		case errors.Is(err, service.ErrQuizNotOpen):
			response.Fail(c, http.StatusConflict, response.ErrQuizNotOpen)
		default:
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		}
		return
	}

	response.Success(c, http.StatusOK, gin.H{"message": okMsg})
}

// isQuizDefinitionError reports whether the error came from quiz content
// validation rather than infrastructure.
func isQuizDefinitionError(err error) bool {
	return errors.Is(err, model.ErrNoQuestionsInQuiz) ||
		errors.Is(err, model.ErrScheduleInverted) ||
		errors.Is(err, model.ErrQuestionTextEmpty) ||
		errors.Is(err, model.ErrQuestionKind) ||
		errors.Is(err, model.ErrQuestionPoints) ||
		errors.Is(err, model.ErrTooFewOptions) ||
		errors.Is(err, model.ErrEmptyOption) ||
		errors.Is(err, model.ErrMissingAnswerKey) ||
		errors.Is(err, model.ErrEssayHasAnswerKey) ||
		errors.Is(err, model.ErrEssayWordBounds) ||
		errors.Is(err, model.ErrBooleanAnswerValue)
}
