package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/quizdesk/quizdesk-backend/internal/config"
	"github.com/quizdesk/quizdesk-backend/internal/model"
	"github.com/quizdesk/quizdesk-backend/internal/repository"
	"github.com/quizdesk/quizdesk-backend/internal/response"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Domain Errors
var (
	ErrNotQuizCreator = errors.New("not the creator of this quiz")
	ErrQuizNotDraft   = errors.New("quiz status is not DRAFT")
	ErrQuizNotOpen    = errors.New("quiz is not open")
)

// QuizService handles quiz authoring, lifecycle and Redis payload caching.
type QuizService struct {
	quizRepo *repository.QuizRepository
	rdb      *redis.Client
	log      zerolog.Logger
}

// NewQuizService creates a new QuizService.
func NewQuizService(quizRepo *repository.QuizRepository, rdb *redis.Client, log zerolog.Logger) *QuizService {
	return &QuizService{
		quizRepo: quizRepo,
		rdb:      rdb,
		log:      log.With().Str("component", "quiz_service").Logger(),
	}
}

// GetByID retrieves a quiz by its UUID.
func (s *QuizService) GetByID(ctx context.Context, id uuid.UUID) (*model.Quiz, error) {
	return s.quizRepo.GetByID(ctx, id)
}

// ListByCreator retrieves quizzes, filtered by creator if not admin.
func (s *QuizService) ListByCreator(ctx context.Context, creatorID, page, perPage int) ([]model.Quiz, *response.Pagination, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 10
	}
	if perPage > 100 {
		perPage = 100
	}

	limit := perPage
	offset := (page - 1) * perPage

	quizzes, total, err := s.quizRepo.ListByCreatorPaginated(ctx, creatorID, limit, offset)
	if err != nil {
		return nil, nil, err
	}

	if quizzes == nil {
		quizzes = []model.Quiz{}
	}

	totalPages := (total + perPage - 1) / perPage

	pagination := &response.Pagination{
		Page:       page,
		PerPage:    perPage,
		TotalItems: total,
		TotalPages: totalPages,
	}

	return quizzes, pagination, nil
}

// Create validates and inserts a new quiz as DRAFT.
func (s *QuizService) Create(ctx context.Context, req *model.CreateQuizRequest, creatorID int) (*model.Quiz, error) {
	quiz := &model.Quiz{
		Title:       req.Title,
		Description: req.Description,
		CreatorID:   creatorID,
		Status:      model.QuizStatusDraft,
		Settings:    req.Settings,
		Questions:   make([]model.Question, len(req.Questions)),
	}
	for i := range req.Questions {
		quiz.Questions[i] = req.Questions[i].Question()
	}

	if err := quiz.Normalize(); err != nil {
		return nil, err
	}

	if err := s.quizRepo.Create(ctx, quiz); err != nil {
		return nil, fmt.Errorf("create quiz: %w", err)
	}
	return quiz, nil
}

// Update modifies an existing draft quiz.
func (s *QuizService) Update(ctx context.Context, quizID uuid.UUID, creatorID int, req *model.CreateQuizRequest) (*model.Quiz, error) {
	existing, err := s.quizRepo.GetByID(ctx, quizID)
	if err != nil {
		return nil, err
	}
	if creatorID != 0 && existing.CreatorID != creatorID {
		return nil, ErrNotQuizCreator
	}
	if existing.Status != model.QuizStatusDraft {
		return nil, ErrQuizNotDraft
	}

	existing.Title = req.Title
	existing.Description = req.Description
	existing.Settings = req.Settings
	existing.Questions = make([]model.Question, len(req.Questions))
	for i := range req.Questions {
		existing.Questions[i] = req.Questions[i].Question()
	}

	if err := existing.Normalize(); err != nil {
		return nil, err
	}

	if err := s.quizRepo.Update(ctx, existing); err != nil {
		return nil, fmt.Errorf("update quiz: %w", err)
	}
	return existing, nil
}

// Open moves a draft quiz to OPEN and caches the taker payload in Redis.
func (s *QuizService) Open(ctx context.Context, quizID uuid.UUID, creatorID int) error {
	quiz, err := s.quizRepo.GetByID(ctx, quizID)
	if err != nil {
		return fmt.Errorf("get quiz: %w", err)
	}

	if creatorID != 0 && quiz.CreatorID != creatorID {
		return ErrNotQuizCreator
	}
	if quiz.Status != model.QuizStatusDraft {
		return ErrQuizNotDraft
	}

	if err := s.WarmQuizCache(ctx, quiz); err != nil {
		return err
	}

	if err := s.quizRepo.UpdateStatus(ctx, quizID, model.QuizStatusOpen); err != nil {
		return fmt.Errorf("update status: %w", err)
	}

	s.log.Info().Str("quiz_id", quizID.String()).Msg("Quiz opened")
	return nil
}

// Close moves an open quiz to CLOSED and drops the cached payload so no new
// takers can load it.
func (s *QuizService) Close(ctx context.Context, quizID uuid.UUID, creatorID int) error {
	quiz, err := s.quizRepo.GetByID(ctx, quizID)
	if err != nil {
		return fmt.Errorf("get quiz: %w", err)
	}

	if creatorID != 0 && quiz.CreatorID != creatorID {
		return ErrNotQuizCreator
	}
	if quiz.Status != model.QuizStatusOpen {
		return ErrQuizNotOpen
	}

	if err := s.quizRepo.UpdateStatus(ctx, quizID, model.QuizStatusClosed); err != nil {
		return fmt.Errorf("update status: %w", err)
	}

	if err := s.rdb.Del(ctx, config.CacheKey.QuizPayloadKey(quizID.String())).Err(); err != nil {
		s.log.Warn().Err(err).Str("quiz_id", quizID.String()).Msg("Failed to drop cached payload")
	}

	s.log.Info().Str("quiz_id", quizID.String()).Msg("Quiz closed")
	return nil
}

// WarmQuizCache loads a quiz's taker-facing payload into Redis. Answer keys
// and rubrics never reach the cache; scoring always reads the full quiz from
// PostgreSQL.
func (s *QuizService) WarmQuizCache(ctx context.Context, quiz *model.Quiz) error {
	payload := quiz.ForStudent()

	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	key := config.CacheKey.QuizPayloadKey(quiz.ID.String())
	if err := s.rdb.Set(ctx, key, payloadJSON, 0).Err(); err != nil {
		return fmt.Errorf("cache to redis: %w", err)
	}

	s.log.Debug().
		Str("quiz_id", quiz.ID.String()).
		Int("questions", len(quiz.Questions)).
		Msg("Cache warmed")
	return nil
}

// PrewarmAllCaches loads all open quizzes into Redis on application startup.
func (s *QuizService) PrewarmAllCaches(ctx context.Context) error {
	quizzes, err := s.quizRepo.ListOpen(ctx)
	if err != nil {
		return fmt.Errorf("list open quizzes: %w", err)
	}

	if len(quizzes) == 0 {
		s.log.Info().Msg("No open quizzes to prewarm")
		return nil
	}

	s.log.Info().Int("count", len(quizzes)).Msg("Prewarming open quizzes...")

	warmed := 0
	for i := range quizzes {
		if err := s.WarmQuizCache(ctx, &quizzes[i]); err != nil {
			s.log.Warn().
				Err(err).
				Str("quiz_id", quizzes[i].ID.String()).
				Msg("Failed to warm quiz, skipping")
			continue
		}
		warmed++
	}

	s.log.Info().
		Int("warmed", warmed).
		Int("total", len(quizzes)).
		Msg("Prewarming complete")
	return nil
}

// GetQuizPayload retrieves the cached taker payload from Redis, falling back
// to PostgreSQL for open quizzes whose cache entry was evicted.
func (s *QuizService) GetQuizPayload(ctx context.Context, quizID uuid.UUID) (*model.QuizForStudent, error) {
	key := config.CacheKey.QuizPayloadKey(quizID.String())
	data, err := s.rdb.Get(ctx, key).Bytes()
	if err == nil {
		var payload model.QuizForStudent
		if err := json.Unmarshal(data, &payload); err != nil {
			return nil, fmt.Errorf("unmarshal payload: %w", err)
		}
		return &payload, nil
	}
	if !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("get payload: %w", err)
	}

	quiz, err := s.quizRepo.GetByID(ctx, quizID)
	if err != nil {
		return nil, err
	}
	if quiz.Status != model.QuizStatusOpen {
		return nil, ErrQuizNotOpen
	}
	if err := s.WarmQuizCache(ctx, quiz); err != nil {
		s.log.Warn().Err(err).Str("quiz_id", quizID.String()).Msg("Failed to rewarm quiz cache")
	}

	payload := quiz.ForStudent()
	return &payload, nil
}
