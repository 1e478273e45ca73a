package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/quizdesk/quizdesk-backend/internal/config"
	"github.com/quizdesk/quizdesk-backend/internal/grading"
	"github.com/quizdesk/quizdesk-backend/internal/model"
	"github.com/quizdesk/quizdesk-backend/internal/repository"
	"github.com/quizdesk/quizdesk-backend/internal/response"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// ErrGradingConflict is returned when concurrent graders keep invalidating
// each other's writes and the retry budget runs out.
var ErrGradingConflict = errors.New("submission is being graded concurrently, please retry")

// maxSaveRetries bounds the optimistic-concurrency retry loop.
const maxSaveRetries = 3

// GradingDetail combines a submission with its grading audit trail.
type GradingDetail struct {
	Submission *model.Submission         `json:"submission"`
	QuizTitle  string                    `json:"quiz_title"`
	Events     []repository.GradingEvent `json:"events"`
}

// ProgressEvent is published on the quiz's grading channel after every
// grading write, so connected teacher dashboards update live.
type ProgressEvent struct {
	SubmissionID    uuid.UUID              `json:"submission_id"`
	QuizID          uuid.UUID              `json:"quiz_id"`
	Status          model.SubmissionStatus `json:"status"`
	GradingProgress int                    `json:"grading_progress"`
	GradedBy        int                    `json:"graded_by"`
}

// GradingService handles the manual grading workflow: teacher authorization,
// the optimistic-concurrency save loop, the audit log and live progress
// events.
type GradingService struct {
	submissionRepo *repository.SubmissionRepository
	quizRepo       *repository.QuizRepository
	rdb            *redis.Client
	cfg            *config.Config
	log            zerolog.Logger
}

// NewGradingService creates a new GradingService.
func NewGradingService(
	submissionRepo *repository.SubmissionRepository,
	quizRepo *repository.QuizRepository,
	rdb *redis.Client,
	cfg *config.Config,
	log zerolog.Logger,
) *GradingService {
	return &GradingService{
		submissionRepo: submissionRepo,
		quizRepo:       quizRepo,
		rdb:            rdb,
		cfg:            cfg,
		log:            log.With().Str("component", "grading_service").Logger(),
	}
}

// GradeEssay scores one essay answer. creatorID authorizes the caller
// against the quiz (0 = admin bypass); graderID is recorded as the grader.
//
// The read-grade-save cycle retries on version conflicts so two teachers
// grading different questions of the same submission both succeed.
func (s *GradingService) GradeEssay(ctx context.Context, submissionID uuid.UUID, creatorID, graderID, questionIndex int, score float64, comment string) (*model.Submission, error) {
	var submission *model.Submission

	err := s.withRetries(ctx, submissionID, creatorID, func(sub *model.Submission) error {
		if err := grading.GradeEssay(sub, questionIndex, score, comment, graderID, time.Now().UTC()); err != nil {
			return err
		}
		submission = sub
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.recordEvent(ctx, &repository.GradingEvent{
		SubmissionID:  submissionID,
		QuestionIndex: questionIndex,
		Score:         score,
		Comment:       comment,
		GraderID:      graderID,
	})
	s.afterGradingWrite(ctx, submission, graderID)
	return submission, nil
}

// GradeBatch scores several essay answers in one save. Entries failing a
// precondition are skipped and reported; the rest land atomically.
func (s *GradingService) GradeBatch(ctx context.Context, submissionID uuid.UUID, creatorID, graderID int, req *model.GradeBatchRequest) (*model.Submission, []grading.BatchItemResult, error) {
	var (
		submission *model.Submission
		results    []grading.BatchItemResult
	)

	grades := make([]grading.EssayGrade, len(req.Grades))
	for i, g := range req.Grades {
		grades[i] = grading.EssayGrade{
			QuestionIndex: g.QuestionIndex,
			Score:         g.Score,
			Comment:       g.Comment,
		}
	}

	err := s.withRetries(ctx, submissionID, creatorID, func(sub *model.Submission) error {
		results = grading.GradeBatch(sub, grades, graderID, req.OverallComment, time.Now().UTC())
		submission = sub
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	for i, r := range results {
		if !r.Applied {
			continue
		}
		s.recordEvent(ctx, &repository.GradingEvent{
			SubmissionID:  submissionID,
			QuestionIndex: r.QuestionIndex,
			Score:         grades[i].Score,
			Comment:       grades[i].Comment,
			GraderID:      graderID,
		})
	}
	s.afterGradingWrite(ctx, submission, graderID)
	return submission, results, nil
}

// Rederive recomputes a submission's derived fields from its answers and
// saves the result. Used to repair drifted aggregates.
func (s *GradingService) Rederive(ctx context.Context, submissionID uuid.UUID, creatorID int) (*model.Submission, error) {
	var submission *model.Submission

	err := s.withRetries(ctx, submissionID, creatorID, func(sub *model.Submission) error {
		grading.Rederive(sub)
		submission = sub
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().Str("submission_id", submissionID.String()).Msg("Submission rederived")
	return submission, nil
}

// ListPending returns the caller's grading queue with pagination.
func (s *GradingService) ListPending(ctx context.Context, creatorID, page, perPage int) ([]repository.PendingSubmission, *response.Pagination, error) {
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

	pending, total, err := s.submissionRepo.ListPendingByCreator(ctx, creatorID, limit, offset)
	if err != nil {
		return nil, nil, err
	}
	if pending == nil {
		pending = []repository.PendingSubmission{}
	}

	totalPages := (total + perPage - 1) / perPage

	pagination := &response.Pagination{
		Page:       page,
		PerPage:    perPage,
		TotalItems: total,
		TotalPages: totalPages,
	}

	return pending, pagination, nil
}

// ListByQuiz returns one quiz's submissions with pagination, for the
// teacher's results screen.
func (s *GradingService) ListByQuiz(ctx context.Context, quizID uuid.UUID, creatorID, page, perPage int) ([]model.Submission, *response.Pagination, error) {
	quiz, err := s.quizRepo.GetByID(ctx, quizID)
	if err != nil {
		return nil, nil, fmt.Errorf("get quiz: %w", err)
	}
	if creatorID != 0 && quiz.CreatorID != creatorID {
		return nil, nil, ErrNotQuizCreator
	}

	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 10
	}
	if perPage > 100 {
		perPage = 100
	}

	submissions, total, err := s.submissionRepo.ListByQuizPaginated(ctx, quizID, perPage, (page-1)*perPage)
	if err != nil {
		return nil, nil, err
	}
	if submissions == nil {
		submissions = []model.Submission{}
	}

	pagination := &response.Pagination{
		Page:       page,
		PerPage:    perPage,
		TotalItems: total,
		TotalPages: (total + perPage - 1) / perPage,
	}
	return submissions, pagination, nil
}

// Overview returns the cross-quiz grading workload summary for the caller.
func (s *GradingService) Overview(ctx context.Context, creatorID int) (*repository.GradingOverview, error) {
	return s.submissionRepo.Overview(ctx, creatorID)
}

// GetDetail retrieves a submission with its grading history for the grading
// screen.
func (s *GradingService) GetDetail(ctx context.Context, submissionID uuid.UUID, creatorID int) (*GradingDetail, error) {
	submission, quiz, err := s.loadAuthorized(ctx, submissionID, creatorID)
	if err != nil {
		return nil, err
	}

	events, err := s.submissionRepo.ListGradingEvents(ctx, submissionID)
	if err != nil {
		return nil, fmt.Errorf("list grading events: %w", err)
	}
	if events == nil {
		events = []repository.GradingEvent{}
	}

	return &GradingDetail{
		Submission: submission,
		QuizTitle:  quiz.Title,
		Events:     events,
	}, nil
}

// Stats returns a quiz's aggregate statistics, served from the Redis cache
// when fresh and recomputed from PostgreSQL otherwise.
func (s *GradingService) Stats(ctx context.Context, quizID uuid.UUID, creatorID int) (*model.QuizStatistics, error) {
	quiz, err := s.quizRepo.GetByID(ctx, quizID)
	if err != nil {
		return nil, fmt.Errorf("get quiz: %w", err)
	}
	if creatorID != 0 && quiz.CreatorID != creatorID {
		return nil, ErrNotQuizCreator
	}

	key := config.CacheKey.QuizStatsKey(quizID.String())
	data, err := s.rdb.Get(ctx, key).Bytes()
	if err == nil {
		var stats model.QuizStatistics
		if err := json.Unmarshal(data, &stats); err == nil {
			return &stats, nil
		}
		// Corrupt cache entry: fall through and recompute.
	} else if !errors.Is(err, redis.Nil) {
		s.log.Warn().Err(err).Str("quiz_id", quizID.String()).Msg("Stats cache read failed")
	}

	stats, err := s.submissionRepo.Stats(ctx, quizID)
	if err != nil {
		return nil, fmt.Errorf("compute stats: %w", err)
	}

	if payload, err := json.Marshal(stats); err == nil {
		if err := s.rdb.Set(ctx, key, payload, s.cfg.StatsCacheTTL).Err(); err != nil {
			s.log.Warn().Err(err).Str("quiz_id", quizID.String()).Msg("Stats cache write failed")
		}
	}

	return stats, nil
}

// withRetries runs the read-modify-write cycle for one submission, retrying
// on version conflicts. mutate sees a freshly loaded submission each round.
func (s *GradingService) withRetries(ctx context.Context, submissionID uuid.UUID, creatorID int, mutate func(*model.Submission) error) error {
	for attempt := 1; attempt <= maxSaveRetries; attempt++ {
		submission, _, err := s.loadAuthorized(ctx, submissionID, creatorID)
		if err != nil {
			return err
		}

		if err := mutate(submission); err != nil {
			return err
		}

		err = s.submissionRepo.Save(ctx, submission)
		if err == nil {
			return nil
		}
		if !errors.Is(err, repository.ErrVersionConflict) {
			return fmt.Errorf("save submission: %w", err)
		}

		s.log.Debug().
			Str("submission_id", submissionID.String()).
			Int("attempt", attempt).
			Msg("Version conflict, retrying")
	}
	return ErrGradingConflict
}

// loadAuthorized fetches the submission and its quiz, verifying the caller
// may grade it (creatorID 0 = admin bypass).
func (s *GradingService) loadAuthorized(ctx context.Context, submissionID uuid.UUID, creatorID int) (*model.Submission, *model.Quiz, error) {
	submission, err := s.submissionRepo.GetByID(ctx, submissionID)
	if err != nil {
		return nil, nil, err
	}

	quiz, err := s.quizRepo.GetByID(ctx, submission.QuizID)
	if err != nil {
		return nil, nil, fmt.Errorf("get quiz: %w", err)
	}
	if creatorID != 0 && quiz.CreatorID != creatorID {
		return nil, nil, ErrNotQuizCreator
	}

	return submission, quiz, nil
}

func (s *GradingService) recordEvent(ctx context.Context, e *repository.GradingEvent) {
	if err := s.submissionRepo.AddGradingEvent(ctx, e); err != nil {
		s.log.Warn().
			Err(err).
			Str("submission_id", e.SubmissionID.String()).
			Msg("Failed to record grading event")
	}
}

// afterGradingWrite fans out the side effects of a successful grading save:
// the live progress event and the stats refresh job.
func (s *GradingService) afterGradingWrite(ctx context.Context, submission *model.Submission, graderID int) {
	event := ProgressEvent{
		SubmissionID:    submission.ID,
		QuizID:          submission.QuizID,
		Status:          submission.Status,
		GradingProgress: submission.GradingInfo.GradingProgress,
		GradedBy:        graderID,
	}
	if payload, err := json.Marshal(event); err == nil {
		channel := config.CacheKey.GradingProgressChannel(submission.QuizID.String())
		if err := s.rdb.Publish(ctx, channel, payload).Err(); err != nil {
			s.log.Warn().Err(err).Str("quiz_id", submission.QuizID.String()).Msg("Failed to publish progress event")
		}
	}

	if err := s.rdb.RPush(ctx, config.WorkerKey.RefreshStatsQueue, submission.QuizID.String()).Err(); err != nil {
		s.log.Warn().Err(err).Str("quiz_id", submission.QuizID.String()).Msg("Failed to enqueue stats refresh")
	}

	s.log.Info().
		Str("submission_id", submission.ID.String()).
		Str("status", string(submission.Status)).
		Int("grading_progress", submission.GradingInfo.GradingProgress).
		Int("grader_id", graderID).
		Msg("Grading saved")
}
