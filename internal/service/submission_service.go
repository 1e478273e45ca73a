package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/quizdesk/quizdesk-backend/internal/config"
	"github.com/quizdesk/quizdesk-backend/internal/grading"
	"github.com/quizdesk/quizdesk-backend/internal/model"
	"github.com/quizdesk/quizdesk-backend/internal/repository"
	"github.com/quizdesk/quizdesk-backend/internal/scoring"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Submission domain errors.
var (
	ErrAttemptsExhausted  = errors.New("no attempts remaining for this quiz")
	ErrNotSubmissionOwner = errors.New("submission belongs to another student")
)

// SubmitOutcome is what a student gets back right after submitting. Detailed
// results are withheld until the quiz's settings allow showing them.
type SubmitOutcome struct {
	SubmissionID    uuid.UUID              `json:"submission_id"`
	AttemptNumber   int                    `json:"attempt_number"`
	Status          model.SubmissionStatus `json:"status"`
	RequiresGrading bool                   `json:"requires_grading"`
	// Score and Answers are only populated when the quiz shows results
	// immediately.
	Score   *int                 `json:"score,omitempty"`
	Answers []model.AnswerDetail `json:"answers,omitempty"`
}

// SubmissionService handles the student submit pipeline: eligibility checks,
// automatic scoring, initial grading state and the post-submit side effects.
type SubmissionService struct {
	submissionRepo *repository.SubmissionRepository
	quizRepo       *repository.QuizRepository
	rdb            *redis.Client
	log            zerolog.Logger
}

// NewSubmissionService creates a new SubmissionService.
func NewSubmissionService(
	submissionRepo *repository.SubmissionRepository,
	quizRepo *repository.QuizRepository,
	rdb *redis.Client,
	log zerolog.Logger,
) *SubmissionService {
	return &SubmissionService{
		submissionRepo: submissionRepo,
		quizRepo:       quizRepo,
		rdb:            rdb,
		log:            log.With().Str("component", "submission_service").Logger(),
	}
}

// Submit scores a student's answer sheet and persists the submission.
func (s *SubmissionService) Submit(ctx context.Context, quizID uuid.UUID, userID int, req *model.SubmitQuizRequest) (*SubmitOutcome, error) {
	quiz, err := s.quizRepo.GetByID(ctx, quizID)
	if err != nil {
		return nil, fmt.Errorf("get quiz: %w", err)
	}

	now := time.Now().UTC()
	if !quiz.AcceptingSubmissions(now) {
		return nil, ErrQuizNotOpen
	}

	attempts, err := s.submissionRepo.CountAttempts(ctx, quizID, userID)
	if err != nil {
		return nil, fmt.Errorf("count attempts: %w", err)
	}
	if attempts > 0 && !quiz.Settings.AllowMultipleAttempts {
		return nil, ErrAttemptsExhausted
	}

	answers, err := scoring.Score(quiz.Questions, req.Answers)
	if err != nil {
		return nil, err
	}

	submission := &model.Submission{
		QuizID:        quizID,
		UserID:        userID,
		AttemptNumber: attempts + 1,
		Answers:       answers,
		TimeSpent:     req.TimeSpentSeconds,
		StartedAt:     now.Add(-time.Duration(req.TimeSpentSeconds) * time.Second),
		SubmittedAt:   now,
	}
	grading.Initialize(submission)

	if err := s.submissionRepo.Create(ctx, submission); err != nil {
		return nil, fmt.Errorf("create submission: %w", err)
	}

	s.enqueueStatsRefresh(ctx, quizID)

	s.log.Info().
		Str("submission_id", submission.ID.String()).
		Str("quiz_id", quizID.String()).
		Int("user_id", userID).
		Str("status", string(submission.Status)).
		Int("score", submission.Score).
		Msg("Submission received")

	outcome := &SubmitOutcome{
		SubmissionID:    submission.ID,
		AttemptNumber:   submission.AttemptNumber,
		Status:          submission.Status,
		RequiresGrading: submission.GradingInfo.RequiresGrading,
	}
	if quiz.Settings.ShowResultsImmediately {
		outcome.Score = &submission.Score
		if quiz.Settings.ShowCorrectAnswers {
			outcome.Answers = submission.Answers
		}
	}
	return outcome, nil
}

// GetOwn retrieves a submission and verifies it belongs to the student.
func (s *SubmissionService) GetOwn(ctx context.Context, submissionID uuid.UUID, userID int) (*model.Submission, error) {
	submission, err := s.submissionRepo.GetByID(ctx, submissionID)
	if err != nil {
		return nil, err
	}
	if submission.UserID != userID {
		return nil, ErrNotSubmissionOwner
	}
	return submission, nil
}

// GetAttempt retrieves one of the student's own attempts at a quiz.
// attemptNumber 0 selects the latest.
func (s *SubmissionService) GetAttempt(ctx context.Context, quizID uuid.UUID, userID, attemptNumber int) (*model.Submission, error) {
	return s.submissionRepo.GetByAttempt(ctx, quizID, userID, attemptNumber)
}

// ListMine retrieves all of a student's submissions.
func (s *SubmissionService) ListMine(ctx context.Context, userID int) ([]model.Submission, error) {
	submissions, err := s.submissionRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if submissions == nil {
		submissions = []model.Submission{}
	}
	return submissions, nil
}

// enqueueStatsRefresh hands the quiz to the stats worker. Best effort: a
// lost job only delays the cached statistics until the next refresh.
func (s *SubmissionService) enqueueStatsRefresh(ctx context.Context, quizID uuid.UUID) {
	if err := s.rdb.RPush(ctx, config.WorkerKey.RefreshStatsQueue, quizID.String()).Err(); err != nil {
		s.log.Warn().Err(err).Str("quiz_id", quizID.String()).Msg("Failed to enqueue stats refresh")
	}
}
