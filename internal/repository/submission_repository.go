package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/quizdesk/quizdesk-backend/internal/model"
)

// ErrVersionConflict is returned by Save when the stored row's version no
// longer matches the submission's. The caller must re-read, re-apply and
// retry.
var ErrVersionConflict = errors.New("submission version conflict")

// PendingSubmission is one row of a teacher's grading queue.
type PendingSubmission struct {
	SubmissionID    uuid.UUID              `json:"submission_id"`
	QuizID          uuid.UUID              `json:"quiz_id"`
	QuizTitle       string                 `json:"quiz_title"`
	StudentID       int                    `json:"student_id"`
	StudentName     string                 `json:"student_name"`
	Status          model.SubmissionStatus `json:"status"`
	GradingProgress int                    `json:"grading_progress"`
	SubmittedAt     time.Time              `json:"submitted_at"`
}

// GradingEvent is one audit-log entry for a manual grading action.
type GradingEvent struct {
	ID            int64     `json:"id"`
	SubmissionID  uuid.UUID `json:"submission_id"`
	QuestionIndex int       `json:"question_index"`
	Score         float64   `json:"score"`
	Comment       string    `json:"comment,omitempty"`
	GraderID      int       `json:"grader_id"`
	CreatedAt     time.Time `json:"created_at"`
}

// SubmissionRepository handles submission data access. The answers array and
// grading summary are stored as JSONB; derived scalar aggregates get their
// own columns so list queries and statistics never decode JSON.
type SubmissionRepository struct {
	pool *pgxpool.Pool
}

// NewSubmissionRepository creates a new SubmissionRepository.
func NewSubmissionRepository(pool *pgxpool.Pool) *SubmissionRepository {
	return &SubmissionRepository{pool: pool}
}

const submissionColumns = `id, quiz_id, user_id, attempt_number, answers, score,
	total_points, earned_points, correct_count, total_questions,
	objective_score, essay_score, grading_info, status, time_spent,
	started_at, submitted_at, version`

func (r *SubmissionRepository) scanSubmission(row interface{ Scan(...any) error }) (*model.Submission, error) {
	s := &model.Submission{}
	var answers, gradingInfo []byte
	err := row.Scan(&s.ID, &s.QuizID, &s.UserID, &s.AttemptNumber, &answers, &s.Score,
		&s.TotalPoints, &s.EarnedPoints, &s.CorrectCount, &s.TotalQuestions,
		&s.ObjectiveScore, &s.EssayScore, &gradingInfo, &s.Status, &s.TimeSpent,
		&s.StartedAt, &s.SubmittedAt, &s.Version)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(answers, &s.Answers); err != nil {
		return nil, fmt.Errorf("decode answers: %w", err)
	}
	if err := json.Unmarshal(gradingInfo, &s.GradingInfo); err != nil {
		return nil, fmt.Errorf("decode grading info: %w", err)
	}
	return s, nil
}

// GetByID retrieves a submission by its UUID.
func (r *SubmissionRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Submission, error) {
	return r.scanSubmission(r.pool.QueryRow(ctx,
		`SELECT `+submissionColumns+` FROM submissions WHERE id = $1`, id))
}

// GetByAttempt retrieves one of a student's submissions for a quiz by attempt
// number. attemptNumber 0 selects the latest attempt.
func (r *SubmissionRepository) GetByAttempt(ctx context.Context, quizID uuid.UUID, userID, attemptNumber int) (*model.Submission, error) {
	if attemptNumber > 0 {
		return r.scanSubmission(r.pool.QueryRow(ctx,
			`SELECT `+submissionColumns+`
			 FROM submissions
			 WHERE quiz_id = $1 AND user_id = $2 AND attempt_number = $3`,
			quizID, userID, attemptNumber))
	}
	return r.scanSubmission(r.pool.QueryRow(ctx,
		`SELECT `+submissionColumns+`
		 FROM submissions
		 WHERE quiz_id = $1 AND user_id = $2
		 ORDER BY attempt_number DESC
		 LIMIT 1`, quizID, userID))
}

// Create inserts a freshly scored submission with version 1.
func (r *SubmissionRepository) Create(ctx context.Context, s *model.Submission) error {
	answers, err := json.Marshal(s.Answers)
	if err != nil {
		return fmt.Errorf("encode answers: %w", err)
	}
	gradingInfo, err := json.Marshal(s.GradingInfo)
	if err != nil {
		return fmt.Errorf("encode grading info: %w", err)
	}
	return r.pool.QueryRow(ctx,
		`INSERT INTO submissions (quiz_id, user_id, attempt_number, answers, score,
		     total_points, earned_points, correct_count, total_questions,
		     objective_score, essay_score, grading_info, requires_grading, status,
		     time_spent, started_at, submitted_at, version)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, 1)
		 RETURNING id, version`,
		s.QuizID, s.UserID, s.AttemptNumber, answers, s.Score,
		s.TotalPoints, s.EarnedPoints, s.CorrectCount, s.TotalQuestions,
		s.ObjectiveScore, s.EssayScore, gradingInfo, s.GradingInfo.RequiresGrading, s.Status,
		s.TimeSpent, s.StartedAt, s.SubmittedAt,
	).Scan(&s.ID, &s.Version)
}

// Save writes back a graded submission using optimistic concurrency: the
// update only lands when the stored version still matches s.Version. On
// success s.Version is advanced; otherwise ErrVersionConflict is returned
// and s is left as-is.
func (r *SubmissionRepository) Save(ctx context.Context, s *model.Submission) error {
	answers, err := json.Marshal(s.Answers)
	if err != nil {
		return fmt.Errorf("encode answers: %w", err)
	}
	gradingInfo, err := json.Marshal(s.GradingInfo)
	if err != nil {
		return fmt.Errorf("encode grading info: %w", err)
	}

	tag, err := r.pool.Exec(ctx,
		`UPDATE submissions
		 SET answers = $1, score = $2, total_points = $3, earned_points = $4,
		     correct_count = $5, total_questions = $6, objective_score = $7,
		     essay_score = $8, grading_info = $9, requires_grading = $10,
		     status = $11, version = version + 1
		 WHERE id = $12 AND version = $13`,
		answers, s.Score, s.TotalPoints, s.EarnedPoints,
		s.CorrectCount, s.TotalQuestions, s.ObjectiveScore,
		s.EssayScore, gradingInfo, s.GradingInfo.RequiresGrading,
		s.Status, s.ID, s.Version)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrVersionConflict
	}
	s.Version++
	return nil
}

// CountAttempts returns how many submissions a student already has for a quiz.
func (r *SubmissionRepository) CountAttempts(ctx context.Context, quizID uuid.UUID, userID int) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM submissions WHERE quiz_id = $1 AND user_id = $2`,
		quizID, userID).Scan(&n)
	return n, err
}

// ListByUser retrieves all of a student's submissions, newest first.
func (r *SubmissionRepository) ListByUser(ctx context.Context, userID int) ([]model.Submission, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+submissionColumns+`
		 FROM submissions
		 WHERE user_id = $1
		 ORDER BY submitted_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var submissions []model.Submission
	for rows.Next() {
		s, err := r.scanSubmission(rows)
		if err != nil {
			return nil, err
		}
		submissions = append(submissions, *s)
	}
	return submissions, rows.Err()
}

// ListByQuizPaginated retrieves a quiz's submissions with pagination.
func (r *SubmissionRepository) ListByQuizPaginated(ctx context.Context, quizID uuid.UUID, limit, offset int) ([]model.Submission, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM submissions WHERE quiz_id = $1`, quizID).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT `+submissionColumns+`
		 FROM submissions
		 WHERE quiz_id = $1
		 ORDER BY submitted_at DESC
		 LIMIT $2 OFFSET $3`, quizID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var submissions []model.Submission
	for rows.Next() {
		s, err := r.scanSubmission(rows)
		if err != nil {
			return nil, 0, err
		}
		submissions = append(submissions, *s)
	}
	return submissions, total, rows.Err()
}

// ListPendingByCreator returns the grading queue for a teacher: submissions
// to their quizzes that still have ungraded essays, oldest first so the
// longest-waiting students surface on top. creatorID 0 lists every quiz's
// queue (admin view).
func (r *SubmissionRepository) ListPendingByCreator(ctx context.Context, creatorID, limit, offset int) ([]PendingSubmission, int, error) {
	baseQuery := `
		FROM submissions s
		JOIN quizzes q ON s.quiz_id = q.id
		JOIN users u ON s.user_id = u.id
		WHERE ($1 = 0 OR q.creator_id = $1)
		  AND s.requires_grading
		  AND s.status IN ($2, $3)
	`
	args := []any{creatorID, model.StatusSubmitted, model.StatusPartialGraded}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) `+baseQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `
		SELECT s.id, s.quiz_id, q.title, u.id, u.name, s.status,
		       (s.grading_info->>'grading_progress')::int, s.submitted_at
		` + baseQuery + `
		ORDER BY s.submitted_at ASC
		LIMIT $4 OFFSET $5
	`
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var pending []PendingSubmission
	for rows.Next() {
		var p PendingSubmission
		if err := rows.Scan(&p.SubmissionID, &p.QuizID, &p.QuizTitle,
			&p.StudentID, &p.StudentName, &p.Status,
			&p.GradingProgress, &p.SubmittedAt); err != nil {
			return nil, 0, err
		}
		pending = append(pending, p)
	}
	return pending, total, rows.Err()
}

// GradingOverview summarizes the grading workload across all of a teacher's
// quizzes.
type GradingOverview struct {
	TotalSubmissions int     `json:"total_submissions"`
	PendingGrading   int     `json:"pending_grading"`
	FullyGraded      int     `json:"fully_graded"`
	AverageScore     float64 `json:"average_score"`
	QuizzesWithWork  int     `json:"quizzes_with_work"`
}

// Overview computes the cross-quiz grading summary for one creator.
// creatorID 0 spans every quiz (admin view).
func (r *SubmissionRepository) Overview(ctx context.Context, creatorID int) (*GradingOverview, error) {
	o := &GradingOverview{}
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*),
		        COUNT(*) FILTER (WHERE s.requires_grading AND s.status IN ($2, $3)),
		        COUNT(*) FILTER (WHERE s.status = $4),
		        COALESCE(AVG(s.score) FILTER (WHERE s.status = $4), 0),
		        COUNT(DISTINCT s.quiz_id) FILTER (WHERE s.requires_grading AND s.status IN ($2, $3))
		 FROM submissions s
		 JOIN quizzes q ON s.quiz_id = q.id
		 WHERE ($1 = 0 OR q.creator_id = $1)`,
		creatorID, model.StatusSubmitted, model.StatusPartialGraded, model.StatusGraded,
	).Scan(&o.TotalSubmissions, &o.PendingGrading, &o.FullyGraded,
		&o.AverageScore, &o.QuizzesWithWork)
	if err != nil {
		return nil, err
	}
	return o, nil
}

// Stats computes a quiz's aggregate statistics directly from submission rows.
func (r *SubmissionRepository) Stats(ctx context.Context, quizID uuid.UUID) (*model.QuizStatistics, error) {
	stats := &model.QuizStatistics{QuizID: quizID, ComputedAt: time.Now().UTC()}
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*),
		        COUNT(*) FILTER (WHERE status IN ($2, $3)),
		        COUNT(*) FILTER (WHERE status = $4),
		        COALESCE(AVG(score) FILTER (WHERE status = $4), 0),
		        MAX(submitted_at)
		 FROM submissions WHERE quiz_id = $1`,
		quizID, model.StatusSubmitted, model.StatusPartialGraded, model.StatusGraded,
	).Scan(&stats.TotalSubmissions, &stats.PendingGrading, &stats.FullyGraded,
		&stats.AverageScore, &stats.LastSubmissionAt)
	if err != nil {
		return nil, err
	}
	return stats, nil
}

// AddGradingEvent appends one entry to the grading audit log.
func (r *SubmissionRepository) AddGradingEvent(ctx context.Context, e *GradingEvent) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO grading_events (submission_id, question_index, score, comment, grader_id)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, created_at`,
		e.SubmissionID, e.QuestionIndex, e.Score, e.Comment, e.GraderID,
	).Scan(&e.ID, &e.CreatedAt)
}

// ListGradingEvents returns a submission's grading history, oldest first.
func (r *SubmissionRepository) ListGradingEvents(ctx context.Context, submissionID uuid.UUID) ([]GradingEvent, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, submission_id, question_index, score, comment, grader_id, created_at
		 FROM grading_events
		 WHERE submission_id = $1
		 ORDER BY created_at ASC`, submissionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []GradingEvent
	for rows.Next() {
		var e GradingEvent
		if err := rows.Scan(&e.ID, &e.SubmissionID, &e.QuestionIndex,
			&e.Score, &e.Comment, &e.GraderID, &e.CreatedAt); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}
