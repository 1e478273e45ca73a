package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/quizdesk/quizdesk-backend/internal/model"
)

// QuizRepository handles quiz data access. Questions and settings are stored
// as JSONB documents; the quiz row is the unit of versioning for authoring.
type QuizRepository struct {
	pool *pgxpool.Pool
}

// NewQuizRepository creates a new QuizRepository.
func NewQuizRepository(pool *pgxpool.Pool) *QuizRepository {
	return &QuizRepository{pool: pool}
}

// GetByID retrieves a quiz by its UUID.
func (r *QuizRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Quiz, error) {
	q := &model.Quiz{}
	var questions, settings []byte
	err := r.pool.QueryRow(ctx,
		`SELECT id, title, description, creator_id, status, questions, settings, created_at, updated_at
		 FROM quizzes WHERE id = $1`, id,
	).Scan(&q.ID, &q.Title, &q.Description, &q.CreatorID, &q.Status, &questions, &settings, &q.CreatedAt, &q.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(questions, &q.Questions); err != nil {
		return nil, fmt.Errorf("decode questions: %w", err)
	}
	if err := json.Unmarshal(settings, &q.Settings); err != nil {
		return nil, fmt.Errorf("decode settings: %w", err)
	}
	return q, nil
}

// Create inserts a new quiz.
func (r *QuizRepository) Create(ctx context.Context, q *model.Quiz) error {
	questions, err := json.Marshal(q.Questions)
	if err != nil {
		return fmt.Errorf("encode questions: %w", err)
	}
	settings, err := json.Marshal(q.Settings)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	return r.pool.QueryRow(ctx,
		`INSERT INTO quizzes (title, description, creator_id, status, questions, settings)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id, created_at, updated_at`,
		q.Title, q.Description, q.CreatorID, q.Status, questions, settings,
	).Scan(&q.ID, &q.CreatedAt, &q.UpdatedAt)
}

// Update replaces the mutable fields of a draft quiz.
func (r *QuizRepository) Update(ctx context.Context, q *model.Quiz) error {
	questions, err := json.Marshal(q.Questions)
	if err != nil {
		return fmt.Errorf("encode questions: %w", err)
	}
	settings, err := json.Marshal(q.Settings)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	_, err = r.pool.Exec(ctx,
		`UPDATE quizzes
		 SET title = $1, description = $2, questions = $3, settings = $4, updated_at = NOW()
		 WHERE id = $5`,
		q.Title, q.Description, questions, settings, q.ID)
	return err
}

// UpdateStatus moves a quiz through its lifecycle.
func (r *QuizRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status model.QuizStatus) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE quizzes SET status = $1, updated_at = NOW() WHERE id = $2`,
		status, id)
	return err
}

// ListByCreatorPaginated retrieves quizzes filtered by creator with pagination.
// Pass creatorID=0 to list all quizzes (admin).
func (r *QuizRepository) ListByCreatorPaginated(ctx context.Context, creatorID, limit, offset int) ([]model.Quiz, int, error) {
	countQuery := `SELECT COUNT(*) FROM quizzes`
	var countArgs []interface{}
	if creatorID > 0 {
		countQuery += ` WHERE creator_id = $1`
		countArgs = append(countArgs, creatorID)
	}

	var total int
	if err := r.pool.QueryRow(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT id, title, description, creator_id, status, questions, settings, created_at, updated_at
	          FROM quizzes`
	var args []interface{}
	argIdx := 1

	if creatorID > 0 {
		query += ` WHERE creator_id = $1`
		args = append(args, creatorID)
		argIdx++
	}

	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, argIdx, argIdx+1)
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var quizzes []model.Quiz
	for rows.Next() {
		var q model.Quiz
		var questions, settings []byte
		if err := rows.Scan(&q.ID, &q.Title, &q.Description, &q.CreatorID, &q.Status,
			&questions, &settings, &q.CreatedAt, &q.UpdatedAt); err != nil {
			return nil, 0, err
		}
		if err := json.Unmarshal(questions, &q.Questions); err != nil {
			return nil, 0, fmt.Errorf("decode questions: %w", err)
		}
		if err := json.Unmarshal(settings, &q.Settings); err != nil {
			return nil, 0, fmt.Errorf("decode settings: %w", err)
		}
		quizzes = append(quizzes, q)
	}
	return quizzes, total, rows.Err()
}

// ListOpen returns all quizzes with OPEN status.
// Used for cache prewarming on application startup.
func (r *QuizRepository) ListOpen(ctx context.Context) ([]model.Quiz, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, title, description, creator_id, status, questions, settings, created_at, updated_at
		 FROM quizzes WHERE status = $1`, model.QuizStatusOpen)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var quizzes []model.Quiz
	for rows.Next() {
		var q model.Quiz
		var questions, settings []byte
		if err := rows.Scan(&q.ID, &q.Title, &q.Description, &q.CreatorID, &q.Status,
			&questions, &settings, &q.CreatedAt, &q.UpdatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(questions, &q.Questions); err != nil {
			return nil, fmt.Errorf("decode questions: %w", err)
		}
		if err := json.Unmarshal(settings, &q.Settings); err != nil {
			return nil, fmt.Errorf("decode settings: %w", err)
		}
		quizzes = append(quizzes, q)
	}
	return quizzes, rows.Err()
}
