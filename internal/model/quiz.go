package model

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// QuizStatus enumerates quiz lifecycle states.
type QuizStatus string

const (
	QuizStatusDraft  QuizStatus = "draft"
	QuizStatusOpen   QuizStatus = "open"
	QuizStatusClosed QuizStatus = "closed"
)

// QuizSettings controls submission policy for a quiz.
type QuizSettings struct {
	TimeLimitMinutes       int        `json:"time_limit_minutes"`
	AllowMultipleAttempts  bool       `json:"allow_multiple_attempts"`
	ShowResultsImmediately bool       `json:"show_results_immediately"`
	ShowCorrectAnswers     bool       `json:"show_correct_answers"`
	OpenAt                 *time.Time `json:"open_at,omitempty"`
	CloseAt                *time.Time `json:"close_at,omitempty"`
	// RequiresManualGrading is derived: true iff the quiz has >=1 essay
	// question. Set by Normalize, never by the client.
	RequiresManualGrading bool `json:"requires_manual_grading"`
}

// Quiz is a teacher-authored quiz definition.
type Quiz struct {
	ID          uuid.UUID    `json:"id"`
	Title       string       `json:"title"`
	Description string       `json:"description,omitempty"`
	CreatorID   int          `json:"creator_id"`
	Status      QuizStatus   `json:"status"`
	Questions   []Question   `json:"questions"`
	Settings    QuizSettings `json:"settings"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// Quiz authoring errors.
var (
	ErrNoQuestionsInQuiz = errors.New("quiz must contain at least one question")
	ErrScheduleInverted  = errors.New("quiz open time must be before close time")
)

// HasEssayQuestions reports whether any question requires manual grading.
func (q *Quiz) HasEssayQuestions() bool {
	for i := range q.Questions {
		if q.Questions[i].Kind == KindEssay {
			return true
		}
	}
	return false
}

// TotalPoints sums the point values of every question.
func (q *Quiz) TotalPoints() float64 {
	var sum float64
	for i := range q.Questions {
		sum += q.Questions[i].Points
	}
	return sum
}

// Normalize validates the quiz and fixes up derived fields: question
// indexes are assigned by position, RequiresManualGrading reflects essay
// presence, and ShowResultsImmediately is forced off when manual grading is
// needed (results are meaningless until essays are scored).
func (q *Quiz) Normalize() error {
	if len(q.Questions) == 0 {
		return ErrNoQuestionsInQuiz
	}

	for i := range q.Questions {
		if err := q.Questions[i].Validate(i); err != nil {
			return err
		}
		q.Questions[i].Index = i
	}

	if q.Settings.OpenAt != nil && q.Settings.CloseAt != nil &&
		!q.Settings.OpenAt.Before(*q.Settings.CloseAt) {
		return ErrScheduleInverted
	}

	if q.HasEssayQuestions() {
		q.Settings.RequiresManualGrading = true
		q.Settings.ShowResultsImmediately = false
	} else {
		q.Settings.RequiresManualGrading = false
	}

	return nil
}

// AcceptingSubmissions reports whether the quiz can receive submissions at t.
func (q *Quiz) AcceptingSubmissions(t time.Time) bool {
	if q.Status != QuizStatusOpen {
		return false
	}
	if q.Settings.OpenAt != nil && t.Before(*q.Settings.OpenAt) {
		return false
	}
	if q.Settings.CloseAt != nil && t.After(*q.Settings.CloseAt) {
		return false
	}
	return true
}

// QuizStatistics is the read-time aggregate view over a quiz's submissions.
// It is always recomputed from submission rows (optionally cached in Redis by
// the stats worker), never maintained by incremental counters.
type QuizStatistics struct {
	QuizID           uuid.UUID  `json:"quiz_id"`
	TotalSubmissions int        `json:"total_submissions"`
	PendingGrading   int        `json:"pending_grading"`
	FullyGraded      int        `json:"fully_graded"`
	AverageScore     float64    `json:"average_score"`
	LastSubmissionAt *time.Time `json:"last_submission_at,omitempty"`
	ComputedAt       time.Time  `json:"computed_at"`
}

// ─── Request payloads ────────────────────────────────────────────────

// QuestionPayload mirrors Question for authoring requests.
type QuestionPayload struct {
	Kind          string       `json:"kind" binding:"required,oneof=single multiple boolean essay"`
	Text          string       `json:"text" binding:"required,min=1,max=2000"`
	Options       []string     `json:"options" binding:"omitempty,max=20"`
	CorrectAnswer string       `json:"correct_answer" binding:"omitempty,max=500"`
	Points        float64      `json:"points" binding:"omitempty,gt=0"`
	EssayConfig   *EssayConfig `json:"essay_config"`
}

// CreateQuizRequest is the payload for creating a quiz.
type CreateQuizRequest struct {
	Title       string            `json:"title" binding:"required,min=1,max=200"`
	Description string            `json:"description" binding:"max=1000"`
	Questions   []QuestionPayload `json:"questions" binding:"required,min=1,dive"`
	Settings    QuizSettings      `json:"settings"`
}

// Question converts the payload into a model Question. Points default to 1
// when omitted, matching the authoring UI.
func (p *QuestionPayload) Question() Question {
	points := p.Points
	if points <= 0 {
		points = 1
	}
	return Question{
		Kind:          QuestionKind(p.Kind),
		Text:          p.Text,
		Options:       p.Options,
		CorrectAnswer: p.CorrectAnswer,
		Points:        points,
		EssayConfig:   p.EssayConfig,
	}
}

// QuizForStudent is the quiz payload cached in Redis for takers: it carries
// everything needed to render the quiz but strips answer keys and rubrics.
type QuizForStudent struct {
	ID               uuid.UUID          `json:"id"`
	Title            string             `json:"title"`
	Description      string             `json:"description,omitempty"`
	TimeLimitMinutes int                `json:"time_limit_minutes"`
	Questions        []QuestionForTaker `json:"questions"`
}

// QuestionForTaker is a question with grading material removed.
type QuestionForTaker struct {
	Index    int          `json:"index"`
	Kind     QuestionKind `json:"kind"`
	Text     string       `json:"text"`
	Options  []string     `json:"options,omitempty"`
	Points   float64      `json:"points"`
	MinWords int          `json:"min_words,omitempty"`
	MaxWords int          `json:"max_words,omitempty"`
}

// ForStudent builds the taker-facing payload.
func (q *Quiz) ForStudent() QuizForStudent {
	out := QuizForStudent{
		ID:               q.ID,
		Title:            q.Title,
		Description:      q.Description,
		TimeLimitMinutes: q.Settings.TimeLimitMinutes,
		Questions:        make([]QuestionForTaker, len(q.Questions)),
	}
	for i, question := range q.Questions {
		t := QuestionForTaker{
			Index:   question.Index,
			Kind:    question.Kind,
			Text:    question.Text,
			Options: question.Options,
			Points:  question.Points,
		}
		if c := question.EssayConfig; c != nil {
			t.MinWords = c.MinWords
			t.MaxWords = c.MaxWords
		}
		out.Questions[i] = t
	}
	return out
}
