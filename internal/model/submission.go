package model

import (
	"time"

	"github.com/google/uuid"
)

// SubmissionStatus tracks a submission through the grading lifecycle.
//
// The automatic transitions (driven by essay grading completeness) are
// submitted → partial_graded → graded. StatusReview is a manual escape
// hatch set only by administrative action; the grading engine never
// enters or leaves it on its own.
type SubmissionStatus string

const (
	StatusInProgress    SubmissionStatus = "in_progress"
	StatusSubmitted     SubmissionStatus = "submitted"
	StatusPartialGraded SubmissionStatus = "partial_graded"
	StatusGraded        SubmissionStatus = "graded"
	StatusReview        SubmissionStatus = "review"
)

// GradingStatus is the per-essay-answer manual grading state.
type GradingStatus string

const (
	GradingPending     GradingStatus = "pending"
	GradingGraded      GradingStatus = "graded"
	GradingNeedsReview GradingStatus = "needs_review"
)

// EssayGrading records a teacher's score for one essay answer.
type EssayGrading struct {
	TeacherScore   *float64      `json:"teacher_score,omitempty"`
	TeacherComment string        `json:"teacher_comment,omitempty"`
	GradedBy       *int          `json:"graded_by,omitempty"`
	GradedAt       *time.Time    `json:"graded_at,omitempty"`
	GradingStatus  GradingStatus `json:"grading_status"`
}

// AnswerDetail is one recorded answer. QuestionKind, CorrectAnswer and
// Points are frozen copies taken from the quiz at submission time; the live
// quiz may change afterwards and grading must never re-read it. IsCorrect is
// computed once for objective kinds and never recomputed; it is always false
// for essays.
type AnswerDetail struct {
	QuestionIndex int           `json:"question_index"`
	QuestionKind  QuestionKind  `json:"question_kind"`
	UserAnswer    string        `json:"user_answer"`
	CorrectAnswer string        `json:"correct_answer,omitempty"`
	IsCorrect     bool          `json:"is_correct"`
	Points        float64       `json:"points"`
	EarnedPoints  float64       `json:"earned_points"`
	EssayGrading  *EssayGrading `json:"essay_grading,omitempty"`
}

// IsGradedEssay reports whether this is an essay answer a teacher has scored.
func (a *AnswerDetail) IsGradedEssay() bool {
	return a.QuestionKind == KindEssay &&
		a.EssayGrading != nil &&
		a.EssayGrading.GradingStatus == GradingGraded
}

// GradingInfo is the submission-level manual grading summary.
type GradingInfo struct {
	RequiresGrading bool       `json:"requires_grading"`
	GradingProgress int        `json:"grading_progress"`
	GradedBy        *int       `json:"graded_by,omitempty"`
	GradedAt        *time.Time `json:"graded_at,omitempty"`
	TeacherComments string     `json:"teacher_comments,omitempty"`
}

// Submission is one student's attempt at one quiz. The (QuizID, UserID,
// AttemptNumber) triple is unique.
//
// Score, TotalPoints, EarnedPoints, ObjectiveScore, EssayScore, CorrectCount,
// GradingInfo.RequiresGrading, GradingInfo.GradingProgress and Status are
// all derived from Answers; grading.Rederive is the single code path that
// writes them.
//
// Version backs the optimistic-concurrency save: the repository refuses a
// write whose version does not match the stored row, and the grading
// service redoes its read-modify-write cycle on conflict.
type Submission struct {
	ID             uuid.UUID        `json:"id"`
	QuizID         uuid.UUID        `json:"quiz_id"`
	UserID         int              `json:"user_id"`
	AttemptNumber  int              `json:"attempt_number"`
	Answers        []AnswerDetail   `json:"answers"`
	Score          int              `json:"score"`
	TotalPoints    float64          `json:"total_points"`
	EarnedPoints   float64          `json:"earned_points"`
	CorrectCount   int              `json:"correct_count"`
	TotalQuestions int              `json:"total_questions"`
	ObjectiveScore int              `json:"objective_score"`
	EssayScore     int              `json:"essay_score"`
	GradingInfo    GradingInfo      `json:"grading_info"`
	Status         SubmissionStatus `json:"status"`
	TimeSpent      int              `json:"time_spent"`
	StartedAt      time.Time        `json:"started_at"`
	SubmittedAt    time.Time        `json:"submitted_at"`
	Version        int              `json:"-"`
}

// EssayCounts returns (total essay answers, graded essay answers).
func (s *Submission) EssayCounts() (total, graded int) {
	for i := range s.Answers {
		if s.Answers[i].QuestionKind != KindEssay {
			continue
		}
		total++
		if s.Answers[i].IsGradedEssay() {
			graded++
		}
	}
	return total, graded
}

// ─── Request payloads ────────────────────────────────────────────────

// SubmitQuizRequest is a student's answer sheet. Answers are positional;
// missing trailing entries are treated as blank answers.
type SubmitQuizRequest struct {
	Answers          []string `json:"answers" binding:"required"`
	TimeSpentSeconds int      `json:"time_spent_seconds" binding:"omitempty,min=0"`
}

// GradeEssayRequest scores a single essay answer.
type GradeEssayRequest struct {
	QuestionIndex *int     `json:"question_index" binding:"required,min=0"`
	Score         *float64 `json:"score" binding:"required,min=0"`
	Comment       string   `json:"comment" binding:"max=2000"`
}

// BatchGradeItem is one entry of a batch grading request.
type BatchGradeItem struct {
	QuestionIndex int     `json:"question_index" binding:"min=0"`
	Score         float64 `json:"score" binding:"min=0"`
	Comment       string  `json:"comment" binding:"max=2000"`
}

// GradeBatchRequest scores several essay answers in one call.
type GradeBatchRequest struct {
	Grades         []BatchGradeItem `json:"grades" binding:"required,min=1,dive"`
	OverallComment string           `json:"overall_comment" binding:"max=4000"`
}
