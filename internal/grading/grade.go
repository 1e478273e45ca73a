package grading

import (
	"errors"
	"fmt"
	"time"

	"github.com/quizdesk/quizdesk-backend/internal/model"
)

// Grading precondition errors. None of these leave the submission mutated:
// every grading call validates fully before touching state.
var (
	ErrQuestionNotFound   = errors.New("question index out of range")
	ErrNotAnEssayQuestion = errors.New("question is not an essay question")
	ErrScoreOutOfRange    = errors.New("score outside the question's point range")
)

// GradeEssay records graderID's score for the essay answer at
// questionIndex, then rederives all aggregates and the status.
//
// Preconditions: questionIndex addresses an essay answer and
// 0 <= score <= the answer's point value. On any violation the submission
// is returned to the caller unchanged.
func GradeEssay(s *model.Submission, questionIndex int, score float64, comment string, graderID int, now time.Time) error {
	if err := checkEssayGrade(s, questionIndex, score); err != nil {
		return err
	}

	applyEssayGrade(s, questionIndex, score, comment, graderID, now)
	Rederive(s)
	markIfComplete(s, graderID, now)
	return nil
}

// EssayGrade is one entry of a batch grading call.
type EssayGrade struct {
	QuestionIndex int
	Score         float64
	Comment       string
}

// BatchItemResult reports the outcome of a single batch entry. Err is nil
// for applied entries and one of the precondition errors otherwise.
type BatchItemResult struct {
	QuestionIndex int   `json:"question_index"`
	Applied       bool  `json:"applied"`
	Err           error `json:"-"`
}

// Reason returns a stable string for the failure, empty when applied.
func (r BatchItemResult) Reason() string {
	if r.Err == nil {
		return ""
	}
	return r.Err.Error()
}

// GradeBatch applies a list of essay grades in one pass. Each entry is
// validated independently; entries that fail a precondition are skipped and
// reported in the result list rather than aborting the batch. Aggregates
// are rederived once after all valid entries are applied.
//
// overallComment, when non-empty, is stored as the submission-level teacher
// comment.
func GradeBatch(s *model.Submission, grades []EssayGrade, graderID int, overallComment string, now time.Time) []BatchItemResult {
	results := make([]BatchItemResult, len(grades))

	for i, g := range grades {
		results[i] = BatchItemResult{QuestionIndex: g.QuestionIndex}
		if err := checkEssayGrade(s, g.QuestionIndex, g.Score); err != nil {
			results[i].Err = err
			continue
		}
		applyEssayGrade(s, g.QuestionIndex, g.Score, g.Comment, graderID, now)
		results[i].Applied = true
	}

	if overallComment != "" {
		s.GradingInfo.TeacherComments = overallComment
		s.GradingInfo.GradedBy = &graderID
		s.GradingInfo.GradedAt = &now
	}

	Rederive(s)
	markIfComplete(s, graderID, now)
	return results
}

// checkEssayGrade validates the full precondition set without mutating s.
func checkEssayGrade(s *model.Submission, questionIndex int, score float64) error {
	if questionIndex < 0 || questionIndex >= len(s.Answers) {
		return fmt.Errorf("%w: index %d, %d answers", ErrQuestionNotFound, questionIndex, len(s.Answers))
	}
	a := &s.Answers[questionIndex]
	if a.QuestionKind != model.KindEssay {
		return fmt.Errorf("%w: question %d is %s", ErrNotAnEssayQuestion, questionIndex, a.QuestionKind)
	}
	if score < 0 || score > a.Points {
		return fmt.Errorf("%w: got %.2f, question is worth 0-%.2f points", ErrScoreOutOfRange, score, a.Points)
	}
	return nil
}

func applyEssayGrade(s *model.Submission, questionIndex int, score float64, comment string, graderID int, now time.Time) {
	a := &s.Answers[questionIndex]
	a.EssayGrading = &model.EssayGrading{
		TeacherScore:   &score,
		TeacherComment: comment,
		GradedBy:       &graderID,
		GradedAt:       &now,
		GradingStatus:  model.GradingGraded,
	}
	a.EarnedPoints = score
}

// markIfComplete stamps the submission-level grader identity once the last
// essay has been scored.
func markIfComplete(s *model.Submission, graderID int, now time.Time) {
	if s.Status == model.StatusGraded && s.GradingInfo.RequiresGrading {
		s.GradingInfo.GradedBy = &graderID
		s.GradingInfo.GradedAt = &now
	}
}
