// Package grading owns the submission grading state machine: how aggregate
// scores, grading progress and status evolve as teachers grade essay
// answers.
//
// Rederive is the single writer of every derived field on a Submission.
// Initialize, GradeEssay and GradeBatch all delegate the arithmetic to it
// instead of patching aggregates incrementally, so the invariants cannot
// drift between code paths.
package grading

import (
	"math"

	"github.com/quizdesk/quizdesk-backend/internal/model"
)

// Rederive recomputes every derived field of s from its answers array:
// per-answer earned points, the point totals, the three 0–100 scores,
// the grading summary, and the lifecycle status.
//
// It is idempotent and safe to call at any time, which also makes it the
// reconciliation entry point for repairing a submission whose stored
// aggregates have drifted.
//
// StatusReview is an administrative override and is left untouched; every
// other status is recomputed from essay grading completeness.
func Rederive(s *model.Submission) {
	var (
		objectivePoints float64
		objectiveEarned float64
		correctCount    int

		essayPoints float64
		essayEarned float64
		essayTotal  int
		essayGraded int
	)

	for i := range s.Answers {
		a := &s.Answers[i]

		if a.QuestionKind == model.KindEssay {
			essayTotal++
			essayPoints += a.Points
			if a.IsGradedEssay() && a.EssayGrading.TeacherScore != nil {
				essayGraded++
				a.EarnedPoints = *a.EssayGrading.TeacherScore
				essayEarned += a.EarnedPoints
			} else {
				a.EarnedPoints = 0
			}
			continue
		}

		objectivePoints += a.Points
		if a.IsCorrect {
			correctCount++
			a.EarnedPoints = a.Points
			objectiveEarned += a.Points
		} else {
			a.EarnedPoints = 0
		}
	}

	s.TotalQuestions = len(s.Answers)
	s.CorrectCount = correctCount
	s.TotalPoints = objectivePoints + essayPoints
	s.EarnedPoints = objectiveEarned + essayEarned

	s.ObjectiveScore = percentage(objectiveEarned, objectivePoints)
	s.EssayScore = percentage(essayEarned, essayPoints)
	s.Score = percentage(s.EarnedPoints, s.TotalPoints)

	if essayTotal > 0 {
		s.GradingInfo.RequiresGrading = true
		s.GradingInfo.GradingProgress = percentage(float64(essayGraded), float64(essayTotal))
	} else {
		s.GradingInfo.RequiresGrading = false
		s.GradingInfo.GradingProgress = 100
	}

	if s.Status == model.StatusReview {
		return
	}

	switch {
	case essayGraded == essayTotal: // covers the no-essay case
		s.Status = model.StatusGraded
	case essayGraded > 0:
		s.Status = model.StatusPartialGraded
	default:
		s.Status = model.StatusSubmitted
	}
}

// Initialize derives the first consistent state of a freshly scored
// submission. Equivalent to Rederive; the separate name marks the
// lifecycle entry point at submit time.
func Initialize(s *model.Submission) {
	Rederive(s)
}

// percentage rounds 100*earned/total to the nearest integer, or 0 when
// there is nothing to score.
func percentage(earned, total float64) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(earned / total * 100))
}
