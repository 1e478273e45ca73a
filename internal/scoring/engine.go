// Package scoring implements the pure answer-scoring engine: given a quiz's
// question list and a student's raw answers, it produces the frozen
// AnswerDetail sequence that grading operates on afterwards.
//
// Score is a pure function of its inputs. It never touches storage and has
// no hidden state, so re-running it with identical inputs yields identical
// output; submission repair and tests rely on that.
package scoring

import (
	"errors"
	"fmt"
	"strings"

	"github.com/quizdesk/quizdesk-backend/internal/model"
)

// Engine errors.
var (
	// ErrInvalidQuestionDefinition means malformed quiz data reached the
	// engine (e.g. an objective question without an answer key). Quiz
	// validation should prevent this upstream; the engine refuses to guess.
	ErrInvalidQuestionDefinition = errors.New("invalid question definition")

	// ErrMalformedSubmission means the raw answer list is longer than the
	// question list. Shorter lists are fine: missing entries are blank.
	ErrMalformedSubmission = errors.New("malformed submission")
)

// Score evaluates rawAnswers against questions and returns one AnswerDetail
// per question, in question order.
//
// Objective kinds are compared against the answer key: exact string equality
// for single/boolean, order-independent set equality for multiple (both
// sides split on ","). A correct objective answer earns the question's full
// points, a wrong one earns zero. Essays always start at zero earned points
// with grading status pending.
//
// rawAnswers may be shorter than questions (absent entries score as the
// empty answer) but may never be longer.
func Score(questions []model.Question, rawAnswers []string) ([]model.AnswerDetail, error) {
	if len(questions) == 0 {
		return nil, fmt.Errorf("%w: quiz has no questions", ErrInvalidQuestionDefinition)
	}
	if len(rawAnswers) > len(questions) {
		return nil, fmt.Errorf("%w: %d answers for %d questions",
			ErrMalformedSubmission, len(rawAnswers), len(questions))
	}

	details := make([]model.AnswerDetail, len(questions))
	for i := range questions {
		q := &questions[i]

		var userAnswer string
		if i < len(rawAnswers) {
			userAnswer = rawAnswers[i]
		}

		if q.Kind == model.KindEssay {
			details[i] = model.AnswerDetail{
				QuestionIndex: i,
				QuestionKind:  model.KindEssay,
				UserAnswer:    userAnswer,
				Points:        q.Points,
				EarnedPoints:  0,
				EssayGrading:  &model.EssayGrading{GradingStatus: model.GradingPending},
			}
			continue
		}

		if q.CorrectAnswer == "" {
			return nil, fmt.Errorf("%w: question %d (%s) has no correct answer",
				ErrInvalidQuestionDefinition, i, q.Kind)
		}

		correct := answerMatches(q.Kind, userAnswer, q.CorrectAnswer)
		var earned float64
		if correct {
			earned = q.Points
		}

		details[i] = model.AnswerDetail{
			QuestionIndex: i,
			QuestionKind:  q.Kind,
			UserAnswer:    userAnswer,
			CorrectAnswer: q.CorrectAnswer,
			IsCorrect:     correct,
			Points:        q.Points,
			EarnedPoints:  earned,
		}
	}

	return details, nil
}

// answerMatches compares a raw answer against the key for one objective
// question kind.
func answerMatches(kind model.QuestionKind, userAnswer, correctAnswer string) bool {
	if kind == model.KindMultiple {
		return setEqual(splitChoices(userAnswer), splitChoices(correctAnswer))
	}
	return userAnswer == correctAnswer
}

// splitChoices turns a comma-joined option list into a set. Blank and
// duplicate entries collapse, so "B,A,B" and "A,B" select the same options.
func splitChoices(raw string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			set[trimmed] = struct{}{}
		}
	}
	return set
}

func setEqual(a, b map[string]struct{}) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if _, ok := b[k]; !ok {
			return false
		}
	}
	return true
}
