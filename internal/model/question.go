package model

import (
	"errors"
	"fmt"
	"strings"
)

// QuestionKind enumerates the supported question types. Everything except
// KindEssay is objective and auto-graded at submit time.
type QuestionKind string

const (
	KindSingle   QuestionKind = "single"
	KindMultiple QuestionKind = "multiple"
	KindBoolean  QuestionKind = "boolean"
	KindEssay    QuestionKind = "essay"
)

// IsObjective reports whether the kind can be auto-graded.
func (k QuestionKind) IsObjective() bool {
	return k == KindSingle || k == KindMultiple || k == KindBoolean
}

// Valid reports whether the kind is one of the known values.
func (k QuestionKind) Valid() bool {
	switch k {
	case KindSingle, KindMultiple, KindBoolean, KindEssay:
		return true
	}
	return false
}

// EssayConfig carries advisory grading hints for essay questions. The
// scoring engine never enforces these; they are surfaced to graders.
type EssayConfig struct {
	MinWords     int    `json:"min_words"`
	MaxWords     int    `json:"max_words"`
	Rubric       string `json:"rubric,omitempty"`
	SampleAnswer string `json:"sample_answer,omitempty"`
}

// Question is a single quiz question. Questions are embedded in the quiz
// document and identified by position; once a student submits, the
// submission keeps its own frozen copy of the fields grading needs, so
// later edits to the quiz never affect recorded attempts.
type Question struct {
	Index         int          `json:"index"`
	Kind          QuestionKind `json:"kind"`
	Text          string       `json:"text"`
	Options       []string     `json:"options,omitempty"`
	CorrectAnswer string       `json:"correct_answer,omitempty"`
	Points        float64      `json:"points"`
	EssayConfig   *EssayConfig `json:"essay_config,omitempty"`
}

// Question authoring errors.
var (
	ErrQuestionTextEmpty  = errors.New("question text is empty")
	ErrQuestionKind       = errors.New("unknown question kind")
	ErrQuestionPoints     = errors.New("question points must be positive")
	ErrTooFewOptions      = errors.New("question needs at least 2 options")
	ErrEmptyOption        = errors.New("question has an empty option")
	ErrMissingAnswerKey   = errors.New("objective question has no correct answer")
	ErrEssayHasAnswerKey  = errors.New("essay question must not define a correct answer")
	ErrEssayWordBounds    = errors.New("essay min words exceeds max words")
	ErrBooleanAnswerValue = errors.New("boolean answer must be true or false")
)

// Validate checks a single question against the authoring rules. pos is the
// question's position within the quiz, included in the error for context.
func (q *Question) Validate(pos int) error {
	if !q.Kind.Valid() {
		return fmt.Errorf("question %d: %w (%q)", pos, ErrQuestionKind, q.Kind)
	}
	if strings.TrimSpace(q.Text) == "" {
		return fmt.Errorf("question %d: %w", pos, ErrQuestionTextEmpty)
	}
	if q.Points <= 0 {
		return fmt.Errorf("question %d: %w", pos, ErrQuestionPoints)
	}

	switch q.Kind {
	case KindEssay:
		if q.CorrectAnswer != "" {
			return fmt.Errorf("question %d: %w", pos, ErrEssayHasAnswerKey)
		}
		if c := q.EssayConfig; c != nil && c.MinWords > 0 && c.MaxWords > 0 && c.MinWords > c.MaxWords {
			return fmt.Errorf("question %d: %w", pos, ErrEssayWordBounds)
		}

	case KindBoolean:
		if q.CorrectAnswer != "true" && q.CorrectAnswer != "false" {
			return fmt.Errorf("question %d: %w", pos, ErrBooleanAnswerValue)
		}

	default: // single, multiple
		if len(q.Options) < 2 {
			return fmt.Errorf("question %d: %w", pos, ErrTooFewOptions)
		}
		for _, opt := range q.Options {
			if strings.TrimSpace(opt) == "" {
				return fmt.Errorf("question %d: %w", pos, ErrEmptyOption)
			}
		}
		if q.CorrectAnswer == "" {
			return fmt.Errorf("question %d: %w", pos, ErrMissingAnswerKey)
		}
	}

	return nil
}
