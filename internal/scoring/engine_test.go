package scoring

import (
	"errors"
	"reflect"
	"testing"

	"github.com/quizdesk/quizdesk-backend/internal/model"
)

func objectiveQuestion(kind model.QuestionKind, answer string, points float64) model.Question {
	return model.Question{
		Kind:          kind,
		Options:       []string{"A", "B", "C", "D"},
		CorrectAnswer: answer,
		Points:        points,
	}
}

func TestScore_SingleAndBoolean(t *testing.T) {
	tests := []struct {
		name    string
		kind    model.QuestionKind
		key     string
		answer  string
		correct bool
	}{
		{name: "single exact match", kind: model.KindSingle, key: "B", answer: "B", correct: true},
		{name: "single wrong option", kind: model.KindSingle, key: "B", answer: "A", correct: false},
		{name: "single blank answer", kind: model.KindSingle, key: "B", answer: "", correct: false},
		{name: "single case sensitive", kind: model.KindSingle, key: "B", answer: "b", correct: false},
		{name: "boolean true", kind: model.KindBoolean, key: "true", answer: "true", correct: true},
		{name: "boolean mismatch", kind: model.KindBoolean, key: "true", answer: "false", correct: false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			details, err := Score(
				[]model.Question{objectiveQuestion(tc.kind, tc.key, 2)},
				[]string{tc.answer},
			)
			if err != nil {
				t.Fatalf("Score returned error: %v", err)
			}
			got := details[0]
			if got.IsCorrect != tc.correct {
				t.Errorf("IsCorrect = %v, want %v", got.IsCorrect, tc.correct)
			}
			wantEarned := 0.0
			if tc.correct {
				wantEarned = 2
			}
			if got.EarnedPoints != wantEarned {
				t.Errorf("EarnedPoints = %v, want %v", got.EarnedPoints, wantEarned)
			}
			if got.CorrectAnswer != tc.key {
				t.Errorf("CorrectAnswer not frozen: got %q, want %q", got.CorrectAnswer, tc.key)
			}
		})
	}
}

func TestScore_MultipleIsOrderIndependent(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		answer  string
		correct bool
	}{
		{name: "same order", key: "A,B", answer: "A,B", correct: true},
		{name: "reversed order", key: "A,B", answer: "B,A", correct: true},
		{name: "duplicates collapse", key: "A,B", answer: "B,A,B", correct: true},
		{name: "whitespace tolerated", key: "A,B", answer: " B , A ", correct: true},
		{name: "missing one option", key: "A,B", answer: "A", correct: false},
		{name: "extra option", key: "A,B", answer: "A,B,C", correct: false},
		{name: "empty answer", key: "A,B", answer: "", correct: false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			details, err := Score(
				[]model.Question{objectiveQuestion(model.KindMultiple, tc.key, 1)},
				[]string{tc.answer},
			)
			if err != nil {
				t.Fatalf("Score returned error: %v", err)
			}
			if details[0].IsCorrect != tc.correct {
				t.Errorf("IsCorrect = %v, want %v", details[0].IsCorrect, tc.correct)
			}
		})
	}
}

func TestScore_EssayNeverAutoScored(t *testing.T) {
	questions := []model.Question{
		{Kind: model.KindEssay, Points: 8},
	}
	details, err := Score(questions, []string{"my long essay answer"})
	if err != nil {
		t.Fatalf("Score returned error: %v", err)
	}

	a := details[0]
	if a.EarnedPoints != 0 {
		t.Errorf("essay EarnedPoints = %v, want 0", a.EarnedPoints)
	}
	if a.EssayGrading == nil || a.EssayGrading.GradingStatus != model.GradingPending {
		t.Errorf("essay grading status = %+v, want pending", a.EssayGrading)
	}
	if a.UserAnswer != "my long essay answer" {
		t.Errorf("UserAnswer = %q, not preserved", a.UserAnswer)
	}
}

func TestScore_MissingAnswersDefaultToBlank(t *testing.T) {
	questions := []model.Question{
		objectiveQuestion(model.KindSingle, "A", 1),
		objectiveQuestion(model.KindSingle, "B", 1),
		objectiveQuestion(model.KindSingle, "C", 1),
	}

	details, err := Score(questions, []string{"A"})
	if err != nil {
		t.Fatalf("Score returned error: %v", err)
	}
	if len(details) != 3 {
		t.Fatalf("got %d details, want 3", len(details))
	}
	if !details[0].IsCorrect {
		t.Error("answered question should be correct")
	}
	for i := 1; i < 3; i++ {
		if details[i].UserAnswer != "" || details[i].IsCorrect {
			t.Errorf("question %d: want blank incorrect answer, got %+v", i, details[i])
		}
	}
}

func TestScore_TooManyAnswersFails(t *testing.T) {
	questions := []model.Question{objectiveQuestion(model.KindSingle, "A", 1)}

	_, err := Score(questions, []string{"A", "B"})
	if !errors.Is(err, ErrMalformedSubmission) {
		t.Fatalf("err = %v, want ErrMalformedSubmission", err)
	}
}

func TestScore_ObjectiveWithoutKeyFails(t *testing.T) {
	questions := []model.Question{
		{Kind: model.KindSingle, Options: []string{"A", "B"}, Points: 1},
	}

	_, err := Score(questions, []string{"A"})
	if !errors.Is(err, ErrInvalidQuestionDefinition) {
		t.Fatalf("err = %v, want ErrInvalidQuestionDefinition", err)
	}
}

func TestScore_EmptyQuizFails(t *testing.T) {
	_, err := Score(nil, nil)
	if !errors.Is(err, ErrInvalidQuestionDefinition) {
		t.Fatalf("err = %v, want ErrInvalidQuestionDefinition", err)
	}
}

// Score must be a pure function: identical inputs, identical outputs.
func TestScore_Deterministic(t *testing.T) {
	questions := []model.Question{
		objectiveQuestion(model.KindSingle, "A", 1),
		objectiveQuestion(model.KindMultiple, "A,C", 3),
		{Kind: model.KindEssay, Points: 8},
	}
	answers := []string{"A", "C,A", "essay text"}

	first, err := Score(questions, answers)
	if err != nil {
		t.Fatalf("Score returned error: %v", err)
	}
	second, err := Score(questions, answers)
	if err != nil {
		t.Fatalf("Score returned error: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("repeated scoring differs:\nfirst:  %+v\nsecond: %+v", first, second)
	}
}
