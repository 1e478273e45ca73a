package grading

import (
	"errors"
	"math"
	"reflect"
	"testing"
	"time"

	"github.com/quizdesk/quizdesk-backend/internal/model"
	"github.com/quizdesk/quizdesk-backend/internal/scoring"
)

var gradedAt = time.Date(2025, 3, 14, 10, 30, 0, 0, time.UTC)

// mixedSubmission builds a quiz with two 1-point objective questions (one
// answered right, one wrong) plus an 8-point essay, scored and initialized.
func mixedSubmission(t *testing.T) *model.Submission {
	t.Helper()

	questions := []model.Question{
		{Kind: model.KindSingle, Options: []string{"A", "B"}, CorrectAnswer: "A", Points: 1},
		{Kind: model.KindSingle, Options: []string{"A", "B"}, CorrectAnswer: "B", Points: 1},
		{Kind: model.KindEssay, Points: 8},
	}
	answers, err := scoring.Score(questions, []string{"A", "A", "some essay text"})
	if err != nil {
		t.Fatalf("scoring failed: %v", err)
	}

	s := &model.Submission{Answers: answers, AttemptNumber: 1}
	Initialize(s)
	return s
}

func objectiveOnlySubmission(t *testing.T) *model.Submission {
	t.Helper()

	questions := []model.Question{
		{Kind: model.KindBoolean, CorrectAnswer: "true", Points: 2},
		{Kind: model.KindSingle, Options: []string{"A", "B"}, CorrectAnswer: "B", Points: 2},
	}
	answers, err := scoring.Score(questions, []string{"true", "B"})
	if err != nil {
		t.Fatalf("scoring failed: %v", err)
	}

	s := &model.Submission{Answers: answers, AttemptNumber: 1}
	Initialize(s)
	return s
}

func TestInitialize_MixedQuiz(t *testing.T) {
	s := mixedSubmission(t)

	if s.Status != model.StatusSubmitted {
		t.Errorf("Status = %s, want submitted", s.Status)
	}
	if !s.GradingInfo.RequiresGrading {
		t.Error("RequiresGrading = false, want true")
	}
	if s.GradingInfo.GradingProgress != 0 {
		t.Errorf("GradingProgress = %d, want 0", s.GradingInfo.GradingProgress)
	}
	if s.ObjectiveScore != 50 {
		t.Errorf("ObjectiveScore = %d, want 50", s.ObjectiveScore)
	}
	if s.EssayScore != 0 {
		t.Errorf("EssayScore = %d, want 0", s.EssayScore)
	}
	// 1 earned point out of 10 total.
	if s.Score != 10 {
		t.Errorf("Score = %d, want 10", s.Score)
	}
	if s.TotalPoints != 10 || s.EarnedPoints != 1 {
		t.Errorf("points = %v/%v, want 1/10", s.EarnedPoints, s.TotalPoints)
	}
}

func TestInitialize_ObjectiveOnlyIsImmediatelyGraded(t *testing.T) {
	s := objectiveOnlySubmission(t)

	if s.Status != model.StatusGraded {
		t.Errorf("Status = %s, want graded", s.Status)
	}
	if s.GradingInfo.RequiresGrading {
		t.Error("RequiresGrading = true, want false")
	}
	if s.GradingInfo.GradingProgress != 100 {
		t.Errorf("GradingProgress = %d, want 100", s.GradingInfo.GradingProgress)
	}
	if s.Score != 100 {
		t.Errorf("Score = %d, want 100", s.Score)
	}
}

// End-to-end scenario from the grading workflow: grading the essay 6/8
// brings the combined score to 7/10 and completes the submission.
func TestGradeEssay_CompletesSubmission(t *testing.T) {
	s := mixedSubmission(t)

	if err := GradeEssay(s, 2, 6, "good", 42, gradedAt); err != nil {
		t.Fatalf("GradeEssay failed: %v", err)
	}

	if s.EssayScore != 75 {
		t.Errorf("EssayScore = %d, want 75", s.EssayScore)
	}
	if s.EarnedPoints != 7 {
		t.Errorf("EarnedPoints = %v, want 7", s.EarnedPoints)
	}
	if s.Score != 70 {
		t.Errorf("Score = %d, want 70", s.Score)
	}
	if s.Status != model.StatusGraded {
		t.Errorf("Status = %s, want graded", s.Status)
	}
	if s.GradingInfo.GradingProgress != 100 {
		t.Errorf("GradingProgress = %d, want 100", s.GradingInfo.GradingProgress)
	}
	if s.GradingInfo.GradedBy == nil || *s.GradingInfo.GradedBy != 42 {
		t.Errorf("GradedBy = %v, want 42", s.GradingInfo.GradedBy)
	}

	g := s.Answers[2].EssayGrading
	if g == nil || g.GradingStatus != model.GradingGraded {
		t.Fatalf("essay grading = %+v, want graded", g)
	}
	if g.TeacherScore == nil || *g.TeacherScore != 6 {
		t.Errorf("TeacherScore = %v, want 6", g.TeacherScore)
	}
	if g.TeacherComment != "good" {
		t.Errorf("TeacherComment = %q, want %q", g.TeacherComment, "good")
	}
}

func TestGradeEssay_PartialProgress(t *testing.T) {
	questions := []model.Question{
		{Kind: model.KindEssay, Points: 5},
		{Kind: model.KindEssay, Points: 5},
		{Kind: model.KindEssay, Points: 5},
	}
	answers, err := scoring.Score(questions, []string{"a", "b", "c"})
	if err != nil {
		t.Fatalf("scoring failed: %v", err)
	}
	s := &model.Submission{Answers: answers}
	Initialize(s)

	if err := GradeEssay(s, 0, 5, "", 7, gradedAt); err != nil {
		t.Fatalf("GradeEssay failed: %v", err)
	}

	if s.Status != model.StatusPartialGraded {
		t.Errorf("Status = %s, want partial_graded", s.Status)
	}
	// 1 of 3 essays graded.
	if s.GradingInfo.GradingProgress != 33 {
		t.Errorf("GradingProgress = %d, want 33", s.GradingInfo.GradingProgress)
	}
	if s.GradingInfo.GradedBy != nil {
		t.Error("GradedBy set before grading completed")
	}
}

func TestGradeEssay_PreconditionsLeaveStateUntouched(t *testing.T) {
	tests := []struct {
		name    string
		index   int
		score   float64
		wantErr error
	}{
		{name: "index past end", index: 3, score: 1, wantErr: ErrQuestionNotFound},
		{name: "negative index", index: -1, score: 1, wantErr: ErrQuestionNotFound},
		{name: "objective question", index: 0, score: 1, wantErr: ErrNotAnEssayQuestion},
		{name: "score above points", index: 2, score: 9, wantErr: ErrScoreOutOfRange},
		{name: "negative score", index: 2, score: -1, wantErr: ErrScoreOutOfRange},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s := mixedSubmission(t)
			before := *s
			beforeAnswers := append([]model.AnswerDetail(nil), s.Answers...)

			err := GradeEssay(s, tc.index, tc.score, "", 42, gradedAt)
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("err = %v, want %v", err, tc.wantErr)
			}

			after := *s
			after.Answers = nil
			before.Answers = nil
			if !reflect.DeepEqual(before, after) {
				t.Errorf("submission mutated by failed grade:\nbefore: %+v\nafter:  %+v", before, after)
			}
			if !reflect.DeepEqual(beforeAnswers, s.Answers) {
				t.Errorf("answers mutated by failed grade")
			}
		})
	}
}

func TestGradeBatch_SkipsInvalidAndReportsPerItem(t *testing.T) {
	s := mixedSubmission(t)

	results := GradeBatch(s, []EssayGrade{
		{QuestionIndex: 2, Score: 4, Comment: "ok"},
		{QuestionIndex: 99, Score: 1},
		{QuestionIndex: 0, Score: 1},
	}, 42, "overall notes", gradedAt)

	if len(results) != 3 {
		t.Fatalf("got %d results, want 3", len(results))
	}
	if !results[0].Applied || results[0].Err != nil {
		t.Errorf("valid item not applied: %+v", results[0])
	}
	if results[1].Applied || !errors.Is(results[1].Err, ErrQuestionNotFound) {
		t.Errorf("out-of-range item: %+v", results[1])
	}
	if results[2].Applied || !errors.Is(results[2].Err, ErrNotAnEssayQuestion) {
		t.Errorf("objective item: %+v", results[2])
	}

	// The valid grade landed and the whole submission was rederived once.
	if s.Status != model.StatusGraded {
		t.Errorf("Status = %s, want graded", s.Status)
	}
	if s.EssayScore != 50 {
		t.Errorf("EssayScore = %d, want 50", s.EssayScore)
	}
	if s.GradingInfo.TeacherComments != "overall notes" {
		t.Errorf("TeacherComments = %q, want overall comment", s.GradingInfo.TeacherComments)
	}
}

func TestRederive_Idempotent(t *testing.T) {
	submissions := map[string]*model.Submission{
		"fresh mixed":    mixedSubmission(t),
		"objective only": objectiveOnlySubmission(t),
	}

	graded := mixedSubmission(t)
	if err := GradeEssay(graded, 2, 3, "", 42, gradedAt); err != nil {
		t.Fatalf("GradeEssay failed: %v", err)
	}
	submissions["fully graded"] = graded

	for name, s := range submissions {
		t.Run(name, func(t *testing.T) {
			Rederive(s)
			once := *s
			onceAnswers := append([]model.AnswerDetail(nil), s.Answers...)

			Rederive(s)
			twice := *s
			once.Answers, twice.Answers = nil, nil

			if !reflect.DeepEqual(once, twice) {
				t.Errorf("rederive not idempotent:\nonce:  %+v\ntwice: %+v", once, twice)
			}
			if !reflect.DeepEqual(onceAnswers, s.Answers) {
				t.Errorf("answers changed by second rederive")
			}
		})
	}
}

func TestRederive_RepairsDriftedAggregates(t *testing.T) {
	s := mixedSubmission(t)

	// Simulate stored aggregates that drifted from the answers.
	s.Score = 99
	s.EarnedPoints = 123
	s.ObjectiveScore = 0
	s.Status = model.StatusPartialGraded
	s.GradingInfo.GradingProgress = 55

	Rederive(s)

	if s.Score != 10 || s.EarnedPoints != 1 || s.ObjectiveScore != 50 {
		t.Errorf("aggregates not repaired: score=%d earned=%v objective=%d",
			s.Score, s.EarnedPoints, s.ObjectiveScore)
	}
	if s.Status != model.StatusSubmitted {
		t.Errorf("Status = %s, want submitted", s.Status)
	}
	if s.GradingInfo.GradingProgress != 0 {
		t.Errorf("GradingProgress = %d, want 0", s.GradingInfo.GradingProgress)
	}
}

func TestRederive_PreservesReviewOverride(t *testing.T) {
	s := mixedSubmission(t)
	s.Status = model.StatusReview

	Rederive(s)

	if s.Status != model.StatusReview {
		t.Errorf("Status = %s, review override must survive rederive", s.Status)
	}
	// Aggregates are still recomputed.
	if s.Score != 10 {
		t.Errorf("Score = %d, want 10", s.Score)
	}
}

// Aggregate consistency invariant: score always equals the rounded ratio of
// earned to total points after any sequence of operations.
func TestAggregateConsistencyInvariant(t *testing.T) {
	s := mixedSubmission(t)

	check := func(stage string) {
		t.Helper()
		want := 0
		if s.TotalPoints > 0 {
			want = int(math.Round(s.EarnedPoints / s.TotalPoints * 100))
		}
		if s.Score != want {
			t.Errorf("%s: Score = %d, want %d", stage, s.Score, want)
		}
		total, graded := s.EssayCounts()
		wantGraded := total == graded
		if (s.Status == model.StatusGraded) != wantGraded {
			t.Errorf("%s: Status = %s with %d/%d essays graded", stage, s.Status, graded, total)
		}
	}

	check("after initialize")
	if err := GradeEssay(s, 2, 2.5, "", 42, gradedAt); err != nil {
		t.Fatalf("GradeEssay failed: %v", err)
	}
	check("after grading")
	Rederive(s)
	check("after rederive")
}

// Regrading an already graded essay replaces the previous score instead of
// accumulating.
func TestGradeEssay_RegradeReplacesScore(t *testing.T) {
	s := mixedSubmission(t)

	if err := GradeEssay(s, 2, 8, "first pass", 42, gradedAt); err != nil {
		t.Fatalf("GradeEssay failed: %v", err)
	}
	if err := GradeEssay(s, 2, 4, "second pass", 43, gradedAt.Add(time.Hour)); err != nil {
		t.Fatalf("regrade failed: %v", err)
	}

	if s.EarnedPoints != 5 { // 1 objective + 4 essay
		t.Errorf("EarnedPoints = %v, want 5", s.EarnedPoints)
	}
	if s.EssayScore != 50 {
		t.Errorf("EssayScore = %d, want 50", s.EssayScore)
	}
	g := s.Answers[2].EssayGrading
	if g.TeacherComment != "second pass" || *g.GradedBy != 43 {
		t.Errorf("regrade did not replace grading record: %+v", g)
	}
}
