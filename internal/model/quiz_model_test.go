package model

import (
	"encoding/json"
	"errors"
	"math"
	"testing"
	"time"
)

func sampleQuestions(n int) []MCQQuestion {
	questions := make([]MCQQuestion, n)
	for i := range questions {
		questions[i] = MCQQuestion{
			Id:            int64(i + 1),
			Text:          "question",
			Options:       []string{"a", "b", "c", "d"},
			CorrectOption: i % 4,
			Explanation:   "because",
		}
	}
	return questions
}

func TestRecordAnswerUpserts(t *testing.T) {
	s := NewQuizSession(sampleQuestions(5), time.Now())

	if err := s.RecordAnswer(3, 2); err != nil {
		t.Fatalf("RecordAnswer: %v", err)
	}
	if err := s.RecordAnswer(3, 1); err != nil {
		t.Fatalf("RecordAnswer: %v", err)
	}

	if len(s.Answers) != 1 {
		t.Fatalf("len(Answers) = %d, want 1", len(s.Answers))
	}
	if s.Answers[3] != 1 {
		t.Errorf("Answers[3] = %d, want 1", s.Answers[3])
	}
}

func TestRecordAnswerRejects(t *testing.T) {
	tests := []struct {
		name     string
		question int64
		option   int
		submit   bool
		wantErr  error
	}{
		{name: "unknown question", question: 42, option: 0, wantErr: ErrUnknownQuestion},
		{name: "negative option", question: 1, option: -1, wantErr: ErrOptionOutOfRange},
		{name: "option past end", question: 1, option: 4, wantErr: ErrOptionOutOfRange},
		{name: "submitted session", question: 1, option: 0, submit: true, wantErr: ErrSessionSubmitted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewQuizSession(sampleQuestions(3), time.Now())
			s.Submitted = tt.submit

			err := s.RecordAnswer(tt.question, tt.option)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("err = %v, want %v", err, tt.wantErr)
			}
			if len(s.Answers) != 0 {
				t.Errorf("answers mutated: %v", s.Answers)
			}
		})
	}
}

func TestNavigateClamps(t *testing.T) {
	tests := []struct {
		name  string
		start int
		delta int
		want  int
	}{
		{name: "forward", start: 0, delta: 1, want: 1},
		{name: "back", start: 2, delta: -1, want: 1},
		{name: "past end", start: 3, delta: 10, want: 4},
		{name: "before start", start: 1, delta: -10, want: 0},
		{name: "max int", start: 2, delta: math.MaxInt, want: 4},
		{name: "min int", start: 2, delta: math.MinInt, want: 0},
		{name: "zero", start: 3, delta: 0, want: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewQuizSession(sampleQuestions(5), time.Now())
			s.CurrentIndex = tt.start
			s.Navigate(tt.delta)
			if s.CurrentIndex != tt.want {
				t.Errorf("CurrentIndex = %d, want %d", s.CurrentIndex, tt.want)
			}
		})
	}
}

func TestNavigateNeverLeavesRange(t *testing.T) {
	s := NewQuizSession(sampleQuestions(7), time.Now())
	for delta := -20; delta <= 20; delta++ {
		s.Navigate(delta)
		if s.CurrentIndex < 0 || s.CurrentIndex > 6 {
			t.Fatalf("delta %d moved index to %d", delta, s.CurrentIndex)
		}
	}
}

func TestValidateQuestions(t *testing.T) {
	good := sampleQuestions(2)

	oneOption := sampleQuestions(1)
	oneOption[0].Options = []string{"only"}
	oneOption[0].CorrectOption = 0

	badCorrect := sampleQuestions(1)
	badCorrect[0].CorrectOption = 9

	dup := sampleQuestions(2)
	dup[1].Id = dup[0].Id

	tests := []struct {
		name      string
		questions []MCQQuestion
		wantErr   bool
	}{
		{name: "valid", questions: good},
		{name: "empty", questions: nil, wantErr: true},
		{name: "single option", questions: oneOption, wantErr: true},
		{name: "correct option out of range", questions: badCorrect, wantErr: true},
		{name: "duplicate id", questions: dup, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateQuestions(tt.questions)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrMalformedQuiz) {
				t.Errorf("err = %v, want ErrMalformedQuiz", err)
			}
		})
	}
}

func TestAnswerListFollowsQuestionOrder(t *testing.T) {
	s := NewQuizSession(sampleQuestions(4), time.Now())
	_ = s.RecordAnswer(4, 0)
	_ = s.RecordAnswer(1, 3)
	_ = s.RecordAnswer(2, 1)

	got := s.AnswerList()
	want := []Answer{{1, 3}, {2, 1}, {4, 0}}
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("answer %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestCloneDoesNotAlias(t *testing.T) {
	s := NewQuizSession(sampleQuestions(2), time.Now())
	_ = s.RecordAnswer(1, 0)
	s.Result = &SubmissionResult{Score: 50, Explanations: []Explanation{{1, "x"}}}

	c := s.Clone()
	c.Answers[2] = 1
	c.Questions[0].Options[0] = "changed"
	c.Result.Explanations[0].Explanation = "changed"

	if _, ok := s.Answers[2]; ok {
		t.Error("clone shares answers map")
	}
	if s.Questions[0].Options[0] == "changed" {
		t.Error("clone shares options")
	}
	if s.Result.Explanations[0].Explanation == "changed" {
		t.Error("clone shares explanations")
	}
}

func TestReviewUsesResultExplanations(t *testing.T) {
	s := NewQuizSession(sampleQuestions(2), time.Now())
	_ = s.RecordAnswer(1, 0) // correct: question 1 has CorrectOption 0
	s.Submitted = true
	s.Result = &SubmissionResult{Score: 50, Explanations: []Explanation{{QuestionId: 1, Explanation: "graded"}}}

	reviews := s.Review()
	if len(reviews) != 2 {
		t.Fatalf("len = %d", len(reviews))
	}
	if !reviews[0].Correct || reviews[0].Explanation != "graded" {
		t.Errorf("review[0] = %+v", reviews[0])
	}
	if reviews[1].Answered || reviews[1].Correct || reviews[1].Explanation != "because" {
		t.Errorf("review[1] = %+v", reviews[1])
	}
}

func TestScoreSeverity(t *testing.T) {
	tests := []struct {
		score float64
		want  Severity
	}{
		{100, SeverityFavorable},
		{80, SeverityFavorable},
		{79.9, SeverityBorderline},
		{60, SeverityBorderline},
		{59.99, SeverityUnfavorable},
		{0, SeverityUnfavorable},
	}
	for _, tt := range tests {
		if got := ScoreSeverity(tt.score); got != tt.want {
			t.Errorf("ScoreSeverity(%v) = %s, want %s", tt.score, got, tt.want)
		}
	}
}

func TestSummarizeHistory(t *testing.T) {
	tests := []struct {
		name  string
		items []QuizHistory
		want  HistorySummary
	}{
		{"empty", nil, HistorySummary{}},
		{"single", []QuizHistory{{Score: 72.4, TimeTakenSeconds: 90}}, HistorySummary{Count: 1, AverageScore: 72, TotalTimeSeconds: 90}},
		{"rounds average", []QuizHistory{
			{Score: 60, TimeTakenSeconds: 120},
			{Score: 80, TimeTakenSeconds: 45},
			{Score: 85, TimeTakenSeconds: 300},
		}, HistorySummary{Count: 3, AverageScore: 75, TotalTimeSeconds: 465}},
		{"half rounds up", []QuizHistory{{Score: 70}, {Score: 71}}, HistorySummary{Count: 2, AverageScore: 71}},
	}
	for _, tt := range tests {
		if got := SummarizeHistory(tt.items); got != tt.want {
			t.Errorf("%s: SummarizeHistory = %+v, want %+v", tt.name, got, tt.want)
		}
	}
}

func TestFormatElapsed(t *testing.T) {
	tests := map[int]string{0: "00:00", 59: "00:59", 120: "02:00", 3725: "62:05", -3: "00:00"}
	for in, want := range tests {
		if got := FormatElapsed(in); got != want {
			t.Errorf("FormatElapsed(%d) = %q, want %q", in, got, want)
		}
	}
}

func TestParseDifficulty(t *testing.T) {
	if d, err := ParseDifficulty("MEDIUM"); err != nil || d != DifficultyMedium {
		t.Errorf("ParseDifficulty(MEDIUM) = %q, %v", d, err)
	}
	if _, err := ParseDifficulty("medium"); !errors.Is(err, ErrInvalidDifficulty) {
		t.Errorf("lowercase accepted: %v", err)
	}
}

func TestTimestampUnmarshal(t *testing.T) {
	var doc Document
	raw := `{"id":7,"title":"Algèbre","createdAt":"2024-03-01T10:15:30","lastAccessed":null}`
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if doc.CreatedAt.Year() != 2024 || doc.CreatedAt.Minute() != 15 {
		t.Errorf("CreatedAt = %v", doc.CreatedAt)
	}
	if !doc.LastAccessed.IsZero() {
		t.Errorf("LastAccessed = %v, want zero", doc.LastAccessed)
	}
}
