package model

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"
)

var (
	ErrMalformedQuiz     = errors.New("malformed quiz")
	ErrUnknownQuestion   = errors.New("unknown question")
	ErrOptionOutOfRange  = errors.New("option out of range")
	ErrSessionSubmitted  = errors.New("quiz session already submitted")
	ErrInvalidDifficulty = errors.New("invalid difficulty")
)

type Difficulty string

const (
	DifficultyEasy   Difficulty = "EASY"
	DifficultyMedium Difficulty = "MEDIUM"
	DifficultyHard   Difficulty = "HARD"
)

// QuestionCountChoices are the sizes offered by the configuration dialog.
var QuestionCountChoices = []int{5, 10, 15, 20}

func ParseDifficulty(s string) (Difficulty, error) {
	switch d := Difficulty(s); d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return d, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidDifficulty, s)
}

type MCQQuestion struct {
	Id            int64    `json:"id"`
	Text          string   `json:"text"`
	Options       []string `json:"options"`
	CorrectOption int      `json:"correctOption"`
	Explanation   string   `json:"explanation"`
}

// ValidateQuestions checks a generated question set before it becomes a session.
func ValidateQuestions(questions []MCQQuestion) error {
	if len(questions) == 0 {
		return fmt.Errorf("%w: no questions", ErrMalformedQuiz)
	}
	seen := make(map[int64]struct{}, len(questions))
	for i, q := range questions {
		if _, dup := seen[q.Id]; dup {
			return fmt.Errorf("%w: duplicate question id %d", ErrMalformedQuiz, q.Id)
		}
		seen[q.Id] = struct{}{}
		if len(q.Options) < 2 {
			return fmt.Errorf("%w: question %d has %d options", ErrMalformedQuiz, i, len(q.Options))
		}
		if q.CorrectOption < 0 || q.CorrectOption >= len(q.Options) {
			return fmt.Errorf("%w: question %d correct option %d", ErrMalformedQuiz, i, q.CorrectOption)
		}
	}
	return nil
}

type Answer struct {
	QuestionId     int64 `json:"questionId"`
	SelectedOption int   `json:"selectedOption"`
}

type Explanation struct {
	QuestionId  int64  `json:"questionId"`
	Explanation string `json:"explanation"`
}

type DocumentRecommendation struct {
	PdfId  int64  `json:"pdfId"`
	Title  string `json:"title"`
	Reason string `json:"reason"`
}

type SubmissionResult struct {
	Score           float64                  `json:"score"`
	Explanations    []Explanation            `json:"explanations"`
	Recommendations []DocumentRecommendation `json:"recommendations"`
}

// QuizSession is one attempt. Questions are fixed once generated; Answers holds at most
// one entry per question id. Once Submitted, Answers is frozen and Result is set.
type QuizSession struct {
	Questions    []MCQQuestion
	CurrentIndex int
	Answers      map[int64]int
	StartedAt    time.Time
	Submitted    bool
	Result       *SubmissionResult
}

func NewQuizSession(questions []MCQQuestion, startedAt time.Time) *QuizSession {
	return &QuizSession{
		Questions: questions,
		Answers:   make(map[int64]int),
		StartedAt: startedAt,
	}
}

func (s *QuizSession) question(id int64) (MCQQuestion, bool) {
	for _, q := range s.Questions {
		if q.Id == id {
			return q, true
		}
	}
	return MCQQuestion{}, false
}

// RecordAnswer upserts the selection for one question.
func (s *QuizSession) RecordAnswer(questionId int64, option int) error {
	if s.Submitted {
		return ErrSessionSubmitted
	}
	q, ok := s.question(questionId)
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownQuestion, questionId)
	}
	if option < 0 || option >= len(q.Options) {
		return fmt.Errorf("%w: %d not in [0,%d)", ErrOptionOutOfRange, option, len(q.Options))
	}
	s.Answers[questionId] = option
	return nil
}

// Navigate moves the cursor by delta, clamped to the question range.
func (s *QuizSession) Navigate(delta int) {
	if len(s.Questions) == 0 {
		s.CurrentIndex = 0
		return
	}
	next := s.CurrentIndex + delta
	// guard against overflow on huge deltas
	if delta > 0 && next < s.CurrentIndex {
		next = len(s.Questions) - 1
	}
	if delta < 0 && next > s.CurrentIndex {
		next = 0
	}
	if next < 0 {
		next = 0
	}
	if next > len(s.Questions)-1 {
		next = len(s.Questions) - 1
	}
	s.CurrentIndex = next
}

func (s *QuizSession) Current() (MCQQuestion, bool) {
	if s.CurrentIndex < 0 || s.CurrentIndex >= len(s.Questions) {
		return MCQQuestion{}, false
	}
	return s.Questions[s.CurrentIndex], true
}

func (s *QuizSession) AnsweredCount() int {
	return len(s.Answers)
}

// AnswerList returns the answers in question order, the shape the grader expects.
func (s *QuizSession) AnswerList() []Answer {
	order := make(map[int64]int, len(s.Questions))
	for i, q := range s.Questions {
		order[q.Id] = i
	}
	answers := make([]Answer, 0, len(s.Answers))
	for id, option := range s.Answers {
		answers = append(answers, Answer{QuestionId: id, SelectedOption: option})
	}
	sort.Slice(answers, func(i, j int) bool {
		return order[answers[i].QuestionId] < order[answers[j].QuestionId]
	})
	return answers
}

// Clone deep-copies the session so readers never alias store-owned state.
func (s *QuizSession) Clone() *QuizSession {
	if s == nil {
		return nil
	}
	c := *s
	c.Questions = make([]MCQQuestion, len(s.Questions))
	for i, q := range s.Questions {
		q.Options = append([]string(nil), q.Options...)
		c.Questions[i] = q
	}
	c.Answers = make(map[int64]int, len(s.Answers))
	for k, v := range s.Answers {
		c.Answers[k] = v
	}
	if s.Result != nil {
		r := *s.Result
		r.Explanations = append([]Explanation(nil), s.Result.Explanations...)
		r.Recommendations = append([]DocumentRecommendation(nil), s.Result.Recommendations...)
		c.Result = &r
	}
	return &c
}

// QuestionReview is the per-question breakdown shown after completion.
type QuestionReview struct {
	Question    MCQQuestion
	Selected    int
	Answered    bool
	Correct     bool
	Explanation string
}

func (s *QuizSession) Review() []QuestionReview {
	explanations := make(map[int64]string)
	if s.Result != nil {
		for _, e := range s.Result.Explanations {
			explanations[e.QuestionId] = e.Explanation
		}
	}
	reviews := make([]QuestionReview, 0, len(s.Questions))
	for _, q := range s.Questions {
		selected, answered := s.Answers[q.Id]
		explanation, ok := explanations[q.Id]
		if !ok {
			explanation = q.Explanation
		}
		reviews = append(reviews, QuestionReview{
			Question:    q,
			Selected:    selected,
			Answered:    answered,
			Correct:     answered && selected == q.CorrectOption,
			Explanation: explanation,
		})
	}
	return reviews
}

type Severity string

const (
	SeverityFavorable   Severity = "favorable"
	SeverityBorderline  Severity = "borderline"
	SeverityUnfavorable Severity = "unfavorable"
)

func ScoreSeverity(score float64) Severity {
	switch {
	case score >= 80:
		return SeverityFavorable
	case score >= 60:
		return SeverityBorderline
	default:
		return SeverityUnfavorable
	}
}

// FormatElapsed renders seconds as mm:ss.
func FormatElapsed(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}

type QuizHistory struct {
	Id               int64     `json:"id"`
	PdfId            int64     `json:"pdfId"`
	PdfTitle         string    `json:"pdfTitle,omitempty"`
	Score            float64   `json:"score"`
	QuestionCount    int       `json:"questionCount"`
	CorrectAnswers   int       `json:"correctAnswers,omitempty"`
	CompletedAt      Timestamp `json:"completedAt"`
	Difficulty       string    `json:"difficulty"`
	TimeTakenSeconds int       `json:"timeTakenSeconds"`
}

// HistorySummary aggregates completed attempts. AverageScore is rounded to a whole
// percent and is zero when there is no attempt.
type HistorySummary struct {
	Count            int     `json:"count"`
	AverageScore     float64 `json:"averageScore"`
	TotalTimeSeconds int     `json:"totalTimeSeconds"`
}

func SummarizeHistory(items []QuizHistory) HistorySummary {
	summary := HistorySummary{Count: len(items)}
	if len(items) == 0 {
		return summary
	}
	var total float64
	for _, h := range items {
		total += h.Score
		summary.TotalTimeSeconds += h.TimeTakenSeconds
	}
	summary.AverageScore = math.Round(total / float64(len(items)))
	return summary
}
