package service

import (
	"context"
	"testing"

	"edulycee-client/internal/dto"
	"edulycee-client/internal/gateway"
	"edulycee-client/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHistoryNewestFirst(t *testing.T) {
	doer := &fakeDoer{respond: func(r gateway.Request) (interface{}, error) {
		return []map[string]interface{}{
			{"id": 1, "pdfId": 7, "score": 60, "completedAt": "2024-03-01T10:00:00"},
			{"id": 2, "pdfId": 7, "score": 80, "completedAt": "2024-03-05T10:00:00"},
		}, nil
	}}
	history := NewHistoryService(NewApiService(doer))

	items, err := history.ForDocument(context.Background(), 7)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, int64(2), items[0].Id)
	assert.Equal(t, "GET /quizzes/history/7", doer.paths()[0])

	_, err = history.All(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "GET /quizzes/history", doer.paths()[1])
}

func TestHistorySummary(t *testing.T) {
	doer := &fakeDoer{respond: func(r gateway.Request) (interface{}, error) {
		return []map[string]interface{}{
			{"id": 1, "pdfId": 7, "score": 60, "timeTakenSeconds": 120, "completedAt": "2024-03-01T10:00:00"},
			{"id": 2, "pdfId": 9, "score": 85, "timeTakenSeconds": 300, "completedAt": "2024-03-05T10:00:00"},
		}, nil
	}}

	summary, err := NewHistoryService(NewApiService(doer)).Summary(context.Background())
	require.NoError(t, err)
	assert.Equal(t, model.HistorySummary{Count: 2, AverageScore: 73, TotalTimeSeconds: 420}, summary)
	assert.Equal(t, "GET /quizzes/history", doer.paths()[0])
}

func TestHistorySummaryPropagatesFailure(t *testing.T) {
	doer := &fakeDoer{respond: func(r gateway.Request) (interface{}, error) {
		return nil, &gateway.APIError{Method: r.Method, Path: r.Path, Status: 500}
	}}

	summary, err := NewHistoryService(NewApiService(doer)).Summary(context.Background())
	assert.ErrorIs(t, err, gateway.ErrServer)
	assert.Zero(t, summary)
}

func TestHistoryQuestions(t *testing.T) {
	doer := &fakeDoer{respond: func(r gateway.Request) (interface{}, error) {
		return []model.MCQQuestion{{Id: 1, Text: "q", Options: []string{"a", "b"}}}, nil
	}}

	qs, err := NewHistoryService(NewApiService(doer)).Questions(context.Background(), 11)
	require.NoError(t, err)
	require.Len(t, qs, 1)
	assert.Equal(t, "GET /pdfs/quiz-history/11/questions", doer.paths()[0])
}

func TestSubmitQuizSendsFullQuestionSet(t *testing.T) {
	doer := &fakeDoer{respond: func(r gateway.Request) (interface{}, error) {
		return map[string]interface{}{"score": 80, "explanations": []interface{}{}, "recommendations": []interface{}{}}, nil
	}}
	questions := []model.MCQQuestion{{Id: 1, Options: []string{"a", "b"}}}
	req := &dto.MCQSubmissionRequest{
		Answers:          []model.Answer{{QuestionId: 1, SelectedOption: 0}},
		TimeTakenSeconds: 120,
		Questions:        questions,
	}

	res, err := NewApiService(doer).SubmitQuiz(context.Background(), 42, req)
	require.NoError(t, err)
	assert.Equal(t, float64(80), res.Score)

	r := doer.last()
	assert.Equal(t, "/pdfs/42/mcq/submit", r.Path)
	assert.Same(t, req, r.Body)
}
