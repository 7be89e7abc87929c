package service

import (
	"context"
	"sort"

	"edulycee-client/internal/model"
)

type IHistoryService interface {
	All(ctx context.Context) ([]model.QuizHistory, error)
	ForDocument(ctx context.Context, pdfId int64) ([]model.QuizHistory, error)
	Questions(ctx context.Context, historyId int64) ([]model.MCQQuestion, error)
	Summary(ctx context.Context) (model.HistorySummary, error)
}

type historyService struct {
	api IApiService
}

func NewHistoryService(api IApiService) IHistoryService {
	return &historyService{api: api}
}

func (s *historyService) All(ctx context.Context) ([]model.QuizHistory, error) {
	items, err := s.api.GetQuizHistory(ctx)
	if err != nil {
		return nil, err
	}
	newestFirst(items)
	return items, nil
}

func (s *historyService) ForDocument(ctx context.Context, pdfId int64) ([]model.QuizHistory, error) {
	items, err := s.api.GetQuizHistoryForDocument(ctx, pdfId)
	if err != nil {
		return nil, err
	}
	newestFirst(items)
	return items, nil
}

func (s *historyService) Questions(ctx context.Context, historyId int64) ([]model.MCQQuestion, error) {
	return s.api.GetQuizQuestions(ctx, historyId)
}

// Summary counts every attempt of the user with its average score and total time.
func (s *historyService) Summary(ctx context.Context) (model.HistorySummary, error) {
	items, err := s.api.GetQuizHistory(ctx)
	if err != nil {
		return model.HistorySummary{}, err
	}
	return model.SummarizeHistory(items), nil
}

func newestFirst(items []model.QuizHistory) {
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].CompletedAt.After(items[j].CompletedAt.Time)
	})
}
