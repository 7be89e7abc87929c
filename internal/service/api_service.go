package service

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"edulycee-client/internal/dto"
	"edulycee-client/internal/gateway"
	"edulycee-client/internal/model"
)

// IApiService is the typed view of the remote contract. Every method goes through
// the gateway, so every method shares its auth and failure handling.
type IApiService interface {
	Login(ctx context.Context, req *dto.LoginRequest) (*dto.AuthResponse, error)
	Register(ctx context.Context, req *dto.RegisterRequest) (*dto.AuthResponse, error)
	ListCategories(ctx context.Context) ([]string, error)
	ListDocuments(ctx context.Context, category string, page, size int) (*model.DocumentPage, error)
	SearchDocuments(ctx context.Context, query, category string, page, size int) (*model.DocumentPage, error)
	GetContent(ctx context.Context, pdfId int64) (string, error)
	TrackView(ctx context.Context, pdfId, userId int64) error
	Chat(ctx context.Context, req *dto.ChatRequest) (*dto.ChatResponse, error)
	GenerateQuiz(ctx context.Context, req *dto.MCQGenerationRequest) ([]model.MCQQuestion, error)
	SubmitQuiz(ctx context.Context, pdfId int64, req *dto.MCQSubmissionRequest) (*model.SubmissionResult, error)
	GetProgress(ctx context.Context, userId int64) (*model.UserProgress, error)
	GetStudiedDocuments(ctx context.Context, userId int64) ([]model.Document, error)
	GetRecommendations(ctx context.Context, userId int64) ([]model.Recommendation, error)
	GetQuizHistory(ctx context.Context) ([]model.QuizHistory, error)
	GetQuizHistoryForDocument(ctx context.Context, pdfId int64) ([]model.QuizHistory, error)
	GetQuizQuestions(ctx context.Context, historyId int64) ([]model.MCQQuestion, error)
}

type apiService struct {
	gw gateway.Doer
}

func NewApiService(gw gateway.Doer) IApiService {
	return &apiService{gw: gw}
}

func (s *apiService) Login(ctx context.Context, req *dto.LoginRequest) (*dto.AuthResponse, error) {
	var res dto.AuthResponse
	if err := s.gw.Do(ctx, gateway.Request{Method: http.MethodPost, Path: "/auth/login", Body: req}, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (s *apiService) Register(ctx context.Context, req *dto.RegisterRequest) (*dto.AuthResponse, error) {
	var res dto.AuthResponse
	if err := s.gw.Do(ctx, gateway.Request{Method: http.MethodPost, Path: "/auth/register", Body: req}, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (s *apiService) ListCategories(ctx context.Context) ([]string, error) {
	var res dto.CategoriesResponse
	if err := s.gw.Do(ctx, gateway.Request{Method: http.MethodGet, Path: "/pdfs/categories"}, &res); err != nil {
		return nil, err
	}
	return res.Categories, nil
}

func pageQuery(category string, page, size int) url.Values {
	q := url.Values{}
	if category != "" {
		q.Set("category", category)
	}
	q.Set("page", strconv.Itoa(page))
	q.Set("size", strconv.Itoa(size))
	return q
}

func (s *apiService) ListDocuments(ctx context.Context, category string, page, size int) (*model.DocumentPage, error) {
	var res dto.DocumentsResponse
	err := s.gw.Do(ctx, gateway.Request{
		Method: http.MethodGet,
		Path:   "/pdfs",
		Query:  pageQuery(category, page, size),
	}, &res)
	if err != nil {
		return nil, err
	}
	return toPage(res), nil
}

func (s *apiService) SearchDocuments(ctx context.Context, query, category string, page, size int) (*model.DocumentPage, error) {
	if size < 1 {
		size = 1
	}
	q := pageQuery(category, page, size)
	q.Set("q", query)

	var res dto.DocumentsResponse
	if err := s.gw.Do(ctx, gateway.Request{Method: http.MethodGet, Path: "/pdfs/search", Query: q}, &res); err != nil {
		return nil, err
	}
	return toPage(res), nil
}

func toPage(res dto.DocumentsResponse) *model.DocumentPage {
	docs := res.Pdfs
	if docs == nil {
		docs = []model.Document{}
	}
	return &model.DocumentPage{Documents: docs, TotalPages: res.TotalPages, CurrentPage: res.CurrentPage}
}

func (s *apiService) GetContent(ctx context.Context, pdfId int64) (string, error) {
	var res dto.ContentResponse
	err := s.gw.Do(ctx, gateway.Request{Method: http.MethodGet, Path: fmt.Sprintf("/pdfs/%d/content", pdfId)}, &res)
	if err != nil {
		return "", err
	}
	return res.Content, nil
}

func (s *apiService) TrackView(ctx context.Context, pdfId, userId int64) error {
	return s.gw.Do(ctx, gateway.Request{
		Method: http.MethodPost,
		Path:   fmt.Sprintf("/pdfs/%d/viewed", pdfId),
		Body:   dto.TrackViewRequest{UserId: userId},
	}, nil)
}

func (s *apiService) Chat(ctx context.Context, req *dto.ChatRequest) (*dto.ChatResponse, error) {
	var res dto.ChatResponse
	if err := s.gw.Do(ctx, gateway.Request{Method: http.MethodPost, Path: "/ai/chat", Body: req}, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (s *apiService) GenerateQuiz(ctx context.Context, req *dto.MCQGenerationRequest) ([]model.MCQQuestion, error) {
	var res dto.MCQResponse
	if err := s.gw.Do(ctx, gateway.Request{Method: http.MethodPost, Path: "/ai/generate-mcq", Body: req}, &res); err != nil {
		return nil, err
	}
	return res.Questions, nil
}

func (s *apiService) SubmitQuiz(ctx context.Context, pdfId int64, req *dto.MCQSubmissionRequest) (*model.SubmissionResult, error) {
	var res dto.MCQSubmissionResult
	err := s.gw.Do(ctx, gateway.Request{
		Method: http.MethodPost,
		Path:   fmt.Sprintf("/pdfs/%d/mcq/submit", pdfId),
		Body:   req,
	}, &res)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

func (s *apiService) GetProgress(ctx context.Context, userId int64) (*model.UserProgress, error) {
	var res model.UserProgress
	if err := s.gw.Do(ctx, gateway.Request{Method: http.MethodGet, Path: fmt.Sprintf("/progress/%d", userId)}, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (s *apiService) GetStudiedDocuments(ctx context.Context, userId int64) ([]model.Document, error) {
	res := []model.Document{}
	err := s.gw.Do(ctx, gateway.Request{Method: http.MethodGet, Path: fmt.Sprintf("/users/%d/studied-documents", userId)}, &res)
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (s *apiService) GetRecommendations(ctx context.Context, userId int64) ([]model.Recommendation, error) {
	res := []model.Recommendation{}
	err := s.gw.Do(ctx, gateway.Request{Method: http.MethodGet, Path: fmt.Sprintf("/users/%d/recommendations", userId)}, &res)
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (s *apiService) GetQuizHistory(ctx context.Context) ([]model.QuizHistory, error) {
	res := []model.QuizHistory{}
	if err := s.gw.Do(ctx, gateway.Request{Method: http.MethodGet, Path: "/quizzes/history"}, &res); err != nil {
		return nil, err
	}
	return res, nil
}

func (s *apiService) GetQuizHistoryForDocument(ctx context.Context, pdfId int64) ([]model.QuizHistory, error) {
	res := []model.QuizHistory{}
	err := s.gw.Do(ctx, gateway.Request{Method: http.MethodGet, Path: fmt.Sprintf("/quizzes/history/%d", pdfId)}, &res)
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (s *apiService) GetQuizQuestions(ctx context.Context, historyId int64) ([]model.MCQQuestion, error) {
	res := []model.MCQQuestion{}
	err := s.gw.Do(ctx, gateway.Request{Method: http.MethodGet, Path: fmt.Sprintf("/pdfs/quiz-history/%d/questions", historyId)}, &res)
	if err != nil {
		return nil, err
	}
	return res, nil
}
