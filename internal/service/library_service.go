package service

import (
	"context"
	"strings"

	"edulycee-client/internal/model"
)

// AllCategories is the catch-all entry shown first in the category filter.
const AllCategories = "Tous"

type DocumentQuery struct {
	Text     string
	Category string
	Page     int
}

type ILibraryService interface {
	Categories(ctx context.Context) ([]string, error)
	Query(ctx context.Context, q DocumentQuery) (*model.DocumentPage, error)
	PageSize() int
}

type libraryService struct {
	api      IApiService
	pageSize int
}

func NewLibraryService(api IApiService, pageSize int) ILibraryService {
	if pageSize < 1 {
		pageSize = 12
	}
	return &libraryService{api: api, pageSize: pageSize}
}

func (s *libraryService) PageSize() int {
	return s.pageSize
}

func (s *libraryService) Categories(ctx context.Context) ([]string, error) {
	categories, err := s.api.ListCategories(ctx)
	if err != nil {
		return nil, err
	}
	out := []string{AllCategories}
	for _, c := range categories {
		if !isAllCategories(c) {
			out = append(out, c)
		}
	}
	return out, nil
}

// Query uses the search endpoint only for non-blank text; otherwise it lists by
// category with the same paging.
func (s *libraryService) Query(ctx context.Context, q DocumentQuery) (*model.DocumentPage, error) {
	category := strings.TrimSpace(q.Category)
	if isAllCategories(category) {
		category = ""
	}
	page := q.Page
	if page < 0 {
		page = 0
	}

	if text := strings.TrimSpace(q.Text); text != "" {
		return s.api.SearchDocuments(ctx, text, category, page, s.pageSize)
	}
	return s.api.ListDocuments(ctx, category, page, s.pageSize)
}

func isAllCategories(c string) bool {
	return c == "" || c == AllCategories || strings.EqualFold(c, "all")
}
