package service

import (
	"context"
	"errors"

	"edulycee-client/internal/model"

	"golang.org/x/sync/errgroup"
)

var ErrNotAuthenticated = errors.New("not authenticated")

type IDashboardService interface {
	Load(ctx context.Context, userId int64) (*model.Dashboard, error)
}

type dashboardService struct {
	api IApiService
}

func NewDashboardService(api IApiService) IDashboardService {
	return &dashboardService{api: api}
}

// Load fetches the three projections concurrently; any failure fails the whole load.
func (s *dashboardService) Load(ctx context.Context, userId int64) (*model.Dashboard, error) {
	if userId == 0 {
		return nil, ErrNotAuthenticated
	}

	var dashboard model.Dashboard
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		progress, err := s.api.GetProgress(gctx, userId)
		dashboard.Progress = progress
		return err
	})
	g.Go(func() error {
		docs, err := s.api.GetStudiedDocuments(gctx, userId)
		dashboard.StudiedDocuments = docs
		return err
	})
	g.Go(func() error {
		recs, err := s.api.GetRecommendations(gctx, userId)
		dashboard.Recommendations = recs
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &dashboard, nil
}
