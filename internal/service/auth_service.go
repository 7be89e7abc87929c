package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"edulycee-client/internal/dto"
	"edulycee-client/internal/model"
	"edulycee-client/internal/pkg/logger"
	"edulycee-client/pkg/store"

	"github.com/go-playground/validator/v10"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

type IAuthService interface {
	Hydrate(ctx context.Context) model.Identity
	Login(ctx context.Context, req *dto.LoginRequest) (model.Identity, error)
	Register(ctx context.Context, req *dto.RegisterRequest) (model.Identity, error)
	Logout(ctx context.Context)
	Identity() model.Identity
}

type authService struct {
	api      IApiService
	state    *store.AuthState
	validate *validator.Validate
	logger   logger.ILogger
}

func NewAuthService(api IApiService, state *store.AuthState, log logger.ILogger) IAuthService {
	return &authService{
		api:      api,
		state:    state,
		validate: validator.New(),
		logger:   log,
	}
}

func (s *authService) Hydrate(ctx context.Context) model.Identity {
	return s.state.Hydrate(ctx)
}

func (s *authService) Login(ctx context.Context, req *dto.LoginRequest) (model.Identity, error) {
	req.Email = strings.TrimSpace(req.Email)
	if err := s.validate.Struct(req); err != nil {
		return model.Identity{}, fmt.Errorf("%w: %v", ErrInvalidCredentials, err)
	}

	res, err := s.api.Login(ctx, req)
	if err != nil {
		s.logger.Warn("AUTH", "Login rejected", map[string]interface{}{"error": err.Error()})
		return model.Identity{}, err
	}

	// the login response carries no username
	identity := model.Identity{Token: res.Token, UserId: res.UserId, Email: req.Email}
	if err := s.establish(ctx, identity); err != nil {
		return model.Identity{}, err
	}
	return identity, nil
}

func (s *authService) Register(ctx context.Context, req *dto.RegisterRequest) (model.Identity, error) {
	req.Email = strings.TrimSpace(req.Email)
	req.Username = strings.TrimSpace(req.Username)
	if err := s.validate.Struct(req); err != nil {
		return model.Identity{}, fmt.Errorf("%w: %v", ErrInvalidCredentials, err)
	}

	res, err := s.api.Register(ctx, req)
	if err != nil {
		s.logger.Warn("AUTH", "Registration rejected", map[string]interface{}{"error": err.Error()})
		return model.Identity{}, err
	}

	identity := model.Identity{Token: res.Token, UserId: res.UserId, Username: req.Username, Email: req.Email}
	if err := s.establish(ctx, identity); err != nil {
		return model.Identity{}, err
	}
	return identity, nil
}

func (s *authService) establish(ctx context.Context, identity model.Identity) error {
	if identity.Token == "" {
		return fmt.Errorf("%w: empty token in auth response", ErrInvalidCredentials)
	}
	if err := s.state.Set(ctx, identity); err != nil {
		s.logger.Error("AUTH", "Failed to persist credential", map[string]interface{}{"error": err.Error()})
		return fmt.Errorf("persist credential: %w", err)
	}
	s.logger.Info("AUTH", "Signed in", map[string]interface{}{"user_id": identity.UserId})
	return nil
}

func (s *authService) Logout(ctx context.Context) {
	userId := s.state.Identity().UserId
	s.state.Clear(ctx)
	s.logger.Info("AUTH", "Signed out", map[string]interface{}{"user_id": userId})
}

func (s *authService) Identity() model.Identity {
	return s.state.Identity()
}
