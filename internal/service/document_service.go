package service

import (
	"context"

	"edulycee-client/internal/model"
	"edulycee-client/internal/pkg/logger"
	"edulycee-client/pkg/store"
)

type IDocumentService interface {
	// Open loads the document content and makes it the active session. A failure
	// leaves the current session as it was.
	Open(ctx context.Context, doc model.Document) error
	Close()
}

type documentService struct {
	api      IApiService
	auth     *store.AuthState
	sessions *store.SessionStore
	logger   logger.ILogger
}

func NewDocumentService(api IApiService, auth *store.AuthState, sessions *store.SessionStore, log logger.ILogger) IDocumentService {
	return &documentService{api: api, auth: auth, sessions: sessions, logger: log}
}

func (s *documentService) Open(ctx context.Context, doc model.Document) error {
	content, err := s.api.GetContent(ctx, doc.Id)
	if err != nil {
		return err
	}

	if identity := s.auth.Identity(); identity.IsAuthenticated() {
		if err := s.api.TrackView(ctx, doc.Id, identity.UserId); err != nil {
			s.logger.Warn("DOCUMENT", "Failed to track view", map[string]interface{}{
				"pdf_id": doc.Id,
				"error":  err.Error(),
			})
		}
	}

	s.sessions.Open(doc, content)
	return nil
}

func (s *documentService) Close() {
	s.sessions.Close()
}
