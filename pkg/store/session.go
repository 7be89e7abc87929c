package store

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"edulycee-client/internal/model"
	"edulycee-client/internal/pkg/logger"
	"edulycee-client/pkg/events"
)

var (
	// ErrStale reports that the active document changed while a call was outstanding.
	ErrStale  = errors.New("document session changed")
	ErrNoQuiz = errors.New("no active quiz session")
)

// StaleErr marks a discarded response. A failed call keeps its own error in the
// chain so callers still see why it failed (a forced logout also resets the session).
func StaleErr(callErr error) error {
	if callErr == nil {
		return ErrStale
	}
	return fmt.Errorf("%w: %w", ErrStale, callErr)
}

// SessionStore owns everything scoped to the active document: the document itself,
// its content, the chat transcript and the quiz session. Switching documents bumps
// the epoch and cancels the previous document's context; anything tagged with an
// older epoch is refused.
type SessionStore struct {
	mu         sync.Mutex
	epoch      uint64
	document   *model.Document
	content    string
	transcript []model.ChatMessage
	quiz       *model.QuizSession
	ctx        context.Context
	cancel     context.CancelFunc
	hooks      []func()
	events     events.Publisher
	logger     logger.ILogger
}

func NewSessionStore(publisher events.Publisher, log logger.ILogger) *SessionStore {
	if publisher == nil {
		publisher = events.Discard
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &SessionStore{ctx: ctx, cancel: cancel, events: publisher, logger: log}
}

// Open makes doc the active document and discards the previous transcript and quiz.
func (s *SessionStore) Open(doc model.Document, content string) uint64 {
	epoch := s.reset(&doc, content)
	s.logger.Info("SESSION", "Document opened", map[string]interface{}{
		"pdf_id": doc.Id,
		"epoch":  epoch,
	})
	s.events.Publish(events.New(events.DocumentOpened, map[string]interface{}{
		"pdf_id": doc.Id,
		"title":  doc.Title,
		"epoch":  epoch,
	}))
	return epoch
}

// Close discards the session without opening another document.
func (s *SessionStore) Close() {
	s.mu.Lock()
	open := s.document != nil
	s.mu.Unlock()
	if !open {
		return
	}

	epoch := s.reset(nil, "")
	s.logger.Info("SESSION", "Document closed", map[string]interface{}{"epoch": epoch})
	s.events.Publish(events.New(events.DocumentClosed, map[string]interface{}{"epoch": epoch}))
}

func (s *SessionStore) reset(doc *model.Document, content string) uint64 {
	s.mu.Lock()
	s.cancel()
	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.epoch++
	s.document = doc
	s.content = content
	s.transcript = nil
	s.quiz = nil
	epoch := s.epoch
	hooks := append([]func(){}, s.hooks...)
	s.mu.Unlock()

	for _, hook := range hooks {
		hook()
	}
	return epoch
}

// OnReset registers a hook run synchronously after every document switch or close,
// outside the store lock.
func (s *SessionStore) OnReset(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hooks = append(s.hooks, fn)
}

func (s *SessionStore) Document() (model.Document, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.document == nil {
		return model.Document{}, false
	}
	return *s.document, true
}

func (s *SessionStore) Content() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.content
}

func (s *SessionStore) Epoch() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.epoch
}

func (s *SessionStore) IsCurrent(epoch uint64) bool {
	return s.Epoch() == epoch
}

// Active returns the active document together with its epoch.
func (s *SessionStore) Active() (model.Document, uint64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.document == nil {
		return model.Document{}, s.epoch, false
	}
	return *s.document, s.epoch, true
}

// Bind derives a context from parent that is also cancelled when the session
// identified by epoch ends.
func (s *SessionStore) Bind(parent context.Context, epoch uint64) (context.Context, context.CancelFunc, error) {
	s.mu.Lock()
	if epoch != s.epoch {
		s.mu.Unlock()
		return nil, nil, ErrStale
	}
	docCtx := s.ctx
	s.mu.Unlock()

	ctx, cancel := context.WithCancel(parent)
	stop := context.AfterFunc(docCtx, cancel)
	return ctx, func() {
		stop()
		cancel()
	}, nil
}

// AppendMessage adds msg to the transcript of the session identified by epoch.
func (s *SessionStore) AppendMessage(epoch uint64, msg model.ChatMessage) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if epoch != s.epoch || s.document == nil {
		return false
	}
	s.transcript = append(s.transcript, msg)
	return true
}

func (s *SessionStore) Transcript() []model.ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.ChatMessage, len(s.transcript))
	copy(out, s.transcript)
	return out
}

// Quiz returns a copy of the active quiz session, or nil.
func (s *SessionStore) Quiz() *model.QuizSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.quiz.Clone()
}

func (s *SessionStore) SetQuiz(epoch uint64, quiz *model.QuizSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if epoch != s.epoch || s.document == nil {
		return ErrStale
	}
	s.quiz = quiz
	return nil
}

// UpdateQuiz applies fn to the live quiz session under the store lock.
func (s *SessionStore) UpdateQuiz(epoch uint64, fn func(*model.QuizSession) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if epoch != s.epoch {
		return ErrStale
	}
	if s.quiz == nil {
		return ErrNoQuiz
	}
	return fn(s.quiz)
}

func (s *SessionStore) ClearQuiz(epoch uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if epoch != s.epoch {
		return ErrStale
	}
	s.quiz = nil
	return nil
}
