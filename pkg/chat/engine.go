package chat

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"edulycee-client/internal/dto"
	"edulycee-client/internal/model"
	"edulycee-client/internal/pkg/logger"
	"edulycee-client/pkg/events"
	"edulycee-client/pkg/store"

	"github.com/google/uuid"
)

var (
	ErrEmptyMessage = errors.New("message is empty")
	ErrNoDocument   = errors.New("no active document")
	ErrBusy         = errors.New("a chat request is already in flight")
)

// API is the slice of the remote contract the engine needs.
type API interface {
	Chat(ctx context.Context, req *dto.ChatRequest) (*dto.ChatResponse, error)
}

// Engine runs one request/response turn at a time over the active document's
// transcript. It never queues: a send while another is outstanding is refused.
type Engine struct {
	mu       sync.Mutex
	api      API
	sessions *store.SessionStore
	events   events.Publisher
	logger   logger.ILogger
	seq      uint64
	inFlight uint64
	lastErr  error
	now      func() time.Time
}

func NewEngine(api API, sessions *store.SessionStore, publisher events.Publisher, log logger.ILogger) *Engine {
	if publisher == nil {
		publisher = events.Discard
	}
	e := &Engine{
		api:      api,
		sessions: sessions,
		events:   publisher,
		logger:   log,
		now:      time.Now,
	}
	sessions.OnReset(e.onReset)
	return e
}

// onReset forgets per-document state. A reply still on the wire for the old
// document finds a stale epoch and is dropped.
func (e *Engine) onReset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.inFlight = 0
	e.lastErr = nil
}

// SendMessage appends the user turn immediately, then waits for the reply. On
// failure the user turn stays and LastError reports the cause.
func (e *Engine) SendMessage(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)

	e.mu.Lock()
	if text == "" {
		e.mu.Unlock()
		return ErrEmptyMessage
	}
	doc, epoch, ok := e.sessions.Active()
	if !ok {
		e.mu.Unlock()
		return ErrNoDocument
	}
	if e.inFlight != 0 {
		e.mu.Unlock()
		return ErrBusy
	}
	callCtx, cancel, err := e.sessions.Bind(ctx, epoch)
	if err != nil {
		e.mu.Unlock()
		return err
	}
	defer cancel()

	userMsg := model.ChatMessage{
		Id:        uuid.NewString(),
		Role:      model.ChatRoleUser,
		Content:   text,
		Timestamp: e.now(),
	}
	if !e.sessions.AppendMessage(epoch, userMsg) {
		e.mu.Unlock()
		return store.ErrStale
	}
	e.seq++
	seq := e.seq
	e.inFlight = seq
	e.lastErr = nil
	e.mu.Unlock()

	e.publishMessage(doc.Id, userMsg)

	start := e.now()
	res, err := e.api.Chat(callCtx, &dto.ChatRequest{PdfId: doc.Id, Message: text})

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.inFlight == seq {
		e.inFlight = 0
	}

	if !e.sessions.IsCurrent(epoch) {
		e.logger.Info("CHAT", "Discarded reply for previous document", map[string]interface{}{
			"pdf_id": doc.Id,
		})
		return store.StaleErr(err)
	}

	if err != nil {
		e.lastErr = err
		e.logger.Warn("CHAT", "Chat request failed", map[string]interface{}{
			"pdf_id":      doc.Id,
			"duration_ms": e.now().Sub(start).Milliseconds(),
			"error":       err.Error(),
		})
		e.events.Publish(events.New(events.ChatFailed, map[string]interface{}{
			"pdf_id": doc.Id,
			"error":  err.Error(),
		}))
		return err
	}

	reply := model.ChatMessage{
		Id:        uuid.NewString(),
		Role:      model.ChatRoleAssistant,
		Content:   res.Response,
		Timestamp: e.now(),
		FollowUps: res.SuggestedFollowUp,
	}
	if !e.sessions.AppendMessage(epoch, reply) {
		return store.ErrStale
	}
	e.publishMessage(doc.Id, reply)
	return nil
}

func (e *Engine) publishMessage(pdfId int64, msg model.ChatMessage) {
	e.events.Publish(events.New(events.ChatMessage, map[string]interface{}{
		"pdf_id":     pdfId,
		"id":         msg.Id,
		"role":       string(msg.Role),
		"follow_ups": len(msg.FollowUps),
	}))
}

func (e *Engine) InFlight() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.inFlight != 0
}

func (e *Engine) LastError() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastErr
}

func (e *Engine) ClearError() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.lastErr = nil
}

func (e *Engine) Transcript() []model.ChatMessage {
	return e.sessions.Transcript()
}

// Suggestions are the starter prompts for an empty transcript, otherwise the
// follow-ups attached to the latest assistant reply.
func (e *Engine) Suggestions() []string {
	transcript := e.sessions.Transcript()
	if len(transcript) == 0 {
		return append([]string(nil), model.StarterPrompts...)
	}
	last := transcript[len(transcript)-1]
	if last.Role != model.ChatRoleAssistant {
		return nil
	}
	return append([]string(nil), last.FollowUps...)
}
