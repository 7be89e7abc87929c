package chat

import (
	"context"
	"errors"
	"testing"
	"time"

	"edulycee-client/internal/dto"
	"edulycee-client/internal/model"
	"edulycee-client/internal/pkg/logger"
	"edulycee-client/pkg/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAPI struct {
	calls   chan *dto.ChatRequest
	release chan struct{}
	res     *dto.ChatResponse
	err     error
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{calls: make(chan *dto.ChatRequest, 8)}
}

func (f *fakeAPI) Chat(ctx context.Context, req *dto.ChatRequest) (*dto.ChatResponse, error) {
	f.calls <- req
	if f.release != nil {
		select {
		case <-f.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return f.res, f.err
}

func setup(t *testing.T, api API) (*Engine, *store.SessionStore) {
	t.Helper()
	sessions := store.NewSessionStore(nil, logger.NewNopLogger())
	return NewEngine(api, sessions, nil, logger.NewNopLogger()), sessions
}

func TestSendMessageSuccess(t *testing.T) {
	api := newFakeAPI()
	api.res = &dto.ChatResponse{Response: "Voici un résumé", SuggestedFollowUp: []string{"Et ensuite ?"}}
	engine, sessions := setup(t, api)
	sessions.Open(model.Document{Id: 7}, "content")

	require.NoError(t, engine.SendMessage(context.Background(), "  Summarize "))

	req := <-api.calls
	assert.Equal(t, &dto.ChatRequest{PdfId: 7, Message: "Summarize"}, req)

	transcript := engine.Transcript()
	require.Len(t, transcript, 2)
	assert.Equal(t, model.ChatRoleUser, transcript[0].Role)
	assert.Equal(t, "Summarize", transcript[0].Content)
	assert.Equal(t, model.ChatRoleAssistant, transcript[1].Role)
	assert.Equal(t, "Voici un résumé", transcript[1].Content)
	assert.NotEqual(t, transcript[0].Id, transcript[1].Id)
	assert.Equal(t, []string{"Et ensuite ?"}, engine.Suggestions())
	assert.False(t, engine.InFlight())
	assert.NoError(t, engine.LastError())
}

func TestSendMessageFailureKeepsUserTurn(t *testing.T) {
	api := newFakeAPI()
	api.err = errors.New("network timeout")
	engine, sessions := setup(t, api)
	sessions.Open(model.Document{Id: 7}, "content")

	err := engine.SendMessage(context.Background(), "Summarize")

	assert.ErrorIs(t, err, api.err)
	transcript := engine.Transcript()
	require.Len(t, transcript, 1)
	assert.Equal(t, model.ChatRoleUser, transcript[0].Role)
	assert.Equal(t, api.err, engine.LastError())
	assert.False(t, engine.InFlight())
	assert.Nil(t, engine.Suggestions())

	engine.ClearError()
	assert.NoError(t, engine.LastError())
}

func TestSendMessageRejections(t *testing.T) {
	api := newFakeAPI()
	engine, sessions := setup(t, api)

	assert.ErrorIs(t, engine.SendMessage(context.Background(), "hello"), ErrNoDocument)

	sessions.Open(model.Document{Id: 1}, "")
	assert.ErrorIs(t, engine.SendMessage(context.Background(), ""), ErrEmptyMessage)
	assert.ErrorIs(t, engine.SendMessage(context.Background(), " \n\t "), ErrEmptyMessage)

	assert.Empty(t, engine.Transcript())
	assert.Len(t, api.calls, 0)
}

func TestSendMessageRefusesWhileInFlight(t *testing.T) {
	api := newFakeAPI()
	api.release = make(chan struct{})
	api.res = &dto.ChatResponse{Response: "ok"}
	engine, sessions := setup(t, api)
	sessions.Open(model.Document{Id: 1}, "")

	done := make(chan error, 1)
	go func() { done <- engine.SendMessage(context.Background(), "first") }()
	<-api.calls
	assert.True(t, engine.InFlight())

	assert.ErrorIs(t, engine.SendMessage(context.Background(), "second"), ErrBusy)

	close(api.release)
	require.NoError(t, <-done)
	assert.Len(t, engine.Transcript(), 2)
	assert.False(t, engine.InFlight())
}

func TestReplyForPreviousDocumentIsDiscarded(t *testing.T) {
	api := newFakeAPI()
	api.release = make(chan struct{})
	api.res = &dto.ChatResponse{Response: "late"}
	engine, sessions := setup(t, api)
	sessions.Open(model.Document{Id: 1}, "")

	done := make(chan error, 1)
	go func() { done <- engine.SendMessage(context.Background(), "question") }()
	<-api.calls

	sessions.Open(model.Document{Id: 2}, "")

	select {
	case err := <-done:
		assert.ErrorIs(t, err, store.ErrStale)
	case <-time.After(2 * time.Second):
		t.Fatal("in-flight call was not cancelled by the document switch")
	}
	assert.Empty(t, engine.Transcript())
	assert.False(t, engine.InFlight())
	assert.NoError(t, engine.LastError())
}

func TestStarterSuggestions(t *testing.T) {
	engine, sessions := setup(t, newFakeAPI())
	sessions.Open(model.Document{Id: 1}, "")
	assert.Equal(t, model.StarterPrompts, engine.Suggestions())
}
