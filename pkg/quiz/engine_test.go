package quiz

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"edulycee-client/internal/dto"
	"edulycee-client/internal/model"
	"edulycee-client/internal/pkg/logger"
	"edulycee-client/pkg/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type manualTicker struct {
	ch      chan time.Time
	once    sync.Once
	stopped chan struct{}
}

func (m *manualTicker) C() <-chan time.Time { return m.ch }
func (m *manualTicker) Stop()               { m.once.Do(func() { close(m.stopped) }) }

func (m *manualTicker) isStopped() bool {
	select {
	case <-m.stopped:
		return true
	default:
		return false
	}
}

type manualClock struct {
	mu      sync.Mutex
	tickers []*manualTicker
}

func (c *manualClock) factory(time.Duration) Ticker {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &manualTicker{ch: make(chan time.Time), stopped: make(chan struct{})}
	c.tickers = append(c.tickers, t)
	return t
}

func (c *manualClock) latest() *manualTicker {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.tickers) == 0 {
		return nil
	}
	return c.tickers[len(c.tickers)-1]
}

// advance delivers n ticks and reports how many the counter goroutine accepted.
func (c *manualClock) advance(n int) int {
	t := c.latest()
	if t == nil {
		return 0
	}
	for i := 0; i < n; i++ {
		select {
		case t.ch <- time.Now():
		case <-time.After(200 * time.Millisecond):
			return i
		}
	}
	return n
}

type fakeAPI struct {
	mu        sync.Mutex
	genReqs   []*dto.MCQGenerationRequest
	subReqs   []*dto.MCQSubmissionRequest
	subPdfIds []int64
	questions []model.MCQQuestion
	genErr    error
	result    *model.SubmissionResult
	subErr    error
	genGate   chan struct{}
	subGate   chan struct{}
}

func (f *fakeAPI) GenerateQuiz(ctx context.Context, req *dto.MCQGenerationRequest) ([]model.MCQQuestion, error) {
	f.mu.Lock()
	f.genReqs = append(f.genReqs, req)
	gate := f.genGate
	f.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return f.questions, f.genErr
}

func (f *fakeAPI) SubmitQuiz(ctx context.Context, pdfId int64, req *dto.MCQSubmissionRequest) (*model.SubmissionResult, error) {
	f.mu.Lock()
	f.subReqs = append(f.subReqs, req)
	f.subPdfIds = append(f.subPdfIds, pdfId)
	gate := f.subGate
	f.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return f.result, f.subErr
}

func fiveQuestions() []model.MCQQuestion {
	qs := make([]model.MCQQuestion, 0, 5)
	for i := int64(1); i <= 5; i++ {
		qs = append(qs, model.MCQQuestion{
			Id:            i,
			Text:          "Question",
			Options:       []string{"A", "B", "C", "D"},
			CorrectOption: 1,
			Explanation:   "Parce que B",
		})
	}
	return qs
}

type fixture struct {
	api      *fakeAPI
	clock    *manualClock
	sessions *store.SessionStore
	engine   *Engine
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	api := &fakeAPI{questions: fiveQuestions()}
	clock := &manualClock{}
	sessions := store.NewSessionStore(nil, logger.NewNopLogger())
	engine := NewEngine(api, sessions, nil, logger.NewNopLogger(), WithTicker(clock.factory))
	sessions.Open(model.Document{Id: 42, Title: "Chimie"}, "content")
	return &fixture{api: api, clock: clock, sessions: sessions, engine: engine}
}

func (f *fixture) start(t *testing.T) {
	t.Helper()
	require.NoError(t, f.engine.Configure(5, model.DifficultyMedium))
	require.NoError(t, f.engine.Generate(context.Background()))
}

func TestGenerateFiveMediumQuestions(t *testing.T) {
	f := newFixture(t)
	f.start(t)

	require.Len(t, f.api.genReqs, 1)
	assert.Equal(t, &dto.MCQGenerationRequest{PdfId: 42, QuestionCount: 5, Difficulty: "MEDIUM"}, f.api.genReqs[0])

	snap := f.engine.Snapshot()
	assert.Equal(t, InProgress, snap.State)
	require.NotNil(t, snap.Session)
	assert.Equal(t, 0, snap.Session.CurrentIndex)
	assert.Empty(t, snap.Session.Answers)
	assert.False(t, snap.Session.StartedAt.IsZero())
	assert.Equal(t, 5, snap.Total)
	assert.Equal(t, 0, snap.Elapsed)
	assert.True(t, snap.TimerRunning)
	require.NotNil(t, snap.Current)
	assert.Equal(t, int64(1), snap.Current.Id)
}

func TestRecordAnswerUpserts(t *testing.T) {
	f := newFixture(t)
	f.start(t)

	require.NoError(t, f.engine.RecordAnswer(3, 2))
	require.NoError(t, f.engine.RecordAnswer(3, 1))

	assert.Equal(t, map[int64]int{3: 1}, f.sessions.Quiz().Answers)
	assert.ErrorIs(t, f.engine.RecordAnswer(99, 0), ErrInvalidAnswer)
	assert.ErrorIs(t, f.engine.RecordAnswer(3, 4), ErrInvalidAnswer)
	assert.Equal(t, map[int64]int{3: 1}, f.sessions.Quiz().Answers)
}

func TestNavigateClamps(t *testing.T) {
	f := newFixture(t)
	f.start(t)

	tests := []struct {
		delta int
		want  int
	}{
		{-1, 0},
		{2, 2},
		{100, 4},
		{-3, 1},
		{-1 << 40, 0},
		{1 << 40, 4},
	}
	for _, tt := range tests {
		require.NoError(t, f.engine.Navigate(tt.delta))
		assert.Equal(t, tt.want, f.sessions.Quiz().CurrentIndex, "delta %d", tt.delta)
	}
}

func TestElapsedCountsOncePerTick(t *testing.T) {
	f := newFixture(t)
	f.start(t)

	require.Equal(t, 3, f.clock.advance(3))
	assert.Eventually(t, func() bool { return f.engine.Elapsed() == 3 }, time.Second, 5*time.Millisecond)
}

func TestSubmitFreezesElapsed(t *testing.T) {
	f := newFixture(t)
	f.start(t)
	for id := int64(1); id <= 5; id++ {
		require.NoError(t, f.engine.RecordAnswer(id, 1))
	}
	require.Equal(t, 120, f.clock.advance(120))
	require.Eventually(t, func() bool { return f.engine.Elapsed() == 120 }, 2*time.Second, 5*time.Millisecond)

	f.api.result = &model.SubmissionResult{
		Score:           80,
		Explanations:    []model.Explanation{{QuestionId: 1, Explanation: "B"}},
		Recommendations: []model.DocumentRecommendation{{PdfId: 8, Title: "Atomes", Reason: "Revoir"}},
	}
	ticker := f.clock.latest()

	require.NoError(t, f.engine.Submit(context.Background()))

	require.Len(t, f.api.subReqs, 1)
	req := f.api.subReqs[0]
	assert.Equal(t, int64(42), f.api.subPdfIds[0])
	assert.Equal(t, 120, req.TimeTakenSeconds)
	assert.Len(t, req.Answers, 5)
	assert.Equal(t, fiveQuestions(), req.Questions)

	snap := f.engine.Snapshot()
	assert.Equal(t, Completed, snap.State)
	assert.Equal(t, 120, snap.Elapsed)
	assert.False(t, snap.TimerRunning)
	require.NotNil(t, snap.Result)
	assert.Equal(t, float64(80), snap.Result.Score)
	assert.Equal(t, model.SeverityFavorable, snap.Severity)
	assert.True(t, snap.Session.Submitted)

	assert.Eventually(t, ticker.isStopped, time.Second, 5*time.Millisecond)
	assert.Equal(t, 0, f.clock.advance(1))
	assert.Equal(t, 120, f.engine.Elapsed())

	assert.ErrorIs(t, f.engine.RecordAnswer(1, 0), ErrInvalidTransition)
	assert.ErrorIs(t, f.engine.Navigate(1), ErrInvalidTransition)
	assert.ErrorIs(t, f.engine.Submit(context.Background()), ErrInvalidTransition)
	assert.Equal(t, map[int64]int{1: 1, 2: 1, 3: 1, 4: 1, 5: 1}, f.sessions.Quiz().Answers)
}

func TestSubmitFailureResumesAttempt(t *testing.T) {
	f := newFixture(t)
	f.start(t)
	require.NoError(t, f.engine.RecordAnswer(2, 3))
	f.api.subErr = errors.New("network timeout")

	err := f.engine.Submit(context.Background())

	assert.ErrorIs(t, err, f.api.subErr)
	snap := f.engine.Snapshot()
	assert.Equal(t, InProgress, snap.State)
	assert.Equal(t, map[int64]int{2: 3}, snap.Session.Answers)
	assert.Equal(t, f.api.subErr, snap.Err)
	assert.True(t, snap.TimerRunning)

	require.Equal(t, 2, f.clock.advance(2))
	assert.Eventually(t, func() bool { return f.engine.Elapsed() == 2 }, time.Second, 5*time.Millisecond)

	f.engine.ClearError()
	assert.NoError(t, f.engine.LastError())
}

func TestSubmitRequiresAnAnswer(t *testing.T) {
	f := newFixture(t)
	f.start(t)

	assert.ErrorIs(t, f.engine.Submit(context.Background()), ErrNoAnswers)
	assert.Equal(t, InProgress, f.engine.State())
	assert.Empty(t, f.api.subReqs)

	require.NoError(t, f.engine.RecordAnswer(5, 0))
	f.api.result = &model.SubmissionResult{Score: 20}
	require.NoError(t, f.engine.Submit(context.Background()))
	assert.Equal(t, model.SeverityUnfavorable, f.engine.Snapshot().Severity)
}

func TestGenerateFailureFallsBackToIdle(t *testing.T) {
	f := newFixture(t)
	f.api.genErr = errors.New("server error")

	require.NoError(t, f.engine.Configure(10, model.DifficultyHard))
	err := f.engine.Generate(context.Background())

	assert.ErrorIs(t, err, f.api.genErr)
	assert.Equal(t, Idle, f.engine.State())
	assert.Equal(t, f.api.genErr, f.engine.LastError())
	assert.Nil(t, f.sessions.Quiz())
	assert.Nil(t, f.clock.latest())
}

func TestGenerateRejectsMalformedQuestions(t *testing.T) {
	f := newFixture(t)
	f.api.questions = []model.MCQQuestion{{Id: 1, Options: []string{"only"}}}

	require.NoError(t, f.engine.Configure(5, model.DifficultyEasy))
	err := f.engine.Generate(context.Background())

	assert.ErrorIs(t, err, model.ErrMalformedQuiz)
	assert.Equal(t, Idle, f.engine.State())
}

func TestConfigureValidation(t *testing.T) {
	f := newFixture(t)

	assert.ErrorIs(t, f.engine.Configure(0, model.DifficultyEasy), ErrInvalidConfig)
	assert.ErrorIs(t, f.engine.Configure(5, "IMPOSSIBLE"), ErrInvalidConfig)
	assert.Equal(t, Idle, f.engine.State())

	require.NoError(t, f.engine.Configure(5, model.DifficultyEasy))
	require.NoError(t, f.engine.Configure(15, model.DifficultyHard))
	assert.Equal(t, Config{QuestionCount: 15, Difficulty: model.DifficultyHard}, f.engine.Snapshot().Config)

	require.NoError(t, f.engine.CancelConfiguration())
	assert.Equal(t, Idle, f.engine.State())
	assert.ErrorIs(t, f.engine.CancelConfiguration(), ErrInvalidTransition)
}

func TestConfigureNeedsDocument(t *testing.T) {
	sessions := store.NewSessionStore(nil, logger.NewNopLogger())
	engine := NewEngine(&fakeAPI{}, sessions, nil, logger.NewNopLogger())

	assert.ErrorIs(t, engine.Configure(5, model.DifficultyEasy), ErrNoDocument)
}

func TestOperationsOutsideInProgress(t *testing.T) {
	f := newFixture(t)

	assert.ErrorIs(t, f.engine.Generate(context.Background()), ErrInvalidTransition)
	assert.ErrorIs(t, f.engine.RecordAnswer(1, 0), ErrInvalidTransition)
	assert.ErrorIs(t, f.engine.Navigate(1), ErrInvalidTransition)
	assert.ErrorIs(t, f.engine.Submit(context.Background()), ErrInvalidTransition)
	_, err := f.engine.Review()
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestResetOnlyLeavesCompleted(t *testing.T) {
	f := newFixture(t)
	f.start(t)

	assert.ErrorIs(t, f.engine.Reset(), ErrInvalidTransition)
	assert.Equal(t, InProgress, f.engine.State())

	require.NoError(t, f.engine.RecordAnswer(1, 1))
	require.NoError(t, f.engine.RecordAnswer(2, 0))
	f.api.result = &model.SubmissionResult{
		Score:        50,
		Explanations: []model.Explanation{{QuestionId: 2, Explanation: "C'était B"}},
	}
	require.NoError(t, f.engine.Submit(context.Background()))

	review, err := f.engine.Review()
	require.NoError(t, err)
	require.Len(t, review, 5)
	assert.True(t, review[0].Correct)
	assert.False(t, review[1].Correct)
	assert.Equal(t, "C'était B", review[1].Explanation)
	assert.False(t, review[2].Answered)

	require.NoError(t, f.engine.Reset())
	snap := f.engine.Snapshot()
	assert.Equal(t, Idle, snap.State)
	assert.Nil(t, snap.Session)
	assert.Nil(t, f.sessions.Quiz())
	assert.Equal(t, 0, snap.Elapsed)

	require.NoError(t, f.engine.Reset())
}

func TestDocumentSwitchStopsTimer(t *testing.T) {
	f := newFixture(t)
	f.start(t)
	ticker := f.clock.latest()
	require.NoError(t, f.engine.RecordAnswer(1, 0))

	f.sessions.Open(model.Document{Id: 43}, "other")

	snap := f.engine.Snapshot()
	assert.Equal(t, Idle, snap.State)
	assert.False(t, snap.TimerRunning)
	assert.Nil(t, f.sessions.Quiz())
	assert.Eventually(t, ticker.isStopped, time.Second, 5*time.Millisecond)
	assert.Equal(t, 0, f.clock.advance(1))
	assert.Equal(t, 0, f.engine.Elapsed())
}

func TestDocumentSwitchDuringGenerationDiscardsResult(t *testing.T) {
	f := newFixture(t)
	f.api.genGate = make(chan struct{})
	require.NoError(t, f.engine.Configure(5, model.DifficultyMedium))

	done := make(chan error, 1)
	go func() { done <- f.engine.Generate(context.Background()) }()
	require.Eventually(t, func() bool { return f.engine.State() == Generating }, time.Second, 5*time.Millisecond)

	f.sessions.Open(model.Document{Id: 43}, "other")

	select {
	case err := <-done:
		assert.ErrorIs(t, err, store.ErrStale)
	case <-time.After(2 * time.Second):
		t.Fatal("generation was not cancelled by the document switch")
	}
	assert.Equal(t, Idle, f.engine.State())
	assert.Nil(t, f.sessions.Quiz())
	assert.Nil(t, f.clock.latest())
	assert.NoError(t, f.engine.LastError())
}

func TestDocumentSwitchDuringSubmissionDiscardsResult(t *testing.T) {
	f := newFixture(t)
	f.start(t)
	require.NoError(t, f.engine.RecordAnswer(1, 1))
	f.api.result = &model.SubmissionResult{Score: 100}
	f.api.subGate = make(chan struct{})
	ticker := f.clock.latest()

	done := make(chan error, 1)
	go func() { done <- f.engine.Submit(context.Background()) }()
	require.Eventually(t, func() bool { return f.engine.State() == Submitting }, time.Second, 5*time.Millisecond)

	f.sessions.Open(model.Document{Id: 43}, "other")

	select {
	case err := <-done:
		assert.ErrorIs(t, err, store.ErrStale)
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("submission was not cancelled by the document switch")
	}
	snap := f.engine.Snapshot()
	assert.Equal(t, Idle, snap.State)
	assert.False(t, snap.TimerRunning)
	assert.Zero(t, snap.Elapsed)
	assert.Nil(t, snap.Result)
	assert.Nil(t, f.sessions.Quiz())
	assert.NoError(t, f.engine.LastError())
	assert.Eventually(t, ticker.isStopped, time.Second, 5*time.Millisecond)
	assert.Len(t, f.api.subPdfIds, 1)
	assert.Equal(t, int64(42), f.api.subPdfIds[0])
}

func TestTransitionTable(t *testing.T) {
	tests := []struct {
		from, to State
		want     bool
	}{
		{Idle, Configuring, true},
		{Idle, Generating, false},
		{Configuring, Generating, true},
		{Generating, InProgress, true},
		{Generating, Idle, true},
		{InProgress, Submitting, true},
		{InProgress, Completed, false},
		{Submitting, Completed, true},
		{Submitting, InProgress, true},
		{Completed, Idle, true},
		{Completed, InProgress, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.from.CanTransition(tt.to), "%s -> %s", tt.from, tt.to)
	}
	assert.Equal(t, "Submitting", Submitting.String())
}
