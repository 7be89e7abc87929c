package quiz

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"edulycee-client/internal/dto"
	"edulycee-client/internal/model"
	"edulycee-client/internal/pkg/logger"
	"edulycee-client/pkg/events"
	"edulycee-client/pkg/store"

	"github.com/go-playground/validator/v10"
)

var (
	ErrNoDocument    = errors.New("no active document")
	ErrInvalidConfig = errors.New("invalid quiz configuration")
	ErrNoAnswers     = errors.New("at least one answer is required")
	ErrInvalidAnswer = errors.New("invalid answer")
)

// API is the slice of the remote contract the engine needs.
type API interface {
	GenerateQuiz(ctx context.Context, req *dto.MCQGenerationRequest) ([]model.MCQQuestion, error)
	SubmitQuiz(ctx context.Context, pdfId int64, req *dto.MCQSubmissionRequest) (*model.SubmissionResult, error)
}

type Config struct {
	QuestionCount int              `validate:"min=1,max=50"`
	Difficulty    model.Difficulty `validate:"oneof=EASY MEDIUM HARD"`
}

// Snapshot is a consistent read of the engine and its session.
type Snapshot struct {
	State        State
	Config       Config
	Document     model.Document
	Session      *model.QuizSession
	Current      *model.MCQQuestion
	Elapsed      int
	Answered     int
	Total        int
	Result       *model.SubmissionResult
	Severity     model.Severity
	Err          error
	TimerRunning bool
}

type Option func(*Engine)

func WithTicker(f TickerFactory) Option {
	return func(e *Engine) { e.newTicker = f }
}

func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// Engine drives one quiz attempt on the active document. The quiz session itself
// lives in the SessionStore; the engine owns the state, the configuration and
// the elapsed counter.
type Engine struct {
	mu        sync.Mutex
	api       API
	sessions  *store.SessionStore
	events    events.Publisher
	logger    logger.ILogger
	validate  *validator.Validate
	state     State
	config    Config
	epoch     uint64
	elapsed   int
	timer     *task
	lastErr   error
	newTicker TickerFactory
	now       func() time.Time
}

func NewEngine(api API, sessions *store.SessionStore, publisher events.Publisher, log logger.ILogger, opts ...Option) *Engine {
	if publisher == nil {
		publisher = events.Discard
	}
	e := &Engine{
		api:       api,
		sessions:  sessions,
		events:    publisher,
		logger:    log,
		validate:  validator.New(),
		newTicker: NewRealTicker,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	sessions.OnReset(e.onReset)
	return e
}

// onReset runs on every document switch: the timer stops and the engine goes
// back to Idle whatever it was doing.
func (e *Engine) onReset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stopTimerLocked()
	from := e.state
	e.state = Idle
	e.config = Config{}
	e.elapsed = 0
	e.lastErr = nil
	if from != Idle {
		e.publishStateLocked(from)
	}
}

func (e *Engine) transitionLocked(op string, to State) error {
	if !e.state.CanTransition(to) {
		return invalid(op, e.state)
	}
	from := e.state
	e.state = to
	if !to.timerRuns() {
		e.stopTimerLocked()
	}
	e.publishStateLocked(from)
	return nil
}

func (e *Engine) publishStateLocked(from State) {
	e.logger.Debug("QUIZ", "State changed", map[string]interface{}{
		"from": from.String(),
		"to":   e.state.String(),
	})
	e.events.Publish(events.New(events.QuizState, map[string]interface{}{
		"from":    from.String(),
		"to":      e.state.String(),
		"elapsed": e.elapsed,
	}))
}

func (e *Engine) Configure(count int, difficulty model.Difficulty) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.sessions.Document(); !ok {
		return ErrNoDocument
	}
	cfg := Config{QuestionCount: count, Difficulty: difficulty}
	if err := e.validate.Struct(cfg); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if err := e.transitionLocked("configure", Configuring); err != nil {
		return err
	}
	e.config = cfg
	e.lastErr = nil
	return nil
}

func (e *Engine) CancelConfiguration() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != Configuring {
		return invalid("cancel configuration", e.state)
	}
	e.config = Config{}
	return e.transitionLocked("cancel configuration", Idle)
}

// Generate asks for a question set with the current configuration. On failure the
// engine falls back to Idle and LastError reports why.
func (e *Engine) Generate(ctx context.Context) error {
	e.mu.Lock()
	if e.state != Configuring {
		e.mu.Unlock()
		return invalid("generate", e.state)
	}
	doc, epoch, ok := e.sessions.Active()
	if !ok {
		e.mu.Unlock()
		return ErrNoDocument
	}
	callCtx, cancel, err := e.sessions.Bind(ctx, epoch)
	if err != nil {
		e.mu.Unlock()
		return err
	}
	defer cancel()

	req := &dto.MCQGenerationRequest{
		PdfId:         doc.Id,
		QuestionCount: e.config.QuestionCount,
		Difficulty:    e.config.Difficulty,
	}
	_ = e.transitionLocked("generate", Generating)
	e.epoch = epoch
	e.lastErr = nil
	e.mu.Unlock()

	questions, err := e.api.GenerateQuiz(callCtx, req)

	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.sessions.IsCurrent(epoch) || e.state != Generating {
		return store.StaleErr(err)
	}
	if err == nil {
		err = model.ValidateQuestions(questions)
	}
	if err == nil {
		err = e.sessions.SetQuiz(epoch, model.NewQuizSession(questions, e.now()))
	}
	if err != nil {
		e.lastErr = err
		e.logger.Warn("QUIZ", "Quiz generation failed", map[string]interface{}{
			"pdf_id": doc.Id,
			"error":  err.Error(),
		})
		_ = e.transitionLocked("generate", Idle)
		return err
	}

	e.elapsed = 0
	_ = e.transitionLocked("generate", InProgress)
	e.startTimerLocked()
	e.logger.Info("QUIZ", "Quiz started", map[string]interface{}{
		"pdf_id":     doc.Id,
		"questions":  len(questions),
		"difficulty": string(req.Difficulty),
	})
	return nil
}

func (e *Engine) RecordAnswer(questionId int64, option int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != InProgress {
		return invalid("record answer", e.state)
	}
	err := e.sessions.UpdateQuiz(e.epoch, func(q *model.QuizSession) error {
		return q.RecordAnswer(questionId, option)
	})
	if errors.Is(err, model.ErrUnknownQuestion) || errors.Is(err, model.ErrOptionOutOfRange) {
		return fmt.Errorf("%w: %v", ErrInvalidAnswer, err)
	}
	return err
}

func (e *Engine) Navigate(delta int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != InProgress {
		return invalid("navigate", e.state)
	}
	return e.sessions.UpdateQuiz(e.epoch, func(q *model.QuizSession) error {
		q.Navigate(delta)
		return nil
	})
}

// Submit sends the answers with the full question set. The elapsed value sent is
// the one kept on success; on failure the attempt resumes with the counter running.
func (e *Engine) Submit(ctx context.Context) error {
	e.mu.Lock()
	if e.state != InProgress {
		e.mu.Unlock()
		return invalid("submit", e.state)
	}
	quiz := e.sessions.Quiz()
	if quiz == nil {
		e.mu.Unlock()
		return store.ErrNoQuiz
	}
	if quiz.AnsweredCount() == 0 {
		e.mu.Unlock()
		return ErrNoAnswers
	}
	doc, epoch, ok := e.sessions.Active()
	if !ok || epoch != e.epoch {
		e.mu.Unlock()
		return store.ErrStale
	}
	callCtx, cancel, err := e.sessions.Bind(ctx, epoch)
	if err != nil {
		e.mu.Unlock()
		return err
	}
	defer cancel()

	elapsed := e.elapsed
	req := &dto.MCQSubmissionRequest{
		Answers:          quiz.AnswerList(),
		TimeTakenSeconds: elapsed,
		Questions:        quiz.Questions,
	}
	_ = e.transitionLocked("submit", Submitting)
	e.lastErr = nil
	e.mu.Unlock()

	result, err := e.api.SubmitQuiz(callCtx, doc.Id, req)

	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.sessions.IsCurrent(epoch) || e.state != Submitting {
		return store.StaleErr(err)
	}
	if err == nil && result == nil {
		err = fmt.Errorf("%w: empty submission result", model.ErrMalformedQuiz)
	}
	if err != nil {
		e.lastErr = err
		e.logger.Warn("QUIZ", "Quiz submission failed", map[string]interface{}{
			"pdf_id": doc.Id,
			"error":  err.Error(),
		})
		_ = e.transitionLocked("submit", InProgress)
		return err
	}

	if err := e.sessions.UpdateQuiz(epoch, func(q *model.QuizSession) error {
		q.Submitted = true
		q.Result = result
		return nil
	}); err != nil {
		return err
	}
	e.stopTimerLocked()
	e.elapsed = elapsed
	_ = e.transitionLocked("submit", Completed)
	e.logger.Info("QUIZ", "Quiz completed", map[string]interface{}{
		"pdf_id":  doc.Id,
		"score":   result.Score,
		"elapsed": elapsed,
	})
	return nil
}

// Reset leaves Completed and discards the attempt. From Idle or Configuring it
// only clears the error and configuration.
func (e *Engine) Reset() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	switch e.state {
	case Idle:
		e.lastErr = nil
		return nil
	case Configuring:
		e.lastErr = nil
		e.config = Config{}
		return e.transitionLocked("reset", Idle)
	case Completed:
		if err := e.sessions.ClearQuiz(e.epoch); err != nil && !errors.Is(err, store.ErrStale) {
			return err
		}
		e.lastErr = nil
		e.config = Config{}
		e.elapsed = 0
		return e.transitionLocked("reset", Idle)
	}
	return invalid("reset", e.state)
}

func (e *Engine) startTimerLocked() {
	e.stopTimerLocked()
	t := newTask()
	e.timer = t
	go t.run(e.newTicker(time.Second), func() { e.tick(t) })
}

func (e *Engine) stopTimerLocked() {
	if e.timer != nil {
		e.timer.cancel()
		e.timer = nil
	}
}

func (e *Engine) tick(t *task) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.timer != t || !e.state.timerRuns() {
		return
	}
	e.elapsed++
	e.events.Publish(events.New(events.QuizTick, map[string]interface{}{"elapsed": e.elapsed}))
}

func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

func (e *Engine) Elapsed() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.elapsed
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

func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	snap := Snapshot{
		State:        e.state,
		Config:       e.config,
		Elapsed:      e.elapsed,
		Err:          e.lastErr,
		TimerRunning: e.timer != nil,
	}
	snap.Document, _ = e.sessions.Document()
	if e.state == InProgress || e.state == Submitting || e.state == Completed {
		snap.Session = e.sessions.Quiz()
	}
	if snap.Session != nil {
		snap.Answered = snap.Session.AnsweredCount()
		snap.Total = len(snap.Session.Questions)
		if q, ok := snap.Session.Current(); ok {
			snap.Current = &q
		}
		if snap.Session.Result != nil {
			snap.Result = snap.Session.Result
			snap.Severity = model.ScoreSeverity(snap.Result.Score)
		}
	}
	return snap
}

// Review is the per-question breakdown of a completed attempt.
func (e *Engine) Review() ([]model.QuestionReview, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != Completed {
		return nil, invalid("review", e.state)
	}
	quiz := e.sessions.Quiz()
	if quiz == nil {
		return nil, store.ErrNoQuiz
	}
	return quiz.Review(), nil
}
