package quiz

import "time"

// Ticker is the tick source behind the elapsed counter.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

type TickerFactory func(d time.Duration) Ticker

type realTicker struct {
	t *time.Ticker
}

func (r realTicker) C() <-chan time.Time { return r.t.C }
func (r realTicker) Stop()               { r.t.Stop() }

func NewRealTicker(d time.Duration) Ticker {
	return realTicker{t: time.NewTicker(d)}
}

// task is one run of the elapsed counter. Cancelling is idempotent.
type task struct {
	stop chan struct{}
	done chan struct{}
}

func newTask() *task {
	return &task{stop: make(chan struct{}), done: make(chan struct{})}
}

func (t *task) cancel() {
	select {
	case <-t.stop:
	default:
		close(t.stop)
	}
}

func (t *task) run(ticker Ticker, onTick func()) {
	defer close(t.done)
	defer ticker.Stop()
	for {
		select {
		case <-t.stop:
			return
		case <-ticker.C():
			onTick()
		}
	}
}
