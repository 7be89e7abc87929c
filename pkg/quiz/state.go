package quiz

import (
	"errors"
	"fmt"
)

var ErrInvalidTransition = errors.New("operation not allowed in current quiz state")

type State int

const (
	Idle State = iota
	Configuring
	Generating
	InProgress
	Submitting
	Completed
)

var stateNames = map[State]string{
	Idle:        "Idle",
	Configuring: "Configuring",
	Generating:  "Generating",
	InProgress:  "InProgress",
	Submitting:  "Submitting",
	Completed:   "Completed",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// transitions lists every move an operation may make. A document switch is not
// listed: it forces Idle from anywhere.
var transitions = map[State][]State{
	Idle:        {Configuring},
	Configuring: {Configuring, Generating, Idle},
	Generating:  {InProgress, Idle},
	InProgress:  {Submitting},
	Submitting:  {Completed, InProgress},
	Completed:   {Idle},
}

func (s State) CanTransition(to State) bool {
	for _, next := range transitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// timerRuns reports whether the elapsed counter ticks in s.
func (s State) timerRuns() bool {
	return s == InProgress || s == Submitting
}

func invalid(op string, s State) error {
	return fmt.Errorf("%w: %s in %s", ErrInvalidTransition, op, s)
}
