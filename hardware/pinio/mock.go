package pinio

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/juju/errors"
)

type EventKind byte

const (
	EventOutput EventKind = iota + 1
	EventSet
	EventSleep
	EventClose
)

func (k EventKind) String() string {
	switch k {
	case EventOutput:
		return "output"
	case EventSet:
		return "set"
	case EventSleep:
		return "sleep"
	case EventClose:
		return "close"
	}
	return fmt.Sprintf("EventKind(%d)", k)
}

type Event struct {
	Kind  EventKind
	Pin   Pin
	Level Level
	Sleep time.Duration
}

func (e Event) String() string {
	switch e.Kind {
	case EventOutput:
		return fmt.Sprintf("output(%s)", e.Pin)
	case EventSet:
		return fmt.Sprintf("set(%s,%s)", e.Pin, e.Level)
	case EventSleep:
		return fmt.Sprintf("sleep(%s)", e.Sleep)
	}
	return e.Kind.String()
}

// Mock records every call, keeps pin levels and does not really sleep.
// Use FailSet/FailOutput to simulate hardware errors.
type Mock struct {
	mu         sync.Mutex
	events     []Event
	levels     map[Pin]Level
	outputs    map[Pin]bool
	FailOutput map[Pin]error
	FailSet    map[Pin]error
	Slept      time.Duration
	Closed     int
}

func NewMock() *Mock {
	return &Mock{
		levels:     make(map[Pin]Level),
		outputs:    make(map[Pin]bool),
		FailOutput: make(map[Pin]error),
		FailSet:    make(map[Pin]error),
	}
}

func (self *Mock) Output(pin Pin) error {
	self.mu.Lock()
	defer self.mu.Unlock()
	self.events = append(self.events, Event{Kind: EventOutput, Pin: pin})
	if err := self.FailOutput[pin]; err != nil {
		return err
	}
	if !pin.Valid() {
		return errors.NotValidf("pin=%s", pin)
	}
	self.outputs[pin] = true
	return nil
}

func (self *Mock) Set(pin Pin, level Level) error {
	self.mu.Lock()
	defer self.mu.Unlock()
	self.events = append(self.events, Event{Kind: EventSet, Pin: pin, Level: level})
	if err := self.FailSet[pin]; err != nil {
		return err
	}
	if !self.outputs[pin] {
		return errors.NotFoundf("mock pin=%s not configured as output", pin)
	}
	self.levels[pin] = level
	return nil
}

func (self *Mock) Sleep(d time.Duration) {
	self.mu.Lock()
	defer self.mu.Unlock()
	self.events = append(self.events, Event{Kind: EventSleep, Sleep: d})
	self.Slept += d
}

func (self *Mock) Close() error {
	self.mu.Lock()
	defer self.mu.Unlock()
	self.events = append(self.events, Event{Kind: EventClose})
	self.Closed++
	return nil
}

func (self *Mock) Level(pin Pin) Level {
	self.mu.Lock()
	defer self.mu.Unlock()
	return self.levels[pin]
}

func (self *Mock) IsOutput(pin Pin) bool {
	self.mu.Lock()
	defer self.mu.Unlock()
	return self.outputs[pin]
}

// Events returns copy of recorded calls.
func (self *Mock) Events() []Event {
	self.mu.Lock()
	defer self.mu.Unlock()
	return append([]Event(nil), self.events...)
}

// Reset forgets recorded events, keeps pin state.
func (self *Mock) Reset() {
	self.mu.Lock()
	defer self.mu.Unlock()
	self.events = self.events[:0]
	self.Slept = 0
}

func (self *Mock) String() string {
	es := self.Events()
	ss := make([]string, len(es))
	for i, e := range es {
		ss[i] = e.String()
	}
	return strings.Join(ss, " ")
}

// compile-time interface check
var _ Driver = &Mock{}
