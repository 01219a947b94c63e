package subscriber

import (
	"log"
	"sync"
	"time"

	"github.com/MaxCaruta/purelove-sub002/internal/source"
)

type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateSubscribed   State = "subscribed"
	StateReconnecting State = "reconnecting"
	// StatePaused means consecutive reconnect attempts were exhausted; live
	// updates stay off until an explicit Refresh. The registry keeps its
	// last-known state throughout.
	StatePaused State = "paused"
	// StateSuspended means the process knows it is offline; no retries are
	// scheduled until an online signal arrives.
	StateSuspended State = "suspended"
	// StateDisabled is terminal, entered only on Close.
	StateDisabled State = "disabled"
)

const (
	defaultMaxAttempts = 3
	defaultBaseDelay   = 2 * time.Second
)

// Subscriber keeps one live attachment to the event source alive, owning
// reconnect backoff and the offline/online lifecycle. Events flow straight
// through to the configured handlers in delivery order.
type Subscriber struct {
	src      source.EventSource
	handlers source.Handlers
	onState  func(State)

	maxAttempts int
	baseDelay   time.Duration

	mu       sync.Mutex
	state    State
	attempts int
	online   bool
	sub      source.Subscription
	timer    *time.Timer

	// Transitions queue up under mu and are delivered by flushTransitions
	// after it is released. delivering marks the one goroutine currently
	// draining the queue, which keeps delivery in transition order.
	pending    []State
	delivering bool
}

// New builds a subscriber in StateDisconnected. onState, if non-nil, is
// called once per transition, in order, outside the subscriber's lock, so
// it may call back into the subscriber and may block on slow consumers
// without freezing the state machine.
func New(src source.EventSource, handlers source.Handlers, onState func(State)) *Subscriber {
	return &Subscriber{
		src:         src,
		handlers:    handlers,
		onState:     onState,
		maxAttempts: defaultMaxAttempts,
		baseDelay:   defaultBaseDelay,
		state:       StateDisconnected,
		online:      true,
	}
}

// State returns the current lifecycle state.
func (s *Subscriber) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Start attempts the first subscription.
func (s *Subscriber) Start() {
	s.mu.Lock()
	defer s.flushTransitions()
	defer s.mu.Unlock()
	s.connectLocked()
}

func (s *Subscriber) setStateLocked(next State) {
	if s.state == next {
		return
	}
	s.state = next
	s.pending = append(s.pending, next)
}

// flushTransitions delivers queued state transitions to onState. Called with
// mu released. Exactly one goroutine drains at a time: racers see delivering
// set and leave their transitions for the current drainer, which re-checks
// the queue before giving the role up.
func (s *Subscriber) flushTransitions() {
	if s.onState == nil {
		return
	}
	s.mu.Lock()
	if s.delivering {
		s.mu.Unlock()
		return
	}
	s.delivering = true
	for len(s.pending) > 0 {
		next := s.pending[0]
		s.pending = s.pending[1:]
		s.mu.Unlock()
		s.onState(next)
		s.mu.Lock()
	}
	s.delivering = false
	s.mu.Unlock()
}

func (s *Subscriber) connectLocked() {
	if s.state == StateDisabled {
		return
	}
	if !s.online {
		s.setStateLocked(StateSuspended)
		return
	}

	// A restart while subscribed must not leak the old subscription.
	s.dropSubscriptionLocked()

	s.setStateLocked(StateConnecting)
	sub, err := s.src.Subscribe(s.handlers, s.transportError)
	if err != nil {
		log.Printf("Event subscription failed: %v", err)
		s.failureLocked()
		return
	}

	s.sub = sub
	s.attempts = 0
	s.setStateLocked(StateSubscribed)
}

// transportError is handed to the event source; it fires at most once per
// subscription, from the subscription's goroutine.
func (s *Subscriber) transportError(err error) {
	log.Printf("Live event transport error: %v", err)
	s.mu.Lock()
	defer s.flushTransitions()
	defer s.mu.Unlock()
	s.dropSubscriptionLocked()
	s.failureLocked()
}

func (s *Subscriber) failureLocked() {
	if s.state == StateDisabled {
		return
	}
	if !s.online {
		s.setStateLocked(StateSuspended)
		return
	}

	s.attempts++
	if s.attempts >= s.maxAttempts {
		log.Printf("Giving up after %d reconnect attempts; live updates paused", s.attempts)
		s.setStateLocked(StatePaused)
		return
	}

	delay := s.baseDelay << uint(s.attempts-1)
	s.setStateLocked(StateReconnecting)
	s.timer = time.AfterFunc(delay, func() {
		s.mu.Lock()
		defer s.flushTransitions()
		defer s.mu.Unlock()
		if s.state != StateReconnecting {
			return
		}
		s.connectLocked()
	})
}

// SetOnline feeds the process's network availability signal. Going offline
// suspends all retries and drops the current subscription; coming back
// online resets the attempt counter and reconnects.
func (s *Subscriber) SetOnline(online bool) {
	s.mu.Lock()
	defer s.flushTransitions()
	defer s.mu.Unlock()
	if s.state == StateDisabled || s.online == online {
		s.online = online
		return
	}

	s.online = online
	if !online {
		s.stopTimerLocked()
		s.dropSubscriptionLocked()
		s.setStateLocked(StateSuspended)
		return
	}

	s.attempts = 0
	s.connectLocked()
}

// Refresh is the manual-intervention path out of StatePaused (also usable as
// a forced resubscribe). Resets the attempt counter and reconnects.
func (s *Subscriber) Refresh() {
	s.mu.Lock()
	defer s.flushTransitions()
	defer s.mu.Unlock()
	if s.state == StateDisabled {
		return
	}
	s.stopTimerLocked()
	s.dropSubscriptionLocked()
	s.attempts = 0
	s.connectLocked()
}

// Close tears the subscriber down for good.
func (s *Subscriber) Close() {
	s.mu.Lock()
	defer s.flushTransitions()
	defer s.mu.Unlock()
	if s.state == StateDisabled {
		return
	}
	s.stopTimerLocked()
	s.dropSubscriptionLocked()
	s.setStateLocked(StateDisabled)
}

func (s *Subscriber) stopTimerLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

func (s *Subscriber) dropSubscriptionLocked() {
	if s.sub != nil {
		if err := s.sub.Close(); err != nil {
			log.Printf("Error closing event subscription: %v", err)
		}
		s.sub = nil
	}
}
