package saga

import (
	"sync"

	"github.com/dropbox/godropbox/time2"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github/chapool/go-txpipeline/internal/wallet/txfail"
)

// Store holds the status of every named pipeline.
// Writes are serialized per name; reads return the latest committed state.
type Store struct {
	clock time2.Clock

	mu        sync.Mutex
	pipelines map[string]*pipeline

	watchMu  sync.RWMutex
	watchers map[*Subscription]struct{}
}

type pipeline struct {
	mu          sync.RWMutex
	state       State
	attempts    uint64
	seq         uint64
	subscribers map[*Subscription]struct{}
}

// NewStore creates an empty Store; every name starts Idle
func NewStore(clock time2.Clock) *Store {
	return &Store{
		clock:     clock,
		pipelines: make(map[string]*pipeline),
		watchers:  make(map[*Subscription]struct{}),
	}
}

func (s *Store) get(name string) *pipeline {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.pipelines[name]
	if !ok {
		p = &pipeline{
			state:       State{Name: name, Status: StatusIdle},
			subscribers: make(map[*Subscription]struct{}),
		}
		s.pipelines[name] = p
	}

	return p
}

// Get returns the committed state of name
func (s *Store) Get(name string) State {
	p := s.get(name)

	p.mu.RLock()
	defer p.mu.RUnlock()

	return p.state.clone()
}

// Begin moves name from Idle to Started under a fresh attempt token.
// Starting twice without a reset is rejected with ErrAlreadyStarted and leaves the live attempt untouched.
func (s *Store) Begin(name string) (State, error) {
	p := s.get(name)

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state.Status != StatusIdle {
		log.Warn().
			Str("pipeline", name).
			Str("status", p.state.Status.String()).
			Uint64("attempt", p.state.Attempt).
			Msg("Rejected start: pipeline must be reset first")

		return p.state.clone(), errors.Wrapf(ErrAlreadyStarted, "pipeline %s is %s", name, p.state.Status)
	}

	p.attempts++
	p.state = State{
		Name:      name,
		Status:    StatusStarted,
		Attempt:   p.attempts,
		UpdatedAt: s.clock.Now(),
	}
	s.publish(p, EventStatus)

	return p.state.clone(), nil
}

// Resolve ends the live attempt with Success or Failure.
// A token that is not the live Started attempt yields ErrStaleAttempt and changes nothing.
func (s *Store) Resolve(name string, attempt uint64, status Status, failure *txfail.Error, result *Result) (State, error) {
	if !status.Terminal() {
		return State{}, errors.Wrapf(ErrInvalidTransition, "resolve to %s", status)
	}

	if (status == StatusFailure) != (failure != nil) {
		return State{}, errors.Wrap(ErrInvalidTransition, "failure must be set exactly for the failure status")
	}

	p := s.get(name)

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state.Status != StatusStarted || p.state.Attempt != attempt {
		return p.state.clone(), ErrStaleAttempt
	}

	p.state.Status = status
	p.state.Failure = failure
	p.state.Result = nil
	if result != nil {
		r := *result
		p.state.Result = &r
	}
	p.state.UpdatedAt = s.clock.Now()
	s.publish(p, EventStatus)

	return p.state.clone(), nil
}

// Cancel forces the live attempt back to Idle. It reports false when attempt is not live.
func (s *Store) Cancel(name string, attempt uint64) bool {
	p := s.get(name)

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state.Status != StatusStarted || p.state.Attempt != attempt {
		return false
	}

	s.toIdle(p)

	return true
}

// Notify publishes a side effect of the live attempt without changing its state
func (s *Store) Notify(name string, attempt uint64, eventType EventType) error {
	if eventType == EventStatus {
		return errors.Wrap(ErrInvalidTransition, "status events are published by transitions")
	}

	p := s.get(name)

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state.Status != StatusStarted || p.state.Attempt != attempt {
		return ErrStaleAttempt
	}

	s.publish(p, eventType)

	return nil
}

// Reset returns name to Idle and reports the state it replaced. It is a no-op on an Idle pipeline.
// Resetting a Started pipeline abandons its attempt; late results are then stale.
func (s *Store) Reset(name string) State {
	p := s.get(name)

	p.mu.Lock()
	defer p.mu.Unlock()

	previous := p.state.clone()
	if previous.Status == StatusIdle {
		return previous
	}

	s.toIdle(p)

	return previous
}

// SetStatus applies a transition without an attempt token, acting on the live attempt.
// Started is Begin, Idle is Reset, Success and Failure resolve the live attempt.
func (s *Store) SetStatus(name string, status Status, failure *txfail.Error) error {
	switch status {
	case StatusIdle:
		s.Reset(name)
		return nil
	case StatusStarted:
		_, err := s.Begin(name)
		return err
	case StatusSuccess, StatusFailure:
		current := s.Get(name)
		if current.Status != StatusStarted {
			return errors.Wrapf(ErrInvalidTransition, "%s -> %s", current.Status, status)
		}

		_, err := s.Resolve(name, current.Attempt, status, failure, nil)

		return err
	}

	return errors.Wrapf(ErrInvalidTransition, "unknown status %d", int(status))
}

// Subscribe returns the current state of name plus every later event for it
func (s *Store) Subscribe(name string) *Subscription {
	p := s.get(name)

	p.mu.Lock()
	defer p.mu.Unlock()

	sub := newSubscription(p.state.clone())
	p.subscribers[sub] = struct{}{}
	sub.detach = func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		delete(p.subscribers, sub)
	}

	return sub
}

// Watch returns a subscription receiving events of every pipeline
func (s *Store) Watch() *Subscription {
	sub := newSubscription(State{})

	s.watchMu.Lock()
	s.watchers[sub] = struct{}{}
	s.watchMu.Unlock()

	sub.detach = func() {
		s.watchMu.Lock()
		defer s.watchMu.Unlock()
		delete(s.watchers, sub)
	}

	return sub
}

// toIdle must be called with p.mu held
func (s *Store) toIdle(p *pipeline) {
	p.state.Status = StatusIdle
	p.state.Failure = nil
	p.state.Result = nil
	p.state.UpdatedAt = s.clock.Now()
	s.publish(p, EventStatus)
}

// publish must be called with p.mu held so events reach subscribers in commit order
func (s *Store) publish(p *pipeline, eventType EventType) {
	p.seq++
	ev := Event{Seq: p.seq, Type: eventType, State: p.state.clone()}

	for sub := range p.subscribers {
		sub.push(ev)
	}

	s.watchMu.RLock()
	defer s.watchMu.RUnlock()

	for sub := range s.watchers {
		sub.push(ev)
	}
}
