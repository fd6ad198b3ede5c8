package saga

import "sync"

// Subscription delivers every event committed after Snapshot, in order.
// Its queue is unbounded so a slow reader never blocks the store.
type Subscription struct {
	// Snapshot is the state at the moment the subscription was registered.
	// For Watch subscriptions it is the zero State.
	Snapshot State

	events chan Event
	signal chan struct{}
	done   chan struct{}

	mu    sync.Mutex
	queue []Event

	closeOnce sync.Once
	detach    func()
}

func newSubscription(snapshot State) *Subscription {
	s := &Subscription{
		Snapshot: snapshot,
		events:   make(chan Event),
		signal:   make(chan struct{}, 1),
		done:     make(chan struct{}),
	}

	go s.run()

	return s
}

// Events is closed after Close
func (s *Subscription) Events() <-chan Event {
	return s.events
}

// Close detaches the subscription; pending events are dropped
func (s *Subscription) Close() {
	s.closeOnce.Do(func() {
		if s.detach != nil {
			s.detach()
		}
		close(s.done)
	})
}

func (s *Subscription) push(ev Event) {
	s.mu.Lock()
	s.queue = append(s.queue, ev)
	s.mu.Unlock()

	select {
	case s.signal <- struct{}{}:
	default:
	}
}

func (s *Subscription) run() {
	defer close(s.events)

	for {
		s.mu.Lock()
		if len(s.queue) == 0 {
			s.mu.Unlock()

			select {
			case <-s.signal:
				continue
			case <-s.done:
				return
			}
		}

		ev := s.queue[0]
		s.queue[0] = Event{}
		s.queue = s.queue[1:]
		s.mu.Unlock()

		select {
		case s.events <- ev:
		case <-s.done:
			return
		}
	}
}
