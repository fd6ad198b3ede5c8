package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github/chapool/go-txpipeline/internal/wallet/saga"
)

// Handle identifies one submitted attempt
type Handle struct {
	Pipeline string `json:"pipeline"`
	Attempt  uint64 `json:"attempt"`
	ID       string `json:"id"`

	attempt *attempt
}

// Done is closed once the attempt resolved or was cancelled
func (h *Handle) Done() <-chan struct{} {
	return h.attempt.done
}

// Wait blocks until the attempt reaches Success or Failure, or is cancelled back to Idle
func (h *Handle) Wait(ctx context.Context) (saga.State, error) {
	select {
	case <-h.attempt.done:
		return h.attempt.final, nil
	case <-ctx.Done():
		return saga.State{}, errors.Wrapf(ctx.Err(), "stopped waiting for %s attempt %d", h.Pipeline, h.Attempt)
	}
}

type attempt struct {
	name      string
	token     uint64
	id        string
	startedAt time.Time
	logger    zerolog.Logger
	cancel    context.CancelFunc

	once  sync.Once
	done  chan struct{}
	final saga.State
}

// complete reports false when the attempt had already ended
func (a *attempt) complete(state saga.State) bool {
	completed := false

	a.once.Do(func() {
		a.final = state
		close(a.done)
		completed = true
	})

	return completed
}
