package journal

import (
	"context"
	"time"

	"github/chapool/go-txpipeline/internal/wallet/saga"
	"github/chapool/go-txpipeline/internal/wallet/txfail"
)

// DefaultListLimit is used when List is called with a non-positive limit
const DefaultListLimit = 50

// Entry records how one attempt ended.
// Status is Idle for attempts that were cancelled before they resolved.
type Entry struct {
	ID         string        `json:"id"`
	Pipeline   string        `json:"pipeline"`
	Attempt    uint64        `json:"attempt"`
	Status     saga.Status   `json:"status"`
	Reason     txfail.Reason `json:"reason,omitempty"`
	Summary    string        `json:"summary,omitempty"`
	TxHash     string        `json:"txHash,omitempty"`
	From       string        `json:"from,omitempty"`
	Nonce      *uint64       `json:"nonce,omitempty"`
	StartedAt  time.Time     `json:"startedAt"`
	FinishedAt time.Time     `json:"finishedAt"`
}

// Journal keeps the history of finished attempts
type Journal interface {
	Append(ctx context.Context, entry Entry) error
	// List returns the latest entries of pipeline, newest first
	List(ctx context.Context, pipeline string, limit int) ([]Entry, error)
}
