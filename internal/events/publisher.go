// Package events forwards committed pipeline events to a Redis stream so other
// processes can follow attempts without polling the HTTP API.
package events

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github/chapool/go-txpipeline/internal/config"
	"github/chapool/go-txpipeline/internal/wallet/saga"
)

// StreamClient is the subset of *redis.Client the publisher uses
type StreamClient interface {
	XAdd(ctx context.Context, a *redis.XAddArgs) *redis.StringCmd
	Ping(ctx context.Context) *redis.StatusCmd
	Close() error
}

// Publisher appends events to a Redis stream
type Publisher struct {
	client StreamClient
	stream string
	maxLen int64
}

// Connect creates a Redis client from cfg and verifies it answers
func Connect(ctx context.Context, cfg config.Events) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrapf(err, "failed to connect to redis at %s", cfg.RedisAddr)
	}

	return client, nil
}

// NewPublisher writes to cfg.Stream, trimming it to roughly cfg.MaxLen entries when set
func NewPublisher(client StreamClient, cfg config.Events) *Publisher {
	return &Publisher{
		client: client,
		stream: cfg.Stream,
		maxLen: cfg.MaxLen,
	}
}

// Publish appends one event. The full event is stored as JSON under "payload".
func (p *Publisher) Publish(ctx context.Context, ev saga.Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return errors.Wrap(err, "failed to marshal event")
	}

	args := &redis.XAddArgs{
		Stream: p.stream,
		Values: map[string]interface{}{
			"pipeline": ev.State.Name,
			"attempt":  strconv.FormatUint(ev.State.Attempt, 10),
			"type":     string(ev.Type),
			"status":   ev.State.Status.String(),
			"payload":  payload,
		},
	}

	if p.maxLen > 0 {
		args.MaxLen = p.maxLen
		args.Approx = true
	}

	if err := p.client.XAdd(ctx, args).Err(); err != nil {
		return errors.Wrapf(err, "failed to add event to stream %s", p.stream)
	}

	return nil
}

// Run publishes every event of sub until ctx is done or sub is closed.
// Failed events are logged and dropped; the stream is a best-effort mirror of the store.
func (p *Publisher) Run(ctx context.Context, sub *saga.Subscription) {
	defer sub.Close()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-sub.Events():
			if !ok {
				return
			}

			if err := p.Publish(ctx, ev); err != nil {
				log.Error().Err(err).
					Str("pipeline", ev.State.Name).
					Uint64("attempt", ev.State.Attempt).
					Uint64("seq", ev.Seq).
					Msg("Failed to publish pipeline event")
			}
		}
	}
}

// Ping checks the connection for readiness probes
func (p *Publisher) Ping(ctx context.Context) error {
	return errors.Wrap(p.client.Ping(ctx).Err(), "redis ping failed")
}

func (p *Publisher) Close() error {
	return errors.Wrap(p.client.Close(), "failed to close redis client")
}
