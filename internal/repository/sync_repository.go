package repository

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// ErrSyncUnavailable is returned when no Redis client is configured.
var ErrSyncUnavailable = fmt.Errorf("dashboard sync channel unavailable")

// SyncRepository carries dashboard change events between API instances over Redis pub/sub.
type SyncRepository struct {
	client  *redis.Client
	breaker *gobreaker.CircuitBreaker
	prefix  string
	logger  *zap.Logger
}

// NewSyncRepository constructs the repository.
func NewSyncRepository(client *redis.Client, breaker *gobreaker.CircuitBreaker, prefix string, logger *zap.Logger) *SyncRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	if prefix == "" {
		prefix = "dashboard:sync"
	}
	return &SyncRepository{client: client, breaker: breaker, prefix: prefix, logger: logger}
}

// Channel returns the pub/sub channel for a professor.
func (r *SyncRepository) Channel(professorID string) string {
	return r.prefix + ":" + professorID
}

// Available reports whether a Redis client backs the repository.
func (r *SyncRepository) Available() bool {
	return r != nil && r.client != nil
}

// Publish sends payload to every subscriber of the professor's channel.
func (r *SyncRepository) Publish(ctx context.Context, professorID string, payload []byte) error {
	if !r.Available() {
		return ErrSyncUnavailable
	}
	publish := func() (interface{}, error) {
		return nil, r.client.Publish(ctx, r.Channel(professorID), payload).Err()
	}
	var err error
	if r.breaker != nil {
		_, err = r.breaker.Execute(publish)
	} else {
		_, err = publish()
	}
	if err != nil {
		return fmt.Errorf("publish dashboard event: %w", err)
	}
	return nil
}

// Subscribe streams payloads published to the professor's channel until ctx ends or the
// returned close function runs.
func (r *SyncRepository) Subscribe(ctx context.Context, professorID string) (<-chan []byte, func() error, error) {
	if !r.Available() {
		return nil, nil, ErrSyncUnavailable
	}

	pubsub := r.client.Subscribe(ctx, r.Channel(professorID))
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, nil, fmt.Errorf("subscribe dashboard events: %w", err)
	}

	out := make(chan []byte, 16)
	messages := pubsub.Channel()
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-messages:
				if !ok {
					return
				}
				select {
				case out <- []byte(msg.Payload):
				default:
					r.logger.Warn("dropping dashboard event for slow subscriber", zap.String("professor_id", professorID))
				}
			}
		}
	}()

	return out, pubsub.Close, nil
}
