package ingest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// SeenSet records submission tokens. Add is an atomic check-and-insert.
type SeenSet interface {
	// Add reports true when token was not seen before and is now recorded.
	Add(ctx context.Context, token string) (bool, error)
	// Forget removes token so a retry of the same submission is admitted again.
	Forget(ctx context.Context, token string) error
}

// MemorySeenSet lives for the lifetime of the process.
type MemorySeenSet struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

func NewMemorySeenSet() *MemorySeenSet {
	return &MemorySeenSet{seen: make(map[string]struct{})}
}

func (s *MemorySeenSet) Add(_ context.Context, token string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.seen[token]; ok {
		return false, nil
	}
	s.seen[token] = struct{}{}
	return true, nil
}

func (s *MemorySeenSet) Forget(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.seen, token)
	return nil
}

const seenKeyPrefix = "slideshow:seen:"

// RedisSeenSet keeps tokens in Redis with a TTL so they survive restarts.
type RedisSeenSet struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisSeenSet connects to addr and verifies the connection.
func NewRedisSeenSet(ctx context.Context, addr, password string, db int, ttl time.Duration) (*RedisSeenSet, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}

	return &RedisSeenSet{client: client, ttl: ttl}, nil
}

func (s *RedisSeenSet) Add(ctx context.Context, token string) (bool, error) {
	ctx, span := tracer.Start(ctx, "redis.seen_add",
		trace.WithAttributes(attribute.String("submission_id", token)),
	)
	defer span.End()

	added, err := s.client.SetNX(ctx, seenKeyPrefix+token, 1, s.ttl).Result()
	if err != nil {
		span.RecordError(err)
		return false, fmt.Errorf("failed to record submission: %w", err)
	}

	span.SetAttributes(attribute.Bool("duplicate", !added))
	return added, nil
}

func (s *RedisSeenSet) Forget(ctx context.Context, token string) error {
	ctx, span := tracer.Start(ctx, "redis.seen_forget",
		trace.WithAttributes(attribute.String("submission_id", token)),
	)
	defer span.End()

	if err := s.client.Del(ctx, seenKeyPrefix+token).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to forget submission: %w", err)
	}
	return nil
}

func (s *RedisSeenSet) Close() error {
	return s.client.Close()
}
