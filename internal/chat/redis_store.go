package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const chatSessionKeyPrefix = "chat_session:"

// RedisStore caches sessions in Redis as JSON with a TTL refreshed on every save.
type RedisStore struct {
	redis  *redis.Client
	tracer trace.Tracer
	ttl    time.Duration
}

// NewRedisStore returns nil when redisClient is nil.
func NewRedisStore(redisClient *redis.Client, ttl time.Duration) *RedisStore {
	if redisClient == nil {
		return nil
	}
	return &RedisStore{
		redis:  redisClient,
		tracer: otel.Tracer("hairloss.internal.chat.redis_store"),
		ttl:    ttl,
	}
}

func (s *RedisStore) Get(ctx context.Context, id string) (Session, error) {
	if id == "" {
		return Session{}, ErrSessionNotFound
	}
	ctx, span := s.tracer.Start(ctx, "chat.session.get")
	defer span.End()

	raw, err := s.redis.Get(ctx, chatSessionKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Session{}, ErrSessionNotFound
		}
		span.RecordError(err)
		return Session{}, fmt.Errorf("chat: load session: %w", err)
	}
	var session Session
	if err := json.Unmarshal(raw, &session); err != nil {
		span.RecordError(err)
		return Session{}, fmt.Errorf("chat: decode session: %w", err)
	}
	return session, nil
}

func (s *RedisStore) Save(ctx context.Context, session Session) error {
	if session.ID == "" {
		return errors.New("chat: session id required")
	}
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("chat: marshal session: %w", err)
	}

	ctx, span := s.tracer.Start(ctx, "chat.session.save")
	defer span.End()

	if err := s.redis.Set(ctx, chatSessionKey(session.ID), data, s.ttl).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("chat: save session: %w", err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	ctx, span := s.tracer.Start(ctx, "chat.session.delete")
	defer span.End()

	if err := s.redis.Del(ctx, chatSessionKey(id)).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("chat: delete session: %w", err)
	}
	return nil
}

func chatSessionKey(id string) string {
	return chatSessionKeyPrefix + id
}

var _ Store = (*RedisStore)(nil)
