package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"comanda/internal/domain"
	apperrors "comanda/internal/errors"
)

const (
	idempotencyKeyPrefix = "idempotency:order:"
	pendingMarker        = "pending"
)

// RedisIdempotencyRepository remembers which order a client-supplied key
// produced, so a retried submission returns the first order instead of
// broadcasting twice.
type RedisIdempotencyRepository struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisIdempotencyRepository(client *redis.Client, ttl time.Duration) *RedisIdempotencyRepository {
	return &RedisIdempotencyRepository{client: client, ttl: ttl}
}

// Reserve claims key. It returns (nil, nil) when the caller owns the key and
// must process the order, or the stored order when the key was already used.
// A key still being processed by another request is a conflict.
func (r *RedisIdempotencyRepository) Reserve(ctx context.Context, key string) (*domain.Order, error) {
	redisKey := idempotencyKeyPrefix + key

	ok, err := r.client.SetNX(ctx, redisKey, pendingMarker, r.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("reserving idempotency key: %w", err)
	}
	if ok {
		return nil, nil
	}

	raw, err := r.client.Get(ctx, redisKey).Result()
	if err == redis.Nil {
		return r.Reserve(ctx, key)
	}
	if err != nil {
		return nil, fmt.Errorf("reading idempotency key: %w", err)
	}
	if raw == pendingMarker {
		return nil, apperrors.NewConflictError("an order with this idempotency key is being processed")
	}

	var order domain.Order
	if err := json.Unmarshal([]byte(raw), &order); err != nil {
		return nil, fmt.Errorf("decoding stored order: %w", err)
	}
	return &order, nil
}

// Complete stores order under key, keeping the TTL set by Reserve.
func (r *RedisIdempotencyRepository) Complete(ctx context.Context, key string, order domain.Order) error {
	body, err := json.Marshal(order)
	if err != nil {
		return fmt.Errorf("encoding order: %w", err)
	}
	if err := r.client.Set(ctx, idempotencyKeyPrefix+key, body, redis.KeepTTL).Err(); err != nil {
		return fmt.Errorf("storing idempotent result: %w", err)
	}
	return nil
}

// Release frees key after a failed submission so the client may retry.
func (r *RedisIdempotencyRepository) Release(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, idempotencyKeyPrefix+key).Err(); err != nil {
		return fmt.Errorf("releasing idempotency key: %w", err)
	}
	return nil
}
