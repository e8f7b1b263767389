package session

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"comanda/internal/domain"
	apperrors "comanda/internal/errors"
)

const sessionKeyPrefix = "session:"

// RedisStore keeps bearer sessions as hashes so token, role and username
// appear and disappear together.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func (s *RedisStore) Create(ctx context.Context, user domain.User) (domain.Session, error) {
	sess := domain.Session{
		Token:    uuid.NewString(),
		Role:     user.Role,
		Username: user.Username,
	}
	if !sess.Valid() {
		return domain.Session{}, apperrors.NewValidationError("user cannot open a session", apperrors.ValidationDetail{
			Field:   "role",
			Message: "role must be admin or waiter",
		})
	}

	key := sessionKeyPrefix + sess.Token
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, "role", string(sess.Role), "username", sess.Username)
		pipe.Expire(ctx, key, s.ttl)
		return nil
	})
	if err != nil {
		return domain.Session{}, fmt.Errorf("storing session: %w", err)
	}

	return sess, nil
}

func (s *RedisStore) Get(ctx context.Context, token string) (domain.Session, error) {
	if token == "" {
		return domain.Session{}, apperrors.NewUnauthorizedError("missing bearer token")
	}

	fields, err := s.client.HGetAll(ctx, sessionKeyPrefix+token).Result()
	if err != nil {
		return domain.Session{}, fmt.Errorf("loading session: %w", err)
	}

	sess := domain.Session{
		Token:    token,
		Role:     domain.Role(fields["role"]),
		Username: fields["username"],
	}
	if !sess.Valid() {
		return domain.Session{}, apperrors.NewUnauthorizedError("session expired or unknown")
	}
	return sess, nil
}

// Delete ends the session. Deleting an unknown token is not an error.
func (s *RedisStore) Delete(ctx context.Context, token string) error {
	if err := s.client.Del(ctx, sessionKeyPrefix+token).Err(); err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	return nil
}

// DeleteUser drops every live session of username, used when an admin
// deletes or demotes the account.
func (s *RedisStore) DeleteUser(ctx context.Context, username string) error {
	iter := s.client.Scan(ctx, 0, sessionKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		owner, err := s.client.HGet(ctx, key, "username").Result()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			return fmt.Errorf("reading session owner: %w", err)
		}
		if owner != username {
			continue
		}
		if err := s.client.Del(ctx, key).Err(); err != nil {
			return fmt.Errorf("deleting session: %w", err)
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("scanning sessions: %w", err)
	}
	return nil
}
