package database

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"geopolitics-server/internal/interfaces"
	"geopolitics-server/internal/models"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Compile-time check to ensure redisTokenRepository implements TokenRepository
var _ interfaces.TokenRepository = (*redisTokenRepository)(nil)

const sessionKeyPrefix = "session:"

type redisTokenRepository struct {
	client *redis.Client
	logger *zap.Logger
}

// NewRedisTokenRepository creates a new Redis-backed TokenRepository.
// Каждая сессия хранится как session:{jti} -> userID с TTL токена.
func NewRedisTokenRepository(client *redis.Client, logger *zap.Logger) interfaces.TokenRepository {
	return &redisTokenRepository{
		client: client,
		logger: logger.Named("RedisTokenRepo"),
	}
}

func sessionKey(tokenID string) string {
	return sessionKeyPrefix + tokenID
}

// SetToken registers a live session id.
func (r *redisTokenRepository) SetToken(ctx context.Context, tokenID string, userID int64, ttl time.Duration) error {
	if err := r.client.Set(ctx, sessionKey(tokenID), strconv.FormatInt(userID, 10), ttl).Err(); err != nil {
		r.logger.Error("Failed to store session in redis", zap.Error(err), zap.Int64("userID", userID))
		return fmt.Errorf("failed to store session in redis: %w", err)
	}
	r.logger.Debug("Session stored", zap.String("tokenID", tokenID), zap.Int64("userID", userID), zap.Duration("ttl", ttl))
	return nil
}

// GetUserIDByTokenID returns the owner of a live session.
func (r *redisTokenRepository) GetUserIDByTokenID(ctx context.Context, tokenID string) (int64, error) {
	val, err := r.client.Get(ctx, sessionKey(tokenID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, models.ErrTokenNotFound
		}
		r.logger.Error("Failed to read session from redis", zap.Error(err), zap.String("tokenID", tokenID))
		return 0, fmt.Errorf("failed to read session from redis: %w", err)
	}
	userID, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		r.logger.Error("Corrupted session value in redis", zap.String("tokenID", tokenID), zap.String("value", val))
		return 0, fmt.Errorf("invalid user id stored for session %s: %w", tokenID, err)
	}
	return userID, nil
}

// DeleteToken revokes a session. Deleting an unknown id is not an error.
func (r *redisTokenRepository) DeleteToken(ctx context.Context, tokenID string) error {
	deleted, err := r.client.Del(ctx, sessionKey(tokenID)).Result()
	if err != nil {
		r.logger.Error("Failed to delete session from redis", zap.Error(err), zap.String("tokenID", tokenID))
		return fmt.Errorf("failed to delete session from redis: %w", err)
	}
	r.logger.Debug("Session deleted", zap.String("tokenID", tokenID), zap.Int64("deleted", deleted))
	return nil
}
