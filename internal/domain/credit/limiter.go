package credit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// RedisAdLimiter counts ad rewards per user per UTC day in Redis.
type RedisAdLimiter struct {
	client *redis.Client
	limit  int
	now    func() time.Time
}

func NewRedisAdLimiter(client *redis.Client, limit int) *RedisAdLimiter {
	return &RedisAdLimiter{client: client, limit: limit, now: time.Now}
}

func (l *RedisAdLimiter) key(userID uuid.UUID) string {
	return fmt.Sprintf("ads:reward:%s:%s", userID, l.now().UTC().Format("2006-01-02"))
}

func (l *RedisAdLimiter) Take(ctx context.Context, userID uuid.UUID) (bool, error) {
	key := l.key(userID)

	pipe := l.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, 25*time.Hour)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("ad limiter: %w", err)
	}
	return incr.Val() <= int64(l.limit), nil
}

func (l *RedisAdLimiter) Release(ctx context.Context, userID uuid.UUID) {
	if err := l.client.Decr(ctx, l.key(userID)).Err(); err != nil {
		log.Warn().Err(err).Str("user_id", userID.String()).Msg("Failed to release ad limiter slot")
	}
}
