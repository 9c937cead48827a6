// internal/infrastructure/database/redis/locker.go
package redis

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/your-org/cart-backend/internal/domain/cart"
)

// releaseScript deletes the lock only while it still holds the caller's token
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Locker is a cart.Locker shared by every API instance
type Locker struct {
	client        *redis.Client
	ttl           time.Duration
	retryInterval time.Duration
	prefix        string
	logger        *logrus.Logger
}

var _ cart.Locker = (*Locker)(nil)

// NewLocker creates a Redis lock. ttl bounds how long a crashed holder can block others.
func NewLocker(client *redis.Client, ttl, retryInterval time.Duration, logger *logrus.Logger) *Locker {
	if retryInterval <= 0 {
		retryInterval = 25 * time.Millisecond
	}
	return &Locker{
		client:        client,
		ttl:           ttl,
		retryInterval: retryInterval,
		prefix:        "lock:",
		logger:        logger,
	}
}

// Lock polls SET NX until it wins or ctx is done
func (l *Locker) Lock(ctx context.Context, key string) (func(), error) {
	lockKey := l.prefix + key
	token := uuid.NewString()

	ticker := time.NewTicker(l.retryInterval)
	defer ticker.Stop()

	for {
		ok, err := l.client.SetNX(ctx, lockKey, token, l.ttl).Result()
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			return nil, fmt.Errorf("acquire lock %s: %w", lockKey, err)
		}
		if ok {
			return l.releaser(lockKey, token), nil
		}

		select {
		case <-ticker.C:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

func (l *Locker) releaser(lockKey, token string) func() {
	var once sync.Once
	return func() {
		once.Do(func() {
			// The request context may already be cancelled
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()

			if err := releaseScript.Run(ctx, l.client, []string{lockKey}, token).Err(); err != nil {
				l.logger.WithError(err).WithField("key", lockKey).Warn("Failed to release lock")
			}
		})
	}
}
