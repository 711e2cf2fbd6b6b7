package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bsm/redislock"
	goredis "github.com/redis/go-redis/v9"

	"github.com/LuisDaniel15/Software-Pos/internal/application/billing"
	"github.com/LuisDaniel15/Software-Pos/internal/domain"
	"github.com/LuisDaniel15/Software-Pos/pkg/logger"
)

var _ billing.RetryLocker = (*RetryLocker)(nil)

// RetryLocker candado distribuido por clave con redislock. Sin reintentos: si otro proceso
// lo tiene, Acquire falla de inmediato con domain.ErrConflict.
type RetryLocker struct {
	locker *redislock.Client
	ttl    time.Duration
	log    *logger.Logger
}

// NewRetryLocker construye el candado. ttl acota cuánto puede quedar tomado si el proceso muere.
func NewRetryLocker(rdb *goredis.Client, ttl time.Duration, log *logger.Logger) *RetryLocker {
	return &RetryLocker{locker: redislock.New(rdb), ttl: ttl, log: log.With("redis-lock")}
}

func (l *RetryLocker) Acquire(ctx context.Context, key string) (func(), error) {
	lock, err := l.locker.Obtain(ctx, "lock:"+key, l.ttl, nil)
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, fmt.Errorf("%w: operación en curso para %s", domain.ErrConflict, key)
	}
	if err != nil {
		return nil, fmt.Errorf("obtain lock %s: %w", key, err)
	}
	return func() {
		// El contexto del request puede estar cancelado al liberar.
		if err := lock.Release(context.WithoutCancel(ctx)); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
			l.log.Warn().Err(err).Str("key", key).Msg("no se pudo liberar el candado")
		}
	}, nil
}
