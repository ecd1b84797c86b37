// Package runlock keeps two scheduled report runs from overlapping.
package runlock

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/auldata/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var ErrLocked = errors.New("runlock: another report run holds the lock")

const keyReportRun = "auldata:report:run:%s"

// Guard wraps a Locker with the report's key and TTL. A nil Guard, used when
// no redis address is configured, always succeeds.
type Guard struct {
	locker *Locker
	key    string
	ttl    time.Duration
}

func NewGuard(locker *Locker, table string, ttl time.Duration) *Guard {
	if locker == nil {
		return nil
	}
	return &Guard{
		locker: locker,
		key:    fmt.Sprintf(keyReportRun, strings.TrimSpace(table)),
		ttl:    ttl,
	}
}

// Acquire takes the lock and returns the function that releases it.
func (g *Guard) Acquire(ctx context.Context) (func(context.Context) error, error) {
	if g == nil {
		return func(context.Context) error { return nil }, nil
	}
	token, ok, err := g.locker.TryLock(ctx, g.key, g.ttl)
	if err != nil {
		return nil, fmt.Errorf("runlock: acquire %s: %w", g.key, err)
	}
	if !ok {
		return nil, ErrLocked
	}
	return func(ctx context.Context) error {
		return g.locker.Release(ctx, g.key, token)
	}, nil
}

func (g *Guard) Key() string {
	if g == nil {
		return ""
	}
	return g.key
}

// NewClient returns nil when REDIS_ADDR is unset.
func NewClient(lc fx.Lifecycle, cfg config.Config) redis.UniversalClient {
	addr := strings.TrimSpace(cfg.RedisAddr)
	if addr == "" {
		return nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: strings.TrimSpace(cfg.RedisPassword),
		DB:       cfg.RedisDB,
	})
	if lc != nil {
		lc.Append(fx.Hook{
			OnStop: func(context.Context) error {
				return client.Close()
			},
		})
	}
	return client
}

var Module = fx.Module("run.lock",
	fx.Provide(NewClient),
	fx.Provide(NewLocker),
	fx.Provide(func(locker *Locker, cfg config.Config, log *zap.Logger) *Guard {
		guard := NewGuard(locker, cfg.Reporting.Table, cfg.RunLockTTL)
		if guard == nil {
			log.Named("runlock").Info("run lock disabled, REDIS_ADDR is not set")
		}
		return guard
	}),
)
