package publish

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/thanhnguyendafa-ux/git-vmind-gg-3-sub002/internal/config"
	"github.com/thanhnguyendafa-ux/git-vmind-gg-3-sub002/internal/models"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	redisQueueKey   = "vmind:sync:queue"
	redisStatusKey  = "vmind:sync:status"
	redisLogChannel = "vmind:sync:log"

	redisTimeout  = 2 * time.Second
	redisCooldown = time.Minute
)

// NewRedisClient builds a client from configuration.
func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
}

// Ping checks the Redis connection.
func Ping(ctx context.Context, client *redis.Client) error {
	return client.Ping(ctx).Err()
}

// RedisPublisher mirrors engine state into Redis so external observers (a UI
// process, dashboards) can read the queue without touching the engine. All
// writes are asynchronous and best-effort: a down Redis never blocks or fails
// the engine, and after a failure the publisher backs off for a cooldown
// before trying again.
type RedisPublisher struct {
	client    *redis.Client
	logger    zerolog.Logger
	ttl       time.Duration
	isDown    atomic.Bool
	mu        sync.Mutex
	lastCheck time.Time
}

func NewRedisPublisher(client *redis.Client, ttl time.Duration, logger *zerolog.Logger) *RedisPublisher {
	return &RedisPublisher{
		client: client,
		logger: logger.With().Str("component", "redis-publisher").Logger(),
		ttl:    ttl,
	}
}

func (p *RedisPublisher) PublishQueue(mutations []models.Mutation) {
	data, err := json.Marshal(mutations)
	if err != nil {
		p.logger.Error().Err(err).Msg("encode queue snapshot")
		return
	}
	p.async(func(ctx context.Context) error {
		return p.client.Set(ctx, redisQueueKey, data, p.ttl).Err()
	})
}

func (p *RedisPublisher) PublishStatus(status models.EngineStatus) {
	p.async(func(ctx context.Context) error {
		return p.client.Set(ctx, redisStatusKey, string(status), p.ttl).Err()
	})
}

func (p *RedisPublisher) PublishLog(entry models.LogEntry) {
	data, err := json.Marshal(entry)
	if err != nil {
		p.logger.Error().Err(err).Msg("encode log entry")
		return
	}
	p.async(func(ctx context.Context) error {
		return p.client.Publish(ctx, redisLogChannel, data).Err()
	})
}

func (p *RedisPublisher) async(op func(ctx context.Context) error) {
	if p.client == nil || p.skip() {
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), redisTimeout)
		defer cancel()

		if err := op(ctx); err != nil {
			p.logger.Warn().Err(err).Msg("redis publish failed, entering cooldown")
			p.markDown()
		}
	}()
}

func (p *RedisPublisher) skip() bool {
	if !p.isDown.Load() {
		return false
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if time.Since(p.lastCheck) > redisCooldown {
		p.isDown.Store(false)
		return false
	}
	return true
}

func (p *RedisPublisher) markDown() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.isDown.Store(true)
	p.lastCheck = time.Now()
}
