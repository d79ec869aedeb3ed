package reindex

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/lexi-backend/internal/platform/logger"
)

const DefaultRedisKey = "lexi:reindex"

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Key      string
	// PollTimeout bounds each BRPOP so Dequeue notices ctx cancellation.
	PollTimeout time.Duration
}

// RedisQueue is a Redis list: LPUSH to enqueue, BRPOP to dequeue. Duplicate
// ids are tolerated since Reindex is idempotent.
type RedisQueue struct {
	log  *logger.Logger
	rdb  *goredis.Client
	key  string
	poll time.Duration
}

var _ Queue = (*RedisQueue)(nil)

func NewRedisQueue(log *logger.Logger, cfg RedisConfig) (*RedisQueue, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	addr := strings.TrimSpace(cfg.Addr)
	if addr == "" {
		return nil, fmt.Errorf("missing REDIS_ADDR")
	}
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: 5 * time.Second,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return newRedisQueue(log, rdb, cfg), nil
}

func newRedisQueue(log *logger.Logger, rdb *goredis.Client, cfg RedisConfig) *RedisQueue {
	key := strings.TrimSpace(cfg.Key)
	if key == "" {
		key = DefaultRedisKey
	}
	poll := cfg.PollTimeout
	if poll <= 0 {
		poll = time.Second
	}
	return &RedisQueue{
		log:  log.With("service", "RedisReindexQueue"),
		rdb:  rdb,
		key:  key,
		poll: poll,
	}
}

func (q *RedisQueue) Enqueue(ctx context.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return fmt.Errorf("enqueue: missing document id")
	}
	return q.rdb.LPush(ctx, q.key, id.String()).Err()
}

func (q *RedisQueue) Dequeue(ctx context.Context) (uuid.UUID, error) {
	for {
		if err := ctx.Err(); err != nil {
			return uuid.Nil, err
		}
		res, err := q.rdb.BRPop(ctx, q.poll, q.key).Result()
		if errors.Is(err, goredis.Nil) {
			continue
		}
		if errors.Is(err, goredis.ErrClosed) {
			return uuid.Nil, ErrClosed
		}
		if err != nil {
			if ctx.Err() != nil {
				return uuid.Nil, ctx.Err()
			}
			return uuid.Nil, fmt.Errorf("brpop %s: %w", q.key, err)
		}
		// res is [key, value].
		if len(res) != 2 {
			continue
		}
		id, err := uuid.Parse(res[1])
		if err != nil {
			q.log.Warn("Dropping malformed reindex entry", "value", res[1])
			continue
		}
		return id, nil
	}
}

func (q *RedisQueue) Len(ctx context.Context) (int64, error) {
	return q.rdb.LLen(ctx, q.key).Result()
}

func (q *RedisQueue) Close() error {
	return q.rdb.Close()
}

func (q *RedisQueue) Ping(ctx context.Context) error {
	return q.rdb.Ping(ctx).Err()
}
