package app

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	httpH "github.com/yungbote/lexi-backend/internal/http/handlers"
	"github.com/yungbote/lexi-backend/internal/jobs/reindex"
	"github.com/yungbote/lexi-backend/internal/platform/logger"
	"github.com/yungbote/lexi-backend/internal/platform/openai"
	"github.com/yungbote/lexi-backend/internal/platform/vectorindex"
)

type Clients struct {
	Inference openai.Client
	Index     vectorindex.Index
	Queue     reindex.Queue
	// Health lists the dependencies /healthcheck probes.
	Health map[string]httpH.Pinger
}

func wireClients(ctx context.Context, log *logger.Logger, cfg Config, db *gorm.DB) (Clients, error) {
	log.Info("Wiring clients...")

	inference, err := openai.NewClient(log, openai.Config{
		BaseURL:    cfg.Inference.BaseURL,
		APIKey:     cfg.Inference.APIKey,
		ChatModel:  cfg.Inference.ChatModel,
		EmbedModel: cfg.Inference.EmbedModel,
		Timeout:    cfg.Inference.Timeout,
		MaxRetries: cfg.Inference.MaxRetries,
	})
	if err != nil {
		return Clients{}, fmt.Errorf("init inference client: %w", err)
	}

	index, err := resolveVectorIndex(ctx, log, cfg)
	if err != nil {
		return Clients{}, fmt.Errorf("init vector index: %w", err)
	}

	health := map[string]httpH.Pinger{"database": dbPinger{db: db}}

	var queue reindex.Queue
	switch cfg.Reindex.Queue {
	case QueueRedis:
		rq, err := reindex.NewRedisQueue(log, reindex.RedisConfig{
			Addr:     cfg.Reindex.RedisAddr,
			Password: cfg.Reindex.RedisPassword,
			DB:       cfg.Reindex.RedisDB,
			Key:      cfg.Reindex.RedisKey,
		})
		if err != nil {
			return Clients{}, fmt.Errorf("init reindex queue: %w", err)
		}
		health["redis"] = rq
		queue = rq
	default:
		queue = reindex.NewMemoryQueue(0)
	}

	return Clients{
		Inference: inference,
		Index:     index,
		Queue:     queue,
		Health:    health,
	}, nil
}

func (c *Clients) Close() {
	if c == nil {
		return
	}
	if c.Queue != nil {
		_ = c.Queue.Close()
	}
}

type dbPinger struct {
	db *gorm.DB
}

func (p dbPinger) Ping(ctx context.Context) error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
