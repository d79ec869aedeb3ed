package app

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/yungbote/lexi-backend/internal/data/db"
	"github.com/yungbote/lexi-backend/internal/data/repos"
	lexihttp "github.com/yungbote/lexi-backend/internal/http"
	"github.com/yungbote/lexi-backend/internal/observability"
	"github.com/yungbote/lexi-backend/internal/platform/logger"
)

// Version is stamped at build time with -ldflags.
var Version = "dev"

type App struct {
	Log      *logger.Logger
	DB       *gorm.DB
	Server   *lexihttp.Server
	Cfg      Config
	Repos    repos.Repos
	Clients  Clients
	Services Services
	Metrics  *observability.Metrics

	otelShutdown func(context.Context) error
	cancel       context.CancelFunc
}

// New wires the full application from cfg. Nothing runs until Start or Run.
func New(ctx context.Context, cfg Config, log *logger.Logger) (*App, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}

	var metrics *observability.Metrics
	if cfg.MetricsEnabled {
		metrics = observability.Init()
	}
	otelShutdown := observability.InitOTel(ctx, log, observability.OtelConfig{
		Enabled:     cfg.Otel.Enabled,
		ServiceName: cfg.Otel.ServiceName,
		Environment: cfg.Environment,
		Version:     Version,
		Endpoint:    cfg.Otel.Endpoint,
		Insecure:    cfg.Otel.Insecure,
		Headers:     observability.ParseHeaders(cfg.Otel.Headers),
		SampleRatio: cfg.Otel.SampleRatio,
	})

	theDB, err := OpenDatabase(log, cfg)
	if err != nil {
		_ = otelShutdown(ctx)
		return nil, err
	}

	reposet := repos.New(theDB, log)

	clients, err := wireClients(ctx, log, cfg, theDB)
	if err != nil {
		closeDB(theDB)
		_ = otelShutdown(ctx)
		return nil, err
	}

	serviceset, err := wireServices(theDB, log, cfg, reposet, clients)
	if err != nil {
		clients.Close()
		closeDB(theDB)
		_ = otelShutdown(ctx)
		return nil, err
	}

	return &App{
		Log:          log,
		DB:           theDB,
		Server:       wireServer(log, cfg, reposet, serviceset, clients, metrics),
		Cfg:          cfg,
		Repos:        reposet,
		Clients:      clients,
		Services:     serviceset,
		Metrics:      metrics,
		otelShutdown: otelShutdown,
	}, nil
}

// OpenDatabase connects and, when enabled, migrates the schema.
func OpenDatabase(log *logger.Logger, cfg Config) (*gorm.DB, error) {
	theDB, err := db.Open(log, db.Config{
		Driver:       cfg.Database.Driver,
		DSN:          cfg.Database.DSN,
		MaxOpenConns: cfg.Database.MaxOpenConns,
		MaxIdleConns: cfg.Database.MaxIdleConns,
	})
	if err != nil {
		return nil, fmt.Errorf("init database: %w", err)
	}
	if cfg.Database.AutoMigrate {
		if err := db.AutoMigrate(theDB); err != nil {
			closeDB(theDB)
			return nil, fmt.Errorf("database automigrate: %w", err)
		}
	}
	return theDB, nil
}

// Start launches the reindex worker pool and the sweep loop.
func (a *App) Start() {
	if a == nil || a.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel

	if a.Services.ReindexWorker != nil {
		a.Services.ReindexWorker.Start(ctx)
	}
	if a.Services.ReindexSweeper != nil {
		a.Services.ReindexSweeper.Start(ctx)
	}
}

// Run serves HTTP until ctx ends.
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.Server == nil {
		return fmt.Errorf("app not initialized")
	}
	return a.Server.Run(ctx, a.Cfg.HTTPAddr)
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
	a.Clients.Close()
	if a.Services.ReindexWorker != nil {
		a.Services.ReindexWorker.Wait()
	}
	if a.otelShutdown != nil {
		if err := a.otelShutdown(context.Background()); err != nil {
			a.Log.Warn("otel shutdown failed", "error", err)
		}
	}
	closeDB(a.DB)
	if a.Log != nil {
		a.Log.Sync()
	}
}

func closeDB(gdb *gorm.DB) {
	if gdb == nil {
		return
	}
	if sqlDB, err := gdb.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
