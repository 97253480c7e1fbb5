package app

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/yungbote/edusight-backend/internal/config"
	"github.com/yungbote/edusight-backend/internal/data/db"
	"github.com/yungbote/edusight-backend/internal/data/repos"
	"github.com/yungbote/edusight-backend/internal/notify"
	"github.com/yungbote/edusight-backend/internal/observability"
	"github.com/yungbote/edusight-backend/internal/platform/logger"
)

// Version is stamped at build time.
var Version = "dev"

type App struct {
	Log      *logger.Logger
	Cfg      *config.Config
	DB       *gorm.DB
	Clients  Clients
	Repos    repos.Set
	Engine   Engine
	Services Services
	Metrics  *observability.Metrics

	dbService    *db.Service
	otelShutdown func(context.Context) error
	cancel       context.CancelFunc
}

// New loads configuration from the environment and wires the application.
func New() (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	return NewWithConfig(context.Background(), cfg)
}

func NewWithConfig(ctx context.Context, cfg *config.Config) (*App, error) {
	log, err := logger.New(cfg.Log.Mode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	otelShutdown := observability.InitOTel(ctx, log, observability.OtelConfig{
		Enabled:     cfg.Otel.Enabled,
		ServiceName: cfg.Otel.ServiceName,
		Environment: cfg.Otel.Environment,
		Version:     Version,
	})
	metrics := observability.Init(log, observability.MetricsConfig{
		Enabled:        cfg.Metrics.Enabled,
		Addr:           cfg.Metrics.Addr,
		ScrapeInterval: cfg.Metrics.ScrapeInterval,
	})

	dbs, err := db.Open(db.Options{
		Driver:   cfg.Database.Driver,
		DSN:      cfg.Database.DSN,
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		Name:     cfg.Database.Name,
	}, log)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("init database: %w", err)
	}
	theDB := dbs.DB()
	if err := db.AutoMigrateAll(theDB); err != nil {
		_ = dbs.Close()
		log.Sync()
		return nil, fmt.Errorf("database automigrate: %w", err)
	}

	clients, err := wireClients(ctx, log, cfg)
	if err != nil {
		_ = dbs.Close()
		log.Sync()
		return nil, err
	}

	reposet := repos.NewSet(theDB, log)

	engine, err := wireEngine(theDB, log, cfg, reposet, clients)
	if err != nil {
		clients.Close()
		_ = dbs.Close()
		log.Sync()
		return nil, err
	}
	serviceset, err := wireServices(theDB, log, cfg, reposet, engine, clients)
	if err != nil {
		clients.Close()
		_ = dbs.Close()
		log.Sync()
		return nil, err
	}

	return &App{
		Log:          log,
		Cfg:          cfg,
		DB:           theDB,
		Clients:      clients,
		Repos:        reposet,
		Engine:       engine,
		Services:     serviceset,
		Metrics:      metrics,
		dbService:    dbs,
		otelShutdown: otelShutdown,
	}, nil
}

// Start launches the background loops: job worker, Temporal worker, metrics
// and the notification forwarder. It returns immediately.
func (a *App) Start() {
	if a == nil || a.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel

	if a.Services.JobWorker != nil {
		a.Services.JobWorker.Start(ctx)
	}
	if a.Services.TemporalWorker != nil {
		go func() {
			if err := a.Services.TemporalWorker.Start(ctx); err != nil {
				a.Log.Error("temporal worker stopped", "error", err)
			}
		}()
	}

	if a.Metrics != nil {
		a.Metrics.StartServer(ctx, a.Log, a.Cfg.Metrics.Addr)
		a.Metrics.StartDBCollector(ctx, a.Log, a.DB)
		a.Metrics.StartJobQueueCollector(ctx, a.Log, a.DB)
		if a.Clients.Redis != nil {
			a.Metrics.StartRedisCollector(ctx, a.Log, a.Clients.Redis)
		}
	}

	if a.Clients.Redis != nil && a.Cfg.Redis.Forward {
		flog := a.Log.With("component", "NotificationForwarder")
		err := a.Clients.Redis.StartForwarder(ctx, func(n notify.Notification) {
			flog.Info("notification",
				"student_id", n.StudentID,
				"kind", n.Kind,
				"priority", n.Priority,
				"academic_year", n.AcademicYear,
				"message", n.Message,
			)
		})
		if err != nil {
			a.Log.Warn("notification forwarder not started", "error", err)
		}
	}
	a.Log.Info("EPR engine started", "version", Version, "jobs", a.Cfg.Jobs.Enabled, "temporal", a.Clients.Temporal != nil)
}

// Close stops background work, drains queued recomputes and releases
// connections.
func (a *App) Close(ctx context.Context) {
	if a == nil {
		return
	}
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
	if a.Engine.Dispatcher != nil {
		if err := a.Engine.Dispatcher.Close(ctx); err != nil {
			a.Log.Warn("recompute dispatcher did not drain", "error", err)
		}
	}
	if a.Services.JobWorker != nil {
		a.Services.JobWorker.Wait()
	}
	a.Clients.Close()
	if a.dbService != nil {
		if err := a.dbService.Close(); err != nil {
			a.Log.Warn("database close failed", "error", err)
		}
	}
	if a.otelShutdown != nil {
		if err := a.otelShutdown(ctx); err != nil {
			a.Log.Warn("otel shutdown failed", "error", err)
		}
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}
