package app

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/yungbote/edusight-backend/internal/analytics"
	"github.com/yungbote/edusight-backend/internal/config"
	"github.com/yungbote/edusight-backend/internal/data/repos"
	"github.com/yungbote/edusight-backend/internal/epr"
	"github.com/yungbote/edusight-backend/internal/ingestion/pipeline"
	"github.com/yungbote/edusight-backend/internal/jobs/pipeline/epr_batch_recalculation"
	"github.com/yungbote/edusight-backend/internal/jobs/pipeline/epr_recompute"
	jobruntime "github.com/yungbote/edusight-backend/internal/jobs/runtime"
	"github.com/yungbote/edusight-backend/internal/jobs/worker"
	"github.com/yungbote/edusight-backend/internal/notify"
	"github.com/yungbote/edusight-backend/internal/platform/cache"
	"github.com/yungbote/edusight-backend/internal/platform/logger"
	"github.com/yungbote/edusight-backend/internal/recommend"
	"github.com/yungbote/edusight-backend/internal/recompute"
	"github.com/yungbote/edusight-backend/internal/scorers"
	"github.com/yungbote/edusight-backend/internal/services"
	"github.com/yungbote/edusight-backend/internal/summary"
	"github.com/yungbote/edusight-backend/internal/temporalx/temporalworker"
	"github.com/yungbote/edusight-backend/internal/validation"
	"github.com/yungbote/edusight-backend/internal/workflow"
)

// Engine holds the rating components behind the services.
type Engine struct {
	Composer   *epr.Composer
	Scorer     scorers.Scorer
	Builder    summary.Builder
	Validator  *validation.Validator
	Cache      cache.Cache
	Publisher  notify.Publisher
	Workflows  workflow.Dispatcher
	Controller recompute.Controller
	Dispatcher *recompute.Dispatcher
	Pipeline   pipeline.Pipeline
	Analytics  analytics.Service
	Recommend  recommend.Service
}

type Services struct {
	Observations services.ObservationService
	Uploads      services.UploadService
	Queries      services.QueryService
	Jobs         services.JobService

	// Job infra
	JobRegistry    *jobruntime.Registry
	JobWorker      *worker.Worker
	TemporalWorker *temporalworker.Runner
}

// jobTypes are the workflows this process runs as local jobs.
var jobTypes = []string{epr_recompute.JobType, epr_batch_recalculation.JobType}

func wireEngine(db *gorm.DB, log *logger.Logger, cfg *config.Config, rs repos.Set, clients Clients) (Engine, error) {
	log.Info("Wiring engine...")

	composer, err := epr.New(cfg.EPR.Weights(), cfg.EPR.Boundaries())
	if err != nil {
		return Engine{}, fmt.Errorf("epr composer: %w", err)
	}

	var (
		c   cache.Cache         = cache.NewMemory()
		pub notify.Publisher    = notify.NewLog(log)
		wf  workflow.Dispatcher = workflow.NewLog(log)
	)
	if clients.Redis != nil {
		c = clients.Redis
		pub = clients.Redis
	}
	if clients.Temporal != nil {
		wf = workflow.NewTemporal(log, clients.Temporal, cfg.Temporal.TaskQueue)
	} else {
		// Without Temporal the batch workflow runs on the local job worker;
		// report_ready has no local consumer and is only logged.
		wf = workflow.NewJobQueue(log, rs.Jobs, jobTypes, wf)
	}

	e := Engine{
		Composer:  composer,
		Validator: validation.New(nil),
		Cache:     c,
		Publisher: pub,
		Workflows: wf,
	}
	e.Scorer = scorers.NewScorer(log, rs.Observations, rs.Students)
	e.Builder = summary.NewBuilder(log, rs.Observations, e.Scorer, rs.Summaries, composer)
	e.Controller = recompute.New(db, log,
		recompute.Config{
			DebounceTTL:            cfg.Recompute.DebounceTTL,
			AcademicYearStartMonth: cfg.Recompute.Month(),
		},
		rs.Observations, rs.Students, rs.Issues, rs.Summaries,
		e.Scorer, e.Builder, e.Validator, c, pub, wf,
	)
	e.Dispatcher = recompute.NewDispatcher(e.Controller, log, cfg.Recompute.Parallel)
	e.Pipeline = pipeline.New(db, log,
		pipeline.Config{
			MaxBytes:               cfg.Ingestion.MaxBytes,
			Timeout:                cfg.Ingestion.Timeout,
			LowConfidenceThreshold: cfg.Ingestion.LowConfidenceThreshold,
			AcademicYearStartMonth: cfg.Recompute.Month(),
		},
		clients.extractors(log), e.Validator, clients.Store,
		rs.Observations, rs.Uploads, rs.Issues, rs.Students,
	)

	tables, err := analytics.LoadTables()
	if err != nil {
		return Engine{}, fmt.Errorf("analytics tables: %w", err)
	}
	e.Analytics, err = analytics.NewService(log,
		analytics.Config{
			TTL:                    cfg.Recompute.AnalyticsTTL,
			AcademicYearStartMonth: cfg.Recompute.Month(),
		},
		rs.Observations, rs.Students, e.Scorer, composer, tables, c,
	)
	if err != nil {
		return Engine{}, fmt.Errorf("analytics: %w", err)
	}
	e.Recommend = recommend.NewService(log, e.Scorer, rs.Students, composer)
	return e, nil
}

func wireServices(db *gorm.DB, log *logger.Logger, cfg *config.Config, rs repos.Set, e Engine, clients Clients) (Services, error) {
	log.Info("Wiring services...")

	registry := jobruntime.NewRegistry()
	if err := registry.Register(
		epr_recompute.New(log, e.Controller),
		epr_batch_recalculation.New(log, e.Controller, rs.Students),
	); err != nil {
		return Services{}, err
	}
	notifier := jobruntime.NewLogNotifier(log)

	s := Services{
		Observations: services.NewObservationService(log, e.Controller, e.Dispatcher),
		Uploads:      services.NewUploadService(db, log, e.Pipeline, e.Controller, rs.Observations, rs.Uploads, rs.Issues, clients.Store),
		Queries:      services.NewQueryService(log, e.Analytics, e.Recommend, rs.Students, rs.Summaries),
		Jobs:         services.NewJobService(log, rs.Jobs),
		JobRegistry:  registry,
	}
	if cfg.Jobs.Enabled {
		s.JobWorker = worker.NewWorker(db, log, worker.Config{
			Concurrency:      cfg.Jobs.Concurrency,
			PollInterval:     cfg.Jobs.PollInterval,
			MaxAttempts:      cfg.Jobs.MaxAttempts,
			RetryDelay:       cfg.Jobs.RetryDelay,
			StaleRunning:     cfg.Jobs.StaleRunning,
			MaxExecutionTime: cfg.Jobs.MaxExecutionTime,
		}, rs.Jobs, registry, notifier)
	}
	if cfg.Temporal.Worker && clients.Temporal != nil {
		runner, err := temporalworker.NewRunner(log, temporalworker.Config{
			TaskQueue: cfg.Temporal.TaskQueue,
		}, clients.Temporal, db, rs.Jobs, registry, notifier)
		if err != nil {
			return Services{}, fmt.Errorf("temporal worker: %w", err)
		}
		s.TemporalWorker = runner
	}
	return s, nil
}
