// Package analytics turns a student's observation history into trends,
// benchmark percentiles, forecasts and career matches. Results are cached per
// student and dropped by the recompute controller on every mutation.
package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/yungbote/edusight-backend/internal/data/repos/observations"
	"github.com/yungbote/edusight-backend/internal/data/repos/students"
	types "github.com/yungbote/edusight-backend/internal/domain"
	domainobs "github.com/yungbote/edusight-backend/internal/domain/observations"
	"github.com/yungbote/edusight-backend/internal/epr"
	"github.com/yungbote/edusight-backend/internal/observability"
	"github.com/yungbote/edusight-backend/internal/platform/cache"
	"github.com/yungbote/edusight-backend/internal/platform/dbctx"
	"github.com/yungbote/edusight-backend/internal/platform/errs"
	"github.com/yungbote/edusight-backend/internal/platform/logger"
	"github.com/yungbote/edusight-backend/internal/scorers"
)

const DefaultTTL = time.Hour

// Prediction kinds accepted by Predict.
const (
	KindAcademic = "academic"
	KindEPR      = "epr"
	KindGrowth   = "growth"
	KindCareer   = "career"
)

type Config struct {
	TTL                    time.Duration
	AcademicYearStartMonth time.Month
	CareerMatches          int
}

func (c Config) withDefaults() Config {
	if c.TTL <= 0 {
		c.TTL = DefaultTTL
	}
	if c.AcademicYearStartMonth < time.January || c.AcademicYearStartMonth > time.December {
		c.AcademicYearStartMonth = time.April
	}
	if c.CareerMatches <= 0 {
		c.CareerMatches = DefaultCareerMatches
	}
	return c
}

// Tables are the static data sets analytics reads.
type Tables struct {
	Benchmarks *BenchmarkTables
	Careers    *CareerTables
}

// LoadTables reads both tables, preferring the files named by BenchmarksEnv
// and CareersEnv over the bundled copies.
func LoadTables() (Tables, error) {
	b, err := LoadBenchmarks()
	if err != nil {
		return Tables{}, err
	}
	c, err := LoadCareers()
	if err != nil {
		return Tables{}, err
	}
	return Tables{Benchmarks: b, Careers: c}, nil
}

type TrendReport struct {
	Monthly     map[string]Trend `json:"monthly"`
	Yearly      map[string]Trend `json:"yearly"`
	GeneratedAt time.Time        `json:"generated_at"`
}

// Warning is a non-fatal condition attached to a prediction.
type Warning struct {
	Kind   errs.Kind `json:"kind"`
	Reason string    `json:"reason"`
}

type Prediction struct {
	StudentID uuid.UUID       `json:"student_id"`
	Kind      string          `json:"kind"`
	Timeframe string          `json:"timeframe"`
	Periods   int             `json:"periods"`
	Months    []string        `json:"history_months,omitempty"`
	History   []float64       `json:"history,omitempty"`
	Forecast  *Forecast       `json:"forecast,omitempty"`
	Growth    *GrowthForecast `json:"growth,omitempty"`
	Career    *CareerReport   `json:"career,omitempty"`
	Warnings  []Warning       `json:"warnings"`
}

type Service interface {
	ComprehensiveAnalysis(ctx context.Context, studentID uuid.UUID) (*Comprehensive, error)
	Trends(ctx context.Context, studentID uuid.UUID) (*TrendReport, error)
	Patterns(ctx context.Context, studentID uuid.UUID) (*Patterns, error)
	// Benchmarks ranks the latest academic year's scores.
	Benchmarks(ctx context.Context, studentID uuid.UUID) (*BenchmarkReport, error)
	Predict(ctx context.Context, studentID uuid.UUID, kind, timeframe string) (*Prediction, error)
}

type service struct {
	log      *logger.Logger
	cfg      Config
	obs      observations.Repository
	profiles students.StudentProfileRepo
	scorer   scorers.Scorer
	composer *epr.Composer
	tables   Tables
	cache    cache.Cache
	group    singleflight.Group
	clock    func() time.Time
}

func NewService(
	baseLog *logger.Logger,
	cfg Config,
	obs observations.Repository,
	profiles students.StudentProfileRepo,
	scorer scorers.Scorer,
	composer *epr.Composer,
	tables Tables,
	c cache.Cache,
) (Service, error) {
	if composer == nil {
		composer = epr.Default()
	}
	if c == nil {
		c = cache.NewMemory()
	}
	if tables.Benchmarks == nil || tables.Careers == nil {
		loaded, err := LoadTables()
		if err != nil {
			return nil, err
		}
		if tables.Benchmarks == nil {
			tables.Benchmarks = loaded.Benchmarks
		}
		if tables.Careers == nil {
			tables.Careers = loaded.Careers
		}
	}
	return &service{
		log:      baseLog.With("component", "AnalyticsService"),
		cfg:      cfg.withDefaults(),
		obs:      obs,
		profiles: profiles,
		scorer:   scorer,
		composer: composer,
		tables:   tables,
		cache:    c,
		clock:    time.Now,
	}, nil
}

var tracer = observability.Tracer("analytics")

// cached is a read-through on the analytics cache. Entries are keyed by the
// student's generation, so a build that raced an invalidation lands under a
// key later readers never ask for. Concurrent misses for one key share a
// single build.
func cached[T any](ctx context.Context, s *service, studentID uuid.UUID, entry string, build func(context.Context) (T, error)) (T, error) {
	var zero T
	gen, err := cache.Generation(ctx, s.cache, studentID)
	if err != nil {
		s.log.Warn("analytics generation unreadable; building uncached", "student_id", studentID, "error", err)
		return build(ctx)
	}
	key := cache.VersionedAnalyticsKey(studentID, entry, gen)
	if b, err := s.cache.Get(ctx, key); err == nil {
		var v T
		if err := json.Unmarshal(b, &v); err == nil {
			return v, nil
		}
		s.log.Warn("discarding undecodable analytics entry", "key", key)
	} else if !errors.Is(err, cache.ErrMiss) {
		s.log.Warn("analytics cache read failed", "key", key, "error", err)
	}

	v, err, _ := s.group.Do(key, func() (any, error) {
		v, err := build(ctx)
		if err != nil {
			return nil, err
		}
		if b, err := json.Marshal(v); err != nil {
			s.log.Warn("analytics entry not cacheable", "key", key, "error", err)
		} else if err := s.cache.Set(ctx, key, b, s.cfg.TTL); err != nil {
			s.log.Warn("analytics cache write failed", "key", key, "error", err)
		}
		return v, nil
	})
	if err != nil {
		return zero, err
	}
	return v.(T), nil
}

// load reads the profile and every domain concurrently.
func (s *service) load(ctx context.Context, studentID uuid.UUID) (history, error) {
	var h history
	g, gctx := errgroup.WithContext(ctx)
	dbc := dbctx.Context{Ctx: gctx}
	g.Go(func() error {
		p, err := s.profiles.GetByID(dbc, studentID)
		if err != nil {
			return fmt.Errorf("load student profile: %w", err)
		}
		h.profile = p
		return nil
	})
	g.Go(func() error {
		rows, err := s.obs.Academic(dbc, studentID, "")
		if err != nil {
			return fmt.Errorf("load academic observations: %w", err)
		}
		h.academic = rows
		return nil
	})
	g.Go(func() error {
		rows, err := s.obs.Psychological(dbc, studentID, "")
		if err != nil {
			return fmt.Errorf("load psychological observations: %w", err)
		}
		h.psychological = rows
		return nil
	})
	g.Go(func() error {
		rows, err := s.obs.Physical(dbc, studentID, "")
		if err != nil {
			return fmt.Errorf("load physical observations: %w", err)
		}
		h.physical = rows
		return nil
	})
	if err := g.Wait(); err != nil {
		return history{}, err
	}
	return h, nil
}

func (s *service) ComprehensiveAnalysis(ctx context.Context, studentID uuid.UUID) (out *Comprehensive, err error) {
	ctx, span := observability.StartSpan(ctx, tracer, "analytics.comprehensive", attribute.String("student.id", studentID.String()))
	defer func() { observability.EndSpan(span, err) }()

	return cached(ctx, s, studentID, cache.EntryComprehensive, func(ctx context.Context) (*Comprehensive, error) {
		h, err := s.load(ctx, studentID)
		if err != nil {
			return nil, err
		}
		a, p, ph := h.counts()
		c := Counts{Academic: a, Psychological: p, Physical: ph, Total: a + p + ph}
		if !domainobs.Sufficient(a, c.Total) {
			res := insufficient(c)
			res.GeneratedAt = s.clock().UTC()
			return res, nil
		}

		res := &Comprehensive{DataSufficient: true, Counts: c}
		start := s.cfg.AcademicYearStartMonth
		var g errgroup.Group
		g.Go(func() error { res.AcademicAnalysis = analyzeAcademic(h.academic, start); return nil })
		g.Go(func() error { res.PsychologicalAnalysis = analyzePsychological(h.psychological, start); return nil })
		g.Go(func() error { res.PhysicalAnalysis = analyzePhysical(h.physical, h.profile, start); return nil })
		g.Go(func() error { res.Correlations = correlations(h, start); return nil })
		_ = g.Wait()

		res.OverallInsights = overall(s.composer, res.AcademicAnalysis, res.PsychologicalAnalysis, res.PhysicalAnalysis)
		res.GeneratedAt = s.clock().UTC()
		return res, nil
	})
}

func (s *service) Trends(ctx context.Context, studentID uuid.UUID) (*TrendReport, error) {
	return cached(ctx, s, studentID, cache.EntryTrends, func(ctx context.Context) (*TrendReport, error) {
		h, err := s.load(ctx, studentID)
		if err != nil {
			return nil, err
		}
		start := s.cfg.AcademicYearStartMonth
		out := &TrendReport{Monthly: map[string]Trend{}, Yearly: map[string]Trend{}, GeneratedAt: s.clock().UTC()}
		samples := map[string][]Sample{
			string(types.DomainAcademic):      academicSamples(h.academic),
			string(types.DomainPsychological): psychologicalSamples(h.psychological),
			string(types.DomainPhysical):      physicalSamples(h.physical, h.profile),
		}
		for name, ss := range samples {
			out.Monthly[name] = BuildTrend(ss, Monthly, start)
			out.Yearly[name] = BuildTrend(ss, Yearly, start)
		}
		buckets := eprBuckets(s.composer,
			out.Monthly[string(types.DomainAcademic)].Buckets,
			out.Monthly[string(types.DomainPsychological)].Buckets,
			out.Monthly[string(types.DomainPhysical)].Buckets,
		)
		out.Monthly["epr"] = trendOf(buckets, start)
		return out, nil
	})
}

// trendOf labels buckets that were built elsewhere.
func trendOf(buckets []Bucket, startMonth time.Month) Trend {
	samples := make([]Sample, 0, len(buckets))
	for _, b := range buckets {
		samples = append(samples, Sample{At: b.Start, Value: b.Mean})
	}
	return BuildTrend(samples, Monthly, startMonth)
}

func (s *service) Patterns(ctx context.Context, studentID uuid.UUID) (*Patterns, error) {
	return cached(ctx, s, studentID, cache.EntryPatterns, func(ctx context.Context) (*Patterns, error) {
		h, err := s.load(ctx, studentID)
		if err != nil {
			return nil, err
		}
		a, p, ph := h.counts()
		out := findPatterns(h, s.cfg.AcademicYearStartMonth)
		out.DataSufficient = domainobs.Sufficient(a, a+p+ph)
		out.GeneratedAt = s.clock().UTC()
		return out, nil
	})
}

func (s *service) Benchmarks(ctx context.Context, studentID uuid.UUID) (out *BenchmarkReport, err error) {
	ctx, span := observability.StartSpan(ctx, tracer, "analytics.benchmarks", attribute.String("student.id", studentID.String()))
	defer func() { observability.EndSpan(span, err) }()

	return cached(ctx, s, studentID, cache.EntryBenchmarking, func(ctx context.Context) (*BenchmarkReport, error) {
		dbc := dbctx.Context{Ctx: ctx}
		years, err := s.obs.Years(dbc, studentID)
		if err != nil {
			return nil, fmt.Errorf("list academic years: %w", err)
		}
		if len(years) == 0 {
			return nil, errs.New(errs.KindInsufficientData, "no observations to benchmark", errs.ErrInsufficientData)
		}
		year := years[len(years)-1]
		scores, err := s.scorer.All(dbc, studentID, year)
		if err != nil {
			return nil, err
		}
		profile, err := s.profiles.GetByID(dbc, studentID)
		if err != nil {
			return nil, fmt.Errorf("load student profile: %w", err)
		}
		var age *int
		if profile != nil {
			age = profile.AgeAt(s.clock())
		}
		ds := scores.Domains()
		rep := Benchmark(s.tables.Benchmarks, domainScores(ds, s.composer.Compose(ds)), age)
		rep.AcademicYear = year
		return rep, nil
	})
}

// series is a cached monthly history ready for forecasting.
type series struct {
	Months []string  `json:"months"`
	Values []float64 `json:"values"`
}

func (s *service) series(ctx context.Context, studentID uuid.UUID, kind string) (series, error) {
	entry := cache.EntryAcademicCast
	if kind == KindEPR {
		entry = cache.EntryEPRCast
	}
	return cached(ctx, s, studentID, entry, func(ctx context.Context) (series, error) {
		h, err := s.load(ctx, studentID)
		if err != nil {
			return series{}, err
		}
		start := s.cfg.AcademicYearStartMonth
		academic := BucketSamples(academicSamples(h.academic), Monthly, start)
		buckets := academic
		if kind == KindEPR {
			buckets = eprBuckets(s.composer,
				academic,
				BucketSamples(psychologicalSamples(h.psychological), Monthly, start),
				BucketSamples(physicalSamples(h.physical, h.profile), Monthly, start),
			)
		}
		months, vals := monthlySeries(buckets)
		return series{Months: months, Values: vals}, nil
	})
}

func (s *service) Predict(ctx context.Context, studentID uuid.UUID, kind, timeframe string) (out *Prediction, err error) {
	ctx, span := observability.StartSpan(ctx, tracer, "analytics.predict",
		attribute.String("student.id", studentID.String()),
		attribute.String("prediction.kind", kind),
	)
	defer func() { observability.EndSpan(span, err) }()

	periods, err := HorizonPeriods(timeframe)
	if err != nil {
		return nil, err
	}
	if timeframe == "" {
		timeframe = "1_year"
	}
	out = &Prediction{StudentID: studentID, Kind: kind, Timeframe: timeframe, Periods: periods, Warnings: []Warning{}}

	switch kind {
	case KindAcademic, KindEPR:
		ser, err := s.series(ctx, studentID, kind)
		if err != nil {
			return nil, err
		}
		f, err := ForecastSeries(ser.Values, periods)
		if err != nil {
			return nil, err
		}
		out.Months, out.History, out.Forecast = ser.Months, ser.Values, f
		if !f.Reliable {
			out.Warnings = append(out.Warnings, Warning{
				Kind:   errs.KindForecastUnreliable,
				Reason: fmt.Sprintf("forecast confidence %.2f is below %.2f", f.Confidence, ReliableConfidence),
			})
		}
	case KindGrowth:
		h, err := s.load(ctx, studentID)
		if err != nil {
			return nil, err
		}
		g, err := ForecastGrowth(h.physical, periods)
		if err != nil {
			return nil, err
		}
		out.Growth = g
	case KindCareer:
		h, err := s.load(ctx, studentID)
		if err != nil {
			return nil, err
		}
		if len(h.academic) == 0 && len(h.psychological) == 0 {
			return nil, errs.New(errs.KindInsufficientData, "career matching needs academic or psychological observations", errs.ErrInsufficientData)
		}
		out.Career = MatchCareers(s.tables.Careers, aptitudeOf(s.tables.Careers, h), s.cfg.CareerMatches)
	default:
		return nil, errs.New(errs.KindInvalidArgument, fmt.Sprintf("unknown prediction kind %q", kind), errs.ErrInvalidArgument)
	}
	s.log.Debug("prediction built", "student_id", studentID, "kind", kind, "timeframe", timeframe, "warnings", len(out.Warnings))
	return out, nil
}
