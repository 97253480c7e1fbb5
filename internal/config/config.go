package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"github.com/yungbote/edusight-backend/internal/epr"
)

// EnvPrefix prefixes every environment override, e.g. EPR_DATABASE_DRIVER.
const EnvPrefix = "EPR"

// FileEnv names the optional YAML file.
const FileEnv = "EPR_CONFIG_FILE"

type Config struct {
	Log       LogConfig       `yaml:"log" envconfig:"LOG"`
	Database  DatabaseConfig  `yaml:"database" envconfig:"DATABASE"`
	Redis     RedisConfig     `yaml:"redis" envconfig:"REDIS"`
	Storage   StorageConfig   `yaml:"storage" envconfig:"STORAGE"`
	GCP       GCPConfig       `yaml:"gcp" envconfig:"GCP"`
	Temporal  TemporalConfig  `yaml:"temporal" envconfig:"TEMPORAL"`
	Ingestion IngestionConfig `yaml:"ingestion" envconfig:"INGESTION"`
	Recompute RecomputeConfig `yaml:"recompute" envconfig:"RECOMPUTE"`
	Jobs      JobsConfig      `yaml:"jobs" envconfig:"JOBS"`
	EPR       EPRConfig       `yaml:"epr" envconfig:"EPR"`
	Otel      OtelConfig      `yaml:"otel" envconfig:"OTEL"`
	Metrics   MetricsConfig   `yaml:"metrics" envconfig:"METRICS"`
}

type LogConfig struct {
	Mode string `yaml:"mode" envconfig:"MODE" validate:"omitempty,oneof=dev development prod production test"`
}

type DatabaseConfig struct {
	Driver   string `yaml:"driver" envconfig:"DRIVER" validate:"oneof=postgres sqlite"`
	DSN      string `yaml:"dsn" envconfig:"DSN"`
	Host     string `yaml:"host" envconfig:"HOST"`
	Port     int    `yaml:"port" envconfig:"PORT" validate:"gte=0,lte=65535"`
	User     string `yaml:"user" envconfig:"USER"`
	Password string `yaml:"password" envconfig:"PASSWORD"`
	Name     string `yaml:"name" envconfig:"NAME"`
}

type RedisConfig struct {
	Enabled  bool   `yaml:"enabled" envconfig:"ENABLED"`
	Addr     string `yaml:"addr" envconfig:"ADDR" validate:"required_if=Enabled true"`
	Password string `yaml:"password" envconfig:"PASSWORD"`
	DB       int    `yaml:"db" envconfig:"DB" validate:"gte=0"`
	Channel  string `yaml:"channel" envconfig:"CHANNEL"`
	// Forward echoes bus notifications to the log.
	Forward bool `yaml:"forward" envconfig:"FORWARD"`
}

type StorageConfig struct {
	Mode   string `yaml:"mode" envconfig:"MODE" validate:"oneof=local gcs"`
	Dir    string `yaml:"dir" envconfig:"DIR" validate:"required_if=Mode local"`
	Bucket string `yaml:"bucket" envconfig:"BUCKET" validate:"required_if=Mode gcs"`
	// EmulatorHost points the GCS client at a fake server.
	EmulatorHost string `yaml:"emulator_host" envconfig:"EMULATOR_HOST"`
}

type GCPConfig struct {
	ProjectID             string `yaml:"project_id" envconfig:"PROJECT_ID"`
	DocumentAILocation    string `yaml:"documentai_location" envconfig:"DOCUMENTAI_LOCATION"`
	DocumentAIProcessorID string `yaml:"documentai_processor_id" envconfig:"DOCUMENTAI_PROCESSOR_ID"`
	VisionEnabled         bool   `yaml:"vision_enabled" envconfig:"VISION_ENABLED"`
}

// DocumentAIEnabled reports whether a processor is fully configured.
func (g GCPConfig) DocumentAIEnabled() bool {
	return g.ProjectID != "" && g.DocumentAIProcessorID != ""
}

type TemporalConfig struct {
	Address   string `yaml:"address" envconfig:"ADDRESS"`
	Namespace string `yaml:"namespace" envconfig:"NAMESPACE"`
	TaskQueue string `yaml:"task_queue" envconfig:"TASK_QUEUE"`
	// Worker runs the batch-recalculation workflow in this process.
	Worker bool `yaml:"worker" envconfig:"WORKER"`
}

type IngestionConfig struct {
	MaxBytes               int64         `yaml:"max_bytes" envconfig:"MAX_BYTES" validate:"gt=0"`
	Timeout                time.Duration `yaml:"timeout" envconfig:"TIMEOUT" validate:"gt=0"`
	LowConfidenceThreshold float64       `yaml:"low_confidence_threshold" envconfig:"LOW_CONFIDENCE_THRESHOLD" validate:"gt=0,lt=1"`
}

type RecomputeConfig struct {
	AnalyticsTTL           time.Duration `yaml:"analytics_ttl" envconfig:"ANALYTICS_TTL" validate:"gt=0"`
	DebounceTTL            time.Duration `yaml:"debounce_ttl" envconfig:"DEBOUNCE_TTL" validate:"gt=0"`
	AcademicYearStartMonth int           `yaml:"academic_year_start_month" envconfig:"ACADEMIC_YEAR_START_MONTH" validate:"gte=1,lte=12"`
	// Parallel bounds how many students the async dispatcher serves at once.
	Parallel int `yaml:"parallel" envconfig:"PARALLEL" validate:"gte=1"`
}

// Month returns the start month as a time.Month.
func (r RecomputeConfig) Month() time.Month { return time.Month(r.AcademicYearStartMonth) }

type JobsConfig struct {
	Enabled          bool          `yaml:"enabled" envconfig:"ENABLED"`
	Concurrency      int           `yaml:"concurrency" envconfig:"CONCURRENCY" validate:"gte=1"`
	MaxAttempts      int           `yaml:"max_attempts" envconfig:"MAX_ATTEMPTS" validate:"gte=1"`
	MaxExecutionTime time.Duration `yaml:"max_execution_time" envconfig:"MAX_EXECUTION_TIME" validate:"gt=0"`
	RetryDelay       time.Duration `yaml:"retry_delay" envconfig:"RETRY_DELAY" validate:"gte=0"`
	StaleRunning     time.Duration `yaml:"stale_running" envconfig:"STALE_RUNNING" validate:"gt=0"`
	PollInterval     time.Duration `yaml:"poll_interval" envconfig:"POLL_INTERVAL" validate:"gt=0"`
}

type EPRConfig struct {
	WeightAcademic      float64 `yaml:"weight_academic" envconfig:"WEIGHT_ACADEMIC" validate:"gte=0,lte=1"`
	WeightPsychological float64 `yaml:"weight_psychological" envconfig:"WEIGHT_PSYCHOLOGICAL" validate:"gte=0,lte=1"`
	WeightPhysical      float64 `yaml:"weight_physical" envconfig:"WEIGHT_PHYSICAL" validate:"gte=0,lte=1"`
	Thriving            float64 `yaml:"thriving" envconfig:"THRIVING"`
	Healthy             float64 `yaml:"healthy" envconfig:"HEALTHY"`
	NeedsSupport        float64 `yaml:"needs_support" envconfig:"NEEDS_SUPPORT"`
}

func (e EPRConfig) Weights() epr.Weights {
	return epr.Weights{Academic: e.WeightAcademic, Psychological: e.WeightPsychological, Physical: e.WeightPhysical}
}

func (e EPRConfig) Boundaries() epr.Boundaries {
	return epr.Boundaries{Thriving: e.Thriving, Healthy: e.Healthy, NeedsSupport: e.NeedsSupport}
}

type OtelConfig struct {
	Enabled     bool   `yaml:"enabled" envconfig:"ENABLED"`
	ServiceName string `yaml:"service_name" envconfig:"SERVICE_NAME"`
	Environment string `yaml:"environment" envconfig:"ENVIRONMENT"`
}

type MetricsConfig struct {
	Enabled        bool          `yaml:"enabled" envconfig:"ENABLED"`
	Addr           string        `yaml:"addr" envconfig:"ADDR"`
	ScrapeInterval time.Duration `yaml:"scrape_interval" envconfig:"SCRAPE_INTERVAL" validate:"gte=0"`
}

// Default is the configuration used when neither file nor environment says
// otherwise.
func Default() Config {
	return Config{
		Log:      LogConfig{Mode: "dev"},
		Database: DatabaseConfig{Driver: "postgres", Host: "localhost", Port: 5432, User: "postgres", Name: "edusight"},
		Redis:    RedisConfig{Channel: "epr:notifications"},
		Storage:  StorageConfig{Mode: "local", Dir: "data/uploads"},
		GCP:      GCPConfig{DocumentAILocation: "us"},
		Temporal: TemporalConfig{Namespace: "edusight", TaskQueue: "edusight-epr"},
		Ingestion: IngestionConfig{
			MaxBytes:               10 << 20,
			Timeout:                5 * time.Minute,
			LowConfidenceThreshold: 0.25,
		},
		Recompute: RecomputeConfig{
			AnalyticsTTL:           time.Hour,
			DebounceTTL:            time.Hour,
			AcademicYearStartMonth: int(time.April),
			Parallel:               8,
		},
		Jobs: JobsConfig{
			Enabled:          true,
			Concurrency:      4,
			MaxAttempts:      3,
			MaxExecutionTime: 10 * time.Minute,
			RetryDelay:       30 * time.Second,
			StaleRunning:     30 * time.Minute,
			PollInterval:     time.Second,
		},
		EPR: EPRConfig{
			WeightAcademic:      0.40,
			WeightPsychological: 0.30,
			WeightPhysical:      0.30,
			Thriving:            85,
			Healthy:             70,
			NeedsSupport:        50,
		},
		Otel:    OtelConfig{ServiceName: "edusight-epr", Environment: "dev"},
		Metrics: MetricsConfig{Addr: ":9090", ScrapeInterval: 10 * time.Second},
	}
}

// Load layers Default, the optional YAML file named by EPR_CONFIG_FILE and
// EPR_* environment variables, in that order, then validates the result. A
// .env file in the working directory is read first when present.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	cfg := Default()
	if path := strings.TrimSpace(os.Getenv(FileEnv)); path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return nil, err
		}
	}
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

var validate = validator.New()

// Validate checks struct constraints, then the EPR weights and band
// boundaries. Invalid boundaries are fatal at startup.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if err := c.EPR.Weights().Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if err := c.EPR.Boundaries().Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}
