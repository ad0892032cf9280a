package app

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/elvin-stowell/csds-312-final-project/internal/model"
)

// Config holds application configuration from an optional YAML file and env.
type Config struct {
	DataProvider string `yaml:"data_provider" validate:"oneof=polygon"`
	APIKey       string `yaml:"api_key" validate:"required"`
	BaseURL      string `yaml:"base_url" validate:"required,url"`

	// Universe
	TickersFile string `yaml:"tickers_file"`
	SliceStart  int    `yaml:"slice_start" validate:"gte=0"`
	SliceEnd    int    `yaml:"slice_end" validate:"gte=0"` // 0 = through the end

	// Batching
	BatchSize     int  `yaml:"batch_size" validate:"gte=1,lte=10000"`
	StartBatchID  int  `yaml:"start_batch_id" validate:"gte=1"`
	SkipCompleted bool `yaml:"skip_completed"`

	// Price history range, inclusive
	StartDate string `yaml:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate   string `yaml:"end_date" validate:"required,datetime=2006-01-02"`

	MarketCapThreshold float64 `yaml:"market_cap_threshold" validate:"gte=0"`
	FinancialsLimit    int     `yaml:"financials_limit" validate:"gte=1,lte=100"`

	// Pacing and retries
	SymbolPause       time.Duration `yaml:"symbol_pause" validate:"gte=0"`
	BatchPause        time.Duration `yaml:"batch_pause" validate:"gte=0"`
	RequestsPerMinute int           `yaml:"requests_per_minute" validate:"gte=0"`
	MaxRetries        int           `yaml:"max_retries" validate:"gte=0,lte=20"`
	RetryBaseDelay    time.Duration `yaml:"retry_base_delay" validate:"gt=0"`
	RetryMaxDelay     time.Duration `yaml:"retry_max_delay" validate:"gtefield=RetryBaseDelay"`
	RequestTimeout    time.Duration `yaml:"request_timeout" validate:"gt=0"`

	// Output
	DataDir        string `yaml:"data_dir" validate:"required"`
	SaveFormat     string `yaml:"save_format" validate:"oneof=csv parquet json"`
	ManifestPath   string `yaml:"manifest_path"`
	ArtifactSource string `yaml:"artifact_source" validate:"oneof=dir manifest"`

	// Consolidation range; ConsolidateTo 0 = through the last known batch
	ConsolidateFrom int `yaml:"consolidate_from" validate:"gte=1"`
	ConsolidateTo   int `yaml:"consolidate_to" validate:"gte=0"`

	// Market cap cache
	CacheBackend string        `yaml:"cache_backend" validate:"oneof=memory redis none"`
	CacheTTL     time.Duration `yaml:"cache_ttl" validate:"gte=0"`
	RedisAddr    string        `yaml:"redis_addr" validate:"required_if=CacheBackend redis"`
	RedisDB      int           `yaml:"redis_db" validate:"gte=0"`

	// Schedule is a cron expression; empty runs once and exits.
	Schedule string `yaml:"schedule"`

	LogLevel  string `yaml:"log_level" validate:"oneof=debug info warn warning error"`
	LogFormat string `yaml:"log_format" validate:"oneof=text json"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		DataProvider:       "polygon",
		BaseURL:            "https://api.polygon.io",
		BatchSize:          100,
		StartBatchID:       1,
		StartDate:          "2020-03-02",
		EndDate:            "2025-02-28",
		MarketCapThreshold: 500_000_000,
		FinancialsLimit:    100,
		SymbolPause:        time.Second,
		BatchPause:         5 * time.Second,
		MaxRetries:         3,
		RetryBaseDelay:     time.Second,
		RetryMaxDelay:      time.Minute,
		RequestTimeout:     2 * time.Minute,
		DataDir:            "data",
		SaveFormat:         getSaveFormat(),
		ArtifactSource:     "manifest",
		ConsolidateFrom:    1,
		CacheBackend:       "memory",
		CacheTTL:           6 * time.Hour,
		RedisAddr:          "localhost:6379",
		LogLevel:           "info",
		LogFormat:          "text",
	}
}

// LoadConfig reads defaults, then the YAML file at path (skipped when path
// is empty), then environment overrides, and validates the result.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if cfg.ManifestPath == "" {
		cfg.ManifestPath = filepath.Join(cfg.DataDir, "manifest.db")
	}
	cfg.SaveFormat = strings.ToLower(strings.TrimSpace(cfg.SaveFormat))
	cfg.LogLevel = strings.ToLower(strings.TrimSpace(cfg.LogLevel))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	c.DataProvider = getEnv("DATA_PROVIDER", c.DataProvider)
	c.APIKey = getEnv("POLYGON_API_KEY", c.APIKey)
	c.BaseURL = getEnv("POLYGON_BASE_URL", c.BaseURL)
	c.TickersFile = getEnv("TICKERS_FILE", c.TickersFile)
	c.StartDate = getEnv("START_DATE", c.StartDate)
	c.EndDate = getEnv("END_DATE", c.EndDate)
	c.DataDir = getEnv("DATA_DIR", c.DataDir)
	c.SaveFormat = getEnv("SAVE_FORMAT", c.SaveFormat)
	c.ManifestPath = getEnv("MANIFEST_PATH", c.ManifestPath)
	c.ArtifactSource = getEnv("ARTIFACT_SOURCE", c.ArtifactSource)
	c.CacheBackend = getEnv("CACHE_BACKEND", c.CacheBackend)
	c.RedisAddr = getEnv("REDIS_ADDR", c.RedisAddr)
	c.Schedule = getEnv("SCHEDULE", c.Schedule)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.LogFormat = getEnv("LOG_FORMAT", c.LogFormat)

	var errs []error
	ints := []struct {
		key string
		dst *int
	}{
		{"SLICE_START", &c.SliceStart},
		{"SLICE_END", &c.SliceEnd},
		{"BATCH_SIZE", &c.BatchSize},
		{"START_BATCH_ID", &c.StartBatchID},
		{"FINANCIALS_LIMIT", &c.FinancialsLimit},
		{"REQUESTS_PER_MINUTE", &c.RequestsPerMinute},
		{"MAX_RETRIES", &c.MaxRetries},
		{"CONSOLIDATE_FROM", &c.ConsolidateFrom},
		{"CONSOLIDATE_TO", &c.ConsolidateTo},
		{"REDIS_DB", &c.RedisDB},
	}
	for _, e := range ints {
		errs = append(errs, getEnvInt(e.key, e.dst))
	}
	durations := []struct {
		key string
		dst *time.Duration
	}{
		{"SYMBOL_PAUSE", &c.SymbolPause},
		{"BATCH_PAUSE", &c.BatchPause},
		{"RETRY_BASE_DELAY", &c.RetryBaseDelay},
		{"RETRY_MAX_DELAY", &c.RetryMaxDelay},
		{"REQUEST_TIMEOUT", &c.RequestTimeout},
		{"CACHE_TTL", &c.CacheTTL},
	}
	for _, e := range durations {
		errs = append(errs, getEnvDuration(e.key, e.dst))
	}
	if v := os.Getenv("MARKET_CAP_THRESHOLD"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("MARKET_CAP_THRESHOLD: %w", err))
		} else {
			c.MarketCapThreshold = f
		}
	}
	if v := os.Getenv("SKIP_COMPLETED"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("SKIP_COMPLETED: %w", err))
		} else {
			c.SkipCompleted = b
		}
	}
	return errors.Join(errs...)
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks field constraints and the cross-field rules tags cannot express.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s: failed %q", fe.Field(), fe.Tag()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	from, to, err := c.DateRange()
	if err != nil {
		return err
	}
	if to.Before(from) {
		return fmt.Errorf("invalid config: end_date %s before start_date %s", c.EndDate, c.StartDate)
	}
	if c.SliceEnd != 0 && c.SliceEnd <= c.SliceStart {
		return fmt.Errorf("invalid config: slice_end %d must exceed slice_start %d", c.SliceEnd, c.SliceStart)
	}
	if c.ConsolidateTo != 0 && c.ConsolidateTo < c.ConsolidateFrom {
		return fmt.Errorf("invalid config: consolidate_to %d before consolidate_from %d", c.ConsolidateTo, c.ConsolidateFrom)
	}
	return nil
}

// DateRange parses the inclusive price history range.
func (c *Config) DateRange() (from, to time.Time, err error) {
	from, err = time.Parse(model.DateLayout, c.StartDate)
	if err != nil {
		return from, to, fmt.Errorf("start_date: %w", err)
	}
	to, err = time.Parse(model.DateLayout, c.EndDate)
	if err != nil {
		return from, to, fmt.Errorf("end_date: %w", err)
	}
	return from, to, nil
}

// SliceUniverse applies [SliceStart, SliceEnd) to the listed symbols,
// clamped to the list.
func (c *Config) SliceUniverse(symbols []string) []string {
	start := min(c.SliceStart, len(symbols))
	end := len(symbols)
	if c.SliceEnd > 0 {
		end = min(c.SliceEnd, len(symbols))
	}
	return symbols[start:end]
}

// SaveBaseDir returns the directory batch artifacts and merged tables go to.
func (c *Config) SaveBaseDir() string {
	return c.DataDir
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, dst *int) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = n
	return nil
}

func getEnvDuration(key string, dst *time.Duration) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = d
	return nil
}

func getSaveFormat() string {
	switch os.Getenv("PROFILE") {
	case "prod", "production":
		return "parquet"
	default:
		return "csv"
	}
}
