package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/goliatone/go-config/cfgx"
	"github.com/goliatone/go-pubrouter/pkg/domain"
)

// Config captures module-level configuration knobs. Feature packages (router,
// links, storage, jobs) pull from these nested structs.
type Config struct {
	Router    RouterConfig    `mapstructure:"router" json:"router" yaml:"router"`
	Retrieval RetrievalConfig `mapstructure:"retrieval" json:"retrieval" yaml:"retrieval"`
	Storage   StorageConfig   `mapstructure:"storage" json:"storage" yaml:"storage"`
	Queue     QueueConfig     `mapstructure:"queue" json:"queue" yaml:"queue"`
	Logging   LoggingConfig   `mapstructure:"logging" json:"logging" yaml:"logging"`
}

// RouterConfig selects where incoming notifications go.
type RouterConfig struct {
	Adapter Adapter `mapstructure:"adapter" json:"adapter" yaml:"adapter" envconfig:"ADAPTER"`
	APIKey  string  `mapstructure:"api_key" json:"api_key" yaml:"api_key" envconfig:"API_KEY"`
}

// RetrievalConfig decides which content links are worth fetching.
type RetrievalConfig struct {
	PreferredPackagingFormat string `mapstructure:"preferred_packaging_format" json:"preferred_packaging_format" yaml:"preferred_packaging_format" envconfig:"PREFERRED_PACKAGING_FORMAT"`
	RetrieveUnpackaged       bool   `mapstructure:"retrieve_unpackaged" json:"retrieve_unpackaged" yaml:"retrieve_unpackaged" envconfig:"RETRIEVE_UNPACKAGED"`
}

// StorageConfig picks the persistence backend for the file adapter.
type StorageConfig struct {
	Driver           Driver `mapstructure:"driver" json:"driver" yaml:"driver" envconfig:"DRIVER"`
	NotificationsDir string `mapstructure:"notifications_dir" json:"notifications_dir" yaml:"notifications_dir" envconfig:"NOTIFICATIONS_DIR"`
	DSN              string `mapstructure:"dsn" json:"dsn" yaml:"dsn" envconfig:"DSN"`
}

// QueueConfig tunes the in-process job executor.
type QueueConfig struct {
	MaxWorkers int `mapstructure:"max_workers" json:"max_workers" yaml:"max_workers" envconfig:"MAX_WORKERS"`
	// MaxRetries is nil when unset; an explicit 0 disables retries.
	MaxRetries *int `mapstructure:"max_retries" json:"max_retries" yaml:"max_retries" envconfig:"MAX_RETRIES"`
	RatePerSec int `mapstructure:"rate_per_sec" json:"rate_per_sec" yaml:"rate_per_sec" envconfig:"RATE_PER_SEC"`
}

const defaultMaxRetries = 3

// Retries returns the configured retry count, or the default when unset.
func (q QueueConfig) Retries() int {
	if q.MaxRetries == nil {
		return defaultMaxRetries
	}
	return *q.MaxRetries
}

// WithRetries returns a copy of q with MaxRetries set to n.
func (q QueueConfig) WithRetries(n int) QueueConfig {
	q.MaxRetries = intPtr(n)
	return q
}

func intPtr(v int) *int { return &v }

// LoggingConfig controls the zerolog sink used by the CLI.
type LoggingConfig struct {
	Level   string `mapstructure:"level" json:"level" yaml:"level" envconfig:"LEVEL"`
	Console bool   `mapstructure:"console" json:"console" yaml:"console" envconfig:"CONSOLE"`
}

var (
	ErrUnknownAdapter = errors.New("config: unknown router adapter")
	ErrUnknownDriver  = errors.New("config: unknown storage driver")
)

// Defaults returns the baseline configuration.
func Defaults() Config {
	return Config{
		Router: RouterConfig{Adapter: AdapterFile},
		Retrieval: RetrievalConfig{
			PreferredPackagingFormat: domain.PackagingFilesAndJATS,
			RetrieveUnpackaged:       false,
		},
		Storage: StorageConfig{Driver: DriverFile},
		Queue: QueueConfig{
			MaxWorkers: 4,
			MaxRetries: intPtr(defaultMaxRetries),
		},
		Logging: LoggingConfig{Level: "info"},
	}
}

// Validate ensures required fields are present and sane.
func (c *Config) Validate() error {
	adapter, err := ParseAdapter(string(c.Router.Adapter))
	if err != nil {
		return err
	}
	c.Router.Adapter = adapter

	driver, err := ParseDriver(string(c.Storage.Driver))
	if err != nil {
		return err
	}
	c.Storage.Driver = driver

	if adapter == AdapterFile && driver == DriverFile && strings.TrimSpace(c.Storage.NotificationsDir) == "" {
		return errors.New("config: storage.notifications_dir is required for the file driver")
	}
	if driver == DriverSQLite && strings.TrimSpace(c.Storage.DSN) == "" {
		return errors.New("config: storage.dsn is required for the sqlite driver")
	}
	if strings.TrimSpace(c.Retrieval.PreferredPackagingFormat) == "" {
		return errors.New("config: retrieval.preferred_packaging_format is required")
	}
	if c.Queue.MaxRetries != nil && *c.Queue.MaxRetries < 0 {
		return fmt.Errorf("config: queue.max_retries must be >= 0")
	}
	if c.Queue.MaxWorkers <= 0 {
		return fmt.Errorf("config: queue.max_workers must be > 0")
	}
	if c.Queue.RatePerSec < 0 {
		return fmt.Errorf("config: queue.rate_per_sec must be >= 0")
	}
	return nil
}

// Load decodes arbitrary input (struct, map, cfg struct) using cfgx helpers.
// While cfgx.Build still returns zero values, we fallback to a lightweight
// decoder to keep smoke tests meaningful.
func Load(input any, opts ...LoadOption) (Config, error) {
	settings := loadOptions{}
	for _, opt := range opts {
		opt(&settings)
	}

	cfg, err := cfgx.Build(input, settings.buildOpts...)
	if err != nil {
		return Config{}, err
	}

	if isZero(cfg) {
		if err := decodeFallback(input, &cfg); err != nil {
			return Config{}, err
		}
	}

	cfg = cfg.withDefaults()
	if settings.env {
		if err := ApplyEnv(&cfg); err != nil {
			return Config{}, err
		}
	}
	for _, override := range settings.overrides {
		override(&cfg)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// LoadOption lets callers amend cfgx build options.
type LoadOption func(*loadOptions)

type loadOptions struct {
	buildOpts []cfgx.Option[Config]
	env       bool
	overrides []func(*Config)
}

// WithBuildOptions forwards cfgx options (duration hooks, preprocessors, etc.).
func WithBuildOptions(opts ...cfgx.Option[Config]) LoadOption {
	return func(lo *loadOptions) {
		lo.buildOpts = append(lo.buildOpts, opts...)
	}
}

// WithEnv overlays PUBROUTER_* environment variables before validation.
func WithEnv() LoadOption {
	return func(lo *loadOptions) {
		lo.env = true
	}
}

// WithOverride applies fn after defaults and env, before validation.
func WithOverride(fn func(*Config)) LoadOption {
	return func(lo *loadOptions) {
		if fn != nil {
			lo.overrides = append(lo.overrides, fn)
		}
	}
}

func (c Config) withDefaults() Config {
	defaults := Defaults()

	if c.Router.Adapter == "" {
		c.Router.Adapter = defaults.Router.Adapter
	}
	if c.Retrieval.PreferredPackagingFormat == "" {
		c.Retrieval.PreferredPackagingFormat = defaults.Retrieval.PreferredPackagingFormat
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = defaults.Storage.Driver
	}
	if c.Queue.MaxWorkers == 0 {
		c.Queue.MaxWorkers = defaults.Queue.MaxWorkers
	}
	if c.Queue.MaxRetries == nil {
		c.Queue.MaxRetries = defaults.Queue.MaxRetries
	}
	if c.Logging.Level == "" {
		c.Logging.Level = defaults.Logging.Level
	}
	return c
}

func isZero(cfg Config) bool {
	return reflect.DeepEqual(cfg, Config{})
}

func decodeFallback(input any, cfg *Config) error {
	switch v := input.(type) {
	case nil:
		return nil
	case Config:
		*cfg = v
		return nil
	case *Config:
		if v != nil {
			*cfg = *v
		}
		return nil
	case map[string]any:
		return decodeMap(v, cfg)
	default:
		return fmt.Errorf("config: unsupported input type: %T", input)
	}
}

func decodeMap(input map[string]any, cfg *Config) error {
	if input == nil {
		return nil
	}
	payload, err := json.Marshal(input)
	if err != nil {
		return err
	}
	return json.Unmarshal(payload, cfg)
}
