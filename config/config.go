// Package config loads the engine and worker configuration from a YAML file
// and the environment.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/csams/jack/codec"
)

// Config is the root configuration.
type Config struct {
	Broker  BrokerConfig  `mapstructure:"broker" yaml:"broker"`
	Manager ManagerConfig `mapstructure:"manager" yaml:"manager"`
	Worker  WorkerConfig  `mapstructure:"worker" yaml:"worker"`
	// Codec names the envelope codec: json or cbor.
	Codec string    `mapstructure:"codec" yaml:"codec"`
	Log   LogConfig `mapstructure:"log" yaml:"log"`
}

// BrokerConfig selects and addresses the broker.
type BrokerConfig struct {
	// Backend: redis or memory. memory only connects goroutines of one
	// process.
	Backend  string `mapstructure:"backend" yaml:"backend"`
	Host     string `mapstructure:"host" yaml:"host"`
	Port     int    `mapstructure:"port" yaml:"port"`
	DB       int    `mapstructure:"db" yaml:"db"`
	Password string `mapstructure:"password" yaml:"password"`
	// Prefix namespaces the broker's Redis keys.
	Prefix string `mapstructure:"prefix" yaml:"prefix"`
}

// ManagerConfig sizes the dispatching side.
type ManagerConfig struct {
	PoolSize      int           `mapstructure:"pool_size" yaml:"pool_size"`
	PollInterval  time.Duration `mapstructure:"poll_interval" yaml:"poll_interval"`
	ResultTimeout time.Duration `mapstructure:"result_timeout" yaml:"result_timeout"`
}

// WorkerConfig sizes the executing side.
type WorkerConfig struct {
	Workers int      `mapstructure:"workers" yaml:"workers"`
	Queues  []string `mapstructure:"queues" yaml:"queues"`
	// Imports names the task sets a worker serves.
	Imports        []string      `mapstructure:"imports" yaml:"imports"`
	ReserveTimeout time.Duration `mapstructure:"reserve_timeout" yaml:"reserve_timeout"`
	Retries        int           `mapstructure:"retries" yaml:"retries"`
	RetryBackoff   time.Duration `mapstructure:"retry_backoff" yaml:"retry_backoff"`
}

// LogConfig defines logger settings.
type LogConfig struct {
	// Level: debug, info, warn, error
	Level string `mapstructure:"level" yaml:"level"`
	// Format: console or json
	Format string `mapstructure:"format" yaml:"format"`
	// Outputs: stdout, stderr, or file paths
	Outputs     []string       `mapstructure:"outputs" yaml:"outputs"`
	Rotation    RotationConfig `mapstructure:"rotation" yaml:"rotation"`
	Development bool           `mapstructure:"development" yaml:"development"`
}

// RotationConfig controls rotation of file outputs.
type RotationConfig struct {
	Enable     bool   `mapstructure:"enable" yaml:"enable"`
	Filename   string `mapstructure:"filename" yaml:"filename"`
	MaxSizeMB  int    `mapstructure:"max_size_mb" yaml:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days" yaml:"max_age_days"`
	Compress   bool   `mapstructure:"compress" yaml:"compress"`
}

func Default() *Config {
	return &Config{
		Broker: BrokerConfig{
			Backend: "redis",
			Host:    "localhost",
			Port:    6379,
			Prefix:  "jack",
		},
		Manager: ManagerConfig{
			PoolSize:     10,
			PollInterval: 2 * time.Second,
		},
		Worker: WorkerConfig{
			Workers:        1,
			Queues:         []string{"default"},
			Imports:        []string{"handlers"},
			ReserveTimeout: 2 * time.Second,
			Retries:        3,
			RetryBackoff:   2 * time.Second,
		},
		Codec: "json",
		Log: LogConfig{
			Level:   "info",
			Format:  "console",
			Outputs: []string{"stderr"},
			Rotation: RotationConfig{
				Filename:   "logs/jack.log",
				MaxSizeMB:  50,
				MaxBackups: 3,
				MaxAgeDays: 28,
				Compress:   true,
			},
		},
	}
}

// Load reads the configuration from path, or when path is empty from
// JACK_CONFIG or a jack.yaml in the usual places. A missing file in the
// search path is not an error. Environment variables override the file:
// JACK_BROKER_PORT=7000.
func Load(path string) (*Config, error) {
	cfg := Default()

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix("JACK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	setDefaults(v, cfg)

	if path == "" {
		path = os.Getenv("JACK_CONFIG")
	}
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("jack")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".jack"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// setDefaults seeds every key so env-only configurations work.
func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("broker.backend", cfg.Broker.Backend)
	v.SetDefault("broker.host", cfg.Broker.Host)
	v.SetDefault("broker.port", cfg.Broker.Port)
	v.SetDefault("broker.db", cfg.Broker.DB)
	v.SetDefault("broker.password", cfg.Broker.Password)
	v.SetDefault("broker.prefix", cfg.Broker.Prefix)
	v.SetDefault("manager.pool_size", cfg.Manager.PoolSize)
	v.SetDefault("manager.poll_interval", cfg.Manager.PollInterval)
	v.SetDefault("manager.result_timeout", cfg.Manager.ResultTimeout)
	v.SetDefault("worker.workers", cfg.Worker.Workers)
	v.SetDefault("worker.queues", cfg.Worker.Queues)
	v.SetDefault("worker.imports", cfg.Worker.Imports)
	v.SetDefault("worker.reserve_timeout", cfg.Worker.ReserveTimeout)
	v.SetDefault("worker.retries", cfg.Worker.Retries)
	v.SetDefault("worker.retry_backoff", cfg.Worker.RetryBackoff)
	v.SetDefault("codec", cfg.Codec)
	v.SetDefault("log.level", cfg.Log.Level)
	v.SetDefault("log.format", cfg.Log.Format)
	v.SetDefault("log.outputs", cfg.Log.Outputs)
	v.SetDefault("log.development", cfg.Log.Development)
	v.SetDefault("log.rotation.enable", cfg.Log.Rotation.Enable)
	v.SetDefault("log.rotation.filename", cfg.Log.Rotation.Filename)
	v.SetDefault("log.rotation.max_size_mb", cfg.Log.Rotation.MaxSizeMB)
	v.SetDefault("log.rotation.max_backups", cfg.Log.Rotation.MaxBackups)
	v.SetDefault("log.rotation.max_age_days", cfg.Log.Rotation.MaxAgeDays)
	v.SetDefault("log.rotation.compress", cfg.Log.Rotation.Compress)
}

func (c *Config) validate() error {
	c.Broker.Backend = strings.ToLower(strings.TrimSpace(c.Broker.Backend))
	switch c.Broker.Backend {
	case "redis", "memory":
	default:
		return fmt.Errorf("invalid broker.backend: %q", c.Broker.Backend)
	}
	if c.Broker.Port <= 0 || c.Broker.Port > 65535 {
		return fmt.Errorf("invalid broker.port: %d", c.Broker.Port)
	}
	if _, err := codec.Lookup(c.Codec); err != nil {
		return fmt.Errorf("invalid codec: %w", err)
	}
	switch strings.ToLower(strings.TrimSpace(c.Log.Level)) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("invalid log.level: %q", c.Log.Level)
	}
	if c.Log.Format == "" {
		c.Log.Format = "console"
	}
	if len(c.Log.Outputs) == 0 {
		c.Log.Outputs = []string{"stderr"}
	}
	if len(c.Worker.Queues) == 0 {
		c.Worker.Queues = []string{"default"}
	}
	return nil
}

// Write encodes c as YAML that Load reads back.
func (c *Config) Write(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return enc.Close()
}

// MustLoad is Load that panics on error.
func MustLoad(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		panic(err)
	}
	return cfg
}
