package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Signaled-failure policies for the batch runner.
const (
	SignaledOmit   = "omit"
	SignaledRecord = "record"
)

type Config struct {
	Environment string `yaml:"environment"`
	Server      struct {
		Port            int           `yaml:"port"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
		RateLimit       struct {
			Burst     float64 `yaml:"burst"`
			PerSecond float64 `yaml:"per_second"` // 0 disables
		} `yaml:"rate_limit"`
	} `yaml:"server"`
	Metrics struct {
		Enabled bool   `yaml:"enabled"`
		Path    string `yaml:"path"`
	} `yaml:"metrics"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
		Output string `yaml:"output"`
		Digest struct {
			Enabled       bool          `yaml:"enabled"`
			Topic         string        `yaml:"topic"`
			FlushInterval time.Duration `yaml:"flush_interval"`
			MaxEntries    int           `yaml:"max_entries"`
		} `yaml:"digest"`
	} `yaml:"log"`
	Estimation struct {
		EngineURL     string        `yaml:"engine_url"`
		Timeout       time.Duration `yaml:"timeout"`
		CallTimeout   time.Duration `yaml:"call_timeout"`
		ProbeTimeout  time.Duration `yaml:"probe_timeout"`
		RetryAttempts int           `yaml:"retry_attempts"`
		CacheTTL      time.Duration `yaml:"cache_ttl"`
		Model         ModelConfig   `yaml:"model"`
	} `yaml:"estimation"`
	Batch struct {
		Workers         int      `yaml:"workers"`
		SignaledFailure string   `yaml:"signaled_failure"`
		DefaultSymbols  []string `yaml:"default_symbols"`
		DefaultN        int      `yaml:"default_n"`
		DefaultTF       string   `yaml:"default_tf"`
	} `yaml:"batch"`
	Kafka struct {
		Enabled       bool     `yaml:"enabled"`
		Brokers       []string `yaml:"brokers"`
		ResultsTopic  string   `yaml:"results_topic"`
		RequestsTopic string   `yaml:"requests_topic"`
		RequiredAcks  int      `yaml:"required_acks"`
		Compression   string   `yaml:"compression"`
		Producer      struct {
			MaxAttempts  int           `yaml:"max_attempts"`
			Linger       time.Duration `yaml:"linger"`
			BatchBytes   int           `yaml:"batch_bytes"`
			BatchSize    int           `yaml:"batch_size"`
			WriteTimeout time.Duration `yaml:"write_timeout"`
			ReadTimeout  time.Duration `yaml:"read_timeout"`
		} `yaml:"producer"`
		Consumer struct {
			GroupID    string        `yaml:"group_id"`
			Workers    int           `yaml:"workers"`
			BufferSize int           `yaml:"buffer_size"`
			RetryMax   int           `yaml:"retry_max"`
			BackoffMin time.Duration `yaml:"backoff_min"`
			BackoffMax time.Duration `yaml:"backoff_max"`
			DLQTopic   string        `yaml:"dlq_topic"`
			MinBytes   int           `yaml:"min_bytes"`
			MaxBytes   int           `yaml:"max_bytes"`
		} `yaml:"consumer"`
	} `yaml:"kafka"`
	ClickHouse struct {
		Enabled          bool          `yaml:"enabled"`
		Host             string        `yaml:"host"`
		Port             int           `yaml:"port"`
		Database         string        `yaml:"database"`
		User             string        `yaml:"user"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		AsyncInsert      bool          `yaml:"async_insert"`
		WaitForAsync     bool          `yaml:"wait_for_async_insert"`
		DialTimeout      time.Duration `yaml:"dial_timeout"`
		ReadTimeout      time.Duration `yaml:"read_timeout"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time"`
	} `yaml:"clickhouse"`
	Redis struct {
		Enabled      bool   `yaml:"enabled"`
		Host         string `yaml:"host"`
		Port         int    `yaml:"port"`
		Password     string `yaml:"password"`
		DB           int    `yaml:"db"`
		Prefix       string `yaml:"prefix"`
		QueueWorkers int    `yaml:"queue_workers"`
	} `yaml:"redis"`
}

// ModelConfig is forwarded to the estimation engine verbatim.
type ModelConfig struct {
	Level           string `yaml:"level" json:"level"`
	FreqSeasonal    int    `yaml:"freq_seasonal" json:"freq_seasonal,omitempty"`
	CyclePeriod     int    `yaml:"cycle_period" json:"cycle_period,omitempty"`
	StochasticTrend bool   `yaml:"stochastic_trend" json:"stochastic_trend"`
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(b)
}

// Parse decodes YAML bytes, fills defaults and validates.
func Parse(b []byte) (*Config, error) {
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	c.applyDefaults()

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}
	if err := c.applyEnv(os.Getenv); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

func (c *Config) applyEnv(getenv func(string) string) error {
	if v := getenv("FINTREND_ENGINE_URL"); v != "" {
		c.Estimation.EngineURL = v
	}
	if v := getenv("FINTREND_SYMBOLS"); v != "" {
		c.Batch.DefaultSymbols = splitList(v)
	}
	if v := getenv("FINTREND_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("FINTREND_WORKERS: %w", err)
		}
		c.Batch.Workers = n
	}
	if v := getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = splitList(v)
	}
	if v := getenv("CLICKHOUSE_HOST"); v != "" {
		c.ClickHouse.Host = v
	}
	if v := getenv("REDIS_HOST"); v != "" {
		c.Redis.Host = v
	}
	return nil
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 10 * time.Second
	}
	if c.Server.RateLimit.PerSecond > 0 && c.Server.RateLimit.Burst == 0 {
		c.Server.RateLimit.Burst = 5
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = "/metrics"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}
	if c.Log.Output == "" {
		c.Log.Output = "stdout"
	}
	if c.Log.Digest.Topic == "" {
		c.Log.Digest.Topic = "fintrend.logs"
	}
	if c.Estimation.Timeout == 0 {
		c.Estimation.Timeout = 30 * time.Second
	}
	if c.Estimation.ProbeTimeout == 0 {
		c.Estimation.ProbeTimeout = 3 * time.Second
	}
	if c.Estimation.Model.Level == "" {
		c.Estimation.Model.Level = "local linear trend"
	}
	if c.Batch.Workers == 0 {
		c.Batch.Workers = 1
	}
	if c.Batch.SignaledFailure == "" {
		c.Batch.SignaledFailure = SignaledOmit
	}
	if c.Batch.DefaultN == 0 {
		c.Batch.DefaultN = 600
	}
	if c.Batch.DefaultTF == "" {
		c.Batch.DefaultTF = "1m"
	}
	if c.Kafka.ResultsTopic == "" {
		c.Kafka.ResultsTopic = "fintrend.decompositions"
	}
	if c.Kafka.RequestsTopic == "" {
		c.Kafka.RequestsTopic = "fintrend.requests"
	}
	if c.Kafka.Consumer.GroupID == "" {
		c.Kafka.Consumer.GroupID = "fintrend"
	}
	if c.Redis.Port == 0 {
		c.Redis.Port = 6379
	}
	if c.Redis.Prefix == "" {
		c.Redis.Prefix = "fintrend:"
	}
	if c.Redis.QueueWorkers == 0 {
		c.Redis.QueueWorkers = 2
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if c.Estimation.EngineURL == "" {
		return fmt.Errorf("estimation.engine_url is required")
	}
	if c.Estimation.RetryAttempts < 0 {
		return fmt.Errorf("estimation.retry_attempts must be >= 0")
	}
	if c.Batch.Workers < 1 {
		return fmt.Errorf("batch.workers must be >= 1, got %d", c.Batch.Workers)
	}
	if c.Batch.SignaledFailure != SignaledOmit && c.Batch.SignaledFailure != SignaledRecord {
		return fmt.Errorf("batch.signaled_failure must be '%s' or '%s', got '%s'",
			SignaledOmit, SignaledRecord, c.Batch.SignaledFailure)
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty when kafka is enabled")
	}
	if c.ClickHouse.Enabled && c.ClickHouse.Host == "" {
		return fmt.Errorf("clickhouse.host is required when clickhouse is enabled")
	}
	return nil
}
