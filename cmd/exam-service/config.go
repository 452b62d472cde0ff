package main

import (
	"fmt"
	"os"
	"time"

	"examhall/internal/common/cache"
	"examhall/internal/common/mq"
	"examhall/internal/exam/service"
	"examhall/pkg/utils/logger"

	"gopkg.in/yaml.v3"
)

const (
	defaultHTTPAddr        = "0.0.0.0:8080"
	defaultReadTimeout     = 5 * time.Second
	defaultWriteTimeout    = 15 * time.Second
	defaultIdleTimeout     = 60 * time.Second
	defaultShutdownTimeout = 10 * time.Second
	defaultMaxHeaderBytes  = 1 << 20
)

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr           string        `yaml:"addr"`
	ReadTimeout    time.Duration `yaml:"readTimeout"`
	WriteTimeout   time.Duration `yaml:"writeTimeout"`
	IdleTimeout    time.Duration `yaml:"idleTimeout"`
	MaxHeaderBytes int           `yaml:"maxHeaderBytes"`
}

// ExamConfig holds exam lifecycle bounds and code allocation settings.
type ExamConfig struct {
	MinDurationMinutes int           `yaml:"minDurationMinutes"`
	MaxDurationMinutes int           `yaml:"maxDurationMinutes"`
	MinParticipants    int           `yaml:"minParticipants"`
	MaxParticipants    int           `yaml:"maxParticipants"`
	CodeReserveTTL     time.Duration `yaml:"codeReserveTTL"`
	CodeMaxRetries     int           `yaml:"codeMaxRetries"`
}

// ExecutorConfig holds code executor settings.
type ExecutorConfig struct {
	BaseURL      string        `yaml:"baseURL"`
	Timeout      time.Duration `yaml:"timeout"`
	MaxCodeBytes int           `yaml:"maxCodeBytes"`
}

// EventsConfig holds audit event publishing settings.
type EventsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Topic   string `yaml:"topic"`
}

// TelemetryConfig holds violation telemetry mirror settings.
type TelemetryConfig struct {
	Enabled bool          `yaml:"enabled"`
	TTL     time.Duration `yaml:"ttl"`
}

// CORSConfig holds CORS settings.
type CORSConfig struct {
	Enabled          bool          `yaml:"enabled"`
	AllowedOrigins   []string      `yaml:"allowedOrigins"`
	AllowedMethods   []string      `yaml:"allowedMethods"`
	AllowedHeaders   []string      `yaml:"allowedHeaders"`
	ExposedHeaders   []string      `yaml:"exposedHeaders"`
	AllowCredentials bool          `yaml:"allowCredentials"`
	MaxAge           time.Duration `yaml:"maxAge"`
}

// AppConfig holds the exam service configuration.
type AppConfig struct {
	Server    ServerConfig            `yaml:"server"`
	Logger    logger.Config           `yaml:"logger"`
	Exam      ExamConfig              `yaml:"exam"`
	Executor  ExecutorConfig          `yaml:"executor"`
	Integrity service.IntegrityConfig `yaml:"integrity"`
	Redis     cache.RedisConfig       `yaml:"redis"`
	Kafka     mq.KafkaConfig          `yaml:"kafka"`
	Events    EventsConfig            `yaml:"events"`
	Telemetry TelemetryConfig         `yaml:"telemetry"`
	CORS      CORSConfig              `yaml:"cors"`
}

func loadYAML(path string, out interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file failed: %w", err)
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("parse config file failed: %w", err)
	}
	return nil
}

func loadAppConfig(path string) (*AppConfig, error) {
	var cfg AppConfig
	if err := loadYAML(path, &cfg); err != nil {
		return nil, err
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = defaultHTTPAddr
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = defaultReadTimeout
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = defaultWriteTimeout
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = defaultIdleTimeout
	}
	if cfg.Server.MaxHeaderBytes == 0 {
		cfg.Server.MaxHeaderBytes = defaultMaxHeaderBytes
	}

	if cfg.Executor.BaseURL == "" {
		return nil, fmt.Errorf("executor.baseURL is required")
	}
	if cfg.Executor.Timeout == 0 {
		cfg.Executor.Timeout = 10 * time.Second
	}

	if cfg.Exam.CodeReserveTTL == 0 {
		cfg.Exam.CodeReserveTTL = 12 * time.Hour
	}
	if cfg.Exam.CodeMaxRetries == 0 {
		cfg.Exam.CodeMaxRetries = 10
	}

	if cfg.Telemetry.Enabled && cfg.Telemetry.TTL == 0 {
		cfg.Telemetry.TTL = 24 * time.Hour
	}

	if cfg.Redis.Addr != "" {
		applyRedisDefaults(&cfg.Redis)
	}

	if cfg.Events.Enabled {
		if cfg.Events.Topic == "" {
			return nil, fmt.Errorf("events.topic is required")
		}
		if len(cfg.Kafka.Brokers) == 0 {
			return nil, fmt.Errorf("kafka brokers are required when events are enabled")
		}
	}

	return &cfg, nil
}

func limitsFromConfig(cfg ExamConfig) service.Limits {
	limits := service.DefaultLimits()
	if cfg.MinDurationMinutes > 0 {
		limits.MinDurationMinutes = cfg.MinDurationMinutes
	}
	if cfg.MaxDurationMinutes > 0 {
		limits.MaxDurationMinutes = cfg.MaxDurationMinutes
	}
	if cfg.MinParticipants > 0 {
		limits.MinParticipants = cfg.MinParticipants
	}
	if cfg.MaxParticipants > 0 {
		limits.MaxParticipants = cfg.MaxParticipants
	}
	return limits
}

func applyRedisDefaults(cfg *cache.RedisConfig) {
	if cfg == nil {
		return
	}
	defaults := cache.DefaultRedisConfig()
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = defaults.MaxRetries
	}
	if cfg.DialTimeout == 0 {
		cfg.DialTimeout = defaults.DialTimeout
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = defaults.ReadTimeout
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = defaults.WriteTimeout
	}
	if cfg.PoolSize == 0 {
		cfg.PoolSize = defaults.PoolSize
	}
	if cfg.MinIdleConns == 0 {
		cfg.MinIdleConns = defaults.MinIdleConns
	}
	if cfg.PoolTimeout == 0 {
		cfg.PoolTimeout = defaults.PoolTimeout
	}
	if cfg.ConnMaxIdleTime == 0 {
		cfg.ConnMaxIdleTime = defaults.ConnMaxIdleTime
	}
	if cfg.ConnMaxLifetime == 0 {
		cfg.ConnMaxLifetime = defaults.ConnMaxLifetime
	}
}
