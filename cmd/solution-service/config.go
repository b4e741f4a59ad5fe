package main

import (
	"fmt"
	"os"
	"time"

	"skillforge/internal/common/cache"
	"skillforge/internal/common/db"
	"skillforge/internal/common/mq"
	"skillforge/internal/common/storage"
	"skillforge/pkg/utils/logger"
	"skillforge/pkg/utils/yamlx"

	"gopkg.in/yaml.v3"
)

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr            string         `yaml:"addr"`
	Mode            string         `yaml:"mode"` // debug, release, test
	ReadTimeout     yamlx.Duration `yaml:"readTimeout"`
	WriteTimeout    yamlx.Duration `yaml:"writeTimeout"`
	ShutdownTimeout yamlx.Duration `yaml:"shutdownTimeout"`
}

// AuthConfig holds token validation settings.
type AuthConfig struct {
	JWTSecret string `yaml:"jwtSecret"`
	JWTIssuer string `yaml:"jwtIssuer"`
}

// EventsConfig holds lifecycle event publishing settings.
type EventsConfig struct {
	Enabled bool           `yaml:"enabled"`
	Topic   string         `yaml:"topic"`
	Kafka   mq.KafkaConfig `yaml:"kafka"`
}

// ArchiveConfig holds content snapshot settings.
type ArchiveConfig struct {
	Enabled bool                `yaml:"enabled"`
	MinIO   storage.MinIOConfig `yaml:"minio"`
}

// SubmitConfig holds submission rate limit settings.
type SubmitConfig struct {
	Limit  int            `yaml:"limit"`
	Window yamlx.Duration `yaml:"window"`
}

// AppConfig is the root configuration for the solution service.
type AppConfig struct {
	Server  ServerConfig      `yaml:"server"`
	Log     logger.Config     `yaml:"log"`
	MySQL   db.MySQLConfig    `yaml:"mysql"`
	Redis   cache.RedisConfig `yaml:"redis"`
	Auth    AuthConfig        `yaml:"auth"`
	Events  EventsConfig      `yaml:"events"`
	Archive ArchiveConfig     `yaml:"archive"`
	Submit  SubmitConfig      `yaml:"submit"`
}

// LoadConfig reads a YAML config file and applies defaults.
func LoadConfig(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := &AppConfig{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}
	applyDefaults(cfg)

	if cfg.MySQL.DSN == "" {
		return nil, fmt.Errorf("mysql.dsn is required")
	}
	if cfg.Auth.JWTSecret == "" {
		return nil, fmt.Errorf("auth.jwtSecret is required")
	}
	return cfg, nil
}

func applyDefaults(cfg *AppConfig) {
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8080"
	}
	if cfg.Server.Mode == "" {
		cfg.Server.Mode = "release"
	}
	if cfg.Server.ReadTimeout <= 0 {
		cfg.Server.ReadTimeout = yamlx.Duration(15 * time.Second)
	}
	if cfg.Server.WriteTimeout <= 0 {
		cfg.Server.WriteTimeout = yamlx.Duration(15 * time.Second)
	}
	if cfg.Server.ShutdownTimeout <= 0 {
		cfg.Server.ShutdownTimeout = yamlx.Duration(10 * time.Second)
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Redis.Addr == "" {
		cfg.Redis.Addr = "localhost:6379"
	}
	if cfg.Events.Topic == "" {
		cfg.Events.Topic = "skillforge.solution.events"
	}
	if cfg.Submit.Limit <= 0 {
		cfg.Submit.Limit = 10
	}
	if cfg.Submit.Window <= 0 {
		cfg.Submit.Window = yamlx.Duration(time.Minute)
	}
}
