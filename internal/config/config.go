package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Config defines server configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	DB         DBConfig         `yaml:"db"`
	Redis      RedisConfig      `yaml:"redis"`
	Attendance AttendanceConfig `yaml:"attendance"`
	Log        LogConfig        `yaml:"log"`
	MCP        MCPConfig        `yaml:"mcp"`
}

type ServerConfig struct {
	Host string `yaml:"host" env:"RCOS_SERVER_HOST"`
	Port int    `yaml:"port" env:"RCOS_SERVER_PORT"`
}

type DBConfig struct {
	Path string `yaml:"path" env:"RCOS_DB_PATH"`
}

// RedisConfig selects the room store. An empty Addr keeps rooms in process
// memory, which only works for a single server instance.
type RedisConfig struct {
	Addr      string `yaml:"addr" env:"RCOS_REDIS_ADDR"`
	Password  string `yaml:"password" env:"RCOS_REDIS_PASSWORD"`
	DB        int    `yaml:"db" env:"RCOS_REDIS_DB"`
	KeyPrefix string `yaml:"key_prefix" env:"RCOS_REDIS_KEY_PREFIX"`
}

type AttendanceConfig struct {
	DefaultTTL       time.Duration `yaml:"default_ttl" env:"RCOS_ATTENDANCE_DEFAULT_TTL"`
	MaxTTL           time.Duration `yaml:"max_ttl" env:"RCOS_ATTENDANCE_MAX_TTL"`
	VerificationRate float64       `yaml:"verification_rate" env:"RCOS_ATTENDANCE_VERIFICATION_RATE"`
}

type LogConfig struct {
	Level string `yaml:"level" env:"RCOS_LOG_LEVEL"`
	// Path sends logs to a rotated file instead of stdout.
	Path       string `yaml:"path" env:"RCOS_LOG_PATH"`
	MaxSizeMB  int    `yaml:"max_size_mb" env:"RCOS_LOG_MAX_SIZE_MB"`
	MaxBackups int    `yaml:"max_backups" env:"RCOS_LOG_MAX_BACKUPS"`
}

type MCPConfig struct {
	Enabled bool `yaml:"enabled" env:"RCOS_MCP_ENABLED"`
}

// Load reads configuration from an optional YAML file and environment variables.
func Load() (Config, error) {
	cfg := Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		DB: DBConfig{
			Path: "rcos.db",
		},
		Redis: RedisConfig{
			KeyPrefix: "rcos:",
		},
		Attendance: AttendanceConfig{
			DefaultTTL: 30 * time.Minute,
			MaxTTL:     6 * time.Hour,
		},
		Log: LogConfig{
			Level:      "info",
			MaxSizeMB:  5,
			MaxBackups: 3,
		},
		MCP: MCPConfig{
			Enabled: true,
		},
	}

	if path := os.Getenv("RCOS_CONFIG_PATH"); path != "" {
		if err := loadFromFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	if c.Attendance.VerificationRate < 0 || c.Attendance.VerificationRate > 1 {
		return fmt.Errorf("verification rate %v outside [0, 1]", c.Attendance.VerificationRate)
	}
	if c.Log.MaxSizeMB <= 0 || c.Log.MaxBackups < 0 {
		return fmt.Errorf("invalid log rotation: max size %dMB, %d backups", c.Log.MaxSizeMB, c.Log.MaxBackups)
	}
	if c.Attendance.DefaultTTL <= 0 || c.Attendance.MaxTTL < c.Attendance.DefaultTTL {
		return fmt.Errorf("invalid attendance ttl: default %s, max %s", c.Attendance.DefaultTTL, c.Attendance.MaxTTL)
	}
	return nil
}

func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}
