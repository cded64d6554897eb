package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port           int   `yaml:"port"`
		MaxUploadBytes int64 `yaml:"maxUploadBytes"`
		// RateLimit is the burst of scans per client IP; RatePerSecond refills it.
		RateLimit     int      `yaml:"rateLimit"`
		RatePerSecond int      `yaml:"ratePerSecond"`
		CORSOrigins   []string `yaml:"corsOrigins"`
		// APIKeys guards /api/v1 when non-empty, keyed by client name.
		APIKeys map[string]string `yaml:"apiKeys"`
	} `yaml:"server"`

	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`

	AI struct {
		Provider     string        `yaml:"provider"` // gemini | openai | fake
		APIKey       string        `yaml:"apiKey"`
		Model        string        `yaml:"model"`
		BaseURL      string        `yaml:"baseURL"`
		LenientParse bool          `yaml:"lenientParse"`
		Timeout      time.Duration `yaml:"timeout"`
	} `yaml:"ai"`

	Database struct {
		Driver   string `yaml:"driver"` // "", mysql or postgres
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		User     string `yaml:"user"`
		Password string `yaml:"password"`
		Name     string `yaml:"name"`
		SSLMode  string `yaml:"sslMode"`
	} `yaml:"database"`

	Minio struct {
		Enabled    bool   `yaml:"enabled"`
		Endpoint   string `yaml:"endpoint"`
		AccessKey  string `yaml:"accessKey"`
		SecretKey  string `yaml:"secretKey"`
		BucketName string `yaml:"bucketName"`
		Region     string `yaml:"region"`
		UseSSL     bool   `yaml:"useSSL"`
	} `yaml:"minio"`

	Redis struct {
		Enabled  bool          `yaml:"enabled"`
		Addr     string        `yaml:"addr"`
		Password string        `yaml:"password"`
		DB       int           `yaml:"db"`
		TTL      time.Duration `yaml:"ttl"`
	} `yaml:"redis"`

	Session struct {
		TTL time.Duration `yaml:"ttl"`
	} `yaml:"session"`
}

// Load reads .env (if present), the yaml file at path, then applies
// environment overrides and defaults. A missing yaml file is not an error;
// everything can come from the environment.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	var cfg Config
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, err
	}

	cfg.applyEnv()
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("API_KEY"); v != "" {
		c.AI.APIKey = v
	}
	switch strings.ToLower(c.AI.Provider) {
	case "openai":
		if v := os.Getenv("OPENAI_API_KEY"); v != "" {
			c.AI.APIKey = v
		}
	case "", "gemini":
		if v := os.Getenv("GEMINI_API_KEY"); v != "" {
			c.AI.APIKey = v
		}
	}
	if v := os.Getenv("DB_PASSWORD"); v != "" {
		c.Database.Password = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		c.Redis.Password = v
	}
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.MaxUploadBytes == 0 {
		c.Server.MaxUploadBytes = 5 << 20
	}
	if c.Server.RateLimit == 0 {
		c.Server.RateLimit = 10
	}
	if c.Server.RatePerSecond == 0 {
		c.Server.RatePerSecond = 1
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	c.AI.Provider = strings.ToLower(c.AI.Provider)
	if c.AI.Provider == "" {
		c.AI.Provider = "gemini"
	}
	if c.AI.Timeout == 0 {
		c.AI.Timeout = 60 * time.Second
	}
	if c.Database.SSLMode == "" {
		c.Database.SSLMode = "disable"
	}
	if c.Redis.TTL == 0 {
		c.Redis.TTL = 24 * time.Hour
	}
	if c.Session.TTL == 0 {
		c.Session.TTL = 30 * time.Minute
	}
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch c.AI.Provider {
	case "gemini", "openai", "fake":
	default:
		return fmt.Errorf("ai.provider %q: want gemini, openai or fake", c.AI.Provider)
	}
	if c.AI.Provider == "openai" && c.AI.APIKey == "" {
		return errors.New("ai.apiKey is required for the openai provider")
	}
	switch c.Database.Driver {
	case "":
	case "mysql", "postgres":
		if c.Database.Host == "" || c.Database.Name == "" {
			return fmt.Errorf("database.host and database.name are required for %s", c.Database.Driver)
		}
	default:
		return fmt.Errorf("database.driver %q: want mysql or postgres", c.Database.Driver)
	}
	if c.Minio.Enabled && (c.Minio.Endpoint == "" || c.Minio.BucketName == "") {
		return errors.New("minio.endpoint and minio.bucketName are required when minio is enabled")
	}
	if c.Redis.Enabled && c.Redis.Addr == "" {
		return errors.New("redis.addr is required when redis is enabled")
	}
	if c.Server.MaxUploadBytes < 0 {
		return errors.New("server.maxUploadBytes must be positive")
	}
	return nil
}

// MySQLDSN builds the go-sql-driver DSN.
func (c *Config) MySQLDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&charset=utf8mb4&loc=UTC",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.portOr(3306),
		c.Database.Name,
	)
}

// PostgresDSN builds a lib/pq key/value DSN.
func (c *Config) PostgresDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host,
		c.portOr(5432),
		c.Database.User,
		c.Database.Password,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

func (c *Config) portOr(def int) int {
	if c.Database.Port == 0 {
		return def
	}
	return c.Database.Port
}
