package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

const (
	StoreMongo  = "mongo"
	StoreSQLite = "sqlite"

	CacheMemory = "memory"
	CacheRedis  = "redis"
)

type Config struct {
	LogLevel string        `yaml:"log_level"`
	HTTP     HTTPConfig    `yaml:"http"`
	Store    StoreConfig   `yaml:"store"`
	Discord  DiscordConfig `yaml:"discord"`
	Auth     AuthConfig    `yaml:"auth"`
	Cache    CacheConfig   `yaml:"cache"`
	Premium  PremiumConfig `yaml:"premium"`
	Audit    AuditConfig   `yaml:"audit"`
}

type HTTPConfig struct {
	Addr                string `yaml:"addr"`
	ReadTimeoutSeconds  int    `yaml:"read_timeout_seconds"`
	WriteTimeoutSeconds int    `yaml:"write_timeout_seconds"`
	Compress            bool   `yaml:"compress"`
	WriteLimit          int    `yaml:"write_limit_per_minute"`
}

type StoreConfig struct {
	Driver                string `yaml:"driver"`
	MongoURI              string `yaml:"mongo_uri"`
	MongoDatabase         string `yaml:"mongo_database"`
	SQLitePath            string `yaml:"sqlite_path"`
	ConnectTimeoutSeconds int    `yaml:"connect_timeout_seconds"`
}

type DiscordConfig struct {
	BotToken       string `yaml:"bot_token"`
	ClientID       string `yaml:"client_id"`
	ClientSecret   string `yaml:"client_secret"`
	RedirectURL    string `yaml:"redirect_url"`
	DashboardURL   string `yaml:"dashboard_url"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

type AuthConfig struct {
	StateSecret string `yaml:"state_secret"`
}

type CacheConfig struct {
	Driver        string `yaml:"driver"`
	TTLSeconds    int    `yaml:"ttl_seconds"`
	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
}

// PremiumConfig overrides the built-in premium catalogue when a list is set.
type PremiumConfig struct {
	Filters  []string `yaml:"filters"`
	Commands []string `yaml:"commands"`
}

// AuditConfig sets how long audit entries are kept. Zero keeps them forever.
type AuditConfig struct {
	RetentionDays int `yaml:"retention_days"`
}

func DefaultConfig() Config {
	return Config{
		LogLevel: "info",
		HTTP:     HTTPConfig{Addr: ":8080", ReadTimeoutSeconds: 15, WriteTimeoutSeconds: 30, Compress: true, WriteLimit: 60},
		Store: StoreConfig{
			Driver:                StoreSQLite,
			MongoDatabase:         "nexa",
			SQLitePath:            "/data/nexa.db",
			ConnectTimeoutSeconds: 30,
		},
		Discord: DiscordConfig{TimeoutSeconds: 10},
		Cache:   CacheConfig{Driver: CacheMemory, TTLSeconds: 300},
		Audit:   AuditConfig{RetentionDays: 14},
	}
}

func (c Config) ReadTimeout() time.Duration {
	return time.Duration(c.HTTP.ReadTimeoutSeconds) * time.Second
}

func (c Config) WriteTimeout() time.Duration {
	return time.Duration(c.HTTP.WriteTimeoutSeconds) * time.Second
}

func (c Config) ConnectTimeout() time.Duration {
	return time.Duration(c.Store.ConnectTimeoutSeconds) * time.Second
}

func (c Config) DiscordTimeout() time.Duration {
	return time.Duration(c.Discord.TimeoutSeconds) * time.Second
}

func (c Config) CacheTTL() time.Duration {
	return time.Duration(c.Cache.TTLSeconds) * time.Second
}

func (c Config) AuditRetention() time.Duration {
	return time.Duration(c.Audit.RetentionDays) * 24 * time.Hour
}

func Load() (Config, error) {
	cfg := DefaultConfig()

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "config.yaml"
	}
	if data, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, err
		}
	}

	applyEnv(&cfg)
	if err := cfg.normalize(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	cfg.LogLevel = envString("LOG_LEVEL", cfg.LogLevel)
	cfg.HTTP.Addr = envString("HTTP_ADDR", cfg.HTTP.Addr)
	cfg.HTTP.ReadTimeoutSeconds = envInt("HTTP_READ_TIMEOUT_SECONDS", cfg.HTTP.ReadTimeoutSeconds)
	cfg.HTTP.WriteTimeoutSeconds = envInt("HTTP_WRITE_TIMEOUT_SECONDS", cfg.HTTP.WriteTimeoutSeconds)
	cfg.HTTP.Compress = envBool("HTTP_COMPRESS", cfg.HTTP.Compress)
	cfg.HTTP.WriteLimit = envInt("HTTP_WRITE_LIMIT_PER_MINUTE", cfg.HTTP.WriteLimit)
	cfg.Store.Driver = envString("STORE_DRIVER", cfg.Store.Driver)
	cfg.Store.MongoURI = envString("MONGO_URI", cfg.Store.MongoURI)
	cfg.Store.MongoDatabase = envString("MONGO_DATABASE", cfg.Store.MongoDatabase)
	cfg.Store.SQLitePath = envString("SQLITE_PATH", cfg.Store.SQLitePath)
	cfg.Store.ConnectTimeoutSeconds = envInt("STORE_CONNECT_TIMEOUT_SECONDS", cfg.Store.ConnectTimeoutSeconds)
	cfg.Discord.BotToken = envString("DISCORD_TOKEN", cfg.Discord.BotToken)
	cfg.Discord.ClientID = envString("DISCORD_CLIENT_ID", cfg.Discord.ClientID)
	cfg.Discord.ClientSecret = envString("DISCORD_CLIENT_SECRET", cfg.Discord.ClientSecret)
	cfg.Discord.RedirectURL = envString("DISCORD_REDIRECT_URL", cfg.Discord.RedirectURL)
	cfg.Discord.DashboardURL = envString("DASHBOARD_URL", cfg.Discord.DashboardURL)
	cfg.Discord.TimeoutSeconds = envInt("DISCORD_TIMEOUT_SECONDS", cfg.Discord.TimeoutSeconds)
	cfg.Auth.StateSecret = envString("AUTH_STATE_SECRET", cfg.Auth.StateSecret)
	cfg.Cache.Driver = envString("CACHE_DRIVER", cfg.Cache.Driver)
	cfg.Cache.TTLSeconds = envInt("CACHE_TTL_SECONDS", cfg.Cache.TTLSeconds)
	cfg.Cache.RedisAddr = envString("REDIS_ADDR", cfg.Cache.RedisAddr)
	cfg.Cache.RedisPassword = envString("REDIS_PASSWORD", cfg.Cache.RedisPassword)
	cfg.Premium.Filters = envList("PREMIUM_FILTERS", cfg.Premium.Filters)
	cfg.Premium.Commands = envList("PREMIUM_COMMANDS", cfg.Premium.Commands)
	cfg.Audit.RetentionDays = envInt("AUDIT_RETENTION_DAYS", cfg.Audit.RetentionDays)
}

func (c *Config) normalize() error {
	c.LogLevel = strings.ToLower(c.LogLevel)
	c.Store.Driver = normalizeStoreDriver(c.Store.Driver)
	c.Cache.Driver = normalizeCacheDriver(c.Cache.Driver)

	if c.Store.Driver == StoreMongo && c.Store.MongoURI == "" {
		return errors.New("MONGO_URI is required when the store driver is mongo")
	}
	if c.Store.Driver == StoreSQLite && c.Store.SQLitePath == "" {
		return errors.New("SQLITE_PATH is required when the store driver is sqlite")
	}
	if c.Cache.Driver == CacheRedis && c.Cache.RedisAddr == "" {
		return errors.New("REDIS_ADDR is required when the cache driver is redis")
	}
	if c.Cache.TTLSeconds <= 0 {
		c.Cache.TTLSeconds = 300
	}
	if c.Store.ConnectTimeoutSeconds <= 0 {
		c.Store.ConnectTimeoutSeconds = 30
	}
	if c.Discord.TimeoutSeconds <= 0 {
		c.Discord.TimeoutSeconds = 10
	}
	if c.Auth.StateSecret == "" {
		c.Auth.StateSecret = c.Discord.ClientSecret
	}
	if c.Audit.RetentionDays < 0 {
		c.Audit.RetentionDays = 0
	}
	return nil
}

// OAuthEnabled reports whether dashboard login can be offered.
func (c Config) OAuthEnabled() bool {
	return c.Discord.ClientID != "" && c.Discord.ClientSecret != "" && c.Discord.RedirectURL != ""
}

func BuildLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "json"
	cfg.EncoderConfig.TimeKey = "time"
	cfg.EncoderConfig.MessageKey = "message"
	cfg.EncoderConfig.LevelKey = "level"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.Level = zap.NewAtomicLevelAt(parseLevel(strings.ToLower(level)))
	return cfg.Build()
}

func parseLevel(level string) zapcore.Level {
	switch level {
	case "debug":
		return zapcore.DebugLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

func envString(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		lower := strings.ToLower(value)
		return lower == "1" || lower == "true" || lower == "yes"
	}
	return fallback
}

// envList reads a comma separated list. Blank items are dropped.
func envList(key string, fallback []string) []string {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	out := []string{}
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func normalizeStoreDriver(value string) string {
	switch strings.ToLower(value) {
	case StoreMongo, "mongodb":
		return StoreMongo
	default:
		return StoreSQLite
	}
}

func normalizeCacheDriver(value string) string {
	switch strings.ToLower(value) {
	case CacheRedis:
		return CacheRedis
	default:
		return CacheMemory
	}
}
