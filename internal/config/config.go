package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the service configuration
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Mongo   MongoConfig   `mapstructure:"mongo"`
	Redis   RedisConfig   `mapstructure:"redis"`
	Auth    AuthConfig    `mapstructure:"auth"`
	AI      AIConfig      `mapstructure:"ai"`
	Storage StorageConfig `mapstructure:"storage"`
	Log     LogConfig     `mapstructure:"log"`
}

type ServerConfig struct {
	Port           string   `mapstructure:"port"`
	Mode           string   `mapstructure:"mode"` // debug or release
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	// Response submissions allowed per IP per minute
	SubmitPerMinute int `mapstructure:"submit_per_minute"`
	// Proxy IPs or CIDR ranges whose forwarding headers are honoured
	TrustedProxies []string `mapstructure:"trusted_proxies"`
}

// MongoURIMemory selects the in-process repositories instead of MongoDB
const MongoURIMemory = "memory://"

type MongoConfig struct {
	URI      string `mapstructure:"uri"`
	Database string `mapstructure:"database"`
}

// InMemory reports whether the in-process repositories are selected.
func (c MongoConfig) InMemory() bool {
	return c.URI == MongoURIMemory
}

type RedisConfig struct {
	Addr         string        `mapstructure:"addr"` // empty disables caching
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	AnalyticsTTL time.Duration `mapstructure:"analytics_ttl"`
	GenerateTTL  time.Duration `mapstructure:"generate_ttl"`
}

type AuthConfig struct {
	OwnerUsername string        `mapstructure:"owner_username"`
	OwnerPassword string        `mapstructure:"owner_password"`
	JWTSecret     string        `mapstructure:"jwt_secret"`
	TokenTTL      time.Duration `mapstructure:"token_ttl"`
}

type StorageConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Bucket    string `mapstructure:"bucket"`
	Secure    bool   `mapstructure:"secure"`
}

type LogConfig struct {
	File       string `mapstructure:"file"` // empty logs to the console only
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("server.submit_per_minute", 30)
	v.SetDefault("server.trusted_proxies", []string{})

	v.SetDefault("mongo.uri", "mongodb://localhost:27017")
	v.SetDefault("mongo.database", "surveydb")

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.analytics_ttl", 5*time.Minute)
	v.SetDefault("redis.generate_ttl", time.Hour)

	v.SetDefault("auth.owner_username", "admin")
	v.SetDefault("auth.owner_password", "password123")
	v.SetDefault("auth.jwt_secret", "dev-secret-change-in-production")
	v.SetDefault("auth.token_ttl", 24*time.Hour)

	v.SetDefault("ai.primary_model", "gemini-2.5-flash")
	v.SetDefault("ai.fallback_model", "gemini-2.0-flash")
	v.SetDefault("ai.timeout_ms", 15000)

	v.SetDefault("storage.enabled", false)
	v.SetDefault("storage.bucket", "survey-audio")

	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size_mb", 100)
	v.SetDefault("log.max_backups", 5)
	v.SetDefault("log.max_age_days", 30)
}

// Load reads config.yaml from path when present, then applies SURVEY_*
// environment overrides and the well-known variables bound below.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.AddConfigPath(path)
	}
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.SetEnvPrefix("SURVEY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.BindEnv("server.port", "PORT")
	v.BindEnv("server.mode", "SERVER_MODE")
	v.BindEnv("server.trusted_proxies", "TRUSTED_PROXIES")
	v.BindEnv("mongo.uri", "MONGO_URI")
	v.BindEnv("mongo.database", "MONGO_DATABASE")
	v.BindEnv("redis.addr", "REDIS_URI")
	v.BindEnv("redis.password", "REDIS_PASSWORD")
	v.BindEnv("auth.owner_username", "OWNER_USERNAME")
	v.BindEnv("auth.owner_password", "OWNER_PASSWORD")
	v.BindEnv("auth.jwt_secret", "JWT_SECRET")
	v.BindEnv("ai.api_key", "GEMINI_API_KEY")
	v.BindEnv("storage.endpoint", "MINIO_ENDPOINT")
	v.BindEnv("storage.access_key", "MINIO_ACCESS_KEY")
	v.BindEnv("storage.secret_key", "MINIO_SECRET_KEY")
	v.BindEnv("storage.bucket", "MINIO_BUCKET")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	cfg.Redis.Addr = strings.TrimPrefix(cfg.Redis.Addr, "redis://")

	if cfg.Server.Mode == "release" && len(cfg.Auth.JWTSecret) < 32 {
		return nil, fmt.Errorf("jwt secret is too short (%d chars), must be at least 32 characters in release mode", len(cfg.Auth.JWTSecret))
	}
	return &cfg, nil
}
