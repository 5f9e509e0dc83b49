package common

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the runtime configuration of the server.
type Config struct {
	HTTPAddr       string
	DatabaseURL    string
	APIKey         string
	MigrationsPath string
	LogLevel       string

	RedisAddr         string
	RedisPass         string
	CacheTTL          time.Duration
	RedisDialTimeout  time.Duration
	RedisRWTimeout    time.Duration
	CachePreloadLimit int

	Generator            GeneratorConfig
	Workers              int
	RegenerateCollisions bool
	MaxUploadBytes       int64
}

// SetConfigDefaults registers the default value of every known key on v.
func SetConfigDefaults(v *viper.Viper) {
	v.SetDefault("http_addr", ":8081")
	v.SetDefault("migrations_path", "migrations/001_create_datasets.sql")
	v.SetDefault("log_level", "info")
	v.SetDefault("cache_ttl_seconds", 24*60*60)
	v.SetDefault("redis_dial_timeout_sec", 5)
	v.SetDefault("redis_rw_timeout_sec", 5)
	v.SetDefault("cache_preload_limit", 100)
	v.SetDefault("token_mode", ModeRandom)
	v.SetDefault("tokenize_workers", 1)
	v.SetDefault("regenerate_collisions", false)
	v.SetDefault("max_upload_bytes", 32<<20)
}

// LoadConfig reads configuration from the environment (and .env through the
// package init) plus an optional config file.
func LoadConfig(configFile string) (*Config, error) {
	v := viper.New()
	SetConfigDefaults(v)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", configFile, err)
		}
	}
	return ConfigFromViper(v)
}

func ConfigFromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		HTTPAddr:          v.GetString("http_addr"),
		DatabaseURL:       strings.TrimSpace(v.GetString("database_url")),
		APIKey:            v.GetString("api_key"),
		MigrationsPath:    v.GetString("migrations_path"),
		LogLevel:          v.GetString("log_level"),
		RedisAddr:         strings.TrimSpace(v.GetString("redis_addr")),
		RedisPass:         strings.TrimSpace(v.GetString("redis_pass")),
		CacheTTL:          time.Duration(v.GetInt("cache_ttl_seconds")) * time.Second,
		RedisDialTimeout:  time.Duration(v.GetInt("redis_dial_timeout_sec")) * time.Second,
		RedisRWTimeout:    time.Duration(v.GetInt("redis_rw_timeout_sec")) * time.Second,
		CachePreloadLimit: v.GetInt("cache_preload_limit"),
		Generator: GeneratorConfig{
			Mode:      v.GetString("token_mode"),
			KeyBase64: v.GetString("token_key_base64"),
		},
		Workers:              v.GetInt("tokenize_workers"),
		RegenerateCollisions: v.GetBool("regenerate_collisions"),
		MaxUploadBytes:       v.GetInt64("max_upload_bytes"),
	}
	if s := strings.TrimSpace(v.GetString("token_seed")); s != "" {
		seed, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid TOKEN_SEED %q: %w", s, err)
		}
		cfg.Generator.Seed, cfg.Generator.HasSeed = seed, true
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 24 * time.Hour
	}
	return cfg, nil
}
