package common

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigFromViper_Defaults(t *testing.T) {
	v := viper.New()
	SetConfigDefaults(v)

	cfg, err := ConfigFromViper(v)
	require.NoError(t, err)
	assert.Equal(t, ":8081", cfg.HTTPAddr)
	assert.Equal(t, 24*time.Hour, cfg.CacheTTL)
	assert.Equal(t, ModeRandom, cfg.Generator.Mode)
	assert.False(t, cfg.Generator.HasSeed)
	assert.Equal(t, 1, cfg.Workers)
	assert.Equal(t, int64(32<<20), cfg.MaxUploadBytes)
}

func TestConfigFromViper_Overrides(t *testing.T) {
	v := viper.New()
	SetConfigDefaults(v)
	v.Set("token_seed", "99")
	v.Set("tokenize_workers", 0)
	v.Set("token_mode", "keyed")
	v.Set("cache_ttl_seconds", 60)

	cfg, err := ConfigFromViper(v)
	require.NoError(t, err)
	assert.True(t, cfg.Generator.HasSeed)
	assert.Equal(t, uint64(99), cfg.Generator.Seed)
	assert.Equal(t, 1, cfg.Workers)
	assert.Equal(t, "keyed", cfg.Generator.Mode)
	assert.Equal(t, time.Minute, cfg.CacheTTL)
}

func TestConfigFromViper_BadSeed(t *testing.T) {
	v := viper.New()
	SetConfigDefaults(v)
	v.Set("token_seed", "not-a-number")

	_, err := ConfigFromViper(v)
	assert.Error(t, err)
}

func TestLoadConfig_FromEnv(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":9999")
	t.Setenv("TOKEN_MODE", "keyed")
	t.Setenv("TOKEN_KEY_BASE64", "a2V5")
	t.Setenv("TOKENIZE_WORKERS", "4")
	t.Setenv("REGENERATE_COLLISIONS", "true")

	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, ":9999", cfg.HTTPAddr)
	assert.Equal(t, "keyed", cfg.Generator.Mode)
	assert.Equal(t, "a2V5", cfg.Generator.KeyBase64)
	assert.Equal(t, 4, cfg.Workers)
	assert.True(t, cfg.RegenerateCollisions)
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig("/nonexistent/dstokenize.yaml")
	assert.Error(t, err)
}
