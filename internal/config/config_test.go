package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "postgres", cfg.StoreBackend)
	assert.Equal(t, 20, cfg.FeedDefaultPageSize)
	assert.Equal(t, 100, cfg.FeedMaxPageSize)
	assert.Equal(t, 2*time.Minute, cfg.FeedCacheTTL)
	assert.Equal(t, 3.0, cfg.Weights.Denomination)
	require.NoError(t, cfg.Validate())
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("STORE_BACKEND", "memory")
	t.Setenv("FEED_MAX_PAGE_SIZE", "50")
	t.Setenv("FEED_CACHE_TTL", "not-a-duration")
	t.Setenv("SCORE_WEIGHT_GOAL", "4.5")
	t.Setenv("SEED_DEMO", "true")

	cfg := Load()

	assert.Equal(t, "memory", cfg.StoreBackend)
	assert.Equal(t, 50, cfg.FeedMaxPageSize)
	assert.Equal(t, 2*time.Minute, cfg.FeedCacheTTL, "unparseable durations fall back to the default")
	assert.Equal(t, 4.5, cfg.Weights.Goal)
	assert.True(t, cfg.SeedDemo)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{
			name:    "unknown store backend",
			mutate:  func(c *Config) { c.StoreBackend = "mongo" },
			wantErr: "invalid store backend",
		},
		{
			name: "memory store in production",
			mutate: func(c *Config) {
				c.Environment = "production"
				c.JWTSecret = "s3cret"
				c.StoreBackend = "memory"
			},
			wantErr: "memory store",
		},
		{
			name:    "default secret in production",
			mutate:  func(c *Config) { c.Environment = "production" },
			wantErr: "JWT secret",
		},
		{
			name:    "redis cache without url",
			mutate:  func(c *Config) { c.FeedCacheBackend = "redis"; c.RedisURL = "" },
			wantErr: "REDIS_URL",
		},
		{
			name:    "default page size above max",
			mutate:  func(c *Config) { c.FeedDefaultPageSize = 200 },
			wantErr: "page sizes",
		},
		{
			name:    "negative weight",
			mutate:  func(c *Config) { c.Weights.City = -1 },
			wantErr: "weights",
		},
		{
			name:    "zero retries",
			mutate:  func(c *Config) { c.MatchMaxRetries = 0 },
			wantErr: "retries",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Load()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
