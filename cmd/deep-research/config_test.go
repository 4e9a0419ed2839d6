// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/deep-research/internal/secrets"
	"github.com/pdiddy/deep-research/pkg/types"
)

func newTestViper(t *testing.T) *viper.Viper {
	t.Helper()
	for _, env := range []string{"API_KEY", "DEFAULT_MODEL", "GOOGLE_API_KEY", "GOOGLE_CSE_ID", "GEMINI_API_KEY"} {
		t.Setenv(env, "")
	}
	v := viper.New()
	configureEnv(v)
	return v
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := loadConfig(newTestViper(t), nil)
	require.NoError(t, err)

	assert.Equal(t, "gemini-2.5-flash", cfg.LLM.Model)
	assert.Equal(t, 2*time.Minute, cfg.LLM.Timeout)
	assert.Equal(t, 15*time.Second, cfg.Search.Timeout)
	assert.Equal(t, 5, cfg.Search.MaxResults)
	assert.Equal(t, userAgent, cfg.Scrape.UserAgent)
	assert.Equal(t, int64(25<<20), cfg.Scrape.MaxBodyBytes)
	assert.Equal(t, types.TranscriberModel, cfg.Scrape.Transcriber)
	assert.Equal(t, 8, cfg.Research.MaxToolIterations)
	assert.Equal(t, 1, cfg.Research.Concurrency)
	assert.Equal(t, "data/deep-research.db", cfg.Storage.DBPath)
	assert.Equal(t, "deep-research", cfg.Storage.Minio.Bucket)
	assert.Empty(t, cfg.Redis.Addr)
	assert.Empty(t, cfg.LLM.APIKey)
}

func TestLoadConfig_BareEnvironment(t *testing.T) {
	v := newTestViper(t)
	t.Setenv("API_KEY", "gemini-from-env")
	t.Setenv("DEFAULT_MODEL", "gemini-2.5-pro")
	t.Setenv("GOOGLE_API_KEY", "google-from-env")
	t.Setenv("GOOGLE_CSE_ID", "cse-from-env")

	cfg, err := loadConfig(v, nil)
	require.NoError(t, err)

	assert.Equal(t, "gemini-from-env", cfg.LLM.APIKey)
	assert.Equal(t, "gemini-2.5-pro", cfg.LLM.Model)
	assert.Equal(t, "google-from-env", cfg.Search.APIKey)
	assert.Equal(t, "cse-from-env", cfg.Search.EngineID)
}

func TestLoadConfig_PrefixedEnvironment(t *testing.T) {
	v := newTestViper(t)
	t.Setenv("DEEP_RESEARCH_REDIS_ADDR", "localhost:6380")
	t.Setenv("DEEP_RESEARCH_RESEARCH_CONCURRENCY", "4")
	t.Setenv("DEEP_RESEARCH_SCRAPE_TIMEOUT", "45s")

	cfg, err := loadConfig(v, nil)
	require.NoError(t, err)

	assert.Equal(t, "localhost:6380", cfg.Redis.Addr)
	assert.Equal(t, 4, cfg.Research.Concurrency)
	assert.Equal(t, 45*time.Second, cfg.Scrape.Timeout)
}

func TestLoadConfig_ConfigFile(t *testing.T) {
	v := newTestViper(t)
	path := filepath.Join(t.TempDir(), "deep-research.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
llm:
  model: gemini-2.0-flash
research:
  max_tool_iterations: 3
  output_dir: output
storage:
  minio:
    endpoint: localhost:9000
`), 0o644))
	v.SetConfigFile(path)
	require.NoError(t, v.ReadInConfig())

	cfg, err := loadConfig(v, nil)
	require.NoError(t, err)

	assert.Equal(t, "gemini-2.0-flash", cfg.LLM.Model)
	assert.Equal(t, 3, cfg.Research.MaxToolIterations)
	assert.Equal(t, "output", cfg.Research.OutputDir)
	assert.Equal(t, "localhost:9000", cfg.Storage.Minio.Endpoint)
	assert.Equal(t, "deep-research", cfg.Storage.Minio.Bucket)
}

func TestLoadConfig_SecretsFillMissingCredentials(t *testing.T) {
	v := newTestViper(t)
	t.Setenv("GOOGLE_API_KEY", "google-from-env")

	set := secrets.Set{
		secrets.GeminiAPIKey:   "gemini-secret",
		secrets.GoogleAPIKey:   "google-secret",
		secrets.GoogleCSEID:    "cse-secret",
		secrets.RedisPassword:  "redis-secret",
		secrets.MinioAccessKey: "minio-access",
		secrets.MinioSecretKey: "minio-secret",
	}
	cfg, err := loadConfig(v, set)
	require.NoError(t, err)

	assert.Equal(t, "gemini-secret", cfg.LLM.APIKey)
	assert.Equal(t, "google-from-env", cfg.Search.APIKey, "environment wins over secrets")
	assert.Equal(t, "cse-secret", cfg.Search.EngineID)
	assert.Equal(t, "redis-secret", cfg.Redis.Password)
	assert.Equal(t, "minio-access", cfg.Storage.Minio.AccessKey)
	assert.Equal(t, "minio-secret", cfg.Storage.Minio.SecretKey)
}

func TestLoadConfig_GeminiEnvFallback(t *testing.T) {
	v := newTestViper(t)
	t.Setenv("GEMINI_API_KEY", "gemini-env")

	cfg, err := loadConfig(v, secrets.Set{secrets.GeminiAPIKey: "gemini-secret"})
	require.NoError(t, err)
	assert.Equal(t, "gemini-env", cfg.LLM.APIKey)
}
