// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/pdiddy/deep-research/internal/secrets"
	"github.com/pdiddy/deep-research/pkg/types"
)

const userAgent = "deep-research/1.0 (+https://github.com/pdiddy/deep-research)"

// configureEnv maps DEEP_RESEARCH_<SECTION>_<KEY> variables onto v and
// registers defaults.
func configureEnv(v *viper.Viper) {
	v.SetEnvPrefix("DEEP_RESEARCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)
}

// setDefaults registers every configuration key so environment variables
// can override keys absent from the config file.
func setDefaults(v *viper.Viper) {
	defaults := map[string]any{
		"llm.api_key": "",
		"llm.model":   "gemini-2.5-flash",
		"llm.timeout": 2 * time.Minute,

		"search.timeout":     15 * time.Second,
		"search.user_agent":  userAgent,
		"search.max_retries": 3,
		"search.api_key":     "",
		"search.engine_id":   "",
		"search.max_results": 5,

		"scrape.timeout":           20 * time.Second,
		"scrape.user_agent":        userAgent,
		"scrape.max_retries":       2,
		"scrape.max_content_chars": 20000,
		"scrape.max_body_bytes":    int64(25 << 20),
		"scrape.transcriber":       string(types.TranscriberModel),

		"research.max_tool_iterations": 8,
		"research.concurrency":         1,
		"research.max_record_chars":    4000,
		"research.output_dir":          "",

		"storage.db_path":          "data/deep-research.db",
		"storage.minio.endpoint":   "",
		"storage.minio.access_key": "",
		"storage.minio.secret_key": "",
		"storage.minio.bucket":     "deep-research",
		"storage.minio.use_ssl":    false,

		"redis.addr":     "",
		"redis.password": "",
		"redis.db":       0,
	}
	for k, val := range defaults {
		v.SetDefault(k, val)
	}

	// Bare variable names shared with other tools.
	bare := map[string]string{
		"llm.api_key":      "API_KEY",
		"llm.model":        "DEFAULT_MODEL",
		"search.api_key":   "GOOGLE_API_KEY",
		"search.engine_id": "GOOGLE_CSE_ID",
	}
	for k, env := range bare {
		_ = v.BindEnv(k, "DEEP_RESEARCH_"+strings.ToUpper(strings.ReplaceAll(k, ".", "_")), env)
	}
}

// loadConfig decodes v and fills missing credentials from the secrets set.
func loadConfig(v *viper.Viper, set secrets.Set) (types.Config, error) {
	var cfg types.Config
	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("decoding configuration: %w", err)
	}

	cfg.LLM.APIKey = set.Resolve(cfg.LLM.APIKey, secrets.GeminiAPIKey, "GEMINI_API_KEY")
	cfg.Search.APIKey = set.Resolve(cfg.Search.APIKey, secrets.GoogleAPIKey)
	cfg.Search.EngineID = set.Resolve(cfg.Search.EngineID, secrets.GoogleCSEID)
	cfg.Redis.Password = set.Resolve(cfg.Redis.Password, secrets.RedisPassword)
	cfg.Storage.Minio.AccessKey = set.Resolve(cfg.Storage.Minio.AccessKey, secrets.MinioAccessKey)
	cfg.Storage.Minio.SecretKey = set.Resolve(cfg.Storage.Minio.SecretKey, secrets.MinioSecretKey)
	return cfg, nil
}
