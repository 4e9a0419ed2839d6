// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/pdiddy/deep-research/internal/container"
	"github.com/pdiddy/deep-research/internal/convert"
	"github.com/pdiddy/deep-research/internal/events"
	"github.com/pdiddy/deep-research/internal/llm"
	"github.com/pdiddy/deep-research/internal/scrape"
	"github.com/pdiddy/deep-research/internal/search"
	"github.com/pdiddy/deep-research/internal/store"
	"github.com/pdiddy/deep-research/pkg/types"
)

// app holds the collaborators shared by subcommands. Fields are built on
// demand; Close releases whatever was opened.
type app struct {
	cfg     types.Config
	log     *zap.Logger
	session *llm.Session
	store   *store.Store
	redis   *redis.Client
}

func newApp() (*app, error) {
	cfg, err := loadConfig(viper.GetViper(), loadedSecrets)
	if err != nil {
		return nil, err
	}
	return &app{cfg: cfg, log: logger}, nil
}

// model returns the run-scoped gateway session, creating it once.
func (a *app) model() *llm.Session {
	if a.session == nil {
		a.session = llm.NewSession(a.cfg.LLM, a.log.Named("llm"))
	}
	return a.session
}

func (a *app) openStore(ctx context.Context) (*store.Store, error) {
	if a.store != nil {
		return a.store, nil
	}
	var blobs store.BlobStore
	if a.cfg.Storage.Minio.Endpoint != "" {
		m, err := store.NewMinioBlobStore(ctx, a.cfg.Storage.Minio)
		if err != nil {
			return nil, err
		}
		blobs = m
	}
	s, err := store.Open(a.cfg.Storage, blobs, a.log.Named("store"))
	if err != nil {
		return nil, err
	}
	a.store = s
	return s, nil
}

func (a *app) openRedis(ctx context.Context) (*redis.Client, error) {
	if a.redis != nil {
		return a.redis, nil
	}
	if a.cfg.Redis.Addr == "" {
		return nil, fmt.Errorf("redis is not configured: set redis.addr or DEEP_RESEARCH_REDIS_ADDR")
	}
	rdb, err := events.NewRedisClient(ctx, a.cfg.Redis.Addr, a.cfg.Redis.Password, a.cfg.Redis.DB)
	if err != nil {
		return nil, err
	}
	a.redis = rdb
	return rdb, nil
}

func (a *app) searcher() *search.Searcher {
	return search.New(a.log.Named("search"), search.NewGoogleBackend(a.cfg.Search, a.log.Named("google")))
}

// transcriber returns the configured PDF transcription backend. The
// markitdown backend needs a container runtime and its image.
func (a *app) transcriber(ctx context.Context) (convert.Transcriber, error) {
	switch a.cfg.Scrape.Transcriber {
	case types.TranscriberMarkitdown:
		rt, err := container.DetectRuntime(ctx)
		if err != nil {
			return nil, err
		}
		return convert.NewMarkitdownTranscriber(ctx, rt)
	case "", types.TranscriberModel:
		return convert.NewModelTranscriber(a.model()), nil
	default:
		return nil, fmt.Errorf("unknown transcriber %q (want %q or %q)",
			a.cfg.Scrape.Transcriber, types.TranscriberModel, types.TranscriberMarkitdown)
	}
}

// scraper returns a scraper that saves artifacts for sessionID.
func (a *app) scraper(ctx context.Context, sessionID string) (*scrape.Scraper, error) {
	tr, err := a.transcriber(ctx)
	if err != nil {
		return nil, err
	}
	st, err := a.openStore(ctx)
	if err != nil {
		return nil, err
	}
	return scrape.New(a.cfg.Scrape, tr, st.SessionFiles(sessionID), a.log.Named("scrape")), nil
}

func (a *app) Close() {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.Warn("closing store", zap.Error(err))
		}
	}
	if a.redis != nil {
		_ = a.redis.Close()
	}
}
