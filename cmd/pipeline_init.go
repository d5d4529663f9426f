package main

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/realty-search/internal/cache"
	"github.com/sells-group/realty-search/internal/pipeline"
	"github.com/sells-group/realty-search/internal/retrieve"
	"github.com/sells-group/realty-search/internal/scorer"
	"github.com/sells-group/realty-search/internal/store"
	"github.com/sells-group/realty-search/internal/trust"
	anthropicpkg "github.com/sells-group/realty-search/pkg/anthropic"
	"github.com/sells-group/realty-search/pkg/tavily"
	"github.com/sells-group/realty-search/pkg/upstash"
)

// pipelineEnv holds the initialized store, cache, and pipeline shared by
// the serve and ask commands.
type pipelineEnv struct {
	Store    store.Store
	Cache    *cache.Cache
	Pipeline *pipeline.Pipeline
}

// Close releases resources held by the pipeline environment.
func (pe *pipelineEnv) Close() {
	if pe.Store != nil {
		_ = pe.Store.Close()
	}
}

// initPipeline sets up the store, API clients, trust registry, and builds
// the Pipeline. Callers should defer env.Close().
func initPipeline(ctx context.Context, mode string) (*pipelineEnv, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}

	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}

	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}

	registry := trust.NewRegistry()
	if cfg.Trust.RegistryPath != "" {
		if err := registry.MergeFile(cfg.Trust.RegistryPath); err != nil {
			zap.L().Warn("trust registry overrides not loaded",
				zap.String("path", cfg.Trust.RegistryPath), zap.Error(err))
		} else {
			zap.L().Info("trust registry overrides merged",
				zap.String("path", cfg.Trust.RegistryPath))
		}
	}

	anthropicClient := anthropicpkg.NewClient(cfg.Anthropic.Key)
	tavilyClient := tavily.NewClient(cfg.Tavily.Key, tavily.WithBaseURL(cfg.Tavily.BaseURL))

	// Cache is optional: without Upstash credentials, or when the ping
	// fails, every lookup is a miss and writes are no-ops.
	var redis upstash.Client
	if cfg.Upstash.URL != "" && cfg.Upstash.Token != "" {
		redis = upstash.NewClient(cfg.Upstash.URL, cfg.Upstash.Token)
	} else {
		zap.L().Warn("upstash not configured, result cache disabled")
	}
	ca := cache.Open(ctx, redis)
	if ca.Enabled() {
		zap.L().Info("result cache enabled")
	}

	retriever := retrieve.New(tavilyClient, registry, cfg.Retrieval)
	sc := scorer.New(registry)

	p := pipeline.New(cfg, st, retriever, sc, ca, anthropicClient)

	return &pipelineEnv{
		Store:    st,
		Cache:    ca,
		Pipeline: p,
	}, nil
}
