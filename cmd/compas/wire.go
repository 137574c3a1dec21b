package main

import (
	"context"
	"fmt"

	"github.com/joshuamtm/compas-navigator/internal/engine"
	"github.com/joshuamtm/compas-navigator/internal/provider"
	"github.com/joshuamtm/compas-navigator/pkg/config"
	"github.com/joshuamtm/compas-navigator/pkg/session"
)

// loadConfig reads the config file when given, otherwise environment-backed
// defaults.
func loadConfig(path string) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if path != "" {
		cfg, err = config.Load(path)
		if err != nil {
			return nil, err
		}
	} else {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func buildStore(ctx context.Context, cfg *config.Config) (session.Store, error) {
	switch cfg.Store.Kind {
	case "memory":
		return session.NewMemoryStore(session.MemoryConfig{
			MaxIdle:       cfg.Store.MaxIdle,
			MaxSessions:   cfg.Store.MaxSessions,
			SweepSchedule: cfg.Store.SweepSchedule,
		}), nil
	case "redis":
		return session.NewRedisStore(session.RedisConfig{
			Addr:       cfg.Store.RedisAddr,
			Password:   cfg.Store.RedisPassword,
			DB:         cfg.Store.RedisDB,
			SessionTTL: cfg.Store.SessionTTL,
		})
	case "firestore":
		return session.NewFirestoreStore(ctx, session.FirestoreConfig{
			ProjectID:       cfg.Store.FirestoreProject,
			Collection:      cfg.Store.FirestoreCollection,
			CredentialsFile: cfg.Store.CredentialsFile,
		})
	default:
		return nil, fmt.Errorf("unknown store %q", cfg.Store.Kind)
	}
}

func buildCompleter(ctx context.Context, cfg *config.Config) (provider.Completer, error) {
	providerConfig := map[string]any{}
	switch cfg.Provider {
	case "openai":
		providerConfig["api_key"] = cfg.OpenAIKey
	case "gemini":
		providerConfig["api_key"] = cfg.GeminiKey
	case "bedrock":
		providerConfig["region"] = cfg.AWSRegion
	}

	completer, err := provider.NewCompleter(ctx, cfg.Provider, providerConfig)
	if err != nil {
		return nil, err
	}

	if cfg.RateLimit.Enabled {
		completer = provider.NewRateLimitedCompleter(completer,
			cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)
	}
	return provider.NewInstrumentedCompleter(completer), nil
}

func buildPolicy(cfg *config.Config, completer provider.Completer) engine.ProgressionPolicy {
	if cfg.Policy.Kind == "keyword" {
		return engine.NewKeywordPolicy()
	}

	var analyzerOpts []provider.AnalyzerOption
	if cfg.Policy.AnalysisModel != "" {
		analyzerOpts = append(analyzerOpts, provider.WithAnalyzerModel(cfg.Policy.AnalysisModel))
	}
	analyzer := provider.NewInstrumentedAnalyzer(provider.NewLLMAnalyzer(completer, analyzerOpts...))

	return engine.NewAssistedPolicy(analyzer, engine.WithHistoryWindow(cfg.Policy.HistoryWindow))
}

func buildEngine(ctx context.Context, cfg *config.Config) (*engine.Engine, session.Store, error) {
	store, err := buildStore(ctx, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("build store: %w", err)
	}

	completer, err := buildCompleter(ctx, cfg)
	if err != nil {
		store.Close()
		return nil, nil, fmt.Errorf("build completer: %w", err)
	}

	eng := engine.New(store, completer, buildPolicy(cfg, completer),
		engine.WithModel(cfg.Model),
		engine.WithTemperature(cfg.Temperature),
		engine.WithMaxTokens(cfg.MaxTokens),
	)
	return eng, store, nil
}
