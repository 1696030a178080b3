package cmd

import (
	"errors"
	"fmt"
	"time"

	"video-wizard/internal/ai"
	"video-wizard/internal/apikeys"
	"video-wizard/internal/config"
	"video-wizard/internal/proxy"
	"video-wizard/internal/storage"

	"go.uber.org/zap"
)

// backends are the AI clients shared by every session.
type backends struct {
	db     *storage.Storage
	gemini *ai.GeminiService
	speech *ai.SpeechService
}

func newBackends(cfg *config.Config, logger *zap.Logger) (*backends, error) {
	keys, err := apikeys.NewManager(cfg.GeminiAPIKeys, logger)
	if err != nil {
		return nil, fmt.Errorf("could not initialize API keys: %w", err)
	}

	var proxies *proxy.Manager
	if len(cfg.ProxyURLs) > 0 {
		proxies, err = proxy.NewManager(cfg.ProxyURLs, logger)
		if err != nil {
			return nil, fmt.Errorf("could not initialize proxies: %w", err)
		}
	}

	db, err := storage.New(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("could not initialize database: %w", err)
	}

	return &backends{
		db:     db,
		gemini: ai.NewGeminiService(keys, cfg.ScriptModel, logger),
		speech: ai.NewSpeechService(ai.SpeechOptions{
			BaseURL: cfg.GeminiBaseURL,
			Model:   cfg.SpeechModel,
			Keys:    keys,
			Proxies: proxies,
			Cache:   db,
			Timeout: 2 * time.Minute,
			Logger:  logger,
		}),
	}, nil
}

func (b *backends) Close() error {
	return errors.Join(b.gemini.Close(), b.db.Close())
}
