package main

import (
	"fmt"
	"os"

	"dataclinic/internal/config"
	"dataclinic/internal/llm"
	"dataclinic/internal/sanitizer"
	"dataclinic/internal/store"
	"dataclinic/internal/types"
)

// session bundles the collaborators one CLI invocation needs.
type session struct {
	cfg       config.UserConfig
	gateway   *llm.Gateway
	store     *store.Manager
	sanitizer *sanitizer.Sanitizer
	raw       *types.Table
}

// newSession loads the user config, builds the gateway and the store, and
// ingests the CSV at path into the raw table.
func newSession(csvPath string) (*session, error) {
	cfg := config.Load(configPath)

	apiKey := apiKeyFlag
	if apiKey == "" {
		apiKey = cfg.APIKey()
	}
	if apiKey == "" {
		return nil, fmt.Errorf("no OpenRouter API key configured; run 'dataclinic config set-key' or set OPENROUTER_API_KEY")
	}

	clientCfg := llm.DefaultClientConfig(apiKey)
	clientCfg.Logger = logger
	client := llm.NewClientWithConfig(clientCfg)
	gateway := llm.NewGateway(client, cfg.ResolveProfile(), logger)

	mgr, err := store.Open(logger)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(csvPath)
	if err != nil {
		mgr.Close()
		return nil, fmt.Errorf("failed to open %s: %w", csvPath, err)
	}
	defer f.Close()

	raw, err := mgr.LoadCSV(f)
	if err != nil {
		mgr.Close()
		return nil, err
	}

	return &session{
		cfg:     cfg,
		gateway: gateway,
		store:   mgr,
		sanitizer: sanitizer.New(sanitizer.Config{
			Gateway:    gateway,
			Executor:   mgr,
			MaxRetries: cfg.MaxRetries,
			Logger:     logger,
		}),
		raw: raw,
	}, nil
}

// Close releases the session's store.
func (s *session) Close() {
	s.store.Close()
}
