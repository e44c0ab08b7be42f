package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Veraticus/spice-ledger/internal/common"
	"github.com/Veraticus/spice-ledger/internal/config"
	"github.com/Veraticus/spice-ledger/internal/llm"
)

// createGateway builds the provider client and wraps it in the gateway.
// Commands that only read the ledger pass requireModel false and get an
// offline gateway when no key is configured.
func createGateway(ctx context.Context, cfg config.Config, requireModel bool) (*llm.Gateway, error) {
	var client llm.Client
	if err := cfg.RequireAPIKey(); err != nil {
		if requireModel {
			return nil, common.NewUserError(err.Error(), err)
		}
		slog.Debug("No API key configured, model features are offline", "provider", cfg.LLM.Provider)
		client = llm.NewOfflineClient(cfg.LLM.Provider)
	} else {
		client, err = llm.NewClient(ctx, cfg.LLM)
		if err != nil {
			return nil, fmt.Errorf("failed to create %s client: %w", cfg.LLM.Provider, err)
		}
	}

	gateway := llm.NewGateway(client, cfg.LLM, slog.Default())
	slog.Debug("Model gateway ready", "provider", cfg.LLM.Provider, "model", gateway.Model())
	return gateway, nil
}
