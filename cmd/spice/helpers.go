package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Veraticus/spice-ledger/internal/config"
	"github.com/Veraticus/spice-ledger/internal/engine"
	"github.com/Veraticus/spice-ledger/internal/llm"
	"github.com/Veraticus/spice-ledger/internal/service"
	"github.com/Veraticus/spice-ledger/internal/storage"
)

// initStorage opens the configured persister and loads the store from it.
func initStorage(ctx context.Context, cfg config.Database) (*storage.Store, error) {
	var (
		persister storage.Persister
		err       error
	)
	switch cfg.Driver {
	case config.DriverFile:
		persister, err = storage.NewFilePersister(cfg.Path)
	default:
		persister, err = storage.NewSQLitePersister(ctx, cfg.Path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open %s storage at %s: %w", cfg.Driver, cfg.Path, err)
	}

	store, err := storage.Open(ctx, persister, slog.Default())
	if err != nil {
		_ = persister.Close()
		return nil, err
	}
	for _, name := range store.Corrupted() {
		slog.Warn("Collection was unreadable and has been reset", "collection", name)
	}
	return store, nil
}

// app is everything a ledger command needs.
type app struct {
	store   *storage.Store
	gateway *llm.Gateway
	engine  *engine.Engine
	session service.Session
}

// openApp wires storage, the model gateway and the engine, and resolves the
// --user session.
func openApp(ctx context.Context, requireModel bool, opts ...engine.Option) (*app, error) {
	store, err := initStorage(ctx, appConfig.Database)
	if err != nil {
		return nil, err
	}

	gateway, err := createGateway(ctx, appConfig, requireModel)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	opts = append([]engine.Option{engine.WithIntakeConfig(appConfig.Intake)}, opts...)
	eng := engine.New(store, gateway, slog.Default(), opts...)

	session, err := eng.Session(ctx, userID)
	if err != nil {
		eng.Close()
		_ = store.Close()
		return nil, err
	}

	return &app{store: store, gateway: gateway, engine: eng, session: session}, nil
}

func (a *app) Close() {
	a.engine.Close()
	if err := a.store.Close(); err != nil {
		slog.Warn("Failed to close storage", "error", err)
	}
}

// result unwraps an engine response into the usual Go pair.
func result[T any](resp engine.Response[T]) (T, error) {
	if !resp.OK() {
		var zero T
		return zero, resp.Err
	}
	return resp.Data, nil
}
