package main

import (
	"context"
	"fmt"

	"github.com/Beto0829/Barber-ticket/internal/config"
	"github.com/Beto0829/Barber-ticket/internal/docstore"
	"github.com/Beto0829/Barber-ticket/internal/docstore/firestore"
	"github.com/Beto0829/Barber-ticket/internal/docstore/memory"
	"github.com/Beto0829/Barber-ticket/internal/docstore/postgres"
	"github.com/Beto0829/Barber-ticket/internal/ledger"
	"github.com/Beto0829/Barber-ticket/internal/queue"
	"github.com/Beto0829/Barber-ticket/internal/telemetry"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// app holds the components shared by the subcommands.
type app struct {
	cfg    config.Config
	logger *zap.Logger
	store  docstore.Store
	queue  *queue.Queue
	ledger *ledger.Ledger
	close  func()
}

func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	logger, err := telemetry.NewLogger(cfg.LogLevel, cfg.LogEncoding)
	if err != nil {
		return nil, err
	}

	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		_ = logger.Sync()
		return nil, err
	}
	logger.Info("document store ready", zap.String("backend", cfg.StoreBackend))

	a := &app{
		cfg:    cfg,
		logger: logger,
		store:  store,
		queue: queue.New(store, queue.Options{
			Collection: cfg.QueueCollection,
			Document:   cfg.QueueDocument,
			Logger:     logger.Named("queue"),
		}),
		ledger: ledger.New(store, ledger.Options{
			HistoryCollection: cfg.QueueCollection,
			HistoryDocument:   cfg.HistoryDocument,
			RevenueCollection: cfg.RevenueCollection,
			Location:          cfg.Location,
			Logger:            logger.Named("ledger"),
		}),
	}
	a.close = func() {
		closeStore()
		_ = logger.Sync()
	}
	return a, nil
}

func openStore(ctx context.Context, cfg config.Config) (docstore.Store, func(), error) {
	switch cfg.StoreBackend {
	case config.BackendPostgres:
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("db connect: %w", err)
		}
		return postgres.NewStore(pool), pool.Close, nil
	case config.BackendFirestore:
		store, err := firestore.NewStore(ctx, cfg.FirestoreProjectID)
		if err != nil {
			return nil, nil, fmt.Errorf("firestore connect: %w", err)
		}
		return store, func() { _ = store.Close() }, nil
	default:
		return memory.NewStore(), func() {}, nil
	}
}
