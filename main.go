package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/lazharichir/pokerroom/config"
	"github.com/lazharichir/pokerroom/history"
	"github.com/lazharichir/pokerroom/logging"
	"github.com/lazharichir/pokerroom/room"
	"github.com/lazharichir/pokerroom/server"
	"github.com/lazharichir/pokerroom/store"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := serve(ctx, cfg, logger); err != nil {
		logger.Fatal("server failed", zap.Error(err))
	}
}

func openStore(cfg config.Config) (store.Store, error) {
	if cfg.SnapshotBackend == "sqlite" {
		return store.OpenSQLite(cfg.SQLitePath)
	}
	return store.NewFileStore(cfg.DataDir)
}

func serve(ctx context.Context, cfg config.Config, logger *zap.Logger) error {
	st, err := openStore(cfg)
	if err != nil {
		return fmt.Errorf("open snapshot store: %w", err)
	}
	defer st.Close()

	dsn := cfg.HistoryDSN
	if cfg.HistoryBackend == "sqlite" && dsn == "" {
		dsn = cfg.SQLitePath
	}
	rec, err := history.Open(ctx, cfg.HistoryBackend, dsn)
	if err != nil {
		return fmt.Errorf("open history: %w", err)
	}
	defer rec.Close()

	rooms := room.NewManager(st, room.Options{Logger: logger})
	defer rooms.Close()
	n, err := rooms.LoadAll(ctx)
	if err != nil {
		return fmt.Errorf("load rooms: %w", err)
	}
	logger.Info("rooms loaded",
		zap.Int("rooms", n),
		zap.String("snapshots", cfg.SnapshotBackend),
		zap.String("history", cfg.HistoryBackend),
	)

	srv := server.New(rooms, server.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		Defaults: room.Timing{
			ReservationDuration: cfg.ReservationDuration,
			ActionTimeout:       cfg.ActionTimeout,
			TimeBank:            cfg.TimeBank,
			ShowdownDelay:       cfg.ShowdownDelay,
			NextHandDelay:       cfg.NextHandDelay,
		},
		History: rec,
		Logger:  logger,
	})

	go rooms.Run(ctx, cfg.ReconcileInterval)
	return srv.ListenAndServe(ctx, cfg.Addr)
}
