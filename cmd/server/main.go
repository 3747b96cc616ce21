package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/DoyleJ11/duel-rooms/internal/card"
	"github.com/DoyleJ11/duel-rooms/internal/config"
	"github.com/DoyleJ11/duel-rooms/internal/deck"
	"github.com/DoyleJ11/duel-rooms/internal/duel"
	"github.com/DoyleJ11/duel-rooms/internal/events"
	"github.com/DoyleJ11/duel-rooms/internal/httpapi"
	"github.com/DoyleJ11/duel-rooms/internal/hub"
	"github.com/DoyleJ11/duel-rooms/internal/logging"
	"github.com/DoyleJ11/duel-rooms/internal/room"
	"github.com/DoyleJ11/duel-rooms/internal/ws"
)

// shutdownGrace is how long running duels get to finish after a signal.
const shutdownGrace = 30 * time.Second

func main() {
	// A missing .env is fine; real environment variables still apply.
	_ = godotenv.Load()

	cmd := &cli.Command{
		Name:   "duel-rooms",
		Usage:  "duel room server",
		Flags:  config.Flags(),
		Action: run,
	}
	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cmd *cli.Command) error {
	cfg := config.FromCommand(cmd)
	logger, err := logging.New(cfg.LogLevel, cfg.Dev)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	catalog, err := loadCatalog(ctx, cfg.DatabaseURL, logger)
	if err != nil {
		return err
	}
	banlists, err := loadBanlists(cfg.BanlistPath, logger)
	if err != nil {
		return err
	}

	var publisher events.Publisher = events.Nop{}
	if cfg.NatsURL != "" {
		n, err := events.ConnectNATS(cfg.NatsURL, logger.Named("nats"))
		if err != nil {
			return err
		}
		publisher = n
	}
	defer publisher.Close()

	var engines duel.Provider
	if cfg.CorePath != "" {
		engines = duel.SandboxProvider(duel.SandboxConfig{Path: cfg.CorePath}, logger)
	} else {
		logger.Warn("no engine host configured, duels will fail to start")
	}

	// Rooms outlive requests but not the process.
	rootCtx, cancelRooms := context.WithCancel(context.Background())
	defer cancelRooms()
	h := hub.NewHub(rootCtx, logger.Named("hub"), publisher)

	listing := httpapi.NewListing(h, logger.Named("listing"))
	wsCfg := ws.Config{
		Rooms: room.Deps{
			Catalog:       catalog,
			Engines:       engines,
			Events:        publisher,
			Logger:        logger.Named("room"),
			EngineTimeout: cfg.EngineTimeout,
		},
		Banlists:         banlists,
		Limits:           deck.DefaultLimits(),
		WriteTimeout:     cfg.WriteTimeout,
		HandshakeTimeout: cfg.HandshakeTimeout,
		PingInterval:     cfg.PingInterval,
		Logger:           logger.Named("ws"),
	}
	if cfg.Dev {
		wsCfg.OriginPatterns = []string{"localhost:*", "127.0.0.1:*"}
	}
	wsHandler := ws.Handler(rootCtx, h, wsCfg)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpapi.SetupRoutes(listing, wsHandler, logger.Named("http")),
		ReadHeaderTimeout: 10 * time.Second,
	}

	sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	g, gctx := errgroup.WithContext(sigCtx)

	g.Go(func() error {
		logger.Info("listening", zap.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return listing.Run(gctx, cfg.ListingInterval)
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		h.Shutdown()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		err := srv.Shutdown(shutdownCtx)
		waitForRooms(shutdownCtx, h)
		cancelRooms()
		return err
	})
	return g.Wait()
}

// waitForRooms polls until every room closed itself or ctx ends.
func waitForRooms(ctx context.Context, h *hub.Hub) {
	t := time.NewTicker(250 * time.Millisecond)
	defer t.Stop()
	for len(h.GetAllRoomsProperties()) > 0 {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
	}
}

func loadCatalog(ctx context.Context, dsn string, logger *zap.Logger) (*card.MemoryCatalog, error) {
	if dsn == "" {
		logger.Warn("no card database configured, deck checks will reject every card")
		return card.NewMemoryCatalog(), nil
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: gormlogger.Discard})
	if err != nil {
		return nil, fmt.Errorf("open card database: %w", err)
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}
	cat, err := card.LoadCatalog(ctx, db)
	if err != nil {
		return nil, err
	}
	logger.Info("card catalog loaded", zap.Int("cards", cat.Len()))
	return cat, nil
}

func loadBanlists(path string, logger *zap.Logger) ([]*card.Banlist, error) {
	if path == "" {
		return nil, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open banlists: %w", err)
	}
	defer f.Close()
	lists, err := card.ParseBanlists(f)
	if err != nil {
		return nil, err
	}
	logger.Info("banlists loaded", zap.Int("count", len(lists)))
	return lists, nil
}
