package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"sketchsync/internal/config"
	"sketchsync/internal/discovery"
	"sketchsync/internal/handler"
	"sketchsync/internal/repository"
	"sketchsync/internal/service"
	"sketchsync/internal/websocket"

	_ "github.com/go-kivik/kivik/v4/couchdb"

	"github.com/go-kivik/kivik/v4"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "err", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.Logging.SlogLevel()}))
	slog.SetDefault(logger)

	pointRepo, closeStore, err := openStore(cfg)
	if err != nil {
		logger.Error("failed to open point store", "driver", cfg.Store.Driver, "err", err)
		os.Exit(1)
	}
	defer closeStore()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// WebSocket Manager
	wsManager := websocket.NewManager(
		cfg.WebSocket.MaxConnPerViewer,
		cfg.WebSocket.WriteWait,
		cfg.WebSocket.PongWait,
		cfg.WebSocket.PingPeriod,
	)
	go wsManager.Run(ctx)

	pointService := service.NewPointService(pointRepo, wsManager)

	r := handler.NewRouter(handler.RouterDeps{
		Points:    handler.NewPointHandler(pointService),
		WebSocket: handler.NewWebSocketHandler(wsManager, cfg.WebSocket.ReadBufferSize, cfg.WebSocket.WriteBufferSize),
		CORS:      cfg.CORS,
		Chaos:     cfg.Chaos,
		Logger:    logger,
	})

	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)

	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	if cfg.Discovery.Enabled {
		port, err := strconv.Atoi(cfg.Server.Port)
		if err != nil {
			logger.Error("invalid PORT for mDNS", "port", cfg.Server.Port, "err", err)
			os.Exit(1)
		}
		mdnsServer, err := discovery.Advertise(cfg.Discovery.Instance, port)
		if err != nil {
			logger.Warn("mDNS advertising disabled", "err", err)
		} else {
			defer mdnsServer.Shutdown()
			logger.Info("advertising over mDNS", "service", discovery.ServiceType, "instance", cfg.Discovery.Instance)
		}
	}

	if cfg.Chaos.Enabled() {
		logger.Warn("chaos enabled", "failure_rate", cfg.Chaos.FailureRate, "max_delay", cfg.Chaos.MaxDelay)
	}

	errc := make(chan error, 1)
	go func() {
		logger.Info("starting point store", "addr", addr, "env", cfg.Server.Env, "driver", cfg.Store.Driver)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errc <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errc:
		logger.Error("server failed", "err", err)
		os.Exit(1)
	}

	logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "err", err)
		return
	}

	logger.Info("server stopped gracefully")
}

func openStore(cfg *config.Config) (repository.PointRepository, func(), error) {
	switch cfg.Store.Driver {
	case "couchdb":
		client, err := kivik.New("couch", cfg.Database.URL())
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to CouchDB: %w", err)
		}

		exists, err := client.DBExists(context.Background(), cfg.Database.Name)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to check database existence: %w", err)
		}
		if !exists {
			if err := client.CreateDB(context.Background(), cfg.Database.Name); err != nil {
				return nil, nil, fmt.Errorf("failed to create database: %w", err)
			}
			slog.Info("created database", "name", cfg.Database.Name)
		}
		slog.Info("connected to CouchDB", "host", cfg.Database.Host, "port", cfg.Database.Port)
		return repository.NewCouchPointRepository(client, cfg.Database.Name), func() { client.Close() }, nil

	case "sqlite":
		db, err := repository.OpenSQLite(cfg.Store.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return repository.NewSQLitePointRepository(db), func() { closeDB(db) }, nil

	default:
		return repository.NewMemoryPointRepository(), func() {}, nil
	}
}

func closeDB(db *sql.DB) {
	if err := db.Close(); err != nil {
		slog.Warn("failed to close sqlite", "err", err)
	}
}
