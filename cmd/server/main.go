// Contracthub - Contract Management and Status Notifications
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/contracthub

package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/tomtom215/contracthub/internal/api"
	"github.com/tomtom215/contracthub/internal/audit"
	"github.com/tomtom215/contracthub/internal/auth"
	"github.com/tomtom215/contracthub/internal/config"
	"github.com/tomtom215/contracthub/internal/database"
	"github.com/tomtom215/contracthub/internal/events"
	"github.com/tomtom215/contracthub/internal/logging"
	"github.com/tomtom215/contracthub/internal/notify"
	"github.com/tomtom215/contracthub/internal/supervisor"
	"github.com/tomtom215/contracthub/internal/supervisor/services"
	ws "github.com/tomtom215/contracthub/internal/websocket"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("db_path", cfg.Database.Path).
		Str("session_store", cfg.Security.SessionStore).
		Str("events_backend", cfg.Events.Backend).
		Msg("Starting Contracthub")

	if err := run(cfg); err != nil {
		logging.Fatal().Err(err).Msg("Server exited with error")
	}
	logging.Info().Msg("Shutdown complete")
}

func run(cfg *config.Config) error {
	db, err := database.New(&cfg.Database)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing database")
		}
	}()

	sessionFactory, err := auth.NewSessionStoreFactory(auth.SessionStoreType(cfg.Security.SessionStore), cfg.Security.SessionStorePath)
	if err != nil {
		return err
	}
	defer func() {
		if err := sessionFactory.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing session store")
		}
	}()
	sessions := sessionFactory.CreateStore()

	jwtManager, err := auth.NewJWTManager(&cfg.Security)
	if err != nil {
		return err
	}
	authService := auth.NewService(jwtManager, sessions, db)

	wsHub := ws.NewHub(cfg.Realtime)

	bus, err := events.NewBus(cfg.Events)
	if err != nil {
		return err
	}
	defer func() {
		if err := bus.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing event bus")
		}
	}()
	contractPublisher := events.NewContractPublisher(bus.Publisher(), bus.Topic(),
		cfg.Events.BreakerMaxFailures, cfg.Events.BreakerTimeout)
	dispatcher := notify.NewDispatcher(db, contractPublisher)
	forwarder := events.NewForwarder(bus, wsHub)

	handler := api.NewHandler(db, dispatcher, authService, wsHub, cfg)
	auditLogger, err := newAuditLogger(cfg.Audit, db)
	if err != nil {
		return err
	}
	if auditLogger != nil {
		defer func() {
			if err := auditLogger.Close(); err != nil {
				logging.Error().Err(err).Msg("Error flushing audit trail")
			}
		}()
		handler.SetAuditLogger(auditLogger)
	}
	router := api.NewRouter(handler, api.ChiMiddlewareConfigFromSecurity(cfg.Security))

	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router.SetupChi(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.TreeConfig{
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	})
	if err != nil {
		return err
	}
	tree.AddDataService(services.NewSessionCleanupService(sessions, 0))
	if auditLogger != nil {
		tree.AddDataService(auditLogger)
	}
	tree.AddMessagingService(services.NewRealtimeHubService(wsHub))
	tree.AddMessagingService(forwarder)
	tree.AddAPIService(services.NewHTTPServerService(server, server.Addr, cfg.Server.ShutdownTimeout))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logging.Info().Str("addr", server.Addr).Msg("Starting supervisor tree")
	err = <-tree.ServeBackground(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	if report, reportErr := tree.UnstoppedServiceReport(); reportErr == nil && len(report) > 0 {
		for _, svc := range report {
			logging.Warn().Str("service", svc.Name).Msg("Service did not stop in time")
		}
	}
	return nil
}

// newAuditLogger builds the audit trail selected by cfg, or nil when disabled.
func newAuditLogger(cfg config.AuditConfig, db *database.DB) (*audit.Logger, error) {
	if !cfg.Enabled {
		logging.Info().Msg("Audit trail disabled")
		return nil, nil
	}

	var store audit.Store
	switch cfg.Store {
	case "memory":
		store = audit.NewMemoryStore(0)
	default:
		duck := audit.NewDuckDBStore(db.Conn())
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := duck.CreateTable(ctx); err != nil {
			return nil, err
		}
		store = duck
	}

	return audit.NewLogger(store, audit.Config{
		RetentionDays: cfg.RetentionDays,
		BufferSize:    cfg.BufferSize,
		LogToStdout:   cfg.LogToStdout,
	}), nil
}
