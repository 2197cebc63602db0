// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	trainer_routers "github.com/rapidaai/mimic/api/routers"
	internal_catalog "github.com/rapidaai/mimic/internal/trainer/catalog"
	internal_session "github.com/rapidaai/mimic/internal/trainer/session"
	"github.com/rapidaai/mimic/config"
	"github.com/rapidaai/mimic/pkg/commons"
	"github.com/rapidaai/mimic/pkg/connectors"
)

func main() {
	vp, err := config.InitConfig()
	if err != nil {
		log.Fatalf("unable to initialize config: %v", err)
	}
	cfg, err := config.GetApplicationConfig(vp)
	if err != nil {
		log.Fatalf("unable to load application config: %v", err)
	}

	logger, err := commons.NewApplicationLogger(
		commons.Name(cfg.Name),
		commons.Path(cfg.LogPath),
		commons.Level(cfg.LogLevel),
	)
	if err != nil {
		log.Fatalf("unable to initialize logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	sqlite, err := connectors.NewSqliteConnector(cfg.CatalogPath)
	if err != nil {
		logger.Errorf("unable to open catalog database: %v", err)
		os.Exit(1)
	}
	defer func() { _ = sqlite.Close() }()

	store, err := internal_catalog.NewStore(sqlite, logger)
	if err != nil {
		logger.Errorf("unable to initialize catalog store: %v", err)
		os.Exit(1)
	}

	manager := internal_session.NewManager(logger,
		internal_session.WithTickInterval(time.Duration(cfg.TickIntervalMs)*time.Millisecond))

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:    []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:   []string{"X-Artifact-Id"},
		MaxAge:          12 * time.Hour,
	}))

	trainer_routers.HealthCheckRoutes(cfg, engine, logger, sqlite)
	trainer_routers.CatalogApiRoutes(cfg, engine, logger, store)
	trainer_routers.SessionApiRoutes(cfg, engine, logger, manager, store)

	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler: engine,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Info("Shutting down...")
		cancel()
	}()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Infof("%s listening on %s", cfg.Name, srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		manager.CloseAll()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Errorf("server error: %v", err)
		os.Exit(1)
	}
	logger.Info("server stopped")
}
