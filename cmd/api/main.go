package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"

	"navigader/internal/api"
	"navigader/internal/config"
	"navigader/internal/metrics"
	"navigader/internal/objstore"
	"navigader/internal/store"
)

func main() {
	godotenv.Load()

	cfg, err := config.FromEnv()
	if err != nil {
		log.WithError(err).Fatal("loading configuration")
	}
	setupLogging(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := store.Open(ctx, cfg.Database.DSN())
	if err != nil {
		log.WithError(err).Fatal("connecting to database")
	}
	defer db.Close()
	if err := db.Migrate(ctx); err != nil {
		log.WithError(err).Fatal("migrating database")
	}

	objects, err := objstore.New(cfg.Storage.Region, cfg.Storage.MediaBucket)
	if err != nil {
		log.WithError(err).Fatal("connecting to object storage")
	}

	server := api.New(cfg, db, objects, metrics.NewDefault())
	httpServer := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           server.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Error("shutting down")
		}
	}()

	log.WithFields(log.Fields{
		"addr": cfg.ListenAddr,
		"env":  cfg.DeployEnv,
	}).Info("api starting")
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.WithError(err).Fatal("serving")
	}
}

func setupLogging(cfg *config.Config) {
	if cfg.DeployEnv == config.EnvDev || cfg.Debug {
		log.SetLevel(log.DebugLevel)
		return
	}
	log.SetFormatter(&log.JSONFormatter{})
	log.SetLevel(log.InfoLevel)
}
