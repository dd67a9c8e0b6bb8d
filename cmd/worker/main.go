package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"

	"navigader/internal/config"
	"navigader/internal/der"
	"navigader/internal/metrics"
	"navigader/internal/objstore"
	"navigader/internal/store"
	"navigader/internal/tasks"
)

func main() {
	godotenv.Load()

	cfg, err := config.FromEnv()
	if err != nil {
		log.WithError(err).Fatal("loading configuration")
	}
	setupLogging(cfg)

	// Only instances marked as the worker tier may consume the queue. A web
	// instance accidentally launched with this binary must not steal tasks.
	if !cfg.WorkerRole {
		log.Fatal("refusing to start: WORKER_ROLE is not set")
	}

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

	worker := &tasks.Worker{
		Store:      db,
		Objects:    objects,
		Metrics:    metrics.NewDefault(),
		Queue:      cfg.Queue,
		Production: der.NewPVWattsClient("", cfg.PVWattsAPIKey, 30*time.Second),
	}

	cron := worker.Scheduler()
	cron.Start()
	defer cron.Stop()

	if err := worker.Run(ctx); err != nil {
		log.WithError(err).Fatal("worker stopped")
	}
	log.Info("worker shut down")
}

func setupLogging(cfg *config.Config) {
	if cfg.DeployEnv == config.EnvDev || cfg.Debug {
		log.SetLevel(log.DebugLevel)
		return
	}
	log.SetFormatter(&log.JSONFormatter{})
	log.SetLevel(log.InfoLevel)
}
