package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"github.com/chitra-ai/chitra-api/internal/config"
	"github.com/chitra-ai/chitra-api/internal/domain/credit"
	"github.com/chitra-ai/chitra-api/internal/domain/headshot"
	"github.com/chitra-ai/chitra-api/internal/pkg/database"
	"github.com/chitra-ai/chitra-api/internal/pkg/logger"
	"github.com/chitra-ai/chitra-api/internal/pkg/storage"
)

func main() {
	cfg := config.Load()
	logger.Init(logger.Config{
		Level:       cfg.LogLevel,
		Environment: cfg.Env,
		Service:     "chitra-worker",
	})

	log.Info().Msg("Starting worker")

	db, err := database.NewPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer database.ClosePostgres(db)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var objectStore storage.Storage
	var bucket string
	if cfg.StorageEnabled() {
		s3, err := storage.NewS3Storage(ctx, storage.Config{
			Endpoint:  cfg.StorageEndpoint,
			Region:    cfg.StorageRegion,
			Bucket:    cfg.StorageBucket,
			AccessKey: cfg.StorageAccessKey,
			SecretKey: cfg.StorageSecretKey,
			PublicURL: cfg.StoragePublicURL,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create object storage")
		}
		objectStore, bucket = s3, s3.Bucket()
	} else {
		log.Warn().Msg("Object storage not configured, image cleanup will only report failures")
	}

	creditService := credit.NewService(credit.NewRepository(db), nil)
	headshotService := headshot.NewService(headshot.Deps{
		Repo:    headshot.NewRepository(db),
		Storage: objectStore,
		Bucket:  bucket,
	})

	scheduler := cron.New(cron.WithChain(
		cron.Recover(cronLogger{}),
		cron.SkipIfStillRunning(cronLogger{}),
	))

	err = registerJobs(ctx, scheduler, []job{
		{
			name:     "image_cleanup",
			schedule: cfg.CleanupCron,
			run: func(ctx context.Context) error {
				_, err := headshotService.CleanupOriginals(ctx, cfg.CleanupMaxAge)
				return err
			},
		},
		{
			name:     "ads_reset",
			schedule: cfg.AdsResetCron,
			run: func(ctx context.Context) error {
				_, err := creditService.ResetAdsWatched(ctx)
				return err
			},
		},
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to schedule jobs")
	}

	scheduler.Start()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down worker...")

	// Let running jobs finish before their context is cancelled.
	stopped := scheduler.Stop()
	select {
	case <-stopped.Done():
	case <-time.After(30 * time.Second):
		log.Warn().Msg("Jobs still running at shutdown")
	}
	cancel()

	log.Info().Msg("Worker exited properly")
}
