package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/redis/go-redis/v9"

	"github.com/videoflix/videoflix/internal/config"
	"github.com/videoflix/videoflix/internal/domain/repository"
	"github.com/videoflix/videoflix/internal/infrastructure/cache"
	"github.com/videoflix/videoflix/internal/infrastructure/postgres"
	"github.com/videoflix/videoflix/internal/infrastructure/queue"
	"github.com/videoflix/videoflix/internal/infrastructure/storage"
	"github.com/videoflix/videoflix/internal/transcoder"
	"github.com/videoflix/videoflix/internal/usecase"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// Ensure temp directory exists
	if err := os.MkdirAll(cfg.Worker.TempDir, 0755); err != nil {
		return fmt.Errorf("failed to create temp directory: %w", err)
	}

	// Initialize infrastructure clients
	pgClient, err := postgres.NewClient(ctx, postgres.DefaultClientConfig(cfg.Database.DSN()))
	if err != nil {
		return fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}
	defer pgClient.Close()
	logger.Info("connected to PostgreSQL")

	storageClient, err := storage.NewClient(ctx, storage.ClientConfig{
		Endpoint:  cfg.MinIO.Endpoint,
		AccessKey: cfg.MinIO.AccessKey,
		SecretKey: cfg.MinIO.SecretKey,
		Bucket:    cfg.MinIO.Bucket,
		UseSSL:    cfg.MinIO.UseSSL,
	})
	if err != nil {
		return fmt.Errorf("failed to connect to MinIO: %w", err)
	}
	logger.Info("connected to MinIO")

	queueClient, err := queue.NewClient(ctx, queue.DefaultClientConfig(cfg.RabbitMQ.URL()))
	if err != nil {
		return fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	defer queueClient.Close()
	logger.Info("connected to RabbitMQ")

	// Initialize Redis client for cache invalidation
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	if err := redisClient.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}
	logger.Info("connected to Redis")

	// Initialize the transcoding toolchain
	runner := transcoder.NewExecRunner()
	prober := transcoder.NewFFprobeProber(runner, cfg.Media.FFprobePath)
	rungs := transcoder.NewFFmpegTranscoder(runner, transcoder.FFmpegConfig{
		FFmpegPath:     cfg.Media.FFmpegPath,
		SegmentSeconds: cfg.Media.SegmentSeconds,
		Preset:         transcoder.DefaultFFmpegConfig().Preset,
		CRF:            transcoder.DefaultFFmpegConfig().CRF,
	})
	assets := transcoder.NewFFmpegAssetGenerator(runner, transcoder.AssetConfig{
		FFmpegPath:      cfg.Media.FFmpegPath,
		PreviewSeconds:  cfg.Media.PreviewSeconds,
		ThumbnailOffset: cfg.Media.ThumbnailOffset,
		SpriteInterval:  cfg.Media.SpriteInterval,
		SpriteColumns:   cfg.Media.SpriteColumns,
	})

	// Initialize repository and service
	videoRepo := postgres.NewVideoRepository(pgClient.Pool())
	videoCache := cache.NewRedisVideoCache(redisClient)
	processSvc := usecase.NewProcessService(
		videoRepo,
		storageClient,
		prober,
		rungs,
		assets,
		videoCache,
		usecase.ProcessServiceConfig{
			TempDir:         cfg.Worker.TempDir,
			RungParallelism: cfg.Worker.RungParallelism,
		},
	)

	// Setup signal handling for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	// WaitGroup to track in-flight jobs
	var wg sync.WaitGroup

	// Start consuming messages in a goroutine
	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting worker, consuming processing jobs")
		err := queueClient.ConsumeProcessingJobs(ctx, func(job repository.ProcessingJob) error {
			wg.Add(1)
			defer wg.Done()

			logger.Info("processing job",
				slog.String("video_id", job.VideoID.String()),
				slog.Int("retry_count", job.RetryCount),
			)

			report, err := processSvc.Process(ctx, job)
			if err != nil {
				logReport(logger, report, err)
				// A duplicate job is not worth a retry: the in-flight run
				// produces the output either way.
				if errors.Is(err, usecase.ErrJobInFlight) {
					return nil
				}
				return err
			}

			logReport(logger, report, nil)
			return nil
		})
		if err != nil && ctx.Err() == nil {
			errCh <- fmt.Errorf("consumer error: %w", err)
		}
	}()

	// Wait for shutdown signal or error
	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		logger.Info("shutting down worker", slog.String("signal", sig.String()))
	}

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Worker.ShutdownTimeout)
	defer shutdownCancel()

	// Cancel the main context to stop consuming new messages
	cancel()

	// Wait for in-flight jobs to complete (or timeout)
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logger.Info("all in-flight jobs completed")
	case <-shutdownCtx.Done():
		logger.Warn("shutdown timeout exceeded, some jobs may not have completed")
	}

	logger.Info("worker stopped")
	return nil
}

// logReport summarizes one pipeline run, listing every scoped failure.
func logReport(logger *slog.Logger, report *usecase.Report, err error) {
	if report == nil {
		if err != nil {
			logger.Error("job rejected", slog.String("error", err.Error()))
		}
		return
	}

	attrs := []any{
		slog.String("video_id", report.VideoID.String()),
		slog.String("status", string(report.Status)),
		slog.Float64("duration_seconds", report.DurationSeconds),
		slog.Int("rung_failures", len(report.RungFailures)),
		slog.Int("asset_failures", len(report.AssetFailures)),
	}

	for _, rf := range report.RungFailures {
		logger.Warn("rung failed",
			slog.String("video_id", report.VideoID.String()),
			slog.String("rung", rf.Rung.Name),
			slog.Int("exit_code", rf.ExitCode),
		)
	}
	for _, af := range report.AssetFailures {
		logger.Warn("asset failed",
			slog.String("video_id", report.VideoID.String()),
			slog.String("kind", string(af.Kind)),
			slog.Int("exit_code", af.ExitCode),
		)
	}

	if err != nil {
		attrs = append(attrs, slog.String("error", err.Error()))
		logger.Error("job failed", attrs...)
		return
	}
	logger.Info("job completed", attrs...)
}
