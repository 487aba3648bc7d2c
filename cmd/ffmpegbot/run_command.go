package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"github.com/shohan-001/ffmpeg-video-bot/internal/config"
	"github.com/shohan-001/ffmpeg-video-bot/internal/dispatch"
	"github.com/shohan-001/ffmpeg-video-bot/internal/ffmpeg/runner"
	"github.com/shohan-001/ffmpeg-video-bot/internal/logging"
	"github.com/shohan-001/ffmpeg-video-bot/internal/preflight"
	"github.com/shohan-001/ffmpeg-video-bot/internal/queue"
	"github.com/shohan-001/ffmpeg-video-bot/internal/session"
	"github.com/shohan-001/ffmpeg-video-bot/internal/settings"
	"github.com/shohan-001/ffmpeg-video-bot/internal/storage"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var pollSeconds int

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the job-processing daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.newLogger(true)
			if err != nil {
				return err
			}
			return runDaemon(cfg, logger, pollSeconds)
		},
	}

	cmd.Flags().IntVar(&pollSeconds, "poll-interval", 5, "Seconds between queue polls")
	return cmd
}

func runDaemon(cfg *config.Config, logger *slog.Logger, pollSeconds int) error {
	lock := flock.New(cfg.Paths.LockPath)
	locked, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire instance lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("another instance already holds %s", cfg.Paths.LockPath)
	}
	defer func() { _ = lock.Unlock() }()

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	checks := preflight.RunAll(sigCtx, cfg)
	for _, check := range checks {
		if check.Passed {
			logger.Info("preflight check passed", logging.String("check", check.Name), logging.String("detail", check.Detail))
		} else {
			logger.Error("preflight check failed", logging.String("check", check.Name), logging.String("detail", check.Detail))
		}
	}
	if failed := preflight.Failed(checks); len(failed) > 0 {
		return fmt.Errorf("%d preflight check(s) failed, see log for details", len(failed))
	}

	store, err := queue.Open(cfg.Paths.DatabasePath, cfg.Queue.MaxDepth)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	settingsStore, err := settings.Open(cfg.Paths.DatabasePath)
	if err != nil {
		return err
	}
	defer func() { _ = settingsStore.Close() }()

	stale := time.Duration(cfg.Queue.StaleRunningMinutes) * time.Minute
	recovered, err := store.RecoverStale(sigCtx, stale)
	if err != nil {
		return fmt.Errorf("recover stale jobs: %w", err)
	}
	if recovered > 0 {
		logger.Warn("failed jobs left over from previous run", logging.Int64("count", recovered))
	}

	dispatcher, err := newDispatcher(sigCtx, cfg, logger, store, settingsStore)
	if err != nil {
		return err
	}

	logger.Info("daemon started",
		logging.String("database", store.Path()),
		logging.String("work_dir", cfg.Paths.WorkDir))

	if pollSeconds <= 0 {
		pollSeconds = 5
	}
	ticker := time.NewTicker(time.Duration(pollSeconds) * time.Second)
	defer ticker.Stop()

	for {
		drainPending(sigCtx, dispatcher, store, logger)
		select {
		case <-sigCtx.Done():
			logger.Info("daemon stopping")
			return nil
		case <-ticker.C:
		}
	}
}

func newDispatcher(ctx context.Context, cfg *config.Config, logger *slog.Logger, store *queue.Store, settingsStore *settings.Store) (*dispatch.Dispatcher, error) {
	sessions := session.NewManager(settingsStore, logger)
	prober := dispatch.NewProber(cfg.FFmpeg.FFprobeBinary, time.Duration(cfg.FFmpeg.ProbeTimeout)*time.Second)
	ffmpegRunner := runner.New(cfg.FFmpeg.FFmpegBinary,
		runner.WithStderrTail(cfg.FFmpeg.StderrTailLines),
		runner.WithLogger(logger))

	opts := []dispatch.Option{dispatch.WithLogger(logger)}
	if cfg.Delivery.S3Enabled {
		uploader, err := storage.NewS3Uploader(ctx, cfg.Delivery.S3Bucket, cfg.Delivery.S3Region, cfg.Delivery.S3Prefix, logger)
		if err != nil {
			return nil, err
		}
		opts = append(opts, dispatch.WithSecondaryDeliverer(uploader))
	}

	return dispatch.New(cfg, prober, ffmpegRunner, store, sessions, opts...), nil
}

// drainPending works through every user with pending jobs, FIFO per user.
func drainPending(ctx context.Context, dispatcher *dispatch.Dispatcher, store *queue.Store, logger *slog.Logger) {
	entries, err := store.List(ctx, queue.StatusPending)
	if err != nil {
		logger.Error("listing pending jobs failed", logging.Error(err))
		return
	}

	seen := map[int64]bool{}
	for _, entry := range entries {
		if seen[entry.UserID] || ctx.Err() != nil {
			continue
		}
		seen[entry.UserID] = true
		dispatcher.ProcessUser(ctx, entry.UserID)
	}
}
