package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeFFmpeg()
	c.normalizeQueue()
	c.normalizeDelivery()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.WorkDir, err = expandPath(c.Paths.WorkDir); err != nil {
		return fmt.Errorf("paths.work_dir: %w", err)
	}
	if c.Paths.OutputDir, err = expandPath(c.Paths.OutputDir); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.DatabasePath) == "" {
		c.Paths.DatabasePath = defaultDatabasePath
	}
	if c.Paths.DatabasePath, err = expandPath(c.Paths.DatabasePath); err != nil {
		return fmt.Errorf("paths.database_path: %w", err)
	}
	if strings.TrimSpace(c.Paths.LockPath) == "" {
		c.Paths.LockPath = defaultLockPath
	}
	if c.Paths.LockPath, err = expandPath(c.Paths.LockPath); err != nil {
		return fmt.Errorf("paths.lock_path: %w", err)
	}
	return nil
}

func (c *Config) normalizeFFmpeg() {
	c.FFmpeg.FFmpegBinary = strings.TrimSpace(c.FFmpeg.FFmpegBinary)
	if c.FFmpeg.FFmpegBinary == "" {
		c.FFmpeg.FFmpegBinary = defaultFFmpegBinary
	}
	c.FFmpeg.FFprobeBinary = strings.TrimSpace(c.FFmpeg.FFprobeBinary)
	if c.FFmpeg.FFprobeBinary == "" {
		c.FFmpeg.FFprobeBinary = defaultFFprobeBinary
	}
	c.FFmpeg.VideoCodec = strings.TrimSpace(c.FFmpeg.VideoCodec)
	if c.FFmpeg.VideoCodec == "" {
		c.FFmpeg.VideoCodec = defaultVideoCodec
	}
	c.FFmpeg.Preset = strings.ToLower(strings.TrimSpace(c.FFmpeg.Preset))
	if c.FFmpeg.Preset == "" {
		c.FFmpeg.Preset = defaultPreset
	}
	c.FFmpeg.AudioBitrate = strings.TrimSpace(c.FFmpeg.AudioBitrate)
	if c.FFmpeg.AudioBitrate == "" {
		c.FFmpeg.AudioBitrate = defaultAudioBitrate
	}
	if c.FFmpeg.ProbeTimeout <= 0 {
		c.FFmpeg.ProbeTimeout = defaultProbeTimeout
	}
	if c.FFmpeg.StderrTailLines <= 0 {
		c.FFmpeg.StderrTailLines = defaultStderrTailLines
	}
	if c.FFmpeg.ProgressInterval <= 0 {
		c.FFmpeg.ProgressInterval = defaultProgressInterval
	}
}

func (c *Config) normalizeQueue() {
	if c.Queue.MaxDepth <= 0 {
		c.Queue.MaxDepth = defaultQueueMaxDepth
	}
	if c.Queue.StaleRunningMinutes <= 0 {
		c.Queue.StaleRunningMinutes = defaultStaleRunningMinutes
	}
	if c.Queue.MinFreeSpaceGiB < 0 {
		c.Queue.MinFreeSpaceGiB = 0
	}
	if c.Queue.ScreenshotCountLimit <= 0 {
		c.Queue.ScreenshotCountLimit = defaultScreenshotCountLimit
	}
}

func (c *Config) normalizeDelivery() {
	if c.Delivery.MaxDirectMB <= 0 {
		c.Delivery.MaxDirectMB = defaultMaxDirectMB
	}
	c.Delivery.S3Bucket = strings.TrimSpace(c.Delivery.S3Bucket)
	c.Delivery.S3Region = strings.TrimSpace(c.Delivery.S3Region)
	if c.Delivery.S3Region == "" {
		if value, ok := os.LookupEnv("AWS_REGION"); ok {
			c.Delivery.S3Region = strings.TrimSpace(value)
		}
	}
	c.Delivery.S3Prefix = strings.Trim(strings.TrimSpace(c.Delivery.S3Prefix), "/")
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
}
