package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateFFmpeg(); err != nil {
		return err
	}
	if err := c.validateQueue(); err != nil {
		return err
	}
	if err := c.validateDelivery(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateFFmpeg() error {
	if c.FFmpeg.CRF < 0 || c.FFmpeg.CRF > 51 {
		return errors.New("ffmpeg.crf must be between 0 and 51")
	}
	if err := ensurePositiveMap(map[string]int{
		"ffmpeg.probe_timeout":     c.FFmpeg.ProbeTimeout,
		"ffmpeg.stderr_tail_lines": c.FFmpeg.StderrTailLines,
		"ffmpeg.progress_interval": c.FFmpeg.ProgressInterval,
	}); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateQueue() error {
	return ensurePositiveMap(map[string]int{
		"queue.max_depth":              c.Queue.MaxDepth,
		"queue.stale_running_minutes":  c.Queue.StaleRunningMinutes,
		"queue.screenshot_count_limit": c.Queue.ScreenshotCountLimit,
	})
}

func (c *Config) validateDelivery() error {
	if c.Delivery.MaxDirectMB <= 0 {
		return errors.New("delivery.max_direct_mb must be positive")
	}
	if c.Delivery.S3Enabled {
		if c.Delivery.S3Bucket == "" {
			return errors.New("delivery.s3_bucket must be set when delivery.s3_enabled is true")
		}
		if c.Delivery.S3Region == "" {
			return errors.New("delivery.s3_region must be set when delivery.s3_enabled is true (or set AWS_REGION)")
		}
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
