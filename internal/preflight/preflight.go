package preflight

import (
	"context"
	"fmt"

	"github.com/shohan-001/ffmpeg-video-bot/internal/config"
	"github.com/shohan-001/ffmpeg-video-bot/internal/deps"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name     string
	Passed   bool
	Optional bool
	Detail   string
}

// RunAll executes all applicable checks for the given config.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Work directory", cfg.Paths.WorkDir),
		CheckDirectoryAccess("Output directory", cfg.Paths.OutputDir),
		CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
	}

	for _, status := range deps.CheckBinaries(deps.ForConfig(cfg.FFmpeg.FFmpegBinary, cfg.FFmpeg.FFprobeBinary)) {
		results = append(results, Result{
			Name:     status.Name,
			Passed:   status.Available,
			Optional: status.Optional,
			Detail:   binaryDetail(ctx, status),
		})
	}

	if cfg.Queue.MinFreeSpaceGiB > 0 {
		results = append(results, CheckFreeSpace("Disk headroom", cfg.Paths.OutputDir, cfg.Queue.MinFreeSpaceGiB))
	}
	if cfg.Delivery.S3Enabled {
		results = append(results, checkS3Config(cfg.Delivery))
	}
	return results
}

// Failed filters results down to hard failures; optional checks never fail
// the daemon.
func Failed(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if !r.Passed && !r.Optional {
			failed = append(failed, r)
		}
	}
	return failed
}

func binaryDetail(ctx context.Context, status deps.Status) string {
	if !status.Available {
		return status.Detail
	}
	if version := deps.Version(ctx, status.Command); version != "" {
		return version
	}
	return status.Command
}

func checkS3Config(delivery config.Delivery) Result {
	const name = "S3 delivery"
	if delivery.S3Bucket == "" {
		return Result{Name: name, Detail: "s3_enabled is set but s3_bucket is empty"}
	}
	if delivery.S3Region == "" {
		return Result{Name: name, Detail: "s3_enabled is set but s3_region is empty"}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("bucket %s (%s)", delivery.S3Bucket, delivery.S3Region)}
}
