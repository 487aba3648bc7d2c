package logging

import (
	"log/slog"
	"sync"
)

// ProgressSampler rate-limits progress log lines. A running ffmpeg job emits a
// progress record several times per second; the sampler only passes records
// through when the percentage crosses a new bucket boundary, so a job logs at
// most 100/bucket lines plus the terminal one.
type ProgressSampler struct {
	mu         sync.Mutex
	bucketSize float64
	lastBucket map[string]int
}

// NewProgressSampler returns a sampler with the given bucket width in percent.
// Non-positive widths fall back to 5.
func NewProgressSampler(bucketSize float64) *ProgressSampler {
	if bucketSize <= 0 {
		bucketSize = 5
	}
	return &ProgressSampler{
		bucketSize: bucketSize,
		lastBucket: make(map[string]int),
	}
}

// ShouldLog reports whether a progress record at percent for key should be
// emitted. 100% always logs so completion is never suppressed.
func (s *ProgressSampler) ShouldLog(key string, percent float64) bool {
	if percent >= 100 {
		s.Reset(key)
		return true
	}
	if percent < 0 {
		percent = 0
	}

	bucket := int(percent / s.bucketSize)

	s.mu.Lock()
	defer s.mu.Unlock()
	last, seen := s.lastBucket[key]
	if seen && bucket <= last {
		return false
	}
	s.lastBucket[key] = bucket
	return true
}

// Reset forgets sampling state for key. Call when a job finishes so a retry
// logs from zero again.
func (s *ProgressSampler) Reset(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.lastBucket, key)
}

// LogProgress emits a sampled progress line at info level.
func (s *ProgressSampler) LogProgress(logger *slog.Logger, key, msg string, percent float64, attrs ...Attr) {
	if logger == nil || !s.ShouldLog(key, percent) {
		return
	}
	args := Args(attrs...)
	args = append(args, Float64("percent", percent))
	logger.Info(msg, args...)
}
