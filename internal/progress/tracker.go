// Package progress turns elapsed-media-time callbacks from the runner into
// throttled, human-readable status updates pushed to a message-editing sink.
// Sink failures are swallowed: progress reporting must never kill a job.
package progress

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/shohan-001/ffmpeg-video-bot/internal/ffmpeg"
	"github.com/shohan-001/ffmpeg-video-bot/internal/logging"
)

const barCells = 12

// Sink receives rendered progress text, typically by editing a chat message
// in place.
type Sink func(text string) error

// Tracker computes percentage and ETA from media-time callbacks and pushes
// throttled updates to a sink. Percentage is clamped to 100 and never moves
// backwards.
type Tracker struct {
	total    float64
	interval time.Duration
	sink     Sink
	label    string

	logger  *slog.Logger
	sampler *logging.ProgressSampler
	logKey  string

	now         func() time.Time
	start       time.Time
	lastPush    time.Time
	lastPercent float64
}

// Option configures a tracker.
type Option func(*Tracker)

// WithLabel sets the operation label shown in the rendered text.
func WithLabel(label string) Option {
	return func(t *Tracker) { t.label = label }
}

// WithLogger attaches a sampled progress log alongside sink updates.
func WithLogger(logger *slog.Logger, key string) Option {
	return func(t *Tracker) {
		if logger != nil {
			t.logger = logger
			t.logKey = key
		}
	}
}

// WithClock injects a time source for tests.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) {
		if now != nil {
			t.now = now
		}
	}
}

// NewTracker builds a tracker for a job with the given expected output
// duration. A non-positive interval falls back to 3 seconds.
func NewTracker(totalSeconds float64, interval time.Duration, sink Sink, opts ...Option) *Tracker {
	if interval <= 0 {
		interval = 3 * time.Second
	}
	t := &Tracker{
		total:    totalSeconds,
		interval: interval,
		sink:     sink,
		label:    "Processing",
		logger:   logging.NewNop(),
		sampler:  logging.NewProgressSampler(5),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	t.start = t.now()
	t.lastPush = time.Time{}
	return t
}

// Update consumes an elapsed-media-seconds callback. Pushes at most one sink
// edit per interval; the 100% update always goes through.
func (t *Tracker) Update(currentSeconds float64) {
	if t == nil || t.total <= 0 {
		return
	}

	percent := currentSeconds / t.total * 100
	if percent > 100 {
		percent = 100
	}
	if percent < t.lastPercent {
		percent = t.lastPercent
	}
	t.lastPercent = percent

	now := t.now()
	if percent < 100 && !t.lastPush.IsZero() && now.Sub(t.lastPush) < t.interval {
		return
	}
	t.lastPush = now

	text := t.render(percent, currentSeconds, now)
	if t.sink != nil {
		// A deleted message or transport hiccup must not fail the job.
		_ = t.sink(text)
	}
	t.sampler.LogProgress(t.logger, t.logKey, "job progress", percent, logging.String(logging.FieldOperation, t.label))
}

// Percent returns the last computed percentage.
func (t *Tracker) Percent() float64 {
	if t == nil {
		return 0
	}
	return t.lastPercent
}

func (t *Tracker) render(percent, currentSeconds float64, now time.Time) string {
	elapsed := now.Sub(t.start)

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s\n", t.label)
	fmt.Fprintf(&sb, "%s %.1f%%\n", renderBar(percent), percent)

	shown := currentSeconds
	if shown > t.total {
		shown = t.total
	}
	fmt.Fprintf(&sb, "%s / %s\n", ffmpeg.FormatTimestamp(shown), ffmpeg.FormatTimestamp(t.total))

	if eta, ok := estimateETA(elapsed, percent); ok {
		fmt.Fprintf(&sb, "ETA %s", formatDuration(eta))
	} else {
		sb.WriteString("ETA --")
	}
	return sb.String()
}

// estimateETA projects remaining wall-clock time from progress so far.
func estimateETA(elapsed time.Duration, percent float64) (time.Duration, bool) {
	if percent <= 0 || percent >= 100 {
		return 0, false
	}
	remaining := float64(elapsed) / percent * (100 - percent)
	return time.Duration(remaining), true
}

func renderBar(percent float64) string {
	filled := int(percent / 100 * barCells)
	if filled > barCells {
		filled = barCells
	}
	return "[" + strings.Repeat("#", filled) + strings.Repeat("-", barCells-filled) + "]"
}

func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	if d < time.Second {
		return "0s"
	}
	return d.String()
}

// Caption renders the delivery caption for a finished job.
func Caption(operation, fileName string, sizeBytes int64) string {
	var sb strings.Builder
	sb.WriteString(fileName)
	if operation != "" {
		fmt.Fprintf(&sb, "\n%s", operation)
	}
	if sizeBytes > 0 {
		fmt.Fprintf(&sb, "\n%s", humanize.Bytes(uint64(sizeBytes)))
	}
	return sb.String()
}
