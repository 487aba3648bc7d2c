// Package runner executes ffmpeg commands built by the parent package. It
// owns the -progress pipe:1 line protocol, cooperative cancellation, and
// stderr capture, so retry and progress semantics live in exactly one place.
package runner

import (
	"context"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/shohan-001/ffmpeg-video-bot/internal/ffmpeg"
	"github.com/shohan-001/ffmpeg-video-bot/internal/fileutil"
	"github.com/shohan-001/ffmpeg-video-bot/internal/logging"
)

// progressPrefix are the fixed flags injected ahead of every built command.
var progressPrefix = []string{"-y", "-hide_banner", "-progress", "pipe:1"}

// Executor abstracts command execution for testability.
type Executor interface {
	Run(ctx context.Context, binary string, args []string, onStdout, onStderr func(string)) error
}

// Outcome is the terminal result of one ffmpeg invocation.
type Outcome struct {
	Success         bool
	Cancelled       bool
	Outputs         []string
	ErrorMessage    string
	OutputSizeBytes int64
}

// Job is the cancellation handle shared with the session's active-job slot.
// Cancel flags the job and terminates the child process; the read loop
// observes the flag and reports a cancelled outcome distinct from failure.
type Job struct {
	cancelled atomic.Bool

	mu   sync.Mutex
	stop context.CancelFunc
}

// NewJob returns a fresh cancellation handle.
func NewJob() *Job {
	return &Job{}
}

// Cancel requests cooperative cancellation.
func (j *Job) Cancel() {
	if j == nil {
		return
	}
	j.cancelled.Store(true)
	j.mu.Lock()
	stop := j.stop
	j.mu.Unlock()
	if stop != nil {
		stop()
	}
}

// IsCancelled reports whether Cancel has been called.
func (j *Job) IsCancelled() bool {
	return j != nil && j.cancelled.Load()
}

func (j *Job) bind(stop context.CancelFunc) {
	j.mu.Lock()
	j.stop = stop
	j.mu.Unlock()
	// Cancel may have raced ahead of bind.
	if j.cancelled.Load() {
		stop()
	}
}

// Option configures the runner.
type Option func(*Runner)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec Executor) Option {
	return func(r *Runner) {
		if exec != nil {
			r.exec = exec
		}
	}
}

// WithStderrTail bounds how many trailing stderr lines are kept for
// diagnostics.
func WithStderrTail(lines int) Option {
	return func(r *Runner) {
		if lines > 0 {
			r.stderrTail = lines
		}
	}
}

// WithLogger routes runner logs.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// Runner wraps ffmpeg CLI invocations.
type Runner struct {
	binary     string
	stderrTail int
	exec       Executor
	logger     *slog.Logger
}

// New constructs a runner for the given ffmpeg binary.
func New(binary string, opts ...Option) *Runner {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "ffmpeg"
	}
	r := &Runner{
		binary:     binary,
		stderrTail: 30,
		exec:       commandExecutor{},
		logger:     logging.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes one built command. Progress callbacks carry elapsed media
// seconds parsed from out_time_ms lines and fire only when expectedDuration
// is positive; with an unknown duration progress is suppressed, not errored.
// Partial outputs are removed on failure and cancellation.
func (r *Runner) Run(ctx context.Context, job *Job, cmd ffmpeg.Command, expectedDuration float64, onProgress func(seconds float64)) Outcome {
	if job == nil {
		job = NewJob()
	}

	runCtx, stop := context.WithCancel(ctx)
	defer stop()
	job.bind(stop)

	args := append(append([]string{}, progressPrefix...), cmd.Args...)

	tail := newTailBuffer(r.stderrTail)
	onStdout := func(line string) {
		seconds, ok := parseOutTime(line)
		if !ok {
			return
		}
		if expectedDuration > 0 && onProgress != nil && !job.IsCancelled() {
			onProgress(seconds)
		}
	}

	logging.FromContext(ctx, r.logger).Debug("starting ffmpeg",
		logging.String("binary", r.binary), logging.Int("args", len(args)))
	err := r.exec.Run(runCtx, r.binary, args, onStdout, tail.Add)

	switch {
	case job.IsCancelled():
		r.removePartialOutputs(cmd)
		return Outcome{Cancelled: true, ErrorMessage: "cancelled by user"}
	case err != nil:
		r.removePartialOutputs(cmd)
		message := tail.String()
		if message == "" {
			message = err.Error()
		}
		return Outcome{ErrorMessage: truncateMessage(message, 2000)}
	}

	var total int64
	for _, output := range cmd.Outputs {
		if info, statErr := os.Stat(output); statErr == nil {
			total += info.Size()
		}
	}
	return Outcome{Success: true, Outputs: append([]string{}, cmd.Outputs...), OutputSizeBytes: total}
}

func (r *Runner) removePartialOutputs(cmd ffmpeg.Command) {
	if err := fileutil.RemoveAll(cmd.Outputs...); err != nil {
		r.logger.Warn("remove partial output", logging.Error(err))
	}
}

// parseOutTime extracts elapsed media seconds from an out_time_ms line. The
// value is microseconds despite the key name. All other protocol lines are
// ignored.
func parseOutTime(line string) (float64, bool) {
	line = strings.TrimSpace(line)
	value, found := strings.CutPrefix(line, "out_time_ms=")
	if !found {
		return 0, false
	}
	micros, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	if err != nil || micros < 0 {
		return 0, false
	}
	return float64(micros) / 1e6, true
}

func truncateMessage(message string, limit int) string {
	message = strings.TrimSpace(message)
	if len(message) <= limit {
		return message
	}
	return message[:limit] + "…"
}

type tailBuffer struct {
	mu    sync.Mutex
	limit int
	lines []string
}

func newTailBuffer(limit int) *tailBuffer {
	return &tailBuffer{limit: limit}
}

func (b *tailBuffer) Add(line string) {
	line = strings.TrimSpace(line)
	if line == "" {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lines = append(b.lines, line)
	if len(b.lines) > b.limit {
		b.lines = b.lines[len(b.lines)-b.limit:]
	}
}

func (b *tailBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return strings.Join(b.lines, "\n")
}
