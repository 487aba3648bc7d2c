package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"runtime/debug"
	"sort"
	"time"

	"github.com/shohan-001/ffmpeg-video-bot/internal/config"
	"github.com/shohan-001/ffmpeg-video-bot/internal/ffmpeg"
	"github.com/shohan-001/ffmpeg-video-bot/internal/ffmpeg/runner"
	"github.com/shohan-001/ffmpeg-video-bot/internal/fileutil"
	"github.com/shohan-001/ffmpeg-video-bot/internal/logging"
	"github.com/shohan-001/ffmpeg-video-bot/internal/media/ffprobe"
	"github.com/shohan-001/ffmpeg-video-bot/internal/progress"
	"github.com/shohan-001/ffmpeg-video-bot/internal/queue"
	"github.com/shohan-001/ffmpeg-video-bot/internal/services"
	"github.com/shohan-001/ffmpeg-video-bot/internal/session"
	"github.com/shohan-001/ffmpeg-video-bot/internal/settings"
	"github.com/shohan-001/ffmpeg-video-bot/internal/storage"
)

// Prober inspects media files. The production implementation shells out to
// ffprobe; tests inject a stub.
type Prober interface {
	Inspect(ctx context.Context, path string) (ffprobe.Result, error)
}

// CommandRunner executes one built command; *runner.Runner satisfies it.
type CommandRunner interface {
	Run(ctx context.Context, job *runner.Job, cmd ffmpeg.Command, expectedDuration float64, onProgress func(seconds float64)) runner.Outcome
}

// SinkFactory builds the progress sink for a user's next job, typically an
// edit closure over a chat status message. A nil factory disables progress.
type SinkFactory func(userID int64) progress.Sink

// binaryProber wraps ffprobe.Inspect with the configured binary and timeout.
type binaryProber struct {
	binary  string
	timeout time.Duration
}

// NewProber returns a Prober invoking the given ffprobe binary.
func NewProber(binary string, timeout time.Duration) Prober {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return binaryProber{binary: binary, timeout: timeout}
}

func (p binaryProber) Inspect(ctx context.Context, path string) (ffprobe.Result, error) {
	probeCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	result, err := ffprobe.Inspect(probeCtx, p.binary, path)
	switch {
	case err == nil:
		return result, nil
	case ctx.Err() != nil || errors.Is(err, context.Canceled):
		return result, services.Wrap(services.ErrCancelled, "probe", "inspect", "", err)
	case probeCtx.Err() != nil || errors.Is(err, context.DeadlineExceeded):
		return result, services.Wrap(services.ErrTimeout, "probe", "inspect", "ffprobe timed out", err)
	}
	return result, err
}

// payload is the JSON shape a frozen request takes inside a queue row.
type payload struct {
	Options   ffmpeg.Options    `json:"options"`
	InputName string            `json:"input_name"`
	InputSize int64             `json:"input_size"`
	Settings  settings.Settings `json:"settings"`
}

// Dispatcher coordinates the full life of a job.
type Dispatcher struct {
	cfg       *config.Config
	probe     Prober
	runner    CommandRunner
	store     *queue.Store
	sessions  *session.Manager
	direct    storage.Deliverer
	secondary storage.Deliverer
	sinks     SinkFactory
	logger    *slog.Logger
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithDirectDeliverer sets the transport-backed deliverer for small outputs.
func WithDirectDeliverer(d storage.Deliverer) Option {
	return func(dp *Dispatcher) { dp.direct = d }
}

// WithSecondaryDeliverer sets the uploader for outputs above the direct
// threshold.
func WithSecondaryDeliverer(d storage.Deliverer) Option {
	return func(dp *Dispatcher) { dp.secondary = d }
}

// WithSinkFactory sets how progress sinks are created for queued jobs.
func WithSinkFactory(f SinkFactory) Option {
	return func(dp *Dispatcher) { dp.sinks = f }
}

// WithLogger routes dispatcher logs.
func WithLogger(logger *slog.Logger) Option {
	return func(dp *Dispatcher) {
		if logger != nil {
			dp.logger = logging.WithComponent(logger, "dispatch")
		}
	}
}

// New builds a dispatcher around the queue store and session manager.
func New(cfg *config.Config, probe Prober, cmdRunner CommandRunner, store *queue.Store, sessions *session.Manager, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		cfg:      cfg,
		probe:    probe,
		runner:   cmdRunner,
		store:    store,
		sessions: sessions,
		logger:   logging.WithComponent(logging.NewNop(), "dispatch"),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Submit persists a frozen request as a pending queue row and returns its
// position in the user's backlog.
func (d *Dispatcher) Submit(ctx context.Context, req session.OperationRequest) (string, int, error) {
	body, err := json.Marshal(payload{
		Options:   req.Options,
		InputName: req.InputName,
		InputSize: req.InputSize,
		Settings:  req.Settings,
	})
	if err != nil {
		return "", 0, services.Wrap(services.ErrValidation, "dispatch", "submit",
			"encoding job options failed", err)
	}

	entry, position, err := d.store.Enqueue(ctx, req.UserID, req.Operation.String(), string(body), req.InputPath)
	if err != nil {
		return "", 0, err
	}

	d.logger.Info("job queued",
		logging.Int64(logging.FieldUserID, req.UserID),
		logging.String(logging.FieldJobID, entry.JobID),
		logging.String(logging.FieldOperation, req.Operation.String()),
		logging.Int("position", position))
	return entry.JobID, position, nil
}

// ProcessUser drains the user's queue in FIFO order, executing each claimed
// job to a terminal status before claiming the next.
func (d *Dispatcher) ProcessUser(ctx context.Context, userID int64) []Outcome {
	var outcomes []Outcome
	for {
		if ctx.Err() != nil {
			return outcomes
		}
		entry, err := d.store.ClaimNext(ctx, userID)
		if errors.Is(err, queue.ErrNotFound) {
			return outcomes
		}
		if err != nil {
			d.logger.Error("claiming next job failed",
				logging.Int64(logging.FieldUserID, userID), logging.Error(err))
			return outcomes
		}

		var sink progress.Sink
		if d.sinks != nil {
			sink = d.sinks(userID)
		}
		outcomes = append(outcomes, d.Execute(ctx, entry, sink))
	}
}

// Execute runs one claimed queue entry through probe, build, run, and
// delivery, records the terminal status, and returns the outcome. Panics in
// any stage surface as a failed job, never a crashed process.
func (d *Dispatcher) Execute(ctx context.Context, entry queue.Entry, sink progress.Sink) (outcome Outcome) {
	ctx = services.WithUserID(ctx, entry.UserID)
	ctx = services.WithJobID(ctx, entry.JobID)
	logger := logging.FromContext(ctx, d.logger).With(
		logging.String(logging.FieldOperation, entry.Operation))

	defer func() {
		if r := recover(); r != nil {
			logger.Error("job panicked",
				logging.String("panic", fmt.Sprint(r)),
				logging.String("stack", string(debug.Stack())))
			outcome = failure(truncate(fmt.Sprintf("internal error: %v", r), 500))
		}
		d.finish(ctx, entry, outcome, logger)
	}()

	req, err := d.requestFromEntry(entry)
	if err != nil {
		return failure(err.Error())
	}

	if required := uint64(d.cfg.Queue.MinFreeSpaceGiB) * 1 << 30; required > 0 {
		if err := fileutil.EnsureFreeSpace(d.cfg.Paths.OutputDir, required); err != nil {
			return failure(err.Error())
		}
	}

	// Probe failures degrade to an unknown duration instead of failing the
	// job; progress reporting is suppressed in that case. A probe cut short
	// by shutdown cancels the job before any work starts.
	if err := d.store.SetStatus(ctx, entry.JobID, queue.StatusProbing, ""); err != nil {
		logger.Warn("status update failed", logging.Error(err))
	}
	info, probeErr := d.probe.Inspect(services.WithStage(ctx, string(queue.StatusProbing)), req.InputPath)
	if probeErr != nil {
		if services.IsCancellation(probeErr) || errors.Is(probeErr, context.Canceled) {
			return Outcome{Cancelled: true, ErrorMessage: "cancelled before start"}
		}
		logger.Warn("probe failed, continuing without duration", logging.Error(probeErr))
	}
	req.Options.InputDuration = info.DurationSeconds()
	applySettings(&req)

	if err := d.store.SetStatus(ctx, entry.JobID, queue.StatusBuilding, ""); err != nil {
		logger.Warn("status update failed", logging.Error(err))
	}
	jobPlan, err := buildPlan(req, d.cfg, d.cfg.Paths.WorkDir)
	if err != nil {
		return failure(err.Error())
	}
	defer jobPlan.close()

	if err := d.store.SetStatus(ctx, entry.JobID, queue.StatusRunning, ""); err != nil {
		logger.Warn("status update failed", logging.Error(err))
	}
	outcome = d.runPlan(services.WithStage(ctx, string(queue.StatusRunning)), req, jobPlan, sink, logger)
	if !outcome.Success {
		return outcome
	}

	if jobPlan.globPattern != "" {
		if matches, globErr := filepath.Glob(jobPlan.globPattern); globErr == nil && len(matches) > 0 {
			sort.Strings(matches)
			outcome.OutputPaths = matches
		}
	}

	if !req.Settings.KeepSource {
		if err := fileutil.RemoveAll(req.InputPath); err != nil {
			logger.Warn("removing source failed", logging.Error(err))
		}
	}

	d.deliver(ctx, req, &outcome, sink, logger)
	return outcome
}

func (d *Dispatcher) requestFromEntry(entry queue.Entry) (session.OperationRequest, error) {
	op, err := session.ParseOperation(entry.Operation)
	if err != nil {
		return session.OperationRequest{}, err
	}
	var body payload
	if entry.OptionsJSON != "" {
		if err := json.Unmarshal([]byte(entry.OptionsJSON), &body); err != nil {
			return session.OperationRequest{}, services.Wrap(services.ErrValidation, "dispatch", "decode_entry",
				"decoding job options failed", err)
		}
	}
	return session.OperationRequest{
		UserID:    entry.UserID,
		Operation: op,
		Options:   body.Options,
		InputPath: entry.InputPath,
		InputName: body.InputName,
		InputSize: body.InputSize,
		Settings:  body.Settings,
	}, nil
}

// runPlan executes the plan's commands in order. A failed stream-copy merge
// is retried once with the re-encode fallback; everything else fails fast.
func (d *Dispatcher) runPlan(ctx context.Context, req session.OperationRequest, jobPlan plan, sink progress.Sink, logger *slog.Logger) Outcome {
	job := runner.NewJob()
	d.sessions.SetActiveJob(req.UserID, job)
	defer d.sessions.ClearActiveJob(req.UserID, "")

	multi := len(jobPlan.commands) > 1
	var outputs []string
	var totalSize int64

	for i, cmd := range jobPlan.commands {
		if multi && sink != nil {
			_ = sink(fmt.Sprintf("Processing part %d of %d…", i+1, len(jobPlan.commands)))
		}

		result := d.runCommand(ctx, req, job, cmd, sink, multi)
		if result.Cancelled {
			return Outcome{Cancelled: true, ErrorMessage: result.ErrorMessage}
		}
		if !result.Success && jobPlan.mergeFallback != nil {
			logger.Info("stream-copy merge failed, retrying with re-encode",
				logging.String("detail", truncate(result.ErrorMessage, 200)))
			fallback := *jobPlan.mergeFallback
			jobPlan.mergeFallback = nil
			result = d.runCommand(ctx, req, job, fallback, sink, multi)
			if result.Cancelled {
				return Outcome{Cancelled: true, ErrorMessage: result.ErrorMessage}
			}
		}
		if !result.Success {
			return failure(result.ErrorMessage)
		}

		outputs = append(outputs, result.Outputs...)
		totalSize += result.OutputSizeBytes
	}

	return Outcome{Success: true, OutputPaths: outputs, OutputSizeBytes: totalSize}
}

func (d *Dispatcher) runCommand(ctx context.Context, req session.OperationRequest, job *runner.Job, cmd ffmpeg.Command, sink progress.Sink, multi bool) runner.Outcome {
	expected := cmd.DurationHint
	if expected == 0 {
		expected = req.Options.InputDuration
	}
	// Single-frame captures finish in well under a throttle interval.
	if multi {
		expected = 0
	}

	var onProgress func(float64)
	if sink != nil && expected > 0 {
		tracker := progress.NewTracker(expected, time.Duration(d.cfg.FFmpeg.ProgressInterval)*time.Second, sink,
			progress.WithLabel(req.Operation.String()),
			progress.WithLogger(d.logger, req.Operation.String()))
		onProgress = tracker.Update
	}
	return d.runner.Run(ctx, job, cmd, expected, onProgress)
}

// deliver hands successful outputs to the right destination. Outputs above
// the direct threshold, or users who asked for secondary storage, go through
// the uploader; without one the direct path is used regardless of size.
func (d *Dispatcher) deliver(ctx context.Context, req session.OperationRequest, outcome *Outcome, sink progress.Sink, logger *slog.Logger) {
	if len(outcome.OutputPaths) == 0 {
		return
	}

	name := filepath.Base(outcome.OutputPaths[0])
	caption := progress.Caption(req.Operation.String(), name, outcome.OutputSizeBytes)
	delivery := storage.Delivery{
		UserID:    req.UserID,
		Paths:     outcome.OutputPaths,
		Caption:   caption,
		SizeBytes: outcome.OutputSizeBytes,
	}

	limit := int64(d.cfg.Delivery.MaxDirectMB) * 1024 * 1024
	wantSecondary := req.Settings.Destination == settings.DestinationS3 ||
		(limit > 0 && outcome.OutputSizeBytes > limit)

	deliverer := d.direct
	if wantSecondary && d.secondary != nil {
		deliverer = d.secondary
		if sink != nil {
			_ = sink("Uploading to storage…")
		}
	}
	if deliverer == nil {
		outcome.Delivered = "local"
		return
	}

	receipt, err := deliverer.Deliver(ctx, delivery)
	if err != nil {
		logger.Error("delivery failed", logging.Error(err))
		outcome.Success = false
		outcome.ErrorMessage = truncate("delivery failed: "+err.Error(), 500)
		return
	}
	outcome.Delivered = receipt.Destination
	outcome.DeliveryURLs = receipt.URLs
}

// finish records the terminal queue status and session bookkeeping for an
// executed entry.
func (d *Dispatcher) finish(ctx context.Context, entry queue.Entry, outcome Outcome, logger *slog.Logger) {
	status := queue.StatusFailed
	switch {
	case outcome.Cancelled:
		status = queue.StatusCancelled
	case outcome.Success:
		status = queue.StatusSucceeded
	}

	if err := d.store.SetStatus(ctx, entry.JobID, status, truncate(outcome.ErrorMessage, 2000)); err != nil {
		logger.Error("recording terminal status failed", logging.Error(err))
	}

	lastOutput := ""
	if len(outcome.OutputPaths) > 0 {
		lastOutput = outcome.OutputPaths[len(outcome.OutputPaths)-1]
	}
	d.sessions.ClearActiveJob(entry.UserID, lastOutput)

	logger.Info("job finished",
		logging.String("status", string(status)),
		logging.Int("outputs", len(outcome.OutputPaths)),
		logging.Int64("size_bytes", outcome.OutputSizeBytes))
}

func truncate(message string, limit int) string {
	if len(message) <= limit {
		return message
	}
	return message[:limit] + "…"
}
