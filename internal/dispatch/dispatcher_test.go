package dispatch

import (
	"context"
	"strings"
	"testing"

	"github.com/shohan-001/ffmpeg-video-bot/internal/config"
	"github.com/shohan-001/ffmpeg-video-bot/internal/ffmpeg"
	"github.com/shohan-001/ffmpeg-video-bot/internal/ffmpeg/runner"
	"github.com/shohan-001/ffmpeg-video-bot/internal/media/ffprobe"
	"github.com/shohan-001/ffmpeg-video-bot/internal/queue"
	"github.com/shohan-001/ffmpeg-video-bot/internal/services"
	"github.com/shohan-001/ffmpeg-video-bot/internal/session"
	"github.com/shohan-001/ffmpeg-video-bot/internal/settings"
	"github.com/shohan-001/ffmpeg-video-bot/internal/storage"
	"github.com/shohan-001/ffmpeg-video-bot/internal/testsupport"
)

type fakeProber struct {
	result ffprobe.Result
	err    error
	panics bool
}

func (f *fakeProber) Inspect(context.Context, string) (ffprobe.Result, error) {
	if f.panics {
		panic("prober exploded")
	}
	return f.result, f.err
}

type fakeRunner struct {
	commands []ffmpeg.Command
	script   []runner.Outcome
}

func (f *fakeRunner) Run(_ context.Context, _ *runner.Job, cmd ffmpeg.Command, _ float64, _ func(float64)) runner.Outcome {
	f.commands = append(f.commands, cmd)
	if len(f.script) > 0 {
		next := f.script[0]
		f.script = f.script[1:]
		if next.Success && next.Outputs == nil {
			next.Outputs = cmd.Outputs
		}
		return next
	}
	return runner.Outcome{Success: true, Outputs: cmd.Outputs, OutputSizeBytes: 1 << 20}
}

type fakeDeliverer struct {
	name       string
	deliveries []storage.Delivery
}

func (f *fakeDeliverer) Deliver(_ context.Context, d storage.Delivery) (storage.Receipt, error) {
	f.deliveries = append(f.deliveries, d)
	return storage.Receipt{Destination: f.name}, nil
}

type staticSettings struct{}

func (staticSettings) Get(_ context.Context, userID int64) (settings.Settings, error) {
	s := settings.Defaults()
	s.UserID = userID
	return s, nil
}

type fixture struct {
	dispatcher *Dispatcher
	store      *queue.Store
	runner     *fakeRunner
	prober     *fakeProber
	direct     *fakeDeliverer
	secondary  *fakeDeliverer
	cfg        *config.Config
}

func probedDuration(t *testing.T, seconds string) ffprobe.Result {
	t.Helper()
	result, err := ffprobe.Parse([]byte(`{"format":{"duration":"` + seconds + `"}}`))
	if err != nil {
		t.Fatalf("parse probe fixture: %v", err)
	}
	return result
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	cfg := testsupport.NewConfig(t, testsupport.WithMaxDirectMB(100))
	store := testsupport.MustOpenStore(t, cfg)

	f := &fixture{
		store:     store,
		runner:    &fakeRunner{},
		prober:    &fakeProber{result: probedDuration(t, "120")},
		direct:    &fakeDeliverer{name: "direct"},
		secondary: &fakeDeliverer{name: "s3"},
		cfg:       cfg,
	}
	sessions := session.NewManager(staticSettings{}, nil)
	f.dispatcher = New(cfg, f.prober, f.runner, store, sessions,
		WithDirectDeliverer(f.direct),
		WithSecondaryDeliverer(f.secondary))
	return f
}

func request(userID int64, op session.Operation, mutate func(*session.OperationRequest)) session.OperationRequest {
	req := session.OperationRequest{
		UserID:    userID,
		Operation: op,
		InputPath: "/work/" + "in.mp4",
		InputName: "in.mp4",
		Settings:  settings.Defaults(),
	}
	req.Settings.KeepSource = true
	if mutate != nil {
		mutate(&req)
	}
	return req
}

func submitAndClaim(t *testing.T, f *fixture, req session.OperationRequest) queue.Entry {
	t.Helper()
	ctx := context.Background()
	if _, _, err := f.dispatcher.Submit(ctx, req); err != nil {
		t.Fatalf("submit: %v", err)
	}
	entry, err := f.store.ClaimNext(ctx, req.UserID)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	return entry
}

func jobStatus(t *testing.T, f *fixture, jobID string) queue.Status {
	t.Helper()
	entries, err := f.store.List(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	for _, e := range entries {
		if e.JobID == jobID {
			return e.Status
		}
	}
	t.Fatalf("job %s not found", jobID)
	return ""
}

func TestExecuteTrimSucceedsAndDelivers(t *testing.T) {
	f := newFixture(t)
	entry := submitAndClaim(t, f, request(1, session.OpTrim, func(r *session.OperationRequest) {
		r.Options.Start = "00:00:10"
		r.Options.End = "00:01:10"
	}))

	outcome := f.dispatcher.Execute(context.Background(), entry, nil)
	if !outcome.Success {
		t.Fatalf("expected success, got %+v", outcome)
	}
	if len(outcome.OutputPaths) != 1 || !strings.Contains(outcome.OutputPaths[0], "_trimmed") {
		t.Fatalf("unexpected outputs: %v", outcome.OutputPaths)
	}
	if got := jobStatus(t, f, entry.JobID); got != queue.StatusSucceeded {
		t.Fatalf("status = %v, want succeeded", got)
	}
	if len(f.direct.deliveries) != 1 {
		t.Fatalf("expected one direct delivery, got %d", len(f.direct.deliveries))
	}
	if outcome.Delivered != "direct" {
		t.Fatalf("delivered = %q, want direct", outcome.Delivered)
	}
}

func TestMergeFallbackRunsExactlyOnce(t *testing.T) {
	f := newFixture(t)
	f.runner.script = []runner.Outcome{
		{ErrorMessage: "could not find codec parameters"},
	}

	entry := submitAndClaim(t, f, request(1, session.OpMergeVideos, func(r *session.OperationRequest) {
		r.Options.SecondInput = "/work/second.mp4"
	}))

	outcome := f.dispatcher.Execute(context.Background(), entry, nil)
	if !outcome.Success {
		t.Fatalf("fallback should recover the merge: %+v", outcome)
	}
	if len(f.runner.commands) != 2 {
		t.Fatalf("expected copy attempt plus one fallback, got %d runs", len(f.runner.commands))
	}
	first := strings.Join(f.runner.commands[0].Args, " ")
	second := strings.Join(f.runner.commands[1].Args, " ")
	if !strings.Contains(first, "-f concat") {
		t.Fatalf("first attempt should stream-copy: %q", first)
	}
	if !strings.Contains(second, "concat=n=2:v=1:a=1") {
		t.Fatalf("fallback should re-encode through the filter: %q", second)
	}
}

func TestMergeFallbackFailureIsTerminal(t *testing.T) {
	f := newFixture(t)
	f.runner.script = []runner.Outcome{
		{ErrorMessage: "copy failed"},
		{ErrorMessage: "filter failed"},
	}

	entry := submitAndClaim(t, f, request(1, session.OpMergeVideos, func(r *session.OperationRequest) {
		r.Options.SecondInput = "/work/second.mp4"
	}))

	outcome := f.dispatcher.Execute(context.Background(), entry, nil)
	if outcome.Success {
		t.Fatal("expected failure after fallback failed")
	}
	if len(f.runner.commands) != 2 {
		t.Fatalf("fallback must not retry again, got %d runs", len(f.runner.commands))
	}
	if got := jobStatus(t, f, entry.JobID); got != queue.StatusFailed {
		t.Fatalf("status = %v, want failed", got)
	}
}

func TestCancelledJob(t *testing.T) {
	f := newFixture(t)
	f.runner.script = []runner.Outcome{
		{Cancelled: true, ErrorMessage: "cancelled by user"},
	}

	entry := submitAndClaim(t, f, request(1, session.OpRotate, func(r *session.OperationRequest) {
		r.Options.Rotation = "right"
	}))

	outcome := f.dispatcher.Execute(context.Background(), entry, nil)
	if !outcome.Cancelled || outcome.Success {
		t.Fatalf("expected cancelled outcome, got %+v", outcome)
	}
	if got := jobStatus(t, f, entry.JobID); got != queue.StatusCancelled {
		t.Fatalf("status = %v, want cancelled", got)
	}
	if len(f.direct.deliveries) != 0 {
		t.Fatal("cancelled jobs must not deliver")
	}
}

func TestProcessUserDrainsQueueInOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for _, rotation := range []string{"right", "left"} {
		req := request(1, session.OpRotate, func(r *session.OperationRequest) {
			r.Options.Rotation = rotation
		})
		if _, _, err := f.dispatcher.Submit(ctx, req); err != nil {
			t.Fatalf("submit: %v", err)
		}
	}

	outcomes := f.dispatcher.ProcessUser(ctx, 1)
	if len(outcomes) != 2 {
		t.Fatalf("expected 2 outcomes, got %d", len(outcomes))
	}
	for i, outcome := range outcomes {
		if !outcome.Success {
			t.Fatalf("job %d failed: %+v", i, outcome)
		}
	}
	depth, err := f.store.Depth(ctx, 1)
	if err != nil {
		t.Fatalf("depth: %v", err)
	}
	if depth != 0 {
		t.Fatalf("queue should be drained, depth = %d", depth)
	}
	if strings.Contains(strings.Join(f.runner.commands[0].Args, " "), "transpose=2") {
		t.Fatal("jobs ran out of order")
	}
}

func TestPanicBecomesFailedJob(t *testing.T) {
	f := newFixture(t)
	f.prober.panics = true

	entry := submitAndClaim(t, f, request(1, session.OpClearMetadata, nil))

	outcome := f.dispatcher.Execute(context.Background(), entry, nil)
	if outcome.Success {
		t.Fatal("expected failure from panic")
	}
	if !strings.Contains(outcome.ErrorMessage, "internal error") {
		t.Fatalf("unexpected message: %q", outcome.ErrorMessage)
	}
	if got := jobStatus(t, f, entry.JobID); got != queue.StatusFailed {
		t.Fatalf("status = %v, want failed", got)
	}
}

func TestOversizedOutputGoesToSecondary(t *testing.T) {
	f := newFixture(t)
	f.cfg.Delivery.MaxDirectMB = 1
	f.runner.script = []runner.Outcome{
		{Success: true, OutputSizeBytes: 5 << 20},
	}

	entry := submitAndClaim(t, f, request(1, session.OpClearMetadata, nil))

	outcome := f.dispatcher.Execute(context.Background(), entry, nil)
	if !outcome.Success {
		t.Fatalf("unexpected failure: %+v", outcome)
	}
	if outcome.Delivered != "s3" {
		t.Fatalf("delivered = %q, want s3", outcome.Delivered)
	}
	if len(f.secondary.deliveries) != 1 || len(f.direct.deliveries) != 0 {
		t.Fatalf("expected secondary delivery only: direct=%d secondary=%d",
			len(f.direct.deliveries), len(f.secondary.deliveries))
	}
}

func TestS3PreferenceRoutesToSecondary(t *testing.T) {
	f := newFixture(t)

	entry := submitAndClaim(t, f, request(1, session.OpClearMetadata, func(r *session.OperationRequest) {
		r.Settings.Destination = settings.DestinationS3
	}))

	outcome := f.dispatcher.Execute(context.Background(), entry, nil)
	if outcome.Delivered != "s3" {
		t.Fatalf("delivered = %q, want s3", outcome.Delivered)
	}
}

func TestConvertToSameContainerFails(t *testing.T) {
	f := newFixture(t)

	entry := submitAndClaim(t, f, request(1, session.OpConvert, func(r *session.OperationRequest) {
		r.Options.Container = "mp4"
	}))

	outcome := f.dispatcher.Execute(context.Background(), entry, nil)
	if outcome.Success {
		t.Fatal("expected validation failure")
	}
	if !strings.Contains(outcome.ErrorMessage, "already") {
		t.Fatalf("unexpected message: %q", outcome.ErrorMessage)
	}
	if len(f.runner.commands) != 0 {
		t.Fatal("nothing should run for an invalid request")
	}
}

func TestScreenshotsRunMultipleCommands(t *testing.T) {
	f := newFixture(t)

	entry := submitAndClaim(t, f, request(1, session.OpExtractScreenshots, func(r *session.OperationRequest) {
		r.Options.ScreenshotCount = 3
	}))

	outcome := f.dispatcher.Execute(context.Background(), entry, nil)
	if !outcome.Success {
		t.Fatalf("unexpected failure: %+v", outcome)
	}
	if len(f.runner.commands) != 3 {
		t.Fatalf("expected 3 capture commands, got %d", len(f.runner.commands))
	}
	if len(outcome.OutputPaths) != 3 {
		t.Fatalf("expected 3 outputs, got %v", outcome.OutputPaths)
	}
}

func TestScreenshotCountIsCapped(t *testing.T) {
	f := newFixture(t)
	f.cfg.Queue.ScreenshotCountLimit = 2

	entry := submitAndClaim(t, f, request(1, session.OpExtractScreenshots, func(r *session.OperationRequest) {
		r.Options.ScreenshotCount = 50
	}))

	outcome := f.dispatcher.Execute(context.Background(), entry, nil)
	if !outcome.Success {
		t.Fatalf("unexpected failure: %+v", outcome)
	}
	if len(f.runner.commands) != 2 {
		t.Fatalf("expected capture count capped at 2, got %d", len(f.runner.commands))
	}
}

func TestProbeCancellationCancelsJob(t *testing.T) {
	f := newFixture(t)
	f.prober.err = services.Wrap(services.ErrCancelled, "probe", "inspect", "", context.Canceled)

	entry := submitAndClaim(t, f, request(1, session.OpClearMetadata, nil))

	outcome := f.dispatcher.Execute(context.Background(), entry, nil)
	if !outcome.Cancelled {
		t.Fatalf("expected cancelled outcome, got %+v", outcome)
	}
	if len(f.runner.commands) != 0 {
		t.Fatalf("no commands should run after a cancelled probe, got %d", len(f.runner.commands))
	}
	if got := jobStatus(t, f, entry.JobID); got != queue.StatusCancelled {
		t.Fatalf("status = %v, want cancelled", got)
	}
}

func TestProbeTimeoutDegradesToUnknownDuration(t *testing.T) {
	f := newFixture(t)
	f.prober.err = services.Wrap(services.ErrTimeout, "probe", "inspect", "ffprobe timed out", nil)
	f.prober.result = ffprobe.Result{}

	entry := submitAndClaim(t, f, request(1, session.OpClearMetadata, nil))

	outcome := f.dispatcher.Execute(context.Background(), entry, nil)
	if !outcome.Success {
		t.Fatalf("timed-out probe must degrade, not fail: %+v", outcome)
	}
	if len(f.runner.commands) != 1 {
		t.Fatalf("expected the job to run anyway, got %d commands", len(f.runner.commands))
	}
}

func TestUnknownOperationFailsJob(t *testing.T) {
	f := newFixture(t)

	entry := testsupport.NewEntry(t, f.store, 7, "definitely_not_real", "/work/in.mp4")

	outcome := f.dispatcher.Execute(context.Background(), entry, nil)
	if outcome.Success {
		t.Fatal("unknown operation must fail")
	}
	if len(f.runner.commands) != 0 {
		t.Fatalf("nothing should run, got %d commands", len(f.runner.commands))
	}
	if got := jobStatus(t, f, entry.JobID); got != queue.StatusFailed {
		t.Fatalf("status = %v, want failed", got)
	}
}

func TestStoredLosslessCRFReachesEncoder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	settingsStore := testsupport.MustOpenSettings(t, f.cfg)
	stored := settings.Defaults()
	stored.CRF = 0
	stored.KeepSource = true
	if err := settingsStore.Set(ctx, 1, stored); err != nil {
		t.Fatalf("set settings: %v", err)
	}
	stored, err := settingsStore.Get(ctx, 1)
	if err != nil {
		t.Fatalf("get settings: %v", err)
	}

	entry := submitAndClaim(t, f, request(1, session.OpEncode, func(r *session.OperationRequest) {
		r.Settings = stored
	}))

	outcome := f.dispatcher.Execute(ctx, entry, nil)
	if !outcome.Success {
		t.Fatalf("unexpected failure: %+v", outcome)
	}
	args := strings.Join(f.runner.commands[0].Args, " ")
	if !strings.Contains(args, "-crf 0") {
		t.Fatalf("stored zero CRF must survive to the encoder, got %q", args)
	}
}
