package session

import (
	"context"
	"testing"

	"github.com/shohan-001/ffmpeg-video-bot/internal/ffmpeg"
	"github.com/shohan-001/ffmpeg-video-bot/internal/ffmpeg/runner"
	"github.com/shohan-001/ffmpeg-video-bot/internal/settings"
)

type fakeSettings struct {
	stored map[int64]settings.Settings
}

func (f *fakeSettings) Get(_ context.Context, userID int64) (settings.Settings, error) {
	if s, ok := f.stored[userID]; ok {
		s.UserID = userID
		return s, nil
	}
	defaults := settings.Defaults()
	defaults.UserID = userID
	return defaults, nil
}

func newTestManager() *Manager {
	return NewManager(&fakeSettings{stored: map[int64]settings.Settings{}}, nil)
}

func attach(t *testing.T, m *Manager, userID int64) {
	t.Helper()
	_, err := m.AttachFile(context.Background(), userID, AttachedFile{
		Path: "/work/7/video.mp4",
		Name: "video.mp4",
		Size: 1024,
	})
	if err != nil {
		t.Fatalf("attach: %v", err)
	}
}

func TestAttachFileSnapshotsSettings(t *testing.T) {
	source := &fakeSettings{stored: map[int64]settings.Settings{
		7: func() settings.Settings {
			s := settings.Defaults()
			s.CRF = 19
			return s
		}(),
	}}
	m := NewManager(source, nil)

	sess, err := m.AttachFile(context.Background(), 7, AttachedFile{Path: "/work/7/a.mp4", Name: "a.mp4"})
	if err != nil {
		t.Fatalf("attach: %v", err)
	}
	if sess.Settings.CRF != 19 {
		t.Fatalf("expected settings snapshot with crf 19, got %d", sess.Settings.CRF)
	}
	if !sess.HasFile() {
		t.Fatal("expected attached file")
	}
}

func TestAttachFileResetsPendingState(t *testing.T) {
	m := newTestManager()
	attach(t, m, 1)
	if err := m.SetOperation(1, OpTrim); err != nil {
		t.Fatalf("set operation: %v", err)
	}
	m.MergeOptions(1, func(o *ffmpeg.Options) { o.Start = "00:00:10" })

	attach(t, m, 1)
	sess := m.Get(1)
	if sess.PendingOperation != "" || sess.PendingOptions.Start != "" {
		t.Fatalf("new attach should clear pending state: %+v", sess)
	}
}

func TestSetOperationRejectsUnknown(t *testing.T) {
	m := newTestManager()
	if err := m.SetOperation(1, Operation("interpolate")); err == nil {
		t.Fatal("expected error for unknown operation")
	}
}

func TestSetOperationParksForSecondInput(t *testing.T) {
	m := newTestManager()
	attach(t, m, 1)
	if err := m.SetOperation(1, OpMergeVideos); err != nil {
		t.Fatalf("set operation: %v", err)
	}
	if got := m.Awaiting(1); got != AwaitSecondVideo {
		t.Fatalf("expected AwaitSecondVideo, got %v", got)
	}
	if err := m.SetOperation(1, OpRotate); err != nil {
		t.Fatalf("set operation: %v", err)
	}
	if got := m.Awaiting(1); got != AwaitNone {
		t.Fatalf("rotate needs no second input, got %v", got)
	}
}

func TestMergeOptionsAccumulates(t *testing.T) {
	m := newTestManager()
	attach(t, m, 1)
	m.MergeOptions(1, func(o *ffmpeg.Options) { o.Start = "00:00:05" })
	m.MergeOptions(1, func(o *ffmpeg.Options) { o.End = "00:01:00" })

	sess := m.Get(1)
	if sess.PendingOptions.Start != "00:00:05" || sess.PendingOptions.End != "00:01:00" {
		t.Fatalf("options not accumulated: %+v", sess.PendingOptions)
	}
}

func TestFreezeRequiresFileAndOperation(t *testing.T) {
	m := newTestManager()

	if _, err := m.Freeze(1); err == nil {
		t.Fatal("expected error without attached file")
	}

	attach(t, m, 1)
	if _, err := m.Freeze(1); err == nil {
		t.Fatal("expected error without selected operation")
	}
}

func TestFreezeRequiresSecondInput(t *testing.T) {
	m := newTestManager()
	attach(t, m, 1)
	if err := m.SetOperation(1, OpAddAudio); err != nil {
		t.Fatalf("set operation: %v", err)
	}

	if _, err := m.Freeze(1); err == nil {
		t.Fatal("expected error while second input missing")
	}

	m.MergeOptions(1, func(o *ffmpeg.Options) { o.SecondInput = "/work/1/track.mp3" })
	req, err := m.Freeze(1)
	if err != nil {
		t.Fatalf("freeze: %v", err)
	}
	if req.Options.SecondInput != "/work/1/track.mp3" {
		t.Fatalf("second input lost: %+v", req.Options)
	}
}

func TestFreezeSnapshotIsIndependent(t *testing.T) {
	m := newTestManager()
	attach(t, m, 1)
	if err := m.SetOperation(1, OpEditMetadata); err != nil {
		t.Fatalf("set operation: %v", err)
	}
	m.MergeOptions(1, func(o *ffmpeg.Options) {
		o.Metadata = map[string]string{"title": "before"}
	})

	req, err := m.Freeze(1)
	if err != nil {
		t.Fatalf("freeze: %v", err)
	}

	m.MergeOptions(1, func(o *ffmpeg.Options) { o.Metadata["title"] = "after" })
	if req.Options.Metadata["title"] != "before" {
		t.Fatalf("frozen request mutated: %+v", req.Options.Metadata)
	}
	if req.InputPath != "/work/7/video.mp4" || req.Operation != OpEditMetadata {
		t.Fatalf("unexpected request: %+v", req)
	}
}

func TestActiveJobLifecycle(t *testing.T) {
	m := newTestManager()
	job := runner.NewJob()

	if m.CancelActive(1) {
		t.Fatal("cancel with no active job should report false")
	}

	m.SetActiveJob(1, job)
	if !m.Get(1).Busy() {
		t.Fatal("expected busy session")
	}
	if !m.CancelActive(1) {
		t.Fatal("expected cancel to reach the job")
	}
	if !job.IsCancelled() {
		t.Fatal("job should be cancelled")
	}

	m.ClearActiveJob(1, "/out/1/video.mp4")
	sess := m.Get(1)
	if sess.Busy() {
		t.Fatal("expected idle session after clear")
	}
	if sess.LastOutputPath != "/out/1/video.mp4" {
		t.Fatalf("last output not recorded: %q", sess.LastOutputPath)
	}
}

func TestResetKeepsRunningJob(t *testing.T) {
	m := newTestManager()
	attach(t, m, 1)
	job := runner.NewJob()
	m.SetActiveJob(1, job)

	m.Reset(1)
	sess := m.Get(1)
	if sess.HasFile() {
		t.Fatal("reset should drop the attached file")
	}
	if sess.ActiveJob != job {
		t.Fatal("reset should keep the running job handle")
	}
}

func TestParseOperation(t *testing.T) {
	op, err := ParseOperation("  Extract_Audio ")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if op != OpExtractAudio {
		t.Fatalf("got %v", op)
	}
	if _, err := ParseOperation("upscale"); err == nil {
		t.Fatal("expected error for unknown operation")
	}
}
