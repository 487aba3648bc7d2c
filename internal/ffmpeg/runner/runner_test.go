package runner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shohan-001/ffmpeg-video-bot/internal/ffmpeg"
)

// fakeExecutor replays scripted stdout/stderr lines and records the args it
// was invoked with.
type fakeExecutor struct {
	stdout []string
	stderr []string
	err    error

	gotBinary string
	gotArgs   []string
	onRun     func()
}

func (f *fakeExecutor) Run(_ context.Context, binary string, args []string, onStdout, onStderr func(string)) error {
	f.gotBinary = binary
	f.gotArgs = args
	if f.onRun != nil {
		f.onRun()
	}
	for _, line := range f.stdout {
		onStdout(line)
	}
	for _, line := range f.stderr {
		onStderr(line)
	}
	return f.err
}

func TestRunInjectsProgressPrefix(t *testing.T) {
	exec := &fakeExecutor{}
	r := New("ffmpeg", WithExecutor(exec))

	cmd := ffmpeg.Command{Args: []string{"-i", "in.mp4", "out.mp4"}}
	r.Run(context.Background(), nil, cmd, 0, nil)

	want := []string{"-y", "-hide_banner", "-progress", "pipe:1", "-i", "in.mp4", "out.mp4"}
	if strings.Join(exec.gotArgs, " ") != strings.Join(want, " ") {
		t.Fatalf("args = %v, want %v", exec.gotArgs, want)
	}
}

func TestRunForwardsOutTime(t *testing.T) {
	exec := &fakeExecutor{stdout: []string{
		"frame=100",
		"out_time_ms=30000000",
		"speed=2.1x",
		"out_time_ms=60000000",
		"progress=end",
	}}
	r := New("ffmpeg", WithExecutor(exec))

	var seen []float64
	outcome := r.Run(context.Background(), nil, ffmpeg.Command{Args: []string{"-i", "in", "out"}}, 120, func(s float64) {
		seen = append(seen, s)
	})

	if !outcome.Success {
		t.Fatalf("expected success, got %+v", outcome)
	}
	if len(seen) != 2 || seen[0] != 30 || seen[1] != 60 {
		t.Fatalf("progress callbacks = %v", seen)
	}
}

func TestRunSuppressesProgressWithoutDuration(t *testing.T) {
	exec := &fakeExecutor{stdout: []string{"out_time_ms=30000000"}}
	r := New("ffmpeg", WithExecutor(exec))

	called := false
	r.Run(context.Background(), nil, ffmpeg.Command{Args: []string{"-i", "in", "out"}}, 0, func(float64) {
		called = true
	})
	if called {
		t.Fatal("progress must be suppressed when duration is unknown")
	}
}

func TestRunIgnoresMalformedOutTime(t *testing.T) {
	exec := &fakeExecutor{stdout: []string{"out_time_ms=N/A", "out_time_ms=-5", "out_time_ms="}}
	r := New("ffmpeg", WithExecutor(exec))

	called := false
	r.Run(context.Background(), nil, ffmpeg.Command{Args: []string{"-i", "in", "out"}}, 60, func(float64) {
		called = true
	})
	if called {
		t.Fatal("malformed lines must not reach the sink")
	}
}

func TestRunFailureCapturesStderrTail(t *testing.T) {
	dir := t.TempDir()
	partial := filepath.Join(dir, "out.mp4")
	if err := os.WriteFile(partial, []byte("partial"), 0o644); err != nil {
		t.Fatal(err)
	}

	var lines []string
	for i := 0; i < 40; i++ {
		lines = append(lines, fmt.Sprintf("stderr line %d", i))
	}
	exec := &fakeExecutor{stderr: lines, err: errors.New("exit status 1")}
	r := New("ffmpeg", WithExecutor(exec), WithStderrTail(5))

	outcome := r.Run(context.Background(), nil, ffmpeg.Command{Args: []string{"-i", "in", partial}, Outputs: []string{partial}}, 0, nil)

	if outcome.Success || outcome.Cancelled {
		t.Fatalf("expected plain failure, got %+v", outcome)
	}
	if strings.Contains(outcome.ErrorMessage, "stderr line 34") {
		t.Fatalf("tail should keep only the last 5 lines: %q", outcome.ErrorMessage)
	}
	if !strings.Contains(outcome.ErrorMessage, "stderr line 39") {
		t.Fatalf("tail missing final line: %q", outcome.ErrorMessage)
	}
	if _, err := os.Stat(partial); !os.IsNotExist(err) {
		t.Fatal("partial output should be removed on failure")
	}
}

func TestRunCancelledOutcome(t *testing.T) {
	dir := t.TempDir()
	partial := filepath.Join(dir, "out.mp4")
	if err := os.WriteFile(partial, []byte("partial"), 0o644); err != nil {
		t.Fatal(err)
	}

	job := NewJob()
	exec := &fakeExecutor{err: context.Canceled}
	exec.onRun = job.Cancel

	r := New("ffmpeg", WithExecutor(exec))
	outcome := r.Run(context.Background(), job, ffmpeg.Command{Args: []string{"-i", "in", partial}, Outputs: []string{partial}}, 0, nil)

	if !outcome.Cancelled {
		t.Fatalf("expected cancelled outcome, got %+v", outcome)
	}
	if outcome.Success {
		t.Fatal("cancelled outcome must not be success")
	}
	if _, err := os.Stat(partial); !os.IsNotExist(err) {
		t.Fatal("partial output should be removed on cancel")
	}
}

func TestCancelBeforeBind(t *testing.T) {
	job := NewJob()
	job.Cancel()

	exec := &fakeExecutor{err: context.Canceled}
	r := New("ffmpeg", WithExecutor(exec))
	outcome := r.Run(context.Background(), job, ffmpeg.Command{Args: []string{"-i", "in", "out"}}, 0, nil)
	if !outcome.Cancelled {
		t.Fatalf("expected cancelled outcome, got %+v", outcome)
	}
}

func TestRunSuccessReportsOutputSize(t *testing.T) {
	dir := t.TempDir()
	output := filepath.Join(dir, "out.mp4")
	if err := os.WriteFile(output, []byte("0123456789"), 0o644); err != nil {
		t.Fatal(err)
	}

	exec := &fakeExecutor{stdout: []string{"progress=end"}}
	r := New("ffmpeg", WithExecutor(exec))
	outcome := r.Run(context.Background(), nil, ffmpeg.Command{Args: []string{"-i", "in", output}, Outputs: []string{output}}, 0, nil)

	if !outcome.Success {
		t.Fatalf("expected success, got %+v", outcome)
	}
	if outcome.OutputSizeBytes != 10 {
		t.Fatalf("OutputSizeBytes = %d, want 10", outcome.OutputSizeBytes)
	}
	if len(outcome.Outputs) != 1 || outcome.Outputs[0] != output {
		t.Fatalf("Outputs = %v", outcome.Outputs)
	}
}

func TestParseOutTime(t *testing.T) {
	if s, ok := parseOutTime("out_time_ms=60000000"); !ok || s != 60 {
		t.Fatalf("parseOutTime = %v %v", s, ok)
	}
	if _, ok := parseOutTime("frame=42"); ok {
		t.Fatal("non-progress line should not parse")
	}
}
