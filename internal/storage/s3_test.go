package storage

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/shohan-001/ffmpeg-video-bot/internal/services"
	"github.com/shohan-001/ffmpeg-video-bot/internal/testsupport"
)

type fakePutter struct {
	keys   []string
	bodies []string
	err    error
}

func (f *fakePutter) PutObject(_ context.Context, input *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	body, err := io.ReadAll(input.Body)
	if err != nil {
		return nil, err
	}
	f.keys = append(f.keys, *input.Key)
	f.bodies = append(f.bodies, string(body))
	return &s3.PutObjectOutput{}, nil
}

func writeTempFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	return path
}

func TestDeliverUploadsEveryArtifact(t *testing.T) {
	putter := &fakePutter{}
	uploader := newS3Uploader(putter, "clips", "eu-west-1", "outputs", nil)

	first := writeTempFile(t, "a.mp4", "video-a")
	second := writeTempFile(t, "b.mp4", "video-b")

	receipt, err := uploader.Deliver(context.Background(), Delivery{
		UserID: 42,
		Paths:  []string{first, second},
	})
	if err != nil {
		t.Fatalf("deliver: %v", err)
	}

	if receipt.Destination != "s3" {
		t.Fatalf("destination = %q, want s3", receipt.Destination)
	}
	wantKeys := []string{"outputs/42/a.mp4", "outputs/42/b.mp4"}
	if len(putter.keys) != 2 || putter.keys[0] != wantKeys[0] || putter.keys[1] != wantKeys[1] {
		t.Fatalf("keys = %v, want %v", putter.keys, wantKeys)
	}
	if putter.bodies[0] != "video-a" || putter.bodies[1] != "video-b" {
		t.Fatalf("bodies = %v", putter.bodies)
	}
	wantURL := "https://clips.s3.eu-west-1.amazonaws.com/outputs/42/a.mp4"
	if receipt.URLs[0] != wantURL {
		t.Fatalf("url = %q, want %q", receipt.URLs[0], wantURL)
	}
}

func TestDeliverStreamsLargeFile(t *testing.T) {
	putter := &fakePutter{}
	uploader := newS3Uploader(putter, "clips", "eu-west-1", "", nil)

	path := filepath.Join(t.TempDir(), "big.mkv")
	testsupport.WriteFile(t, path, 256<<10)

	if _, err := uploader.Deliver(context.Background(), Delivery{UserID: 1, Paths: []string{path}}); err != nil {
		t.Fatalf("deliver: %v", err)
	}
	if len(putter.bodies) != 1 || len(putter.bodies[0]) != 256<<10 {
		t.Fatalf("expected the full file streamed, got %d bytes", len(putter.bodies[0]))
	}
}

func TestDeliverWithoutPrefix(t *testing.T) {
	putter := &fakePutter{}
	uploader := newS3Uploader(putter, "clips", "us-east-1", "", nil)

	path := writeTempFile(t, "c.mp4", "video-c")
	if _, err := uploader.Deliver(context.Background(), Delivery{UserID: 7, Paths: []string{path}}); err != nil {
		t.Fatalf("deliver: %v", err)
	}
	if putter.keys[0] != "7/c.mp4" {
		t.Fatalf("key = %q, want 7/c.mp4", putter.keys[0])
	}
}

func TestDeliverFailsOnUploadError(t *testing.T) {
	putter := &fakePutter{err: errors.New("access denied")}
	uploader := newS3Uploader(putter, "clips", "us-east-1", "", nil)

	path := writeTempFile(t, "d.mp4", "video-d")
	_, err := uploader.Deliver(context.Background(), Delivery{UserID: 7, Paths: []string{path}})
	if err == nil {
		t.Fatal("expected upload error")
	}
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected ErrExternalTool, got %v", err)
	}
}

func TestDeliverRejectsMissingFile(t *testing.T) {
	uploader := newS3Uploader(&fakePutter{}, "clips", "us-east-1", "", nil)

	_, err := uploader.Deliver(context.Background(), Delivery{UserID: 7, Paths: []string{"/no/such/file.mp4"}})
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDeliverRejectsEmptyDelivery(t *testing.T) {
	uploader := newS3Uploader(&fakePutter{}, "clips", "us-east-1", "", nil)

	_, err := uploader.Deliver(context.Background(), Delivery{UserID: 7})
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}
