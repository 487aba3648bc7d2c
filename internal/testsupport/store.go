package testsupport

import (
	"context"
	"testing"

	"github.com/shohan-001/ffmpeg-video-bot/internal/config"
	"github.com/shohan-001/ffmpeg-video-bot/internal/queue"
	"github.com/shohan-001/ffmpeg-video-bot/internal/settings"
)

// MustOpenStore opens a queue.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *queue.Store {
	t.Helper()

	store, err := queue.Open(cfg.Paths.DatabasePath, cfg.Queue.MaxDepth)
	if err != nil {
		t.Fatalf("queue.Open: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}

// MustOpenSettings opens a settings.Store for tests and registers cleanup.
func MustOpenSettings(t testing.TB, cfg *config.Config) *settings.Store {
	t.Helper()

	store, err := settings.Open(cfg.Paths.DatabasePath)
	if err != nil {
		t.Fatalf("settings.Open: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}

// NewEntry enqueues a job for tests using the provided store.
func NewEntry(t testing.TB, store *queue.Store, userID int64, operation, inputPath string) queue.Entry {
	t.Helper()

	entry, _, err := store.Enqueue(context.Background(), userID, operation, "{}", inputPath)
	if err != nil {
		t.Fatalf("store.Enqueue: %v", err)
	}
	return entry
}
