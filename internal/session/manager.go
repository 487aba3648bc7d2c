package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/shohan-001/ffmpeg-video-bot/internal/ffmpeg"
	"github.com/shohan-001/ffmpeg-video-bot/internal/ffmpeg/runner"
	"github.com/shohan-001/ffmpeg-video-bot/internal/logging"
	"github.com/shohan-001/ffmpeg-video-bot/internal/settings"
)

// SettingsSource supplies stored per-user settings; *settings.Store satisfies
// it.
type SettingsSource interface {
	Get(ctx context.Context, userID int64) (settings.Settings, error)
}

// Manager owns all sessions, keyed by user ID. The transport serializes
// updates per user; the lock keeps the map safe across users.
type Manager struct {
	mu       sync.RWMutex
	sessions map[int64]*Session
	settings SettingsSource
	logger   *slog.Logger
}

// NewManager builds a session manager backed by the given settings source.
func NewManager(source SettingsSource, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Manager{
		sessions: make(map[int64]*Session),
		settings: source,
		logger:   logging.WithComponent(logger, "session"),
	}
}

// Get returns the user's session, creating an empty one on first touch.
func (m *Manager) Get(userID int64) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.locked(userID)
}

func (m *Manager) locked(userID int64) *Session {
	sess, ok := m.sessions[userID]
	if !ok {
		sess = &Session{UserID: userID}
		m.sessions[userID] = sess
	}
	return sess
}

// AttachFile records a newly received media file and snapshots the user's
// stored settings, clearing any half-assembled operation from before.
func (m *Manager) AttachFile(ctx context.Context, userID int64, file AttachedFile) (*Session, error) {
	snapshot, err := m.settings.Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load settings for user %d: %w", userID, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	sess := m.locked(userID)
	sess.Attached = file
	sess.PendingOperation = ""
	sess.PendingOptions = ffmpeg.Options{}
	sess.Settings = snapshot
	sess.Awaiting = AwaitNone
	sess.UpdatedAt = time.Now()

	m.logger.Debug("file attached",
		logging.Int64(logging.FieldUserID, userID),
		logging.String(logging.FieldPath, file.Path))
	return sess, nil
}

// SetOperation selects the operation the user is assembling. The attached
// file and settings snapshot are kept; options accumulated for a previous
// operation are discarded.
func (m *Manager) SetOperation(userID int64, op Operation) error {
	if !op.Valid() {
		return fmt.Errorf("unknown operation %q", op)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	sess := m.locked(userID)
	sess.PendingOperation = op
	sess.PendingOptions = ffmpeg.Options{}
	sess.Awaiting = op.SecondInputKind()
	sess.UpdatedAt = time.Now()
	return nil
}

// MergeOptions applies mutate to the session's accumulated options.
func (m *Manager) MergeOptions(userID int64, mutate func(*ffmpeg.Options)) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess := m.locked(userID)
	mutate(&sess.PendingOptions)
	sess.UpdatedAt = time.Now()
}

// Await parks the session until the user supplies the named input.
func (m *Manager) Await(userID int64, input AwaitingInput) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess := m.locked(userID)
	sess.Awaiting = input
	sess.UpdatedAt = time.Now()
}

// ClearAwait releases a parked session.
func (m *Manager) ClearAwait(userID int64) {
	m.Await(userID, AwaitNone)
}

// Awaiting returns what input, if any, the session is parked on.
func (m *Manager) Awaiting(userID int64) AwaitingInput {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if sess, ok := m.sessions[userID]; ok {
		return sess.Awaiting
	}
	return AwaitNone
}

// Freeze validates the assembled state and returns an immutable request for
// dispatch. The session keeps its attached file so the user can run another
// operation on the same input afterwards.
func (m *Manager) Freeze(userID int64) (OperationRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess := m.locked(userID)
	if sess.Attached.Path == "" {
		return OperationRequest{}, fmt.Errorf("no file attached for user %d", userID)
	}
	if !sess.PendingOperation.Valid() {
		return OperationRequest{}, fmt.Errorf("no operation selected for user %d", userID)
	}
	if kind := sess.PendingOperation.SecondInputKind(); kind != AwaitNone && sess.PendingOptions.SecondInput == "" {
		return OperationRequest{}, fmt.Errorf("operation %s still waiting for %s", sess.PendingOperation, kind)
	}

	req := OperationRequest{
		UserID:    userID,
		Operation: sess.PendingOperation,
		Options:   sess.PendingOptions,
		InputPath: sess.Attached.Path,
		InputName: sess.Attached.Name,
		InputSize: sess.Attached.Size,
		Settings:  sess.Settings,
	}
	if req.Options.Metadata != nil {
		copied := make(map[string]string, len(req.Options.Metadata))
		for k, v := range req.Options.Metadata {
			copied[k] = v
		}
		req.Options.Metadata = copied
	}

	sess.Awaiting = AwaitNone
	sess.UpdatedAt = time.Now()
	return req, nil
}

// SetActiveJob records the cancelable handle for the user's running job.
func (m *Manager) SetActiveJob(userID int64, job *runner.Job) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess := m.locked(userID)
	sess.ActiveJob = job
	sess.UpdatedAt = time.Now()
}

// ClearActiveJob drops the handle once the job reached a terminal state,
// recording where the output landed.
func (m *Manager) ClearActiveJob(userID int64, outputPath string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess := m.locked(userID)
	sess.ActiveJob = nil
	if outputPath != "" {
		sess.LastOutputPath = outputPath
	}
	sess.UpdatedAt = time.Now()
}

// CancelActive cancels the user's running job if there is one.
func (m *Manager) CancelActive(userID int64) bool {
	m.mu.RLock()
	sess, ok := m.sessions[userID]
	m.mu.RUnlock()

	if !ok || sess.ActiveJob == nil {
		return false
	}
	sess.ActiveJob.Cancel()
	m.logger.Info("job cancellation requested", logging.Int64(logging.FieldUserID, userID))
	return true
}

// Reset drops everything for the user except a running job handle.
func (m *Manager) Reset(userID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess, ok := m.sessions[userID]
	if !ok {
		return
	}
	active := sess.ActiveJob
	m.sessions[userID] = &Session{UserID: userID, ActiveJob: active, UpdatedAt: time.Now()}
}
