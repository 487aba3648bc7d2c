package logging

import (
	"context"
	"log/slog"

	"github.com/shohan-001/ffmpeg-video-bot/internal/services"
)

// Shared attribute keys so log lines stay greppable across packages.
const (
	FieldComponent = "component"
	FieldUserID    = "user_id"
	FieldJobID     = "job_id"
	FieldOperation = "operation"
	FieldStage     = "stage"
	FieldPath      = "path"
	FieldDuration  = "duration"
	FieldError     = "error"
)

// Attr aliases slog.Attr so call sites only import this package.
type Attr = slog.Attr

func String(key, value string) Attr { return slog.String(key, value) }

func Int(key string, value int) Attr { return slog.Int(key, value) }

func Int64(key string, value int64) Attr { return slog.Int64(key, value) }

func Float64(key string, value float64) Attr { return slog.Float64(key, value) }

func Bool(key string, value bool) Attr { return slog.Bool(key, value) }

func Any(key string, value any) Attr { return slog.Any(key, value) }

// Error returns a standard error attribute, or an empty attr for nil.
func Error(err error) Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any(FieldError, err)
}

// Args converts attrs to the variadic ...any form slog methods accept.
func Args(attrs ...Attr) []any {
	args := make([]any, 0, len(attrs))
	for _, attr := range attrs {
		if attr.Equal(slog.Attr{}) {
			continue
		}
		args = append(args, attr)
	}
	return args
}

// WithComponent tags a logger with a component name used by the console
// handler's "component: message" prefix.
func WithComponent(logger *slog.Logger, component string) *slog.Logger {
	if logger == nil {
		return NewNop()
	}
	return logger.With(String(FieldComponent, component))
}

// FromContext extends logger with the user, job, and stage identifiers the
// dispatcher annotates onto request contexts.
func FromContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	if id, ok := services.UserIDFromContext(ctx); ok {
		logger = logger.With(Int64(FieldUserID, id))
	}
	if id, ok := services.JobIDFromContext(ctx); ok {
		logger = logger.With(String(FieldJobID, id))
	}
	if stage, ok := services.StageFromContext(ctx); ok {
		logger = logger.With(String(FieldStage, stage))
	}
	return logger
}

// NewNop returns a logger that discards everything.
func NewNop() *slog.Logger {
	return slog.New(nopHandler{})
}

type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }
