package session

import (
	"time"

	"github.com/shohan-001/ffmpeg-video-bot/internal/ffmpeg"
	"github.com/shohan-001/ffmpeg-video-bot/internal/ffmpeg/runner"
	"github.com/shohan-001/ffmpeg-video-bot/internal/settings"
)

// AwaitingInput names the piece of input a session is parked on. It replaces
// free-form state strings so handlers can switch exhaustively.
type AwaitingInput int

const (
	AwaitNone AwaitingInput = iota
	AwaitMetadataText
	AwaitWatermarkText
	AwaitWatermarkImage
	AwaitTrimRange
	AwaitSubtitleFile
	AwaitAudioFile
	AwaitSecondVideo
	AwaitRenameText
	AwaitCustomCommand
	AwaitIntroText
	AwaitSpeedFactor
	AwaitThumbnailImage
	AwaitSettingValue
)

var awaitNames = map[AwaitingInput]string{
	AwaitNone:           "none",
	AwaitMetadataText:   "metadata_text",
	AwaitWatermarkText:  "watermark_text",
	AwaitWatermarkImage: "watermark_image",
	AwaitTrimRange:      "trim_range",
	AwaitSubtitleFile:   "subtitle_file",
	AwaitAudioFile:      "audio_file",
	AwaitSecondVideo:    "second_video",
	AwaitRenameText:     "rename_text",
	AwaitCustomCommand:  "custom_command",
	AwaitIntroText:      "intro_text",
	AwaitSpeedFactor:    "speed_factor",
	AwaitThumbnailImage: "thumbnail_image",
	AwaitSettingValue:   "setting_value",
}

func (a AwaitingInput) String() string {
	if name, ok := awaitNames[a]; ok {
		return name
	}
	return "unknown"
}

// AttachedFile describes the media file a session is currently working on.
type AttachedFile struct {
	Path string
	Name string
	Size int64
}

// Session is one user's in-flight conversational state.
type Session struct {
	UserID           int64
	Attached         AttachedFile
	PendingOperation Operation
	PendingOptions   ffmpeg.Options
	Settings         settings.Settings
	Awaiting         AwaitingInput
	ActiveJob        *runner.Job
	LastOutputPath   string
	UpdatedAt        time.Time
}

// HasFile reports whether a media file is attached.
func (s *Session) HasFile() bool {
	return s != nil && s.Attached.Path != ""
}

// Busy reports whether a job is currently running for this session.
func (s *Session) Busy() bool {
	return s != nil && s.ActiveJob != nil
}

// OperationRequest is a frozen snapshot handed to the dispatcher. Mutating
// the session afterwards does not affect a request already taken.
type OperationRequest struct {
	UserID    int64
	Operation Operation
	Options   ffmpeg.Options
	InputPath string
	InputName string
	InputSize int64
	Settings  settings.Settings
}
