package ffprobe

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// StreamsByType filters streams by codec type ("video", "audio", "subtitle").
func (r Result) StreamsByType(codecType string) []Stream {
	var out []Stream
	for _, stream := range r.Streams {
		if strings.EqualFold(stream.CodecType, codecType) {
			out = append(out, stream)
		}
	}
	return out
}

// VideoStreams returns all video streams excluding attached pictures.
func (r Result) VideoStreams() []Stream {
	var out []Stream
	for _, stream := range r.StreamsByType("video") {
		if stream.Disposition.AttachedPic != 0 {
			continue
		}
		out = append(out, stream)
	}
	return out
}

// AudioStreams returns all audio streams in container order.
func (r Result) AudioStreams() []Stream {
	return r.StreamsByType("audio")
}

// SubtitleStreams returns all subtitle streams in container order.
func (r Result) SubtitleStreams() []Stream {
	return r.StreamsByType("subtitle")
}

// FirstVideo returns the primary video stream, if any.
func (r Result) FirstVideo() (Stream, bool) {
	streams := r.VideoStreams()
	if len(streams) == 0 {
		return Stream{}, false
	}
	return streams[0], true
}

// Resolution returns the primary video dimensions, or zeros when no video
// stream exists.
func (r Result) Resolution() (width, height int) {
	if video, ok := r.FirstVideo(); ok {
		return video.Width, video.Height
	}
	return 0, 0
}

// Label builds a short human-readable description of a stream for chat
// prompts, like "aac (English)" or "h264 1920x1080".
func (s Stream) Label() string {
	codec := s.CodecName
	if codec == "" {
		codec = "unknown"
	}
	switch strings.ToLower(s.CodecType) {
	case "video":
		if s.Width > 0 && s.Height > 0 {
			return fmt.Sprintf("%s %dx%d", codec, s.Width, s.Height)
		}
		return codec
	default:
		if name := LanguageName(s.Tags.Language); name != "" {
			return fmt.Sprintf("%s (%s)", codec, name)
		}
		if s.Tags.Title != "" {
			return fmt.Sprintf("%s (%s)", codec, s.Tags.Title)
		}
		return codec
	}
}

// LanguageName resolves an ISO language tag to its English display name.
// Unknown or undetermined tags return "".
func LanguageName(code string) string {
	code = strings.TrimSpace(code)
	if code == "" || strings.EqualFold(code, "und") {
		return ""
	}
	tag, err := language.Parse(code)
	if err != nil {
		return ""
	}
	name := display.English.Languages().Name(tag)
	if name == "" || strings.EqualFold(name, code) {
		return ""
	}
	return name
}
