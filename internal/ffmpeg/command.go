package ffmpeg

import (
	"fmt"
	"strconv"
	"strings"
)

// Command is a fully assembled ffmpeg invocation minus the binary name and
// the fixed prefix flags the runner injects (-y -hide_banner -progress).
type Command struct {
	// Args holds everything from the first -i through the output path.
	Args []string
	// Outputs lists the file(s) the invocation produces.
	Outputs []string
	// DurationHint is the expected output duration in seconds when the
	// operation changes it relative to the input. Zero means "use the probed
	// input duration".
	DurationHint float64
}

// Options is the shared option bag the session accumulates while the user is
// answering prompts. Each builder reads only the fields relevant to its
// operation; zero values mean "use the configured default".
type Options struct {
	// Probed input duration in seconds, supplied by the dispatcher so
	// builders can compute duration hints. Zero when unknown.
	InputDuration float64

	// Encode/convert. CRF is a pointer because 0 is a legal value (lossless
	// for x264); nil means "use the stored default".
	Container    string
	VideoCodec   string
	VideoBitrate string
	CRF          *int
	Preset       string
	Resolution   string
	FrameRate    int
	AudioCodec   string
	AudioBitrate string
	TargetSizeMB int

	// Extract/remove/stream selection
	StreamIndex int
	AudioFormat string

	// Trim/split
	Start          string
	End            string
	Duration       string
	Accurate       bool
	SegmentSeconds int

	// Secondary inputs (merge source, audio, subtitle, watermark image, cover)
	SecondInput string

	// Effects
	WatermarkText     string
	WatermarkPosition string
	FontSize          int
	FontColor         string
	Opacity           float64
	WatermarkScale    float64
	IntroText         string
	IntroSeconds      float64

	// Speed / rotate
	SpeedFactor float64
	Rotation    string

	// Metadata
	Metadata   map[string]string
	StreamType string
	NewName    string

	// Screenshots
	ScreenshotCount int

	// Custom command
	CustomArgs []string
}

// audioCodecs maps a user-facing audio format name to the encoder ffmpeg
// needs and the container extension that format naturally lives in.
var audioCodecs = map[string]struct {
	Codec string
	Ext   string
}{
	"mp3":  {"libmp3lame", ".mp3"},
	"aac":  {"aac", ".m4a"},
	"flac": {"flac", ".flac"},
	"wav":  {"pcm_s16le", ".wav"},
	"opus": {"libopus", ".opus"},
	"ogg":  {"libvorbis", ".ogg"},
}

// AudioCodecFor resolves a user-facing audio format to its encoder and
// natural extension. Unknown formats fall back to aac/.m4a.
func AudioCodecFor(format string) (codec, ext string) {
	entry, ok := audioCodecs[strings.ToLower(strings.TrimSpace(format))]
	if !ok {
		return "aac", ".m4a"
	}
	return entry.Codec, entry.Ext
}

// crfCodecs are the encoders controlled by a constant rate factor and preset
// pair rather than a target bitrate.
var crfCodecs = map[string]bool{
	"libx264": true,
	"libx265": true,
}

// UsesCRF reports whether codec takes -crf/-preset rate control.
func UsesCRF(codec string) bool {
	return crfCodecs[strings.ToLower(strings.TrimSpace(codec))]
}

// ParseTimestamp accepts "HH:MM:SS", "MM:SS", "SS", and fractional forms of
// each, returning seconds.
func ParseTimestamp(value string) (float64, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, fmt.Errorf("empty timestamp")
	}
	parts := strings.Split(value, ":")
	if len(parts) > 3 {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	var total float64
	for _, part := range parts {
		n, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil || n < 0 {
			return 0, fmt.Errorf("invalid timestamp %q", value)
		}
		total = total*60 + n
	}
	return total, nil
}

// FormatTimestamp renders seconds as HH:MM:SS.mmm suitable for -ss/-to.
func FormatTimestamp(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	whole := int64(seconds)
	millis := int64((seconds - float64(whole)) * 1000)
	h := whole / 3600
	m := (whole % 3600) / 60
	s := whole % 60
	if millis > 0 {
		return fmt.Sprintf("%02d:%02d:%02d.%03d", h, m, s, millis)
	}
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

// formatFloat renders a float without trailing zeros for filter strings.
func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
