package settings

import (
	"fmt"
	"strings"
	"time"
)

// Destination selects where finished outputs are delivered.
const (
	DestinationDirect = "direct"
	DestinationS3     = "s3"
)

// Settings holds one user's processing preferences. Empty string fields mean
// "keep the source value" where that is meaningful (resolution, bitrate).
type Settings struct {
	UserID int64

	VideoCodec   string
	AudioCodec   string
	CRF          int
	Preset       string
	Resolution   string
	AudioBitrate string

	OutputFormat string
	KeepSource   bool

	WatermarkEnabled  bool
	WatermarkText     string
	WatermarkPosition string

	MetadataTitle  string
	MetadataAuthor string

	Destination string

	UpdatedAt time.Time
}

// Defaults returns the settings applied to users who have never changed
// anything.
func Defaults() Settings {
	return Settings{
		VideoCodec:        "libx264",
		AudioCodec:        "aac",
		CRF:               26,
		Preset:            "medium",
		Resolution:        "",
		AudioBitrate:      "",
		OutputFormat:      "mkv",
		KeepSource:        false,
		WatermarkEnabled:  false,
		WatermarkText:     "",
		WatermarkPosition: "bottom_right",
		Destination:       DestinationDirect,
	}
}

func (s *Settings) normalize() {
	s.VideoCodec = strings.TrimSpace(s.VideoCodec)
	s.AudioCodec = strings.TrimSpace(s.AudioCodec)
	s.Preset = strings.TrimSpace(s.Preset)
	s.Resolution = strings.TrimSpace(s.Resolution)
	s.AudioBitrate = strings.TrimSpace(s.AudioBitrate)
	s.OutputFormat = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s.OutputFormat), "."))
	s.WatermarkText = strings.TrimSpace(s.WatermarkText)
	s.WatermarkPosition = strings.TrimSpace(s.WatermarkPosition)
	s.Destination = strings.ToLower(strings.TrimSpace(s.Destination))

	defaults := Defaults()
	if s.VideoCodec == "" {
		s.VideoCodec = defaults.VideoCodec
	}
	if s.AudioCodec == "" {
		s.AudioCodec = defaults.AudioCodec
	}
	if s.Preset == "" {
		s.Preset = defaults.Preset
	}
	if s.OutputFormat == "" {
		s.OutputFormat = defaults.OutputFormat
	}
	if s.WatermarkPosition == "" {
		s.WatermarkPosition = defaults.WatermarkPosition
	}
	if s.Destination == "" {
		s.Destination = defaults.Destination
	}
}

func (s *Settings) validate() error {
	if s.CRF < 0 || s.CRF > 51 {
		return fmt.Errorf("crf must be between 0 and 51, got %d", s.CRF)
	}
	if s.Destination != DestinationDirect && s.Destination != DestinationS3 {
		return fmt.Errorf("unknown delivery destination %q", s.Destination)
	}
	return nil
}
