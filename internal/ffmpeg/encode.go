package ffmpeg

import (
	"fmt"
	"strconv"
	"strings"
)

// Encode builds a transcode invocation. CRF-controlled codecs get
// -crf/-preset; libvpx-vp9 takes constrained-quality form (-crf with -b:v 0);
// every other codec falls back to bitrate control. Subtitle streams are
// passed through untouched.
func Encode(input, output string, opts Options) Command {
	codec := strings.TrimSpace(opts.VideoCodec)
	if codec == "" {
		codec = "libx264"
	}

	args := []string{"-i", input}

	if filter := scaleFilter(opts.Resolution); filter != "" {
		args = append(args, "-vf", filter)
	}
	if opts.FrameRate > 0 {
		args = append(args, "-r", strconv.Itoa(opts.FrameRate))
	}

	args = append(args, "-c:v", codec)
	switch {
	case UsesCRF(codec):
		crf := 23
		if opts.CRF != nil && *opts.CRF >= 0 {
			crf = *opts.CRF
		}
		preset := opts.Preset
		if preset == "" {
			preset = "medium"
		}
		args = append(args, "-crf", strconv.Itoa(crf), "-preset", preset)
	case strings.EqualFold(codec, "libvpx-vp9"):
		crf := 31
		if opts.CRF != nil && *opts.CRF >= 0 {
			crf = *opts.CRF
		}
		args = append(args, "-crf", strconv.Itoa(crf), "-b:v", "0")
	default:
		bitrate := opts.VideoBitrate
		if bitrate == "" {
			bitrate = "1M"
		}
		args = append(args, "-b:v", bitrate)
	}

	audioCodec := opts.AudioCodec
	if audioCodec == "" {
		audioCodec = "aac"
	}
	audioBitrate := opts.AudioBitrate
	if audioBitrate == "" {
		audioBitrate = "192k"
	}
	args = append(args, "-c:a", audioCodec, "-b:a", audioBitrate, "-c:s", "copy", output)

	return Command{Args: args, Outputs: []string{output}}
}

// CompressToSize builds an encode whose video bitrate is derived from a
// target output size and the input duration. Audio is pinned at 128k and
// subtracted from the budget.
func CompressToSize(input, output string, opts Options) (Command, error) {
	if opts.TargetSizeMB <= 0 {
		return Command{}, fmt.Errorf("compress: target size must be positive")
	}
	if opts.InputDuration <= 0 {
		return Command{}, fmt.Errorf("compress: unknown input duration")
	}

	const audioKbps = 128
	totalKbps := float64(opts.TargetSizeMB) * 8192 / opts.InputDuration
	videoKbps := int(totalKbps) - audioKbps
	if videoKbps < 100 {
		videoKbps = 100
	}

	codec := strings.TrimSpace(opts.VideoCodec)
	if codec == "" {
		codec = "libx264"
	}
	preset := opts.Preset
	if preset == "" {
		preset = "medium"
	}

	args := []string{
		"-i", input,
		"-c:v", codec,
		"-b:v", fmt.Sprintf("%dk", videoKbps),
		"-preset", preset,
		"-c:a", "aac",
		"-b:a", fmt.Sprintf("%dk", audioKbps),
		output,
	}
	return Command{Args: args, Outputs: []string{output}}, nil
}

// scaleFilter turns "1280x720" or "1280:720" into a scale filter expression.
// A bare width like "720" scales to that width preserving aspect ratio.
func scaleFilter(resolution string) string {
	resolution = strings.TrimSpace(resolution)
	if resolution == "" {
		return ""
	}
	resolution = strings.ReplaceAll(strings.ToLower(resolution), "x", ":")
	if !strings.Contains(resolution, ":") {
		resolution += ":-2"
	}
	return "scale=" + resolution
}
