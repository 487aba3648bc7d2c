package ffmpeg

import (
	"fmt"
	"path/filepath"
	"strings"
)

// ExtractAudio pulls a single audio stream into its own file. The output
// extension is corrected to the chosen format's natural container.
func ExtractAudio(input, output string, opts Options) Command {
	codec, ext := AudioCodecFor(opts.AudioFormat)
	output = withExtension(output, ext)

	bitrate := opts.AudioBitrate
	if bitrate == "" {
		bitrate = "192k"
	}

	args := []string{
		"-i", input,
		"-map", fmt.Sprintf("0:a:%d", opts.StreamIndex),
		"-vn",
		"-c:a", codec,
	}
	// Lossless and PCM targets take no bitrate flag.
	if codec != "flac" && codec != "pcm_s16le" {
		args = append(args, "-b:a", bitrate)
	}
	args = append(args, output)

	return Command{Args: args, Outputs: []string{output}}
}

// ExtractVideo keeps one video stream and drops audio and subtitles.
func ExtractVideo(input, output string, opts Options) Command {
	args := []string{
		"-i", input,
		"-map", fmt.Sprintf("0:v:%d", opts.StreamIndex),
		"-an", "-sn",
		"-c:v", "copy",
		output,
	}
	return Command{Args: args, Outputs: []string{output}}
}

// ExtractSubtitles pulls one subtitle stream into an .srt file.
func ExtractSubtitles(input, output string, opts Options) Command {
	output = withExtension(output, ".srt")
	args := []string{
		"-i", input,
		"-map", fmt.Sprintf("0:s:%d", opts.StreamIndex),
		output,
	}
	return Command{Args: args, Outputs: []string{output}}
}

// RemoveAudio re-muxes the input without any audio streams.
func RemoveAudio(input, output string, _ Options) Command {
	args := []string{"-i", input, "-an", "-c:v", "copy", "-c:s", "copy", output}
	return Command{Args: args, Outputs: []string{output}}
}

// RemoveVideo keeps only audio streams.
func RemoveVideo(input, output string, _ Options) Command {
	args := []string{"-i", input, "-vn", "-c:a", "copy", output}
	return Command{Args: args, Outputs: []string{output}}
}

// RemoveSubtitles re-muxes the input without subtitle streams.
func RemoveSubtitles(input, output string, _ Options) Command {
	args := []string{"-i", input, "-sn", "-c", "copy", output}
	return Command{Args: args, Outputs: []string{output}}
}

// Thumbnail captures a single frame at the given start timestamp.
func Thumbnail(input, output string, opts Options) Command {
	start := strings.TrimSpace(opts.Start)
	if start == "" {
		start = "00:00:01"
	}
	args := []string{
		"-ss", start,
		"-i", input,
		"-vframes", "1",
		"-q:v", "2",
		output,
	}
	return Command{Args: args, Outputs: []string{output}}
}

// Screenshots builds one capture command per still, evenly spaced across the
// probed duration. The output paths derive from pattern by inserting the
// 1-based index before the extension.
func Screenshots(input, pattern string, opts Options) []Command {
	count := opts.ScreenshotCount
	if count <= 0 {
		count = 5
	}
	duration := opts.InputDuration
	if duration <= 0 {
		// Without a duration the best available spacing is a fixed stride.
		duration = float64(count + 1)
	}

	ext := filepath.Ext(pattern)
	stem := strings.TrimSuffix(pattern, ext)

	commands := make([]Command, 0, count)
	for i := 1; i <= count; i++ {
		at := duration * float64(i) / float64(count+1)
		output := fmt.Sprintf("%s_%d%s", stem, i, ext)
		commands = append(commands, Command{
			Args: []string{
				"-ss", FormatTimestamp(at),
				"-i", input,
				"-vframes", "1",
				"-q:v", "2",
				output,
			},
			Outputs: []string{output},
		})
	}
	return commands
}

// AddAudio muxes an external audio file over the input's video, replacing any
// existing audio. -shortest stops at the shorter of the two inputs.
func AddAudio(input, output string, opts Options) Command {
	args := []string{
		"-i", input,
		"-i", opts.SecondInput,
		"-map", "0:v:0",
		"-map", "1:a:0",
		"-c:v", "copy",
		"-c:a", "aac",
		"-shortest",
		output,
	}
	return Command{Args: args, Outputs: []string{output}}
}

// AddSubtitle muxes a subtitle file in as a soft track. The codec follows the
// output container: mp4 requires mov_text, everything else takes srt.
func AddSubtitle(input, output string, opts Options) Command {
	subCodec := "srt"
	if strings.EqualFold(filepath.Ext(output), ".mp4") {
		subCodec = "mov_text"
	}
	args := []string{
		"-i", input,
		"-i", opts.SecondInput,
		"-map", "0",
		"-map", "1",
		"-c", "copy",
		"-c:s", subCodec,
		output,
	}
	return Command{Args: args, Outputs: []string{output}}
}

// SwapStreams promotes the selected audio stream to the default track.
func SwapStreams(input, output string, opts Options) Command {
	args := []string{
		"-i", input,
		"-map", "0:v",
		"-map", fmt.Sprintf("0:a:%d", opts.StreamIndex),
		"-c", "copy",
		"-disposition:a:0", "default",
		output,
	}
	return Command{Args: args, Outputs: []string{output}}
}

func withExtension(path, ext string) string {
	current := filepath.Ext(path)
	if strings.EqualFold(current, ext) {
		return path
	}
	return strings.TrimSuffix(path, current) + ext
}
