package ffmpeg

import (
	"path/filepath"
	"strings"
)

// containerPolicy maps a target container to the codecs it needs. "copy"
// re-muxes without transcoding.
var containerPolicy = map[string]struct {
	Video string
	Audio string
}{
	"mp4":  {"libx264", "aac"},
	"mkv":  {"copy", "copy"},
	"avi":  {"mpeg4", "libmp3lame"},
	"webm": {"libvpx-vp9", "libopus"},
	"mov":  {"libx264", "aac"},
	"flv":  {"libx264", "aac"},
	"ts":   {"copy", "copy"},
}

// Convert builds a container conversion. The target container is taken from
// the output extension. GIF output forces a fixed frame rate and bounded
// width and drops audio; containers absent from the policy table stream-copy
// both classes.
func Convert(input, output string, _ Options) Command {
	target := strings.ToLower(strings.TrimPrefix(filepath.Ext(output), "."))

	if target == "gif" {
		args := []string{
			"-i", input,
			"-vf", "fps=10,scale=480:-1:flags=lanczos",
			"-an",
			output,
		}
		return Command{Args: args, Outputs: []string{output}}
	}

	policy, ok := containerPolicy[target]
	if !ok {
		policy.Video, policy.Audio = "copy", "copy"
	}

	args := []string{
		"-i", input,
		"-c:v", policy.Video,
		"-c:a", policy.Audio,
		output,
	}
	return Command{Args: args, Outputs: []string{output}}
}
