package ffmpeg

import "strings"

// rotationFilters maps user-facing rotation tokens to video filters.
var rotationFilters = map[string]string{
	"right":            "transpose=1",
	"90":               "transpose=1",
	"clockwise":        "transpose=1",
	"left":             "transpose=2",
	"270":              "transpose=2",
	"counterclockwise": "transpose=2",
	"180":              "transpose=1,transpose=1",
	"flip_h":           "hflip",
	"mirror":           "hflip",
	"flip_v":           "vflip",
}

// Rotate applies a rotation or flip. Unrecognized tokens deterministically
// fall back to the clockwise-90 transpose.
func Rotate(input, output string, opts Options) Command {
	token := strings.ToLower(strings.TrimSpace(opts.Rotation))
	filter, ok := rotationFilters[token]
	if !ok {
		filter = "transpose=1"
	}

	args := []string{
		"-i", input,
		"-vf", filter,
		"-c:a", "copy",
		output,
	}
	return Command{Args: args, Outputs: []string{output}}
}
