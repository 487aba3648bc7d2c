package ffmpeg

import (
	"fmt"
	"math"
	"strings"
)

// ChangeSpeed retimes video and audio by the given factor. atempo only
// accepts 0.5..2.0, so factors outside that range are split into two chained
// stages whose product equals the factor. The duration hint divides the input
// duration by the factor so progress reaches 100% on the retimed output.
func ChangeSpeed(input, output string, opts Options) (Command, error) {
	factor := opts.SpeedFactor
	if factor <= 0 {
		return Command{}, fmt.Errorf("speed: factor must be positive, got %v", factor)
	}

	videoFilter := fmt.Sprintf("setpts=%s*PTS", formatFloat(1/factor))
	audioFilter := atempoChain(factor)

	args := []string{
		"-i", input,
		"-filter:v", videoFilter,
		"-filter:a", audioFilter,
		output,
	}

	var hint float64
	if opts.InputDuration > 0 {
		hint = opts.InputDuration / factor
	}
	return Command{Args: args, Outputs: []string{output}, DurationHint: hint}, nil
}

// atempoChain renders the atempo filter expression for a speed factor. In
// range it is a single stage; out of range it is two equal stages of
// sqrt(factor), whose product is the factor.
func atempoChain(factor float64) string {
	if factor >= 0.5 && factor <= 2.0 {
		return "atempo=" + formatFloat(factor)
	}
	stage := formatFloat(math.Sqrt(factor))
	return strings.Join([]string{"atempo=" + stage, "atempo=" + stage}, ",")
}
