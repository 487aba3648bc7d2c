package ffmpeg

import (
	"strconv"
	"strings"
)

// Trim cuts a section out of the input. The fast path seeks on the input side
// and stream-copies, which is keyframe-accurate only; the accurate path
// re-encodes for frame-exact cuts. -to is used when the caller supplied an
// absolute end time, -t when they supplied a duration; neither appears when
// the cut runs to the end of the file.
func Trim(input, output string, opts Options) Command {
	start := strings.TrimSpace(opts.Start)
	end := strings.TrimSpace(opts.End)
	duration := strings.TrimSpace(opts.Duration)

	var args []string
	if opts.Accurate {
		args = []string{"-i", input}
		if start != "" {
			args = append(args, "-ss", start)
		}
	} else {
		args = []string{}
		if start != "" {
			args = append(args, "-ss", start)
		}
		args = append(args, "-i", input)
	}

	switch {
	case end != "":
		args = append(args, "-to", end)
	case duration != "":
		args = append(args, "-t", duration)
	}

	if opts.Accurate {
		args = append(args, "-c:v", "libx264", "-crf", "18", "-preset", "fast", "-c:a", "aac")
	} else {
		args = append(args, "-c", "copy")
	}
	args = append(args, output)

	return Command{Args: args, Outputs: []string{output}, DurationHint: trimDurationHint(opts)}
}

// Split cuts the input into stream-copied segments of SegmentSeconds each.
// outputPattern must contain a printf-style index such as %03d; the actual
// file list is only known after the run, so Outputs carries the pattern and
// the dispatcher globs for the real segments.
func Split(input, outputPattern string, opts Options) Command {
	seconds := opts.SegmentSeconds
	if seconds <= 0 {
		seconds = 60
	}
	args := []string{
		"-i", input,
		"-c", "copy",
		"-f", "segment",
		"-segment_time", strconv.Itoa(seconds),
		"-reset_timestamps", "1",
		outputPattern,
	}
	return Command{Args: args, Outputs: []string{outputPattern}}
}

// trimDurationHint derives the expected output duration from whichever trim
// bounds the caller supplied. Unknown bounds yield 0 so the runner suppresses
// percentage reporting instead of computing it against the wrong total.
func trimDurationHint(opts Options) float64 {
	startSec := 0.0
	if s := strings.TrimSpace(opts.Start); s != "" {
		parsed, err := ParseTimestamp(s)
		if err != nil {
			return 0
		}
		startSec = parsed
	}

	if d := strings.TrimSpace(opts.Duration); d != "" {
		if parsed, err := ParseTimestamp(d); err == nil {
			return parsed
		}
		return 0
	}
	if e := strings.TrimSpace(opts.End); e != "" {
		if parsed, err := ParseTimestamp(e); err == nil && parsed > startSec {
			return parsed - startSec
		}
		return 0
	}
	if opts.InputDuration > startSec {
		return opts.InputDuration - startSec
	}
	return 0
}
