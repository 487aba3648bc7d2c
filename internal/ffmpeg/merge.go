package ffmpeg

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// WriteConcatList writes an ffmpeg concat demuxer manifest naming the given
// sources, returning its path and a cleanup function the caller must defer so
// the manifest is removed on every exit path.
func WriteConcatList(dir string, inputs ...string) (string, func(), error) {
	if len(inputs) < 2 {
		return "", nil, fmt.Errorf("concat list needs at least two inputs, got %d", len(inputs))
	}

	var sb strings.Builder
	for _, input := range inputs {
		abs, err := filepath.Abs(input)
		if err != nil {
			return "", nil, fmt.Errorf("resolve concat input %q: %w", input, err)
		}
		// Single quotes inside the path must be escaped for the demuxer.
		escaped := strings.ReplaceAll(abs, "'", `'\''`)
		fmt.Fprintf(&sb, "file '%s'\n", escaped)
	}

	file, err := os.CreateTemp(dir, "concat_*.txt")
	if err != nil {
		return "", nil, fmt.Errorf("create concat list: %w", err)
	}
	path := file.Name()
	cleanup := func() { _ = os.Remove(path) }

	if _, err := file.WriteString(sb.String()); err != nil {
		file.Close()
		cleanup()
		return "", nil, fmt.Errorf("write concat list: %w", err)
	}
	if err := file.Close(); err != nil {
		cleanup()
		return "", nil, fmt.Errorf("close concat list: %w", err)
	}
	return path, cleanup, nil
}

// MergeCopy concatenates sources listed in a concat manifest with stream
// copy. Fast, but requires matching codecs and parameters across sources.
func MergeCopy(listPath, output string) Command {
	args := []string{
		"-f", "concat",
		"-safe", "0",
		"-i", listPath,
		"-c", "copy",
		output,
	}
	return Command{Args: args, Outputs: []string{output}}
}

// MergeFilter concatenates two sources through a filter graph, re-encoding
// both into a single compatible stream. This is the fallback the dispatcher
// runs when MergeCopy fails on mismatched codecs.
func MergeFilter(first, second, output string) Command {
	args := []string{
		"-i", first,
		"-i", second,
		"-filter_complex", "[0:v][0:a][1:v][1:a]concat=n=2:v=1:a=1[v][a]",
		"-map", "[v]",
		"-map", "[a]",
		"-c:v", "libx264",
		"-crf", "23",
		"-preset", "veryfast",
		"-c:a", "aac",
		output,
	}
	return Command{Args: args, Outputs: []string{output}}
}
