package ffmpeg

import (
	"fmt"
	"sort"
	"strings"
)

// EditMetadata sets metadata tags with stream copy, either globally or scoped
// to one stream when StreamType is set ("a", "v", "s"). Keys are emitted in
// sorted order so identical inputs always produce identical argument lists.
func EditMetadata(input, output string, opts Options) Command {
	args := []string{"-i", input, "-map", "0", "-c", "copy"}

	keys := make([]string, 0, len(opts.Metadata))
	for key := range opts.Metadata {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	flag := "-metadata"
	if streamType := strings.TrimSpace(opts.StreamType); streamType != "" {
		flag = fmt.Sprintf("-metadata:s:%s:%d", streamType, opts.StreamIndex)
	}
	for _, key := range keys {
		args = append(args, flag, fmt.Sprintf("%s=%s", key, opts.Metadata[key]))
	}

	args = append(args, output)
	return Command{Args: args, Outputs: []string{output}}
}

// ClearMetadata strips every metadata tag in a single stream-copy pass.
func ClearMetadata(input, output string, _ Options) Command {
	args := []string{
		"-i", input,
		"-map", "0",
		"-map_metadata", "-1",
		"-c", "copy",
		output,
	}
	return Command{Args: args, Outputs: []string{output}}
}

// AttachCover muxes an image in as the container's attached picture.
func AttachCover(input, output string, opts Options) Command {
	args := []string{
		"-i", input,
		"-i", opts.SecondInput,
		"-map", "0",
		"-map", "1",
		"-c", "copy",
		"-disposition:v:1", "attached_pic",
		output,
	}
	return Command{Args: args, Outputs: []string{output}}
}

// Rename re-muxes the input to a new filename without touching any stream.
func Rename(input, output string, _ Options) Command {
	args := []string{"-i", input, "-map", "0", "-c", "copy", output}
	return Command{Args: args, Outputs: []string{output}}
}

// Custom passes validated user-supplied arguments through between the input
// and output. Tokens that would redirect I/O or nest inputs are rejected.
func Custom(input, output string, opts Options) (Command, error) {
	if len(opts.CustomArgs) == 0 {
		return Command{}, fmt.Errorf("custom command: no arguments supplied")
	}
	for _, arg := range opts.CustomArgs {
		switch strings.TrimSpace(arg) {
		case "-i", "-y", "-progress":
			return Command{}, fmt.Errorf("custom command: argument %q is managed by the runner", arg)
		}
	}

	args := append([]string{"-i", input}, opts.CustomArgs...)
	args = append(args, output)
	return Command{Args: args, Outputs: []string{output}}, nil
}
