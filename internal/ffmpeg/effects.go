package ffmpeg

import (
	"fmt"
	"path/filepath"
	"strings"
)

// drawtextAnchors maps the nine named watermark positions to drawtext
// coordinate expressions. tw/th are the rendered text dimensions.
var drawtextAnchors = map[string]string{
	"top_left":     "x=10:y=10",
	"top":          "x=(w-tw)/2:y=10",
	"top_right":    "x=w-tw-10:y=10",
	"left":         "x=10:y=(h-th)/2",
	"center":       "x=(w-tw)/2:y=(h-th)/2",
	"right":        "x=w-tw-10:y=(h-th)/2",
	"bottom_left":  "x=10:y=h-th-10",
	"bottom":       "x=(w-tw)/2:y=h-th-10",
	"bottom_right": "x=w-tw-10:y=h-th-10",
}

// overlayAnchors maps the same positions to overlay coordinate expressions.
// W/H are the base video dimensions, w/h the overlay's.
var overlayAnchors = map[string]string{
	"top_left":     "10:10",
	"top":          "(W-w)/2:10",
	"top_right":    "W-w-10:10",
	"left":         "10:(H-h)/2",
	"center":       "(W-w)/2:(H-h)/2",
	"right":        "W-w-10:(H-h)/2",
	"bottom_left":  "10:H-h-10",
	"bottom":       "(W-w)/2:H-h-10",
	"bottom_right": "W-w-10:H-h-10",
}

// WatermarkText burns a text watermark into the video at one of the nine
// anchor positions. Unknown positions fall back to bottom_right.
func WatermarkText(input, output string, opts Options) Command {
	position, ok := drawtextAnchors[normalizePosition(opts.WatermarkPosition)]
	if !ok {
		position = drawtextAnchors["bottom_right"]
	}

	fontSize := opts.FontSize
	if fontSize <= 0 {
		fontSize = 24
	}
	fontColor := strings.TrimSpace(opts.FontColor)
	if fontColor == "" {
		fontColor = "white"
	}
	opacity := opts.Opacity
	if opacity <= 0 || opacity > 1 {
		opacity = 1
	}

	filter := fmt.Sprintf(
		"drawtext=text='%s':fontsize=%d:fontcolor=%s@%s:%s",
		escapeFilterText(opts.WatermarkText), fontSize, fontColor, formatFloat(opacity), position,
	)

	args := []string{
		"-i", input,
		"-vf", filter,
		"-c:a", "copy",
		output,
	}
	return Command{Args: args, Outputs: []string{output}}
}

// WatermarkImage overlays an image watermark scaled relative to the base
// video width with an alpha multiplier for opacity.
func WatermarkImage(input, output string, opts Options) Command {
	position, ok := overlayAnchors[normalizePosition(opts.WatermarkPosition)]
	if !ok {
		position = overlayAnchors["bottom_right"]
	}

	scale := opts.WatermarkScale
	if scale <= 0 || scale > 1 {
		scale = 0.2
	}
	opacity := opts.Opacity
	if opacity <= 0 || opacity > 1 {
		opacity = 1
	}

	filter := fmt.Sprintf(
		"[1:v]scale=iw*%s:-1,format=rgba,colorchannelmixer=aa=%s[wm];[0:v][wm]overlay=%s",
		formatFloat(scale), formatFloat(opacity), position,
	)

	args := []string{
		"-i", input,
		"-i", opts.SecondInput,
		"-filter_complex", filter,
		"-c:a", "copy",
		output,
	}
	return Command{Args: args, Outputs: []string{output}}
}

// BurnSubtitles hard-burns a subtitle file into the video stream. ASS/SSA
// files use the ass filter; every other format goes through subtitles=.
func BurnSubtitles(input, output string, opts Options) Command {
	subPath := opts.SecondInput
	filterName := "subtitles"
	switch strings.ToLower(filepath.Ext(subPath)) {
	case ".ass", ".ssa":
		filterName = "ass"
	}

	filter := fmt.Sprintf("%s=%s", filterName, escapeFilterPath(subPath))

	args := []string{
		"-i", input,
		"-vf", filter,
		"-c:a", "copy",
		output,
	}
	return Command{Args: args, Outputs: []string{output}}
}

// Intro draws text over the opening seconds of the video only, gated on
// playback time with an enable expression.
func Intro(input, output string, opts Options) Command {
	seconds := opts.IntroSeconds
	if seconds <= 0 {
		seconds = 5
	}
	fontSize := opts.FontSize
	if fontSize <= 0 {
		fontSize = 36
	}
	fontColor := strings.TrimSpace(opts.FontColor)
	if fontColor == "" {
		fontColor = "white"
	}

	filter := fmt.Sprintf(
		"drawtext=text='%s':fontsize=%d:fontcolor=%s:x=(w-tw)/2:y=(h-th)/2:enable='lt(t,%s)'",
		escapeFilterText(opts.IntroText), fontSize, fontColor, formatFloat(seconds),
	)

	args := []string{
		"-i", input,
		"-vf", filter,
		"-c:a", "copy",
		output,
	}
	return Command{Args: args, Outputs: []string{output}}
}

func normalizePosition(position string) string {
	position = strings.ToLower(strings.TrimSpace(position))
	position = strings.ReplaceAll(position, " ", "_")
	position = strings.ReplaceAll(position, "-", "_")
	return position
}

// escapeFilterText escapes characters with meaning inside drawtext values.
func escapeFilterText(text string) string {
	replacer := strings.NewReplacer(
		"\\", "\\\\",
		"'", "\\'",
		":", "\\:",
		"%", "\\%",
	)
	return replacer.Replace(text)
}

// escapeFilterPath escapes a filesystem path for use as a filter argument.
func escapeFilterPath(path string) string {
	replacer := strings.NewReplacer(
		"\\", "\\\\",
		"'", "\\'",
		":", "\\:",
	)
	return replacer.Replace(path)
}
