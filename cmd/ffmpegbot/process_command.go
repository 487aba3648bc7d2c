package main

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/shohan-001/ffmpeg-video-bot/internal/ffmpeg"
	"github.com/shohan-001/ffmpeg-video-bot/internal/progress"
	"github.com/shohan-001/ffmpeg-video-bot/internal/queue"
	"github.com/shohan-001/ffmpeg-video-bot/internal/session"
	"github.com/shohan-001/ffmpeg-video-bot/internal/settings"
)

// processFlags are the operation options exposed on the command line. They
// map onto the same option bag the chat flow accumulates.
type processFlags struct {
	start       string
	end         string
	duration    string
	accurate    bool
	codec       string
	crf         int
	preset      string
	resolution  string
	bitrate     string
	format      string
	container   string
	rotation    string
	speed       float64
	text        string
	position    string
	count       int
	segment     int
	secondInput string
	targetSize  int
	newName     string
	streamIndex int
	metadata    []string
}

func newProcessCommand(ctx *commandContext) *cobra.Command {
	flags := &processFlags{}

	cmd := &cobra.Command{
		Use:   "process <operation> <input>",
		Short: "Run one operation on a local file",
		Long: "Run a single processing operation outside the chat flow.\n" +
			"Operations: " + operationList(),
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			op, err := session.ParseOperation(args[0])
			if err != nil {
				return err
			}
			input, err := filepath.Abs(args[1])
			if err != nil {
				return err
			}
			if _, err := os.Stat(input); err != nil {
				return fmt.Errorf("input file: %w", err)
			}
			return runProcess(ctx, op, input, flags, cmd)
		},
	}

	fs := cmd.Flags()
	fs.StringVar(&flags.start, "start", "", "Trim start (HH:MM:SS or seconds)")
	fs.StringVar(&flags.end, "end", "", "Trim end (HH:MM:SS or seconds)")
	fs.StringVar(&flags.duration, "duration", "", "Trim duration (HH:MM:SS or seconds)")
	fs.BoolVar(&flags.accurate, "accurate", false, "Frame-accurate trim (re-encodes)")
	fs.StringVar(&flags.codec, "codec", "", "Video codec override")
	fs.IntVar(&flags.crf, "crf", -1, "CRF override, 0-51 (0 is lossless for x264)")
	fs.StringVar(&flags.preset, "preset", "", "Encoder preset override")
	fs.StringVar(&flags.resolution, "resolution", "", "Target resolution, e.g. 1280x720")
	fs.StringVar(&flags.bitrate, "audio-bitrate", "", "Audio bitrate, e.g. 192k")
	fs.StringVar(&flags.format, "format", "", "Audio format for extraction (mp3, aac, flac, wav, opus, ogg)")
	fs.StringVar(&flags.container, "container", "", "Output container for encode/convert")
	fs.StringVar(&flags.rotation, "rotation", "", "Rotation (right, left, 180, flip_h, flip_v)")
	fs.Float64Var(&flags.speed, "speed", 0, "Playback speed factor")
	fs.StringVar(&flags.text, "text", "", "Watermark or intro text")
	fs.StringVar(&flags.position, "position", "", "Watermark position, e.g. bottom_right")
	fs.IntVar(&flags.count, "count", 0, "Screenshot count")
	fs.IntVar(&flags.segment, "segment-seconds", 0, "Segment length for split")
	fs.StringVar(&flags.secondInput, "second-input", "", "Auxiliary input (merge, add-audio, subtitles, watermark image)")
	fs.IntVar(&flags.targetSize, "target-size-mb", 0, "Compress to approximately this size")
	fs.StringVar(&flags.newName, "name", "", "New file name for rename")
	fs.IntVar(&flags.streamIndex, "stream", 0, "Stream index for extraction/swap")
	fs.StringArrayVar(&flags.metadata, "meta", nil, "Metadata key=value (repeatable)")

	return cmd
}

func runProcess(ctx *commandContext, op session.Operation, input string, flags *processFlags, cmd *cobra.Command) error {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}
	logger, err := ctx.newLogger(false)
	if err != nil {
		return err
	}

	store, err := queue.Open(cfg.Paths.DatabasePath, cfg.Queue.MaxDepth)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	settingsStore, err := settings.Open(cfg.Paths.DatabasePath)
	if err != nil {
		return err
	}
	defer func() { _ = settingsStore.Close() }()

	opts, err := optionsFromFlags(flags)
	if err != nil {
		return err
	}

	stored := settings.Defaults()
	stored.KeepSource = true
	req := session.OperationRequest{
		UserID:    0,
		Operation: op,
		Options:   opts,
		InputPath: input,
		InputName: filepath.Base(input),
		Settings:  stored,
	}
	if second := op.SecondInputKind(); second != session.AwaitNone && opts.SecondInput == "" {
		return fmt.Errorf("operation %s needs --second-input", op)
	}

	dispatcher, err := newDispatcher(cmd.Context(), cfg, logger, store, settingsStore)
	if err != nil {
		return err
	}

	jobID, _, err := dispatcher.Submit(cmd.Context(), req)
	if err != nil {
		return err
	}
	entry, err := store.ClaimNext(cmd.Context(), req.UserID)
	if err != nil {
		return err
	}
	if entry.JobID != jobID {
		return fmt.Errorf("claimed unexpected job %s", entry.JobID)
	}

	outcome := dispatcher.Execute(cmd.Context(), entry, terminalSink(string(op)))
	fmt.Fprintln(cmd.OutOrStdout())
	switch {
	case outcome.Cancelled:
		return fmt.Errorf("cancelled")
	case !outcome.Success:
		return fmt.Errorf("%s failed: %s", op, outcome.ErrorMessage)
	}

	for _, path := range outcome.OutputPaths {
		fmt.Fprintln(cmd.OutOrStdout(), path)
	}
	return nil
}

var percentPattern = regexp.MustCompile(`(\d+(?:\.\d+)?)%`)

// terminalSink adapts the chat-style progress text to a terminal progress
// bar by reading the rendered percentage.
func terminalSink(label string) progress.Sink {
	bar := progressbar.NewOptions(100,
		progressbar.OptionSetDescription(label),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetPredictTime(true),
	)
	return func(text string) error {
		match := percentPattern.FindStringSubmatch(text)
		if match == nil {
			bar.Describe(strings.SplitN(text, "\n", 2)[0])
			return nil
		}
		value, err := strconv.ParseFloat(match[1], 64)
		if err != nil {
			return nil
		}
		return bar.Set(int(value))
	}
}

func optionsFromFlags(flags *processFlags) (ffmpeg.Options, error) {
	opts := ffmpeg.Options{
		Start:             flags.start,
		End:               flags.end,
		Duration:          flags.duration,
		Accurate:          flags.accurate,
		VideoCodec:        flags.codec,
		Preset:            flags.preset,
		Resolution:        flags.resolution,
		AudioBitrate:      flags.bitrate,
		AudioFormat:       flags.format,
		Container:         flags.container,
		Rotation:          flags.rotation,
		SpeedFactor:       flags.speed,
		WatermarkText:     flags.text,
		IntroText:         flags.text,
		WatermarkPosition: flags.position,
		ScreenshotCount:   flags.count,
		SegmentSeconds:    flags.segment,
		TargetSizeMB:      flags.targetSize,
		NewName:           flags.newName,
		StreamIndex:       flags.streamIndex,
	}
	if flags.crf >= 0 {
		opts.CRF = &flags.crf
	}
	if flags.secondInput != "" {
		second, err := filepath.Abs(flags.secondInput)
		if err != nil {
			return ffmpeg.Options{}, err
		}
		if _, err := os.Stat(second); err != nil {
			return ffmpeg.Options{}, fmt.Errorf("second input: %w", err)
		}
		opts.SecondInput = second
	}
	for _, pair := range flags.metadata {
		key, value, found := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !found || key == "" {
			return ffmpeg.Options{}, fmt.Errorf("invalid --meta %q, expected key=value", pair)
		}
		if opts.Metadata == nil {
			opts.Metadata = map[string]string{}
		}
		opts.Metadata[key] = strings.TrimSpace(value)
	}
	return opts, nil
}

func operationList() string {
	ops := []string{
		string(session.OpEncode), string(session.OpConvert), string(session.OpExtractAudio),
		string(session.OpExtractThumbnail), string(session.OpExtractScreenshots),
		string(session.OpTrim), string(session.OpSplit), string(session.OpMergeVideos),
		string(session.OpChangeSpeed), string(session.OpRotate), string(session.OpWatermarkText),
		string(session.OpEditMetadata), string(session.OpClearMetadata), string(session.OpRename),
	}
	return strings.Join(ops, ", ") + ", …"
}
