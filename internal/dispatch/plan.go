package dispatch

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/shohan-001/ffmpeg-video-bot/internal/config"
	"github.com/shohan-001/ffmpeg-video-bot/internal/ffmpeg"
	"github.com/shohan-001/ffmpeg-video-bot/internal/fileutil"
	"github.com/shohan-001/ffmpeg-video-bot/internal/services"
	"github.com/shohan-001/ffmpeg-video-bot/internal/session"
)

// plan is the executable shape of one request: the command sequence, an
// optional re-encode fallback for stream-copy merges, and a glob pattern for
// operations whose real output list is only known after the run.
type plan struct {
	commands      []ffmpeg.Command
	cleanup       func()
	mergeFallback *ffmpeg.Command
	globPattern   string
}

func (p plan) close() {
	if p.cleanup != nil {
		p.cleanup()
	}
}

// applySettings fills option fields the user left untouched from their stored
// settings snapshot.
func applySettings(req *session.OperationRequest) {
	opts := &req.Options
	stored := req.Settings

	if opts.VideoCodec == "" {
		opts.VideoCodec = stored.VideoCodec
	}
	if opts.AudioCodec == "" {
		opts.AudioCodec = stored.AudioCodec
	}
	if opts.CRF == nil {
		crf := stored.CRF
		opts.CRF = &crf
	}
	if opts.Preset == "" {
		opts.Preset = stored.Preset
	}
	if opts.Resolution == "" {
		opts.Resolution = stored.Resolution
	}
	if opts.AudioBitrate == "" {
		opts.AudioBitrate = stored.AudioBitrate
	}
	if opts.Container == "" {
		opts.Container = stored.OutputFormat
	}
	if opts.WatermarkText == "" && stored.WatermarkEnabled {
		opts.WatermarkText = stored.WatermarkText
	}
	if opts.WatermarkPosition == "" {
		opts.WatermarkPosition = stored.WatermarkPosition
	}
}

// buildPlan selects the builder for the request's operation and derives
// collision-free output paths under the user's namespace.
func buildPlan(req session.OperationRequest, cfg *config.Config, workDir string) (plan, error) {
	outDir, err := fileutil.UserDir(cfg.Paths.OutputDir, req.UserID)
	if err != nil {
		return plan{}, services.Wrap(services.ErrConfiguration, "dispatch", "build_plan",
			"creating output directory failed", err)
	}

	input := req.InputPath
	opts := req.Options
	name := req.InputName
	if name == "" {
		name = filepath.Base(input)
	}
	inputExt := filepath.Ext(name)
	stem := fileutil.SanitizeFilename(strings.TrimSuffix(name, inputExt))
	if inputExt == "" {
		inputExt = filepath.Ext(input)
	}

	out := func(suffix, ext string) string {
		return fileutil.UniquePath(filepath.Join(outDir, stem+suffix+ext))
	}
	single := func(cmd ffmpeg.Command) (plan, error) {
		return plan{commands: []ffmpeg.Command{cmd}}, nil
	}

	switch req.Operation {
	case session.OpEncode:
		ext := containerExt(opts.Container, inputExt)
		if opts.TargetSizeMB > 0 {
			cmd, buildErr := ffmpeg.CompressToSize(input, out("_compressed", ext), opts)
			if buildErr != nil {
				return plan{}, services.Wrap(services.ErrValidation, "dispatch", "build_plan", buildErr.Error(), nil)
			}
			return single(cmd)
		}
		return single(ffmpeg.Encode(input, out("_encoded", ext), opts))

	case session.OpConvert:
		target := containerExt(opts.Container, inputExt)
		if strings.EqualFold(target, inputExt) {
			return plan{}, services.Wrap(services.ErrValidation, "dispatch", "build_plan",
				fmt.Sprintf("file is already %s", target), nil)
		}
		return single(ffmpeg.Convert(input, out("", target), opts))

	case session.OpExtractAudio:
		_, ext := ffmpeg.AudioCodecFor(opts.AudioFormat)
		return single(ffmpeg.ExtractAudio(input, out("", ext), opts))

	case session.OpExtractVideo:
		return single(ffmpeg.ExtractVideo(input, out("_video", inputExt), opts))

	case session.OpExtractSubtitles:
		return single(ffmpeg.ExtractSubtitles(input, out("", ".srt"), opts))

	case session.OpExtractThumbnail:
		return single(ffmpeg.Thumbnail(input, out("_thumb", ".jpg"), opts))

	case session.OpExtractScreenshots:
		if limit := cfg.Queue.ScreenshotCountLimit; limit > 0 && opts.ScreenshotCount > limit {
			opts.ScreenshotCount = limit
		}
		pattern := fileutil.UniquePath(filepath.Join(outDir, stem+"_shot.jpg"))
		return plan{commands: ffmpeg.Screenshots(input, pattern, opts)}, nil

	case session.OpRemoveAudio:
		return single(ffmpeg.RemoveAudio(input, out("_noaudio", inputExt), opts))

	case session.OpRemoveVideo:
		return single(ffmpeg.RemoveVideo(input, out("_novideo", inputExt), opts))

	case session.OpRemoveSubtitles:
		return single(ffmpeg.RemoveSubtitles(input, out("_nosubs", inputExt), opts))

	case session.OpMergeVideos:
		listPath, cleanup, listErr := ffmpeg.WriteConcatList(workDir, input, opts.SecondInput)
		if listErr != nil {
			return plan{}, services.Wrap(services.ErrValidation, "dispatch", "build_plan",
				"writing concat list failed", listErr)
		}
		output := out("_merged", inputExt)
		fallback := ffmpeg.MergeFilter(input, opts.SecondInput, output)
		return plan{
			commands:      []ffmpeg.Command{ffmpeg.MergeCopy(listPath, output)},
			cleanup:       cleanup,
			mergeFallback: &fallback,
		}, nil

	case session.OpAddAudio:
		return single(ffmpeg.AddAudio(input, out("_dubbed", inputExt), opts))

	case session.OpAddSubtitle:
		return single(ffmpeg.AddSubtitle(input, out("_subbed", inputExt), opts))

	case session.OpSwapStreams:
		return single(ffmpeg.SwapStreams(input, out("_swapped", inputExt), opts))

	case session.OpWatermarkText:
		if opts.WatermarkText == "" {
			return plan{}, services.Wrap(services.ErrValidation, "dispatch", "build_plan",
				"watermark text is empty", nil)
		}
		return single(ffmpeg.WatermarkText(input, out("_marked", inputExt), opts))

	case session.OpWatermarkImage:
		return single(ffmpeg.WatermarkImage(input, out("_marked", inputExt), opts))

	case session.OpBurnSubtitles:
		return single(ffmpeg.BurnSubtitles(input, out("_hardsub", inputExt), opts))

	case session.OpSubIntro:
		return single(ffmpeg.Intro(input, out("_intro", inputExt), opts))

	case session.OpTrim:
		return single(ffmpeg.Trim(input, out("_trimmed", inputExt), opts))

	case session.OpSplit:
		pattern := filepath.Join(outDir, stem+"_part_%03d"+inputExt)
		return plan{
			commands:    []ffmpeg.Command{ffmpeg.Split(input, pattern, opts)},
			globPattern: filepath.Join(outDir, stem+"_part_*"+inputExt),
		}, nil

	case session.OpChangeSpeed:
		cmd, buildErr := ffmpeg.ChangeSpeed(input, out("_speed", inputExt), opts)
		if buildErr != nil {
			return plan{}, services.Wrap(services.ErrValidation, "dispatch", "build_plan", buildErr.Error(), nil)
		}
		return single(cmd)

	case session.OpRotate:
		return single(ffmpeg.Rotate(input, out("_rotated", inputExt), opts))

	case session.OpEditMetadata:
		if opts.SecondInput != "" {
			return single(ffmpeg.AttachCover(input, out("_cover", inputExt), opts))
		}
		if len(opts.Metadata) == 0 {
			return plan{}, services.Wrap(services.ErrValidation, "dispatch", "build_plan",
				"no metadata fields supplied", nil)
		}
		return single(ffmpeg.EditMetadata(input, out("_meta", inputExt), opts))

	case session.OpClearMetadata:
		return single(ffmpeg.ClearMetadata(input, out("_clean", inputExt), opts))

	case session.OpCustomCommand:
		cmd, buildErr := ffmpeg.Custom(input, out("_custom", inputExt), opts)
		if buildErr != nil {
			return plan{}, services.Wrap(services.ErrValidation, "dispatch", "build_plan", buildErr.Error(), nil)
		}
		return single(cmd)

	case session.OpRename:
		if strings.TrimSpace(opts.NewName) == "" {
			return plan{}, services.Wrap(services.ErrValidation, "dispatch", "build_plan",
				"new name is empty", nil)
		}
		newName := fileutil.SanitizeFilename(opts.NewName)
		if filepath.Ext(newName) == "" {
			newName += inputExt
		}
		output := fileutil.UniquePath(filepath.Join(outDir, newName))
		return single(ffmpeg.Rename(input, output, opts))
	}

	return plan{}, services.Wrap(services.ErrValidation, "dispatch", "build_plan",
		fmt.Sprintf("unsupported operation %q", req.Operation), nil)
}

// containerExt normalizes a container name to a dot extension, falling back
// to the input's extension.
func containerExt(container, inputExt string) string {
	container = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(container), "."))
	if container == "" {
		if inputExt == "" {
			return ".mkv"
		}
		return strings.ToLower(inputExt)
	}
	return "." + container
}
