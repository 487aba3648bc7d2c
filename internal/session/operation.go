package session

import (
	"fmt"
	"strings"
)

// Operation identifies one of the supported processing operations.
type Operation string

const (
	OpEncode             Operation = "encode"
	OpConvert            Operation = "convert"
	OpExtractAudio       Operation = "extract_audio"
	OpExtractVideo       Operation = "extract_video"
	OpExtractSubtitles   Operation = "extract_subtitles"
	OpExtractThumbnail   Operation = "extract_thumbnail"
	OpExtractScreenshots Operation = "extract_screenshots"
	OpRemoveAudio        Operation = "remove_audio"
	OpRemoveVideo        Operation = "remove_video"
	OpRemoveSubtitles    Operation = "remove_subtitles"
	OpMergeVideos        Operation = "merge_videos"
	OpAddAudio           Operation = "add_audio"
	OpAddSubtitle        Operation = "add_subtitle"
	OpSwapStreams        Operation = "swap_streams"
	OpWatermarkText      Operation = "watermark_text"
	OpWatermarkImage     Operation = "watermark_image"
	OpBurnSubtitles      Operation = "burn_subtitles"
	OpSubIntro           Operation = "sub_intro"
	OpTrim               Operation = "trim"
	OpSplit              Operation = "split"
	OpChangeSpeed        Operation = "change_speed"
	OpRotate             Operation = "rotate"
	OpEditMetadata       Operation = "edit_metadata"
	OpClearMetadata      Operation = "clear_metadata"
	OpCustomCommand      Operation = "custom_command"
	OpRename             Operation = "rename"
)

var allOperations = []Operation{
	OpEncode, OpConvert,
	OpExtractAudio, OpExtractVideo, OpExtractSubtitles,
	OpExtractThumbnail, OpExtractScreenshots,
	OpRemoveAudio, OpRemoveVideo, OpRemoveSubtitles,
	OpMergeVideos, OpAddAudio, OpAddSubtitle, OpSwapStreams,
	OpWatermarkText, OpWatermarkImage, OpBurnSubtitles, OpSubIntro,
	OpTrim, OpSplit, OpChangeSpeed, OpRotate,
	OpEditMetadata, OpClearMetadata, OpCustomCommand, OpRename,
}

var operationSet = func() map[Operation]bool {
	set := make(map[Operation]bool, len(allOperations))
	for _, op := range allOperations {
		set[op] = true
	}
	return set
}()

// ParseOperation validates a raw operation name.
func ParseOperation(raw string) (Operation, error) {
	op := Operation(strings.ToLower(strings.TrimSpace(raw)))
	if !operationSet[op] {
		return "", fmt.Errorf("unknown operation %q", raw)
	}
	return op, nil
}

func (o Operation) String() string {
	return string(o)
}

// Valid reports whether the operation is one of the supported set.
func (o Operation) Valid() bool {
	return operationSet[o]
}

// needsSecondInput maps operations to the auxiliary input they cannot run
// without. The dispatcher parks the session in the matching awaiting state
// until the user supplies it.
var needsSecondInput = map[Operation]AwaitingInput{
	OpMergeVideos:    AwaitSecondVideo,
	OpAddAudio:       AwaitAudioFile,
	OpAddSubtitle:    AwaitSubtitleFile,
	OpBurnSubtitles:  AwaitSubtitleFile,
	OpWatermarkImage: AwaitWatermarkImage,
}

// SecondInputKind returns the awaiting state for operations that need an
// auxiliary file, and AwaitNone for the rest.
func (o Operation) SecondInputKind() AwaitingInput {
	return needsSecondInput[o]
}
