package config

const (
	defaultWorkDir              = "~/.local/share/ffmpegbot/work"
	defaultOutputDir            = "~/.local/share/ffmpegbot/output"
	defaultLogDir               = "~/.local/share/ffmpegbot/logs"
	defaultDatabasePath         = "~/.local/share/ffmpegbot/ffmpegbot.db"
	defaultLockPath             = "~/.local/share/ffmpegbot/ffmpegbot.lock"
	defaultFFmpegBinary         = "ffmpeg"
	defaultFFprobeBinary        = "ffprobe"
	defaultVideoCodec           = "libx264"
	defaultPreset               = "veryfast"
	defaultCRF                  = 23
	defaultAudioBitrate         = "192k"
	defaultProbeTimeout         = 60
	defaultStderrTailLines      = 30
	defaultProgressInterval     = 3
	defaultQueueMaxDepth        = 5
	defaultStaleRunningMinutes  = 120
	defaultMinFreeSpaceGiB      = 2
	defaultScreenshotCountLimit = 10
	defaultMaxDirectMB          = 2000
	defaultLogFormat            = "console"
	defaultLogLevel             = "info"
	defaultLogRetentionDays     = 30
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			WorkDir:      defaultWorkDir,
			OutputDir:    defaultOutputDir,
			LogDir:       defaultLogDir,
			DatabasePath: defaultDatabasePath,
			LockPath:     defaultLockPath,
		},
		FFmpeg: FFmpeg{
			FFmpegBinary:     defaultFFmpegBinary,
			FFprobeBinary:    defaultFFprobeBinary,
			VideoCodec:       defaultVideoCodec,
			Preset:           defaultPreset,
			CRF:              defaultCRF,
			AudioBitrate:     defaultAudioBitrate,
			ProbeTimeout:     defaultProbeTimeout,
			StderrTailLines:  defaultStderrTailLines,
			ProgressInterval: defaultProgressInterval,
		},
		Queue: Queue{
			MaxDepth:             defaultQueueMaxDepth,
			StaleRunningMinutes:  defaultStaleRunningMinutes,
			MinFreeSpaceGiB:      defaultMinFreeSpaceGiB,
			ScreenshotCountLimit: defaultScreenshotCountLimit,
		},
		Delivery: Delivery{
			MaxDirectMB: defaultMaxDirectMB,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
