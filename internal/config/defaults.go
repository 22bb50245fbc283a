package config

const (
	defaultConfigPath              = "~/.config/vidresume/config.toml"
	defaultStateDir                = "~/.local/share/vidresume"
	defaultLogDir                  = "~/.local/share/vidresume/logs"
	defaultOutputDir               = "~/Videos/vidresume"
	defaultWorkDir                 = "~/.cache/vidresume"
	defaultAPIBind                 = "127.0.0.1:7488"
	defaultResumeMode              = 3
	defaultSceneThreshold          = 0.3
	defaultScenesPeriodicity       = 3
	defaultMillisecondsPeriodicity = 1000
	defaultResumePercentage        = 20.0
	defaultVectoring               = "tf_idf_smooth_l2"
	defaultLanguage                = "english"
	defaultPunctuationSigns        = "!\"#$%&'()*+,-./:;<=>?@[\\]^_`{|}~¡¿"
	defaultDetectorCommand         = "darknet-classify"
	defaultAudioCodec              = "aac"
	defaultVideoCodec              = "libx264"
	defaultLogFormat               = "console"
	defaultLogLevel                = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StateDir:  defaultStateDir,
			LogDir:    defaultLogDir,
			OutputDir: defaultOutputDir,
			WorkDir:   defaultWorkDir,
			APIBind:   defaultAPIBind,
		},
		General: General{
			ResumeMode:   defaultResumeMode,
			DetectScenes: true,
		},
		Scenes: Scenes{
			Threshold: defaultSceneThreshold,
		},
		Objects: Objects{
			Optimization:            true,
			ScenesPeriodicity:       defaultScenesPeriodicity,
			MillisecondsPeriodicity: defaultMillisecondsPeriodicity,
			DetectorCommand:         defaultDetectorCommand,
		},
		Subtitles: Subtitles{
			ResumePercentage:     defaultResumePercentage,
			Vectoring:            defaultVectoring,
			Language:             defaultLanguage,
			RemovePunctuation:    true,
			PunctuationSigns:     defaultPunctuationSigns,
			RemoveStopWords:      true,
			RemoveCapitalLetters: true,
			RemoveAccents:        true,
		},
		Render: Render{
			Enabled:    true,
			AudioCodec: defaultAudioCodec,
			VideoCodec: defaultVideoCodec,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
