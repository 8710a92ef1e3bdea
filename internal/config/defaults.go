package config

const (
	defaultConfigPath            = "~/.config/cutroom/config.toml"
	defaultBackendURL            = "http://127.0.0.1:8000"
	defaultBackendTimeoutSeconds = 60
	defaultBackendRetries        = 2
	defaultStateDir              = "~/.local/share/cutroom"
	defaultLogDir                = "~/.local/share/cutroom/logs"
	defaultExportDir             = "~/cutroom-exports"
	defaultRefreshDelayMS        = 500
	defaultReconnectDelaySeconds = 3
	defaultPollRetrySeconds      = 5
	defaultSecondsPerScene       = 15
	defaultBridgeRatioTarget     = 30
	defaultSceneDuration         = "8s"
	defaultCurveWidth            = 720
	defaultCurveHeight           = 160
	defaultVoiceModel            = "eleven_v3"
	defaultVoiceSpeed            = 0.70
	defaultVoiceStability        = 0.5
	defaultPreviewBind           = "127.0.0.1:7490"
	defaultLogFormat             = "console"
	defaultLogLevel              = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Backend: Backend{
			BaseURL:        defaultBackendURL,
			TimeoutSeconds: defaultBackendTimeoutSeconds,
			Retries:        defaultBackendRetries,
		},
		Paths: Paths{
			StateDir:  defaultStateDir,
			LogDir:    defaultLogDir,
			ExportDir: defaultExportDir,
		},
		Progress: Progress{
			RefreshDelayMS:        defaultRefreshDelayMS,
			ReconnectDelaySeconds: defaultReconnectDelaySeconds,
			PollRetrySeconds:      defaultPollRetrySeconds,
		},
		Storyboard: Storyboard{
			SecondsPerScene:      defaultSecondsPerScene,
			BridgeRatioTarget:    defaultBridgeRatioTarget,
			DefaultSceneDuration: defaultSceneDuration,
		},
		Curve: Curve{
			Width:  defaultCurveWidth,
			Height: defaultCurveHeight,
		},
		Voice: Voice{
			Model:     defaultVoiceModel,
			Speed:     defaultVoiceSpeed,
			Stability: defaultVoiceStability,
		},
		Preview: Preview{
			Bind: defaultPreviewBind,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
