package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
)

// Environment variables recognised as overrides. A .env file next to the
// config file (or in the working directory) is consulted after the process
// environment.
const (
	envBackendURL = "CUTROOM_BACKEND_URL"
	envLogLevel   = "CUTROOM_LOG_LEVEL"
	envLogFormat  = "CUTROOM_LOG_FORMAT"
	envVoiceID    = "CUTROOM_VOICE_ID"
)

func loadEnv(configDir string) (map[string]string, error) {
	values := make(map[string]string)
	for _, dir := range []string{".", configDir} {
		path := filepath.Join(dir, ".env")
		if _, err := os.Stat(path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("stat env file: %w", err)
		}
		parsed, err := godotenv.Read(path)
		if err != nil {
			return nil, fmt.Errorf("parse env file %s: %w", path, err)
		}
		for key, value := range parsed {
			if _, ok := values[key]; !ok {
				values[key] = value
			}
		}
	}
	for _, key := range []string{envBackendURL, envLogLevel, envLogFormat, envVoiceID} {
		if value, ok := os.LookupEnv(key); ok {
			values[key] = value
		}
	}
	return values, nil
}

func (c *Config) applyEnv(env map[string]string) {
	if value := strings.TrimSpace(env[envBackendURL]); value != "" {
		c.Backend.BaseURL = value
	}
	if value := strings.TrimSpace(env[envLogLevel]); value != "" {
		c.Logging.Level = value
	}
	if value := strings.TrimSpace(env[envLogFormat]); value != "" {
		c.Logging.Format = value
	}
	if value := strings.TrimSpace(env[envVoiceID]); value != "" && strings.TrimSpace(c.Voice.VoiceID) == "" {
		c.Voice.VoiceID = value
	}
}

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeBackend()
	c.normalizeProgress()
	c.normalizeStoryboard()
	c.normalizeCurve()
	c.normalizeVoice()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if c.Paths.ExportDir, err = expandPath(strings.TrimSpace(c.Paths.ExportDir)); err != nil {
		return fmt.Errorf("paths.export_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeBackend() {
	c.Backend.BaseURL = strings.TrimRight(strings.TrimSpace(c.Backend.BaseURL), "/")
	if c.Backend.BaseURL == "" {
		c.Backend.BaseURL = defaultBackendURL
	}
	if c.Backend.TimeoutSeconds <= 0 {
		c.Backend.TimeoutSeconds = defaultBackendTimeoutSeconds
	}
	if c.Backend.Retries < 0 {
		c.Backend.Retries = 0
	}
}

func (c *Config) normalizeProgress() {
	if c.Progress.RefreshDelayMS < 0 {
		c.Progress.RefreshDelayMS = 0
	}
	if c.Progress.ReconnectDelaySeconds <= 0 {
		c.Progress.ReconnectDelaySeconds = defaultReconnectDelaySeconds
	}
	if c.Progress.PollRetrySeconds <= 0 {
		c.Progress.PollRetrySeconds = defaultPollRetrySeconds
	}
}

func (c *Config) normalizeStoryboard() {
	if c.Storyboard.SecondsPerScene <= 0 {
		c.Storyboard.SecondsPerScene = defaultSecondsPerScene
	}
	c.Storyboard.DefaultSceneDuration = strings.TrimSpace(c.Storyboard.DefaultSceneDuration)
	if c.Storyboard.DefaultSceneDuration == "" {
		c.Storyboard.DefaultSceneDuration = defaultSceneDuration
	}
}

func (c *Config) normalizeCurve() {
	if c.Curve.Width <= 0 {
		c.Curve.Width = defaultCurveWidth
	}
	if c.Curve.Height <= 0 {
		c.Curve.Height = defaultCurveHeight
	}
}

func (c *Config) normalizeVoice() {
	c.Voice.VoiceID = strings.TrimSpace(c.Voice.VoiceID)
	c.Voice.Model = strings.TrimSpace(c.Voice.Model)
	if c.Voice.Model == "" {
		c.Voice.Model = defaultVoiceModel
	}
	if c.Voice.Speed == 0 {
		c.Voice.Speed = defaultVoiceSpeed
	}
	if c.Voice.Stability == 0 {
		c.Voice.Stability = defaultVoiceStability
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
