package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Backend contains connection settings for the production backend.
type Backend struct {
	BaseURL        string `toml:"base_url"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	Retries        int    `toml:"retries"`
}

// Paths contains local directory configuration.
type Paths struct {
	StateDir  string `toml:"state_dir"`
	LogDir    string `toml:"log_dir"`
	ExportDir string `toml:"export_dir"`
}

// Progress contains timing for generation progress streams.
type Progress struct {
	RefreshDelayMS        int `toml:"refresh_delay_ms"`
	ReconnectDelaySeconds int `toml:"reconnect_delay_seconds"`
	PollRetrySeconds      int `toml:"poll_retry_seconds"`
}

// Storyboard contains storyboard editing defaults.
type Storyboard struct {
	SecondsPerScene      int    `toml:"seconds_per_scene"`
	BridgeRatioTarget    int    `toml:"bridge_ratio_target"`
	DefaultSceneDuration string `toml:"default_scene_duration"`
}

// Curve contains tension curve surface dimensions.
type Curve struct {
	Width  int `toml:"width"`
	Height int `toml:"height"`
}

// Voice contains default voice synthesis parameters for presenter audio.
type Voice struct {
	VoiceID   string  `toml:"voice_id"`
	Model     string  `toml:"model"`
	Speed     float64 `toml:"speed"`
	Stability float64 `toml:"stability"`
}

// Preview contains settings for the local preview relay.
type Preview struct {
	Bind string `toml:"bind"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for cutroom.
//
// Configuration sections by subsystem:
//   - Backend: REST/SSE endpoint of the production backend
//   - Paths: local state, log and export directories
//   - Progress: stream refresh, reconnect and poll timing
//   - Storyboard: editing defaults and quality thresholds
//   - Curve: tension curve surface size
//   - Voice: presenter voice synthesis defaults
//   - Preview: local preview relay bind address
//   - Logging: log format and level
type Config struct {
	Backend    Backend    `toml:"backend"`
	Paths      Paths      `toml:"paths"`
	Progress   Progress   `toml:"progress"`
	Storyboard Storyboard `toml:"storyboard"`
	Curve      Curve      `toml:"curve"`
	Voice      Voice      `toml:"voice"`
	Preview    Preview    `toml:"preview"`
	Logging    Logging    `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and environment overrides applied.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	env, err := loadEnv(filepath.Dir(resolvedPath))
	if err != nil {
		return nil, "", false, err
	}
	cfg.applyEnv(env)

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("cutroom.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the local state and log directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.StateDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	if strings.TrimSpace(c.Paths.ExportDir) != "" {
		// Exports are optional; a missing mount should not block other commands.
		_ = os.MkdirAll(c.Paths.ExportDir, 0o755)
	}
	return nil
}

// WorkspaceDBPath returns the location of the local workspace database.
func (c *Config) WorkspaceDBPath() string {
	return filepath.Join(c.Paths.StateDir, "workspace.db")
}

// LockDir returns the directory holding per-project generation locks.
func (c *Config) LockDir() string {
	return filepath.Join(c.Paths.StateDir, "locks")
}

// BackendTimeout returns the HTTP timeout for non-streaming requests.
func (c *Config) BackendTimeout() time.Duration {
	return time.Duration(c.Backend.TimeoutSeconds) * time.Second
}

// RefreshDelay is the pause between a complete event and the resource refetch.
func (c *Config) RefreshDelay() time.Duration {
	return time.Duration(c.Progress.RefreshDelayMS) * time.Millisecond
}

// ReconnectDelay is the pause before a retry-tolerant stream reopens.
func (c *Config) ReconnectDelay() time.Duration {
	return time.Duration(c.Progress.ReconnectDelaySeconds) * time.Second
}

// PollRetry is the pause between block reload attempts.
func (c *Config) PollRetry() time.Duration {
	return time.Duration(c.Progress.PollRetrySeconds) * time.Second
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
