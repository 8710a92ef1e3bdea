package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateBackend(); err != nil {
		return err
	}
	if err := c.validateStoryboard(); err != nil {
		return err
	}
	if err := c.validateVoice(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateBackend() error {
	parsed, err := url.Parse(c.Backend.BaseURL)
	if err != nil {
		return fmt.Errorf("backend.base_url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("backend.base_url must use http or https, got %q", c.Backend.BaseURL)
	}
	if parsed.Host == "" {
		return errors.New("backend.base_url must include a host")
	}
	return nil
}

func (c *Config) validateStoryboard() error {
	if c.Storyboard.BridgeRatioTarget < 0 || c.Storyboard.BridgeRatioTarget > 100 {
		return errors.New("storyboard.bridge_ratio_target must be between 0 and 100")
	}
	return nil
}

func (c *Config) validateVoice() error {
	if c.Voice.Speed < 0 || c.Voice.Speed > 2 {
		return errors.New("voice.speed must be between 0 and 2")
	}
	if c.Voice.Stability < 0 || c.Voice.Stability > 1 {
		return errors.New("voice.stability must be between 0 and 1")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "warning", "error":
		return nil
	default:
		return fmt.Errorf("logging.level %q is not one of debug, info, warn, error", c.Logging.Level)
	}
}
