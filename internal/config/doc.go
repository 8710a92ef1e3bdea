// Package config loads, normalizes, and validates cutroom configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment overrides such as
// CUTROOM_BACKEND_URL, either from the process environment or from a .env
// file. The Config type centralizes every knob the CLI and the preview relay
// need so the backend endpoint, stream timing and storyboard defaults are
// discovered in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
