package backend

import (
	"context"
	"io"
	"net/http"
	"strings"

	"cutroom/internal/api"
)

// PresenterUpdate lists the presenter fields the backend accepts on save.
// Nil fields are left unchanged.
type PresenterUpdate struct {
	Name      *string  `json:"name,omitempty"`
	VoiceID   *string  `json:"elevenlabs_voice_id,omitempty"`
	Model     *string  `json:"elevenlabs_model,omitempty"`
	Stability *float64 `json:"elevenlabs_stability,omitempty"`
	Speed     *float64 `json:"elevenlabs_speed,omitempty"`
}

// Empty reports whether no field is set.
func (u PresenterUpdate) Empty() bool {
	return u.Name == nil && u.VoiceID == nil && u.Model == nil && u.Stability == nil && u.Speed == nil
}

type saveSettingsResponse struct {
	Status   string           `json:"status"`
	Settings api.ShowSettings `json:"settings"`
}

// ShowSettings fetches the global show settings.
func (c *Client) ShowSettings(ctx context.Context) (*api.ShowSettings, error) {
	var settings api.ShowSettings
	if err := c.getJSON(ctx, "show settings", &settings, "api", "show-settings"); err != nil {
		return nil, err
	}
	return &settings, nil
}

// SaveShowSettings updates presenter fields and returns the stored settings.
func (c *Client) SaveShowSettings(ctx context.Context, update PresenterUpdate) (*api.ShowSettings, error) {
	op := "save show settings"
	if update.Empty() {
		return nil, Wrap(ErrValidation, op, "no fields to update", nil)
	}
	var resp saveSettingsResponse
	if err := c.sendJSON(ctx, op, http.MethodPost, update, &resp, "api", "show-settings"); err != nil {
		return nil, err
	}
	return &resp.Settings, nil
}

// UploadPresenterImage replaces the presenter turnaround image.
func (c *Client) UploadPresenterImage(ctx context.Context, file io.Reader, filename string) (*UploadResponse, error) {
	op := "upload presenter image"
	if file == nil || strings.TrimSpace(filename) == "" {
		return nil, Wrap(ErrValidation, op, "No file uploaded", nil)
	}
	var resp UploadResponse
	files := []multipartFile{{field: "file", name: filename, data: file}}
	if err := c.sendMultipart(ctx, op, nil, files, &resp, "api", "show-settings", "upload"); err != nil {
		return nil, err
	}
	return &resp, nil
}
