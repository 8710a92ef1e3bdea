package backend

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"

	"cutroom/internal/api"
)

// UploadResponse acknowledges a file upload.
type UploadResponse struct {
	Status   string `json:"status"`
	Filename string `json:"filename"`
}

// FrameResponse carries a regenerated scene prompt entry.
type FrameResponse struct {
	Status string          `json:"status"`
	Scene  json.RawMessage `json:"scene"`
}

// GenerateAudioSegment synthesizes one narration segment.
func (c *Client) GenerateAudioSegment(ctx context.Context, projectID string, req api.AudioSegmentRequest) (*api.AudioSegment, error) {
	op := "generate audio"
	if err := requireID(projectID, op); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.SegmentID) == "" {
		return nil, Wrap(ErrValidation, op, "segment_id is required", nil)
	}
	if strings.TrimSpace(req.VoiceID) == "" {
		return nil, Wrap(ErrValidation, op, "voice_id is required", nil)
	}
	if req.SegmentType == "" {
		req.SegmentType = "narration"
	}
	var segment api.AudioSegment
	if err := c.sendJSON(ctx, op, http.MethodPost, req, &segment, "api", "project", projectID, "generate_audio_segment"); err != nil {
		return nil, err
	}
	if segment.SegmentID == "" {
		segment.SegmentID = req.SegmentID
	}
	return &segment, nil
}

// RegenerateElement redraws an element image from its description.
func (c *Client) RegenerateElement(ctx context.Context, projectID, elementID string) (*api.Element, error) {
	op := "regenerate element"
	if err := requireElement(projectID, elementID, op); err != nil {
		return nil, err
	}
	var resp api.ElementResponse
	if err := c.sendJSON(ctx, op, http.MethodPost, map[string]any{}, &resp, "api", "project", projectID, "regenerate-element", elementID); err != nil {
		return nil, err
	}
	return &resp.Element, nil
}

// EditElement redraws an element image guided by feedback.
func (c *Client) EditElement(ctx context.Context, projectID, elementID, feedback string) (*api.Element, error) {
	op := "edit element"
	if err := requireElement(projectID, elementID, op); err != nil {
		return nil, err
	}
	if strings.TrimSpace(feedback) == "" {
		return nil, Wrap(ErrValidation, op, "No feedback provided", nil)
	}
	var resp api.ElementResponse
	if err := c.sendJSON(ctx, op, http.MethodPost, map[string]any{"feedback": feedback}, &resp, "api", "project", projectID, "regenerate-element", elementID, "edit"); err != nil {
		return nil, err
	}
	return &resp.Element, nil
}

// UploadElement replaces an element image with a local file.
func (c *Client) UploadElement(ctx context.Context, projectID, elementID string, file io.Reader, filename string) (*api.Element, error) {
	op := "upload element"
	if err := requireElement(projectID, elementID, op); err != nil {
		return nil, err
	}
	if file == nil || strings.TrimSpace(filename) == "" {
		return nil, Wrap(ErrValidation, op, "No file uploaded", nil)
	}
	var resp api.ElementResponse
	files := []multipartFile{{field: "file", name: filename, data: file}}
	if err := c.sendMultipart(ctx, op, nil, files, &resp, "api", "project", projectID, "upload-element", elementID); err != nil {
		return nil, err
	}
	return &resp.Element, nil
}

// RegenerateFrame redraws the Frame A image of a scene prompt entry.
func (c *Client) RegenerateFrame(ctx context.Context, projectID string, sceneNumber int) (*FrameResponse, error) {
	op := "regenerate frame"
	if err := requireID(projectID, op); err != nil {
		return nil, err
	}
	var resp FrameResponse
	if err := c.sendJSON(ctx, op, http.MethodPost, map[string]any{}, &resp, "api", "project", projectID, "regenerate-frame", strconv.Itoa(sceneNumber)); err != nil {
		return nil, err
	}
	return &resp, nil
}

// UploadFrame replaces the Frame A image of a scene prompt entry.
func (c *Client) UploadFrame(ctx context.Context, projectID string, sceneNumber int, file io.Reader, filename string) (*UploadResponse, error) {
	op := "upload frame"
	if err := requireID(projectID, op); err != nil {
		return nil, err
	}
	if file == nil || strings.TrimSpace(filename) == "" {
		return nil, Wrap(ErrValidation, op, "No file provided", nil)
	}
	var resp UploadResponse
	files := []multipartFile{{field: "file", name: filename, data: file}}
	if err := c.sendMultipart(ctx, op, nil, files, &resp, "api", "project", projectID, "upload-frame", strconv.Itoa(sceneNumber)); err != nil {
		return nil, err
	}
	return &resp, nil
}

func requireElement(projectID, elementID, op string) error {
	if err := requireID(projectID, op); err != nil {
		return err
	}
	if strings.TrimSpace(elementID) == "" {
		return Wrap(ErrValidation, op, "element id required", nil)
	}
	return nil
}
