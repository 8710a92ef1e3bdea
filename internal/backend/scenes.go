package backend

import (
	"context"
	"net/http"
	"strings"

	"cutroom/internal/block"
)

const (
	defaultSceneType     = "bridge"
	defaultSceneDuration = "8s"
)

// UpdateSceneRequest rewrites one scene from its action text.
type UpdateSceneRequest struct {
	Block           block.Ref
	SceneIndex      int
	SceneType       string
	Action          string
	Narration       string
	Duration        string
	RegenerateImage bool
}

// InsertSceneRequest adds a scene at InsertIndex.
type InsertSceneRequest struct {
	Block       block.Ref
	InsertIndex int
	SceneType   string
	Action      string
	Narration   string
	Duration    string
}

// EditPromptRequest asks the backend to rewrite a scene prompt.
type EditPromptRequest struct {
	Block         block.Ref
	SceneIndex    int
	CurrentPrompt string
	CurrentSFX    string
	Feedback      string
}

// EditPromptResponse carries the rewritten prompt.
type EditPromptResponse struct {
	Status     string `json:"status"`
	PromptText string `json:"prompt_text"`
	SFX        string `json:"sfx"`
}

// EditLocationImageRequest regenerates a location image from feedback.
type EditLocationImageRequest struct {
	Block          block.Ref
	LocationID     string
	LocationImage  string
	CurrentPrompt  string
	Feedback       string
	ReferenceImage string
}

// EditLocationImageResponse carries the new location prompt.
type EditLocationImageResponse struct {
	Status        string `json:"status"`
	NewPrompt     string `json:"new_prompt"`
	LocationImage string `json:"location_image,omitempty"`
	UpdatedScenes int    `json:"updated_scenes,omitempty"`
}

// UpdateScene starts a background scene rewrite. Progress arrives on the
// project's stream.
func (c *Client) UpdateScene(ctx context.Context, projectID string, req UpdateSceneRequest) (*TriggerResponse, error) {
	op := "update scene"
	if err := requireID(projectID, op); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.Action) == "" {
		return nil, Wrap(ErrValidation, op, "Action is required", nil)
	}
	body := map[string]any{
		"block_folder":     req.Block.Folder(),
		"scene_index":      req.SceneIndex,
		"scene_type":       orDefault(req.SceneType, defaultSceneType),
		"action":           req.Action,
		"narration":        req.Narration,
		"duration":         orDefault(req.Duration, defaultSceneDuration),
		"regenerate_image": req.RegenerateImage,
	}
	return c.trigger(ctx, op, projectID, "update-scene", body)
}

// InsertScene starts a background scene insertion.
func (c *Client) InsertScene(ctx context.Context, projectID string, req InsertSceneRequest) (*TriggerResponse, error) {
	op := "insert scene"
	if err := requireID(projectID, op); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.Action) == "" {
		return nil, Wrap(ErrValidation, op, "Action is required", nil)
	}
	body := map[string]any{
		"block_folder": req.Block.Folder(),
		"insert_index": req.InsertIndex,
		"scene_type":   orDefault(req.SceneType, defaultSceneType),
		"action":       req.Action,
		"narration":    req.Narration,
		"duration":     orDefault(req.Duration, defaultSceneDuration),
	}
	return c.trigger(ctx, op, projectID, "insert-scene", body)
}

// EditPrompt rewrites a scene prompt synchronously.
func (c *Client) EditPrompt(ctx context.Context, projectID string, req EditPromptRequest) (*EditPromptResponse, error) {
	op := "edit prompt"
	if err := requireID(projectID, op); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.Feedback) == "" {
		return nil, Wrap(ErrValidation, op, "No feedback provided", nil)
	}
	body := map[string]any{
		"block_folder":   req.Block.Folder(),
		"scene_index":    req.SceneIndex,
		"current_prompt": req.CurrentPrompt,
		"current_sfx":    req.CurrentSFX,
		"feedback":       req.Feedback,
	}
	var resp EditPromptResponse
	if err := c.sendJSON(ctx, op, http.MethodPost, body, &resp, "api", "project", projectID, "edit-prompt"); err != nil {
		return nil, err
	}
	return &resp, nil
}

// EditLocationImage regenerates a location image synchronously.
func (c *Client) EditLocationImage(ctx context.Context, projectID string, req EditLocationImageRequest) (*EditLocationImageResponse, error) {
	op := "edit location image"
	if err := requireID(projectID, op); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.Feedback) == "" {
		return nil, Wrap(ErrValidation, op, "No feedback provided", nil)
	}
	if strings.TrimSpace(req.LocationID) == "" {
		return nil, Wrap(ErrValidation, op, "No location_id provided", nil)
	}
	body := map[string]any{
		"block_folder":    req.Block.Folder(),
		"location_id":     req.LocationID,
		"location_image":  req.LocationImage,
		"current_prompt":  req.CurrentPrompt,
		"feedback":        req.Feedback,
		"reference_image": req.ReferenceImage,
	}
	var resp EditLocationImageResponse
	if err := c.sendJSON(ctx, op, http.MethodPost, body, &resp, "api", "project", projectID, "edit-location-image"); err != nil {
		return nil, err
	}
	return &resp, nil
}

func orDefault(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}
