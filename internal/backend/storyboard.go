package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"cutroom/internal/api"
	"cutroom/internal/block"
)

// SaveResponse acknowledges a storyboard write.
type SaveResponse struct {
	Status string `json:"status"`
	Scenes int    `json:"scenes,omitempty"`
}

// GetStoryboard fetches a block's storyboard. A missing block is reported as
// ErrNotGenerated.
func (c *Client) GetStoryboard(ctx context.Context, projectID string, ref block.Ref) (*api.StoryboardDocument, error) {
	op := "get storyboard"
	if err := requireID(projectID, op); err != nil {
		return nil, err
	}
	var doc api.StoryboardDocument
	err := c.getJSON(ctx, op, &doc, "api", "project", projectID, "storyboard", ref.Folder())
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, Wrap(ErrNotGenerated, op, ref.Folder(), err)
		}
		return nil, err
	}
	return &doc, nil
}

// PutStoryboardDocument replaces a chapter's full storyboard document.
func (c *Client) PutStoryboardDocument(ctx context.Context, projectID string, chapter int, doc *api.StoryboardDocument) (*SaveResponse, error) {
	op := "save storyboard"
	if err := requireID(projectID, op); err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, Wrap(ErrValidation, op, "No data provided", nil)
	}
	var resp SaveResponse
	if err := c.sendJSON(ctx, op, http.MethodPut, doc, &resp, "api", "project", projectID, "storyboard", strconv.Itoa(chapter)); err != nil {
		return nil, err
	}
	return &resp, nil
}

// PutBlockScenes replaces only the scenes array of a block's storyboard.
func (c *Client) PutBlockScenes(ctx context.Context, projectID string, ref block.Ref, scenes []api.Scene) (*SaveResponse, error) {
	op := "save block scenes"
	if err := requireID(projectID, op); err != nil {
		return nil, err
	}
	if scenes == nil {
		scenes = []api.Scene{}
	}
	body := map[string]any{"storyboard": scenes}
	var resp SaveResponse
	if err := c.sendJSON(ctx, op, http.MethodPut, body, &resp, "api", "project", projectID, "storyboard", ref.Folder()); err != nil {
		return nil, err
	}
	return &resp, nil
}

// SaveStoryboard pushes a working copy. Chapters are written as a full
// document so totals and validation persist; other blocks only accept a
// scenes replacement.
func (c *Client) SaveStoryboard(ctx context.Context, projectID string, ref block.Ref, doc *api.StoryboardDocument) (*SaveResponse, error) {
	if doc == nil {
		return nil, Wrap(ErrValidation, "save storyboard", "No data provided", nil)
	}
	if ref.Kind() == block.KindChapter {
		return c.PutStoryboardDocument(ctx, projectID, ref.Index(), doc)
	}
	return c.PutBlockScenes(ctx, projectID, ref, doc.Storyboard)
}

// ProductionFile fetches a file from a chapter's production package.
func (c *Client) ProductionFile(ctx context.Context, projectID string, chapter int, filename string) (json.RawMessage, error) {
	op := "production file"
	if err := requireID(projectID, op); err != nil {
		return nil, err
	}
	filename = strings.TrimSpace(filename)
	if filename == "" || strings.ContainsAny(filename, `/\`) {
		return nil, Wrap(ErrValidation, op, fmt.Sprintf("invalid filename %q", filename), nil)
	}
	var raw json.RawMessage
	if err := c.getJSON(ctx, op, &raw, "api", "project", projectID, "production", strconv.Itoa(chapter), filename); err != nil {
		return nil, err
	}
	return raw, nil
}

// ProductionScene is one scene of a chapter's production package.
type ProductionScene struct {
	SceneNum         int            `json:"scene_num,omitempty"`
	Number           int            `json:"number,omitempty"`
	Type             string         `json:"type,omitempty"`
	LocationImage    string         `json:"location_image,omitempty"`
	VideoPrompt      string         `json:"video_prompt,omitempty"`
	NarrationExcerpt string         `json:"narration_excerpt,omitempty"`
	NarrationText    string         `json:"narration_text,omitempty"`
	Duration         api.FlexString `json:"duration,omitempty"`
}

// Num returns the scene number, falling back to the one-based position.
func (s ProductionScene) Num(position int) int {
	switch {
	case s.SceneNum > 0:
		return s.SceneNum
	case s.Number > 0:
		return s.Number
	default:
		return position + 1
	}
}

// Seconds returns the scene duration, defaulting to 8 seconds.
func (s ProductionScene) Seconds() float64 {
	value := strings.TrimRight(strings.TrimSpace(s.Duration.String()), "sS")
	if seconds, err := strconv.ParseFloat(value, 64); err == nil && seconds > 0 {
		return seconds
	}
	return 8
}

// ProductionPrompts is a chapter's prompts.json. Older packages store a bare
// array; newer ones wrap it in {scenes}.
type ProductionPrompts struct {
	Scenes []ProductionScene `json:"scenes"`
}

// TotalSeconds sums scene durations.
func (p ProductionPrompts) TotalSeconds() float64 {
	var total float64
	for _, scene := range p.Scenes {
		total += scene.Seconds()
	}
	return total
}

// GetProductionPrompts fetches production/{chapter}/prompts.json.
func (c *Client) GetProductionPrompts(ctx context.Context, projectID string, chapter int) (*ProductionPrompts, error) {
	raw, err := c.ProductionFile(ctx, projectID, chapter, "prompts.json")
	if err != nil {
		return nil, err
	}
	prompts := &ProductionPrompts{}
	var list []ProductionScene
	if err := json.Unmarshal(raw, &list); err == nil {
		prompts.Scenes = list
		return prompts, nil
	}
	if err := json.Unmarshal(raw, prompts); err != nil {
		return nil, Wrap(ErrApplication, "production prompts", "decode", err)
	}
	return prompts, nil
}
