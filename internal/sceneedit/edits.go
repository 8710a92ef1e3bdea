package sceneedit

import (
	"context"
	"fmt"
	"strings"

	"cutroom/internal/api"
	"cutroom/internal/appstate"
	"cutroom/internal/backend"
	"cutroom/internal/block"
	"cutroom/internal/logging"
	"cutroom/internal/storyboard"
)

// DefaultDuration is the duration used when a scene form leaves it empty.
const DefaultDuration = "8s"

// Confirm prompts for the destructive scene edits.
const (
	DeletePromptConfirmText         = "Delete this prompt?"
	RegenerateStoryboardConfirmText = "Regenerate all scenes for this block? The current scenes and prompts will be replaced."
)

// SceneForm is what the scene editor collects. The image is regenerated
// unless KeepImage is set.
type SceneForm struct {
	Type      string
	Action    string
	Narration string
	Duration  string
	KeepImage bool
}

func (f SceneForm) validate(op string) (SceneForm, error) {
	f.Action = strings.TrimSpace(f.Action)
	if f.Action == "" {
		return f, backend.Wrap(backend.ErrValidation, op, "Describe what happens in the scene.", nil)
	}
	f.Type = strings.TrimSpace(f.Type)
	if f.Type == "" {
		f.Type = api.SceneBridge
	}
	if !api.ValidSceneType(f.Type) {
		return f, backend.Wrap(backend.ErrValidation, op, fmt.Sprintf("unknown scene type %q", f.Type), nil)
	}
	if strings.TrimSpace(f.Duration) == "" {
		f.Duration = DefaultDuration
	}
	return f, nil
}

// FormFromScene prefills the editor from an existing scene.
func FormFromScene(scene api.Scene) SceneForm {
	duration := scene.Duration.String()
	if duration == "" {
		duration = DefaultDuration
	}
	return SceneForm{
		Type:      textOr(scene.Type, api.SceneBridge),
		Action:    scene.Action,
		Narration: scene.Narration,
		Duration:  duration,
	}
}

func textOr(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}

// EditScene rewrites one scene from the form and reloads the block once the
// backend finished.
func (c *Controller) EditScene(ctx context.Context, ref block.Ref, index int, form SceneForm) (*Job, error) {
	op := "update scene"
	form, err := form.validate(op)
	if err != nil {
		return nil, err
	}
	if doc := c.state.Snapshot().Storyboards[ref.Folder()]; doc != nil && (index < 0 || index >= len(doc.Storyboard)) {
		return nil, backend.Wrap(backend.ErrValidation, op, fmt.Sprintf("scene index %d out of range (have %d scenes)", index, len(doc.Storyboard)), nil)
	}
	req := backend.UpdateSceneRequest{
		Block:           ref,
		SceneIndex:      index,
		SceneType:       form.Type,
		Action:          form.Action,
		Narration:       form.Narration,
		Duration:        form.Duration,
		RegenerateImage: !form.KeepImage,
	}
	return c.runBlock(ctx, ref, op, fmt.Sprintf("✏️ Updating Scene %d...", index+1), func(ctx context.Context, projectID string) error {
		_, err := c.client.UpdateScene(ctx, projectID, req)
		return err
	})
}

// InsertScene adds a scene at insertIndex. An index equal to the scene count
// appends.
func (c *Controller) InsertScene(ctx context.Context, ref block.Ref, insertIndex int, form SceneForm) (*Job, error) {
	op := "insert scene"
	form, err := form.validate(op)
	if err != nil {
		return nil, err
	}
	count := -1
	if doc := c.state.Snapshot().Storyboards[ref.Folder()]; doc != nil {
		count = len(doc.Storyboard)
	}
	if insertIndex < 0 || (count >= 0 && insertIndex > count) {
		return nil, backend.Wrap(backend.ErrValidation, op, fmt.Sprintf("insert index %d out of range", insertIndex), nil)
	}
	req := backend.InsertSceneRequest{
		Block:       ref,
		InsertIndex: insertIndex,
		SceneType:   form.Type,
		Action:      form.Action,
		Narration:   form.Narration,
		Duration:    form.Duration,
	}
	start := fmt.Sprintf("➕ Adding %s scene at position %d...", form.Type, insertIndex+1)
	return c.runBlock(ctx, ref, op, start, func(ctx context.Context, projectID string) error {
		_, err := c.client.InsertScene(ctx, projectID, req)
		return err
	})
}

// EditPrompt asks the backend to rewrite a scene prompt from feedback and
// merges the result into the loaded block.
func (c *Controller) EditPrompt(ctx context.Context, ref block.Ref, index int, feedback string) (*backend.EditPromptResponse, error) {
	op := "edit prompt"
	if strings.TrimSpace(feedback) == "" {
		return nil, backend.Wrap(backend.ErrValidation, op, "No feedback provided", nil)
	}
	projectID, err := c.requireProject(op)
	if err != nil {
		return nil, err
	}
	_, scene, err := c.loadedScene(op, ref, index)
	if err != nil {
		return nil, err
	}
	var current api.Prompt
	if scene.Prompt != nil {
		current = *scene.Prompt
	}
	resp, err := c.client.EditPrompt(ctx, projectID, backend.EditPromptRequest{
		Block:         ref,
		SceneIndex:    index,
		CurrentPrompt: current.PromptText,
		CurrentSFX:    current.SFX,
		Feedback:      feedback,
	})
	if err != nil {
		return nil, err
	}
	if resp.Status == "ok" {
		if err := c.state.Dispatch(appstate.PromptMerged{Block: ref.Folder(), Index: index, PromptText: resp.PromptText, SFX: resp.SFX}); err != nil {
			return nil, err
		}
	}
	return resp, nil
}

// EditLocationImage regenerates one location image of a scene prompt. The
// new prompt is applied to every scene of every loaded block that shows the
// same location.
func (c *Controller) EditLocationImage(ctx context.Context, ref block.Ref, index, location int, feedback, reference string) (*backend.EditLocationImageResponse, error) {
	op := "edit location image"
	if strings.TrimSpace(feedback) == "" {
		return nil, backend.Wrap(backend.ErrValidation, op, "No feedback provided", nil)
	}
	projectID, err := c.requireProject(op)
	if err != nil {
		return nil, err
	}
	_, scene, err := c.loadedScene(op, ref, index)
	if err != nil {
		return nil, err
	}
	if scene.Prompt == nil || location < 0 || location >= len(scene.Prompt.Locations) {
		return nil, backend.Wrap(backend.ErrValidation, op, fmt.Sprintf("scene %d has no location %d", index+1, location+1), nil)
	}
	loc := scene.Prompt.Locations[location]
	resp, err := c.client.EditLocationImage(ctx, projectID, backend.EditLocationImageRequest{
		Block:          ref,
		LocationID:     loc.ID,
		LocationImage:  loc.Image,
		CurrentPrompt:  loc.Prompt,
		Feedback:       feedback,
		ReferenceImage: reference,
	})
	if err != nil {
		return nil, err
	}
	if resp.Status == "ok" {
		if err := c.state.Dispatch(appstate.LocationPromptSet{LocationID: loc.ID, Prompt: resp.NewPrompt, Image: resp.LocationImage}); err != nil {
			return nil, err
		}
	}
	c.logger.Info("location image edited",
		logging.String(logging.FieldBlock, ref.Folder()),
		logging.String("location_id", loc.ID),
		logging.Int("updated_scenes", resp.UpdatedScenes),
	)
	return resp, nil
}

// DeletePrompt clears a scene's prompt after confirmation, writes the block's
// scenes back and asks the backend to rewrite the scene without touching its
// image.
func (c *Controller) DeletePrompt(ctx context.Context, ref block.Ref, index int) (*Job, error) {
	op := "delete prompt"
	projectID, err := c.requireProject(op)
	if err != nil {
		return nil, err
	}
	doc, scene, err := c.loadedScene(op, ref, index)
	if err != nil {
		return nil, err
	}
	if err := c.ensureIdle(op, ref); err != nil {
		return nil, err
	}
	if c.confirm != nil && !c.confirm(DeletePromptConfirmText) {
		return nil, backend.Wrap(backend.ErrCancelled, op, ref.Folder(), nil)
	}
	form := FormFromScene(scene)
	if strings.TrimSpace(form.Action) == "" {
		return nil, backend.Wrap(backend.ErrValidation, op, "Describe what happens in the scene.", nil)
	}
	scenes := make([]api.Scene, len(doc.Storyboard))
	for i, sc := range doc.Storyboard {
		scenes[i] = sc.Clone()
	}
	scenes[index].Prompt = nil
	// update-scene rewrites the scene fields only, so the removal is written first.
	if _, err := c.client.PutBlockScenes(ctx, projectID, ref, scenes); err != nil {
		return nil, err
	}
	scene.Prompt = nil
	if err := c.state.Dispatch(appstate.SceneReplaced{Block: ref.Folder(), Index: index, Scene: scene}); err != nil {
		return nil, err
	}
	req := backend.UpdateSceneRequest{
		Block:           ref,
		SceneIndex:      index,
		SceneType:       form.Type,
		Action:          form.Action,
		Narration:       form.Narration,
		Duration:        form.Duration,
		RegenerateImage: false,
	}
	return c.runBlock(ctx, ref, op, fmt.Sprintf("✏️ Updating Scene %d...", index+1), func(ctx context.Context, projectID string) error {
		_, err := c.client.UpdateScene(ctx, projectID, req)
		return err
	})
}

// ToggleDone flips the done mark of a scene prompt and writes the block's
// scenes back. State only changes once the write succeeded.
func (c *Controller) ToggleDone(ctx context.Context, ref block.Ref, index int) (bool, error) {
	op := "toggle prompt"
	projectID, err := c.requireProject(op)
	if err != nil {
		return false, err
	}
	doc, _, err := c.loadedScene(op, ref, index)
	if err != nil {
		return false, err
	}
	working := *doc
	working.Storyboard = make([]api.Scene, len(doc.Storyboard))
	for i, scene := range doc.Storyboard {
		working.Storyboard[i] = scene.Clone()
	}
	model := storyboard.New(projectID, ref, &working, c.settings)
	done, err := model.TogglePromptDone(index)
	if err != nil {
		return false, err
	}
	if _, err := c.client.PutBlockScenes(ctx, projectID, ref, model.Scenes()); err != nil {
		return !done, err
	}
	if err := c.state.Dispatch(appstate.StoryboardLoaded{Block: ref.Folder(), Document: model.Document()}); err != nil {
		return done, err
	}
	return done, nil
}

// GenerateStoryboard analyzes a block that has no scenes yet.
func (c *Controller) GenerateStoryboard(ctx context.Context, ref block.Ref) (*Job, error) {
	return c.runBlock(ctx, ref, "analyze "+ref.Folder(), "🚀 Starting storyboard generation...", func(ctx context.Context, projectID string) error {
		_, err := c.client.Analyze(ctx, projectID, ref)
		return err
	})
}

// RegenerateStoryboard wipes a block's scenes after confirmation and
// analyzes it again.
func (c *Controller) RegenerateStoryboard(ctx context.Context, ref block.Ref) (*Job, error) {
	op := "regenerate storyboard"
	if _, err := c.requireProject(op); err != nil {
		return nil, err
	}
	if err := c.ensureIdle(op, ref); err != nil {
		return nil, err
	}
	if c.confirm != nil && !c.confirm(RegenerateStoryboardConfirmText) {
		return nil, backend.Wrap(backend.ErrCancelled, op, ref.Folder(), nil)
	}
	if err := c.state.Dispatch(appstate.StoryboardLoaded{Block: ref.Folder(), Document: &api.StoryboardDocument{Storyboard: []api.Scene{}}}); err != nil {
		return nil, err
	}
	return c.GenerateStoryboard(ctx, ref)
}

// GeneratePrompts writes video prompts for every scene of a loaded block.
func (c *Controller) GeneratePrompts(ctx context.Context, ref block.Ref) (*Job, error) {
	op := "generate prompts"
	doc := c.state.Snapshot().Storyboards[ref.Folder()]
	if doc == nil || len(doc.Storyboard) == 0 {
		return nil, backend.Wrap(backend.ErrValidation, op, "No scenes to write prompts for", nil)
	}
	start := fmt.Sprintf("📝 Generating Kling prompts for %d scenes...", len(doc.Storyboard))
	return c.runBlock(ctx, ref, op, start, func(ctx context.Context, projectID string) error {
		_, err := c.client.GeneratePrompts(ctx, projectID, ref)
		return err
	})
}

// ensureIdle rejects edits that would change a block while it generates.
func (c *Controller) ensureIdle(op string, ref block.Ref) error {
	if c.state.Snapshot().Pending[ref.Folder()] {
		return backend.Wrap(backend.ErrBusy, op, ref.Folder()+" is already generating", nil)
	}
	return nil
}
