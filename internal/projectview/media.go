package projectview

import (
	"context"
	"fmt"
	"io"
	"strings"

	"cutroom/internal/api"
	"cutroom/internal/appstate"
	"cutroom/internal/backend"
	"cutroom/internal/logging"
)

// voiceRequest builds the synthesis parameters for a segment. Configured
// values win; the presenter's show settings fill whatever is left empty.
func (c *Controller) voiceRequest(segmentID string) api.AudioSegmentRequest {
	req := api.AudioSegmentRequest{
		SegmentID:   segmentID,
		SegmentType: "narration",
		VoiceID:     c.voice.VoiceID,
		Model:       c.voice.Model,
		Speed:       c.voice.Speed,
		Stability:   c.voice.Stability,
	}
	settings := c.state.Snapshot().Settings
	if settings == nil {
		return req
	}
	p := settings.Presenter
	if req.VoiceID == "" {
		req.VoiceID = p.ElevenLabsVoiceID
	}
	if req.Model == "" {
		req.Model = p.ElevenLabsModel
	}
	if req.Speed == 0 {
		req.Speed = p.ElevenLabsSpeed
	}
	if req.Stability == 0 {
		req.Stability = p.ElevenLabsStability
	}
	return req
}

// GenerateAudio synthesizes one voice segment and records it in the manifest.
func (c *Controller) GenerateAudio(ctx context.Context, segmentID string) (*api.AudioSegment, error) {
	op := "generate audio"
	projectID, err := c.requireProject(op)
	if err != nil {
		return nil, err
	}
	req := c.voiceRequest(segmentID)
	if strings.TrimSpace(req.VoiceID) == "" {
		return nil, backend.Wrap(backend.ErrValidation, op, "No voice configured: set voice.voice_id or the presenter voice in show settings", nil)
	}
	segment, err := c.client.GenerateAudioSegment(ctx, projectID, req)
	if err != nil {
		c.appendLog(ctx, projectID, api.ProgressEvent{
			Message: fmt.Sprintf("❌ Audio generation failed for %s: %s", segmentID, backend.ApplicationMessage(err)),
			Type:    api.EventError,
		})
		return nil, err
	}
	if err := c.state.Dispatch(appstate.AudioGenerated{SegmentID: segmentID, Segment: *segment}); err != nil {
		return nil, err
	}
	c.appendLog(ctx, projectID, api.ProgressEvent{
		Message: fmt.Sprintf("✅ Audio for %q: %.0fs", segmentID, segment.DurationSeconds),
		Type:    api.EventSuccess,
	})
	return segment, nil
}

// GenerateAllAudio synthesizes every chapter segment in order. A failed
// segment is logged and the rest still run; the first error is returned.
func (c *Controller) GenerateAllAudio(ctx context.Context) error {
	projectID, err := c.requireProject("generate audio")
	if err != nil {
		return err
	}
	project := c.state.Snapshot().Project
	segments := VoiceSegments(project.Narration, project.AudioManifest)
	if len(segments) == 0 {
		return backend.Wrap(backend.ErrValidation, "generate audio", "No narration segments", nil)
	}
	c.appendLog(ctx, projectID, api.ProgressEvent{
		Message: fmt.Sprintf("🎙️ Starting generation of %d audio segments...", len(segments)),
		Type:    api.EventInfo,
	})
	var firstErr error
	for i, seg := range segments {
		if err := ctx.Err(); err != nil {
			return err
		}
		c.appendLog(ctx, projectID, api.ProgressEvent{
			Message: fmt.Sprintf("⏳ [%d/%d] Generating: %s...", i+1, len(segments), seg.Title),
			Type:    api.EventInfo,
		})
		if _, err := c.GenerateAudio(ctx, seg.ID); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	c.appendLog(ctx, projectID, api.ProgressEvent{
		Message: fmt.Sprintf("✅ All %d audio segments processed!", len(segments)),
		Type:    api.EventSuccess,
	})
	return firstErr
}

// RegenerateElement redraws an element image from its description.
func (c *Controller) RegenerateElement(ctx context.Context, elementID string) (*api.Element, error) {
	projectID, err := c.requireProject("regenerate element")
	if err != nil {
		return nil, err
	}
	elem, err := c.client.RegenerateElement(ctx, projectID, elementID)
	if err != nil {
		return nil, err
	}
	return c.elementUpdated(elem)
}

// EditElement redraws an element image guided by feedback.
func (c *Controller) EditElement(ctx context.Context, elementID, feedback string) (*api.Element, error) {
	op := "edit element"
	projectID, err := c.requireProject(op)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(feedback) == "" {
		return nil, backend.Wrap(backend.ErrValidation, op, "No feedback provided", nil)
	}
	elem, err := c.client.EditElement(ctx, projectID, elementID, feedback)
	if err != nil {
		return nil, err
	}
	return c.elementUpdated(elem)
}

// UploadElement replaces an element image with a local file.
func (c *Controller) UploadElement(ctx context.Context, elementID string, file io.Reader, filename string) (*api.Element, error) {
	projectID, err := c.requireProject("upload element")
	if err != nil {
		return nil, err
	}
	elem, err := c.client.UploadElement(ctx, projectID, elementID, file, filename)
	if err != nil {
		return nil, err
	}
	return c.elementUpdated(elem)
}

func (c *Controller) elementUpdated(elem *api.Element) (*api.Element, error) {
	if err := c.state.Dispatch(appstate.ElementUpdated{Element: *elem}); err != nil {
		return nil, err
	}
	c.logger.Info("element updated",
		logging.String("element_id", elem.ElementID),
		logging.String("image", elem.ImageFilename),
	)
	return elem, nil
}

// RegenerateFrame redraws the opening frame of a scene and reloads the
// project so the new scene prompt is visible.
func (c *Controller) RegenerateFrame(ctx context.Context, sceneNumber int) (*backend.FrameResponse, error) {
	projectID, err := c.requireProject("regenerate frame")
	if err != nil {
		return nil, err
	}
	resp, err := c.client.RegenerateFrame(ctx, projectID, sceneNumber)
	if err != nil {
		return nil, err
	}
	if _, err := c.Reload(ctx); err != nil {
		return resp, err
	}
	return resp, nil
}

// UploadFrame replaces the opening frame of a scene.
func (c *Controller) UploadFrame(ctx context.Context, sceneNumber int, file io.Reader, filename string) (*backend.UploadResponse, error) {
	projectID, err := c.requireProject("upload frame")
	if err != nil {
		return nil, err
	}
	return c.client.UploadFrame(ctx, projectID, sceneNumber, file, filename)
}
