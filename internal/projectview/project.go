package projectview

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"cutroom/internal/api"
	"cutroom/internal/appstate"
	"cutroom/internal/backend"
	"cutroom/internal/block"
	"cutroom/internal/logging"
	"cutroom/internal/workspace"
)

// Create creates a project on the backend, records its card and opens it.
// script may be nil.
func (c *Controller) Create(ctx context.Context, title string, script io.Reader, scriptName string) (*workspace.ProjectCard, error) {
	resp, err := c.client.CreateProject(ctx, title, script, scriptName)
	if err != nil {
		return nil, err
	}
	meta := resp.Metadata
	if meta.ID == "" {
		meta.ID = resp.ProjectID
	}
	if meta.Title == "" {
		meta.Title = strings.TrimSpace(title)
	}
	card := workspace.CardFromMetadata(meta)
	if c.ws != nil {
		stored, err := c.ws.UpsertProject(ctx, card)
		if err != nil {
			return nil, err
		}
		card = *stored
	}
	c.logger.Info("project created",
		logging.String(logging.FieldProjectID, card.ID),
		logging.String("title", card.Title),
		logging.Bool("with_script", script != nil),
	)
	if _, err := c.Open(ctx, card.ID); err != nil {
		return &card, err
	}
	return &card, nil
}

// Open loads a project into state and marks it opened in the workspace.
func (c *Controller) Open(ctx context.Context, projectID string) (*api.Project, error) {
	project, err := c.Reload(logging.WithProjectID(ctx, projectID), projectID)
	if err != nil {
		return nil, err
	}
	if c.ws != nil {
		if err := c.ws.TouchProject(ctx, project.Metadata.ID); err != nil {
			c.logger.Debug("touch project", logging.Error(err))
		}
	}
	return project, nil
}

// Reload refetches the project and replaces the snapshot wholesale. With no
// argument it reloads the currently open project.
func (c *Controller) Reload(ctx context.Context, projectID ...string) (*api.Project, error) {
	id := c.state.Snapshot().ProjectID()
	if len(projectID) > 0 && projectID[0] != "" {
		id = projectID[0]
	}
	if id == "" {
		return nil, backend.Wrap(backend.ErrValidation, "reload project", "no project loaded", nil)
	}
	project, err := c.client.GetProject(ctx, id)
	if err != nil {
		return nil, err
	}
	if project.Metadata.ID == "" {
		project.Metadata.ID = id
	}
	if project.Metadata.StepsCompleted == nil {
		project.Metadata.StepsCompleted = []string{}
	}
	if err := c.state.Dispatch(appstate.ProjectLoaded{Project: project}); err != nil {
		return nil, err
	}
	if c.ws != nil {
		if _, err := c.ws.UpsertProject(ctx, workspace.CardFromMetadata(project.Metadata)); err != nil {
			c.logger.Debug("refresh project card", logging.Error(err))
		}
	}
	return project, nil
}

// Projects returns the local project list.
func (c *Controller) Projects(ctx context.Context) ([]workspace.ProjectCard, error) {
	if c.ws == nil {
		return nil, errors.New("projectview: no workspace configured")
	}
	return c.ws.ListProjects(ctx)
}

// DeleteConfirmText is the question asked before a project is deleted.
func DeleteConfirmText(title string) string {
	return fmt.Sprintf("Delete project %q and all of its generated files? This cannot be undone.", title)
}

// Delete removes a project after confirmation. The backend delete cascades
// to every owned resource; the local card, drafts and log go with it.
func (c *Controller) Delete(ctx context.Context, projectID string) error {
	op := "delete project"
	projectID = strings.TrimSpace(projectID)
	if projectID == "" {
		return backend.Wrap(backend.ErrValidation, op, "project id required", nil)
	}
	title := projectID
	if c.ws != nil {
		if card, err := c.ws.GetProject(ctx, projectID); err == nil && card.Title != "" {
			title = card.Title
		}
	}
	if c.confirm != nil && !c.confirm(DeleteConfirmText(title)) {
		return backend.Wrap(backend.ErrCancelled, op, projectID, nil)
	}
	if err := c.client.DeleteProject(ctx, projectID); err != nil && !backend.IsNotFound(err) {
		return err
	}
	if c.ws != nil {
		if err := c.ws.RemoveProject(ctx, projectID); err != nil {
			return err
		}
	}
	if c.state.Snapshot().ProjectID() == projectID {
		_ = c.state.Dispatch(appstate.ProjectClosed{})
	}
	c.logger.Info("project deleted", logging.String(logging.FieldProjectID, projectID))
	return nil
}

// ReuploadScript replaces the open project's script and reloads it.
func (c *Controller) ReuploadScript(ctx context.Context, script io.Reader, scriptName string) (*api.Project, error) {
	projectID, err := c.requireProject("upload script")
	if err != nil {
		return nil, err
	}
	resp, err := c.client.UploadScript(ctx, projectID, script, scriptName)
	if err != nil {
		return nil, err
	}
	c.appendLog(ctx, projectID, api.ProgressEvent{
		Message: fmt.Sprintf("✅ Script uploaded: %d sections", len(resp.Script.Sections)),
		Type:    api.EventSuccess,
	})
	return c.Reload(ctx)
}

// LoadChapterStoryboard fetches a chapter storyboard into state. A chapter
// that has not been analyzed yet yields (nil, nil).
func (c *Controller) LoadChapterStoryboard(ctx context.Context, chapter int) (*api.StoryboardDocument, error) {
	projectID, err := c.requireProject("get storyboard")
	if err != nil {
		return nil, err
	}
	ref := block.Chapter(chapter)
	doc, err := c.client.GetStoryboard(ctx, projectID, ref)
	if errors.Is(err, backend.ErrNotGenerated) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := c.state.Dispatch(appstate.StoryboardLoaded{Block: ref.Folder(), Document: doc}); err != nil {
		return nil, err
	}
	return doc, nil
}

// ProductionResults fetches a chapter's production prompts. Missing results
// yield (nil, nil).
func (c *Controller) ProductionResults(ctx context.Context, chapter int) (*backend.ProductionPrompts, error) {
	projectID, err := c.requireProject("production results")
	if err != nil {
		return nil, err
	}
	prompts, err := c.client.GetProductionPrompts(ctx, projectID, chapter)
	if backend.IsNotFound(err) {
		return nil, nil
	}
	return prompts, err
}

// LoadSettings fetches the show settings into state.
func (c *Controller) LoadSettings(ctx context.Context) (*api.ShowSettings, error) {
	settings, err := c.client.ShowSettings(ctx)
	if err != nil {
		return nil, err
	}
	if err := c.state.Dispatch(appstate.SettingsLoaded{Settings: settings}); err != nil {
		return nil, err
	}
	return settings, nil
}
