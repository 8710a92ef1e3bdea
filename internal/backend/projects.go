package backend

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"cutroom/internal/api"
)

// StatusResponse is the generic {status, message} acknowledgement.
type StatusResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// UploadScriptResponse is returned by upload-script.
type UploadScriptResponse struct {
	Status string     `json:"status"`
	Script api.Script `json:"script"`
}

// CreateProject creates a project. script may be nil; a blank title is
// rejected before any request is made.
func (c *Client) CreateProject(ctx context.Context, title string, script io.Reader, scriptName string) (*api.CreateProjectResponse, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, Wrap(ErrValidation, "create project", "Title is required", nil)
	}
	var files []multipartFile
	if script != nil {
		if scriptName == "" {
			scriptName = "script.md"
		}
		files = append(files, multipartFile{field: "script", name: scriptName, data: script})
	}
	var resp api.CreateProjectResponse
	if err := c.sendMultipart(ctx, "create project", map[string]string{"title": title}, files, &resp, "api", "project", "create"); err != nil {
		return nil, err
	}
	if resp.ProjectID == "" {
		resp.ProjectID = resp.Metadata.ID
	}
	return &resp, nil
}

// GetProject fetches the full project snapshot.
func (c *Client) GetProject(ctx context.Context, projectID string) (*api.Project, error) {
	if err := requireID(projectID, "get project"); err != nil {
		return nil, err
	}
	var project api.Project
	if err := c.getJSON(ctx, "get project", &project, "api", "project", projectID); err != nil {
		return nil, err
	}
	return &project, nil
}

// DeleteProject removes a project and all of its files on the backend.
func (c *Client) DeleteProject(ctx context.Context, projectID string) error {
	if err := requireID(projectID, "delete project"); err != nil {
		return err
	}
	var resp StatusResponse
	return c.sendJSON(ctx, "delete project", http.MethodDelete, nil, &resp, "api", "project", projectID)
}

// UploadScript replaces the project's script and returns the parsed result.
func (c *Client) UploadScript(ctx context.Context, projectID string, script io.Reader, scriptName string) (*UploadScriptResponse, error) {
	if err := requireID(projectID, "upload script"); err != nil {
		return nil, err
	}
	if script == nil {
		return nil, Wrap(ErrValidation, "upload script", "No script file provided", nil)
	}
	if scriptName == "" {
		scriptName = "script.md"
	}
	var resp UploadScriptResponse
	files := []multipartFile{{field: "script", name: scriptName, data: script}}
	if err := c.sendMultipart(ctx, "upload script", nil, files, &resp, "api", "project", projectID, "upload-script"); err != nil {
		return nil, err
	}
	return &resp, nil
}

// DownloadScript streams the plain-text narration script into w.
func (c *Client) DownloadScript(ctx context.Context, projectID string, w io.Writer) error {
	if err := requireID(projectID, "download script"); err != nil {
		return err
	}
	return c.do(ctx, request{op: "download script", method: http.MethodGet, segments: []string{"api", "project", projectID, "download-script"}, raw: w})
}

// AudioZip streams the archive of every generated voice file into w.
func (c *Client) AudioZip(ctx context.Context, projectID string, w io.Writer) error {
	if err := requireID(projectID, "audio zip"); err != nil {
		return err
	}
	return c.do(ctx, request{op: "audio zip", method: http.MethodGet, segments: []string{"api", "project", projectID, "audio_zip"}, raw: w})
}

// Diversity returns the backend's diversity tracker recommendations.
func (c *Client) Diversity(ctx context.Context) (json.RawMessage, error) {
	var raw json.RawMessage
	if err := c.getJSON(ctx, "diversity", &raw, "api", "diversity"); err != nil {
		return nil, err
	}
	return raw, nil
}

func requireID(projectID, op string) error {
	if strings.TrimSpace(projectID) == "" {
		return Wrap(ErrValidation, op, "project id required", nil)
	}
	return nil
}

// IsNotFound reports whether err is a 404 from the backend.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
