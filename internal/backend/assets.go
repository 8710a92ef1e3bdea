package backend

import "strings"

// Asset URLs are handed to viewers and the preview relay; the client never
// downloads binary assets itself.

// ProgressURL is the project's SSE endpoint.
func (c *Client) ProgressURL(projectID string) string {
	return c.URL("api", "project", projectID, "progress")
}

// AudioURL locates a generated voice file.
func (c *Client) AudioURL(projectID, filename string) string {
	return c.URL("api", "project", projectID, "audio", filename)
}

// ElementURL locates an element image.
func (c *Client) ElementURL(projectID, filename string) string {
	return c.URL("api", "project", projectID, "element", filename)
}

// FrameURL locates a Frame A image.
func (c *Client) FrameURL(projectID, filename string) string {
	return c.URL("api", "project", projectID, "frame", filename)
}

// LocationURL locates a generated location image. Nested paths are served
// by the location route; flat names by locations.
func (c *Client) LocationURL(projectID, filename string) string {
	if strings.Contains(filename, "/") {
		segments := append([]string{"api", "project", projectID, "location"}, strings.Split(filename, "/")...)
		return c.URL(segments...)
	}
	return c.URL("api", "project", projectID, "locations", filename)
}

// SceneImageURL locates a storyboard scene image inside a block folder.
func (c *Client) SceneImageURL(projectID, folder, filename string) string {
	return c.URL("api", "project", projectID, "scene-image", folder, filename)
}

// PresenterImageURL locates the presenter turnaround image.
func (c *Client) PresenterImageURL(filename string) string {
	return c.URL("config", "presenter", filename)
}
