package backend

import (
	"context"
	"fmt"
	"net/http"

	"cutroom/internal/block"
)

// Generation names a whole-project generation step.
type Generation string

const (
	GenerateBreakdown    Generation = "breakdown"
	GenerateStory        Generation = "story"
	GenerateNarration    Generation = "narration"
	GenerateElements     Generation = "elements"
	GenerateScenePrompts Generation = "scene-prompts"
)

// Generations lists the steps accepted by TriggerGeneration.
var Generations = []Generation{GenerateBreakdown, GenerateStory, GenerateNarration, GenerateElements, GenerateScenePrompts}

// ParseGeneration validates a generation name.
func ParseGeneration(value string) (Generation, error) {
	for _, g := range Generations {
		if string(g) == value {
			return g, nil
		}
	}
	return "", Wrap(ErrValidation, "generation", fmt.Sprintf("unknown step %q", value), nil)
}

// Endpoint returns the trigger path segment.
func (g Generation) Endpoint() string {
	return "generate-" + string(g)
}

// TriggerResponse acknowledges a started background job. Progress arrives on
// the project's SSE stream.
type TriggerResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// TriggerGeneration starts a whole-project generation step.
func (c *Client) TriggerGeneration(ctx context.Context, projectID string, step Generation) (*TriggerResponse, error) {
	op := "trigger " + string(step)
	if err := requireID(projectID, op); err != nil {
		return nil, err
	}
	if _, err := ParseGeneration(string(step)); err != nil {
		return nil, err
	}
	return c.trigger(ctx, op, projectID, step.Endpoint(), map[string]any{})
}

// Analyze starts (re)generation of the storyboard for one block.
func (c *Client) Analyze(ctx context.Context, projectID string, ref block.Ref) (*TriggerResponse, error) {
	op := "analyze " + ref.Folder()
	if err := requireID(projectID, op); err != nil {
		return nil, err
	}
	endpoint, body := ref.AnalyzeEndpoint()
	return c.trigger(ctx, op, projectID, endpoint, body)
}

// GenerateChapterProduction runs the production pipeline for a chapter.
func (c *Client) GenerateChapterProduction(ctx context.Context, projectID string, chapter int) (*TriggerResponse, error) {
	op := "generate chapter production"
	if err := requireID(projectID, op); err != nil {
		return nil, err
	}
	if chapter < 0 {
		return nil, Wrap(ErrValidation, op, fmt.Sprintf("Chapter index %d out of range", chapter), nil)
	}
	return c.trigger(ctx, op, projectID, "generate-chapter-production", map[string]any{"chapter_index": chapter})
}

// GeneratePrompts starts video prompt generation for every scene in a block.
func (c *Client) GeneratePrompts(ctx context.Context, projectID string, ref block.Ref) (*TriggerResponse, error) {
	op := "generate prompts"
	if err := requireID(projectID, op); err != nil {
		return nil, err
	}
	return c.trigger(ctx, op, projectID, "generate-prompts", map[string]any{"block_folder": ref.Folder()})
}

func (c *Client) trigger(ctx context.Context, op, projectID, endpoint string, body any) (*TriggerResponse, error) {
	var resp TriggerResponse
	if err := c.sendJSON(ctx, op, http.MethodPost, body, &resp, "api", "project", projectID, endpoint); err != nil {
		return nil, err
	}
	return &resp, nil
}
