package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"cutroom/internal/appstate"
	"cutroom/internal/backend"
	"cutroom/internal/config"
	"cutroom/internal/grid"
	"cutroom/internal/logging"
	"cutroom/internal/progress"
	"cutroom/internal/projectview"
	"cutroom/internal/sceneedit"
	"cutroom/internal/workspace"
)

type commandContext struct {
	configFlag  *string
	projectFlag *string
	yesFlag     *bool

	configOnce sync.Once
	config     *config.Config
	configErr  error

	// stdin feeds confirmations and free-text prompts; tests replace it.
	stdin io.Reader
}

func newCommandContext(configFlag, projectFlag *string, yesFlag *bool) *commandContext {
	return &commandContext{
		configFlag:  configFlag,
		projectFlag: projectFlag,
		yesFlag:     yesFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) configValue() *config.Config {
	cfg, _ := c.ensureConfig()
	return cfg
}

// session holds everything one command invocation talks to.
type session struct {
	cfg     *config.Config
	logger  *slog.Logger
	client  *backend.Client
	ws      *workspace.Store
	state   *appstate.Store
	streams *progress.Registry
	project *projectview.Controller
	scenes  *sceneedit.Controller
	grid    *grid.Controller
	prompt  *prompter
}

// withSession opens the workspace and builds the controllers, runs fn and
// releases everything again.
func (c *commandContext) withSession(cmd *cobra.Command, fn func(*session) error) error {
	s, err := c.openSession(cmd)
	if err != nil {
		return err
	}
	defer s.ws.Close()
	return fn(s)
}

func (c *commandContext) openSession(cmd *cobra.Command) (*session, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	client, err := backend.NewClient(backend.Config{
		BaseURL:        cfg.Backend.BaseURL,
		TimeoutSeconds: cfg.Backend.TimeoutSeconds,
		Retries:        cfg.Backend.Retries,
	}, backend.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	ws, err := workspace.Open(cfg)
	if err != nil {
		return nil, err
	}

	prompt := c.prompter(cmd)
	state := appstate.New()
	streams := progress.NewRegistry(progress.NewHTTPConnector(client.ProgressURL))

	project, err := projectview.New(projectview.Deps{
		Client:    client,
		State:     state,
		Workspace: ws,
		Streams:   streams,
		Config:    cfg,
		Logger:    logger,
		Confirm:   prompt.confirm,
	})
	if err != nil {
		ws.Close()
		return nil, err
	}
	scenes, err := sceneedit.New(sceneedit.Deps{
		Client:    client,
		State:     state,
		Workspace: ws,
		Streams:   streams,
		Config:    cfg,
		Logger:    logger,
		Confirm:   prompt.confirm,
	})
	if err != nil {
		ws.Close()
		return nil, err
	}
	gridCtl, err := grid.New(grid.Deps{
		Client:  client,
		State:   state,
		Scenes:  scenes,
		Config:  cfg,
		Logger:  logger,
		Confirm: prompt.confirm,
	})
	if err != nil {
		ws.Close()
		return nil, err
	}

	return &session{
		cfg:     cfg,
		logger:  logger,
		client:  client,
		ws:      ws,
		state:   state,
		streams: streams,
		project: project,
		scenes:  scenes,
		grid:    gridCtl,
		prompt:  prompt,
	}, nil
}

// openProject loads the project named by --project, or the most recently
// opened one from the workspace.
func (c *commandContext) openProject(ctx context.Context, s *session) error {
	id := ""
	if c.projectFlag != nil {
		id = strings.TrimSpace(*c.projectFlag)
	}
	if id == "" {
		cards, err := s.ws.ListProjects(ctx)
		if err != nil {
			return err
		}
		id = lastOpened(cards)
	}
	if id == "" {
		return errors.New("no project selected; pass --project or create one with `cutroom projects create`")
	}
	_, err := s.project.Open(ctx, id)
	return err
}

func lastOpened(cards []workspace.ProjectCard) string {
	var best *workspace.ProjectCard
	for i := range cards {
		card := &cards[i]
		if best == nil || card.LastOpenedAt.After(best.LastOpenedAt) {
			best = card
		}
	}
	if best == nil {
		return ""
	}
	return best.ID
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
