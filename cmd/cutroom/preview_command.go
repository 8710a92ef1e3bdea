package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"cutroom/internal/logging"
	"cutroom/internal/preview"
	"cutroom/internal/progress"
	"cutroom/internal/projectview"
	"cutroom/internal/sceneedit"
	"cutroom/internal/viewmodel"
)

func newPreviewCommand(ctx *commandContext) *cobra.Command {
	var bind string
	var readOnly bool
	cmd := &cobra.Command{
		Use:   "preview",
		Short: "Serve the open project's views, tension curve and progress stream locally",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withSession(cmd, func(s *session) error {
				runCtx := cmd.Context()
				if err := ctx.openProject(runCtx, s); err != nil {
					return err
				}
				if _, err := s.project.LoadSettings(runCtx); err != nil {
					s.logger.Debug("show settings unavailable", logging.Error(err))
				}
				if _, err := s.grid.LoadAll(runCtx); err != nil {
					s.logger.Warn("storyboard grid partially loaded", logging.Error(err))
				}
				if strings.TrimSpace(bind) != "" {
					s.cfg.Preview.Bind = bind
				}

				deps := preview.Deps{
					State:     s.state,
					Connector: progress.NewHTTPConnector(s.client.ProgressURL),
					Config:    s.cfg,
					Logger:    s.logger,
				}
				if !readOnly {
					deps.Bindings = previewBindings(s)
				}
				srv, err := preview.New(deps)
				if err != nil {
					return err
				}
				if err := srv.Start(runCtx); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Preview at http://%s (Ctrl+C to stop)\n", srv.Addr())
				<-runCtx.Done()
				srv.Stop()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&bind, "bind", "", "Listen address (defaults to preview.bind)")
	cmd.Flags().BoolVar(&readOnly, "read-only", false, "Disable POST /api/invoke")
	return cmd
}

// previewBindings wires both views. Actions that need typed input are not
// available over the preview surface.
func previewBindings(s *session) func(string) viewmodel.Bindings {
	project := s.project.Bindings(projectview.Inputs{
		LaunchStoryboard: func(ctx context.Context, _ string) error {
			_, err := s.grid.LoadAll(ctx)
			return err
		},
	})
	grid := s.grid.Bindings(sceneedit.Inputs{})
	return func(view string) viewmodel.Bindings {
		if view == preview.ViewGrid {
			return grid
		}
		return project
	}
}
