package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"cutroom/internal/logging"
	"cutroom/internal/projectview"
	"cutroom/internal/viewmodel"
	"cutroom/internal/workspace"
)

func newProjectsCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "projects",
		Aliases: []string{"project"},
		Short:   "Manage projects",
	}
	cmd.AddCommand(newProjectsListCommand(ctx))
	cmd.AddCommand(newProjectsCreateCommand(ctx))
	cmd.AddCommand(newProjectsOpenCommand(ctx))
	cmd.AddCommand(newProjectsDeleteCommand(ctx))
	cmd.AddCommand(newProjectsScriptCommand(ctx))
	return cmd
}

func newProjectsListCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List projects known to this workspace",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withSession(cmd, func(s *session) error {
				cards, err := s.project.Projects(cmd.Context())
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, cards)
				}
				out := cmd.OutOrStdout()
				if len(cards) == 0 {
					fmt.Fprintln(out, "No projects yet.")
					return nil
				}
				fmt.Fprintln(out, renderTable(
					[]string{"ID", "Title", "Status", "Steps", "Last opened"},
					projectRows(cards),
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
				))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output JSON")
	return cmd
}

func projectRows(cards []workspace.ProjectCard) [][]string {
	rows := make([][]string, 0, len(cards))
	for _, card := range cards {
		opened := "never"
		if !card.LastOpenedAt.IsZero() {
			opened = card.LastOpenedAt.Local().Format("2006-01-02 15:04")
		}
		rows = append(rows, []string{
			card.ID,
			card.Title,
			card.Status,
			fmt.Sprintf("%d", len(card.StepsCompleted)),
			opened,
		})
	}
	return rows
}

func newProjectsCreateCommand(ctx *commandContext) *cobra.Command {
	var scriptPath string
	cmd := &cobra.Command{
		Use:   "create <title>",
		Short: "Create a project, optionally uploading its script",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			title := strings.Join(args, " ")
			return ctx.withSession(cmd, func(s *session) error {
				var script io.Reader
				name := ""
				if strings.TrimSpace(scriptPath) != "" {
					f, n, err := openFile(scriptPath)
					if err != nil {
						return err
					}
					defer f.Close()
					script, name = f, n
				}
				card, err := s.project.Create(cmd.Context(), title, script, name)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Created project %s (%s)\n", card.Title, card.ID)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&scriptPath, "script", "", "Script file to upload")
	return cmd
}

func newProjectsOpenCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "open <id>",
		Short: "Open a project and make it the default for later commands",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withSession(cmd, func(s *session) error {
				project, err := s.project.Open(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Opened %s (%s)\n", project.Metadata.Title, project.Metadata.ID)
				return nil
			})
		},
	}
}

func newProjectsDeleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a project and everything generated for it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withSession(cmd, func(s *session) error {
				if err := s.project.Delete(cmd.Context(), args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted project %s\n", args[0])
				return nil
			})
		},
	}
}

func newProjectsScriptCommand(ctx *commandContext) *cobra.Command {
	var download string
	cmd := &cobra.Command{
		Use:   "script [file]",
		Short: "Replace the project's script, or download it with --download",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withSession(cmd, func(s *session) error {
				if err := ctx.openProject(cmd.Context(), s); err != nil {
					return err
				}
				id := s.state.Snapshot().ProjectID()
				if download != "" {
					return downloadTo(download, func(w io.Writer) error {
						return s.client.DownloadScript(cmd.Context(), id, w)
					})
				}
				if len(args) == 0 {
					return fmt.Errorf("script file is required")
				}
				f, name, err := openFile(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				stop := followLog(s.state, cmd.OutOrStdout())
				defer stop()
				_, err = s.project.ReuploadScript(cmd.Context(), f, name)
				return err
			})
		},
	}
	cmd.Flags().StringVar(&download, "download", "", "Write the current script to this path")
	return cmd
}

func newShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the open project with its sections and available actions",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withSession(cmd, func(s *session) error {
				if err := ctx.openProject(cmd.Context(), s); err != nil {
					return err
				}
				if _, err := s.project.LoadSettings(cmd.Context()); err != nil {
					s.logger.Debug("show settings unavailable", logging.Error(err))
				}
				return viewmodel.Render(cmd.OutOrStdout(), projectview.Build(s.state.Snapshot()))
			})
		},
	}
}
