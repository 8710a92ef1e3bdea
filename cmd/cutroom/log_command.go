package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newLogCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var scope string
	var clearLines bool
	cmd := &cobra.Command{
		Use:   "log",
		Short: "Show the project's recorded progress lines",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withSession(cmd, func(s *session) error {
				if err := ctx.openProject(cmd.Context(), s); err != nil {
					return err
				}
				projectID := s.state.Snapshot().ProjectID()
				if clearLines {
					return s.ws.ClearProgress(cmd.Context(), projectID, scope)
				}
				entries, err := s.ws.ProgressLog(cmd.Context(), projectID, limit)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				colorize := shouldColorize(out)
				for _, entry := range entries {
					if cmd.Flags().Changed("scope") && entry.Scope != scope {
						continue
					}
					fmt.Fprintf(out, "%s %s\n", entry.CreatedAt.Local().Format("15:04:05"), renderLogLine(entry.Scope, entry.Event, colorize))
				}
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 50, "Number of lines (0 for all)")
	cmd.Flags().StringVar(&scope, "scope", "", "Only lines of this block folder (empty for project lines)")
	cmd.Flags().BoolVar(&clearLines, "clear", false, "Clear the lines of --scope instead of printing")
	return cmd
}
