package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"cutroom/internal/backend"
	"cutroom/internal/progress"
	"cutroom/internal/projectview"
	"cutroom/internal/textutil"
)

func newGenerateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:       "generate <step>",
		Short:     "Run a project generation step and follow its progress",
		Long:      "Steps: breakdown, story, narration, elements, scene-prompts.",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"breakdown", "story", "narration", "elements", "scene-prompts"},
		RunE: func(cmd *cobra.Command, args []string) error {
			step, err := backend.ParseGeneration(args[0])
			if err != nil {
				return err
			}
			return ctx.withSession(cmd, func(s *session) error {
				if err := ctx.openProject(cmd.Context(), s); err != nil {
					return err
				}
				return followRun(cmd, s, func(c context.Context) (*projectview.Run, error) {
					return s.project.GenerateStep(c, step)
				})
			})
		},
	}
}

func newAnalyzeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "analyze <chapter>",
		Short: "Generate the storyboard for a chapter (1-based)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := chapterIndex(args[0])
			if err != nil {
				return err
			}
			return ctx.withSession(cmd, func(s *session) error {
				if err := ctx.openProject(cmd.Context(), s); err != nil {
					return err
				}
				return followRun(cmd, s, func(c context.Context) (*projectview.Run, error) {
					return s.project.AnalyzeChapter(c, index)
				})
			})
		},
	}
}

func newProductionCommand(ctx *commandContext) *cobra.Command {
	var resultsOnly bool
	cmd := &cobra.Command{
		Use:   "production <chapter>",
		Short: "Generate production prompts for a chapter (1-based)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := chapterIndex(args[0])
			if err != nil {
				return err
			}
			return ctx.withSession(cmd, func(s *session) error {
				if err := ctx.openProject(cmd.Context(), s); err != nil {
					return err
				}
				if !resultsOnly {
					err := followRun(cmd, s, func(c context.Context) (*projectview.Run, error) {
						return s.project.GenerateProduction(c, index)
					})
					if err != nil {
						return err
					}
				}
				prompts, err := s.project.ProductionResults(cmd.Context(), index)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if prompts == nil {
					fmt.Fprintf(out, "No production results for Chapter %d yet.\n", index+1)
					return nil
				}
				rows := make([][]string, 0, len(prompts.Scenes))
				for i, scene := range prompts.Scenes {
					rows = append(rows, []string{
						strconv.Itoa(scene.Num(i)),
						projectview.Clock(scene.Seconds()),
						textutil.Truncate(scene.VideoPrompt, 80),
					})
				}
				fmt.Fprintln(out, renderTable([]string{"Scene", "Length", "Prompt"}, rows,
					[]columnAlignment{alignRight, alignRight, alignLeft}))
				fmt.Fprintf(out, "Total %s\n", projectview.Clock(prompts.TotalSeconds()))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&resultsOnly, "results", false, "Only print existing results")
	return cmd
}

func chapterIndex(value string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || n < 1 {
		return 0, fmt.Errorf("invalid chapter %q: expected a number from 1", value)
	}
	return n - 1, nil
}

// followRun starts a generation, prints its progress lines and waits for the
// stream and the follow-up reload.
func followRun(cmd *cobra.Command, s *session, start func(context.Context) (*projectview.Run, error)) error {
	stop := followLog(s.state, cmd.OutOrStdout())
	defer stop()

	run, err := start(cmd.Context())
	if err != nil {
		return err
	}
	outcome, err := run.Wait(cmd.Context())
	if err != nil {
		return err
	}
	if outcome != progress.OutcomeComplete {
		return fmt.Errorf("%s finished: %s", run.Step, outcome)
	}
	return nil
}
