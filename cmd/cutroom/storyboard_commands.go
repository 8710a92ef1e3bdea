package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"cutroom/internal/api"
	"cutroom/internal/backend"
	"cutroom/internal/block"
	"cutroom/internal/grid"
	"cutroom/internal/logging"
	"cutroom/internal/sceneedit"
	"cutroom/internal/storyboard"
	"cutroom/internal/textutil"
	"cutroom/internal/viewmodel"
	"cutroom/internal/workspace"
)

func newStoryboardCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "storyboard",
		Aliases: []string{"sb"},
		Short:   "Inspect and edit block storyboards",
		Long: "Blocks are named intro, chapter_N, break_N and close. Scene numbers are 1-based.\n" +
			"Structural edits (insert-bridge, delete-scene) and done marks are saved immediately;\n" +
			"pull/set/push keep a local draft between commands.",
	}
	cmd.AddCommand(newStoryboardShowCommand(ctx))
	cmd.AddCommand(newStoryboardStatusCommand(ctx))
	cmd.AddCommand(newStoryboardGenerateCommand(ctx, false))
	cmd.AddCommand(newStoryboardGenerateCommand(ctx, true))
	cmd.AddCommand(newStoryboardPromptsCommand(ctx))
	cmd.AddCommand(newInsertBridgeCommand(ctx))
	cmd.AddCommand(newDeleteSceneCommand(ctx))
	cmd.AddCommand(newEditSceneCommand(ctx, false))
	cmd.AddCommand(newEditSceneCommand(ctx, true))
	cmd.AddCommand(newEditPromptCommand(ctx))
	cmd.AddCommand(newEditLocationCommand(ctx))
	cmd.AddCommand(newDeletePromptCommand(ctx))
	cmd.AddCommand(newToggleDoneCommand(ctx))
	cmd.AddCommand(newDraftPullCommand(ctx))
	cmd.AddCommand(newDraftSetCommand(ctx))
	cmd.AddCommand(newDraftPushCommand(ctx))
	cmd.AddCommand(newDraftListCommand(ctx))
	return cmd
}

// withBlock opens the project, loads the show settings and the named block.
func (c *commandContext) withBlock(cmd *cobra.Command, name string, fn func(*session, block.Ref) error) error {
	ref, err := block.Parse(name)
	if err != nil {
		return err
	}
	return c.withSession(cmd, func(s *session) error {
		if err := c.openProject(cmd.Context(), s); err != nil {
			return err
		}
		if _, err := s.project.LoadSettings(cmd.Context()); err != nil {
			s.logger.Debug("show settings unavailable", logging.Error(err))
		}
		if _, err := s.scenes.LoadBlock(cmd.Context(), ref); err != nil {
			return err
		}
		return fn(s, ref)
	})
}

func blockSummary(scenes []api.Scene) string {
	if len(scenes) == 0 {
		return "no scenes"
	}
	return grid.BlockMeta(grid.Block{Scenes: scenes})
}

func sceneIndex(value string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || n < 1 {
		return 0, fmt.Errorf("invalid scene %q: expected a number from 1", value)
	}
	return n - 1, nil
}

// followJob prints a block job's progress lines and waits for the reload.
func followJob(cmd *cobra.Command, s *session, start func(context.Context) (*sceneedit.Job, error)) error {
	stop := followLog(s.state, cmd.OutOrStdout())
	defer stop()

	job, err := start(cmd.Context())
	if err != nil {
		return err
	}
	doc, err := job.Wait(cmd.Context())
	if err != nil {
		return err
	}
	if doc != nil {
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", job.Block.Folder(), blockSummary(doc.Storyboard))
	}
	return nil
}

func newStoryboardShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show [block]",
		Short: "Show the storyboard grid, or a single block",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withSession(cmd, func(s *session) error {
				if err := ctx.openProject(cmd.Context(), s); err != nil {
					return err
				}
				if _, err := s.project.LoadSettings(cmd.Context()); err != nil {
					s.logger.Debug("show settings unavailable", logging.Error(err))
				}
				if _, err := s.grid.LoadAll(cmd.Context()); err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "some blocks failed to load: %v\n", err)
				}
				root := grid.Build(s.state.Snapshot())
				if len(args) == 1 {
					ref, err := block.Parse(args[0])
					if err != nil {
						return err
					}
					node := viewmodel.Find(root, "block:"+ref.Folder())
					if node == nil {
						return fmt.Errorf("block %s is not part of this episode", ref.Folder())
					}
					root = node
				}
				return viewmodel.Render(cmd.OutOrStdout(), root)
			})
		},
	}
}

func newStoryboardStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status <block>",
		Short: "Show scene counts and validation issues for a block (draft if present)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withBlock(cmd, args[0], func(s *session, ref block.Ref) error {
				model, source, err := workingCopy(cmd.Context(), s, ref)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				colorize := shouldColorize(out)
				for _, line := range renderSectionHeader(fmt.Sprintf("%s (%s)", ref.Folder(), source), colorize) {
					fmt.Fprintln(out, line)
				}
				m := model.Metrics()
				fmt.Fprintf(out, "Scenes: %d  narrated %d  bridge %d  presenter %d  silent %d\n",
					m.Total, m.Narrated, m.Bridges, m.Presenter, m.Silent)
				target := textutil.Ternary(m.MeetsBridgeTarget(), "meets", "below")
				fmt.Fprintf(out, "Bridge ratio: %d%% (%s %d%% target)  Estimated: %s\n",
					m.BridgeRatio, target, m.BridgeTarget, grid.Clock(m.EstimatedSeconds))

				overlay := model.Overlay()
				rows := make([][]string, 0, model.Len())
				for _, scene := range model.Scenes() {
					issues := overlay.Issues(scene.Number)
					notes := make([]string, 0, len(issues))
					for _, issue := range issues {
						notes = append(notes, issue.Severity+": "+issue.Message)
					}
					rows = append(rows, []string{
						strconv.Itoa(scene.Number),
						scene.Type,
						scene.Duration.String(),
						textutil.Truncate(scene.Action, 60),
						strings.Join(notes, "; "),
					})
				}
				fmt.Fprintln(out, renderTable([]string{"#", "Type", "Duration", "Action", "Issues"}, rows,
					[]columnAlignment{alignRight, alignLeft, alignRight, alignLeft, alignLeft}))
				if overlay.Score != "" {
					fmt.Fprintf(out, "Validation score: %s %s\n", overlay.Score, overlay.Summary)
				}
				for _, issue := range overlay.Unindexed {
					fmt.Fprintf(out, "  %s: %s\n", issue.Severity, issue.Message)
				}
				return nil
			})
		},
	}
}

func newStoryboardGenerateCommand(ctx *commandContext, regenerate bool) *cobra.Command {
	use, short := "generate <block>", "Generate scenes for an empty block"
	if regenerate {
		use, short = "regenerate <block>", "Discard a block's scenes and generate them again"
	}
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withBlock(cmd, args[0], func(s *session, ref block.Ref) error {
				return followJob(cmd, s, func(c context.Context) (*sceneedit.Job, error) {
					if regenerate {
						return s.scenes.RegenerateStoryboard(c, ref)
					}
					return s.scenes.GenerateStoryboard(c, ref)
				})
			})
		},
	}
}

func newStoryboardPromptsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "prompts <block>",
		Short: "Write video prompts for every scene of a block",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withBlock(cmd, args[0], func(s *session, ref block.Ref) error {
				return followJob(cmd, s, func(c context.Context) (*sceneedit.Job, error) {
					return s.scenes.GeneratePrompts(c, ref)
				})
			})
		},
	}
}

func newInsertBridgeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "insert-bridge <block> <after-scene>",
		Short: "Insert a bridge scene after a scene and save the block",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			after, err := sceneIndex(args[1])
			if err != nil {
				return err
			}
			return ctx.withBlock(cmd, args[0], func(s *session, ref block.Ref) error {
				at, err := s.grid.InsertBridge(cmd.Context(), ref, after)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Inserted bridge as scene %d of %s\n", at+1, ref.Folder())
				return nil
			})
		},
	}
}

func newDeleteSceneCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "delete-scene <block> <scene>",
		Short: "Delete a scene and save the block",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := sceneIndex(args[1])
			if err != nil {
				return err
			}
			return ctx.withBlock(cmd, args[0], func(s *session, ref block.Ref) error {
				if err := s.grid.DeleteScene(cmd.Context(), ref, index); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted scene %d of %s\n", index+1, ref.Folder())
				return nil
			})
		},
	}
}

func newEditSceneCommand(ctx *commandContext, insert bool) *cobra.Command {
	var form sceneedit.SceneForm
	use, short := "edit-scene <block> <scene>", "Rewrite a scene on the backend"
	if insert {
		use, short = "insert-scene <block> <position>", "Ask the backend to write a new scene at a position"
	}
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := sceneIndex(args[1])
			if err != nil {
				return err
			}
			return ctx.withBlock(cmd, args[0], func(s *session, ref block.Ref) error {
				return followJob(cmd, s, func(c context.Context) (*sceneedit.Job, error) {
					if insert {
						return s.scenes.InsertScene(c, ref, index, form)
					}
					current, err := loadedForm(s, ref, index)
					if err != nil {
						return nil, err
					}
					return s.scenes.EditScene(c, ref, index, mergeForm(current, form, cmd))
				})
			})
		},
	}
	cmd.Flags().StringVar(&form.Type, "type", "", "Scene type: narrated, bridge, presenter or silent")
	cmd.Flags().StringVar(&form.Action, "action", "", "What happens in the scene")
	cmd.Flags().StringVar(&form.Narration, "narration", "", "Narration text")
	cmd.Flags().StringVar(&form.Duration, "duration", "", "Duration such as 8s")
	if !insert {
		cmd.Flags().BoolVar(&form.KeepImage, "keep-image", false, "Keep the current image instead of regenerating it")
	}
	return cmd
}

func loadedForm(s *session, ref block.Ref, index int) (sceneedit.SceneForm, error) {
	doc := s.state.Snapshot().Storyboards[ref.Folder()]
	if doc == nil || index >= len(doc.Storyboard) {
		return sceneedit.SceneForm{}, backend.Wrap(backend.ErrValidation, "edit scene", fmt.Sprintf("%s has no scene %d", ref.Folder(), index+1), nil)
	}
	return sceneedit.FormFromScene(doc.Storyboard[index]), nil
}

// mergeForm keeps the scene's current values for flags that were not given.
func mergeForm(current, flags sceneedit.SceneForm, cmd *cobra.Command) sceneedit.SceneForm {
	if cmd.Flags().Changed("type") {
		current.Type = flags.Type
	}
	if cmd.Flags().Changed("action") {
		current.Action = flags.Action
	}
	if cmd.Flags().Changed("narration") {
		current.Narration = flags.Narration
	}
	if cmd.Flags().Changed("duration") {
		current.Duration = flags.Duration
	}
	current.KeepImage = flags.KeepImage
	return current
}

func newEditPromptCommand(ctx *commandContext) *cobra.Command {
	var feedback string
	cmd := &cobra.Command{
		Use:   "edit-prompt <block> <scene>",
		Short: "Revise a scene's video prompt from feedback",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := sceneIndex(args[1])
			if err != nil {
				return err
			}
			return ctx.withBlock(cmd, args[0], func(s *session, ref block.Ref) error {
				text, err := s.prompt.text("What should change in the prompt", feedback)
				if err != nil {
					return err
				}
				resp, err := s.scenes.EditPrompt(cmd.Context(), ref, index, text)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintln(out, resp.PromptText)
				if resp.SFX != "" {
					fmt.Fprintf(out, "SFX: %s\n", resp.SFX)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&feedback, "feedback", "", "Feedback for the prompt writer")
	return cmd
}

func newEditLocationCommand(ctx *commandContext) *cobra.Command {
	var feedback string
	var reference string
	cmd := &cobra.Command{
		Use:   "edit-location <block> <scene> <location>",
		Short: "Regenerate a scene location image from feedback",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := sceneIndex(args[1])
			if err != nil {
				return err
			}
			location, err := strconv.Atoi(strings.TrimSpace(args[2]))
			if err != nil || location < 1 {
				return fmt.Errorf("invalid location %q: expected a number from 1", args[2])
			}
			return ctx.withBlock(cmd, args[0], func(s *session, ref block.Ref) error {
				text, err := s.prompt.text("What should change in the location", feedback)
				if err != nil {
					return err
				}
				if reference != "" {
					if err := checkReference(s, ref, index, reference); err != nil {
						return err
					}
				}
				resp, err := s.scenes.EditLocationImage(cmd.Context(), ref, index, location-1, text, reference)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Location image %s updated in %d scenes\n", resp.LocationImage, resp.UpdatedScenes)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&feedback, "feedback", "", "Feedback for the image generator")
	cmd.Flags().StringVar(&reference, "reference", "", "Reference image filename to guide the result")
	return cmd
}

func checkReference(s *session, ref block.Ref, index int, reference string) error {
	doc := s.state.Snapshot().Storyboards[ref.Folder()]
	var names []string
	for _, opt := range sceneedit.ReferenceOptions(doc, index) {
		if opt.Image == reference {
			return nil
		}
		names = append(names, opt.Image)
	}
	return backend.Wrap(backend.ErrValidation, "edit location image",
		fmt.Sprintf("unknown reference %q (choose from %s)", reference, strings.Join(names, ", ")), nil)
}

func newDeletePromptCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "delete-prompt <block> <scene>",
		Short: "Clear a scene's video prompt",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := sceneIndex(args[1])
			if err != nil {
				return err
			}
			return ctx.withBlock(cmd, args[0], func(s *session, ref block.Ref) error {
				return followJob(cmd, s, func(c context.Context) (*sceneedit.Job, error) {
					return s.scenes.DeletePrompt(c, ref, index)
				})
			})
		},
	}
}

func newToggleDoneCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "toggle-done <block> <scene>",
		Short: "Flip the done mark of a scene's video prompt",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := sceneIndex(args[1])
			if err != nil {
				return err
			}
			return ctx.withBlock(cmd, args[0], func(s *session, ref block.Ref) error {
				done, err := s.scenes.ToggleDone(cmd.Context(), ref, index)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Scene %d prompt %s\n", index+1, textutil.Ternary(done, "done", "not done"))
				return nil
			})
		},
	}
}

// workingCopy returns the local draft of a block, or the loaded backend copy
// when there is none.
func workingCopy(ctx context.Context, s *session, ref block.Ref) (*storyboard.Model, string, error) {
	snap := s.state.Snapshot()
	projectID := snap.ProjectID()
	settings := storyboard.SettingsFromConfig(s.cfg)
	draft, err := s.ws.LoadDraft(ctx, projectID, ref)
	switch {
	case err == nil:
		return storyboard.New(projectID, ref, draft.Document, settings), "draft", nil
	case !errors.Is(err, workspace.ErrNoDraft):
		return nil, "", err
	}
	doc := snap.Storyboards[ref.Folder()]
	if doc == nil {
		return nil, "", backend.Wrap(backend.ErrNotGenerated, "storyboard", ref.Folder()+" has no scenes yet", nil)
	}
	return storyboard.New(projectID, ref, doc, settings), "backend", nil
}

func newDraftPullCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "pull <block>",
		Short: "Copy a block into a local draft",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withBlock(cmd, args[0], func(s *session, ref block.Ref) error {
				projectID := s.state.Snapshot().ProjectID()
				model, err := storyboard.Load(cmd.Context(), s.client, projectID, ref, storyboard.SettingsFromConfig(s.cfg))
				if err != nil {
					return err
				}
				if err := s.ws.SaveDraft(cmd.Context(), projectID, ref, model.Document()); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Draft of %s: %s\n", ref.Folder(), blockSummary(model.Scenes()))
				return nil
			})
		},
	}
}

func newDraftSetCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "set <block> <scene> <field> <value>",
		Short: "Edit one field of a scene in the local draft",
		Long:  "Fields: " + strings.Join(storyboard.EditableFields, ", ") + ".",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := sceneIndex(args[1])
			if err != nil {
				return err
			}
			return ctx.withBlock(cmd, args[0], func(s *session, ref block.Ref) error {
				model, _, err := workingCopy(cmd.Context(), s, ref)
				if err != nil {
					return err
				}
				if err := model.EditField(index, args[2], args[3]); err != nil {
					return err
				}
				if err := s.ws.SaveDraft(cmd.Context(), model.ProjectID(), ref, model.Document()); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Draft of %s updated; run `cutroom storyboard push %s` to save it\n", ref.Folder(), ref.Folder())
				return nil
			})
		},
	}
}

func newDraftPushCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "push <block>",
		Short: "Save the local draft of a block to the backend",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withBlock(cmd, args[0], func(s *session, ref block.Ref) error {
				projectID := s.state.Snapshot().ProjectID()
				draft, err := s.ws.LoadDraft(cmd.Context(), projectID, ref)
				if err != nil {
					return err
				}
				model := storyboard.New(projectID, ref, draft.Document, storyboard.SettingsFromConfig(s.cfg))
				resp, err := model.Save(cmd.Context(), s.client)
				if err != nil {
					return err
				}
				if err := s.ws.DeleteDraft(cmd.Context(), projectID, ref); err != nil {
					return err
				}
				status := textutil.Ternary(resp.Status != "", resp.Status, "saved")
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %s (%s)\n", ref.Folder(), status, blockSummary(model.Scenes()))
				return nil
			})
		},
	}
}

func newDraftListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "drafts",
		Short: "List blocks with unsaved local drafts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withSession(cmd, func(s *session) error {
				if err := ctx.openProject(cmd.Context(), s); err != nil {
					return err
				}
				folders, err := s.ws.DraftBlocks(cmd.Context(), s.state.Snapshot().ProjectID())
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(folders) == 0 {
					fmt.Fprintln(out, "No drafts.")
					return nil
				}
				for _, folder := range folders {
					fmt.Fprintln(out, folder)
				}
				return nil
			})
		},
	}
}
