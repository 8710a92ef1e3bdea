package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"cutroom/internal/projectview"
	"cutroom/internal/textutil"
)

// downloadTo writes a streamed download to path, creating its directory.
func downloadTo(path string, fetch func(io.Writer) error) error {
	target, err := filepathFor(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("create directory for %s: %w", target, err)
	}
	f, err := os.Create(target)
	if err != nil {
		return fmt.Errorf("create %s: %w", target, err)
	}
	if err := fetch(f); err != nil {
		f.Close()
		_ = os.Remove(target)
		return err
	}
	return f.Close()
}

func filepathFor(path string) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return "", fmt.Errorf("output path is required")
	}
	return filepath.Abs(path)
}

func newElementCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "elements",
		Aliases: []string{"element"},
		Short:   "List and revise recurring visual elements",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List the project's elements",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withSession(cmd, func(s *session) error {
				if err := ctx.openProject(cmd.Context(), s); err != nil {
					return err
				}
				elements := s.state.Snapshot().Project.Elements
				rows := make([][]string, 0, len(elements))
				for _, el := range elements {
					rows = append(rows, []string{el.ElementID, el.Category, el.Label, el.ImageFilename, strings.Join(el.AppearsIn, ", ")})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"ID", "Category", "Label", "Image", "Appears in"}, rows, nil))
				return nil
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "regenerate <element-id>",
		Short: "Generate a new image for an element",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withSession(cmd, func(s *session) error {
				if err := ctx.openProject(cmd.Context(), s); err != nil {
					return err
				}
				el, err := s.project.RegenerateElement(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s regenerated: %s\n", el.Label, el.ImageFilename)
				return nil
			})
		},
	})

	var feedback string
	edit := &cobra.Command{
		Use:   "edit <element-id>",
		Short: "Revise an element image from feedback",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withSession(cmd, func(s *session) error {
				if err := ctx.openProject(cmd.Context(), s); err != nil {
					return err
				}
				text, err := s.prompt.text("What should change", feedback)
				if err != nil {
					return err
				}
				el, err := s.project.EditElement(cmd.Context(), args[0], text)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s updated: %s\n", el.Label, el.ImageFilename)
				return nil
			})
		},
	}
	edit.Flags().StringVar(&feedback, "feedback", "", "Feedback for the image generator")
	cmd.AddCommand(edit)

	cmd.AddCommand(&cobra.Command{
		Use:   "upload <element-id> <file>",
		Short: "Replace an element image with a local file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withSession(cmd, func(s *session) error {
				if err := ctx.openProject(cmd.Context(), s); err != nil {
					return err
				}
				f, name, err := openFile(args[1])
				if err != nil {
					return err
				}
				defer f.Close()
				el, err := s.project.UploadElement(cmd.Context(), args[0], f, name)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s uploaded: %s\n", el.Label, el.ImageFilename)
				return nil
			})
		},
	})
	return cmd
}

func newFrameCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "frames",
		Aliases: []string{"frame"},
		Short:   "Regenerate or replace scene start frames",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "regenerate <scene-number>",
		Short: "Generate a new start frame for a scene",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			number, err := sceneNumber(args[0])
			if err != nil {
				return err
			}
			return ctx.withSession(cmd, func(s *session) error {
				if err := ctx.openProject(cmd.Context(), s); err != nil {
					return err
				}
				resp, err := s.project.RegenerateFrame(cmd.Context(), number)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Frame for scene %d: %s\n", number, resp.Status)
				return nil
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "upload <scene-number> <file>",
		Short: "Replace a scene start frame with a local image",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			number, err := sceneNumber(args[0])
			if err != nil {
				return err
			}
			return ctx.withSession(cmd, func(s *session) error {
				if err := ctx.openProject(cmd.Context(), s); err != nil {
					return err
				}
				f, name, err := openFile(args[1])
				if err != nil {
					return err
				}
				defer f.Close()
				resp, err := s.project.UploadFrame(cmd.Context(), number, f, name)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Frame for scene %d: %s\n", number, resp.Filename)
				return nil
			})
		},
	})
	return cmd
}

// sceneNumber parses a 1-based scene number.
func sceneNumber(value string) (int, error) {
	index, err := sceneIndex(value)
	if err != nil {
		return 0, err
	}
	return index + 1, nil
}

func newAudioCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audio",
		Short: "Presenter voice segments",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List chapter voice segments and their audio",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withSession(cmd, func(s *session) error {
				if err := ctx.openProject(cmd.Context(), s); err != nil {
					return err
				}
				project := s.state.Snapshot().Project
				segments := projectview.VoiceSegments(project.Narration, project.AudioManifest)
				out := cmd.OutOrStdout()
				if len(segments) == 0 {
					fmt.Fprintln(out, "No narration yet.")
					return nil
				}
				rows := make([][]string, 0, len(segments))
				for _, seg := range segments {
					length := "—"
					if seg.Audio != nil {
						length = projectview.Clock(seg.Audio.DurationSeconds)
					}
					rows = append(rows, []string{seg.ID, seg.Label, seg.Title, strconv.Itoa(seg.Words), length})
				}
				fmt.Fprintln(out, renderTable([]string{"Segment", "", "Title", "Words", "Audio"}, rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight}))
				fmt.Fprintf(out, "Total %s\n", projectview.Clock(projectview.VoiceTotalSeconds(segments)))
				return nil
			})
		},
	})

	var all bool
	generate := &cobra.Command{
		Use:   "generate [segment-id]",
		Short: "Synthesize a voice segment, or every segment with --all",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !all && len(args) == 0 {
				return fmt.Errorf("segment id is required unless --all is set")
			}
			return ctx.withSession(cmd, func(s *session) error {
				if err := ctx.openProject(cmd.Context(), s); err != nil {
					return err
				}
				if _, err := s.project.LoadSettings(cmd.Context()); err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "show settings unavailable; using configured voice: %v\n", err)
				}
				stop := followLog(s.state, cmd.OutOrStdout())
				defer stop()
				if all {
					return s.project.GenerateAllAudio(cmd.Context())
				}
				_, err := s.project.GenerateAudio(cmd.Context(), args[0])
				return err
			})
		},
	}
	generate.Flags().BoolVar(&all, "all", false, "Generate every chapter segment")
	cmd.AddCommand(generate)

	var output string
	download := &cobra.Command{
		Use:   "download",
		Short: "Download every generated segment as a zip",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withSession(cmd, func(s *session) error {
				if err := ctx.openProject(cmd.Context(), s); err != nil {
					return err
				}
				project := s.state.Snapshot().Project
				target := output
				if target == "" {
					name := textutil.SanitizeFileName(project.Metadata.Title)
					target = filepath.Join(s.cfg.Paths.ExportDir, name+"_audio.zip")
				}
				if err := downloadTo(target, func(w io.Writer) error {
					return s.client.AudioZip(cmd.Context(), project.Metadata.ID, w)
				}); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", target)
				return nil
			})
		},
	}
	download.Flags().StringVarP(&output, "output", "o", "", "Zip destination (defaults to the export directory)")
	cmd.AddCommand(download)
	return cmd
}
