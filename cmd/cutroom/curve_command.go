package main

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"cutroom/internal/curve"
	"cutroom/internal/textutil"
)

func newCurveCommand(ctx *commandContext) *cobra.Command {
	var svgPath string
	var columns int
	cmd := &cobra.Command{
		Use:   "curve",
		Short: "Show the story's tension curve",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withSession(cmd, func(s *session) error {
				if err := ctx.openProject(cmd.Context(), s); err != nil {
					return err
				}
				project := s.state.Snapshot().Project
				if project.Story == nil {
					return errors.New("no story breakdown yet; run `cutroom generate breakdown` first")
				}
				width := float64(s.cfg.Curve.Width)
				if width <= 0 {
					width = curve.DefaultWidth
				}
				height := float64(s.cfg.Curve.Height)
				if height <= 0 {
					height = curve.DefaultHeight
				}
				plot := curve.NewPlot(curve.FromStory(project.Story), width, height)
				layout, err := plot.Layout()
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				fmt.Fprintln(out, layout.Sparkline(columns))
				for _, p := range layout.Points {
					tip, ok := plot.HitTest(p.X, p.Y)
					if !ok {
						continue
					}
					fmt.Fprintln(out, strings.TrimSuffix(strings.ReplaceAll(tip.Text(), "\n", " · "), " · "))
				}

				if svgPath == "" {
					return nil
				}
				target := svgPath
				if target == "auto" {
					target = defaultCurveName(project.Metadata.Title)
				}
				if target == "-" {
					return plot.Paint(out)
				}
				if !filepath.IsAbs(target) && !strings.ContainsRune(target, filepath.Separator) {
					target = filepath.Join(s.cfg.Paths.ExportDir, target)
				}
				if err := downloadTo(target, func(w io.Writer) error { return plot.Paint(w) }); err != nil {
					return err
				}
				fmt.Fprintf(out, "Wrote %s\n", target)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&svgPath, "svg", "", "Also write the curve as SVG (file name, path, or - for stdout)")
	cmd.Flags().Lookup("svg").NoOptDefVal = "auto"
	cmd.Flags().IntVar(&columns, "columns", 60, "Sparkline width in characters")
	return cmd
}

// defaultCurveName is the export file name for a project's curve.
func defaultCurveName(title string) string {
	return textutil.Ternary(title != "", textutil.SanitizeFileName(title), "curve") + "_tension.svg"
}
