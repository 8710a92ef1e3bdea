package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"cutroom/internal/backend"
)

func newSettingsCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show settings shared by every project",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the presenter settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withSession(cmd, func(s *session) error {
				settings, err := s.project.LoadSettings(cmd.Context())
				if err != nil {
					return err
				}
				p := settings.Presenter
				rows := [][]string{
					{"Name", p.Name},
					{"Turnaround image", p.TurnaroundImage},
					{"Voice", p.ElevenLabsVoiceID},
					{"Model", p.ElevenLabsModel},
					{"Stability", fmt.Sprintf("%.2f", p.ElevenLabsStability)},
					{"Speed", fmt.Sprintf("%.2f", p.ElevenLabsSpeed)},
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Presenter", ""}, rows, nil))
				return nil
			})
		},
	})

	var (
		name      string
		voiceID   string
		model     string
		stability float64
		speed     float64
	)
	set := &cobra.Command{
		Use:   "set",
		Short: "Update presenter settings; only given flags change",
		RunE: func(cmd *cobra.Command, args []string) error {
			var update backend.PresenterUpdate
			flags := cmd.Flags()
			if flags.Changed("name") {
				update.Name = &name
			}
			if flags.Changed("voice") {
				update.VoiceID = &voiceID
			}
			if flags.Changed("model") {
				update.Model = &model
			}
			if flags.Changed("stability") {
				update.Stability = &stability
			}
			if flags.Changed("speed") {
				update.Speed = &speed
			}
			return ctx.withSession(cmd, func(s *session) error {
				settings, err := s.client.SaveShowSettings(cmd.Context(), update)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Saved presenter %s (voice %s)\n", settings.Presenter.Name, settings.Presenter.ElevenLabsVoiceID)
				return nil
			})
		},
	}
	set.Flags().StringVar(&name, "name", "", "Presenter name")
	set.Flags().StringVar(&voiceID, "voice", "", "ElevenLabs voice id")
	set.Flags().StringVar(&model, "model", "", "ElevenLabs model")
	set.Flags().Float64Var(&stability, "stability", 0, "Voice stability (0-1)")
	set.Flags().Float64Var(&speed, "speed", 0, "Voice speed")
	cmd.AddCommand(set)

	cmd.AddCommand(&cobra.Command{
		Use:   "presenter-image <file>",
		Short: "Replace the presenter turnaround image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withSession(cmd, func(s *session) error {
				f, filename, err := openFile(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				resp, err := s.client.UploadPresenterImage(cmd.Context(), f, filename)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Presenter image: %s\n", strings.TrimSpace(resp.Filename))
				return nil
			})
		},
	})
	return cmd
}
