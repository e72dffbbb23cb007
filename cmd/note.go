package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/0xlemi/notetracker/internal/pitch"
)

func newNoteCmd(configPath *string) *cobra.Command {
	var flat bool

	cmd := &cobra.Command{
		Use:   "note <frequency> [target]",
		Short: "Map a frequency to its note and accuracy",
		Long: `note prints the note closest to frequency and how many cents it is off.
With a target note name, the accuracy is measured against that note instead.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			frequency, err := strconv.ParseFloat(args[0], 64)
			if err != nil {
				return fmt.Errorf("frequency %q: %w", args[0], err)
			}

			sharp := cfg.Detector.SharpSpelling
			if cmd.Flags().Changed("flat") {
				sharp = !flat
			}

			note, err := pitch.Describe(frequency, cfg.Detector.ReferencePitch, sharp)
			if err != nil {
				return err
			}
			if len(args) == 2 {
				accuracy, err := pitch.Accuracy(args[1], frequency)
				if err != nil {
					return err
				}
				note.Accuracy = accuracy
			}

			fmt.Fprintln(cmd.OutOrStdout(), note)
			return nil
		},
	}
	cmd.Flags().BoolVar(&flat, "flat", false, "spell accidentals as flats")
	return cmd
}
