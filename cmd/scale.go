package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/0xlemi/notetracker/internal/pitch"
)

func newScaleCmd(configPath *string) *cobra.Command {
	var flat bool

	cmd := &cobra.Command{
		Use:     "scale <root> [semitones...]",
		Short:   "Print the notes at the given semitone distances from root",
		Example: "  notetracker scale C 2 4 5 7 9 11 12",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}

			distances := make([]int, 0, len(args)-1)
			for _, arg := range args[1:] {
				d, err := strconv.Atoi(arg)
				if err != nil {
					return fmt.Errorf("semitones %q: %w", arg, err)
				}
				distances = append(distances, d)
			}

			sharp := cfg.Detector.SharpSpelling
			if cmd.Flags().Changed("flat") {
				sharp = !flat
			}

			notes, err := pitch.GenerateScale(args[0], sharp, distances...)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), strings.Join(notes, " "))
			return nil
		},
	}
	cmd.Flags().BoolVar(&flat, "flat", false, "spell accidentals as flats")
	return cmd
}
