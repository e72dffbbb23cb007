package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/0xlemi/notetracker/internal/audio"
)

func newDevicesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "devices",
		Short: "List audio input devices",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			devices, err := audio.InputDevices()
			if err != nil {
				return err
			}
			if len(devices) == 0 {
				return audio.ErrNoInputDevice
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "DEFAULT\tNAME\tHOST API\tCHANNELS\tSAMPLE RATE")
			for _, d := range devices {
				def := ""
				if d.IsDefault {
					def = "*"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%.0f\n", def, d.Name, d.HostAPI, d.InputChannels, d.DefaultSampleRate)
			}
			return w.Flush()
		},
	}
}
