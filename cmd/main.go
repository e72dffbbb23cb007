// Command notetracker listens to the microphone and reports the musical note
// being played, firing an event once a note has been held.
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/0xlemi/notetracker/internal/config"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	listen := newListenCmd(&configPath)
	root := &cobra.Command{
		Use:           "notetracker",
		Short:         "Real-time musical note tracker",
		Long:          `notetracker captures microphone audio, estimates its pitch and shows the note being played.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: false,
		Args:          cobra.NoArgs,
		RunE:          listen.RunE,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to a YAML configuration file")
	root.Flags().AddFlagSet(listen.Flags())

	root.AddCommand(listen, newDevicesCmd(), newNoteCmd(&configPath), newScaleCmd(&configPath))
	return root
}

// loadConfig returns the defaults when path is empty
func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}

// newLogger builds the process logger. The terminal belongs to the UI, so
// logs go to a file unless path is "-".
func newLogger(level config.LogLevel, path string) (*slog.Logger, io.Closer, error) {
	var (
		w      io.Writer = os.Stderr
		closer io.Closer = io.NopCloser(nil)
	)
	if path != "" && path != "-" {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file %q: %w", path, err)
		}
		w, closer = f, f
	}

	opts := &slog.HandlerOptions{Level: level.SlogLevel()}
	return slog.New(slog.NewTextHandler(w, opts)), closer, nil
}
