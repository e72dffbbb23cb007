package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"
	"golang.org/x/sync/errgroup"

	"github.com/0xlemi/notetracker/internal/audio"
	"github.com/0xlemi/notetracker/internal/config"
	"github.com/0xlemi/notetracker/internal/observe"
	"github.com/0xlemi/notetracker/internal/pitch"
	"github.com/0xlemi/notetracker/internal/record"
	"github.com/0xlemi/notetracker/internal/server"
	"github.com/0xlemi/notetracker/internal/tracker"
	"github.com/0xlemi/notetracker/internal/ui"
)

// recordTempo is the tempo MIDI recordings are timed against
const recordTempo = 120

type listenFlags struct {
	logLevel      string
	mode          string
	estimator     string
	threshold     float64
	dwell         time.Duration
	reference     float64
	flat          bool
	amplification float32
	listenAddr    string
	midiPath      string
}

func newListenCmd(configPath *string) *cobra.Command {
	var f listenFlags

	cmd := &cobra.Command{
		Use:   "listen",
		Short: "Track notes from the default microphone",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			if err := f.apply(cmd, cfg); err != nil {
				return err
			}
			return runListen(cmd.Context(), cfg)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&f.logLevel, "log-level", "", "log level: debug, info, warn, error")
	flags.StringVar(&f.mode, "mode", "", "pipeline mode: auto, cooperative, dedicated")
	flags.StringVar(&f.estimator, "estimator", "", "pitch estimator: fft, yin")
	flags.Float64Var(&f.threshold, "threshold", pitch.DefaultThresholdDB, "silence threshold in dB")
	flags.DurationVar(&f.dwell, "dwell", tracker.DefaultDwellThreshold, "how long a note must be held before it is detected")
	flags.Float64Var(&f.reference, "reference", pitch.ConcertA, "reference pitch of A in Hz")
	flags.BoolVar(&f.flat, "flat", false, "spell accidentals as flats")
	flags.Float32Var(&f.amplification, "amplification", 1, "input gain applied before analysis")
	flags.StringVar(&f.listenAddr, "listen", "", "serve the HTTP API on this address")
	flags.StringVar(&f.midiPath, "midi", "", "record detected notes to this MIDI file")
	return cmd
}

// apply overrides cfg with the flags given on the command line
func (f *listenFlags) apply(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.LogLevel = config.LogLevel(f.logLevel)
	}
	if flags.Changed("mode") {
		cfg.Detector.Mode = tracker.Mode(f.mode)
	}
	if flags.Changed("estimator") {
		cfg.Detector.Estimator = f.estimator
	}
	if flags.Changed("threshold") {
		cfg.Detector.SilenceThreshold = f.threshold
	}
	if flags.Changed("dwell") {
		cfg.Detector.DwellThreshold = f.dwell
	}
	if flags.Changed("reference") {
		cfg.Detector.ReferencePitch = f.reference
	}
	if flags.Changed("flat") {
		cfg.Detector.SharpSpelling = !f.flat
	}
	if flags.Changed("amplification") {
		cfg.Audio.Amplification = f.amplification
	}
	if flags.Changed("listen") {
		cfg.Server.ListenAddr = f.listenAddr
	}
	if flags.Changed("midi") {
		cfg.Record.MIDIPath = f.midiPath
	}
	return config.Validate(cfg)
}

func runListen(ctx context.Context, cfg *config.Config) error {
	logger, logCloser, err := newLogger(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		return err
	}
	defer logCloser.Close()
	slog.SetDefault(logger)

	if err := audio.RequireInputDevice(); err != nil {
		if errors.Is(err, audio.ErrNoInputDevice) {
			slog.Error("no audio input device found")
		}
		return err
	}

	shutdownMetrics, err := observe.InitProvider("notetracker", version)
	if err != nil {
		return fmt.Errorf("init metrics: %w", err)
	}
	defer func() {
		if err := shutdownMetrics(context.Background()); err != nil {
			slog.Warn("metrics shutdown", "err", err)
		}
	}()
	metrics, err := observe.NewMetrics(otel.GetMeterProvider())
	if err != nil {
		return fmt.Errorf("create metrics: %w", err)
	}

	source, mode, err := buildSource(cfg, metrics)
	if err != nil {
		return err
	}

	tr, err := tracker.New(cfg.TrackerConfig(), source, tracker.WithMetrics(metrics))
	if err != nil {
		source.Close()
		return err
	}
	defer func() {
		if err := tr.Close(); err != nil {
			slog.Warn("close tracker", "err", err)
		}
	}()

	slog.Info("notetracker starting",
		"mode", mode,
		"estimator", cfg.Detector.Estimator,
		"sample_rate", cfg.Audio.SampleRate,
		"buffer_size", cfg.Audio.BufferSize,
		"listen_addr", cfg.Server.ListenAddr,
	)

	if cfg.Record.MIDIPath != "" {
		rec := record.New(recordTempo, cfg.Detector.ReferencePitch)
		tr.Subscribe(func(string) {
			rec.Record(tr.Snapshot(), time.Now())
		})
		defer func() {
			if err := rec.WriteFile(cfg.Record.MIDIPath); err != nil {
				slog.Error("write midi recording", "err", err)
			}
		}()
	}

	if err := tr.Start(); err != nil {
		return fmt.Errorf("start capture: %w", err)
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		// Quitting the UI ends the whole process
		defer cancel()
		p := tea.NewProgram(ui.NewModel(tr, cfg.UI.TickInterval), tea.WithAltScreen(), tea.WithContext(gctx))
		if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
			return fmt.Errorf("run ui: %w", err)
		}
		return nil
	})

	if cfg.Server.ListenAddr != "" {
		srv := server.New(cfg.Server.ListenAddr, tr, cfg.Detector.SharpSpelling)
		g.Go(func() error {
			return srv.Run(gctx)
		})
	}

	if err := g.Wait(); err != nil {
		slog.Error("notetracker stopped", "err", err)
		return err
	}
	slog.Info("notetracker stopped")
	return nil
}

// buildSource creates the pitch source for the resolved pipeline mode
func buildSource(cfg *config.Config, metrics *observe.Metrics) (tracker.PitchSource, tracker.Mode, error) {
	est, err := pitch.NewEstimator(cfg.Detector.Estimator, cfg.Audio.SampleRate, cfg.Audio.BufferSize)
	if err != nil {
		return nil, "", err
	}
	analyzer := tracker.Analyzer{
		Gate:      pitch.Gate{ThresholdDB: cfg.Detector.SilenceThreshold},
		Estimator: est,
		Metrics:   metrics,
	}

	mode := tracker.SelectMode(cfg.Detector.Mode)
	switch mode {
	case tracker.ModeDedicated:
		engine := audio.NewPortAudioEngine(cfg.Audio.SampleRate, cfg.Audio.BufferSize, cfg.Audio.Amplification, analyzer.Analyze)
		return tracker.NewDedicated(engine), mode, nil
	default:
		capturer, err := audio.NewPortAudioCapturer(cfg.Audio.BufferSize, cfg.Audio.SampleRate, cfg.Audio.Channels)
		if err != nil {
			return nil, "", fmt.Errorf("create audio capturer: %w", err)
		}
		capturer.SetAmplification(cfg.Audio.Amplification)
		return tracker.NewCooperative(capturer, cfg.Audio.BufferSize, analyzer), mode, nil
	}
}
