package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/papervoice/papervoice/internal/app"
	"github.com/papervoice/papervoice/internal/config"
	"github.com/papervoice/papervoice/internal/extract"
	"github.com/papervoice/papervoice/internal/history"
	"github.com/papervoice/papervoice/internal/telemetry"
	"github.com/papervoice/papervoice/internal/tts"
)

var version = "0.1.0-dev"

func main() {
	os.Exit(run())
}

func run() int {
	var (
		listVoices  bool
		showHistory bool
		output      string
		voice       string
		rate        string
		volume      string
		pitch       string
		locale      string
		configPath  string
		showVersion bool
	)

	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: papervoice [flags] <input.pdf>\n\n")
		fmt.Fprintf(flag.CommandLine.Output(), "Converts a PDF into a spoken-audio file.\n\n")
		flag.PrintDefaults()
	}

	flag.BoolVar(&listVoices, "list-voices", false, "List available voices and exit")
	flag.BoolVar(&showHistory, "history", false, "Show recent conversions and exit")
	flag.StringVar(&output, "o", "", "Output audio file path (default: input with .mp3 extension)")
	flag.StringVar(&output, "output", "", "Output audio file path (default: input with .mp3 extension)")
	flag.StringVar(&voice, "voice", "", "Voice identifier (e.g. es-MX-DaliaNeural)")
	flag.StringVar(&rate, "rate", "", "Speech rate adjustment (e.g. -15%)")
	flag.StringVar(&volume, "volume", "", "Volume adjustment (e.g. +10%)")
	flag.StringVar(&pitch, "pitch", "", "Pitch adjustment (e.g. +5Hz)")
	flag.StringVar(&locale, "locale", "", "Locale prefix filter for --list-voices (e.g. es-)")
	flag.StringVar(&configPath, "config", "", "Path to YAML configuration file")
	flag.BoolVar(&showVersion, "version", false, "Print version and exit")
	flag.Parse()

	if showVersion {
		fmt.Println(version)
		return 0
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	input := flag.Arg(0)
	actions := 0
	for _, chosen := range []bool{listVoices, showHistory, input != ""} {
		if chosen {
			actions++
		}
	}
	if actions != 1 || flag.NArg() > 1 {
		fmt.Fprintln(os.Stderr, "specify exactly one of: an input PDF path, --list-voices, or --history")
		flag.Usage()
		return 1
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Error("failed to load config", slog.String("error", err.Error()))
		return 1
	}

	// CLI flags win over file and environment.
	if voice != "" {
		cfg.Synthesis.Voice = voice
	}
	if rate != "" {
		cfg.Synthesis.Rate = rate
	}
	if volume != "" {
		cfg.Synthesis.Volume = volume
	}
	if pitch != "" {
		cfg.Synthesis.Pitch = pitch
	}
	if locale != "" {
		cfg.Voices.LocalePrefix = locale
	}
	cfg.InputPath = input
	if input != "" {
		cfg.OutputPath = output
		if cfg.OutputPath == "" {
			cfg.OutputPath = strings.TrimSuffix(input, filepath.Ext(input)) + ".mp3"
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry, err := telemetry.Setup(ctx, cfg.Telemetry, logger)
	if err != nil {
		logger.Error("failed to setup telemetry", slog.String("error", err.Error()))
		return 1
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTelemetry(shutdownCtx); err != nil {
			logger.Error("telemetry shutdown error", slog.String("error", err.Error()))
		}
	}()

	store, err := history.Open(ctx, cfg.History, logger)
	if err != nil {
		logger.Warn("history disabled", slog.String("error", err.Error()))
		store, _ = history.Open(ctx, config.HistoryConfig{}, logger)
	}
	defer store.Close()

	edge := tts.NewEdgeSynth(logger)
	var synth tts.Synthesizer
	switch cfg.Synthesis.Mode {
	case "exec":
		synth, err = tts.NewExecSynth(cfg.Synthesis.Command)
		if err != nil {
			logger.Error("failed to build synthesizer", slog.String("error", err.Error()))
			return 1
		}
	case "mock":
		synth = tts.NewMockSynth(nil, nil)
	default:
		synth = edge
	}

	a := app.New(cfg, logger, extract.NewPDFExtractor(logger), synth, edge, store, os.Stdout)

	switch {
	case listVoices:
		a.ListVoices(ctx)
		return 0
	case showHistory:
		if err := a.ShowHistory(ctx); err != nil {
			logger.Error("failed to show history", slog.String("error", err.Error()))
			return 1
		}
		return 0
	default:
		if err := a.Convert(ctx); err != nil {
			logger.Error("conversion failed", slog.String("error", err.Error()))
			return 1
		}
		return 0
	}
}
