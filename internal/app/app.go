// Package app sequences the conversion pipeline: validate parameters, extract
// text, stream synthesis into the output file, record the outcome.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/papervoice/papervoice/internal/config"
	"github.com/papervoice/papervoice/internal/extract"
	"github.com/papervoice/papervoice/internal/history"
	"github.com/papervoice/papervoice/internal/session"
	"github.com/papervoice/papervoice/internal/tts"
	"github.com/papervoice/papervoice/internal/voices"
)

var tracer = otel.Tracer("github.com/papervoice/papervoice/internal/app")

// ErrSynthesisFailed reports a session that ended without success.
var ErrSynthesisFailed = errors.New("synthesis failed")

// App wires the pipeline components together. All collaborators are
// injected, so tests can substitute fakes for the network and the parser.
type App struct {
	cfg       config.Config
	logger    *slog.Logger
	extractor extract.Extractor
	synth     tts.Synthesizer
	catalog   tts.Catalog
	store     *history.Store
	out       io.Writer
}

func New(cfg config.Config, logger *slog.Logger, extractor extract.Extractor, synth tts.Synthesizer, catalog tts.Catalog, store *history.Store, out io.Writer) *App {
	return &App{
		cfg:       cfg,
		logger:    logger,
		extractor: extractor,
		synth:     synth,
		catalog:   catalog,
		store:     store,
		out:       out,
	}
}

// Convert runs the full pipeline for the configured input file. Any stage
// failure aborts the remaining stages and surfaces as a non-nil error.
func (a *App) Convert(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "convert")
	defer span.End()
	span.SetAttributes(
		attribute.String("input", a.cfg.InputPath),
		attribute.String("voice", a.cfg.Synthesis.Voice),
	)

	// Prosody syntax is checked before anything touches the network.
	if err := tts.ValidateProsody(a.cfg.Synthesis.Rate, a.cfg.Synthesis.Volume, a.cfg.Synthesis.Pitch); err != nil {
		return err
	}

	extractCtx, extractSpan := tracer.Start(ctx, "extract")
	text, err := a.extractor.Extract(extractCtx, a.cfg.InputPath)
	extractSpan.End()
	if err != nil {
		return fmt.Errorf("extract text: %w", err)
	}
	if text == "" {
		a.logger.Warn("document contains no processable text", slog.String("input", a.cfg.InputPath))
		return nil
	}

	fmt.Fprintf(a.out, "Text: %d chars | Voice: %s\n", len(text), a.cfg.Synthesis.Voice)

	req := tts.Request{
		Text:           text,
		Voice:          a.cfg.Synthesis.Voice,
		Rate:           a.cfg.Synthesis.Rate,
		Volume:         a.cfg.Synthesis.Volume,
		Pitch:          a.cfg.Synthesis.Pitch,
		ConnectTimeout: a.cfg.ConnectTimeout(),
		ReceiveTimeout: a.cfg.ReceiveTimeout(),
	}

	sess := session.New(a.synth, a.logger)
	sess.Progress = func(total int64) {
		fmt.Fprintf(a.out, "\r  receiving: %.2f MB", float64(total)/(1024*1024))
	}

	synthCtx, synthSpan := tracer.Start(ctx, "synthesize")
	outcome := sess.Run(synthCtx, req, a.cfg.OutputPath)
	synthSpan.SetAttributes(
		attribute.Int64("bytes", outcome.Bytes),
		attribute.Bool("success", outcome.Success),
	)
	synthSpan.End()
	fmt.Fprintln(a.out)

	a.recordOutcome(ctx, outcome)

	if !outcome.Success {
		return ErrSynthesisFailed
	}
	return nil
}

func (a *App) recordOutcome(ctx context.Context, outcome session.Outcome) {
	if a.store == nil {
		return
	}
	status := "ok"
	if !outcome.Success {
		status = "failed"
	}
	err := a.store.Record(ctx, history.Record{
		InputPath:  a.cfg.InputPath,
		OutputPath: a.cfg.OutputPath,
		Voice:      a.cfg.Synthesis.Voice,
		Bytes:      outcome.Bytes,
		Duration:   outcome.Elapsed,
		Status:     status,
	})
	if err != nil {
		// History is bookkeeping; it never fails a conversion.
		a.logger.Warn("failed to record conversion", slog.String("error", err.Error()))
	}
}

// ListVoices prints the filtered voice table. It never returns an error: a
// catalog failure is logged and the process still exits zero.
func (a *App) ListVoices(ctx context.Context) {
	voices.NewLister(a.catalog, a.logger, a.out).List(ctx, a.cfg.Voices.LocalePrefix)
}

// ShowHistory prints recent conversion records.
func (a *App) ShowHistory(ctx context.Context) error {
	records, err := a.store.Recent(ctx, 20)
	if err != nil {
		return fmt.Errorf("read history: %w", err)
	}
	if len(records) == 0 {
		fmt.Fprintln(a.out, "No conversions recorded yet.")
		return nil
	}
	for _, r := range records {
		fmt.Fprintf(a.out, "%s  %-6s  %8d bytes  %6s  %s -> %s\n",
			r.CreatedAt.Format("2006-01-02 15:04"),
			r.Status,
			r.Bytes,
			r.Duration.Round(100*time.Millisecond).String(),
			r.InputPath,
			r.OutputPath,
		)
	}
	return nil
}
