package app

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/papervoice/papervoice/internal/config"
	"github.com/papervoice/papervoice/internal/extract"
	"github.com/papervoice/papervoice/internal/tts"
)

type fakeExtractor struct {
	text  string
	err   error
	calls int
}

func (f *fakeExtractor) Extract(_ context.Context, _ string) (string, error) {
	f.calls++
	return f.text, f.err
}

// countingSynth wraps a synthesizer and counts how often the network layer
// would have been touched.
type countingSynth struct {
	inner tts.Synthesizer
	calls int
}

func (c *countingSynth) Synthesize(ctx context.Context, req tts.Request) (<-chan tts.Chunk, <-chan error) {
	c.calls++
	return c.inner.Synthesize(ctx, req)
}

func newLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

func testConfig(t *testing.T) config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.InputPath = "book.pdf"
	cfg.OutputPath = filepath.Join(t.TempDir(), "book.mp3")
	cfg.Synthesis.Voice = "V1"
	cfg.Synthesis.Rate = "+0%"
	cfg.Synthesis.Volume = "+0%"
	cfg.Synthesis.Pitch = "+0Hz"
	cfg.History.Enabled = false
	return cfg
}

func TestConvertEndToEnd(t *testing.T) {
	cfg := testConfig(t)
	synth := &countingSynth{inner: tts.NewMockSynth([]tts.Chunk{
		{Kind: tts.KindAudio, Data: bytes.Repeat([]byte{0x01}, 1024)},
		{Kind: tts.KindAudio, Data: bytes.Repeat([]byte{0x02}, 2048)},
	}, nil)}
	ext := &fakeExtractor{text: "Hello world."}

	var out bytes.Buffer
	a := New(cfg, newLogger(), ext, synth, nil, nil, &out)
	if err := a.Convert(context.Background()); err != nil {
		t.Fatalf("convert: %v", err)
	}

	info, err := os.Stat(cfg.OutputPath)
	if err != nil {
		t.Fatalf("stat output: %v", err)
	}
	if info.Size() != 3072 {
		t.Fatalf("expected 3072-byte output, got %d", info.Size())
	}
	if synth.calls != 1 {
		t.Fatalf("expected exactly one synthesis call, got %d", synth.calls)
	}
	if !strings.Contains(out.String(), "Voice: V1") {
		t.Errorf("expected voice banner in output, got %q", out.String())
	}
}

func TestConvertRejectsBadRateBeforeNetwork(t *testing.T) {
	cfg := testConfig(t)
	cfg.Synthesis.Rate = "10%" // missing sign

	synth := &countingSynth{inner: tts.NewMockSynth(nil, nil)}
	ext := &fakeExtractor{text: "Hello world."}

	a := New(cfg, newLogger(), ext, synth, nil, nil, io.Discard)
	err := a.Convert(context.Background())

	var perr *tts.ProsodyError
	if !errors.As(err, &perr) || perr.Param != "rate" {
		t.Fatalf("expected rate ProsodyError, got %v", err)
	}
	if synth.calls != 0 {
		t.Fatalf("validator must run before synthesis; synth called %d times", synth.calls)
	}
	if ext.calls != 0 {
		t.Fatalf("validator must run before extraction; extractor called %d times", ext.calls)
	}
}

func TestConvertEmptyTextSkipsSynthesis(t *testing.T) {
	cfg := testConfig(t)
	synth := &countingSynth{inner: tts.NewMockSynth(nil, nil)}
	ext := &fakeExtractor{text: ""}

	a := New(cfg, newLogger(), ext, synth, nil, nil, io.Discard)
	if err := a.Convert(context.Background()); err != nil {
		t.Fatalf("empty document should not be an error: %v", err)
	}
	if synth.calls != 0 {
		t.Fatalf("expected no synthesis for empty text, got %d calls", synth.calls)
	}
	if _, err := os.Stat(cfg.OutputPath); !os.IsNotExist(err) {
		t.Fatal("no output file should be created for empty text")
	}
}

func TestConvertExtractionFailureAborts(t *testing.T) {
	cfg := testConfig(t)
	synth := &countingSynth{inner: tts.NewMockSynth(nil, nil)}
	ext := &fakeExtractor{err: extract.ErrNotFound}

	a := New(cfg, newLogger(), ext, synth, nil, nil, io.Discard)
	err := a.Convert(context.Background())
	if !errors.Is(err, extract.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if synth.calls != 0 {
		t.Fatal("synthesis must not run after extraction failure")
	}
}

func TestConvertSessionFailureSurfaces(t *testing.T) {
	cfg := testConfig(t)
	synth := &countingSynth{inner: tts.NewMockSynth(nil,
		&tts.ProtocolError{Op: "dial synthesis endpoint", Err: errors.New("refused")})}
	ext := &fakeExtractor{text: "Hello world."}

	a := New(cfg, newLogger(), ext, synth, nil, nil, io.Discard)
	err := a.Convert(context.Background())
	if !errors.Is(err, ErrSynthesisFailed) {
		t.Fatalf("expected ErrSynthesisFailed, got %v", err)
	}
	if _, statErr := os.Stat(cfg.OutputPath); !os.IsNotExist(statErr) {
		t.Fatal("protocol fault must delete the output file")
	}
}
