// Package session implements the streaming download of synthesized audio:
// it opens the output file, consumes the chunk stream in arrival order, and
// finalizes or cleans up depending on the fault class.
package session

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"time"

	"github.com/papervoice/papervoice/internal/tts"
)

// Outcome summarizes a finished session.
type Outcome struct {
	Success bool
	Bytes   int64
	Elapsed time.Duration
}

// ProgressFunc receives the running byte total as audio arrives.
type ProgressFunc func(totalBytes int64)

// Session drives one synthesis stream into one output file.
type Session struct {
	synth    tts.Synthesizer
	logger   *slog.Logger
	clock    func() time.Time
	Progress ProgressFunc
}

func New(synth tts.Synthesizer, log *slog.Logger) *Session {
	return &Session{
		synth:  synth,
		logger: log.With(slog.String("component", "session")),
		clock:  time.Now,
	}
}

// Run synthesizes req into outputPath. Audio chunks are appended strictly in
// arrival order; advisory error chunks are logged and the stream continues.
// A network/protocol fault deletes the output file regardless of how much was
// already written; any other fault leaves the partial file on disk.
func (s *Session) Run(ctx context.Context, req tts.Request, outputPath string) Outcome {
	start := s.clock()

	out, err := os.Create(outputPath)
	if err != nil {
		s.logger.Error("failed to create output file",
			slog.String("path", outputPath), slog.String("error", err.Error()))
		return Outcome{Elapsed: s.clock().Sub(start)}
	}

	s.logger.Info("starting synthesis",
		slog.String("voice", req.Voice),
		slog.Duration("connect_timeout", req.ConnectTimeout),
		slog.Duration("receive_timeout", req.ReceiveTimeout))

	chunks, errs := s.synth.Synthesize(ctx, req)

	var total int64
	var fault error
	for chunks != nil || errs != nil {
		select {
		case chunk, ok := <-chunks:
			if !ok {
				chunks = nil
				continue
			}
			switch chunk.Kind {
			case tts.KindAudio:
				if fault != nil {
					// Already failed; keep draining so the producer can finish.
					continue
				}
				if _, werr := out.Write(chunk.Data); werr != nil {
					fault = werr
					continue
				}
				total += int64(len(chunk.Data))
				if s.Progress != nil {
					s.Progress(total)
				}
			case tts.KindError:
				s.logger.Warn("remote synthesis error", slog.String("message", chunk.Message))
			}
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			if err != nil && fault == nil {
				fault = err
			}
		}
	}

	closeErr := out.Close()
	if fault == nil && closeErr != nil {
		fault = closeErr
	}

	elapsed := s.clock().Sub(start)
	if fault == nil {
		s.logger.Info("synthesis finished",
			slog.Int64("bytes", total),
			slog.Duration("elapsed", elapsed.Round(100*time.Millisecond)),
			slog.String("output", outputPath))
		return Outcome{Success: true, Bytes: total, Elapsed: elapsed}
	}

	var perr *tts.ProtocolError
	if errors.As(fault, &perr) {
		s.logger.Error("network/protocol fault", slog.String("error", fault.Error()))
		if _, statErr := os.Stat(outputPath); statErr == nil {
			if rmErr := os.Remove(outputPath); rmErr != nil {
				s.logger.Warn("failed to remove partial output", slog.String("error", rmErr.Error()))
			}
		}
		return Outcome{Bytes: total, Elapsed: elapsed}
	}

	// Unexpected faults leave the partial file in place.
	s.logger.Error("unexpected synthesis fault", slog.String("error", fault.Error()))
	return Outcome{Bytes: total, Elapsed: elapsed}
}
