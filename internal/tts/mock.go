package tts

import (
	"context"
	"time"
)

type mockSynth struct {
	script []Chunk
	fault  error
	delay  time.Duration
}

// NewMockSynth returns a synthesizer that replays the given chunks in order
// and then fails with fault if one is set. Used by tests and dry runs.
func NewMockSynth(script []Chunk, fault error) Synthesizer {
	return &mockSynth{script: script, fault: fault, delay: 5 * time.Millisecond}
}

func (m *mockSynth) Synthesize(ctx context.Context, _ Request) (<-chan Chunk, <-chan error) {
	chunks := make(chan Chunk)
	errs := make(chan error, 1)
	go func() {
		defer close(chunks)
		defer close(errs)
		for _, c := range m.script {
			select {
			case <-ctx.Done():
				errs <- ctx.Err()
				return
			case <-time.After(m.delay):
			}
			select {
			case chunks <- c:
			case <-ctx.Done():
				errs <- ctx.Err()
				return
			}
		}
		if m.fault != nil {
			errs <- m.fault
		}
	}()
	return chunks, errs
}
