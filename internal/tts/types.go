package tts

import (
	"context"
	"fmt"
	"time"
)

// ChunkKind discriminates the values a synthesis stream can deliver.
type ChunkKind int

const (
	// KindAudio carries a binary audio payload to append to the output.
	KindAudio ChunkKind = iota
	// KindError carries an advisory, chunk-level error message. It does not
	// terminate the stream.
	KindError
)

// Chunk is one unit of the synthesis response stream.
type Chunk struct {
	Kind    ChunkKind
	Data    []byte
	Message string
}

// Request contains parameters to synthesize speech.
type Request struct {
	Text   string
	Voice  string
	Rate   string
	Volume string
	Pitch  string

	// ConnectTimeout bounds connection establishment, ReceiveTimeout bounds
	// the wait for each piece of stream data.
	ConnectTimeout time.Duration
	ReceiveTimeout time.Duration
}

// Synthesizer is the contract for producing audio. Chunks arrive in order on
// the first channel; a session-level fault, if any, arrives on the second.
// Both channels are closed when the stream is exhausted.
type Synthesizer interface {
	Synthesize(ctx context.Context, req Request) (<-chan Chunk, <-chan error)
}

// Voice describes one entry of the remote voice directory.
type Voice struct {
	ShortName string `json:"ShortName"`
	Gender    string `json:"Gender"`
	Locale    string `json:"Locale"`
}

// Catalog lists the voices the remote service offers.
type Catalog interface {
	ListVoices(ctx context.Context) ([]Voice, error)
}

// ProtocolError marks a network/protocol-class session fault: connection
// refused, handshake rejected, malformed frame, timeout, or a stream that
// ended without delivering any audio. Partial output is discarded for this
// class of fault.
type ProtocolError struct {
	Op  string
	Err error
}

func (e *ProtocolError) Error() string {
	if e.Err == nil {
		return e.Op
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ProtocolError) Unwrap() error { return e.Err }
