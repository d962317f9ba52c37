package tts

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// The Edge read-aloud endpoints speak the same protocol the browser feature
// uses: one WebSocket connection per utterance, a speech.config message, an
// SSML message, then a stream of text control frames and binary audio frames.
const (
	edgeSynthEndpoint  = "wss://speech.platform.bing.com/consumer/speech/synthesize/readaloud/edge/v1"
	edgeVoiceListURL   = "https://speech.platform.bing.com/consumer/speech/synthesize/readaloud/voices/list"
	trustedClientToken = "6A5AA1D4EAFF4E9FB37E23D68491D6F4"
	edgeOutputFormat   = "audio-24khz-48kbitrate-mono-mp3"

	edgeOrigin    = "chrome-extension://jdiccldimpdaibmpdkjnbmckianbfold"
	edgeUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36 Edg/122.0.0.0"
)

// EdgeSynth synthesizes speech through the Edge read-aloud service and lists
// its voice directory. It implements Synthesizer and Catalog.
type EdgeSynth struct {
	endpoint string
	listURL  string
	client   *http.Client
	logger   *slog.Logger
}

func NewEdgeSynth(log *slog.Logger) *EdgeSynth {
	return &EdgeSynth{
		endpoint: edgeSynthEndpoint,
		listURL:  edgeVoiceListURL,
		client:   &http.Client{Timeout: 15 * time.Second},
		logger:   log.With(slog.String("component", "edge-tts")),
	}
}

func (e *EdgeSynth) Synthesize(ctx context.Context, req Request) (<-chan Chunk, <-chan error) {
	chunks := make(chan Chunk)
	errs := make(chan error, 1)
	go func() {
		defer close(chunks)
		defer close(errs)
		if err := e.stream(ctx, req, chunks); err != nil {
			errs <- err
		}
	}()
	return chunks, errs
}

func (e *EdgeSynth) stream(ctx context.Context, req Request, chunks chan<- Chunk) error {
	dialer := websocket.Dialer{
		HandshakeTimeout: req.ConnectTimeout,
		TLSClientConfig:  &tls.Config{MinVersion: tls.VersionTLS12},
	}
	connID := secMSGUID()
	url := fmt.Sprintf("%s?TrustedClientToken=%s&ConnectionId=%s", e.endpoint, trustedClientToken, connID)

	header := http.Header{}
	header.Set("Pragma", "no-cache")
	header.Set("Cache-Control", "no-cache")
	header.Set("Origin", edgeOrigin)
	header.Set("Accept-Language", "en-US,en;q=0.9")
	header.Set("User-Agent", edgeUserAgent)

	e.logger.Debug("connecting to synthesis endpoint",
		slog.String("voice", req.Voice),
		slog.Duration("connect_timeout", req.ConnectTimeout))

	conn, resp, err := dialer.DialContext(ctx, url, header)
	if err != nil {
		if resp != nil && resp.Body != nil {
			_ = resp.Body.Close()
		}
		return &ProtocolError{Op: "dial synthesis endpoint", Err: err}
	}
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	defer conn.Close()

	if err := conn.WriteMessage(websocket.TextMessage, speechConfigMessage()); err != nil {
		return &ProtocolError{Op: "send speech.config", Err: err}
	}
	if err := conn.WriteMessage(websocket.TextMessage, ssmlMessage(secMSGUID(), req)); err != nil {
		return &ProtocolError{Op: "send ssml", Err: err}
	}

	audioSeen := false
	for {
		if req.ReceiveTimeout > 0 {
			if err := conn.SetReadDeadline(time.Now().Add(req.ReceiveTimeout)); err != nil {
				return &ProtocolError{Op: "set read deadline", Err: err}
			}
		}
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			return &ProtocolError{Op: "receive stream data", Err: err}
		}

		switch msgType {
		case websocket.TextMessage:
			headers, _ := parseMessageHeaders(data)
			switch headers["Path"] {
			case "turn.end":
				if !audioSeen {
					return &ProtocolError{Op: "stream ended without audio"}
				}
				return nil
			case "turn.start", "response", "audio.metadata":
				// control traffic, nothing to forward
			default:
				e.logger.Debug("unhandled control message", slog.String("path", headers["Path"]))
			}
		case websocket.BinaryMessage:
			payload, err := audioFramePayload(data)
			if err != nil {
				return &ProtocolError{Op: "parse audio frame", Err: err}
			}
			if len(payload) == 0 {
				continue
			}
			audioSeen = true
			select {
			case chunks <- Chunk{Kind: KindAudio, Data: payload}:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}

// ListVoices fetches the read-aloud voice directory.
func (e *EdgeSynth) ListVoices(ctx context.Context) ([]Voice, error) {
	url := fmt.Sprintf("%s?trustedclienttoken=%s", e.listURL, trustedClientToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", edgeUserAgent)

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch voice list: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("voice list request returned %s", resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read voice list: %w", err)
	}
	var voices []Voice
	if err := json.Unmarshal(body, &voices); err != nil {
		return nil, fmt.Errorf("decode voice list: %w", err)
	}
	return voices, nil
}

func speechConfigMessage() []byte {
	var b bytes.Buffer
	fmt.Fprintf(&b, "X-Timestamp:%s\r\n", edgeTimestamp(time.Now()))
	b.WriteString("Content-Type:application/json; charset=utf-8\r\n")
	b.WriteString("Path:speech.config\r\n\r\n")
	fmt.Fprintf(&b,
		`{"context":{"synthesis":{"audio":{"metadataoptions":{"sentenceBoundaryEnabled":"false","wordBoundaryEnabled":"true"},"outputFormat":%q}}}}`,
		edgeOutputFormat)
	b.WriteString("\r\n")
	return b.Bytes()
}

func ssmlMessage(requestID string, req Request) []byte {
	var b bytes.Buffer
	fmt.Fprintf(&b, "X-RequestId:%s\r\n", requestID)
	b.WriteString("Content-Type:application/ssml+xml\r\n")
	fmt.Fprintf(&b, "X-Timestamp:%sZ\r\n", edgeTimestamp(time.Now()))
	b.WriteString("Path:ssml\r\n\r\n")
	b.WriteString(ssmlBody(req))
	return b.Bytes()
}

func ssmlBody(req Request) string {
	return fmt.Sprintf(
		`<speak version='1.0' xmlns='http://www.w3.org/2001/10/synthesis' xml:lang='en-US'>`+
			`<voice name='%s'><prosody pitch='%s' rate='%s' volume='%s'>%s</prosody></voice></speak>`,
		req.Voice, req.Pitch, req.Rate, req.Volume, escapeSSML(req.Text))
}

var ssmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	"'", "&apos;",
	`"`, "&quot;",
)

func escapeSSML(text string) string { return ssmlEscaper.Replace(text) }

// edgeTimestamp renders the JavaScript-style date string the service expects
// in X-Timestamp headers.
func edgeTimestamp(t time.Time) string {
	return t.UTC().Format("Mon Jan 02 2006 15:04:05") + " GMT+0000 (Coordinated Universal Time)"
}

// secMSGUID returns a dashless UUID, the request identifier format the
// service uses.
func secMSGUID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// parseMessageHeaders splits a text frame into its header block and body.
// Headers are "Name:Value" lines terminated by a blank line.
func parseMessageHeaders(data []byte) (map[string]string, []byte) {
	headers := map[string]string{}
	head, body, found := bytes.Cut(data, []byte("\r\n\r\n"))
	if !found {
		head, body = data, nil
	}
	for _, line := range bytes.Split(head, []byte("\r\n")) {
		name, value, ok := bytes.Cut(line, []byte(":"))
		if !ok {
			continue
		}
		headers[string(bytes.TrimSpace(name))] = string(bytes.TrimSpace(value))
	}
	return headers, body
}

// audioFramePayload extracts the audio bytes from a binary frame. The frame
// starts with a big-endian uint16 header length, followed by the header block
// and the payload.
func audioFramePayload(data []byte) ([]byte, error) {
	if len(data) < 2 {
		return nil, fmt.Errorf("frame too short: %d bytes", len(data))
	}
	headerLen := int(binary.BigEndian.Uint16(data[:2]))
	if headerLen+2 > len(data) {
		return nil, fmt.Errorf("header length %d exceeds frame size %d", headerLen, len(data))
	}
	headers, _ := parseMessageHeaders(data[2 : 2+headerLen])
	if headers["Path"] != "audio" {
		return nil, fmt.Errorf("unexpected binary frame path %q", headers["Path"])
	}
	return data[2+headerLen:], nil
}
