package tts

import (
	"bufio"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os/exec"

	"github.com/mattn/go-shellwords"
)

// execSynth drives a local synthesizer command. The request goes to stdin as
// JSON; the command answers with one JSON object per line, each carrying a
// base64 audio payload or an advisory error message.
type execSynth struct {
	cmd []string
}

type execRequest struct {
	Text   string `json:"text"`
	Voice  string `json:"voice"`
	Rate   string `json:"rate"`
	Volume string `json:"volume"`
	Pitch  string `json:"pitch"`
}

type execResponse struct {
	AudioBase64 string `json:"audio_base64"`
	Error       string `json:"error,omitempty"`
}

func NewExecSynth(command string) (Synthesizer, error) {
	parser := shellwords.NewParser()
	args, err := parser.Parse(command)
	if err != nil {
		return nil, fmt.Errorf("parse tts command: %w", err)
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("tts command empty")
	}
	return &execSynth{cmd: args}, nil
}

func (e *execSynth) Synthesize(ctx context.Context, req Request) (<-chan Chunk, <-chan error) {
	chunks := make(chan Chunk)
	errs := make(chan error, 1)
	go func() {
		defer close(chunks)
		defer close(errs)

		data, err := json.Marshal(execRequest{
			Text:   req.Text,
			Voice:  req.Voice,
			Rate:   req.Rate,
			Volume: req.Volume,
			Pitch:  req.Pitch,
		})
		if err != nil {
			errs <- err
			return
		}

		base := e.cmd[0]
		args := append([]string{}, e.cmd[1:]...)
		cmd := exec.CommandContext(ctx, base, args...)
		stdin, err := cmd.StdinPipe()
		if err != nil {
			errs <- err
			return
		}
		stdout, err := cmd.StdoutPipe()
		if err != nil {
			errs <- err
			return
		}
		if err := cmd.Start(); err != nil {
			errs <- err
			return
		}

		if _, err := stdin.Write(data); err != nil {
			errs <- err
			cmd.Wait()
			return
		}
		stdin.Close()

		scanner := bufio.NewScanner(stdout)
		scanner.Buffer(make([]byte, 0, 64*1024), 8*1024*1024)
		for scanner.Scan() {
			line := scanner.Bytes()
			if len(line) == 0 {
				continue
			}
			var resp execResponse
			if err := json.Unmarshal(line, &resp); err != nil {
				errs <- err
				cmd.Wait()
				return
			}
			if resp.Error != "" {
				chunks <- Chunk{Kind: KindError, Message: resp.Error}
				continue
			}
			audio, err := base64.StdEncoding.DecodeString(resp.AudioBase64)
			if err != nil {
				errs <- err
				cmd.Wait()
				return
			}
			chunks <- Chunk{Kind: KindAudio, Data: audio}
		}
		if err := cmd.Wait(); err != nil {
			errs <- err
			return
		}
		if scanErr := scanner.Err(); scanErr != nil {
			errs <- scanErr
		}
	}()
	return chunks, errs
}
