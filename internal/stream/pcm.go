package stream

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
)

// PCMStream runs ffmpeg decoding inputURL to raw s16le stereo 48k PCM on
// stdout, with the guild's audio filter chain applied in-process by ffmpeg.
type PCMStream struct {
	cmd    *exec.Cmd
	stdout io.ReadCloser
	stderr *bytes.Buffer
	cancel context.CancelFunc
}

func StartPCMStream(ctx context.Context, inputURL, filterChain string) (*PCMStream, error) {
	ctx2, cancel := context.WithCancel(ctx)

	args := []string{
		"-hide_banner", "-loglevel", "error",
		"-reconnect", "1", "-reconnect_streamed", "1", "-reconnect_delay_max", "5",
		"-i", inputURL,
		"-vn",
	}
	if filterChain != "" {
		args = append(args, "-filter:a", filterChain)
	}
	args = append(args,
		"-ac", "2",
		"-ar", "48000",
		"-f", "s16le",
		"pipe:1",
	)

	cmd := exec.CommandContext(ctx2, "ffmpeg", args...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return nil, fmt.Errorf("ffmpeg stdout: %w", err)
	}
	stderr := &bytes.Buffer{}
	cmd.Stderr = stderr

	if err := cmd.Start(); err != nil {
		cancel()
		return nil, fmt.Errorf("ffmpeg start: %w (stderr: %s)", err, stderr.String())
	}

	return &PCMStream{
		cmd:    cmd,
		stdout: stdout,
		stderr: stderr,
		cancel: cancel,
	}, nil
}

func (s *PCMStream) Stdout() io.Reader {
	return s.stdout
}

func (s *PCMStream) Close() {
	s.cancel()
	_ = s.cmd.Process.Kill()
	_ = s.cmd.Wait()
}
