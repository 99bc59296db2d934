package capture

import (
	"context"
	"fmt"
	"io"
	"os/exec"
	"runtime"
	"sync"
	"time"

	ffmpeg "github.com/u2takey/ffmpeg-go"
)

// FFmpegDevice records from a system input through the ffmpeg binary.
// The audio is encoded as Opus in an Ogg container on stdout.
type FFmpegDevice struct {
	Format string // ffmpeg input format, e.g. pulse, alsa, avfoundation, dshow
	Input  string // input device name
	// StopTimeout bounds how long Close waits for ffmpeg after a stop request
	StopTimeout time.Duration
}

// DefaultFFmpegDevice returns the default microphone input for this platform.
func DefaultFFmpegDevice() FFmpegDevice {
	switch runtime.GOOS {
	case "darwin":
		return FFmpegDevice{Format: "avfoundation", Input: ":0"}
	case "windows":
		return FFmpegDevice{Format: "dshow", Input: "audio=default"}
	default:
		return FFmpegDevice{Format: "pulse", Input: "default"}
	}
}

func (d FFmpegDevice) Open(ctx context.Context) (Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		return nil, fmt.Errorf("ffmpeg not found: %w", err)
	}

	cmd := ffmpeg.Input(d.Input, ffmpeg.KwArgs{"f": d.Format}).
		Output("pipe:1", ffmpeg.KwArgs{
			"f":   "ogg",
			"c:a": "libopus",
			"ac":  "1",
		}).
		GlobalArgs("-hide_banner", "-loglevel", "error").
		Compile()

	return startStream(cmd, d.StopTimeout)
}

// startStream runs cmd with its stdout as the capture stream. A process that
// has not exited timeout after a stop request is killed.
func startStream(cmd *exec.Cmd, timeout time.Duration) (*ffmpegStream, error) {
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, err
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		return nil, err
	}

	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &ffmpegStream{cmd: cmd, stdin: stdin, stdout: stdout, timeout: timeout}, nil
}

type ffmpegStream struct {
	cmd     *exec.Cmd
	stdin   io.WriteCloser
	stdout  io.Reader
	timeout time.Duration

	stopOnce sync.Once
	stopErr  error
	kill     *time.Timer
}

func (s *ffmpegStream) Read(p []byte) (int, error) { return s.stdout.Read(p) }

func (s *ffmpegStream) MIME() string { return "audio/ogg" }

// Stop sends ffmpeg its interactive quit key so it flushes the container.
// The kill timer closes stdout of a process that ignores the key, which ends
// the reader.
func (s *ffmpegStream) Stop() error {
	s.stopOnce.Do(func() {
		_, err := io.WriteString(s.stdin, "q")
		s.stopErr = err
		_ = s.stdin.Close()
		s.kill = time.AfterFunc(s.timeout, func() { _ = s.cmd.Process.Kill() })
	})
	return s.stopErr
}

func (s *ffmpegStream) Close() error {
	s.Stop()
	err := s.cmd.Wait()
	s.kill.Stop()
	return exitErr(err)
}

// exitErr ignores the non-zero exit ffmpeg reports after a quit request.
func exitErr(err error) error {
	if _, ok := err.(*exec.ExitError); ok {
		return nil
	}
	return err
}
