// Package capture records audio answers from a capture device.
package capture

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
)

var (
	ErrAlreadyRecording  = errors.New("capture: already recording")
	ErrDeviceUnavailable = errors.New("capture: device unavailable")
	ErrInvalidDataURL    = errors.New("capture: invalid audio data url")
)

// Stream is an open capture device. Read returns io.EOF once Stop has been
// requested and the buffered audio is drained.
type Stream interface {
	io.Reader
	MIME() string
	// Stop asks the device to end the capture. Safe to call more than once.
	Stop() error
	// Close releases the device. Called after the reader is drained.
	Close() error
}

// Device opens exclusive capture streams
type Device interface {
	Open(ctx context.Context) (Stream, error)
}

// Recording is a finished capture
type Recording struct {
	MIME string
	Data []byte
}

// Empty reports whether nothing was captured.
func (r Recording) Empty() bool {
	return len(r.Data) == 0
}

// DataURL encodes the recording as data:<mime>;base64,<payload>.
func (r Recording) DataURL() string {
	if r.Empty() {
		return ""
	}
	mime := r.MIME
	if mime == "" {
		mime = "application/octet-stream"
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(r.Data)
}

// ParseDataURL decodes a data:<mime>;base64,<payload> audio answer.
func ParseDataURL(s string) (Recording, error) {
	rest, ok := strings.CutPrefix(strings.TrimSpace(s), "data:")
	if !ok {
		return Recording{}, ErrInvalidDataURL
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return Recording{}, ErrInvalidDataURL
	}
	mime, isBase64 := strings.CutSuffix(meta, ";base64")
	if !isBase64 {
		return Recording{}, ErrInvalidDataURL
	}
	// drop parameters such as ;codecs=opus
	mime, _, _ = strings.Cut(mime, ";")
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return Recording{}, fmt.Errorf("%w: %v", ErrInvalidDataURL, err)
	}
	return Recording{MIME: mime, Data: data}, nil
}

// State of a Recorder
type State int

const (
	StateIdle State = iota
	StateRecording
)

func (s State) String() string {
	if s == StateRecording {
		return "recording"
	}
	return "idle"
}

// Recorder captures one question's answer. At most one Session is open at
// a time and the device is released on Stop and on Reset.
type Recorder struct {
	device Device

	mu      sync.Mutex
	session *Session
}

// NewRecorder creates an idle recorder on device
func NewRecorder(device Device) *Recorder {
	return &Recorder{device: device}
}

// State returns the current state.
func (r *Recorder) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.session != nil {
		return StateRecording
	}
	return StateIdle
}

// Start opens the device and begins buffering audio. A failed open leaves
// the recorder idle so the caller may retry.
func (r *Recorder) Start(ctx context.Context) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.session != nil {
		return nil, ErrAlreadyRecording
	}

	stream, err := r.device.Open(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
	}

	s := &Session{
		recorder: r,
		stream:   stream,
		done:     make(chan struct{}),
	}
	go s.drain()
	s.stopOnCancel = context.AfterFunc(ctx, func() { _ = stream.Stop() })
	r.session = s
	return s, nil
}

// Stop finishes the open session. Without one it returns an empty recording.
func (r *Recorder) Stop() (Recording, error) {
	r.mu.Lock()
	s := r.session
	r.mu.Unlock()
	if s == nil {
		return Recording{}, nil
	}
	return s.Stop()
}

// Reset discards any unstopped recording and releases the device.
func (r *Recorder) Reset() {
	r.mu.Lock()
	s := r.session
	r.mu.Unlock()
	if s != nil {
		s.finish()
	}
}

func (r *Recorder) release(s *Session) {
	r.mu.Lock()
	if r.session == s {
		r.session = nil
	}
	r.mu.Unlock()
}

// Session is the handle of one in-flight recording
type Session struct {
	recorder     *Recorder
	stream       Stream
	stopOnCancel func() bool

	buf     bytes.Buffer
	readErr error
	done    chan struct{}

	once     sync.Once
	closeErr error
}

func (s *Session) drain() {
	defer close(s.done)
	_, s.readErr = io.Copy(&s.buf, s.stream)
}

// finish stops the device, waits for buffered audio and releases it.
func (s *Session) finish() {
	s.once.Do(func() {
		s.stopOnCancel()
		stopErr := s.stream.Stop()
		<-s.done
		s.closeErr = errors.Join(stopErr, s.stream.Close())
		s.recorder.release(s)
	})
}

// Stop ends the recording and returns the captured audio as one payload.
func (s *Session) Stop() (Recording, error) {
	s.finish()
	if err := errors.Join(s.readErr, s.closeErr); err != nil {
		return Recording{}, fmt.Errorf("capture: stop: %w", err)
	}
	return Recording{
		MIME: s.stream.MIME(),
		Data: bytes.Clone(s.buf.Bytes()),
	}, nil
}
