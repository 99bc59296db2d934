package capture

import (
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

// fakeDevice emits its payload and then blocks until stopped.
type fakeDevice struct {
	payload string
	openErr error

	opens  atomic.Int32
	closes atomic.Int32
}

func (d *fakeDevice) Open(ctx context.Context) (Stream, error) {
	if d.openErr != nil {
		return nil, d.openErr
	}
	d.opens.Add(1)
	return &fakeStream{
		device:  d,
		payload: strings.NewReader(d.payload),
		stopped: make(chan struct{}),
	}, nil
}

type fakeStream struct {
	device  *fakeDevice
	payload io.Reader
	stopped chan struct{}
	once    sync.Once
}

func (s *fakeStream) Read(p []byte) (int, error) {
	n, err := s.payload.Read(p)
	if err == io.EOF {
		<-s.stopped
	}
	return n, err
}

func (s *fakeStream) MIME() string { return "audio/webm" }

func (s *fakeStream) Stop() error {
	s.once.Do(func() { close(s.stopped) })
	return nil
}

func (s *fakeStream) Close() error {
	s.device.closes.Add(1)
	return nil
}

func TestRecorderStartStop(t *testing.T) {
	defer goleak.VerifyNone(t)

	dev := &fakeDevice{payload: "hello audio"}
	rec := NewRecorder(dev)

	session, err := rec.Start(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StateRecording, rec.State())

	got, err := session.Stop()
	require.NoError(t, err)
	assert.Equal(t, StateIdle, rec.State())
	assert.Equal(t, "audio/webm", got.MIME)
	assert.Equal(t, "hello audio", string(got.Data))
	assert.Equal(t, "data:audio/webm;base64,aGVsbG8gYXVkaW8=", got.DataURL())
	assert.EqualValues(t, 1, dev.opens.Load())
	assert.EqualValues(t, 1, dev.closes.Load())
}

func TestRecorderStopWithoutStart(t *testing.T) {
	defer goleak.VerifyNone(t)

	dev := &fakeDevice{payload: "x"}
	rec := NewRecorder(dev)

	got, err := rec.Stop()
	require.NoError(t, err)
	assert.True(t, got.Empty())
	assert.Equal(t, "", got.DataURL())
	assert.Equal(t, StateIdle, rec.State())
	assert.Zero(t, dev.opens.Load())
}

func TestRecorderSecondStartRejected(t *testing.T) {
	defer goleak.VerifyNone(t)

	dev := &fakeDevice{payload: "x"}
	rec := NewRecorder(dev)

	_, err := rec.Start(context.Background())
	require.NoError(t, err)

	_, err = rec.Start(context.Background())
	assert.ErrorIs(t, err, ErrAlreadyRecording)
	assert.EqualValues(t, 1, dev.opens.Load())

	_, err = rec.Stop()
	require.NoError(t, err)
	assert.EqualValues(t, 1, dev.closes.Load())
}

func TestRecorderDeviceUnavailableIsNotSticky(t *testing.T) {
	defer goleak.VerifyNone(t)

	dev := &fakeDevice{openErr: errors.New("permission denied")}
	rec := NewRecorder(dev)

	_, err := rec.Start(context.Background())
	assert.ErrorIs(t, err, ErrDeviceUnavailable)
	assert.Equal(t, StateIdle, rec.State())

	dev.openErr = nil
	dev.payload = "second try"
	session, err := rec.Start(context.Background())
	require.NoError(t, err)
	got, err := session.Stop()
	require.NoError(t, err)
	assert.Equal(t, "second try", string(got.Data))
}

func TestRecorderResetReleasesDevice(t *testing.T) {
	defer goleak.VerifyNone(t)

	dev := &fakeDevice{payload: "abandoned"}
	rec := NewRecorder(dev)

	_, err := rec.Start(context.Background())
	require.NoError(t, err)

	rec.Reset()
	rec.Reset()
	assert.Equal(t, StateIdle, rec.State())
	assert.EqualValues(t, 1, dev.closes.Load())

	got, err := rec.Stop()
	require.NoError(t, err)
	assert.True(t, got.Empty())
}

func TestRecorderContextCancelEndsCapture(t *testing.T) {
	defer goleak.VerifyNone(t)

	dev := &fakeDevice{payload: "cancelled"}
	rec := NewRecorder(dev)

	ctx, cancel := context.WithCancel(context.Background())
	session, err := rec.Start(ctx)
	require.NoError(t, err)
	cancel()

	got, err := session.Stop()
	require.NoError(t, err)
	assert.Equal(t, "cancelled", string(got.Data))
}

func TestFileDevice(t *testing.T) {
	defer goleak.VerifyNone(t)

	path := filepath.Join(t.TempDir(), "answer.ogg")
	require.NoError(t, os.WriteFile(path, []byte("OggS-data"), 0o600))

	rec := NewRecorder(FileDevice{Path: path, MIMEType: "audio/ogg"})
	session, err := rec.Start(context.Background())
	require.NoError(t, err)

	got, err := session.Stop()
	require.NoError(t, err)
	assert.Equal(t, "audio/ogg", got.MIME)
	assert.Equal(t, "OggS-data", string(got.Data))

	_, err = NewRecorder(FileDevice{Path: filepath.Join(t.TempDir(), "missing.ogg")}).Start(context.Background())
	assert.ErrorIs(t, err, ErrDeviceUnavailable)
}

func TestParseDataURL(t *testing.T) {
	rec := Recording{MIME: "audio/webm", Data: []byte{0x1a, 0x45, 0xdf, 0xa3}}
	got, err := ParseDataURL(rec.DataURL())
	require.NoError(t, err)
	assert.Equal(t, rec, got)

	got, err = ParseDataURL("data:audio/webm;codecs=opus;base64,AAE=")
	require.NoError(t, err)
	assert.Equal(t, "audio/webm", got.MIME)
	assert.Equal(t, []byte{0, 1}, got.Data)

	for _, bad := range []string{"", "hello", "data:audio/webm,AAE=", "data:audio/webm;base64,%%%"} {
		_, err := ParseDataURL(bad)
		assert.ErrorIs(t, err, ErrInvalidDataURL, bad)
	}
}

// processDevice runs a command that ignores the quit key and never closes stdout.
type processDevice struct {
	timeout time.Duration
}

func (d processDevice) Open(ctx context.Context) (Stream, error) {
	return startStream(exec.Command("sleep", "30"), d.timeout)
}

func TestRecorderStopKillsUnresponsiveProcess(t *testing.T) {
	if _, err := exec.LookPath("sleep"); err != nil {
		t.Skip("sleep not available")
	}
	defer goleak.VerifyNone(t)

	rec := NewRecorder(processDevice{timeout: 100 * time.Millisecond})
	_, err := rec.Start(context.Background())
	require.NoError(t, err)

	stopped := make(chan error, 1)
	go func() {
		_, err := rec.Stop()
		stopped <- err
	}()

	select {
	case err := <-stopped:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Stop did not return after the stop timeout")
	}
	assert.Equal(t, StateIdle, rec.State())
}
