package capture

import (
	"context"
	"mime"
	"os"
	"path/filepath"
)

// FileDevice replays a recorded file as a capture
type FileDevice struct {
	Path string
	// MIMEType overrides the type derived from the file extension
	MIMEType string
}

func (d FileDevice) Open(ctx context.Context) (Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(d.Path)
	if err != nil {
		return nil, err
	}
	typ := d.MIMEType
	if typ == "" {
		typ = mime.TypeByExtension(filepath.Ext(d.Path))
	}
	return &fileStream{File: f, mime: typ}, nil
}

type fileStream struct {
	*os.File
	mime string
}

func (s *fileStream) MIME() string { return s.mime }

// Stop is a no-op; the file ends on its own.
func (s *fileStream) Stop() error { return nil }
