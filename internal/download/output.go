package download

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/mrlokans/offlinemirror/internal/catalog"
)

// OutputProvider allocates local storage for downloaded books. The handle
// identifies the stored file and is what the mirror records as the book's
// path.
type OutputProvider interface {
	PrepareOutput(book *catalog.Book, root string) (handle string, sink Sink, err error)
	DeleteFile(handle string) error
}

// Sink receives the bytes of one book. Close publishes them under the
// handle. Abort discards them and leaves whatever the handle already held;
// it is a no-op after a successful Close.
type Sink interface {
	io.WriteCloser
	Abort() error
}

// FilesystemOutput stores books as <root>/<seriesID>/<file name>. Bytes go
// to a temporary file in the same directory that is renamed into place on
// Close, so readers never see a partial book under its final name.
type FilesystemOutput struct{}

func NewFilesystemOutput() *FilesystemOutput {
	return &FilesystemOutput{}
}

func (FilesystemOutput) PrepareOutput(book *catalog.Book, root string) (string, Sink, error) {
	if book.SeriesID == "" {
		return "", nil, errors.New("book has no series")
	}
	dir := filepath.Join(root, sanitize(book.SeriesID))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", nil, fmt.Errorf("failed to create series directory: %w", err)
	}

	name := sanitize(book.FileName())
	if name == "" {
		name = sanitize(book.ID)
	}
	final := filepath.Join(dir, name)

	tmp, err := os.CreateTemp(dir, ".download_tmp_")
	if err != nil {
		return "", nil, fmt.Errorf("failed to create temp file: %w", err)
	}
	return final, &fileSink{file: tmp, final: final}, nil
}

// DeleteFile removes the file and, when it was the last, its series
// directory. A missing file is not an error.
func (FilesystemOutput) DeleteFile(handle string) error {
	if handle == "" {
		return nil
	}
	if err := os.Remove(handle); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete %s: %w", handle, err)
	}
	// Fails while other books remain.
	_ = os.Remove(filepath.Dir(handle))
	return nil
}

type fileSink struct {
	file   *os.File
	final  string
	closed bool
}

func (s *fileSink) Write(p []byte) (int, error) {
	return s.file.Write(p)
}

func (s *fileSink) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true

	tmpPath := s.file.Name()
	if err := s.file.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, s.final); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return nil
}

func (s *fileSink) Abort() error {
	if s.closed {
		return nil
	}
	s.closed = true

	s.file.Close()
	if err := os.Remove(s.file.Name()); err != nil && !os.IsNotExist(err) {
		return err
	}
	// Fails while other books remain.
	_ = os.Remove(filepath.Dir(s.final))
	return nil
}

func sanitize(name string) string {
	name = strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', 0:
			return '_'
		}
		return r
	}, name)
	name = strings.TrimSpace(name)
	if name == "." || name == ".." {
		return ""
	}
	return name
}
