package fileutil

import (
	"bufio"
	"io"
	"os"
	"path/filepath"

	"github.com/grokdata/featselect/errors"
)

// NamedWriteCloser is an io.WriteCloser with a name, usually the path it
// writes to.
type NamedWriteCloser interface {
	io.WriteCloser
	Name() string
}

// NewBufferedWriter opens path for buffered writing, creating parent
// directories as needed. The data is written to a temporary file alongside
// the target; Close flushes and atomically renames it into place, so a
// partially written file is never left at the final path.
func NewBufferedWriter(path string) (NamedWriteCloser, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, errors.Wrapf(err, "error creating parent directory for %s", path)
	}

	f, err := os.Create(path + ".tmp")
	if err != nil {
		return nil, errors.Wrapf(err, "error creating %s.tmp", path)
	}

	return &atomicWriter{
		path: path,
		f:    f,
		buf:  bufio.NewWriter(f),
	}, nil
}

type atomicWriter struct {
	path string
	f    *os.File
	buf  *bufio.Writer
}

func (w *atomicWriter) Write(p []byte) (int, error) {
	return w.buf.Write(p)
}

func (w *atomicWriter) Name() string {
	return w.path
}

func (w *atomicWriter) Close() error {
	if err := w.buf.Flush(); err != nil {
		w.f.Close()
		os.Remove(w.f.Name())
		return errors.Wrapf(err, "error flushing %s", w.f.Name())
	}
	if err := w.f.Close(); err != nil {
		os.Remove(w.f.Name())
		return errors.Wrapf(err, "error closing %s", w.f.Name())
	}
	if err := os.Rename(w.f.Name(), w.path); err != nil {
		os.Remove(w.f.Name())
		return errors.Wrapf(err, "unable to rename %s -> %s", w.f.Name(), w.path)
	}
	return nil
}

// NewReader opens path for reading.
func NewReader(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "error opening %s", path)
	}
	return f, nil
}
