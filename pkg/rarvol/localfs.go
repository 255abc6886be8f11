package rarvol

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/afero"

	"rarstream/pkg/rarerr"
)

// LocalFile is the local-filesystem media adapter: a Source (and
// StreamSource) backed by an afero.Fs, so both real disks and
// afero.NewMemMapFs() fixtures satisfy the same contract.
type LocalFile struct {
	fs     afero.Fs
	path   string
	name   string
	length int64
}

// OpenLocalFile stats path on fs and returns a Source for it. fs may be
// nil, in which case the OS filesystem is used.
func OpenLocalFile(fs afero.Fs, path string) (*LocalFile, error) {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	info, err := fs.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("rarvol: stat %s: %w", path, err)
	}
	return &LocalFile{fs: fs, path: path, name: info.Name(), length: info.Size()}, nil
}

func (f *LocalFile) Name() string  { return f.name }
func (f *LocalFile) Length() int64 { return f.length }

func (f *LocalFile) Read(_ context.Context, start, end int64) ([]byte, error) {
	if start < 0 || end < start || end >= f.length {
		return nil, fmt.Errorf("rarvol: invalid range [%d,%d] for %s (length %d)", start, end, f.name, f.length)
	}
	file, err := f.fs.Open(f.path)
	if err != nil {
		return nil, &rarerr.IoError{Cause: err}
	}
	defer file.Close()

	if _, err := file.Seek(start, io.SeekStart); err != nil {
		return nil, &rarerr.IoError{Cause: err}
	}
	n := end - start + 1
	buf := make([]byte, n)
	if _, err := io.ReadFull(file, buf); err != nil {
		return nil, &rarerr.IoError{Cause: err}
	}
	return buf, nil
}

// sectionReadCloser ties a file handle to the io.LimitedReader built
// over it so the caller's Close releases the underlying descriptor.
type sectionReadCloser struct {
	io.Reader
	closer io.Closer
}

func (s *sectionReadCloser) Close() error { return s.closer.Close() }

func (f *LocalFile) ReadStream(_ context.Context, start, end int64) (io.ReadCloser, error) {
	if start < 0 || end < start || end >= f.length {
		return nil, fmt.Errorf("rarvol: invalid range [%d,%d] for %s (length %d)", start, end, f.name, f.length)
	}
	file, err := f.fs.Open(f.path)
	if err != nil {
		return nil, &rarerr.IoError{Cause: err}
	}
	if _, err := file.Seek(start, io.SeekStart); err != nil {
		file.Close()
		return nil, &rarerr.IoError{Cause: err}
	}
	return &sectionReadCloser{Reader: io.LimitReader(file, end-start+1), closer: file}, nil
}
