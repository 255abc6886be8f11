package archive

import (
	"context"
	"io"

	"rarstream/pkg/decode"
	"rarstream/pkg/rarbundle"
	"rarstream/pkg/rarrange"
	"rarstream/pkg/rarvol"
)

// File is the public view of one logical inner file, bound to the
// Source set a Package resolved its chunks' volume indices against.
type File struct {
	inner   *rarbundle.InnerFile
	sources map[int]rarvol.Source
}

// Name is the inner file's decoded path within the archive.
func (f *File) Name() string { return f.inner.Name }

// Length is the inner file's declared total size in bytes, as recorded
// in its FileHeader's UnpackedSize. For an incomplete file this may
// exceed the number of bytes actually available from its chunks.
func (f *File) Length() int64 { return f.inner.Size }

// Complete reports whether the file's chunk chain has a head and a
// tail and, for the stored method, summed chunk lengths equal to the
// declared size. For other methods a missing middle chunk is not
// detected.
func (f *File) Complete() bool { return f.inner.Complete }

// Method is the RAR method byte of the file's head chunk.
// decode.IsStored(f.Method()) tells a caller whether Stream's bytes are
// the file's original content directly or still need the pkg/decode
// pass.
func (f *File) Method() byte { return f.inner.Method }

// Warnings carries any non-fatal issues recorded while assembling this
// file (truncation, dangling continuations).
func (f *File) Warnings() []string { return f.inner.Warnings }

// Stream opens iv (an inclusive [start, end] logical byte range) as a
// pull-based io.ReadCloser over the file's covering chunks. The caller
// must Close it.
func (f *File) Stream(ctx context.Context, iv rarrange.Interval) (io.ReadCloser, error) {
	return rarrange.Open(ctx, f.inner, f.sources, iv)
}

// ReadAll reads the file's entire logical range into memory: a
// synchronous convenience equivalent to streaming [0, Length()-1] and
// concatenating.
func (f *File) ReadAll(ctx context.Context) ([]byte, error) {
	if f.inner.Size == 0 {
		return nil, nil
	}
	rc, err := f.Stream(ctx, rarrange.Interval{Start: 0, End: f.inner.Size - 1})
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// Decoded wraps Stream's raw chunk bytes in the pkg/decode layer.
// decode.Reader expects a complete RAR archive stream, so for the bare
// packed bytes of a compressed inner file it returns an error rather
// than the unpacked content. Unlike
// Stream, this is whole-file only: a compressed stream has no
// byte-addressable structure, so there is no interval parameter.
func (f *File) Decoded(ctx context.Context) (io.Reader, error) {
	rc, err := f.Stream(ctx, rarrange.Interval{Start: 0, End: f.inner.Size - 1})
	if err != nil {
		return nil, err
	}
	return decode.Reader(rc)
}
