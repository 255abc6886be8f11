package rarrange

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"rarstream/pkg/rarbundle"
	"rarstream/pkg/rarvol"
)

// Stream is a pull-based io.ReadCloser over an InnerFile's covering
// chunks. It is fully synchronous: Read only issues a media-adapter
// call when the consumer asks for more bytes, and only one chunk's
// payload is ever held in memory at a time -- there is no read-ahead
// goroutine and no internal buffering beyond what the current chunk's
// reader itself holds.
type Stream struct {
	ctx      context.Context
	sources  map[int]rarvol.Source
	segments []segment
	idx      int
	cur      io.ReadCloser
}

// Open resolves iv against file's ChunkMap and returns a Stream ready
// to be Read. sources maps a RawChunk's VolumeIndex to the media
// adapter that owns that volume; every volume touched by the interval
// must have an entry or Read returns an error once it reaches that
// chunk.
func Open(ctx context.Context, file *rarbundle.InnerFile, sources map[int]rarvol.Source, iv Interval) (*Stream, error) {
	segs, err := resolveSegments(file, iv)
	if err != nil {
		return nil, err
	}
	return &Stream{ctx: ctx, sources: sources, segments: segs}, nil
}

func (s *Stream) openNext() error {
	if s.idx >= len(s.segments) {
		return io.EOF
	}
	seg := s.segments[s.idx]
	s.idx++

	src, ok := s.sources[seg.volumeIndex]
	if !ok {
		return fmt.Errorf("rarrange: no media adapter registered for volume %d", seg.volumeIndex)
	}

	if ss, ok := src.(rarvol.StreamSource); ok {
		rc, err := ss.ReadStream(s.ctx, seg.start, seg.end)
		if err != nil {
			return err
		}
		s.cur = rc
		return nil
	}

	b, err := src.Read(s.ctx, seg.start, seg.end)
	if err != nil {
		return err
	}
	s.cur = io.NopCloser(bytes.NewReader(b))
	return nil
}

// Read implements io.Reader. Each call issues at most one
// media-adapter request -- exactly one per chunk boundary crossed --
// and never returns bytes from more than one chunk at a time, so the
// pace of Read calls is the only thing driving how much data rarrange
// ever pulls off the underlying source.
func (s *Stream) Read(p []byte) (int, error) {
	for {
		if err := s.ctx.Err(); err != nil {
			return 0, err
		}
		if s.cur == nil {
			if err := s.openNext(); err != nil {
				return 0, err
			}
		}
		n, err := s.cur.Read(p)
		if err == io.EOF {
			s.cur.Close()
			s.cur = nil
			if n > 0 {
				return n, nil
			}
			continue
		}
		return n, err
	}
}

// Close releases the currently open chunk reader, if any. It does not
// touch chunks not yet opened.
func (s *Stream) Close() error {
	if s.cur != nil {
		err := s.cur.Close()
		s.cur = nil
		return err
	}
	return nil
}
