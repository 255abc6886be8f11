// Package rarreader implements the block reader (component B): a
// cached reader over one rarvol.Source that the volume walker drives
// to pull successive block headers. A span requested again with the
// same offset and length is served from the cache instead of being
// re-read from the source.
package rarreader

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"rarstream/pkg/rarvol"
)

// DefaultBufferSize is the value Options.BufferSize takes when left at
// zero. The Reader records it, but Peek and ReadExact always read
// exactly the requested span; no read-ahead window of this size is
// kept.
const DefaultBufferSize = 64 * 1024

// DefaultCacheEntries bounds the header-byte cache. Entries are keyed
// by (offset, length), so only a repeat of the exact same span is
// served without a new Source.Read; an overlapping span with a
// different offset or length is read again.
const DefaultCacheEntries = 256

// Options configures a Reader.
type Options struct {
	BufferSize   int
	CacheEntries int
}

type cacheKey struct {
	offset int64
	length int
}

// Reader is a cached reader over one volume's Source. It is
// not safe for concurrent use by multiple goroutines; the walker that
// owns it drives it sequentially.
type Reader struct {
	src   rarvol.Source
	size  int
	cache *lru.Cache[cacheKey, []byte]
}

// New builds a Reader over src. A zero Options value picks the
// defaults.
func New(src rarvol.Source, opts Options) (*Reader, error) {
	if opts.BufferSize <= 0 {
		opts.BufferSize = DefaultBufferSize
	}
	if opts.CacheEntries <= 0 {
		opts.CacheEntries = DefaultCacheEntries
	}
	c, err := lru.New[cacheKey, []byte](opts.CacheEntries)
	if err != nil {
		return nil, fmt.Errorf("rarreader: building cache: %w", err)
	}
	return &Reader{src: src, size: opts.BufferSize, cache: c}, nil
}

// Peek returns up to n bytes starting at offset without advancing any
// persistent cursor -- repeated Peeks (or a Peek followed by
// ReadExact) over the same span are served from cache rather than
// re-reading the source. The returned slice may be shorter than n when
// the volume ends first; callers treat a short read at the tail as a
// (non-fatal) truncation signal, not an error.
func (r *Reader) Peek(ctx context.Context, offset int64, n int) ([]byte, error) {
	if offset < 0 || n <= 0 {
		return nil, fmt.Errorf("rarreader: invalid peek [%d,+%d)", offset, n)
	}
	key := cacheKey{offset: offset, length: n}
	if b, ok := r.cache.Get(key); ok {
		return b, nil
	}
	length := r.src.Length()
	if offset >= length {
		return nil, nil
	}
	end := offset + int64(n) - 1
	if end >= length {
		end = length - 1
	}
	b, err := r.src.Read(ctx, offset, end)
	if err != nil {
		return nil, err
	}
	r.cache.Add(key, b)
	return b, nil
}

// ReadExact returns exactly n bytes starting at offset, or an error if
// the volume ends before n bytes are available.
func (r *Reader) ReadExact(ctx context.Context, offset int64, n int) ([]byte, error) {
	b, err := r.Peek(ctx, offset, n)
	if err != nil {
		return nil, err
	}
	if len(b) < n {
		return nil, fmt.Errorf("rarreader: short read at offset %d: got %d of %d bytes", offset, len(b), n)
	}
	return b, nil
}

// Length reports the underlying source's total length.
func (r *Reader) Length() int64 { return r.src.Length() }

// Name reports the underlying source's name, for diagnostics.
func (r *Reader) Name() string { return r.src.Name() }
