// Package rarvol defines the media adapter contract (component A of the
// design) plus one concrete implementation backed by afero.Fs.
//
// The core parsing and streaming packages never talk to a filesystem,
// HTTP server, or torrent client directly -- they only ever see a
// Source. Production adapters (local files, HTTP byte-range servers,
// torrent piece stores) live outside this module's concern; localfs.go
// is the one worked example provided here.
package rarvol

import (
	"context"
	"io"
)

// Source is a random-access byte source for one physical RAR volume.
// Both start and end are inclusive, matching the inclusive-end
// convention used throughout this module.
type Source interface {
	// Name returns a human-readable identifier for the volume, used for
	// ordering (the .rar/.r00/.r01 naming convention) and diagnostics.
	Name() string

	// Length returns the total byte length of the volume.
	Length() int64

	// Read returns the inclusive byte range [start, end]. end must be
	// less than Length.
	Read(ctx context.Context, start, end int64) ([]byte, error)
}

// StreamSource is an optional extension a Source may implement when it
// can hand back a streaming reader instead of materializing the whole
// range in memory. The range engine prefers this when available.
type StreamSource interface {
	Source
	ReadStream(ctx context.Context, start, end int64) (io.ReadCloser, error)
}
