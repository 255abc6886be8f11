// Package decode is the optional decompression layer: it only comes
// into play for an inner file whose method byte isn't "stored", where
// range serving can't byte-slice a chunk directly and the caller wants
// the whole file unpacked instead of a byte range.
package decode

import (
	"fmt"
	"io"

	"github.com/javi11/rardecode/v2"

	"rarstream/pkg/rarblock"
)

// IsStored reports whether method is the RAR "stored" method, the
// only one whose chunks can be served directly as raw byte slices
// without going through Reader first. A caller doing range serving
// should check this before resolving a byte range against an
// InnerFile's chunks.
func IsStored(method byte) bool { return method == rarblock.MethodStored }

// Reader wraps r -- the concatenated raw chunk bytes of one compressed
// inner file -- in a rardecode reader and positions it at that file's
// first (and only) entry, producing the unpacked byte stream. It is a
// whole-file decode: a compressed stream has no byte-addressable
// structure, so partial-range requests against it aren't supported.
//
// This is illustrative, not a working decode path: rardecode.NewReader
// expects a full archive stream (marker, archive header, its own file
// header) and r is just the bare packed bytes after chunk stitching, so
// a real non-stored archive will fail here. Decompression itself is out
// of scope; this hook exists so a caller that wires in a real archive
// stream has somewhere to plug one in.
func Reader(r io.Reader) (io.Reader, error) {
	rr, err := rardecode.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("decode: opening rar stream: %w", err)
	}
	if _, err := rr.Next(); err != nil {
		return nil, fmt.Errorf("decode: reading first entry: %w", err)
	}
	return rr, nil
}
