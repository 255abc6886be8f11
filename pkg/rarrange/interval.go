// Package rarrange implements the range engine (component G): given an
// InnerFile and an inclusive logical byte interval, it resolves the
// covering chunks and exposes them as a single pull-based io.ReadCloser
// that never buffers more than one chunk's payload at a time.
package rarrange

import (
	"fmt"

	"rarstream/pkg/rarbundle"
	"rarstream/pkg/rarerr"
)

// Interval is an inclusive logical byte range, [Start, End]: a
// single-byte request is expressible without a separate zero-length
// sentinel.
type Interval struct {
	Start int64
	End   int64
}

// Validate checks the interval against an InnerFile's size.
func (iv Interval) Validate(size int64) error {
	if iv.Start < 0 || iv.End < iv.Start || iv.End >= size {
		return fmt.Errorf("%w: [%d,%d] for a file of size %d", rarerr.ErrInvalidInterval, iv.Start, iv.End, size)
	}
	return nil
}

// segment is one physical, already-trimmed read: the exact bytes of a
// chunk that fall inside the requested interval.
type segment struct {
	volumeIndex int
	start       int64 // inclusive, physical offset in the volume
	end         int64 // inclusive
}

func (s segment) length() int64 { return s.end - s.start + 1 }

// resolveSegments binary-searches an InnerFile's ChunkMap to the entry
// covering iv.Start and returns the trimmed physical segments covering
// iv, in ascending logical order.
func resolveSegments(f *rarbundle.InnerFile, iv Interval) ([]segment, error) {
	if err := iv.Validate(f.Size); err != nil {
		return nil, err
	}
	start, _ := f.FindChunkIndex(iv.Start)
	var segs []segment
	for _, e := range f.ChunkMap[start:] {
		if e.LogicalStart > iv.End {
			break
		}
		overlapStart := e.LogicalStart
		if iv.Start > overlapStart {
			overlapStart = iv.Start
		}
		overlapEnd := e.LogicalEnd
		if iv.End < overlapEnd {
			overlapEnd = iv.End
		}
		delta := overlapStart - e.LogicalStart
		segs = append(segs, segment{
			volumeIndex: e.Chunk.VolumeIndex,
			start:       e.Chunk.DataOffset + delta,
			end:         e.Chunk.DataOffset + (overlapEnd - e.LogicalStart),
		})
	}
	return segs, nil
}
