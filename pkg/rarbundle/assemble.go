package rarbundle

import (
	"fmt"

	"rarstream/pkg/rarblock"
	"rarstream/pkg/rarerr"
	"rarstream/pkg/rarwalk"
)

// Bundle is the result of stitching every volume's blocks together:
// the archive's inner files in the order their opening header was
// first seen -- canonical volume order in, first-appearance order out.
type Bundle struct {
	Files []*InnerFile
	// Warnings collects non-fatal issues surfaced while assembling
	// (truncated volumes, dangling continuations) without failing the
	// whole bundle.
	Warnings []string
}

// Assemble stitches the already-walked volumes (in canonical order --
// the order in which their names sort under the archive's naming
// convention) into a Bundle. A walk result carrying a non-fatal Err
// (truncation) still contributes whatever blocks it collected; the
// condition is recorded as a Bundle-level warning rather than failing
// assembly outright.
func Assemble(walks []rarwalk.Result) (*Bundle, error) {
	b := &Bundle{}
	open := map[string]*InnerFile{}

	for _, w := range walks {
		if w.Err != nil {
			b.Warnings = append(b.Warnings, fmt.Sprintf("volume %d: %v", w.VolumeIndex, w.Err))
		}
		for _, block := range w.Blocks {
			if block.Kind != rarblock.KindFileHeader {
				continue
			}
			fh := block.File
			chunk := RawChunk{
				VolumeIndex: block.VolumeIndex,
				DataOffset:  block.AbsoluteOffset + block.HeaderSize,
				Length:      block.DataSize,
			}

			inner, ok := open[fh.Name]
			if !fh.ContinuedFromPrev {
				if ok {
					// a chain that never closed, re-opened by a fresh
					// header of the same name: the old one stays as
					// recorded, flagged dangling.
					inner.Complete = false
					inner.Warnings = append(inner.Warnings, "superseded by a later non-continuation header of the same name before closing")
					b.Warnings = append(b.Warnings, (&rarerr.DanglingContinuationError{Name: fh.Name, VolumeIndex: block.VolumeIndex}).Error())
				}
				inner = &InnerFile{Name: fh.Name, Size: int64(fh.UnpackedSize), Method: fh.Method, Complete: true}
				b.Files = append(b.Files, inner)
				open[fh.Name] = inner
			} else if !ok {
				inner = &InnerFile{Name: fh.Name, Size: int64(fh.UnpackedSize), Complete: false}
				inner.Warnings = append(inner.Warnings, "continuation chunk with no preceding opening header")
				b.Files = append(b.Files, inner)
				open[fh.Name] = inner
				b.Warnings = append(b.Warnings, (&rarerr.DanglingContinuationError{Name: fh.Name, VolumeIndex: block.VolumeIndex}).Error())
			}

			inner.Chunks = append(inner.Chunks, chunk)

			if !fh.ContinuesInNext {
				delete(open, fh.Name)
			}
		}
	}

	for _, f := range b.Files {
		if _, stillOpen := open[f.Name]; stillOpen {
			f.Complete = false
			f.Warnings = append(f.Warnings, "file never saw a closing header; archive set is incomplete")
		}
		if f.Complete && f.Method == rarblock.MethodStored {
			var packed int64
			for _, c := range f.Chunks {
				packed += c.Length
			}
			if packed != f.Size {
				f.Complete = false
				f.Warnings = append(f.Warnings, fmt.Sprintf("summed chunk length %d does not match declared unpacked size %d", packed, f.Size))
			}
		}
		buildChunkMap(f)
	}

	return b, nil
}

// buildChunkMap turns an InnerFile's ordered Chunks into the prefix-sum
// ChunkMap the range engine binary-searches.
func buildChunkMap(f *InnerFile) {
	f.ChunkMap = make([]ChunkMapEntry, 0, len(f.Chunks))
	var logical int64
	for _, c := range f.Chunks {
		if c.Length <= 0 {
			continue
		}
		f.ChunkMap = append(f.ChunkMap, ChunkMapEntry{
			LogicalStart: logical,
			LogicalEnd:   logical + c.Length - 1,
			Chunk:        c,
		})
		logical += c.Length
	}
}
