// Package rarwalk implements the volume walker (component D): it
// drives the block reader and the rarblock parsers sequentially
// through one volume, producing the ordered Block list the bundle
// assembler stitches across volumes. Each volume is independent, so
// callers dispatch one walker per volume in parallel.
package rarwalk

import (
	"context"

	"rarstream/pkg/rarblock"
	"rarstream/pkg/rarerr"
	"rarstream/pkg/rarreader"
	"rarstream/pkg/rarvol"
)

// maxHeaderPeek bounds the initial peek used to discover a block's
// declared size before re-reading it in full. RAR3 file headers carry
// a variable-length name plus optional salt/extended-time tails, but
// none of that pushes a single header anywhere near this size.
const maxHeaderPeek = 4096

// Result is the outcome of walking one volume.
type Result struct {
	VolumeIndex int
	Blocks      []rarblock.Block
	// Err is non-nil for a non-fatal condition (truncation, a
	// dangling trailing block) encountered after some blocks were
	// already collected. Blocks is still valid and complete up to the
	// point Err was raised.
	Err error
}

// Walk reads every block of one volume in order, starting from offset
// 0 (the marker). It stops at EndOfArchive, at the physical end of the
// volume, or at the first unrecoverable parse error.
func Walk(ctx context.Context, volumeIndex int, src rarvol.Source, readerOpts rarreader.Options) Result {
	r, err := rarreader.New(src, readerOpts)
	if err != nil {
		return Result{VolumeIndex: volumeIndex, Err: err}
	}

	markerBuf, err := r.Peek(ctx, 0, len(rarblock.MarkerRAR5))
	if err != nil {
		return Result{VolumeIndex: volumeIndex, Err: err}
	}
	n, err := rarblock.DetectMarker(markerBuf)
	if err != nil {
		return Result{VolumeIndex: volumeIndex, Err: err}
	}

	var blocks []rarblock.Block
	offset := int64(n)
	length := r.Length()

	for offset < length {
		if err := ctx.Err(); err != nil {
			return Result{VolumeIndex: volumeIndex, Blocks: blocks, Err: err}
		}

		peek, err := r.Peek(ctx, offset, maxHeaderPeek)
		if err != nil {
			return Result{VolumeIndex: volumeIndex, Blocks: blocks, Err: err}
		}
		if len(peek) < 7 {
			return Result{VolumeIndex: volumeIndex, Blocks: blocks, Err: &rarerr.TruncatedBlockError{VolumeIndex: volumeIndex, Offset: offset}}
		}

		kind, total, err := rarblock.PeekKind(peek)
		if err != nil {
			return Result{VolumeIndex: volumeIndex, Blocks: blocks, Err: err}
		}
		if total <= 0 || offset+total > length {
			return Result{VolumeIndex: volumeIndex, Blocks: blocks, Err: &rarerr.TruncatedBlockError{VolumeIndex: volumeIndex, Offset: offset}}
		}

		full := peek
		if int64(len(full)) < total {
			full, err = r.ReadExact(ctx, offset, int(total))
			if err != nil {
				return Result{VolumeIndex: volumeIndex, Blocks: blocks, Err: &rarerr.TruncatedBlockError{VolumeIndex: volumeIndex, Offset: offset}}
			}
		}

		block := rarblock.Block{
			Kind:           kind,
			VolumeIndex:    volumeIndex,
			AbsoluteOffset: offset,
		}

		switch kind {
		case rarblock.KindArchiveHeader:
			hdr, headerSize, perr := rarblock.ParseArchiveHeader(full)
			if perr != nil {
				return Result{VolumeIndex: volumeIndex, Blocks: blocks, Err: perr}
			}
			block.Archive = &hdr
			block.HeaderSize = headerSize
			block.Flags = hdr.Flags

		case rarblock.KindFileHeader:
			hdr, headerSize, dataSize, perr := rarblock.ParseFileHeader(full)
			if perr != nil {
				return Result{VolumeIndex: volumeIndex, Blocks: blocks, Err: perr}
			}
			if offset+headerSize+dataSize > length {
				return Result{VolumeIndex: volumeIndex, Blocks: blocks, Err: &rarerr.TruncatedBlockError{VolumeIndex: volumeIndex, Offset: offset}}
			}
			block.File = &hdr
			block.HeaderSize = headerSize
			block.DataSize = dataSize

		case rarblock.KindEndOfArchive:
			size, perr := rarblock.ParseEndOfArchive(full)
			if perr != nil {
				return Result{VolumeIndex: volumeIndex, Blocks: blocks, Err: perr}
			}
			block.HeaderSize = size
			blocks = append(blocks, block)
			return Result{VolumeIndex: volumeIndex, Blocks: blocks}

		default:
			// sub-blocks and anything unrecognized: skip over using the
			// generic framing already decoded by PeekKind.
			block.HeaderSize = total
		}

		blocks = append(blocks, block)
		offset = block.EndOffset()
		if offset == block.AbsoluteOffset {
			// a zero-size block would loop forever; treat as truncation.
			return Result{VolumeIndex: volumeIndex, Blocks: blocks, Err: &rarerr.TruncatedBlockError{VolumeIndex: volumeIndex, Offset: offset}}
		}
	}

	return Result{VolumeIndex: volumeIndex, Blocks: blocks}
}
