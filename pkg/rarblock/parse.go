package rarblock

import (
	"encoding/binary"
	"fmt"

	"rarstream/pkg/rarerr"
)

// MarkerRAR4 is the classic RAR3/RAR4 signature.
var MarkerRAR4 = []byte{0x52, 0x61, 0x72, 0x21, 0x1A, 0x07, 0x00}

// MarkerRAR5 is the RAR5 signature. rarstream recognizes it only to
// return rarerr.ErrRar5Unsupported with a precise diagnosis, unless a
// Rar5Parser plugin is supplied to the package façade.
var MarkerRAR5 = []byte{0x52, 0x61, 0x72, 0x21, 0x1A, 0x07, 0x01, 0x00}

// readBuf is a cursor over a byte slice, modeled on the little-endian
// field readers used by rardecode-family parsers. Every accessor
// advances the cursor and panics on underrun; callers recover via the
// deferred recover in parseBaseHeader and ParseFileHeader.
type readBuf []byte

func (b *readBuf) byte() byte {
	v := (*b)[0]
	*b = (*b)[1:]
	return v
}

func (b *readBuf) uint16() uint16 {
	v := binary.LittleEndian.Uint16(*b)
	*b = (*b)[2:]
	return v
}

func (b *readBuf) uint32() uint32 {
	v := binary.LittleEndian.Uint32(*b)
	*b = (*b)[4:]
	return v
}

func (b *readBuf) bytes(n int) []byte {
	v := (*b)[:n]
	*b = (*b)[n:]
	return v
}

func (b *readBuf) len() int { return len(*b) }

// DetectMarker checks the start of buf for a RAR3/4 or RAR5 marker and
// reports how many bytes it occupies. It returns rarerr.ErrNotRar if
// neither signature matches, and rarerr.ErrRar5Unsupported if the RAR5
// signature is found.
func DetectMarker(buf []byte) (n int, err error) {
	if len(buf) >= len(MarkerRAR5) && string(buf[:len(MarkerRAR5)]) == string(MarkerRAR5) {
		return len(MarkerRAR5), rarerr.ErrRar5Unsupported
	}
	if len(buf) >= len(MarkerRAR4) && string(buf[:len(MarkerRAR4)]) == string(MarkerRAR4) {
		return len(MarkerRAR4), nil
	}
	return 0, rarerr.ErrNotRar
}

// baseHeader is the 7-byte prefix common to every RAR3 block.
type baseHeader struct {
	crc16      uint16
	blockType  byte
	flags      uint16
	size       uint16
	addSize    uint32
	prefixLen  int
}

func parseBaseHeader(buf []byte) (h baseHeader, err error) {
	if len(buf) < 7 {
		return h, fmt.Errorf("rarblock: short buffer for base header (%d bytes)", len(buf))
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("rarblock: malformed base header: %v", r)
		}
	}()
	r := readBuf(buf)
	h.crc16 = r.uint16()
	h.blockType = r.byte()
	h.flags = r.uint16()
	h.size = r.uint16()
	h.prefixLen = 7
	if h.flags&blockFlagHasAddSize != 0 {
		if len(buf) < 11 {
			return h, fmt.Errorf("rarblock: short buffer for addSize")
		}
		h.addSize = r.uint32()
		h.prefixLen = 11
	}
	return h, nil
}

// PeekKind inspects the base header at the start of buf and reports
// its Kind and the size its base header declares (the header size,
// plus the AddSize field when that flag is set), without fully
// decoding a kind-specific payload. For a FileHeader without AddSize
// the packed data that follows is not included; ParseFileHeader
// reports it separately. Callers use this to decide
// how many bytes to read before calling the matching Parse* function.
func PeekKind(buf []byte) (kind Kind, totalSize int64, err error) {
	h, err := parseBaseHeader(buf)
	if err != nil {
		return KindUnknown, 0, err
	}
	total := int64(h.size) + int64(h.addSize)
	if h.size == 0 {
		total = int64(h.prefixLen) + int64(h.addSize)
	}
	switch h.blockType {
	case typeArchiveHeader:
		return KindArchiveHeader, total, nil
	case typeFileHeader:
		return KindFileHeader, total, nil
	case typeSubBlock:
		return KindSubBlock, total, nil
	case typeEndOfArchive:
		return KindEndOfArchive, total, nil
	default:
		return KindUnknown, total, nil
	}
}

// ParseArchiveHeader decodes an ArchiveHeader block's kind-specific
// payload. buf must contain at least the declared header size.
func ParseArchiveHeader(buf []byte) (hdr ArchiveHeader, headerSize int64, err error) {
	h, err := parseBaseHeader(buf)
	if err != nil {
		return hdr, 0, err
	}
	if h.blockType != typeArchiveHeader {
		return hdr, 0, fmt.Errorf("rarblock: not an archive header block (type 0x%02x)", h.blockType)
	}
	size := int64(h.size)
	if size == 0 {
		size = 13
	}
	hdr.Flags = h.flags
	hdr.HasVolumeAttributes = h.flags&FlagHasVolumeAttributes != 0
	hdr.HasComment = h.flags&FlagHasComment != 0
	hdr.IsLocked = h.flags&FlagIsLocked != 0
	hdr.HasSolid = h.flags&FlagHasSolid != 0
	hdr.NewNameScheme = h.flags&FlagNewNameScheme != 0
	hdr.HasAuthInfo = h.flags&FlagHasAuthInfo != 0
	hdr.HasRecovery = h.flags&FlagHasRecovery != 0
	hdr.IsBlockEncoded = h.flags&FlagIsBlockEncoded != 0
	hdr.IsFirstVolume = h.flags&FlagIsFirstVolume != 0
	return hdr, size, nil
}

// ParseFileHeader decodes a FileHeader block's kind-specific payload,
// including RAR3 Unicode filename decoding when the Unicode-name flag
// is set. buf must contain at least the declared header size.
func ParseFileHeader(buf []byte) (hdr FileHeader, headerSize int64, dataSize int64, err error) {
	h, err := parseBaseHeader(buf)
	if err != nil {
		return hdr, 0, 0, err
	}
	if h.blockType != typeFileHeader {
		return hdr, 0, 0, fmt.Errorf("rarblock: not a file header block (type 0x%02x)", h.blockType)
	}
	if int64(h.size) > int64(len(buf)) {
		return hdr, 0, 0, &rarerr.ParseError{Detail: fmt.Sprintf("declared headSize %d exceeds supplied buffer %d", h.size, len(buf))}
	}

	defer func() {
		if r := recover(); r != nil {
			err = &rarerr.ParseError{Detail: fmt.Sprintf("malformed file header: %v", r)}
		}
	}()

	body := readBuf(buf[h.prefixLen:])
	packSize := uint64(body.uint32())
	unpSize := uint64(body.uint32())
	hostOS := body.byte()
	fileCRC := body.uint32()
	fileTime := body.uint32()
	rarVersion := body.byte()
	method := body.byte()
	nameSize := body.uint16()
	_ = body.uint32() // file attributes, not modeled

	hdr.ContinuedFromPrev = h.flags&fileFlagContinuedFromPrev != 0
	hdr.ContinuesInNext = h.flags&fileFlagContinuesInNext != 0
	hdr.HasHighSize = h.flags&fileFlagHasHighSize != 0
	hdr.HasUnicodeName = h.flags&fileFlagHasUnicodeName != 0

	var highPack, highUnp uint64
	if hdr.HasHighSize {
		highPack = uint64(body.uint32())
		highUnp = uint64(body.uint32())
	}
	hdr.PackedSize = packSize | highPack<<32
	hdr.UnpackedSize = unpSize | highUnp<<32

	rawName := body.bytes(int(nameSize))
	if hdr.HasUnicodeName {
		if nul := indexByte(rawName, 0); nul >= 0 {
			hdr.Name = DecodeRar3Unicode(rawName[:nul], rawName[nul+1:])
		} else {
			hdr.Name = string(rawName)
		}
	} else {
		hdr.Name = string(rawName)
	}

	if h.flags&fileFlagHasSalt != 0 && body.len() >= 8 {
		body.bytes(8)
	}
	// extended time fields (flag 0x1000) are variable-length and not
	// needed for range streaming; the declared headSize already tells
	// the walker where the data section begins, so we don't decode them.

	hdr.Method = method
	hdr.CRC32 = fileCRC
	hdr.HostOS = hostOS
	hdr.FileTime = fileTime
	hdr.RarVersion = rarVersion

	size := int64(h.size)
	if size == 0 {
		size = int64(h.prefixLen)
	}
	data := int64(hdr.PackedSize)
	return hdr, size, data, nil
}

// ParseEndOfArchive decodes an EndOfArchive block and reports its
// total on-disk size.
func ParseEndOfArchive(buf []byte) (totalSize int64, err error) {
	h, err := parseBaseHeader(buf)
	if err != nil {
		return 0, err
	}
	if h.blockType != typeEndOfArchive {
		return 0, fmt.Errorf("rarblock: not an end-of-archive block (type 0x%02x)", h.blockType)
	}
	size := int64(h.size)
	if size == 0 {
		size = int64(h.prefixLen)
	}
	return size, nil
}

func indexByte(b []byte, c byte) int {
	for i, v := range b {
		if v == c {
			return i
		}
	}
	return -1
}
