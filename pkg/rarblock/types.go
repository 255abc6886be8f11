// Package rarblock implements the pure, I/O-free RAR4 block decoders:
// marker, archive header, file header, and end-of-archive. Every
// exported Parse* function takes a byte slice already read off
// disk/network and never performs I/O or mutates shared state.
package rarblock

// Kind enumerates the RAR4 block types this module understands.
type Kind int

const (
	KindUnknown Kind = iota
	KindMarker
	KindArchiveHeader
	KindFileHeader
	KindSubBlock
	KindEndOfArchive
)

func (k Kind) String() string {
	switch k {
	case KindMarker:
		return "Marker"
	case KindArchiveHeader:
		return "ArchiveHeader"
	case KindFileHeader:
		return "FileHeader"
	case KindSubBlock:
		return "SubBlock"
	case KindEndOfArchive:
		return "EndOfArchive"
	default:
		return "Unknown"
	}
}

// RAR4 block type bytes.
const (
	typeArchiveHeader byte = 0x73
	typeFileHeader    byte = 0x74
	typeSubBlock      byte = 0x7A
	typeEndOfArchive  byte = 0x7B
)

// Archive header flag bits.
const (
	FlagHasVolumeAttributes uint16 = 0x0001
	FlagHasComment          uint16 = 0x0002
	FlagIsLocked            uint16 = 0x0004
	FlagHasSolid            uint16 = 0x0008
	FlagNewNameScheme       uint16 = 0x0010
	FlagHasAuthInfo         uint16 = 0x0020
	FlagHasRecovery         uint16 = 0x0040
	FlagIsBlockEncoded      uint16 = 0x0080
	FlagIsFirstVolume       uint16 = 0x0100
)

// File header flag bits.
const (
	fileFlagContinuedFromPrev uint16 = 0x0001
	fileFlagContinuesInNext   uint16 = 0x0002
	fileFlagHasSalt           uint16 = 0x0400
	fileFlagHasUnicodeName    uint16 = 0x0200
	fileFlagHasHighSize       uint16 = 0x0100
	fileFlagHasExtTime        uint16 = 0x1000

	// generic RAR3 block framing: presence of a 4-byte AddSize field
	// appended to the 7-byte base header, widening the declared block
	// size for blocks that carry a large trailing data section.
	blockFlagHasAddSize uint16 = 0x8000
)

// ArchiveHeader is the decoded kind-specific payload of an
// ArchiveHeader block.
type ArchiveHeader struct {
	Flags               uint16
	HasVolumeAttributes bool
	HasComment          bool
	IsLocked            bool
	HasSolid            bool
	NewNameScheme       bool
	HasAuthInfo         bool
	HasRecovery         bool
	IsBlockEncoded      bool
	IsFirstVolume       bool
}

// FileHeader is the decoded kind-specific payload of a FileHeader
// block.
type FileHeader struct {
	Name               string
	PackedSize         uint64
	UnpackedSize       uint64
	Method             byte
	CRC32              uint32
	HostOS             byte
	FileTime           uint32
	RarVersion         byte
	ContinuedFromPrev  bool
	ContinuesInNext    bool
	HasHighSize        bool
	HasUnicodeName     bool
}

// MethodStored is the RAR method byte meaning "stored, no compression".
const MethodStored byte = 0x30

// Block is the smallest parsed unit from a volume.
type Block struct {
	Kind           Kind
	VolumeIndex    int
	AbsoluteOffset int64
	HeaderSize     int64
	DataSize       int64
	Flags          uint16

	Archive *ArchiveHeader
	File    *FileHeader
}

// EndOffset is the offset one past the last byte this block (header +
// data) occupies in its volume.
func (b Block) EndOffset() int64 {
	return b.AbsoluteOffset + b.HeaderSize + b.DataSize
}
