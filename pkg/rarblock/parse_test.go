package rarblock

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"

	"rarstream/pkg/rarerr"
)

func le16(v uint16) []byte {
	b := make([]byte, 2)
	binary.LittleEndian.PutUint16(b, v)
	return b
}

func le32(v uint32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, v)
	return b
}

// buildFileHeader assembles a minimal, valid FileHeader block body for
// tests. name is written without a trailing NUL (ASCII-only case).
func buildFileHeader(flags uint16, packSize, unpSize uint32, name string) []byte {
	var body bytes.Buffer
	body.Write(le32(packSize))
	body.Write(le32(unpSize))
	body.WriteByte(0) // hostOS
	body.Write(le32(0)) // fileCRC
	body.Write(le32(0)) // fileTime
	body.WriteByte(29) // rarVersion
	body.WriteByte(MethodStored)
	body.Write(le16(uint16(len(name))))
	body.Write(le32(0)) // attributes
	body.WriteString(name)

	headSize := 7 + body.Len()
	var buf bytes.Buffer
	buf.Write(le16(0)) // crc16
	buf.WriteByte(typeFileHeader)
	buf.Write(le16(flags))
	buf.Write(le16(uint16(headSize)))
	buf.Write(body.Bytes())
	return buf.Bytes()
}

func TestDetectMarker(t *testing.T) {
	tests := []struct {
		name    string
		buf     []byte
		wantN   int
		wantErr error
	}{
		{"rar4", MarkerRAR4, len(MarkerRAR4), nil},
		{"rar5", MarkerRAR5, len(MarkerRAR5), rarerr.ErrRar5Unsupported},
		{"garbage", []byte("not a rar file..."), 0, rarerr.ErrNotRar},
		{"too short", []byte{0x52, 0x61}, 0, rarerr.ErrNotRar},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, err := DetectMarker(tt.buf)
			if n != tt.wantN {
				t.Errorf("n = %d, want %d", n, tt.wantN)
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestParseFileHeader_basic(t *testing.T) {
	buf := buildFileHeader(0, 100, 200, "movie.r00")
	hdr, headerSize, dataSize, err := ParseFileHeader(buf)
	if err != nil {
		t.Fatalf("ParseFileHeader: %v", err)
	}
	if hdr.Name != "movie.r00" {
		t.Errorf("Name = %q, want movie.r00", hdr.Name)
	}
	if hdr.PackedSize != 100 || hdr.UnpackedSize != 200 {
		t.Errorf("sizes = %d/%d, want 100/200", hdr.PackedSize, hdr.UnpackedSize)
	}
	if dataSize != 100 {
		t.Errorf("dataSize = %d, want 100", dataSize)
	}
	if headerSize != int64(len(buf)) {
		t.Errorf("headerSize = %d, want %d", headerSize, len(buf))
	}
	if hdr.ContinuedFromPrev || hdr.ContinuesInNext {
		t.Errorf("continuation flags should be false for a standalone file")
	}
}

func TestParseFileHeader_continuation(t *testing.T) {
	buf := buildFileHeader(fileFlagContinuedFromPrev|fileFlagContinuesInNext, 50, 500, "movie.part")
	hdr, _, _, err := ParseFileHeader(buf)
	if err != nil {
		t.Fatalf("ParseFileHeader: %v", err)
	}
	if !hdr.ContinuedFromPrev || !hdr.ContinuesInNext {
		t.Errorf("expected both continuation flags set, got %+v", hdr)
	}
}

func TestParseFileHeader_highSize(t *testing.T) {
	name := "big.bin"
	var body bytes.Buffer
	body.Write(le32(0)) // low pack size, overridden by high field
	body.Write(le32(0))
	body.WriteByte(0)
	body.Write(le32(0))
	body.Write(le32(0))
	body.WriteByte(29)
	body.WriteByte(MethodStored)
	body.Write(le16(uint16(len(name))))
	body.Write(le32(0))
	body.Write(le32(1)) // highPackSize = 1 -> packed size = 1<<32
	body.Write(le32(2)) // highUnpSize = 2 -> unpacked size = 2<<32
	body.WriteString(name)

	headSize := 7 + body.Len()
	var buf bytes.Buffer
	buf.Write(le16(0))
	buf.WriteByte(typeFileHeader)
	buf.Write(le16(fileFlagHasHighSize))
	buf.Write(le16(uint16(headSize)))
	buf.Write(body.Bytes())

	hdr, _, dataSize, err := ParseFileHeader(buf.Bytes())
	if err != nil {
		t.Fatalf("ParseFileHeader: %v", err)
	}
	if hdr.PackedSize != 1<<32 {
		t.Errorf("PackedSize = %d, want %d", hdr.PackedSize, uint64(1)<<32)
	}
	if hdr.UnpackedSize != 2<<32 {
		t.Errorf("UnpackedSize = %d, want %d", hdr.UnpackedSize, uint64(2)<<32)
	}
	if dataSize != 1<<32 {
		t.Errorf("dataSize = %d, want %d", dataSize, uint64(1)<<32)
	}
}

func TestParseFileHeader_unicodeName(t *testing.T) {
	// ascii fallback "AB", encoded tail 0x2C 0x4E 0x2D: flag byte 0x2C
	// decodes to ops copy-ascii('A'), set-high(0x4E), combine-low(0x2D)
	// -> U+4E2D, copy-ascii('B'), producing the non-ASCII name "A中B".
	ascii := []byte("AB")
	name := append(append([]byte{}, ascii...), 0)
	name = append(name, 0x2C, 0x4E, 0x2D)

	var body bytes.Buffer
	body.Write(le32(10))
	body.Write(le32(10))
	body.WriteByte(0)
	body.Write(le32(0))
	body.Write(le32(0))
	body.WriteByte(29)
	body.WriteByte(MethodStored)
	body.Write(le16(uint16(len(name))))
	body.Write(le32(0))
	body.Write(name)

	headSize := 7 + body.Len()
	var buf bytes.Buffer
	buf.Write(le16(0))
	buf.WriteByte(typeFileHeader)
	buf.Write(le16(fileFlagHasUnicodeName))
	buf.Write(le16(uint16(headSize)))
	buf.Write(body.Bytes())

	hdr, _, _, err := ParseFileHeader(buf.Bytes())
	if err != nil {
		t.Fatalf("ParseFileHeader: %v", err)
	}
	if hdr.Name != "A中B" {
		t.Errorf("Name = %q, want A中B", hdr.Name)
	}
}

func TestParseFileHeader_truncatedBuffer(t *testing.T) {
	buf := buildFileHeader(0, 100, 200, "movie.rar")
	_, _, _, err := ParseFileHeader(buf[:len(buf)-5])
	if err == nil {
		t.Fatal("expected an error for a truncated header buffer")
	}
}

func TestParseArchiveHeader(t *testing.T) {
	var buf bytes.Buffer
	buf.Write(le16(0))
	buf.WriteByte(typeArchiveHeader)
	buf.Write(le16(FlagIsFirstVolume | FlagNewNameScheme))
	buf.Write(le16(13))
	buf.Write(le16(0))
	buf.Write(le32(0))

	hdr, size, err := ParseArchiveHeader(buf.Bytes())
	if err != nil {
		t.Fatalf("ParseArchiveHeader: %v", err)
	}
	if size != 13 {
		t.Errorf("size = %d, want 13", size)
	}
	if !hdr.IsFirstVolume || !hdr.NewNameScheme {
		t.Errorf("expected IsFirstVolume and NewNameScheme set, got %+v", hdr)
	}
}

func TestParseEndOfArchive(t *testing.T) {
	var buf bytes.Buffer
	buf.Write(le16(0))
	buf.WriteByte(typeEndOfArchive)
	buf.Write(le16(0))
	buf.Write(le16(7))

	size, err := ParseEndOfArchive(buf.Bytes())
	if err != nil {
		t.Fatalf("ParseEndOfArchive: %v", err)
	}
	if size != 7 {
		t.Errorf("size = %d, want 7", size)
	}
}

func TestPeekKind(t *testing.T) {
	fh := buildFileHeader(0, 10, 20, "a.rar")
	kind, total, err := PeekKind(fh)
	if err != nil {
		t.Fatalf("PeekKind: %v", err)
	}
	if kind != KindFileHeader {
		t.Errorf("kind = %v, want KindFileHeader", kind)
	}
	if total != int64(len(fh)) {
		t.Errorf("total = %d, want %d", total, len(fh))
	}
}

func TestDecodeRar3Unicode_noEncodedTail(t *testing.T) {
	got := DecodeRar3Unicode([]byte("plain.txt"), nil)
	if got != "plain.txt" {
		t.Errorf("got %q, want plain.txt", got)
	}
}

// TestDecodeRar3Unicode_highPlaneCombine drives op 0 (ascii copy), op 3
// (set high byte) and op 2 (combine with the carried high byte) in one
// flag byte: 0x2C = 00 10 11 00, read low-to-high as ops 0,3,2,0.
func TestDecodeRar3Unicode_highPlaneCombine(t *testing.T) {
	got := DecodeRar3Unicode([]byte("AB"), []byte{0x2C, 0x4E, 0x2D})
	if got != "A中B" {
		t.Errorf("got %q, want A中B", got)
	}
}

// TestDecodeRar3Unicode_literalByte drives op 1 (literal byte copy from
// the encoded tail): flag byte 0x01 selects op 1 for its first slot.
func TestDecodeRar3Unicode_literalByte(t *testing.T) {
	got := DecodeRar3Unicode([]byte("n"), []byte{0x01, 0xE9})
	if got != "én" {
		t.Errorf("got %q, want én", got)
	}
}
