package rarwalk

import (
	"bytes"
	"context"
	"encoding/binary"
	"testing"

	"rarstream/pkg/rarblock"
	"rarstream/pkg/rarreader"
)

type memSource struct {
	name string
	data []byte
}

func (m *memSource) Name() string  { return m.name }
func (m *memSource) Length() int64 { return int64(len(m.data)) }
func (m *memSource) Read(_ context.Context, start, end int64) ([]byte, error) {
	return append([]byte{}, m.data[start:end+1]...), nil
}

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

func archiveHeaderBlock() []byte {
	var b bytes.Buffer
	b.Write(le16(0))
	b.WriteByte(0x73)
	b.Write(le16(0x0100)) // IsFirstVolume
	b.Write(le16(13))
	b.Write(le16(0))
	b.Write(le32(0))
	return b.Bytes()
}

func fileHeaderBlock(name string, payload []byte) []byte {
	var body bytes.Buffer
	body.Write(le32(uint32(len(payload))))
	body.Write(le32(uint32(len(payload))))
	body.WriteByte(0)
	body.Write(le32(0))
	body.Write(le32(0))
	body.WriteByte(29)
	body.WriteByte(rarblock.MethodStored)
	body.Write(le16(uint16(len(name))))
	body.Write(le32(0))
	body.WriteString(name)

	headSize := 7 + body.Len()
	var buf bytes.Buffer
	buf.Write(le16(0))
	buf.WriteByte(0x74)
	buf.Write(le16(0))
	buf.Write(le16(uint16(headSize)))
	buf.Write(body.Bytes())
	buf.Write(payload)
	return buf.Bytes()
}

func endOfArchiveBlock() []byte {
	var b bytes.Buffer
	b.Write(le16(0))
	b.WriteByte(0x7B)
	b.Write(le16(0))
	b.Write(le16(7))
	return b.Bytes()
}

func buildVolume(payload []byte) []byte {
	var buf bytes.Buffer
	buf.Write(rarblock.MarkerRAR4)
	buf.Write(archiveHeaderBlock())
	buf.Write(fileHeaderBlock("movie.mkv", payload))
	buf.Write(endOfArchiveBlock())
	return buf.Bytes()
}

func TestWalk_singleVolumeFile(t *testing.T) {
	payload := []byte("hello rar payload")
	src := &memSource{name: "movie.rar", data: buildVolume(payload)}

	result := Walk(context.Background(), 0, src, rarreader.Options{})
	if result.Err != nil {
		t.Fatalf("Walk: %v", result.Err)
	}

	var kinds []rarblock.Kind
	for _, b := range result.Blocks {
		kinds = append(kinds, b.Kind)
	}
	want := []rarblock.Kind{rarblock.KindArchiveHeader, rarblock.KindFileHeader, rarblock.KindEndOfArchive}
	if len(kinds) != len(want) {
		t.Fatalf("got %v block kinds, want %v", kinds, want)
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Errorf("block %d kind = %v, want %v", i, kinds[i], want[i])
		}
	}

	fileBlock := result.Blocks[1]
	if fileBlock.File.Name != "movie.mkv" {
		t.Errorf("file name = %q, want movie.mkv", fileBlock.File.Name)
	}
	if fileBlock.DataSize != int64(len(payload)) {
		t.Errorf("dataSize = %d, want %d", fileBlock.DataSize, len(payload))
	}
}

func TestWalk_truncatedVolume(t *testing.T) {
	payload := []byte("hello rar payload")
	full := buildVolume(payload)
	src := &memSource{name: "movie.rar", data: full[:len(full)-10]}

	result := Walk(context.Background(), 0, src, rarreader.Options{})
	if result.Err == nil {
		t.Fatal("expected a truncation error")
	}
	if len(result.Blocks) == 0 {
		t.Error("expected the archive header block to still be collected before truncation")
	}
}

func TestWalk_notRar(t *testing.T) {
	src := &memSource{name: "not-a-rar.txt", data: []byte("plain text file, nothing to see here")}
	result := Walk(context.Background(), 0, src, rarreader.Options{})
	if result.Err == nil {
		t.Fatal("expected ErrNotRar")
	}
}
