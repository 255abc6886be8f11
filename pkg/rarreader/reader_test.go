package rarreader

import (
	"context"
	"testing"
)

// memSource is a minimal rarvol.Source over an in-memory byte slice,
// used to exercise the Reader without touching a filesystem.
type memSource struct {
	name string
	data []byte
	reads int
}

func (m *memSource) Name() string  { return m.name }
func (m *memSource) Length() int64 { return int64(len(m.data)) }
func (m *memSource) Read(_ context.Context, start, end int64) ([]byte, error) {
	m.reads++
	return append([]byte{}, m.data[start:end+1]...), nil
}

func TestReader_ReadExact(t *testing.T) {
	src := &memSource{name: "vol.rar", data: []byte("0123456789")}
	r, err := New(src, Options{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	got, err := r.ReadExact(context.Background(), 2, 4)
	if err != nil {
		t.Fatalf("ReadExact: %v", err)
	}
	if string(got) != "2345" {
		t.Errorf("got %q, want 2345", got)
	}
}

func TestReader_PeekCachesRepeatedSpans(t *testing.T) {
	src := &memSource{name: "vol.rar", data: []byte("0123456789")}
	r, err := New(src, Options{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx := context.Background()
	if _, err := r.Peek(ctx, 0, 4); err != nil {
		t.Fatalf("Peek 1: %v", err)
	}
	if _, err := r.Peek(ctx, 0, 4); err != nil {
		t.Fatalf("Peek 2: %v", err)
	}
	if src.reads != 1 {
		t.Errorf("src.reads = %d, want 1 (second Peek should hit cache)", src.reads)
	}
}

func TestReader_ShortReadAtTail(t *testing.T) {
	src := &memSource{name: "vol.rar", data: []byte("01234")}
	r, err := New(src, Options{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx := context.Background()
	b, err := r.Peek(ctx, 3, 10)
	if err != nil {
		t.Fatalf("Peek: %v", err)
	}
	if string(b) != "34" {
		t.Errorf("got %q, want 34", b)
	}

	if _, err := r.ReadExact(ctx, 3, 10); err == nil {
		t.Error("expected ReadExact to error on a short tail read")
	}
}

func TestReader_PeekPastEnd(t *testing.T) {
	src := &memSource{name: "vol.rar", data: []byte("01234")}
	r, err := New(src, Options{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	b, err := r.Peek(context.Background(), 100, 4)
	if err != nil {
		t.Fatalf("Peek: %v", err)
	}
	if b != nil {
		t.Errorf("expected nil for an offset past the end, got %q", b)
	}
}
