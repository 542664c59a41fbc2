package checkpoint

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestFileStoreMissingFileIsEmpty(t *testing.T) {
	s := NewFileStore(filepath.Join(t.TempDir(), "data", "corpus.json"))
	doc, err := s.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if doc.Len() != 0 {
		t.Fatalf("len=%d", doc.Len())
	}
}

func TestFileStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	path := filepath.Join(dir, "data", "relations.json")
	s := NewFileStore(path)

	doc := NewDocument()
	_ = doc.Put("B", [][]string{{"b", "part_of", "cortex"}})
	_ = doc.Put("A", [][]string{})
	if err := s.Save(ctx, doc); err != nil {
		t.Fatalf("Save: %v", err)
	}
	first, _ := os.ReadFile(path)

	loaded, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !reflect.DeepEqual(loaded.Keys(), []string{"B", "A"}) {
		t.Fatalf("keys=%v", loaded.Keys())
	}

	// Saving what was loaded must not change a byte, and saving twice is a no-op.
	if err := s.Save(ctx, loaded); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := s.Save(ctx, loaded); err != nil {
		t.Fatalf("Save: %v", err)
	}
	second, _ := os.ReadFile(path)
	if string(first) != string(second) {
		t.Fatalf("round trip changed file:\n%s\n%s", first, second)
	}

	entries, _ := os.ReadDir(filepath.Dir(path))
	if len(entries) != 1 {
		t.Fatalf("temp files left behind: %v", entries)
	}
}

func TestFileStoreCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "corpus.json")
	if err := os.WriteFile(path, []byte(`{"A": `), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := NewFileStore(path).Load(context.Background()); err == nil {
		t.Fatalf("expected decode error")
	}
}

func TestFileStoreSaveAfterCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	path := filepath.Join(t.TempDir(), "corpus.json")
	doc := NewDocument()
	_ = doc.Put("A", 1)
	if err := NewFileStore(path).Save(ctx, doc); err != nil {
		t.Fatalf("Save must not depend on ctx: %v", err)
	}
}
