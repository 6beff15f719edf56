package store_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/goliatone/go-sparse/pkg/store"
)

func TestFileStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	s := store.NewFileStore(dir)

	if _, _, ok, err := s.Load(ctx, "nested/doc.yaml"); err != nil || ok {
		t.Fatalf("expected miss, got ok=%t err=%v", ok, err)
	}

	saved, err := s.Save(ctx, "nested/doc.yaml", []byte("a: 1\n"), store.Meta{})
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	raw, err := os.ReadFile(filepath.Join(dir, "nested", "doc.yaml"))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(raw) != "a: 1\n" {
		t.Fatalf("unexpected file content %q", raw)
	}

	data, meta, ok, err := s.Load(ctx, filepath.Join(dir, "nested", "doc.yaml"))
	if err != nil || !ok {
		t.Fatalf("load: ok=%t err=%v", ok, err)
	}
	if string(data) != "a: 1\n" || meta.ETag != saved.ETag {
		t.Fatalf("unexpected load data=%q meta=%+v saved=%+v", data, meta, saved)
	}
	if meta.UpdatedAt.IsZero() {
		t.Fatalf("expected modification time")
	}
}

func TestFileStoreDetectsConcurrentWrite(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	s := store.NewFileStore(dir)

	first, err := s.Save(ctx, "doc.json", []byte(`{"v":1}`), store.Meta{})
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "doc.json"), []byte(`{"v":"external"}`), 0o644); err != nil {
		t.Fatalf("external write: %v", err)
	}

	_, err = s.Save(ctx, "doc.json", []byte(`{"v":2}`), store.Meta{ETag: first.ETag})
	if !errors.Is(err, store.ErrETagMismatch) {
		t.Fatalf("expected ErrETagMismatch, got %v", err)
	}
}

func TestFileStoreHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := store.NewFileStore(t.TempDir())
	if _, _, _, err := s.Load(ctx, "doc.json"); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if _, err := s.Save(ctx, "doc.json", nil, store.Meta{}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
