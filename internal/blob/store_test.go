package blob

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"testing"
)

func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()
	info, err := s.Put(ctx, "exports/g1/catalog.json", strings.NewReader(`{"units":[]}`), PutOptions{
		ContentType: "application/json",
		Metadata:    map[string]string{"group": "g1"},
	})
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if info.Size != int64(len(`{"units":[]}`)) || info.Key != "exports/g1/catalog.json" {
		t.Fatalf("unexpected info %+v", info)
	}
	if _, err := s.Put(ctx, "exports/g1/catalog.json", strings.NewReader("x"), PutOptions{}); !errors.Is(err, ErrExists) {
		t.Fatalf("expected ErrExists, got %v", err)
	}
	if _, err := s.Put(ctx, "exports/g2/catalog.json", strings.NewReader("y"), PutOptions{}); err != nil {
		t.Fatalf("Put second: %v", err)
	}

	got, rc, err := s.Get(ctx, "exports/g1/catalog.json")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	body, _ := io.ReadAll(rc)
	_ = rc.Close()
	if string(body) != `{"units":[]}` || got.ContentType != "application/json" || got.Metadata["group"] != "g1" {
		t.Fatalf("unexpected get %+v %q", got, body)
	}
	if _, err := s.Head(ctx, "exports/missing.json"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound from Head, got %v", err)
	}
	if _, _, err := s.Get(ctx, "exports/missing.json"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound from Get, got %v", err)
	}

	list, err := s.List(ctx, "exports/g")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 2 || list[0].Key != "exports/g1/catalog.json" || list[1].Key != "exports/g2/catalog.json" {
		t.Fatalf("unexpected list %+v", list)
	}

	ok, err := s.Delete(ctx, "exports/g1/catalog.json")
	if err != nil || !ok {
		t.Fatalf("Delete: %v %v", ok, err)
	}
	ok, err = s.Delete(ctx, "exports/g1/catalog.json")
	if err != nil || ok {
		t.Fatalf("second Delete should report missing: %v %v", ok, err)
	}
}

func TestMemoryStore(t *testing.T) {
	s := NewMemory()
	if s.Driver() != DriverMemory {
		t.Fatalf("driver %s", s.Driver())
	}
	exerciseStore(t, s)
}

func TestFilesystemStore(t *testing.T) {
	s, err := NewFilesystem(filepath.Join(t.TempDir(), "blobs"))
	if err != nil {
		t.Fatalf("NewFilesystem: %v", err)
	}
	exerciseStore(t, s)
}

func TestFilesystemRejectsUnsafeKeys(t *testing.T) {
	s, err := NewFilesystem(t.TempDir())
	if err != nil {
		t.Fatalf("NewFilesystem: %v", err)
	}
	for _, key := range []string{"", "   ", "/etc/passwd", "../escape", "a/../../b", "x.meta"} {
		if _, err := s.Put(context.Background(), key, strings.NewReader("x"), PutOptions{}); err == nil {
			t.Fatalf("expected error for key %q", key)
		}
	}
}

func TestFilesystemETagIsContentHash(t *testing.T) {
	s, err := NewFilesystem(t.TempDir())
	if err != nil {
		t.Fatalf("NewFilesystem: %v", err)
	}
	a, err := s.Put(context.Background(), "a", strings.NewReader("same"), PutOptions{})
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	b, err := s.Put(context.Background(), "b", strings.NewReader("same"), PutOptions{})
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if a.ETag == "" || a.ETag != b.ETag {
		t.Fatalf("expected equal content hashes, got %q %q", a.ETag, b.ETag)
	}
}
