package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"
)

func TestLocalPutGetList(t *testing.T) {
	store, err := NewLocal(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocal() error = %v", err)
	}
	ctx := context.Background()

	info, err := store.Put(ctx, "/results/a.json", bytes.NewBufferString(`{"ok":true}`), 11, PutOptions{ContentType: "application/json"})
	if err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if info.Key != "results/a.json" || info.Size != 11 {
		t.Fatalf("Put() info = %+v", info)
	}
	if _, err := store.Put(ctx, "figures/b.json", bytes.NewBufferString("{}"), 2, PutOptions{}); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	reader, err := store.Get(ctx, "results/a.json")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	body, _ := io.ReadAll(reader)
	_ = reader.Close()
	if string(body) != `{"ok":true}` {
		t.Fatalf("Get() body = %q", body)
	}

	objects, err := store.List(ctx, "results/")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(objects) != 1 || objects[0].Key != "results/a.json" {
		t.Fatalf("List() = %+v", objects)
	}
}

func TestLocalMissingObject(t *testing.T) {
	store, err := NewLocal(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocal() error = %v", err)
	}
	if _, err := store.Get(context.Background(), "nope.json"); !errors.Is(err, ErrObjectNotFound) {
		t.Fatalf("Get() error = %v, want ErrObjectNotFound", err)
	}
	if err := store.Delete(context.Background(), "nope.json"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
}

func TestCleanKeyRejectsTraversal(t *testing.T) {
	for _, key := range []string{"", "../secrets", "a/../../b", ".."} {
		if _, err := CleanKey(key); err == nil {
			t.Fatalf("CleanKey(%q) expected error", key)
		}
	}
	if got, err := CleanKey("/a//b.json"); err != nil || got != "a/b.json" {
		t.Fatalf("CleanKey() = %q, %v", got, err)
	}
}
