package blobstore

import (
	"bytes"
	"context"
	"io"
	"testing"
)

func TestMemoryPutGetDelete(t *testing.T) {
	store := NewMemory()
	ctx := context.Background()

	content := []byte("%PDF-1.4 fake report")
	if err := store.Put(ctx, "u1/r1.pdf", "application/pdf", bytes.NewReader(content)); err != nil {
		t.Fatal(err)
	}

	rc, err := store.Get(ctx, "u1/r1.pdf")
	if err != nil {
		t.Fatal(err)
	}
	got, _ := io.ReadAll(rc)
	rc.Close()
	if !bytes.Equal(got, content) {
		t.Fatalf("content mismatch: %q", got)
	}

	if err := store.Delete(ctx, "u1/r1.pdf"); err != nil {
		t.Fatal(err)
	}
	if _, err := store.Get(ctx, "u1/r1.pdf"); err != ErrBlobNotFound {
		t.Fatalf("got %v, want ErrBlobNotFound", err)
	}
}

func TestMemoryDeleteMissing(t *testing.T) {
	store := NewMemory()
	if err := store.Delete(context.Background(), "nope"); err != ErrBlobNotFound {
		t.Fatalf("got %v", err)
	}
}

func TestContentHashStable(t *testing.T) {
	a := ContentHash([]byte("same"))
	b := ContentHash([]byte("same"))
	c := ContentHash([]byte("different"))
	if a != b {
		t.Fatal("hash not deterministic")
	}
	if a == c {
		t.Fatal("distinct content collided")
	}
}
