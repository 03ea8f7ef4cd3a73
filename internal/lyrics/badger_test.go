package lyrics

import (
	"context"
	"errors"
	"testing"

	"github.com/dgraph-io/badger/v4"
)

func newMemoryBadgerStore(t *testing.T) *BadgerStore {
	t.Helper()
	db, err := badger.Open(badger.DefaultOptions("").WithInMemory(true).WithLogger(nil))
	if err != nil {
		t.Fatalf("open in-memory badger: %v", err)
	}
	s := NewBadgerStore(db)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestBadgerStoreRoundTrip(t *testing.T) {
	s := newMemoryBadgerStore(t)
	ctx := context.Background()

	if err := s.Put(ctx, "Let It Be", "When I find myself in times of trouble"); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, err := s.Get(ctx, "let-it-be")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != "When I find myself in times of trouble" {
		t.Fatalf("unexpected lyrics %q", got)
	}

	if err := s.Put(ctx, "Let It Be", "Mother Mary comes to me"); err != nil {
		t.Fatalf("Put overwrite: %v", err)
	}
	got, err = s.Get(ctx, "Let It Be")
	if err != nil {
		t.Fatalf("Get after overwrite: %v", err)
	}
	if got != "Mother Mary comes to me" {
		t.Fatalf("expected overwritten lyrics, got %q", got)
	}
}

func TestBadgerStoreNotFound(t *testing.T) {
	s := newMemoryBadgerStore(t)

	if _, err := s.Get(context.Background(), "Something"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := s.Put(context.Background(), "   ", "x"); !errors.Is(err, ErrInvalidKey) {
		t.Fatalf("expected ErrInvalidKey, got %v", err)
	}
}
