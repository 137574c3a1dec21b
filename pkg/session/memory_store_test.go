package session

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestMemoryStoreCreateGet(t *testing.T) {
	store := NewMemoryStore(MemoryConfig{})
	defer func() { _ = store.Close() }()
	ctx := context.Background()

	sess, err := store.Create(ctx)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	got, err := store.Get(ctx, sess.ID())
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got != sess {
		t.Error("Get() should return the same live session instance")
	}
}

func TestMemoryStoreGetUnknown(t *testing.T) {
	store := NewMemoryStore(MemoryConfig{})
	defer func() { _ = store.Close() }()

	_, err := store.Get(context.Background(), "no-such-session")
	if !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Get() error = %v, want ErrSessionNotFound", err)
	}
}

func TestMemoryStoreDelete(t *testing.T) {
	store := NewMemoryStore(MemoryConfig{})
	defer func() { _ = store.Close() }()
	ctx := context.Background()

	sess, err := store.Create(ctx)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if err := store.Delete(ctx, sess.ID()); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := store.Get(ctx, sess.ID()); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Get() after delete error = %v, want ErrSessionNotFound", err)
	}

	// Deleting an unknown ID is not an error.
	if err := store.Delete(ctx, "no-such-session"); err != nil {
		t.Errorf("Delete() of unknown ID error = %v", err)
	}
}

func TestMemoryStoreIdleEviction(t *testing.T) {
	store := NewMemoryStore(MemoryConfig{MaxIdle: time.Minute})
	defer func() { _ = store.Close() }()
	ctx := context.Background()

	sess, err := store.Create(ctx)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	// Fresh session survives a sweep inside the idle window.
	if n := store.Sweep(time.Now().UTC().Add(30 * time.Second)); n != 0 {
		t.Errorf("Sweep() evicted %d sessions inside idle window", n)
	}

	if n := store.Sweep(time.Now().UTC().Add(2 * time.Minute)); n != 1 {
		t.Errorf("Sweep() evicted %d sessions, want 1", n)
	}
	if _, err := store.Get(ctx, sess.ID()); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("evicted session still retrievable: %v", err)
	}
}

func TestMemoryStoreMaxSessionsEviction(t *testing.T) {
	store := NewMemoryStore(MemoryConfig{MaxSessions: 2})
	defer func() { _ = store.Close() }()
	ctx := context.Background()

	first, err := store.Create(ctx)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	for i := 0; i < 2; i++ {
		if _, err := store.Create(ctx); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
		// Distinct activity timestamps so eviction order is deterministic.
		time.Sleep(2 * time.Millisecond)
	}

	if n := store.Sweep(time.Now().UTC()); n != 1 {
		t.Fatalf("Sweep() evicted %d sessions, want 1", n)
	}
	if store.Len() != 2 {
		t.Errorf("store holds %d sessions after sweep, want 2", store.Len())
	}
	// The least recently active session goes first.
	if _, err := store.Get(ctx, first.ID()); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("oldest session should have been evicted, got err = %v", err)
	}
}

func TestMemoryStoreClosed(t *testing.T) {
	store := NewMemoryStore(MemoryConfig{})
	ctx := context.Background()

	sess, err := store.Create(ctx)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	if _, err := store.Create(ctx); !errors.Is(err, ErrStoreClosed) {
		t.Errorf("Create() after close error = %v, want ErrStoreClosed", err)
	}
	if _, err := store.Get(ctx, sess.ID()); !errors.Is(err, ErrStoreClosed) {
		t.Errorf("Get() after close error = %v, want ErrStoreClosed", err)
	}
	if err := store.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
}

func TestMemoryStoreList(t *testing.T) {
	store := NewMemoryStore(MemoryConfig{})
	defer func() { _ = store.Close() }()
	ctx := context.Background()

	want := make(map[string]bool)
	for i := 0; i < 3; i++ {
		sess, err := store.Create(ctx)
		if err != nil {
			t.Fatalf("Create() error = %v", err)
		}
		want[sess.ID()] = true
	}

	ids, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(ids) != 3 {
		t.Fatalf("List() returned %d IDs, want 3", len(ids))
	}
	for _, id := range ids {
		if !want[id] {
			t.Errorf("List() returned unknown ID %s", id)
		}
	}
}
