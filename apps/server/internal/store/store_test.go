package store

import (
	"context"
	"errors"
	"testing"
)

func storeBackends(t *testing.T) map[string]Store {
	t.Helper()
	sqliteStore, err := NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("sqlite store: %v", err)
	}
	t.Cleanup(func() { _ = sqliteStore.Close() })
	return map[string]Store{
		"memory": NewMemoryStore(),
		"sqlite": sqliteStore,
	}
}

func TestCreateAndLoad(t *testing.T) {
	for name, s := range storeBackends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			rec, err := s.Create(ctx, "AB12", []byte(`{"phase":"waiting"}`), StatusWaitingForPlayers)
			if err != nil {
				t.Fatalf("create failed: %v", err)
			}
			if rec.Version != 1 {
				t.Fatalf("expected version 1 on create, got %d", rec.Version)
			}

			loaded, err := s.Load(ctx, "AB12")
			if err != nil {
				t.Fatalf("load failed: %v", err)
			}
			if loaded.Status != StatusWaitingForPlayers {
				t.Fatalf("expected status %s, got %s", StatusWaitingForPlayers, loaded.Status)
			}
			if string(loaded.State) != `{"phase":"waiting"}` {
				t.Fatalf("unexpected state: %s", loaded.State)
			}
			if loaded.CreatedAtMs == 0 || loaded.UpdatedAtMs == 0 {
				t.Fatalf("expected timestamps to be set")
			}
		})
	}
}

func TestCreateRejectsDuplicateRound(t *testing.T) {
	for name, s := range storeBackends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			if _, err := s.Create(ctx, "AB12", []byte(`{}`), StatusWaitingForPlayers); err != nil {
				t.Fatalf("create failed: %v", err)
			}
			if _, err := s.Create(ctx, "AB12", []byte(`{}`), StatusWaitingForPlayers); !errors.Is(err, ErrRoundExists) {
				t.Fatalf("expected ErrRoundExists, got %v", err)
			}
		})
	}
}

func TestLoadMissingRound(t *testing.T) {
	for name, s := range storeBackends(t) {
		t.Run(name, func(t *testing.T) {
			if _, err := s.Load(context.Background(), "ZZZZ"); !errors.Is(err, ErrNotFound) {
				t.Fatalf("expected ErrNotFound, got %v", err)
			}
		})
	}
}

func TestSaveCompareAndSet(t *testing.T) {
	for name, s := range storeBackends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			rec, err := s.Create(ctx, "AB12", []byte(`{"v":0}`), StatusWaitingForPlayers)
			if err != nil {
				t.Fatalf("create failed: %v", err)
			}

			v2, err := s.Save(ctx, "AB12", []byte(`{"v":1}`), StatusActive, rec.Version)
			if err != nil {
				t.Fatalf("save failed: %v", err)
			}
			if v2 != rec.Version+1 {
				t.Fatalf("expected version %d, got %d", rec.Version+1, v2)
			}

			// A writer still holding the old version must lose.
			if _, err := s.Save(ctx, "AB12", []byte(`{"v":9}`), StatusActive, rec.Version); !errors.Is(err, ErrVersionConflict) {
				t.Fatalf("expected ErrVersionConflict, got %v", err)
			}

			loaded, err := s.Load(ctx, "AB12")
			if err != nil {
				t.Fatalf("load failed: %v", err)
			}
			if loaded.Version != v2 || loaded.Status != StatusActive {
				t.Fatalf("expected version %d status %s, got %d %s", v2, StatusActive, loaded.Version, loaded.Status)
			}
			if string(loaded.State) != `{"v":1}` {
				t.Fatalf("stale write must not land, got state %s", loaded.State)
			}
		})
	}
}

func TestSaveMissingRound(t *testing.T) {
	for name, s := range storeBackends(t) {
		t.Run(name, func(t *testing.T) {
			if _, err := s.Save(context.Background(), "ZZZZ", []byte(`{}`), StatusActive, 1); !errors.Is(err, ErrNotFound) {
				t.Fatalf("expected ErrNotFound, got %v", err)
			}
		})
	}
}

func TestDeleteRemovesRound(t *testing.T) {
	for name, s := range storeBackends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			if _, err := s.Create(ctx, "AB12", []byte(`{}`), StatusCompleted); err != nil {
				t.Fatalf("create failed: %v", err)
			}
			if err := s.Delete(ctx, "AB12"); err != nil {
				t.Fatalf("delete failed: %v", err)
			}
			if _, err := s.Load(ctx, "AB12"); !errors.Is(err, ErrNotFound) {
				t.Fatalf("expected ErrNotFound after delete, got %v", err)
			}
			if err := s.Delete(ctx, "AB12"); !errors.Is(err, ErrNotFound) {
				t.Fatalf("expected ErrNotFound for second delete, got %v", err)
			}
		})
	}
}

func TestTombstoneStatusPersists(t *testing.T) {
	for name, s := range storeBackends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			rec, err := s.Create(ctx, "AB12", []byte(`{}`), StatusCompleted)
			if err != nil {
				t.Fatalf("create failed: %v", err)
			}
			if _, err := s.Save(ctx, "AB12", rec.State, StatusTombstoned, rec.Version); err != nil {
				t.Fatalf("tombstone save failed: %v", err)
			}
			loaded, err := s.Load(ctx, "AB12")
			if err != nil {
				t.Fatalf("load failed: %v", err)
			}
			if loaded.Status != StatusTombstoned {
				t.Fatalf("expected tombstoned status, got %s", loaded.Status)
			}
		})
	}
}
