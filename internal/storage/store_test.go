package storage

import (
	"context"
	"errors"
	"testing"
)

// Interface compliance
var (
	_ Store = (*FileStore)(nil)
	_ Store = (*SQLiteStore)(nil)
	_ Store = (*FirestoreStore)(nil)
)

func TestValidateKey(t *testing.T) {
	valid := []string{"dataset", "dataset-2024", "user_1.backup", "A-Z.0-9"}
	for _, key := range valid {
		if err := ValidateKey(key); err != nil {
			t.Errorf("Expected %q to be valid: %v", key, err)
		}
	}

	invalid := []string{"", "has space", "path/sep", "semi;colon", "user:key"}
	for _, key := range invalid {
		if err := ValidateKey(key); err == nil {
			t.Errorf("Expected %q to be rejected", key)
		}
	}
}

// exerciseStore runs the shared Store contract against a backend
func exerciseStore(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()

	if _, err := store.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get on missing key: expected ErrNotFound, got %v", err)
	}
	if err := store.Delete(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Delete on missing key: expected ErrNotFound, got %v", err)
	}

	if err := store.Set(ctx, "dataset", []byte(`{"expenses":[]}`)); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	got, err := store.Get(ctx, "dataset")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(got) != `{"expenses":[]}` {
		t.Errorf("Round-trip mismatch: %s", got)
	}

	// Overwrite
	if err := store.Set(ctx, "dataset", []byte(`{"expenses":[1]}`)); err != nil {
		t.Fatalf("Overwrite failed: %v", err)
	}
	got, err = store.Get(ctx, "dataset")
	if err != nil {
		t.Fatalf("Get after overwrite failed: %v", err)
	}
	if string(got) != `{"expenses":[1]}` {
		t.Errorf("Overwrite not visible: %s", got)
	}

	if err := store.Set(ctx, "backup", []byte("b")); err != nil {
		t.Fatalf("Second Set failed: %v", err)
	}
	keys, err := store.Keys(ctx)
	if err != nil {
		t.Fatalf("Keys failed: %v", err)
	}
	if len(keys) != 2 || keys[0] != "backup" || keys[1] != "dataset" {
		t.Errorf("Expected sorted [backup dataset], got %v", keys)
	}

	if err := store.Delete(ctx, "backup"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := store.Get(ctx, "backup"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Deleted key must be gone, got %v", err)
	}

	if err := store.Set(ctx, "bad key", []byte("x")); err == nil {
		t.Error("Invalid key must be rejected")
	}
}

func TestFileStore(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore failed: %v", err)
	}
	defer store.Close()

	exerciseStore(t, store)
}

func TestFileStore_EmptyDir(t *testing.T) {
	if _, err := NewFileStore(""); err == nil {
		t.Error("Expected error for empty directory")
	}
}

func TestSQLiteStore(t *testing.T) {
	store, err := NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	defer store.Close()

	exerciseStore(t, store)
}

func TestNewFirestoreStore_Validation(t *testing.T) {
	if _, err := NewFirestoreStore(nil, "user"); err == nil {
		t.Error("Expected error for nil client")
	}
	if _, err := NewFirestoreStore(&Client{}, ""); err == nil {
		t.Error("Expected error for empty user ID")
	}
}
