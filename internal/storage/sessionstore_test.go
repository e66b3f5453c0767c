package storage

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSessionStore_LoadMissingFile(t *testing.T) {
	store := NewSessionStore(filepath.Join(t.TempDir(), "session.yaml"))

	values, err := store.Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !values.IsZero() {
		t.Errorf("expected zero values, got %+v", values)
	}
}

func TestSessionStore_SaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "session.yaml")
	store := NewSessionStore(path)

	want := SessionValues{Token: "tok-123", Role: "Manager", UserID: "u-42"}
	if err := store.Save(want); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := NewSessionStore(path).Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got != want {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

func TestSessionStore_FixedKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.yaml")
	store := NewSessionStore(path)
	if err := store.Save(SessionValues{Token: "t", Role: "User", UserID: "u"}); err != nil {
		t.Fatalf("save: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading file: %v", err)
	}
	for _, key := range []string{KeyToken, KeyRole, KeyUserID} {
		if !strings.Contains(string(data), key+":") {
			t.Errorf("expected key %q in session file, got:\n%s", key, data)
		}
	}
}

func TestSessionStore_FilePermissions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.yaml")
	if err := NewSessionStore(path).Save(SessionValues{Token: "t"}); err != nil {
		t.Fatalf("save: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("expected mode 0600, got %o", perm)
	}
}

func TestSessionStore_ClearRemovesAllValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.yaml")
	store := NewSessionStore(path)
	if err := store.Save(SessionValues{Token: "t", Role: "Admin", UserID: "u"}); err != nil {
		t.Fatalf("save: %v", err)
	}

	if err := store.Clear(); err != nil {
		t.Fatalf("clear: %v", err)
	}
	values, err := store.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !values.IsZero() {
		t.Errorf("expected cleared session, got %+v", values)
	}

	// Clearing twice is fine.
	if err := store.Clear(); err != nil {
		t.Errorf("second clear: %v", err)
	}
}

func TestSessionStore_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.yaml")
	if err := os.WriteFile(path, []byte("pm_token: [unterminated"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := NewSessionStore(path).Load(); err == nil {
		t.Fatal("expected error for corrupt session file")
	}
}
