package rainbow

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/corpusvault/corpusvault/internal/hashkit"
)

type memStore struct {
	entries map[string]bool
	seeds   map[string]string
}

func newMemStore() *memStore {
	return &memStore{entries: map[string]bool{}, seeds: map[string]string{}}
}

func (m *memStore) InsertEntries(ctx context.Context, entries []Entry) error {
	for _, e := range entries {
		m.entries[e.Hash] = true
	}
	return nil
}

func (m *memStore) IsWeak(ctx context.Context, hash string) (bool, error) {
	return m.entries[hash], nil
}

func (m *memStore) SeedSignature(ctx context.Context, fileName string) (string, bool, error) {
	sig, ok := m.seeds[fileName]
	return sig, ok, nil
}

func (m *memStore) RecordSeed(ctx context.Context, fileName, signature string) error {
	m.seeds[fileName] = signature
	return nil
}

func (m *memStore) RemoveSeed(ctx context.Context, fileName string) error {
	delete(m.seeds, fileName)
	return nil
}

func (m *memStore) ListSeeds(ctx context.Context) (map[string]string, error) {
	out := make(map[string]string, len(m.seeds))
	for k, v := range m.seeds {
		out[k] = v
	}
	return out, nil
}

func TestSync_BuildsEntriesFromWordlist(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "common.txt"), []byte("password\n# comment\n\nletmein\n"), 0o644); err != nil {
		t.Fatalf("write wordlist: %v", err)
	}

	store := newMemStore()
	tbl := New(dir, store)
	rebuilt, err := tbl.Sync(context.Background())
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if len(rebuilt) != 1 || rebuilt[0] != "common.txt" {
		t.Fatalf("expected common.txt rebuilt, got %v", rebuilt)
	}

	md5pw := hashkit.String(hashkit.AlgorithmMD5, "password")
	weak, err := tbl.IsWeak(context.Background(), md5pw)
	if err != nil {
		t.Fatalf("IsWeak: %v", err)
	}
	if !weak {
		t.Fatal("expected md5(password) to be weak")
	}
}

func TestSync_SkipsUnchangedFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "list.txt")
	os.WriteFile(path, []byte("hunter2\n"), 0o644)

	store := newMemStore()
	tbl := New(dir, store)
	if _, err := tbl.Sync(context.Background()); err != nil {
		t.Fatalf("first sync: %v", err)
	}

	rebuilt, err := tbl.Sync(context.Background())
	if err != nil {
		t.Fatalf("second sync: %v", err)
	}
	if len(rebuilt) != 0 {
		t.Fatalf("expected no rebuild on unchanged file, got %v", rebuilt)
	}
}

func TestSync_RebuildsOnContentChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "list.txt")
	os.WriteFile(path, []byte("hunter2\n"), 0o644)

	store := newMemStore()
	tbl := New(dir, store)
	tbl.Sync(context.Background())

	os.WriteFile(path, []byte("hunter3\n"), 0o644)
	rebuilt, err := tbl.Sync(context.Background())
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if len(rebuilt) != 1 {
		t.Fatalf("expected rebuild on changed content, got %v", rebuilt)
	}
}

func TestSync_RemovesSeedForDeletedFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "list.txt")
	os.WriteFile(path, []byte("hunter2\n"), 0o644)

	store := newMemStore()
	tbl := New(dir, store)
	tbl.Sync(context.Background())

	os.Remove(path)
	tbl.Sync(context.Background())

	if _, ok := store.seeds["list.txt"]; ok {
		t.Fatal("expected seed to be removed for deleted wordlist")
	}
}

func TestLMHash_KnownVector(t *testing.T) {
	const want = "cd06ca7c7e10c99baad3b435b51404ee"
	got := lmHash("password")
	if got != want {
		t.Fatalf("lmHash(%q) = %q, want %q", "password", got, want)
	}
}

func TestMySQLOldHash_Deterministic(t *testing.T) {
	a := mysqlOldHash("hunter2")
	b := mysqlOldHash("hunter2")
	if a != b {
		t.Fatalf("expected deterministic hash, got %q vs %q", a, b)
	}
	if len(a) != 16 {
		t.Fatalf("expected 16 hex chars, got %d", len(a))
	}
}
