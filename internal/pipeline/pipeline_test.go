package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/corpusvault/corpusvault/internal/config"
	"github.com/corpusvault/corpusvault/internal/rainbow"
	"github.com/corpusvault/corpusvault/internal/store"
)

func newTestRunner(t *testing.T) (*Runner, *store.Store) {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	wordlistDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(wordlistDir, "common.txt"), []byte("password\n"), 0o644); err != nil {
		t.Fatalf("write wordlist: %v", err)
	}
	rt := rainbow.New(wordlistDir, store.NewRainbowAdapter(st))
	if _, err := rt.Sync(context.Background()); err != nil {
		t.Fatalf("rainbow sync: %v", err)
	}

	cfg := config.Default()
	cfg.WorkingCopy.Dir = t.TempDir()
	cfg.Pipeline.Workers = 2
	cfg.Pipeline.QueueSize = 8

	return NewRunner(st, rt, nil, cfg, nil), st
}

func TestRun_SimpleCSVIngestsIdentitiesCredentialsAndNPI(t *testing.T) {
	r, st := newTestRunner(t)

	dir := t.TempDir()
	src := filepath.Join(dir, "leak.csv")
	content := "email,password,phone\n" +
		"John.Doe@GMAIL.com,password,+14155552671\n" +
		"jane@example.com,hunter2,+442083661177\n"
	if err := os.WriteFile(src, []byte(content), 0o644); err != nil {
		t.Fatalf("write src: %v", err)
	}

	summary, err := r.Run(context.Background(), src, "", "")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if summary.RowsProcessed != 2 {
		t.Errorf("expected 2 rows processed, got %d", summary.RowsProcessed)
	}
	if summary.UniqueAddresses != 2 {
		t.Errorf("expected 2 unique addresses, got %d", summary.UniqueAddresses)
	}
	if summary.WeakPasswordsFound != 1 {
		t.Errorf("expected 1 weak password (rainbow hit on 'password'), got %d", summary.WeakPasswordsFound)
	}
	if summary.Metadata.Reingested {
		t.Error("expected first ingest to not be marked reingested")
	}

	var identityCount int
	st.DB().QueryRow(`SELECT count(*) FROM identities`).Scan(&identityCount)
	if identityCount != 2 {
		t.Errorf("expected 2 identity rows, got %d", identityCount)
	}

	var credCount int
	st.DB().QueryRow(`SELECT count(*) FROM credentials`).Scan(&credCount)
	if credCount != 2 {
		t.Errorf("expected 2 credential rows, got %d", credCount)
	}
}

func TestRun_ReingestSameFileDoesNotDuplicateDump(t *testing.T) {
	r, st := newTestRunner(t)

	dir := t.TempDir()
	src := filepath.Join(dir, "leak.csv")
	content := "email,password\nalice@example.com,hunter2\n"
	if err := os.WriteFile(src, []byte(content), 0o644); err != nil {
		t.Fatalf("write src: %v", err)
	}

	first, err := r.Run(context.Background(), src, "", "")
	if err != nil {
		t.Fatalf("first Run: %v", err)
	}

	second, err := r.Run(context.Background(), src, "", "")
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if !second.Metadata.Reingested {
		t.Error("expected second ingest to be marked reingested")
	}
	if second.RowsProcessed != 0 {
		t.Errorf("expected re-ingest to process no new rows, got %d", second.RowsProcessed)
	}
	if first.Metadata.DumpID != second.Metadata.DumpID {
		t.Errorf("expected stable dump id, got %d and %d", first.Metadata.DumpID, second.Metadata.DumpID)
	}

	var dumpCount int
	st.DB().QueryRow(`SELECT count(*) FROM dumps`).Scan(&dumpCount)
	if dumpCount != 1 {
		t.Fatalf("expected exactly one dump row after re-ingest, got %d", dumpCount)
	}
}

func TestRun_RejectsEmptyFile(t *testing.T) {
	r, _ := newTestRunner(t)
	dir := t.TempDir()
	src := filepath.Join(dir, "empty.csv")
	if err := os.WriteFile(src, []byte{}, 0o644); err != nil {
		t.Fatalf("write src: %v", err)
	}

	_, err := r.Run(context.Background(), src, "", "")
	if err == nil {
		t.Fatal("expected an error for an empty file")
	}
}

func TestHintForHeader_RecognizesCommonColumnNames(t *testing.T) {
	cases := map[string]string{
		"Email Address":  "user_identity",
		"password":       "credential",
		"password_hash":  "secure_credential",
		"user_id":        "user_record_number",
		"favorite_color": "other",
	}
	for header, want := range cases {
		got := string(HintForHeader(header))
		if got != want {
			t.Errorf("HintForHeader(%q) = %q, want %q", header, got, want)
		}
	}
}
