package workingcopy

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestStage_CSVByteCopy(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "in.csv")
	if err := os.WriteFile(src, []byte("a,b\n1,2\n"), 0o644); err != nil {
		t.Fatalf("write src: %v", err)
	}

	m := New(dir, false)
	wc, err := m.Stage(src, ',')
	if err != nil {
		t.Fatalf("Stage: %v", err)
	}
	defer wc.Close()

	data, err := os.ReadFile(wc.Path)
	if err != nil {
		t.Fatalf("read working copy: %v", err)
	}
	if string(data) != "a,b\n1,2\n" {
		t.Errorf("expected byte-identical copy, got %q", data)
	}
}

func TestStage_TSVRedelimitedToComma(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "in.tsv")
	if err := os.WriteFile(src, []byte("a\tb\n1\t2\n"), 0o644); err != nil {
		t.Fatalf("write src: %v", err)
	}

	m := New(dir, false)
	wc, err := m.Stage(src, '\t')
	if err != nil {
		t.Fatalf("Stage: %v", err)
	}
	defer wc.Close()

	data, err := os.ReadFile(wc.Path)
	if err != nil {
		t.Fatalf("read working copy: %v", err)
	}
	if !strings.Contains(string(data), "a,b") {
		t.Errorf("expected comma-delimited output, got %q", data)
	}
}

func TestClose_RemovesUnpromotedWorkingCopy(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "in.csv")
	os.WriteFile(src, []byte("a,b\n1,2\n"), 0o644)

	m := New(dir, false)
	wc, err := m.Stage(src, ',')
	if err != nil {
		t.Fatalf("Stage: %v", err)
	}
	path := wc.Path
	if err := wc.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("expected working copy to be removed, stat err = %v", err)
	}
}

func TestClose_PromotedFileSurvives(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "in.csv")
	os.WriteFile(src, []byte("a,b\n1,2\n"), 0o644)

	m := New(dir, false)
	wc, err := m.Stage(src, ',')
	if err != nil {
		t.Fatalf("Stage: %v", err)
	}
	wc.Promote()
	path := wc.Path
	if err := wc.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("expected promoted working copy to survive, got %v", err)
	}
	os.Remove(path)
}

func TestClose_SecureDeleteZeroesBeforeUnlink(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "in.csv")
	os.WriteFile(src, []byte("a,b\n1,2\n"), 0o644)

	m := New(dir, true)
	wc, err := m.Stage(src, ',')
	if err != nil {
		t.Fatalf("Stage: %v", err)
	}
	path := wc.Path
	if err := wc.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("expected secure-deleted working copy to be removed, stat err = %v", err)
	}
}
