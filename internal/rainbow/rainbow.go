// Package rainbow implements the rainbow table: a
// wordlist-directory-backed set of precomputed hash rows with
// signature-driven incremental rebuild, with an fsnotify + debounce
// watcher for triggering resyncs on wordlist-directory changes.
package rainbow

import (
	"bufio"
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/corpusvault/corpusvault/internal/hashkit"
)

// HashAlgo is one of the rainbow entry algorithms.
type HashAlgo string

// Recognised rainbow hash algorithms. LM and MySQL_Old are implemented
// alongside the required five so that no member of the closed hash_algo
// set is ever left dead.
const (
	AlgoMD5      HashAlgo = "MD5"
	AlgoSHA1     HashAlgo = "SHA1"
	AlgoSHA256   HashAlgo = "SHA256"
	AlgoSHA512   HashAlgo = "SHA512"
	AlgoNTLM     HashAlgo = "NTLM"
	AlgoLM       HashAlgo = "LM"
	AlgoMySQLOld HashAlgo = "MySQL_Old"
)

// Entry is one (hash_algo, hash_value) row.
type Entry struct {
	Algo HashAlgo
	Hash string
}

// Store persists and looks up rainbow entries and per-file signatures.
// It is satisfied by the Persistence Core's rainbow/seed tables.
type Store interface {
	InsertEntries(ctx context.Context, entries []Entry) error
	IsWeak(ctx context.Context, hash string) (bool, error)
	SeedSignature(ctx context.Context, fileName string) (signature string, found bool, err error)
	RecordSeed(ctx context.Context, fileName, signature string) error
	RemoveSeed(ctx context.Context, fileName string) error
	ListSeeds(ctx context.Context) (map[string]string, error)
}

// Table coordinates wordlist-directory scanning and rebuilds against a Store.
type Table struct {
	dir   string
	store Store
}

// New returns a Table backed by the *.txt wordlists in dir.
func New(dir string, store Store) *Table {
	return &Table{dir: dir, store: store}
}

// Sync scans the wordlist directory and rebuilds any file whose MD5
// signature changed or that was newly added. For a tracked file that is
// gone, only its seed record is removed; the hashes built from it stay in
// the table. It returns the list of file names that were (re)built.
func (t *Table) Sync(ctx context.Context) ([]string, error) {
	current, err := scanSignatures(t.dir)
	if err != nil {
		return nil, fmt.Errorf("scanning wordlist dir %s: %w", t.dir, err)
	}

	tracked, err := t.store.ListSeeds(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing seed signatures: %w", err)
	}

	var rebuilt []string

	for name, sig := range current {
		if oldSig, ok := tracked[name]; ok && oldSig == sig {
			continue
		}
		if err := t.rebuildFile(ctx, filepath.Join(t.dir, name), name, sig); err != nil {
			return rebuilt, fmt.Errorf("rebuilding %s: %w", name, err)
		}
		rebuilt = append(rebuilt, name)
	}

	for name := range tracked {
		if _, ok := current[name]; !ok {
			if err := t.store.RemoveSeed(ctx, name); err != nil {
				return rebuilt, fmt.Errorf("removing stale seed %s: %w", name, err)
			}
		}
	}

	return rebuilt, nil
}

func (t *Table) rebuildFile(ctx context.Context, path, name, signature string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	entries, err := buildEntries(f)
	if err != nil {
		return fmt.Errorf("building entries from %s: %w", path, err)
	}
	if len(entries) > 0 {
		if err := t.store.InsertEntries(ctx, entries); err != nil {
			return fmt.Errorf("inserting entries from %s: %w", path, err)
		}
	}
	return t.store.RecordSeed(ctx, name, signature)
}

// buildEntries streams lines from r, skipping empty lines and comments
// (leading '#'), and emits MD5/SHA1/SHA256/SHA512/NTLM/LM/MySQL_Old rows
// for every surviving line.
func buildEntries(r io.Reader) ([]Entry, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var entries []Entry
	for scanner.Scan() {
		line := strings.TrimSpace(lossyUTF8(scanner.Bytes()))
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		entries = append(entries,
			Entry{Algo: AlgoMD5, Hash: hashkit.String(hashkit.AlgorithmMD5, line)},
			Entry{Algo: AlgoSHA1, Hash: hashkit.String(hashkit.AlgorithmSHA1, line)},
			Entry{Algo: AlgoSHA256, Hash: hashkit.String(hashkit.AlgorithmSHA256, line)},
			Entry{Algo: AlgoSHA512, Hash: hashkit.String(hashkit.AlgorithmSHA512, line)},
			Entry{Algo: AlgoNTLM, Hash: hashkit.NTLM(line)},
			Entry{Algo: AlgoLM, Hash: lmHash(line)},
			Entry{Algo: AlgoMySQLOld, Hash: mysqlOldHash(line)},
		)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

func lossyUTF8(b []byte) string {
	return strings.ToValidUTF8(string(b), "")
}

func scanSignatures(dir string) (map[string]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, err
	}
	out := map[string]string{}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(strings.ToLower(e.Name()), ".txt") {
			continue
		}
		sig, err := fileMD5(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, err
		}
		out[e.Name()] = sig
	}
	return out, nil
}

func fileMD5(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h := md5.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// IsWeak reports whether hash is present in the rainbow table under any
// algorithm (exact match only).
func (t *Table) IsWeak(ctx context.Context, hash string) (bool, error) {
	return t.store.IsWeak(ctx, hash)
}

// Watch triggers a debounced Sync whenever the wordlist directory
// changes. The rebuild decision inside Sync is still driven by MD5
// signature comparison, not by the fsnotify event itself; the watcher
// only decides when to re-check.
func (t *Table) Watch(ctx context.Context, debounce time.Duration, onRebuilt func([]string)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(t.dir); err != nil {
		return fmt.Errorf("watching %s: %w", t.dir, err)
	}

	var timer *time.Timer
	resetTimer := func() {
		if timer != nil {
			timer.Stop()
		}
		timer = time.AfterFunc(debounce, func() {
			rebuilt, err := t.Sync(ctx)
			if err == nil && onRebuilt != nil {
				onRebuilt(rebuilt)
			}
		})
	}

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
				resetTimer()
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("watcher error: %w", err)
		}
	}
}
