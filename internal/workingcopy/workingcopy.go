// Package workingcopy implements the Working-Copy Manager:
// it stages an arbitrary input file into a uniquely named, comma-delimited,
// LF-terminated, UTF-8 sibling file, and guarantees that the staged copy is
// removed on every exit path unless explicitly promoted.
package workingcopy

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/corpusvault/corpusvault/internal/normalize"
)

// Manager stages input files into a working directory. SecureDelete, when
// set, overwrites a working copy's bytes with zeros before unlinking it,
// an opt-in behavior rather than the default.
type Manager struct {
	Dir          string
	SecureDelete bool
}

// New returns a Manager rooted at dir. If dir is empty, os.TempDir() is used.
func New(dir string, secureDelete bool) *Manager {
	if dir == "" {
		dir = os.TempDir()
	}
	return &Manager{Dir: dir, SecureDelete: secureDelete}
}

// WorkingCopy is a staged, scoped resource. Call Close to release it: if it
// has not been Promote-d, its file is deleted (optionally securely).
type WorkingCopy struct {
	Path     string
	manager  *Manager
	promoted bool
}

// Stage copies src's delimited content into a new working copy, normalizing
// it to comma-delimited LF-terminated UTF-8. srcDelimiter selects the
// source's field delimiter for CSV/TSV/PSV inputs; for JSON/XML inputs pass
// rows produced by the Format Normalizer instead via StageRows.
func (m *Manager) Stage(src string, srcDelimiter rune) (*WorkingCopy, error) {
	name := uuid.New().String() + filepath.Ext(src)
	dst := filepath.Join(m.Dir, name)

	in, err := os.Open(src)
	if err != nil {
		return nil, fmt.Errorf("opening source %s: %w", src, err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return nil, fmt.Errorf("creating working copy %s: %w", dst, err)
	}

	if srcDelimiter == ',' {
		if _, err := io.Copy(out, in); err != nil {
			out.Close()
			os.Remove(dst)
			return nil, fmt.Errorf("copying %s: %w", src, err)
		}
	} else {
		if err := redelimit(in, out, srcDelimiter); err != nil {
			out.Close()
			os.Remove(dst)
			return nil, fmt.Errorf("re-delimiting %s: %w", src, err)
		}
	}

	if err := out.Close(); err != nil {
		os.Remove(dst)
		return nil, fmt.Errorf("closing working copy %s: %w", dst, err)
	}

	return &WorkingCopy{Path: dst, manager: m}, nil
}

// StageRows writes rows (as produced by the Format Normalizer for JSON/XML
// sources) out as a comma-delimited working copy.
func (m *Manager) StageRows(ext string, header []string, rows <-chan normalize.Row) (*WorkingCopy, error) {
	name := uuid.New().String() + ext
	dst := filepath.Join(m.Dir, name)

	out, err := os.Create(dst)
	if err != nil {
		return nil, fmt.Errorf("creating working copy %s: %w", dst, err)
	}

	w := csv.NewWriter(out)
	if header != nil {
		if err := w.Write(header); err != nil {
			out.Close()
			os.Remove(dst)
			return nil, fmt.Errorf("writing header: %w", err)
		}
	}
	for row := range rows {
		if row.Err != nil {
			continue
		}
		if err := w.Write(row.Fields); err != nil {
			out.Close()
			os.Remove(dst)
			return nil, fmt.Errorf("writing row %d: %w", row.Index, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		out.Close()
		os.Remove(dst)
		return nil, fmt.Errorf("flushing working copy: %w", err)
	}
	if err := out.Close(); err != nil {
		os.Remove(dst)
		return nil, fmt.Errorf("closing working copy %s: %w", dst, err)
	}

	return &WorkingCopy{Path: dst, manager: m}, nil
}

// Promote marks the working copy as archived so Close does not delete it.
func (wc *WorkingCopy) Promote() {
	wc.promoted = true
}

// Close releases the working copy. Unless Promote was called, the file is
// removed, optionally securely, per the owning Manager's SecureDelete flag.
func (wc *WorkingCopy) Close() error {
	if wc.promoted {
		return nil
	}
	if wc.manager.SecureDelete {
		if err := secureDelete(wc.Path); err != nil {
			return err
		}
		return nil
	}
	if err := os.Remove(wc.Path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing working copy %s: %w", wc.Path, err)
	}
	return nil
}

// redelimit streams src (delimited by srcDelimiter) into dst as RFC 4180
// comma-delimited output, preserving quoting, doubled-quote escapes, and
// embedded newlines inside quoted fields.
func redelimit(src io.Reader, dst io.Writer, srcDelimiter rune) error {
	r := csv.NewReader(bufio.NewReader(src))
	r.Comma = srcDelimiter
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	w := csv.NewWriter(dst)
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("reading record: %w", err)
		}
		if err := w.Write(record); err != nil {
			return fmt.Errorf("writing record: %w", err)
		}
	}
	w.Flush()
	return w.Error()
}

// secureDelete overwrites path's contents with zeros before unlinking it.
func secureDelete(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("stat %s: %w", path, err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY, 0)
	if err != nil {
		return fmt.Errorf("opening %s for secure delete: %w", path, err)
	}

	zeros := make([]byte, 32*1024)
	remaining := info.Size()
	for remaining > 0 {
		n := int64(len(zeros))
		if remaining < n {
			n = remaining
		}
		if _, err := f.Write(zeros[:n]); err != nil {
			f.Close()
			return fmt.Errorf("zeroing %s: %w", path, err)
		}
		remaining -= n
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("syncing %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", path, err)
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing %s: %w", path, err)
	}
	return nil
}
