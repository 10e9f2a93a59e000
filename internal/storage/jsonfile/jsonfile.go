// Package jsonfile persists the ledger as a pretty-printed JSON array in a
// single file. Every save rewrites the whole file.
package jsonfile

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"expenses/internal/core"
	"expenses/internal/ledger"
)

const indent = "    "

// Store reads and writes the ledger file at Path.
type Store struct {
	path string
}

var _ ledger.Store = (*Store)(nil)

func New(path string) *Store {
	return &Store{path: path}
}

// Path returns the backing file path.
func (s *Store) Path() string {
	return s.path
}

// Load parses the ledger file. A missing file is an empty ledger.
func (s *Store) Load(ctx context.Context) ([]core.Expense, error) {
	b, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []core.Expense{}, nil
		}
		return nil, fmt.Errorf("read %s: %w", s.path, err)
	}
	records, err := Decode(b)
	if err != nil {
		slog.ErrorContext(ctx, "Ledger file is malformed", "path", s.path, "error", err)
		return nil, fmt.Errorf("%s: %w", s.path, err)
	}
	return records, nil
}

// Save writes records to a temp file next to the target and renames it
// over the target, so readers never observe a partial write.
func (s *Store) Save(ctx context.Context, records []core.Expense) error {
	b, err := Encode(records)
	if err != nil {
		return fmt.Errorf("%w: encode: %v", ledger.ErrPersist, err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("%w: create directory %s: %v", ledger.ErrPersist, dir, err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("%w: create temp file: %v", ledger.ErrPersist, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: write %s: %v", ledger.ErrPersist, tmpName, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: sync %s: %v", ledger.ErrPersist, tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: close %s: %v", ledger.ErrPersist, tmpName, err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("%w: chmod %s: %v", ledger.ErrPersist, tmpName, err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("%w: replace %s: %v", ledger.ErrPersist, s.path, err)
	}

	slog.DebugContext(ctx, "Ledger file written", "path", s.path, "records", len(records), "bytes", len(b))
	return nil
}

// Encode renders records in the on-disk layout: a JSON array indented with
// four spaces and terminated by a newline.
func Encode(records []core.Expense) ([]byte, error) {
	if records == nil {
		records = []core.Expense{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", indent)
	if err := enc.Encode(records); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decode parses and validates the on-disk layout. Any syntax error or
// invalid record yields ledger.ErrMalformed.
func Decode(b []byte) ([]core.Expense, error) {
	if len(bytes.TrimSpace(b)) == 0 {
		return []core.Expense{}, nil
	}
	var records []core.Expense
	if err := json.Unmarshal(b, &records); err != nil {
		return nil, fmt.Errorf("%w: %v", ledger.ErrMalformed, err)
	}
	if records == nil {
		records = []core.Expense{}
	}
	for i, e := range records {
		if err := e.ValidateStored(); err != nil {
			return nil, fmt.Errorf("%w: record %d: %v", ledger.ErrMalformed, i, err)
		}
	}
	return records, nil
}
