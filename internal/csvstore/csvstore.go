// Package csvstore keeps the flat single-file item list used before the
// SQLite store: one items.csv with header id,name,description,contact_info,
// rewritten in full on every save.
package csvstore

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/CangTianYi/CS3331/internal/model"
)

// Headers is the required header row.
var Headers = []string{"id", "name", "description", "contact_info"}

// utf8BOM is written by some spreadsheet tools ahead of the header.
const utf8BOM = "\ufeff"

// Item is one flat record.
type Item struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	ContactInfo string `json:"contact_info"`
}

// Store is an in-memory copy of the CSV file. It is not safe for concurrent
// use.
type Store struct {
	path  string
	items []Item
}

// Open loads the file at path, creating it with a header row when missing.
// A file with a different header is rejected and left as it is.
func Open(path string) (*Store, error) {
	s := &Store{path: path}
	if err := s.Load(); err != nil {
		return nil, err
	}
	return s, nil
}

// Path returns the backing file path.
func (s *Store) Path() string {
	return s.path
}

// Load replaces the in-memory list with the file contents.
func (s *Store) Load() error {
	s.items = nil

	f, err := os.Open(s.path)
	if errors.Is(err, os.ErrNotExist) {
		slog.Info("csv data file not found, creating", "path", s.path)
		return s.Save()
	}
	if err != nil {
		slog.Error("failed to open csv data file", "path", s.path, "error", err)
		return fmt.Errorf("%w: opening %s: %w", model.ErrIO, s.path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil && !errors.Is(err, io.EOF) {
		slog.Error("failed to read csv header", "path", s.path, "error", err)
		return fmt.Errorf("%w: reading header: %w", model.ErrIO, err)
	}
	if len(header) == 0 {
		slog.Info("csv data file empty, writing header", "path", s.path)
		return s.Save()
	}
	header[0] = strings.TrimPrefix(header[0], utf8BOM)
	if !slices.Equal(header, Headers) {
		slog.Error("csv header mismatch, leaving file untouched", "path", s.path, "header", header)
		return fmt.Errorf("%w: %s has header %v, want %v", model.ErrValidation, s.path, header, Headers)
	}

	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			slog.Error("failed to read csv record", "path", s.path, "error", err)
			return fmt.Errorf("%w: reading record: %w", model.ErrIO, err)
		}
		s.items = append(s.items, fromRecord(rec))
	}
	return nil
}

func fromRecord(rec []string) Item {
	field := func(i int) string {
		if i < len(rec) {
			return rec[i]
		}
		return ""
	}
	return Item{ID: field(0), Name: field(1), Description: field(2), ContactInfo: field(3)}
}

// Save rewrites the whole file from memory. It writes a temporary file in
// the same directory and renames it over the original.
func (s *Store) Save() error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("%w: creating data dir: %w", model.ErrIO, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		slog.Error("failed to save csv data", "path", s.path, "error", err)
		return fmt.Errorf("%w: creating temp file: %w", model.ErrIO, err)
	}
	defer os.Remove(tmp.Name())

	w := csv.NewWriter(tmp)
	w.Write(Headers)
	for _, it := range s.items {
		w.Write([]string{it.ID, it.Name, it.Description, it.ContactInfo})
	}
	w.Flush()
	if err := w.Error(); err != nil {
		tmp.Close()
		slog.Error("failed to save csv data", "path", s.path, "error", err)
		return fmt.Errorf("%w: writing csv: %w", model.ErrIO, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: closing temp file: %w", model.ErrIO, err)
	}

	if err := os.Rename(tmp.Name(), s.path); err != nil {
		slog.Error("failed to save csv data", "path", s.path, "error", err)
		return fmt.Errorf("%w: replacing %s: %w", model.ErrIO, s.path, err)
	}
	return nil
}

// All returns a copy of every item in file order.
func (s *Store) All() []Item {
	return slices.Clone(s.items)
}

// Add appends a new item with a random hex id and persists the file.
func (s *Store) Add(name, description, contactInfo string) (Item, error) {
	if strings.TrimSpace(name) == "" {
		return Item{}, fmt.Errorf("%w: name required", model.ErrValidation)
	}

	it := Item{
		ID:          strings.ReplaceAll(uuid.NewString(), "-", ""),
		Name:        name,
		Description: description,
		ContactInfo: contactInfo,
	}
	s.items = append(s.items, it)
	if err := s.Save(); err != nil {
		return it, err
	}
	return it, nil
}

// Delete removes the item with id and persists the file. It reports false
// when no item matched.
func (s *Store) Delete(id string) (bool, error) {
	i := slices.IndexFunc(s.items, func(it Item) bool { return it.ID == id })
	if i < 0 {
		return false, nil
	}
	s.items = slices.Delete(s.items, i, i+1)
	return true, s.Save()
}

// Search returns items whose name or description contains keyword, ignoring
// case. An empty keyword returns every item.
func (s *Store) Search(keyword string) []Item {
	if keyword == "" {
		return s.All()
	}

	kw := strings.ToLower(keyword)
	var out []Item
	for _, it := range s.items {
		if strings.Contains(strings.ToLower(it.Name), kw) ||
			strings.Contains(strings.ToLower(it.Description), kw) {
			out = append(out, it)
		}
	}
	return out
}
