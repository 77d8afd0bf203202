package articles

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"
)

// Column order of the persisted table. Readers of the file (the dashboard
// and exporters) depend on these names.
var columns = []string{
	"url", "title", "section", "description",
	"published_date", "source", "is_own_site", "timestamp",
}

// Store persists the article table as a single CSV file. The whole table is
// read at run start and rewritten at run end; writes go through a temp file
// and rename so a failed run never leaves a torn table behind.
type Store struct {
	path string
	mu   sync.Mutex
}

// NewStore creates a store for the given CSV path, creating the parent
// directory if needed.
func NewStore(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	return &Store{path: path}, nil
}

// Path returns the location of the CSV file.
func (s *Store) Path() string { return s.path }

// Load reads the full table into memory. A missing file is an empty table,
// not an error.
func (s *Store) Load() (Table, error) {
	f, err := os.Open(s.path)
	if os.IsNotExist(err) {
		return Table{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = len(columns)

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read store: %w", err)
	}
	if len(records) == 0 {
		return Table{}, nil
	}

	table := make(Table, 0, len(records)-1)
	for _, rec := range records[1:] { // skip header
		table = append(table, fromRecord(rec))
	}
	return table, nil
}

// Save rewrites the whole table atomically.
func (s *Store) Save(table Table) error {
	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".articles-*.csv")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	writer := csv.NewWriter(tmp)
	if err := writer.Write(columns); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write header: %w", err)
	}
	for i := range table {
		if err := writer.Write(toRecord(&table[i])); err != nil {
			tmp.Close()
			os.Remove(tmpName)
			return fmt.Errorf("failed to write row: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to flush store: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace store: %w", err)
	}
	return nil
}

// MergeAndSave loads the current table, merges the batch first-seen-wins,
// and writes the result back. The store mutex serializes merges so two runs
// finishing together cannot lose each other's rows. Returns how many rows
// the batch actually added.
func (s *Store) MergeAndSave(batch Table) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.Load()
	if err != nil {
		return 0, err
	}

	merged := Merge(existing, batch)
	added := len(merged) - len(existing)
	if added == 0 && len(existing) > 0 {
		// Nothing new; keep the file untouched.
		return 0, nil
	}

	if err := s.Save(merged); err != nil {
		return 0, err
	}
	return added, nil
}

func toRecord(a *Article) []string {
	published := ""
	if a.PublishedDate != nil {
		published = a.PublishedDate.Format(time.RFC3339)
	}
	timestamp := ""
	if !a.Timestamp.IsZero() {
		timestamp = a.Timestamp.Format(time.RFC3339)
	}
	return []string{
		a.URL,
		a.Title,
		a.Section,
		a.Description,
		published,
		a.Source,
		strconv.FormatBool(a.IsOwnSite),
		timestamp,
	}
}

func fromRecord(rec []string) Article {
	a := Article{
		URL:         rec[0],
		Title:       rec[1],
		Section:     rec[2],
		Description: rec[3],
		Source:      rec[5],
	}
	if rec[4] != "" {
		if t, err := time.Parse(time.RFC3339, rec[4]); err == nil {
			a.PublishedDate = &t
		}
	}
	a.IsOwnSite, _ = strconv.ParseBool(rec[6])
	if rec[7] != "" {
		if t, err := time.Parse(time.RFC3339, rec[7]); err == nil {
			a.Timestamp = t
		}
	}
	return a
}
