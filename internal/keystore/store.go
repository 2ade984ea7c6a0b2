package keystore

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Record is one discovered card key.
type Record struct {
	Port     string    `json:"port"`
	UID      string    `json:"uid"`
	Key      string    `json:"key"`
	Attempts uint64    `json:"attempts"`
	Duration string    `json:"duration"`
	FoundAt  time.Time `json:"foundAt"`
}

// Store provides thread-safe key persistence backed by a JSON file.
type Store struct {
	mu      sync.RWMutex
	path    string
	records []Record
}

// NewStore creates a Store that persists records to dataDir/keys.json.
// If the file does not exist or is invalid, the store starts empty.
func NewStore(dataDir string) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, err
	}
	s := &Store{path: filepath.Join(dataDir, "keys.json")}
	s.load()
	return s, nil
}

// NewMemoryStore creates a Store that keeps records in memory only (no file persistence).
func NewMemoryStore() *Store {
	return &Store{}
}

// Append adds a record and persists to disk.
func (s *Store) Append(rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, rec)
	return s.save()
}

// Records returns a copy of all stored records, oldest first.
func (s *Store) Records() []Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Record, len(s.records))
	copy(out, s.records)
	return out
}

func (s *Store) load() {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return // file missing is OK, start empty
	}
	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		slog.Warn("invalid key file, starting empty", "path", s.path, "err", err)
		return
	}
	s.records = records
}

func (s *Store) save() error {
	if s.path == "" {
		return nil // memory-only mode
	}
	data, err := json.MarshalIndent(s.records, "", "  ")
	if err != nil {
		return err
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, append(data, '\n'), 0644); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}
