// Package journal keeps a local history of settlement attempts.
package journal

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/mrz1836/idealink/internal/fileutil"
	"github.com/mrz1836/idealink/internal/settlement"
)

const (
	// DefaultMaxEntries bounds the number of attempts kept on disk.
	DefaultMaxEntries = 200

	// journalFilePermissions is the permission mode for the journal file.
	journalFilePermissions = 0o600

	fileName = "attempts.json"
)

// ErrCorruptJournal indicates the journal file is malformed JSON.
var ErrCorruptJournal = errors.New("journal file is corrupted")

// Compile-time interface check
var _ settlement.Journal = (*Store)(nil)

// Filter selects attempts in List. Zero values match everything.
type Filter struct {
	Operation settlement.Operation
	IdeaRef   string
	Failed    bool
	Limit     int
}

func (f Filter) match(a settlement.Attempt) bool {
	if f.Operation != "" && a.Operation != f.Operation {
		return false
	}
	if f.IdeaRef != "" && a.IdeaRef != f.IdeaRef {
		return false
	}
	if f.Failed && a.FailureKind == "" {
		return false
	}
	return true
}

// file is the on-disk layout.
type file struct {
	Attempts []settlement.Attempt `json:"attempts"`
}

// Store is a file-backed journal. Attempts are kept oldest first and the
// oldest are dropped once MaxEntries is exceeded.
type Store struct {
	mu         sync.Mutex
	path       string
	maxEntries int
}

// New creates a Store in dir, typically <home>/journal.
func New(dir string) *Store {
	return NewWithLimit(dir, DefaultMaxEntries)
}

// NewWithLimit creates a Store keeping at most maxEntries attempts.
func NewWithLimit(dir string, maxEntries int) *Store {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	return &Store{path: filepath.Join(dir, fileName), maxEntries: maxEntries}
}

// Path returns the journal file path.
func (s *Store) Path() string {
	return s.path
}

// Record appends a to the journal. Recording an attempt ID that is already
// present replaces the earlier entry.
func (s *Store) Record(a settlement.Attempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.load()
	if err != nil && !errors.Is(err, ErrCorruptJournal) {
		return err
	}

	replaced := false
	for i := range f.Attempts {
		if f.Attempts[i].ID == a.ID {
			f.Attempts[i] = a
			replaced = true
			break
		}
	}
	if !replaced {
		f.Attempts = append(f.Attempts, a)
	}
	if over := len(f.Attempts) - s.maxEntries; over > 0 {
		f.Attempts = append([]settlement.Attempt(nil), f.Attempts[over:]...)
	}

	if err := fileutil.WriteJSON(s.path, f, journalFilePermissions); err != nil {
		return fmt.Errorf("writing journal: %w", err)
	}
	return nil
}

// List returns matching attempts, newest first. A corrupt journal is moved
// aside; the returned error wraps ErrCorruptJournal and the list is empty.
func (s *Store) List(filter Filter) ([]settlement.Attempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.load()
	if err != nil {
		return nil, err
	}

	out := make([]settlement.Attempt, 0, len(f.Attempts))
	for i := len(f.Attempts) - 1; i >= 0; i-- {
		if !filter.match(f.Attempts[i]) {
			continue
		}
		out = append(out, f.Attempts[i])
		if filter.Limit > 0 && len(out) == filter.Limit {
			break
		}
	}
	return out, nil
}

// Get returns the attempt with the given ID.
func (s *Store) Get(id string) (settlement.Attempt, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.load()
	if err != nil {
		return settlement.Attempt{}, false, err
	}
	for _, a := range f.Attempts {
		if a.ID == id {
			return a, true, nil
		}
	}
	return settlement.Attempt{}, false, nil
}

// Clear removes the journal file.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing journal: %w", err)
	}
	return nil
}

func (s *Store) load() (file, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return file{}, nil
	}
	if err != nil {
		return file{}, fmt.Errorf("reading journal: %w", err)
	}

	var f file
	if err := json.Unmarshal(data, &f); err != nil {
		moved, moveErr := fileutil.MoveAside(s.path)
		if moveErr != nil {
			return file{}, fmt.Errorf("%w: %w (also failed to move file: %w)", ErrCorruptJournal, err, moveErr)
		}
		return file{}, fmt.Errorf("%w: %w (moved to %s)", ErrCorruptJournal, err, moved)
	}
	return f, nil
}
