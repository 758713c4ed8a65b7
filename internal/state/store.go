package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Store persists component state as JSON files under a single directory.
// Saves are atomic at the filesystem level: the payload is written to a
// temporary file and renamed over the target, so a crash mid-write never
// leaves a corrupt state file behind.
type Store struct {
	stateDir string
	mu       sync.Mutex
}

// NewStore creates a store rooted at stateDir, creating the directory if
// needed.
func NewStore(stateDir string) (*Store, error) {
	if err := os.MkdirAll(stateDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create state directory: %w", err)
	}
	return &Store{stateDir: stateDir}, nil
}

// Dir returns the directory the store writes into.
func (s *Store) Dir() string {
	return s.stateDir
}

// Path returns the on-disk path for a named state file.
func (s *Store) Path(name string) string {
	return filepath.Join(s.stateDir, name+".json")
}

// Save writes v as indented JSON to the named state file, keeping a backup
// of the previous version.
func (s *Store) Save(name string, v interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stateFile := s.Path(name)
	backupFile := filepath.Join(s.stateDir, name+"_backup.json")

	if _, err := os.Stat(stateFile); err == nil {
		if err := copyFile(stateFile, backupFile); err != nil {
			// Backup failure is not fatal; the atomic rename below still
			// protects the primary file.
			fmt.Fprintf(os.Stderr, "state: failed to back up %s: %v\n", stateFile, err)
		}
	}

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	tempFile := stateFile + ".tmp"
	if err := os.WriteFile(tempFile, data, 0644); err != nil {
		return fmt.Errorf("failed to write temp state file: %w", err)
	}

	if err := os.Rename(tempFile, stateFile); err != nil {
		return fmt.Errorf("failed to move state file: %w", err)
	}

	return nil
}

// Load reads the named state file into v. It returns os.ErrNotExist when no
// state has been persisted yet; callers treat that as a clean start.
func (s *Store) Load(name string, v interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stateFile := s.Path(name)

	data, err := os.ReadFile(stateFile)
	if err != nil {
		if os.IsNotExist(err) {
			return os.ErrNotExist
		}
		return fmt.Errorf("failed to read state file: %w", err)
	}

	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to parse state file: %w", err)
	}

	return nil
}

// Exists reports whether the named state file is present on disk.
func (s *Store) Exists(name string) bool {
	_, err := os.Stat(s.Path(name))
	return err == nil
}

// AppendLog appends v as a single JSON line to the named .jsonl log file.
// Append logs are observational; failures are returned but callers are
// expected to degrade them to warnings.
func (s *Store) AppendLog(name string, v interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	logPath := filepath.Join(s.stateDir, name+".jsonl")
	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer file.Close()

	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal log record: %w", err)
	}

	if _, err := file.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to append log record: %w", err)
	}

	return nil
}

func copyFile(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	return os.WriteFile(dst, data, 0644)
}
