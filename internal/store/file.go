package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"
)

// File is a key-value store persisted as a JSON file with 0600
// permissions. Every Set writes the file through; Get reads from the
// in-memory copy loaded on open.
type File struct {
	mu     sync.Mutex
	path   string
	values map[string]string
}

// OpenFile opens or creates a file-backed store at path. A missing file
// starts empty; an unreadable or corrupt file also starts empty, since
// local state is advisory and must never brick the host application.
func OpenFile(path string) (*File, error) {
	if path == "" {
		return nil, errors.New("state file path is required")
	}

	f := &File{
		path:   path,
		values: make(map[string]string),
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return f, nil
		}
		return nil, fmt.Errorf("read state file: %w", err)
	}

	if err := json.Unmarshal(data, &f.values); err != nil {
		f.values = make(map[string]string)
	}
	return f, nil
}

// Get returns the stored value for key.
func (f *File) Get(key string) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	value, ok := f.values[key]
	return value, ok
}

// Set stores value under key and writes the file.
func (f *File) Set(key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.values[key] = value

	data, err := json.MarshalIndent(f.values, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}
	if err := os.WriteFile(f.path, data, 0600); err != nil {
		return fmt.Errorf("write state file: %w", err)
	}
	return nil
}
