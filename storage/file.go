package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/BurntSushi/toml"
)

type fileContents struct {
	Entries map[string]string `toml:"entries"`
}

// FileStore keeps key-value pairs in a TOML file. Every Set rewrites the
// whole file with 0600 permissions.
type FileStore struct {
	mu   sync.Mutex
	path string
}

// NewFileStore uses <dataDir>/state.toml.
func NewFileStore(dataDir string) *FileStore {
	return &FileStore{path: filepath.Join(dataDir, "state.toml")}
}

func (f *FileStore) load() (map[string]string, error) {
	if _, err := os.Stat(f.path); os.IsNotExist(err) {
		return make(map[string]string), nil
	}

	var fc fileContents
	if _, err := toml.DecodeFile(f.path, &fc); err != nil {
		return nil, fmt.Errorf("failed to parse state file: %w", err)
	}
	if fc.Entries == nil {
		fc.Entries = make(map[string]string)
	}
	return fc.Entries, nil
}

func (f *FileStore) Get(_ context.Context, key string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	entries, err := f.load()
	if err != nil {
		return nil, err
	}
	v, ok := entries[key]
	if !ok {
		return nil, ErrNotFound
	}
	return []byte(v), nil
}

func (f *FileStore) Set(_ context.Context, key string, value []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	entries, err := f.load()
	if err != nil {
		// A corrupt file is replaced rather than blocking every later write.
		entries = make(map[string]string)
	}
	entries[key] = string(value)

	if err := os.MkdirAll(filepath.Dir(f.path), 0700); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	file, err := os.OpenFile(f.path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create state file: %w", err)
	}
	defer file.Close()

	if err := toml.NewEncoder(file).Encode(fileContents{Entries: entries}); err != nil {
		return fmt.Errorf("failed to encode state file: %w", err)
	}
	return nil
}
