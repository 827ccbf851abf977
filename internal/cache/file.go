package cache

import (
	"context"
	"crypto/md5"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// FileStore keeps one JSON file per key under a directory
type FileStore struct {
	dir string
	mu  sync.RWMutex
	now func() time.Time
}

// fileEntry is the on-disk envelope for one cached value
type fileEntry struct {
	Key       string          `json:"key"`
	Data      json.RawMessage `json:"data"`
	StoredAt  time.Time       `json:"stored_at"`
	ExpiresAt time.Time       `json:"expires_at"`
}

// NewFileStore creates the directory if needed
func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		dir = "cache/financials"
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	return &FileStore{dir: dir, now: time.Now}, nil
}

func (f *FileStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	f.mu.RLock()
	raw, err := os.ReadFile(f.path(key))
	f.mu.RUnlock()
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var entry fileEntry
	if err := json.Unmarshal(raw, &entry); err != nil || entry.Key != key {
		// Corrupt or colliding file: treat as a miss, it will be overwritten.
		return nil, false, nil
	}

	if f.now().After(entry.ExpiresAt) {
		f.mu.Lock()
		os.Remove(f.path(key))
		f.mu.Unlock()
		return nil, false, nil
	}

	return entry.Data, true, nil
}

func (f *FileStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	now := f.now()
	entry := fileEntry{
		Key:       key,
		Data:      json.RawMessage(value),
		StoredAt:  now,
		ExpiresAt: now.Add(ttl),
	}

	raw, err := json.Marshal(entry)
	if err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	// Write-then-rename keeps readers from seeing half-written files.
	tmp := f.path(key) + ".tmp"
	if err := os.WriteFile(tmp, raw, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, f.path(key))
}

// CleanupExpired removes expired entries and returns how many were removed
func (f *FileStore) CleanupExpired() (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	entries, err := os.ReadDir(f.dir)
	if err != nil {
		return 0, err
	}

	removed := 0
	now := f.now()
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}

		full := filepath.Join(f.dir, e.Name())
		raw, err := os.ReadFile(full)
		if err != nil {
			continue
		}

		var entry fileEntry
		if err := json.Unmarshal(raw, &entry); err != nil || now.After(entry.ExpiresAt) {
			if os.Remove(full) == nil {
				removed++
			}
		}
	}

	return removed, nil
}

func (f *FileStore) Close() error {
	return nil
}

func (f *FileStore) path(key string) string {
	hash := md5.Sum([]byte(key))
	return filepath.Join(f.dir, fmt.Sprintf("%x.json", hash))
}
