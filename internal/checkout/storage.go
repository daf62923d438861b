package checkout

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// MemoryStorage keeps the cart for the life of the process.
type MemoryStorage struct {
	mu    sync.Mutex
	lines []Line
}

func (m *MemoryStorage) Load() ([]Line, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Line(nil), m.lines...), nil
}

func (m *MemoryStorage) Save(lines []Line) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lines = append([]Line(nil), lines...)
	return nil
}

// FileStorage keeps the cart as a JSON document on disk.
type FileStorage struct {
	Path string
}

type cartFile struct {
	Version int    `json:"version"`
	Lines   []Line `json:"lines"`
}

// Load returns no lines when the file does not exist yet.
func (f FileStorage) Load() ([]Line, error) {
	b, err := os.ReadFile(f.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read cart: %w", err)
	}
	var doc cartFile
	if err := json.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("decode cart %s: %w", f.Path, err)
	}
	return doc.Lines, nil
}

// Save replaces the file atomically.
func (f FileStorage) Save(lines []Line) error {
	if lines == nil {
		lines = []Line{}
	}
	b, err := json.MarshalIndent(cartFile{Version: 1, Lines: lines}, "", "  ")
	if err != nil {
		return err
	}
	dir := filepath.Dir(f.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create cart dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".cart-*.json")
	if err != nil {
		return fmt.Errorf("write cart: %w", err)
	}
	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write cart: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("write cart: %w", err)
	}
	return os.Rename(tmp.Name(), f.Path)
}
