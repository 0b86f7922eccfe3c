// Package stats persists lifetime freed-byte totals across runs.
package stats

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
)

// Stats holds persistent statistics.
type Stats struct {
	FreedLifetime int64 `json:"freed_lifetime"`
}

// Manager handles loading and saving stats.
type Manager struct {
	path  string
	stats Stats
	mu    sync.Mutex
	dirty bool
}

// NewManager creates a manager backed by the default stats file.
func NewManager() *Manager {
	return &Manager{path: defaultPath()}
}

func defaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".linkpurge-stats.json"
	}
	return filepath.Join(home, ".linkpurge", "stats.json")
}

// Load loads stats from disk. A missing file means a fresh start.
func (m *Manager) Load() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	data, err := os.ReadFile(m.path)
	if err != nil {
		if os.IsNotExist(err) {
			m.stats = Stats{}
			return nil
		}
		return err
	}
	return json.Unmarshal(data, &m.stats)
}

// FreedLifetime returns the lifetime freed bytes.
func (m *Manager) FreedLifetime() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stats.FreedLifetime
}

// AddFreed adds to the lifetime freed counter. Call Save before exit to
// persist it.
func (m *Manager) AddFreed(bytes int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stats.FreedLifetime += bytes
	m.dirty = true
}

// Save writes the stats file if anything changed.
func (m *Manager) Save() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.dirty {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(m.path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(m.stats, "", "  ")
	if err != nil {
		return err
	}
	m.dirty = false
	return os.WriteFile(m.path, data, 0o644)
}
