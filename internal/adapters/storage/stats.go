package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/alejandrodnm/oddsbot/internal/domain"
)

// StatsFile implements ports.StatsStore as a single JSON record on disk.
type StatsFile struct {
	path string
	mu   sync.Mutex
}

// NewStatsFile returns a store backed by path. The file is created on the
// first Save.
func NewStatsFile(path string) *StatsFile {
	return &StatsFile{path: path}
}

// Load returns the saved counters, or zero stats when the file does not
// exist yet. Day rollover is the caller's concern.
func (f *StatsFile) Load(_ context.Context) (domain.DailyStats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return domain.DailyStats{}, nil
	}
	if err != nil {
		return domain.DailyStats{}, fmt.Errorf("storage.StatsFile.Load: %w", err)
	}

	var s domain.DailyStats
	if err := json.Unmarshal(data, &s); err != nil {
		return domain.DailyStats{}, fmt.Errorf("storage.StatsFile.Load: decode %q: %w", f.path, err)
	}
	return s, nil
}

// Save writes s through a temp file and rename so a crash never leaves a
// half-written record.
func (f *StatsFile) Save(_ context.Context, s domain.DailyStats) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("storage.StatsFile.Save: encode: %w", err)
	}

	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("storage.StatsFile.Save: mkdir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".stats-*.json")
	if err != nil {
		return fmt.Errorf("storage.StatsFile.Save: temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("storage.StatsFile.Save: write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("storage.StatsFile.Save: close: %w", err)
	}
	if err := os.Rename(tmp.Name(), f.path); err != nil {
		return fmt.Errorf("storage.StatsFile.Save: rename: %w", err)
	}
	return nil
}
