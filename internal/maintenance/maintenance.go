// Package maintenance runs background housekeeping for biasd: daily copies of
// the preset collection with pruning of old copies.
package maintenance

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

const (
	backupPrefix = "presets-"
	backupSuffix = ".json"
	backupHour   = 2
)

// Exporter produces the document to back up.
type Exporter interface {
	Export() ([]byte, error)
}

// Service manages background maintenance goroutines.
type Service struct {
	src  Exporter
	dir  string
	keep int
	now  func() time.Time
}

// New creates a Service writing backups of src into dir and keeping the
// newest keep files.
func New(src Exporter, dir string, keep int) *Service {
	if keep < 1 {
		keep = 1
	}
	return &Service{src: src, dir: dir, keep: keep, now: time.Now}
}

// Dir returns the backup directory.
func (s *Service) Dir() string { return s.dir }

// Start runs the daily backup at 2am. Blocks until ctx is cancelled.
func (s *Service) Start(ctx context.Context) {
	for {
		now := s.now()
		next := time.Date(now.Year(), now.Month(), now.Day(), backupHour, 0, 0, 0, now.Location())
		if !next.After(now) {
			next = next.Add(24 * time.Hour)
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(next.Sub(now)):
			path, err := s.RunBackupNow()
			if err != nil {
				slog.Error("maintenance: backup failed", "err", err)
			} else {
				slog.Info("maintenance: backup created", "file", path)
			}
		}
	}
}

// RunBackupNow writes today's backup, replacing an earlier one from the same
// day, prunes old backups and returns the file path.
func (s *Service) RunBackupNow() (string, error) {
	data, err := s.src.Export()
	if err != nil {
		return "", fmt.Errorf("export presets: %w", err)
	}
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return "", fmt.Errorf("create backup dir: %w", err)
	}

	dest := filepath.Join(s.dir, backupPrefix+s.now().Format("20060102")+backupSuffix)
	tmp := dest + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return "", fmt.Errorf("write backup: %w", err)
	}
	if err := os.Rename(tmp, dest); err != nil {
		return "", fmt.Errorf("write backup: %w", err)
	}

	s.prune()
	return dest, nil
}

// ListBackups returns backup files in dir, oldest first.
func ListBackups(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return []string{}, nil
	}
	if err != nil {
		return nil, err
	}

	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasPrefix(e.Name(), backupPrefix) && strings.HasSuffix(e.Name(), backupSuffix) {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	// The date stamp sorts lexically.
	sort.Strings(files)
	return files, nil
}

// prune deletes all but the newest s.keep backups.
func (s *Service) prune() {
	files, err := ListBackups(s.dir)
	if err != nil || len(files) <= s.keep {
		return
	}
	for _, path := range files[:len(files)-s.keep] {
		if err := os.Remove(path); err != nil {
			slog.Warn("maintenance: failed to prune old backup", "file", path, "err", err)
		} else {
			slog.Info("maintenance: pruned old backup", "file", path)
		}
	}
}
