package history

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"strings"
	"sync"
	"time"

	ioutils "github.com/handiism/tubefetch/internal/io"
	"github.com/handiism/tubefetch/internal/model"
)

// Entry is one completed download.
type Entry struct {
	Title           string  `json:"title"`
	Date            string  `json:"date"`
	DurationMinutes float64 `json:"duration_minutes"`
	FileSizeMB      float64 `json:"file_size_mb"`
	Format          string  `json:"format"`
	Quality         string  `json:"quality"`
	URL             string  `json:"url"`
	Path            string  `json:"path,omitempty"`
}

// Stats summarises the whole history.
type Stats struct {
	TotalDownloads       int     `json:"total_downloads"`
	TotalSizeMB          float64 `json:"total_size_mb"`
	TotalDurationMinutes float64 `json:"total_duration_minutes"`
	AverageFileSizeMB    float64 `json:"average_file_size_mb"`
	MostRecent           string  `json:"most_recent,omitempty"`
}

// Store is an append-only download history persisted as a JSON array.
//
// Every Record rewrites the file atomically, so a crash leaves either the
// previous or the new version on disk. Store is safe for concurrent use.
type Store struct {
	path    string
	format  string
	quality string
	logger  *slog.Logger
	now     func() time.Time

	mu      sync.Mutex
	entries []Entry
}

// Open loads the history file at path. A missing or unreadable file starts an
// empty history. format and quality are stamped on every new entry.
func Open(path, format, quality string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	s := &Store{
		path:    path,
		format:  format,
		quality: quality,
		logger:  logger,
		now:     time.Now,
	}

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		return s, nil
	case err != nil:
		return nil, fmt.Errorf("read history %s: %w", path, err)
	}

	if err := json.Unmarshal(data, &s.entries); err != nil {
		logger.Warn("history file is corrupt, starting empty", "path", path, "error", err)
		s.entries = nil
	}
	return s, nil
}

// Record appends a successful download and persists the history before
// returning. Failure outcomes are ignored.
func (s *Store) Record(ctx context.Context, item model.WorkItem, outcome model.FetchOutcome) error {
	if !outcome.OK() {
		return nil
	}

	entry := Entry{
		Title:           item.Title,
		Date:            s.now().Format(time.RFC3339),
		DurationMinutes: round2(item.Duration / 60),
		FileSizeMB:      round2(float64(outcome.Artifact.Size) / (1024 * 1024)),
		Format:          s.format,
		Quality:         s.quality,
		URL:             item.ID,
		Path:            outcome.Artifact.Path,
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = append(s.entries, entry)
	if err := s.saveLocked(); err != nil {
		s.entries = s.entries[:len(s.entries)-1]
		return err
	}
	s.logger.Debug("history entry recorded", "title", entry.Title, "url", entry.URL)
	return nil
}

// Recent returns up to limit of the most recent entries, oldest first.
func (s *Store) Recent(limit int) []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	if limit <= 0 || len(s.entries) == 0 {
		return nil
	}
	start := max(len(s.entries)-limit, 0)
	return append([]Entry(nil), s.entries[start:]...)
}

// Search returns entries whose title contains query, case-insensitively.
func (s *Store) Search(query string) []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	q := strings.ToLower(query)
	var out []Entry
	for _, e := range s.entries {
		if strings.Contains(strings.ToLower(e.Title), q) {
			out = append(out, e)
		}
	}
	return out
}

// Len returns the number of entries.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Stats computes aggregate statistics.
func (s *Store) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.entries) == 0 {
		return Stats{}
	}

	var size, minutes float64
	for _, e := range s.entries {
		size += e.FileSizeMB
		minutes += e.DurationMinutes
	}
	return Stats{
		TotalDownloads:       len(s.entries),
		TotalSizeMB:          round2(size),
		TotalDurationMinutes: round2(minutes),
		AverageFileSizeMB:    round2(size / float64(len(s.entries))),
		MostRecent:           s.entries[len(s.entries)-1].Date,
	}
}

// Reset removes every entry and persists the empty history.
func (s *Store) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = nil
	return s.saveLocked()
}

func (s *Store) saveLocked() error {
	entries := s.entries
	if entries == nil {
		entries = []Entry{}
	}
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal history: %w", err)
	}
	return ioutils.WriteFileAtomic(s.path, append(data, '\n'))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
