package audio

import (
	"context"
	"path/filepath"
	"sort"
	"sync"

	ioutils "github.com/handiism/tubefetch/internal/io"
	"github.com/handiism/tubefetch/internal/model"
)

// PlaylistRecorder collects successful downloads of a job and writes them
// out as one playlist file. It is safe for concurrent use.
type PlaylistRecorder struct {
	creator *PlaylistCreator
	format  PlaylistFormat

	mu      sync.Mutex
	title   string
	entries []Entry
}

// NewPlaylistRecorder creates a recorder that renders format.
func NewPlaylistRecorder(format PlaylistFormat, extended bool) *PlaylistRecorder {
	return &PlaylistRecorder{
		creator: NewPlaylistCreator(format, extended),
		format:  format,
	}
}

// Record remembers a successful item. Failures are ignored.
func (r *PlaylistRecorder) Record(ctx context.Context, item model.WorkItem, outcome model.FetchOutcome) error {
	if !outcome.OK() {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.title == "" {
		r.title = item.Collection
	}
	r.entries = append(r.entries, EntryFor(item, outcome.Artifact))
	return nil
}

// Len returns the number of recorded entries.
func (r *PlaylistRecorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Playlist returns the recorded entries ordered by index. Parallel jobs
// record in completion order, so the order is restored here.
func (r *PlaylistRecorder) Playlist() Playlist {
	r.mu.Lock()
	entries := make([]Entry, len(r.entries))
	copy(entries, r.entries)
	title := r.title
	r.mu.Unlock()

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Index < entries[j].Index
	})
	if title == "" {
		title = "playlist"
	}
	return Playlist{Title: title, Entries: entries}
}

// Write renders the playlist into dir and returns the written path.
//
// An empty dir means the directory of the first recorded file. Nothing is
// written when no entry was recorded.
func (r *PlaylistRecorder) Write(dir string) (string, error) {
	pl := r.Playlist()
	if len(pl.Entries) == 0 {
		return "", nil
	}
	if dir == "" {
		dir = filepath.Dir(pl.Entries[0].Path)
	}

	path := filepath.Join(dir, ioutils.SanitizeFileName(pl.Title)+"."+r.format.Extension())
	if err := ioutils.WriteFileAtomic(path, []byte(r.creator.CreatePlaylist(pl))); err != nil {
		return "", err
	}
	return path, nil
}

// Reset forgets all recorded entries.
func (r *PlaylistRecorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.title = ""
	r.entries = nil
}
