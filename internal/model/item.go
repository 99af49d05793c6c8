package model

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
)

// WorkItem is one fetchable unit of content (for example one video) within a job.
//
// WorkItem values are produced by a resolver and never mutated afterwards.
// The engine owns them for the duration of a single run.
//
// Example:
//
//	item := WorkItem{
//	    ID:         "https://www.youtube.com/watch?v=abc123",
//	    Title:      "Song Title",
//	    Duration:   215,
//	    Index:      3,
//	    Collection: "My Playlist",
//	}
//	item.Label()             // "03 - Song Title"
//	item.OutputDir("/music") // "/music/My Playlist"
type WorkItem struct {
	// ID is the stable identifier of the item, usually its source URL.
	ID string

	// Title is the display title.
	Title string

	// Duration is the length in seconds. Zero means unknown.
	Duration float64

	// Index is the 1-indexed position inside the owning collection.
	// Zero means the item is not part of a collection.
	Index int

	// Collection is the title of the owning collection.
	// Empty for single items.
	Collection string

	// Artist is the performer or uploader, when known.
	Artist string
}

// Label returns a short human-readable name used in progress messages.
func (w WorkItem) Label() string {
	title := w.Title
	if title == "" {
		title = "Unknown"
	}
	if w.Index > 0 {
		return fmt.Sprintf("%02d - %s", w.Index, title)
	}
	return title
}

// ShortID returns at most the first 50 characters of the identifier.
func (w WorkItem) ShortID() string {
	if len(w.ID) <= 50 {
		return w.ID
	}
	return w.ID[:50] + "..."
}

// OutputDir computes the directory where the item's artifact belongs.
//
// Items that belong to a collection are placed in a sub folder named after
// the sanitized collection title.
func (w WorkItem) OutputDir(base string) string {
	if w.Collection == "" {
		return base
	}
	return filepath.Join(base, sanitizeFileName(w.Collection))
}

// FileStem returns the sanitized file name (without extension) for the item.
func (w WorkItem) FileStem() string {
	return sanitizeFileName(w.Label())
}

// TargetKind distinguishes a single item from a collection.
type TargetKind int

const (
	// TargetSingle is a reference that resolved to exactly one item.
	TargetSingle TargetKind = iota

	// TargetCollection is a reference that resolved to an ordered list of items.
	TargetCollection
)

// String returns "single" or "collection".
func (k TargetKind) String() string {
	if k == TargetCollection {
		return "collection"
	}
	return "single"
}

// ResolvedTarget is what a resolver turns a reference into.
type ResolvedTarget struct {
	Kind  TargetKind
	Title string
	Items []WorkItem
}

// Single builds a ResolvedTarget holding one item.
func Single(item WorkItem) ResolvedTarget {
	return ResolvedTarget{Kind: TargetSingle, Title: item.Title, Items: []WorkItem{item}}
}

// Collection builds a ResolvedTarget for an ordered list of items.
func Collection(title string, items []WorkItem) ResolvedTarget {
	return ResolvedTarget{Kind: TargetCollection, Title: title, Items: items}
}

// ResolutionError reports that a reference could not be turned into work items.
// It is the only error that aborts a whole run.
type ResolutionError struct {
	Reference string
	Reason    string
	Err       error
}

func (e *ResolutionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("resolve %q: %s: %v", e.Reference, e.Reason, e.Err)
	}
	return fmt.Sprintf("resolve %q: %s", e.Reference, e.Reason)
}

func (e *ResolutionError) Unwrap() error {
	return e.Err
}

var (
	invalidChars     = regexp.MustCompile(`[<>:"/\\|?*\x00-\x1f]`)
	trailingDots     = regexp.MustCompile(`\.+$`)
	repeatedSpaceRun = regexp.MustCompile(`\s+`)
)

// sanitizeFileName removes or replaces characters that are invalid in file/folder names.
//
// The following transformations are applied:
//   - Invalid characters (<>:"/\|?* and control chars) are replaced with underscore
//   - Trailing dots are removed (Windows limitation)
//   - Multiple whitespace is collapsed to single space
//   - Leading and trailing whitespace is removed
func sanitizeFileName(name string) string {
	name = invalidChars.ReplaceAllString(name, "_")
	name = trailingDots.ReplaceAllString(name, "")
	name = repeatedSpaceRun.ReplaceAllString(name, " ")
	return strings.TrimSpace(name)
}
