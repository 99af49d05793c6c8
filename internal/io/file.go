package ioutils

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

var (
	invalidChars = regexp.MustCompile(`[<>:"/\\|?*\x00-\x1f]`)
	spaceRuns    = regexp.MustCompile(`\s+`)
)

// SanitizeFileName removes or replaces characters that are invalid in file/folder names.
//
// The following transformations are applied:
//   - Invalid characters (<>:"/\|?* and control chars 0x00-0x1f) → underscore
//   - Multiple whitespace → single space
//   - Leading/trailing spaces and dots → removed
//
// Example:
//
//	SanitizeFileName("Song: Part 1/2")      // Returns "Song_ Part 1_2"
//	SanitizeFileName("Track...")            // Returns "Track"
//	SanitizeFileName("Name   with  spaces") // Returns "Name with spaces"
func SanitizeFileName(name string) string {
	name = invalidChars.ReplaceAllString(name, "_")
	name = spaceRuns.ReplaceAllString(name, " ")
	return strings.Trim(name, ". ")
}

// EnsureDir creates a directory and all parent directories if they don't exist.
func EnsureDir(path string) error {
	return os.MkdirAll(path, 0755)
}

// WriteFileAtomic writes data to a temporary file next to path and renames it
// into place, so readers never observe a partially written file.
func WriteFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := EnsureDir(dir); err != nil {
		return fmt.Errorf("create parent for %s: %w", path, err)
	}

	tmp, err := os.CreateTemp(dir, ".tubefetch-tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file for %s: %w", path, err)
	}
	tmpPath := tmp.Name()
	cleanup := func() {
		_ = os.Remove(tmpPath)
	}

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("write temp file for %s: %w", path, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("sync temp file for %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("close temp file for %s: %w", path, err)
	}
	if err := os.Chmod(tmpPath, 0644); err != nil {
		cleanup()
		return fmt.Errorf("chmod temp file for %s: %w", path, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		cleanup()
		return fmt.Errorf("atomic rename for %s: %w", path, err)
	}
	return nil
}

// FileSize returns the size of the file at path, or 0 if it cannot be read.
func FileSize(path string) int64 {
	info, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return info.Size()
}

// FindDownloadedFile locates a downloaded file in dir by its title.
//
// Candidates are tried in order:
//  1. "<sanitized title>.<ext>"
//  2. "*<sanitized title>*.<ext>"
//  3. "*<first 20 characters of title>*.<ext>"
//
// Returns the first match, or an empty string when nothing matches.
func FindDownloadedFile(dir, title, ext string) string {
	sanitized := SanitizeFileName(title)
	prefix := title
	if len(prefix) > 20 {
		prefix = prefix[:20]
	}

	patterns := []string{
		fmt.Sprintf("%s.%s", sanitized, ext),
		fmt.Sprintf("*%s*.%s", sanitized, ext),
		fmt.Sprintf("*%s*.%s", prefix, ext),
	}

	for _, pattern := range patterns {
		matches, err := filepath.Glob(filepath.Join(dir, escapeGlob(pattern)))
		if err == nil && len(matches) > 0 {
			return matches[0]
		}
	}
	return ""
}

// ResolveDuplicate decides which path to write to when path may already exist.
//
// Actions:
//   - "skip": returns path and exists=true so the caller can reuse the file
//   - "overwrite": removes the existing file and returns path
//   - "rename": returns the first free "<stem>_N<ext>" path
//
// When path does not exist it is returned unchanged with exists=false.
func ResolveDuplicate(path, action string) (target string, exists bool, err error) {
	if _, statErr := os.Stat(path); os.IsNotExist(statErr) {
		return path, false, nil
	}

	switch action {
	case "overwrite":
		if err := os.Remove(path); err != nil {
			return "", false, err
		}
		return path, false, nil
	case "rename":
		ext := filepath.Ext(path)
		stem := strings.TrimSuffix(path, ext)
		for counter := 1; ; counter++ {
			candidate := fmt.Sprintf("%s_%d%s", stem, counter, ext)
			if _, statErr := os.Stat(candidate); os.IsNotExist(statErr) {
				return candidate, false, nil
			}
		}
	default:
		return path, true, nil
	}
}

// escapeGlob escapes glob metacharacters other than '*' so titles containing
// brackets still match literally.
func escapeGlob(pattern string) string {
	r := strings.NewReplacer(`[`, `\[`, `]`, `\]`, `?`, `\?`)
	return r.Replace(pattern)
}
