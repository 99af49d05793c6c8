package config

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/handiism/tubefetch/internal/retry"
)

const (
	// MinParallelDownloads and MaxParallelDownloads bound MaxParallelDownloads.
	MinParallelDownloads = 1
	MaxParallelDownloads = 5

	// MaxRetriesLimit bounds MaxRetries.
	MaxRetriesLimit = 10

	configDirName   = ".tubefetch"
	configFileName  = "config.json"
	historyFileName = "history.json"
)

// Duplicate actions applied when an output file already exists.
const (
	DuplicateSkip      = "skip"
	DuplicateOverwrite = "overwrite"
	DuplicateRename    = "rename"
)

// Settings holds all configuration options.
type Settings struct {
	// Output settings
	DownloadsPath        string `json:"downloads_path"`
	AudioFormat          string `json:"audio_format"`  // mp3, m4a, opus, ...
	AudioQuality         string `json:"audio_quality"` // kbps for mp3, e.g. "320"
	CreatePlaylistFolder bool   `json:"create_playlist_folder"`
	DuplicateAction      string `json:"duplicate_action"` // skip, overwrite, rename

	// Retry settings
	MaxRetries       int     `json:"max_retries"`
	RetryBaseSeconds float64 `json:"retry_base_seconds"`

	// Dispatch settings
	ParallelDownloads    bool `json:"parallel_downloads"`
	MaxParallelDownloads int  `json:"max_parallel_downloads"`

	// Thumbnail / cover art settings
	DownloadThumbnails bool `json:"download_thumbnails"`
	EmbedThumbnail     bool `json:"embed_thumbnail"`
	CoverArtMaxSize    int  `json:"cover_art_max_size"`

	// Tag settings
	ModifyTags bool `json:"modify_tags"`

	// Playlist settings
	CreatePlaylist bool   `json:"create_playlist"`
	PlaylistFormat string `json:"playlist_format"` // m3u, pls, wpl, zpl
	M3UExtended    bool   `json:"m3u_extended"`

	// History settings
	HistoryEnabled bool   `json:"history_enabled"`
	HistoryPath    string `json:"history_path"`

	// Logging
	LogLevel string `json:"log_level"` // DEBUG, INFO, WARN, ERROR
	LogFile  string `json:"log_file"`
}

// DefaultSettings returns settings with default values.
func DefaultSettings() *Settings {
	cwd, err := os.Getwd()
	if err != nil {
		cwd = "."
	}
	return &Settings{
		DownloadsPath:        cwd,
		AudioFormat:          "mp3",
		AudioQuality:         "320",
		CreatePlaylistFolder: true,
		DuplicateAction:      DuplicateSkip,

		MaxRetries:       3,
		RetryBaseSeconds: 1,

		ParallelDownloads:    false,
		MaxParallelDownloads: 3,

		DownloadThumbnails: false,
		EmbedThumbnail:     true,
		CoverArtMaxSize:    1000,

		ModifyTags: true,

		CreatePlaylist: false,
		PlaylistFormat: "m3u",
		M3UExtended:    true,

		HistoryEnabled: true,
		HistoryPath:    DefaultHistoryPath(),

		LogLevel: "INFO",
	}
}

// DefaultConfigPath returns ~/.tubefetch/config.json.
func DefaultConfigPath() string {
	return filepath.Join(configDir(), configFileName)
}

// DefaultHistoryPath returns ~/.tubefetch/history.json.
func DefaultHistoryPath() string {
	return filepath.Join(configDir(), historyFileName)
}

func configDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return configDirName
	}
	return filepath.Join(homeDir, configDirName)
}

// Load reads settings from a JSON file.
//
// A missing file yields DefaultSettings. Keys absent from the file keep their
// default values. The result is always normalized.
func Load(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultSettings().Normalize(), nil
		}
		return nil, err
	}

	settings := DefaultSettings()
	if err := json.Unmarshal(data, settings); err != nil {
		return nil, err
	}

	return settings.Normalize(), nil
}

// Save writes settings to a JSON file.
func (s *Settings) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// Normalize clamps values into their valid ranges and returns s.
//
//   - MaxParallelDownloads is clamped to [1, 5]
//   - MaxRetries is clamped to [0, 10]
//   - RetryBaseSeconds of 0 or less becomes 1
//   - unknown duplicate actions become "skip"
func (s *Settings) Normalize() *Settings {
	s.MaxParallelDownloads = min(max(s.MaxParallelDownloads, MinParallelDownloads), MaxParallelDownloads)
	s.MaxRetries = min(max(s.MaxRetries, 0), MaxRetriesLimit)
	if s.RetryBaseSeconds <= 0 {
		s.RetryBaseSeconds = 1
	}
	switch s.DuplicateAction {
	case DuplicateSkip, DuplicateOverwrite, DuplicateRename:
	default:
		s.DuplicateAction = DuplicateSkip
	}
	if s.AudioFormat == "" {
		s.AudioFormat = "mp3"
	}
	if s.CoverArtMaxSize <= 0 {
		s.CoverArtMaxSize = 1000
	}
	return s
}

// RetryPolicy converts the retry settings into a retry.Policy.
func (s *Settings) RetryPolicy() retry.Policy {
	return retry.Policy{
		MaxRetries:  s.MaxRetries,
		BaseBackoff: time.Duration(s.RetryBaseSeconds * float64(time.Second)),
	}
}

// SlogLevel parses LogLevel. Unknown values fall back to INFO.
func (s *Settings) SlogLevel() slog.Level {
	switch strings.ToUpper(strings.TrimSpace(s.LogLevel)) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
