package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// EnvPrefix is prepended to every environment override.
const EnvPrefix = "TUBEFETCH_"

// LoadDotEnv loads KEY=value pairs from the given files (".env" when none)
// into the process environment. Variables that are already set win, and
// missing files are ignored.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	var existing []string
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			existing = append(existing, f)
		}
	}
	if len(existing) == 0 {
		return nil
	}
	return godotenv.Load(existing...)
}

// ApplyEnv overrides settings from TUBEFETCH_* environment variables and
// normalizes the result. Unset variables leave the value untouched.
//
//	TUBEFETCH_DOWNLOADS_PATH=/music
//	TUBEFETCH_AUDIO_FORMAT=m4a
//	TUBEFETCH_PARALLEL_DOWNLOADS=true
//	TUBEFETCH_MAX_PARALLEL_DOWNLOADS=4
//	TUBEFETCH_MAX_RETRIES=5
//	TUBEFETCH_LOG_LEVEL=DEBUG
func (s *Settings) ApplyEnv() error {
	strs := map[string]*string{
		"DOWNLOADS_PATH":   &s.DownloadsPath,
		"AUDIO_FORMAT":     &s.AudioFormat,
		"AUDIO_QUALITY":    &s.AudioQuality,
		"DUPLICATE_ACTION": &s.DuplicateAction,
		"PLAYLIST_FORMAT":  &s.PlaylistFormat,
		"HISTORY_PATH":     &s.HistoryPath,
		"LOG_LEVEL":        &s.LogLevel,
		"LOG_FILE":         &s.LogFile,
	}
	for key, dst := range strs {
		if v, ok := lookup(key); ok {
			*dst = v
		}
	}

	bools := map[string]*bool{
		"PARALLEL_DOWNLOADS":     &s.ParallelDownloads,
		"CREATE_PLAYLIST":        &s.CreatePlaylist,
		"CREATE_PLAYLIST_FOLDER": &s.CreatePlaylistFolder,
		"HISTORY_ENABLED":        &s.HistoryEnabled,
		"EMBED_THUMBNAIL":        &s.EmbedThumbnail,
		"DOWNLOAD_THUMBNAILS":    &s.DownloadThumbnails,
		"MODIFY_TAGS":            &s.ModifyTags,
	}
	for key, dst := range bools {
		if v, ok := lookup(key); ok {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("%s%s: %w", EnvPrefix, key, err)
			}
			*dst = b
		}
	}

	ints := map[string]*int{
		"MAX_PARALLEL_DOWNLOADS": &s.MaxParallelDownloads,
		"MAX_RETRIES":            &s.MaxRetries,
		"COVER_ART_MAX_SIZE":     &s.CoverArtMaxSize,
	}
	for key, dst := range ints {
		if v, ok := lookup(key); ok {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("%s%s: %w", EnvPrefix, key, err)
			}
			*dst = n
		}
	}

	if v, ok := lookup("RETRY_BASE_SECONDS"); ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("%sRETRY_BASE_SECONDS: %w", EnvPrefix, err)
		}
		s.RetryBaseSeconds = f
	}

	s.Normalize()
	return nil
}

func lookup(key string) (string, bool) {
	v, ok := os.LookupEnv(EnvPrefix + key)
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	return v, v != ""
}
