// Package config provides configuration management for tubefetch.
//
// This package handles:
//   - Loading and saving settings from JSON files
//   - Default configuration values
//   - Clamping values into their valid ranges
//   - Conversion to retry.Policy and slog.Level for other packages
//
// # Default Settings
//
//	settings := config.DefaultSettings()
//	// Downloads mp3 at 320 kbps into the working directory
//	// 3 retries with 1s, 2s, 4s backoff
//	// Sequential downloads, up to 3 in parallel when enabled
//
// # Loading from File
//
//	settings, err := config.Load(config.DefaultConfigPath())
//	if err != nil {
//	    // Uses defaults if file doesn't exist
//	}
//
// # Environment
//
// Values can be overridden with TUBEFETCH_* variables, optionally read from
// a .env file:
//
//	_ = config.LoadDotEnv()
//	err := settings.ApplyEnv()
//
// # Ranges
//
// MaxParallelDownloads is clamped to [1, 5] when settings are loaded or
// normalized; the dispatcher trusts the value it is given.
package config
