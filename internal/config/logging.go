package config

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
)

// OpenLogger builds the process logger from LogLevel and LogFile.
//
// When LogFile is set, records are appended to it; otherwise they go to
// fallback. The returned close function must be called on shutdown.
func (s *Settings) OpenLogger(fallback io.Writer) (*slog.Logger, func() error, error) {
	w := fallback
	closeFn := func() error { return nil }

	if s.LogFile != "" {
		if err := os.MkdirAll(filepath.Dir(s.LogFile), 0755); err != nil {
			return nil, nil, err
		}
		f, err := os.OpenFile(s.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, nil, err
		}
		w = f
		closeFn = f.Close
	}
	if w == nil {
		w = io.Discard
	}

	logger := slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: s.SlogLevel()}))
	return logger, closeFn, nil
}
