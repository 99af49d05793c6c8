// Package history persists completed downloads as an append-only JSON file
// and answers simple queries over it (recent entries, title search, stats).
//
// Store implements the recorder port used by the download engine:
//
//	store, err := history.Open(settings.HistoryPath, "mp3", "320", logger)
//	engine := download.NewEngine(resolver, fetcher, store, opts...)
package history
