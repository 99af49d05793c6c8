// Package audio provides post-processing for downloaded audio files:
// ID3 tag writing and playlist generation.
//
// # ID3 Tagging
//
// Use the Tagger to write ID3 tags to MP3 files:
//
//	tagger := audio.NewTagger(audio.DefaultTagConfig())
//	err := tagger.SaveTags(artifact.Path, item, jpegBytes)
//
// The tagger supports:
//   - Artist (uploader)
//   - Album (playlist title) and Title
//   - Track Number (playlist index)
//   - Source URL comment
//   - Cover Art (embedded in MP3)
//
// # Playlist Generation
//
// PlaylistRecorder plugs into the download engine as a Recorder and writes
// a playlist of every successful item once the job is done:
//
//	rec := audio.NewPlaylistRecorder(audio.ParsePlaylistFormat(settings.PlaylistFormat), settings.M3UExtended)
//	engine := download.NewEngine(resolver, fetcher, download.MultiRecorder{store, rec})
//	...
//	path, err := rec.Write("")
//
// Supported formats:
//   - M3U (with optional extended info)
//   - PLS
//   - WPL (Windows Media Player)
//   - ZPL (Zune Media Player)
package audio
