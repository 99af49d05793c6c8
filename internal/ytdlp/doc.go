// Package ytdlp adapts the yt-dlp command line tool to the download engine.
//
// Classify validates and cleans a YouTube URL. Resolver implements
// download.Resolver by reading the "yt-dlp -J" metadata document, and
// Fetcher implements download.Fetcher by extracting audio into the
// downloads folder and tagging the result.
//
// Both take a Runner, so tests can replace the child process:
//
//	run := ytdlp.Exec("")
//	resolver := ytdlp.NewResolver(run)
//	fetcher := ytdlp.NewFetcher(run, settings)
//
// yt-dlp and ffmpeg must be on PATH; CheckDependencies reports what is
// missing.
package ytdlp
