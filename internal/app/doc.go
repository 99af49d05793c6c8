// Package app wires the download engine to its yt-dlp, history and
// playlist collaborators. Both the command line tool and the terminal UI
// build their jobs through NewJob.
package app
