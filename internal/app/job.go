package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/handiism/tubefetch/internal/audio"
	"github.com/handiism/tubefetch/internal/config"
	"github.com/handiism/tubefetch/internal/download"
	"github.com/handiism/tubefetch/internal/history"
	"github.com/handiism/tubefetch/internal/model"
	"github.com/handiism/tubefetch/internal/ytdlp"
)

// Job is a download engine wired to yt-dlp, the history file and the
// optional playlist writer.
type Job struct {
	Engine   *download.Engine
	History  *history.Store          // nil when history is disabled
	Playlist *audio.PlaylistRecorder // nil when no playlist is requested
	Resolver *ytdlp.Resolver

	logger *slog.Logger
}

// Result is what one Run produced.
type Result struct {
	Report       *model.JobReport
	PlaylistPath string
}

type jobOptions struct {
	runner     ytdlp.Runner
	stream     ytdlp.StreamRunner
	logger     *slog.Logger
	onProgress func(download.ProgressEvent)
}

// Option configures NewJob.
type Option func(*jobOptions)

// WithRunner replaces the yt-dlp child process.
func WithRunner(r ytdlp.Runner) Option {
	return func(o *jobOptions) {
		o.runner = r
	}
}

// WithStreamRunner replaces the yt-dlp child process used for downloads with
// live progress.
func WithStreamRunner(r ytdlp.StreamRunner) Option {
	return func(o *jobOptions) {
		o.stream = r
	}
}

// WithLogger sets the logger shared by every component.
func WithLogger(l *slog.Logger) Option {
	return func(o *jobOptions) {
		o.logger = l
	}
}

// WithProgress sets the engine progress callback.
func WithProgress(fn func(download.ProgressEvent)) Option {
	return func(o *jobOptions) {
		o.onProgress = fn
	}
}

// NewJob assembles a Job from settings.
func NewJob(settings *config.Settings, opts ...Option) (*Job, error) {
	o := jobOptions{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.runner == nil {
		o.runner = ytdlp.Exec("")
		if o.stream == nil {
			o.stream = ytdlp.ExecStream("")
		}
	}
	if o.logger == nil {
		o.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	job := &Job{logger: o.logger}
	var recorders download.MultiRecorder

	if settings.HistoryEnabled {
		store, err := history.Open(settings.HistoryPath, settings.AudioFormat, settings.AudioQuality, o.logger)
		if err != nil {
			return nil, fmt.Errorf("open history: %w", err)
		}
		job.History = store
		recorders = append(recorders, store)
	}
	if settings.CreatePlaylist {
		job.Playlist = audio.NewPlaylistRecorder(audio.ParsePlaylistFormat(settings.PlaylistFormat), settings.M3UExtended)
		recorders = append(recorders, job.Playlist)
	}

	job.Resolver = ytdlp.NewResolver(o.runner, ytdlp.WithResolverLogger(o.logger))
	fetcherOpts := []ytdlp.FetcherOption{ytdlp.WithFetcherLogger(o.logger)}
	if o.stream != nil && o.onProgress != nil {
		onProgress := o.onProgress
		fetcherOpts = append(fetcherOpts, ytdlp.WithDownloadProgress(o.stream, func(item model.WorkItem, p ytdlp.DownloadProgress) {
			onProgress(download.ProgressEvent{Message: fmt.Sprintf("%s: %s", item.Label(), p), Level: download.LevelVerbose})
		}))
	}
	fetcher := ytdlp.NewFetcher(o.runner, settings, fetcherOpts...)

	engineOpts := append(download.SettingsOptions(settings), download.WithLogger(o.logger))
	if o.onProgress != nil {
		engineOpts = append(engineOpts, download.WithProgress(o.onProgress))
	}
	job.Engine = download.NewEngine(job.Resolver, fetcher, recorders, engineOpts...)

	return job, nil
}

// Run downloads reference and, for collections, writes the playlist file.
// A playlist failure is logged and does not fail the run.
func (j *Job) Run(ctx context.Context, reference string) (Result, error) {
	if j.Playlist != nil {
		j.Playlist.Reset()
	}

	report, err := j.Engine.Run(ctx, reference)
	if err != nil {
		return Result{}, err
	}

	res := Result{Report: report}
	if j.Playlist != nil && report.Kind == model.TargetCollection {
		path, err := j.Playlist.Write("")
		if err != nil {
			j.logger.Warn("playlist not written", "error", err)
		} else if path != "" {
			j.logger.Info("playlist written", "path", path)
			res.PlaylistPath = path
		}
	}
	return res, nil
}
