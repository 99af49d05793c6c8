package ytdlp

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/handiism/tubefetch/internal/audio"
	"github.com/handiism/tubefetch/internal/config"
	ioutils "github.com/handiism/tubefetch/internal/io"
	"github.com/handiism/tubefetch/internal/model"
)

// Fetcher downloads one item as audio with yt-dlp and post-processes the
// result (ID3 tags, embedded cover).
type Fetcher struct {
	run        Runner
	stream     StreamRunner
	onProgress func(model.WorkItem, DownloadProgress)
	settings   *config.Settings
	tagger   *audio.Tagger
	images   *ioutils.ImageService
	logger   *slog.Logger
}

// FetcherOption configures a Fetcher.
type FetcherOption func(*Fetcher)

// WithFetcherLogger sets the logger.
func WithFetcherLogger(logger *slog.Logger) FetcherOption {
	return func(f *Fetcher) {
		f.logger = logger
	}
}

// WithTagger replaces the default tagger.
func WithTagger(t *audio.Tagger) FetcherOption {
	return func(f *Fetcher) {
		f.tagger = t
	}
}

// WithDownloadProgress streams yt-dlp's progress through stream and reports
// it to fn, at most once per 10% step. Without it downloads run silently
// through the Runner.
func WithDownloadProgress(stream StreamRunner, fn func(model.WorkItem, DownloadProgress)) FetcherOption {
	return func(f *Fetcher) {
		f.stream = stream
		f.onProgress = fn
	}
}

// NewFetcher creates a Fetcher writing under settings.DownloadsPath.
func NewFetcher(run Runner, settings *config.Settings, opts ...FetcherOption) *Fetcher {
	tagCfg := audio.DefaultTagConfig()
	tagCfg.ModifyTags = settings.ModifyTags

	f := &Fetcher{
		run:      run,
		settings: settings,
		tagger:   audio.NewTagger(tagCfg),
		images:   ioutils.NewImageService(),
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.logger == nil {
		f.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return f
}

// Fetch implements download.Fetcher.
//
// The output file is "<dir>/<label>.<format>" where dir gets a sub folder per
// playlist when CreatePlaylistFolder is set. An existing file is handled
// according to DuplicateAction before yt-dlp runs.
func (f *Fetcher) Fetch(ctx context.Context, item model.WorkItem) (model.Artifact, error) {
	dir := f.outputDir(item)
	if err := ioutils.EnsureDir(dir); err != nil {
		return model.Artifact{}, fmt.Errorf("create output folder: %w", err)
	}

	ext := f.settings.AudioFormat
	stem := item.FileStem()
	expected := filepath.Join(dir, stem+"."+ext)

	target, exists, err := ioutils.ResolveDuplicate(expected, f.settings.DuplicateAction)
	if err != nil {
		return model.Artifact{}, fmt.Errorf("resolve duplicate %s: %w", expected, err)
	}
	if exists {
		f.logger.Info("file exists, skipping", "path", target)
		return model.Artifact{Path: target, Size: ioutils.FileSize(target)}, nil
	}

	if err := f.download(ctx, item, target); err != nil {
		return model.Artifact{}, err
	}

	path := target
	if _, err := os.Stat(path); err != nil {
		path = ioutils.FindDownloadedFile(dir, strings.TrimSuffix(filepath.Base(target), "."+ext), ext)
		if path == "" {
			return model.Artifact{}, fmt.Errorf("downloaded file for %q in %s: %w", item.Title, dir, model.ErrNotFound)
		}
	}

	f.postProcess(ctx, item, path)

	return model.Artifact{Path: path, Size: ioutils.FileSize(path)}, nil
}

func (f *Fetcher) download(ctx context.Context, item model.WorkItem, target string) error {
	if f.stream == nil || f.onProgress == nil {
		_, err := f.run(ctx, f.args(item, target, false)...)
		return err
	}

	var throttle progressThrottle
	return f.stream(ctx, func(line string) {
		p, ok := parseProgressLine(line)
		if ok && throttle.allow(p) {
			f.onProgress(item, p)
		}
	}, f.args(item, target, true)...)
}

func (f *Fetcher) outputDir(item model.WorkItem) string {
	if f.settings.CreatePlaylistFolder {
		return item.OutputDir(f.settings.DownloadsPath)
	}
	return f.settings.DownloadsPath
}

// args builds the yt-dlp command line for one item written to target.
// With live set, yt-dlp prints progressTemplate lines instead of staying quiet.
func (f *Fetcher) args(item model.WorkItem, target string, live bool) []string {
	ext := filepath.Ext(target)
	template := strings.TrimSuffix(target, ext) + ".%(ext)s"

	args := []string{"--no-playlist", "--no-warnings"}
	if live {
		args = append(args, "--newline", "--progress-template", progressTemplate)
	} else {
		args = append(args, "--no-progress")
	}
	args = append(args,
		"-f", "bestaudio/best",
		"-x",
		"--audio-format", f.settings.AudioFormat,
		"--audio-quality", f.settings.AudioQuality,
		"-o", template,
	)
	if f.wantsThumbnail() {
		args = append(args, "--write-thumbnail")
	}
	return append(args, item.ID)
}

func (f *Fetcher) wantsThumbnail() bool {
	return f.settings.DownloadThumbnails || (f.settings.EmbedThumbnail && f.settings.AudioFormat == "mp3")
}

// postProcess tags MP3 files, embeds the thumbnail, and keeps the thumbnail
// as a JPEG when requested. Failures are logged and never fail the download.
func (f *Fetcher) postProcess(ctx context.Context, item model.WorkItem, path string) {
	thumb := ioutils.FindThumbnail(path)

	if filepath.Ext(path) == ".mp3" {
		f.tagFile(ctx, item, path, thumb)
	}

	switch {
	case thumb == "":
	case f.settings.DownloadThumbnails:
		f.keepThumbnail(ctx, thumb)
	default:
		_ = os.Remove(thumb)
	}
}

func (f *Fetcher) tagFile(ctx context.Context, item model.WorkItem, path, thumb string) {
	var artwork []byte
	if thumb != "" && f.settings.EmbedThumbnail {
		data, err := os.ReadFile(thumb)
		if err == nil {
			size := f.settings.CoverArtMaxSize
			artwork, err = f.images.ResizeImage(ctx, data, size, size)
		}
		if err != nil {
			f.logger.Warn("cover conversion failed", "thumbnail", thumb, "error", err)
			artwork = nil
		}
	}

	if f.settings.ModifyTags || artwork != nil {
		if err := f.tagger.SaveTags(path, item, artwork); err != nil {
			f.logger.Warn("tagging failed", "path", path, "error", err)
		}
	}
}

// keepThumbnail rewrites a WebP or PNG thumbnail as <stem>.jpg.
func (f *Fetcher) keepThumbnail(ctx context.Context, thumb string) {
	ext := strings.ToLower(filepath.Ext(thumb))
	if ext == ".jpg" || ext == ".jpeg" {
		return
	}

	data, err := os.ReadFile(thumb)
	if err == nil {
		data, err = f.images.ConvertToJPEG(ctx, data)
	}
	if err == nil {
		err = ioutils.WriteFileAtomic(strings.TrimSuffix(thumb, filepath.Ext(thumb))+".jpg", data)
	}
	if err != nil {
		f.logger.Warn("thumbnail conversion failed", "thumbnail", thumb, "error", err)
		return
	}
	_ = os.Remove(thumb)
}
