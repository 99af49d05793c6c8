package ytdlp

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"strings"

	"github.com/handiism/tubefetch/internal/model"
)

// videoInfo is the subset of the yt-dlp -J document that is used.
// Flat playlist entries only carry id, title, url and duration.
type videoInfo struct {
	ID            string       `json:"id"`
	Title         string       `json:"title"`
	Duration      float64      `json:"duration"`
	WebpageURL    string       `json:"webpage_url"`
	URL           string       `json:"url"`
	PlaylistIndex int          `json:"playlist_index"`
	Artist        string       `json:"artist"`
	Uploader      string       `json:"uploader"`
	Channel       string       `json:"channel"`
	Entries       []*videoInfo `json:"entries"`
}

func (v *videoInfo) link() string {
	switch {
	case v.WebpageURL != "":
		return v.WebpageURL
	case strings.HasPrefix(v.URL, "http"):
		return v.URL
	case v.ID != "":
		return "https://www.youtube.com/watch?v=" + v.ID
	default:
		return ""
	}
}

func (v *videoInfo) artist() string {
	for _, s := range []string{v.Artist, v.Uploader, v.Channel} {
		if s != "" {
			return s
		}
	}
	return ""
}

// Resolver turns a YouTube URL into work items by asking yt-dlp for the
// metadata document.
type Resolver struct {
	run    Runner
	flat   bool
	logger *slog.Logger
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithFlatPlaylist controls whether playlist entries are listed without
// visiting each video. Flat listing is much faster but misses per-video
// metadata such as the uploader.
func WithFlatPlaylist(flat bool) ResolverOption {
	return func(r *Resolver) {
		r.flat = flat
	}
}

// WithResolverLogger sets the logger.
func WithResolverLogger(logger *slog.Logger) ResolverOption {
	return func(r *Resolver) {
		r.logger = logger
	}
}

// NewResolver creates a Resolver. Flat playlist listing is on by default.
func NewResolver(run Runner, opts ...ResolverOption) *Resolver {
	r := &Resolver{run: run, flat: true}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return r
}

// Resolve implements download.Resolver.
func (r *Resolver) Resolve(ctx context.Context, reference string) (model.ResolvedTarget, error) {
	ref, err := Classify(reference)
	if err != nil {
		return model.ResolvedTarget{}, err
	}

	args := []string{"-J", "--no-warnings"}
	if ref.IsPlaylist {
		if r.flat {
			args = append(args, "--flat-playlist")
		}
	} else {
		args = append(args, "--no-playlist")
	}
	args = append(args, ref.URL)

	r.logger.Debug("fetching metadata", "url", ref.URL, "playlist", ref.IsPlaylist)
	out, err := r.run(ctx, args...)
	if err != nil {
		return model.ResolvedTarget{}, &model.ResolutionError{Reference: reference, Reason: "metadata lookup failed", Err: err}
	}
	if len(out) == 0 {
		return model.ResolvedTarget{}, &model.ResolutionError{Reference: reference, Reason: "yt-dlp returned empty output"}
	}

	var info videoInfo
	if err := json.Unmarshal(out, &info); err != nil {
		return model.ResolvedTarget{}, &model.ResolutionError{Reference: reference, Reason: "invalid metadata", Err: err}
	}

	if info.Entries != nil {
		target := collectionTarget(&info)
		r.logger.Info("playlist resolved", "title", target.Title, "items", len(target.Items))
		return target, nil
	}

	item := model.WorkItem{
		ID:       info.link(),
		Title:    strings.TrimSpace(info.Title),
		Duration: info.Duration,
		Artist:   info.artist(),
	}
	if item.ID == "" {
		item.ID = ref.URL
	}
	if item.Title == "" {
		item.Title = "Unknown"
	}
	r.logger.Info("video resolved", "title", item.Title)
	return model.Single(item), nil
}

func collectionTarget(info *videoInfo) model.ResolvedTarget {
	title := collectionTitle(info)

	items := make([]model.WorkItem, 0, len(info.Entries))
	for pos, entry := range info.Entries {
		if entry == nil {
			continue
		}
		link := entry.link()
		if link == "" {
			continue
		}
		index := entry.PlaylistIndex
		if index <= 0 {
			index = pos + 1
		}
		entryTitle := strings.TrimSpace(entry.Title)
		if entryTitle == "" {
			entryTitle = "Unknown"
		}
		items = append(items, model.WorkItem{
			ID:         link,
			Title:      entryTitle,
			Duration:   entry.Duration,
			Index:      index,
			Collection: title,
			Artist:     entry.artist(),
		})
	}
	return model.Collection(title, items)
}

// collectionTitle falls back to "Playlist_<id>" when yt-dlp reports no title.
func collectionTitle(info *videoInfo) string {
	title := strings.TrimSpace(info.Title)
	if title == "" || strings.EqualFold(title, "NA") {
		id := info.ID
		if id == "" {
			id = "Unknown"
		}
		return "Playlist_" + id
	}
	return title
}
