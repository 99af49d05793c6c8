package ytdlp

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/handiism/tubefetch/internal/model"
)

var youtubeHosts = map[string]bool{
	"youtube.com":       true,
	"www.youtube.com":   true,
	"youtu.be":          true,
	"m.youtube.com":     true,
	"music.youtube.com": true,
}

var videoIDPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?:youtube\.com/watch\?v=|youtu\.be/|youtube\.com/embed/|youtube\.com/v/|youtube\.com/shorts/)([^&\n?#/]+)`),
	regexp.MustCompile(`youtube\.com/watch\?.*v=([^&\n?#]+)`),
}

// Reference is a validated YouTube URL.
type Reference struct {
	// URL is the cleaned URL passed to yt-dlp.
	URL string

	// Original is the input with a scheme added when it had none.
	Original string

	VideoID    string
	PlaylistID string
	IsPlaylist bool
}

// Classify validates a YouTube reference and reports whether it points to
// a playlist or a single video.
//
// Only the v, list and index query parameters are kept. Any other host than
// YouTube, or a URL without a video or playlist id, is a *model.ResolutionError.
func Classify(reference string) (Reference, error) {
	raw := strings.TrimSpace(reference)
	if raw == "" {
		return Reference{}, &model.ResolutionError{Reference: reference, Reason: "empty URL"}
	}
	if !strings.HasPrefix(raw, "http://") && !strings.HasPrefix(raw, "https://") {
		raw = "https://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return Reference{}, &model.ResolutionError{Reference: reference, Reason: "malformed URL", Err: err}
	}
	if !youtubeHosts[strings.ToLower(u.Host)] {
		return Reference{}, &model.ResolutionError{Reference: reference, Reason: "not a YouTube URL"}
	}

	clean := cleanURL(u)
	ref := Reference{URL: clean, Original: raw}

	query := u.Query()
	ref.PlaylistID = query.Get("list")
	ref.IsPlaylist = ref.PlaylistID != "" || strings.Contains(u.Path, "/playlist")
	ref.VideoID = extractVideoID(clean)

	if ref.VideoID == "" && ref.PlaylistID == "" {
		return Reference{}, &model.ResolutionError{Reference: reference, Reason: "no video or playlist id"}
	}
	return ref, nil
}

// cleanURL drops every query parameter except v, list and index, in that order.
func cleanURL(u *url.URL) string {
	query := u.Query()
	var parts []string
	for _, key := range []string{"v", "list", "index"} {
		if v := query.Get(key); v != "" {
			parts = append(parts, key+"="+url.QueryEscape(v))
		}
	}

	out := u.Scheme + "://" + u.Host + u.Path
	if len(parts) > 0 {
		out += "?" + strings.Join(parts, "&")
	}
	return out
}

func extractVideoID(s string) string {
	for _, re := range videoIDPatterns {
		if m := re.FindStringSubmatch(s); m != nil {
			return m[1]
		}
	}
	return ""
}
