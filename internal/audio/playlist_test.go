package audio

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/bogem/id3v2"
	"github.com/handiism/tubefetch/internal/model"
)

func TestPlaylistCreator_M3U(t *testing.T) {
	creator := NewPlaylistCreator(FormatM3U, false)

	content := creator.CreatePlaylist(createTestPlaylist())

	if content != "01 - track1.mp3\n02 - track2.mp3\n" {
		t.Errorf("unexpected M3U content:\n%s", content)
	}
}

func TestPlaylistCreator_M3UExtended(t *testing.T) {
	creator := NewPlaylistCreator(FormatM3U, true)

	content := creator.CreatePlaylist(createTestPlaylist())

	if !strings.HasPrefix(content, "#EXTM3U") {
		t.Error("Extended M3U should start with #EXTM3U")
	}
	if !strings.Contains(content, "#EXTINF:180,Test Channel - track1\n") {
		t.Errorf("Extended M3U should contain EXTINF with artist, got:\n%s", content)
	}
	if !strings.Contains(content, "#EXTINF:200,track2\n") {
		t.Errorf("EXTINF without artist should only hold the title, got:\n%s", content)
	}
}

func TestPlaylistCreator_PLS(t *testing.T) {
	creator := NewPlaylistCreator(FormatPLS, false)

	content := creator.CreatePlaylist(createTestPlaylist())

	if !strings.HasPrefix(content, "[playlist]") {
		t.Error("PLS should start with [playlist]")
	}
	if !strings.Contains(content, "File1=01 - track1.mp3") {
		t.Error("PLS should contain File1=")
	}
	if !strings.Contains(content, "NumberOfEntries=2") {
		t.Error("PLS should contain NumberOfEntries")
	}
}

func TestPlaylistCreator_WPL(t *testing.T) {
	creator := NewPlaylistCreator(FormatWPL, false)

	content := creator.CreatePlaylist(createTestPlaylist())

	if !strings.Contains(content, "<?wpl") {
		t.Error("WPL should contain XML declaration")
	}
	if !strings.Contains(content, "<title>Test Playlist</title>") {
		t.Error("WPL should contain the playlist title")
	}
	if strings.Count(content, "<media src=") != 2 {
		t.Error("WPL should contain one media element per entry")
	}
}

func TestPlaylistCreator_ZPL(t *testing.T) {
	creator := NewPlaylistCreator(FormatZPL, false)

	content := creator.CreatePlaylist(createTestPlaylist())

	if !strings.Contains(content, "<?zpl") {
		t.Error("ZPL should contain XML declaration")
	}
	if !strings.Contains(content, `duration="180000"`) {
		t.Error("ZPL should contain durations in milliseconds")
	}
}

func TestPlaylistCreator_XMLEscape(t *testing.T) {
	pl := Playlist{
		Title:   "Mix <Special>",
		Entries: []Entry{{Index: 1, Title: `Track & "Quote"`, Path: "/music/a.mp3", Duration: 10}},
	}

	content := NewPlaylistCreator(FormatZPL, false).CreatePlaylist(pl)

	if strings.Contains(content, "<Special>") {
		t.Error("ZPL should escape < and >")
	}
	if !strings.Contains(content, "Track &amp; &quot;Quote&quot;") {
		t.Error("ZPL should escape & and quotes")
	}
}

func TestParsePlaylistFormat(t *testing.T) {
	tests := []struct {
		in   string
		want PlaylistFormat
		ext  string
	}{
		{"m3u", FormatM3U, "m3u"},
		{"PLS", FormatPLS, "pls"},
		{" wpl ", FormatWPL, "wpl"},
		{"zpl", FormatZPL, "zpl"},
		{"xspf", FormatM3U, "m3u"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := ParsePlaylistFormat(tt.in)
			if got != tt.want {
				t.Errorf("ParsePlaylistFormat(%q) = %v, want %v", tt.in, got, tt.want)
			}
			if got.Extension() != tt.ext {
				t.Errorf("Extension() = %q, want %q", got.Extension(), tt.ext)
			}
		})
	}
}

func TestPlaylistRecorder_OrdersByIndex(t *testing.T) {
	dir := t.TempDir()
	rec := NewPlaylistRecorder(FormatM3U, false)

	var wg sync.WaitGroup
	for _, idx := range []int{3, 1, 2} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			item := model.WorkItem{ID: "x", Title: "t", Index: idx, Collection: "Road Trip"}
			artifact := model.Artifact{Path: filepath.Join(dir, item.FileStem()+".mp3")}
			if err := rec.Record(context.Background(), item, model.Succeeded(artifact)); err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()

	// Failures never show up in the playlist.
	_ = rec.Record(context.Background(), model.WorkItem{Index: 4}, model.Failed(model.KindRetryExhausted, "boom"))

	path, err := rec.Write("")
	if err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if path != filepath.Join(dir, "Road Trip.m3u") {
		t.Errorf("path = %q", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "01 - t.mp3\n02 - t.mp3\n03 - t.mp3\n" {
		t.Errorf("unexpected playlist:\n%s", data)
	}
}

func TestPlaylistRecorder_EmptyWritesNothing(t *testing.T) {
	rec := NewPlaylistRecorder(FormatPLS, false)

	path, err := rec.Write(t.TempDir())
	if err != nil || path != "" {
		t.Errorf("Write() = %q, %v; want empty path and no error", path, err)
	}
}

func TestTagger_SaveTags(t *testing.T) {
	path := filepath.Join(t.TempDir(), "song.mp3")
	if err := os.WriteFile(path, []byte("not really audio"), 0644); err != nil {
		t.Fatal(err)
	}

	item := model.WorkItem{
		ID:         "https://www.youtube.com/watch?v=abc",
		Title:      "Song",
		Index:      7,
		Collection: "Mix",
		Artist:     "Channel",
	}
	cfg := DefaultTagConfig()
	cfg.Comments = TagModify

	if err := NewTagger(cfg).SaveTags(path, item, []byte{0xff, 0xd8, 0xff}); err != nil {
		t.Fatalf("SaveTags failed: %v", err)
	}

	tag, err := id3v2.Open(path, id3v2.Options{Parse: true})
	if err != nil {
		t.Fatal(err)
	}
	defer tag.Close()

	if tag.Title() != "Song" || tag.Album() != "Mix" || tag.Artist() != "Channel" {
		t.Errorf("title/album/artist = %q/%q/%q", tag.Title(), tag.Album(), tag.Artist())
	}
	if got := tag.GetTextFrame("TRCK").Text; got != "7" {
		t.Errorf("TRCK = %q, want 7", got)
	}
	if n := len(tag.GetFrames(tag.CommonID("Attached picture"))); n != 1 {
		t.Errorf("attached pictures = %d, want 1", n)
	}
	if n := len(tag.GetFrames(tag.CommonID("Comments"))); n != 1 {
		t.Errorf("comments = %d, want 1", n)
	}
}

func TestTagger_MissingFile(t *testing.T) {
	err := NewTagger(nil).SaveTags(filepath.Join(t.TempDir(), "gone.mp3"), model.WorkItem{}, nil)
	if !os.IsNotExist(err) {
		t.Errorf("expected not-exist error, got %v", err)
	}
}

func createTestPlaylist() Playlist {
	return Playlist{
		Title: "Test Playlist",
		Entries: []Entry{
			{Index: 1, Title: "track1", Artist: "Test Channel", Path: "/music/Test Playlist/01 - track1.mp3", Duration: 180},
			{Index: 2, Title: "track2", Path: "/music/Test Playlist/02 - track2.mp3", Duration: 200},
		},
	}
}
