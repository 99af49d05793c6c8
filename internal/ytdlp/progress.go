package ytdlp

import (
	"fmt"
	"strconv"
	"strings"
)

const progressPrefix = "[tubefetch] "

// progressTemplate makes yt-dlp print one machine readable line per progress
// update. Unknown values are printed as "NA".
const progressTemplate = "download:" + progressPrefix +
	"%(progress.status)s|%(progress.downloaded_bytes)s|" +
	"%(progress.total_bytes,progress.total_bytes_estimate)s|" +
	"%(progress.speed)s|%(progress.eta)s"

// DownloadProgress is one progress update of a running download.
type DownloadProgress struct {
	Finished        bool
	DownloadedBytes float64
	TotalBytes      float64 // 0 when unknown
	Speed           float64 // bytes per second, 0 when unknown
	ETA             float64 // seconds, -1 when unknown
}

// Percent returns the downloaded share in [0,100], or -1 when the size is unknown.
func (p DownloadProgress) Percent() float64 {
	if p.TotalBytes <= 0 {
		return -1
	}
	return min(p.DownloadedBytes/p.TotalBytes*100, 100)
}

// String renders the update, e.g. "Downloading... 42.0% | 1.2 MB/s | ETA: 0:12".
func (p DownloadProgress) String() string {
	if p.Finished {
		return "Download finished, processing audio..."
	}
	pct := p.Percent()
	if pct < 0 {
		return "Downloading..."
	}

	eta := "?"
	if p.ETA >= 0 {
		secs := int(p.ETA)
		eta = fmt.Sprintf("%d:%02d", secs/60, secs%60)
	}
	return fmt.Sprintf("Downloading... %.1f%% | %.1f MB/s | ETA: %s", pct, p.Speed/(1024*1024), eta)
}

// parseProgressLine decodes a line printed through progressTemplate.
func parseProgressLine(line string) (DownloadProgress, bool) {
	rest, ok := strings.CutPrefix(strings.TrimSpace(line), strings.TrimSpace(progressPrefix))
	if !ok {
		return DownloadProgress{}, false
	}
	fields := strings.Split(strings.TrimSpace(rest), "|")
	if len(fields) != 5 {
		return DownloadProgress{}, false
	}

	p := DownloadProgress{
		Finished:        fields[0] == "finished",
		DownloadedBytes: parseNumber(fields[1], 0),
		TotalBytes:      parseNumber(fields[2], 0),
		Speed:           parseNumber(fields[3], 0),
		ETA:             parseNumber(fields[4], -1),
	}
	return p, true
}

func parseNumber(s string, fallback float64) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return fallback
	}
	return v
}

// progressThrottle lets through the first update, every further 10% step,
// and the finished update.
type progressThrottle struct {
	started bool
	bucket  int
}

func (t *progressThrottle) allow(p DownloadProgress) bool {
	if p.Finished {
		return true
	}
	bucket := -1
	if pct := p.Percent(); pct >= 0 {
		bucket = int(pct / 10)
	}
	if !t.started || bucket > t.bucket {
		t.started = true
		t.bucket = bucket
		return true
	}
	return false
}
