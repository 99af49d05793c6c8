package ytdlp

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"
)

// Runner executes yt-dlp with args and returns its standard output.
type Runner func(ctx context.Context, args ...string) ([]byte, error)

// Exec returns a Runner that runs binary ("yt-dlp" when empty) as a child
// process. The process is killed when ctx is done.
func Exec(binary string) Runner {
	if binary == "" {
		binary = "yt-dlp"
	}
	return func(ctx context.Context, args ...string) ([]byte, error) {
		cmd := exec.CommandContext(ctx, binary, args...)
		var stdout bytes.Buffer
		var stderr bytes.Buffer
		cmd.Stdout = &stdout
		cmd.Stderr = &stderr

		if err := cmd.Run(); err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, fmt.Errorf("%s failed: %w: %s", binary, err, lastLine(stderr.String()))
		}
		return stdout.Bytes(), nil
	}
}

// StreamRunner executes yt-dlp and hands every standard output line to onLine
// while the process runs.
type StreamRunner func(ctx context.Context, onLine func(string), args ...string) error

// ExecStream returns a StreamRunner that runs binary ("yt-dlp" when empty) as
// a child process. onLine is called from the calling goroutine.
func ExecStream(binary string) StreamRunner {
	if binary == "" {
		binary = "yt-dlp"
	}
	return func(ctx context.Context, onLine func(string), args ...string) error {
		cmd := exec.CommandContext(ctx, binary, args...)
		var stderr bytes.Buffer
		cmd.Stderr = &stderr

		stdout, err := cmd.StdoutPipe()
		if err != nil {
			return fmt.Errorf("%s stdout: %w", binary, err)
		}
		if err := cmd.Start(); err != nil {
			return fmt.Errorf("start %s: %w", binary, err)
		}

		scanner := bufio.NewScanner(stdout)
		for scanner.Scan() {
			onLine(scanner.Text())
		}
		// Keep the pipe drained if scanning stopped early.
		_, _ = io.Copy(io.Discard, stdout)

		if err := cmd.Wait(); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("%s failed: %w: %s", binary, err, lastLine(stderr.String()))
		}
		return nil
	}
}

// DependencyReport lists the external tools found on PATH.
type DependencyReport struct {
	YTDLPFound    bool   `json:"yt_dlp_found"`
	YTDLPPath     string `json:"yt_dlp_path,omitempty"`
	YTDLPVersion  string `json:"yt_dlp_version,omitempty"`
	FFmpegFound   bool   `json:"ffmpeg_found"`
	FFmpegPath    string `json:"ffmpeg_path,omitempty"`
	FFmpegVersion string `json:"ffmpeg_version,omitempty"`
}

// DependencyStatus looks up yt-dlp and ffmpeg and asks each for its version.
func DependencyStatus(ctx context.Context) DependencyReport {
	report := DependencyReport{}
	if path, err := exec.LookPath("yt-dlp"); err == nil {
		report.YTDLPFound = true
		report.YTDLPPath = path
		report.YTDLPVersion = toolVersion(ctx, path, "--version")
	}
	if path, err := exec.LookPath("ffmpeg"); err == nil {
		report.FFmpegFound = true
		report.FFmpegPath = path
		report.FFmpegVersion = toolVersion(ctx, path, "-version")
	}
	return report
}

// CheckDependencies fails when yt-dlp or ffmpeg is missing.
func CheckDependencies(ctx context.Context) error {
	report := DependencyStatus(ctx)
	if !report.YTDLPFound {
		return fmt.Errorf("missing dependency: yt-dlp is not installed or not on PATH")
	}
	if !report.FFmpegFound {
		return fmt.Errorf("missing dependency: ffmpeg is required for audio conversion and was not found on PATH")
	}
	return nil
}

func toolVersion(ctx context.Context, path, flag string) string {
	out, err := exec.CommandContext(ctx, path, flag).Output()
	if err != nil {
		return ""
	}
	return firstLine(string(out))
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return strings.TrimSpace(s[:i])
	}
	return s
}

// lastLine keeps the final stderr line, which is where yt-dlp puts "ERROR: ...".
func lastLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return strings.TrimSpace(s[i+1:])
	}
	return s
}
