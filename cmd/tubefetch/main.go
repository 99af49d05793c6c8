package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/handiism/tubefetch/internal/app"
	"github.com/handiism/tubefetch/internal/config"
	"github.com/handiism/tubefetch/internal/download"
	"github.com/handiism/tubefetch/internal/history"
	"github.com/handiism/tubefetch/internal/http"
	"github.com/handiism/tubefetch/internal/progress"
	"github.com/handiism/tubefetch/internal/ytdlp"
)

const (
	exitResolution = 1
	exitFailures   = 2
	exitCancelled  = 130
)

func main() {
	os.Exit(run())
}

func run() int {
	// Command line flags
	var (
		urlFlag          = flag.String("url", "", "YouTube video or playlist URL")
		configFlag       = flag.String("config", "", "Path to config file (default ~/.tubefetch/config.json)")
		outputFlag       = flag.String("output", "", "Output directory (overrides config)")
		formatFlag       = flag.String("format", "", "Audio format: mp3, m4a, opus, flac, wav")
		qualityFlag      = flag.String("quality", "", "Audio quality, e.g. 320 for mp3")
		parallelFlag     = flag.Bool("parallel", false, "Download playlist items in parallel")
		maxParallelFlag  = flag.Int("max-parallel", 0, "Maximum parallel downloads (1-5)")
		retriesFlag      = flag.Int("retries", 0, "Retries per item after the first attempt")
		playlistFlag     = flag.Bool("playlist", false, "Create playlist file")
		verboseFlag      = flag.Bool("verbose", false, "Show verbose output and logs")
		checkFlag        = flag.Bool("check", false, "Check yt-dlp, ffmpeg and connectivity, then exit")
		historyFlag      = flag.Int("history", 0, "Show the N most recent downloads, then exit")
		statsFlag        = flag.Bool("stats", false, "Show download statistics, then exit")
		searchFlag       = flag.String("search", "", "Search the download history by title, then exit")
		resetHistoryFlag = flag.Bool("reset-history", false, "Clear the download history, then exit")
		dryRunFlag       = flag.Bool("dry-run", false, "Resolve the URL without downloading")
	)

	flag.Parse()

	configPath := *configFlag
	if configPath == "" {
		configPath = config.DefaultConfigPath()
	}
	if err := config.LoadDotEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "Error loading .env: %v\n", err)
		return 1
	}
	settings, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		return 1
	}
	if err := settings.ApplyEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "Error in environment: %v\n", err)
		return 1
	}

	// Only flags given on the command line override the config file.
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "output":
			settings.DownloadsPath = *outputFlag
		case "format":
			settings.AudioFormat = *formatFlag
		case "quality":
			settings.AudioQuality = *qualityFlag
		case "parallel":
			settings.ParallelDownloads = *parallelFlag
		case "max-parallel":
			settings.MaxParallelDownloads = *maxParallelFlag
		case "retries":
			settings.MaxRetries = *retriesFlag
		case "playlist":
			settings.CreatePlaylist = *playlistFlag
		case "verbose":
			if *verboseFlag {
				settings.LogLevel = "DEBUG"
			}
		}
	})
	settings.Normalize()

	var logOut io.Writer = io.Discard
	if *verboseFlag {
		logOut = os.Stderr
	}
	logger, closeLog, err := settings.OpenLogger(logOut)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening log file: %v\n", err)
		return 1
	}
	defer closeLog()

	// Handle interrupts
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch {
	case *checkFlag:
		return runCheck(ctx)
	case *historyFlag > 0 || *statsFlag || *resetHistoryFlag || *searchFlag != "":
		return runHistory(settings, logger, historyQuery{
			recent: *historyFlag,
			search: *searchFlag,
			stats:  *statsFlag,
			reset:  *resetHistoryFlag,
		})
	}

	// CLI mode - require URL
	url := *urlFlag
	if url == "" && flag.NArg() > 0 {
		url = flag.Arg(0)
	}
	if url == "" {
		fmt.Println("tubefetch - Download audio from YouTube videos and playlists")
		fmt.Println()
		fmt.Println("Usage:")
		fmt.Println("  tubefetch -url <URL> [options]")
		fmt.Println("  tubefetch <URL> [options]")
		fmt.Println()
		fmt.Println("For interactive mode, use: tubefetch-tui")
		fmt.Println()
		flag.PrintDefaults()
		return 1
	}

	job, err := app.NewJob(settings,
		app.WithLogger(logger),
		app.WithProgress(printer(*verboseFlag)),
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	fmt.Println("♪ tubefetch")
	fmt.Println("────────────────────────────────────────")
	fmt.Println()

	if *dryRunFlag {
		return runDryRun(ctx, job, url)
	}

	if err := ytdlp.CheckDependencies(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	start := time.Now()
	res, err := job.Run(ctx, url)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return exitResolution
	}
	return printSummary(res, time.Since(start))
}

// printer renders engine events to stdout.
func printer(verbose bool) func(download.ProgressEvent) {
	return func(event download.ProgressEvent) {
		if event.Level == download.LevelVerbose && !verbose {
			return
		}

		prefix := ""
		switch event.Level {
		case download.LevelError:
			prefix = "✗ "
		case download.LevelWarning:
			prefix = "! "
		case download.LevelSuccess:
			prefix = "✓ "
		case download.LevelInfo:
			prefix = "› "
		default:
			prefix = "  "
		}

		fmt.Println(prefix + event.Message)
	}
}

func printSummary(res app.Result, elapsed time.Duration) int {
	report := res.Report

	fmt.Println()
	fmt.Println("────────────────────────────────────────")
	fmt.Printf("Downloaded %d/%d in %s\n", report.Successful, report.Total, elapsed.Round(time.Second))
	if res.PlaylistPath != "" {
		fmt.Printf("Playlist: %s\n", res.PlaylistPath)
	}
	for _, f := range report.Failed {
		fmt.Printf("  ✗ %s (%s, %d attempts): %s\n", f.Item.Label(), f.Outcome.Kind, f.Attempts, f.Outcome.Message)
	}

	switch {
	case report.Cancelled:
		fmt.Println("\nDownload cancelled.")
		return exitCancelled
	case report.AllSucceeded():
		return 0
	default:
		return exitFailures
	}
}

func runDryRun(ctx context.Context, job *app.Job, url string) int {
	target, err := job.Resolver.Resolve(ctx, url)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return exitResolution
	}

	fmt.Printf("%s: %s (%d items)\n", target.Kind, target.Title, len(target.Items))
	for _, item := range target.Items {
		fmt.Printf("  %s [%s]\n", item.Label(), progress.FormatDuration(item.Duration))
	}
	fmt.Println("\n[Dry run - not downloading]")
	return 0
}

func runCheck(ctx context.Context) int {
	code := 0

	deps := ytdlp.DependencyStatus(ctx)
	printDep := func(name string, found bool, path, version string) {
		if !found {
			fmt.Printf("✗ %s: not found on PATH\n", name)
			code = 1
			return
		}
		fmt.Printf("✓ %s: %s %s\n", name, path, version)
	}
	printDep("yt-dlp", deps.YTDLPFound, deps.YTDLPPath, deps.YTDLPVersion)
	printDep("ffmpeg", deps.FFmpegFound, deps.FFmpegPath, deps.FFmpegVersion)

	client := http.NewClient(http.WithTimeout(10 * time.Second))
	for _, r := range client.ProbeAll(ctx, http.DefaultProbeTargets) {
		if r.Reachable {
			fmt.Printf("✓ %s\n", r)
		} else {
			fmt.Printf("✗ %s\n", r)
			code = 1
		}
	}
	return code
}

type historyQuery struct {
	recent int
	search string
	stats  bool
	reset  bool
}

func runHistory(settings *config.Settings, logger *slog.Logger, q historyQuery) int {
	store, err := history.Open(settings.HistoryPath, settings.AudioFormat, settings.AudioQuality, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening history: %v\n", err)
		return 1
	}

	if q.reset {
		if err := store.Reset(); err != nil {
			fmt.Fprintf(os.Stderr, "Error clearing history: %v\n", err)
			return 1
		}
		fmt.Println("History cleared.")
		return 0
	}

	if q.recent > 0 {
		entries := store.Recent(q.recent)
		if len(entries) == 0 {
			fmt.Println("No downloads yet.")
		}
		printEntries(entries)
	}

	if q.search != "" {
		entries := store.Search(q.search)
		fmt.Printf("%d match(es) for %q\n", len(entries), q.search)
		printEntries(entries)
	}

	if q.stats {
		s := store.Stats()
		fmt.Printf("Total downloads: %d\n", s.TotalDownloads)
		fmt.Printf("Total size:      %.2f MB\n", s.TotalSizeMB)
		fmt.Printf("Total duration:  %.1f min\n", s.TotalDurationMinutes)
		fmt.Printf("Average size:    %.2f MB\n", s.AverageFileSizeMB)
		if s.MostRecent != "" {
			fmt.Printf("Most recent:     %s\n", s.MostRecent)
		}
	}
	return 0
}

func printEntries(entries []history.Entry) {
	for _, e := range entries {
		fmt.Printf("%s  %-50s %6.2f MB  %s %s\n", e.Date, e.Title, e.FileSizeMB, e.Format, e.Quality)
	}
}
