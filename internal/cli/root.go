package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-colorable"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/guiyumin/ytfetch/internal/config"
	"github.com/guiyumin/ytfetch/internal/core/transcode"
	"github.com/guiyumin/ytfetch/internal/downloader"
	"github.com/guiyumin/ytfetch/internal/extractor"
	"github.com/guiyumin/ytfetch/internal/extractor/youtube"
	"github.com/guiyumin/ytfetch/internal/logging"
	"github.com/guiyumin/ytfetch/internal/version"
)

// ErrFailed is returned when a download failed and the failure has
// already been shown to the user
var ErrFailed = errors.New("download failed")

var (
	urlFlag   string
	format    string
	output    string
	quality   string
	batchFile string
	name      string
	info      bool
	plain     bool
	verbose   bool
)

var rootCmd = &cobra.Command{
	Use:   "ytfetch [url]",
	Short: "Download YouTube videos as MP4 or MP3",
	Long: `Download YouTube videos as MP4 or MP3.

Run without a URL or --batch to start the interactive menu.

Examples:
  ytfetch https://youtu.be/dQw4w9WgXcQ
  ytfetch -u https://www.youtube.com/watch?v=dQw4w9WgXcQ -f mp3 -q medium
  ytfetch -b urls.txt -o ~/Music -f mp3
  ytfetch serve --addr :8080`,
	Version:       version.Version,
	Args:          cobra.MaximumNArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runRoot,
}

func init() {
	rootCmd.Flags().StringVarP(&urlFlag, "url", "u", "", "YouTube video URL")
	rootCmd.Flags().StringVarP(&format, "format", "f", "", "download format: mp3 or mp4")
	rootCmd.Flags().StringVarP(&output, "output", "o", "", "output directory")
	rootCmd.Flags().StringVarP(&quality, "quality", "q", "", "quality: low, medium, high or best")
	rootCmd.Flags().StringVarP(&batchFile, "batch", "b", "", "file containing one YouTube URL per line")
	rootCmd.Flags().StringVarP(&name, "name", "n", "", "output filename without extension")
	rootCmd.Flags().BoolVar(&info, "info", false, "show video info without downloading")
	rootCmd.Flags().BoolVar(&plain, "plain", false, "plain line output instead of the progress UI")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output and debug logging")
}

// ExecuteContext runs the root command. Cancelling ctx stops the running
// download.
func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

// app bundles what every download front end needs
type app struct {
	cfg     *config.Config
	log     *zap.Logger
	ext     extractor.Extractor
	ffmpeg  *transcode.FFmpeg
	dl      *downloader.Downloader
	restore func()
}

func newApp(cfg *config.Config, log *zap.Logger) (*app, error) {
	ext, err := extractor.New(cfg.Extractor, extractor.Options{Proxy: cfg.Proxy})
	if err != nil {
		return nil, err
	}
	ff := transcode.NewFFmpeg(cfg.FFmpegPath, log)

	return &app{
		cfg:    cfg,
		log:    log,
		ext:    ext,
		ffmpeg: ff,
		dl: downloader.New(ext, ff,
			downloader.WithLogger(log),
			downloader.WithTimeout(time.Duration(cfg.Timeout))),
		// the ytdlp backend logs through the standard library logger
		restore: zap.RedirectStdLog(log),
	}, nil
}

func (a *app) close() {
	a.restore()
	_ = a.log.Sync()
}

func runRoot(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg := config.LoadOrDefault()

	if !config.Exists() {
		warnColor.Fprintln(colorable.NewColorableStderr(), "No config file found, using defaults. Run 'ytfetch config init' to create one.")
	}
	applyFlags(cmd, cfg)

	level := cfg.LogLevel
	if verbose {
		level = "debug"
	}
	a, err := newApp(cfg, logging.Must(level, false))
	if err != nil {
		return err
	}
	defer a.close()

	url := urlFlag
	if url == "" && len(args) > 0 {
		url = args[0]
	}

	switch {
	case batchFile != "":
		return runBatch(ctx, a, batchFile)
	case url != "" && info:
		return runInfo(ctx, a, url)
	case url != "":
		return runSingle(ctx, a, url)
	default:
		return runInteractive(ctx, a, os.Stdin)
	}
}

// applyFlags lets explicit flags override config values
func applyFlags(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flags().Changed("format") {
		cfg.Format = format
	}
	if cmd.Flags().Changed("quality") {
		cfg.Quality = quality
	}
	if cmd.Flags().Changed("output") {
		cfg.OutputDir = output
	}
}

func runSingle(ctx context.Context, a *app, url string) error {
	req, err := downloader.NewRequest(url, a.cfg.Format, a.cfg.Quality, a.cfg.OutputDir, name)
	if err != nil {
		return err
	}

	var res downloader.Result
	err = render(ctx, func(ctx context.Context, sink downloader.Sink) error {
		res = a.dl.With(downloader.WithSink(sink)).Download(ctx, req)
		return nil
	})
	if err != nil {
		return err
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if !res.Success {
		return ErrFailed
	}
	return nil
}

func runInfo(ctx context.Context, a *app, url string) error {
	if !youtube.Validate(url) {
		return downloader.ErrInvalidURL
	}
	v, err := a.ext.Resolve(ctx, youtube.Canonical(url))
	if err != nil {
		return err
	}

	infoColor.Printf("Title:   %s\n", v.Title)
	fmt.Printf("Author:  %s\n", v.Author)
	fmt.Printf("Length:  %s\n", v.Duration.Round(time.Second))
	fmt.Printf("Streams (%d):\n", len(v.Streams))
	for _, s := range v.Streams {
		size := "?"
		if s.Size > 0 {
			size = humanize.Bytes(uint64(s.Size))
		}
		fmt.Printf("  [%s] %-12s %-8s %-5s %s\n", s.ID, s.Kind, s.QualityLabel(), s.Ext, size)
	}
	return nil
}

// render runs job with the progress UI on a terminal, or with plain
// colored lines otherwise
func render(ctx context.Context, job func(ctx context.Context, sink downloader.Sink) error) error {
	tty := term.IsTerminal(int(os.Stdout.Fd()))
	if tty && !plain {
		return runWithTUI(ctx, verbose, job)
	}
	return job(ctx, newPlainRenderer(colorable.NewColorableStdout(), verbose, tty))
}
