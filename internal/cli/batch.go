package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/guiyumin/ytfetch/internal/downloader"
)

// runBatch reads URLs from a file and downloads each one
func runBatch(ctx context.Context, a *app, filename string) error {
	file, err := os.Open(filename)
	if err != nil {
		return fmt.Errorf("batch file not found: %w", err)
	}
	defer file.Close()

	tmpl, err := downloader.NewRequest("", a.cfg.Format, a.cfg.Quality, a.cfg.OutputDir, "")
	if err != nil {
		return err
	}

	var results []downloader.Result
	err = render(ctx, func(ctx context.Context, sink downloader.Sink) error {
		var err error
		results, err = a.dl.With(downloader.WithSink(sink)).RunBatch(ctx, file, tmpl)
		return err
	})
	if err != nil {
		return err
	}
	if len(results) == 0 {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("no valid URLs found in %s", filename)
	}

	printSummary(os.Stdout, downloader.Summarize(results))
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return nil
}

func printSummary(w io.Writer, s downloader.Summary) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, "----------------------------------------")
	fmt.Fprintf(w, "Completed: %d/%d", s.Succeeded, s.Total)
	if s.Degraded > 0 {
		fmt.Fprintf(w, " (%d without MP3 conversion)", s.Degraded)
	}
	if s.Failed > 0 {
		fmt.Fprintf(w, ", Failed: %d", s.Failed)
	}
	fmt.Fprintln(w)

	if len(s.FailedURLs) > 0 {
		fmt.Fprintln(w, "\nFailed URLs:")
		for _, url := range s.FailedURLs {
			fmt.Fprintf(w, "  - %s\n", url)
		}
	}
}
