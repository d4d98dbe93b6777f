package cli

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"golang.org/x/time/rate"

	"github.com/guiyumin/ytfetch/internal/downloader"
	"github.com/guiyumin/ytfetch/internal/extractor"
)

var (
	infoColor    = color.New(color.FgCyan)
	successColor = color.New(color.FgGreen)
	warnColor    = color.New(color.FgYellow)
	failColor    = color.New(color.FgRed)
	batchColor   = color.New(color.FgBlue)
	debugColor   = color.New(color.Faint)
	promptColor  = color.New(color.FgHiYellow)
	bannerColor  = color.New(color.FgHiMagenta)
)

// plainRenderer prints events as colored lines. Progress is redrawn in place
// on a terminal and printed at most once per interval otherwise.
type plainRenderer struct {
	mu       sync.Mutex
	out      io.Writer
	verbose  bool
	inPlace  bool
	progress rate.Sometimes
	dirty    bool
}

func newPlainRenderer(out io.Writer, verbose, inPlace bool) *plainRenderer {
	interval := 2 * time.Second
	if inPlace {
		interval = 100 * time.Millisecond
	}
	return &plainRenderer{
		out:      out,
		verbose:  verbose,
		inPlace:  inPlace,
		progress: rate.Sometimes{First: 1, Interval: interval},
	}
}

func (r *plainRenderer) Emit(e downloader.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e.Kind == downloader.EventProgress {
		if e.Progress != nil {
			p := *e.Progress
			r.progress.Do(func() { r.drawProgress(p) })
		}
		return
	}
	if e.Severity == downloader.Debug && !r.verbose {
		return
	}
	r.endProgress()

	switch e.Severity {
	case downloader.Success:
		successColor.Fprintln(r.out, e.Message)
	case downloader.Warning:
		warnColor.Fprintln(r.out, e.Message)
	case downloader.Failure:
		failColor.Fprintln(r.out, "Error: "+e.Message)
	case downloader.Debug:
		debugColor.Fprintln(r.out, e.Message)
	default:
		if e.Kind == downloader.EventBatch && e.Index > 0 {
			fmt.Fprintln(r.out)
			batchColor.Fprintln(r.out, e.Message)
			return
		}
		infoColor.Fprintln(r.out, e.Message)
	}
}

func (r *plainRenderer) drawProgress(p extractor.Progress) {
	line := "Downloading: " + progressText(p, 30)
	if r.inPlace {
		fmt.Fprintf(r.out, "\r\033[K%s", line)
		r.dirty = true
		return
	}
	fmt.Fprintln(r.out, line)
}

func (r *plainRenderer) endProgress() {
	if r.dirty {
		fmt.Fprintln(r.out)
		r.dirty = false
	}
}

// progressText renders "[████░░░░] 42.0% (12 MB/28 MB)", or just the byte
// count when the total is unknown
func progressText(p extractor.Progress, width int) string {
	pct := p.Percent()
	if pct < 0 {
		return humanize.Bytes(uint64(p.Downloaded))
	}
	filled := int(pct / 100 * float64(width))
	bar := strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
	return fmt.Sprintf("[%s] %.1f%% (%s/%s)", bar, pct,
		humanize.Bytes(uint64(p.Downloaded)), humanize.Bytes(uint64(p.Total)))
}
