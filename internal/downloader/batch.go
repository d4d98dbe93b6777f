package downloader

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/guiyumin/ytfetch/internal/extractor/youtube"
)

// ReadURLs reads one URL per line. Blank lines and "#" comments are
// ignored; lines that are not YouTube URLs are returned in invalid.
func ReadURLs(r io.Reader) (valid, invalid []string, err error) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if youtube.Validate(line) {
			valid = append(valid, line)
		} else {
			invalid = append(invalid, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, fmt.Errorf("failed to read batch input: %w", err)
	}
	return valid, invalid, nil
}

// RunBatch downloads every valid URL read from r, one after another, using
// tmpl for everything but the URL. A failed item never stops the batch;
// cancelling ctx stops before the next item.
func (d *Downloader) RunBatch(ctx context.Context, r io.Reader, tmpl Request) ([]Result, error) {
	urls, invalid, err := ReadURLs(r)
	if err != nil {
		return nil, err
	}
	for _, line := range invalid {
		d.emit(Event{Kind: EventSkipped, Severity: Debug, URL: line, Message: fmt.Sprintf("Skipping invalid URL: %s", line)})
	}
	return d.DownloadAll(ctx, urls, tmpl), nil
}

// DownloadAll runs urls sequentially with tmpl as the request template
func (d *Downloader) DownloadAll(ctx context.Context, urls []string, tmpl Request) []Result {
	if len(urls) == 0 {
		return nil
	}
	d.emit(Event{Kind: EventBatch, Severity: Success, Total: len(urls),
		Message: fmt.Sprintf("Found %d valid URLs. Starting download...", len(urls))})

	results := make([]Result, 0, len(urls))
	for i, url := range urls {
		if ctx.Err() != nil {
			break
		}
		d.emit(Event{Kind: EventBatch, Severity: Info, URL: url, Index: i + 1, Total: len(urls),
			Message: fmt.Sprintf("[%d/%d] Processing: %s", i+1, len(urls), url)})

		req := tmpl
		req.URL = url
		req.Filename = ""
		results = append(results, d.Download(ctx, req))
	}
	return results
}

// Summary counts batch outcomes
type Summary struct {
	Total      int
	Succeeded  int
	Degraded   int
	Failed     int
	FailedURLs []string
}

// Summarize tallies results
func Summarize(results []Result) Summary {
	s := Summary{Total: len(results)}
	for _, r := range results {
		switch {
		case !r.Success:
			s.Failed++
			s.FailedURLs = append(s.FailedURLs, r.URL)
		case r.Degraded:
			s.Succeeded++
			s.Degraded++
		default:
			s.Succeeded++
		}
	}
	return s
}
