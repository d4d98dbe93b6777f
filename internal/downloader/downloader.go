package downloader

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"

	"github.com/guiyumin/ytfetch/internal/core/quality"
	"github.com/guiyumin/ytfetch/internal/core/sanitize"
	"github.com/guiyumin/ytfetch/internal/core/transcode"
	"github.com/guiyumin/ytfetch/internal/extractor"
	"github.com/guiyumin/ytfetch/internal/extractor/youtube"
)

// Downloader runs the validate, resolve, select, transfer, transcode
// pipeline for one request at a time
type Downloader struct {
	extractor  extractor.Extractor
	transcoder transcode.Transcoder
	sink       Sink
	log        *zap.Logger
	timeout    time.Duration
}

// Option configures a Downloader
type Option func(*Downloader)

// WithSink sets the event sink
func WithSink(s Sink) Option {
	return func(d *Downloader) {
		if s == nil {
			s = Discard
		}
		d.sink = s
	}
}

// WithLogger sets the diagnostic logger
func WithLogger(log *zap.Logger) Option {
	return func(d *Downloader) {
		if log != nil {
			d.log = log
		}
	}
}

// WithTimeout bounds each download. Zero means no limit.
func WithTimeout(timeout time.Duration) Option {
	return func(d *Downloader) {
		d.timeout = timeout
	}
}

// New creates a Downloader
func New(ext extractor.Extractor, tc transcode.Transcoder, opts ...Option) *Downloader {
	d := &Downloader{
		extractor:  ext,
		transcoder: tc,
		sink:       Discard,
		log:        zap.NewNop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// With returns a copy of d with opts applied
func (d *Downloader) With(opts ...Option) *Downloader {
	c := *d
	for _, opt := range opts {
		opt(&c)
	}
	return &c
}

// Download runs one request to completion. It never panics; every failure
// is reported in the Result.
func (d *Downloader) Download(ctx context.Context, req Request) (res Result) {
	res = Result{URL: req.URL}

	defer func() {
		if r := recover(); r != nil {
			d.log.Error("download panicked", zap.Any("panic", r), zap.String("url", req.URL))
			res = d.fail(res, TransferFailure, fmt.Errorf("internal error: %v", r))
		}
	}()

	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	d.emit(Event{Kind: EventStart, Severity: Info, URL: req.URL,
		Message: fmt.Sprintf("Initializing download from: %s", req.URL)})

	if !youtube.Validate(req.URL) {
		return d.fail(res, InvalidInput, ErrInvalidURL)
	}

	outDir := d.prepareOutputDir(req.OutputDir, &res)

	video, err := d.extractor.Resolve(ctx, youtube.Canonical(req.URL))
	if err != nil {
		return d.fail(res, ResolutionFailure, err)
	}
	res.Title = video.Title
	d.emit(Event{Kind: EventMetadata, Severity: Info, URL: req.URL, Video: video,
		Message: fmt.Sprintf("Video Title: %s\nAuthor: %s\nLength: %s\nFormat: %s",
			video.Title, video.Author, formatDuration(video.Duration), strings.ToUpper(req.Format.String()))})

	criterion, _ := quality.Resolve(req.Format, req.Tier)
	if req.TierDefaulted {
		d.fallback(&res, FallbackQualityTier, "Unrecognised quality, using high")
	}

	sel, ok := quality.Select(video.Streams, req.Format, criterion)
	if !ok {
		return d.fail(res, NoMatchingStream, fmt.Errorf("%w for %s", ErrNoStream, req.Format))
	}
	if sel.FellBack {
		// audio bitrates rarely hit a tier exactly, so this is routine for mp3
		sev := Warning
		if req.Format == quality.Audio {
			sev = Info
		}
		d.fallbackAs(&res, FallbackBestStream, sev, fmt.Sprintf("Could not find %s stream, downloading best available (%s)",
			criterion, sel.Stream.QualityLabel()))
	}
	stream := sel.Stream
	res.Stream = &stream
	d.emit(Event{Kind: EventSelected, Severity: Info, URL: req.URL,
		Message: fmt.Sprintf("Selected stream: %s (%s)", stream.QualityLabel(), stream.Ext)})

	name := req.Filename
	if strings.TrimSpace(name) == "" {
		name = video.Title
	}
	name = sanitize.Filename(name)
	dest := filepath.Join(outDir, name+"."+stream.Ext)

	err = d.extractor.Transfer(ctx, video, stream, dest, func(p extractor.Progress) {
		d.emit(Event{Kind: EventProgress, Severity: Debug, URL: req.URL, Progress: &p})
	})
	if err != nil {
		return d.fail(res, TransferFailure, err)
	}

	final := dest
	if req.Format == quality.Audio && !strings.EqualFold(stream.Ext, "mp3") {
		final = filepath.Join(outDir, name+".mp3")
		bitrate := criterion.Bitrate()
		d.emit(Event{Kind: EventTranscode, Severity: Info, URL: req.URL,
			Message: fmt.Sprintf("Converting to MP3 (%s)...", bitrate)})

		outcome, err := transcode.Convert(ctx, d.transcoder, dest, final, bitrate)
		if err != nil {
			return d.fail(res, TransferFailure, err)
		}
		if outcome.Degraded {
			d.log.Debug("transcode failed, renamed instead", zap.Error(outcome.Cause))
			res.Degraded = true
			d.fallback(&res, FallbackRenameOnly,
				"FFmpeg not found or failed. Converting by renaming file extension.\nNote: For better quality conversions, install FFmpeg.")
		}
	}

	res.Success = true
	res.OutputPath = final
	if fi, err := os.Stat(final); err == nil {
		res.Size = fi.Size()
	}
	d.emit(Event{Kind: EventDone, Severity: Success, URL: req.URL, Result: &res,
		Message: fmt.Sprintf("Download successful! File saved to: %s (%s)", final, humanize.Bytes(uint64(res.Size)))})
	return res
}

func (d *Downloader) prepareOutputDir(dir string, res *Result) string {
	path, created, err := EnsureOutputDir(dir)
	switch {
	case err != nil:
		d.log.Debug("output dir unavailable", zap.String("dir", dir), zap.Error(err))
		d.fallback(res, FallbackOutputDir, fmt.Sprintf("Error creating directory %s: %v\nFalling back to current directory: %s", dir, err, path))
	case created:
		d.emit(Event{Kind: EventOutputDir, Severity: Success, URL: res.URL,
			Message: fmt.Sprintf("Created output directory: %s", path)})
	}
	return path
}

func (d *Downloader) fallback(res *Result, f Fallback, msg string) {
	d.fallbackAs(res, f, Warning, msg)
}

func (d *Downloader) fallbackAs(res *Result, f Fallback, sev Severity, msg string) {
	res.Fallbacks = append(res.Fallbacks, f)
	d.emit(Event{Kind: EventFallback, Severity: sev, URL: res.URL, Fallback: f, Message: msg})
}

func (d *Downloader) fail(res Result, kind ErrorKind, err error) Result {
	derr := &Error{Kind: kind, Err: err}
	res.Success = false
	res.OutputPath = ""
	res.Kind = kind
	res.Err = derr
	res.Error = derr.Error()
	d.emit(Event{Kind: EventFailed, Severity: Failure, URL: res.URL, Result: &res, Message: res.Error})
	return res
}

// emit recovers from sink panics
func (d *Downloader) emit(e Event) {
	defer func() {
		if r := recover(); r != nil {
			d.log.Warn("event sink panicked", zap.Any("panic", r))
		}
	}()
	d.sink.Emit(e)
}

// EnsureOutputDir creates dir if needed. An empty dir means the working
// directory. If dir cannot be created the working directory is returned
// along with the error.
func EnsureOutputDir(dir string) (path string, created bool, err error) {
	if dir == "" {
		cwd, werr := os.Getwd()
		if werr != nil {
			return ".", false, nil
		}
		return cwd, false, nil
	}

	if fi, statErr := os.Stat(dir); statErr == nil {
		if fi.IsDir() {
			return dir, false, nil
		}
		err = fmt.Errorf("%s exists and is not a directory", dir)
	} else if mkErr := os.MkdirAll(dir, 0755); mkErr != nil {
		err = mkErr
	} else {
		return dir, true, nil
	}

	cwd, werr := os.Getwd()
	if werr != nil {
		cwd = "."
	}
	return cwd, false, err
}

func formatDuration(d time.Duration) string {
	if d <= 0 {
		return "??:??"
	}
	d = d.Round(time.Second)
	h := d / time.Hour
	m := (d % time.Hour) / time.Minute
	s := (d % time.Minute) / time.Second
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}
