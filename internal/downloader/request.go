package downloader

import (
	"errors"
	"fmt"

	"github.com/guiyumin/ytfetch/internal/core/quality"
	"github.com/guiyumin/ytfetch/internal/extractor"
)

var (
	// ErrInvalidURL is reported for URLs that are not YouTube video URLs
	ErrInvalidURL = errors.New("invalid YouTube URL")
	// ErrNoStream is reported when no stream fits the requested format
	ErrNoStream = errors.New("no suitable stream found")
)

// Request describes one download. It is never modified by the engine.
type Request struct {
	URL       string
	Format    quality.Format
	Tier      quality.Tier
	OutputDir string
	// Filename overrides the video title as the base name (no extension)
	Filename string
	// TierDefaulted is set when the quality string was not recognised
	TierDefaulted bool
}

// NewRequest builds a Request from user-facing strings. An unsupported
// format is an error; an unknown quality silently becomes "high".
func NewRequest(url, format, qual, outputDir, filename string) (Request, error) {
	f, err := quality.ParseFormat(format)
	if err != nil {
		return Request{}, &Error{Kind: InvalidInput, Err: err}
	}
	tier, ok := quality.ParseTier(qual)
	return Request{
		URL:           url,
		Format:        f,
		Tier:          tier,
		OutputDir:     outputDir,
		Filename:      filename,
		TierDefaulted: !ok,
	}, nil
}

// ErrorKind classifies why a download failed
type ErrorKind int

const (
	NoError ErrorKind = iota
	InvalidInput
	ResolutionFailure
	NoMatchingStream
	TransferFailure
	// TranscodeFailure never fails a download; it only shows up as FallbackRenameOnly
	TranscodeFailure
)

func (k ErrorKind) String() string {
	switch k {
	case InvalidInput:
		return "invalid_input"
	case ResolutionFailure:
		return "resolution_failure"
	case NoMatchingStream:
		return "no_matching_stream"
	case TransferFailure:
		return "transfer_failure"
	case TranscodeFailure:
		return "transcode_failure"
	default:
		return "none"
	}
}

func (k ErrorKind) describe() string {
	switch k {
	case InvalidInput:
		return "invalid input"
	case ResolutionFailure:
		return "could not resolve video"
	case NoMatchingStream:
		return "no matching stream"
	case TransferFailure:
		return "download failed"
	case TranscodeFailure:
		return "conversion failed"
	default:
		return "error"
	}
}

// Error is a classified download failure
type Error struct {
	Kind ErrorKind
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v", e.Kind.describe(), e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the ErrorKind carried by err, or NoError
func KindOf(err error) ErrorKind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return NoError
}

// Fallback names a degraded path the engine took
type Fallback string

const (
	// FallbackOutputDir: the output directory could not be created, the working directory was used
	FallbackOutputDir Fallback = "output_dir_cwd"
	// FallbackQualityTier: the quality string was unknown, "high" was used
	FallbackQualityTier Fallback = "quality_tier_default"
	// FallbackBestStream: no stream matched the criterion, the best available was used
	FallbackBestStream Fallback = "best_available_stream"
	// FallbackRenameOnly: transcoding failed, the file was renamed to .mp3
	FallbackRenameOnly Fallback = "rename_only"
)

// Result is produced exactly once per Request
type Result struct {
	URL        string
	Success    bool
	OutputPath string
	Error      string
	Kind       ErrorKind
	Err        error
	// Degraded is set when the output exists but conversion was skipped
	Degraded  bool
	Fallbacks []Fallback
	Title     string
	Size      int64
	Stream    *extractor.Stream
}

// HasFallback reports whether f was taken
func (r Result) HasFallback(f Fallback) bool {
	for _, x := range r.Fallbacks {
		if x == f {
			return true
		}
	}
	return false
}
