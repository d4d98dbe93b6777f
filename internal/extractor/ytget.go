package extractor

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"regexp"
	"strconv"
	"time"

	"github.com/ytget/ytdlp/v2"
	"github.com/ytget/ytdlp/v2/errs"
)

var heightRe = regexp.MustCompile(`(\d{3,4})p`)

// ytgetExtractor resolves and downloads through the pure-Go github.com/ytget/ytdlp
type ytgetExtractor struct {
	client *http.Client
}

func newYtgetExtractor(opts Options) (Extractor, error) {
	hc, err := httpClient(opts)
	if err != nil {
		return nil, err
	}
	return &ytgetExtractor{client: hc}, nil
}

func (e *ytgetExtractor) Name() string {
	return "ytdlp"
}

// Resolve expects a canonical watch URL; the library only parses youtu.be
// and /watch forms
func (e *ytgetExtractor) Resolve(ctx context.Context, url string) (*Video, error) {
	_, info, err := ytdlp.New().WithHTTPClient(e.client).ResolveURL(ctx, url)
	if err != nil {
		return nil, ytgetError(err)
	}

	video := &Video{
		ID:       info.ID,
		Title:    info.Title,
		Author:   info.Author,
		Duration: time.Duration(info.Duration) * time.Second,
		Streams:  make([]Stream, 0, len(info.Formats)),
		source:   url,
	}
	for _, f := range info.Formats {
		video.Streams = append(video.Streams, ytgetStream(f))
	}
	return video, nil
}

func (e *ytgetExtractor) Transfer(ctx context.Context, v *Video, s Stream, dest string, onProgress func(Progress)) error {
	url, ok := v.source.(string)
	if !ok {
		return errors.New("video was not resolved by the ytdlp extractor")
	}

	dl := ytdlp.New().
		WithHTTPClient(e.client).
		WithFormat("itag="+s.ID, "").
		WithOutputPath(dest).
		WithProgress(func(p ytdlp.Progress) {
			if onProgress != nil {
				onProgress(Progress{Downloaded: p.DownloadedSize, Total: p.TotalSize})
			}
		})

	if _, err := dl.Download(ctx, url); err != nil {
		// the library resumes from <dest>.tmp; a fresh attempt should start clean
		os.Remove(dest + ".tmp")
		return fmt.Errorf("download failed: %w", ytgetError(err))
	}
	return nil
}

func ytgetStream(f ytdlp.Format) Stream {
	height := 0
	if m := heightRe.FindStringSubmatch(f.Quality); len(m) == 2 {
		height, _ = strconv.Atoi(m[1])
	}
	return Stream{
		ID:       strconv.Itoa(f.Itag),
		MimeType: f.MimeType,
		Ext:      ExtFromMime(f.MimeType),
		Kind:     KindFromMime(f.MimeType),
		Height:   height,
		Bitrate:  f.Bitrate,
		Size:     f.Size,
		Label:    f.Quality,
	}
}

func ytgetError(err error) error {
	switch {
	case errors.Is(err, errs.ErrPrivate):
		return fmt.Errorf("video is private: %w", err)
	case errors.Is(err, errs.ErrAgeRestricted):
		return fmt.Errorf("video requires sign-in (age restricted): %w", err)
	case errors.Is(err, errs.ErrGeoBlocked):
		return fmt.Errorf("video is not available in your region: %w", err)
	case errors.Is(err, errs.ErrRateLimited):
		return fmt.Errorf("rate limited by YouTube, try again later: %w", err)
	case errors.Is(err, errs.ErrVideoUnavailable):
		return fmt.Errorf("video unavailable: %w", err)
	}
	return err
}

func init() {
	Register(newYtgetExtractor, "ytdlp", "ytget")
}
