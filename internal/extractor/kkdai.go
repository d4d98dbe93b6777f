package extractor

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/kkdai/youtube/v2"
)

// kkdaiExtractor resolves and downloads through github.com/kkdai/youtube
type kkdaiExtractor struct {
	client *youtube.Client
}

func newKkdaiExtractor(opts Options) (Extractor, error) {
	hc, err := httpClient(opts)
	if err != nil {
		return nil, err
	}
	return &kkdaiExtractor{client: &youtube.Client{HTTPClient: hc}}, nil
}

func (e *kkdaiExtractor) Name() string {
	return "kkdai"
}

func (e *kkdaiExtractor) Resolve(ctx context.Context, url string) (*Video, error) {
	v, err := e.client.GetVideoContext(ctx, url)
	if err != nil {
		return nil, kkdaiError(err)
	}

	video := &Video{
		ID:       v.ID,
		Title:    v.Title,
		Author:   v.Author,
		Duration: v.Duration,
		Streams:  make([]Stream, 0, len(v.Formats)),
		source:   v,
	}
	for _, f := range v.Formats {
		video.Streams = append(video.Streams, kkdaiStream(f))
	}
	return video, nil
}

func (e *kkdaiExtractor) Transfer(ctx context.Context, v *Video, s Stream, dest string, onProgress func(Progress)) error {
	yv, ok := v.source.(*youtube.Video)
	if !ok {
		return errors.New("video was not resolved by the kkdai extractor")
	}
	format := kkdaiFormat(yv, s.ID)
	if format == nil {
		return fmt.Errorf("stream %s not found", s.ID)
	}

	err := e.transfer(ctx, yv, format, dest, onProgress)
	if isForbidden(err) {
		// Chunked range requests are sometimes refused; retry as one request
		single := *format
		single.ContentLength = 0
		err = e.transfer(ctx, yv, &single, dest, onProgress)
	}
	return err
}

func (e *kkdaiExtractor) transfer(ctx context.Context, yv *youtube.Video, format *youtube.Format, dest string, onProgress func(Progress)) error {
	stream, size, err := e.client.GetStreamContext(ctx, yv, format)
	if err != nil {
		return fmt.Errorf("failed to open stream: %w", err)
	}
	defer stream.Close()

	if _, err := writeFile(ctx, dest, stream, size, onProgress); err != nil {
		return fmt.Errorf("download failed: %w", err)
	}
	return nil
}

func kkdaiFormat(v *youtube.Video, id string) *youtube.Format {
	for i := range v.Formats {
		if strconv.Itoa(v.Formats[i].ItagNo) == id {
			return &v.Formats[i]
		}
	}
	return nil
}

func kkdaiStream(f youtube.Format) Stream {
	kind := KindFromMime(f.MimeType)
	if kind == VideoOnly && f.AudioChannels > 0 {
		kind = Progressive
	}

	bitrate := f.AverageBitrate
	if bitrate == 0 {
		bitrate = f.Bitrate
	}

	label := f.QualityLabel
	if kind == AudioOnly {
		label = f.AudioQuality
	}

	return Stream{
		ID:       strconv.Itoa(f.ItagNo),
		MimeType: f.MimeType,
		Ext:      ExtFromMime(f.MimeType),
		Kind:     kind,
		Height:   f.Height,
		Bitrate:  bitrate,
		Size:     int64(f.ContentLength),
		Label:    label,
	}
}

func isForbidden(err error) bool {
	var statusErr youtube.ErrUnexpectedStatusCode
	if errors.As(err, &statusErr) {
		return int(statusErr) == http.StatusForbidden
	}
	return false
}

// kkdaiError turns library errors into messages a user can act on
func kkdaiError(err error) error {
	switch {
	case errors.Is(err, youtube.ErrVideoPrivate):
		return fmt.Errorf("video is private: %w", err)
	case errors.Is(err, youtube.ErrLoginRequired):
		return fmt.Errorf("video requires sign-in (age restricted or members only): %w", err)
	case errors.Is(err, youtube.ErrNotPlayableInEmbed):
		return fmt.Errorf("video cannot be played outside youtube.com: %w", err)
	}

	var statusErr *youtube.ErrPlayabiltyStatus
	if errors.As(err, &statusErr) {
		return fmt.Errorf("video unavailable (%s): %w", statusErr.Reason, err)
	}
	return fmt.Errorf("failed to fetch video info: %w", err)
}

func init() {
	Register(newKkdaiExtractor, "kkdai", "youtube")
}
