package extractor

import (
	"context"
	"fmt"
	"time"
)

// StreamKind classifies what a stream carries
type StreamKind int

const (
	VideoOnly StreamKind = iota
	AudioOnly
	Progressive // audio and video muxed in one container
)

func (k StreamKind) String() string {
	switch k {
	case AudioOnly:
		return "audio"
	case Progressive:
		return "video+audio"
	default:
		return "video"
	}
}

// Stream describes one downloadable rendition of a video
type Stream struct {
	ID       string // itag
	MimeType string
	Ext      string // container, without the dot
	Kind     StreamKind
	Height   int
	Bitrate  int   // bits per second
	Size     int64 // bytes, 0 if unknown
	Label    string
}

// QualityLabel returns "720p" style labels for video streams and "128kbps"
// style labels for audio-only streams
func (s Stream) QualityLabel() string {
	if s.Kind == AudioOnly {
		return fmt.Sprintf("%dkbps", (s.Bitrate+500)/1000)
	}
	if s.Height > 0 {
		return fmt.Sprintf("%dp", s.Height)
	}
	return s.Label
}

// Video is the resolved metadata for a URL plus its available streams
type Video struct {
	ID       string
	Title    string
	Author   string
	Duration time.Duration
	Streams  []Stream

	source any // backend-specific handle kept for Transfer
}

// Progress reports bytes written so far. Total is 0 when unknown.
type Progress struct {
	Downloaded int64
	Total      int64
}

// Percent returns completion in [0,100], or -1 when the total is unknown
func (p Progress) Percent() float64 {
	if p.Total <= 0 {
		return -1
	}
	pct := float64(p.Downloaded) / float64(p.Total) * 100
	if pct > 100 {
		pct = 100
	}
	return pct
}

// Extractor resolves a URL into streams and transfers one of them to disk
type Extractor interface {
	Name() string
	Resolve(ctx context.Context, url string) (*Video, error)
	// Transfer writes the stream to dest. On error dest does not exist.
	Transfer(ctx context.Context, v *Video, s Stream, dest string, onProgress func(Progress)) error
}
