package quality

import (
	"errors"
	"fmt"
	"strings"
)

// Format is the requested output kind
type Format int

const (
	Video Format = iota // mp4
	Audio               // mp3
)

// ErrUnsupportedFormat is returned by ParseFormat for anything but mp3/mp4
var ErrUnsupportedFormat = errors.New("unsupported format")

// ParseFormat accepts mp4/video and mp3/audio, case-insensitively
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "mp4", "video":
		return Video, nil
	case "mp3", "audio":
		return Audio, nil
	}
	return 0, fmt.Errorf("%w: %q (expected mp3 or mp4)", ErrUnsupportedFormat, s)
}

func (f Format) String() string {
	if f == Audio {
		return "mp3"
	}
	return "mp4"
}

// Tier is a coarse quality preference
type Tier int

const (
	Low Tier = iota
	Medium
	High
	Best
)

// Tiers lists all tiers in ascending order
var Tiers = []Tier{Low, Medium, High, Best}

func (t Tier) String() string {
	switch t {
	case Low:
		return "low"
	case Medium:
		return "medium"
	case Best:
		return "best"
	default:
		return "high"
	}
}

// ParseTier maps low/medium/high/best. Anything else yields High and false.
func ParseTier(s string) (Tier, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "low":
		return Low, true
	case "medium":
		return Medium, true
	case "high":
		return High, true
	case "best":
		return Best, true
	}
	return High, false
}

// Criterion is a resolution label ("720p") or bitrate label ("192kbps").
// The empty Criterion means "highest available".
type Criterion string

// None selects the highest available stream
const None Criterion = ""

// DefaultAudioBitrate is used for transcoding when no criterion applies
const DefaultAudioBitrate = "256k"

// Bitrate converts "192kbps" into the "192k" form ffmpeg expects
func (c Criterion) Bitrate() string {
	s := strings.ToLower(string(c))
	if !strings.HasSuffix(s, "kbps") {
		return DefaultAudioBitrate
	}
	return strings.TrimSuffix(s, "bps")
}

// table is static and read-only. Every tier has an entry for every format.
var table = map[Format]map[Tier]Criterion{
	Video: {
		Low:    "360p",
		Medium: "720p",
		High:   "1080p",
		Best:   None,
	},
	Audio: {
		Low:    "128kbps",
		Medium: "192kbps",
		High:   "256kbps",
		Best:   "320kbps",
	},
}

// Resolve returns the criterion for a format and tier. Unknown tiers
// resolve as High; ok is false in that case.
func Resolve(f Format, t Tier) (Criterion, bool) {
	row, found := table[f]
	if !found {
		row = table[Video]
	}
	c, ok := row[t]
	if !ok {
		return row[High], false
	}
	return c, true
}
