package quality

import (
	"strings"

	"github.com/guiyumin/ytfetch/internal/extractor"
)

// preferredVideoContainer is tried first among progressive streams
const preferredVideoContainer = "mp4"

// Selection is the outcome of Select
type Selection struct {
	Stream extractor.Stream
	// FellBack is set when a criterion was given but no stream matched it
	FellBack bool
}

// Candidates filters streams down to those usable for the format:
// progressive streams (mp4 when any exist) for Video, audio-only for Audio.
// Order is preserved.
func Candidates(streams []extractor.Stream, f Format) []extractor.Stream {
	var out []extractor.Stream
	switch f {
	case Audio:
		for _, s := range streams {
			if s.Kind == extractor.AudioOnly {
				out = append(out, s)
			}
		}
	default:
		var mp4 []extractor.Stream
		for _, s := range streams {
			if s.Kind != extractor.Progressive {
				continue
			}
			out = append(out, s)
			if strings.EqualFold(s.Ext, preferredVideoContainer) {
				mp4 = append(mp4, s)
			}
		}
		if len(mp4) > 0 {
			out = mp4
		}
	}
	return out
}

// Select picks one stream: the first exact criterion match, otherwise the
// highest quality candidate (first wins on ties). ok is false when no
// candidate exists.
func Select(streams []extractor.Stream, f Format, c Criterion) (Selection, bool) {
	candidates := Candidates(streams, f)
	if len(candidates) == 0 {
		return Selection{}, false
	}

	if c != None {
		for _, s := range candidates {
			if strings.EqualFold(s.QualityLabel(), string(c)) {
				return Selection{Stream: s}, true
			}
		}
	}

	best := candidates[0]
	for _, s := range candidates[1:] {
		if metric(s, f) > metric(best, f) {
			best = s
		}
	}
	return Selection{Stream: best, FellBack: c != None}, true
}

func metric(s extractor.Stream, f Format) int {
	if f == Audio {
		return s.Bitrate
	}
	return s.Height
}
