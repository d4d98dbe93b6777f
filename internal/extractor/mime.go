package extractor

import "strings"

// ExtFromMime maps a stream MIME type to a file extension
func ExtFromMime(mime string) string {
	base := mimeBase(mime)
	switch base {
	case "audio/mp4":
		return "m4a"
	case "audio/mpeg":
		return "mp3"
	case "video/3gpp":
		return "3gp"
	case "":
		return "mp4"
	}
	if _, sub, ok := strings.Cut(base, "/"); ok && sub != "" {
		return sub
	}
	return "mp4"
}

// KindFromMime classifies a stream by its MIME type and codec list
func KindFromMime(mime string) StreamKind {
	base := mimeBase(mime)
	if strings.HasPrefix(base, "audio/") {
		return AudioOnly
	}
	codecs := mimeCodecs(mime)
	if len(codecs) >= 2 {
		return Progressive
	}
	for _, c := range codecs {
		if strings.HasPrefix(c, "mp4a") || c == "opus" || c == "vorbis" {
			return Progressive
		}
	}
	return VideoOnly
}

func mimeBase(mime string) string {
	base, _, _ := strings.Cut(mime, ";")
	return strings.ToLower(strings.TrimSpace(base))
}

// mimeCodecs parses `codecs="avc1.42001E, mp4a.40.2"`
func mimeCodecs(mime string) []string {
	_, params, ok := strings.Cut(mime, ";")
	if !ok {
		return nil
	}
	i := strings.Index(params, "codecs=")
	if i < 0 {
		return nil
	}
	raw := strings.Trim(strings.TrimSpace(params[i+len("codecs="):]), `"`)
	var codecs []string
	for _, c := range strings.Split(raw, ",") {
		if c = strings.TrimSpace(c); c != "" {
			codecs = append(codecs, strings.ToLower(c))
		}
	}
	return codecs
}
