package youtube

import (
	"net/url"
	"regexp"
	"strings"
)

// urlRe accepts the URL shapes YouTube hands out: watch pages, short links,
// embeds, the nocookie domain, mobile hosts and /v/, /shorts/ paths
var urlRe = regexp.MustCompile(`^((?:https?:)?//)?((?:www|m)\.)?(youtube(?:-nocookie)?\.com|youtu\.be)(/(?:[\w\-]+\?v=|embed/|v/|shorts/)?)([\w\-]+)(\S+)?$`)

var idRe = regexp.MustCompile(`(?:youtube(?:-nocookie)?\.com/(?:watch\?v=|embed/|v/|shorts/)|youtu\.be/)([a-zA-Z0-9_-]{11})`)

// Validate reports whether rawURL looks like a YouTube video URL.
// It never touches the network.
func Validate(rawURL string) bool {
	return urlRe.MatchString(strings.TrimSpace(rawURL))
}

// VideoID extracts the 11-character video ID
func VideoID(rawURL string) (string, bool) {
	rawURL = strings.TrimSpace(rawURL)
	if m := idRe.FindStringSubmatch(rawURL); len(m) > 1 {
		return m[1], true
	}

	// watch pages with v= somewhere other than first
	u, err := url.Parse(rawURL)
	if err == nil {
		if v := u.Query().Get("v"); len(v) == 11 {
			return v, true
		}
	}
	return "", false
}

// Canonical rewrites any recognised URL to https://www.youtube.com/watch?v=ID.
// URLs without an extractable ID are returned trimmed but otherwise unchanged.
func Canonical(rawURL string) string {
	if id, ok := VideoID(rawURL); ok {
		return "https://www.youtube.com/watch?v=" + id
	}
	return strings.TrimSpace(rawURL)
}
