package sanitize

import "strings"

// Fallback is used when nothing of the input survives sanitizing
const Fallback = "youtube_download"

// MaxLength is the maximum length of a sanitized name, in bytes
const MaxLength = 100

// Filename reduces raw to a name safe on every common filesystem.
// Only ASCII letters, digits and "-_.() " are kept; spaces become
// underscores, underscore runs collapse, and the result is capped at
// MaxLength. Filename(Filename(s)) == Filename(s).
func Filename(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))

	lastUnderscore := false
	for _, r := range raw {
		if !allowed(r) {
			continue
		}
		if r == ' ' {
			r = '_'
		}
		if r == '_' {
			if lastUnderscore {
				continue
			}
			lastUnderscore = true
		} else {
			lastUnderscore = false
		}
		b.WriteRune(r)
	}

	name := b.String()
	if len(name) > MaxLength {
		name = name[:MaxLength]
	}
	// never "." or "..", never hidden
	name = strings.Trim(name, ".")

	if name == "" {
		return Fallback
	}
	return name
}

func allowed(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	}
	return strings.ContainsRune("-_.() ", r)
}
