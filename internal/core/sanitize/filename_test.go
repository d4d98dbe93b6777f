package sanitize

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilename(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "Rick Astley - Never Gonna Give You Up", "Rick_Astley_-_Never_Gonna_Give_You_Up"},
		{"collapse", "My  Song__Title.mp3", "My_Song_Title.mp3"},
		{"strips punctuation", `a<b>c:d"e/f\g|h?i*j`, "abcdefghij"},
		{"keeps parens", "Song (Official Video)", "Song_(Official_Video)"},
		{"non ascii", "日本語 タイトル", "_"},
		{"empty", "", Fallback},
		{"only invalid", "???", Fallback},
		{"dots only", "...", Fallback},
		{"leading dot", ".hidden", "hidden"},
		{"tabs removed", "a\tb", "ab"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Filename(tt.in))
		})
	}
}

func TestFilenameLength(t *testing.T) {
	got := Filename(strings.Repeat("a", 250))
	assert.Len(t, got, MaxLength)
}

func TestFilenameIdempotent(t *testing.T) {
	inputs := []string{
		"",
		"???",
		"My  Song__Title.mp3",
		"  spaced   out  ",
		strings.Repeat("ab ", 60),
		strings.Repeat("x", 99) + ".mp3",
		"Ünïcödé — title | live @ 2024",
		"._.",
	}

	for _, in := range inputs {
		once := Filename(in)
		assert.Equal(t, once, Filename(once), "input %q", in)
		assert.NotContains(t, once, "__")
		assert.LessOrEqual(t, len(once), MaxLength)
	}
}
