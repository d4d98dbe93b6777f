package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadOrDefaultWithoutFile(t *testing.T) {
	t.Setenv("YTFETCH_CONFIG_DIR", t.TempDir())

	assert.False(t, Exists())
	cfg := LoadOrDefault()
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestSaveAndLoad(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("YTFETCH_CONFIG_DIR", dir)

	cfg := DefaultConfig()
	cfg.Format = "mp3"
	cfg.Quality = "medium"
	cfg.Timeout = Duration(90 * time.Second)
	cfg.Server.Addr = "127.0.0.1:9000"
	require.NoError(t, Save(cfg))

	assert.True(t, Exists())
	assert.Equal(t, filepath.Join(dir, "config.yml"), SavePath())

	loaded, err := Load()
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestLoadFillsMissingFields(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("YTFETCH_CONFIG_DIR", dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yml"), []byte("format: mp3\ntimeout: 2m\n"), 0644))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "mp3", cfg.Format)
	assert.Equal(t, "high", cfg.Quality)
	assert.Equal(t, "kkdai", cfg.Extractor)
	assert.Equal(t, Duration(2*time.Minute), cfg.Timeout)
	assert.Equal(t, 10, cfg.Server.HistorySize)
}

func TestLoadRejectsBadDuration(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("YTFETCH_CONFIG_DIR", dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yml"), []byte("timeout: soon\n"), 0644))

	_, err := Load()
	assert.Error(t, err)
	assert.Equal(t, DefaultConfig(), LoadOrDefault())
}

func TestSet(t *testing.T) {
	tests := []struct {
		key, value string
		wantErr    bool
		check      func(*testing.T, *Config)
	}{
		{"format", "MP3", false, func(t *testing.T, c *Config) { assert.Equal(t, "mp3", c.Format) }},
		{"format", "flac", true, nil},
		{"timeout", "30s", false, func(t *testing.T, c *Config) { assert.Equal(t, Duration(30*time.Second), c.Timeout) }},
		{"timeout", "-1s", true, nil},
		{"server.history_size", "25", false, func(t *testing.T, c *Config) { assert.Equal(t, 25, c.Server.HistorySize) }},
		{"server.history_size", "zero", true, nil},
		{"proxy", "http://127.0.0.1:7890", false, func(t *testing.T, c *Config) { assert.Equal(t, "http://127.0.0.1:7890", c.Proxy) }},
		{"language", "en", true, nil},
	}

	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			cfg := DefaultConfig()
			err := cfg.Set(tt.key, tt.value)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			tt.check(t, cfg)
		})
	}
}

func TestServerOutputDir(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "./downloads", cfg.ServerOutputDir())
	cfg.Server.OutputDir = "/srv/media"
	assert.Equal(t, "/srv/media", cfg.ServerOutputDir())
}
