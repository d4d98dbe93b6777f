package transcode

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type transcoderFunc func(ctx context.Context, in, out, bitrate string) error

func (f transcoderFunc) Transcode(ctx context.Context, in, out, bitrate string) error {
	return f(ctx, in, out, bitrate)
}

func setup(t *testing.T) (in, out string) {
	t.Helper()
	dir := t.TempDir()
	in = filepath.Join(dir, "song.m4a")
	out = filepath.Join(dir, "song.mp3")
	require.NoError(t, os.WriteFile(in, []byte("audio-bytes"), 0644))
	return in, out
}

func TestConvertSuccess(t *testing.T) {
	in, out := setup(t)

	var gotBitrate string
	tc := transcoderFunc(func(_ context.Context, in, out, bitrate string) error {
		gotBitrate = bitrate
		return os.WriteFile(out, []byte("mp3-bytes"), 0644)
	})

	outcome, err := Convert(context.Background(), tc, in, out, "192k")
	require.NoError(t, err)
	assert.False(t, outcome.Degraded)
	assert.Equal(t, "192k", gotBitrate)
	assert.NoFileExists(t, in)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "mp3-bytes", string(data))
}

func TestConvertToolMissingRenames(t *testing.T) {
	in, out := setup(t)

	ff := NewFFmpeg(filepath.Join(t.TempDir(), "no-such-ffmpeg"), nil)
	assert.False(t, ff.Available())

	outcome, err := Convert(context.Background(), ff, in, out, "256k")
	require.NoError(t, err)
	assert.True(t, outcome.Degraded)
	assert.ErrorIs(t, outcome.Cause, ErrToolNotFound)

	assert.NoFileExists(t, in)
	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "audio-bytes", string(data))
}

func TestConvertFailureRemovesPartialOutput(t *testing.T) {
	in, out := setup(t)

	tc := transcoderFunc(func(_ context.Context, in, out, bitrate string) error {
		os.WriteFile(out, []byte("half"), 0644)
		return &ExitError{Err: errors.New("exit status 1"), Stderr: "Invalid data found"}
	})

	outcome, err := Convert(context.Background(), tc, in, out, "128k")
	require.NoError(t, err)
	assert.True(t, outcome.Degraded)
	assert.ErrorContains(t, outcome.Cause, "Invalid data found")

	assert.NoFileExists(t, in)
	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "audio-bytes", string(data))
}

func TestConvertSuccessWithoutOutputIsDegraded(t *testing.T) {
	in, out := setup(t)

	tc := transcoderFunc(func(context.Context, string, string, string) error { return nil })

	outcome, err := Convert(context.Background(), tc, in, out, "128k")
	require.NoError(t, err)
	assert.True(t, outcome.Degraded)
	assert.FileExists(t, out)
	assert.NoFileExists(t, in)
}

func TestConvertMoveFailure(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "missing.m4a")
	out := filepath.Join(dir, "missing.mp3")

	tc := transcoderFunc(func(context.Context, string, string, string) error { return ErrToolNotFound })

	_, err := Convert(context.Background(), tc, in, out, "128k")
	assert.Error(t, err)
}

func TestConvertCancelledKeepsInput(t *testing.T) {
	in, out := setup(t)

	ctx, cancel := context.WithCancel(context.Background())
	tc := transcoderFunc(func(_ context.Context, _, out, _ string) error {
		os.WriteFile(out, []byte("half"), 0644)
		cancel()
		return errors.New("signal: killed")
	})

	outcome, err := Convert(ctx, tc, in, out, "192k")
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, outcome.Degraded)
	assert.FileExists(t, in)
	assert.NoFileExists(t, out)
}

// fakeFFmpeg writes a shell script standing in for ffmpeg. It records its
// arguments one per line in the returned file before running body.
func fakeFFmpeg(t *testing.T, body string) (bin, argsFile string) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script stand-in needs a unix shell")
	}
	dir := t.TempDir()
	bin = filepath.Join(dir, "ffmpeg")
	argsFile = filepath.Join(dir, "args")
	script := "#!/bin/sh\nprintf '%s\\n' \"$@\" > '" + argsFile + "'\n" + body + "\n"
	require.NoError(t, os.WriteFile(bin, []byte(script), 0755))
	return bin, argsFile
}

func TestFFmpegTranscodeArgs(t *testing.T) {
	in, out := setup(t)
	bin, argsFile := fakeFFmpeg(t, `for a; do last="$a"; done; printf mp3 > "$last"`)

	ff := NewFFmpeg(bin, nil)
	assert.True(t, ff.Available())

	outcome, err := Convert(context.Background(), ff, in, out, "192k")
	require.NoError(t, err)
	assert.False(t, outcome.Degraded)

	recorded, err := os.ReadFile(argsFile)
	require.NoError(t, err)
	args := strings.Split(strings.TrimSpace(string(recorded)), "\n")
	assert.Equal(t, []string{"-hide_banner", "-loglevel", "error", "-y", "-i", in, "-vn", "-b:a", "192k", out}, args)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "mp3", string(data))
	assert.NoFileExists(t, in)
}

func TestFFmpegTranscodeNonZeroExit(t *testing.T) {
	in, out := setup(t)
	bin, _ := fakeFFmpeg(t, `echo "Invalid data found when processing input" >&2; exit 3`)

	outcome, err := Convert(context.Background(), NewFFmpeg(bin, nil), in, out, "128k")
	require.NoError(t, err)
	assert.True(t, outcome.Degraded)

	var exitErr *ExitError
	require.ErrorAs(t, outcome.Cause, &exitErr)
	assert.Contains(t, exitErr.Stderr, "Invalid data found")
	var procErr *exec.ExitError
	require.ErrorAs(t, exitErr, &procErr)
	assert.Equal(t, 3, procErr.ExitCode())

	assert.NoFileExists(t, in)
	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "audio-bytes", string(data))
}

func TestTail(t *testing.T) {
	assert.Equal(t, "short", tail("  short \n", 10))
	assert.Equal(t, "...6789", tail("0123456789", 4))
}
