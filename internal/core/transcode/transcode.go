package transcode

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/alessio/shellescape"
	"go.uber.org/zap"
)

// ErrToolNotFound is returned when the ffmpeg binary cannot be located
var ErrToolNotFound = errors.New("ffmpeg not found")

// Transcoder converts an audio file to mp3 at the given bitrate ("192k")
type Transcoder interface {
	Transcode(ctx context.Context, in, out, bitrate string) error
}

// ExitError carries the tail of ffmpeg's stderr
type ExitError struct {
	Err    error
	Stderr string
}

func (e *ExitError) Error() string {
	if e.Stderr == "" {
		return fmt.Sprintf("ffmpeg failed: %v", e.Err)
	}
	return fmt.Sprintf("ffmpeg failed: %v: %s", e.Err, e.Stderr)
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// FFmpeg runs an external ffmpeg binary
type FFmpeg struct {
	// Path is a binary name resolved via PATH, or an absolute path
	Path string
	Log  *zap.Logger
}

// NewFFmpeg returns an FFmpeg for path, defaulting to "ffmpeg"
func NewFFmpeg(path string, log *zap.Logger) *FFmpeg {
	if path == "" {
		path = "ffmpeg"
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &FFmpeg{Path: path, Log: log}
}

// Available reports whether the binary can be found
func (f *FFmpeg) Available() bool {
	_, err := exec.LookPath(f.Path)
	return err == nil
}

// Transcode runs `ffmpeg -y -i in -vn -b:a bitrate out`
func (f *FFmpeg) Transcode(ctx context.Context, in, out, bitrate string) error {
	bin, err := exec.LookPath(f.Path)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrToolNotFound, err)
	}

	args := []string{"-hide_banner", "-loglevel", "error", "-y", "-i", in, "-vn", "-b:a", bitrate, out}
	f.Log.Debug("running ffmpeg", zap.String("cmd", shellescape.QuoteCommand(append([]string{bin}, args...))))

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Stdout = io.Discard
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return &ExitError{Err: err, Stderr: tail(stderr.String(), 512)}
	}
	return nil
}

func tail(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return "..." + s[len(s)-n:]
}

// Outcome reports how Convert produced its output
type Outcome struct {
	// Degraded is set when the input was only renamed to the target
	Degraded bool
	// Cause is the transcoder error that forced the rename
	Cause error
}

// Convert transcodes in to out. If the transcoder fails, a partial out is
// removed and in is moved to out instead; the outcome is then degraded.
// A cancelled ctx is returned as an error and leaves in untouched. Exactly
// one of in/out exists afterwards.
func Convert(ctx context.Context, t Transcoder, in, out, bitrate string) (Outcome, error) {
	if in == out {
		return Outcome{}, nil
	}

	err := t.Transcode(ctx, in, out, bitrate)
	if err == nil {
		if _, statErr := os.Stat(out); statErr == nil {
			if rmErr := os.Remove(in); rmErr != nil && !os.IsNotExist(rmErr) {
				return Outcome{}, fmt.Errorf("failed to remove temporary file: %w", rmErr)
			}
			return Outcome{}, nil
		}
		err = errors.New("transcoder reported success but produced no output")
	}

	os.Remove(out)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return Outcome{}, fmt.Errorf("conversion interrupted: %w", ctxErr)
	}
	if moveErr := move(in, out); moveErr != nil {
		return Outcome{Degraded: true, Cause: err}, fmt.Errorf("failed to move %s to %s: %w", in, out, moveErr)
	}
	return Outcome{Degraded: true, Cause: err}, nil
}

// move renames src to dst, copying across filesystems when needed
func move(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return err
	}
	if err := out.Close(); err != nil {
		os.Remove(dst)
		return err
	}
	in.Close()
	return os.Remove(src)
}
