package extractor

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// partSuffix marks a file that is still being written
const partSuffix = ".part"

// progressWriter counts bytes and forwards them to a callback
type progressWriter struct {
	written    int64
	total      int64
	onProgress func(Progress)
}

func (w *progressWriter) Write(p []byte) (int, error) {
	w.written += int64(len(p))
	if w.onProgress != nil {
		w.onProgress(Progress{Downloaded: w.written, Total: w.total})
	}
	return len(p), nil
}

// ctxReader stops a copy once the context is cancelled
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (r *ctxReader) Read(p []byte) (int, error) {
	if err := r.ctx.Err(); err != nil {
		return 0, err
	}
	return r.r.Read(p)
}

// writeFile streams src into dest via a .part sibling so dest only ever
// appears complete
func writeFile(ctx context.Context, dest string, src io.Reader, total int64, onProgress func(Progress)) (int64, error) {
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return 0, fmt.Errorf("failed to create directory: %w", err)
	}

	part := dest + partSuffix
	f, err := os.Create(part)
	if err != nil {
		return 0, fmt.Errorf("failed to create file: %w", err)
	}

	pw := &progressWriter{total: total, onProgress: onProgress}
	n, err := io.Copy(io.MultiWriter(f, pw), &ctxReader{ctx: ctx, r: src})
	closeErr := f.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(part)
		return n, err
	}

	if err := os.Rename(part, dest); err != nil {
		os.Remove(part)
		return n, fmt.Errorf("failed to finalize file: %w", err)
	}
	return n, nil
}
