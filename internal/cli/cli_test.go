package cli

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guiyumin/ytfetch/internal/config"
	"github.com/guiyumin/ytfetch/internal/downloader"
	"github.com/guiyumin/ytfetch/internal/extractor"
)

const testURL = "https://www.youtube.com/watch?v=dQw4w9WgXcQ"

type stubExtractor struct{}

func (stubExtractor) Name() string { return "stub" }

func (stubExtractor) Resolve(context.Context, string) (*extractor.Video, error) {
	return &extractor.Video{
		ID:    "dQw4w9WgXcQ",
		Title: "Test Video",
		Streams: []extractor.Stream{
			{ID: "18", Ext: "mp4", Kind: extractor.Progressive, Height: 360},
			{ID: "140", Ext: "m4a", Kind: extractor.AudioOnly, Bitrate: 128_000},
		},
	}, nil
}

func (stubExtractor) Transfer(_ context.Context, _ *extractor.Video, s extractor.Stream, dest string, onProgress func(extractor.Progress)) error {
	onProgress(extractor.Progress{Downloaded: 5, Total: 10})
	onProgress(extractor.Progress{Downloaded: 10, Total: 10})
	return os.WriteFile(dest, []byte(s.ID), 0644)
}

type unreachableExtractor struct{ stubExtractor }

func (unreachableExtractor) Resolve(context.Context, string) (*extractor.Video, error) {
	return nil, errors.New("video unavailable")
}

type stubTranscoder struct{}

func (stubTranscoder) Transcode(_ context.Context, _, out, _ string) error {
	return os.WriteFile(out, []byte("mp3"), 0644)
}

func newTestSession(t *testing.T, input string) (*session, *bytes.Buffer) {
	t.Helper()
	color.NoColor = true
	out := &bytes.Buffer{}
	cfg := config.DefaultConfig()
	cfg.OutputDir = t.TempDir()
	dl := downloader.New(stubExtractor{}, stubTranscoder{})
	return newSession(strings.NewReader(input), out, dl, cfg), out
}

func TestInteractiveSingleDownload(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	input := strings.Join([]string{"1", testURL, "mp4", dir, "low", "my clip", "", "3"}, "\n") + "\n"
	s, out := newTestSession(t, input)

	require.NoError(t, s.run(context.Background()))

	data, err := os.ReadFile(filepath.Join(dir, "my_clip.mp4"))
	require.NoError(t, err)
	assert.Equal(t, "18", string(data))
	assert.Contains(t, out.String(), "MAIN MENU")
	assert.Contains(t, out.String(), "Created output directory")
	assert.Contains(t, out.String(), "Download successful!")
	assert.Contains(t, out.String(), "Goodbye!")
}

func TestInteractiveDefaults(t *testing.T) {
	input := strings.Join([]string{"1", testURL, "", "", "", "", "", "3"}, "\n") + "\n"
	s, _ := newTestSession(t, input)

	require.NoError(t, s.run(context.Background()))

	_, err := os.Stat(filepath.Join(s.cfg.OutputDir, "Test_Video.mp4"))
	assert.NoError(t, err)
}

func TestInteractiveRejectsBadInput(t *testing.T) {
	input := strings.Join([]string{"9", "1", "https://example.com", "1", testURL, "flac", "3"}, "\n") + "\n"
	s, out := newTestSession(t, input)

	require.NoError(t, s.run(context.Background()))

	text := out.String()
	assert.Contains(t, text, "Invalid choice!")
	assert.Contains(t, text, "Invalid YouTube URL!")
	assert.Contains(t, text, "Invalid format!")
	assert.NotContains(t, text, "Press Enter to continue")
}

func TestInteractiveBatch(t *testing.T) {
	list := filepath.Join(t.TempDir(), "urls.txt")
	require.NoError(t, os.WriteFile(list, []byte(testURL+"\nnot a url\n# comment\nhttps://youtu.be/dQw4w9WgXcQ\n"), 0644))

	input := strings.Join([]string{"2", list, "mp3", "", "medium", "", "3"}, "\n") + "\n"
	s, out := newTestSession(t, input)

	require.NoError(t, s.run(context.Background()))

	text := out.String()
	assert.Contains(t, text, "Found 2 valid URLs")
	assert.Contains(t, text, "[2/2] Processing")
	assert.Contains(t, text, "Completed: 2/2")
	_, err := os.Stat(filepath.Join(s.cfg.OutputDir, "Test_Video.mp3"))
	assert.NoError(t, err)
}

func TestInteractiveMissingBatchFile(t *testing.T) {
	s, out := newTestSession(t, "2\n/does/not/exist\n3\n")
	require.NoError(t, s.run(context.Background()))
	assert.Contains(t, out.String(), "File not found!")
}

func TestInteractiveEOFExits(t *testing.T) {
	s, _ := newTestSession(t, "1\n")
	assert.NoError(t, s.run(context.Background()))
}

func TestInteractiveCancel(t *testing.T) {
	color.NoColor = true
	r, w, err := os.Pipe()
	require.NoError(t, err)
	defer w.Close()

	s := newSession(r, &bytes.Buffer{}, downloader.New(stubExtractor{}, stubTranscoder{}), config.DefaultConfig())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, s.run(ctx), context.Canceled)
}

func TestPlainRenderer(t *testing.T) {
	color.NoColor = true
	var buf bytes.Buffer
	r := newPlainRenderer(&buf, false, false)

	r.Emit(downloader.Event{Kind: downloader.EventStart, Severity: downloader.Info, Message: "Initializing download from: x"})
	r.Emit(downloader.Event{Kind: downloader.EventSkipped, Severity: downloader.Debug, Message: "hidden"})
	r.Emit(downloader.Event{Kind: downloader.EventProgress, Progress: &extractor.Progress{Downloaded: 50, Total: 100}})
	r.Emit(downloader.Event{Kind: downloader.EventProgress, Progress: &extractor.Progress{Downloaded: 60, Total: 100}})
	r.Emit(downloader.Event{Kind: downloader.EventFallback, Severity: downloader.Warning, Message: "fell back"})
	r.Emit(downloader.Event{Kind: downloader.EventFailed, Severity: downloader.Failure, Message: "boom"})

	text := buf.String()
	assert.Contains(t, text, "Initializing download from: x\n")
	assert.NotContains(t, text, "hidden")
	assert.Contains(t, text, "50.0%")
	// throttled: the second update lands inside the interval
	assert.NotContains(t, text, "60.0%")
	assert.Contains(t, text, "fell back\n")
	assert.Contains(t, text, "Error: boom\n")
}

func TestPlainRendererVerbose(t *testing.T) {
	color.NoColor = true
	var buf bytes.Buffer
	r := newPlainRenderer(&buf, true, true)

	r.Emit(downloader.Event{Kind: downloader.EventSkipped, Severity: downloader.Debug, Message: "Skipping invalid URL: x"})
	r.Emit(downloader.Event{Kind: downloader.EventProgress, Progress: &extractor.Progress{Downloaded: 10, Total: 0}})
	r.Emit(downloader.Event{Kind: downloader.EventDone, Severity: downloader.Success, Message: "done"})

	text := buf.String()
	assert.Contains(t, text, "Skipping invalid URL: x")
	assert.Contains(t, text, "\r\033[KDownloading: 10 B\n")
	assert.True(t, strings.HasSuffix(text, "done\n"))
}

func TestProgressText(t *testing.T) {
	assert.Equal(t, "[█████░░░░░] 50.0% (500 B/1.0 kB)", progressText(extractor.Progress{Downloaded: 500, Total: 1000}, 10))
	assert.Equal(t, "2.0 kB", progressText(extractor.Progress{Downloaded: 2000}, 10))
}

func TestPrintSummary(t *testing.T) {
	var buf bytes.Buffer
	printSummary(&buf, downloader.Summary{Total: 3, Succeeded: 2, Degraded: 1, Failed: 1, FailedURLs: []string{"u1"}})

	text := buf.String()
	assert.Contains(t, text, "Completed: 2/3 (1 without MP3 conversion), Failed: 1")
	assert.Contains(t, text, "  - u1")
}

func TestModelTracksProgress(t *testing.T) {
	m := newDownloadModel(func() {})

	next, _ := m.Update(eventMsg(downloader.Event{Kind: downloader.EventSelected, Message: "Selected stream: 360p (mp4)"}))
	m = next.(downloadModel)
	assert.Equal(t, "Selected stream: 360p (mp4)", m.status)

	next, _ = m.Update(eventMsg(downloader.Event{Kind: downloader.EventProgress, Progress: &extractor.Progress{Downloaded: 1, Total: 2}}))
	m = next.(downloadModel)
	require.NotNil(t, m.current)
	assert.Contains(t, m.View(), "1 B / 2 B")

	next, cmd := m.Update(jobDoneMsg{})
	m = next.(downloadModel)
	assert.True(t, m.done)
	assert.NotNil(t, cmd)
	assert.Empty(t, m.View())
}

func TestPrintedEvents(t *testing.T) {
	assert.False(t, printed(downloader.Event{Kind: downloader.EventProgress}, true))
	assert.False(t, printed(downloader.Event{Kind: downloader.EventStart, Severity: downloader.Info}, false))
	assert.True(t, printed(downloader.Event{Kind: downloader.EventStart, Severity: downloader.Info}, true))
	assert.True(t, printed(downloader.Event{Kind: downloader.EventDone, Severity: downloader.Success}, false))
	assert.False(t, printed(downloader.Event{Kind: downloader.EventSkipped, Severity: downloader.Debug}, false))
}

func newTestApp(t *testing.T, ext extractor.Extractor) *app {
	t.Helper()
	color.NoColor = true
	cfg := config.DefaultConfig()
	cfg.OutputDir = t.TempDir()
	return &app{cfg: cfg, ext: ext, dl: downloader.New(ext, stubTranscoder{})}
}

func TestRunSingle(t *testing.T) {
	a := newTestApp(t, stubExtractor{})
	require.NoError(t, runSingle(context.Background(), a, testURL))
	assert.FileExists(t, filepath.Join(a.cfg.OutputDir, "Test_Video.mp4"))
}

func TestRunSingleFailure(t *testing.T) {
	a := newTestApp(t, unreachableExtractor{})
	assert.ErrorIs(t, runSingle(context.Background(), a, testURL), ErrFailed)
}

func TestRunSingleRejectsFormat(t *testing.T) {
	a := newTestApp(t, stubExtractor{})
	a.cfg.Format = "flac"
	err := runSingle(context.Background(), a, testURL)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrFailed)
}

func TestRunBatchFlagMode(t *testing.T) {
	a := newTestApp(t, stubExtractor{})
	list := filepath.Join(t.TempDir(), "urls.txt")
	require.NoError(t, os.WriteFile(list, []byte(testURL+"\n"), 0644))

	require.NoError(t, runBatch(context.Background(), a, list))
	assert.FileExists(t, filepath.Join(a.cfg.OutputDir, "Test_Video.mp4"))
}

func TestRunBatchNoValidURLs(t *testing.T) {
	a := newTestApp(t, stubExtractor{})
	list := filepath.Join(t.TempDir(), "urls.txt")
	require.NoError(t, os.WriteFile(list, []byte("not a url\n# comment\n"), 0644))

	err := runBatch(context.Background(), a, list)
	assert.ErrorContains(t, err, "no valid URLs found")
}

func TestRunBatchMissingFile(t *testing.T) {
	a := newTestApp(t, stubExtractor{})
	err := runBatch(context.Background(), a, filepath.Join(t.TempDir(), "missing.txt"))
	assert.ErrorContains(t, err, "batch file not found")
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestRunWithTUIPrintsEvents(t *testing.T) {
	var out bytes.Buffer
	job := func(_ context.Context, sink downloader.Sink) error {
		sink.Emit(downloader.Event{Kind: downloader.EventProgress, Progress: &extractor.Progress{Downloaded: 1, Total: 2}})
		sink.Emit(downloader.Event{Kind: downloader.EventDone, Severity: downloader.Success, Message: "Download successful!"})
		return nil
	}

	err := runWithTUI(context.Background(), false, job, tea.WithInput(nil), tea.WithOutput(&out))
	require.NoError(t, err)
	assert.Contains(t, out.String(), "Download successful!")
}

func TestRunWithTUIExitsOnExternalCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	job := func(ctx context.Context, sink downloader.Sink) error {
		<-ctx.Done()
		sink.Emit(downloader.Event{Kind: downloader.EventFailed, Severity: downloader.Failure, Message: "interrupted"})
		return ctx.Err()
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- runWithTUI(ctx, false, job, tea.WithInput(nil), tea.WithOutput(io.Discard))
	}()
	time.AfterFunc(100*time.Millisecond, cancel)

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("runWithTUI did not return after cancellation")
	}
}

func TestReadLinesStopsWhenDone(t *testing.T) {
	r, w := io.Pipe()
	defer w.Close()

	done := make(chan struct{})
	ch := readLines(r, done)
	close(done)
	_, err := w.Write([]byte("1\n"))
	require.NoError(t, err)

	select {
	case _, ok := <-ch:
		assert.False(t, ok)
	case <-time.After(5 * time.Second):
		t.Fatal("reader goroutine still running")
	}
}
