package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-colorable"
	"golang.org/x/term"

	"github.com/guiyumin/ytfetch/internal/config"
	"github.com/guiyumin/ytfetch/internal/downloader"
	"github.com/guiyumin/ytfetch/internal/extractor/youtube"
)

const banner = `
       _    __      _       _
 _   _| |_ / _| ___| |_ ___| |__
| | | | __| |_ / _ \ __/ __| '_ \
| |_| | |_|  _|  __/ || (__| | | |
 \__, |\__|_|  \___|\__\___|_| |_|
 |___/
`

type line struct {
	text string
	err  error
}

// session is the interactive menu loop
type session struct {
	lines chan line
	done  chan struct{}
	out   io.Writer
	dl    *downloader.Downloader
	cfg   *config.Config
	width int
	tty   bool
}

func newSession(in io.Reader, out io.Writer, dl *downloader.Downloader, cfg *config.Config) *session {
	done := make(chan struct{})
	return &session{
		lines: readLines(in, done),
		done:  done,
		out:   out,
		dl:    dl,
		cfg:   cfg,
		width: 80,
	}
}

func runInteractive(ctx context.Context, a *app, in io.Reader) error {
	s := newSession(in, colorable.NewColorableStdout(), a.dl, a.cfg)
	fd := int(os.Stdout.Fd())
	s.tty = term.IsTerminal(fd)
	if w, _, err := term.GetSize(fd); err == nil && w > 0 {
		s.width = w
	}
	return s.run(ctx)
}

func (s *session) run(ctx context.Context) error {
	defer close(s.done)
	s.clear()
	s.banner()

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		choice, err := s.menu(ctx)
		if err != nil {
			return eofIsExit(err)
		}

		switch choice {
		case "1":
			err = s.single(ctx)
		case "2":
			err = s.batch(ctx)
		case "3":
			successColor.Fprintln(s.out, "\nThank you for using ytfetch. Goodbye!")
			return nil
		default:
			failColor.Fprintln(s.out, "Invalid choice! Please enter 1, 2 or 3.")
			continue
		}
		if errors.Is(err, errRetry) {
			continue
		}
		if err != nil {
			return eofIsExit(err)
		}

		if _, err := s.prompt(ctx, "\nPress Enter to continue..."); err != nil {
			return eofIsExit(err)
		}
		s.clear()
		s.banner()
	}
}

// errRetry returns to the menu without the "press Enter" pause
var errRetry = errors.New("retry")

func eofIsExit(err error) error {
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

func (s *session) menu(ctx context.Context) (string, error) {
	infoColor.Fprintln(s.out, "\nMAIN MENU")
	fmt.Fprintln(s.out, "1. Download Single Video")
	fmt.Fprintln(s.out, "2. Batch Download (from file)")
	fmt.Fprintln(s.out, "3. Exit")
	fmt.Fprintln(s.out)
	return s.prompt(ctx, "Enter your choice (1-3): ")
}

func (s *session) single(ctx context.Context) error {
	url, err := s.prompt(ctx, "Enter YouTube URL: ")
	if err != nil {
		return err
	}
	if !youtube.Validate(url) {
		failColor.Fprintln(s.out, "Invalid YouTube URL! Please try again.")
		return errRetry
	}

	format, dir, qual, err := s.options(ctx)
	if err != nil {
		return err
	}
	filename, err := s.prompt(ctx, "Enter filename (without extension, press Enter for default): ")
	if err != nil {
		return err
	}

	req, err := downloader.NewRequest(url, format, qual, dir, filename)
	if err != nil {
		return err
	}
	s.dl.With(downloader.WithSink(s.renderer())).Download(ctx, req)
	return nil
}

func (s *session) batch(ctx context.Context) error {
	path, err := s.prompt(ctx, "Enter path to file containing URLs: ")
	if err != nil {
		return err
	}
	file, err := os.Open(path)
	if err != nil {
		failColor.Fprintln(s.out, "File not found! Please check the path and try again.")
		return errRetry
	}
	defer file.Close()

	format, dir, qual, err := s.options(ctx)
	if err != nil {
		return err
	}
	tmpl, err := downloader.NewRequest("", format, qual, dir, "")
	if err != nil {
		return err
	}

	results, err := s.dl.With(downloader.WithSink(s.renderer())).RunBatch(ctx, file, tmpl)
	if err != nil {
		failColor.Fprintf(s.out, "Error processing batch file: %v\n", err)
		return nil
	}
	if len(results) == 0 {
		failColor.Fprintln(s.out, "No valid URLs found in the file!")
		return nil
	}
	printSummary(s.out, downloader.Summarize(results))
	return nil
}

// options asks for the format, output directory and quality
func (s *session) options(ctx context.Context) (format, dir, qual string, err error) {
	format, err = s.prompt(ctx, "Choose format (mp3/mp4): ")
	if err != nil {
		return
	}
	format = strings.ToLower(format)
	if format == "" {
		format = s.cfg.Format
	}
	if format != "mp3" && format != "mp4" {
		failColor.Fprintln(s.out, "Invalid format! Please enter mp3 or mp4.")
		err = errRetry
		return
	}

	dir, err = s.prompt(ctx, fmt.Sprintf("Enter output directory (press Enter for %s): ", s.cfg.OutputDir))
	if err != nil {
		return
	}
	if dir == "" {
		dir = s.cfg.OutputDir
	}

	qual, err = s.prompt(ctx, "Choose quality (low/medium/high/best): ")
	if err != nil {
		return
	}
	qual = strings.ToLower(qual)
	if qual == "" {
		qual = s.cfg.Quality
	}
	return
}

// readLines feeds lines from r into a channel so prompts can be
// interrupted. The channel is closed after the first read error or once
// done is closed.
func readLines(r io.Reader, done <-chan struct{}) chan line {
	ch := make(chan line)
	send := func(l line) bool {
		select {
		case <-done:
			return false
		default:
		}
		select {
		case ch <- l:
			return true
		case <-done:
			return false
		}
	}

	go func() {
		defer close(ch)
		br := bufio.NewReader(r)
		for {
			text, err := br.ReadString('\n')
			if text != "" && !send(line{text: text}) {
				return
			}
			if err != nil {
				send(line{err: err})
				return
			}
		}
	}()
	return ch
}

// prompt reads one trimmed line
func (s *session) prompt(ctx context.Context, label string) (string, error) {
	promptColor.Fprint(s.out, label)
	select {
	case <-ctx.Done():
		fmt.Fprintln(s.out)
		return "", ctx.Err()
	case l, ok := <-s.lines:
		if !ok {
			l.err = io.EOF
		}
		if l.err != nil {
			fmt.Fprintln(s.out)
			return "", l.err
		}
		return strings.TrimSpace(l.text), nil
	}
}

func (s *session) renderer() downloader.Sink {
	return newPlainRenderer(s.out, verbose, s.tty)
}

func (s *session) clear() {
	if s.tty {
		fmt.Fprint(s.out, "\033[H\033[2J")
	}
}

func (s *session) banner() {
	lines := strings.Split(strings.Trim(banner, "\n"), "\n")
	for _, l := range lines {
		bannerColor.Fprintln(s.out, center(l, s.width))
	}
	rule := strings.Repeat("=", s.width)
	batchColor.Fprintln(s.out, rule)
	infoColor.Fprintln(s.out, center("Download YouTube Videos as MP3/MP4", s.width))
	batchColor.Fprintln(s.out, rule)
}

func center(s string, width int) string {
	pad := (width - len(s)) / 2
	if pad <= 0 {
		return s
	}
	return strings.Repeat(" ", pad) + s
}
