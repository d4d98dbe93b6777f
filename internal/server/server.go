package server

import (
	"context"
	"embed"
	"errors"
	"html/template"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/guiyumin/ytfetch/internal/core/quality"
	"github.com/guiyumin/ytfetch/internal/downloader"
	"github.com/guiyumin/ytfetch/internal/extractor/youtube"
	"github.com/guiyumin/ytfetch/internal/version"
)

//go:embed templates/index.html
var templatesFS embed.FS

// Options configures a Server
type Options struct {
	OutputDir   string
	HistorySize int
	Extractor   string
	// FFmpegAvailable is reported by /health
	FFmpegAvailable bool
}

// Server exposes the downloader over HTTP: a JSON API and a small web UI
type Server struct {
	dl      *downloader.Downloader
	history *History
	opts    Options
	log     *zap.Logger
	router  *gin.Engine

	// downloads run one at a time
	mu sync.Mutex
}

// DownloadRequest is the JSON body of POST /download
type DownloadRequest struct {
	URL      string `json:"url"`
	Format   string `json:"format"`
	Quality  string `json:"quality"`
	Filename string `json:"filename"`
}

// DownloadResponse is returned by POST /download
type DownloadResponse struct {
	Success    bool     `json:"success"`
	Message    string   `json:"message,omitempty"`
	OutputPath *string  `json:"output_path"`
	Filename   string   `json:"filename,omitempty"`
	Title      string   `json:"title,omitempty"`
	SizeBytes  int64    `json:"size_bytes,omitempty"`
	Degraded   bool     `json:"degraded"`
	Fallbacks  []string `json:"fallbacks,omitempty"`
	Error      *string  `json:"error"`
	HistoryID  string   `json:"history_id,omitempty"`
}

// New creates a Server
func New(dl *downloader.Downloader, opts Options, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Server{
		dl:      dl.With(downloader.WithSink(downloader.LogSink(log))),
		history: NewHistory(opts.HistorySize),
		opts:    opts,
		log:     log,
	}
	s.router = s.routes()
	return s
}

// Handler returns the HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// History returns the session history
func (s *Server) History() *History {
	return s.history
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(s.log), cors.Default())
	r.SetHTMLTemplate(template.Must(template.ParseFS(templatesFS, "templates/index.html")))

	r.GET("/", s.handleIndex)
	r.GET("/health", s.handleHealth)
	r.POST("/download", s.handleDownload)
	r.GET("/files/:name", s.handleFile)

	api := r.Group("/api")
	api.POST("/download", s.handleDownload)
	api.GET("/history", s.handleHistory)
	api.DELETE("/history", s.handleClearHistory)
	api.DELETE("/history/:id", s.handleDeleteRecord)

	return r
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("server listening", zap.String("addr", addr), zap.String("output_dir", s.opts.OutputDir))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.log.Info("shutting down server")
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) handleIndex(c *gin.Context) {
	qualities := make([]string, 0, len(quality.Tiers))
	for _, t := range quality.Tiers {
		qualities = append(qualities, t.String())
	}
	c.HTML(http.StatusOK, "index.html", gin.H{
		"Version":   version.Version,
		"Qualities": qualities,
		"Default":   quality.High.String(),
	})
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"version":   version.Version,
		"extractor": s.opts.Extractor,
		"ffmpeg":    s.opts.FFmpegAvailable,
	})
}

func (s *Server) handleDownload(c *gin.Context) {
	var body DownloadRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, "Invalid request body")
		return
	}
	if body.URL == "" || !youtube.Validate(body.URL) {
		badRequest(c, "Invalid YouTube URL")
		return
	}
	if body.Format == "" {
		body.Format = "mp4"
	}
	if body.Quality == "" {
		body.Quality = "high"
	}

	req, err := downloader.NewRequest(body.URL, body.Format, body.Quality, s.opts.OutputDir, body.Filename)
	if err != nil {
		badRequest(c, err.Error())
		return
	}

	s.mu.Lock()
	started := time.Now()
	res := s.dl.Download(c.Request.Context(), req)
	finished := time.Now()
	s.mu.Unlock()

	rec := s.history.Record(req, res, started, finished)

	resp := DownloadResponse{
		Success:   res.Success,
		Degraded:  res.Degraded,
		Title:     res.Title,
		SizeBytes: res.Size,
		HistoryID: rec.ID,
		Fallbacks: rec.Fallbacks,
	}
	if !res.Success {
		msg := res.Error
		resp.Error = &msg
		status := http.StatusInternalServerError
		if res.Kind == downloader.InvalidInput {
			status = http.StatusBadRequest
		}
		c.JSON(status, resp)
		return
	}

	path := res.OutputPath
	resp.OutputPath = &path
	resp.Filename = rec.Filename
	resp.Message = "Download completed successfully"
	if res.Degraded {
		resp.Message = "Download completed, but the audio was not converted (is ffmpeg installed?)"
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleFile(c *gin.Context) {
	name := c.Param("name")
	path, ok := s.history.FileFor(name)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "file not found"})
		return
	}
	c.FileAttachment(path, name)
}

func (s *Server) handleHistory(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	records, total := s.history.GetHistory(limit, offset)
	completed, failed, totalBytes := s.history.GetStats()
	c.JSON(http.StatusOK, gin.H{
		"records": records,
		"total":   total,
		"stats": gin.H{
			"completed":   completed,
			"failed":      failed,
			"total_bytes": totalBytes,
		},
	})
}

func (s *Server) handleClearHistory(c *gin.Context) {
	n := s.history.ClearHistory()
	c.JSON(http.StatusOK, gin.H{"deleted": n})
}

func (s *Server) handleDeleteRecord(c *gin.Context) {
	if err := s.history.DeleteRecord(c.Param("id")); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, DownloadResponse{Error: &msg})
}

// requestLogger logs each request through zap
func requestLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client", c.ClientIP()),
		)
	}
}
