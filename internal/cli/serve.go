package cli

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/guiyumin/ytfetch/internal/config"
	"github.com/guiyumin/ytfetch/internal/logging"
	"github.com/guiyumin/ytfetch/internal/server"
)

var (
	serveAddr   string
	serveOutput string
	serveDaemon bool
	serveJSON   bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the web UI and HTTP API",
	Long: `Start the web UI and JSON API.

Endpoints:
  GET    /                  web UI
  POST   /download          {"url": "...", "format": "mp4", "quality": "high"}
  GET    /api/history       recent downloads of this session
  DELETE /api/history       clear history
  DELETE /api/history/:id   delete one record
  GET    /files/:name       fetch a finished download
  GET    /health            status

Examples:
  ytfetch serve
  ytfetch serve --addr :9000 --output ~/Videos
  ytfetch serve -d`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from config, :8080)")
	serveCmd.Flags().StringVarP(&serveOutput, "output", "o", "", "download directory (default from config)")
	serveCmd.Flags().BoolVarP(&serveDaemon, "daemon", "d", false, "run in the background")
	serveCmd.Flags().BoolVar(&serveJSON, "json-logs", false, "write logs as JSON")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	if serveDaemon {
		return startDaemon()
	}

	cfg := config.LoadOrDefault()
	addr := cfg.Server.Addr
	if serveAddr != "" {
		addr = serveAddr
	}
	outDir := cfg.ServerOutputDir()
	if serveOutput != "" {
		outDir = serveOutput
	}

	level := "info"
	if verbose {
		level = "debug"
	}
	a, err := newApp(cfg, logging.Must(level, serveJSON))
	if err != nil {
		return err
	}
	defer a.close()

	srv := server.New(a.dl, server.Options{
		OutputDir:       outDir,
		HistorySize:     cfg.Server.HistorySize,
		Extractor:       a.ext.Name(),
		FFmpegAvailable: a.ffmpeg.Available(),
	}, a.log)

	if !a.ffmpeg.Available() {
		a.log.Warn("ffmpeg not found, mp3 downloads will keep the original audio", zap.String("ffmpeg_path", cfg.FFmpegPath))
	}
	fmt.Printf("ytfetch server listening on %s (downloads: %s)\n", addr, outDir)
	return srv.Run(cmd.Context(), addr)
}

// startDaemon re-executes the serve command detached from the terminal,
// logging to serve.log in the config directory
func startDaemon() error {
	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("failed to locate executable: %w", err)
	}

	args := []string{"serve", "--json-logs"}
	if serveAddr != "" {
		args = append(args, "--addr", serveAddr)
	}
	if serveOutput != "" {
		abs, err := filepath.Abs(serveOutput)
		if err != nil {
			return err
		}
		args = append(args, "--output", abs)
	}
	if verbose {
		args = append(args, "--verbose")
	}

	dir, err := config.ConfigDir()
	if err != nil {
		return fmt.Errorf("failed to get config dir: %w", err)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config dir: %w", err)
	}
	logPath := filepath.Join(dir, "serve.log")
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer logFile.Close()

	c := exec.Command(exe, args...)
	c.Stdout = logFile
	c.Stderr = logFile
	setSysProcAttr(c)

	if err := c.Start(); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}

	fmt.Printf("ytfetch server started in background (PID %d)\n", c.Process.Pid)
	fmt.Printf("Logs: %s\n", logPath)
	return c.Process.Release()
}
