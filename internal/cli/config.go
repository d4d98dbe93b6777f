package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/guiyumin/ytfetch/internal/config"
	"github.com/guiyumin/ytfetch/internal/extractor"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage ytfetch configuration",
	Long:  "View and modify ytfetch settings stored in config.yml",
}

// ytfetch config show - show current config
var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := config.LoadOrDefault()

		fmt.Println("Current configuration:")
		fmt.Printf("  OutputDir:  %s\n", cfg.OutputDir)
		fmt.Printf("  Format:     %s\n", cfg.Format)
		fmt.Printf("  Quality:    %s\n", cfg.Quality)
		fmt.Printf("  Extractor:  %s\n", cfg.Extractor)
		fmt.Printf("  FFmpeg:     %s\n", cfg.FFmpegPath)
		fmt.Printf("  Proxy:      %s\n", orDefault(cfg.Proxy, "(none)"))
		fmt.Printf("  Timeout:    %s\n", orDefault(timeoutString(cfg.Timeout), "(none)"))
		fmt.Printf("  LogLevel:   %s\n", cfg.LogLevel)
		fmt.Println("\nServer:")
		fmt.Printf("  Addr:       %s\n", cfg.Server.Addr)
		fmt.Printf("  OutputDir:  %s\n", cfg.ServerOutputDir())
		fmt.Printf("  History:    %d\n", cfg.Server.HistorySize)
		fmt.Printf("\nConfig:       %s", config.SavePath())
		if !config.Exists() {
			fmt.Print(" (not created)")
		}
		fmt.Println()
	},
}

// ytfetch config path - show config file path
var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show config file path",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(config.SavePath())
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a config file with default settings",
	RunE: func(cmd *cobra.Command, args []string) error {
		force, _ := cmd.Flags().GetBool("force")
		if config.Exists() && !force {
			return fmt.Errorf("config already exists at %s (use --force to overwrite)", config.SavePath())
		}
		if err := config.Save(config.DefaultConfig()); err != nil {
			return fmt.Errorf("failed to save: %w", err)
		}
		successColor.Printf("Config written to %s\n", config.SavePath())
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long: `Set a configuration value.

Keys:
  ` + strings.Join(config.Keys, "\n  ") + `

Examples:
  ytfetch config set output_dir ~/Music
  ytfetch config set format mp3
  ytfetch config set extractor ytdlp
  ytfetch config set timeout 10m
  ytfetch config set server.addr :9000`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]
		cfg := config.LoadOrDefault()

		if key == "extractor" {
			if _, err := extractor.New(value, extractor.Options{}); err != nil {
				return fmt.Errorf("%w (available: %s)", err, strings.Join(extractor.Names(), ", "))
			}
		}
		if err := cfg.Set(key, value); err != nil {
			return err
		}
		if err := config.Save(cfg); err != nil {
			return fmt.Errorf("failed to save: %w", err)
		}

		fmt.Printf("%s = %s\n", key, value)
		return nil
	},
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

func timeoutString(d config.Duration) string {
	if d == 0 {
		return ""
	}
	return fmt.Sprint(time.Duration(d))
}

func init() {
	configInitCmd.Flags().Bool("force", false, "overwrite an existing config file")

	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configPathCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configSetCmd)

	rootCmd.AddCommand(configCmd)
}
