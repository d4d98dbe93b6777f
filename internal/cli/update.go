package cli

import (
	"fmt"

	"github.com/creativeprojects/go-selfupdate"
	"github.com/spf13/cobra"

	"github.com/guiyumin/ytfetch/internal/version"
)

var updateCheckOnly bool

var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Update ytfetch to the latest release",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		latest, found, err := selfupdate.DetectLatest(ctx, selfupdate.ParseSlug(version.Repository))
		if err != nil {
			return fmt.Errorf("failed to check for updates: %w", err)
		}
		if !found {
			return fmt.Errorf("no release found for %s", version.Repository)
		}

		if version.Version != "dev" && latest.LessOrEqual(version.Version) {
			fmt.Printf("ytfetch %s is up to date\n", version.Version)
			return nil
		}

		fmt.Printf("Current version: %s\n", version.Version)
		fmt.Printf("Latest version:  %s\n", latest.Version())
		if updateCheckOnly {
			return nil
		}

		exe, err := selfupdate.ExecutablePath()
		if err != nil {
			return fmt.Errorf("failed to locate executable: %w", err)
		}
		if err := selfupdate.UpdateTo(ctx, latest.AssetURL, latest.AssetName, exe); err != nil {
			return fmt.Errorf("failed to update: %w", err)
		}

		successColor.Printf("Updated to %s\n", latest.Version())
		return nil
	},
}

func init() {
	updateCmd.Flags().BoolVar(&updateCheckOnly, "check", false, "only check for a newer release")
	rootCmd.AddCommand(updateCmd)
}
