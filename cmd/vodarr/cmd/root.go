// Package cmd implements the CLI commands for vodarr.
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/vodarr/vodarr/internal/version"
)

// cfgFile holds the config file path from the CLI flag.
var cfgFile string

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:     "vodarr",
	Short:   "Video upload and HLS transcoding service",
	Version: version.Short(),
	Long: `vodarr ingests video uploads and transcodes them into multi-quality
HLS renditions with thumbnails and posters.

Uploads are accepted over HTTP, processed by a background worker pool,
and published atomically once every rendition is complete.`,
}

// Execute runs the root command.
func Execute() error {
	if err := rootCmd.Execute(); err != nil {
		return fmt.Errorf("executing root command: %w", err)
	}
	return nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default searches ., ./configs, /etc/vodarr, $HOME/.vodarr)")
	rootCmd.PersistentFlags().String("log-level", "", "log level override (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "", "log format override (text, json)")
}

// loggingOverrides returns CLI log flag values when explicitly set.
// Flag values outrank config file and environment settings.
func loggingOverrides() (level, format string) {
	if rootCmd.PersistentFlags().Changed("log-level") {
		level, _ = rootCmd.PersistentFlags().GetString("log-level")
	}
	if rootCmd.PersistentFlags().Changed("log-format") {
		format, _ = rootCmd.PersistentFlags().GetString("log-format")
	}
	return level, format
}
