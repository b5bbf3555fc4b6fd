package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"
)

var (
	// Version information, overridden at build time
	version   = "1.0.0"
	gitCommit = "unknown"
	buildDate = "unknown"

	// Global flags
	configFile string
	logLevel   string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "igvideodl",
	Short: "Download videos and metadata from Instagram profiles",
	Long: `Instagram Video Downloader is a command-line tool for downloading videos
from Instagram profiles in bulk.

Features:
  - Process multiple profiles in one run
  - Posts, reels, stories, and IGTV content
  - Filter by video type, like count, and date range
  - Metadata extraction with engagement metrics, hashtags, and comments
  - Video URLs in a dataset, downloaded files, or both
  - Automatic retry with exponential backoff
  - Secure credential storage using the system keychain
  - Resume interrupted runs`,
	Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, gitCommit, buildDate),
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (default is $HOME/.igvideodl.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")

	rootCmd.SetVersionTemplate(`Instagram Video Downloader {{.Version}}
Go Version: ` + runtime.Version() + `
OS/Arch: ` + runtime.GOOS + `/` + runtime.GOARCH + `
`)

	rootCmd.CompletionOptions.DisableDefaultCmd = true
}
