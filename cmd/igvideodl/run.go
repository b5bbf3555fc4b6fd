package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"igvideodl/pkg/auth"
	"igvideodl/pkg/config"
	"igvideodl/pkg/logger"
	"igvideodl/pkg/pipeline"
)

var (
	runUsernames     []string
	runContentTypes  []string
	runMaxVideos     int
	runStorageMethod string
	runProfileDelay  int
	runVideosOnly    bool
	runMinLikes      int
	runDateFrom      string
	runDateTo        string
	runMaxRetries    int
	runRetryDelay    int
	runDatasetFile   string
	runBinaryDir     string
	runAccount       string
	runResume        bool
)

var runCmd = &cobra.Command{
	Use:   "run [usernames...]",
	Short: "Download videos from the given profiles",
	Long: `Process one or more Instagram profiles: fetch their content, apply the
configured filters, extract metadata, and store video URLs or downloaded
files per the storage method.

Profiles are processed sequentially. A failing profile is recorded in the
dataset and never stops the rest of the run.`,
	Example: `  # Download reels and posts from two profiles
  igvideodl run natgeo nasa

  # Only videos with at least 1000 likes, posted this year
  igvideodl run natgeo --min-likes 1000 --date-from 2024-01-01

  # Keep the URLs only, skip binary downloads
  igvideodl run natgeo --storage-method dataset_urls

  # Resume an interrupted run
  igvideodl run natgeo --resume`,
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringSliceVar(&runUsernames, "usernames", nil, "profiles to process (alternative to positional args)")
	runCmd.Flags().StringSliceVar(&runContentTypes, "content-types", nil, "content types to fetch (post, reel, story, igtv)")
	runCmd.Flags().IntVar(&runMaxVideos, "max-videos", -1, "maximum videos per profile, 0 for unlimited")
	runCmd.Flags().StringVar(&runStorageMethod, "storage-method", "", "dataset_urls, key_value_store, or both")
	runCmd.Flags().IntVar(&runProfileDelay, "profile-delay", -1, "seconds to wait between profiles")
	runCmd.Flags().BoolVar(&runVideosOnly, "videos-only", true, "skip non-video content")
	runCmd.Flags().IntVar(&runMinLikes, "min-likes", -1, "minimum likes for a video to be included")
	runCmd.Flags().StringVar(&runDateFrom, "date-from", "", "earliest posting date (YYYY-MM-DD)")
	runCmd.Flags().StringVar(&runDateTo, "date-to", "", "latest posting date (YYYY-MM-DD)")
	runCmd.Flags().IntVar(&runMaxRetries, "max-retries", -1, "retries per fetch after the initial attempt")
	runCmd.Flags().IntVar(&runRetryDelay, "retry-delay", 0, "initial retry delay in seconds")
	runCmd.Flags().StringVar(&runDatasetFile, "dataset-file", "", "path of the JSONL dataset output")
	runCmd.Flags().StringVar(&runBinaryDir, "binary-dir", "", "directory for downloaded video files")
	runCmd.Flags().StringVar(&runAccount, "account", "", "stored account to authenticate with")
	runCmd.Flags().BoolVar(&runResume, "resume", false, "resume from the previous run's checkpoint")
}

func runRun(cmd *cobra.Command, args []string) error {
	flags := collectRunFlags(cmd, args)

	cfg, err := config.Load(configFile, flags)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := logger.Initialize(&cfg.Logging); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	log := logger.GetLogger()

	session := resolveSession(cfg, log)

	p, err := pipeline.New(cfg, session)
	if err != nil {
		return err
	}
	defer p.Close()

	if runResume {
		if err := p.EnableResume("run"); err != nil {
			return err
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	snapshot, runErr := p.Run(ctx)

	fmt.Println()
	fmt.Println("Run summary:")
	fmt.Printf("  Run ID:              %s\n", p.RunID())
	fmt.Printf("  Profiles processed:  %d\n", snapshot.ProfilesProcessed)
	fmt.Printf("  Profiles failed:     %d\n", snapshot.ProfilesFailed)
	fmt.Printf("  Videos downloaded:   %d\n", snapshot.VideosDownloaded)
	fmt.Printf("  Videos filtered out: %d\n", snapshot.VideosFiltered)
	fmt.Printf("  Duplicates skipped:  %d\n", snapshot.DuplicatesSkipped)
	fmt.Printf("  Retries performed:   %d\n", snapshot.RetriesPerformed)
	fmt.Printf("  Records written:     %d\n", snapshot.RecordsWritten)
	if total := snapshot.TotalErrors(); total > 0 {
		fmt.Printf("  Errors:              %d\n", total)
		for errorType, count := range snapshot.ErrorsByType {
			fmt.Printf("    %-20s %d\n", string(errorType)+":", count)
		}
	}

	if runErr != nil {
		return fmt.Errorf("run aborted: %w", runErr)
	}

	if runResume {
		if err := p.ClearCheckpoint(); err != nil {
			log.WithError(err).Warn("Failed to clear checkpoint")
		}
	}
	return nil
}

// collectRunFlags maps set command line flags onto config merge keys.
// Positional args take priority over --usernames.
func collectRunFlags(cmd *cobra.Command, args []string) map[string]interface{} {
	flags := make(map[string]interface{})

	if len(args) > 0 {
		flags["usernames"] = args
	} else if len(runUsernames) > 0 {
		flags["usernames"] = runUsernames
	}
	if len(runContentTypes) > 0 {
		flags["content-types"] = runContentTypes
	}
	if runMaxVideos >= 0 {
		flags["max-videos"] = runMaxVideos
	}
	if runStorageMethod != "" {
		flags["storage-method"] = runStorageMethod
	}
	if runProfileDelay >= 0 {
		flags["profile-delay"] = runProfileDelay
	}
	if cmd.Flags().Changed("videos-only") {
		flags["videos-only"] = runVideosOnly
	}
	if runMinLikes >= 0 {
		flags["min-likes"] = runMinLikes
	}
	if runDateFrom != "" {
		flags["date-from"] = runDateFrom
	}
	if runDateTo != "" {
		flags["date-to"] = runDateTo
	}
	if runMaxRetries >= 0 {
		flags["max-retries"] = runMaxRetries
	}
	if runRetryDelay > 0 {
		flags["retry-delay"] = runRetryDelay
	}
	if runDatasetFile != "" {
		flags["dataset-file"] = runDatasetFile
	}
	if runBinaryDir != "" {
		flags["binary-dir"] = runBinaryDir
	}
	if logLevel != "" {
		flags["log-level"] = logLevel
	}

	return flags
}

// resolveSession builds the authentication session, preferring explicit
// config credentials, then the stored account, then anonymous
func resolveSession(cfg *config.Config, log logger.Logger) *auth.Session {
	if cfg.Instagram.SessionID != "" {
		return &auth.Session{
			SessionID: cfg.Instagram.SessionID,
			CSRFToken: cfg.Instagram.CSRFToken,
			UserAgent: cfg.Instagram.UserAgent,
		}
	}

	manager, err := auth.NewManager()
	if err != nil {
		log.WithError(err).Debug("credential manager unavailable, running anonymously")
		return nil
	}

	var account *auth.Account
	if runAccount != "" {
		account, err = manager.Retrieve(runAccount)
		if err != nil {
			log.WithError(err).WithField("account", runAccount).Warn("stored account not found, running anonymously")
			return nil
		}
	} else {
		account, err = manager.RetrieveDefault()
		if err != nil {
			log.Debug("no stored credentials, running anonymously")
			return nil
		}
	}

	log.WithField("account", account.Username).Info("Using stored credentials")
	return account.Session()
}
