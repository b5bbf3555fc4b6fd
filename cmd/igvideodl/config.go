package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"igvideodl/pkg/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration files",
	Long: `Manage configuration files.

Configuration can be loaded from:
  - Command line flags (highest priority)
  - Environment variables (IGVIDEODL_*)
  - Configuration file
  - Default values (lowest priority)`,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create an example configuration file",
	Long: `Create an example configuration file with all available options.

The file is created in the current directory as 'igvideodl.yaml' unless
a different path is given with the --config flag.`,
	RunE: runConfigInit,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	Long: `Show the effective configuration after merging all sources.

Sensitive values like session credentials are masked.`,
	RunE: runConfigShow,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
}

const exampleConfig = `# igvideodl configuration file
#
# All options can also be set through environment variables prefixed
# with IGVIDEODL_, for example IGVIDEODL_SESSION_ID.

# Profiles and content selection
run:
  # Instagram usernames to process, in order
  usernames: []

  # Content types to fetch per profile: post, reel, story, igtv
  content_types: ["post", "reel"]

  # Cap on downloaded videos per profile, 0 for unlimited
  max_videos_per_profile: 50

  # Where results go: dataset_urls, key_value_store, both
  storage_method: "both"

  # Optional metadata groups on each record
  include_metadata:
    basic_info: true
    engagement_metrics: true
    comments: false
    location_hashtags: true

  # Item inclusion rules
  filter:
    videos_only: true
    # min_likes: 100
    # date_from: "2024-01-01"
    # date_to: "2024-12-31"

  # Pause between profiles in seconds
  delay_between_profiles: 2

# Instagram session and transport
instagram:
  # Session ID from Instagram cookies
  # Prefer 'igvideodl auth login' over putting this in a file
  session_id: ""

  # CSRF token from Instagram cookies
  csrf_token: ""

  # User agent string, leave empty for the default
  user_agent: ""

# Rate limiting for API requests
rate_limit:
  # Range: 1-120
  requests_per_minute: 60

# Retry behavior for fetch operations
retry:
  # Range: 0-10
  max_retries: 3

  # Initial backoff in seconds, doubles per attempt
  initial_delay: 5

  # Backoff ceiling in seconds
  max_delay: 60

# Output destinations
storage:
  # JSON lines dataset file
  dataset_file: "./output/dataset.jsonl"

  # Directory for downloaded video files
  binary_directory: "./output/videos"

# Logging
logging:
  # debug, info, warn, error
  level: "info"

  # Log file path, empty for stderr only
  file: ""
`

func runConfigInit(cmd *cobra.Command, args []string) error {
	configPath := configFile
	if configPath == "" {
		configPath = "igvideodl.yaml"
	}

	if _, err := os.Stat(configPath); err == nil {
		return fmt.Errorf("configuration file already exists: %s", configPath)
	}

	if err := os.WriteFile(configPath, []byte(exampleConfig), 0644); err != nil {
		return fmt.Errorf("failed to create configuration file: %w", err)
	}

	fmt.Printf("Configuration file created: %s\n", configPath)
	fmt.Println("\nNext steps:")
	fmt.Println("1. Edit the file and list the usernames to process")
	fmt.Println("2. Store credentials with 'igvideodl auth login' for private content")
	fmt.Println("3. Start a run with 'igvideodl run'")
	return nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	// Built without Validate so a fresh config with no usernames still shows
	cfg := config.DefaultConfig()
	if err := cfg.LoadFromFile(configFile); err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := cfg.LoadFromEnv(); err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	display := *cfg
	display.Instagram.SessionID = maskSecret(display.Instagram.SessionID)
	display.Instagram.CSRFToken = maskSecret(display.Instagram.CSRFToken)

	data, err := yaml.Marshal(&display)
	if err != nil {
		return fmt.Errorf("failed to format configuration: %w", err)
	}

	fmt.Print(string(data))

	fmt.Println("\nConfiguration sources (in order of priority):")
	fmt.Println("1. Command line flags")
	fmt.Println("2. Environment variables (IGVIDEODL_*)")
	if configFile != "" {
		fmt.Printf("3. Configuration file: %s\n", configFile)
	} else {
		fmt.Println("3. Configuration file: (not specified)")
	}
	fmt.Println("4. Default values")
	return nil
}

func maskSecret(value string) string {
	if value == "" {
		return ""
	}
	if len(value) <= 8 {
		return "****"
	}
	return value[:4] + "..." + value[len(value)-4:]
}
