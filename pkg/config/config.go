package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Storage method values accepted by the pipeline
const (
	StorageDatasetURLs   = "dataset_urls"
	StorageKeyValueStore = "key_value_store"
	StorageBoth          = "both"
)

// Config holds all configuration options for the video downloader
type Config struct {
	// Profiles and content selection for the run
	Run RunConfig `yaml:"run" json:"run"`

	// Instagram session and transport settings
	Instagram InstagramConfig `yaml:"instagram" json:"instagram"`

	// Rate limiting for API requests
	RateLimit RateLimitConfig `yaml:"rate_limit" json:"rate_limit"`

	// Retry behavior for fetch operations
	Retry RetryConfig `yaml:"retry" json:"retry"`

	// Storage destinations
	Storage StorageConfig `yaml:"storage" json:"storage"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// RunConfig describes one processing run. It is built once at startup and
// never mutated afterwards.
type RunConfig struct {
	Usernames            []string       `yaml:"usernames" json:"usernames"`
	ContentTypes         []string       `yaml:"content_types" json:"content_types"`
	MaxVideosPerProfile  int            `yaml:"max_videos_per_profile" json:"max_videos_per_profile"`
	StorageMethod        string         `yaml:"storage_method" json:"storage_method"`
	IncludeMetadata      MetadataFlags  `yaml:"include_metadata" json:"include_metadata"`
	Filter               FilterConfig   `yaml:"filter" json:"filter"`
	DelayBetweenProfiles int            `yaml:"delay_between_profiles" json:"delay_between_profiles"` // seconds
}

// MetadataFlags selects which optional metadata groups are extracted
type MetadataFlags struct {
	BasicInfo         bool `yaml:"basic_info" json:"basic_info"`
	EngagementMetrics bool `yaml:"engagement_metrics" json:"engagement_metrics"`
	Comments          bool `yaml:"comments" json:"comments"`
	LocationHashtags  bool `yaml:"location_hashtags" json:"location_hashtags"`
}

// FilterConfig holds item inclusion rules
type FilterConfig struct {
	VideosOnly bool   `yaml:"videos_only" json:"videos_only"`
	MinLikes   *int   `yaml:"min_likes,omitempty" json:"min_likes,omitempty"`
	DateFrom   string `yaml:"date_from,omitempty" json:"date_from,omitempty"` // YYYY-MM-DD
	DateTo     string `yaml:"date_to,omitempty" json:"date_to,omitempty"`     // YYYY-MM-DD
}

// InstagramConfig holds Instagram-specific configuration
type InstagramConfig struct {
	SessionID      string        `yaml:"session_id" json:"session_id"`
	CSRFToken      string        `yaml:"csrf_token" json:"csrf_token"`
	UserAgent      string        `yaml:"user_agent" json:"user_agent"`
	RequestTimeout time.Duration `yaml:"request_timeout" json:"request_timeout"`
}

// RateLimitConfig holds request throttle configuration
type RateLimitConfig struct {
	RequestsPerMinute int `yaml:"requests_per_minute" json:"requests_per_minute"`
}

// RetryConfig holds fetch retry configuration
type RetryConfig struct {
	MaxRetries   int `yaml:"max_retries" json:"max_retries"`
	InitialDelay int `yaml:"initial_delay" json:"initial_delay"` // seconds
	MaxDelay     int `yaml:"max_delay" json:"max_delay"`         // seconds
}

// StorageConfig holds output destinations
type StorageConfig struct {
	DatasetFile     string `yaml:"dataset_file" json:"dataset_file"`
	BinaryDirectory string `yaml:"binary_directory" json:"binary_directory"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	File  string `yaml:"file" json:"file"`
}

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Run: RunConfig{
			ContentTypes:        []string{"post", "reel"},
			MaxVideosPerProfile: 50,
			StorageMethod:       StorageBoth,
			IncludeMetadata: MetadataFlags{
				BasicInfo:         true,
				EngagementMetrics: true,
				Comments:          false,
				LocationHashtags:  true,
			},
			Filter: FilterConfig{
				VideosOnly: true,
			},
			DelayBetweenProfiles: 2,
		},
		Instagram: InstagramConfig{
			UserAgent:      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36",
			RequestTimeout: 30 * time.Second,
		},
		RateLimit: RateLimitConfig{
			RequestsPerMinute: 60,
		},
		Retry: RetryConfig{
			MaxRetries:   3,
			InitialDelay: 5,
			MaxDelay:     60,
		},
		Storage: StorageConfig{
			DatasetFile:     "./output/dataset.jsonl",
			BinaryDirectory: "./output/videos",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load builds the configuration from defaults, an optional config file,
// environment variables, and command line flags, in that order of precedence.
func Load(path string, flags map[string]interface{}) (*Config, error) {
	// Load .env file if present; missing files are fine
	_ = godotenv.Load()

	cfg := DefaultConfig()

	if err := cfg.LoadFromFile(path); err != nil {
		return nil, err
	}
	if err := cfg.LoadFromEnv(); err != nil {
		return nil, err
	}
	cfg.MergeCommandLineFlags(flags)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(path string) error {
	if path == "" {
		path = c.findConfigFile()
		if path == "" {
			return nil // no config file found, not an error
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// findConfigFile searches for config file in standard locations
func (c *Config) findConfigFile() string {
	locations := []string{
		".igvideodl.yaml",
		".igvideodl.yml",
		filepath.Join(os.Getenv("HOME"), ".config", "igvideodl", "config.yaml"),
		filepath.Join(os.Getenv("HOME"), ".igvideodl.yaml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// LoadFromEnv loads configuration from environment variables
func (c *Config) LoadFromEnv() error {
	if sessionID := os.Getenv("IGVIDEODL_SESSION_ID"); sessionID != "" {
		c.Instagram.SessionID = sessionID
	}
	if csrfToken := os.Getenv("IGVIDEODL_CSRF_TOKEN"); csrfToken != "" {
		c.Instagram.CSRFToken = csrfToken
	}
	if userAgent := os.Getenv("IGVIDEODL_USER_AGENT"); userAgent != "" {
		c.Instagram.UserAgent = userAgent
	}

	if usernames := os.Getenv("IGVIDEODL_USERNAMES"); usernames != "" {
		c.Run.Usernames = splitList(usernames)
	}
	if contentTypes := os.Getenv("IGVIDEODL_CONTENT_TYPES"); contentTypes != "" {
		c.Run.ContentTypes = splitList(contentTypes)
	}
	if method := os.Getenv("IGVIDEODL_STORAGE_METHOD"); method != "" {
		c.Run.StorageMethod = method
	}
	if maxVideos := os.Getenv("IGVIDEODL_MAX_VIDEOS"); maxVideos != "" {
		if val, err := strconv.Atoi(maxVideos); err == nil && val >= 0 {
			c.Run.MaxVideosPerProfile = val
		}
	}

	if rpm := os.Getenv("IGVIDEODL_REQUESTS_PER_MINUTE"); rpm != "" {
		if val, err := strconv.Atoi(rpm); err == nil && val > 0 {
			c.RateLimit.RequestsPerMinute = val
		}
	}
	if retries := os.Getenv("IGVIDEODL_MAX_RETRIES"); retries != "" {
		if val, err := strconv.Atoi(retries); err == nil && val >= 0 {
			c.Retry.MaxRetries = val
		}
	}

	if datasetFile := os.Getenv("IGVIDEODL_DATASET_FILE"); datasetFile != "" {
		c.Storage.DatasetFile = datasetFile
	}
	if binaryDir := os.Getenv("IGVIDEODL_BINARY_DIR"); binaryDir != "" {
		c.Storage.BinaryDirectory = binaryDir
	}

	if logLevel := os.Getenv("IGVIDEODL_LOG_LEVEL"); logLevel != "" {
		c.Logging.Level = logLevel
	}

	return nil
}

// MergeCommandLineFlags merges command line flags into the configuration
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if flags == nil {
		return
	}

	if usernames, ok := flags["usernames"].([]string); ok && len(usernames) > 0 {
		c.Run.Usernames = usernames
	}
	if contentTypes, ok := flags["content-types"].([]string); ok && len(contentTypes) > 0 {
		c.Run.ContentTypes = contentTypes
	}
	if maxVideos, ok := flags["max-videos"].(int); ok && maxVideos >= 0 {
		c.Run.MaxVideosPerProfile = maxVideos
	}
	if method, ok := flags["storage-method"].(string); ok && method != "" {
		c.Run.StorageMethod = method
	}
	if delay, ok := flags["profile-delay"].(int); ok && delay >= 0 {
		c.Run.DelayBetweenProfiles = delay
	}
	if videosOnly, ok := flags["videos-only"].(bool); ok {
		c.Run.Filter.VideosOnly = videosOnly
	}
	if minLikes, ok := flags["min-likes"].(int); ok && minLikes >= 0 {
		c.Run.Filter.MinLikes = &minLikes
	}
	if dateFrom, ok := flags["date-from"].(string); ok && dateFrom != "" {
		c.Run.Filter.DateFrom = dateFrom
	}
	if dateTo, ok := flags["date-to"].(string); ok && dateTo != "" {
		c.Run.Filter.DateTo = dateTo
	}
	if sessionID, ok := flags["session-id"].(string); ok && sessionID != "" {
		c.Instagram.SessionID = sessionID
	}
	if csrfToken, ok := flags["csrf-token"].(string); ok && csrfToken != "" {
		c.Instagram.CSRFToken = csrfToken
	}
	if maxRetries, ok := flags["max-retries"].(int); ok && maxRetries >= 0 {
		c.Retry.MaxRetries = maxRetries
	}
	if retryDelay, ok := flags["retry-delay"].(int); ok && retryDelay > 0 {
		c.Retry.InitialDelay = retryDelay
	}
	if datasetFile, ok := flags["dataset-file"].(string); ok && datasetFile != "" {
		c.Storage.DatasetFile = datasetFile
	}
	if binaryDir, ok := flags["binary-dir"].(string); ok && binaryDir != "" {
		c.Storage.BinaryDirectory = binaryDir
	}
	if logLevel, ok := flags["log-level"].(string); ok && logLevel != "" {
		c.Logging.Level = logLevel
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	var errs []error

	if len(c.Run.Usernames) == 0 {
		errs = append(errs, errors.New("at least one username is required"))
	}
	for _, u := range c.Run.Usernames {
		if strings.TrimSpace(u) == "" {
			errs = append(errs, errors.New("usernames must not be blank"))
			break
		}
	}

	validTypes := map[string]bool{"post": true, "reel": true, "story": true, "igtv": true}
	if len(c.Run.ContentTypes) == 0 {
		errs = append(errs, errors.New("at least one content type is required"))
	}
	for _, ct := range c.Run.ContentTypes {
		if !validTypes[ct] {
			errs = append(errs, fmt.Errorf("unknown content type %q", ct))
		}
	}

	if c.Run.MaxVideosPerProfile < 0 {
		errs = append(errs, errors.New("max videos per profile cannot be negative"))
	}

	switch c.Run.StorageMethod {
	case StorageDatasetURLs, StorageKeyValueStore, StorageBoth:
	default:
		errs = append(errs, fmt.Errorf("invalid storage method %q", c.Run.StorageMethod))
	}

	if c.Run.Filter.MinLikes != nil && *c.Run.Filter.MinLikes < 0 {
		errs = append(errs, errors.New("min likes cannot be negative"))
	}
	for _, d := range []string{c.Run.Filter.DateFrom, c.Run.Filter.DateTo} {
		if d != "" {
			if _, err := time.Parse("2006-01-02", d); err != nil {
				errs = append(errs, fmt.Errorf("invalid date filter %q, expected YYYY-MM-DD", d))
			}
		}
	}

	if c.Retry.MaxRetries < 0 || c.Retry.MaxRetries > 10 {
		errs = append(errs, errors.New("max retries must be between 0 and 10"))
	}
	if c.Retry.InitialDelay < 1 || c.Retry.InitialDelay > 60 {
		errs = append(errs, errors.New("initial retry delay must be between 1 and 60 seconds"))
	}
	if c.Run.DelayBetweenProfiles < 0 || c.Run.DelayBetweenProfiles > 60 {
		errs = append(errs, errors.New("delay between profiles must be between 0 and 60 seconds"))
	}

	if c.RateLimit.RequestsPerMinute <= 0 {
		errs = append(errs, errors.New("requests per minute must be positive"))
	}

	if c.Storage.DatasetFile == "" {
		errs = append(errs, errors.New("dataset file path is required"))
	}

	needsBinaries := c.Run.StorageMethod == StorageKeyValueStore || c.Run.StorageMethod == StorageBoth
	if needsBinaries && c.Storage.BinaryDirectory == "" {
		errs = append(errs, errors.New("binary directory is required for key_value_store storage"))
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, errors.New("invalid log level"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// Save saves the configuration to a file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
