package checkpoint

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"igvideodl/pkg/logger"
)

// saveInterval is how many processed posts accumulate before the
// checkpoint is flushed to disk
const saveInterval = 10

// Checkpoint records run progress so an interrupted run can resume
// without reprocessing finished profiles or re-downloading videos
type Checkpoint struct {
	CompletedProfiles map[string]bool `json:"completed_profiles"`
	ProcessedPosts    map[string]bool `json:"processed_posts"`
	TotalDownloaded   int             `json:"total_downloaded"`
	TotalErrors       int             `json:"total_errors"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
	Version           int             `json:"version"`
}

// IsProfileCompleted reports whether a profile already finished in a
// previous run
func (c *Checkpoint) IsProfileCompleted(username string) bool {
	return c.CompletedProfiles[username]
}

// IsPostProcessed reports whether a post shortcode was already handled
func (c *Checkpoint) IsPostProcessed(shortcode string) bool {
	return c.ProcessedPosts[shortcode]
}

// Manager handles checkpoint persistence
type Manager struct {
	checkpointPath string
	logger         logger.Logger
	unsaved        int
}

// NewManager creates a checkpoint manager under the platform data
// directory. The name scopes the checkpoint file, so distinct runs can
// keep separate state.
func NewManager(name string) (*Manager, error) {
	dataDir, err := getDataDirectory()
	if err != nil {
		return nil, fmt.Errorf("failed to get data directory: %w", err)
	}

	checkpointsDir := filepath.Join(dataDir, "checkpoints")
	if err := os.MkdirAll(checkpointsDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create checkpoints directory: %w", err)
	}

	return NewManagerWithPath(filepath.Join(checkpointsDir, fmt.Sprintf("%s.checkpoint.json", name))), nil
}

// NewManagerWithPath creates a manager that persists to an explicit path
func NewManagerWithPath(path string) *Manager {
	return &Manager{
		checkpointPath: path,
		logger:         logger.GetLogger(),
	}
}

// Create initializes and persists a fresh checkpoint
func (m *Manager) Create() (*Checkpoint, error) {
	checkpoint := &Checkpoint{
		CompletedProfiles: make(map[string]bool),
		ProcessedPosts:    make(map[string]bool),
		CreatedAt:         time.Now(),
		UpdatedAt:         time.Now(),
		Version:           1,
	}

	if err := m.Save(checkpoint); err != nil {
		return nil, fmt.Errorf("failed to save initial checkpoint: %w", err)
	}

	return checkpoint, nil
}

// Load loads an existing checkpoint; a missing file returns nil without
// error
func (m *Manager) Load() (*Checkpoint, error) {
	file, err := os.Open(m.checkpointPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open checkpoint file: %w", err)
	}
	defer file.Close()

	var checkpoint Checkpoint
	if err := json.NewDecoder(file).Decode(&checkpoint); err != nil {
		return nil, fmt.Errorf("failed to decode checkpoint: %w", err)
	}
	if checkpoint.CompletedProfiles == nil {
		checkpoint.CompletedProfiles = make(map[string]bool)
	}
	if checkpoint.ProcessedPosts == nil {
		checkpoint.ProcessedPosts = make(map[string]bool)
	}

	m.logger.InfoWithFields("Checkpoint loaded", map[string]interface{}{
		"completed_profiles": len(checkpoint.CompletedProfiles),
		"processed_posts":    len(checkpoint.ProcessedPosts),
		"updated_at":         checkpoint.UpdatedAt,
	})

	return &checkpoint, nil
}

// Save writes the checkpoint to disk atomically
func (m *Manager) Save(checkpoint *Checkpoint) error {
	checkpoint.UpdatedAt = time.Now()

	tempPath := m.checkpointPath + ".tmp"
	file, err := os.Create(tempPath)
	if err != nil {
		return fmt.Errorf("failed to create temporary checkpoint file: %w", err)
	}

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(checkpoint); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to encode checkpoint: %w", err)
	}

	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to sync checkpoint file: %w", err)
	}

	if err := file.Close(); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to close checkpoint file: %w", err)
	}

	if err := os.Rename(tempPath, m.checkpointPath); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to replace checkpoint file: %w", err)
	}

	m.unsaved = 0
	return nil
}

// RecordPost marks a post as processed and flushes the checkpoint once
// enough unsaved progress has accumulated
func (m *Manager) RecordPost(checkpoint *Checkpoint, shortcode string, downloaded bool) error {
	checkpoint.ProcessedPosts[shortcode] = true
	if downloaded {
		checkpoint.TotalDownloaded++
	}

	m.unsaved++
	if m.unsaved >= saveInterval {
		return m.Save(checkpoint)
	}
	return nil
}

// MarkProfileCompleted marks a profile as done and persists immediately
func (m *Manager) MarkProfileCompleted(checkpoint *Checkpoint, username string) error {
	checkpoint.CompletedProfiles[username] = true
	return m.Save(checkpoint)
}

// Delete removes the checkpoint file
func (m *Manager) Delete() error {
	if err := os.Remove(m.checkpointPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete checkpoint: %w", err)
	}
	return nil
}

// Exists checks if a checkpoint file exists
func (m *Manager) Exists() bool {
	_, err := os.Stat(m.checkpointPath)
	return err == nil
}

// getDataDirectory returns the platform data directory
func getDataDirectory() (string, error) {
	var dataDir string

	switch runtime.GOOS {
	case "linux":
		if xdgDataHome := os.Getenv("XDG_DATA_HOME"); xdgDataHome != "" {
			dataDir = filepath.Join(xdgDataHome, "igvideodl")
		} else {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			dataDir = filepath.Join(home, ".local", "share", "igvideodl")
		}
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		dataDir = filepath.Join(home, "Library", "Application Support", "igvideodl")
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData == "" {
			return "", fmt.Errorf("APPDATA environment variable not set")
		}
		dataDir = filepath.Join(appData, "igvideodl")
	default:
		return "", fmt.Errorf("unsupported operating system: %s", runtime.GOOS)
	}

	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create data directory: %w", err)
	}

	return dataDir, nil
}
