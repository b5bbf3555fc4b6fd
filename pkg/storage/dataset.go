package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// DatasetWriter appends records to a JSON Lines dataset file. Writes are
// serialized, so one writer can be shared across goroutines.
type DatasetWriter struct {
	path string
	file *os.File
	mu   sync.Mutex
}

// NewDatasetWriter opens the dataset file for appending, creating parent
// directories as needed
func NewDatasetWriter(path string) (*DatasetWriter, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create dataset directory: %w", err)
		}
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open dataset file: %w", err)
	}

	return &DatasetWriter{path: path, file: file}, nil
}

// Append marshals the record and writes it as one JSON line
func (w *DatasetWriter) Append(record interface{}) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if _, err := w.file.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write record: %w", err)
	}
	return nil
}

// Path returns the dataset file path
func (w *DatasetWriter) Path() string {
	return w.path
}

// Close flushes and closes the dataset file
func (w *DatasetWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.file.Close()
}
