// Package output writes datasets to disk or stdout.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/mvp-joe/jarmeta/internal/metadata"
)

// Stdout is the output path that writes to standard output.
const Stdout = "-"

// Encode renders a dataset as indented JSON with a trailing newline.
func Encode(set *metadata.SourceMetadataSet) ([]byte, error) {
	data, err := json.MarshalIndent(set, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal dataset: %w", err)
	}
	return append(data, '\n'), nil
}

// Write encodes set and writes it to path, or to stdout when path is "-".
// File writes are atomic: readers see either the previous file or the new one.
func Write(set *metadata.SourceMetadataSet, path string, stdout io.Writer) error {
	data, err := Encode(set)
	if err != nil {
		return err
	}
	if path == Stdout {
		if _, err := stdout.Write(data); err != nil {
			return fmt.Errorf("failed to write dataset: %w", err)
		}
		return nil
	}
	return WriteFileAtomic(path, data)
}

// WriteFileAtomic writes data to path using the temp → rename pattern.
// The temp file lives next to the target so the rename never crosses devices.
func WriteFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tempPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Chmod(tempPath, 0644); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to set file mode: %w", err)
	}

	// Rename to final location (atomic operation)
	if err := os.Rename(tempPath, path); err != nil {
		// Clean up temp file on error
		os.Remove(tempPath)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	return nil
}

// Read decodes a dataset file written by Write.
func Read(path string) (*metadata.SourceMetadataSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read dataset: %w", err)
	}
	var set metadata.SourceMetadataSet
	if err := json.Unmarshal(data, &set); err != nil {
		return nil, err
	}
	return &set, nil
}
