// Package storage defines the on-disk working-area abstraction used to
// materialize a run's files and to load local directories into a workspace.
package storage

import "github.com/starford/scratchpad/internal/models"

// Provider is the interface for working-area file operations.
type Provider interface {
	// List returns metadata for every regular file under dir (relative to root).
	List(dir string) ([]models.FileMetadata, error)
	// Read returns the raw bytes of the file at path (relative to root).
	Read(path string) ([]byte, error)
	// Write atomically writes content to path (relative to root).
	Write(path string, content []byte) error
	// Root returns the absolute root directory.
	Root() string
}
