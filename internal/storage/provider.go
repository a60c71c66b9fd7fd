// Package storage defines the vault file-system abstraction and the output writer.
package storage

import (
	"context"

	"github.com/starford/kenaz-export/internal/models"
)

// Provider is the read-only view of the vault the exporter works from.
type Provider interface {
	// List returns metadata for every recognised document under dir (relative to vault root).
	List(dir string) ([]models.DocumentMeta, error)
	// Read returns the raw bytes of the file at path (relative to vault root).
	Read(path string) ([]byte, error)
	// Abs resolves a vault-relative path to an absolute path inside the vault.
	Abs(path string) (string, error)
	// Root returns the absolute vault directory.
	Root() string
	// Excluded reports whether a vault-relative path is hidden from List.
	Excluded(path string) bool
}

// Writer writes export artifacts. Both methods create parent directories.
type Writer interface {
	WriteFile(ctx context.Context, path string, content []byte) error
	AppendFile(ctx context.Context, path string, content []byte) error
}
