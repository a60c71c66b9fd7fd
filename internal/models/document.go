// Package models defines the domain types shared by the exporter.
package models

import (
	"path/filepath"
	"strings"
	"time"
)

// Document is a note in the vault. The exporter only ever holds
// references to documents; it never mutates or deletes them.
type Document struct {
	Path      string    `json:"path"`     // vault-relative, slash separated
	AbsPath   string    `json:"abs_path"` // absolute filesystem path
	Title     string    `json:"title,omitempty"`
	Checksum  string    `json:"checksum,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Ext returns the lower-cased file extension including the leading dot.
func (d Document) Ext() string {
	return strings.ToLower(filepath.Ext(d.Path))
}

// Stem returns the base file name without its extension.
func (d Document) Stem() string {
	base := filepath.Base(filepath.FromSlash(d.Path))
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// DocumentMeta is the lightweight listing record produced by storage.
type DocumentMeta struct {
	Path      string    `json:"path"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SupportedInputExtensions lists the document extensions the renderer accepts.
var SupportedInputExtensions = []string{".md", ".markdown"}

// IsSupportedInput reports whether path carries a supported input extension.
func IsSupportedInput(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range SupportedInputExtensions {
		if ext == e {
			return true
		}
	}
	return false
}
