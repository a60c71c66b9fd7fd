// Package apperr holds sentinel errors shared across packages.
package apperr

import "errors"

var (
	ErrNotFound          = errors.New("not found")
	ErrUnknownFormat     = errors.New("unknown output format")
	ErrCapabilityMissing = errors.New("required external tool is not available")
	ErrNoDocuments       = errors.New("no documents in vault")
	ErrNoActiveDocument  = errors.New("no active document")
	ErrBatchRunning      = errors.New("an export batch is already running")
)
