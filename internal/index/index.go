package index

import "context"

// DocumentIndex is the subset of *DB the rest of the application depends on.
type DocumentIndex interface {
	UpsertDocument(d DocumentRow, links []string) error
	DeleteDocument(path string) error
	GetChecksum(path string) (string, error)
	GetDocument(path string) (*DocumentRow, error)
	ListDocuments(ctx context.Context) ([]DocumentRow, error)
	Backlinks(target string) ([]string, error)
	AllChecksums() (map[string]string, error)
	Close() error
}

// Verify *DB satisfies DocumentIndex at compile time.
var _ DocumentIndex = (*DB)(nil)
