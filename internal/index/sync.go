package index

import (
	"log/slog"
	"path"
	"strings"

	"github.com/starford/kenaz-export/internal/checksum"
	"github.com/starford/kenaz-export/internal/parser"
	"github.com/starford/kenaz-export/internal/storage"
)

// Sync walks the vault and brings the index up to date:
//   - new/changed documents are parsed and upserted
//   - documents removed from disk are deleted from the index
//
// A failure to list the vault is returned; per-file failures are logged.
func Sync(db *DB, store storage.Provider, logger *slog.Logger) error {
	metas, err := store.List("")
	if err != nil {
		return err
	}

	checksums, err := db.AllChecksums()
	if err != nil {
		return err
	}

	disk := make(map[string]struct{}, len(metas))
	for _, m := range metas {
		disk[m.Path] = struct{}{}

		if checksums[m.Path] == m.Checksum {
			continue
		}

		data, err := store.Read(m.Path)
		if err != nil {
			logger.Warn("sync: read failed", slog.String("path", m.Path), slog.String("error", err.Error()))
			continue
		}
		if err := indexFile(db, m.Path, data); err != nil {
			logger.Warn("sync: index failed", slog.String("path", m.Path), slog.String("error", err.Error()))
		} else {
			logger.Debug("sync: indexed", slog.String("path", m.Path))
		}
	}

	for p := range checksums {
		if _, ok := disk[p]; !ok {
			if err := db.DeleteDocument(p); err != nil {
				logger.Warn("sync: delete failed", slog.String("path", p), slog.String("error", err.Error()))
			} else {
				logger.Debug("sync: removed stale", slog.String("path", p))
			}
		}
	}

	logger.Info("sync: complete", slog.Int("documents", len(metas)))
	return nil
}

// indexFile parses data and upserts it into the DB.
func indexFile(db *DB, rel string, data []byte) error {
	stem := strings.TrimSuffix(path.Base(rel), path.Ext(rel))
	res, err := parser.Parse(data, stem)
	if err != nil {
		return err
	}
	return db.UpsertDocument(DocumentRow{
		Path:     rel,
		Title:    res.Title,
		Checksum: checksum.Sum(data),
		Tags:     res.Tags,
	}, res.LinkTargets())
}
