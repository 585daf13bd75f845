package ops

import (
	"bufio"
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/hpungsan/parley/internal/config"
	"github.com/hpungsan/parley/internal/db"
	"github.com/hpungsan/parley/internal/errors"
)

// ExportSchemaVersion is written to every export header.
const ExportSchemaVersion = "1.0"

// ExportInput contains parameters for the Export operation.
type ExportInput struct {
	Path           string  // optional, default: ExportDir()/ExportFileName(platform, now)
	Platform       *string // optional filter by platform
	IncludeDeleted bool
}

// ExportOutput contains the result of the Export operation.
type ExportOutput struct {
	Path       string `json:"path"`
	Count      int    `json:"count"`
	ExportedAt int64  `json:"exported_at"`
}

// ExportHeader is the first line of a JSONL export file.
type ExportHeader struct {
	ParleyExport  bool   `json:"_parley_export"`
	SchemaVersion string `json:"schema_version"`
	ExportedAt    int64  `json:"exported_at"`
}

// ExportRecord is one summary line of a JSONL export file.
type ExportRecord struct {
	ParleyExport bool            `json:"_parley_export,omitempty"`
	ID           string          `json:"id"`
	CreatedAt    int64           `json:"created_at"`
	DeletedAt    *int64          `json:"deleted_at,omitempty"`
	Summary      json.RawMessage `json:"summary"`
}

// Export writes stored summaries to a JSONL file, oldest call first. The
// file only appears at its final path once every record has been written.
func Export(ctx context.Context, database *sql.DB, cfg *config.Config, input ExportInput) (*ExportOutput, error) {
	now := time.Now()

	path := input.Path
	if path == "" {
		dir, err := ExportDir()
		if err != nil {
			return nil, err
		}
		var platform string
		if input.Platform != nil {
			platform = *input.Platform
		}
		path = filepath.Join(dir, ExportFileName(platform, now))
	}

	policy, err := newPathPolicy(cfg)
	if err != nil {
		return nil, err
	}
	dest, err := policy.check(path, ForWrite)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0700); err != nil {
		return nil, errors.NewInternal(fmt.Errorf("create export directory: %w", err))
	}

	out, err := stage(dest)
	if err != nil {
		return nil, err
	}
	defer out.discard()

	filter := db.ListFilter{Platform: input.Platform, IncludeDeleted: input.IncludeDeleted}
	count, err := writeSummaries(ctx, database, out.w, filter, now.Unix())
	if err != nil {
		return nil, err
	}
	if err := out.commit(); err != nil {
		return nil, err
	}
	return &ExportOutput{Path: dest, Count: count, ExportedAt: now.Unix()}, nil
}

// writeSummaries encodes the header and every summary matching filter to w.
func writeSummaries(ctx context.Context, database *sql.DB, w io.Writer, filter db.ListFilter, exportedAt int64) (int, error) {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(ExportHeader{ParleyExport: true, SchemaVersion: ExportSchemaVersion, ExportedAt: exportedAt}); err != nil {
		return 0, errors.NewInternal(err)
	}

	rows, err := db.StreamForExport(ctx, database, filter)
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	n := 0
	for rows.Next() {
		if ctx.Err() != nil {
			return n, errors.NewCancelled("export")
		}
		r, err := db.ScanRecordFromRows(rows)
		if err != nil {
			return n, errors.NewInternal(err)
		}
		rec := ExportRecord{ID: r.ID, CreatedAt: r.CreatedAt, DeletedAt: r.DeletedAt, Summary: json.RawMessage(r.SummaryJSON)}
		if err := enc.Encode(rec); err != nil {
			return n, errors.NewInternal(err)
		}
		n++
	}
	if err := rows.Err(); err != nil {
		return n, errors.NewInternal(err)
	}
	return n, nil
}

// stagedFile is an export being written next to its destination under a
// random temp name. commit renames it into place; discard removes it.
type stagedFile struct {
	dest, tmp string
	f         *os.File
	w         *bufio.Writer
	committed bool
}

func stage(dest string) (*stagedFile, error) {
	suffix := make([]byte, 8)
	if _, err := rand.Read(suffix); err != nil {
		return nil, errors.NewInternal(fmt.Errorf("temp name: %w", err))
	}
	tmp := dest + "." + hex.EncodeToString(suffix) + ".tmp"
	f, err := openNoFollow(tmp, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0600)
	if err != nil {
		return nil, err
	}
	return &stagedFile{dest: dest, tmp: tmp, f: f, w: bufio.NewWriter(f)}, nil
}

func (s *stagedFile) commit() error {
	if err := s.w.Flush(); err != nil {
		return errors.NewInternal(err)
	}
	if err := s.f.Sync(); err != nil {
		return errors.NewInternal(err)
	}
	// Windows cannot rename an open file.
	err := s.f.Close()
	s.f = nil
	if err != nil {
		return errors.NewInternal(fmt.Errorf("close export file: %w", err))
	}

	// Rename replaces a symlink rather than following it, but a symlink that
	// appeared since the policy check means someone is racing us.
	if isSymlink(s.dest) {
		return errors.NewInvalidRequest("export file must not be a symlink")
	}
	if err := os.Rename(s.tmp, s.dest); err != nil {
		if _, statErr := os.Stat(s.dest); statErr == nil && runtime.GOOS == "windows" {
			return errors.NewConflict("export destination already exists; choose a new path or delete it")
		}
		return errors.NewInternal(fmt.Errorf("finalize export: %w", err))
	}
	s.committed = true
	return nil
}

func (s *stagedFile) discard() {
	if s.f != nil {
		s.f.Close()
	}
	if !s.committed {
		os.Remove(s.tmp)
	}
}
