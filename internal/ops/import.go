package ops

import (
	"bufio"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/hpungsan/parley/internal/config"
	"github.com/hpungsan/parley/internal/db"
	"github.com/hpungsan/parley/internal/errors"
	"github.com/hpungsan/parley/internal/session"
	"github.com/hpungsan/parley/internal/transcript"
)

// ImportMode controls collision behavior during import.
type ImportMode string

const (
	ImportModeError   ImportMode = "error"   // fail on collision (atomic)
	ImportModeReplace ImportMode = "replace" // overwrite on collision
	ImportModeRename  ImportMode = "rename"  // new session id on collision
)

// maxImportLine bounds a single JSONL line.
const maxImportLine = 4 << 20

// ImportInput contains parameters for the Import operation.
type ImportInput struct {
	Path string     // required
	Mode ImportMode // default: error
}

// ImportOutput contains the result of the Import operation.
type ImportOutput struct {
	Imported int           `json:"imported"`
	Skipped  int           `json:"skipped"`
	Errors   []ImportError `json:"errors"`
}

// ImportError describes one rejected line or record.
type ImportError struct {
	Line    int    `json:"line,omitempty"`
	ID      string `json:"id,omitempty"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// importItem is a parsed, validated export record.
type importItem struct {
	line      int
	summary   session.Summary
	createdAt int64
	deletedAt *int64
}

// Import loads summaries from a JSONL export file.
//
// Mode error is all-or-nothing: any parse error or id collision imports
// nothing. Mode replace overwrites colliding rows. Mode rename stores
// colliding summaries under a fresh session id.
func Import(ctx context.Context, database *sql.DB, cfg *config.Config, input ImportInput) (*ImportOutput, error) {
	if input.Path == "" {
		return nil, errors.NewInvalidRequest("path is required")
	}
	if input.Mode == "" {
		input.Mode = ImportModeError
	}
	switch input.Mode {
	case ImportModeError, ImportModeReplace, ImportModeRename:
	default:
		return nil, errors.NewInvalidRequest("mode must be one of: error, replace, rename")
	}

	policy, err := newPathPolicy(cfg)
	if err != nil {
		return nil, err
	}
	path, err := policy.check(input.Path, ForRead)
	if err != nil {
		return nil, err
	}
	file, err := openNoFollow(path, os.O_RDONLY, 0)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	items, parseErrors := parseExportFile(file)

	if input.Mode == ImportModeError && len(parseErrors) > 0 {
		return &ImportOutput{Errors: parseErrors}, nil
	}

	switch input.Mode {
	case ImportModeError:
		return importModeError(ctx, database, items)
	case ImportModeReplace:
		return importModeReplace(ctx, database, items, parseErrors)
	default:
		return importModeRename(ctx, database, items, parseErrors)
	}
}

// parseExportFile reads an export file into validated items, skipping the header.
func parseExportFile(r io.Reader) ([]importItem, []ImportError) {
	var items []importItem
	var parseErrors []ImportError

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxImportLine)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var record ExportRecord
		if err := json.Unmarshal(line, &record); err != nil {
			parseErrors = append(parseErrors, ImportError{
				Line:    lineNum,
				Code:    "PARSE_ERROR",
				Message: fmt.Sprintf("invalid JSON: %v", err),
			})
			continue
		}
		if record.ParleyExport {
			continue
		}
		if record.ID == "" {
			parseErrors = append(parseErrors, ImportError{
				Line:    lineNum,
				Code:    "INVALID_RECORD",
				Message: "missing id field",
			})
			continue
		}

		var sum session.Summary
		if err := json.Unmarshal(record.Summary, &sum); err != nil {
			parseErrors = append(parseErrors, ImportError{
				Line:    lineNum,
				ID:      record.ID,
				Code:    "INVALID_RECORD",
				Message: fmt.Sprintf("invalid summary: %v", err),
			})
			continue
		}
		if sum.SessionID == "" {
			sum.SessionID = record.ID
		}
		if sum.SessionID != record.ID {
			parseErrors = append(parseErrors, ImportError{
				Line:    lineNum,
				ID:      record.ID,
				Code:    "INVALID_RECORD",
				Message: fmt.Sprintf("summary session_id %q does not match id", sum.SessionID),
			})
			continue
		}

		items = append(items, importItem{
			line:      lineNum,
			summary:   sum,
			createdAt: record.CreatedAt,
			deletedAt: record.DeletedAt,
		})
	}

	if err := scanner.Err(); err != nil {
		parseErrors = append(parseErrors, ImportError{
			Line:    lineNum + 1,
			Code:    "READ_ERROR",
			Message: fmt.Sprintf("failed to read file: %v", err),
		})
	}

	return items, parseErrors
}

func (it importItem) record() (*db.Record, error) {
	rec, err := toRecord(it.summary, it.createdAt)
	if err != nil {
		return nil, err
	}
	rec.DeletedAt = it.deletedAt
	return rec, nil
}

// importModeError imports all items in one transaction, stopping at the first collision.
func importModeError(ctx context.Context, database *sql.DB, items []importItem) (*ImportOutput, error) {
	tx, err := database.BeginTx(ctx, nil)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer tx.Rollback() //nolint:errcheck

	for _, it := range items {
		if ctx.Err() != nil {
			return nil, errors.NewCancelled("import")
		}

		exists, err := db.Exists(ctx, tx, it.summary.SessionID)
		if err != nil {
			return nil, err
		}
		rec, err := it.record()
		if err != nil {
			return nil, err
		}
		if exists {
			return &ImportOutput{Errors: []ImportError{{
				Line:    it.line,
				ID:      rec.ID,
				Code:    "ID_COLLISION",
				Message: fmt.Sprintf("summary with id %q already exists", rec.ID),
			}}}, nil
		}
		if err := db.InsertTx(ctx, tx, rec); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, errors.NewInternal(err)
	}
	return &ImportOutput{Imported: len(items), Errors: []ImportError{}}, nil
}

// importModeReplace upserts every item.
func importModeReplace(ctx context.Context, database *sql.DB, items []importItem, parseErrors []ImportError) (*ImportOutput, error) {
	out := &ImportOutput{Skipped: len(parseErrors), Errors: append([]ImportError{}, parseErrors...)}

	for _, it := range items {
		if ctx.Err() != nil {
			return nil, errors.NewCancelled("import")
		}
		rec, err := it.record()
		if err != nil {
			return nil, err
		}
		if err := db.Replace(ctx, database, rec); err != nil {
			return nil, err
		}
		out.Imported++
	}
	return out, nil
}

// importModeRename inserts every item, assigning a new session id on collision.
func importModeRename(ctx context.Context, database *sql.DB, items []importItem, parseErrors []ImportError) (*ImportOutput, error) {
	out := &ImportOutput{Skipped: len(parseErrors), Errors: append([]ImportError{}, parseErrors...)}

	for _, it := range items {
		if ctx.Err() != nil {
			return nil, errors.NewCancelled("import")
		}

		exists, err := db.Exists(ctx, database, it.summary.SessionID)
		if err != nil {
			return nil, err
		}
		if exists {
			id, err := transcript.NewID()
			if err != nil {
				return nil, errors.NewInternal(err)
			}
			it.summary.SessionID = id
		}

		rec, err := it.record()
		if err != nil {
			return nil, err
		}
		if err := db.Insert(ctx, database, rec); err != nil {
			out.Errors = append(out.Errors, ImportError{
				Line:    it.line,
				ID:      rec.ID,
				Code:    "INSERT_FAILED",
				Message: fmt.Sprintf("failed to insert: %v", err),
			})
			out.Skipped++
			continue
		}
		out.Imported++
	}
	return out, nil
}
