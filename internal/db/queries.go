package db

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/hpungsan/parley/internal/errors"
)

// ErrUniqueConstraint is returned when an insert violates a UNIQUE constraint.
var ErrUniqueConstraint = &errors.ParleyError{
	Code:    "UNIQUE_CONSTRAINT",
	Status:  409,
	Message: "unique constraint violation",
}

// Record is one stored session summary. StartedAt and EndedAt are unix
// milliseconds; CreatedAt and DeletedAt are unix seconds.
type Record struct {
	ID               string
	Platform         string
	StartedAt        int64
	EndedAt          int64
	DurationMs       int64
	TotalMessages    int
	TotalUtterances  int
	SentimentAverage float64
	SummaryJSON      string
	CreatedAt        int64
	DeletedAt        *int64
}

// ListFilter narrows ListSummaries and StreamForExport.
type ListFilter struct {
	Platform       *string
	IncludeDeleted bool
}

const recordColumns = `id, platform, started_at, ended_at, duration_ms,
	total_messages, total_utterances, sentiment_average, summary_json,
	created_at, deleted_at`

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Insert stores a new summary record.
func Insert(ctx context.Context, db *sql.DB, r *Record) error {
	return insert(ctx, db, r)
}

// InsertTx stores a new summary record inside tx.
func InsertTx(ctx context.Context, tx *sql.Tx, r *Record) error {
	return insert(ctx, tx, r)
}

func insert(ctx context.Context, ex execer, r *Record) error {
	query := `INSERT INTO sessions (` + recordColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := ex.ExecContext(ctx, query,
		r.ID, r.Platform, r.StartedAt, r.EndedAt, r.DurationMs,
		r.TotalMessages, r.TotalUtterances, r.SentimentAverage, r.SummaryJSON,
		r.CreatedAt, toNullInt64(r.DeletedAt),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrUniqueConstraint
		}
		return errors.NewInternal(err)
	}
	return nil
}

// Replace overwrites every column of the record with r.ID, inserting it if absent.
func Replace(ctx context.Context, db *sql.DB, r *Record) error {
	query := `
		INSERT INTO sessions (` + recordColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			platform = excluded.platform,
			started_at = excluded.started_at,
			ended_at = excluded.ended_at,
			duration_ms = excluded.duration_ms,
			total_messages = excluded.total_messages,
			total_utterances = excluded.total_utterances,
			sentiment_average = excluded.sentiment_average,
			summary_json = excluded.summary_json,
			created_at = excluded.created_at,
			deleted_at = excluded.deleted_at
	`
	_, err := db.ExecContext(ctx, query,
		r.ID, r.Platform, r.StartedAt, r.EndedAt, r.DurationMs,
		r.TotalMessages, r.TotalUtterances, r.SentimentAverage, r.SummaryJSON,
		r.CreatedAt, toNullInt64(r.DeletedAt),
	)
	if err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// isUniqueConstraintError checks if the error is a SQLite UNIQUE constraint violation.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	// SQLite returns "UNIQUE constraint failed: ..." for unique and primary key violations
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// GetByID retrieves a summary record by session id.
// If includeDeleted is false, soft-deleted records are excluded.
func GetByID(ctx context.Context, db *sql.DB, id string, includeDeleted bool) (*Record, error) {
	query := `SELECT ` + recordColumns + ` FROM sessions WHERE id = ?`
	if !includeDeleted {
		query += " AND deleted_at IS NULL"
	}

	r, err := scanRecord(db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound(id)
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return r, nil
}

// Querier is satisfied by *sql.DB and *sql.Tx.
type Querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Exists reports whether any record (deleted or not) has id.
func Exists(ctx context.Context, q Querier, id string) (bool, error) {
	var one int
	err := q.QueryRowContext(ctx, "SELECT 1 FROM sessions WHERE id = ?", id).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, errors.NewInternal(err)
	}
	return true, nil
}

// ListSummaries returns records newest first (ended_at DESC, id DESC) and the
// total number matching the filter.
func ListSummaries(ctx context.Context, db *sql.DB, f ListFilter, limit, offset int) ([]Record, int, error) {
	where, args := f.where()

	var total int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM sessions"+where, args...).Scan(&total); err != nil {
		return nil, 0, errors.NewInternal(err)
	}

	query := `SELECT ` + recordColumns + ` FROM sessions` + where +
		` ORDER BY ended_at DESC, id DESC LIMIT ? OFFSET ?`
	rows, err := db.QueryContext(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, errors.NewInternal(err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		r, err := ScanRecordFromRows(rows)
		if err != nil {
			return nil, 0, errors.NewInternal(err)
		}
		out = append(out, *r)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, errors.NewInternal(err)
	}
	return out, total, nil
}

// StreamForExport returns rows of all records matching f, oldest first.
// The caller must close the rows and scan them with ScanRecordFromRows.
func StreamForExport(ctx context.Context, db *sql.DB, f ListFilter) (*sql.Rows, error) {
	where, args := f.where()
	query := `SELECT ` + recordColumns + ` FROM sessions` + where + ` ORDER BY ended_at ASC, id ASC`
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return rows, nil
}

func (f ListFilter) where() (string, []any) {
	var clauses []string
	var args []any
	if !f.IncludeDeleted {
		clauses = append(clauses, "deleted_at IS NULL")
	}
	if f.Platform != nil {
		clauses = append(clauses, "platform = ?")
		args = append(args, *f.Platform)
	}
	if len(clauses) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

// SoftDelete marks a record as deleted.
func SoftDelete(ctx context.Context, db *sql.DB, id string) error {
	res, err := db.ExecContext(ctx,
		"UPDATE sessions SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL",
		time.Now().Unix(), id,
	)
	if err != nil {
		return errors.NewInternal(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.NewInternal(err)
	}
	if n == 0 {
		return errors.NewNotFound(id)
	}
	return nil
}

// PurgeDeleted permanently removes soft-deleted records, optionally limited to
// one platform and to records deleted more than olderThanDays days ago.
func PurgeDeleted(ctx context.Context, db *sql.DB, platform *string, olderThanDays *int) (int, error) {
	query := "DELETE FROM sessions WHERE deleted_at IS NOT NULL"
	var args []any
	if platform != nil {
		query += " AND platform = ?"
		args = append(args, *platform)
	}
	if olderThanDays != nil {
		cutoff := time.Now().Add(-time.Duration(*olderThanDays) * 24 * time.Hour).Unix()
		query += " AND deleted_at < ?"
		args = append(args, cutoff)
	}

	res, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, errors.NewInternal(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, errors.NewInternal(err)
	}
	return int(n), nil
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(s scanner) (*Record, error) {
	var r Record
	var deletedAt sql.NullInt64
	err := s.Scan(
		&r.ID, &r.Platform, &r.StartedAt, &r.EndedAt, &r.DurationMs,
		&r.TotalMessages, &r.TotalUtterances, &r.SentimentAverage, &r.SummaryJSON,
		&r.CreatedAt, &deletedAt,
	)
	if err != nil {
		return nil, err
	}
	r.DeletedAt = fromNullInt64(deletedAt)
	return &r, nil
}

// ScanRecordFromRows scans the current row of a StreamForExport result.
func ScanRecordFromRows(rows *sql.Rows) (*Record, error) {
	return scanRecord(rows)
}

// toNullInt64 converts *int64 to sql.NullInt64.
func toNullInt64(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

// fromNullInt64 converts sql.NullInt64 to *int64.
func fromNullInt64(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	n := v.Int64
	return &n
}
