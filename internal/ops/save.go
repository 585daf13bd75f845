package ops

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hpungsan/parley/internal/db"
	"github.com/hpungsan/parley/internal/errors"
	"github.com/hpungsan/parley/internal/session"
)

// SaveOutput contains the result of the Save operation.
type SaveOutput struct {
	ID        string `json:"id"`
	Platform  string `json:"platform"`
	CreatedAt int64  `json:"created_at"`
}

// Save persists a final session summary. A summary is stored once; saving the
// same session id again is a CONFLICT.
func Save(ctx context.Context, database *sql.DB, sum session.Summary) (*SaveOutput, error) {
	if _, err := ValidateID(sum.SessionID); err != nil {
		return nil, errors.NewInvalidRequest("summary session_id is required")
	}

	createdAt := time.Now().Unix()
	rec, err := toRecord(sum, createdAt)
	if err != nil {
		return nil, err
	}

	if err := db.Insert(ctx, database, rec); err != nil {
		if err == db.ErrUniqueConstraint {
			return nil, errors.NewConflict(fmt.Sprintf("summary for session %s already stored", sum.SessionID))
		}
		return nil, err
	}

	return &SaveOutput{
		ID:        rec.ID,
		Platform:  rec.Platform,
		CreatedAt: createdAt,
	}, nil
}
