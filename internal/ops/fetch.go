package ops

import (
	"context"
	"database/sql"

	"github.com/hpungsan/parley/internal/db"
)

// FetchInput contains parameters for the Fetch operation.
type FetchInput struct {
	ID             string
	IncludeDeleted bool
}

// Fetch retrieves a stored summary by session id.
func Fetch(ctx context.Context, database *sql.DB, input FetchInput) (*StoredSummary, error) {
	id, err := ValidateID(input.ID)
	if err != nil {
		return nil, err
	}

	rec, err := db.GetByID(ctx, database, id, input.IncludeDeleted)
	if err != nil {
		return nil, err
	}
	return fromRecord(rec)
}
