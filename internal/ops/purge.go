package ops

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hpungsan/parley/internal/db"
	"github.com/hpungsan/parley/internal/errors"
)

// PurgeInput contains parameters for the Purge operation.
type PurgeInput struct {
	Platform      *string // optional filter by platform
	OlderThanDays *int    // optional, only purge if deleted_at < (now - N days)
}

// PurgeOutput contains the result of the Purge operation.
type PurgeOutput struct {
	Purged  int    `json:"purged"`
	Message string `json:"message"`
}

// Purge permanently deletes soft-deleted summaries.
func Purge(ctx context.Context, database *sql.DB, input PurgeInput) (*PurgeOutput, error) {
	if input.OlderThanDays != nil && *input.OlderThanDays < 0 {
		return nil, errors.NewInvalidRequest("older_than_days must be >= 0")
	}

	count, err := db.PurgeDeleted(ctx, database, input.Platform, input.OlderThanDays)
	if err != nil {
		return nil, err
	}

	return &PurgeOutput{
		Purged:  count,
		Message: formatPurgeMessage(count, input.Platform, input.OlderThanDays),
	}, nil
}

// formatPurgeMessage creates a human-readable message for the purge result.
func formatPurgeMessage(count int, platform *string, olderThanDays *int) string {
	if count == 0 {
		return "No deleted summaries to purge"
	}

	word := "summary"
	if count > 1 {
		word = "summaries"
	}

	msg := fmt.Sprintf("Permanently deleted %d %s", count, word)
	if platform != nil {
		msg += fmt.Sprintf(" from platform %q", *platform)
	}
	if olderThanDays != nil {
		msg += fmt.Sprintf(" (deleted more than %d days ago)", *olderThanDays)
	}
	return msg
}
