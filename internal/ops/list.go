package ops

import (
	"context"
	"database/sql"
	"strings"

	"github.com/hpungsan/parley/internal/db"
)

// ListInput contains parameters for the List operation.
type ListInput struct {
	Platform       string // optional filter; empty lists every platform
	Limit          int    // default: 20, max: 100
	Offset         int    // default: 0
	IncludeDeleted bool
}

// ListOutput contains the result of the List operation.
type ListOutput struct {
	Items      []SummaryItem `json:"items"`
	Pagination Pagination    `json:"pagination"`
	Sort       string        `json:"sort"`
}

// List retrieves stored summaries newest first with pagination.
func List(ctx context.Context, database *sql.DB, input ListInput) (*ListOutput, error) {
	limit := input.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	offset := max(input.Offset, 0)

	filter := db.ListFilter{IncludeDeleted: input.IncludeDeleted}
	if p := strings.TrimSpace(input.Platform); p != "" {
		filter.Platform = &p
	}

	records, total, err := db.ListSummaries(ctx, database, filter, limit, offset)
	if err != nil {
		return nil, err
	}

	items := make([]SummaryItem, 0, len(records))
	for _, r := range records {
		items = append(items, toItem(r))
	}

	return &ListOutput{
		Items: items,
		Pagination: Pagination{
			Limit:   limit,
			Offset:  offset,
			HasMore: offset+len(items) < total,
			Total:   total,
		},
		Sort: "ended_at_desc",
	}, nil
}
