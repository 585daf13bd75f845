// Package ops implements the stored-summary operations shared by the CLI and
// the MCP server.
package ops

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/hpungsan/parley/internal/db"
	"github.com/hpungsan/parley/internal/errors"
	"github.com/hpungsan/parley/internal/session"
)

// Pagination limits
const (
	DefaultListLimit = 20
	MaxListLimit     = 100
)

// Pagination contains pagination metadata for list operations.
type Pagination struct {
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	HasMore bool `json:"has_more"`
	Total   int  `json:"total"`
}

// StoredSummary is a final session summary as persisted.
type StoredSummary struct {
	session.Summary
	CreatedAt int64  `json:"created_at"`
	DeletedAt *int64 `json:"deleted_at,omitempty"`
}

// SummaryItem is the list view of a stored summary (no analytics detail).
type SummaryItem struct {
	ID               string    `json:"id"`
	Platform         string    `json:"platform"`
	StartedAt        time.Time `json:"started_at"`
	EndedAt          time.Time `json:"ended_at"`
	DurationMs       int64     `json:"duration_ms"`
	TotalMessages    int       `json:"total_messages"`
	TotalUtterances  int       `json:"total_utterances"`
	SentimentAverage float64   `json:"sentiment_average"`
	CreatedAt        int64     `json:"created_at"`
	DeletedAt        *int64    `json:"deleted_at,omitempty"`
}

// ValidateID trims id and rejects empty ids.
func ValidateID(id string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", errors.NewInvalidRequest("id is required")
	}
	return id, nil
}

// toRecord flattens a summary into its table row.
func toRecord(sum session.Summary, createdAt int64) (*db.Record, error) {
	data, err := json.Marshal(sum)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return &db.Record{
		ID:               sum.SessionID,
		Platform:         sum.Platform,
		StartedAt:        sum.StartedAt.UnixMilli(),
		EndedAt:          sum.EndedAt.UnixMilli(),
		DurationMs:       sum.DurationMs,
		TotalMessages:    sum.TotalMessages,
		TotalUtterances:  sum.TotalUtterances,
		SentimentAverage: sum.SentimentAverage,
		SummaryJSON:      string(data),
		CreatedAt:        createdAt,
	}, nil
}

// fromRecord decodes the stored summary JSON of r.
func fromRecord(r *db.Record) (*StoredSummary, error) {
	var sum session.Summary
	if err := json.Unmarshal([]byte(r.SummaryJSON), &sum); err != nil {
		return nil, errors.NewInternal(err)
	}
	return &StoredSummary{Summary: sum, CreatedAt: r.CreatedAt, DeletedAt: r.DeletedAt}, nil
}

func toItem(r db.Record) SummaryItem {
	return SummaryItem{
		ID:               r.ID,
		Platform:         r.Platform,
		StartedAt:        time.UnixMilli(r.StartedAt).UTC(),
		EndedAt:          time.UnixMilli(r.EndedAt).UTC(),
		DurationMs:       r.DurationMs,
		TotalMessages:    r.TotalMessages,
		TotalUtterances:  r.TotalUtterances,
		SentimentAverage: r.SentimentAverage,
		CreatedAt:        r.CreatedAt,
		DeletedAt:        r.DeletedAt,
	}
}
