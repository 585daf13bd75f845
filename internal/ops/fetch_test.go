package ops

import (
	"context"
	"testing"

	"github.com/hpungsan/parley/internal/errors"
	"github.com/hpungsan/parley/internal/session"
)

func TestSave_AndFetch(t *testing.T) {
	ctx := context.Background()
	database := newTestDB(t)
	sum := newTestSummary("01SAVE", "meet", 0)

	out, err := Save(ctx, database, sum)
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if out.ID != "01SAVE" || out.Platform != "meet" || out.CreatedAt == 0 {
		t.Errorf("SaveOutput = %+v", out)
	}

	got, err := Fetch(ctx, database, FetchInput{ID: " 01SAVE "})
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if got.SessionID != "01SAVE" || got.Platform != "meet" {
		t.Errorf("Fetch = %s/%s", got.SessionID, got.Platform)
	}
	if got.TotalMessages != 6 || got.TotalUtterances != 5 {
		t.Errorf("totals = %d/%d, want 6/5", got.TotalMessages, got.TotalUtterances)
	}
	if got.ObjectionsBySubtype["PRICE"] != 1 {
		t.Errorf("ObjectionsBySubtype = %v", got.ObjectionsBySubtype)
	}
	if got.DeletedAt != nil {
		t.Error("DeletedAt should be nil")
	}
}

func TestSave_Conflict(t *testing.T) {
	ctx := context.Background()
	database := newTestDB(t)
	sum := newTestSummary("01TWICE", "meet", 0)

	if _, err := Save(ctx, database, sum); err != nil {
		t.Fatalf("first Save failed: %v", err)
	}
	if _, err := Save(ctx, database, sum); !errors.Is(err, errors.ErrConflict) {
		t.Errorf("second Save = %v, want ErrConflict", err)
	}
}

func TestSave_RequiresSessionID(t *testing.T) {
	database := newTestDB(t)

	_, err := Save(context.Background(), database, session.Summary{})
	if !errors.Is(err, errors.ErrInvalidRequest) {
		t.Errorf("Save = %v, want ErrInvalidRequest", err)
	}
}

func TestFetch_Errors(t *testing.T) {
	ctx := context.Background()
	database := newTestDB(t)

	if _, err := Fetch(ctx, database, FetchInput{}); !errors.Is(err, errors.ErrInvalidRequest) {
		t.Errorf("Fetch(empty) = %v, want ErrInvalidRequest", err)
	}
	if _, err := Fetch(ctx, database, FetchInput{ID: "missing"}); !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("Fetch(missing) = %v, want ErrNotFound", err)
	}
}

func TestFetch_IncludeDeleted(t *testing.T) {
	ctx := context.Background()
	database := newTestDB(t)
	mustSave(t, database, newTestSummary("01GONE", "zoom", 0))

	if _, err := Delete(ctx, database, DeleteInput{ID: "01GONE"}); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	if _, err := Fetch(ctx, database, FetchInput{ID: "01GONE"}); !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("Fetch(active) = %v, want ErrNotFound", err)
	}
	got, err := Fetch(ctx, database, FetchInput{ID: "01GONE", IncludeDeleted: true})
	if err != nil {
		t.Fatalf("Fetch(includeDeleted) failed: %v", err)
	}
	if got.DeletedAt == nil {
		t.Error("DeletedAt should be set")
	}
}
