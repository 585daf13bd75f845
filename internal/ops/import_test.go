package ops

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hpungsan/parley/internal/errors"
	"github.com/hpungsan/parley/internal/session"
)

func exportRecord(t *testing.T, sum session.Summary) ExportRecord {
	t.Helper()
	data, err := json.Marshal(sum)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	return ExportRecord{ID: sum.SessionID, CreatedAt: 1700000000, Summary: data}
}

// writeExportFile writes a header plus one line per entry. Entries are either
// ExportRecord values or raw strings written verbatim.
func writeExportFile(t *testing.T, entries ...any) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "import.jsonl")
	file, err := os.Create(path)
	if err != nil {
		t.Fatalf("Failed to create export file: %v", err)
	}
	defer file.Close()

	enc := json.NewEncoder(file)
	if err := enc.Encode(ExportHeader{ParleyExport: true, SchemaVersion: ExportSchemaVersion, ExportedAt: time.Now().Unix()}); err != nil {
		t.Fatalf("Failed to write header: %v", err)
	}
	for _, e := range entries {
		if raw, ok := e.(string); ok {
			if _, err := file.WriteString(raw + "\n"); err != nil {
				t.Fatalf("Failed to write line: %v", err)
			}
			continue
		}
		if err := enc.Encode(e); err != nil {
			t.Fatalf("Failed to write record: %v", err)
		}
	}
	return path
}

func TestImport_HappyPath_ModeError(t *testing.T) {
	ctx := context.Background()
	database := newTestDB(t)
	path := writeExportFile(t,
		exportRecord(t, newTestSummary("01I1", "zoom", 1)),
		exportRecord(t, newTestSummary("01I2", "meet", 2)),
	)

	out, err := Import(ctx, database, unsafeConfig(), ImportInput{Path: path})
	if err != nil {
		t.Fatalf("Import failed: %v", err)
	}
	if out.Imported != 2 || out.Skipped != 0 || len(out.Errors) != 0 {
		t.Errorf("ImportOutput = %+v", out)
	}

	got, err := Fetch(ctx, database, FetchInput{ID: "01I2"})
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if got.Platform != "meet" || got.CreatedAt != 1700000000 || len(got.KeyMoments) != 1 {
		t.Errorf("imported summary = %+v", got)
	}
}

func TestImport_ModeError_RollsBackOnCollision(t *testing.T) {
	ctx := context.Background()
	database := newTestDB(t)
	mustSave(t, database, newTestSummary("01DUP", "zoom", 0))

	path := writeExportFile(t,
		exportRecord(t, newTestSummary("01NEW", "zoom", 1)),
		exportRecord(t, newTestSummary("01DUP", "meet", 2)),
	)

	out, err := Import(ctx, database, unsafeConfig(), ImportInput{Path: path, Mode: ImportModeError})
	if err != nil {
		t.Fatalf("Import failed: %v", err)
	}
	if out.Imported != 0 || len(out.Errors) != 1 || out.Errors[0].Code != "ID_COLLISION" || out.Errors[0].ID != "01DUP" {
		t.Errorf("ImportOutput = %+v", out)
	}

	// 01NEW rolled back
	if _, err := Fetch(ctx, database, FetchInput{ID: "01NEW"}); !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("Fetch(01NEW) = %v, want ErrNotFound after rollback", err)
	}
}

func TestImport_ModeError_DuplicateInFile(t *testing.T) {
	database := newTestDB(t)
	rec := exportRecord(t, newTestSummary("01TWO", "zoom", 1))
	path := writeExportFile(t, rec, rec)

	out, err := Import(context.Background(), database, unsafeConfig(), ImportInput{Path: path})
	if err != nil {
		t.Fatalf("Import failed: %v", err)
	}
	if out.Imported != 0 || len(out.Errors) != 1 || out.Errors[0].Line != 3 {
		t.Errorf("ImportOutput = %+v", out)
	}
}

func TestImport_ModeError_ParseErrorsImportNothing(t *testing.T) {
	ctx := context.Background()
	database := newTestDB(t)
	path := writeExportFile(t,
		exportRecord(t, newTestSummary("01OK", "zoom", 1)),
		`{not json}`,
	)

	out, err := Import(ctx, database, unsafeConfig(), ImportInput{Path: path})
	if err != nil {
		t.Fatalf("Import failed: %v", err)
	}
	if out.Imported != 0 || len(out.Errors) != 1 || out.Errors[0].Code != "PARSE_ERROR" || out.Errors[0].Line != 3 {
		t.Errorf("ImportOutput = %+v", out)
	}
	if _, err := Fetch(ctx, database, FetchInput{ID: "01OK"}); !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("Fetch(01OK) = %v, want ErrNotFound", err)
	}
}

func TestImport_ModeReplace(t *testing.T) {
	ctx := context.Background()
	database := newTestDB(t)
	mustSave(t, database, newTestSummary("01REP", "zoom", 0))

	updated := newTestSummary("01REP", "meet", 5)
	updated.TotalMessages = 42
	path := writeExportFile(t,
		exportRecord(t, updated),
		`{"id":""}`,
		exportRecord(t, newTestSummary("01FRESH", "zoom", 6)),
	)

	out, err := Import(ctx, database, unsafeConfig(), ImportInput{Path: path, Mode: ImportModeReplace})
	if err != nil {
		t.Fatalf("Import failed: %v", err)
	}
	if out.Imported != 2 || out.Skipped != 1 || len(out.Errors) != 1 || out.Errors[0].Code != "INVALID_RECORD" {
		t.Errorf("ImportOutput = %+v", out)
	}

	got, err := Fetch(ctx, database, FetchInput{ID: "01REP"})
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if got.Platform != "meet" || got.TotalMessages != 42 {
		t.Errorf("replaced summary = %s/%d, want meet/42", got.Platform, got.TotalMessages)
	}
}

func TestImport_ModeRename(t *testing.T) {
	ctx := context.Background()
	database := newTestDB(t)
	mustSave(t, database, newTestSummary("01SAME", "zoom", 0))

	path := writeExportFile(t, exportRecord(t, newTestSummary("01SAME", "meet", 5)))

	out, err := Import(ctx, database, unsafeConfig(), ImportInput{Path: path, Mode: ImportModeRename})
	if err != nil {
		t.Fatalf("Import failed: %v", err)
	}
	if out.Imported != 1 {
		t.Fatalf("ImportOutput = %+v", out)
	}

	list, err := List(ctx, database, ListInput{Platform: "meet"})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(list.Items) != 1 || list.Items[0].ID == "01SAME" || len(list.Items[0].ID) != 26 {
		t.Fatalf("renamed items = %+v", list.Items)
	}

	// Summary JSON carries the new id too
	got, err := Fetch(ctx, database, FetchInput{ID: list.Items[0].ID})
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if got.SessionID != list.Items[0].ID {
		t.Errorf("SessionID = %s, want %s", got.SessionID, list.Items[0].ID)
	}

	// Original untouched
	orig, err := Fetch(ctx, database, FetchInput{ID: "01SAME"})
	if err != nil || orig.Platform != "zoom" {
		t.Errorf("original = %+v, %v", orig, err)
	}
}

func TestImport_MismatchedSessionID(t *testing.T) {
	database := newTestDB(t)
	rec := exportRecord(t, newTestSummary("01INNER", "zoom", 1))
	rec.ID = "01OUTER"
	path := writeExportFile(t, rec)

	out, err := Import(context.Background(), database, unsafeConfig(), ImportInput{Path: path, Mode: ImportModeReplace})
	if err != nil {
		t.Fatalf("Import failed: %v", err)
	}
	if out.Imported != 0 || out.Skipped != 1 || out.Errors[0].Code != "INVALID_RECORD" {
		t.Errorf("ImportOutput = %+v", out)
	}
}

func TestImport_RoundTrip(t *testing.T) {
	ctx := context.Background()
	src := newTestDB(t)
	mustSave(t, src,
		newTestSummary("01RT1", "zoom", 1),
		newTestSummary("01RT2", "meet", 2),
	)
	if _, err := Delete(ctx, src, DeleteInput{ID: "01RT2"}); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	path := filepath.Join(t.TempDir(), "rt.jsonl")
	exp, err := Export(ctx, src, unsafeConfig(), ExportInput{Path: path, IncludeDeleted: true})
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	if exp.Count != 2 {
		t.Fatalf("exported %d, want 2", exp.Count)
	}

	dst := newTestDB(t)
	out, err := Import(ctx, dst, unsafeConfig(), ImportInput{Path: path})
	if err != nil {
		t.Fatalf("Import failed: %v", err)
	}
	if out.Imported != 2 {
		t.Fatalf("ImportOutput = %+v", out)
	}

	want, err := Fetch(ctx, src, FetchInput{ID: "01RT1"})
	if err != nil {
		t.Fatalf("Fetch(src) failed: %v", err)
	}
	got, err := Fetch(ctx, dst, FetchInput{ID: "01RT1"})
	if err != nil {
		t.Fatalf("Fetch(dst) failed: %v", err)
	}
	wantJSON, _ := json.Marshal(want)
	gotJSON, _ := json.Marshal(got)
	if string(wantJSON) != string(gotJSON) {
		t.Errorf("round trip mismatch:\n got %s\nwant %s", gotJSON, wantJSON)
	}

	// Deleted state survives
	deleted, err := Fetch(ctx, dst, FetchInput{ID: "01RT2", IncludeDeleted: true})
	if err != nil {
		t.Fatalf("Fetch(deleted) failed: %v", err)
	}
	if deleted.DeletedAt == nil {
		t.Error("DeletedAt lost in round trip")
	}
}

func TestImport_InputErrors(t *testing.T) {
	database := newTestDB(t)
	path := writeExportFile(t)

	tests := []struct {
		name  string
		input ImportInput
		code  errors.ErrorCode
	}{
		{"path required", ImportInput{}, errors.ErrInvalidRequest},
		{"invalid mode", ImportInput{Path: path, Mode: "merge"}, errors.ErrInvalidRequest},
		{"file not found", ImportInput{Path: filepath.Join(t.TempDir(), "missing.jsonl")}, errors.ErrFileNotFound},
		{"wrong extension", ImportInput{Path: "/tmp/x.json"}, errors.ErrInvalidRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Import(context.Background(), database, unsafeConfig(), tt.input)
			if !errors.Is(err, tt.code) {
				t.Errorf("Import = %v, want %s", err, tt.code)
			}
		})
	}
}
