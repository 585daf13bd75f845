package main

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hpungsan/parley/internal/config"
	"github.com/hpungsan/parley/internal/db"
	"github.com/hpungsan/parley/internal/ops"
	"github.com/hpungsan/parley/internal/session"
	"github.com/hpungsan/parley/internal/transcript"
)

const replayTranscript = `{"text":"Hi, thanks for joining.","speaker":"salesperson","is_final":true,"timestamp":1772463600000}
{"text":"It's too expensive for our budget right now","speaker":"client","is_final":true,"timestamp":1772463605000}
not json
{"text":"   ","speaker":"client","is_final":true}

{"text":"so what abou","speaker":"client","is_final":false}
`

// setupTestDB creates a temporary database for testing.
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	database, err := db.Init(t.TempDir())
	if err != nil {
		t.Fatalf("failed to init test db: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	return database
}

// testConfig returns a default config that allows temp-dir exports.
func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.AllowUnsafePaths = true
	return cfg
}

// runCLI runs one command with stdin and returns what it wrote to stdout.
func runCLI(t *testing.T, database *sql.DB, cfg *config.Config, stdin string, args ...string) (string, error) {
	t.Helper()
	app := newCLIApp(database, cfg)
	var out bytes.Buffer
	app.Writer = &out
	app.ErrWriter = io.Discard
	app.Reader = strings.NewReader(stdin)
	err := app.Run(append([]string{"parley"}, args...))
	return out.String(), err
}

// saveSummary runs a short call through a session and stores its summary.
func saveSummary(t *testing.T, database *sql.DB, platform string) string {
	t.Helper()
	s, err := session.New("", session.DefaultOptions(), session.Deps{})
	require.NoError(t, err)
	require.NoError(t, s.Start(platform))

	final := true
	_, err = s.Ingest(transcript.RawEvent{Text: "It's too expensive for our budget right now", Speaker: "client", IsFinal: &final})
	require.NoError(t, err)

	sum, err := s.End()
	require.NoError(t, err)
	_, err = ops.Save(context.Background(), database, sum)
	require.NoError(t, err)
	return sum.SessionID
}

// TestParseDuration tests the parseDuration helper function.
func TestParseDuration(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		expected    int
		expectError bool
	}{
		{name: "valid days", input: "7d", expected: 7},
		{name: "zero days", input: "0d", expected: 0},
		{name: "large number", input: "365d", expected: 365},
		{name: "negative days", input: "-7d", expectError: true},
		{name: "no suffix", input: "7", expectError: true},
		{name: "wrong suffix", input: "7h", expectError: true},
		{name: "invalid number", input: "abcd", expectError: true},
		{name: "empty string", input: "", expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := parseDuration(tt.input)
			if tt.expectError {
				if err == nil {
					t.Errorf("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Errorf("unexpected error: %v", err)
				return
			}
			if result != tt.expected {
				t.Errorf("expected %d, got %d", tt.expected, result)
			}
		})
	}
}

// TestCLIReplay tests replaying a transcript from stdin and saving it.
func TestCLIReplay(t *testing.T) {
	database := setupTestDB(t)

	out, err := runCLI(t, database, testConfig(), replayTranscript, "replay", "--platform=zoom", "--save")
	require.NoError(t, err)

	var output ReplayOutput
	require.NoError(t, json.Unmarshal([]byte(out), &output), out)

	require.Equal(t, 4, output.Events)
	require.Equal(t, 1, output.Dropped)
	require.Equal(t, 1, output.Skipped)
	require.Equal(t, "zoom", output.Summary.Platform)
	require.Equal(t, 2, output.Summary.TotalUtterances)
	require.Equal(t, 3, output.Summary.TotalMessages)
	require.Positive(t, output.Summary.TotalDetections)

	require.NotNil(t, output.Saved)
	require.Equal(t, output.Summary.SessionID, output.Saved.ID)

	stored, err := ops.Fetch(context.Background(), database, ops.FetchInput{ID: output.Saved.ID})
	require.NoError(t, err)
	require.Equal(t, output.Summary.TotalDetections, stored.TotalDetections)
}

// TestCLIReplay_Events tests that --events streams events before the summary.
func TestCLIReplay_Events(t *testing.T) {
	out, err := runCLI(t, nil, testConfig(), replayTranscript, "replay", "--events")
	require.NoError(t, err)

	var types []string
	for _, line := range strings.Split(out, "\n") {
		if !strings.HasPrefix(line, `{"type":`) {
			continue
		}
		var header session.EventHeader
		require.NoError(t, json.Unmarshal([]byte(line), &header))
		types = append(types, string(header.Type))
	}

	require.Contains(t, types, string(session.EventDetectionOccurred))
	require.Contains(t, types, string(session.EventCaptionUpdated))
	require.Contains(t, out, `"summary": {`)
}

// TestCLIReplay_File tests replaying from a file argument.
func TestCLIReplay_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "call.jsonl")
	require.NoError(t, os.WriteFile(path, []byte(replayTranscript), 0600))

	out, err := runCLI(t, nil, testConfig(), "", "replay", path)
	require.NoError(t, err)

	var output ReplayOutput
	require.NoError(t, json.Unmarshal([]byte(out), &output))
	require.Equal(t, "replay", output.Summary.Platform)
	require.Nil(t, output.Saved)

	_, err = runCLI(t, nil, testConfig(), "", "replay", filepath.Join(t.TempDir(), "missing.jsonl"))
	require.ErrorContains(t, err, "FILE_NOT_FOUND")
}

// TestCLIReplay_SaveWithoutDatabase tests that --save needs a database.
func TestCLIReplay_SaveWithoutDatabase(t *testing.T) {
	_, err := runCLI(t, nil, testConfig(), replayTranscript, "replay", "--save")
	require.ErrorContains(t, err, "INVALID_REQUEST")
}

// TestCLIListShow tests the list and show commands.
func TestCLIListShow(t *testing.T) {
	database := setupTestDB(t)
	cfg := testConfig()

	zoomID := saveSummary(t, database, "zoom")
	saveSummary(t, database, "meet")

	out, err := runCLI(t, database, cfg, "", "list")
	require.NoError(t, err)
	var list ops.ListOutput
	require.NoError(t, json.Unmarshal([]byte(out), &list))
	require.Len(t, list.Items, 2)
	require.Equal(t, 2, list.Pagination.Total)

	out, err = runCLI(t, database, cfg, "", "list", "--platform=zoom")
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(out), &list))
	require.Len(t, list.Items, 1)
	require.Equal(t, zoomID, list.Items[0].ID)

	out, err = runCLI(t, database, cfg, "", "show", zoomID)
	require.NoError(t, err)
	var stored ops.StoredSummary
	require.NoError(t, json.Unmarshal([]byte(out), &stored))
	require.Equal(t, zoomID, stored.SessionID)
	require.Equal(t, "zoom", stored.Platform)
}

// TestCLIReport tests the report command in both formats.
func TestCLIReport(t *testing.T) {
	database := setupTestDB(t)
	cfg := testConfig()
	id := saveSummary(t, database, "zoom")

	out, err := runCLI(t, database, cfg, "", "report", id)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(out, "# Call report: zoom"), out)
	require.Contains(t, out, "## Key moments")

	out, err = runCLI(t, database, cfg, "", "report", "--format=html", id)
	require.NoError(t, err)
	require.Contains(t, out, "<h1>Call report: zoom</h1>")

	_, err = runCLI(t, database, cfg, "", "report", "--format=pdf", id)
	require.ErrorContains(t, err, "INVALID_REQUEST")
}

// TestCLIDeletePurge tests soft delete followed by purge.
func TestCLIDeletePurge(t *testing.T) {
	database := setupTestDB(t)
	cfg := testConfig()
	id := saveSummary(t, database, "zoom")

	out, err := runCLI(t, database, cfg, "", "delete", id)
	require.NoError(t, err)
	var del ops.DeleteOutput
	require.NoError(t, json.Unmarshal([]byte(out), &del))
	require.True(t, del.Deleted)

	_, err = runCLI(t, database, cfg, "", "show", id)
	require.ErrorContains(t, err, "NOT_FOUND")

	out, err = runCLI(t, database, cfg, "", "purge", "--platform=zoom")
	require.NoError(t, err)
	var purge ops.PurgeOutput
	require.NoError(t, json.Unmarshal([]byte(out), &purge))
	require.Equal(t, 1, purge.Purged)

	_, err = runCLI(t, database, cfg, "", "show", "--include-deleted", id)
	require.ErrorContains(t, err, "NOT_FOUND")
}

// TestCLIExportImport tests exporting from one database and importing into another.
func TestCLIExportImport(t *testing.T) {
	src := setupTestDB(t)
	cfg := testConfig()
	id := saveSummary(t, src, "zoom")

	exportPath := filepath.Join(t.TempDir(), "summaries.jsonl")
	out, err := runCLI(t, src, cfg, "", "export", "--path="+exportPath)
	require.NoError(t, err)
	var exported ops.ExportOutput
	require.NoError(t, json.Unmarshal([]byte(out), &exported))
	require.Equal(t, 1, exported.Count)

	dst := setupTestDB(t)
	out, err = runCLI(t, dst, cfg, "", "import", "--path="+exportPath)
	require.NoError(t, err)
	var imported ops.ImportOutput
	require.NoError(t, json.Unmarshal([]byte(out), &imported))
	require.Equal(t, 1, imported.Imported)

	// Rename mode stores a second copy under a new id.
	out, err = runCLI(t, dst, cfg, "", "import", "--path="+exportPath, "--mode=rename")
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(out), &imported))
	require.Equal(t, 1, imported.Imported)

	stored, err := ops.Fetch(context.Background(), dst, ops.FetchInput{ID: id})
	require.NoError(t, err)
	require.Equal(t, "zoom", stored.Platform)

	list, err := ops.List(context.Background(), dst, ops.ListInput{})
	require.NoError(t, err)
	require.Len(t, list.Items, 2)
}

// TestCLIErrorHandling tests error handling in CLI commands.
func TestCLIErrorHandling(t *testing.T) {
	database := setupTestDB(t)
	cfg := testConfig()

	tests := []struct {
		name string
		args []string
		code string
	}{
		{name: "show not found", args: []string{"show", "nonexistent"}, code: "NOT_FOUND"},
		{name: "show without id", args: []string{"show"}, code: "INVALID_REQUEST"},
		{name: "delete not found", args: []string{"delete", "nonexistent"}, code: "NOT_FOUND"},
		{name: "invalid duration", args: []string{"purge", "--older-than=invalid"}, code: "INVALID_REQUEST"},
		{name: "invalid import mode", args: []string{"import", "--path=x.jsonl", "--mode=merge"}, code: "INVALID_REQUEST"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := runCLI(t, database, cfg, "", tt.args...)
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), "["+tt.code+"]") {
				t.Errorf("error = %q, want code %s", err, tt.code)
			}
		})
	}
}

func TestDetectMode(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		terminal bool
		want     runMode
	}{
		{"bare on terminal", []string{"parley"}, true, modeBanner},
		{"bare piped", []string{"parley"}, false, modeServe},
		{"replay", []string{"parley", "replay", "call.jsonl"}, true, modeCLI},
		{"report piped", []string{"parley", "report", "01ABC"}, false, modeCLI},
		{"export", []string{"parley", "export"}, true, modeCLI},
		{"help subcommand", []string{"parley", "help"}, true, modeHelp},
		{"help flag", []string{"parley", "--help"}, false, modeHelp},
		{"short version flag", []string{"parley", "-v"}, true, modeHelp},
		{"unknown on terminal", []string{"parley", "call"}, true, modeUnknown},
		{"unknown piped serves", []string{"parley", "--stdio"}, false, modeServe},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, detectMode(tt.args, tt.terminal))
		})
	}
}
