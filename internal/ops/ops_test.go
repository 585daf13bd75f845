package ops

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	"github.com/hpungsan/parley/internal/analytics"
	"github.com/hpungsan/parley/internal/classify"
	"github.com/hpungsan/parley/internal/config"
	"github.com/hpungsan/parley/internal/db"
	"github.com/hpungsan/parley/internal/errors"
	"github.com/hpungsan/parley/internal/session"
	"github.com/hpungsan/parley/internal/transcript"
)

var testEpoch = time.Date(2026, 3, 2, 15, 0, 0, 0, time.UTC)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	database, err := db.Init(t.TempDir())
	if err != nil {
		t.Fatalf("db.Init failed: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	return database
}

// unsafeConfig allows export/import anywhere, e.g. under t.TempDir().
func unsafeConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.AllowUnsafePaths = true
	return cfg
}

// newTestSummary builds a final summary that ended minutesIn minutes after testEpoch.
func newTestSummary(id, platform string, minutesIn int) session.Summary {
	ended := testEpoch.Add(time.Duration(minutesIn) * time.Minute)
	return session.Summary{
		SessionID:     id,
		Platform:      platform,
		StartedAt:     ended.Add(-5 * time.Minute),
		EndedAt:       ended,
		DurationMs:    (5 * time.Minute).Milliseconds(),
		TotalMessages: 6,
		Summary: analytics.Summary{
			SentimentAverage: -0.2,
			SentimentTrend:   analytics.TrendDeclining,
			SentimentSamples: 5,
			TalkRatio:        analytics.TalkRatio{Salesperson: 120, Client: 80},
			TalkRatioPercent: analytics.TalkPercent{Salesperson: 60, Client: 40},
			DetectionCounts: map[classify.Kind]int{
				classify.KindObjection:    1,
				classify.KindQuestion:     0,
				classify.KindBuyingSignal: 0,
			},
			ObjectionsBySubtype: map[string]int{"PRICE": 1},
			QuestionsBySubtype:  map[string]int{},
			SignalsBySubtype:    map[string]int{},
			TotalUtterances:     5,
			TotalDetections:     1,
			KeyMoments: []analytics.KeyMoment{{
				DetectionID: "01DET",
				Kind:        classify.KindObjection,
				Subtype:     "PRICE",
				Speaker:     transcript.SpeakerClient,
				Confidence:  0.727,
				TimestampMs: ended.UnixMilli() - 1000,
				Quote:       "That's too expensive for our budget.",
			}},
		},
	}
}

func mustSave(t *testing.T, database *sql.DB, sums ...session.Summary) {
	t.Helper()
	for _, s := range sums {
		if _, err := Save(context.Background(), database, s); err != nil {
			t.Fatalf("Save(%s) failed: %v", s.SessionID, err)
		}
	}
}

func TestValidateID(t *testing.T) {
	id, err := ValidateID("  01ABC  ")
	if err != nil || id != "01ABC" {
		t.Errorf("ValidateID = %q, %v; want 01ABC, nil", id, err)
	}
	if _, err := ValidateID("   "); !errors.Is(err, errors.ErrInvalidRequest) {
		t.Errorf("ValidateID(blank) = %v, want ErrInvalidRequest", err)
	}
}

func TestRecordRoundTrip(t *testing.T) {
	sum := newTestSummary("01RT", "zoom", 0)

	rec, err := toRecord(sum, 1234)
	if err != nil {
		t.Fatalf("toRecord failed: %v", err)
	}
	if rec.StartedAt != sum.StartedAt.UnixMilli() || rec.EndedAt != sum.EndedAt.UnixMilli() {
		t.Errorf("record times = %d/%d", rec.StartedAt, rec.EndedAt)
	}
	if rec.TotalUtterances != 5 || rec.SentimentAverage != -0.2 {
		t.Errorf("record totals = %d/%v", rec.TotalUtterances, rec.SentimentAverage)
	}

	stored, err := fromRecord(rec)
	if err != nil {
		t.Fatalf("fromRecord failed: %v", err)
	}
	if stored.CreatedAt != 1234 {
		t.Errorf("CreatedAt = %d, want 1234", stored.CreatedAt)
	}
	if !stored.EndedAt.Equal(sum.EndedAt) {
		t.Errorf("EndedAt = %v, want %v", stored.EndedAt, sum.EndedAt)
	}
	if len(stored.KeyMoments) != 1 || stored.KeyMoments[0].Quote != sum.KeyMoments[0].Quote {
		t.Errorf("KeyMoments = %+v", stored.KeyMoments)
	}
	if stored.DetectionCounts[classify.KindObjection] != 1 {
		t.Errorf("DetectionCounts = %v", stored.DetectionCounts)
	}

	// Stored JSON keeps the flat summary shape
	var flat map[string]any
	if err := json.Unmarshal([]byte(rec.SummaryJSON), &flat); err != nil {
		t.Fatalf("summary json: %v", err)
	}
	for _, key := range []string{"session_id", "platform", "sentiment_average", "talk_ratio_percent", "key_moments"} {
		if _, ok := flat[key]; !ok {
			t.Errorf("summary json missing %q", key)
		}
	}
}
