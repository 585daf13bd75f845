package report

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hpungsan/parley/internal/analytics"
	"github.com/hpungsan/parley/internal/classify"
	"github.com/hpungsan/parley/internal/errors"
	"github.com/hpungsan/parley/internal/session"
	"github.com/hpungsan/parley/internal/transcript"
)

func testSummary() session.Summary {
	start := time.Date(2026, 3, 2, 15, 0, 0, 0, time.UTC)
	ratio := analytics.TalkRatio{Salesperson: 300, Client: 200}
	return session.Summary{
		SessionID:     "01JNRPTSUMMARY0000000000AA",
		Platform:      "zoom",
		StartedAt:     start,
		EndedAt:       start.Add(12*time.Minute + 30*time.Second),
		DurationMs:    (12*time.Minute + 30*time.Second).Milliseconds(),
		TotalMessages: 14,
		Summary: analytics.Summary{
			SentimentAverage: -0.25,
			SentimentTrend:   analytics.TrendDeclining,
			SentimentSamples: 6,
			TalkRatio:        ratio,
			TalkRatioPercent: ratio.Percent(),
			DetectionCounts: map[classify.Kind]int{
				classify.KindObjection:    3,
				classify.KindQuestion:     1,
				classify.KindBuyingSignal: 0,
			},
			ObjectionsBySubtype: map[string]int{"PRICE": 2, "TIMING": 1},
			QuestionsBySubtype:  map[string]int{"PRICING": 1},
			SignalsBySubtype:    map[string]int{},
			TotalUtterances:     10,
			TotalDetections:     4,
			KeyMoments: []analytics.KeyMoment{{
				DetectionID: "d1",
				Kind:        classify.KindObjection,
				Subtype:     "PRICE",
				Speaker:     transcript.SpeakerClient,
				Confidence:  0.8,
				TimestampMs: start.Add(5 * time.Minute).UnixMilli(),
				Quote:       "That's too expensive for our budget.",
			}},
		},
	}
}

func TestMarkdown(t *testing.T) {
	out := Markdown(testSummary())

	for _, want := range []string{
		"# Call report: zoom",
		"- Session: `01JNRPTSUMMARY0000000000AA`",
		"- Started: 2026-03-02 15:00:00 UTC",
		"- Duration: 12m30s",
		"- Messages: 14 (10 final utterances)",
		"| Salesperson | 60% | 300 |",
		"| Client | 40% | 200 |",
		"Average **-0.250** over 6 client utterances, trend declining.",
		"| Objection | 3 | PRICE 2, TIMING 1 |",
		"| Question | 1 | PRICING 1 |",
		"| Buying signal | 0 | - |",
		"1. **Objection: PRICE** (Client, confidence 0.80, 2026-03-02 15:05:00 UTC)",
		"   > That's too expensive for our budget.",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Markdown missing %q\n---\n%s", want, out)
		}
	}
	if strings.Contains(out, "| Unknown |") {
		t.Error("Unknown row should be omitted when no unknown speech")
	}
}

func TestMarkdown_Empty(t *testing.T) {
	out := Markdown(session.Summary{SessionID: "x"})

	require.Contains(t, out, "# Call report: unknown")
	require.Contains(t, out, "- Started: -")
	require.Contains(t, out, "No speech recorded.")
	require.Contains(t, out, "No client sentiment recorded.")
	require.Contains(t, out, "No objections, questions or buying signals detected.")
	require.Contains(t, out, "## Key moments\n\nNone.")
}

func TestMarkdown_EscapesTranscriptText(t *testing.T) {
	sum := testSummary()
	sum.KeyMoments[0].Quote = "*free* [link](http://x) <b>|</b>\nnext"

	out := Markdown(sum)

	require.Contains(t, out, `\*free\* \[link\](http://x) \<b\>\|\</b\> next`)
}

func TestHTML(t *testing.T) {
	sum := testSummary()
	sum.Platform = "teams & co"
	sum.KeyMoments[0].Quote = `<script>alert("x")</script>`

	out, err := HTML(sum)
	require.NoError(t, err)

	require.True(t, strings.HasPrefix(out, "<!DOCTYPE html>"))
	require.Contains(t, out, "<title>Call report: teams &amp; co</title>")
	require.Contains(t, out, "<h2>Talk ratio</h2>")
	require.Contains(t, out, "<table>")
	require.Contains(t, out, "<blockquote>")
	require.NotContains(t, out, "<script>")
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"", FormatMarkdown, false},
		{"markdown", FormatMarkdown, false},
		{"MD", FormatMarkdown, false},
		{" html ", FormatHTML, false},
		{"pdf", "", true},
	}

	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if tt.wantErr {
			if !errors.Is(err, errors.ErrInvalidRequest) {
				t.Errorf("ParseFormat(%q) error = %v, want INVALID_REQUEST", tt.in, err)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("ParseFormat(%q) = %q, %v; want %q", tt.in, got, err, tt.want)
		}
	}
}

func TestRender(t *testing.T) {
	sum := testSummary()

	md, err := Render(sum, FormatMarkdown)
	require.NoError(t, err)
	require.Equal(t, Markdown(sum), md)

	html, err := Render(sum, FormatHTML)
	require.NoError(t, err)
	require.Contains(t, html, "<h1>Call report: zoom</h1>")

	_, err = Render(sum, Format("pdf"))
	require.Error(t, err)
}
