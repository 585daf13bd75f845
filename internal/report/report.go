// Package report renders session summaries for people: Markdown for terminals
// and notes, HTML (via goldmark) for browsers and email.
package report

import (
	"bytes"
	"fmt"
	"html"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/hpungsan/parley/internal/analytics"
	"github.com/hpungsan/parley/internal/classify"
	"github.com/hpungsan/parley/internal/errors"
	"github.com/hpungsan/parley/internal/session"
)

// Format selects the report output.
type Format string

const (
	FormatMarkdown Format = "markdown"
	FormatHTML     Format = "html"
)

// ParseFormat accepts "markdown"/"md" and "html"; empty means markdown.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "markdown", "md":
		return FormatMarkdown, nil
	case "html":
		return FormatHTML, nil
	default:
		return "", errors.NewInvalidRequest(fmt.Sprintf("unknown report format %q (want markdown or html)", s))
	}
}

// Render renders sum in the given format.
func Render(sum session.Summary, format Format) (string, error) {
	switch format {
	case FormatMarkdown, "":
		return Markdown(sum), nil
	case FormatHTML:
		return HTML(sum)
	default:
		return "", errors.NewInvalidRequest(fmt.Sprintf("unknown report format %q", format))
	}
}

var renderer = goldmark.New(goldmark.WithExtensions(extension.GFM))

// HTML renders the Markdown report as a standalone HTML page. Transcript text
// is escaped; raw HTML in quotes is never passed through.
func HTML(sum session.Summary) (string, error) {
	var body bytes.Buffer
	if err := renderer.Convert([]byte(Markdown(sum)), &body); err != nil {
		return "", errors.NewInternal(err)
	}

	var b strings.Builder
	b.WriteString("<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n")
	fmt.Fprintf(&b, "<title>%s</title>\n", html.EscapeString(title(sum)))
	b.WriteString("</head>\n<body>\n")
	b.Write(body.Bytes())
	b.WriteString("</body>\n</html>\n")
	return b.String(), nil
}

// Markdown renders sum as a Markdown report.
func Markdown(sum session.Summary) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s\n\n", escape(title(sum)))
	fmt.Fprintf(&b, "- Session: `%s`\n", sum.SessionID)
	fmt.Fprintf(&b, "- Started: %s\n", formatTime(sum.StartedAt))
	fmt.Fprintf(&b, "- Ended: %s\n", formatTime(sum.EndedAt))
	fmt.Fprintf(&b, "- Duration: %s\n", formatDuration(sum.DurationMs))
	fmt.Fprintf(&b, "- Messages: %d (%d final utterances)\n\n", sum.TotalMessages, sum.TotalUtterances)

	writeTalk(&b, sum.TalkRatio, sum.TalkRatioPercent)
	writeSentiment(&b, sum.Summary)
	writeDetections(&b, sum.Summary)
	writeKeyMoments(&b, sum.KeyMoments)

	return b.String()
}

func title(sum session.Summary) string {
	platform := sum.Platform
	if platform == "" {
		platform = session.DefaultPlatform
	}
	return "Call report: " + platform
}

func writeTalk(b *strings.Builder, ratio analytics.TalkRatio, pct analytics.TalkPercent) {
	b.WriteString("## Talk ratio\n\n")
	if ratio.Total() == 0 {
		b.WriteString("No speech recorded.\n\n")
		return
	}
	b.WriteString("| Speaker | Share | Characters |\n|---|---:|---:|\n")
	fmt.Fprintf(b, "| Salesperson | %d%% | %d |\n", pct.Salesperson, ratio.Salesperson)
	fmt.Fprintf(b, "| Client | %d%% | %d |\n", pct.Client, ratio.Client)
	if ratio.Unknown > 0 {
		fmt.Fprintf(b, "| Unknown | %d%% | %d |\n", pct.Unknown, ratio.Unknown)
	}
	b.WriteString("\n")
}

func writeSentiment(b *strings.Builder, s analytics.Summary) {
	b.WriteString("## Sentiment\n\n")
	if s.SentimentSamples == 0 {
		b.WriteString("No client sentiment recorded.\n\n")
		return
	}
	fmt.Fprintf(b, "Average **%+.3f** over %d client utterances, trend %s.\n\n",
		s.SentimentAverage, s.SentimentSamples, s.SentimentTrend)
}

func writeDetections(b *strings.Builder, s analytics.Summary) {
	b.WriteString("## Detections\n\n")
	if s.TotalDetections == 0 {
		b.WriteString("No objections, questions or buying signals detected.\n\n")
		return
	}

	b.WriteString("| Kind | Count | By subtype |\n|---|---:|---|\n")
	bySubtype := map[classify.Kind]map[string]int{
		classify.KindObjection:    s.ObjectionsBySubtype,
		classify.KindQuestion:     s.QuestionsBySubtype,
		classify.KindBuyingSignal: s.SignalsBySubtype,
	}
	for _, k := range classify.Kinds {
		fmt.Fprintf(b, "| %s | %d | %s |\n", kindLabel(k), s.DetectionCounts[k], subtypes(bySubtype[k]))
	}
	b.WriteString("\n")
}

func writeKeyMoments(b *strings.Builder, moments []analytics.KeyMoment) {
	b.WriteString("## Key moments\n\n")
	if len(moments) == 0 {
		b.WriteString("None.\n")
		return
	}
	for i, m := range moments {
		fmt.Fprintf(b, "%d. **%s: %s** (%s, confidence %.2f, %s)\n",
			i+1, kindLabel(m.Kind), escape(m.Subtype), m.Speaker.Label(),
			m.Confidence, formatTime(time.UnixMilli(m.TimestampMs)))
		if m.Quote != "" {
			fmt.Fprintf(b, "   > %s\n", escape(m.Quote))
		}
	}
}

func kindLabel(k classify.Kind) string {
	switch k {
	case classify.KindObjection:
		return "Objection"
	case classify.KindQuestion:
		return "Question"
	case classify.KindBuyingSignal:
		return "Buying signal"
	default:
		return string(k)
	}
}

// subtypes formats counts as "PRICE 2, TIMING 1", sorted by count then name.
func subtypes(counts map[string]int) string {
	if len(counts) == 0 {
		return "-"
	}
	names := slices.Collect(maps.Keys(counts))
	slices.SortFunc(names, func(a, b string) int {
		if counts[a] != counts[b] {
			return counts[b] - counts[a]
		}
		return strings.Compare(a, b)
	})
	parts := make([]string, len(names))
	for i, n := range names {
		parts[i] = fmt.Sprintf("%s %d", escape(n), counts[n])
	}
	return strings.Join(parts, ", ")
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.UTC().Format("2006-01-02 15:04:05 UTC")
}

func formatDuration(ms int64) string {
	return (time.Duration(ms) * time.Millisecond).Round(time.Second).String()
}

var mdEscaper = strings.NewReplacer(
	`\`, `\\`, "`", "\\`", "*", `\*`, "_", `\_`, "[", `\[`, "]", `\]`,
	"<", `\<`, ">", `\>`, "#", `\#`, "|", `\|`, "\n", " ",
)

// escape makes transcript text inert inside Markdown inline content.
func escape(s string) string {
	return mdEscaper.Replace(s)
}
