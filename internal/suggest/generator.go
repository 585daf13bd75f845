package suggest

import (
	"context"
	"strings"
	"time"

	"github.com/hpungsan/parley/internal/analytics"
	"github.com/hpungsan/parley/internal/classify"
	"github.com/hpungsan/parley/internal/transcript"
)

// Request is what the session hands to the suggestion collaborator.
type Request struct {
	ID        string              `json:"id"`
	SessionID string              `json:"session_id"`
	Platform  string              `json:"platform"`
	Reason    Reason              `json:"reason"`
	Detection *classify.Detection `json:"detection,omitempty"`
	// Context is the recent conversation as speaker-prefixed lines.
	Context   string            `json:"context"`
	Summary   analytics.Summary `json:"summary"`
	CreatedAt time.Time         `json:"created_at"`
}

// Suggestion is a coaching hint produced for a Request.
type Suggestion struct {
	RequestID string    `json:"request_id"`
	Text      string    `json:"text"`
	Model     string    `json:"model,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Generator produces suggestions. Implementations own their own timeouts;
// the session neither retries nor cancels a request once dispatched.
type Generator interface {
	Generate(ctx context.Context, req Request) (Suggestion, error)
}

// GeneratorFunc adapts a function to Generator.
type GeneratorFunc func(ctx context.Context, req Request) (Suggestion, error)

func (f GeneratorFunc) Generate(ctx context.Context, req Request) (Suggestion, error) {
	return f(ctx, req)
}

// FormatContext renders utterances as "Speaker: text" lines, oldest first.
func FormatContext(utterances []transcript.Utterance) string {
	var b strings.Builder
	for i, u := range utterances {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(u.Speaker.Label())
		b.WriteString(": ")
		b.WriteString(u.Text)
	}
	return b.String()
}
