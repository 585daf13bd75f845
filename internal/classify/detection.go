// Package classify scores single utterances against the objection, question,
// buying-signal, and sentiment lexicons. Classifiers hold only immutable
// lexicon data and are shared read-only across sessions.
package classify

import (
	"fmt"

	"github.com/hpungsan/parley/internal/errors"
	"github.com/hpungsan/parley/internal/transcript"
)

// Kind is the detection family.
type Kind string

const (
	KindObjection    Kind = "OBJECTION"
	KindQuestion     Kind = "QUESTION"
	KindBuyingSignal Kind = "BUYING_SIGNAL"
)

// Kinds lists detection kinds in reporting order.
var Kinds = []Kind{KindObjection, KindQuestion, KindBuyingSignal}

// Strength grades how strongly a question implies purchase interest.
type Strength string

const (
	StrengthNone     Strength = "NONE"
	StrengthWeak     Strength = "WEAK"
	StrengthModerate Strength = "MODERATE"
	StrengthStrong   Strength = "STRONG"
)

var strengthOrder = []Strength{StrengthNone, StrengthWeak, StrengthModerate, StrengthStrong}

// Rank returns the ordinal of s (NONE=0 … STRONG=3). Unknown values rank as NONE.
func (s Strength) Rank() int {
	for i, v := range strengthOrder {
		if v == s {
			return i
		}
	}
	return 0
}

// AtLeast reports whether s is at least as strong as other.
func (s Strength) AtLeast(other Strength) bool {
	return s.Rank() >= other.Rank()
}

func strengthFromRank(r int) Strength {
	r = max(0, min(r, len(strengthOrder)-1))
	return strengthOrder[r]
}

// Question intents distinguish who asked.
const (
	IntentDiscovery    = "discovery"     // asked by the salesperson
	IntentDueDiligence = "due_diligence" // asked by the client
	IntentUnattributed = "unattributed"
)

// Detection is a typed finding about one utterance.
type Detection struct {
	ID                string                 `json:"id"`
	Kind              Kind                   `json:"kind"`
	Subtype           string                 `json:"subtype"`
	SourceUtteranceID string                 `json:"source_utterance_id"`
	Speaker           transcript.Speaker     `json:"speaker"`
	Confidence        float64                `json:"confidence"`
	TimestampMs       int64                  `json:"timestamp_ms"`
	ContextSnippet    []transcript.Utterance `json:"context_snippet"`
	Cues              []string               `json:"cues,omitempty"`

	// Question-only attributes
	Strength Strength `json:"strength,omitempty"`
	Intent   string   `json:"intent,omitempty"`
}

// Classifier scores a single utterance, optionally using the preceding context.
// Classify returns nil when nothing matches or the text is ambiguous; it
// fills only the kind-specific fields. Run stamps identity and context.
type Classifier interface {
	Name() string
	Kind() Kind
	Eligible(speaker transcript.Speaker) bool
	Classify(u transcript.Utterance, context []transcript.Utterance) *Detection
}

// Run invokes c on u when u's speaker is eligible. A panicking classifier is
// converted to a CLASSIFIER_ERROR so the caller can continue with siblings.
// The returned detection carries a fresh ID, the source utterance fields, and
// a copy of the last snippetSize context utterances.
func Run(c Classifier, u transcript.Utterance, context []transcript.Utterance, snippetSize int) (d *Detection, err error) {
	if !c.Eligible(u.Speaker) {
		return nil, nil
	}

	defer func() {
		if r := recover(); r != nil {
			d = nil
			err = errors.NewClassifierError(c.Name(), fmt.Errorf("panic: %v", r))
		}
	}()

	d = c.Classify(u, context)
	if d == nil {
		return nil, nil
	}

	id, idErr := transcript.NewID()
	if idErr != nil {
		return nil, errors.NewClassifierError(c.Name(), idErr)
	}
	d.ID = id
	d.Kind = c.Kind()
	d.SourceUtteranceID = u.ID
	d.Speaker = u.Speaker
	d.TimestampMs = u.TimestampMs
	d.ContextSnippet = snippet(context, snippetSize)
	return d, nil
}

// snippet copies the last n utterances of context.
func snippet(context []transcript.Utterance, n int) []transcript.Utterance {
	if n <= 0 || len(context) == 0 {
		return []transcript.Utterance{}
	}
	n = min(n, len(context))
	out := make([]transcript.Utterance, n)
	copy(out, context[len(context)-n:])
	return out
}
