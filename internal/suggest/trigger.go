// Package suggest decides when a session should ask the external AI
// collaborator for a coaching suggestion, and defines that collaborator.
package suggest

import (
	"time"

	"github.com/hpungsan/parley/internal/analytics"
	"github.com/hpungsan/parley/internal/classify"
)

// Reason says why a suggestion was requested.
type Reason string

const (
	ReasonObjection         Reason = "objection"
	ReasonBuyingSignal      Reason = "buying_signal"
	ReasonStrongQuestion    Reason = "strong_question"
	ReasonNegativeSentiment Reason = "negative_sentiment"
)

// Defaults for Policy.
const (
	DefaultMinInterval                 = 10 * time.Second
	DefaultObjectionThreshold          = 0.6
	DefaultBuyingSignalThreshold       = 0.5
	DefaultNegativeSentimentThreshold  = -0.5
	DefaultNegativeSentimentMinSamples = 5
)

// Policy configures which events qualify and how often a suggestion may be sent.
type Policy struct {
	MinInterval                 time.Duration
	ObjectionThreshold          float64
	BuyingSignalThreshold       float64
	NegativeSentimentThreshold  float64
	NegativeSentimentMinSamples int
}

// DefaultPolicy returns the default trigger policy.
func DefaultPolicy() Policy {
	return Policy{
		MinInterval:                 DefaultMinInterval,
		ObjectionThreshold:          DefaultObjectionThreshold,
		BuyingSignalThreshold:       DefaultBuyingSignalThreshold,
		NegativeSentimentThreshold:  DefaultNegativeSentimentThreshold,
		NegativeSentimentMinSamples: DefaultNegativeSentimentMinSamples,
	}
}

// Candidate is a qualifying event waiting to be dispatched.
type Candidate struct {
	Reason    Reason              `json:"reason"`
	Detection *classify.Detection `json:"detection,omitempty"`
}

// Input is what the session observed while processing one utterance.
type Input struct {
	Detections []classify.Detection
	Summary    analytics.Summary

	// SentimentRecorded is true when the utterance added a sentiment sample.
	SentimentRecorded bool
}

// Decision is the outcome of Evaluate or Poll.
type Decision int

const (
	// Skip: nothing qualified and nothing is pending.
	Skip Decision = iota
	// Dispatch: send the returned candidate now.
	Dispatch
	// Defer: a candidate is held until the cooldown elapses.
	Defer
)

func (d Decision) String() string {
	switch d {
	case Dispatch:
		return "dispatch"
	case Defer:
		return "defer"
	default:
		return "skip"
	}
}

// Trigger enforces a per-session cooldown between suggestion dispatches.
// Cooldown gates frequency only; it never changes which events qualify.
// A qualifying event that arrives during cooldown is held as pending, newest
// wins, and is released by Poll or the next Evaluate once the cooldown elapses.
//
// Trigger is not safe for concurrent use; the owning session serializes calls.
type Trigger struct {
	policy  Policy
	last    time.Time
	fired   bool
	pending *Candidate
}

// NewTrigger creates a trigger. Zero policy fields take their defaults.
func NewTrigger(p Policy) *Trigger {
	def := DefaultPolicy()
	if p.MinInterval <= 0 {
		p.MinInterval = def.MinInterval
	}
	if p.ObjectionThreshold <= 0 {
		p.ObjectionThreshold = def.ObjectionThreshold
	}
	if p.BuyingSignalThreshold <= 0 {
		p.BuyingSignalThreshold = def.BuyingSignalThreshold
	}
	if p.NegativeSentimentThreshold == 0 {
		p.NegativeSentimentThreshold = def.NegativeSentimentThreshold
	}
	if p.NegativeSentimentMinSamples <= 0 {
		p.NegativeSentimentMinSamples = def.NegativeSentimentMinSamples
	}
	return &Trigger{policy: p}
}

// Policy returns the effective policy.
func (t *Trigger) Policy() Policy {
	return t.policy
}

// Qualify picks the highest-priority qualifying event from in: a confident
// objection, then a confident buying signal, then a STRONG client question,
// then a sustained negative sentiment average.
func (t *Trigger) Qualify(in Input) (Candidate, bool) {
	var signal, question *classify.Detection
	for i := range in.Detections {
		d := &in.Detections[i]
		switch d.Kind {
		case classify.KindObjection:
			if d.Confidence >= t.policy.ObjectionThreshold {
				return Candidate{Reason: ReasonObjection, Detection: clone(d)}, true
			}
		case classify.KindBuyingSignal:
			if signal == nil && d.Confidence >= t.policy.BuyingSignalThreshold {
				signal = d
			}
		case classify.KindQuestion:
			if question == nil && d.Strength == classify.StrengthStrong {
				question = d
			}
		}
	}
	switch {
	case signal != nil:
		return Candidate{Reason: ReasonBuyingSignal, Detection: clone(signal)}, true
	case question != nil:
		return Candidate{Reason: ReasonStrongQuestion, Detection: clone(question)}, true
	case in.SentimentRecorded &&
		in.Summary.SentimentSamples >= t.policy.NegativeSentimentMinSamples &&
		in.Summary.SentimentAverage <= t.policy.NegativeSentimentThreshold:
		return Candidate{Reason: ReasonNegativeSentiment}, true
	}
	return Candidate{}, false
}

func clone(d *classify.Detection) *classify.Detection {
	c := *d
	return &c
}

// Evaluate feeds one processed utterance into the trigger at time now.
// A qualifying event is dispatched when the cooldown has elapsed and held as
// pending otherwise. When nothing qualifies, a pending candidate whose
// cooldown has elapsed is released.
func (t *Trigger) Evaluate(now time.Time, in Input) (Candidate, Decision) {
	c, ok := t.Qualify(in)
	if !ok {
		return t.Poll(now)
	}
	if t.ready(now) {
		t.fire(now)
		return c, Dispatch
	}
	t.pending = &c
	return c, Defer
}

// Poll releases the pending candidate if the cooldown has elapsed.
func (t *Trigger) Poll(now time.Time) (Candidate, Decision) {
	if t.pending == nil {
		return Candidate{}, Skip
	}
	if !t.ready(now) {
		return *t.pending, Defer
	}
	c := *t.pending
	t.fire(now)
	return c, Dispatch
}

// ReadyAt returns when the next dispatch becomes allowed. The zero time means
// no dispatch has happened yet.
func (t *Trigger) ReadyAt() time.Time {
	if !t.fired {
		return time.Time{}
	}
	return t.last.Add(t.policy.MinInterval)
}

// Discard drops any pending candidate.
func (t *Trigger) Discard() {
	t.pending = nil
}

func (t *Trigger) ready(now time.Time) bool {
	return !t.fired || now.Sub(t.last) >= t.policy.MinInterval
}

func (t *Trigger) fire(now time.Time) {
	t.last = now
	t.fired = true
	t.pending = nil
}
