package session

import (
	"sync"
	"time"

	"github.com/hpungsan/parley/internal/analytics"
	"github.com/hpungsan/parley/internal/classify"
	"github.com/hpungsan/parley/internal/suggest"
	"github.com/hpungsan/parley/internal/transcript"
)

// EventType discriminates the outbound events.
type EventType string

const (
	EventDetectionOccurred EventType = "detection_occurred"
	EventSentimentUpdated  EventType = "sentiment_updated"
	EventSuggestionReady   EventType = "suggestion_ready"
	EventSuggestionFailed  EventType = "suggestion_failed"
	EventCaptionUpdated    EventType = "caption_updated"
)

// Event is one outbound notification for the live UI. The concrete types are
// DetectionOccurred, SentimentUpdated, SuggestionReady, SuggestionFailed and
// CaptionUpdated.
type Event interface {
	Header() EventHeader
	isEvent()
}

// EventHeader is embedded in every event.
type EventHeader struct {
	Type      EventType `json:"type"`
	SessionID string    `json:"session_id"`
	Timestamp string    `json:"timestamp"`
}

func (h EventHeader) Header() EventHeader { return h }
func (EventHeader) isEvent()              {}

func newHeader(t EventType, sessionID string, now time.Time) EventHeader {
	return EventHeader{
		Type:      t,
		SessionID: sessionID,
		Timestamp: now.UTC().Format(time.RFC3339Nano),
	}
}

type DetectionOccurred struct {
	EventHeader
	Detection classify.Detection `json:"detection"`
}

type SentimentUpdated struct {
	EventHeader
	Sample  analytics.SentimentSample `json:"sample"`
	Average float64                   `json:"average"`
	Trend   analytics.Trend           `json:"trend"`
}

type SuggestionReady struct {
	EventHeader
	Reason     suggest.Reason     `json:"reason"`
	Suggestion suggest.Suggestion `json:"suggestion"`
}

type SuggestionFailed struct {
	EventHeader
	RequestID string         `json:"request_id"`
	Reason    suggest.Reason `json:"reason"`
	Code      string         `json:"code"`
	Error     string         `json:"error"`
}

// CaptionUpdated carries a non-final utterance for live display only.
type CaptionUpdated struct {
	EventHeader
	Utterance transcript.Utterance `json:"utterance"`
}

// Sink receives events. Emit must not block and must not call back into the
// session. Suggestion events are emitted from other goroutines, so sinks must
// be safe for concurrent use.
type Sink interface {
	Emit(Event)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(Event)

func (f SinkFunc) Emit(e Event) { f(e) }

type discardSink struct{}

func (discardSink) Emit(Event) {}

// MultiSink fans each event out to every non-nil sink in order.
func MultiSink(sinks ...Sink) Sink {
	out := make([]Sink, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			out = append(out, s)
		}
	}
	return SinkFunc(func(e Event) {
		for _, s := range out {
			s.Emit(e)
		}
	})
}

// DefaultMailboxSize is the number of undrained events a Mailbox keeps.
const DefaultMailboxSize = 256

// Mailbox is a bounded Sink that buffers events until drained. When full the
// oldest event is dropped; delivery is at most once.
type Mailbox struct {
	mu      sync.Mutex
	events  []Event
	limit   int
	dropped int
}

// NewMailbox creates a mailbox holding at most limit events.
func NewMailbox(limit int) *Mailbox {
	if limit <= 0 {
		limit = DefaultMailboxSize
	}
	return &Mailbox{limit: limit}
}

func (m *Mailbox) Emit(e Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.events) >= m.limit {
		m.events = m.events[1:]
		m.dropped++
	}
	m.events = append(m.events, e)
}

// Drain removes and returns up to maxEvents events, oldest first.
// maxEvents <= 0 drains all.
func (m *Mailbox) Drain(maxEvents int) []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := len(m.events)
	if maxEvents > 0 && maxEvents < n {
		n = maxEvents
	}
	out := make([]Event, n)
	copy(out, m.events[:n])
	m.events = m.events[n:]
	return out
}

// Len returns the number of undrained events.
func (m *Mailbox) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.events)
}

// Dropped returns how many events were discarded because the mailbox was full.
func (m *Mailbox) Dropped() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.dropped
}
