package transcript

import (
	"encoding/json"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/hpungsan/parley/internal/errors"
)

func boolPtr(b bool) *bool          { return &b }
func int64Ptr(n int64) *int64       { return &n }
func float64Ptr(f float64) *float64 { return &f }

func fixedClock(ms int64) func() time.Time {
	return func() time.Time { return time.UnixMilli(ms) }
}

func TestCleanText(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"preserves case", "Hello World", "Hello World"},
		{"trim whitespace", "  hello  ", "hello"},
		{"collapse internal whitespace", "too    expensive", "too expensive"},
		{"tabs and newlines", "next\t\n step", "next step"},
		{"only whitespace", "   \t\n ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CleanText(tt.input); got != tt.want {
				t.Errorf("CleanText(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestCountChars(t *testing.T) {
	if got := CountChars("héllo"); got != 5 {
		t.Errorf("CountChars = %d, want 5", got)
	}
}

func TestNormalize_Defaults(t *testing.T) {
	n := NewNormalizer(nil, fixedClock(1700000000000))

	u, err := n.Normalize(RawEvent{Text: "  What does onboarding look like?  "})
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}

	if u.Text != "What does onboarding look like?" {
		t.Errorf("Text = %q", u.Text)
	}
	if u.Speaker != SpeakerUnknown {
		t.Errorf("Speaker = %q, want UNKNOWN", u.Speaker)
	}
	if u.IsFinal {
		t.Error("IsFinal = true, want false when omitted")
	}
	if u.TimestampMs != 1700000000000 {
		t.Errorf("TimestampMs = %d, want clock time", u.TimestampMs)
	}
	if u.SourceConfidence != 1.0 {
		t.Errorf("SourceConfidence = %v, want 1.0", u.SourceConfidence)
	}
	if len(u.ID) != 26 {
		t.Errorf("ID length = %d, want 26 (ULID)", len(u.ID))
	}
}

func TestNormalize_ExplicitFields(t *testing.T) {
	n := NewNormalizer(SpeakerMap{"0": SpeakerSalesperson, "1": SpeakerClient}, fixedClock(0))

	u, err := n.Normalize(RawEvent{
		Text:       "Sounds good",
		Speaker:    "1",
		IsFinal:    boolPtr(true),
		Timestamp:  int64Ptr(4200),
		Confidence: float64Ptr(0.82),
	})
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}

	if u.Speaker != SpeakerClient {
		t.Errorf("Speaker = %q, want CLIENT", u.Speaker)
	}
	if !u.IsFinal {
		t.Error("IsFinal = false, want true")
	}
	if u.TimestampMs != 4200 {
		t.Errorf("TimestampMs = %d, want 4200", u.TimestampMs)
	}
	if u.SourceConfidence != 0.82 {
		t.Errorf("SourceConfidence = %v, want 0.82", u.SourceConfidence)
	}
}

func TestNormalize_ClampsConfidence(t *testing.T) {
	n := NewNormalizer(nil, fixedClock(0))

	high, err := n.Normalize(RawEvent{Text: "ok", Confidence: float64Ptr(1.7)})
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	if high.SourceConfidence != 1 {
		t.Errorf("SourceConfidence = %v, want 1", high.SourceConfidence)
	}

	low, err := n.Normalize(RawEvent{Text: "ok", Confidence: float64Ptr(-0.3)})
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	if low.SourceConfidence != 0 {
		t.Errorf("SourceConfidence = %v, want 0", low.SourceConfidence)
	}
}

func TestNormalize_Invalid(t *testing.T) {
	n := NewNormalizer(nil, fixedClock(0))

	tests := []struct {
		name string
		raw  RawEvent
	}{
		{"empty text", RawEvent{Text: ""}},
		{"whitespace only", RawEvent{Text: " \t\n "}},
		{"negative timestamp", RawEvent{Text: "hi", Timestamp: int64Ptr(-1)}},
		{"nan confidence", RawEvent{Text: "hi", Confidence: float64Ptr(math.NaN())}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := n.Normalize(tt.raw)
			if !errors.Is(err, errors.ErrInvalidUtterance) {
				t.Errorf("Normalize() error = %v, want INVALID_UTTERANCE", err)
			}
		})
	}
}

func TestNormalize_UniqueIDs(t *testing.T) {
	n := NewNormalizer(nil, nil)
	seen := make(map[string]bool)
	for range 50 {
		u, err := n.Normalize(RawEvent{Text: "hello"})
		if err != nil {
			t.Fatalf("Normalize() error = %v", err)
		}
		if seen[u.ID] {
			t.Fatalf("duplicate ID %s", u.ID)
		}
		seen[u.ID] = true
	}
}

func TestNewID_StrictlyIncreasing(t *testing.T) {
	prev := ""
	for range 1000 {
		id, err := NewID()
		if err != nil {
			t.Fatalf("NewID() error = %v", err)
		}
		if id <= prev {
			t.Fatalf("NewID() = %s, not after %s", id, prev)
		}
		prev = id
	}
}

func TestNewID_Concurrent(t *testing.T) {
	const workers, perWorker = 8, 200
	var (
		mu   sync.Mutex
		seen = make(map[string]bool, workers*perWorker)
		wg   sync.WaitGroup
	)
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range perWorker {
				id, err := NewID()
				if err != nil {
					t.Errorf("NewID() error = %v", err)
					return
				}
				mu.Lock()
				seen[id] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	if len(seen) != workers*perWorker {
		t.Fatalf("got %d unique IDs, want %d", len(seen), workers*perWorker)
	}
}

func TestSpeakerMap_Resolve(t *testing.T) {
	m := NewSpeakerMap(map[string]string{
		"0":      "salesperson",
		" Dana ": "customer",
		"bot":    "narrator",
		"client": "salesperson",
	})

	tests := []struct {
		label string
		want  Speaker
	}{
		{"0", SpeakerSalesperson},
		{"dana", SpeakerClient},
		{"DANA", SpeakerClient},
		{"bot", SpeakerUnknown},
		{"client", SpeakerSalesperson}, // explicit mapping wins over canonical name
		{"prospect", SpeakerClient},
		{"7", SpeakerUnknown},
		{"", SpeakerUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			if got := m.Resolve(tt.label); got != tt.want {
				t.Errorf("Resolve(%q) = %q, want %q", tt.label, got, tt.want)
			}
		})
	}
}

func TestSpeakerMap_NilResolvesCanonical(t *testing.T) {
	var m SpeakerMap
	if got := m.Resolve("Client"); got != SpeakerClient {
		t.Errorf("Resolve(Client) = %q, want CLIENT", got)
	}
}

func TestRawEvent_DecodeSpeakerForms(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  SpeakerLabel
	}{
		{"string", `{"text":"hi","speaker":"client"}`, "client"},
		{"number", `{"text":"hi","speaker":1}`, "1"},
		{"null", `{"text":"hi","speaker":null}`, ""},
		{"missing", `{"text":"hi"}`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var raw RawEvent
			if err := json.Unmarshal([]byte(tt.input), &raw); err != nil {
				t.Fatalf("Unmarshal() error = %v", err)
			}
			if raw.Speaker != tt.want {
				t.Errorf("Speaker = %q, want %q", raw.Speaker, tt.want)
			}
		})
	}
}

func TestSpeaker_Label(t *testing.T) {
	if SpeakerSalesperson.Label() != "Salesperson" || SpeakerClient.Label() != "Client" || SpeakerUnknown.Label() != "Unknown" {
		t.Error("unexpected speaker labels")
	}
}
