package transcript

import (
	"crypto/rand"
	"math"
	"regexp"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/oklog/ulid/v2"

	"github.com/hpungsan/parley/internal/errors"
)

// whitespaceRegex matches one or more whitespace characters
var whitespaceRegex = regexp.MustCompile(`\s+`)

// CleanText trims text and collapses internal whitespace to single spaces.
// Case is preserved; classifiers lowercase on their own.
func CleanText(s string) string {
	return whitespaceRegex.ReplaceAllString(strings.TrimSpace(s), " ")
}

// CountChars returns the character count as runes (not bytes).
func CountChars(text string) int {
	return utf8.RuneCountInString(text)
}

// entropy is shared so IDs minted within the same millisecond still sort in
// creation order. ulid.MonotonicEntropy is not safe for concurrent use.
var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.Reader, 0)
)

// NewID generates a new ULID string. IDs from one process are strictly
// increasing.
func NewID() (string, error) {
	entropyMu.Lock()
	id, err := ulid.New(ulid.Timestamp(time.Now()), entropy)
	entropyMu.Unlock()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// Normalizer turns raw speech events into Utterances. It holds only
// read-only configuration and is safe for concurrent use.
type Normalizer struct {
	speakers SpeakerMap
	now      func() time.Time
}

// NewNormalizer creates a Normalizer. A nil clock uses time.Now.
func NewNormalizer(speakers SpeakerMap, clock func() time.Time) *Normalizer {
	if clock == nil {
		clock = time.Now
	}
	return &Normalizer{speakers: speakers, now: clock}
}

// Normalize validates and canonicalizes a raw event.
// Defaults: speaker UNKNOWN, is_final false, timestamp now, confidence 1.0.
// Returns INVALID_UTTERANCE for blank text, negative timestamps, or NaN confidence.
func (n *Normalizer) Normalize(raw RawEvent) (Utterance, error) {
	text := CleanText(raw.Text)
	if text == "" {
		return Utterance{}, errors.NewInvalidUtterance("text is empty")
	}

	ts := n.now().UnixMilli()
	if raw.Timestamp != nil {
		ts = *raw.Timestamp
	}
	if ts < 0 {
		return Utterance{}, errors.NewInvalidUtterance("timestamp is negative")
	}

	confidence := 1.0
	if raw.Confidence != nil {
		confidence = *raw.Confidence
	}
	if math.IsNaN(confidence) {
		return Utterance{}, errors.NewInvalidUtterance("confidence is not a number")
	}
	confidence = math.Max(0, math.Min(1, confidence))

	isFinal := raw.IsFinal != nil && *raw.IsFinal

	id, err := NewID()
	if err != nil {
		return Utterance{}, errors.NewInternal(err)
	}

	return Utterance{
		ID:               id,
		Speaker:          n.speakers.Resolve(string(raw.Speaker)),
		Text:             text,
		TimestampMs:      ts,
		IsFinal:          isFinal,
		SourceConfidence: confidence,
	}, nil
}
