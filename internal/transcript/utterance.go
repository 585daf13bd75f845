package transcript

// Utterance is one normalized speech segment attributed to a speaker.
// Values are passed by copy and never mutated after creation.
type Utterance struct {
	// ID is a ULID assigned at normalization time
	ID string `json:"id"`

	// Speaker is the resolved speaker role
	Speaker Speaker `json:"speaker"`

	// Text is trimmed, whitespace-collapsed, and never empty
	Text string `json:"text"`

	// TimestampMs is milliseconds since the Unix epoch (monotonic per speaker stream only)
	TimestampMs int64 `json:"timestamp_ms"`

	// IsFinal marks a finalized segment; interim segments are display-only
	IsFinal bool `json:"is_final"`

	// SourceConfidence is the recognizer's confidence in [0,1]
	SourceConfidence float64 `json:"source_confidence"`
}

// RawEvent is a speech-recognition event as pushed by the speech-to-text
// collaborator. Pointer fields are optional and defaulted by the Normalizer.
type RawEvent struct {
	Text       string       `json:"text"`
	Speaker    SpeakerLabel `json:"speaker,omitempty"`
	IsFinal    *bool        `json:"is_final,omitempty"`
	Timestamp  *int64       `json:"timestamp,omitempty"`
	Confidence *float64     `json:"confidence,omitempty"`
}
