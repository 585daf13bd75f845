package transcript

import (
	"bytes"
	"encoding/json"
	"strings"
)

// Speaker identifies who produced an utterance.
type Speaker string

const (
	SpeakerSalesperson Speaker = "SALESPERSON"
	SpeakerClient      Speaker = "CLIENT"
	SpeakerUnknown     Speaker = "UNKNOWN"
)

// Label returns the display prefix used when formatting context lines.
func (s Speaker) Label() string {
	switch s {
	case SpeakerSalesperson:
		return "Salesperson"
	case SpeakerClient:
		return "Client"
	default:
		return "Unknown"
	}
}

// canonicalSpeakers maps accepted spellings (lowercase) to a Speaker.
var canonicalSpeakers = map[string]Speaker{
	"salesperson": SpeakerSalesperson,
	"sales":       SpeakerSalesperson,
	"rep":         SpeakerSalesperson,
	"seller":      SpeakerSalesperson,
	"client":      SpeakerClient,
	"customer":    SpeakerClient,
	"prospect":    SpeakerClient,
	"buyer":       SpeakerClient,
	"unknown":     SpeakerUnknown,
}

// ParseSpeaker resolves a canonical speaker name. ok is false for labels that
// are not one of the recognized names (e.g. diarization indices like "0").
func ParseSpeaker(label string) (Speaker, bool) {
	s, ok := canonicalSpeakers[strings.ToLower(strings.TrimSpace(label))]
	return s, ok
}

// SpeakerMap translates raw speaker labels delivered by the speech-to-text
// collaborator (diarization indices, participant names) into speakers.
// Keys are matched case-insensitively after trimming.
type SpeakerMap map[string]Speaker

// NewSpeakerMap builds a SpeakerMap from config-style string values.
// Values that are not canonical speaker names map to UNKNOWN.
func NewSpeakerMap(raw map[string]string) SpeakerMap {
	if len(raw) == 0 {
		return nil
	}
	m := make(SpeakerMap, len(raw))
	for k, v := range raw {
		s, ok := ParseSpeaker(v)
		if !ok {
			s = SpeakerUnknown
		}
		m[strings.ToLower(strings.TrimSpace(k))] = s
	}
	return m
}

// Resolve maps a raw label to a speaker. Explicit map entries win over
// canonical names so a session can remap e.g. "client" when roles are swapped.
func (m SpeakerMap) Resolve(label string) Speaker {
	key := strings.ToLower(strings.TrimSpace(label))
	if key == "" {
		return SpeakerUnknown
	}
	if s, ok := m[key]; ok {
		return s
	}
	if s, ok := canonicalSpeakers[key]; ok {
		return s
	}
	return SpeakerUnknown
}

// SpeakerLabel is a raw speaker label. Speech-to-text providers send either
// strings ("client") or diarization indices (0, 1), so both decode to text.
type SpeakerLabel string

// UnmarshalJSON accepts a JSON string, number, or null.
func (l *SpeakerLabel) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*l = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*l = SpeakerLabel(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*l = SpeakerLabel(n.String())
	return nil
}
