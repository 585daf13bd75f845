package classify

import "github.com/hpungsan/parley/internal/transcript"

// objectionMinScore filters lone generic cues such as "price" or "cost",
// which on their own are more often neutral questions than resistance.
const objectionMinScore = 1.0

// ObjectionDetector finds client resistance (PRICE, TIMING, COMPETITOR,
// AUTHORITY, NEED, TRUST).
type ObjectionDetector struct {
	taxonomy compiledTaxonomy
}

// NewObjectionDetector compiles the objection taxonomy of lex.
func NewObjectionDetector(lex *Lexicon) *ObjectionDetector {
	return &ObjectionDetector{taxonomy: compileTaxonomy(lex.Objection, objectionMinScore)}
}

func (o *ObjectionDetector) Name() string { return "objection" }
func (o *ObjectionDetector) Kind() Kind   { return KindObjection }

// Eligible restricts objections to client speech.
func (o *ObjectionDetector) Eligible(s transcript.Speaker) bool {
	return s == transcript.SpeakerClient
}

// Classify returns the highest-scoring objection category, or nil.
func (o *ObjectionDetector) Classify(u transcript.Utterance, _ []transcript.Utterance) *Detection {
	m, ok := o.taxonomy.best(tokenize(u.Text))
	if !ok {
		return nil
	}
	return &Detection{
		Subtype:    m.name,
		Confidence: confidence(m.score),
		Cues:       m.cues,
	}
}
