package classify

import "github.com/hpungsan/parley/internal/transcript"

const buyingSignalMinScore = 1.5

// BuyingSignalDetector finds explicit commitment or interest language in
// client speech. It may fire alongside a STRONG question on the same utterance.
type BuyingSignalDetector struct {
	taxonomy compiledTaxonomy
}

// NewBuyingSignalDetector compiles the buying-signal taxonomy of lex.
func NewBuyingSignalDetector(lex *Lexicon) *BuyingSignalDetector {
	return &BuyingSignalDetector{taxonomy: compileTaxonomy(lex.BuyingSignal, buyingSignalMinScore)}
}

func (b *BuyingSignalDetector) Name() string { return "buying_signal" }
func (b *BuyingSignalDetector) Kind() Kind   { return KindBuyingSignal }

func (b *BuyingSignalDetector) Eligible(s transcript.Speaker) bool {
	return s == transcript.SpeakerClient
}

func (b *BuyingSignalDetector) Classify(u transcript.Utterance, _ []transcript.Utterance) *Detection {
	m, ok := b.taxonomy.best(tokenize(u.Text))
	if !ok {
		return nil
	}
	return &Detection{
		Subtype:    m.name,
		Confidence: confidence(m.score),
		Cues:       m.cues,
	}
}
