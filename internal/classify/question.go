package classify

import (
	"strings"

	"github.com/hpungsan/parley/internal/transcript"
)

const questionMinScore = 1.0

// baseStrength is the buying-signal strength a client question carries
// before intensity cues are counted.
var baseStrength = map[string]Strength{
	QuestionProduct:        StrengthWeak,
	QuestionPricing:        StrengthModerate,
	QuestionImplementation: StrengthModerate,
	QuestionSupport:        StrengthWeak,
	QuestionTechnical:      StrengthWeak,
}

// QuestionAnalyzer recognizes questions (interrogative form plus a domain
// keyword) and grades client questions by implied buying interest.
type QuestionAnalyzer struct {
	taxonomy       compiledTaxonomy
	intensity      []compiledCue
	interrogatives map[string]bool
}

// NewQuestionAnalyzer compiles the question taxonomy of lex.
func NewQuestionAnalyzer(lex *Lexicon) *QuestionAnalyzer {
	lead := make(map[string]bool, len(lex.Interrogatives))
	for _, w := range lex.Interrogatives {
		lead[strings.ToLower(strings.TrimSpace(w))] = true
	}
	return &QuestionAnalyzer{
		taxonomy:       compileTaxonomy(lex.Question, questionMinScore),
		intensity:      compileCues(lex.Intensity),
		interrogatives: lead,
	}
}

func (q *QuestionAnalyzer) Name() string { return "question" }
func (q *QuestionAnalyzer) Kind() Kind   { return KindQuestion }

// Eligible accepts every speaker; the asker is recorded as Intent.
func (q *QuestionAnalyzer) Eligible(transcript.Speaker) bool { return true }

// Classify returns a question detection when u is interrogative and matches
// a domain category.
func (q *QuestionAnalyzer) Classify(u transcript.Utterance, _ []transcript.Utterance) *Detection {
	tokens := tokenize(u.Text)
	if !q.isInterrogative(u.Text, tokens) {
		return nil
	}
	m, ok := q.taxonomy.best(tokens)
	if !ok {
		return nil
	}
	return &Detection{
		Subtype:    m.name,
		Confidence: confidence(m.score),
		Cues:       m.cues,
		Strength:   q.strength(u.Speaker, m.name, tokens),
		Intent:     intentOf(u.Speaker),
	}
}

// BuyingSignalStrength grades a question detection. Salesperson and
// unattributed questions carry no buying signal.
func (q *QuestionAnalyzer) BuyingSignalStrength(d *Detection, text string) Strength {
	if d == nil || d.Kind != KindQuestion {
		return StrengthNone
	}
	return q.strength(d.Speaker, d.Subtype, tokenize(text))
}

func (q *QuestionAnalyzer) strength(speaker transcript.Speaker, subtype string, tokens []string) Strength {
	if speaker != transcript.SpeakerClient {
		return StrengthNone
	}
	base, ok := baseStrength[subtype]
	if !ok {
		base = StrengthWeak
	}
	bump := 0.0
	for _, h := range scan(tokens, q.intensity, skipNegated) {
		bump += h.cue.weight
	}
	return strengthFromRank(base.Rank() + int(bump))
}

func (q *QuestionAnalyzer) isInterrogative(text string, tokens []string) bool {
	if strings.Contains(text, "?") {
		return true
	}
	return len(tokens) > 0 && q.interrogatives[tokens[0]]
}

func intentOf(s transcript.Speaker) string {
	switch s {
	case transcript.SpeakerSalesperson:
		return IntentDiscovery
	case transcript.SpeakerClient:
		return IntentDueDiligence
	default:
		return IntentUnattributed
	}
}
