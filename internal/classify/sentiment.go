package classify

import "github.com/hpungsan/parley/internal/transcript"

// Sentiment is the polarity of one utterance.
type Sentiment string

const (
	SentimentPositive Sentiment = "POSITIVE"
	SentimentNeutral  Sentiment = "NEUTRAL"
	SentimentNegative Sentiment = "NEGATIVE"
)

// Value maps POSITIVE/NEUTRAL/NEGATIVE to +1/0/-1.
func (s Sentiment) Value() float64 {
	switch s {
	case SentimentPositive:
		return 1
	case SentimentNegative:
		return -1
	default:
		return 0
	}
}

// SentimentScorer labels client utterances using the polarity lexicon.
// Negated cues count with inverted sign ("not good" is negative).
type SentimentScorer struct {
	positive []compiledCue
	negative []compiledCue
}

// NewSentimentScorer compiles the polarity cues of lex.
func NewSentimentScorer(lex *Lexicon) *SentimentScorer {
	return &SentimentScorer{
		positive: compileCues(lex.Positive),
		negative: compileCues(lex.Negative),
	}
}

func (s *SentimentScorer) Name() string { return "sentiment" }

// Eligible restricts scoring to client speech.
func (s *SentimentScorer) Eligible(sp transcript.Speaker) bool {
	return sp == transcript.SpeakerClient
}

// Score returns the polarity of u.Text. Pure; no history is kept.
func (s *SentimentScorer) Score(u transcript.Utterance) Sentiment {
	tokens := tokenize(u.Text)
	score := polarity(tokens, s.negative, -1) + polarity(tokens, s.positive, 1)
	switch {
	case score > 0:
		return SentimentPositive
	case score < 0:
		return SentimentNegative
	default:
		return SentimentNeutral
	}
}

func polarity(tokens []string, cues []compiledCue, sign float64) float64 {
	total := 0.0
	for _, h := range scan(tokens, cues, flipNegated) {
		w := h.cue.weight * sign
		if h.negated {
			w = -w
		}
		total += w
	}
	return total
}
