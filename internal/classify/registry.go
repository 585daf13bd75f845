package classify

import (
	"fmt"

	"github.com/hpungsan/parley/internal/errors"
	"github.com/hpungsan/parley/internal/transcript"
)

// Scorer maps an utterance to a sentiment label.
type Scorer interface {
	Name() string
	Eligible(speaker transcript.Speaker) bool
	Score(u transcript.Utterance) Sentiment
}

// RunScorer scores u when its speaker is eligible. ok is false when the
// speaker is ineligible or the scorer failed.
func RunScorer(s Scorer, u transcript.Utterance) (sent Sentiment, ok bool, err error) {
	if !s.Eligible(u.Speaker) {
		return "", false, nil
	}
	defer func() {
		if r := recover(); r != nil {
			sent, ok = "", false
			err = errors.NewClassifierError(s.Name(), fmt.Errorf("panic: %v", r))
		}
	}()
	return s.Score(u), true, nil
}

// Registry is the read-only set of classifiers shared by all sessions.
type Registry struct {
	classifiers []Classifier
	scorer      Scorer
}

// NewRegistry builds the standard classifiers from lex. Run order is
// objection, question, buying signal.
func NewRegistry(lex *Lexicon) *Registry {
	if lex == nil {
		lex = DefaultLexicon()
	}
	return &Registry{
		classifiers: []Classifier{
			NewObjectionDetector(lex),
			NewQuestionAnalyzer(lex),
			NewBuyingSignalDetector(lex),
		},
		scorer: NewSentimentScorer(lex),
	}
}

// NewRegistryWith assembles a registry from explicit parts.
func NewRegistryWith(scorer Scorer, classifiers ...Classifier) *Registry {
	return &Registry{classifiers: classifiers, scorer: scorer}
}

// Classifiers returns the registered classifiers in run order.
func (r *Registry) Classifiers() []Classifier {
	return r.classifiers
}

// Scorer returns the sentiment scorer (may be nil).
func (r *Registry) Scorer() Scorer {
	return r.scorer
}
