package classify

import (
	"fmt"
	"maps"
	"os"
	"slices"
	"strings"

	"github.com/goccy/go-yaml"

	"github.com/hpungsan/parley/internal/errors"
)

// Cue is a weighted keyword or phrase. Weight expresses specificity.
type Cue struct {
	Phrase string  `yaml:"phrase"`
	Weight float64 `yaml:"weight"`
}

// Category is one taxonomy entry with its cues.
type Category struct {
	Name string
	Cues []Cue
}

// Taxonomy is an ordered list of categories. Order is the tie-break order.
type Taxonomy []Category

// Names returns category names in declaration order.
func (t Taxonomy) Names() []string {
	names := make([]string, len(t))
	for i, c := range t {
		names[i] = c.Name
	}
	return names
}

func (t Taxonomy) clone() Taxonomy {
	out := make(Taxonomy, len(t))
	for i, c := range t {
		out[i] = Category{Name: c.Name, Cues: slices.Clone(c.Cues)}
	}
	return out
}

// Lexicon holds every cue set used by the classifiers.
type Lexicon struct {
	Objection    Taxonomy
	Question     Taxonomy
	BuyingSignal Taxonomy

	// Intensity cues raise a client question's buying-signal strength.
	Intensity []Cue

	// Interrogatives are lead words that mark a question without a "?".
	Interrogatives []string

	Positive []Cue
	Negative []Cue
}

// Clone returns a deep copy of l.
func (l *Lexicon) Clone() *Lexicon {
	return &Lexicon{
		Objection:      l.Objection.clone(),
		Question:       l.Question.clone(),
		BuyingSignal:   l.BuyingSignal.clone(),
		Intensity:      slices.Clone(l.Intensity),
		Interrogatives: slices.Clone(l.Interrogatives),
		Positive:       slices.Clone(l.Positive),
		Negative:       slices.Clone(l.Negative),
	}
}

// LexiconFile is the YAML shape of a lexicon extension file. Categories are
// keyed by name and must already exist in the default taxonomy.
type LexiconFile struct {
	Objection    map[string][]Cue `yaml:"objection"`
	Question     map[string][]Cue `yaml:"question"`
	BuyingSignal map[string][]Cue `yaml:"buying_signal"`
	Intensity    []Cue            `yaml:"intensity"`
	Sentiment    struct {
		Positive []Cue `yaml:"positive"`
		Negative []Cue `yaml:"negative"`
	} `yaml:"sentiment"`
}

// LoadLexicon reads a YAML extension file and merges it into the default lexicon.
// An empty path returns the defaults.
func LoadLexicon(path string) (*Lexicon, error) {
	lex := DefaultLexicon()
	if strings.TrimSpace(path) == "" {
		return lex, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read lexicon: %w", err)
	}

	var file LexiconFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, errors.NewInvalidRequest(fmt.Sprintf("parse lexicon %s: %v", path, err))
	}

	if err := lex.Merge(file); err != nil {
		return nil, err
	}
	return lex, nil
}

// Merge appends the extension cues to l. Omitted weights default to 1.
// On error l is left unchanged. Categories are applied in name order, so the
// first invalid one reported is stable across runs.
func (l *Lexicon) Merge(ext LexiconFile) error {
	merged := l.Clone()
	if err := mergeTaxonomy(merged.Objection, "objection", ext.Objection); err != nil {
		return err
	}
	if err := mergeTaxonomy(merged.Question, "question", ext.Question); err != nil {
		return err
	}
	if err := mergeTaxonomy(merged.BuyingSignal, "buying_signal", ext.BuyingSignal); err != nil {
		return err
	}

	for _, set := range []struct {
		name string
		dst  *[]Cue
		src  []Cue
	}{
		{"intensity", &merged.Intensity, ext.Intensity},
		{"sentiment.positive", &merged.Positive, ext.Sentiment.Positive},
		{"sentiment.negative", &merged.Negative, ext.Sentiment.Negative},
	} {
		cues, err := validCues(set.name, set.src)
		if err != nil {
			return err
		}
		*set.dst = append(*set.dst, cues...)
	}

	*l = *merged
	return nil
}

func mergeTaxonomy(t Taxonomy, family string, ext map[string][]Cue) error {
	for _, name := range slices.Sorted(maps.Keys(ext)) {
		idx := slices.IndexFunc(t, func(c Category) bool { return strings.EqualFold(c.Name, name) })
		if idx < 0 {
			return errors.NewInvalidRequest(fmt.Sprintf("unknown %s category %q; known: %v", family, name, t.Names()))
		}
		valid, err := validCues(family+"."+name, ext[name])
		if err != nil {
			return err
		}
		t[idx].Cues = append(t[idx].Cues, valid...)
	}
	return nil
}

func validCues(where string, cues []Cue) ([]Cue, error) {
	out := make([]Cue, 0, len(cues))
	for _, c := range cues {
		if len(tokenize(c.Phrase)) == 0 {
			return nil, errors.NewInvalidRequest(fmt.Sprintf("%s: cue phrase must not be empty", where))
		}
		if c.Weight < 0 {
			return nil, errors.NewInvalidRequest(fmt.Sprintf("%s: cue %q has negative weight", where, c.Phrase))
		}
		if c.Weight == 0 {
			c.Weight = 1
		}
		out = append(out, c)
	}
	return out, nil
}
