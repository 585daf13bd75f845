package classify

import (
	"math"
	"slices"
	"strings"
	"unicode"
)

// negationWindow is how many tokens before a cue are checked for a negator.
const negationWindow = 3

// confidenceHalfPoint is the match score that maps to confidence 0.5.
const confidenceHalfPoint = 1.5

var negators = map[string]bool{
	"not": true, "no": true, "never": true, "without": true, "hardly": true,
	"don't": true, "dont": true, "doesn't": true, "doesnt": true, "didn't": true,
	"isn't": true, "isnt": true, "aren't": true, "wasn't": true, "won't": true,
	"wont": true, "wouldn't": true, "can't": true, "cant": true, "cannot": true,
}

// clauseBreak is the token tokenize emits where a sentence or clause ends.
// It never equals a word token, so cues cannot match across it.
const clauseBreak = "."

// tokenize lowercases text and splits it into word tokens. Apostrophes inside
// words are kept ("can't", "what's"). Sentence and clause punctuation becomes a
// single clauseBreak token; it is never leading, trailing or repeated. A '.' or
// ',' between digits ("1,500", "2.5") is not a break.
func tokenize(text string) []string {
	text = strings.ToLower(strings.NewReplacer("’", "'", "‘", "'").Replace(text))
	runes := []rune(text)

	var tokens []string
	start := -1
	flush := func(end int) {
		if start < 0 {
			return
		}
		if w := strings.Trim(string(runes[start:end]), "'"); w != "" {
			tokens = append(tokens, w)
		}
		start = -1
	}
	for i, r := range runes {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '\'' {
			if start < 0 {
				start = i
			}
			continue
		}
		if (r == '.' || r == ',') && i > 0 && i+1 < len(runes) &&
			unicode.IsDigit(runes[i-1]) && unicode.IsDigit(runes[i+1]) {
			continue
		}
		flush(i)
		if isClausePunct(r) && len(tokens) > 0 && tokens[len(tokens)-1] != clauseBreak {
			tokens = append(tokens, clauseBreak)
		}
	}
	flush(len(runes))
	if n := len(tokens); n > 0 && tokens[n-1] == clauseBreak {
		tokens = tokens[:n-1]
	}
	return tokens
}

func isClausePunct(r rune) bool {
	switch r {
	case '.', '!', '?', ',', ';', ':', '…':
		return true
	}
	return false
}

type compiledCue struct {
	phrase string
	tokens []string
	weight float64
}

// compileCues tokenizes phrases and orders them longest first so specific
// phrases claim their tokens before generic single-word cues.
func compileCues(cues []Cue) []compiledCue {
	out := make([]compiledCue, 0, len(cues))
	for _, c := range cues {
		toks := tokenize(c.Phrase)
		if len(toks) == 0 || c.Weight <= 0 {
			continue
		}
		out = append(out, compiledCue{phrase: strings.Join(toks, " "), tokens: toks, weight: c.Weight})
	}
	slices.SortStableFunc(out, func(a, b compiledCue) int {
		return len(b.tokens) - len(a.tokens)
	})
	return out
}

type negationPolicy int

const (
	skipNegated negationPolicy = iota // negated cues do not count
	flipNegated                       // negated cues count with inverted sign
)

type hit struct {
	cue     compiledCue
	negated bool
}

// scan returns every non-overlapping cue occurrence in tokens.
func scan(tokens []string, cues []compiledCue, policy negationPolicy) []hit {
	used := make([]bool, len(tokens))
	var hits []hit
	for _, c := range cues {
		n := len(c.tokens)
		for i := 0; i+n <= len(tokens); i++ {
			if !matchAt(tokens, used, i, c.tokens) {
				continue
			}
			negated := negatedAt(tokens, i)
			if negated && policy == skipNegated {
				continue
			}
			for j := i; j < i+n; j++ {
				used[j] = true
			}
			hits = append(hits, hit{cue: c, negated: negated})
			i += n - 1
		}
	}
	return hits
}

func matchAt(tokens []string, used []bool, at int, want []string) bool {
	for j, w := range want {
		if used[at+j] || tokens[at+j] != w {
			return false
		}
	}
	return true
}

// negatedAt reports whether a negator appears within negationWindow tokens
// before at, without crossing a clause break ("No, it's too expensive").
func negatedAt(tokens []string, at int) bool {
	for j := at - 1; j >= max(0, at-negationWindow); j-- {
		if tokens[j] == clauseBreak {
			return false
		}
		if negators[tokens[j]] {
			return true
		}
	}
	return false
}

type compiledCategory struct {
	name string
	cues []compiledCue
}

type compiledTaxonomy struct {
	categories []compiledCategory
	minScore   float64
}

func compileTaxonomy(t Taxonomy, minScore float64) compiledTaxonomy {
	ct := compiledTaxonomy{minScore: minScore}
	for _, cat := range t {
		ct.categories = append(ct.categories, compiledCategory{name: cat.Name, cues: compileCues(cat.Cues)})
	}
	return ct
}

type categoryMatch struct {
	name  string
	score float64
	cues  []string
}

// best scores every category and returns the winner: highest weight sum,
// ties broken by declaration order. ok is false below the minimum score.
func (ct compiledTaxonomy) best(tokens []string) (categoryMatch, bool) {
	var winner categoryMatch
	found := false
	for _, cat := range ct.categories {
		hits := scan(tokens, cat.cues, skipNegated)
		if len(hits) == 0 {
			continue
		}
		m := categoryMatch{name: cat.name}
		for _, h := range hits {
			m.score += h.cue.weight
			m.cues = append(m.cues, h.cue.phrase)
		}
		if m.score < ct.minScore {
			continue
		}
		// strict > keeps the earlier category on an exact tie
		if !found || m.score > winner.score {
			winner = m
			found = true
		}
	}
	return winner, found
}

// confidence maps a non-negative match score into [0,1), strictly increasing.
func confidence(score float64) float64 {
	if score <= 0 {
		return 0
	}
	c := score / (score + confidenceHalfPoint)
	return math.Round(c*1000) / 1000
}
