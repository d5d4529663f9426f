// Package normalize maps free-text queries onto canonical cache keys and
// TTL categories. The pipeline is a fixed token transform: deterministic,
// idempotent, and independent of any collaborator.
package normalize

import (
	"strings"
	"unicode"

	"github.com/rotisserie/eris"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/sells-group/realty-search/internal/model"
)

// ErrEmptyQuery is returned for empty or whitespace-only input. Callers are
// expected to reject such queries before reaching the pipeline.
var ErrEmptyQuery = eris.New("normalize: empty query")

// Normalized is the canonical form of one query.
type Normalized struct {
	Key      string
	Category model.Category
	Tokens   []string // canonical tokens, location tokens last
	Location string   // first detected state token, "" when absent
}

// Normalize maps a query to its canonical key and cache category.
// Two phrasings of the same question yield the same key; normalizing a
// produced key returns it unchanged.
func Normalize(query string) (Normalized, error) {
	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		return Normalized{}, ErrEmptyQuery
	}

	folded := foldDiacritics(strings.ToLower(trimmed))
	raw := tokenize(folded)

	tokens := make([]string, 0, len(raw))
	for _, t := range raw {
		if _, stop := stopwords[t]; stop {
			continue
		}
		if mapped, ok := synonyms[t]; ok {
			t = mapped
		}
		if full, ok := stateAbbrevs[t]; ok {
			t = full
		}
		tokens = append(tokens, t)
	}

	tokens = fuseMultiwordStates(tokens)
	tokens = dedupe(tokens)

	// Location tokens go last so related questions share a stable prefix.
	var body, locs []string
	location := ""
	for _, t := range tokens {
		if _, ok := stateNames[t]; ok {
			locs = append(locs, t)
			if location == "" {
				location = t
			}
			continue
		}
		body = append(body, t)
	}
	tokens = append(body, locs...)

	// A query made entirely of stopwords falls back to its raw tokens so
	// the key is never empty for non-empty input.
	if len(tokens) == 0 {
		tokens = dedupe(raw)
	}

	return Normalized{
		Key:      strings.Join(tokens, "-"),
		Category: categorize(tokens),
		Tokens:   tokens,
		Location: location,
	}, nil
}

func foldDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// tokenize splits on anything that is not a letter or digit. Apostrophes
// are deleted rather than split so "what's" becomes "whats".
func tokenize(s string) []string {
	s = strings.ReplaceAll(s, "'", "")
	s = strings.ReplaceAll(s, "’", "")
	return strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func fuseMultiwordStates(tokens []string) []string {
	out := make([]string, 0, len(tokens))
	for i := 0; i < len(tokens); i++ {
		if i+1 < len(tokens) {
			if fused, ok := multiwordStates[tokens[i]+" "+tokens[i+1]]; ok {
				out = append(out, fused)
				i++
				continue
			}
		}
		out = append(out, tokens[i])
	}
	return out
}

func dedupe(tokens []string) []string {
	seen := make(map[string]struct{}, len(tokens))
	out := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

// categorize picks the TTL category from query intent alone, never from
// retrieved content.
func categorize(tokens []string) model.Category {
	for _, t := range tokens {
		if _, ok := marketTerms[t]; ok {
			return model.CategoryMarketData
		}
	}
	return model.CategoryGeneralKnowledge
}
