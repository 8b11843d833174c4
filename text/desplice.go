package text

import "strings"

// DefaultFillers are the strings injected between characters of visible
// words to break naive scraping.
var DefaultFillers = []string{"一一"}

// Desplicer repairs words broken apart by injected filler strings. Repair
// runs to a fixed point, so applying it to already-repaired text is a no-op.
type Desplicer struct {
	r *strings.Replacer
}

// NewDesplicer builds a Desplicer for the given words. Every split of every
// word at a character boundary, joined by any filler, maps back to the word.
// Empty words or fillers are ignored.
func NewDesplicer(words, fillers []string) *Desplicer {
	var pairs []string
	seen := make(map[string]bool)
	for _, w := range words {
		runes := []rune(w)
		for i := 1; i < len(runes); i++ {
			for _, f := range fillers {
				if f == "" {
					continue
				}
				broken := string(runes[:i]) + f + string(runes[i:])
				if seen[broken] {
					continue
				}
				seen[broken] = true
				pairs = append(pairs, broken, w)
			}
		}
	}
	if len(pairs) == 0 {
		return &Desplicer{}
	}
	return &Desplicer{r: strings.NewReplacer(pairs...)}
}

// Repair returns s with every spliced word restored.
func (d *Desplicer) Repair(s string) string {
	if d == nil || d.r == nil {
		return s
	}
	for {
		repaired := d.r.Replace(s)
		if repaired == s {
			return s
		}
		s = repaired
	}
}
