package models

// DiffUnit is one file's changed content within a patch, before any
// normalization. Added and Removed hold the raw line text without the
// leading +/- markers.
type DiffUnit struct {
	Path    string
	Added   []string
	Removed []string
}

// Empty reports whether the unit carries no changed lines at all.
func (u DiffUnit) Empty() bool {
	return len(u.Added) == 0 && len(u.Removed) == 0
}

// ChangedLines returns the number of added plus removed lines.
func (u DiffUnit) ChangedLines() int {
	return len(u.Added) + len(u.Removed)
}

// Token is a normalized lexical unit. Preserved marks tokens that matched
// the preserved-keyword set and were kept verbatim.
type Token struct {
	Text      string
	Preserved bool
}

// NormalizedDiff is the ordered token stream produced by the normalizer.
// Degraded is set when the language had no known grammar and only
// whitespace normalization was applied.
type NormalizedDiff struct {
	Tokens   []Token
	Degraded bool
}

// Empty reports whether normalization produced no tokens (a pure
// formatting or comment change).
func (d NormalizedDiff) Empty() bool {
	return len(d.Tokens) == 0
}

// Words returns the token texts in order.
func (d NormalizedDiff) Words() []string {
	words := make([]string, len(d.Tokens))
	for i, t := range d.Tokens {
		words[i] = t.Text
	}
	return words
}
