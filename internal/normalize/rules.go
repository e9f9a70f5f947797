package normalize

import "strings"

// Pair is a single substitution rule: occurrences of Source become
// Target. Declaration order breaks ties when several rules could apply.
type Pair struct {
	Source string `yaml:"source"`
	Target string `yaml:"target"`
}

// Rules is the immutable substitution configuration threaded through
// every normalization call. Build it with NewRules; never mutate a Rules
// value after construction, concurrent validations share it.
type Rules struct {
	brandingPairs []Pair
	prefixPairs   []Pair
	preserved     map[string]bool
}

// NewRules copies the inputs so later mutation of the arguments cannot
// leak into a running check.
func NewRules(branding, prefix []Pair, preserved []string) Rules {
	r := Rules{
		brandingPairs: append([]Pair(nil), branding...),
		prefixPairs:   append([]Pair(nil), prefix...),
		preserved:     make(map[string]bool, len(preserved)),
	}
	for _, kw := range preserved {
		r.preserved[kw] = true
	}
	return r
}

// BrandingPairs returns a copy of the branding substitution rules.
func (r Rules) BrandingPairs() []Pair {
	return append([]Pair(nil), r.brandingPairs...)
}

// PrefixPairs returns a copy of the prefix substitution rules.
func (r Rules) PrefixPairs() []Pair {
	return append([]Pair(nil), r.prefixPairs...)
}

// IsPreserved reports whether an identifier must be kept verbatim.
func (r Rules) IsPreserved(identifier string) bool {
	return r.preserved[identifier]
}

// ApplyIdentifier rewrites one identifier token according to the prefix
// and branding rules. Preserved keywords are returned unchanged so host
// language keywords that collide with brand terms are never corrupted.
func (r Rules) ApplyIdentifier(identifier string) string {
	if r.preserved[identifier] {
		return identifier
	}

	for _, p := range r.prefixPairs {
		if p.Source == "" {
			continue
		}
		if strings.HasPrefix(identifier, p.Source) {
			return p.Target + identifier[len(p.Source):]
		}
	}

	for _, b := range r.brandingPairs {
		if b.Source == "" {
			continue
		}
		if strings.Contains(identifier, b.Source) {
			return strings.ReplaceAll(identifier, b.Source, b.Target)
		}
		// Brand terms frequently appear lower-cased inside identifiers
		// (redisLog, redisCommand); match those the same way.
		lowerSrc := strings.ToLower(b.Source)
		if strings.Contains(identifier, lowerSrc) {
			return strings.ReplaceAll(identifier, lowerSrc, strings.ToLower(b.Target))
		}
	}

	return identifier
}

// DefaultPreservedKeywords covers the grammars the normalizer understands
// (C family, Python, Tcl) plus the Tcl test-suite vocabulary.
func DefaultPreservedKeywords() []string {
	return []string{
		// C / C++
		"int", "char", "void", "long", "short", "double", "float",
		"unsigned", "signed", "const", "static", "volatile", "struct",
		"union", "enum", "typedef", "if", "else", "for", "while", "do",
		"switch", "case", "default", "break", "continue", "return",
		"goto", "sizeof", "NULL", "true", "false",
		// Python
		"def", "class", "import", "from", "try", "except", "raise",
		"finally", "with", "as", "pass", "lambda", "yield", "await",
		"async", "None", "True", "False", "is", "in", "not", "and", "or",
		// Tcl
		"proc", "set", "elseif", "foreach", "expr", "catch", "puts",
		"after", "upvar", "global", "variable", "namespace", "package",
		"source", "test", "r", "assert", "assert_equal", "assert_error",
		"assert_match",
	}
}
