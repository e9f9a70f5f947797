package normalize

import (
	"path/filepath"
	"strings"
	"unicode"

	"github.com/provguard/provguard/internal/models"
)

// Language selects the comment grammar used during normalization.
type Language string

const (
	LangC       Language = "c"
	LangPython  Language = "python"
	LangTcl     Language = "tcl"
	LangUnknown Language = "unknown"
)

// LanguageForPath maps a file path to its comment grammar.
func LanguageForPath(path string) Language {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".c", ".h", ".cc", ".cpp", ".hh", ".hpp":
		return LangC
	case ".py":
		return LangPython
	case ".tcl":
		return LangTcl
	default:
		return LangUnknown
	}
}

// Text normalizes raw changed-line text into a token stream. Unknown
// languages fall back to whitespace-only splitting and mark the result
// degraded; that is a reduced-precision mode, not an error.
func Text(raw string, lang Language, rules Rules) models.NormalizedDiff {
	if lang == LangUnknown {
		return whitespaceOnly(raw)
	}

	var tokens []models.Token
	for _, line := range strings.Split(raw, "\n") {
		line = stripComments(line, lang)
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "*") {
			// "*" lines are block comment continuations.
			continue
		}
		tokens = append(tokens, tokenizeLine(line, rules)...)
	}
	return models.NormalizedDiff{Tokens: tokens}
}

// Unit normalizes one diff unit, inferring the grammar from its path.
// Added and removed lines both contribute; a unit whose changes are pure
// formatting or comments normalizes to an empty stream.
func Unit(u models.DiffUnit, rules Rules) models.NormalizedDiff {
	lang := LanguageForPath(u.Path)
	raw := strings.Join(u.Added, "\n") + "\n" + strings.Join(u.Removed, "\n")
	return Text(raw, lang, rules)
}

// Units normalizes a set of diff units into one combined stream. Units
// that normalize to nothing are dropped entirely so formatting-only files
// cannot distort similarity scoring. The result is degraded if any
// contributing unit had no known grammar.
func Units(units []models.DiffUnit, rules Rules) models.NormalizedDiff {
	var combined models.NormalizedDiff
	for _, u := range units {
		nd := Unit(u, rules)
		if nd.Empty() {
			continue
		}
		combined.Tokens = append(combined.Tokens, nd.Tokens...)
		combined.Degraded = combined.Degraded || nd.Degraded
	}
	return combined
}

func whitespaceOnly(raw string) models.NormalizedDiff {
	fields := strings.Fields(raw)
	tokens := make([]models.Token, 0, len(fields))
	for _, f := range fields {
		tokens = append(tokens, models.Token{Text: f})
	}
	return models.NormalizedDiff{Tokens: tokens, Degraded: true}
}

// stripComments removes trailing comments from one line, tracking quote
// state so comment markers inside string literals survive.
func stripComments(line string, lang Language) string {
	var quote byte
	for i := 0; i < len(line); i++ {
		c := line[i]
		if quote != 0 {
			if c == '\\' {
				i++
			} else if c == quote {
				quote = 0
			}
			continue
		}
		switch c {
		case '"', '\'':
			quote = c
		case '/':
			if lang != LangC || i+1 >= len(line) {
				continue
			}
			if line[i+1] == '/' {
				return line[:i]
			}
			if line[i+1] == '*' {
				if end := strings.Index(line[i+2:], "*/"); end >= 0 {
					line = line[:i] + line[i+2+end+2:]
					i--
					continue
				}
				return line[:i]
			}
		case '#':
			if lang != LangPython && lang != LangTcl {
				continue
			}
			// A hash opens a comment at line start or after whitespace;
			// preprocessor-style tokens like #include stay intact.
			if i == 0 || line[i-1] == ' ' || line[i-1] == '\t' {
				return line[:i]
			}
		}
	}
	return line
}

// tokenizeLine splits one comment-free line into normalized tokens:
// string literals collapse to STR, numbers to NUM, identifiers go through
// the substitution rules, punctuation runs are kept verbatim.
func tokenizeLine(line string, rules Rules) []models.Token {
	var tokens []models.Token
	i := 0
	for i < len(line) {
		c := line[i]
		switch {
		case c == ' ' || c == '\t':
			i++
		case c == '"' || c == '\'':
			i = skipString(line, i)
			tokens = append(tokens, models.Token{Text: "STR"})
		case c >= '0' && c <= '9':
			j := i
			for j < len(line) && (isWordByte(line[j]) || line[j] == '.') {
				j++
			}
			tokens = append(tokens, models.Token{Text: "NUM"})
			i = j
		case c == '_' || unicode.IsLetter(rune(c)):
			j := i
			for j < len(line) && isWordByte(line[j]) {
				j++
			}
			ident := line[i:j]
			if rules.IsPreserved(ident) {
				tokens = append(tokens, models.Token{Text: ident, Preserved: true})
			} else {
				tokens = append(tokens, models.Token{Text: rules.ApplyIdentifier(ident)})
			}
			i = j
		default:
			j := i
			for j < len(line) && !isWordByte(line[j]) && line[j] != ' ' && line[j] != '\t' && line[j] != '"' && line[j] != '\'' {
				j++
			}
			tokens = append(tokens, models.Token{Text: line[i:j]})
			i = j
		}
	}
	return tokens
}

func skipString(line string, start int) int {
	quote := line[start]
	for i := start + 1; i < len(line); i++ {
		if line[i] == '\\' {
			i++
			continue
		}
		if line[i] == quote {
			return i + 1
		}
	}
	return len(line)
}

func isWordByte(c byte) bool {
	return c == '_' || (c >= '0' && c <= '9') || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
