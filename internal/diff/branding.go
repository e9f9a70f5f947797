package diff

import (
	"regexp"
	"strings"

	"github.com/provguard/provguard/internal/normalize"
)

// brandCanon rewrites every brand and prefix term in a line to a fixed
// placeholder so two lines that differ only in branding compare equal.
type brandCanon struct {
	patterns []*regexp.Regexp
	repls    []string
}

func newBrandCanon(rules normalize.Rules) *brandCanon {
	c := &brandCanon{}
	add := func(term, repl string) {
		if term == "" {
			return
		}
		c.patterns = append(c.patterns, regexp.MustCompile(`\b`+regexp.QuoteMeta(term)))
		c.repls = append(c.repls, repl)
	}
	for _, b := range rules.BrandingPairs() {
		add(b.Source, "BRAND")
		add(strings.ToLower(b.Source), "BRAND")
		add(b.Target, "BRAND")
		add(strings.ToLower(b.Target), "BRAND")
	}
	for _, p := range rules.PrefixPairs() {
		add(p.Source, "BRAND_")
		add(p.Target, "BRAND_")
	}
	return c
}

func (c *brandCanon) apply(line string) string {
	for i, re := range c.patterns {
		line = re.ReplaceAllString(line, c.repls[i])
	}
	return line
}

// FilterBrandingChanges removes hunks that are pure rebranding: paired
// runs of removed and added lines, equal in length, where each pair is
// identical once brand terms are canonicalized. Such hunks are the
// target repository's own renaming work, not copied content.
func FilterBrandingChanges(diffText string, rules normalize.Rules) string {
	if diffText == "" {
		return diffText
	}
	canon := newBrandCanon(rules)

	lines := strings.Split(diffText, "\n")
	filtered := make([]string, 0, len(lines))
	idx := 0
	for idx < len(lines) {
		line := lines[idx]
		if strings.HasPrefix(line, "-") && !strings.HasPrefix(line, "---") {
			minus := []string{line}
			j := idx + 1
			for j < len(lines) && strings.HasPrefix(lines[j], "-") && !strings.HasPrefix(lines[j], "---") {
				minus = append(minus, lines[j])
				j++
			}
			var plus []string
			for j < len(lines) && strings.HasPrefix(lines[j], "+") && !strings.HasPrefix(lines[j], "+++") {
				plus = append(plus, lines[j])
				j++
			}
			if len(minus) == len(plus) && len(minus) > 0 && allBrandingPairs(minus, plus, canon) {
				idx = j
				continue
			}
		}
		filtered = append(filtered, line)
		idx++
	}
	return strings.Join(filtered, "\n")
}

func allBrandingPairs(minus, plus []string, canon *brandCanon) bool {
	for i := range minus {
		if canon.apply(minus[i][1:]) != canon.apply(plus[i][1:]) {
			return false
		}
	}
	return true
}
