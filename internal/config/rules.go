package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v2"

	"github.com/provguard/provguard/internal/normalize"
)

// RuleSet is the repository-specific substitution configuration:
// branding and prefix pairs, extra preserved keywords, and path patterns
// for infrastructure files that never count as copied content.
type RuleSet struct {
	BrandingPairs          []normalize.Pair `yaml:"branding_pairs"`
	PrefixPairs            []normalize.Pair `yaml:"prefix_pairs"`
	PreservedKeywords      []string         `yaml:"preserved_keywords"`
	InfrastructurePatterns []string         `yaml:"infrastructure_patterns"`
}

// LoadRuleSet reads a rule set from a YAML file.
func LoadRuleSet(path string) (RuleSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return RuleSet{}, fmt.Errorf("failed to read rules file: %w", err)
	}

	var rs RuleSet
	if err := yaml.Unmarshal(data, &rs); err != nil {
		return RuleSet{}, fmt.Errorf("%w: failed to parse rules file: %v", ErrInvalidConfig, err)
	}
	return rs, nil
}

// ParsePairList parses the compact env form "Source:Target,Source:Target".
func ParsePairList(raw string) ([]normalize.Pair, error) {
	if raw == "" {
		return nil, nil
	}
	var pairs []normalize.Pair
	for _, item := range strings.Split(raw, ",") {
		parts := strings.SplitN(item, ":", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("%w: malformed pair %q, want Source:Target", ErrInvalidConfig, item)
		}
		pairs = append(pairs, normalize.Pair{
			Source: strings.TrimSpace(parts[0]),
			Target: strings.TrimSpace(parts[1]),
		})
	}
	return pairs, nil
}

// Validate rejects pairs with an empty source or target term.
func (rs RuleSet) Validate() error {
	for _, p := range rs.BrandingPairs {
		if p.Source == "" || p.Target == "" {
			return fmt.Errorf("%w: branding pair has an empty term (%q -> %q)", ErrInvalidConfig, p.Source, p.Target)
		}
	}
	for _, p := range rs.PrefixPairs {
		if p.Source == "" || p.Target == "" {
			return fmt.Errorf("%w: prefix pair has an empty term (%q -> %q)", ErrInvalidConfig, p.Source, p.Target)
		}
	}
	return nil
}
