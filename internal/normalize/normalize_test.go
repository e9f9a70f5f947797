package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/provguard/provguard/internal/models"
)

func testRules() Rules {
	return NewRules(
		[]Pair{{Source: "Redis", Target: "Valkey"}},
		[]Pair{{Source: "RM_", Target: "VM_"}},
		append(DefaultPreservedKeywords(), "redisLog"),
	)
}

func TestApplyIdentifierPrefix(t *testing.T) {
	rules := testRules()

	assert.Equal(t, "VM_Call", rules.ApplyIdentifier("RM_Call"))
	assert.Equal(t, "VM_StringPtrLen", rules.ApplyIdentifier("RM_StringPtrLen"))
	// Prefix rules only fire at the start of the identifier.
	assert.Equal(t, "someRM_thing", rules.ApplyIdentifier("someRM_thing"))
}

func TestApplyIdentifierBranding(t *testing.T) {
	rules := testRules()

	assert.Equal(t, "ValkeyModule", rules.ApplyIdentifier("RedisModule"))
	assert.Equal(t, "ValkeyModule_Call", rules.ApplyIdentifier("RedisModule_Call"))
	// Lower-cased brand occurrences map through the derived variant.
	assert.Equal(t, "valkeyCommand", rules.ApplyIdentifier("redisCommand"))
	assert.Equal(t, "server", rules.ApplyIdentifier("server"))
}

func TestApplyIdentifierPreservedWinsOverBranding(t *testing.T) {
	rules := testRules()

	// redisLog is in the preserved set, so the branding rule that would
	// otherwise rewrite it never fires.
	assert.Equal(t, "redisLog", rules.ApplyIdentifier("redisLog"))
	assert.True(t, rules.IsPreserved("redisLog"))
	assert.True(t, rules.IsPreserved("return"))
	assert.False(t, rules.IsPreserved("RedisModule"))
}

func TestNewRulesCopiesInputs(t *testing.T) {
	branding := []Pair{{Source: "Redis", Target: "Valkey"}}
	rules := NewRules(branding, nil, nil)

	branding[0].Target = "Mutated"
	assert.Equal(t, "Valkey", rules.ApplyIdentifier("Redis"))
}

func TestLanguageForPath(t *testing.T) {
	tests := []struct {
		path string
		want Language
	}{
		{"src/server.c", LangC},
		{"src/server.h", LangC},
		{"deps/module.cpp", LangC},
		{"utils/gen.py", LangPython},
		{"tests/unit/expire.tcl", LangTcl},
		{"README.md", LangUnknown},
		{"Makefile", LangUnknown},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, LanguageForPath(tt.path), tt.path)
	}
}

func TestTextStripsComments(t *testing.T) {
	rules := testRules()

	nd := Text("int x = 1; // trailing note", LangC, rules)
	words := nd.Words()
	assert.NotContains(t, words, "trailing")
	assert.NotContains(t, words, "note")
	assert.Contains(t, words, "x")
}

func TestTextKeepsCommentMarkersInStrings(t *testing.T) {
	rules := testRules()

	nd := Text(`printf("http://example.com");`, LangC, rules)
	words := nd.Words()
	// The URL lives inside a string literal; the slashes must not start a
	// comment and the literal collapses to STR.
	assert.Contains(t, words, "STR")
	assert.Contains(t, words, "printf")
}

func TestTextPythonHashComments(t *testing.T) {
	rules := testRules()

	nd := Text("x = 1  # set x", LangPython, rules)
	words := nd.Words()
	assert.NotContains(t, words, "set")
	assert.Contains(t, words, "x")

	nd = Text("# whole line comment", LangPython, rules)
	assert.True(t, nd.Empty())
}

func TestTextLiteralsCollapse(t *testing.T) {
	rules := testRules()

	nd := Text(`call(42, 3.14, "hello")`, LangC, rules)
	words := nd.Words()
	assert.Contains(t, words, "NUM")
	assert.Contains(t, words, "STR")
	assert.NotContains(t, words, "42")
	assert.NotContains(t, words, "hello")
}

func TestTextUnknownLanguageDegrades(t *testing.T) {
	rules := testRules()

	nd := Text("some unknown content", LangUnknown, rules)
	assert.True(t, nd.Degraded)
	assert.Len(t, nd.Tokens, 3)
}

func TestUnitFormattingOnlyChangeIsEmpty(t *testing.T) {
	rules := testRules()

	u := models.DiffUnit{
		Path:    "src/server.c",
		Added:   []string{"// new comment", "   ", "/* block */"},
		Removed: []string{"// old comment"},
	}
	nd := Unit(u, rules)
	assert.True(t, nd.Empty())
}

func TestUnitBrandedRewriteMatchesOriginal(t *testing.T) {
	rules := testRules()

	original := models.DiffUnit{
		Path:  "src/module.c",
		Added: []string{"RedisModule_ReplyWithLongLong(ctx, RM_StringPtrLen(s, NULL));"},
	}
	rebranded := models.DiffUnit{
		Path:  "src/module.c",
		Added: []string{"ValkeyModule_ReplyWithLongLong(ctx, VM_StringPtrLen(s, NULL));"},
	}

	require.Equal(t, Unit(original, rules).Words(), Unit(rebranded, rules).Words())
}

func TestUnitsDropsEmptyAndPropagatesDegraded(t *testing.T) {
	rules := testRules()

	units := []models.DiffUnit{
		{Path: "src/a.c", Added: []string{"// comment only"}},
		{Path: "src/b.c", Added: []string{"int y = 2;"}},
		{Path: "doc/notes.txt", Added: []string{"freeform text"}},
	}
	nd := Units(units, rules)
	assert.False(t, nd.Empty())
	assert.True(t, nd.Degraded)

	nd = Units(units[:2], rules)
	assert.False(t, nd.Degraded)
}
