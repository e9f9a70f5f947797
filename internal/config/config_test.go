package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/provguard/provguard/internal/normalize"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("SOURCE_REPO", "redis/redis")
	t.Setenv("TARGET_REPO", "valkey-io/valkey")
	t.Setenv("PR_DB_PATH", "/data/pr.db.gz")
}

func TestLoadDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 3, cfg.ShingleWidth)
	assert.Equal(t, 3, cfg.MaxDistance)
	assert.InDelta(t, 0.85, cfg.JaccardThreshold, 1e-9)
	assert.Equal(t, 5, cfg.MinTokens)
	assert.Equal(t, 5, cfg.MinLines)
	assert.Equal(t, 5, cfg.MinNetNewLines)
	assert.InDelta(t, 0.70, cfg.MovementRatioThreshold, 1e-9)
	assert.Equal(t, "https://api.github.com", cfg.GitHubBaseURL)
	assert.Equal(t, 5*time.Minute, cfg.CheckTimeout)
	assert.Equal(t, "8080", cfg.ServerPort)
}

func TestLoadOverrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("MAX_DISTANCE", "5")
	t.Setenv("JACCARD_THRESHOLD", "0.9")
	t.Setenv("CHECK_TIMEOUT", "30s")
	t.Setenv("BRANDING_PAIRS", "Redis:Valkey")
	t.Setenv("PREFIX_PAIRS", "RM_:VM_")

	cfg, err := Load()
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 5, cfg.MaxDistance)
	assert.InDelta(t, 0.9, cfg.JaccardThreshold, 1e-9)
	assert.Equal(t, 30*time.Second, cfg.CheckTimeout)
	require.Len(t, cfg.Rules.BrandingPairs, 1)
	assert.Equal(t, "Valkey", cfg.Rules.BrandingPairs[0].Target)
	require.Len(t, cfg.Rules.PrefixPairs, 1)
	assert.Equal(t, "VM_", cfg.Rules.PrefixPairs[0].Target)
}

func TestLoadMalformedPairIsInvalidConfig(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("BRANDING_PAIRS", "RedisValkey")

	_, err := Load()
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestValidateMissingRepos(t *testing.T) {
	cfg := &Config{PRDBPath: "/data/pr.db.gz"}
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)

	cfg.SourceRepo = "redis/redis"
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
}

func TestValidateRequiresAtLeastOnePartition(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("PR_DB_PATH", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
}

func TestValidateRejectsBadTuning(t *testing.T) {
	setRequiredEnv(t)

	for name, value := range map[string]string{
		"SHINGLE_WIDTH":     "0",
		"MAX_DISTANCE":      "65",
		"JACCARD_THRESHOLD": "1.5",
	} {
		t.Setenv(name, value)
		cfg, err := Load()
		require.NoError(t, err)
		assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig, name)
		t.Setenv(name, "")
	}
}

func TestLoadRulesFromYAML(t *testing.T) {
	setRequiredEnv(t)

	path := filepath.Join(t.TempDir(), "rules.yaml")
	content := `branding_pairs:
  - source: Redis
    target: Valkey
prefix_pairs:
  - source: RM_
    target: VM_
preserved_keywords:
  - redisLog
infrastructure_patterns:
  - ".github/"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	t.Setenv("RULES_FILE", path)

	cfg, err := Load()
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	require.Len(t, cfg.Rules.BrandingPairs, 1)
	assert.Equal(t, "Redis", cfg.Rules.BrandingPairs[0].Source)
	assert.Equal(t, []string{"redisLog"}, cfg.Rules.PreservedKeywords)
	assert.Equal(t, []string{".github/"}, cfg.Rules.InfrastructurePatterns)

	params := cfg.CheckParams()
	require.NoError(t, params.Validate())
	assert.True(t, params.Rules.IsPreserved("redisLog"))
	assert.Equal(t, []string{".github/"}, params.InfrastructurePatterns)
}

func TestParsePairList(t *testing.T) {
	pairs, err := ParsePairList("Redis:Valkey,RM_:VM_")
	require.NoError(t, err)
	require.Len(t, pairs, 2)
	assert.Equal(t, "Redis", pairs[0].Source)
	assert.Equal(t, "VM_", pairs[1].Target)

	pairs, err = ParsePairList("")
	require.NoError(t, err)
	assert.Empty(t, pairs)

	_, err = ParsePairList("no-separator")
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestRuleSetValidateRejectsEmptyTerms(t *testing.T) {
	rs := RuleSet{BrandingPairs: []normalize.Pair{{Source: "Redis", Target: ""}}}
	assert.ErrorIs(t, rs.Validate(), ErrInvalidConfig)
}
