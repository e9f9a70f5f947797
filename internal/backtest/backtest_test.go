package backtest

import (
	"context"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/provguard/provguard/internal/fetch"
	"github.com/provguard/provguard/internal/fingerprint"
	"github.com/provguard/provguard/internal/models"
	"github.com/provguard/provguard/internal/normalize"
	"github.com/provguard/provguard/internal/provenance"
	"github.com/provguard/provguard/internal/store"
)

var knownPositives = map[int]bool{
	3080: true, 3085: true, 3088: true, 3095: true, 3102: true,
}

func copiedUnit() models.DiffUnit {
	return models.DiffUnit{
		Path: "src/expire.c",
		Added: []string{
			"    long long now = mstime();",
			"    if (now > when) {",
			"        deleteExpiredKeyAndPropagate(db, keyobj);",
			"        server.stat_expiredkeys++;",
			"        notifyKeyspaceEvent(NOTIFY_EXPIRED, STR, keyobj, db->id);",
			"        decrRefCount(keyobj);",
			"    }",
		},
	}
}

func originalUnit(n int) models.DiffUnit {
	return models.DiffUnit{
		Path: "src/t_hash.c",
		Added: []string{
			"    hashTypeIterator *hi = hashTypeInitIterator(o);",
			"    while (hashTypeNext(hi) != C_ERR) {",
			"        addHashIteratorCursorToReply(c, hi, OBJ_HASH_KEY);",
			"        count_" + strconv.Itoa(n) + "++;",
			"        addHashIteratorCursorToReply(c, hi, OBJ_HASH_VALUE);",
			"    }",
			"    hashTypeReleaseIterator(hi);",
		},
	}
}

func diffText(units ...models.DiffUnit) string {
	var b strings.Builder
	for _, u := range units {
		b.WriteString("diff --git a/" + u.Path + " b/" + u.Path + "\n")
		for _, l := range u.Removed {
			b.WriteString("-" + l + "\n")
		}
		for _, l := range u.Added {
			b.WriteString("+" + l + "\n")
		}
	}
	return b.String()
}

func backtestParams() provenance.CheckParams {
	rules := normalize.NewRules(
		[]normalize.Pair{{Source: "Redis", Target: "Valkey"}},
		[]normalize.Pair{{Source: "RM_", Target: "VM_"}},
		normalize.DefaultPreservedKeywords(),
	)
	return provenance.DefaultCheckParams(rules)
}

func TestRunnerFlagsKnownPositivesOnly(t *testing.T) {
	p := backtestParams()
	copied := copiedUnit()

	s := store.New(models.SourceKindPR, "valkey-io/valkey")
	nd := normalize.Unit(copied, p.Rules)
	require.NoError(t, s.Append(models.FingerprintRecord{
		SourceID:  "777",
		SimHash:   fingerprint.SimHash(nd, p.ShingleWidth),
		PatchID:   fingerprint.UnitPatchID(copied),
		FilePaths: []string{copied.Path},
	}))

	// Target side: known positives carry the copied change, a few other
	// numbers carry original work, the rest do not resolve.
	targetFetcher := fetch.FetcherFunc(func(ctx context.Context, src models.SourceRef) (string, error) {
		n, err := strconv.Atoi(src.ID)
		require.NoError(t, err)
		switch {
		case knownPositives[n]:
			return diffText(copied), nil
		case n%50 == 0:
			return diffText(originalUnit(n)), nil
		default:
			return "", &fetch.NotFoundError{Source: src}
		}
	})
	sourceFetcher := fetch.FetcherFunc(func(ctx context.Context, src models.SourceRef) (string, error) {
		if src.ID == "777" {
			return diffText(copied), nil
		}
		return "", &fetch.NotFoundError{Source: src}
	})

	pool := provenance.NewWorkerPool(context.Background(), 2)
	defer pool.Close()

	runner := &Runner{
		TargetFetcher: targetFetcher,
		SourceFetcher: sourceFetcher,
		Stores:        []*store.Store{s},
		Pool:          pool,
		Params:        p,
	}

	summary := runner.Run(context.Background(), 2800, 3120)

	assert.Equal(t, 321, summary.Total)
	assert.Equal(t, []int{3080, 3085, 3088, 3095, 3102}, summary.FlaggedNumbers())
	assert.Empty(t, summary.Errors, "missing PR numbers must not count as errors")
	assert.Equal(t, 309, summary.NotFound)
}

func TestRunnerReportsErrorsSeparately(t *testing.T) {
	p := backtestParams()

	targetFetcher := fetch.FetcherFunc(func(ctx context.Context, src models.SourceRef) (string, error) {
		return "", &fetch.TransientError{Status: 502}
	})

	pool := provenance.NewWorkerPool(context.Background(), 2)
	defer pool.Close()

	runner := &Runner{
		TargetFetcher: targetFetcher,
		SourceFetcher: targetFetcher,
		Stores:        nil,
		Pool:          pool,
		Params:        p,
	}

	summary := runner.Run(context.Background(), 1, 3)
	assert.Equal(t, 3, summary.Total)
	assert.Len(t, summary.Errors, 3)
	assert.Empty(t, summary.Flagged)
}

func TestRunnerStopsOnContextCancel(t *testing.T) {
	p := backtestParams()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	pool := provenance.NewWorkerPool(context.Background(), 1)
	defer pool.Close()

	runner := &Runner{
		TargetFetcher: fetch.FetcherFunc(func(ctx context.Context, src models.SourceRef) (string, error) {
			return "", &fetch.NotFoundError{Source: src}
		}),
		SourceFetcher: nil,
		Stores:        nil,
		Pool:          pool,
		Params:        p,
	}

	summary := runner.Run(ctx, 1, 100)
	assert.Zero(t, summary.Total)
}
