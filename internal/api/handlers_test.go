package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/provguard/provguard/internal/config"
	"github.com/provguard/provguard/internal/fetch"
	"github.com/provguard/provguard/internal/fingerprint"
	"github.com/provguard/provguard/internal/models"
	"github.com/provguard/provguard/internal/normalize"
	"github.com/provguard/provguard/internal/provenance"
	"github.com/provguard/provguard/internal/store"
)

const testSecret = "test-secret"

func testConfig() *config.Config {
	return &config.Config{
		SourceRepo: "redis/redis",
		TargetRepo: "valkey-io/valkey",
		Rules: config.RuleSet{
			BrandingPairs: []normalize.Pair{{Source: "Redis", Target: "Valkey"}},
			PrefixPairs:   []normalize.Pair{{Source: "RM_", Target: "VM_"}},
		},
		ShingleWidth:           3,
		MaxDistance:            3,
		JaccardThreshold:       0.85,
		MinTokens:              5,
		MinLines:               5,
		MinNetNewLines:         5,
		MovementRatioThreshold: 0.70,
		ValidationWorkers:      2,
		CheckTimeout:           10 * time.Second,
		JWTSecret:              testSecret,
		RateLimitRPS:           100,
		ServerPort:             "8080",
	}
}

func copiedDiffText() (string, models.DiffUnit) {
	u := models.DiffUnit{
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
	var b strings.Builder
	b.WriteString("diff --git a/" + u.Path + " b/" + u.Path + "\n")
	for _, l := range u.Added {
		b.WriteString("+" + l + "\n")
	}
	return b.String(), u
}

func signToken(t *testing.T) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"api_key": "ci-bot",
		"exp":     time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

func testRouter(t *testing.T, cfg *config.Config) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	diffText, unit := copiedDiffText()
	params := cfg.CheckParams()

	s := store.New(models.SourceKindPR, "valkey-io/valkey")
	nd := normalize.Unit(unit, params.Rules)
	require.NoError(t, s.Append(models.FingerprintRecord{
		SourceID:  "3080",
		SimHash:   fingerprint.SimHash(nd, params.ShingleWidth),
		PatchID:   fingerprint.UnitPatchID(unit),
		FilePaths: []string{unit.Path},
	}))

	fetcher := fetch.FetcherFunc(func(ctx context.Context, src models.SourceRef) (string, error) {
		return diffText, nil
	})

	pool := provenance.NewWorkerPool(context.Background(), 2)
	t.Cleanup(pool.Close)

	return SetupRoutes(cfg, []*store.Store{s}, fetcher, pool, nil)
}

func doCheck(t *testing.T, router *gin.Engine, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/check", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHealthEndpoint(t *testing.T) {
	router := testRouter(t, testConfig())

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "healthy")
}

func TestCheckRequiresAuth(t *testing.T) {
	router := testRouter(t, testConfig())

	w := doCheck(t, router, "", models.CheckRequest{Diff: "x"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCheckRejectsBadToken(t *testing.T) {
	router := testRouter(t, testConfig())

	w := doCheck(t, router, "not-a-token", models.CheckRequest{Diff: "x"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCheckRejectsEmptyDiff(t *testing.T) {
	router := testRouter(t, testConfig())

	w := doCheck(t, router, signToken(t), models.CheckRequest{Diff: ""})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCheckMatchesKnownContent(t *testing.T) {
	router := testRouter(t, testConfig())
	diffText, _ := copiedDiffText()

	w := doCheck(t, router, signToken(t), models.CheckRequest{
		Diff:     diffText,
		PRNumber: 42,
		Repo:     "valkey-io/valkey",
	})
	require.Equal(t, http.StatusOK, w.Code)

	var resp models.CheckResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Matched)
	assert.False(t, resp.Incomplete)
	assert.NotEmpty(t, resp.CheckID)
	require.NotEmpty(t, resp.Evidence)
	assert.Equal(t, string(models.MatchExactPatch), resp.Evidence[0].MatchKind)
	assert.True(t, resp.Evidence[0].Accepted)
}

func TestCheckCleanDiffReturnsNoMatch(t *testing.T) {
	router := testRouter(t, testConfig())

	clean := "diff --git a/src/t_zset.c b/src/t_zset.c\n" +
		"+    zskiplistNode *zn = zslCreateNode(level, score, ele);\n" +
		"+    serverAssert(zn != NULL);\n" +
		"+    zn->backward = NULL;\n" +
		"+    zsl->length++;\n" +
		"+    updateSkiplistLevel(zsl, level);\n" +
		"+    return zn;\n"

	w := doCheck(t, router, signToken(t), models.CheckRequest{Diff: clean, PRNumber: 7})
	require.Equal(t, http.StatusOK, w.Code)

	var resp models.CheckResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Matched)
	assert.Empty(t, resp.Evidence)
}

func TestReportWithoutPersistence(t *testing.T) {
	router := testRouter(t, testConfig())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/report?repo=valkey-io/valkey&prNumber=42", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}
