package provenance

import (
	"context"
	"fmt"
	"sort"

	"github.com/rs/zerolog/log"

	"github.com/provguard/provguard/internal/diff"
	"github.com/provguard/provguard/internal/fetch"
	"github.com/provguard/provguard/internal/metrics"
	"github.com/provguard/provguard/internal/models"
	"github.com/provguard/provguard/internal/normalize"
	"github.com/provguard/provguard/internal/store"
)

// Check runs the full two-layer pipeline over a raw unified diff:
// pre-filters, normalization, Layer 1 candidate generation, and Layer 2
// validation with bounded parallelism. For a fixed database snapshot and
// fixed fetch responses the outcome is deterministic; the boolean result
// is a pure reduction over the verdict set, independent of validation
// order.
func Check(ctx context.Context, diffText string, stores []*store.Store, fetcher fetch.DiffFetcher, pool *WorkerPool, p CheckParams) (models.CheckResult, error) {
	if err := p.Validate(); err != nil {
		return models.CheckResult{}, fmt.Errorf("invalid check parameters: %w", err)
	}

	units := prepareUnits(diffText, p)
	normalized := normalize.Units(units, p.Rules)
	if normalized.Degraded {
		log.Warn().Msg("No known grammar for part of the diff, similarity confidence degraded")
	}
	if skip, reason := preFilter(units, normalized, p); skip {
		log.Info().Str("reason", reason).Msg("Diff below matching thresholds, skipping check")
		return models.CheckResult{Matched: false, Degraded: normalized.Degraded}, nil
	}

	candidates := GenerateCandidates(units, stores, p)
	metrics.CandidatesGenerated.Observe(float64(len(candidates)))
	if len(candidates) == 0 {
		return models.CheckResult{Matched: false, Degraded: normalized.Degraded}, nil
	}

	verdicts, incomplete := validateAll(ctx, candidates, normalized, fetcher, pool, p)

	result := models.CheckResult{Incomplete: incomplete, Degraded: normalized.Degraded, Evidence: verdicts}
	for _, v := range verdicts {
		if v.Accepted() {
			result.Matched = true
		}
		if v.Status == models.VerdictIncomplete {
			result.Incomplete = true
		}
	}

	// Evidence ordering is fixed after the fact; validation completion
	// order never shows through.
	sort.SliceStable(result.Evidence, func(i, j int) bool {
		return result.Evidence[i].Jaccard > result.Evidence[j].Jaccard
	})

	log.Info().
		Bool("matched", result.Matched).
		Bool("incomplete", result.Incomplete).
		Int("evidence", len(result.Evidence)).
		Msg("Provenance check complete")

	return result, nil
}

// prepareUnits strips branding-only hunks, splits the diff per file and
// drops infrastructure paths before any fingerprinting.
func prepareUnits(diffText string, p CheckParams) []models.DiffUnit {
	filtered := diff.FilterBrandingChanges(diffText, p.Rules)
	units := diff.SplitUnified(filtered)

	kept := units[:0]
	for _, u := range units {
		if diff.IsInfrastructurePath(u.Path, p.InfrastructurePatterns) {
			continue
		}
		kept = append(kept, u)
	}
	return kept
}

// preFilter applies the cheap triviality gates: too few tokens or lines,
// or a change that is primarily moved code. A filtered diff is a clean
// non-match, not an error.
func preFilter(units []models.DiffUnit, normalized models.NormalizedDiff, p CheckParams) (bool, string) {
	if len(normalized.Tokens) < p.MinTokens {
		return true, "below minimum token count"
	}
	if diff.CountChangedLines(units) < p.MinLines {
		return true, "below minimum changed lines"
	}
	if trivial, _ := diff.DetectCodeMovement(units, p.MinNetNewLines, p.MovementRatioThreshold); trivial {
		return true, "primarily code movement"
	}
	return false, ""
}

// validateAll fans candidates out to the worker pool and collects
// verdicts until all have reported or the deadline expires. On expiry
// in-flight fetches are abandoned and the partial evidence is returned
// with the incomplete flag set; a timeout must never masquerade as a
// clean pass.
func validateAll(ctx context.Context, candidates []models.MatchCandidate, prDiff models.NormalizedDiff, fetcher fetch.DiffFetcher, pool *WorkerPool, p CheckParams) ([]models.ValidationVerdict, bool) {
	resultChan := make(chan models.ValidationVerdict, len(candidates))
	doneChan := make(chan struct{}, len(candidates))

	submitted := 0
	for _, cand := range candidates {
		job := &ValidationJob{
			Candidate:  cand,
			PRDiff:     prDiff,
			Fetcher:    fetcher,
			Params:     p,
			ResultChan: resultChan,
			DoneChan:   doneChan,
		}
		if err := pool.Submit(job); err != nil {
			log.Error().Err(err).Str("source", cand.Source.String()).Msg("Failed to submit validation job")
			continue
		}
		submitted++
	}

	verdicts := make([]models.ValidationVerdict, 0, submitted)
	for len(verdicts) < submitted {
		select {
		case <-ctx.Done():
			log.Warn().
				Int("collected", len(verdicts)).
				Int("expected", submitted).
				Msg("Deadline expired during validation, returning partial evidence")
			return verdicts, true
		case v := <-resultChan:
			verdicts = append(verdicts, v)
		case <-doneChan:
		}
	}
	return verdicts, submitted < len(candidates)
}
