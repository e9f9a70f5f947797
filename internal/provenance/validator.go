package provenance

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/provguard/provguard/internal/diff"
	"github.com/provguard/provguard/internal/fetch"
	"github.com/provguard/provguard/internal/fingerprint"
	"github.com/provguard/provguard/internal/models"
	"github.com/provguard/provguard/internal/normalize"
)

// ValidationJob validates one candidate on the worker pool.
type ValidationJob struct {
	Candidate  models.MatchCandidate
	PRDiff     models.NormalizedDiff
	Fetcher    fetch.DiffFetcher
	Params     CheckParams
	ResultChan chan<- models.ValidationVerdict
	DoneChan   chan<- struct{}
}

// Execute runs Layer 2 validation for the job's candidate.
func (j *ValidationJob) Execute(ctx context.Context) error {
	defer func() {
		select {
		case j.DoneChan <- struct{}{}:
		default:
		}
	}()

	verdict := ValidateCandidate(ctx, j.Candidate, j.PRDiff, j.Fetcher, j.Params)

	select {
	case <-ctx.Done():
		return ctx.Err()
	case j.ResultChan <- verdict:
		return nil
	}
}

// ValidateCandidate is Layer 2: fetch the candidate's authoritative diff,
// re-normalize it with the same rules, and compare token-shingle sets.
//
// A NotFound response means the source identifier no longer resolves
// (deleted or rebased); the candidate is rejected, never escalated to a
// failure. Exhausted retries or deadline expiry mark the verdict
// incomplete so the caller cannot mistake it for a clean miss.
func ValidateCandidate(ctx context.Context, cand models.MatchCandidate, prDiff models.NormalizedDiff, fetcher fetch.DiffFetcher, p CheckParams) models.ValidationVerdict {
	verdict := models.ValidationVerdict{Candidate: cand}

	sourceText, err := fetcher.FetchDiff(ctx, cand.Source)
	if err != nil {
		if fetch.IsNotFound(err) {
			log.Debug().Str("source", cand.Source.String()).Msg("Source no longer resolves, rejecting candidate")
			verdict.Status = models.VerdictRejected
			return verdict
		}
		log.Warn().Err(err).Str("source", cand.Source.String()).Msg("Layer 2 fetch failed, marking candidate incomplete")
		verdict.Status = models.VerdictIncomplete
		return verdict
	}

	sourceUnits := diff.SplitUnified(sourceText)
	sourceDiff := normalize.Units(sourceUnits, p.Rules)

	prWords := prDiff.Words()
	sourceWords := sourceDiff.Words()
	prShingles := fingerprint.ShingleSet(prWords, p.ShingleWidth)
	sourceShingles := fingerprint.ShingleSet(sourceWords, p.ShingleWidth)

	verdict.Jaccard = Jaccard(prShingles, sourceShingles)
	verdict.SubsetCoverage = SubsetCoverage(prShingles, sourceShingles)
	verdict.SequenceSimilarity = SequenceSimilarity(prWords, sourceWords)

	if verdict.Jaccard >= p.JaccardThreshold || verdict.SubsetCoverage >= p.JaccardThreshold {
		verdict.Status = models.VerdictAccepted
	} else {
		verdict.Status = models.VerdictRejected
	}

	log.Debug().
		Str("source", cand.Source.String()).
		Float64("jaccard", verdict.Jaccard).
		Float64("coverage", verdict.SubsetCoverage).
		Str("status", string(verdict.Status)).
		Msg("Layer 2 validation complete")

	return verdict
}
