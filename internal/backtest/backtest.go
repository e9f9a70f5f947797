package backtest

import (
	"context"
	"strconv"

	"github.com/rs/zerolog/log"

	"github.com/provguard/provguard/internal/fetch"
	"github.com/provguard/provguard/internal/models"
	"github.com/provguard/provguard/internal/provenance"
	"github.com/provguard/provguard/internal/store"
)

// Status is the outcome of checking one PR in a backtest range.
type Status string

const (
	StatusPass    Status = "pass"
	StatusFlagged Status = "flagged"
	// StatusNotFound means the PR number does not resolve in the target
	// repository. It is expected in any contiguous range and never counts
	// toward the error total.
	StatusNotFound Status = "not_found"
	StatusError    Status = "error"
)

// Result is the per-PR outcome.
type Result struct {
	PRNumber int
	Status   Status
	Detail   string
	Evidence []models.EvidenceEntry
}

// Summary aggregates a whole backtest range.
type Summary struct {
	Total    int
	Flagged  []Result
	Errors   []Result
	NotFound int
}

// FlaggedNumbers returns the flagged PR numbers in range order.
func (s Summary) FlaggedNumbers() []int {
	nums := make([]int, 0, len(s.Flagged))
	for _, r := range s.Flagged {
		nums = append(nums, r.PRNumber)
	}
	return nums
}

// Runner replays the provenance check across a range of target PRs,
// typically to re-validate tuning changes against known positives.
type Runner struct {
	TargetFetcher fetch.DiffFetcher
	SourceFetcher fetch.DiffFetcher
	Stores        []*store.Store
	Pool          *provenance.WorkerPool
	Params        provenance.CheckParams
}

// Run checks every PR number in [start, end] and aggregates outcomes.
func (r *Runner) Run(ctx context.Context, start, end int) Summary {
	summary := Summary{}

	for n := start; n <= end; n++ {
		if ctx.Err() != nil {
			break
		}
		res := r.checkPR(ctx, n)
		summary.Total++

		switch res.Status {
		case StatusFlagged:
			summary.Flagged = append(summary.Flagged, res)
			log.Info().Int("pr", n).Str("detail", res.Detail).Msg("Backtest flagged PR")
		case StatusError:
			summary.Errors = append(summary.Errors, res)
			log.Warn().Int("pr", n).Str("detail", res.Detail).Msg("Backtest error on PR")
		case StatusNotFound:
			summary.NotFound++
		}

		if summary.Total%20 == 0 {
			log.Info().
				Int("checked", summary.Total).
				Int("flagged", len(summary.Flagged)).
				Msg("Backtest progress")
		}
	}

	log.Info().
		Int("total", summary.Total).
		Int("flagged", len(summary.Flagged)).
		Int("errors", len(summary.Errors)).
		Int("not_found", summary.NotFound).
		Msg("Backtest complete")

	return summary
}

func (r *Runner) checkPR(ctx context.Context, number int) Result {
	src := models.SourceRef{Kind: models.SourceKindPR, ID: strconv.Itoa(number)}

	diffText, err := r.TargetFetcher.FetchDiff(ctx, src)
	if err != nil {
		if fetch.IsNotFound(err) {
			return Result{PRNumber: number, Status: StatusNotFound}
		}
		return Result{PRNumber: number, Status: StatusError, Detail: err.Error()}
	}

	result, err := provenance.Check(ctx, diffText, r.Stores, r.SourceFetcher, r.Pool, r.Params)
	if err != nil {
		return Result{PRNumber: number, Status: StatusError, Detail: err.Error()}
	}

	if result.Matched {
		detail := ""
		for _, v := range result.Evidence {
			if v.Accepted() {
				detail = "matches " + v.Candidate.Source.String()
				break
			}
		}
		return Result{
			PRNumber: number,
			Status:   StatusFlagged,
			Detail:   detail,
			Evidence: models.EvidenceFromVerdicts(result.Evidence),
		}
	}
	return Result{PRNumber: number, Status: StatusPass}
}
