package provenance

import (
	"sort"

	"github.com/rs/zerolog/log"

	"github.com/provguard/provguard/internal/fingerprint"
	"github.com/provguard/provguard/internal/models"
	"github.com/provguard/provguard/internal/normalize"
	"github.com/provguard/provguard/internal/store"
)

// GenerateCandidates is Layer 1: from local data only, produce a ranked,
// deduplicated list of plausible source matches. An empty result is a
// valid, common outcome, not an error.
//
// Per file unit, an exact patch-id hit yields EXACT_PATCH at distance 0
// and skips the fuzzy lookup for that unit; certainty supersedes
// fuzziness. One extra aggregate simhash over all units together catches
// content redistributed across files differently than upstream.
func GenerateCandidates(units []models.DiffUnit, stores []*store.Store, p CheckParams) []models.MatchCandidate {
	best := make(map[models.SourceRef]models.MatchCandidate)

	for _, unit := range units {
		pid := fingerprint.UnitPatchID(unit)
		if pid != "" && recordExact(pid, stores, best) {
			continue
		}

		nd := normalize.Unit(unit, p.Rules)
		if nd.Empty() {
			continue
		}
		sh := fingerprint.SimHash(nd, p.ShingleWidth)
		recordFuzzy(sh, []string{unit.Path}, stores, p.MaxDistance, best)
	}

	aggregate := normalize.Units(units, p.Rules)
	if !aggregate.Empty() {
		sh := fingerprint.SimHash(aggregate, p.ShingleWidth)
		recordFuzzy(sh, unitPaths(units), stores, p.MaxDistance, best)
	}

	candidates := make([]models.MatchCandidate, 0, len(best))
	for _, c := range best {
		candidates = append(candidates, c)
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Distance != candidates[j].Distance {
			return candidates[i].Distance < candidates[j].Distance
		}
		if candidates[i].Kind != candidates[j].Kind {
			return candidates[i].Kind == models.MatchExactPatch
		}
		return candidates[i].Source.String() < candidates[j].Source.String()
	})

	log.Debug().
		Int("units", len(units)).
		Int("candidates", len(candidates)).
		Msg("Layer 1 candidate generation complete")

	return candidates
}

// recordExact registers exact patch-id hits across all partitions and
// reports whether any partition matched.
func recordExact(patchID string, stores []*store.Store, best map[models.SourceRef]models.MatchCandidate) bool {
	hit := false
	for _, s := range stores {
		rec := s.LookupExact(patchID)
		if rec == nil {
			continue
		}
		hit = true
		src := models.SourceRef{Kind: s.Kind(), ID: rec.SourceID}
		keep(best, models.MatchCandidate{
			Record:   rec,
			Source:   src,
			Kind:     models.MatchExactPatch,
			Distance: 0,
		})
	}
	return hit
}

func recordFuzzy(simhash uint64, paths []string, stores []*store.Store, maxDistance int, best map[models.SourceRef]models.MatchCandidate) {
	for _, s := range stores {
		for _, m := range s.LookupFuzzy(simhash, paths, maxDistance) {
			src := models.SourceRef{Kind: s.Kind(), ID: m.Record.SourceID}
			keep(best, models.MatchCandidate{
				Record:   m.Record,
				Source:   src,
				Kind:     models.MatchFuzzySimHash,
				Distance: m.Distance,
			})
		}
	}
}

// keep deduplicates by source id, retaining the best evidence: an exact
// hit always wins, otherwise the smaller distance.
func keep(best map[models.SourceRef]models.MatchCandidate, cand models.MatchCandidate) {
	prev, ok := best[cand.Source]
	if !ok {
		best[cand.Source] = cand
		return
	}
	if prev.Kind == models.MatchExactPatch {
		return
	}
	if cand.Kind == models.MatchExactPatch || cand.Distance < prev.Distance {
		best[cand.Source] = cand
	}
}

func unitPaths(units []models.DiffUnit) []string {
	paths := make([]string, 0, len(units))
	for _, u := range units {
		if u.Path != "" {
			paths = append(paths, u.Path)
		}
	}
	return paths
}
