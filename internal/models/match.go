package models

// MatchKind classifies how Layer 1 surfaced a candidate.
type MatchKind string

const (
	// MatchExactPatch means the patch-id matched a stored record exactly.
	MatchExactPatch MatchKind = "EXACT_PATCH"
	// MatchFuzzySimHash means the simhash fell within the distance bound.
	MatchFuzzySimHash MatchKind = "FUZZY_SIMHASH"
)

// MatchCandidate is a plausible source match produced by Layer 1, pending
// Layer 2 confirmation.
type MatchCandidate struct {
	Record   *FingerprintRecord
	Source   SourceRef
	Kind     MatchKind
	Distance int
}

// VerdictStatus is the outcome of Layer 2 validation for one candidate.
type VerdictStatus string

const (
	VerdictAccepted VerdictStatus = "accepted"
	VerdictRejected VerdictStatus = "rejected"
	// VerdictIncomplete means validation could not finish (exhausted
	// retries or deadline expiry); it is neither a match nor a clean miss.
	VerdictIncomplete VerdictStatus = "incomplete"
)

// ValidationVerdict is the Layer 2 result for one candidate.
// SequenceSimilarity is auxiliary evidence only; acceptance is decided by
// Jaccard and SubsetCoverage against the configured threshold.
type ValidationVerdict struct {
	Candidate          MatchCandidate
	Jaccard            float64
	SubsetCoverage     float64
	SequenceSimilarity float64
	Status             VerdictStatus
}

// Accepted reports whether the candidate validated as a match.
func (v ValidationVerdict) Accepted() bool {
	return v.Status == VerdictAccepted
}

// CheckResult is the reduced outcome of a whole check run. Evidence is
// sorted by Jaccard descending. Incomplete is set when any candidate
// could not be validated before the deadline. Degraded signals that part
// of the diff had no known grammar and similarity confidence is reduced.
type CheckResult struct {
	Matched    bool
	Incomplete bool
	Degraded   bool
	Evidence   []ValidationVerdict
}
