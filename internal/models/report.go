package models

import "time"

// CheckRequest is the service-mode payload: a unified diff from the
// target repository plus enough metadata to report on it.
type CheckRequest struct {
	Diff     string `json:"diff"`
	PRNumber int    `json:"prNumber"`
	Repo     string `json:"repo"`
}

// CheckResponse is returned to the caller after a check run.
type CheckResponse struct {
	CheckID    string          `json:"checkId"`
	Matched    bool            `json:"matched"`
	Incomplete bool            `json:"incomplete"`
	Degraded   bool            `json:"degraded"`
	Evidence   []EvidenceEntry `json:"evidence"`
}

// EvidenceEntry is the flattened, persistable form of a validation
// verdict.
type EvidenceEntry struct {
	Source         SourceRef `json:"source" bson:"source"`
	MatchKind      string    `json:"matchKind" bson:"matchKind"`
	Distance       int       `json:"distance" bson:"distance"`
	Jaccard        float64   `json:"jaccard" bson:"jaccard"`
	SubsetCoverage float64   `json:"subsetCoverage" bson:"subsetCoverage"`
	Accepted       bool      `json:"accepted" bson:"accepted"`
	Status         string    `json:"status" bson:"status"`
}

// CheckReport is the evidence document persisted after a service-mode
// check.
type CheckReport struct {
	CheckID    string          `bson:"checkId"`
	Repo       string          `bson:"repo"`
	PRNumber   int             `bson:"prNumber"`
	Matched    bool            `bson:"matched"`
	Incomplete bool            `bson:"incomplete"`
	Degraded   bool            `bson:"degraded"`
	Evidence   []EvidenceEntry `bson:"evidence"`
	CreatedAt  time.Time       `bson:"createdAt"`
}

// EvidenceFromVerdicts flattens orchestrator verdicts for reporting.
func EvidenceFromVerdicts(verdicts []ValidationVerdict) []EvidenceEntry {
	entries := make([]EvidenceEntry, 0, len(verdicts))
	for _, v := range verdicts {
		entries = append(entries, EvidenceEntry{
			Source:         v.Candidate.Source,
			MatchKind:      string(v.Candidate.Kind),
			Distance:       v.Candidate.Distance,
			Jaccard:        v.Jaccard,
			SubsetCoverage: v.SubsetCoverage,
			Accepted:       v.Accepted(),
			Status:         string(v.Status),
		})
	}
	return entries
}
