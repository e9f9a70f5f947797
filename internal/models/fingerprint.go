package models

import "time"

// SourceKind identifies which partition of the fingerprint database a
// source identifier belongs to.
type SourceKind string

const (
	SourceKindPR     SourceKind = "pr"
	SourceKindCommit SourceKind = "commit"
)

// SourceRef identifies a change in the source repository: a PR number or
// a commit SHA, depending on Kind.
type SourceRef struct {
	Kind SourceKind `json:"kind" bson:"kind"`
	ID   string     `json:"id" bson:"id"`
}

func (r SourceRef) String() string {
	return string(r.Kind) + ":" + r.ID
}

// FingerprintRecord is one entry of the fingerprint database. Records are
// immutable once stored; the database only grows by append.
type FingerprintRecord struct {
	SourceID  string    `json:"source_id"`
	SimHash   uint64    `json:"simhash64"`
	PatchID   string    `json:"patch_id"`
	FilePaths []string  `json:"file_paths"`
	CreatedAt time.Time `json:"created_at"`
}
