package store

import (
	"compress/gzip"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/provguard/provguard/internal/fingerprint"
	"github.com/provguard/provguard/internal/models"
)

// SchemaVersion is the persisted database format this store can read.
const SchemaVersion = 1

// ErrCorruptDatabase is returned when the persisted form fails the
// version or integrity checks. It is fatal for the whole check.
var ErrCorruptDatabase = errors.New("corrupt fingerprint database")

// database is the persisted form: structured, versioned, gzip-compressed.
// The store only ever reads it; bootstrap and refresh jobs write it.
type database struct {
	SchemaVersion int                        `json:"schema_version"`
	Repo          string                     `json:"repo"`
	GeneratedAt   time.Time                  `json:"generated_at"`
	RecordCount   int                        `json:"record_count"`
	Records       []models.FingerprintRecord `json:"records"`
}

// Store is the in-memory index over one partition (source commits or
// source PRs) of the fingerprint database. It is read-only for the
// duration of a check; Append exists for the refresh collaborator, which
// never runs concurrently with checks.
type Store struct {
	kind      models.SourceKind
	repo      string
	records   []*models.FingerprintRecord
	byPatchID map[string]*models.FingerprintRecord
	byID      map[string]struct{}
}

// FuzzyMatch pairs a record with its Hamming distance from the queried
// fingerprint.
type FuzzyMatch struct {
	Record   *models.FingerprintRecord
	Distance int
}

// New creates an empty in-memory partition. Bootstrap jobs fill it with
// Append before serializing.
func New(kind models.SourceKind, repo string) *Store {
	return &Store{
		kind:      kind,
		repo:      repo,
		byPatchID: make(map[string]*models.FingerprintRecord),
		byID:      make(map[string]struct{}),
	}
}

// Load reads one partition from its serialized gzip+JSON form.
func Load(r io.Reader, kind models.SourceKind) (*Store, error) {
	gz, err := gzip.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptDatabase, err)
	}
	defer gz.Close()

	var db database
	if err := json.NewDecoder(gz).Decode(&db); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptDatabase, err)
	}
	if db.SchemaVersion != SchemaVersion {
		return nil, fmt.Errorf("%w: unknown schema version %d", ErrCorruptDatabase, db.SchemaVersion)
	}
	if db.RecordCount != len(db.Records) {
		return nil, fmt.Errorf("%w: record count %d does not match %d records", ErrCorruptDatabase, db.RecordCount, len(db.Records))
	}

	s := &Store{
		kind:      kind,
		repo:      db.Repo,
		byPatchID: make(map[string]*models.FingerprintRecord, len(db.Records)),
		byID:      make(map[string]struct{}, len(db.Records)),
	}
	for i := range db.Records {
		rec := &db.Records[i]
		if rec.SourceID == "" {
			return nil, fmt.Errorf("%w: record %d has no source id", ErrCorruptDatabase, i)
		}
		if _, dup := s.byID[rec.SourceID]; dup {
			return nil, fmt.Errorf("%w: duplicate source id %s", ErrCorruptDatabase, rec.SourceID)
		}
		s.byID[rec.SourceID] = struct{}{}
		s.records = append(s.records, rec)
		if rec.PatchID != "" {
			s.byPatchID[rec.PatchID] = rec
		}
	}

	log.Info().
		Str("kind", string(kind)).
		Str("repo", db.Repo).
		Int("records", len(s.records)).
		Msg("Fingerprint database loaded")

	return s, nil
}

// LoadFile opens and loads one partition from disk.
func LoadFile(path string, kind models.SourceKind) (*Store, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open fingerprint database: %w", err)
	}
	defer f.Close()
	return Load(f, kind)
}

// Kind returns the partition this store indexes.
func (s *Store) Kind() models.SourceKind {
	return s.kind
}

// Repo returns the source repository the partition was built from.
func (s *Store) Repo() string {
	return s.repo
}

// Len returns the number of indexed records.
func (s *Store) Len() int {
	return len(s.records)
}

// LookupExact returns the record whose patch id equals patchID, or nil.
func (s *Store) LookupExact(patchID string) *models.FingerprintRecord {
	if patchID == "" {
		return nil
	}
	return s.byPatchID[patchID]
}

// LookupFuzzy returns every record within maxDistance of the fingerprint,
// ranked by ascending Hamming distance. File-path overlap is a secondary
// ranking hint only, never a filter: a moved or renamed file must not
// hide a true content match.
func (s *Store) LookupFuzzy(simhash uint64, filePaths []string, maxDistance int) []FuzzyMatch {
	queryPaths := make(map[string]struct{}, len(filePaths))
	for _, p := range filePaths {
		queryPaths[p] = struct{}{}
	}

	var matches []FuzzyMatch
	overlap := make(map[string]int)
	for _, rec := range s.records {
		d := fingerprint.HammingDistance(simhash, rec.SimHash)
		if d > maxDistance {
			continue
		}
		matches = append(matches, FuzzyMatch{Record: rec, Distance: d})
		overlap[rec.SourceID] = pathOverlap(queryPaths, rec.FilePaths)
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Distance != matches[j].Distance {
			return matches[i].Distance < matches[j].Distance
		}
		return overlap[matches[i].Record.SourceID] > overlap[matches[j].Record.SourceID]
	})
	return matches
}

// Append adds a record to the in-memory index. The store never persists;
// writing the serialized form back is the refresh job's responsibility.
func (s *Store) Append(rec models.FingerprintRecord) error {
	if rec.SourceID == "" {
		return fmt.Errorf("record has no source id")
	}
	if _, dup := s.byID[rec.SourceID]; dup {
		return fmt.Errorf("duplicate source id %s", rec.SourceID)
	}
	stored := rec
	s.byID[stored.SourceID] = struct{}{}
	s.records = append(s.records, &stored)
	if stored.PatchID != "" {
		s.byPatchID[stored.PatchID] = &stored
	}
	return nil
}

func pathOverlap(query map[string]struct{}, paths []string) int {
	n := 0
	for _, p := range paths {
		if _, ok := query[p]; ok {
			n++
		}
	}
	return n
}
