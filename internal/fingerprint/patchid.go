package fingerprint

import (
	"encoding/hex"
	"sort"

	"golang.org/x/crypto/blake2b"

	"github.com/provguard/provguard/internal/models"
)

// PatchID derives a stable content-addressed identity from the add and
// remove lines of a diff. Context lines, hunk positions, file paths and
// commit metadata never enter the digest, so cherry-picks, rebases and
// context-window changes keep their identity while any content-line
// change alters it. Per-unit digests are sorted before the final hash so
// file reordering inside the patch does not matter either.
func PatchID(units []models.DiffUnit) string {
	digests := make([]string, 0, len(units))
	for _, u := range units {
		if u.Empty() {
			continue
		}
		digests = append(digests, unitDigest(u))
	}
	if len(digests) == 0 {
		return ""
	}
	sort.Strings(digests)

	h, _ := blake2b.New256(nil)
	for _, d := range digests {
		h.Write([]byte(d))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// UnitPatchID is the identity of a single file's change.
func UnitPatchID(u models.DiffUnit) string {
	return PatchID([]models.DiffUnit{u})
}

func unitDigest(u models.DiffUnit) string {
	h, _ := blake2b.New256(nil)
	// Direction markers keep an add/remove swap from colliding with the
	// original change.
	for _, line := range u.Removed {
		h.Write([]byte("-"))
		h.Write([]byte(line))
		h.Write([]byte("\n"))
	}
	for _, line := range u.Added {
		h.Write([]byte("+"))
		h.Write([]byte(line))
		h.Write([]byte("\n"))
	}
	return hex.EncodeToString(h.Sum(nil))
}
