package fingerprint

import (
	"encoding/binary"
	"math/bits"
	"strings"

	"golang.org/x/crypto/blake2b"

	"github.com/provguard/provguard/internal/models"
)

// SimHash computes a 64-bit locality-sensitive fingerprint of a
// normalized diff. Each overlapping token shingle is hashed to 64 bits
// and votes +1/-1 per bit; the sign of the accumulated vote decides the
// output bit. Small localized edits flip few shingles and therefore few
// bits.
func SimHash(nd models.NormalizedDiff, shingleWidth int) uint64 {
	words := nd.Words()
	if len(words) == 0 {
		return 0
	}

	var vector [64]int
	for _, shingle := range Shingles(words, shingleWidth) {
		h := hashShingle(shingle)
		for i := 0; i < 64; i++ {
			if h&(1<<uint(i)) != 0 {
				vector[i]++
			} else {
				vector[i]--
			}
		}
	}

	var fp uint64
	for i := 0; i < 64; i++ {
		if vector[i] > 0 {
			fp |= 1 << uint(i)
		}
	}
	return fp
}

// Shingles builds overlapping fixed-width token windows. Inputs shorter
// than the window contribute their tokens individually so tiny diffs
// still fingerprint.
func Shingles(words []string, width int) []string {
	if width < 1 {
		width = 1
	}
	if len(words) < width {
		return append([]string(nil), words...)
	}
	out := make([]string, 0, len(words)-width+1)
	for i := 0; i+width <= len(words); i++ {
		out = append(out, strings.Join(words[i:i+width], " "))
	}
	return out
}

// ShingleSet builds the set form used for Jaccard and coverage math.
func ShingleSet(words []string, width int) map[string]struct{} {
	shingles := Shingles(words, width)
	set := make(map[string]struct{}, len(shingles))
	for _, s := range shingles {
		set[s] = struct{}{}
	}
	return set
}

// HammingDistance counts differing bits between two fingerprints. It is
// symmetric and zero iff the fingerprints are equal.
func HammingDistance(a, b uint64) int {
	return bits.OnesCount64(a ^ b)
}

func hashShingle(s string) uint64 {
	h, _ := blake2b.New(8, nil)
	h.Write([]byte(s))
	return binary.BigEndian.Uint64(h.Sum(nil))
}
