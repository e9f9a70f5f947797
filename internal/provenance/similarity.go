package provenance

import (
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// Jaccard is intersection-over-union of two shingle sets.
func Jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0.0
	}
	inter := intersectionSize(a, b)
	union := len(a) + len(b) - inter
	if union == 0 {
		return 0.0
	}
	return float64(inter) / float64(union)
}

// SubsetCoverage is the fraction of the PR's own shingles found inside
// the source change. Asymmetric on purpose: a PR that copies a fragment
// of a much larger upstream change scores low on Jaccard but high here.
func SubsetCoverage(pr, source map[string]struct{}) float64 {
	if len(pr) == 0 {
		return 0.0
	}
	return float64(intersectionSize(pr, source)) / float64(len(pr))
}

// SequenceSimilarity measures positional agreement between two token
// streams. Auxiliary evidence only; it does not enter the acceptance
// rule.
func SequenceSimilarity(a, b []string) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0.0
	}
	textA := strings.Join(a, " ")
	textB := strings.Join(b, " ")

	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(textA, textB, false)

	matched := 0
	for _, d := range diffs {
		if d.Type == diffmatchpatch.DiffEqual {
			matched += len(d.Text)
		}
	}
	longest := len(textA)
	if len(textB) > longest {
		longest = len(textB)
	}
	return float64(matched) / float64(longest)
}

func intersectionSize(a, b map[string]struct{}) int {
	if len(b) < len(a) {
		a, b = b, a
	}
	n := 0
	for s := range a {
		if _, ok := b[s]; ok {
			n++
		}
	}
	return n
}
