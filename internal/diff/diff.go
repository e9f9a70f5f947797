package diff

import (
	"regexp"
	"strings"

	"github.com/provguard/provguard/internal/models"
)

var fileHeaderRe = regexp.MustCompile(` b/(.*)$`)

// Metadata lines from mailbox-formatted patches; they carry commit
// metadata, not content, and must not reach fingerprinting.
var metadataPrefixes = []string{
	"From ", "From: ", "Date: ", "Subject: ",
	"Signed-off-by: ", "Co-authored-by: ",
	"index ", "--- ", "+++ ", "@@ ", "diff --git",
	"new file mode", "deleted file mode", "similarity index",
	"rename from", "rename to",
}

// SplitUnified parses a unified diff into per-file units, keeping only
// the added and removed line content. A diff without file headers
// becomes a single unit with an empty path.
func SplitUnified(diffText string) []models.DiffUnit {
	var units []models.DiffUnit
	current := models.DiffUnit{}
	flush := func() {
		if !current.Empty() {
			units = append(units, current)
		}
	}

	for _, line := range strings.Split(diffText, "\n") {
		if strings.HasPrefix(line, "diff --git") {
			flush()
			current = models.DiffUnit{}
			if m := fileHeaderRe.FindStringSubmatch(line); m != nil {
				current.Path = m[1]
			}
			continue
		}
		if isMetadataLine(line) {
			continue
		}
		switch {
		case strings.HasPrefix(line, "+"):
			current.Added = append(current.Added, line[1:])
		case strings.HasPrefix(line, "-"):
			current.Removed = append(current.Removed, line[1:])
		}
	}
	flush()
	return units
}

func isMetadataLine(line string) bool {
	for _, p := range metadataPrefixes {
		if strings.HasPrefix(line, p) {
			return true
		}
	}
	return false
}

// CountChangedLines totals added plus removed lines across units.
func CountChangedLines(units []models.DiffUnit) int {
	total := 0
	for _, u := range units {
		total += u.ChangedLines()
	}
	return total
}

// MovementStats describes how much of a diff is relocated rather than
// new content.
type MovementStats struct {
	NetNewLines   int
	MovementRatio float64
}

// DetectCodeMovement reports whether a change is primarily moved code.
// Lines that reappear verbatim on both sides are movement, not new
// content; comment lines are ignored on both sides.
func DetectCodeMovement(units []models.DiffUnit, minNetNewLines int, movementThreshold float64) (bool, MovementStats) {
	var added, removed []string
	for _, u := range units {
		for _, l := range u.Added {
			if clean := cleanContentLine(l); clean != "" {
				added = append(added, clean)
			}
		}
		for _, l := range u.Removed {
			if clean := cleanContentLine(l); clean != "" {
				removed = append(removed, clean)
			}
		}
	}

	removedSet := make(map[string]struct{}, len(removed))
	for _, l := range removed {
		removedSet[l] = struct{}{}
	}
	moved := 0
	seen := make(map[string]struct{}, len(added))
	for _, l := range added {
		if _, dup := seen[l]; dup {
			continue
		}
		seen[l] = struct{}{}
		if _, ok := removedSet[l]; ok {
			moved++
		}
	}

	stats := MovementStats{NetNewLines: len(added) - len(removed)}
	if len(added) > 0 {
		stats.MovementRatio = float64(moved) / float64(len(added))
	}
	trivial := stats.NetNewLines < minNetNewLines || stats.MovementRatio >= movementThreshold
	return trivial, stats
}

func cleanContentLine(line string) string {
	clean := strings.TrimSpace(line)
	for _, p := range []string{"//", "/*", "#"} {
		if strings.HasPrefix(clean, p) {
			return ""
		}
	}
	return clean
}

// IsInfrastructurePath reports whether a path matches any of the
// configured infrastructure patterns (build files, vendored deps, CI).
func IsInfrastructurePath(path string, patterns []string) bool {
	for _, p := range patterns {
		if p != "" && strings.Contains(path, p) {
			return true
		}
	}
	return false
}
