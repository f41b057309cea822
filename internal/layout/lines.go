// =============================================================================
// Vetspire Import - Text Layout Normalizer
// =============================================================================
//
// This package turns raw PDF extraction output into something the report
// parsers can walk:
//   - Linearized text becomes an ordered list of trimmed, non-blank lines.
//   - Positioned text runs are clustered into visual rows (see rows.go).
//   - Legacy MM/DD/YYYY dates are normalized to ISO (see dates.go).
//
// GLUED KEYS:
//   The client/patient export sometimes loses the line break between two
//   labels, producing lines such as "clientStreetAddrpatientWeight".
//   RepairGluedKeys splits those back apart.
//
// =============================================================================

package layout

import (
	"strings"
)

// Lines splits text into trimmed lines and drops the blank ones.
func Lines(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	raw := strings.Split(text, "\n")
	lines := make([]string, 0, len(raw))
	for _, line := range raw {
		line = strings.TrimSpace(line)
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

// RepairGluedKeys splits every line that starts with a known key but carries
// more text after it. The key stays in place and the remainder is inserted as
// the next line, where it is visited in turn, so a run of several glued keys
// is unpicked left to right. Each line is split at most once per visit, which
// keeps the pass finite. Running the pass twice yields the same lines.
//
// When more than one key prefixes a line, the longest one wins.
func RepairGluedKeys(lines []string, keys []string) []string {
	out := make([]string, 0, len(lines))
	pending := append([]string(nil), lines...)

	for len(pending) > 0 {
		line := pending[0]
		pending = pending[1:]

		key := longestKeyPrefix(line, keys)
		if key == "" || len(line) == len(key) {
			out = append(out, line)
			continue
		}

		out = append(out, key)
		if rest := strings.TrimSpace(line[len(key):]); rest != "" {
			pending = append([]string{rest}, pending...)
		}
	}

	return out
}

func longestKeyPrefix(line string, keys []string) string {
	best := ""
	for _, key := range keys {
		if key != "" && strings.HasPrefix(line, key) && len(key) > len(best) {
			best = key
		}
	}
	return best
}
