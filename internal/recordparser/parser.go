// =============================================================================
// Vetspire Import - Client/Patient Record Parser
// =============================================================================
//
// The legacy practice-management system exports clients and patients as a
// PDF where every value is printed under its field label:
//
//   patientId
//   123
//   patientName
//   Buddy
//   ...
//
// This package rebuilds ClientPatientRecord values from that flat stream.
//
// ALGORITHM:
//   A single pass over the normalized lines.
//   1. "patientId" starts a new record; the previous one is kept only if it
//      has both a patient id and a patient name.
//   2. Any other known key fills a field of the current record. If the next
//      line is itself a key, the value is missing: the field stays empty and
//      only the key line is consumed, so the next key is read normally.
//   3. Unrecognized lines are skipped.
//   4. At the end of input the last record is kept under the same rule.
//
// =============================================================================

package recordparser

import (
	"github.com/john-osullivan/vetspire-import/internal/layout"
	"github.com/john-osullivan/vetspire-import/internal/types"
)

// Stats describes a parse run.
type Stats struct {
	// LinesScanned is the number of normalized lines walked.
	LinesScanned int

	// RecordsEmitted is the number of complete records returned.
	RecordsEmitted int

	// RecordsDropped is the number of records discarded for lacking a
	// patient id or name.
	RecordsDropped int

	// MissingValues is the number of keys whose value was absent.
	MissingValues int
}

// Parse normalizes raw extracted text, repairs glued keys and parses the
// resulting lines.
func Parse(text string) ([]types.ClientPatientRecord, Stats) {
	return ParseLines(PrepareLines(text))
}

// PrepareLines applies the normalizer and the glued-key repair pass.
func PrepareLines(text string) []string {
	return layout.RepairGluedKeys(layout.Lines(text), types.RecordKeys)
}

// ParseLines parses already normalized lines. Every returned record has a
// non-empty PatientID and PatientName.
func ParseLines(lines []string) ([]types.ClientPatientRecord, Stats) {
	var (
		records []types.ClientPatientRecord
		current *types.ClientPatientRecord
		stats   = Stats{LinesScanned: len(lines)}
	)

	flush := func() {
		if current == nil {
			return
		}
		if current.Complete() {
			records = append(records, *current)
			stats.RecordsEmitted++
		} else {
			stats.RecordsDropped++
		}
		current = nil
	}

	i := 0
	for i < len(lines) {
		key := lines[i]

		// A key on the last line has no value to read.
		if i+1 >= len(lines) || !types.IsRecordKey(key) {
			i++
			continue
		}

		if key == types.KeyPatientID {
			flush()
			current = &types.ClientPatientRecord{}
		} else if current == nil {
			i++
			continue
		}

		value := lines[i+1]
		if types.IsRecordKey(value) {
			current.Set(key, "")
			stats.MissingValues++
			i++
			continue
		}

		current.Set(key, value)
		i += 2
	}
	flush()

	return records, stats
}
