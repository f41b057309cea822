// =============================================================================
// Vetspire Import - Immunization Proposals
// =============================================================================
//
// This module turns parsed vaccine delivery rows into immunization drafts
// for patients that already exist in Vetspire.
//
// MATCHING:
//   Rows and patients meet on a lower-cased key built from the patient name
//   and the owner's family and given names:
//     "buddy_(doe, john)"
//   The lookup is built from a patient snapshot. Every patient must carry
//   its client's names; the first patient with a key wins.
//
// UNMATCHED ROWS:
//   Rows without a patient are kept in the proposals file with up to three
//   similar keys from the lookup, so an operator can correct the report or
//   the patient record.
//
// =============================================================================

package immunization

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/john-osullivan/vetspire-import/internal/types"
)

// ReasonNoMatch marks an unmatched row.
const ReasonNoMatch = "no_match"

// MaxSuggestions is the number of similar keys listed for an unmatched row.
const MaxSuggestions = 3

// minSuggestionScore is the lowest similarity (0-100) worth suggesting.
const minSuggestionScore = 70

// =============================================================================
// DRAFTS
// =============================================================================

// ToDraft builds the immunization draft for a row attributed to patientID.
// Location and provider are filled in at import time.
func ToDraft(row types.VaccineDeliveryRow, patientID string) types.ImmunizationInput {
	return types.ImmunizationInput{
		PatientID:    patientID,
		Name:         row.Description,
		Date:         row.DateGiven,
		DueDate:      row.DateDue,
		LotNumber:    row.LotNumber,
		Manufacturer: row.Manufacturer,
		ExpiryDate:   row.ExpiryDate,
		Administered: true,
		Declined:     false,
		Historical:   true,
		IsRabies:     strings.Contains(strings.ToLower(row.Description), "rabies"),
	}
}

// =============================================================================
// PATIENT LOOKUP
// =============================================================================

// PatientClientKey builds the matching key for a patient and its owner.
func PatientClientKey(patientName, familyName, givenName string) string {
	key := fmt.Sprintf("%s_(%s, %s)", strings.TrimSpace(patientName), strings.TrimSpace(familyName), strings.TrimSpace(givenName))
	return strings.ToLower(key)
}

// Lookup maps patient/client keys to patient ids.
type Lookup map[string]string

// BuildPatientLookup indexes patients by PatientClientKey. It fails on the
// first patient missing its name or its client's names.
func BuildPatientLookup(patients []types.Patient) (Lookup, error) {
	lookup := make(Lookup, len(patients))
	for _, p := range patients {
		name := strings.TrimSpace(p.Name)
		var given, family string
		if p.Client != nil {
			given = strings.TrimSpace(p.Client.GivenName)
			family = strings.TrimSpace(p.Client.FamilyName)
		}
		if name == "" || given == "" || family == "" {
			return nil, fmt.Errorf("patient lookup requires client names; offending patient id=%s", p.ID)
		}

		key := PatientClientKey(name, family, given)
		if _, ok := lookup[key]; !ok {
			lookup[key] = p.ID
		}
	}
	return lookup, nil
}

// Suggest returns up to MaxSuggestions lookup keys similar to key, best
// first.
func (l Lookup) Suggest(key string) []string {
	type scored struct {
		key   string
		score int
	}
	var candidates []scored
	for k := range l {
		if s := similarity(key, k); s >= minSuggestionScore {
			candidates = append(candidates, scored{k, s})
		}
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		return candidates[i].key < candidates[j].key
	})

	out := []string{}
	for i := 0; i < len(candidates) && i < MaxSuggestions; i++ {
		out = append(out, candidates[i].key)
	}
	return out
}

// similarity scores two keys from 0 to 100 by edit distance, or by
// subsequence when one key is an abbreviation of the other.
func similarity(a, b string) int {
	if a == b {
		return 100
	}
	maxLen := len([]rune(a))
	if n := len([]rune(b)); n > maxLen {
		maxLen = n
	}
	if maxLen == 0 {
		return 0
	}

	score := 100 * (maxLen - fuzzy.LevenshteinDistance(a, b)) / maxLen
	if fuzzy.MatchFold(a, b) || fuzzy.MatchFold(b, a) {
		if score < minSuggestionScore {
			score = minSuggestionScore
		}
	}
	return score
}

// =============================================================================
// PROPOSALS
// =============================================================================

// Unmatched is a row no patient could be found for.
type Unmatched struct {
	Key         string                   `json:"key"`
	Row         types.VaccineDeliveryRow `json:"row"`
	Reason      string                   `json:"reason"`
	Suggestions []string                 `json:"suggestions"`
}

// Meta describes how a proposals file was produced.
type Meta struct {
	Timestamp         time.Time `json:"timestamp"`
	SourcePDF         string    `json:"sourcePdf"`
	Strategy          string    `json:"strategy"`
	TotalRows         int       `json:"totalRows"`
	TotalProposals    int       `json:"totalProposals"`
	TotalUnmatched    int       `json:"totalUnmatched"`
	UsedLookup        bool      `json:"usedLookup"`
	LocationIDPresent bool      `json:"locationIdPresent"`
	ProviderIDPresent bool      `json:"providerIdPresent"`
}

// File is the proposals artifact reviewed before import-immunizations.
type File struct {
	Meta      Meta                      `json:"meta"`
	Proposals []types.ImmunizationInput `json:"proposals"`
	Unmatched []Unmatched               `json:"unmatched"`
}

// Propose attributes rows to patients. A nil lookup leaves every row
// unmatched.
func Propose(rows []types.VaccineDeliveryRow, lookup Lookup) File {
	f := File{
		Proposals: []types.ImmunizationInput{},
		Unmatched: []Unmatched{},
	}
	for _, row := range rows {
		key := PatientClientKey(row.PatientName, row.ClientFamilyName, row.ClientGivenName)
		if id, ok := lookup[key]; ok {
			f.Proposals = append(f.Proposals, ToDraft(row, id))
			continue
		}
		f.Unmatched = append(f.Unmatched, Unmatched{
			Key:         key,
			Row:         row,
			Reason:      ReasonNoMatch,
			Suggestions: lookup.Suggest(key),
		})
	}

	f.Meta.TotalRows = len(rows)
	f.Meta.TotalProposals = len(f.Proposals)
	f.Meta.TotalUnmatched = len(f.Unmatched)
	f.Meta.UsedLookup = lookup != nil
	return f
}
