// =============================================================================
// Vetspire Import - Vaccine Delivery Report Extraction
// =============================================================================
//
// The vaccine delivery report groups administered vaccines by manufacturing
// lot. Each group starts with a lot header (lot number, manufacturer, expiry
// date), followed by a table of deliveries and a "Total Number of
// Vaccinations" footer:
//
//   Lot # Manufacturer Expiration Date
//   AB1234 Zoetis 12/31/2024
//   Date Given Date Due Patient Name Client Name Description
//   01/02/2023 01/02/2024 Rabies 1 Year DM Buddy Doe, John
//   Total Number of Vaccinations: 1
//
// Rows printed before the first lot header belong to the error batch and
// carry an empty LotMeta.
//
// STRATEGIES:
//   - text.go       : line heuristics over linearized text
//   - structured.go : column slicing over positioned text rows
//
// Both produce the same VaccineDeliveryRow shape with ISO dates.
//
// =============================================================================

package vaccine

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/john-osullivan/vetspire-import/internal/layout"
)

// UnknownDescription is used when a row carries no vaccine description.
const UnknownDescription = "Unknown (Legacy)"

var (
	lotHeaderPattern   = regexp.MustCompile(`(?i)^lot\s*#?\s*manufacturer`)
	totalsPattern      = regexp.MustCompile(`(?i)^total number of vaccinations`)
	datePattern        = regexp.MustCompile(`\d{1,2}/\d{1,2}/\d{4}`)
	wholeDatePattern   = regexp.MustCompile(`^\d{1,2}/\d{1,2}/\d{4}$`)
	leadingDatesRegexp = regexp.MustCompile(`^(\d{1,2}/\d{1,2}/\d{4})\s*(\d{1,2}/\d{1,2}/\d{4})\s*(.*)$`)
	lotTokenPattern    = regexp.MustCompile(`^[A-Za-z0-9]{3,}$`)
	tagSuffixPattern   = regexp.MustCompile(`\s*-+\d+(?:-+\d+)*\s*$`)
	providerCodeRegexp = regexp.MustCompile(`^[A-Z]{2,4}\d?$`)
)

// Words that appear in report headers and must never be taken for a
// manufacturer.
var headerWords = map[string]bool{
	"lot": true, "#": true, "manufacturer": true, "expiration": true,
	"expiry": true, "exp": true, "date": true, "number": true,
	"vaccine": true, "vaccines": true, "delivery": true, "report": true,
	"page": true, "of": true, "total": true, "patient": true,
	"client": true, "name": true, "description": true, "given": true,
	"due": true, "provider": true,
}

// isTableHeader reports whether line is the column header of a delivery table.
func isTableHeader(line string) bool {
	l := strings.ToLower(line)
	return strings.Contains(l, "patient name") &&
		strings.Contains(l, "client name") &&
		strings.Contains(l, "date")
}

func isLotHeader(line string) bool {
	return lotHeaderPattern.MatchString(strings.TrimSpace(line))
}

func isTotals(line string) bool {
	return totalsPattern.MatchString(strings.TrimSpace(line))
}

// isLotToken reports whether tok looks like a lot number: compact
// alphanumeric with at least one digit. All-digit tokens need five or more
// characters so table totals are not mistaken for lots.
func isLotToken(tok string) bool {
	if !lotTokenPattern.MatchString(tok) {
		return false
	}
	digits := 0
	for _, r := range tok {
		if unicode.IsDigit(r) {
			digits++
		}
	}
	if digits == 0 {
		return false
	}
	if digits == len(tok) && len(tok) < 5 {
		return false
	}
	return true
}

// isManufacturerWord reports whether tok can be part of a manufacturer name.
func isManufacturerWord(tok string) bool {
	if headerWords[strings.ToLower(strings.Trim(tok, ":"))] {
		return false
	}
	hasLetter := false
	for _, r := range tok {
		switch {
		case unicode.IsLetter(r):
			hasLetter = true
		case r == '&' || r == '.' || r == '-' || r == '\'' || r == ',':
		default:
			return false
		}
	}
	return hasLetter
}

// isProperCase reports whether tok is a capitalized name word such as
// "Buddy", "McDonald" or "O'Brien". All-caps codes are not proper case.
func isProperCase(tok string) bool {
	runes := []rune(tok)
	if len(runes) < 2 || !unicode.IsUpper(runes[0]) {
		return false
	}
	hasLower := false
	for _, r := range runes[1:] {
		switch {
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsUpper(r), r == '\'', r == '.', r == '-':
		default:
			return false
		}
	}
	return hasLower
}

// firstDate returns the first M/D/YYYY date in s, normalized, or "".
func firstDate(s string) string {
	return layout.NormalizeDate(datePattern.FindString(s))
}

// orderDates returns the earlier and later of two ISO dates.
func orderDates(a, b string) (string, string) {
	if b < a {
		return b, a
	}
	return a, b
}

// cleanDescription strips trailing provider codes and falls back to
// UnknownDescription.
func cleanDescription(desc string) string {
	words := strings.Fields(desc)
	for len(words) > 0 && providerCodeRegexp.MatchString(words[len(words)-1]) {
		words = words[:len(words)-1]
	}
	if len(words) == 0 {
		return UnknownDescription
	}
	return strings.Join(words, " ")
}
