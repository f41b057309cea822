package vaccine

import (
	"strings"

	"github.com/john-osullivan/vetspire-import/internal/layout"
	"github.com/john-osullivan/vetspire-import/internal/types"
)

// Scan window around a lot header when looking for its values.
const (
	lotLookBehind = 3
	lotLookAhead  = 7
)

// ParseText extracts delivery rows from linearized report text.
func ParseText(text string) []types.VaccineDeliveryRow {
	return ParseLines(layout.Lines(text))
}

// ParseLines extracts delivery rows from normalized report lines. Lines that
// do not parse as a delivery row are skipped.
func ParseLines(lines []string) []types.VaccineDeliveryRow {
	var (
		rows       []types.VaccineDeliveryRow
		currentLot *types.LotMeta
		lotSeen    bool
		inTable    bool
	)

	for i, line := range lines {
		switch {
		case isLotHeader(line):
			lot, found := findLot(lines, i)
			switch {
			case found:
				currentLot = &lot
				lotSeen = true
			case !lotSeen:
				currentLot = &types.LotMeta{}
			}
			inTable = false

		case isTableHeader(line):
			// A table printed before any lot header is the error batch.
			if currentLot == nil {
				currentLot = &types.LotMeta{}
			}
			inTable = true

		case isTotals(line):
			inTable = false

		case inTable && currentLot != nil:
			if row, ok := ParseRow(line); ok {
				rows = append(rows, row.WithLot(*currentLot))
			}
		}
	}

	return rows
}

// findLot looks around the lot header at index i for the lot number,
// manufacturer and expiry date. Lines after the header are preferred; the
// look-behind only fills what is still missing. The first line carrying a lot
// number also supplies the manufacturer and expiry when it prints them. found
// is false when neither a lot number nor a manufacturer turned up.
func findLot(lines []string, i int) (types.LotMeta, bool) {
	var lot types.LotMeta

	// The header line itself may carry the values after its labels.
	mergeLot(&lot, lineLot(lines[i]))

	for j := i + 1; j < len(lines) && j <= i+lotLookAhead; j++ {
		if isTableHeader(lines[j]) || isTotals(lines[j]) || isLotHeader(lines[j]) {
			break
		}
		mergeLot(&lot, lineLot(lines[j]))
	}

	for j := i - 1; j >= 0 && j >= i-lotLookBehind; j-- {
		if isTableHeader(lines[j]) || isTotals(lines[j]) || isLotHeader(lines[j]) {
			break
		}
		if leadingDatesRegexp.MatchString(lines[j]) {
			break
		}
		mergeLot(&lot, lineLot(lines[j]))
	}

	return lot, lot.LotNumber != "" || lot.Manufacturer != ""
}

// lineLot classifies the tokens of one line: the first lot-shaped token, the
// first whole date and the manufacturer words joined in order.
func lineLot(line string) types.LotMeta {
	var lot types.LotMeta
	var maker []string
	for _, tok := range strings.Fields(line) {
		switch {
		case wholeDatePattern.MatchString(tok):
			if lot.ExpiryDate == "" {
				lot.ExpiryDate = layout.NormalizeDate(tok)
			}
		case isLotToken(tok):
			if lot.LotNumber == "" {
				lot.LotNumber = tok
			}
		case isManufacturerWord(tok):
			maker = append(maker, tok)
		}
	}
	lot.Manufacturer = strings.Join(maker, " ")
	return lot
}

// mergeLot folds one line's values into lot. The first line with a lot number
// wins every field it prints; other lines only fill empty fields.
func mergeLot(lot *types.LotMeta, line types.LotMeta) {
	if lot.LotNumber == "" && line.LotNumber != "" {
		lot.LotNumber = line.LotNumber
		if line.Manufacturer != "" {
			lot.Manufacturer = line.Manufacturer
		}
		if line.ExpiryDate != "" {
			lot.ExpiryDate = line.ExpiryDate
		}
		return
	}
	if lot.Manufacturer == "" {
		lot.Manufacturer = line.Manufacturer
	}
	if lot.ExpiryDate == "" {
		lot.ExpiryDate = line.ExpiryDate
	}
}

// ParseRow parses one delivery table line of the form
//
//	<date> <date> <description> [<provider>] <Patient Name>[<tag>] <Family>, <Given>
//
// The two dates may be in either order; the earlier becomes DateGiven. Lot
// fields are left empty.
func ParseRow(line string) (types.VaccineDeliveryRow, bool) {
	var row types.VaccineDeliveryRow

	m := leadingDatesRegexp.FindStringSubmatch(strings.TrimSpace(line))
	if m == nil {
		return row, false
	}
	d1, d2 := layout.NormalizeDate(m[1]), layout.NormalizeDate(m[2])
	if d1 == "" || d2 == "" {
		return row, false
	}
	row.DateGiven, row.DateDue = orderDates(d1, d2)

	rest := m[3]
	comma := strings.LastIndex(rest, ",")
	if comma < 0 {
		return row, false
	}

	given := strings.TrimSpace(rest[comma+1:])
	if given == "" || strings.IndexFunc(given, isDigit) >= 0 {
		return row, false
	}
	row.ClientGivenName = given

	words := strings.Fields(rest[:comma])
	if len(words) == 0 {
		return row, false
	}
	family := tagSuffixPattern.ReplaceAllString(words[len(words)-1], "")
	if !isProperCase(family) {
		return row, false
	}
	row.ClientFamilyName = family

	before := tagSuffixPattern.ReplaceAllString(strings.Join(words[:len(words)-1], " "), "")
	words = strings.Fields(before)

	start := len(words)
	for start > 0 && isProperCase(words[start-1]) {
		start--
	}
	if start == len(words) {
		return row, false
	}
	row.PatientName = strings.Join(words[start:], " ")
	row.Description = cleanDescription(strings.Join(words[:start], " "))

	return row, true
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}
