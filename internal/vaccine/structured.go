package vaccine

import (
	"regexp"
	"sort"
	"strings"

	"github.com/john-osullivan/vetspire-import/internal/layout"
	"github.com/john-osullivan/vetspire-import/internal/types"
)

// Column names recognized in the delivery table header.
const (
	colDateGiven   = "date given"
	colDateDue     = "date due"
	colPatientName = "patient name"
	colClientName  = "client name"
	colDescription = "description"
)

var knownColumns = []string{colDateGiven, colDateDue, colPatientName, colClientName, colDescription}

// Lot header labels, matched at the start of a run.
var (
	lotLabelPattern    = regexp.MustCompile(`(?i)^lot\b\s*(?:#|number\b|no\b\.?)?\s*:?\s*`)
	makerLabelPattern  = regexp.MustCompile(`(?i)^manufacturer\b\s*:?\s*`)
	expiryLabelPattern = regexp.MustCompile(`(?i)^(?:expiration|expiry|exp)\b\.?(?:\s*date\b)?\s*:?\s*`)
)

type column struct {
	name string
	x    float64
}

// columnLayout slices a row into cells using the midpoints between column
// anchors as boundaries.
type columnLayout struct {
	columns []column
}

func (c columnLayout) cells(row layout.Row) map[string]string {
	parts := make(map[string][]string)
	for _, it := range row.Items {
		name := c.columnAt(it.X)
		if name == "" {
			continue
		}
		if t := strings.TrimSpace(it.Text); t != "" {
			parts[name] = append(parts[name], t)
		}
	}

	cells := make(map[string]string, len(parts))
	for name, p := range parts {
		cells[name] = strings.Join(p, " ")
	}
	return cells
}

func (c columnLayout) columnAt(x float64) string {
	if len(c.columns) == 0 {
		return ""
	}
	for i := 0; i < len(c.columns)-1; i++ {
		mid := (c.columns[i].x + c.columns[i+1].x) / 2
		if x < mid {
			return c.columns[i].name
		}
	}
	return c.columns[len(c.columns)-1].name
}

// ParsePositioned groups positioned text into rows and runs the structured
// strategy over them.
func ParsePositioned(pages []layout.Page, tolerance float64) []types.VaccineDeliveryRow {
	return ParseStructured(layout.GroupRows(pages, tolerance))
}

// ParseStructured extracts delivery rows from positioned rows. Lot headers
// are sliced at their label anchors, table rows at the column anchors of the
// most recent header row. Rows without a parseable date given are skipped.
func ParseStructured(rows []layout.Row) []types.VaccineDeliveryRow {
	var (
		out     []types.VaccineDeliveryRow
		lot     types.LotMeta
		table   *columnLayout
		lotSeen bool
	)

	for i, row := range rows {
		text := row.Text()
		lower := strings.ToLower(text)

		switch {
		case strings.Contains(lower, "lot") && strings.Contains(lower, "manufacturer"):
			next := layout.Row{}
			if i+1 < len(rows) {
				next = rows[i+1]
			}
			if found, ok := sliceLotHeader(row, next); ok || !lotSeen {
				lot = found
				lotSeen = lotSeen || ok
			}
			table = nil

		case isColumnHeader(lower):
			table = headerLayout(row)

		case isTotals(text):
			table = nil

		case table != nil:
			if r, ok := structuredRow(table.cells(row)); ok {
				out = append(out, r.WithLot(lot))
			}
		}
	}

	return out
}

func isColumnHeader(lower string) bool {
	return strings.Contains(lower, colDateGiven) &&
		strings.Contains(lower, colClientName) &&
		strings.Contains(lower, colDescription)
}

// headerLayout derives column anchors from a header row. Known column names
// may be split across several runs; unknown runs become anonymous columns so
// they still bound their neighbours.
func headerLayout(row layout.Row) *columnLayout {
	items := row.Items
	var cols []column

	for i := 0; i < len(items); {
		matched := false
		for span := 1; span <= 3 && i+span <= len(items) && !matched; span++ {
			phrase := joinItems(items[i : i+span])
			for _, name := range knownColumns {
				if phrase == name {
					cols = append(cols, column{name: name, x: items[i].X})
					i += span
					matched = true
					break
				}
			}
		}
		if !matched {
			cols = append(cols, column{name: "~" + strings.ToLower(strings.TrimSpace(items[i].Text)), x: items[i].X})
			i++
		}
	}

	sort.SliceStable(cols, func(a, b int) bool { return cols[a].x < cols[b].x })
	return &columnLayout{columns: cols}
}

func joinItems(items []layout.Item) string {
	parts := make([]string, len(items))
	for i, it := range items {
		parts[i] = strings.TrimSpace(it.Text)
	}
	return strings.ToLower(strings.Join(parts, " "))
}

// sliceLotHeader reads lot values from a lot header row. Values printed on
// the header row itself are split at the label anchors; otherwise the next
// row is read, assigning each run to the nearest label column.
func sliceLotHeader(header, next layout.Row) (types.LotMeta, bool) {
	var anchors []column
	values := make(map[string][]string)

	for _, it := range header.Items {
		text := strings.TrimSpace(it.Text)
		for {
			var name string
			var loc []int
			switch {
			case lotLabelPattern.MatchString(text) && !isLotToken(text):
				name, loc = "lot", lotLabelPattern.FindStringIndex(text)
			case makerLabelPattern.MatchString(text):
				name, loc = "manufacturer", makerLabelPattern.FindStringIndex(text)
			case expiryLabelPattern.MatchString(text):
				name, loc = "expiry", expiryLabelPattern.FindStringIndex(text)
			}
			if name == "" || loc[1] == 0 {
				break
			}
			anchors = append(anchors, column{name: name, x: it.X})
			text = strings.TrimSpace(text[loc[1]:])
		}
		if len(anchors) == 0 || onlyHeaderWords(text) {
			continue
		}
		current := anchors[len(anchors)-1].name
		values[current] = append(values[current], text)
	}

	if len(anchors) == 0 {
		return types.LotMeta{}, false
	}

	lot, ok := lotFromValues(values)
	if ok || isColumnHeader(strings.ToLower(next.Text())) || isTotals(next.Text()) {
		return lot, ok
	}

	// A header printed as one run gives every label the same x; the values
	// are then told apart by their shape.
	if distinctX(anchors) < 2 {
		lot = lineLot(next.Text())
		return lot, lot.LotNumber != "" || lot.Manufacturer != ""
	}

	sort.SliceStable(anchors, func(a, b int) bool { return anchors[a].x < anchors[b].x })
	lay := columnLayout{columns: anchors}
	below := make(map[string][]string)
	for name, v := range lay.cells(next) {
		below[name] = []string{v}
	}
	return lotFromValues(below)
}

func distinctX(cols []column) int {
	seen := make(map[float64]bool, len(cols))
	for _, c := range cols {
		seen[c.x] = true
	}
	return len(seen)
}

func lotFromValues(values map[string][]string) (types.LotMeta, bool) {
	lot := types.LotMeta{
		LotNumber:    firstLotToken(strings.Join(values["lot"], " ")),
		Manufacturer: strings.Join(values["manufacturer"], " "),
		ExpiryDate:   firstDate(strings.Join(values["expiry"], " ")),
	}
	return lot, lot.LotNumber != "" || lot.Manufacturer != ""
}

// onlyHeaderWords reports whether text holds nothing but label words and
// punctuation.
func onlyHeaderWords(text string) bool {
	for _, tok := range strings.Fields(text) {
		if !headerWords[strings.ToLower(strings.Trim(tok, ":#."))] && strings.Trim(tok, ":#.") != "" {
			return false
		}
	}
	return true
}

func firstLotToken(s string) string {
	for _, tok := range strings.Fields(s) {
		if isLotToken(tok) {
			return tok
		}
	}
	return ""
}

// structuredRow builds a delivery row from sliced cells.
func structuredRow(cells map[string]string) (types.VaccineDeliveryRow, bool) {
	row := types.VaccineDeliveryRow{
		DateGiven:   firstDate(cells[colDateGiven]),
		DateDue:     firstDate(cells[colDateDue]),
		PatientName: strings.TrimSpace(cells[colPatientName]),
		Description: cleanDescription(cells[colDescription]),
	}
	if row.DateGiven == "" {
		return row, false
	}

	client := strings.TrimSpace(cells[colClientName])
	if comma := strings.Index(client, ","); comma >= 0 {
		row.ClientFamilyName = strings.TrimSpace(client[:comma])
		row.ClientGivenName = strings.TrimSpace(client[comma+1:])
	} else if words := strings.Fields(client); len(words) > 0 {
		row.ClientFamilyName = words[len(words)-1]
		row.ClientGivenName = strings.Join(words[:len(words)-1], " ")
	}

	return row, true
}
