package layout

import (
	"sort"
	"strings"
)

// DefaultRowTolerance is the maximum vertical distance between two text runs
// that still belong to the same visual row.
const DefaultRowTolerance = 0.6

// Item is one positioned text run. Y grows down the page.
type Item struct {
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
	Text string  `json:"text"`
}

// Page is the positioned text of one PDF page.
type Page struct {
	Number int    `json:"number"`
	Items  []Item `json:"items"`
}

// Row is a group of text runs sharing a baseline, ordered left to right.
type Row struct {
	Page  int
	Y     float64
	Items []Item
}

// Text joins the row's runs left to right with single spaces.
func (r Row) Text() string {
	parts := make([]string, 0, len(r.Items))
	for _, it := range r.Items {
		if t := strings.TrimSpace(it.Text); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, " ")
}

// GroupRows clusters positioned runs into rows. Runs are sorted by page, y
// and x; a run joins the current row while its y is within tolerance of the
// row's first run. A tolerance <= 0 selects DefaultRowTolerance.
func GroupRows(pages []Page, tolerance float64) []Row {
	if tolerance <= 0 {
		tolerance = DefaultRowTolerance
	}

	var rows []Row
	for _, page := range pages {
		items := make([]Item, 0, len(page.Items))
		for _, it := range page.Items {
			if strings.TrimSpace(it.Text) != "" {
				items = append(items, it)
			}
		}
		sort.SliceStable(items, func(i, j int) bool {
			if items[i].Y != items[j].Y {
				return items[i].Y < items[j].Y
			}
			return items[i].X < items[j].X
		})

		var current *Row
		for _, it := range items {
			if current == nil || it.Y-current.Y >= tolerance {
				if current != nil {
					rows = append(rows, *current)
				}
				current = &Row{Page: page.Number, Y: it.Y}
			}
			current.Items = append(current.Items, it)
		}
		if current != nil {
			rows = append(rows, *current)
		}
	}

	for i := range rows {
		sort.SliceStable(rows[i].Items, func(a, b int) bool {
			return rows[i].Items[a].X < rows[i].Items[b].X
		})
	}
	return rows
}

// RowsToLines flattens rows into text lines so positioned extraction can
// feed the line-based parsers.
func RowsToLines(rows []Row) []string {
	lines := make([]string, 0, len(rows))
	for _, r := range rows {
		if t := r.Text(); t != "" {
			lines = append(lines, t)
		}
	}
	return lines
}
