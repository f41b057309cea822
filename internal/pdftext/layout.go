package pdftext

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/john-osullivan/vetspire-import/internal/layout"
)

// Glyph spacing thresholds, as fractions of the font size. A gap wider than
// wordGap inserts a space; wider than runGap starts a new run.
const (
	wordGap = 0.2
	runGap  = 1.5
)

// LayoutExtractor reads positioned glyphs with github.com/ledongthuc/pdf.
type LayoutExtractor struct {
	tolerance float64
}

// NewLayoutExtractor returns a layout extractor that groups rows with the
// given vertical tolerance.
func NewLayoutExtractor(tolerance float64) *LayoutExtractor {
	if tolerance <= 0 {
		tolerance = layout.DefaultRowTolerance
	}
	return &LayoutExtractor{tolerance: tolerance}
}

// ExtractText implements TextExtractor by rebuilding lines from rows.
func (e *LayoutExtractor) ExtractText(ctx context.Context, path string) (string, error) {
	pages, err := e.ExtractPositioned(ctx, path)
	if err != nil {
		return "", err
	}
	lines := layout.RowsToLines(layout.GroupRows(pages, e.tolerance))
	return strings.Join(lines, "\n"), nil
}

// ExtractPositioned implements PositionedExtractor. Y is flipped so it grows
// down the page.
func (e *LayoutExtractor) ExtractPositioned(ctx context.Context, path string) (pages []layout.Page, err error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	// The reader panics on some malformed content streams.
	defer func() {
		if p := recover(); p != nil {
			pages, err = nil, fmt.Errorf("read pdf %s: %v", path, p)
		}
	}()

	for i := 1; i <= r.NumPage(); i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		pages = append(pages, layout.Page{
			Number: i,
			Items:  mergeGlyphs(p.Content().Text),
		})
	}

	return pages, nil
}

// mergeGlyphs joins consecutive glyphs on the same baseline into runs.
func mergeGlyphs(glyphs []pdf.Text) []layout.Item {
	var (
		items []layout.Item
		run   strings.Builder
		cur   layout.Item
		endX  float64
		size  float64
		open  bool
	)

	flush := func() {
		if open {
			cur.Text = strings.TrimSpace(run.String())
			if cur.Text != "" {
				items = append(items, cur)
			}
		}
		run.Reset()
		open = false
	}

	for _, g := range glyphs {
		if g.S == "" {
			continue
		}
		y := -g.Y
		fs := g.FontSize
		if fs <= 0 {
			fs = 1
		}

		if open {
			gap := g.X - endX
			sameLine := math.Abs(y-cur.Y) < fs*0.5
			switch {
			case !sameLine || gap > fs*runGap || gap < -fs:
				flush()
			case gap > fs*wordGap:
				run.WriteString(" ")
			}
		}

		if !open {
			cur = layout.Item{X: g.X, Y: y}
			size = fs
			open = true
		}
		run.WriteString(g.S)
		endX = g.X + g.W
		if g.W == 0 {
			endX = g.X + size*0.5*float64(len([]rune(g.S)))
		}
	}
	flush()

	return items
}
