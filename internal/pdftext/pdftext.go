// =============================================================================
// Vetspire Import - PDF Text Extraction
// =============================================================================
//
// Two extraction backends sit behind small capability interfaces:
//
//   content-stream : pdfcpu reads and validates the document and the text
//                    operators of every page content stream are decoded into
//                    lines (contentstream.go).
//   layout         : github.com/ledongthuc/pdf reports every glyph with its
//                    position; glyphs are merged into runs and the runs into
//                    rows (layout.go). This backend also implements
//                    PositionedExtractor, which the structured vaccine
//                    strategy needs.
//
// The backend is chosen by configuration (pdf_backend), never probed at
// runtime.
//
// =============================================================================

package pdftext

import (
	"context"
	"fmt"

	"github.com/john-osullivan/vetspire-import/internal/layout"
)

// Backend names accepted by New.
const (
	ContentStream = "content-stream"
	Layout        = "layout"
)

// TextExtractor returns the linearized text of a PDF, one logical line per
// text line.
type TextExtractor interface {
	ExtractText(ctx context.Context, path string) (string, error)
}

// PositionedExtractor returns the positioned text runs of every page.
type PositionedExtractor interface {
	ExtractPositioned(ctx context.Context, path string) ([]layout.Page, error)
}

// New returns the text extractor for backend. rowTolerance is used by
// backends that rebuild lines from positioned text.
func New(backend string, rowTolerance float64) (TextExtractor, error) {
	switch backend {
	case "", ContentStream:
		return NewContentStreamExtractor(), nil
	case Layout:
		return NewLayoutExtractor(rowTolerance), nil
	default:
		return nil, fmt.Errorf("unknown pdf backend %q", backend)
	}
}
