package pdftext

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"unicode/utf16"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"golang.org/x/text/encoding/charmap"
)

// ContentStreamExtractor decodes page content streams read with pdfcpu.
type ContentStreamExtractor struct {
	conf *model.Configuration
}

// NewContentStreamExtractor returns an extractor with pdfcpu's default
// configuration.
func NewContentStreamExtractor() *ContentStreamExtractor {
	api.DisableConfigDir()
	return &ContentStreamExtractor{conf: model.NewDefaultConfiguration()}
}

// ExtractText implements TextExtractor.
func (e *ContentStreamExtractor) ExtractText(ctx context.Context, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	pdfCtx, err := api.ReadValidateAndOptimize(f, e.conf)
	if err != nil {
		return "", fmt.Errorf("failed to read and validate PDF: %w", err)
	}

	var text strings.Builder
	for pageNr := 1; pageNr <= pdfCtx.PageCount; pageNr++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		r, err := pdfcpu.ExtractPageContent(pdfCtx, pageNr)
		if err != nil {
			return "", fmt.Errorf("page %d: %w", pageNr, err)
		}
		if r == nil {
			continue
		}
		content, err := io.ReadAll(r)
		if err != nil {
			return "", fmt.Errorf("page %d: %w", pageNr, err)
		}

		text.WriteString(DecodeContentStream(string(content)))
		text.WriteString("\n")
	}

	return text.String(), nil
}

// =============================================================================
// CONTENT STREAM DECODING
// =============================================================================

// DecodeContentStream walks the operators of a page content stream and
// returns the shown text. Text positioning operators that move to a new
// baseline start a new line; strings shown on the same baseline are joined.
func DecodeContentStream(content string) string {
	var (
		out      strings.Builder
		line     strings.Builder
		operands []string
		pending  []string
		lastY    float64
		haveY    bool
	)

	newline := func() {
		if s := strings.TrimSpace(line.String()); s != "" {
			out.WriteString(s)
			out.WriteString("\n")
		}
		line.Reset()
	}

	for i := 0; i < len(content); {
		c := content[i]
		switch {
		case c == '(':
			s, end := readLiteral(content, i)
			pending = append(pending, decodeLiteral(s))
			i = end

		case c == '<' && i+1 < len(content) && content[i+1] == '<':
			i += 2

		case c == '<':
			end := strings.IndexByte(content[i:], '>')
			if end < 0 {
				i = len(content)
				continue
			}
			pending = append(pending, decodeHex(content[i+1:i+end]))
			i += end + 1

		case c == '%':
			for i < len(content) && content[i] != '\n' && content[i] != '\r' {
				i++
			}

		case isDelimiter(c):
			i++

		default:
			start := i
			for i < len(content) && !isDelimiter(content[i]) && content[i] != '(' && content[i] != '<' {
				i++
			}
			tok := content[start:i]
			if isOperand(tok) {
				operands = append(operands, tok)
				continue
			}

			switch tok {
			case "Tj", "TJ":
				line.WriteString(strings.Join(pending, ""))
			case "'", "\"":
				newline()
				line.WriteString(strings.Join(pending, ""))
			case "T*", "ET":
				newline()
			case "Td", "TD":
				if len(operands) >= 2 && operandValue(operands[len(operands)-1]) != 0 {
					newline()
				} else {
					line.WriteString(" ")
				}
			case "Tm":
				if len(operands) >= 6 {
					y := operandValue(operands[5])
					if haveY && y == lastY {
						line.WriteString(" ")
					} else {
						newline()
					}
					lastY, haveY = y, true
				}
			}
			pending = pending[:0]
			operands = operands[:0]
		}
	}
	newline()

	return out.String()
}

func isDelimiter(c byte) bool {
	switch c {
	case ' ', '\t', '\r', '\n', '\f', 0, '[', ']', '{', '}', '>', ')':
		return true
	}
	return false
}

func operandValue(tok string) float64 {
	v, _ := strconv.ParseFloat(tok, 64)
	return v
}

func isOperand(tok string) bool {
	if tok == "" {
		return false
	}
	if tok[0] == '/' {
		return true
	}
	_, err := strconv.ParseFloat(tok, 64)
	return err == nil
}

// readLiteral reads a parenthesized string starting at start, honouring
// escapes and balanced nested parentheses. It returns the raw body and the
// index after the closing parenthesis.
func readLiteral(content string, start int) (string, int) {
	var body strings.Builder
	depth := 0
	for i := start; i < len(content); i++ {
		c := content[i]
		switch {
		case c == '\\' && i+1 < len(content):
			body.WriteByte(c)
			body.WriteByte(content[i+1])
			i++
		case c == '(':
			depth++
			if depth > 1 {
				body.WriteByte(c)
			}
		case c == ')':
			depth--
			if depth == 0 {
				return body.String(), i + 1
			}
			body.WriteByte(c)
		default:
			body.WriteByte(c)
		}
	}
	return body.String(), len(content)
}

// decodeLiteral resolves escape sequences and decodes the bytes as
// Windows-1252 when they are not plain ASCII.
func decodeLiteral(s string) string {
	var b []byte
	for i := 0; i < len(s); i++ {
		if s[i] != '\\' || i+1 >= len(s) {
			b = append(b, s[i])
			continue
		}
		i++
		switch s[i] {
		case 'n':
			b = append(b, '\n')
		case 'r':
			b = append(b, '\r')
		case 't':
			b = append(b, '\t')
		case 'b':
			b = append(b, '\b')
		case 'f':
			b = append(b, '\f')
		case '\n', '\r':
			// Line continuation.
		default:
			if s[i] >= '0' && s[i] <= '7' {
				j := i
				for j < len(s) && j < i+3 && s[j] >= '0' && s[j] <= '7' {
					j++
				}
				v, _ := strconv.ParseUint(s[i:j], 8, 8)
				b = append(b, byte(v))
				i = j - 1
			} else {
				b = append(b, s[i])
			}
		}
	}
	if len(b) >= 2 && b[0] == 0xFE && b[1] == 0xFF {
		return decodeUTF16BE(b[2:])
	}
	return decodeSingleByte(b)
}

// decodeHex decodes a hex string body, which may be UTF-16BE.
func decodeHex(hex string) string {
	hex = strings.Join(strings.Fields(hex), "")
	if len(hex)%2 != 0 {
		hex += "0"
	}
	b := make([]byte, 0, len(hex)/2)
	for i := 0; i+1 < len(hex); i += 2 {
		v, err := strconv.ParseUint(hex[i:i+2], 16, 8)
		if err != nil {
			return ""
		}
		b = append(b, byte(v))
	}

	switch {
	case len(b) >= 2 && b[0] == 0xFE && b[1] == 0xFF:
		return decodeUTF16BE(b[2:])
	case looksUTF16BE(b):
		return decodeUTF16BE(b)
	}
	return decodeSingleByte(b)
}

func decodeSingleByte(b []byte) string {
	ascii := true
	for _, c := range b {
		if c > 127 {
			ascii = false
			break
		}
	}
	if ascii {
		return string(b)
	}
	s, err := charmap.Windows1252.NewDecoder().Bytes(b)
	if err != nil {
		return string(b)
	}
	return string(s)
}

// looksUTF16BE reports whether most high bytes are zero, as in UTF-16BE
// encoded Latin text.
func looksUTF16BE(b []byte) bool {
	if len(b) < 4 || len(b)%2 != 0 {
		return false
	}
	zeros := 0
	for i := 0; i < len(b); i += 2 {
		if b[i] == 0 {
			zeros++
		}
	}
	return zeros*4 > len(b)
}

func decodeUTF16BE(b []byte) string {
	if len(b)%2 != 0 {
		b = append(b, 0)
	}
	u := make([]uint16, len(b)/2)
	for i := range u {
		u[i] = uint16(b[2*i])<<8 | uint16(b[2*i+1])
	}
	return string(utf16.Decode(u))
}
