// internal/processor/pdf.go
package processor

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/nikkelr/chat-with-PDF/internal/models"

	"github.com/ledongthuc/pdf"
)

// Document is the text extracted from one PDF
type Document struct {
	Text  string
	Pages int
}

// ExtractText extracts the text of every page, in page order, from raw PDF bytes
func ExtractText(data []byte) (doc *Document, err error) {
	// The parser panics on some malformed inputs instead of returning an error.
	defer func() {
		if r := recover(); r != nil {
			doc = nil
			err = models.NewError(models.KindExtraction, "failed to parse PDF: %v", r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, models.WrapError(models.KindExtraction, err, "failed to open PDF")
	}

	b, err := r.GetPlainText()
	if err != nil {
		return nil, models.WrapError(models.KindExtraction, err, "failed to extract plain text")
	}

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(b); err != nil {
		return nil, models.WrapError(models.KindExtraction, err, "failed to read text")
	}

	text := buf.String()
	if strings.TrimSpace(text) == "" {
		return nil, models.NewError(models.KindExtraction, "PDF has no extractable text layer (%d pages)", r.NumPage())
	}

	return &Document{Text: text, Pages: r.NumPage()}, nil
}

// Preview returns at most limit characters of text. A truncated preview ends in "...".
func Preview(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	if limit <= len(ellipsis) {
		return string(runes[:limit])
	}
	return fmt.Sprintf("%s%s", string(runes[:limit-len(ellipsis)]), ellipsis)
}

const ellipsis = "..."
