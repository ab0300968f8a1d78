package extract

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/hubenschmidt/go-docrag/core"
	"github.com/ledongthuc/pdf"
)

// PDF extracts text page by page, prefixing each page with "[Page N]".
// Scanned PDFs without a text layer come back empty.
func PDF(ctx context.Context, path string) (text string, err error) {
	// the pdf reader panics on some malformed files
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: malformed pdf: %v", core.ErrExtraction, r)
		}
	}()

	f, rdr, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("%w: open pdf: %w", core.ErrExtraction, err)
	}
	defer f.Close()

	var sb strings.Builder
	for i := 1; i <= rdr.NumPage(); i++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		page := rdr.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil || strings.TrimSpace(pageText) == "" {
			continue
		}
		fmt.Fprintf(&sb, "\n[Page %d]\n%s", i, pageText)
	}
	if sb.Len() > 0 {
		return sb.String(), nil
	}

	// some files only yield text through the whole-document reader
	var buf bytes.Buffer
	b, err := rdr.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("%w: read pdf text: %w", core.ErrExtraction, err)
	}
	if _, err := io.Copy(&buf, b); err != nil {
		return "", fmt.Errorf("%w: read pdf buffer: %w", core.ErrExtraction, err)
	}
	return buf.String(), nil
}
