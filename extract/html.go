package extract

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/hubenschmidt/go-docrag/core"
)

// HTML returns the visible text of a page, title first.
func HTML(ctx context.Context, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("%w: %w", core.ErrExtraction, err)
	}
	defer f.Close()

	doc, err := goquery.NewDocumentFromReader(f)
	if err != nil {
		return "", fmt.Errorf("%w: parse html: %w", core.ErrExtraction, err)
	}
	return htmlText(doc), nil
}

func htmlText(doc *goquery.Document) string {
	doc.Find("script, style, noscript, nav, footer").Remove()

	var parts []string
	if title := strings.TrimSpace(doc.Find("title").First().Text()); title != "" {
		parts = append(parts, title+".")
	}

	doc.Find("body").Find("h1, h2, h3, h4, h5, h6, p, li, td, th, blockquote, pre").Each(func(_ int, s *goquery.Selection) {
		// nested blocks are visited on their own
		if s.Find("p, li, blockquote").Length() > 0 {
			return
		}
		if text := strings.TrimSpace(s.Text()); text != "" {
			parts = append(parts, text)
		}
	})

	if len(parts) <= 1 {
		if body := strings.TrimSpace(doc.Find("body").Text()); body != "" {
			parts = append(parts, body)
		}
	}
	return strings.Join(parts, "\n\n")
}
