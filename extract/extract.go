// Package extract turns uploaded files into plain text for chunking.
package extract

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/hubenschmidt/go-docrag/core"
)

// Extractor returns the plain text of the file at path.
type Extractor interface {
	Extract(ctx context.Context, path string) (string, error)
}

// ExtractorFunc adapts a function to Extractor.
type ExtractorFunc func(ctx context.Context, path string) (string, error)

func (f ExtractorFunc) Extract(ctx context.Context, path string) (string, error) {
	return f(ctx, path)
}

// Registry dispatches on lower-cased file extension.
type Registry struct {
	byExt map[string]Extractor
}

// NewRegistry returns a registry with the built-in formats.
func NewRegistry() *Registry {
	r := &Registry{byExt: make(map[string]Extractor)}
	r.Register(".pdf", ExtractorFunc(PDF))
	r.Register(".docx", ExtractorFunc(DOCX))
	r.Register(".html", ExtractorFunc(HTML))
	r.Register(".htm", ExtractorFunc(HTML))
	r.Register(".txt", ExtractorFunc(PlainText))
	r.Register(".md", ExtractorFunc(PlainText))
	return r
}

func (r *Registry) Register(ext string, e Extractor) {
	r.byExt[normalizeExt(ext)] = e
}

// Supports reports whether a file name has a registered extension.
func (r *Registry) Supports(name string) bool {
	_, ok := r.byExt[normalizeExt(filepath.Ext(name))]
	return ok
}

// Extensions lists registered extensions without the dot, sorted.
func (r *Registry) Extensions() []string {
	out := make([]string, 0, len(r.byExt))
	for ext := range r.byExt {
		out = append(out, strings.TrimPrefix(ext, "."))
	}
	sort.Strings(out)
	return out
}

// Extract fails with core.ErrUnsupportedFormat for unknown extensions and
// core.ErrExtraction when nothing readable comes out.
func (r *Registry) Extract(ctx context.Context, path string) (string, error) {
	ext := normalizeExt(filepath.Ext(path))
	e, ok := r.byExt[ext]
	if !ok {
		return "", fmt.Errorf("%w: %q", core.ErrUnsupportedFormat, ext)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	text, err := e.Extract(ctx, path)
	if err != nil {
		return "", core.NewOpError("extract", filepath.Base(path), err)
	}
	if strings.TrimSpace(text) == "" {
		return "", core.NewOpError("extract", filepath.Base(path),
			fmt.Errorf("%w: no text could be extracted", core.ErrExtraction))
	}
	return text, nil
}

// PlainText reads the file as UTF-8 text.
func PlainText(ctx context.Context, path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("%w: %w", core.ErrExtraction, err)
	}
	return string(data), nil
}

func normalizeExt(ext string) string {
	ext = strings.ToLower(ext)
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}
