package extract

import (
	"archive/zip"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/hubenschmidt/go-docrag/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func writeDOCX(t *testing.T, name string, documentXML string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	f, err := os.Create(path)
	require.NoError(t, err)

	zw := zip.NewWriter(f)
	w, err := zw.Create("word/document.xml")
	require.NoError(t, err)
	_, err = w.Write([]byte(documentXML))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())
	return path
}

func TestRegistry_PlainText(t *testing.T) {
	r := NewRegistry()
	path := writeFile(t, "hours.TXT", "We open at 9. We close at 10.")

	text, err := r.Extract(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "We open at 9. We close at 10.", text)
}

func TestRegistry_Unsupported(t *testing.T) {
	r := NewRegistry()
	path := writeFile(t, "menu.xlsx", "data")

	_, err := r.Extract(context.Background(), path)
	assert.ErrorIs(t, err, core.ErrUnsupportedFormat)
	assert.False(t, r.Supports("menu.xlsx"))
	assert.True(t, r.Supports("Menu.PDF"))
}

func TestRegistry_EmptyTextIsExtractionError(t *testing.T) {
	r := NewRegistry()
	path := writeFile(t, "blank.md", "   \n\n ")

	_, err := r.Extract(context.Background(), path)
	assert.ErrorIs(t, err, core.ErrExtraction)
}

func TestRegistry_Extensions(t *testing.T) {
	r := NewRegistry()
	r.Register("csv", ExtractorFunc(PlainText))
	assert.Equal(t, []string{"csv", "docx", "htm", "html", "md", "pdf", "txt"}, r.Extensions())
}

func TestDOCX(t *testing.T) {
	xml := `<?xml version="1.0" encoding="UTF-8"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
  <w:body>
    <w:p><w:r><w:t>Daily specials.</w:t></w:r></w:p>
    <w:p><w:r><w:t xml:space="preserve">Soup </w:t></w:r><w:r><w:t>and salad.</w:t></w:r></w:p>
  </w:body>
</w:document>`
	path := writeDOCX(t, "specials.docx", xml)

	text, err := NewRegistry().Extract(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "Daily specials.\n\nSoup and salad.", text)
}

func TestDOCX_NotAZip(t *testing.T) {
	path := writeFile(t, "broken.docx", "not a zip")
	_, err := NewRegistry().Extract(context.Background(), path)
	assert.ErrorIs(t, err, core.ErrExtraction)
}

func TestHTML(t *testing.T) {
	page := `<html><head><title>Our Menu</title><style>p{color:red}</style></head>
<body>
  <nav>Home | About</nav>
  <h1>Starters</h1>
  <p>Garlic bread with butter.</p>
  <ul><li>Olives</li><li>Hummus</li></ul>
  <script>var x = 1;</script>
</body></html>`
	path := writeFile(t, "menu.html", page)

	text, err := NewRegistry().Extract(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "Our Menu.\n\nStarters\n\nGarlic bread with butter.\n\nOlives\n\nHummus", text)
	assert.NotContains(t, text, "var x")
	assert.NotContains(t, text, "Home | About")
}

func TestPDF_Malformed(t *testing.T) {
	path := writeFile(t, "scan.pdf", "%PDF-1.4 this is not really a pdf")
	_, err := NewRegistry().Extract(context.Background(), path)
	assert.ErrorIs(t, err, core.ErrExtraction)
}
