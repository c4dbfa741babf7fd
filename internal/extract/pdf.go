package extract

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// errUnmappedFont is returned for composite fonts whose glyph ids cannot be
// mapped back to Unicode.
var errUnmappedFont = errors.New("font has no ToUnicode map")

var disableConfigDir sync.Once

// PDFText parses a PDF and returns the text of every page joined by newlines.
//
// pdfcpu reads the file in relaxed mode and rewrites it with a plain xref
// table, which repairs most producer quirks; the text itself is decoded by
// ledongthuc/pdf, which resolves font encodings and ToUnicode maps. Panics
// raised by either parser on malformed input are converted to errors.
func PDFText(data []byte) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdf parser panic: %v", r)
		}
	}()

	normalized, err := normalizePDF(data)
	if err != nil {
		return "", err
	}

	r, err := pdf.NewReader(bytes.NewReader(normalized), int64(len(normalized)))
	if err != nil {
		return "", fmt.Errorf("failed to open PDF: %w", err)
	}

	pages := make([]string, 0, r.NumPage())
	for pageNr := 1; pageNr <= r.NumPage(); pageNr++ {
		p := r.Page(pageNr)
		if p.V.IsNull() {
			pages = append(pages, "")
			continue
		}
		if font, ok := unmappedFont(p); ok {
			return "", fmt.Errorf("page %d uses %s: %w", pageNr, font, errUnmappedFont)
		}
		pageText, err := p.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("failed to extract text of page %d: %w", pageNr, err)
		}
		pages = append(pages, strings.TrimSpace(pageText))
	}
	return strings.Join(pages, "\n"), nil
}

func normalizePDF(data []byte) ([]byte, error) {
	// pdfcpu otherwise writes a config file under the user's home directory,
	// which is read-only on Cloud Functions.
	disableConfigDir.Do(api.DisableConfigDir)

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	conf.WriteObjectStream = false
	conf.WriteXRefStream = false

	ctx, err := api.ReadValidateAndOptimize(bytes.NewReader(data), conf)
	if err != nil {
		return nil, fmt.Errorf("failed to read PDF: %w", err)
	}
	if err := ctx.EnsurePageCount(); err != nil {
		return nil, fmt.Errorf("failed to get page count: %w", err)
	}

	var buf bytes.Buffer
	if err := api.WriteContext(ctx, &buf); err != nil {
		return nil, fmt.Errorf("failed to rewrite PDF: %w", err)
	}
	return buf.Bytes(), nil
}

// unmappedFont reports the first Type0 font on the page that uses an Identity
// encoding without a ToUnicode map. Its strings are glyph ids, not characters.
func unmappedFont(p pdf.Page) (string, bool) {
	for _, name := range p.Fonts() {
		f := p.Font(name)
		if f.V.Key("Subtype").Name() != "Type0" || !f.V.Key("ToUnicode").IsNull() {
			continue
		}
		switch f.V.Key("Encoding").Name() {
		case "Identity-H", "Identity-V":
			if base := f.BaseFont(); base != "" {
				return base, true
			}
			return name, true
		}
	}
	return "", false
}
