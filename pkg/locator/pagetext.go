// Package locator decides which page of a source PDF to display for a
// cited article: an explicit page from the backend when present, a
// best-effort server lookup, a sequential client-side text scan, or a
// heuristic estimate as the last resort.
package locator

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/dslipak/pdf"
	"github.com/gen2brain/go-fitz"
	"github.com/pdfcpu/pdfcpu/pkg/api"
)

// PageSource yields per-page text for a loaded document. Pages are
// 1-based. Implementations may extract lazily; the locator reads pages
// strictly sequentially and stops at the first match.
type PageSource interface {
	PageCount() int
	PageText(ctx context.Context, pageNum int) (string, error)
}

// Document is a PageSource over fetched PDF bytes. Text extraction goes
// through the primary parser first and falls back to MuPDF when the
// primary cannot read a page.
type Document struct {
	raw       []byte
	reader    *pdf.Reader
	fitzDoc   *fitz.Document
	pageCount int
}

// OpenDocument validates raw PDF bytes and prepares them for page-text
// extraction. Corrupt downloads fail here rather than mid-scan.
func OpenDocument(raw []byte) (*Document, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("document is empty")
	}

	rs := bytes.NewReader(raw)
	if err := api.Validate(rs, nil); err != nil {
		return nil, fmt.Errorf("invalid PDF document: %w", err)
	}

	if _, err := rs.Seek(0, 0); err != nil {
		return nil, fmt.Errorf("failed to rewind document: %w", err)
	}
	pageCount, err := api.PageCount(rs, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to count pages: %w", err)
	}
	if pageCount < 1 {
		return nil, fmt.Errorf("document has no pages")
	}

	doc := &Document{raw: raw, pageCount: pageCount}

	// The primary reader can reject documents the validator accepts; keep
	// going with the fallback extractor in that case.
	reader, err := pdf.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err == nil {
		doc.reader = reader
	}

	return doc, nil
}

// Close releases the fallback extractor if it was opened.
func (d *Document) Close() error {
	if d.fitzDoc != nil {
		err := d.fitzDoc.Close()
		d.fitzDoc = nil
		return err
	}
	return nil
}

// PageCount returns the number of pages in the document.
func (d *Document) PageCount() int {
	return d.pageCount
}

// PageText extracts the text of one page (1-based).
func (d *Document) PageText(ctx context.Context, pageNum int) (string, error) {
	if pageNum < 1 || pageNum > d.pageCount {
		return "", fmt.Errorf("page %d out of range [1,%d]", pageNum, d.pageCount)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	if d.reader != nil {
		text, err := d.primaryPageText(pageNum)
		if err == nil && strings.TrimSpace(text) != "" {
			return text, nil
		}
	}

	return d.fallbackPageText(pageNum)
}

// primaryPageText extracts a page with the primary parser. The underlying
// library panics on some malformed content streams, so the panic is
// converted to an error and the caller falls back.
func (d *Document) primaryPageText(pageNum int) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdf parser panic on page %d: %v", pageNum, r)
		}
	}()

	page := d.reader.Page(pageNum)
	if page.V.IsNull() {
		return "", nil
	}

	rows, err := page.GetTextByRow()
	if err != nil {
		// Fallback to plain text if row extraction fails
		var plain strings.Builder
		for _, t := range page.Content().Text {
			plain.WriteString(t.S)
			plain.WriteString(" ")
		}
		return strings.TrimSpace(plain.String()), nil
	}

	var sb strings.Builder
	for _, row := range rows {
		words := make([]string, 0, len(row.Content))
		for _, word := range row.Content {
			if word.S != "" {
				words = append(words, word.S)
			}
		}
		if len(words) > 0 {
			sb.WriteString(strings.Join(words, " "))
			sb.WriteString("\n")
		}
	}

	return strings.TrimSpace(sb.String()), nil
}

// fallbackPageText extracts a page with MuPDF, opening it lazily.
func (d *Document) fallbackPageText(pageNum int) (string, error) {
	if d.fitzDoc == nil {
		fd, err := fitz.NewFromMemory(d.raw)
		if err != nil {
			return "", fmt.Errorf("fallback extractor failed to open document: %w", err)
		}
		d.fitzDoc = fd
	}

	text, err := d.fitzDoc.Text(pageNum - 1) // fitz pages are 0-based
	if err != nil {
		return "", fmt.Errorf("failed to extract page %d: %w", pageNum, err)
	}

	return strings.TrimSpace(text), nil
}
