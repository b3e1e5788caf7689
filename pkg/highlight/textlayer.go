// Package highlight marks the text-layer spans of a PDF page that belong
// to a cited article, so the viewer can emphasize the article's heading
// and body without touching the rendered page image.
package highlight

import "strings"

// Span is one positioned text run of a page's text layer. Index is the
// span's position within the page, stable across passes.
type Span struct {
	Index int    `json:"index"`
	Text  string `json:"text"`
}

// Layer is the ordered text layer of a single page.
type Layer struct {
	Spans []Span `json:"spans"`
}

// LayerFromPageText builds a text layer from extracted page text, one
// span per non-empty line. Extraction emits text row by row, so lines
// approximate the visual spans of the page.
func LayerFromPageText(text string) Layer {
	var spans []Span
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		spans = append(spans, Span{Index: len(spans), Text: line})
	}
	return Layer{Spans: spans}
}
