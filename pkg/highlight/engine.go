package highlight

import (
	"regexp"
	"strings"

	"luat-chat/pkg/citation"
)

// SpanMark classifies one span of a marked layer.
type SpanMark int

const (
	MarkNone SpanMark = iota
	MarkTitle
	MarkBody
)

const (
	// titleContinuationMax is the longest span still treated as part of a
	// heading. Headings wrap in short runs; body paragraphs run long.
	titleContinuationMax = 50

	// maxBodySpans bounds how far marking extends past the heading when no
	// following article or chapter header terminates it.
	maxBodySpans = 60
)

var (
	nextArticlePattern = regexp.MustCompile(`^dieu\s+\d+`)
	chapterPattern     = regexp.MustCompile(`^chuong\s+`)
)

// Result is the outcome of one marking pass. Marks is parallel to the
// layer's spans. A miss leaves every span unmarked and Found false.
type Result struct {
	Found bool
	First int
	Marks []SpanMark
}

// Count returns the number of marked spans.
func (r Result) Count() int {
	n := 0
	for _, m := range r.Marks {
		if m != MarkNone {
			n++
		}
	}
	return n
}

// TitleText joins the marked title spans into the article heading.
func (r Result) TitleText(layer Layer) string {
	var parts []string
	for i, m := range r.Marks {
		if m == MarkTitle {
			parts = append(parts, layer.Spans[i].Text)
		}
	}
	return strings.Join(parts, " ")
}

// Mark finds the heading span of the given article and marks it, its
// short continuation spans as title, and the following spans as body
// until the next article or chapter header. Marking is deterministic:
// the same layer and article always produce the same marks. When the
// article's heading is not on the page, nothing is marked.
func Mark(layer Layer, articleNum string) Result {
	result := Result{First: -1, Marks: make([]SpanMark, len(layer.Spans))}

	marker := citation.NormalizedArticleMarker(articleNum)
	if marker == "" {
		return result
	}

	start := -1
	for i, span := range layer.Spans {
		if isArticleHeading(citation.Normalize(span.Text), marker) {
			start = i
			break
		}
	}
	if start == -1 {
		return result
	}

	result.Found = true
	result.First = start
	result.Marks[start] = MarkTitle

	// Short spans right after the heading are wrapped heading text.
	i := start + 1
	for ; i < len(layer.Spans); i++ {
		if len([]rune(layer.Spans[i].Text)) > titleContinuationMax {
			break
		}
		if isSectionBoundary(citation.Normalize(layer.Spans[i].Text)) {
			return result
		}
		result.Marks[i] = MarkTitle
	}

	body := 0
	for ; i < len(layer.Spans) && body < maxBodySpans; i++ {
		if isSectionBoundary(citation.Normalize(layer.Spans[i].Text)) {
			break
		}
		result.Marks[i] = MarkBody
		body++
	}

	return result
}

// isArticleHeading reports whether a normalized span opens the wanted
// article: the marker followed by a period, comma, colon, space or end.
func isArticleHeading(normText, marker string) bool {
	if !strings.HasPrefix(normText, marker) {
		return false
	}
	rest := normText[len(marker):]
	if rest == "" {
		return true
	}
	switch rest[0] {
	case '.', ',', ':', ' ':
		return true
	}
	return false
}

// isSectionBoundary reports whether a normalized span starts a different
// article or a chapter, ending the current article's region.
func isSectionBoundary(normText string) bool {
	return nextArticlePattern.MatchString(normText) || chapterPattern.MatchString(normText)
}
