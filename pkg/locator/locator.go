package locator

import (
	"context"
	"log"
	"strconv"
	"strings"
	"time"

	"luat-chat/pkg/citation"
	"luat-chat/pkg/lawapi"
	"luat-chat/pkg/metrics"
)

const (
	// snippetProbeLen is how much of the normalized highlight snippet is
	// matched against page text during a scan.
	snippetProbeLen = 50

	defaultCacheTTL = 30 * time.Minute
)

// PageLookup asks the backend where an article starts. Implementations
// must treat failures as "not found"; the locator always has a fallback.
type PageLookup interface {
	FindArticlePage(ctx context.Context, domainID, articleNum string) (int, bool)
}

// Locator finds the page to open a document on for a cited article. It
// never fails: every call returns a page in [1, PageCount].
type Locator struct {
	lookup PageLookup
	cache  *pageCache
}

// Option configures a Locator.
type Option func(*Locator)

// WithCacheTTL overrides how long located pages are remembered.
func WithCacheTTL(ttl time.Duration) Option {
	return func(l *Locator) {
		l.cache = newPageCache(ttl)
	}
}

// New creates a locator. lookup may be nil, in which case the backend
// lookup step is skipped.
func New(lookup PageLookup, opts ...Option) *Locator {
	l := &Locator{
		lookup: lookup,
		cache:  newPageCache(defaultCacheTTL),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// LocatePage returns the page to display for src in doc. Precedence: the
// descriptor's explicit page, then the backend lookup, then a sequential
// text scan, then a heuristic estimate. The scan stops at the first page
// whose normalized text contains the article marker or the leading part
// of the highlight snippet; later pages are never read.
func (l *Locator) LocatePage(ctx context.Context, src *lawapi.PDFSource, doc PageSource) int {
	start := time.Now()

	if src.PageNum >= 1 {
		metrics.RecordPageLocate(time.Since(start), "explicit", 0)
		return clampPage(src.PageNum, doc.PageCount())
	}

	if l.lookup != nil && src.DomainID != "" && src.ArticleNum != "" {
		if page, ok := l.lookup.FindArticlePage(ctx, src.DomainID, src.ArticleNum); ok && page >= 1 {
			metrics.RecordPageLocate(time.Since(start), "lookup", 0)
			return clampPage(page, doc.PageCount())
		}
	}

	if page, ok := l.cache.get(src.PDFFile, src.ArticleNum); ok {
		metrics.RecordPageLocate(time.Since(start), "cache", 0)
		return clampPage(page, doc.PageCount())
	}

	if page, scanned, ok := l.scan(ctx, src, doc); ok {
		l.cache.set(src.PDFFile, src.ArticleNum, page)
		metrics.RecordPageLocate(time.Since(start), "scan", scanned)
		return page
	}

	page := EstimatePage(parseArticleNum(src.ArticleNum), doc.PageCount())
	metrics.RecordPageLocate(time.Since(start), "heuristic", doc.PageCount())
	return page
}

// scan walks pages in order and returns the first page whose normalized
// text contains the article marker or the highlight snippet probe. Both
// probes are checked on each page before moving to the next, so the
// earliest matching page wins regardless of which probe hit.
func (l *Locator) scan(ctx context.Context, src *lawapi.PDFSource, doc PageSource) (page, scanned int, ok bool) {
	marker := markerProbe(src.ArticleNum)
	snippet := snippetProbe(src.HighlightText)
	if marker == "" && snippet == "" {
		return 0, 0, false
	}

	total := doc.PageCount()
	for p := 1; p <= total; p++ {
		if ctx.Err() != nil {
			return 0, p - 1, false
		}

		text, err := doc.PageText(ctx, p)
		if err != nil {
			log.Printf("Page scan: failed to read page %d of %s: %v", p, src.PDFFile, err)
			continue
		}
		normText := citation.Normalize(text)

		if marker != "" && strings.Contains(normText, marker) {
			return p, p, true
		}
		if snippet != "" && strings.Contains(normText, snippet) {
			return p, p, true
		}
	}

	return 0, total, false
}

// markerProbe builds the normalized article marker, e.g. "dieu 8".
func markerProbe(articleNum string) string {
	n := strings.TrimSpace(articleNum)
	if n == "" {
		return ""
	}
	return citation.NormalizedArticleMarker(n)
}

// snippetProbe builds the secondary probe from a highlight snippet.
func snippetProbe(highlight string) string {
	norm := citation.Normalize(highlight)
	if norm == "" {
		return ""
	}
	runes := []rune(norm)
	if len(runes) > snippetProbeLen {
		runes = runes[:snippetProbeLen]
	}
	return strings.TrimSpace(string(runes))
}

// parseArticleNum extracts the leading integer from an article number
// string such as "8" or "Điều 8".
func parseArticleNum(articleNum string) int {
	fields := strings.Fields(articleNum)
	for _, f := range fields {
		if n, err := strconv.Atoi(f); err == nil {
			return n
		}
	}
	n, err := strconv.Atoi(strings.TrimSpace(articleNum))
	if err != nil {
		return 0
	}
	return n
}

func clampPage(page, total int) int {
	if page < 1 {
		return 1
	}
	if total > 0 && page > total {
		return total
	}
	return page
}
