package citation

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// stripMarks builds a transformer removing combining diacritical marks
// after NFD decomposition. A chain carries per-use transform buffers, so
// each call gets its own; sharing one across goroutines corrupts output.
func stripMarks() transform.Transformer {
	return transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
}

// Normalize folds text for article-number and page-text comparison:
// diacritics stripped, casefolded, đ/Đ mapped to d, whitespace trimmed.
// The backend and extracted PDF text often disagree on Unicode normal
// forms, so every comparison in the citation pipeline goes through this.
func Normalize(s string) string {
	if s == "" {
		return ""
	}

	// đ does not decompose to d + mark, so it needs an explicit mapping.
	s = strings.Map(func(r rune) rune {
		switch r {
		case 'đ', 'Đ':
			return 'd'
		}
		return r
	}, s)

	folded, _, err := transform.String(stripMarks(), s)
	if err != nil {
		// Transform failures degrade to the raw string rather than losing
		// the comparison entirely.
		folded = s
	}

	return strings.TrimSpace(strings.ToLower(folded))
}

// NormalizedArticleMarker returns the normalized header marker for an
// article number, e.g. "8" -> "dieu 8". Inputs that already spell out
// the marker, like "Điều 8", come through unchanged.
func NormalizedArticleMarker(articleNum string) string {
	n := Normalize(articleNum)
	if n == "" {
		return ""
	}
	if strings.HasPrefix(n, "dieu ") {
		return n
	}
	return "dieu " + n
}
