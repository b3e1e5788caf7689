// Package citation parses Vietnamese statutory references ("Điều N",
// "Điều N Khoản M") out of answer text and resolves them to the source
// documents cited by the backend.
package citation

import (
	"regexp"
	"strings"

	"luat-chat/pkg/lawapi"
)

// ArticleReference is one parsed citation span. Offsets are byte positions
// into the cleaned answer text, so substituting Text back at [Start,End)
// reproduces the cleaned text exactly.
type ArticleReference struct {
	ArticleNum string
	ClauseNum  string // "Khoản" number, empty when absent
	Text       string // exact matched substring
	Start      int
	End        int

	// Source is the descriptor this reference resolved to. Populated by
	// Resolver.ResolveAll; never nil after resolution.
	Source *lawapi.PDFSource
}

// Key returns a stable identifier for the reference, e.g. "5" or "5:2".
func (r ArticleReference) Key() string {
	if r.ClauseNum != "" {
		return r.ArticleNum + ":" + r.ClauseNum
	}
	return r.ArticleNum
}

var (
	// articlePattern requires the literal marker word; a bare number is
	// never a reference. The optional clause suffix makes the match
	// leftmost-longest, so "Điều 5 Khoản 2" wins over "Điều 5".
	articlePattern = regexp.MustCompile(`Điều\s+(\d+)(?:\s+Khoản\s+(\d+))?`)

	// Backend artifacts: chunk-file names the generator sometimes leaves in
	// explanatory brackets, e.g. "[1, 2] luat_hon_nhan_hopnhat.json" or
	// "(của luat_dat_dai_hopnhat.json)".
	bracketListJSONPattern = regexp.MustCompile(`\[[\d,\s]*\]\s*[\w.\-]*\.json`)
	bracketJSONPattern     = regexp.MustCompile(`\[\s*[\w.\-]+\.json\s*\]`)
	possessiveJSONPattern  = regexp.MustCompile(`của\s+[\w.\-]+\.json`)
	bareJSONPattern        = regexp.MustCompile(`([\w.\-]+\.json)([\s,.);]|$)`)
)

// CleanAnswer strips document-internal filename artifacts from answer text.
// It never fails: text without artifacts is returned unchanged, and the
// operation is idempotent. Raw chunk-file names must never reach the user.
func CleanAnswer(text string) string {
	if text == "" {
		return ""
	}

	cleaned := bracketListJSONPattern.ReplaceAllString(text, "")
	cleaned = bracketJSONPattern.ReplaceAllString(cleaned, "")
	cleaned = possessiveJSONPattern.ReplaceAllString(cleaned, "")
	cleaned = bareJSONPattern.ReplaceAllString(cleaned, "$2")

	return strings.TrimSpace(cleaned)
}

// ParseReferences returns all article references in text, in document order,
// with offsets into text itself. Zero matches is a normal result.
func ParseReferences(text string) []ArticleReference {
	matches := articlePattern.FindAllStringSubmatchIndex(text, -1)
	if len(matches) == 0 {
		return nil
	}

	refs := make([]ArticleReference, 0, len(matches))
	for _, m := range matches {
		ref := ArticleReference{
			Text:       text[m[0]:m[1]],
			Start:      m[0],
			End:        m[1],
			ArticleNum: text[m[2]:m[3]],
		}
		if m[4] >= 0 {
			ref.ClauseNum = text[m[4]:m[5]]
		}
		refs = append(refs, ref)
	}

	return refs
}

// Parse cleans the answer text and parses its references in one step.
func Parse(text string) (string, []ArticleReference) {
	cleaned := CleanAnswer(text)
	return cleaned, ParseReferences(cleaned)
}
