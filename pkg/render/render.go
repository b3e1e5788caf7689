// Package render turns answer text into display-safe HTML. Answers are
// markdown with inline article references; references become focusable
// buttons that the chat page wires to the document viewer.
package render

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"luat-chat/pkg/citation"
)

// articleScheme is the private URI scheme carrying a reference key
// between the markdown stage and the anchor rewrite stage.
const articleScheme = "article:"

// Renderer converts cleaned answer text plus parsed references into HTML.
type Renderer struct {
	md goldmark.Markdown
}

// New creates a renderer with GitHub-flavored markdown extensions, which
// cover the tables and strikethrough the backend occasionally emits.
func New() *Renderer {
	return &Renderer{
		md: goldmark.New(goldmark.WithExtensions(extension.GFM)),
	}
}

// RenderAnswer renders text to HTML with every reference span replaced by
// an article button. Offsets in refs must point into text, as returned by
// the citation parser for the same string.
func (r *Renderer) RenderAnswer(text string, refs []citation.ArticleReference) (template.HTML, error) {
	var buf bytes.Buffer
	if err := r.md.Convert([]byte(linkify(text, refs)), &buf); err != nil {
		return "", fmt.Errorf("failed to render answer markdown: %w", err)
	}

	rewritten, err := rewriteArticleAnchors(buf.String())
	if err != nil {
		return "", fmt.Errorf("failed to rewrite article anchors: %w", err)
	}

	return template.HTML(rewritten), nil
}

// linkify replaces each reference span with a markdown link whose
// destination encodes the reference key. Spans with stale offsets are
// skipped rather than corrupting the surrounding text.
func linkify(text string, refs []citation.ArticleReference) string {
	if len(refs) == 0 {
		return text
	}

	var sb strings.Builder
	last := 0
	for _, ref := range refs {
		if ref.Start < last || ref.End > len(text) || ref.Start > ref.End {
			continue
		}
		sb.WriteString(text[last:ref.Start])
		sb.WriteString(fmt.Sprintf("[%s](%s%s)", ref.Text, articleScheme, ref.Key()))
		last = ref.End
	}
	sb.WriteString(text[last:])
	return sb.String()
}

// rewriteArticleAnchors parses rendered HTML and replaces every anchor
// with an article: destination by a button carrying the reference in
// data attributes. Ordinary links pass through untouched.
func rewriteArticleAnchors(fragment string) (string, error) {
	doc, err := html.Parse(strings.NewReader(fragment))
	if err != nil {
		return "", err
	}

	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		for c := n.FirstChild; c != nil; {
			next := c.NextSibling
			if c.Type == html.ElementNode && c.DataAtom == atom.A {
				if article, clause, ok := articleTarget(c); ok {
					replaceWithButton(n, c, article, clause)
				}
			} else {
				walk(c)
			}
			c = next
		}
	}
	walk(doc)

	body := findBody(doc)
	if body == nil {
		return fragment, nil
	}

	var out bytes.Buffer
	for c := body.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&out, c); err != nil {
			return "", err
		}
	}
	return out.String(), nil
}

// articleTarget extracts the article and clause numbers from an anchor's
// href when it uses the article scheme.
func articleTarget(a *html.Node) (article, clause string, ok bool) {
	for _, attr := range a.Attr {
		if attr.Key != "href" || !strings.HasPrefix(attr.Val, articleScheme) {
			continue
		}
		key := strings.TrimPrefix(attr.Val, articleScheme)
		if key == "" {
			return "", "", false
		}
		parts := strings.SplitN(key, ":", 2)
		article = parts[0]
		if len(parts) == 2 {
			clause = parts[1]
		}
		return article, clause, true
	}
	return "", "", false
}

// replaceWithButton swaps an anchor for a button with the same children.
// Buttons are keyboard-activatable without extra wiring, which anchors
// with a dead href are not.
func replaceWithButton(parent, a *html.Node, article, clause string) {
	attrs := []html.Attribute{
		{Key: "type", Val: "button"},
		{Key: "class", Val: "article-ref"},
		{Key: "data-article", Val: article},
	}
	if clause != "" {
		attrs = append(attrs, html.Attribute{Key: "data-clause", Val: clause})
	}

	btn := &html.Node{
		Type:     html.ElementNode,
		Data:     "button",
		DataAtom: atom.Button,
		Attr:     attrs,
	}

	for c := a.FirstChild; c != nil; {
		next := c.NextSibling
		a.RemoveChild(c)
		btn.AppendChild(c)
		c = next
	}

	parent.InsertBefore(btn, a)
	parent.RemoveChild(a)
}

func findBody(doc *html.Node) *html.Node {
	var body *html.Node
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.DataAtom == atom.Body {
			body = n
			return
		}
		for c := n.FirstChild; c != nil && body == nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return body
}
