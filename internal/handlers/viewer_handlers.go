package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"

	"luat-chat/pkg/citation"
	"luat-chat/pkg/highlight"
	"luat-chat/pkg/lawapi"
	"luat-chat/pkg/metrics"
	"luat-chat/pkg/viewer"
)

// ViewerOpen handles /api/viewer/open: it resolves the cited article to a
// document, fetches and opens the PDF, finds the article's page, and
// returns the marked text layer. Opening never fails for lack of an exact
// source; the resolver falls back to a best-guess document.
func (h *Handler) ViewerOpen() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			h.writeError(w, http.StatusMethodNotAllowed, "method not allowed", "")
			return
		}

		var req OpenArticleRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			h.writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
			return
		}
		if strings.TrimSpace(req.Article) == "" {
			h.writeError(w, http.StatusBadRequest, "article is required", "")
			return
		}

		var sources []lawapi.PDFSource
		if req.MessageID > 0 {
			msg, err := h.manager.Message(r.Context(), req.MessageID)
			if err != nil {
				log.Printf("Viewer open: message %d not found, resolving without sources", req.MessageID)
			} else {
				sources = msg.PDFSources
			}
		}

		ref := citation.ArticleReference{ArticleNum: req.Article, ClauseNum: req.Clause}
		src := h.manager.Resolver().Resolve(ref, sources)

		token := h.viewer.Begin()

		data, err := h.api.GetDocument(r.Context(), src.DomainID, src.PDFFile)
		if err != nil {
			h.writeError(w, http.StatusBadGateway, "failed to fetch document", err.Error())
			return
		}

		doc, err := openDocument(data)
		if err != nil {
			h.writeError(w, http.StatusUnprocessableEntity, "failed to open document", err.Error())
			return
		}

		page := h.locator.LocatePage(r.Context(), src, doc)

		open := &viewer.Open{
			Source: *src,
			Title:  h.manager.Resolver().DisplayName(src),
			Doc:    doc,
			Page:   page,
		}
		if !h.viewer.Install(token, open) {
			// A later open or a close superseded this request.
			h.writeError(w, http.StatusConflict, "viewer superseded", "")
			return
		}

		snap, release, ok := h.viewer.Acquire()
		if !ok {
			// Closed between the install and the read.
			h.writeError(w, http.StatusConflict, "viewer superseded", "")
			return
		}
		defer release()

		log.Printf("Viewer opened %s/%s at page %d for article %s",
			src.DomainID, src.PDFFile, page, src.ArticleNum)
		h.renderViewerPage(w, r, snap)
	}
}

// ViewerPage handles /api/viewer/page: moves the open document to a page
// and returns that page's marked text layer.
func (h *Handler) ViewerPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			h.writeError(w, http.StatusMethodNotAllowed, "method not allowed", "")
			return
		}

		var req struct {
			Page int `json:"page"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			h.writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
			return
		}

		if _, ok := h.viewer.SetPage(req.Page); !ok {
			h.writeError(w, http.StatusNotFound, "no document open", "")
			return
		}
		open, release, ok := h.viewer.Acquire()
		if !ok {
			h.writeError(w, http.StatusNotFound, "no document open", "")
			return
		}
		defer release()
		h.renderViewerPage(w, r, open)
	}
}

// ViewerCurrent handles GET /api/viewer: returns the open document's
// current page, or 404 when the slot is empty.
func (h *Handler) ViewerCurrent() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			h.writeError(w, http.StatusMethodNotAllowed, "method not allowed", "")
			return
		}

		open, release, ok := h.viewer.Acquire()
		if !ok {
			h.writeError(w, http.StatusNotFound, "no document open", "")
			return
		}
		defer release()
		h.renderViewerPage(w, r, open)
	}
}

// ViewerClose handles /api/viewer/close: empties the slot and releases
// the document.
func (h *Handler) ViewerClose() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			h.writeError(w, http.StatusMethodNotAllowed, "method not allowed", "")
			return
		}

		h.viewer.Close()
		h.writeJSON(w, http.StatusOK, map[string]string{"status": "closed"})
	}
}

// renderViewerPage extracts and marks a pinned snapshot's current page.
// Extraction failures yield an empty layer rather than an error; the user
// can still page through the document.
func (h *Handler) renderViewerPage(w http.ResponseWriter, r *http.Request, open viewer.Open) {
	text, err := open.Doc.PageText(r.Context(), open.Page)
	if err != nil {
		log.Printf("Failed to extract page %d of %s: %v", open.Page, open.Source.PDFFile, err)
		text = ""
	}

	layer := highlight.LayerFromPageText(text)
	result := highlight.Mark(layer, open.Source.ArticleNum)
	metrics.RecordHighlight(result.Count())

	h.writeJSON(w, http.StatusOK, ViewerPayload{
		Title:      open.Title,
		Article:    articleLabel(open.Source.ArticleNum),
		Page:       open.Page,
		TotalPages: open.Doc.PageCount(),
		Found:      result.Found,
		Spans:      spanPayloads(layer, result),
	})
}

// articleLabel formats an article number for the viewer header.
func articleLabel(articleNum string) string {
	n := strings.TrimSpace(articleNum)
	if n == "" {
		return ""
	}
	if strings.HasPrefix(citation.Normalize(n), "dieu") {
		return n
	}
	return "Điều " + n
}
