package handlers

import (
	"encoding/json"
	"html/template"
	"log"
	"net/http"
	"time"

	"luat-chat/internal/theme"
	"luat-chat/pkg/chat"
	"luat-chat/pkg/highlight"
	"luat-chat/pkg/lawapi"
	"luat-chat/pkg/locator"
	"luat-chat/pkg/metrics"
	"luat-chat/pkg/render"
	"luat-chat/pkg/viewer"
)

// Handler is the main handler struct containing shared dependencies
type Handler struct {
	manager  *chat.Manager
	api      *lawapi.Client
	locator  *locator.Locator
	renderer *render.Renderer
	viewer   *viewer.State
	theme    *theme.Renderer
	version  string
}

// Request and Response types
type AskRequest struct {
	ConversationID string `json:"conversation_id"`
	Question       string `json:"question"`
}

type MessagePayload struct {
	ID        int64              `json:"id"`
	Role      chat.Role          `json:"role"`
	Content   string             `json:"content"`
	HTML      template.HTML      `json:"html,omitempty"`
	Feedback  chat.Feedback      `json:"feedback,omitempty"`
	IsError   bool               `json:"is_error,omitempty"`
	Timing    *lawapi.TimingInfo `json:"timing,omitempty"`
	CreatedAt time.Time          `json:"created_at"`
}

type ConversationPayload struct {
	ID       string           `json:"id"`
	Title    string           `json:"title"`
	Pinned   bool             `json:"pinned"`
	Active   bool             `json:"active"`
	Busy     bool             `json:"busy"`
	Messages []MessagePayload `json:"messages,omitempty"`
}

type FeedbackToggleRequest struct {
	MessageID int64  `json:"message_id"`
	Status    string `json:"status"`
}

type OpenArticleRequest struct {
	MessageID int64  `json:"message_id"`
	Article   string `json:"article"`
	Clause    string `json:"clause,omitempty"`
}

type SpanPayload struct {
	Index int    `json:"index"`
	Text  string `json:"text"`
	Mark  string `json:"mark,omitempty"`
}

type ViewerPayload struct {
	Title      string        `json:"title"`
	Article    string        `json:"article"`
	Page       int           `json:"page"`
	TotalPages int           `json:"total_pages"`
	Found      bool          `json:"found"`
	Spans      []SpanPayload `json:"spans"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// openDocument is swappable so tests can substitute fixture documents
// for real PDF parsing.
var openDocument = func(data []byte) (viewer.Document, error) {
	return locator.OpenDocument(data)
}

// Constructor functions
func New(manager *chat.Manager, api *lawapi.Client, loc *locator.Locator) *Handler {
	return NewWithVersion(manager, api, loc, "dev")
}

func NewWithVersion(manager *chat.Manager, api *lawapi.Client, loc *locator.Locator, version string) *Handler {
	themeRenderer, err := theme.NewRenderer()
	if err != nil {
		log.Printf("Failed to create theme renderer: %v", err)
		themeRenderer = nil
	}
	return &Handler{
		manager:  manager,
		api:      api,
		locator:  loc,
		renderer: render.New(),
		viewer:   viewer.NewState(),
		theme:    themeRenderer,
		version:  version,
	}
}

// LoggingMiddleware logs HTTP requests with details and records Prometheus metrics
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		wrappedWriter := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		log.Printf("[%s] %s %s - User-Agent: %s",
			r.Method, r.URL.Path, r.RemoteAddr, r.UserAgent())

		next.ServeHTTP(wrappedWriter, r)

		duration := time.Since(start)
		metrics.RecordHTTPRequest(r.Method, r.URL.Path, wrappedWriter.statusCode, duration)

		log.Printf("[%s] %s %s - %d - %v",
			r.Method, r.URL.Path, r.RemoteAddr, wrappedWriter.statusCode, duration)
	})
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Utility functions
func (h *Handler) writeError(w http.ResponseWriter, status int, errType, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	response := ErrorResponse{
		Error:   errType,
		Message: message,
	}
	if err := json.NewEncoder(w).Encode(response); err != nil {
		log.Printf("Failed to encode error response: %v", err)
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("Failed to encode response: %v", err)
	}
}

// messagePayload converts a stored message for the wire, rendering
// assistant text to HTML with its article buttons.
func (h *Handler) messagePayload(msg *chat.Message) MessagePayload {
	payload := MessagePayload{
		ID:        msg.ID,
		Role:      msg.Role,
		Content:   msg.Content,
		Feedback:  msg.Feedback,
		IsError:   msg.IsError,
		Timing:    msg.Timing,
		CreatedAt: msg.CreatedAt,
	}

	if msg.Role == chat.RoleAssistant && !msg.IsError {
		html, err := h.renderer.RenderAnswer(msg.Content, msg.References)
		if err != nil {
			log.Printf("Failed to render message %d: %v", msg.ID, err)
		} else {
			payload.HTML = html
		}
	}

	return payload
}

// spanPayloads flattens a marked text layer for the wire.
func spanPayloads(layer highlight.Layer, result highlight.Result) []SpanPayload {
	spans := make([]SpanPayload, len(layer.Spans))
	for i, span := range layer.Spans {
		spans[i] = SpanPayload{Index: span.Index, Text: span.Text}
		switch result.Marks[i] {
		case highlight.MarkTitle:
			spans[i].Mark = "title"
		case highlight.MarkBody:
			spans[i].Mark = "body"
		}
	}
	return spans
}
