package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"luat-chat/internal/theme"
	"luat-chat/pkg/chat"
)

// ChatPage serves the chat shell at /
func (h *Handler) ChatPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			h.writeError(w, http.StatusNotFound, "not found", "")
			return
		}
		if r.Method != http.MethodGet {
			h.writeError(w, http.StatusMethodNotAllowed, "method not allowed", "")
			return
		}
		if h.theme == nil {
			h.writeError(w, http.StatusInternalServerError, "templates unavailable", "")
			return
		}

		data := &theme.TemplateData{
			Title:    "Trợ lý pháp luật",
			Version:  h.version,
			Dark:     h.manager.DarkTheme(r.Context()),
			PageName: "chat",
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := h.theme.RenderPage(w, "chat.html", data); err != nil {
			log.Printf("Failed to render chat page: %v", err)
		}
	}
}

// Ask handles question submissions at /api/ask
func (h *Handler) Ask() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			h.writeError(w, http.StatusMethodNotAllowed, "method not allowed", "")
			return
		}

		var req AskRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			log.Printf("Failed to decode ask request: %v", err)
			h.writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
			return
		}

		req.Question = strings.TrimSpace(req.Question)
		if req.Question == "" {
			h.writeError(w, http.StatusBadRequest, "question is required", "")
			return
		}

		conversationID := req.ConversationID
		if conversationID == "" {
			active, err := h.manager.ActiveConversation(r.Context())
			if err != nil {
				h.writeError(w, http.StatusInternalServerError, "failed to resolve conversation", err.Error())
				return
			}
			conversationID = active.ID
		}

		log.Printf("Question on conversation %s: %d characters", conversationID, len(req.Question))

		reply, err := h.manager.Send(r.Context(), conversationID, req.Question)
		if errors.Is(err, chat.ErrBusy) {
			h.writeError(w, http.StatusConflict, "conversation busy",
				"the conversation is still awaiting a response")
			return
		}
		if err != nil {
			h.writeError(w, http.StatusInternalServerError, "failed to process question", err.Error())
			return
		}

		h.writeJSON(w, http.StatusOK, h.messagePayload(reply))
	}
}

// Conversations handles /api/conversations: GET lists, POST creates.
func (h *Handler) Conversations() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			h.handleListConversations(w, r)
		case http.MethodPost:
			h.handleCreateConversation(w, r)
		default:
			h.writeError(w, http.StatusMethodNotAllowed, "method not allowed", "")
		}
	}
}

func (h *Handler) handleListConversations(w http.ResponseWriter, r *http.Request) {
	active, err := h.manager.ActiveConversation(r.Context())
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "failed to load conversations", err.Error())
		return
	}

	convs, err := h.manager.List(r.Context())
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "failed to load conversations", err.Error())
		return
	}

	payload := make([]ConversationPayload, 0, len(convs))
	for _, c := range convs {
		payload = append(payload, ConversationPayload{
			ID:     c.ID,
			Title:  c.Title,
			Pinned: c.Pinned,
			Active: c.ID == active.ID,
			Busy:   h.manager.IsBusy(c.ID),
		})
	}
	h.writeJSON(w, http.StatusOK, payload)
}

func (h *Handler) handleCreateConversation(w http.ResponseWriter, r *http.Request) {
	conv, err := h.manager.NewConversation(r.Context())
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "failed to create conversation", err.Error())
		return
	}
	h.writeJSON(w, http.StatusCreated, ConversationPayload{
		ID:     conv.ID,
		Title:  conv.Title,
		Active: true,
	})
}

// Conversation handles /api/conversations/{id}: GET loads, DELETE removes,
// PATCH renames or pins, POST activates.
func (h *Handler) Conversation() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimPrefix(r.URL.Path, "/api/conversations/")
		if id == "" || strings.Contains(id, "/") {
			h.writeError(w, http.StatusNotFound, "conversation not found", "")
			return
		}

		switch r.Method {
		case http.MethodGet:
			h.handleGetConversation(w, r, id)
		case http.MethodDelete:
			h.handleDeleteConversation(w, r, id)
		case http.MethodPatch:
			h.handleUpdateConversation(w, r, id)
		case http.MethodPost:
			h.handleActivateConversation(w, r, id)
		default:
			h.writeError(w, http.StatusMethodNotAllowed, "method not allowed", "")
		}
	}
}

func (h *Handler) handleGetConversation(w http.ResponseWriter, r *http.Request, id string) {
	conv, err := h.manager.Get(r.Context(), id)
	if err != nil {
		h.writeError(w, http.StatusNotFound, "conversation not found", err.Error())
		return
	}

	payload := ConversationPayload{
		ID:       conv.ID,
		Title:    conv.Title,
		Pinned:   conv.Pinned,
		Busy:     h.manager.IsBusy(conv.ID),
		Messages: make([]MessagePayload, 0, len(conv.Messages)),
	}
	for i := range conv.Messages {
		payload.Messages = append(payload.Messages, h.messagePayload(&conv.Messages[i]))
	}
	h.writeJSON(w, http.StatusOK, payload)
}

func (h *Handler) handleDeleteConversation(w http.ResponseWriter, r *http.Request, id string) {
	if err := h.manager.Delete(r.Context(), id); err != nil {
		h.writeError(w, http.StatusNotFound, "conversation not found", err.Error())
		return
	}
	log.Printf("Deleted conversation %s", id)
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "deleted", "id": id})
}

func (h *Handler) handleUpdateConversation(w http.ResponseWriter, r *http.Request, id string) {
	var req struct {
		Title  *string `json:"title,omitempty"`
		Pinned *bool   `json:"pinned,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	if req.Title != nil {
		if err := h.manager.Rename(r.Context(), id, *req.Title); err != nil {
			h.writeError(w, http.StatusNotFound, "conversation not found", err.Error())
			return
		}
	}
	if req.Pinned != nil {
		if err := h.manager.SetPinned(r.Context(), id, *req.Pinned); err != nil {
			h.writeError(w, http.StatusNotFound, "conversation not found", err.Error())
			return
		}
	}

	h.writeJSON(w, http.StatusOK, map[string]string{"status": "updated", "id": id})
}

func (h *Handler) handleActivateConversation(w http.ResponseWriter, r *http.Request, id string) {
	if err := h.manager.SetActive(r.Context(), id); err != nil {
		h.writeError(w, http.StatusNotFound, "conversation not found", err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "active", "id": id})
}

// Feedback handles verdict toggles at /api/feedback
func (h *Handler) Feedback() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			h.writeError(w, http.StatusMethodNotAllowed, "method not allowed", "")
			return
		}

		var req FeedbackToggleRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			h.writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
			return
		}

		pressed := chat.Feedback(req.Status)
		if pressed != chat.FeedbackLike && pressed != chat.FeedbackDislike {
			h.writeError(w, http.StatusBadRequest, "status must be like or dislike", "")
			return
		}

		verdict, err := h.manager.ToggleFeedback(r.Context(), req.MessageID, pressed)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, "failed to record feedback", err.Error())
			return
		}

		h.writeJSON(w, http.StatusOK, map[string]string{"feedback": string(verdict)})
	}
}

// Settings handles /api/settings: GET returns mode and theme, POST updates.
func (h *Handler) Settings() http.HandlerFunc {
	type settings struct {
		Mode string `json:"mode"`
		Dark bool   `json:"dark"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			h.writeJSON(w, http.StatusOK, settings{
				Mode: h.manager.Mode(r.Context()),
				Dark: h.manager.DarkTheme(r.Context()),
			})
		case http.MethodPost:
			var req struct {
				Mode *string `json:"mode,omitempty"`
				Dark *bool   `json:"dark,omitempty"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				h.writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
				return
			}
			if req.Mode != nil {
				if !chat.ValidMode(*req.Mode) {
					h.writeError(w, http.StatusBadRequest, "mode must be fast or quality", "")
					return
				}
				if err := h.manager.SetMode(r.Context(), *req.Mode); err != nil {
					h.writeError(w, http.StatusInternalServerError, "failed to store mode", err.Error())
					return
				}
			}
			if req.Dark != nil {
				if err := h.manager.SetDarkTheme(r.Context(), *req.Dark); err != nil {
					h.writeError(w, http.StatusInternalServerError, "failed to store theme", err.Error())
					return
				}
			}
			h.writeJSON(w, http.StatusOK, settings{
				Mode: h.manager.Mode(r.Context()),
				Dark: h.manager.DarkTheme(r.Context()),
			})
		default:
			h.writeError(w, http.StatusMethodNotAllowed, "method not allowed", "")
		}
	}
}

// Health handles health checks at /api/health
func (h *Handler) Health() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.writeJSON(w, http.StatusOK, map[string]string{
			"status":  "ok",
			"version": h.version,
		})
	}
}

// Metrics exposes Prometheus metrics at /api/metrics
func (h *Handler) Metrics() http.Handler {
	return promhttp.Handler()
}
