// Package chat holds conversation state for the legal Q&A client: the
// message records, the persistent store, and the manager that runs the
// question round trip against the backend.
package chat

import (
	"strings"
	"time"

	"luat-chat/pkg/citation"
	"luat-chat/pkg/lawapi"
)

// Role distinguishes the two sides of a conversation.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Feedback is the user's verdict on an assistant message. Empty means no
// verdict.
type Feedback string

const (
	FeedbackNone    Feedback = ""
	FeedbackLike    Feedback = "like"
	FeedbackDislike Feedback = "dislike"
)

// ErrorAnswer is the apologetic reply shown when a question round trip
// fails. The wording matches what users of the service expect.
const ErrorAnswer = "Xin lỗi, đã có lỗi xảy ra khi xử lý câu hỏi của bạn. Vui lòng thử lại."

// titleRuneLimit caps conversation titles derived from the first question.
const titleRuneLimit = 30

// Message is one turn of a conversation. Assistant messages carry the
// parsed references and the backend's source descriptors so the viewer
// can be opened without re-asking.
type Message struct {
	ID             int64                       `json:"id"`
	ConversationID string                      `json:"conversation_id"`
	Role           Role                        `json:"role"`
	Content        string                      `json:"content"`
	References     []citation.ArticleReference `json:"references,omitempty"`
	Sources        []lawapi.Source             `json:"sources,omitempty"`
	PDFSources     []lawapi.PDFSource          `json:"pdf_sources,omitempty"`
	Timing         *lawapi.TimingInfo          `json:"timing,omitempty"`
	Feedback       Feedback                    `json:"feedback,omitempty"`
	IsError        bool                        `json:"is_error,omitempty"`
	CreatedAt      time.Time                   `json:"created_at"`
}

// Conversation is one chat thread. Messages is populated only when the
// thread is loaded in full; listings leave it nil.
type Conversation struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Pinned    bool      `json:"pinned"`
	Mode      string    `json:"mode"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Messages  []Message `json:"messages,omitempty"`
}

// TitleFromQuestion derives a conversation title from its first question:
// whitespace collapsed and truncated with an ellipsis past the limit.
func TitleFromQuestion(question string) string {
	title := strings.Join(strings.Fields(question), " ")
	if title == "" {
		return "Cuộc trò chuyện mới"
	}

	runes := []rune(title)
	if len(runes) <= titleRuneLimit {
		return title
	}
	return strings.TrimSpace(string(runes[:titleRuneLimit])) + "…"
}

// ToggleFeedback applies a feedback press to the current verdict:
// pressing the active verdict clears it, anything else replaces it.
func ToggleFeedback(current, pressed Feedback) Feedback {
	if current == pressed {
		return FeedbackNone
	}
	return pressed
}
