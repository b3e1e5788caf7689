package chat

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"luat-chat/pkg/citation"
	"luat-chat/pkg/lawapi"
	"luat-chat/pkg/metrics"
)

// Preference keys stored alongside conversations.
const (
	prefActiveConversation = "active_conversation"
	prefModelMode          = "model_mode"
	prefDarkTheme          = "dark_theme"
)

// Question modes the backend accepts.
const (
	ModeFast    = "fast"
	ModeQuality = "quality"
)

// DefaultMode is the question mode used until the user picks another.
const DefaultMode = ModeFast

// ValidMode reports whether mode names a backend question mode.
func ValidMode(mode string) bool {
	return mode == ModeFast || mode == ModeQuality
}

// ErrBusy is returned when a conversation already has a question in
// flight. Each conversation accepts one question at a time; other
// conversations stay usable.
var ErrBusy = errors.New("conversation is awaiting a response")

// Asker is the backend question round trip.
type Asker interface {
	Ask(ctx context.Context, question, mode string, history []lawapi.ChatTurn) (*lawapi.AnswerResponse, error)
}

// FeedbackSender forwards feedback verdicts to the backend.
type FeedbackSender interface {
	SubmitFeedback(ctx context.Context, fb lawapi.FeedbackRequest) error
}

// Manager owns conversation state: creation, selection, the ask round
// trip, and feedback. All methods are safe for concurrent use.
type Manager struct {
	mu       sync.Mutex
	store    *Store
	api      Asker
	feedback FeedbackSender
	resolver *citation.Resolver
	pending  map[string]bool
}

// NewManager creates a manager over the given store and backend client.
// feedback may be nil, in which case verdicts are stored locally only.
func NewManager(store *Store, api Asker, feedback FeedbackSender) *Manager {
	return &Manager{
		store:    store,
		api:      api,
		feedback: feedback,
		resolver: citation.NewResolver(nil),
		pending:  make(map[string]bool),
	}
}

// Resolver exposes the citation resolver shared with the viewer.
func (m *Manager) Resolver() *citation.Resolver {
	return m.resolver
}

// NewConversation creates an empty conversation and makes it active.
func (m *Manager) NewConversation(ctx context.Context) (*Conversation, error) {
	now := time.Now().UTC()
	conv := &Conversation{
		ID:        newConversationID(),
		Title:     TitleFromQuestion(""),
		Mode:      m.Mode(ctx),
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := m.store.CreateConversation(ctx, conv); err != nil {
		return nil, err
	}
	if err := m.store.SetPref(ctx, prefActiveConversation, conv.ID); err != nil {
		return nil, err
	}

	m.publishCount(ctx)
	return conv, nil
}

// ActiveConversation returns the active conversation, creating one when
// none exists or the stored id points at a deleted thread.
func (m *Manager) ActiveConversation(ctx context.Context) (*Conversation, error) {
	id := m.store.GetPref(ctx, prefActiveConversation, "")
	if id != "" {
		conv, err := m.store.GetConversation(ctx, id)
		if err == nil {
			return conv, nil
		}
		log.Printf("Active conversation %s is gone, creating a new one", id)
	}
	return m.NewConversation(ctx)
}

// SetActive switches the active conversation.
func (m *Manager) SetActive(ctx context.Context, id string) error {
	if _, err := m.store.GetConversation(ctx, id); err != nil {
		return err
	}
	return m.store.SetPref(ctx, prefActiveConversation, id)
}

// List returns all conversations, pinned first.
func (m *Manager) List(ctx context.Context) ([]Conversation, error) {
	return m.store.ListConversations(ctx)
}

// Get loads one conversation with its messages.
func (m *Manager) Get(ctx context.Context, id string) (*Conversation, error) {
	return m.store.GetConversation(ctx, id)
}

// Message loads one message by id.
func (m *Manager) Message(ctx context.Context, id int64) (*Message, error) {
	return m.store.GetMessage(ctx, id)
}

// IsBusy reports whether a conversation has a question in flight.
func (m *Manager) IsBusy(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pending[id]
}

// Send runs one question round trip on the given conversation. The
// user message is recorded first; the reply, or exactly one apologetic
// error message when the trip fails, is appended to the same
// conversation even if the user switched threads meanwhile. The returned
// message is the assistant's.
func (m *Manager) Send(ctx context.Context, conversationID, question string) (*Message, error) {
	conv, err := m.store.GetConversation(ctx, conversationID)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	if m.pending[conversationID] {
		m.mu.Unlock()
		return nil, ErrBusy
	}
	m.pending[conversationID] = true
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		delete(m.pending, conversationID)
		m.mu.Unlock()
	}()

	history := historyFromMessages(conv.Messages)

	userMsg := &Message{
		ConversationID: conversationID,
		Role:           RoleUser,
		Content:        question,
		CreatedAt:      time.Now().UTC(),
	}
	if err := m.store.AppendMessage(ctx, userMsg); err != nil {
		return nil, err
	}

	if len(conv.Messages) == 0 {
		if err := m.store.RenameConversation(ctx, conversationID, TitleFromQuestion(question)); err != nil {
			log.Printf("Failed to title conversation %s: %v", conversationID, err)
		}
	}

	mode := conv.Mode
	if mode == "" {
		mode = m.Mode(ctx)
	}

	resp, askErr := m.api.Ask(ctx, question, mode, history)
	if askErr != nil {
		log.Printf("Question round trip failed on conversation %s: %v", conversationID, askErr)
		return m.appendErrorReply(ctx, conversationID)
	}

	return m.appendAnswer(ctx, conversationID, resp)
}

// appendAnswer records a successful reply with its parsed references and
// resolved sources.
func (m *Manager) appendAnswer(ctx context.Context, conversationID string, resp *lawapi.AnswerResponse) (*Message, error) {
	cleaned, refs := citation.Parse(resp.Answer)
	m.resolver.ResolveAll(refs, resp.PDFSources)

	msg := &Message{
		ConversationID: conversationID,
		Role:           RoleAssistant,
		Content:        cleaned,
		References:     refs,
		Sources:        resp.Sources,
		PDFSources:     resp.PDFSources,
		Timing:         resp.Timing,
		CreatedAt:      time.Now().UTC(),
	}
	if err := m.store.AppendMessage(ctx, msg); err != nil {
		return nil, err
	}
	return msg, nil
}

// appendErrorReply records the single apologetic assistant message that
// stands in for a failed round trip.
func (m *Manager) appendErrorReply(ctx context.Context, conversationID string) (*Message, error) {
	msg := &Message{
		ConversationID: conversationID,
		Role:           RoleAssistant,
		Content:        ErrorAnswer,
		IsError:        true,
		CreatedAt:      time.Now().UTC(),
	}
	if err := m.store.AppendMessage(ctx, msg); err != nil {
		return nil, err
	}
	return msg, nil
}

// Rename changes a conversation's title.
func (m *Manager) Rename(ctx context.Context, id, title string) error {
	title = TitleFromQuestion(title)
	return m.store.RenameConversation(ctx, id, title)
}

// SetPinned pins or unpins a conversation.
func (m *Manager) SetPinned(ctx context.Context, id string, pinned bool) error {
	return m.store.SetPinned(ctx, id, pinned)
}

// Delete removes a conversation. When the active conversation is
// deleted, the most recent remaining one becomes active, or a fresh
// empty one when none remain.
func (m *Manager) Delete(ctx context.Context, id string) error {
	if err := m.store.DeleteConversation(ctx, id); err != nil {
		return err
	}
	m.publishCount(ctx)

	if m.store.GetPref(ctx, prefActiveConversation, "") != id {
		return nil
	}

	remaining, err := m.store.ListConversations(ctx)
	if err != nil {
		return err
	}
	if len(remaining) > 0 {
		return m.store.SetPref(ctx, prefActiveConversation, remaining[0].ID)
	}

	_, err = m.NewConversation(ctx)
	return err
}

// ToggleFeedback applies a feedback press to an assistant message and
// forwards non-cleared verdicts to the backend. The stored verdict is
// updated even when forwarding fails.
func (m *Manager) ToggleFeedback(ctx context.Context, messageID int64, pressed Feedback) (Feedback, error) {
	msg, err := m.store.GetMessage(ctx, messageID)
	if err != nil {
		return FeedbackNone, err
	}
	if msg.Role != RoleAssistant {
		return FeedbackNone, fmt.Errorf("feedback applies to assistant messages only")
	}

	next := ToggleFeedback(msg.Feedback, pressed)
	if err := m.store.SetMessageFeedback(ctx, messageID, next); err != nil {
		return FeedbackNone, err
	}

	if next != FeedbackNone && m.feedback != nil {
		fb := lawapi.FeedbackRequest{
			Query:   precedingQuestion(ctx, m.store, msg),
			Answer:  msg.Content,
			Context: msg.Sources,
			Status:  string(next),
		}
		if err := m.feedback.SubmitFeedback(ctx, fb); err != nil {
			log.Printf("Failed to forward feedback for message %d: %v", messageID, err)
		}
	}

	return next, nil
}

// Mode returns the stored question mode.
func (m *Manager) Mode(ctx context.Context) string {
	return m.store.GetPref(ctx, prefModelMode, DefaultMode)
}

// SetMode stores the question mode for future conversations.
func (m *Manager) SetMode(ctx context.Context, mode string) error {
	return m.store.SetPref(ctx, prefModelMode, mode)
}

// DarkTheme returns the stored theme flag.
func (m *Manager) DarkTheme(ctx context.Context) bool {
	return m.store.GetPref(ctx, prefDarkTheme, "false") == "true"
}

// SetDarkTheme stores the theme flag.
func (m *Manager) SetDarkTheme(ctx context.Context, dark bool) error {
	value := "false"
	if dark {
		value = "true"
	}
	return m.store.SetPref(ctx, prefDarkTheme, value)
}

func (m *Manager) publishCount(ctx context.Context) {
	if n, err := m.store.ConversationCount(ctx); err == nil {
		metrics.UpdateConversationCount(n)
	}
}

// historyFromMessages pairs past user questions with their successful
// answers for the backend's chat history. Error replies and unanswered
// questions are skipped.
func historyFromMessages(messages []Message) []lawapi.ChatTurn {
	var history []lawapi.ChatTurn
	var question string

	for _, msg := range messages {
		switch msg.Role {
		case RoleUser:
			question = msg.Content
		case RoleAssistant:
			if msg.IsError || question == "" {
				continue
			}
			history = append(history,
				lawapi.ChatTurn{Role: "user", Content: question},
				lawapi.ChatTurn{Role: "assistant", Content: msg.Content})
			question = ""
		}
	}
	return history
}

// precedingQuestion finds the user question the assistant message
// answered, for the feedback payload.
func precedingQuestion(ctx context.Context, store *Store, msg *Message) string {
	messages, err := store.Messages(ctx, msg.ConversationID)
	if err != nil {
		return ""
	}

	question := ""
	for _, prior := range messages {
		if prior.ID >= msg.ID {
			break
		}
		if prior.Role == RoleUser {
			question = prior.Content
		}
	}
	return question
}


func newConversationID() string {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return fmt.Sprintf("conv-%d", time.Now().UnixNano())
	}
	return "conv-" + hex.EncodeToString(buf)
}
