package chat

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"luat-chat/pkg/citation"
	"luat-chat/pkg/lawapi"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	store, err := NewStore(filepath.Join(t.TempDir(), "chat.db"))
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	if err := store.Initialize(); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func newTestConversation(t *testing.T, store *Store, id string) *Conversation {
	t.Helper()

	now := time.Now().UTC()
	conv := &Conversation{ID: id, Title: "test", Mode: DefaultMode, CreatedAt: now, UpdatedAt: now}
	if err := store.CreateConversation(context.Background(), conv); err != nil {
		t.Fatalf("CreateConversation failed: %v", err)
	}
	return conv
}

func TestStoreMessageRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	newTestConversation(t, store, "c1")

	src := lawapi.PDFSource{DomainID: "hon_nhan", PDFFile: "luat_hon_nhan.pdf", ArticleNum: "8", PageNum: 12}
	msg := &Message{
		ConversationID: "c1",
		Role:           RoleAssistant,
		Content:        "Theo Điều 8 thì được.",
		References: []citation.ArticleReference{
			{ArticleNum: "8", Text: "Điều 8", Start: 5, End: 13, Source: &src},
		},
		PDFSources: []lawapi.PDFSource{src},
		Timing:     &lawapi.TimingInfo{TotalMs: 1200, Status: "ok"},
		CreatedAt:  time.Now().UTC(),
	}

	if err := store.AppendMessage(ctx, msg); err != nil {
		t.Fatalf("AppendMessage failed: %v", err)
	}
	if msg.ID == 0 {
		t.Fatal("AppendMessage did not assign an id")
	}

	loaded, err := store.GetMessage(ctx, msg.ID)
	if err != nil {
		t.Fatalf("GetMessage failed: %v", err)
	}
	if loaded.Content != msg.Content {
		t.Errorf("content = %q, want %q", loaded.Content, msg.Content)
	}
	if len(loaded.References) != 1 || loaded.References[0].ArticleNum != "8" {
		t.Errorf("references not preserved: %+v", loaded.References)
	}
	if loaded.References[0].Source == nil || loaded.References[0].Source.PDFFile != "luat_hon_nhan.pdf" {
		t.Errorf("resolved source not preserved: %+v", loaded.References[0].Source)
	}
	if loaded.Timing == nil || loaded.Timing.TotalMs != 1200 {
		t.Errorf("timing not preserved: %+v", loaded.Timing)
	}
}

func TestStoreListOrdering(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	old := newTestConversation(t, store, "old")
	newer := newTestConversation(t, store, "newer")
	pinned := newTestConversation(t, store, "pinned")

	// Give the unpinned threads distinct update times.
	if err := store.AppendMessage(ctx, &Message{ConversationID: old.ID, Role: RoleUser, Content: "a", CreatedAt: time.Now().UTC()}); err != nil {
		t.Fatal(err)
	}
	time.Sleep(5 * time.Millisecond)
	if err := store.AppendMessage(ctx, &Message{ConversationID: newer.ID, Role: RoleUser, Content: "b", CreatedAt: time.Now().UTC()}); err != nil {
		t.Fatal(err)
	}
	if err := store.SetPinned(ctx, pinned.ID, true); err != nil {
		t.Fatal(err)
	}

	convs, err := store.ListConversations(ctx)
	if err != nil {
		t.Fatalf("ListConversations failed: %v", err)
	}
	if len(convs) != 3 {
		t.Fatalf("expected 3 conversations, got %d", len(convs))
	}
	if convs[0].ID != "pinned" {
		t.Errorf("pinned thread not first: %v", convs[0].ID)
	}
	if convs[1].ID != "newer" || convs[2].ID != "old" {
		t.Errorf("unpinned threads out of order: %s, %s", convs[1].ID, convs[2].ID)
	}
}

func TestStoreDeleteRemovesMessages(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	newTestConversation(t, store, "c1")

	msg := &Message{ConversationID: "c1", Role: RoleUser, Content: "q", CreatedAt: time.Now().UTC()}
	if err := store.AppendMessage(ctx, msg); err != nil {
		t.Fatal(err)
	}

	if err := store.DeleteConversation(ctx, "c1"); err != nil {
		t.Fatalf("DeleteConversation failed: %v", err)
	}

	if _, err := store.GetConversation(ctx, "c1"); err == nil {
		t.Error("deleted conversation still loads")
	}
	messages, err := store.Messages(ctx, "c1")
	if err != nil {
		t.Fatal(err)
	}
	if len(messages) != 0 {
		t.Errorf("messages survived deletion: %d", len(messages))
	}
}

func TestStorePersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "chat.db")
	ctx := context.Background()

	store, err := NewStore(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := store.Initialize(); err != nil {
		t.Fatal(err)
	}
	now := time.Now().UTC()
	if err := store.CreateConversation(ctx, &Conversation{ID: "c1", Title: "t", CreatedAt: now, UpdatedAt: now}); err != nil {
		t.Fatal(err)
	}
	if err := store.SetPref(ctx, "model_mode", "quality"); err != nil {
		t.Fatal(err)
	}
	if err := store.Close(); err != nil {
		t.Fatal(err)
	}

	reopened, err := NewStore(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := reopened.Initialize(); err != nil {
		t.Fatal(err)
	}
	defer reopened.Close()

	convs, err := reopened.ListConversations(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(convs) != 1 || convs[0].ID != "c1" {
		t.Errorf("conversation lost across reopen: %+v", convs)
	}
	if got := reopened.GetPref(ctx, "model_mode", ""); got != "quality" {
		t.Errorf("preference lost across reopen: %q", got)
	}
}

func TestStoreCorruptDatabaseStartsEmpty(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "chat.db")
	if err := os.WriteFile(path, []byte("this is not a database"), 0o644); err != nil {
		t.Fatal(err)
	}

	store, err := NewStore(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := store.Initialize(); err != nil {
		t.Fatalf("corrupt store must recover, got %v", err)
	}
	defer store.Close()

	convs, err := store.ListConversations(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(convs) != 0 {
		t.Errorf("expected empty state, got %d conversations", len(convs))
	}
	if _, err := os.Stat(path + ".corrupt"); err != nil {
		t.Errorf("corrupt file was not set aside: %v", err)
	}
}

func TestStorePrefFallback(t *testing.T) {
	store := newTestStore(t)

	if got := store.GetPref(context.Background(), "missing", "fallback"); got != "fallback" {
		t.Errorf("GetPref = %q, want fallback", got)
	}
}
