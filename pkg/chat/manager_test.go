package chat

import (
	"context"
	"errors"
	"testing"
	"time"

	"luat-chat/pkg/lawapi"
)

type fakeAsker struct {
	resp    *lawapi.AnswerResponse
	err     error
	onAsk   func(ctx context.Context)
	history []lawapi.ChatTurn
	release chan struct{}
}

func (f *fakeAsker) Ask(ctx context.Context, _, _ string, history []lawapi.ChatTurn) (*lawapi.AnswerResponse, error) {
	f.history = history
	if f.onAsk != nil {
		f.onAsk(ctx)
	}
	if f.release != nil {
		<-f.release
	}
	return f.resp, f.err
}

type fakeFeedbackSender struct {
	calls []lawapi.FeedbackRequest
}

func (f *fakeFeedbackSender) SubmitFeedback(_ context.Context, fb lawapi.FeedbackRequest) error {
	f.calls = append(f.calls, fb)
	return nil
}

func newTestManager(t *testing.T, asker Asker, sender FeedbackSender) *Manager {
	t.Helper()
	return NewManager(newTestStore(t), asker, sender)
}

func TestTitleFromQuestion(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"empty", "", "Cuộc trò chuyện mới"},
		{"short", "Thủ tục ly hôn?", "Thủ tục ly hôn?"},
		{"collapses whitespace", "  Thủ   tục \n ly hôn  ", "Thủ tục ly hôn"},
		{
			"long question truncated",
			"Điều kiện kết hôn theo quy định hiện hành là gì và cần giấy tờ nào",
			"Điều kiện kết hôn theo quy địn…",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TitleFromQuestion(tt.input); got != tt.expected {
				t.Errorf("TitleFromQuestion(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestToggleFeedbackTable(t *testing.T) {
	tests := []struct {
		current, pressed, expected Feedback
	}{
		{FeedbackNone, FeedbackLike, FeedbackLike},
		{FeedbackLike, FeedbackLike, FeedbackNone},
		{FeedbackLike, FeedbackDislike, FeedbackDislike},
		{FeedbackDislike, FeedbackDislike, FeedbackNone},
	}

	for _, tt := range tests {
		if got := ToggleFeedback(tt.current, tt.pressed); got != tt.expected {
			t.Errorf("ToggleFeedback(%q, %q) = %q, want %q", tt.current, tt.pressed, got, tt.expected)
		}
	}
}

func TestSendRecordsQuestionAndAnswer(t *testing.T) {
	asker := &fakeAsker{resp: &lawapi.AnswerResponse{
		Answer: "Theo Điều 8 của luat_hon_nhan_hopnhat.json thì được.",
		PDFSources: []lawapi.PDFSource{
			{ArticleNum: "8", PDFFile: "luat_hon_nhan.pdf", PageNum: 12},
		},
	}}
	m := newTestManager(t, asker, nil)
	ctx := context.Background()

	conv, err := m.NewConversation(ctx)
	if err != nil {
		t.Fatal(err)
	}

	reply, err := m.Send(ctx, conv.ID, "Điều kiện kết hôn là gì?")
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	loaded, err := m.Get(ctx, conv.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(loaded.Messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(loaded.Messages))
	}
	if loaded.Messages[0].Role != RoleUser || loaded.Messages[1].Role != RoleAssistant {
		t.Errorf("unexpected roles %q, %q", loaded.Messages[0].Role, loaded.Messages[1].Role)
	}

	if reply.IsError {
		t.Error("successful reply marked as error")
	}
	if len(reply.References) != 1 {
		t.Fatalf("expected 1 parsed reference, got %d", len(reply.References))
	}
	if reply.References[0].Source == nil || reply.References[0].Source.PageNum != 12 {
		t.Errorf("reference not resolved against sources: %+v", reply.References[0].Source)
	}
	if got := reply.Content; got != "Theo Điều 8  thì được." {
		t.Errorf("answer not cleaned: %q", got)
	}

	if loaded.Title != TitleFromQuestion("Điều kiện kết hôn là gì?") {
		t.Errorf("first question did not title the conversation: %q", loaded.Title)
	}
}

func TestSendFailureAppendsSingleErrorReply(t *testing.T) {
	asker := &fakeAsker{err: errors.New("backend down")}
	m := newTestManager(t, asker, nil)
	ctx := context.Background()

	conv, err := m.NewConversation(ctx)
	if err != nil {
		t.Fatal(err)
	}

	reply, err := m.Send(ctx, conv.ID, "câu hỏi")
	if err != nil {
		t.Fatalf("a failed round trip must still yield a reply, got %v", err)
	}
	if !reply.IsError || reply.Content != ErrorAnswer {
		t.Errorf("unexpected error reply: %+v", reply)
	}

	loaded, err := m.Get(ctx, conv.ID)
	if err != nil {
		t.Fatal(err)
	}
	errorReplies := 0
	for _, msg := range loaded.Messages {
		if msg.IsError {
			errorReplies++
		}
	}
	if errorReplies != 1 {
		t.Errorf("expected exactly 1 error reply, got %d", errorReplies)
	}

	// The thread accepts questions again after the failure.
	if m.IsBusy(conv.ID) {
		t.Error("conversation stuck busy after a failed round trip")
	}
}

func TestSendAttachesToOriginatingConversation(t *testing.T) {
	var m *Manager
	var otherID string

	asker := &fakeAsker{
		resp: &lawapi.AnswerResponse{Answer: "Trả lời."},
		onAsk: func(ctx context.Context) {
			// The user switches threads while the question is in flight.
			if err := m.SetActive(ctx, otherID); err != nil {
				t.Errorf("SetActive failed: %v", err)
			}
		},
	}
	m = newTestManager(t, asker, nil)
	ctx := context.Background()

	first, err := m.NewConversation(ctx)
	if err != nil {
		t.Fatal(err)
	}
	other, err := m.NewConversation(ctx)
	if err != nil {
		t.Fatal(err)
	}
	otherID = other.ID

	if _, err := m.Send(ctx, first.ID, "câu hỏi"); err != nil {
		t.Fatal(err)
	}

	firstLoaded, err := m.Get(ctx, first.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(firstLoaded.Messages) != 2 {
		t.Errorf("reply missing from originating thread: %d messages", len(firstLoaded.Messages))
	}

	otherLoaded, err := m.Get(ctx, otherID)
	if err != nil {
		t.Fatal(err)
	}
	if len(otherLoaded.Messages) != 0 {
		t.Errorf("reply leaked into the switched-to thread: %d messages", len(otherLoaded.Messages))
	}
}

func TestSendRejectsConcurrentQuestionOnSameThread(t *testing.T) {
	asker := &fakeAsker{
		resp:    &lawapi.AnswerResponse{Answer: "Trả lời."},
		release: make(chan struct{}),
	}
	m := newTestManager(t, asker, nil)
	ctx := context.Background()

	conv, err := m.NewConversation(ctx)
	if err != nil {
		t.Fatal(err)
	}

	done := make(chan error, 1)
	go func() {
		_, err := m.Send(ctx, conv.ID, "câu hỏi một")
		done <- err
	}()

	deadline := time.After(2 * time.Second)
	for !m.IsBusy(conv.ID) {
		select {
		case <-deadline:
			t.Fatal("first question never became pending")
		case <-time.After(time.Millisecond):
		}
	}

	if _, err := m.Send(ctx, conv.ID, "câu hỏi hai"); !errors.Is(err, ErrBusy) {
		t.Errorf("expected ErrBusy, got %v", err)
	}

	close(asker.release)
	if err := <-done; err != nil {
		t.Fatalf("first Send failed: %v", err)
	}
	if m.IsBusy(conv.ID) {
		t.Error("conversation still busy after completion")
	}
}

func TestSendBuildsHistoryFromPriorTurns(t *testing.T) {
	asker := &fakeAsker{resp: &lawapi.AnswerResponse{Answer: "Trả lời."}}
	m := newTestManager(t, asker, nil)
	ctx := context.Background()

	conv, err := m.NewConversation(ctx)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := m.Send(ctx, conv.ID, "câu hỏi một"); err != nil {
		t.Fatal(err)
	}
	if _, err := m.Send(ctx, conv.ID, "câu hỏi hai"); err != nil {
		t.Fatal(err)
	}

	if len(asker.history) != 2 {
		t.Fatalf("expected 2 history entries on the second question, got %d", len(asker.history))
	}
	if asker.history[0].Role != "user" || asker.history[0].Content != "câu hỏi một" {
		t.Errorf("unexpected first history entry: %+v", asker.history[0])
	}
	if asker.history[1].Role != "assistant" || asker.history[1].Content != "Trả lời." {
		t.Errorf("unexpected second history entry: %+v", asker.history[1])
	}
}

func TestHistorySkipsErrorReplies(t *testing.T) {
	messages := []Message{
		{Role: RoleUser, Content: "q1"},
		{Role: RoleAssistant, Content: ErrorAnswer, IsError: true},
		{Role: RoleUser, Content: "q2"},
		{Role: RoleAssistant, Content: "a2"},
	}

	history := historyFromMessages(messages)

	if len(history) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(history))
	}
	if history[0].Content != "q2" || history[1].Content != "a2" {
		t.Errorf("unexpected history %+v", history)
	}
}

func TestDeleteActiveReassigns(t *testing.T) {
	asker := &fakeAsker{resp: &lawapi.AnswerResponse{Answer: "a"}}
	m := newTestManager(t, asker, nil)
	ctx := context.Background()

	first, err := m.NewConversation(ctx)
	if err != nil {
		t.Fatal(err)
	}
	second, err := m.NewConversation(ctx)
	if err != nil {
		t.Fatal(err)
	}

	// second is active; deleting it falls back to the remaining thread.
	if err := m.Delete(ctx, second.ID); err != nil {
		t.Fatal(err)
	}
	active, err := m.ActiveConversation(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if active.ID != first.ID {
		t.Errorf("active = %s, want %s", active.ID, first.ID)
	}

	// Deleting the last thread leaves a fresh empty one active.
	if err := m.Delete(ctx, first.ID); err != nil {
		t.Fatal(err)
	}
	active, err = m.ActiveConversation(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if active.ID == first.ID || active.ID == second.ID {
		t.Error("active conversation was not replaced")
	}
	if len(active.Messages) != 0 {
		t.Errorf("replacement conversation not empty: %d messages", len(active.Messages))
	}
}

func TestDeleteInactiveKeepsActive(t *testing.T) {
	asker := &fakeAsker{resp: &lawapi.AnswerResponse{Answer: "a"}}
	m := newTestManager(t, asker, nil)
	ctx := context.Background()

	first, err := m.NewConversation(ctx)
	if err != nil {
		t.Fatal(err)
	}
	second, err := m.NewConversation(ctx)
	if err != nil {
		t.Fatal(err)
	}

	if err := m.Delete(ctx, first.ID); err != nil {
		t.Fatal(err)
	}
	active, err := m.ActiveConversation(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if active.ID != second.ID {
		t.Errorf("active changed unexpectedly: %s", active.ID)
	}
}

func TestToggleFeedbackForwardsAndClears(t *testing.T) {
	asker := &fakeAsker{resp: &lawapi.AnswerResponse{
		Answer:  "Trả lời.",
		Sources: []lawapi.Source{{Source: "luat_hon_nhan_hopnhat.json", Content: "ngữ cảnh"}},
	}}
	sender := &fakeFeedbackSender{}
	m := newTestManager(t, asker, sender)
	ctx := context.Background()

	conv, err := m.NewConversation(ctx)
	if err != nil {
		t.Fatal(err)
	}
	reply, err := m.Send(ctx, conv.ID, "câu hỏi")
	if err != nil {
		t.Fatal(err)
	}

	got, err := m.ToggleFeedback(ctx, reply.ID, FeedbackLike)
	if err != nil {
		t.Fatal(err)
	}
	if got != FeedbackLike {
		t.Errorf("first press = %q, want like", got)
	}
	if len(sender.calls) != 1 {
		t.Fatalf("expected 1 forwarded verdict, got %d", len(sender.calls))
	}
	if sender.calls[0].Status != "like" || sender.calls[0].Query != "câu hỏi" {
		t.Errorf("unexpected forwarded payload: %+v", sender.calls[0])
	}
	if len(sender.calls[0].Context) != 1 || sender.calls[0].Context[0].Content != "ngữ cảnh" {
		t.Errorf("source context not forwarded: %+v", sender.calls[0].Context)
	}

	// Pressing the same verdict again clears it without forwarding.
	got, err = m.ToggleFeedback(ctx, reply.ID, FeedbackLike)
	if err != nil {
		t.Fatal(err)
	}
	if got != FeedbackNone {
		t.Errorf("second press = %q, want cleared", got)
	}
	if len(sender.calls) != 1 {
		t.Errorf("cleared verdict must not be forwarded, got %d calls", len(sender.calls))
	}

	loaded, err := m.store.GetMessage(ctx, reply.ID)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Feedback != FeedbackNone {
		t.Errorf("stored verdict = %q, want cleared", loaded.Feedback)
	}
}

func TestToggleFeedbackRejectsUserMessages(t *testing.T) {
	asker := &fakeAsker{resp: &lawapi.AnswerResponse{Answer: "a"}}
	m := newTestManager(t, asker, nil)
	ctx := context.Background()

	conv, err := m.NewConversation(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := m.Send(ctx, conv.ID, "câu hỏi"); err != nil {
		t.Fatal(err)
	}

	loaded, err := m.Get(ctx, conv.ID)
	if err != nil {
		t.Fatal(err)
	}
	userMsg := loaded.Messages[0]

	if _, err := m.ToggleFeedback(ctx, userMsg.ID, FeedbackLike); err == nil {
		t.Error("feedback on a user message must fail")
	}
}
