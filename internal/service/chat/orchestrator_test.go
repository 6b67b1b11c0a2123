package chat

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"multichat/internal/config"
	"multichat/internal/proxy"
	"multichat/internal/repository/db"
	"multichat/internal/testutil"
)

// memoryDB builds a MockDatabase that persists conversations and messages
// in memory, close enough to the real store for the send cycle.
type memoryDB struct {
	*testutil.MockDatabase
	conversations []db.Conversation
	messages      []db.Message
	nextID        int
}

func newMemoryDB() *memoryDB {
	m := &memoryDB{MockDatabase: &testutil.MockDatabase{}}

	m.CreateConversationFunc = func(userID, title, model string) (*db.Conversation, error) {
		m.nextID++
		conv := db.Conversation{
			ID:        fmt.Sprintf("conv-%d", m.nextID),
			UserID:    userID,
			Title:     title,
			Model:     model,
			CreatedAt: time.Now(),
			UpdatedAt: time.Now(),
		}
		m.conversations = append(m.conversations, conv)
		return &conv, nil
	}
	m.GetConversationFunc = func(id string) (*db.Conversation, error) {
		for i := range m.conversations {
			if m.conversations[i].ID == id {
				return &m.conversations[i], nil
			}
		}
		return nil, errors.New("conversation not found")
	}
	m.GetConversationsByUserFunc = func(userID string) ([]db.Conversation, error) {
		out := []db.Conversation{}
		for _, c := range m.conversations {
			if c.UserID == userID {
				out = append(out, c)
			}
		}
		return out, nil
	}
	m.AddMessageFunc = func(conversationID, role, content, model string) (*db.Message, error) {
		m.nextID++
		msg := db.Message{
			ID:             fmt.Sprintf("msg-%d", m.nextID),
			ConversationID: conversationID,
			Role:           role,
			Content:        content,
			Model:          model,
			CreatedAt:      time.Now(),
		}
		m.messages = append(m.messages, msg)
		// Mirror the store's updated_at refresh on insert
		for i := range m.conversations {
			if m.conversations[i].ID == conversationID {
				m.conversations[i].UpdatedAt = m.conversations[i].UpdatedAt.Add(time.Millisecond)
			}
		}
		return &msg, nil
	}
	m.GetConversationMessagesFunc = func(conversationID string) ([]db.Message, error) {
		out := []db.Message{}
		for _, msg := range m.messages {
			if msg.ConversationID == conversationID {
				out = append(out, msg)
			}
		}
		return out, nil
	}

	return m
}

func echoCompleter() *testutil.MockCompleter {
	return &testutil.MockCompleter{
		CompleteFunc: func(req proxy.CompletionRequest) (*proxy.CompletionResponse, error) {
			last := req.Messages[len(req.Messages)-1]
			return &proxy.CompletionResponse{
				GeneratedText: "echo: " + last.Content,
				Model:         req.Model,
				Usage:         &proxy.Usage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15},
			}, nil
		},
	}
}

func newTestOrchestrator(database db.Database, completer proxy.Completer) *Orchestrator {
	return NewOrchestrator(database, completer, config.DefaultModelCatalog(), "user-1")
}

func TestSendMessage_FirstSendCreatesConversation(t *testing.T) {
	database := newMemoryDB()
	o := newTestOrchestrator(database, echoCompleter())

	result, err := o.SendMessage("Hello there")
	if err != nil {
		t.Fatalf("SendMessage() error = %v", err)
	}

	if len(database.conversations) != 1 {
		t.Fatalf("got %d conversations, want 1", len(database.conversations))
	}
	conv := database.conversations[0]
	if conv.Title != "Hello there" {
		t.Errorf("title = %q, want the message text", conv.Title)
	}
	if conv.Model != "gpt-4o" {
		t.Errorf("model = %q, want the default model", conv.Model)
	}
	if result.ConversationID != conv.ID {
		t.Errorf("result conversation = %q, want %q", result.ConversationID, conv.ID)
	}
	if !conv.CreatedAt.Before(conv.UpdatedAt) {
		t.Error("updated_at must advance when messages are added")
	}
	if o.ActiveConversation() != conv.ID {
		t.Errorf("active conversation = %q, want %q", o.ActiveConversation(), conv.ID)
	}
}

func TestSendMessage_PersistsBothSides(t *testing.T) {
	database := newMemoryDB()
	o := newTestOrchestrator(database, echoCompleter())

	result, err := o.SendMessage("Hello")
	if err != nil {
		t.Fatalf("SendMessage() error = %v", err)
	}

	if len(database.messages) != 2 {
		t.Fatalf("got %d persisted messages, want 2", len(database.messages))
	}

	user, assistant := database.messages[0], database.messages[1]
	if user.Role != "user" || user.Content != "Hello" {
		t.Errorf("first message = %s %q, want the user turn", user.Role, user.Content)
	}
	if user.Model != "" {
		t.Errorf("user message model = %q, want empty", user.Model)
	}
	if assistant.Role != "assistant" || assistant.Content != "echo: Hello" {
		t.Errorf("second message = %s %q, want the assistant turn", assistant.Role, assistant.Content)
	}
	if assistant.Model != "gpt-4o" {
		t.Errorf("assistant message model = %q, want gpt-4o", assistant.Model)
	}

	if result.Reply == nil || result.Reply.Log == nil {
		t.Fatal("reply must carry an invocation log")
	}
	log := result.Reply.Log
	if !log.Success {
		t.Error("log.Success = false, want true")
	}
	if log.TokensUsed == nil || *log.TokensUsed != 15 {
		t.Errorf("log.TokensUsed = %v, want 15", log.TokensUsed)
	}
	if log.ResponseTimeMS < 0 {
		t.Errorf("log.ResponseTimeMS = %d, want >= 0", log.ResponseTimeMS)
	}
}

func TestSendMessage_ContextCarriesHistory(t *testing.T) {
	database := newMemoryDB()
	var lastRequest proxy.CompletionRequest
	completer := &testutil.MockCompleter{
		CompleteFunc: func(req proxy.CompletionRequest) (*proxy.CompletionResponse, error) {
			lastRequest = req
			return &proxy.CompletionResponse{GeneratedText: "reply"}, nil
		},
	}
	o := newTestOrchestrator(database, completer)

	if _, err := o.SendMessage("first"); err != nil {
		t.Fatalf("SendMessage() error = %v", err)
	}
	if _, err := o.SendMessage("second"); err != nil {
		t.Fatalf("SendMessage() error = %v", err)
	}

	want := []proxy.ChatMessage{
		{Role: "user", Content: "first"},
		{Role: "assistant", Content: "reply"},
		{Role: "user", Content: "second"},
	}
	if len(lastRequest.Messages) != len(want) {
		t.Fatalf("context has %d messages, want %d", len(lastRequest.Messages), len(want))
	}
	for i, m := range want {
		if lastRequest.Messages[i] != m {
			t.Errorf("context[%d] = %+v, want %+v", i, lastRequest.Messages[i], m)
		}
	}
}

func TestSendMessage_FailureKeepsUserMessage(t *testing.T) {
	database := newMemoryDB()
	completer := &testutil.MockCompleter{
		CompleteFunc: func(req proxy.CompletionRequest) (*proxy.CompletionResponse, error) {
			return nil, errors.New("upstream down")
		},
	}
	o := newTestOrchestrator(database, completer)

	_, err := o.SendMessage("Hello")
	if err == nil {
		t.Fatal("SendMessage() expected error")
	}

	if len(database.messages) != 1 {
		t.Fatalf("got %d persisted messages, want only the user turn", len(database.messages))
	}
	if database.messages[0].Role != "user" {
		t.Errorf("persisted role = %q, want user", database.messages[0].Role)
	}
	// The conversation survives; a retry reuses it
	if o.ActiveConversation() == "" {
		t.Error("active conversation should survive a failed send")
	}
}

func TestSendMessage_EmptyGeneratedTextIsFailure(t *testing.T) {
	database := newMemoryDB()
	completer := &testutil.MockCompleter{
		CompleteFunc: func(req proxy.CompletionRequest) (*proxy.CompletionResponse, error) {
			return &proxy.CompletionResponse{GeneratedText: ""}, nil
		},
	}
	o := newTestOrchestrator(database, completer)

	_, err := o.SendMessage("Hello")
	if !errors.Is(err, ErrEmptyResponse) {
		t.Fatalf("SendMessage() error = %v, want ErrEmptyResponse", err)
	}
	if len(database.messages) != 1 {
		t.Errorf("got %d persisted messages, want only the user turn", len(database.messages))
	}
}

func TestSendMessage_EmptyOrBlankContent(t *testing.T) {
	database := newMemoryDB()
	o := newTestOrchestrator(database, echoCompleter())

	for _, content := range []string{"", "   ", "\n\t"} {
		if _, err := o.SendMessage(content); !errors.Is(err, ErrEmptyMessage) {
			t.Errorf("SendMessage(%q) error = %v, want ErrEmptyMessage", content, err)
		}
	}
	if len(database.messages) != 0 {
		t.Errorf("blank sends persisted %d messages, want 0", len(database.messages))
	}
}

func TestSendMessage_NoUserIsNoOp(t *testing.T) {
	database := newMemoryDB()
	o := NewOrchestrator(database, echoCompleter(), config.DefaultModelCatalog(), "")

	result, err := o.SendMessage("Hello")
	if err != nil || result != nil {
		t.Errorf("SendMessage() = (%v, %v), want a silent no-op", result, err)
	}
	if len(database.messages) != 0 || len(database.conversations) != 0 {
		t.Error("no-op send must not write anything")
	}
}

func TestSendMessage_TitleTruncation(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{
			name:    "short message is the full title",
			content: "Plan a weekend trip",
			want:    "Plan a weekend trip",
		},
		{
			name:    "long message is cut at 60 characters",
			content: strings.Repeat("a", 100),
			want:    strings.Repeat("a", 60),
		},
		{
			name:    "multibyte text is cut by characters, not bytes",
			content: strings.Repeat("ж", 100),
			want:    strings.Repeat("ж", 60),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			database := newMemoryDB()
			o := newTestOrchestrator(database, echoCompleter())

			if _, err := o.SendMessage(tt.content); err != nil {
				t.Fatalf("SendMessage() error = %v", err)
			}
			if got := database.conversations[0].Title; got != tt.want {
				t.Errorf("title = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSendMessage_RejectsConcurrentSend(t *testing.T) {
	database := newMemoryDB()
	var o *Orchestrator
	completer := &testutil.MockCompleter{
		CompleteFunc: func(req proxy.CompletionRequest) (*proxy.CompletionResponse, error) {
			// A second send while this one is in flight must be refused
			if _, err := o.SendMessage("again"); !errors.Is(err, ErrTurnInFlight) {
				t.Errorf("nested SendMessage() error = %v, want ErrTurnInFlight", err)
			}
			return &proxy.CompletionResponse{GeneratedText: "done"}, nil
		},
	}
	o = newTestOrchestrator(database, completer)

	if _, err := o.SendMessage("Hello"); err != nil {
		t.Fatalf("SendMessage() error = %v", err)
	}
	// The gate is released afterwards
	if _, err := o.SendMessage("next"); err != nil {
		t.Errorf("follow-up SendMessage() error = %v", err)
	}
}

func TestSendMessage_RefusesSessionChangesMidSend(t *testing.T) {
	database := newMemoryDB()
	var o *Orchestrator
	var mutate bool
	completer := &testutil.MockCompleter{
		CompleteFunc: func(req proxy.CompletionRequest) (*proxy.CompletionResponse, error) {
			if mutate {
				// Switching chats while this turn is in flight must be refused,
				// not corrupt the transcript mid-send
				if err := o.NewChat(); !errors.Is(err, ErrTurnInFlight) {
					t.Errorf("NewChat() during send error = %v, want ErrTurnInFlight", err)
				}
				if err := o.OpenConversation("conv-1"); !errors.Is(err, ErrTurnInFlight) {
					t.Errorf("OpenConversation() during send error = %v, want ErrTurnInFlight", err)
				}
			}
			return &proxy.CompletionResponse{GeneratedText: "done"}, nil
		},
	}
	o = newTestOrchestrator(database, completer)

	// Seed a conversation to reopen, then detach from it
	if _, err := o.SendMessage("seed"); err != nil {
		t.Fatalf("SendMessage() error = %v", err)
	}
	if err := o.NewChat(); err != nil {
		t.Fatalf("NewChat() error = %v", err)
	}

	mutate = true
	result, err := o.SendMessage("Hello")
	if err != nil {
		t.Fatalf("SendMessage() error = %v", err)
	}
	if result.UserMessage == nil || result.UserMessage.Content != "Hello" {
		t.Fatalf("result.UserMessage = %+v, want the user turn", result.UserMessage)
	}
	if got := o.Transcript(); len(got) != 2 {
		t.Errorf("transcript has %d messages, want both sides of the turn", len(got))
	}
	if o.ActiveConversation() == "conv-1" {
		t.Error("refused OpenConversation() must not switch the active conversation")
	}
}

func TestSendMessage_FailedFirstSendReusesCreatedConversation(t *testing.T) {
	database := newMemoryDB()
	insert := database.AddMessageFunc
	failNext := true
	database.AddMessageFunc = func(conversationID, role, content, model string) (*db.Message, error) {
		if failNext {
			failNext = false
			return nil, errors.New("insert failed")
		}
		return insert(conversationID, role, content, model)
	}
	o := newTestOrchestrator(database, echoCompleter())

	if _, err := o.SendMessage("Hello"); err == nil {
		t.Fatal("SendMessage() expected error")
	}
	if len(database.conversations) != 1 {
		t.Fatalf("got %d conversations, want 1", len(database.conversations))
	}
	if o.ActiveConversation() != database.conversations[0].ID {
		t.Error("created conversation must be active even when the send fails")
	}

	// The retry lands in the conversation the failed send created
	if _, err := o.SendMessage("Hello"); err != nil {
		t.Fatalf("retry SendMessage() error = %v", err)
	}
	if len(database.conversations) != 1 {
		t.Errorf("retry created %d conversations, want the original reused", len(database.conversations))
	}
}

func TestNewChatAndOpenConversation(t *testing.T) {
	database := newMemoryDB()
	o := newTestOrchestrator(database, echoCompleter())

	if _, err := o.SendMessage("Hello"); err != nil {
		t.Fatalf("SendMessage() error = %v", err)
	}
	first := o.ActiveConversation()

	o.NewChat()
	if o.ActiveConversation() != "" || len(o.Transcript()) != 0 {
		t.Fatal("NewChat() must clear the active conversation and transcript")
	}

	if _, err := o.SendMessage("Another topic"); err != nil {
		t.Fatalf("SendMessage() error = %v", err)
	}
	if o.ActiveConversation() == first {
		t.Error("send after NewChat() must create a fresh conversation")
	}

	if err := o.OpenConversation(first); err != nil {
		t.Fatalf("OpenConversation() error = %v", err)
	}
	transcript := o.Transcript()
	if len(transcript) != 2 {
		t.Fatalf("reopened transcript has %d messages, want 2", len(transcript))
	}
	if transcript[0].Content != "Hello" {
		t.Errorf("transcript[0] = %q, want the original user turn", transcript[0].Content)
	}
}

func TestOpenConversation_AdoptsConversationModel(t *testing.T) {
	database := newMemoryDB()
	o := newTestOrchestrator(database, echoCompleter())

	if _, err := o.SendMessage("Hello"); err != nil {
		t.Fatalf("SendMessage() error = %v", err)
	}
	first := o.ActiveConversation()

	o.NewChat()
	if err := o.SelectModel("grok-2"); err != nil {
		t.Fatalf("SelectModel() error = %v", err)
	}

	if err := o.OpenConversation(first); err != nil {
		t.Fatalf("OpenConversation() error = %v", err)
	}
	if got := o.SelectedModel(); got != "gpt-4o" {
		t.Errorf("SelectedModel() = %q, want the conversation's model", got)
	}
}

func TestOpenConversation_SystemMessagesStayOutOfContext(t *testing.T) {
	database := newMemoryDB()
	conv, err := database.CreateConversation("user-1", "seeded", "gpt-4o")
	if err != nil {
		t.Fatalf("CreateConversation() error = %v", err)
	}
	for _, seed := range []struct{ role, content string }{
		{"system", "You are terse"},
		{"user", "earlier question"},
		{"assistant", "earlier answer"},
	} {
		if _, err := database.AddMessage(conv.ID, seed.role, seed.content, ""); err != nil {
			t.Fatalf("AddMessage() error = %v", err)
		}
	}

	var lastRequest proxy.CompletionRequest
	completer := &testutil.MockCompleter{
		CompleteFunc: func(req proxy.CompletionRequest) (*proxy.CompletionResponse, error) {
			lastRequest = req
			return &proxy.CompletionResponse{GeneratedText: "reply"}, nil
		},
	}
	o := newTestOrchestrator(database, completer)

	if err := o.OpenConversation(conv.ID); err != nil {
		t.Fatalf("OpenConversation() error = %v", err)
	}
	// The reopened transcript keeps every stored message
	if got := o.Transcript(); len(got) != 3 {
		t.Fatalf("transcript has %d messages, want all 3 stored ones", len(got))
	}

	if _, err := o.SendMessage("follow-up"); err != nil {
		t.Fatalf("SendMessage() error = %v", err)
	}

	want := []proxy.ChatMessage{
		{Role: "user", Content: "earlier question"},
		{Role: "assistant", Content: "earlier answer"},
		{Role: "user", Content: "follow-up"},
	}
	if len(lastRequest.Messages) != len(want) {
		t.Fatalf("context has %d messages, want %d without the system turn", len(lastRequest.Messages), len(want))
	}
	for i, m := range want {
		if lastRequest.Messages[i] != m {
			t.Errorf("context[%d] = %+v, want %+v", i, lastRequest.Messages[i], m)
		}
	}
}

func TestOpenConversation_OtherUsersConversation(t *testing.T) {
	database := newMemoryDB()
	other := NewOrchestrator(database, echoCompleter(), config.DefaultModelCatalog(), "user-2")
	if _, err := other.SendMessage("private"); err != nil {
		t.Fatalf("SendMessage() error = %v", err)
	}

	o := newTestOrchestrator(database, echoCompleter())
	if err := o.OpenConversation(other.ActiveConversation()); err == nil {
		t.Error("OpenConversation() must refuse another user's conversation")
	}
}

func TestSelectModel(t *testing.T) {
	o := newTestOrchestrator(newMemoryDB(), echoCompleter())

	if got := o.SelectedModel(); got != "gpt-4o" {
		t.Errorf("SelectedModel() = %q, want the catalog default", got)
	}

	if err := o.SelectModel("grok-2"); err != nil {
		t.Fatalf("SelectModel() error = %v", err)
	}
	if got := o.SelectedModel(); got != "grok-2" {
		t.Errorf("SelectedModel() = %q, want grok-2", got)
	}

	if err := o.SelectModel("made-up-model"); err == nil {
		t.Error("SelectModel() must reject unknown models")
	}
	if got := o.SelectedModel(); got != "grok-2" {
		t.Errorf("rejected selection must not change the model, got %q", got)
	}
}

func TestSessionManager(t *testing.T) {
	database := newMemoryDB()
	m := NewSessionManager(database, echoCompleter(), config.DefaultModelCatalog())

	a := m.Session("user-1")
	if a != m.Session("user-1") {
		t.Error("Session() must return the same session for a user")
	}
	if a == m.Session("user-2") {
		t.Error("Session() must isolate users")
	}

	m.Drop("user-1")
	if a == m.Session("user-1") {
		t.Error("Drop() must discard the session")
	}
}
