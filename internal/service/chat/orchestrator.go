// Package chat drives the conversational send cycle for a single signed-in
// user: creating conversations on first send, persisting both sides of each
// turn, and calling the completion proxy in between.
package chat

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"multichat/internal/config"
	"multichat/internal/logger"
	"multichat/internal/proxy"
	"multichat/internal/repository/db"
)

// ErrTurnInFlight is returned when a send is attempted while a previous
// send on the same session has not finished.
var ErrTurnInFlight = errors.New("a message is already being sent")

// ErrEmptyMessage is returned when the trimmed message content is empty.
var ErrEmptyMessage = errors.New("message content is required")

// ErrEmptyResponse is returned when the proxy call succeeds but carries no
// generated text. The turn is treated as failed.
var ErrEmptyResponse = errors.New("no response generated")

// titleRuneLimit caps conversation titles derived from the first message.
const titleRuneLimit = 60

// TranscriptMessage is a message in the session transcript. Assistant
// messages produced during this session carry the invocation log for the
// turn that generated them.
type TranscriptMessage struct {
	db.Message
	Log *LogEntry
}

// SendResult is what one completed send cycle hands back to the caller.
type SendResult struct {
	ConversationID string
	UserMessage    *TranscriptMessage
	Reply          *TranscriptMessage
	Conversations  []db.Conversation
}

// Orchestrator holds the chat session state for one user: the selected
// model, the active conversation, its transcript, and the user's
// conversation list. All methods are safe for concurrent use.
type Orchestrator struct {
	database  db.Database
	completer proxy.Completer
	models    *config.ModelCatalog

	mu            sync.Mutex
	userID        string
	selectedModel string
	activeID      string
	transcript    []TranscriptMessage
	conversations []db.Conversation
	sending       bool
}

// NewOrchestrator creates a session for the given user with the catalog's
// default model selected and no active conversation.
func NewOrchestrator(database db.Database, completer proxy.Completer, models *config.ModelCatalog, userID string) *Orchestrator {
	return &Orchestrator{
		database:      database,
		completer:     completer,
		models:        models,
		userID:        userID,
		selectedModel: models.GetDefaultModel(),
	}
}

// SelectModel switches the model used for subsequent sends. Unknown model
// ids are rejected so a stale client cannot push an unroutable model.
func (o *Orchestrator) SelectModel(modelID string) error {
	if !o.models.IsValidModel(modelID) {
		return fmt.Errorf("unknown model: %s", modelID)
	}
	o.mu.Lock()
	o.selectedModel = modelID
	o.mu.Unlock()
	return nil
}

// SelectedModel returns the model used for the next send.
func (o *Orchestrator) SelectedModel() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.selectedModel
}

// ActiveConversation returns the id of the conversation sends go to, or
// empty when the next send will create one.
func (o *Orchestrator) ActiveConversation() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.activeID
}

// Transcript returns a copy of the session transcript.
func (o *Orchestrator) Transcript() []TranscriptMessage {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]TranscriptMessage, len(o.transcript))
	copy(out, o.transcript)
	return out
}

// Conversations returns the cached conversation list, most recently
// updated first.
func (o *Orchestrator) Conversations() []db.Conversation {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]db.Conversation, len(o.conversations))
	copy(out, o.conversations)
	return out
}

// NewChat clears the active conversation so the next send starts a fresh
// one. The transcript is reset; persisted history is untouched. Refused
// while a send is in flight.
func (o *Orchestrator) NewChat() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.sending {
		return ErrTurnInFlight
	}
	o.activeID = ""
	o.transcript = nil
	return nil
}

// OpenConversation makes an existing conversation active, loads its
// persisted messages into the transcript and adopts its model when the
// catalog still offers it. The conversation must belong to this session's
// user. Refused while a send is in flight.
func (o *Orchestrator) OpenConversation(conversationID string) error {
	conv, err := o.database.GetConversation(conversationID)
	if err != nil {
		return err
	}
	if conv.UserID != o.userID {
		return errors.New("conversation not found")
	}

	messages, err := o.database.GetConversationMessages(conversationID)
	if err != nil {
		return fmt.Errorf("failed to load messages: %w", err)
	}

	transcript := make([]TranscriptMessage, 0, len(messages))
	for _, m := range messages {
		transcript = append(transcript, TranscriptMessage{Message: m})
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.sending {
		return ErrTurnInFlight
	}
	o.activeID = conversationID
	o.transcript = transcript
	if o.models.IsValidModel(conv.Model) {
		o.selectedModel = conv.Model
	}
	return nil
}

// SendMessage runs one full send cycle: ensure a conversation exists,
// persist the user message, call the completion proxy with the accumulated
// context, persist the assistant reply, and refresh the conversation list.
// On proxy failure the user message stays persisted and the error is
// returned; no assistant message is written.
func (o *Orchestrator) SendMessage(content string) (*SendResult, error) {
	if o.userID == "" {
		return nil, nil
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, ErrEmptyMessage
	}

	o.mu.Lock()
	if o.sending {
		o.mu.Unlock()
		return nil, ErrTurnInFlight
	}
	o.sending = true
	model := o.selectedModel
	conversationID := o.activeID
	o.mu.Unlock()

	defer func() {
		o.mu.Lock()
		o.sending = false
		o.mu.Unlock()
	}()

	conversationID, err := o.ensureConversation(conversationID, content, model)
	if err != nil {
		return nil, err
	}

	userMsg, err := o.database.AddMessage(conversationID, "user", content, "")
	if err != nil {
		return nil, fmt.Errorf("failed to save message: %w", err)
	}

	userEntry := TranscriptMessage{Message: *userMsg}
	o.mu.Lock()
	o.transcript = append(o.transcript, userEntry)
	contextMessages := buildContext(o.transcript)
	o.mu.Unlock()

	start := time.Now()
	resp, err := o.completer.Complete(proxy.CompletionRequest{
		Model:    model,
		Messages: contextMessages,
	})
	elapsed := time.Since(start).Milliseconds()

	if err != nil {
		logger.Log.WithError(err).WithFields(logrus.Fields{
			"model":            model,
			"conversation_id":  conversationID,
			"response_time_ms": elapsed,
		}).Error("Model invocation failed")
		return nil, err
	}
	if resp.GeneratedText == "" {
		logger.Log.WithField("model", model).Error("Model returned no response")
		return nil, ErrEmptyResponse
	}

	replyModel := resp.Model
	if replyModel == "" {
		replyModel = model
	}
	assistantMsg, err := o.database.AddMessage(conversationID, "assistant", resp.GeneratedText, replyModel)
	if err != nil {
		return nil, fmt.Errorf("failed to save response: %w", err)
	}

	var tokensUsed *int
	if resp.Usage != nil {
		total := resp.Usage.TotalTokens
		tokensUsed = &total
	}
	reply := TranscriptMessage{
		Message: *assistantMsg,
		Log:     newSuccessLog(replyModel, elapsed, tokensUsed, content, resp.GeneratedText),
	}

	o.mu.Lock()
	o.transcript = append(o.transcript, reply)
	o.mu.Unlock()

	conversations, err := o.database.GetConversationsByUser(o.userID)
	if err != nil {
		logger.Log.WithError(err).Warn("Failed to refresh conversation list")
	} else {
		o.mu.Lock()
		o.conversations = conversations
		o.mu.Unlock()
	}

	logger.Log.WithFields(logrus.Fields{
		"model":            replyModel,
		"conversation_id":  conversationID,
		"response_time_ms": elapsed,
	}).Info("Message sent")

	return &SendResult{
		ConversationID: conversationID,
		UserMessage:    &userEntry,
		Reply:          &reply,
		Conversations:  conversations,
	}, nil
}

// ensureConversation returns the active conversation id, creating a new
// conversation titled from the message's first characters when none is
// active. A created conversation is active from the moment it exists, so a
// send that fails later retries into it instead of creating another.
func (o *Orchestrator) ensureConversation(conversationID, content, model string) (string, error) {
	if conversationID != "" {
		return conversationID, nil
	}
	conv, err := o.database.CreateConversation(o.userID, deriveTitle(content), model)
	if err != nil {
		return "", fmt.Errorf("failed to create conversation: %w", err)
	}
	o.mu.Lock()
	o.activeID = conv.ID
	o.mu.Unlock()
	return conv.ID, nil
}

// buildContext flattens the transcript into the messages sent upstream,
// keeping only user and assistant turns.
func buildContext(transcript []TranscriptMessage) []proxy.ChatMessage {
	out := make([]proxy.ChatMessage, 0, len(transcript))
	for _, m := range transcript {
		if m.Role != "user" && m.Role != "assistant" {
			continue
		}
		out = append(out, proxy.ChatMessage{Role: m.Role, Content: m.Content})
	}
	return out
}

// deriveTitle truncates the first message to the title limit, counting
// characters rather than bytes so multibyte text is not split.
func deriveTitle(content string) string {
	runes := []rune(content)
	if len(runes) <= titleRuneLimit {
		return content
	}
	return string(runes[:titleRuneLimit])
}
