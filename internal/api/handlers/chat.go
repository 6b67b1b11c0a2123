package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/sirupsen/logrus"

	"multichat/internal/app"
	"multichat/internal/auth"
	"multichat/internal/config"
	"multichat/internal/logger"
	"multichat/internal/proxy"
	"multichat/internal/repository/db"
	chatService "multichat/internal/service/chat"
	conversationService "multichat/internal/service/conversation"
	"multichat/pkg/validation"
)

// Request/Response types

type SendRequest struct {
	Message        string `json:"message"`
	Model          string `json:"model,omitempty"`
	ConversationID string `json:"conversation_id,omitempty"`
}

type TranscriptEntry struct {
	MessageData
	Log *chatService.LogEntry `json:"log,omitempty"`
}

type SendResponse struct {
	ConversationID string             `json:"conversation_id"`
	UserMessage    MessageData        `json:"user_message"`
	Reply          TranscriptEntry    `json:"reply"`
	Conversations  []ConversationInfo `json:"conversations"`
}

type ConversationInfo struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Model     string `json:"model,omitempty"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

type ConversationsResponse struct {
	Conversations []ConversationInfo `json:"conversations"`
}

type MessageData struct {
	ID        string `json:"id"`
	Role      string `json:"role"`
	Content   string `json:"content"`
	Model     string `json:"model,omitempty"`
	CreatedAt string `json:"created_at"`
}

type MessagesResponse struct {
	Messages []MessageData `json:"messages"`
}

type RenameRequest struct {
	Title string `json:"title"`
}

type SuccessResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

type ModelsResponse struct {
	Models []config.Model `json:"models"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// ChatHandlers serves the authenticated chat API on top of the service
// layer.
type ChatHandlers struct {
	config        *app.Config
	validator     *validation.ChatRequestValidator
	sessions      *chatService.SessionManager
	conversations *conversationService.Service
}

// NewChatHandlers creates a new ChatHandlers with the service layer
func NewChatHandlers(cfg *app.Config, sessions *chatService.SessionManager) *ChatHandlers {
	return &ChatHandlers{
		config:        cfg,
		validator:     validation.NewChatRequestValidator(),
		sessions:      sessions,
		conversations: conversationService.NewService(cfg.DB),
	}
}

// SendMessageHandler runs one send cycle: persist the user message, call
// the completion proxy, persist the reply.
func (ch *ChatHandlers) SendMessageHandler(w http.ResponseWriter, r *http.Request) {
	user, err := ch.getUserFromContext(r)
	if err != nil {
		ch.sendError(w, http.StatusNotFound, "User not found", err)
		return
	}

	var req SendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ch.sendError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	if err := ch.validator.ValidateSendRequest(req.Message, req.Model, ch.config.Models.IsValidModel); err != nil {
		ch.sendError(w, http.StatusBadRequest, "Validation failed", err)
		return
	}

	session := ch.sessions.Session(user.ID)
	if req.ConversationID != "" && req.ConversationID != session.ActiveConversation() {
		if err := session.OpenConversation(req.ConversationID); err != nil {
			if errors.Is(err, chatService.ErrTurnInFlight) {
				ch.sendError(w, http.StatusConflict, "A message is already being sent", err)
				return
			}
			ch.sendError(w, http.StatusNotFound, "Conversation not found", err)
			return
		}
	}
	// An explicit model wins over the one adopted from the conversation
	if req.Model != "" {
		if err := session.SelectModel(req.Model); err != nil {
			ch.sendError(w, http.StatusBadRequest, "Invalid model", err)
			return
		}
	}

	result, err := session.SendMessage(req.Message)
	if err != nil {
		ch.sendSendError(w, err)
		return
	}
	if result == nil {
		// The session has no user to act for; nothing was sent
		w.WriteHeader(http.StatusNoContent)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(SendResponse{
		ConversationID: result.ConversationID,
		UserMessage:    toMessageData(result.UserMessage.Message),
		Reply: TranscriptEntry{
			MessageData: toMessageData(result.Reply.Message),
			Log:         result.Reply.Log,
		},
		Conversations: toConversationInfos(result.Conversations),
	})
}

// sendSendError maps send-cycle failures onto HTTP statuses. Proxy
// failures keep the status the proxy reported.
func (ch *ChatHandlers) sendSendError(w http.ResponseWriter, err error) {
	logger.Log.WithError(err).Error("Error from chat session")

	var proxyErr *proxy.Error
	switch {
	case errors.Is(err, chatService.ErrTurnInFlight):
		ch.sendError(w, http.StatusConflict, "A message is already being sent", err)
	case errors.Is(err, chatService.ErrEmptyMessage):
		ch.sendError(w, http.StatusBadRequest, "Message cannot be empty", err)
	case errors.As(err, &proxyErr):
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(proxyErr.Envelope.StatusCode)
		json.NewEncoder(w).Encode(proxyErr.Envelope)
	default:
		ch.sendError(w, http.StatusInternalServerError, "Error processing message", err)
	}
}

// NewChatHandler detaches the session from its active conversation so the
// next send starts a new one.
func (ch *ChatHandlers) NewChatHandler(w http.ResponseWriter, r *http.Request) {
	user, err := ch.getUserFromContext(r)
	if err != nil {
		ch.sendError(w, http.StatusNotFound, "User not found", err)
		return
	}

	if err := ch.sessions.Session(user.ID).NewChat(); err != nil {
		ch.sendError(w, http.StatusConflict, "A message is already being sent", err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(SuccessResponse{Success: true})
}

// GetConversationsHandler lists the user's conversations
func (ch *ChatHandlers) GetConversationsHandler(w http.ResponseWriter, r *http.Request) {
	user, err := ch.getUserFromContext(r)
	if err != nil {
		ch.sendError(w, http.StatusNotFound, "User not found", err)
		return
	}

	conversations, err := ch.conversations.List(user.ID)
	if err != nil {
		logger.Log.WithError(err).Error("Error retrieving conversations")
		ch.sendError(w, http.StatusInternalServerError, "Error retrieving conversations", err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(ConversationsResponse{
		Conversations: toConversationInfos(conversations),
	})
}

// GetConversationMessagesHandler returns a conversation's history
func (ch *ChatHandlers) GetConversationMessagesHandler(w http.ResponseWriter, r *http.Request) {
	user, err := ch.getUserFromContext(r)
	if err != nil {
		ch.sendError(w, http.StatusNotFound, "User not found", err)
		return
	}

	convID := r.PathValue("id")
	messages, err := ch.conversations.Messages(user.ID, convID)
	if err != nil {
		ch.sendConversationError(w, err, "Error retrieving messages")
		return
	}

	messageData := make([]MessageData, 0, len(messages))
	for _, m := range messages {
		messageData = append(messageData, toMessageData(m))
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(MessagesResponse{Messages: messageData})
}

// RenameConversationHandler updates a conversation's title
func (ch *ChatHandlers) RenameConversationHandler(w http.ResponseWriter, r *http.Request) {
	user, err := ch.getUserFromContext(r)
	if err != nil {
		ch.sendError(w, http.StatusNotFound, "User not found", err)
		return
	}

	var req RenameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ch.sendError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	if err := ch.validator.ValidateTitle(req.Title); err != nil {
		ch.sendError(w, http.StatusBadRequest, "Validation failed", err)
		return
	}

	convID := r.PathValue("id")
	if err := ch.conversations.Rename(user.ID, convID, req.Title); err != nil {
		ch.sendConversationError(w, err, "Error renaming conversation")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(SuccessResponse{Success: true, Message: "Conversation renamed"})
}

// DeleteConversationHandler deletes a conversation and its messages
func (ch *ChatHandlers) DeleteConversationHandler(w http.ResponseWriter, r *http.Request) {
	user, err := ch.getUserFromContext(r)
	if err != nil {
		ch.sendError(w, http.StatusNotFound, "User not found", err)
		return
	}

	convID := r.PathValue("id")
	logger.Log.WithFields(logrus.Fields{"username": user.Username, "conversation_id": convID}).Info("Delete conversation request")

	// Detach before deleting so an in-flight send is rejected instead of
	// persisting into a row that no longer exists.
	session := ch.sessions.Session(user.ID)
	if session.ActiveConversation() == convID {
		if err := session.NewChat(); err != nil {
			ch.sendError(w, http.StatusConflict, "A message is already being sent", err)
			return
		}
	}

	if err := ch.conversations.Delete(user.ID, convID); err != nil {
		ch.sendConversationError(w, err, "Error deleting conversation")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(SuccessResponse{Success: true, Message: "Conversation deleted"})
}

// GetModelsHandler returns the selectable model catalog
func (ch *ChatHandlers) GetModelsHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(ModelsResponse{
		Models: ch.config.Models.GetAvailableModels(),
	})
}

// Helper methods

func toMessageData(m db.Message) MessageData {
	return MessageData{
		ID:        m.ID,
		Role:      m.Role,
		Content:   m.Content,
		Model:     m.Model,
		CreatedAt: m.CreatedAt.String(),
	}
}

func toConversationInfos(conversations []db.Conversation) []ConversationInfo {
	infos := make([]ConversationInfo, 0, len(conversations))
	for _, c := range conversations {
		infos = append(infos, ConversationInfo{
			ID:        c.ID,
			Title:     c.Title,
			Model:     c.Model,
			CreatedAt: c.CreatedAt.String(),
			UpdatedAt: c.UpdatedAt.String(),
		})
	}
	return infos
}

// sendError sends a standardized JSON error response
func (ch *ChatHandlers) sendError(w http.ResponseWriter, status int, message string, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	errResp := ErrorResponse{
		Code:    status,
		Message: message,
	}
	if err != nil {
		errResp.Error = err.Error()
	}
	json.NewEncoder(w).Encode(errResp)
}

func (ch *ChatHandlers) sendConversationError(w http.ResponseWriter, err error, fallback string) {
	if errors.Is(err, conversationService.ErrNotFound) {
		ch.sendError(w, http.StatusNotFound, "Conversation not found", err)
		return
	}
	logger.Log.WithError(err).Error(fallback)
	ch.sendError(w, http.StatusInternalServerError, fallback, err)
}

// getUserFromContext resolves the authenticated username to its user row
func (ch *ChatHandlers) getUserFromContext(r *http.Request) (*db.User, error) {
	username := auth.UsernameFromContext(r.Context())
	return ch.config.DB.GetUserByUsername(username)
}
