package handlers

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"multichat/internal/auth"
	"multichat/internal/config"
	"multichat/internal/repository/db"
	chatService "multichat/internal/service/chat"
	"multichat/internal/testutil"
)

func newTestChatHandlers(database db.Database) *ChatHandlers {
	sessions := chatService.NewSessionManager(database, &testutil.MockCompleter{}, config.DefaultModelCatalog())
	return NewChatHandlers(testutil.NewMockConfig(database), sessions)
}

func authedRequest(method, target string, body *bytes.Buffer) *http.Request {
	if body == nil {
		body = &bytes.Buffer{}
	}
	r := httptest.NewRequest(method, target, body)
	return r.WithContext(context.WithValue(r.Context(), auth.UserContextKey, "demo"))
}

func TestSendMessageHandler_UserWithoutIDIsNoOp(t *testing.T) {
	// A user row with no id makes the session a no-op; the handler must not
	// dereference the absent result
	database := &testutil.MockDatabase{
		GetUserByUsernameFunc: func(username string) (*db.User, error) {
			return &db.User{Username: username}, nil
		},
	}
	ch := newTestChatHandlers(database)

	w := httptest.NewRecorder()
	ch.SendMessageHandler(w, authedRequest(http.MethodPost, "/api/chat/send", bytes.NewBufferString(`{"message":"hi"}`)))

	if w.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusNoContent)
	}
	if w.Body.Len() != 0 {
		t.Errorf("body = %q, want empty", w.Body.String())
	}
}
