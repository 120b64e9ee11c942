package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/hitoshi/gearcart/internal/middleware"
	"github.com/hitoshi/gearcart/internal/model"
)

// ChatServiceInterface はチャットハンドラーが必要とするサービスインターフェース。
type ChatServiceInterface interface {
	// StartConversation は新しい会話を開始する。
	StartConversation(ctx context.Context, userID string) (*model.Conversation, error)
	// Respond はユーザーのメッセージに対する応答を生成して返す。
	// 生成失敗はフォールバック応答に回復するため、エラーになるのは
	// 入力不正か永続化の失敗のみ。
	Respond(ctx context.Context, userID, conversationID, message string) (string, string, error)
}

// ChatHandler はチャットのHTTPハンドラー。
type ChatHandler struct {
	service ChatServiceInterface
}

// NewChatHandler はChatHandlerを生成する。
func NewChatHandler(service ChatServiceInterface) *ChatHandler {
	return &ChatHandler{service: service}
}

// chatRequest はメッセージ送信リクエストのボディ。
type chatRequest struct {
	Message        string `json:"message"`
	ConversationID string `json:"conversation_id"`
}

// chatResponse はメッセージ送信のレスポンス。
type chatResponse struct {
	Response       string `json:"response"`
	ConversationID string `json:"conversation_id"`
}

// NewConversation は新しい会話を開始する。
// POST /chat/new → {conversation_id}
func (h *ChatHandler) NewConversation(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	conv, err := h.service.StartConversation(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]string{"conversation_id": conv.ID})
}

// SendMessage はメッセージを送信して応答を返す。
// POST /chat {message, conversation_id} → {response, conversation_id}
func (h *ChatHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, &model.APIError{
			Code:     "INVALID_REQUEST",
			Message:  "リクエストボディが不正です。",
			Category: "validation",
			Action:   "リクエスト形式を確認してください。",
		})
		return
	}

	reply, conversationID, err := h.service.Respond(r.Context(), userID, req.ConversationID, req.Message)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(chatResponse{
		Response:       reply,
		ConversationID: conversationID,
	})
}
