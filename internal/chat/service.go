// Package chat は会話コンテキストと応答生成のドメインロジックを提供する。
package chat

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/gearcart/internal/llm"
	"github.com/hitoshi/gearcart/internal/metrics"
	"github.com/hitoshi/gearcart/internal/model"
	"github.com/hitoshi/gearcart/internal/repository"
	"github.com/hitoshi/gearcart/internal/security"
)

// fallbackReply は生成に失敗した場合に保存・返却される固定の応答。
// 会話履歴が外部呼び出しの結果待ちのまま途切れることはない。
const fallbackReply = "Sorry, I'm having trouble connecting. Please try again in a moment."

// Service は会話コンテキストのサービス層。
// 会話の開始、メッセージの追記、履歴の取得、応答の生成を提供する。
type Service struct {
	convRepo     repository.ConversationRepository
	productRepo  repository.ProductRepository
	completer    llm.Completer
	sanitizer    security.ContentSanitizerService
	prompts      *PromptBuilder
	collector    metrics.MetricsCollector
	timeout      time.Duration
	historyLimit int
}

// NewService はServiceの新しいインスタンスを生成する。
// collectorはnilでもよく、その場合メトリクスは記録されない。
func NewService(
	convRepo repository.ConversationRepository,
	productRepo repository.ProductRepository,
	completer llm.Completer,
	sanitizer security.ContentSanitizerService,
	prompts *PromptBuilder,
	collector metrics.MetricsCollector,
	timeout time.Duration,
	historyLimit int,
) *Service {
	return &Service{
		convRepo:     convRepo,
		productRepo:  productRepo,
		completer:    completer,
		sanitizer:    sanitizer,
		prompts:      prompts,
		collector:    collector,
		timeout:      timeout,
		historyLimit: historyLimit,
	}
}

// StartConversation は新しい会話を開始して返す。
// チャットウィジェットを開くたびに新規会話となり、過去の会話は再開されない。
func (s *Service) StartConversation(ctx context.Context, userID string) (*model.Conversation, error) {
	token, err := generateSessionToken()
	if err != nil {
		slog.Error("セッショントークンの生成に失敗しました", "error", err)
		return nil, model.NewConversationCreateFailedError()
	}

	conv := &model.Conversation{
		ID:           uuid.New().String(),
		UserID:       userID,
		SessionToken: token,
		CreatedAt:    time.Now().UTC(),
	}

	if err := s.convRepo.Create(ctx, conv); err != nil {
		slog.Error("会話の作成に失敗しました", "userID", userID, "error", err)
		return nil, model.NewConversationCreateFailedError()
	}

	slog.Info("会話を開始しました", "conversationID", conv.ID, "userID", userID)
	return conv, nil
}

// AppendMessage は会話にメッセージを追記して返す。
// 会話が存在しない場合、他ユーザーの会話の場合、ロールが不正な場合、
// 本文が空の場合はエラーを返す。
func (s *Service) AppendMessage(ctx context.Context, userID, conversationID string, role model.MessageRole, content string) (*model.Message, error) {
	if !role.Valid() {
		return nil, model.NewInvalidRoleError(string(role))
	}
	if strings.TrimSpace(content) == "" {
		return nil, model.NewEmptyMessageError()
	}

	if _, err := s.findOwnedConversation(ctx, userID, conversationID); err != nil {
		return nil, err
	}

	msg := &model.Message{
		ID:             uuid.New().String(),
		ConversationID: conversationID,
		Role:           role,
		Content:        content,
		CreatedAt:      time.Now().UTC(),
	}
	if err := s.convRepo.AppendMessage(ctx, msg); err != nil {
		return nil, fmt.Errorf("メッセージの追記に失敗しました: %w", err)
	}

	return msg, nil
}

// RecentHistory は会話の直近limit件のメッセージを古い順で返す。
// limitが1未満の場合は設定された履歴件数が使われる。
// 他ユーザーの会話は存在しないものとして扱われる。
func (s *Service) RecentHistory(ctx context.Context, userID, conversationID string, limit int) ([]*model.Message, error) {
	if limit < 1 {
		limit = s.historyLimit
	}

	if _, err := s.findOwnedConversation(ctx, userID, conversationID); err != nil {
		return nil, err
	}

	messages, err := s.convRepo.ListRecentMessages(ctx, conversationID, limit)
	if err != nil {
		return nil, fmt.Errorf("履歴の取得に失敗しました: %w", err)
	}
	return messages, nil
}

// Respond はユーザーのメッセージに対する応答を生成して返す。
// conversationIDが空の場合は新しい会話を自動作成する。
// 生成の失敗はフォールバック応答で回復し、エラーとして呼び出し側に
// 漏れることはない。返り値は応答本文と会話ID。
func (s *Service) Respond(ctx context.Context, userID, conversationID, message string) (string, string, error) {
	if strings.TrimSpace(message) == "" {
		return "", "", model.NewEmptyMessageError()
	}

	conv, err := s.resolveConversation(ctx, userID, conversationID)
	if err != nil {
		return "", "", err
	}

	// 新規メッセージはプロンプト末尾に明示的に含まれるため、
	// 履歴には保存済みメッセージのみが入る。
	history, err := s.convRepo.ListRecentMessages(ctx, conv.ID, s.historyLimit)
	if err != nil {
		return "", "", fmt.Errorf("履歴の取得に失敗しました: %w", err)
	}

	userMsg := &model.Message{
		ID:             uuid.New().String(),
		ConversationID: conv.ID,
		Role:           model.RoleUser,
		Content:        message,
		CreatedAt:      time.Now().UTC(),
	}

	reply := s.generateReply(ctx, conv.ID, history, message)

	assistantMsg := &model.Message{
		ID:             uuid.New().String(),
		ConversationID: conv.ID,
		Role:           model.RoleAssistant,
		Content:        reply,
		CreatedAt:      time.Now().UTC(),
	}

	// ユーザーメッセージと応答は同一トランザクションで保存する。
	// 片方だけが残ることはない。
	if err := s.convRepo.AppendExchange(ctx, userMsg, assistantMsg); err != nil {
		return "", "", fmt.Errorf("メッセージの保存に失敗しました: %w", err)
	}

	return reply, conv.ID, nil
}

// resolveConversation は指定された会話を解決する。IDが空なら新規作成する。
func (s *Service) resolveConversation(ctx context.Context, userID, conversationID string) (*model.Conversation, error) {
	if conversationID == "" {
		return s.StartConversation(ctx, userID)
	}
	return s.findOwnedConversation(ctx, userID, conversationID)
}

// findOwnedConversation は指定ユーザーが所有する会話を取得する。
// 他ユーザーの会話は存在を漏らさないため、存在しない場合と同じ扱いにする。
func (s *Service) findOwnedConversation(ctx context.Context, userID, conversationID string) (*model.Conversation, error) {
	conv, err := s.convRepo.FindByID(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("会話の取得に失敗しました: %w", err)
	}
	if conv == nil || conv.UserID != userID {
		return nil, model.NewConversationNotFoundError(conversationID)
	}
	return conv, nil
}

// generateReply はプロンプトを組み立てて応答を生成する。
// カタログ取得や生成の失敗はフォールバック応答に回復する。
func (s *Service) generateReply(ctx context.Context, conversationID string, history []*model.Message, message string) string {
	products, err := s.productRepo.ListInStock(ctx)
	if err != nil {
		// カタログなしでも応答は生成できる
		slog.Warn("カタログの取得に失敗しました", "error", err)
		products = nil
	}

	prompt := s.prompts.Build(products, history, message)

	genCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	completion, err := s.completer.Complete(genCtx, prompt)
	if s.collector != nil {
		s.collector.RecordChatCompletion(time.Since(start))
	}
	if err != nil {
		slog.Warn("応答の生成に失敗しました（フォールバックを返します）",
			"conversationID", conversationID, "error", err)
		if s.collector != nil {
			s.collector.RecordChatFallback()
		}
		return fallbackReply
	}

	return s.sanitizer.Sanitize(completion)
}

// generateSessionToken は暗号的に安全なセッショントークンを生成する。
func generateSessionToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
