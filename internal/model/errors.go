package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, cart, chat, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeProductNotFound          = "PRODUCT_NOT_FOUND"
	ErrCodeLineNotFound             = "LINE_NOT_FOUND"
	ErrCodeConversationNotFound     = "CONVERSATION_NOT_FOUND"
	ErrCodeInvalidQuantity          = "INVALID_QUANTITY"
	ErrCodeInsufficientStock        = "INSUFFICIENT_STOCK"
	ErrCodeConversationCreateFailed = "CONVERSATION_CREATE_FAILED"
	ErrCodeInvalidRole              = "INVALID_ROLE"
	ErrCodeEmptyMessage             = "EMPTY_MESSAGE"
)

// NewProductNotFoundError は商品未検出エラーを生成する。
func NewProductNotFoundError(productID string) *APIError {
	return &APIError{
		Code:     ErrCodeProductNotFound,
		Message:  fmt.Sprintf("指定された商品が見つかりません: %s", productID),
		Category: "cart",
		Action:   "商品IDを確認してください。",
	}
}

// NewLineNotFoundError はカート行未検出エラーを生成する。
// 他ユーザー所有の行を指定した場合も存在しない扱いとする。
func NewLineNotFoundError(lineID string) *APIError {
	return &APIError{
		Code:     ErrCodeLineNotFound,
		Message:  fmt.Sprintf("指定されたカート行が見つかりません: %s", lineID),
		Category: "cart",
		Action:   "カートの内容を再読み込みしてください。",
	}
}

// NewConversationNotFoundError は会話未検出エラーを生成する。
func NewConversationNotFoundError(conversationID string) *APIError {
	return &APIError{
		Code:     ErrCodeConversationNotFound,
		Message:  fmt.Sprintf("指定された会話が見つかりません: %s", conversationID),
		Category: "chat",
		Action:   "チャットを開き直して新しい会話を開始してください。",
	}
}

// NewInvalidQuantityError は不正な数量エラーを生成する。
// 0以下の数量は在庫チェックより先に拒否される。
func NewInvalidQuantityError(quantity int) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidQuantity,
		Message:  fmt.Sprintf("無効な数量です: %d", quantity),
		Category: "validation",
		Action:   "数量には1以上の整数を指定してください。",
	}
}

// NewInsufficientStockError は在庫不足エラーを生成する。
// requestedはマージ後の合計数量、stockは現在の在庫数。
func NewInsufficientStockError(requested, stock int) *APIError {
	return &APIError{
		Code:     ErrCodeInsufficientStock,
		Message:  fmt.Sprintf("在庫が不足しています（要求数量: %d、在庫: %d）", requested, stock),
		Category: "cart",
		Action:   "数量を在庫数以下に減らしてください。",
	}
}

// NewConversationCreateFailedError は会話作成失敗エラーを生成する。
func NewConversationCreateFailedError() *APIError {
	return &APIError{
		Code:     ErrCodeConversationCreateFailed,
		Message:  "会話の作成に失敗しました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewInvalidRoleError は不正なロールエラーを生成する。
func NewInvalidRoleError(role string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidRole,
		Message:  fmt.Sprintf("無効なロールです: %s", role),
		Category: "validation",
		Action:   "ロールには user または assistant を指定してください。",
	}
}

// NewEmptyMessageError は空メッセージエラーを生成する。
func NewEmptyMessageError() *APIError {
	return &APIError{
		Code:     ErrCodeEmptyMessage,
		Message:  "メッセージが空です。",
		Category: "validation",
		Action:   "メッセージを入力してください。",
	}
}
