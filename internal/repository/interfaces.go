// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/hitoshi/gearcart/internal/model"
)

// ErrProductNotFound は参照された商品が存在しないことを示す。
var ErrProductNotFound = errors.New("product not found")

// ErrLineNotFound は指定されたカート行が存在しないか、
// 呼び出しユーザーの所有でないことを示す。
var ErrLineNotFound = errors.New("cart line not found")

// StockError は要求数量が在庫を超過したことを示す。
// Requestedはマージ後の合計数量、Stockはチェック時点の在庫数。
type StockError struct {
	Requested int
	Stock     int
}

// Error はerrorインターフェースを実装する。
func (e *StockError) Error() string {
	return fmt.Sprintf("insufficient stock: requested %d, stock %d", e.Requested, e.Stock)
}

// ProductRepository は商品カタログの読み取りインターフェース。
// カタログの更新は外部システムが行うため、本コアからは読み取り専用。
type ProductRepository interface {
	// FindByID は指定IDの商品を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Product, error)

	// Search は検索語・カテゴリ・ソート指定で商品を検索する。
	// queryは商品名と説明文に対する部分一致（大文字小文字を区別しない）。
	// sortByは name | price | created_at、sortOrderは asc | desc.
	Search(ctx context.Context, query, category, sortBy, sortOrder string) ([]*model.Product, error)

	// ListInStock は在庫のある商品の一覧を返す。
	ListInStock(ctx context.Context) ([]*model.Product, error)

	// ListCategories は登録されている商品カテゴリの一覧を返す。
	ListCategories(ctx context.Context) ([]string, error)
}

// CartRepository はカート行の永続化インターフェース。
// 在庫上限チェックを伴う書き込みは単一トランザクション内で実行される。
type CartRepository interface {
	// AddLine は(user, product)の行へのマージと在庫上限チェックを
	// 単一トランザクションで実行する。既存行があれば数量を加算し、
	// なければ現在価格のスナップショットで新規行を作成する。
	// 商品が存在しない場合はErrProductNotFound、
	// マージ後の数量が在庫を超える場合は*StockErrorを返す。
	AddLine(ctx context.Context, userID, productID string, quantity int) (*model.CartLine, error)

	// UpdateQuantity は行の数量を在庫上限チェック付きで置き換える。
	// 行が存在しないか他ユーザー所有の場合はErrLineNotFound、
	// 数量が在庫を超える場合は*StockErrorを返す。
	// レガシー行（商品参照なし）には在庫上限が適用されない。
	UpdateQuantity(ctx context.Context, userID, lineID string, quantity int) (*model.CartLine, error)

	// DeleteLine は指定行を削除する。冪等であり、
	// 行が存在しない場合もエラーにならない。
	DeleteLine(ctx context.Context, userID, lineID string) error

	// InsertLegacy は商品参照を持たない自由入力行を作成する。
	InsertLegacy(ctx context.Context, line *model.CartLine) error

	// ListByUser はユーザーのカート行一覧を作成日時降順で返す。
	ListByUser(ctx context.Context, userID string) ([]*model.CartLine, error)
}

// ViewedRepository は閲覧履歴の永続化インターフェース。
type ViewedRepository interface {
	// RecordView は閲覧エントリをUPSERTし、同一トランザクション内で
	// 最新keep件を残して古いエントリを削除する。
	// 書き込み直後に必ず |entries| <= keep が成立する。
	RecordView(ctx context.Context, userID, productID string, keep int) error

	// ListByUser は閲覧履歴を新しい順に最大limit件返す。
	ListByUser(ctx context.Context, userID string, limit int) ([]*model.ViewedProduct, error)
}

// ConversationRepository は会話とメッセージの永続化インターフェース。
type ConversationRepository interface {
	// Create は会話を作成する。
	Create(ctx context.Context, conv *model.Conversation) error

	// FindByID は指定IDの会話を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Conversation, error)

	// AppendMessage はメッセージを追記する。Seqは採番されてmsgに書き戻される。
	AppendMessage(ctx context.Context, msg *model.Message) error

	// AppendExchange はユーザーメッセージとアシスタント応答を
	// 同一トランザクションで追記する。片方だけが残ることはない。
	AppendExchange(ctx context.Context, userMsg, assistantMsg *model.Message) error

	// ListRecentMessages は直近limit件のメッセージを時系列昇順
	// （古い順）で返す。トレーリングウィンドウであり、
	// limitを超える古いメッセージは含まれない。
	ListRecentMessages(ctx context.Context, conversationID string, limit int) ([]*model.Message, error)
}

// SessionRepository はセッションデータの読み取りインターフェース。
// セッションの発行・失効は外部の認証システムが行う。
type SessionRepository interface {
	// FindByID は指定IDのセッションを取得する。
	// 見つからない場合および期限切れの場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Session, error)
}
