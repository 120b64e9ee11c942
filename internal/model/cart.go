package model

import "time"

// CartLine はユーザーのカート内の1行を表す。
// ProductID が空文字列の場合はレガシーな自由入力行（在庫制約なし）。
// Price は追加時点のスナップショットであり、カタログ価格の変更に追随しない。
type CartLine struct {
	ID        string
	UserID    string
	ProductID string // 空文字列 = レガシー行
	Name      string
	Price     float64
	Quantity  int // 常に1以上
	CreatedAt time.Time
	UpdatedAt time.Time
}

// LineTotal は行の小計（スナップショット価格 × 数量）を返す。
func (l *CartLine) LineTotal() float64 {
	return l.Price * float64(l.Quantity)
}

// IsLegacy は商品参照を持たない自由入力行かどうかを返す。
func (l *CartLine) IsLegacy() bool {
	return l.ProductID == ""
}
