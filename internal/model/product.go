// Package model はドメインモデルを定義する。
package model

import "time"

// Product はカタログ上の商品を表す。
// カタログ管理（入荷・価格改定）は外部システムが行い、本コアからは読み取り専用。
type Product struct {
	ID          string
	Name        string
	Category    string
	Price       float64
	Description string
	ImageURL    string
	Stock       int // 非負の在庫数
	// Videos は商品紹介動画のリスト。youtube_linksカラム（JSON）を
	// ストア境界でパースした型付きの値。未設定の場合は空スライス。
	Videos    []VideoLink
	CreatedAt time.Time
}

// VideoLink は商品紹介動画への参照を表す。
type VideoLink struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Channel string `json:"channel"`
}

// ViewedProduct はユーザーが商品を閲覧した履歴エントリを表す。
// (user_id, product_id) の組で一意であり、再閲覧時はViewedAtのみ更新される。
type ViewedProduct struct {
	UserID    string
	ProductID string
	ViewedAt  time.Time
}
