package model

import "time"

// User はストアの利用ユーザーを表す。
// 認証・ユーザー登録は外部システムが行い、本コアは参照のみ。
type User struct {
	ID        string
	Email     string
	Name      string
	CreatedAt time.Time
}

// Session はユーザーのログインセッションを表す。
type Session struct {
	ID        string
	UserID    string
	ExpiresAt time.Time
	CreatedAt time.Time
}
