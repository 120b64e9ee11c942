package model

import "time"

// MessageRole はチャットメッセージの発話者種別を表す。
type MessageRole string

const (
	// RoleUser はユーザーの発話。
	RoleUser MessageRole = "user"
	// RoleAssistant はアシスタントの応答。
	RoleAssistant MessageRole = "assistant"
)

// Valid はサポートされているロールかどうかを返す。
func (r MessageRole) Valid() bool {
	return r == RoleUser || r == RoleAssistant
}

// Conversation は1チャットセッション分の会話を表す。
// チャットウィジェットを開くたびに新しい会話が作成され、過去の会話は再開されない。
type Conversation struct {
	ID           string
	UserID       string
	SessionToken string // 不透明なセッショントークン
	CreatedAt    time.Time
}

// Message は会話内の1発話を表す。
// Seq は挿入順の連番で、CreatedAtが同時刻の場合の順序決定に使用する。
type Message struct {
	ID             string
	ConversationID string
	Role           MessageRole
	Content        string
	Seq            int64
	CreatedAt      time.Time
}
