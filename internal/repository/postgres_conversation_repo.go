package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/gearcart/internal/model"
)

// PostgresConversationRepo はPostgreSQLを使用した会話リポジトリ。
type PostgresConversationRepo struct {
	db *sql.DB
}

// NewPostgresConversationRepo はPostgresConversationRepoを生成する。
func NewPostgresConversationRepo(db *sql.DB) *PostgresConversationRepo {
	return &PostgresConversationRepo{db: db}
}

// Create は会話を作成する。
func (r *PostgresConversationRepo) Create(ctx context.Context, conv *model.Conversation) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO conversations (id, user_id, session_token, created_at)
		 VALUES ($1, $2, $3, $4)`,
		conv.ID, conv.UserID, conv.SessionToken, conv.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("会話の作成に失敗しました: %w", err)
	}
	return nil
}

// FindByID は指定IDの会話を取得する。見つからない場合はnilを返す。
func (r *PostgresConversationRepo) FindByID(ctx context.Context, id string) (*model.Conversation, error) {
	conv := &model.Conversation{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, session_token, created_at FROM conversations WHERE id = $1`,
		id,
	).Scan(&conv.ID, &conv.UserID, &conv.SessionToken, &conv.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("会話の取得に失敗しました: %w", err)
	}

	return conv, nil
}

// AppendMessage はメッセージを追記する。
// seqカラムはBIGSERIALで採番され、同時刻メッセージの順序を
// 挿入順で決定するために使用される。採番結果はmsg.Seqに書き戻される。
func (r *PostgresConversationRepo) AppendMessage(ctx context.Context, msg *model.Message) error {
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO messages (id, conversation_id, role, content, created_at)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING seq`,
		msg.ID, msg.ConversationID, string(msg.Role), msg.Content, msg.CreatedAt,
	).Scan(&msg.Seq)
	if err != nil {
		return fmt.Errorf("メッセージの追記に失敗しました: %w", err)
	}
	return nil
}

// AppendExchange はユーザーメッセージとアシスタント応答を
// 同一トランザクションで追記する。どちらかの挿入に失敗した場合は
// ロールバックし、片方だけが残ることはない。
func (r *PostgresConversationRepo) AppendExchange(ctx context.Context, userMsg, assistantMsg *model.Message) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("トランザクションの開始に失敗しました: %w", err)
	}
	defer tx.Rollback()

	for _, msg := range []*model.Message{userMsg, assistantMsg} {
		err := tx.QueryRowContext(ctx,
			`INSERT INTO messages (id, conversation_id, role, content, created_at)
			 VALUES ($1, $2, $3, $4, $5)
			 RETURNING seq`,
			msg.ID, msg.ConversationID, string(msg.Role), msg.Content, msg.CreatedAt,
		).Scan(&msg.Seq)
		if err != nil {
			return fmt.Errorf("メッセージの追記に失敗しました: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("トランザクションのコミットに失敗しました: %w", err)
	}
	return nil
}

// ListRecentMessages は直近limit件のメッセージを時系列昇順（古い順）で返す。
// 直近limit件の選択は降順で行い、結果を反転して返す。
func (r *PostgresConversationRepo) ListRecentMessages(ctx context.Context, conversationID string, limit int) ([]*model.Message, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, role, content, seq, created_at FROM messages
		 WHERE conversation_id = $1
		 ORDER BY created_at DESC, seq DESC
		 LIMIT $2`,
		conversationID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("メッセージ履歴の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var messages []*model.Message
	for rows.Next() {
		msg := &model.Message{ConversationID: conversationID}
		var role string
		if err := rows.Scan(&msg.ID, &role, &msg.Content, &msg.Seq, &msg.CreatedAt); err != nil {
			return nil, fmt.Errorf("メッセージのスキャンに失敗しました: %w", err)
		}
		msg.Role = model.MessageRole(role)
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("メッセージ履歴の読み取りに失敗しました: %w", err)
	}

	// 降順で取得したトレーリングウィンドウを時系列昇順に並べ直す
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}

	return messages, nil
}

// compile-time interface check
var _ ConversationRepository = (*PostgresConversationRepo)(nil)
