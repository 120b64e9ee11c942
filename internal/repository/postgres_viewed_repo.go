package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/gearcart/internal/model"
)

// PostgresViewedRepo はPostgreSQLを使用した閲覧履歴リポジトリ。
type PostgresViewedRepo struct {
	db *sql.DB
}

// NewPostgresViewedRepo はPostgresViewedRepoを生成する。
func NewPostgresViewedRepo(db *sql.DB) *PostgresViewedRepo {
	return &PostgresViewedRepo{db: db}
}

// RecordView は閲覧エントリをUPSERTし、同一トランザクション内で
// 最新keep件を残して古いエントリを削除する。
// UPSERTとトリムを同一トランザクションで行うため、同一ユーザーへの
// 並行書き込みがあってもエントリ数がkeepを超えたまま残ることはない。
func (r *PostgresViewedRepo) RecordView(ctx context.Context, userID, productID string, keep int) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("トランザクションの開始に失敗しました: %w", err)
	}
	defer tx.Rollback()

	// ユーザー行をロックし、同一ユーザーのUPSERT+トリムを直列化する。
	// READ COMMITTEDでは並行する2つのトリムが互いの挿入を見落とし、
	// エントリ数が上限を超えたまま残りうるため。
	var lockedID string
	err = tx.QueryRowContext(ctx,
		`SELECT id FROM users WHERE id = $1 FOR UPDATE`,
		userID,
	).Scan(&lockedID)
	if err != nil {
		return fmt.Errorf("ユーザー行のロック取得に失敗しました: %w", err)
	}

	// 再閲覧はタイムスタンプの更新のみ（エントリは重複しない）
	_, err = tx.ExecContext(ctx,
		`INSERT INTO viewed_products (user_id, product_id, viewed_at)
		 VALUES ($1, $2, now())
		 ON CONFLICT (user_id, product_id) DO UPDATE SET viewed_at = now()`,
		userID, productID,
	)
	if err != nil {
		return fmt.Errorf("閲覧エントリの書き込みに失敗しました: %w", err)
	}

	// 書き込みのたびに即時トリムする（遅延評価しない）
	_, err = tx.ExecContext(ctx,
		`DELETE FROM viewed_products
		 WHERE user_id = $1 AND product_id NOT IN (
		     SELECT product_id FROM viewed_products
		     WHERE user_id = $1
		     ORDER BY viewed_at DESC
		     LIMIT $2
		 )`,
		userID, keep,
	)
	if err != nil {
		return fmt.Errorf("閲覧履歴のトリムに失敗しました: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("トランザクションのコミットに失敗しました: %w", err)
	}
	return nil
}

// ListByUser は閲覧履歴を新しい順に最大limit件返す。
func (r *PostgresViewedRepo) ListByUser(ctx context.Context, userID string, limit int) ([]*model.ViewedProduct, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT product_id, viewed_at FROM viewed_products
		 WHERE user_id = $1 ORDER BY viewed_at DESC LIMIT $2`,
		userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("閲覧履歴の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var entries []*model.ViewedProduct
	for rows.Next() {
		e := &model.ViewedProduct{UserID: userID}
		if err := rows.Scan(&e.ProductID, &e.ViewedAt); err != nil {
			return nil, fmt.Errorf("閲覧エントリのスキャンに失敗しました: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("閲覧履歴の読み取りに失敗しました: %w", err)
	}

	return entries, nil
}

// compile-time interface check
var _ ViewedRepository = (*PostgresViewedRepo)(nil)
