package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hitoshi/gearcart/internal/model"
)

// PostgresCartRepo はPostgreSQLを使用したカートリポジトリ。
//
// 在庫上限チェックを伴う書き込みは、商品行をFOR UPDATEでロックした
// トランザクション内で「現在数量の読み取り→上限チェック→書き込み」を
// 実行する。同一商品への並行書き込みは商品行ロックで直列化されるため、
// 2つの並行追加が同時に在庫を十分と判定して売り越すことはない。
type PostgresCartRepo struct {
	db *sql.DB
}

// NewPostgresCartRepo はPostgresCartRepoを生成する。
func NewPostgresCartRepo(db *sql.DB) *PostgresCartRepo {
	return &PostgresCartRepo{db: db}
}

// AddLine は(user, product)の行へのマージと在庫上限チェックを
// 単一トランザクションで実行する。
func (r *PostgresCartRepo) AddLine(ctx context.Context, userID, productID string, quantity int) (*model.CartLine, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("トランザクションの開始に失敗しました: %w", err)
	}
	defer tx.Rollback()

	// 商品行をロックし、同一商品への並行追加を直列化する
	var productName string
	var productPrice float64
	var stock int
	err = tx.QueryRowContext(ctx,
		`SELECT name, price, stock FROM products WHERE id = $1 FOR UPDATE`,
		productID,
	).Scan(&productName, &productPrice, &stock)
	if err == sql.ErrNoRows {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("商品のロック取得に失敗しました: %w", err)
	}

	now := time.Now().UTC()

	// 既存行を確認（マージセマンティクス: 同一商品の行は1つに統合する）
	existing := &model.CartLine{UserID: userID, ProductID: productID}
	err = tx.QueryRowContext(ctx,
		`SELECT id, name, price, quantity, created_at FROM cart_lines
		 WHERE user_id = $1 AND product_id = $2`,
		userID, productID,
	).Scan(&existing.ID, &existing.Name, &existing.Price, &existing.Quantity, &existing.CreatedAt)

	if err != nil && err != sql.ErrNoRows {
		return nil, fmt.Errorf("カート行の取得に失敗しました: %w", err)
	}

	if err == sql.ErrNoRows {
		// 新規行: 現在のカタログ価格をスナップショットとして保存する
		newTotal := quantity
		if newTotal > stock {
			return nil, &StockError{Requested: newTotal, Stock: stock}
		}

		line := &model.CartLine{
			ID:        uuid.New().String(),
			UserID:    userID,
			ProductID: productID,
			Name:      productName,
			Price:     productPrice,
			Quantity:  newTotal,
			CreatedAt: now,
			UpdatedAt: now,
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO cart_lines (id, user_id, product_id, name, price, quantity, created_at, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			line.ID, line.UserID, line.ProductID, line.Name, line.Price, line.Quantity,
			line.CreatedAt, line.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("カート行の作成に失敗しました: %w", err)
		}

		if err := tx.Commit(); err != nil {
			return nil, fmt.Errorf("トランザクションのコミットに失敗しました: %w", err)
		}
		return line, nil
	}

	// 既存行: 数量をマージし、マージ後の合計で上限チェックする
	newTotal := existing.Quantity + quantity
	if newTotal > stock {
		return nil, &StockError{Requested: newTotal, Stock: stock}
	}

	existing.Quantity = newTotal
	existing.UpdatedAt = now
	_, err = tx.ExecContext(ctx,
		`UPDATE cart_lines SET quantity = $3, updated_at = $4 WHERE id = $1 AND user_id = $2`,
		existing.ID, userID, existing.Quantity, existing.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("カート行の更新に失敗しました: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("トランザクションのコミットに失敗しました: %w", err)
	}
	return existing, nil
}

// UpdateQuantity は行の数量を在庫上限チェック付きで置き換える。
// レガシー行（product_id IS NULL）には在庫上限が適用されない。
func (r *PostgresCartRepo) UpdateQuantity(ctx context.Context, userID, lineID string, quantity int) (*model.CartLine, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("トランザクションの開始に失敗しました: %w", err)
	}
	defer tx.Rollback()

	line := &model.CartLine{ID: lineID, UserID: userID}
	var productID sql.NullString
	err = tx.QueryRowContext(ctx,
		`SELECT product_id, name, price, quantity, created_at FROM cart_lines
		 WHERE id = $1 AND user_id = $2`,
		lineID, userID,
	).Scan(&productID, &line.Name, &line.Price, &line.Quantity, &line.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrLineNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("カート行の取得に失敗しました: %w", err)
	}
	line.ProductID = productID.String

	if productID.Valid {
		// 商品行をロックしてから在庫上限をチェックする
		var stock int
		err = tx.QueryRowContext(ctx,
			`SELECT stock FROM products WHERE id = $1 FOR UPDATE`,
			productID.String,
		).Scan(&stock)
		if err != nil && err != sql.ErrNoRows {
			return nil, fmt.Errorf("商品のロック取得に失敗しました: %w", err)
		}
		// 商品が削除済みの場合は制約なしのレガシー行として扱う
		if err == nil && quantity > stock {
			return nil, &StockError{Requested: quantity, Stock: stock}
		}
	}

	line.Quantity = quantity
	line.UpdatedAt = time.Now().UTC()
	_, err = tx.ExecContext(ctx,
		`UPDATE cart_lines SET quantity = $3, updated_at = $4 WHERE id = $1 AND user_id = $2`,
		lineID, userID, line.Quantity, line.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("カート行の更新に失敗しました: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("トランザクションのコミットに失敗しました: %w", err)
	}
	return line, nil
}

// DeleteLine は指定行を削除する。対象が存在しなくてもエラーにならない（冪等）。
func (r *PostgresCartRepo) DeleteLine(ctx context.Context, userID, lineID string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM cart_lines WHERE id = $1 AND user_id = $2`,
		lineID, userID,
	)
	if err != nil {
		return fmt.Errorf("カート行の削除に失敗しました: %w", err)
	}
	return nil
}

// InsertLegacy は商品参照を持たない自由入力行を作成する。
// 在庫上限はなく、数量は常に1。
func (r *PostgresCartRepo) InsertLegacy(ctx context.Context, line *model.CartLine) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO cart_lines (id, user_id, product_id, name, price, quantity, created_at, updated_at)
		 VALUES ($1, $2, NULL, $3, $4, $5, $6, $7)`,
		line.ID, line.UserID, line.Name, line.Price, line.Quantity,
		line.CreatedAt, line.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("レガシー行の作成に失敗しました: %w", err)
	}
	return nil
}

// ListByUser はユーザーのカート行一覧を作成日時降順で返す。
func (r *PostgresCartRepo) ListByUser(ctx context.Context, userID string) ([]*model.CartLine, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, product_id, name, price, quantity, created_at, updated_at
		 FROM cart_lines WHERE user_id = $1 ORDER BY created_at DESC, id DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("カート行一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var lines []*model.CartLine
	for rows.Next() {
		line := &model.CartLine{UserID: userID}
		var productID sql.NullString
		err := rows.Scan(
			&line.ID, &productID, &line.Name, &line.Price, &line.Quantity,
			&line.CreatedAt, &line.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("カート行のスキャンに失敗しました: %w", err)
		}
		line.ProductID = productID.String
		lines = append(lines, line)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("カート行一覧の読み取りに失敗しました: %w", err)
	}

	return lines, nil
}

// compile-time interface check
var _ CartRepository = (*PostgresCartRepo)(nil)
