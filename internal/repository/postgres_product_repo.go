package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/hitoshi/gearcart/internal/model"
)

// PostgresProductRepo はPostgreSQLを使用した商品カタログリポジトリ。
type PostgresProductRepo struct {
	db *sql.DB
}

// NewPostgresProductRepo はPostgresProductRepoを生成する。
func NewPostgresProductRepo(db *sql.DB) *PostgresProductRepo {
	return &PostgresProductRepo{db: db}
}

// maxVideosPerProduct は商品詳細に含める紹介動画の最大数。
const maxVideosPerProduct = 3

// FindByID は指定IDの商品を取得する。見つからない場合はnilを返す。
func (r *PostgresProductRepo) FindByID(ctx context.Context, id string) (*model.Product, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, name, category, price, description, image_url, stock, youtube_links, created_at
		 FROM products WHERE id = $1`,
		id,
	)

	product, err := scanProduct(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("商品の取得に失敗しました: %w", err)
	}

	return product, nil
}

// Search は検索語・カテゴリ・ソート指定で商品を検索する。
// ソートカラムは許可リストで検証し、不正な指定はデフォルト（name昇順）に落とす。
func (r *PostgresProductRepo) Search(ctx context.Context, query, category, sortBy, sortOrder string) ([]*model.Product, error) {
	sql_ := `SELECT id, name, category, price, description, image_url, stock, youtube_links, created_at
	         FROM products WHERE 1=1`
	args := []interface{}{}

	if query != "" {
		args = append(args, "%"+strings.ToLower(query)+"%")
		placeholder := fmt.Sprintf("$%d", len(args))
		sql_ += fmt.Sprintf(" AND (LOWER(name) LIKE %s OR LOWER(description) LIKE %s)", placeholder, placeholder)
	}

	if category != "" {
		args = append(args, strings.ToLower(category))
		sql_ += fmt.Sprintf(" AND LOWER(category) = $%d", len(args))
	}

	sql_ += " ORDER BY " + sortColumn(sortBy) + " " + sortDirection(sortOrder)

	rows, err := r.db.QueryContext(ctx, sql_, args...)
	if err != nil {
		return nil, fmt.Errorf("商品検索に失敗しました: %w", err)
	}
	defer rows.Close()

	return collectProducts(rows)
}

// ListInStock は在庫のある商品の一覧を名前順で返す。
func (r *PostgresProductRepo) ListInStock(ctx context.Context) ([]*model.Product, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, category, price, description, image_url, stock, youtube_links, created_at
		 FROM products WHERE stock > 0 ORDER BY name ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("在庫商品一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	return collectProducts(rows)
}

// ListCategories は登録されている商品カテゴリの一覧を返す。
func (r *PostgresProductRepo) ListCategories(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT DISTINCT category FROM products ORDER BY category ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("カテゴリ一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var categories []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, fmt.Errorf("カテゴリのスキャンに失敗しました: %w", err)
		}
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("カテゴリ一覧の読み取りに失敗しました: %w", err)
	}

	return categories, nil
}

// sortColumn はソートカラム指定を許可リストで検証する。
func sortColumn(sortBy string) string {
	switch sortBy {
	case "name", "price", "created_at":
		return sortBy
	default:
		return "name"
	}
}

// sortDirection はソート方向指定を検証する。
func sortDirection(order string) string {
	if strings.EqualFold(order, "desc") {
		return "DESC"
	}
	return "ASC"
}

// rowScanner は*sql.Rowと*sql.Rowsの共通スキャンインターフェース。
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// scanProduct は1行を商品エンティティに変換する。
// youtube_linksカラム（JSON）はこのストア境界で型付きの値にパースされ、
// 呼び出し側に動的な形式判定を持ち込まない。
func scanProduct(row rowScanner) (*model.Product, error) {
	p := &model.Product{}
	var description, imageURL sql.NullString
	var videosRaw []byte

	err := row.Scan(
		&p.ID, &p.Name, &p.Category, &p.Price,
		&description, &imageURL, &p.Stock,
		&videosRaw, &p.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	p.Description = description.String
	p.ImageURL = imageURL.String
	p.Videos = parseVideoLinks(videosRaw)

	return p, nil
}

// parseVideoLinks はyoutube_linksのJSON値を検証しつつパースする。
// 不正なJSONやURL形式のエントリは黙って捨て、最大maxVideosPerProduct件に制限する。
func parseVideoLinks(raw []byte) []model.VideoLink {
	if len(raw) == 0 {
		return nil
	}

	var links []model.VideoLink
	if err := json.Unmarshal(raw, &links); err != nil {
		// 単一オブジェクト形式の古いデータに対応する
		var single model.VideoLink
		if err := json.Unmarshal(raw, &single); err != nil {
			return nil
		}
		links = []model.VideoLink{single}
	}

	valid := make([]model.VideoLink, 0, len(links))
	for _, l := range links {
		if !strings.HasPrefix(l.URL, "http://") && !strings.HasPrefix(l.URL, "https://") {
			continue
		}
		valid = append(valid, l)
		if len(valid) >= maxVideosPerProduct {
			break
		}
	}

	if len(valid) == 0 {
		return nil
	}
	return valid
}

// collectProducts は結果セット全体を商品スライスに変換する。
func collectProducts(rows *sql.Rows) ([]*model.Product, error) {
	var products []*model.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("商品のスキャンに失敗しました: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("商品一覧の読み取りに失敗しました: %w", err)
	}
	return products, nil
}

// compile-time interface check
var _ ProductRepository = (*PostgresProductRepo)(nil)
