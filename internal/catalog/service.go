// Package catalog は商品カタログの読み取りロジックを提供する。
package catalog

import (
	"context"
	"fmt"

	"github.com/hitoshi/gearcart/internal/model"
	"github.com/hitoshi/gearcart/internal/repository"
)

// detailSuffix は商品詳細ページ向けに説明文へ付加する定型文。
const detailSuffix = " This is a detailed overview of the instrument, its tone, build, and typical use cases."

// noDescription は説明文が未登録の場合のプレースホルダ。
const noDescription = "No description available."

// ProductDetail は詳細表示用の商品情報。
type ProductDetail struct {
	*model.Product

	// DetailedDescription は定型文を付加した詳細説明。
	DetailedDescription string
}

// Service は商品カタログのサービス層。
// カタログの更新は外部システムが行うため読み取り専用。
type Service struct {
	productRepo repository.ProductRepository
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(productRepo repository.ProductRepository) *Service {
	return &Service{productRepo: productRepo}
}

// Search は検索語・カテゴリ・ソート指定で商品を検索する。
// 不正なソート指定はデフォルト（name昇順）に落ちる。
func (s *Service) Search(ctx context.Context, query, category, sortBy, sortOrder string) ([]*model.Product, error) {
	products, err := s.productRepo.Search(ctx, query, category, sortBy, sortOrder)
	if err != nil {
		return nil, fmt.Errorf("商品検索に失敗しました: %w", err)
	}
	return products, nil
}

// Detail は商品の詳細情報を返す。見つからない場合はエラーを返す。
func (s *Service) Detail(ctx context.Context, productID string) (*ProductDetail, error) {
	product, err := s.productRepo.FindByID(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("商品詳細の取得に失敗しました: %w", err)
	}
	if product == nil {
		return nil, model.NewProductNotFoundError(productID)
	}

	description := product.Description
	if description == "" {
		description = noDescription
	}

	return &ProductDetail{
		Product:             product,
		DetailedDescription: description + detailSuffix,
	}, nil
}

// Categories は登録されている商品カテゴリの一覧を返す。
func (s *Service) Categories(ctx context.Context) ([]string, error) {
	categories, err := s.productRepo.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("カテゴリ一覧の取得に失敗しました: %w", err)
	}
	return categories, nil
}
