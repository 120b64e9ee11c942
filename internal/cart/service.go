// Package cart はカート台帳のドメインロジックを提供する。
package cart

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/gearcart/internal/metrics"
	"github.com/hitoshi/gearcart/internal/model"
	"github.com/hitoshi/gearcart/internal/repository"
)

// Service はカート台帳のサービス層。
// 商品参照行のマージ・在庫上限チェック付き追加と数量変更、
// レガシー自由入力行の追加、行削除、一覧と合計金額の計算を提供する。
type Service struct {
	cartRepo  repository.CartRepository
	collector metrics.MetricsCollector
}

// NewService はServiceの新しいインスタンスを生成する。
// collectorはnilでもよく、その場合メトリクスは記録されない。
func NewService(cartRepo repository.CartRepository, collector metrics.MetricsCollector) *Service {
	return &Service{
		cartRepo:  cartRepo,
		collector: collector,
	}
}

// AddToCart は商品をカートに追加し、追加後の行を返す。
// 同一商品の既存行があれば数量をマージする。マージ後の数量が
// 在庫を超える場合はカートを変更せずに在庫不足エラーを返す。
// 数量の検証は在庫チェックより先に行われる。
func (s *Service) AddToCart(ctx context.Context, userID, productID string, quantity int) (*model.CartLine, error) {
	if quantity < 1 {
		return nil, model.NewInvalidQuantityError(quantity)
	}

	line, err := s.cartRepo.AddLine(ctx, userID, productID, quantity)
	if err != nil {
		return nil, s.mapCartError(err, productID, "")
	}

	if s.collector != nil {
		s.collector.RecordCartAdd()
	}
	slog.Info("カートに追加しました",
		"userID", userID, "productID", productID, "quantity", line.Quantity)

	return line, nil
}

// SetQuantity は行の数量を置き換え、更新後の行と行小計、カート合計を返す。
// 商品参照行では数量が在庫を超える場合に拒否される。
// レガシー行には在庫上限が適用されない。
func (s *Service) SetQuantity(ctx context.Context, userID, lineID string, quantity int) (*model.CartLine, float64, float64, error) {
	if quantity < 1 {
		return nil, 0, 0, model.NewInvalidQuantityError(quantity)
	}

	line, err := s.cartRepo.UpdateQuantity(ctx, userID, lineID, quantity)
	if err != nil {
		return nil, 0, 0, s.mapCartError(err, "", lineID)
	}

	total, err := s.Total(ctx, userID)
	if err != nil {
		return nil, 0, 0, err
	}

	return line, line.LineTotal(), total, nil
}

// RemoveLine は指定行をカートから削除する。冪等であり、
// 存在しない行を指定してもエラーにならない。
func (s *Service) RemoveLine(ctx context.Context, userID, lineID string) error {
	if err := s.cartRepo.DeleteLine(ctx, userID, lineID); err != nil {
		return fmt.Errorf("カート行の削除に失敗しました: %w", err)
	}
	return nil
}

// LegacyAdd は商品参照を持たない自由入力行を数量1で追加する。
// 在庫チェックは行われず、価格は入力値をそのまま保持する。
func (s *Service) LegacyAdd(ctx context.Context, userID, name string, price float64) (*model.CartLine, error) {
	now := time.Now().UTC()
	line := &model.CartLine{
		ID:        uuid.New().String(),
		UserID:    userID,
		Name:      name,
		Price:     price,
		Quantity:  1,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.cartRepo.InsertLegacy(ctx, line); err != nil {
		return nil, fmt.Errorf("カート行の追加に失敗しました: %w", err)
	}

	slog.Info("レガシー行を追加しました", "userID", userID, "name", name)
	return line, nil
}

// ListLines はユーザーのカート行一覧を作成日時降順で返す。
func (s *Service) ListLines(ctx context.Context, userID string) ([]*model.CartLine, error) {
	lines, err := s.cartRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("カート一覧の取得に失敗しました: %w", err)
	}
	return lines, nil
}

// Total はカート全体の合計金額（Σ 価格×数量）を返す。
// 空のカートは0を返す。
func (s *Service) Total(ctx context.Context, userID string) (float64, error) {
	lines, err := s.cartRepo.ListByUser(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("カート合計の計算に失敗しました: %w", err)
	}

	var total float64
	for _, line := range lines {
		total += line.LineTotal()
	}
	return total, nil
}

// mapCartError はリポジトリのエラーをAPIエラーに変換する。
func (s *Service) mapCartError(err error, productID, lineID string) error {
	var stockErr *repository.StockError
	if errors.As(err, &stockErr) {
		if s.collector != nil {
			s.collector.RecordInsufficientStock()
		}
		return model.NewInsufficientStockError(stockErr.Requested, stockErr.Stock)
	}
	if errors.Is(err, repository.ErrProductNotFound) {
		return model.NewProductNotFoundError(productID)
	}
	if errors.Is(err, repository.ErrLineNotFound) {
		return model.NewLineNotFoundError(lineID)
	}
	return fmt.Errorf("カート操作に失敗しました: %w", err)
}
