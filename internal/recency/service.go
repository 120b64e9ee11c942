// Package recency は商品閲覧履歴のドメインロジックを提供する。
package recency

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hitoshi/gearcart/internal/metrics"
	"github.com/hitoshi/gearcart/internal/model"
	"github.com/hitoshi/gearcart/internal/repository"
)

// maxEntries はユーザーごとに保持する閲覧エントリの上限。
const maxEntries = 5

// Service は閲覧履歴のサービス層。
// ユーザーごとに直近maxEntries件の商品閲覧を重複なしで保持する。
type Service struct {
	viewedRepo repository.ViewedRepository
	collector  metrics.MetricsCollector
}

// NewService はServiceの新しいインスタンスを生成する。
// collectorはnilでもよく、その場合メトリクスは記録されない。
func NewService(viewedRepo repository.ViewedRepository, collector metrics.MetricsCollector) *Service {
	return &Service{
		viewedRepo: viewedRepo,
		collector:  collector,
	}
}

// RecordView は商品の閲覧を記録する。既に履歴にある商品は
// タイムスタンプが更新されて先頭に移動する。記録後のエントリ数は
// 常にmaxEntries以下に保たれる。
func (s *Service) RecordView(ctx context.Context, userID, productID string) error {
	if err := s.viewedRepo.RecordView(ctx, userID, productID, maxEntries); err != nil {
		return fmt.Errorf("閲覧履歴の記録に失敗しました: %w", err)
	}

	if s.collector != nil {
		s.collector.RecordViewRecorded()
	}
	slog.Debug("閲覧を記録しました", "userID", userID, "productID", productID)

	return nil
}

// RecentlyViewed は閲覧履歴を新しい順に返す。
// limitはmaxEntriesを上限にクランプされ、1未満の指定はmaxEntries扱いとなる。
func (s *Service) RecentlyViewed(ctx context.Context, userID string, limit int) ([]*model.ViewedProduct, error) {
	if limit < 1 || limit > maxEntries {
		limit = maxEntries
	}

	views, err := s.viewedRepo.ListByUser(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("閲覧履歴の取得に失敗しました: %w", err)
	}
	return views, nil
}
