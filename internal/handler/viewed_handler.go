package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/hitoshi/gearcart/internal/middleware"
	"github.com/hitoshi/gearcart/internal/model"
)

// RecencyServiceInterface は閲覧履歴ハンドラーが必要とするサービスインターフェース。
type RecencyServiceInterface interface {
	// RecentlyViewed は閲覧履歴を新しい順に最大limit件返す。
	RecentlyViewed(ctx context.Context, userID string, limit int) ([]*model.ViewedProduct, error)
}

// ViewedHandler は閲覧履歴のHTTPハンドラー。
type ViewedHandler struct {
	service RecencyServiceInterface
}

// NewViewedHandler はViewedHandlerを生成する。
func NewViewedHandler(service RecencyServiceInterface) *ViewedHandler {
	return &ViewedHandler{service: service}
}

// viewedEntryResponse は閲覧履歴エントリのレスポンス。
type viewedEntryResponse struct {
	ProductID string    `json:"product_id"`
	ViewedAt  time.Time `json:"viewed_at"`
}

// ListViewed は閲覧履歴を新しい順に返す。
// GET /api/viewed?limit=n
func (h *ViewedHandler) ListViewed(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	// 不正なlimit指定はサービス層のデフォルトに落とす
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	views, err := h.service.RecentlyViewed(r.Context(), userID, limit)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	entries := make([]viewedEntryResponse, len(views))
	for i, v := range views {
		entries[i] = viewedEntryResponse{
			ProductID: v.ProductID,
			ViewedAt:  v.ViewedAt,
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string][]viewedEntryResponse{"viewed": entries})
}
