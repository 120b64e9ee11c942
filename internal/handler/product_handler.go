package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/gearcart/internal/catalog"
	"github.com/hitoshi/gearcart/internal/middleware"
	"github.com/hitoshi/gearcart/internal/model"
)

// CatalogServiceInterface は商品ハンドラーが必要とするサービスインターフェース。
type CatalogServiceInterface interface {
	// Search は検索語・カテゴリ・ソート指定で商品を検索する。
	Search(ctx context.Context, query, category, sortBy, sortOrder string) ([]*model.Product, error)
	// Detail は商品の詳細情報を返す。
	Detail(ctx context.Context, productID string) (*catalog.ProductDetail, error)
	// Categories は商品カテゴリの一覧を返す。
	Categories(ctx context.Context) ([]string, error)
}

// ViewRecorder は商品詳細の閲覧記録に必要なインターフェース。
type ViewRecorder interface {
	RecordView(ctx context.Context, userID, productID string) error
}

// ProductHandler は商品カタログのHTTPハンドラー。
type ProductHandler struct {
	service  CatalogServiceInterface
	recorder ViewRecorder
}

// NewProductHandler はProductHandlerを生成する。
func NewProductHandler(service CatalogServiceInterface, recorder ViewRecorder) *ProductHandler {
	return &ProductHandler{
		service:  service,
		recorder: recorder,
	}
}

// --- レスポンス型 ---

// productResponse は商品のレスポンス。
type productResponse struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Category    string            `json:"category"`
	Price       float64           `json:"price"`
	Description string            `json:"description"`
	ImageURL    string            `json:"image_url,omitempty"`
	Stock       int               `json:"stock"`
	Videos      []model.VideoLink `json:"videos,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
}

// productDetailResponse は商品詳細のレスポンス。
type productDetailResponse struct {
	productResponse
	DetailedDescription string `json:"detailed_description"`
}

// productListResponse は商品一覧のレスポンス。
type productListResponse struct {
	Products []productResponse `json:"products"`
}

func toProductResponse(p *model.Product) productResponse {
	return productResponse{
		ID:          p.ID,
		Name:        p.Name,
		Category:    p.Category,
		Price:       p.Price,
		Description: p.Description,
		ImageURL:    p.ImageURL,
		Stock:       p.Stock,
		Videos:      p.Videos,
		CreatedAt:   p.CreatedAt,
	}
}

// ListProducts は商品を検索して一覧を返す。
// GET /api/products?q=xxx&category=xxx&sort_by=name|price|created_at&sort_order=asc|desc
func (h *ProductHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	products, err := h.service.Search(r.Context(),
		q.Get("q"), q.Get("category"), q.Get("sort_by"), q.Get("sort_order"))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := productListResponse{Products: make([]productResponse, len(products))}
	for i, p := range products {
		resp.Products[i] = toProductResponse(p)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// GetProduct は商品詳細を取得し、閲覧を履歴に記録する。
// GET /api/products/{id}
func (h *ProductHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	productID := chi.URLParam(r, "id")

	detail, err := h.service.Detail(r.Context(), productID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	// 閲覧記録の失敗は詳細表示を妨げない
	if err := h.recorder.RecordView(r.Context(), userID, productID); err != nil {
		slog.Warn("閲覧履歴の記録に失敗しました",
			slog.String("user_id", userID),
			slog.String("product_id", productID),
			slog.String("error", err.Error()),
		)
	}

	resp := productDetailResponse{
		productResponse:     toProductResponse(detail.Product),
		DetailedDescription: detail.DetailedDescription,
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// ListCategories は商品カテゴリの一覧を返す。
// GET /api/products/categories
func (h *ProductHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.service.Categories(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string][]string{"categories": categories})
}
