package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/gearcart/internal/catalog"
	"github.com/hitoshi/gearcart/internal/model"
)

// --- モック ---

type mockCatalogService struct {
	searchFn     func(ctx context.Context, query, category, sortBy, sortOrder string) ([]*model.Product, error)
	detailFn     func(ctx context.Context, productID string) (*catalog.ProductDetail, error)
	categoriesFn func(ctx context.Context) ([]string, error)
}

func (m *mockCatalogService) Search(ctx context.Context, query, category, sortBy, sortOrder string) ([]*model.Product, error) {
	return m.searchFn(ctx, query, category, sortBy, sortOrder)
}
func (m *mockCatalogService) Detail(ctx context.Context, productID string) (*catalog.ProductDetail, error) {
	return m.detailFn(ctx, productID)
}
func (m *mockCatalogService) Categories(ctx context.Context) ([]string, error) {
	return m.categoriesFn(ctx)
}

type mockViewRecorder struct {
	recordViewFn func(ctx context.Context, userID, productID string) error
}

func (m *mockViewRecorder) RecordView(ctx context.Context, userID, productID string) error {
	if m.recordViewFn != nil {
		return m.recordViewFn(ctx, userID, productID)
	}
	return nil
}

// productRouter は商品ハンドラーのルーティングを組む。
func productRouter(h *ProductHandler) http.Handler {
	r := chi.NewRouter()
	r.Get("/api/products", h.ListProducts)
	r.Get("/api/products/categories", h.ListCategories)
	r.Get("/api/products/{id}", h.GetProduct)
	return r
}

// 検索パラメータがサービスに渡り、一覧が返ることを検証
func TestListProductsHandler(t *testing.T) {
	var gotQuery, gotCategory, gotSortBy, gotSortOrder string
	svc := &mockCatalogService{
		searchFn: func(ctx context.Context, query, category, sortBy, sortOrder string) ([]*model.Product, error) {
			gotQuery, gotCategory, gotSortBy, gotSortOrder = query, category, sortBy, sortOrder
			return []*model.Product{
				{ID: "prod-1", Name: "Stratocaster", Category: "guitars", Price: 799.99, Stock: 5},
			}, nil
		},
	}
	r := productRouter(NewProductHandler(svc, &mockViewRecorder{}))

	req := authedRequest(t, http.MethodGet, "/api/products?q=strat&category=guitars&sort_by=price&sort_order=desc", "")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if gotQuery != "strat" || gotCategory != "guitars" || gotSortBy != "price" || gotSortOrder != "desc" {
		t.Errorf("search args = %q %q %q %q", gotQuery, gotCategory, gotSortBy, gotSortOrder)
	}

	var body productListResponse
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	if len(body.Products) != 1 || body.Products[0].Name != "Stratocaster" {
		t.Errorf("products = %+v", body.Products)
	}
}

// 商品詳細の取得と閲覧記録の呼び出しを検証
func TestGetProductHandler(t *testing.T) {
	svc := &mockCatalogService{
		detailFn: func(ctx context.Context, productID string) (*catalog.ProductDetail, error) {
			return &catalog.ProductDetail{
				Product:             &model.Product{ID: productID, Name: "Les Paul", Description: "A classic."},
				DetailedDescription: "A classic. This is a detailed overview of the instrument, its tone, build, and typical use cases.",
			}, nil
		},
	}
	var recordedUser, recordedProduct string
	recorder := &mockViewRecorder{
		recordViewFn: func(ctx context.Context, userID, productID string) error {
			recordedUser, recordedProduct = userID, productID
			return nil
		},
	}
	r := productRouter(NewProductHandler(svc, recorder))

	req := authedRequest(t, http.MethodGet, "/api/products/prod-2", "")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if recordedUser != "user-1" || recordedProduct != "prod-2" {
		t.Errorf("recorded view = %q %q, want user-1 prod-2", recordedUser, recordedProduct)
	}

	var body productDetailResponse
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	if body.DetailedDescription == "" {
		t.Error("detailed_description should not be empty")
	}
}

// 閲覧記録の失敗が詳細表示を妨げないことを検証
func TestGetProductHandler_RecordViewFailure(t *testing.T) {
	svc := &mockCatalogService{
		detailFn: func(ctx context.Context, productID string) (*catalog.ProductDetail, error) {
			return &catalog.ProductDetail{Product: &model.Product{ID: productID, Name: "Les Paul"}}, nil
		},
	}
	recorder := &mockViewRecorder{
		recordViewFn: func(ctx context.Context, userID, productID string) error {
			return errors.New("db down")
		},
	}
	r := productRouter(NewProductHandler(svc, recorder))

	req := authedRequest(t, http.MethodGet, "/api/products/prod-2", "")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}
}

// 存在しない商品が404で返ることを検証
func TestGetProductHandler_NotFound(t *testing.T) {
	svc := &mockCatalogService{
		detailFn: func(ctx context.Context, productID string) (*catalog.ProductDetail, error) {
			return nil, model.NewProductNotFoundError(productID)
		},
	}
	r := productRouter(NewProductHandler(svc, &mockViewRecorder{}))

	req := authedRequest(t, http.MethodGet, "/api/products/missing", "")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusNotFound)
	}

	var body apiErrorResponse
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	if body.Code != model.ErrCodeProductNotFound {
		t.Errorf("code = %q, want %q", body.Code, model.ErrCodeProductNotFound)
	}
}

// 未認証の商品詳細リクエストが401で返ることを検証
func TestGetProductHandler_Unauthorized(t *testing.T) {
	r := productRouter(NewProductHandler(&mockCatalogService{}, &mockViewRecorder{}))

	req := httptest.NewRequest(http.MethodGet, "/api/products/prod-1", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
}

// カテゴリ一覧が返ることを検証
func TestListCategoriesHandler(t *testing.T) {
	svc := &mockCatalogService{
		categoriesFn: func(ctx context.Context) ([]string, error) {
			return []string{"amps", "guitars", "pedals"}, nil
		},
	}
	r := productRouter(NewProductHandler(svc, &mockViewRecorder{}))

	req := authedRequest(t, http.MethodGet, "/api/products/categories", "")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}

	var body map[string][]string
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	if len(body["categories"]) != 3 {
		t.Errorf("categories = %v", body["categories"])
	}
}
