package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/gearcart/internal/middleware"
	"github.com/hitoshi/gearcart/internal/model"
)

// --- モック ---

type mockCartService struct {
	addToCartFn   func(ctx context.Context, userID, productID string, quantity int) (*model.CartLine, error)
	setQuantityFn func(ctx context.Context, userID, lineID string, quantity int) (*model.CartLine, float64, float64, error)
	removeLineFn  func(ctx context.Context, userID, lineID string) error
	legacyAddFn   func(ctx context.Context, userID, name string, price float64) (*model.CartLine, error)
	listLinesFn   func(ctx context.Context, userID string) ([]*model.CartLine, error)
}

func (m *mockCartService) AddToCart(ctx context.Context, userID, productID string, quantity int) (*model.CartLine, error) {
	return m.addToCartFn(ctx, userID, productID, quantity)
}
func (m *mockCartService) SetQuantity(ctx context.Context, userID, lineID string, quantity int) (*model.CartLine, float64, float64, error) {
	return m.setQuantityFn(ctx, userID, lineID, quantity)
}
func (m *mockCartService) RemoveLine(ctx context.Context, userID, lineID string) error {
	return m.removeLineFn(ctx, userID, lineID)
}
func (m *mockCartService) LegacyAdd(ctx context.Context, userID, name string, price float64) (*model.CartLine, error) {
	return m.legacyAddFn(ctx, userID, name, price)
}
func (m *mockCartService) ListLines(ctx context.Context, userID string) ([]*model.CartLine, error) {
	return m.listLinesFn(ctx, userID)
}

// authedRequest は認証済みユーザーIDをコンテキストに持つリクエストを作る。
func authedRequest(t *testing.T, method, target, body string) *http.Request {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	return req.WithContext(middleware.ContextWithUserID(req.Context(), "user-1"))
}

// cartRouter はカートハンドラーのルーティングを組む。
func cartRouter(h *CartHandler) http.Handler {
	r := chi.NewRouter()
	r.Get("/api/cart", h.ListCart)
	r.Post("/api/cart", h.AddToCart)
	r.Post("/api/cart/legacy", h.LegacyAdd)
	r.Put("/api/cart/{id}", h.SetQuantity)
	r.Delete("/api/cart/{id}", h.RemoveLine)
	return r
}

// カート追加が201と行レスポンスを返すことを検証
func TestAddToCartHandler_Success(t *testing.T) {
	svc := &mockCartService{
		addToCartFn: func(ctx context.Context, userID, productID string, quantity int) (*model.CartLine, error) {
			return &model.CartLine{ID: "line-1", ProductID: productID, Name: "Stratocaster", Price: 799.99, Quantity: quantity}, nil
		},
	}
	r := cartRouter(NewCartHandler(svc))

	req := authedRequest(t, http.MethodPost, "/api/cart", `{"product_id":"prod-1","quantity":2}`)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusCreated)
	}

	var body cartLineResponse
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	if body.Quantity != 2 {
		t.Errorf("quantity = %d, want 2", body.Quantity)
	}
	if body.LineTotal != 799.99*2 {
		t.Errorf("line_total = %v, want %v", body.LineTotal, 799.99*2)
	}
}

// 在庫不足が409で返ることを検証
func TestAddToCartHandler_InsufficientStock(t *testing.T) {
	svc := &mockCartService{
		addToCartFn: func(ctx context.Context, userID, productID string, quantity int) (*model.CartLine, error) {
			return nil, model.NewInsufficientStockError(7, 5)
		},
	}
	r := cartRouter(NewCartHandler(svc))

	req := authedRequest(t, http.MethodPost, "/api/cart", `{"product_id":"prod-1","quantity":7}`)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusConflict {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusConflict)
	}

	var body apiErrorResponse
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	if body.Code != model.ErrCodeInsufficientStock {
		t.Errorf("code = %q, want %q", body.Code, model.ErrCodeInsufficientStock)
	}
}

// 不正な数量が400で返ることを検証
func TestAddToCartHandler_InvalidQuantity(t *testing.T) {
	svc := &mockCartService{
		addToCartFn: func(ctx context.Context, userID, productID string, quantity int) (*model.CartLine, error) {
			return nil, model.NewInvalidQuantityError(quantity)
		},
	}
	r := cartRouter(NewCartHandler(svc))

	req := authedRequest(t, http.MethodPost, "/api/cart", `{"product_id":"prod-1","quantity":0}`)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

// 未認証リクエストが401で返ることを検証
func TestAddToCartHandler_Unauthorized(t *testing.T) {
	r := cartRouter(NewCartHandler(&mockCartService{}))

	req := httptest.NewRequest(http.MethodPost, "/api/cart", strings.NewReader(`{"product_id":"p","quantity":1}`))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
}

// 一覧が行と合計を返すことを検証
func TestListCartHandler(t *testing.T) {
	svc := &mockCartService{
		listLinesFn: func(ctx context.Context, userID string) ([]*model.CartLine, error) {
			return []*model.CartLine{
				{ID: "line-1", Name: "Stratocaster", Price: 100, Quantity: 2},
				{ID: "line-2", Name: "Strap", Price: 25.5, Quantity: 1},
			}, nil
		},
	}
	r := cartRouter(NewCartHandler(svc))

	req := authedRequest(t, http.MethodGet, "/api/cart", "")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}

	var body cartListResponse
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	if len(body.Lines) != 2 {
		t.Errorf("lines = %d, want 2", len(body.Lines))
	}
	if body.Total != 225.5 {
		t.Errorf("total = %v, want 225.5", body.Total)
	}
}

// 数量変更が行小計とカート合計を返すことを検証
func TestSetQuantityHandler(t *testing.T) {
	svc := &mockCartService{
		setQuantityFn: func(ctx context.Context, userID, lineID string, quantity int) (*model.CartLine, float64, float64, error) {
			return &model.CartLine{ID: lineID, Price: 100, Quantity: quantity}, 300, 400, nil
		},
	}
	r := cartRouter(NewCartHandler(svc))

	req := authedRequest(t, http.MethodPut, "/api/cart/line-1", `{"quantity":3}`)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}

	var body setQuantityResponse
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	if body.LineTotal != 300 || body.CartTotal != 400 {
		t.Errorf("line_total = %v, cart_total = %v, want 300, 400", body.LineTotal, body.CartTotal)
	}
}

// 存在しない行の数量変更が404で返ることを検証
func TestSetQuantityHandler_LineNotFound(t *testing.T) {
	svc := &mockCartService{
		setQuantityFn: func(ctx context.Context, userID, lineID string, quantity int) (*model.CartLine, float64, float64, error) {
			return nil, 0, 0, model.NewLineNotFoundError(lineID)
		},
	}
	r := cartRouter(NewCartHandler(svc))

	req := authedRequest(t, http.MethodPut, "/api/cart/missing", `{"quantity":3}`)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

// 行削除が204を返すことを検証
func TestRemoveLineHandler(t *testing.T) {
	svc := &mockCartService{
		removeLineFn: func(ctx context.Context, userID, lineID string) error {
			return nil
		},
	}
	r := cartRouter(NewCartHandler(svc))

	req := authedRequest(t, http.MethodDelete, "/api/cart/line-1", "")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNoContent)
	}
}

// レガシー追加が201を返すことを検証
func TestLegacyAddHandler(t *testing.T) {
	svc := &mockCartService{
		legacyAddFn: func(ctx context.Context, userID, name string, price float64) (*model.CartLine, error) {
			return &model.CartLine{ID: "line-1", Name: name, Price: price, Quantity: 1}, nil
		},
	}
	r := cartRouter(NewCartHandler(svc))

	req := authedRequest(t, http.MethodPost, "/api/cart/legacy", `{"name":"Vintage Amp","price":450}`)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusCreated)
	}

	var body cartLineResponse
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	if body.Name != "Vintage Amp" || body.Quantity != 1 {
		t.Errorf("body = %+v", body)
	}
}

// 名前のないレガシー追加が400で返ることを検証
func TestLegacyAddHandler_MissingName(t *testing.T) {
	r := cartRouter(NewCartHandler(&mockCartService{}))

	req := authedRequest(t, http.MethodPost, "/api/cart/legacy", `{"price":450}`)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}
