package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/gearcart/internal/middleware"
	"github.com/hitoshi/gearcart/internal/model"
)

// CartServiceInterface はカートハンドラーが必要とするサービスインターフェース。
type CartServiceInterface interface {
	// AddToCart は商品をカートに追加し、マージ後の行を返す。
	AddToCart(ctx context.Context, userID, productID string, quantity int) (*model.CartLine, error)
	// SetQuantity は行の数量を置き換え、行と行小計、カート合計を返す。
	SetQuantity(ctx context.Context, userID, lineID string, quantity int) (*model.CartLine, float64, float64, error)
	// RemoveLine は指定行を削除する。冪等。
	RemoveLine(ctx context.Context, userID, lineID string) error
	// LegacyAdd は自由入力行を数量1で追加する。
	LegacyAdd(ctx context.Context, userID, name string, price float64) (*model.CartLine, error)
	// ListLines はカート行一覧を返す。
	ListLines(ctx context.Context, userID string) ([]*model.CartLine, error)
}

// CartHandler はカートのHTTPハンドラー。
type CartHandler struct {
	service CartServiceInterface
}

// NewCartHandler はCartHandlerを生成する。
func NewCartHandler(service CartServiceInterface) *CartHandler {
	return &CartHandler{service: service}
}

// --- リクエスト/レスポンス型 ---

// addToCartRequest はカート追加リクエストのボディ。
type addToCartRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

// setQuantityRequest は数量変更リクエストのボディ。
type setQuantityRequest struct {
	Quantity int `json:"quantity"`
}

// legacyAddRequest は自由入力行の追加リクエストのボディ。
type legacyAddRequest struct {
	Name  string  `json:"name"`
	Price float64 `json:"price"`
}

// cartLineResponse はカート行のレスポンス。
type cartLineResponse struct {
	ID        string    `json:"id"`
	ProductID string    `json:"product_id,omitempty"`
	Name      string    `json:"name"`
	Price     float64   `json:"price"`
	Quantity  int       `json:"quantity"`
	LineTotal float64   `json:"line_total"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// cartListResponse はカート一覧のレスポンス。
type cartListResponse struct {
	Lines []cartLineResponse `json:"lines"`
	Total float64            `json:"total"`
}

// setQuantityResponse は数量変更のレスポンス。
type setQuantityResponse struct {
	Line      cartLineResponse `json:"line"`
	LineTotal float64          `json:"line_total"`
	CartTotal float64          `json:"cart_total"`
}

func toCartLineResponse(line *model.CartLine) cartLineResponse {
	return cartLineResponse{
		ID:        line.ID,
		ProductID: line.ProductID,
		Name:      line.Name,
		Price:     line.Price,
		Quantity:  line.Quantity,
		LineTotal: line.LineTotal(),
		CreatedAt: line.CreatedAt,
		UpdatedAt: line.UpdatedAt,
	}
}

// ListCart はカート行一覧と合計金額を返す。
// GET /api/cart
func (h *CartHandler) ListCart(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	lines, err := h.service.ListLines(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := cartListResponse{Lines: make([]cartLineResponse, len(lines))}
	for i, line := range lines {
		resp.Lines[i] = toCartLineResponse(line)
		resp.Total += line.LineTotal()
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// AddToCart は商品をカートに追加する。
// POST /api/cart {product_id, quantity}
func (h *CartHandler) AddToCart(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	var req addToCartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, &model.APIError{
			Code:     "INVALID_REQUEST",
			Message:  "リクエストボディが不正です。",
			Category: "validation",
			Action:   "リクエスト形式を確認してください。",
		})
		return
	}
	if req.ProductID == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewProductNotFoundError(""))
		return
	}

	line, err := h.service.AddToCart(r.Context(), userID, req.ProductID, req.Quantity)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(toCartLineResponse(line))
}

// SetQuantity はカート行の数量を変更する。
// PUT /api/cart/{id} {quantity}
func (h *CartHandler) SetQuantity(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	lineID := chi.URLParam(r, "id")

	var req setQuantityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, &model.APIError{
			Code:     "INVALID_REQUEST",
			Message:  "リクエストボディが不正です。",
			Category: "validation",
			Action:   "リクエスト形式を確認してください。",
		})
		return
	}

	line, lineTotal, cartTotal, err := h.service.SetQuantity(r.Context(), userID, lineID, req.Quantity)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(setQuantityResponse{
		Line:      toCartLineResponse(line),
		LineTotal: lineTotal,
		CartTotal: cartTotal,
	})
}

// RemoveLine はカート行を削除する。冪等であり、存在しない行でも204を返す。
// DELETE /api/cart/{id}
func (h *CartHandler) RemoveLine(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	lineID := chi.URLParam(r, "id")

	if err := h.service.RemoveLine(r.Context(), userID, lineID); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// LegacyAdd は自由入力の行をカートに追加する。
// POST /api/cart/legacy {name, price}
func (h *CartHandler) LegacyAdd(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	var req legacyAddRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest, &model.APIError{
			Code:     "INVALID_REQUEST",
			Message:  "商品名は必須です。",
			Category: "validation",
			Action:   "商品名を指定してください。",
		})
		return
	}

	line, err := h.service.LegacyAdd(r.Context(), userID, req.Name, req.Price)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(toCartLineResponse(line))
}
