package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/gearcart/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	SessionFinder     middleware.SessionFinder
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	CSRFConfig        middleware.CSRFConfig
	Logger            *slog.Logger

	// MetricsRecorder はnilでもよく、その場合ステータスコードは記録されない。
	MetricsRecorder middleware.HTTPStatusRecorder

	// サービス
	CatalogService CatalogServiceInterface
	CartService    CartServiceInterface
	RecencyService RecencyServiceInterface
	ViewRecorder   ViewRecorder
	ChatService    ChatServiceInterface
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → Logging → Metrics → SecurityHeaders → CORS → Session → CSRF → RateLimit(General)
//
// ヘルスチェック（/healthz）は認証チェーンの外に配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewLoggingMiddleware(logger))
	if deps.MetricsRecorder != nil {
		r.Use(middleware.NewMetricsMiddleware(deps.MetricsRecorder))
	}
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))

	productHandler := NewProductHandler(deps.CatalogService, deps.ViewRecorder)
	cartHandler := NewCartHandler(deps.CartService)
	viewedHandler := NewViewedHandler(deps.RecencyService)
	chatHandler := NewChatHandler(deps.ChatService)

	// --- 認証不要のルート ---

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	r.Get("/api/csrf-token", middleware.NewCSRFTokenHandler(deps.CSRFConfig).ServeHTTP)

	// --- 認証が必要なルート ---
	// ミドルウェアスタック: Session → CSRF → RateLimit(General)
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewSessionMiddleware(deps.SessionFinder))
		r.Use(middleware.NewCSRFMiddleware(deps.CSRFConfig))
		r.Use(deps.RateLimiter.GeneralMiddleware())

		// 商品カタログ
		r.Route("/api/products", func(r chi.Router) {
			r.Get("/", productHandler.ListProducts)
			r.Get("/categories", productHandler.ListCategories)
			r.Get("/{id}", productHandler.GetProduct)
		})

		// カート
		r.Route("/api/cart", func(r chi.Router) {
			r.Get("/", cartHandler.ListCart)
			r.Post("/", cartHandler.AddToCart)
			r.Post("/legacy", cartHandler.LegacyAdd)

			r.Route("/{id}", func(r chi.Router) {
				r.Put("/", cartHandler.SetQuantity)
				r.Delete("/", cartHandler.RemoveLine)
			})
		})

		// 閲覧履歴
		r.Get("/api/viewed", viewedHandler.ListViewed)

		// チャット（送信には専用レート制限を追加）
		r.Post("/chat/new", chatHandler.NewConversation)
		r.With(deps.RateLimiter.ChatMiddleware()).Post("/chat", chatHandler.SendMessage)
	})

	return r
}
