// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// サービス層とミドルウェアから利用する。
type MetricsCollector interface {
	RecordCartAdd()
	RecordInsufficientStock()
	RecordViewRecorded()
	RecordChatCompletion(duration time.Duration)
	RecordChatFallback()
	RecordHTTPStatus(statusCode int)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	cartAdd           prometheus.Counter
	insufficientStock prometheus.Counter
	viewsRecorded     prometheus.Counter
	chatLatency       prometheus.Histogram
	chatFallback      prometheus.Counter
	httpStatus        *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		cartAdd: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gearcart_cart_add_total",
			Help: "カート追加成功の合計数",
		}),
		insufficientStock: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gearcart_insufficient_stock_total",
			Help: "在庫不足で拒否されたカート操作の合計数",
		}),
		viewsRecorded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gearcart_views_recorded_total",
			Help: "記録された商品閲覧の合計数",
		}),
		chatLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "gearcart_chat_completion_latency_seconds",
			Help:    "チャット応答生成のレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		chatFallback: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gearcart_chat_fallback_total",
			Help: "生成失敗によりフォールバック応答を返した合計数",
		}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gearcart_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
	}

	reg.MustRegister(
		c.cartAdd,
		c.insufficientStock,
		c.viewsRecorded,
		c.chatLatency,
		c.chatFallback,
		c.httpStatus,
	)

	return c
}

// RecordCartAdd はカート追加成功を記録する。
func (c *Collector) RecordCartAdd() {
	c.cartAdd.Inc()
}

// RecordInsufficientStock は在庫不足による拒否を記録する。
func (c *Collector) RecordInsufficientStock() {
	c.insufficientStock.Inc()
}

// RecordViewRecorded は商品閲覧の記録を記録する。
func (c *Collector) RecordViewRecorded() {
	c.viewsRecorded.Inc()
}

// RecordChatCompletion は応答生成のレイテンシを記録する。
func (c *Collector) RecordChatCompletion(duration time.Duration) {
	c.chatLatency.Observe(duration.Seconds())
}

// RecordChatFallback はフォールバック応答を記録する。
func (c *Collector) RecordChatFallback() {
	c.chatFallback.Inc()
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// SetupMetricsRoute は/metricsエンドポイントを提供するHTTPハンドラーを返す。
// Prometheusスクレイプに対応する。
func SetupMetricsRoute(gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler(gatherer))
	return mux
}
