// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// サービス層とミドルウェアから利用する。
type MetricsCollector interface {
	RecordLogin()
	RecordCartAdd()
	RecordCartUnknownProduct()
	RecordOrderPlaced()
	RecordOrderValue(value float64)
	RecordHTTPStatus(statusCode int)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	logins             prometheus.Counter
	cartAdds           prometheus.Counter
	cartUnknownProduct prometheus.Counter
	ordersPlaced       prometheus.Counter
	orderValue         prometheus.Histogram
	httpStatus         *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		logins: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hetro_logins_total",
			Help: "ログイン成功の合計数",
		}),
		cartAdds: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hetro_cart_adds_total",
			Help: "カートへの商品追加の合計数",
		}),
		cartUnknownProduct: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hetro_cart_unknown_product_total",
			Help: "存在しない商品のカート追加試行の合計数",
		}),
		ordersPlaced: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hetro_orders_placed_total",
			Help: "確定した注文の合計数",
		}),
		orderValue: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "hetro_order_value",
			Help:    "注文金額の分布",
			Buckets: []float64{10, 25, 50, 100, 250, 500, 1000},
		}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hetro_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
	}

	reg.MustRegister(
		c.logins,
		c.cartAdds,
		c.cartUnknownProduct,
		c.ordersPlaced,
		c.orderValue,
		c.httpStatus,
	)

	return c
}

// RecordLogin はログイン成功を記録する。
func (c *Collector) RecordLogin() {
	c.logins.Inc()
}

// RecordCartAdd はカートへの商品追加を記録する。
func (c *Collector) RecordCartAdd() {
	c.cartAdds.Inc()
}

// RecordCartUnknownProduct は存在しない商品のカート追加試行を記録する。
func (c *Collector) RecordCartUnknownProduct() {
	c.cartUnknownProduct.Inc()
}

// RecordOrderPlaced は注文確定を記録する。
func (c *Collector) RecordOrderPlaced() {
	c.ordersPlaced.Inc()
}

// RecordOrderValue は注文金額を記録する。
func (c *Collector) RecordOrderValue(value float64) {
	c.orderValue.Observe(value)
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
