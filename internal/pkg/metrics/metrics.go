package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics はアプリケーションのメトリクスを管理する
type Metrics struct {
	// HTTPリクエストの総数（method, path, status_code）
	HTTPRequestsTotal *prometheus.CounterVec

	// HTTPリクエストのレイテンシ（method, path）
	HTTPRequestDuration *prometheus.HistogramVec

	// 予約操作の総数（operation: reserve/extend/confirm/release, status: success/insufficient/contention/error）
	ReservationsTotal *prometheus.CounterVec

	// ホールドストアのCAS更新時間（status: success/contention/error）
	HoldMutateDuration *prometheus.HistogramVec

	// ホールドストアのCAS競合による再試行回数
	HoldMutateRetriesTotal prometheus.Counter

	// 確定済み数量の累計
	ConfirmedQuantityTotal prometheus.Counter
}

// New は新しいMetricsインスタンスを作成し、デフォルトレジストリに登録する
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry は指定したレジストリにメトリクスを登録する
func NewWithRegistry(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status_code"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds",
				Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),
		ReservationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "reservations_total",
				Help: "Total number of reservation engine operations",
			},
			[]string{"operation", "status"},
		),
		HoldMutateDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "hold_mutate_duration_seconds",
				Help:    "Time spent committing hold list mutations",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
			},
			[]string{"status"},
		),
		HoldMutateRetriesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "hold_mutate_retries_total",
				Help: "Number of compare-and-set retries in the hold store",
			},
		),
		ConfirmedQuantityTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "confirmed_quantity_total",
				Help: "Cumulative quantity of confirmed tickets",
			},
		),
	}

	// レジストリに登録
	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.ReservationsTotal,
		m.HoldMutateDuration,
		m.HoldMutateRetriesTotal,
		m.ConfirmedQuantityTotal,
	)

	return m
}

// デフォルトのメトリクスインスタンス
var defaultMetrics *Metrics

// Init はデフォルトのメトリクスインスタンスを初期化する
func Init() *Metrics {
	defaultMetrics = New()
	return defaultMetrics
}

// Get はデフォルトのメトリクスインスタンスを返す
// 未初期化の場合は nil（呼び出し側でガードする）
func Get() *Metrics {
	return defaultMetrics
}
