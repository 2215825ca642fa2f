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
// ハンドラーとミドルウェアから利用する。
type MetricsCollector interface {
	RecordLogin(success bool)
	RecordRegistration()
	RecordTokenRefresh(success bool)
	RecordUpload(kind string, success bool)
	ObserveReadModel(name string, duration time.Duration, err error)
	RecordHTTPStatus(statusCode int)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	logins        *prometheus.CounterVec
	registrations prometheus.Counter
	refreshes     *prometheus.CounterVec
	uploads       *prometheus.CounterVec
	readModel     *prometheus.HistogramVec
	httpStatus    *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "vidtube_logins_total",
			Help: "ログイン試行の合計数（結果別）",
		}, []string{"result"}),
		registrations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "vidtube_registrations_total",
			Help: "ユーザー登録の合計数",
		}),
		refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "vidtube_token_refresh_total",
			Help: "アクセストークン更新の合計数（結果別）",
		}, []string{"result"}),
		uploads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "vidtube_media_uploads_total",
			Help: "画像アップロードの合計数（種類・結果別）",
		}, []string{"kind", "result"}),
		readModel: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "vidtube_read_model_duration_seconds",
			Help:    "読み取りモデル構築のレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}, []string{"name", "result"}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "vidtube_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
	}

	reg.MustRegister(
		c.logins,
		c.registrations,
		c.refreshes,
		c.uploads,
		c.readModel,
		c.httpStatus,
	)

	return c
}

func result(success bool) string {
	if success {
		return "success"
	}
	return "failure"
}

// RecordLogin はログイン試行を記録する。
func (c *Collector) RecordLogin(success bool) {
	c.logins.WithLabelValues(result(success)).Inc()
}

// RecordRegistration はユーザー登録を記録する。
func (c *Collector) RecordRegistration() {
	c.registrations.Inc()
}

// RecordTokenRefresh はトークン更新を記録する。
func (c *Collector) RecordTokenRefresh(success bool) {
	c.refreshes.WithLabelValues(result(success)).Inc()
}

// RecordUpload は画像アップロードを記録する。
func (c *Collector) RecordUpload(kind string, success bool) {
	c.uploads.WithLabelValues(kind, result(success)).Inc()
}

// ObserveReadModel は読み取りモデル構築の所要時間を記録する。
func (c *Collector) ObserveReadModel(name string, duration time.Duration, err error) {
	c.readModel.WithLabelValues(name, result(err == nil)).Observe(duration.Seconds())
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// NopCollector は何も記録しないMetricsCollector。テストやメトリクス無効時に使う。
type NopCollector struct{}

func (NopCollector) RecordLogin(bool)                              {}
func (NopCollector) RecordRegistration()                           {}
func (NopCollector) RecordTokenRefresh(bool)                       {}
func (NopCollector) RecordUpload(string, bool)                     {}
func (NopCollector) ObserveReadModel(string, time.Duration, error) {}
func (NopCollector) RecordHTTPStatus(int)                          {}

var (
	_ MetricsCollector = (*Collector)(nil)
	_ MetricsCollector = NopCollector{}
)
