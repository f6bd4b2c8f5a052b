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
// Webhookの受信処理やハンドラーから利用する。
type MetricsCollector interface {
	RecordSubmissionLedgered(provider string, duplicate bool)
	RecordRouted(routed string)
	RecordHouseholdAction(action string)
	RecordRSVPApplied(status string, guests int)
	RecordFailure(code string)
	RecordHTTPStatus(statusCode int)
	RecordProcessingLatency(duration time.Duration)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	ledgered       *prometheus.CounterVec
	duplicates     *prometheus.CounterVec
	routed         *prometheus.CounterVec
	households     *prometheus.CounterVec
	rsvpApplied    *prometheus.CounterVec
	guestsUpdated  prometheus.Counter
	failures       *prometheus.CounterVec
	httpStatus     *prometheus.CounterVec
	processLatency prometheus.Histogram
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		ledgered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rsvphook_submissions_ledgered_total",
			Help: "台帳に記録した送信の合計数（重複配信を含む）",
		}, []string{"provider"}),
		duplicates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rsvphook_submissions_duplicate_total",
			Help: "重複配信として既存エントリを返した送信の合計数",
		}, []string{"provider"}),
		routed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rsvphook_submissions_routed_total",
			Help: "振り分け先別の処理完了数",
		}, []string{"routed"}),
		households: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rsvphook_household_actions_total",
			Help: "世帯照合の結果別の件数",
		}, []string{"action"}),
		rsvpApplied: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rsvphook_rsvp_applied_total",
			Help: "出欠ステータス別の反映件数",
		}, []string{"status"}),
		guestsUpdated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rsvphook_rsvp_guests_updated_total",
			Help: "出欠回答を反映したゲストの合計数",
		}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rsvphook_submission_failures_total",
			Help: "エラーコード別の処理失敗数",
		}, []string{"code"}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rsvphook_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		processLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "rsvphook_processing_latency_seconds",
			Help:    "送信1件の処理レイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(
		c.ledgered,
		c.duplicates,
		c.routed,
		c.households,
		c.rsvpApplied,
		c.guestsUpdated,
		c.failures,
		c.httpStatus,
		c.processLatency,
	)

	return c
}

// RecordSubmissionLedgered は台帳への記録を記録する。
func (c *Collector) RecordSubmissionLedgered(provider string, duplicate bool) {
	c.ledgered.WithLabelValues(provider).Inc()
	if duplicate {
		c.duplicates.WithLabelValues(provider).Inc()
	}
}

// RecordRouted は振り分け結果を記録する。
func (c *Collector) RecordRouted(routed string) {
	c.routed.WithLabelValues(routed).Inc()
}

// RecordHouseholdAction は世帯照合の結果を記録する。
func (c *Collector) RecordHouseholdAction(action string) {
	c.households.WithLabelValues(action).Inc()
}

// RecordRSVPApplied は出欠回答の反映を記録する。
func (c *Collector) RecordRSVPApplied(status string, guests int) {
	c.rsvpApplied.WithLabelValues(status).Inc()
	c.guestsUpdated.Add(float64(guests))
}

// RecordFailure は処理失敗をエラーコード別に記録する。
func (c *Collector) RecordFailure(code string) {
	c.failures.WithLabelValues(code).Inc()
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordProcessingLatency は処理のレイテンシを記録する。
func (c *Collector) RecordProcessingLatency(duration time.Duration) {
	c.processLatency.Observe(duration.Seconds())
}

// RegisterRateLimiterClients はレート制限で追跡中の送信元IP数をゲージとして登録する。
// countはスクレイプのたびに呼び出される。
func RegisterRateLimiterClients(reg prometheus.Registerer, count func() int) {
	reg.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "rsvphook_rate_limiter_clients",
		Help: "レート制限で追跡中の送信元IP数",
	}, func() float64 {
		return float64(count())
	}))
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// compile-time interface check
var _ MetricsCollector = (*Collector)(nil)
