package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stsysd/lotbook/store"
)

// metrics はサーバーごとのPrometheusレジストリとコレクタを保持します。
type metrics struct {
	registry *prometheus.Registry
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// newMetrics はリクエスト数・処理時間と、ストアの件数を公開するメトリクスを作成します。
func newMetrics(st *store.Store) *metrics {
	m := &metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lotbook",
			Name:      "http_requests_total",
			Help:      "Number of HTTP requests by route pattern and status code.",
		}, []string{"pattern", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "lotbook",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route pattern.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"pattern"}),
	}

	m.registry.MustRegister(
		m.requests,
		m.duration,
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "lotbook",
			Name:      "lots",
			Help:      "Number of lots held by the store.",
		}, func() float64 { return float64(len(st.Lots())) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "lotbook",
			Name:      "samples",
			Help:      "Number of samples held by the store.",
		}, func() float64 { return float64(st.SampleCount()) }),
	)
	return m
}

// observe はリクエスト1件の結果を記録します。
// patternはServeMuxがマッチしたパターンで、未マッチの場合は空文字です。
func (m *metrics) observe(pattern string, status int, elapsed time.Duration) {
	if pattern == "" {
		pattern = "unmatched"
	}
	m.requests.WithLabelValues(pattern, strconv.Itoa(status)).Inc()
	m.duration.WithLabelValues(pattern).Observe(elapsed.Seconds())
}

func (m *metrics) handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
