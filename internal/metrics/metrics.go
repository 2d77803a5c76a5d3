// Package metrics はPrometheus形式のメトリクスを管理する
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "staticd"

// Metrics はファイル配信のメトリクスを保持する
// レジストリはインスタンスごとに持つため、テストで複数作成しても衝突しない
type Metrics struct {
	registry *prometheus.Registry

	requests      *prometheus.CounterVec
	duration      *prometheus.HistogramVec
	responseBytes prometheus.Counter
	inflight      prometheus.Gauge
}

// New は新しいMetricsを作成し、コレクタを登録する
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "処理したリクエスト数",
		}, []string{"method", "code"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_duration_seconds",
			Help:      "リクエストの処理時間",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		responseBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "response_bytes_total",
			Help:      "レスポンスボディとして送信したバイト数",
		}),
		inflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "inflight_requests",
			Help:      "処理中のリクエスト数",
		}),
	}

	m.registry.MustRegister(
		m.requests,
		m.duration,
		m.responseBytes,
		m.inflight,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Begin はリクエストの処理開始を記録し、終了時に呼ぶ関数を返す
func (m *Metrics) Begin(method string) func(code int, bytes int) {
	start := time.Now()
	m.inflight.Inc()

	return func(code int, bytes int) {
		m.inflight.Dec()
		m.requests.WithLabelValues(method, strconv.Itoa(code)).Inc()
		m.duration.WithLabelValues(method).Observe(time.Since(start).Seconds())
		if bytes > 0 {
			m.responseBytes.Add(float64(bytes))
		}
	}
}

// RequestCount はこれまでに処理したリクエストの総数を返す
func (m *Metrics) RequestCount() float64 {
	families, err := m.registry.Gather()
	if err != nil {
		return 0
	}

	var total float64
	for _, mf := range families {
		if mf.GetName() != namespace+"_requests_total" {
			continue
		}
		for _, metric := range mf.GetMetric() {
			total += metric.GetCounter().GetValue()
		}
	}
	return total
}

// Handler はメトリクスを公開するHTTPハンドラを返す
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
