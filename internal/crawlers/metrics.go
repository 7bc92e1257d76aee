package crawlers

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics 抓取过程的 Prometheus 指标
// 所有方法对 nil 接收者安全
type Metrics struct {
	Registry        *prometheus.Registry
	AttemptsTotal   *prometheus.CounterVec
	AttemptDuration prometheus.Histogram
	RetriesTotal    prometheus.Counter
	ItemsTotal      *prometheus.CounterVec
	SnapshotsTotal  prometheus.Counter
}

// NewMetrics 在独立的 registry 上注册全部指标
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	attempts := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pricewatch_attempts_total",
			Help: "Fetch attempts by outcome.",
		},
		[]string{"outcome"},
	)
	duration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "pricewatch_attempt_duration_seconds",
			Help:    "Duration of a single fetch attempt.",
			Buckets: []float64{0.5, 1, 2, 5, 10, 20, 30, 60},
		},
	)
	retries := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "pricewatch_retries_total",
			Help: "Retries scheduled after a failed attempt.",
		},
	)
	items := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pricewatch_items_total",
			Help: "Items processed by final status.",
		},
		[]string{"status"},
	)
	snapshots := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "pricewatch_snapshots_total",
			Help: "Diagnostic snapshots written for blocked attempts.",
		},
	)

	registry.MustRegister(attempts, duration, retries, items, snapshots)

	return &Metrics{
		Registry:        registry,
		AttemptsTotal:   attempts,
		AttemptDuration: duration,
		RetriesTotal:    retries,
		ItemsTotal:      items,
		SnapshotsTotal:  snapshots,
	}
}

// ObserveAttempt 记录一次尝试
func (m *Metrics) ObserveAttempt(kind OutcomeKind, d time.Duration) {
	if m == nil {
		return
	}
	m.AttemptsTotal.WithLabelValues(kind.String()).Inc()
	m.AttemptDuration.Observe(d.Seconds())
}

// IncRetries 记录一次重试
func (m *Metrics) IncRetries() {
	if m == nil {
		return
	}
	m.RetriesTotal.Inc()
}

// IncItem 按最终状态记录商品
func (m *Metrics) IncItem(status string) {
	if m == nil {
		return
	}
	m.ItemsTotal.WithLabelValues(status).Inc()
}

// IncSnapshots 记录一次快照
func (m *Metrics) IncSnapshots() {
	if m == nil {
		return
	}
	m.SnapshotsTotal.Inc()
}

// WriteTextfile 写出 node_exporter textfile 格式, 供 cron 运行后采集
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil || path == "" {
		return nil
	}
	return prometheus.WriteToTextfile(path, m.Registry)
}
