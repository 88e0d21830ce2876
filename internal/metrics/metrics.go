// Package metrics は認証フローの Prometheus メトリクスを提供します。
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics は認証関連のメトリクスをまとめた構造体です。
type Metrics struct {
	AuthAttempts *prometheus.CounterVec
	HashDuration *prometheus.HistogramVec
}

// New はメトリクスを作成し reg に登録します。
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		AuthAttempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "members_auth_attempts_total",
				Help: "Total number of auth flow executions by flow and outcome",
			},
			[]string{"flow", "outcome"},
		),
		HashDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "members_password_hash_seconds",
				Help:    "Time spent hashing or verifying passwords",
				Buckets: []float64{.01, .05, .1, .25, .5, 1, 2},
			},
			[]string{"op"},
		),
	}

	reg.MustRegister(m.AuthAttempts)
	reg.MustRegister(m.HashDuration)

	return m
}

// ObserveAttempt はフローの結果を1件記録します。nil の Metrics は何もしません。
func (m *Metrics) ObserveAttempt(flow, outcome string) {
	if m == nil {
		return
	}
	m.AuthAttempts.WithLabelValues(flow, outcome).Inc()
}

// ObserveHash はハッシュ計算の所要時間を記録します。
func (m *Metrics) ObserveHash(op string, d time.Duration) {
	if m == nil {
		return
	}
	m.HashDuration.WithLabelValues(op).Observe(d.Seconds())
}
