// Package metrics はPrometheus向けのプロセス共通メトリクスを定義します。
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "cvara"

var (
	// UpstreamRequests は外部価格APIへのリクエスト数です（endpoint, result）。
	UpstreamRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "upstream_requests_total",
		Help:      "Requests sent to the upstream price API by endpoint and result.",
	}, []string{"endpoint", "result"})

	// CacheLookups はTTLキャッシュの参照結果です（cache, result=hit|miss|stale）。
	CacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cache_lookups_total",
		Help:      "TTL cache lookups by cache name and result.",
	}, []string{"cache", "result"})

	// WriteRetries はストアのビジーにより再試行された書き込み回数です。
	WriteRetries = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "store_write_retries_total",
		Help:      "Writes retried because the store reported busy.",
	})

	// RiskComputations はリスク指標の計算回数です（days）。
	RiskComputations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "risk_computations_total",
		Help:      "Risk metric computations by window length.",
	}, []string{"days"})
)

// Handler は /metrics 用のハンドラーを返します。
func Handler() http.Handler {
	return promhttp.Handler()
}
