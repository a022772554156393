package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var durationBuckets = []float64{0.1, 0.5, 1, 5, 10, 20, 50, 100, 200, 500, 1000}

var (
	RequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "revgeo_requests_total",
		Help: "Total number of API requests by endpoint",
	}, []string{"endpoint"})
	RequestDurationMs = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "revgeo_request_duration_ms",
		Help:    "Request duration in milliseconds",
		Buckets: durationBuckets,
	}, []string{"endpoint"})
	ResolveTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "revgeo_resolve_total",
		Help: "Point resolutions by outcome (exact, approx, miss)",
	}, []string{"outcome"})
	BadRequestsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "revgeo_bad_requests_total",
		Help: "Requests rejected for malformed coordinates or oversize batches",
	})
	BatchSize = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "revgeo_batch_size",
		Help:    "Number of points per accepted batch request",
		Buckets: []float64{1, 5, 10, 25, 50, 75, 100},
	})
	RedisHitsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "revgeo_redis_hits_total",
		Help: "Total redis cache hits",
	})
	RedisMissesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "revgeo_redis_misses_total",
		Help: "Total redis cache misses",
	})
	IndexRecords = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "revgeo_index_records",
		Help: "Records held by the spatial index",
	})
	IndexHeight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "revgeo_index_height",
		Help: "Height of the spatial index tree",
	})
	LoadRejectedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "revgeo_load_rejected_total",
		Help: "Source rows rejected at load time by reason",
	}, []string{"reason"})
	RateLimitedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "revgeo_rate_limited_total",
		Help: "Requests rejected by the rate limiter",
	})
)

func init() {
	prometheus.MustRegister(RequestsTotal)
	prometheus.MustRegister(RequestDurationMs)
	prometheus.MustRegister(ResolveTotal)
	prometheus.MustRegister(BadRequestsTotal)
	prometheus.MustRegister(BatchSize)
	prometheus.MustRegister(RedisHitsTotal)
	prometheus.MustRegister(RedisMissesTotal)
	prometheus.MustRegister(IndexRecords)
	prometheus.MustRegister(IndexHeight)
	prometheus.MustRegister(LoadRejectedTotal)
	prometheus.MustRegister(RateLimitedTotal)
}

// Outcome 解析结果标签
func Outcome(found, approx bool) string {
	switch {
	case !found:
		return "miss"
	case approx:
		return "approx"
	}
	return "exact"
}

// 文档注释：返回 Prometheus 指标监听器
// 背景：统一暴露注册指标到 /metrics 路径，供 Prometheus 抓取；在路由层挂载。
func Handler() http.Handler { return promhttp.Handler() }
