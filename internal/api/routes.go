// 包 api：集中注册 HTTP API 路由以解耦主入口，便于后续扩展与替换
package api

import (
	"net/http"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"reverse-geo/internal/logger"
	"reverse-geo/internal/metrics"
)

// instrument 按端点统计请求数与耗时
func instrument(name string, h http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		metrics.RequestsTotal.WithLabelValues(name).Inc()
		h(w, r)
		metrics.RequestDurationMs.WithLabelValues(name).Observe(float64(time.Since(start).Microseconds()) / 1000)
	})
}

// 文档注释：构建 API 路由
// 背景：所有端点挂在 base 前缀下（默认 /api）；CORS 与 panic 恢复在路由层统一处理。
// 约束：Locator/Batcher/Directory 必填；其余依赖为 nil 时对应端点返回 503 或跳过该层。
func BuildRoutes(base string, d Deps) http.Handler {
	s := &service{
		loc:   d.Locator,
		batch: d.Batcher,
		dir:   d.Directory,
		stats: d.Stats,
		cache: newRedisCache(d.Redis, d.RedisTTL, d.GeohashPrecision),
		geoip: d.GeoIP,
		fb:    d.Fallback,
	}
	r := mux.NewRouter()
	sub := r.PathPrefix(base).Subrouter()
	sub.Handle("/geocode/reverse", instrument("reverse", s.reverseGet)).Methods(http.MethodGet)
	sub.Handle("/geocode/reverse", instrument("reverse", s.reversePost)).Methods(http.MethodPost)
	sub.Handle("/geocode/batch-reverse", instrument("batch_reverse", s.batchReverse)).Methods(http.MethodPost)
	sub.Handle("/geocode/ip", instrument("ip", s.ipReverse)).Methods(http.MethodGet)
	sub.Handle("/stats", instrument("stats", s.statsHandler)).Methods(http.MethodGet)
	sub.HandleFunc("/healthz", s.health).Methods(http.MethodGet)
	sub.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "route not found")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	origins := d.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	cors := handlers.CORS(
		handlers.AllowedOrigins(origins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Content-Type", logger.RequestIDHeader}),
		handlers.ExposedHeaders([]string{logger.RequestIDHeader}),
	)
	return handlers.RecoveryHandler(handlers.PrintRecoveryStack(false))(cors(r))
}
