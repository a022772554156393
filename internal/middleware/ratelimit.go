package middleware

import (
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"reverse-geo/internal/logger"
	"reverse-geo/internal/metrics"
)

// 文档注释：令牌桶限流中间件
// 背景：在流量峰值时对入口进行限速，避免批量查询占满 CPU；全局桶之外按客户端地址各持一个桶。
// 约束：不做队列排队，仅丢弃并返回 429；客户端桶闲置超过 idleTTL 后回收。
type Limiter struct {
	global *rate.Limiter
	qps    rate.Limit
	burst  int

	mu      sync.Mutex
	clients map[string]*client
	idleTTL time.Duration
	now     func() time.Time
}

type client struct {
	lim  *rate.Limiter
	seen time.Time
}

// NewLimiter 全局速率为 qps*10（至少 burst），单客户端速率为 qps
func NewLimiter(qps float64, burst int) *Limiter {
	if burst <= 0 {
		burst = int(qps)
		if burst < 1 {
			burst = 1
		}
	}
	return &Limiter{
		global:  rate.NewLimiter(rate.Limit(qps*10), burst*10),
		qps:     rate.Limit(qps),
		burst:   burst,
		clients: map[string]*client{},
		idleTTL: 5 * time.Minute,
		now:     time.Now,
	}
}

// Allow 判断来自 key 的请求是否放行
func (l *Limiter) Allow(key string) bool {
	now := l.now()
	l.mu.Lock()
	c, ok := l.clients[key]
	if !ok {
		c = &client{lim: rate.NewLimiter(l.qps, l.burst)}
		l.clients[key] = c
	}
	c.seen = now
	if len(l.clients) > 1024 {
		l.sweepLocked(now)
	}
	l.mu.Unlock()
	return c.lim.AllowN(now, 1) && l.global.AllowN(now, 1)
}

func (l *Limiter) sweepLocked(now time.Time) {
	for k, c := range l.clients {
		if now.Sub(c.seen) > l.idleTTL {
			delete(l.clients, k)
		}
	}
}

// Wrap 限流包装；超限返回 429
func (l *Limiter) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := clientKey(r)
		if !l.Allow(key) {
			metrics.RateLimitedTotal.Inc()
			logger.L().Debug("rate_limited", "client", key, "path", r.URL.Path)
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// clientKey 取 RemoteAddr 的主机部分
func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
