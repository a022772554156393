package api

import (
	"net"
	"net/http"
	"strings"
)

// proxyHeaders 按优先级排列的真实 IP 头
var proxyHeaders = []string{"x-forwarded-for", "cf-connecting-ip", "x-real-ip", "x-client-ip"}

// 文档注释：获取待查询的 IP
// 背景：优先显式参数，其次常见反向代理头，最后回退远端地址；确保在多层代理链路中得到稳定来源 IP。
// 约束：头部存在伪造风险，部署于未经信任的代理链路需配合网关过滤。
func clientIP(r *http.Request) string {
	if q := strings.TrimSpace(r.URL.Query().Get("ip")); q != "" {
		return q
	}
	h := r.Header
	for _, k := range proxyHeaders {
		if x := h.Get(k); x != "" {
			first, _, _ := strings.Cut(x, ",")
			return strings.TrimSpace(first)
		}
	}
	if x := h.Get("forwarded"); x != "" {
		if i := strings.Index(strings.ToLower(x), "for="); i >= 0 {
			y := strings.Trim(x[i+4:], "\" ")
			if p := strings.IndexAny(y, ";,"); p >= 0 {
				y = y[:p]
			}
			return strings.Trim(y, "\" []")
		}
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
