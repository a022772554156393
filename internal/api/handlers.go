package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"reverse-geo/internal/admin"
	"reverse-geo/internal/iploc"
	"reverse-geo/internal/logger"
	"reverse-geo/internal/metrics"
	"reverse-geo/internal/revgeo"
	"reverse-geo/internal/store"
)

// StatsStore 查询统计存储，*store.Store 满足该接口
type StatsStore interface {
	IncrStats(ctx context.Context, queries, hits int) error
	GetTotals(ctx context.Context) (*store.Totals, error)
}

// IPLocator IP 转坐标，*iploc.GeoIP 满足该接口
type IPLocator interface {
	Lookup(ip string) (iploc.Info, error)
}

// Deps 路由依赖；Stats/Redis/GeoIP 可为 nil，对应功能降级
type Deps struct {
	Locator   *revgeo.Locator
	Batcher   *revgeo.Batcher
	Directory *admin.Directory
	Stats     StatsStore
	Redis     *redis.Client
	RedisTTL  time.Duration
	// GeohashPrecision Redis 键的 geohash 前缀长度，与进程内缓存一致
	GeohashPrecision uint
	GeoIP            IPLocator
	Fallback         bool
	CORSOrigins      []string
}

type service struct {
	loc   *revgeo.Locator
	batch *revgeo.Batcher
	dir   *admin.Directory
	stats StatsStore
	cache *redisCache
	geoip IPLocator
	fb    bool
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("content-type", "application/json; charset=utf-8")
	w.Header().Set("cache-control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	if status == http.StatusBadRequest {
		metrics.BadRequestsTotal.Inc()
	}
	writeJSON(w, status, errorResponse{Error: msg})
}

// parseFloatParam 非有限值视为非法
func parseFloatParam(name, s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("invalid %s %q", name, s)
	}
	return v, nil
}

// parseLngLat 解析 "lng,lat"
func parseLngLat(s string) (revgeo.Point, error) {
	a, b, ok := strings.Cut(s, ",")
	if !ok {
		return revgeo.Point{}, fmt.Errorf("expected \"lng,lat\", got %q", s)
	}
	lng, err := parseFloatParam("lng", a)
	if err != nil {
		return revgeo.Point{}, err
	}
	lat, err := parseFloatParam("lat", b)
	if err != nil {
		return revgeo.Point{}, err
	}
	return revgeo.Point{Lon: lng, Lat: lat}, nil
}

// locate 单点查询：Redis → Locator（进程内缓存、精确命中、兜底）
// 约束：输入坐标先转为 WGS-84，缓存键与统计均基于转换后坐标
func (s *service) locate(ctx context.Context, pt revgeo.Point, cs revgeo.CoordSys) *addressResponse {
	pt = cs.ToWGS84(pt)
	if a, ok := s.cache.get(ctx, pt); ok {
		metrics.ResolveTotal.WithLabelValues(metrics.Outcome(true, a.Approx)).Inc()
		s.record(ctx, 1, 1)
		return a
	}
	res := s.loc.Locate(pt, revgeo.WGS84)
	metrics.ResolveTotal.WithLabelValues(metrics.Outcome(res.Found(), res.Approx)).Inc()
	if !res.Found() {
		s.record(ctx, 1, 0)
		return nil
	}
	a := newAddress(s.dir, res.Record)
	if res.Approx {
		a.Approx = true
		a.DistanceKm = res.DistanceKm
	}
	s.cache.set(ctx, pt, a)
	s.record(ctx, 1, 1)
	return a
}

func (s *service) record(ctx context.Context, queries, hits int) {
	if s.stats == nil {
		return
	}
	if err := s.stats.IncrStats(ctx, queries, hits); err != nil {
		logger.L().Debug("stats_incr_error", "err", err)
	}
}

func coordSys(r *http.Request) (revgeo.CoordSys, error) {
	return revgeo.ParseCoordSys(r.URL.Query().Get("coord_sys"))
}

// reverseGet GET /geocode/reverse?lng=&lat=[&coord_sys=]
func (s *service) reverseGet(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	lng, err := parseFloatParam("lng", q.Get("lng"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	lat, err := parseFloatParam("lat", q.Get("lat"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	cs, err := coordSys(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.respondSingle(w, r, revgeo.Point{Lon: lng, Lat: lat}, cs)
}

// reversePost POST /geocode/reverse {"lng":..,"lat":..}
func (s *service) reversePost(w http.ResponseWriter, r *http.Request) {
	var req coordRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	if req.Lng == nil || req.Lat == nil {
		writeError(w, http.StatusBadRequest, "lng and lat are required")
		return
	}
	csName := req.CoordSys
	if csName == "" {
		csName = r.URL.Query().Get("coord_sys")
	}
	cs, err := revgeo.ParseCoordSys(csName)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.respondSingle(w, r, revgeo.Point{Lon: *req.Lng, Lat: *req.Lat}, cs)
}

func (s *service) respondSingle(w http.ResponseWriter, r *http.Request, pt revgeo.Point, cs revgeo.CoordSys) {
	a := s.locate(r.Context(), pt, cs)
	if a == nil {
		writeError(w, http.StatusNotFound, "no street contains the point")
		return
	}
	writeJSON(w, http.StatusOK, a)
}

// 文档注释：批量逆地理
// 背景：请求体为 "lng,lat" 字符串数组；超出上限或任一坐标不可解析时整体拒绝，不做部分处理。
// 约束：默认按输入顺序逐一返回（未命中为 null）；dedup=true 时只返回命中项，且按街道编码去重保留首次出现者。
func (s *service) batchReverse(w http.ResponseWriter, r *http.Request) {
	var locs []string
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&locs); err != nil {
		writeError(w, http.StatusBadRequest, "body must be a json array of \"lng,lat\" strings")
		return
	}
	if len(locs) > s.batch.Max() {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("每批次查询不能超过%d个坐标点", s.batch.Max()))
		return
	}
	cs, err := coordSys(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	pts := make([]revgeo.Point, len(locs))
	for i, l := range locs {
		p, err := parseLngLat(l)
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("item %d: %v", i, err))
			return
		}
		pts[i] = cs.ToWGS84(p)
	}
	recs, err := s.batch.ResolveBatch(r.Context(), pts)
	if errors.Is(err, revgeo.ErrBatchTooLarge) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	metrics.BatchSize.Observe(float64(len(pts)))

	hits := 0
	for _, rec := range recs {
		metrics.ResolveTotal.WithLabelValues(metrics.Outcome(rec != nil, false)).Inc()
		if rec != nil {
			hits++
		}
	}
	address := func(i int) *addressResponse {
		a := newAddress(s.dir, recs[i])
		a.Location = locs[i]
		return a
	}
	var out []*addressResponse
	if dedup, _ := strconv.ParseBool(r.URL.Query().Get("dedup")); dedup {
		keep := revgeo.Dedup(recs)
		out = make([]*addressResponse, 0, len(keep))
		for _, i := range keep {
			out = append(out, address(i))
		}
	} else {
		out = make([]*addressResponse, len(recs))
		for i, rec := range recs {
			if rec != nil {
				out[i] = address(i)
			}
		}
	}
	s.record(r.Context(), len(recs), hits)
	writeJSON(w, http.StatusOK, out)
}

// ipReverse GET /geocode/ip?ip= ；未给出 ip 时取请求来源
func (s *service) ipReverse(w http.ResponseWriter, r *http.Request) {
	if s.geoip == nil {
		writeError(w, http.StatusServiceUnavailable, "geoip database not configured")
		return
	}
	ip := clientIP(r)
	info, err := s.geoip.Lookup(ip)
	switch {
	case errors.Is(err, iploc.ErrBadIP):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, ipResponse{IP: info, Address: s.locate(r.Context(), info.Point(), revgeo.WGS84)})
}

func (s *service) statsHandler(w http.ResponseWriter, r *http.Request) {
	if s.stats == nil {
		writeError(w, http.StatusServiceUnavailable, "statistics disabled")
		return
	}
	t, err := s.stats.GetTotals(r.Context())
	if err != nil {
		logger.L().Error("stats_totals_error", "err", err)
		writeError(w, http.StatusInternalServerError, "statistics unavailable")
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (s *service) health(w http.ResponseWriter, r *http.Request) {
	res := s.loc.Resolver()
	idx := res.Index()
	writeJSON(w, http.StatusOK, healthResponse{
		Status:    "ok",
		Records:   res.Store().Len(),
		Indexed:   idx.Len(),
		Height:    idx.Height(),
		NodeCap:   idx.NodeCapacity(),
		BatchMax:  s.batch.Max(),
		BuiltAt:   res.Store().BuiltAt.UTC().Format(time.RFC3339),
		Boundary:  res.Boundary().String(),
		Fallback:  s.fb,
		RedisUsed: s.cache.enabled(),
	})
}
