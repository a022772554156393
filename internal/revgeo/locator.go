package revgeo

import (
	"strconv"
	"time"

	"github.com/mmcloughlin/geohash"
)

// LocatorOptions 查询编排参数
type LocatorOptions struct {
	// Fallback 精确未命中时是否按最近中心点兜底
	Fallback         bool
	FallbackRadiusKm float64
	// CacheSize 为 0 时关闭进程内缓存
	CacheSize int
	CacheTTL  time.Duration
	// GeohashPrecision 缓存键前缀的 geohash 字符数，只用于分桶，不影响命中判定
	GeohashPrecision uint
}

// Result 一次定位的结果；Record 为 nil 表示未命中
type Result struct {
	Record     *Record
	Approx     bool
	DistanceKm float64
	Cached     bool
}

func (r Result) Found() bool { return r.Record != nil }

// 文档注释：查询编排器（坐标系转换 → 缓存 → R-Tree 候选与 PIP 精确命中 → 最近中心点兜底）
// 背景：在核心解析器外层统一处理服务侧关注点；核心 Resolver 保持纯函数语义不受缓存影响。
// 约束：兜底结果标记 Approx，距离超出半径时视为未命中；缓存按转换后的 WGS-84 坐标建键。
type Locator struct {
	res    *Resolver
	kd     *kdNode
	radius float64
	cache  *LRU
	prec   uint
}

func NewLocator(res *Resolver, opts LocatorOptions) *Locator {
	l := &Locator{res: res, radius: opts.FallbackRadiusKm, prec: opts.GeohashPrecision}
	if l.prec == 0 || l.prec > 12 {
		l.prec = 12
	}
	if opts.CacheSize > 0 {
		ttl := opts.CacheTTL
		if ttl <= 0 {
			ttl = time.Hour
		}
		l.cache = NewLRU(opts.CacheSize, ttl)
	}
	if opts.Fallback {
		if l.radius <= 0 {
			l.radius = 5
		}
		s := res.Store()
		var items []kdItem
		for _, i := range s.Centers() {
			items = append(items, kdItem{ref: i, pt: *s.At(i).Center})
		}
		l.kd = buildKD(items, 0)
	}
	return l
}

// Locate 定位单个坐标
func (l *Locator) Locate(pt Point, cs CoordSys) Result {
	pt = cs.ToWGS84(pt)
	var key string
	if l.cache != nil {
		key = CacheKey(pt, l.prec)
		if v, ok := l.cache.Get(key); ok {
			v.Cached = true
			return v
		}
	}
	var out Result
	if rec, ok := l.res.Resolve(pt); ok {
		out.Record = rec
	} else if l.kd != nil {
		if ref, d := nearest(l.kd, pt); ref >= 0 && d <= l.radius {
			out = Result{Record: l.res.Store().At(ref), Approx: true, DistanceKm: d}
		}
	}
	if l.cache != nil {
		l.cache.Set(key, out)
	}
	return out
}

func (l *Locator) Resolver() *Resolver { return l.res }

// 文档注释：缓存键
// 背景：geohash 前缀便于按区域观察与清理 Redis 键；键尾是完整的 WGS-84 坐标。
// 约束：两个坐标只要有一位不同，键就不同；边界附近的点不会借用邻点的结果。
func CacheKey(pt Point, prec uint) string {
	if prec == 0 || prec > 12 {
		prec = 12
	}
	return geohash.EncodeWithPrecision(pt.Lat, pt.Lon, prec) + ":" +
		strconv.FormatFloat(pt.Lon, 'g', -1, 64) + "," + strconv.FormatFloat(pt.Lat, 'g', -1, 64)
}
