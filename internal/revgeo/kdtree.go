package revgeo

import (
	"math"

	"github.com/umahmood/haversine"
)

// 文档注释：KD-Tree 最近邻（二维经纬，基于记录中心点）
// 背景：PIP 未命中时（缝隙、海岸线外侧、仅有中心点的记录）提供近似兜底；限制最大半径避免远处误归属。
// 约束：经度/纬度交替分割；仅支持最近一个点查询；距离为球面距离（千米）。
type kdNode struct {
	ref int
	pt  Point
	ax  int // 0:lon,1:lat
	l   *kdNode
	r   *kdNode
}

type kdItem struct {
	ref int
	pt  Point
}

func buildKD(items []kdItem, depth int) *kdNode {
	if len(items) == 0 {
		return nil
	}
	ax := depth % 2
	mid := len(items) / 2
	selectNth(items, mid, ax)
	n := &kdNode{ref: items[mid].ref, pt: items[mid].pt, ax: ax}
	n.l = buildKD(items[:mid], depth+1)
	n.r = buildKD(items[mid+1:], depth+1)
	return n
}

// 原地 nth 元素选择（轴为经度/纬度）
func selectNth(a []kdItem, n int, ax int) {
	lo, hi := 0, len(a)-1
	for lo < hi {
		p := partition(a, lo, hi, (lo+hi)/2, ax)
		if p == n {
			return
		}
		if n < p {
			hi = p - 1
		} else {
			lo = p + 1
		}
	}
}

func partition(a []kdItem, lo, hi, pivot, ax int) int {
	pv := a[pivot]
	a[pivot], a[hi] = a[hi], a[pivot]
	i := lo
	for j := lo; j < hi; j++ {
		if lessItem(a[j], pv, ax) {
			a[i], a[j] = a[j], a[i]
			i++
		}
	}
	a[i], a[hi] = a[hi], a[i]
	return i
}

func lessItem(x, y kdItem, ax int) bool {
	if ax == 0 {
		if x.pt.Lon != y.pt.Lon {
			return x.pt.Lon < y.pt.Lon
		}
	} else if x.pt.Lat != y.pt.Lat {
		return x.pt.Lat < y.pt.Lat
	}
	return x.ref < y.ref
}

// nearest 返回最近中心点的记录下标与距离（千米）；空树返回 -1
func nearest(root *kdNode, pt Point) (int, float64) {
	best := -1
	bestD := math.MaxFloat64
	var dfs func(n *kdNode)
	dfs = func(n *kdNode) {
		if n == nil {
			return
		}
		d := distanceKm(pt, n.pt)
		if d < bestD || (d == bestD && n.ref < best) {
			bestD = d
			best = n.ref
		}
		var key, q float64
		if n.ax == 0 {
			key, q = pt.Lon, n.pt.Lon
		} else {
			key, q = pt.Lat, n.pt.Lat
		}
		first, second := n.l, n.r
		if key > q {
			first, second = n.r, n.l
		}
		dfs(first)
		// 仅当分割平面距离可能小于当前最优距离时才遍历另一侧；经度方向按纬度余弦收缩，取保守值
		if planeKm(pt, key, q, n.ax) <= bestD {
			dfs(second)
		}
	}
	dfs(root)
	return best, bestD
}

// planeKm 查询点到分割线（经线或纬线）的球面距离下界；不处理 ±180° 经线回绕
func planeKm(pt Point, key, q float64, ax int) float64 {
	const R = 6371.0
	delta := math.Abs(key-q) * math.Pi / 180
	if ax == 1 {
		return R * delta
	}
	s := math.Sin(math.Min(delta, math.Pi/2)) * math.Cos(pt.Lat*math.Pi/180)
	return R * math.Asin(math.Min(math.Abs(s), 1))
}

func distanceKm(a, b Point) float64 {
	_, km := haversine.Distance(
		haversine.Coord{Lat: a.Lat, Lon: a.Lon},
		haversine.Coord{Lat: b.Lat, Lon: b.Lon},
	)
	return km
}
