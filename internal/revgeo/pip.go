package revgeo

import (
	"fmt"
	"strings"
)

// BoundaryRule 点恰好落在环边（或顶点）上时的归属规则
type BoundaryRule int

const (
	// BoundaryInclusive 边界点视为命中（默认）；洞的边界同样属于多边形的边界，因此也命中
	BoundaryInclusive BoundaryRule = iota
	// BoundaryExclusive 任何环边上的点都视为未命中
	BoundaryExclusive
)

func (r BoundaryRule) String() string {
	if r == BoundaryExclusive {
		return "exclusive"
	}
	return "inclusive"
}

// ParseBoundaryRule 解析配置值；空串取默认 inclusive
func ParseBoundaryRule(s string) (BoundaryRule, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "inclusive", "include":
		return BoundaryInclusive, nil
	case "exclusive", "exclude":
		return BoundaryExclusive, nil
	}
	return BoundaryInclusive, fmt.Errorf("revgeo: unknown boundary rule %q", s)
}

type location int

const (
	outside location = iota
	inside
	onBoundary
)

// 文档注释：点入多边形判定（Even-Odd + 显式边界检测）
// 背景：射线法在点恰好位于边上时结果取决于浮点舍入，反地理在街道边界上的归属是可观测行为，
// 因此先用叉积为零且落在线段范围内的精确测试识别边界点，再按 BoundaryRule 决定归属。
// 约束：外环命中且不在任何洞内视为命中；少于 3 个顶点的环视为空。
func (m MultiPolygon) Contains(pt Point, rule BoundaryRule) bool {
	for _, p := range m {
		if p.Contains(pt, rule) {
			return true
		}
	}
	return false
}

func (p Polygon) Contains(pt Point, rule BoundaryRule) bool {
	if len(p.Rings) == 0 {
		return false
	}
	switch ringLocate(pt, p.Rings[0]) {
	case outside:
		return false
	case onBoundary:
		return rule == BoundaryInclusive
	}
	for _, hole := range p.Rings[1:] {
		switch ringLocate(pt, hole) {
		case inside:
			return false
		case onBoundary:
			return rule == BoundaryInclusive
		}
	}
	return true
}

func ringLocate(pt Point, ring []Point) location {
	n := len(ring)
	if n < 3 {
		return outside
	}
	in := false
	x, y := pt.Lon, pt.Lat
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		a, b := ring[j], ring[i]
		if onSegment(pt, a, b) {
			return onBoundary
		}
		if (b.Lat > y) != (a.Lat > y) && x < (a.Lon-b.Lon)*(y-b.Lat)/(a.Lat-b.Lat)+b.Lon {
			in = !in
		}
	}
	if in {
		return inside
	}
	return outside
}

func onSegment(p, a, b Point) bool {
	cross := (b.Lon-a.Lon)*(p.Lat-a.Lat) - (b.Lat-a.Lat)*(p.Lon-a.Lon)
	if cross != 0 {
		return false
	}
	return p.Lon >= min(a.Lon, b.Lon) && p.Lon <= max(a.Lon, b.Lon) &&
		p.Lat >= min(a.Lat, b.Lat) && p.Lat <= max(a.Lat, b.Lat)
}
