// 包 loader：在核心之外完成文件读取与几何文本解析，只把校验过的几何交给 revgeo
package loader

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkt"

	"reverse-geo/internal/revgeo"
)

var (
	// ErrDegenerateRing 外环不足 3 个不同顶点
	ErrDegenerateRing = errors.New("loader: degenerate exterior ring")
	// ErrNoGeometry 文本可解析但不是面状几何
	ErrNoGeometry = errors.New("loader: geometry is not a polygon")
	// ErrBadCoordinate 坐标为 NaN/Inf
	ErrBadCoordinate = errors.New("loader: non-finite coordinate")
)

// ParseShapeWKT 解析 POLYGON/MULTIPOLYGON 文本
// 约束：退化的多边形部件被丢弃，全部退化时返回 ErrDegenerateRing；退化的洞直接丢弃。
func ParseShapeWKT(s string) (revgeo.MultiPolygon, error) {
	g, err := wkt.Unmarshal(strings.TrimSpace(s))
	if err != nil {
		return nil, fmt.Errorf("loader: parse wkt: %w", err)
	}
	return shapeFromGeometry(g)
}

// ParsePointWKT 解析 POINT(经度 纬度)
func ParsePointWKT(s string) (revgeo.Point, error) {
	g, err := wkt.Unmarshal(strings.TrimSpace(s))
	if err != nil {
		return revgeo.Point{}, fmt.Errorf("loader: parse wkt: %w", err)
	}
	p, ok := g.(orb.Point)
	if !ok {
		return revgeo.Point{}, fmt.Errorf("loader: expected POINT, got %s", g.GeoJSONType())
	}
	if !finite(p) {
		return revgeo.Point{}, ErrBadCoordinate
	}
	return revgeo.Point{Lon: p.Lon(), Lat: p.Lat()}, nil
}

func shapeFromGeometry(g orb.Geometry) (revgeo.MultiPolygon, error) {
	var polys []orb.Polygon
	switch v := g.(type) {
	case orb.Polygon:
		polys = []orb.Polygon{v}
	case orb.MultiPolygon:
		polys = v
	default:
		return nil, fmt.Errorf("%w: %s", ErrNoGeometry, g.GeoJSONType())
	}
	var out revgeo.MultiPolygon
	for _, p := range polys {
		poly, err := convertPolygon(p)
		if errors.Is(err, ErrDegenerateRing) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, poly)
	}
	if len(out) == 0 {
		return nil, ErrDegenerateRing
	}
	return out, nil
}

func convertPolygon(p orb.Polygon) (revgeo.Polygon, error) {
	var out revgeo.Polygon
	if len(p) == 0 {
		return out, ErrDegenerateRing
	}
	for i, r := range p {
		ring, err := convertRing(r)
		if err != nil {
			return out, err
		}
		if distinct(ring) < 3 {
			if i == 0 {
				return out, ErrDegenerateRing
			}
			continue
		}
		out.Rings = append(out.Rings, ring)
	}
	return out, nil
}

func convertRing(r orb.Ring) ([]revgeo.Point, error) {
	out := make([]revgeo.Point, 0, len(r))
	for _, p := range r {
		if !finite(p) {
			return nil, ErrBadCoordinate
		}
		out = append(out, revgeo.Point{Lon: p.Lon(), Lat: p.Lat()})
	}
	return out, nil
}

func distinct(ring []revgeo.Point) int {
	seen := make(map[revgeo.Point]struct{}, len(ring))
	for _, p := range ring {
		seen[p] = struct{}{}
	}
	return len(seen)
}

func finite(p orb.Point) bool {
	return !math.IsNaN(p[0]) && !math.IsNaN(p[1]) && !math.IsInf(p[0], 0) && !math.IsInf(p[1], 0)
}
