package revgeo

import "math"

// 文档注释：街道/行政区多边形与空间索引的最小数据结构
// 背景：只保留点、环、带洞多边形与多面四种几何，足以完成包围盒过滤与点入面判定，不引入通用几何引擎。
// 约束：坐标一律为 (经度, 纬度)；环隐式闭合，首尾重复点可有可无；Rings[0] 为外环，其余为洞。

// Point 经纬度坐标（X=经度，Y=纬度）
type Point struct {
	Lon float64
	Lat float64
}

// BBox 轴对齐包围盒
type BBox struct {
	MinLon, MinLat, MaxLon, MaxLat float64
}

// PointBox 返回退化为单点的包围盒
func PointBox(p Point) BBox {
	return BBox{MinLon: p.Lon, MinLat: p.Lat, MaxLon: p.Lon, MaxLat: p.Lat}
}

// emptyBox 作为 Union 的单位元：任何框与之合并都得到自身
func emptyBox() BBox {
	return BBox{MinLon: math.Inf(1), MinLat: math.Inf(1), MaxLon: math.Inf(-1), MaxLat: math.Inf(-1)}
}

func (b BBox) Empty() bool { return b.MinLon > b.MaxLon || b.MinLat > b.MaxLat }

// Intersects 闭区间相交，共享边或角也视为相交，保证退化点框落在边上时不漏检
func (b BBox) Intersects(o BBox) bool {
	return b.MinLon <= o.MaxLon && o.MinLon <= b.MaxLon &&
		b.MinLat <= o.MaxLat && o.MinLat <= b.MaxLat
}

func (b BBox) Contains(p Point) bool {
	return p.Lon >= b.MinLon && p.Lon <= b.MaxLon && p.Lat >= b.MinLat && p.Lat <= b.MaxLat
}

func (b BBox) Union(o BBox) BBox {
	return BBox{
		MinLon: math.Min(b.MinLon, o.MinLon),
		MinLat: math.Min(b.MinLat, o.MinLat),
		MaxLon: math.Max(b.MaxLon, o.MaxLon),
		MaxLat: math.Max(b.MaxLat, o.MaxLat),
	}
}

func (b BBox) center() (float64, float64) {
	return (b.MinLon + b.MaxLon) / 2, (b.MinLat + b.MaxLat) / 2
}

// Polygon 按 WKT/GeoJSON 约定的环集合，第一环是外环，其后为洞
type Polygon struct {
	Rings [][]Point
}

// MultiPolygon 多面；单个多边形即为只有一个部件的多面
type MultiPolygon []Polygon

// Bound 计算全部顶点的包围盒；空几何返回 Empty() 为真的框
func (m MultiPolygon) Bound() BBox {
	b := emptyBox()
	for _, p := range m {
		for _, r := range p.Rings {
			for _, pt := range r {
				b = b.Union(PointBox(pt))
			}
		}
	}
	return b
}

// Record 街道记录（PolygonRecord）
// Shape 为空的记录仅保留中心点，留在 Store 中供最近邻兜底，永不进入空间索引。
type Record struct {
	ID     string
	Name   string
	Level  string
	Center *Point
	Shape  MultiPolygon

	bbox BBox
}

// BBox 返回插入 Store 时缓存的包围盒；无几何时为空框
func (r *Record) BBox() BBox { return r.bbox }

// HasShape 是否具备可索引的边界几何
func (r *Record) HasShape() bool { return len(r.Shape) > 0 && !r.bbox.Empty() }
