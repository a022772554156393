package revgeo

import (
	"fmt"
	"math"
	"strings"
)

// CoordSys 输入坐标所在的坐标系
type CoordSys int

const (
	WGS84 CoordSys = iota
	GCJ02
	BD09
)

// ParseCoordSys 解析请求参数；空串视为 WGS-84，大小写与连字符不敏感
func ParseCoordSys(s string) (CoordSys, error) {
	switch strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "") {
	case "", "wgs84":
		return WGS84, nil
	case "gcj02", "amap":
		return GCJ02, nil
	case "bd09", "baidu":
		return BD09, nil
	}
	return WGS84, fmt.Errorf("revgeo: unknown coord_sys %q", s)
}

// ToWGS84 将输入坐标转换到 WGS-84
// 约束：简化反算，误差在数十米级；仅当来源明确声明为 GCJ-02/BD-09 时调用。
func (c CoordSys) ToWGS84(p Point) Point {
	switch c {
	case GCJ02:
		return gcj02ToWGS84(p)
	case BD09:
		return bd09ToWGS84(p)
	}
	return p
}

func gcj02ToWGS84(p Point) Point {
	g := transformGCJ(p)
	return Point{Lon: p.Lon*2 - g.Lon, Lat: p.Lat*2 - g.Lat}
}

func bd09ToWGS84(p Point) Point {
	x := p.Lon - 0.0065
	y := p.Lat - 0.006
	z := math.Sqrt(x*x+y*y) - 0.00002*math.Sin(y*math.Pi)
	theta := math.Atan2(y, x) - 0.000003*math.Cos(x*math.Pi)
	return gcj02ToWGS84(Point{Lon: z * math.Cos(theta), Lat: z * math.Sin(theta)})
}

// transformGCJ WGS-84 → GCJ-02 正向偏移；境外坐标原样返回
func transformGCJ(p Point) Point {
	if outOfChina(p) {
		return p
	}
	const a = 6378245.0
	const ee = 0.00669342162296594323
	dLat := transformLat(p.Lon-105.0, p.Lat-35.0)
	dLon := transformLon(p.Lon-105.0, p.Lat-35.0)
	radLat := p.Lat / 180.0 * math.Pi
	magic := math.Sin(radLat)
	magic = 1 - ee*magic*magic
	sqrtMagic := math.Sqrt(magic)
	dLat = (dLat * 180.0) / ((a * (1 - ee)) / (magic * sqrtMagic) * math.Pi)
	dLon = (dLon * 180.0) / (a / sqrtMagic * math.Cos(radLat) * math.Pi)
	return Point{Lon: p.Lon + dLon, Lat: p.Lat + dLat}
}

func outOfChina(p Point) bool {
	return p.Lon < 72.004 || p.Lon > 137.8347 || p.Lat < 0.8293 || p.Lat > 55.8271
}

func transformLat(x, y float64) float64 {
	ret := -100.0 + 2.0*x + 3.0*y + 0.2*y*y + 0.1*x*y + 0.2*math.Sqrt(math.Abs(x))
	ret += (20.0*math.Sin(6.0*x*math.Pi) + 20.0*math.Sin(2.0*x*math.Pi)) * 2.0 / 3.0
	ret += (20.0*math.Sin(y*math.Pi) + 40.0*math.Sin(y/3.0*math.Pi)) * 2.0 / 3.0
	ret += (160.0*math.Sin(y/12.0*math.Pi) + 320*math.Sin(y*math.Pi/30.0)) * 2.0 / 3.0
	return ret
}

func transformLon(x, y float64) float64 {
	ret := 300.0 + x + 2.0*y + 0.1*x*x + 0.1*x*y + 0.1*math.Sqrt(math.Abs(x))
	ret += (20.0*math.Sin(6.0*x*math.Pi) + 20.0*math.Sin(2.0*x*math.Pi)) * 2.0 / 3.0
	ret += (20.0*math.Sin(x*math.Pi) + 40.0*math.Sin(x/3.0*math.Pi)) * 2.0 / 3.0
	ret += (150.0*math.Sin(x/12.0*math.Pi) + 300.0*math.Sin(x/30.0*math.Pi)) * 2.0 / 3.0
	return ret
}
