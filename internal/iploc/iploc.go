// 包 iploc：IP 到坐标的转换，为按访问者 IP 反查街道提供入口
package iploc

import (
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/oschwald/geoip2-golang"

	"reverse-geo/internal/logger"
	"reverse-geo/internal/revgeo"
)

var (
	// ErrBadIP 非法 IP 文本
	ErrBadIP = errors.New("iploc: invalid ip")
	// ErrNoLocation 库中无该 IP 的坐标
	ErrNoLocation = errors.New("iploc: no location for ip")
)

// Info 命中的城市级信息；坐标按库内 WGS-84 返回
type Info struct {
	IP             string  `json:"ip"`
	Country        string  `json:"country"`
	City           string  `json:"city"`
	AccuracyRadius uint16  `json:"accuracy_radius_km"`
	Lng            float64 `json:"lng"`
	Lat            float64 `json:"lat"`
}

// Point 转为核心坐标
func (i Info) Point() revgeo.Point { return revgeo.Point{Lon: i.Lng, Lat: i.Lat} }

// 文档注释：GeoIP2/GeoLite2 City 库查询
// 背景：mmdb 以内存映射方式打开，Reader 可被并发读取。
// 约束：坐标全为 0 视为库内缺失；名称优先取 zh-CN，其次 en。
type GeoIP struct {
	r *geoip2.Reader
}

// Open 打开 mmdb 文件
func Open(path string) (*GeoIP, error) {
	r, err := geoip2.Open(path)
	if err != nil {
		return nil, fmt.Errorf("iploc: open %s: %w", path, err)
	}
	m := r.Metadata()
	logger.L().Info("geoip_open_ok", "path", path, "type", m.DatabaseType, "build_epoch", m.BuildEpoch)
	return &GeoIP{r: r}, nil
}

func (g *GeoIP) Close() error { return g.r.Close() }

// Lookup 查询单个 IP
func (g *GeoIP) Lookup(ip string) (Info, error) {
	parsed := net.ParseIP(strings.TrimSpace(ip))
	if parsed == nil {
		return Info{}, fmt.Errorf("%w: %q", ErrBadIP, ip)
	}
	rec, err := g.r.City(parsed)
	if err != nil {
		return Info{}, fmt.Errorf("iploc: lookup %s: %w", ip, err)
	}
	if rec.Location.Latitude == 0 && rec.Location.Longitude == 0 {
		return Info{}, ErrNoLocation
	}
	return Info{
		IP:             parsed.String(),
		Country:        pickName(rec.Country.Names),
		City:           pickName(rec.City.Names),
		AccuracyRadius: rec.Location.AccuracyRadius,
		Lng:            rec.Location.Longitude,
		Lat:            rec.Location.Latitude,
	}, nil
}

func pickName(names map[string]string) string {
	if n := names["zh-CN"]; n != "" {
		return n
	}
	return names["en"]
}
