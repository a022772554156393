package loader

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"reverse-geo/internal/logger"
	"reverse-geo/internal/revgeo"
)

// 文档注释：GeoJSON 行政边界加载
// 背景：边界数据常以按省拆分的 FeatureCollection 发布（属性 adcode/name/level），与街道 CSV 共用同一套记录模型。
// 约束：目录内文件按文件名排序读取，保证记录顺序（即重叠命中优先级）稳定；Point 要素只提供中心点。
func LoadGeoJSONDir(dir string) ([]revgeo.Record, LoadStats, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.geojson"))
	if err != nil {
		return nil, LoadStats{}, fmt.Errorf("loader: glob geojson: %w", err)
	}
	sort.Strings(paths)
	var (
		all []revgeo.Record
		st  LoadStats
	)
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, st, fmt.Errorf("loader: read %s: %w", p, err)
		}
		recs, s, err := ReadGeoJSON(data)
		if err != nil {
			return nil, st, fmt.Errorf("loader: %s: %w", p, err)
		}
		logger.L().Debug("loader_geojson_file", "path", p, "features", s.Rows, "rejected", s.Rejected)
		st.Merge(s)
		all = append(all, recs...)
	}
	logger.L().Info("loader_geojson_done", "dir", dir, "files", len(paths), "records", len(all))
	return all, st, nil
}

// ReadGeoJSON 解析单个 FeatureCollection
func ReadGeoJSON(data []byte) ([]revgeo.Record, LoadStats, error) {
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, LoadStats{}, fmt.Errorf("parse geojson: %w", err)
	}
	var (
		st  LoadStats
		out []revgeo.Record
	)
	for i, f := range fc.Features {
		st.Rows++
		id := featureID(f)
		if id == "" {
			st.Rejected++
			logger.L().Warn("loader_feature_rejected", "idx", i, "err", "missing id")
			continue
		}
		rec := revgeo.Record{
			ID:    id,
			Name:  propString(f.Properties, "name"),
			Level: propString(f.Properties, "level"),
		}
		if c, ok := propCenter(f.Properties); ok {
			rec.Center = &c
		}
		switch g := f.Geometry.(type) {
		case orb.Point:
			if finite(g) {
				rec.Center = &revgeo.Point{Lon: g.Lon(), Lat: g.Lat()}
			}
		case nil:
		default:
			shape, err := shapeFromGeometry(g)
			if err != nil {
				st.BadShape++
				logger.L().Warn("loader_shape_rejected", "id", id, "err", err)
				break
			}
			rec.Shape = shape
		}
		if len(rec.Shape) > 0 {
			st.WithShape++
		} else {
			st.CenterOnly++
		}
		out = append(out, rec)
	}
	return out, st, nil
}

func featureID(f *geojson.Feature) string {
	if s := propString(f.Properties, "id", "adcode", "street_id"); s != "" {
		return s
	}
	if f.ID != nil {
		return anyString(f.ID)
	}
	return ""
}

// propString 依次尝试多个键，数值型编码（如 adcode: 110101）转为整数文本
func propString(p geojson.Properties, keys ...string) string {
	for _, k := range keys {
		if v, ok := p[k]; ok && v != nil {
			if s := anyString(v); s != "" {
				return s
			}
		}
	}
	return ""
}

func anyString(v interface{}) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	}
	return ""
}

// propCenter 读取 center 或 centroid 属性：[lng, lat]
func propCenter(p geojson.Properties) (revgeo.Point, bool) {
	for _, k := range []string{"center", "centroid"} {
		arr, ok := p[k].([]interface{})
		if !ok || len(arr) < 2 {
			continue
		}
		lon, ok1 := arr[0].(float64)
		lat, ok2 := arr[1].(float64)
		if ok1 && ok2 && finite(orb.Point{lon, lat}) {
			return revgeo.Point{Lon: lon, Lat: lat}, true
		}
	}
	return revgeo.Point{}, false
}
