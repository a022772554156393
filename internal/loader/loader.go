package loader

import (
	"errors"
	"fmt"

	"reverse-geo/internal/logger"
	"reverse-geo/internal/revgeo"
)

// ErrNoSources 未配置任何数据源
var ErrNoSources = errors.New("loader: no street csv or geojson dir configured")

// Sources 数据源；两者可同时配置，CSV 记录先于 GeoJSON 记录入库
type Sources struct {
	StreetsCSV string
	GeoJSONDir string
	CSV        CSVOptions
}

// 文档注释：按配置加载全部记录并生成只读 Store
// 约束：跨数据源的重复标识保留先出现者，后者计入 Duplicates；单源内重复由 CSVOptions.SkipDupes 决定。
func Load(src Sources) (*revgeo.Store, LoadStats, error) {
	if src.StreetsCSV == "" && src.GeoJSONDir == "" {
		return nil, LoadStats{}, ErrNoSources
	}
	var (
		recs []revgeo.Record
		st   LoadStats
	)
	if src.StreetsCSV != "" {
		r, s, err := LoadStreetsCSV(src.StreetsCSV, src.CSV)
		if err != nil {
			return nil, st, err
		}
		recs = append(recs, r...)
		st.Merge(s)
	}
	if src.GeoJSONDir != "" {
		r, s, err := LoadGeoJSONDir(src.GeoJSONDir)
		if err != nil {
			return nil, st, err
		}
		st.Merge(s)
		var dropped int
		recs, dropped = appendUnique(recs, r)
		st.Duplicates += dropped
	}
	store, err := revgeo.NewStore(recs)
	if err != nil {
		return nil, st, fmt.Errorf("loader: build store: %w", err)
	}
	logger.L().Info("loader_store_ready", "records", store.Len(), "indexable", store.Indexable(), "duplicates", st.Duplicates)
	return store, st, nil
}

func appendUnique(dst, src []revgeo.Record) ([]revgeo.Record, int) {
	seen := make(map[string]struct{}, len(dst)+len(src))
	for _, r := range dst {
		seen[r.ID] = struct{}{}
	}
	dropped := 0
	for _, r := range src {
		if _, ok := seen[r.ID]; ok {
			dropped++
			continue
		}
		seen[r.ID] = struct{}{}
		dst = append(dst, r)
	}
	return dst, dropped
}
