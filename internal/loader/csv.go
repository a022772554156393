package loader

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"reverse-geo/internal/logger"
	"reverse-geo/internal/revgeo"
)

// LoadStats 一次加载的计数
type LoadStats struct {
	Rows       int
	WithShape  int
	CenterOnly int
	Rejected   int
	BadShape   int
	Duplicates int
}

// Merge 累加另一批计数
func (s *LoadStats) Merge(o LoadStats) {
	s.Rows += o.Rows
	s.WithShape += o.WithShape
	s.CenterOnly += o.CenterOnly
	s.Rejected += o.Rejected
	s.BadShape += o.BadShape
	s.Duplicates += o.Duplicates
}

// CSVOptions 街道表读取选项；Comma 为 0 时使用逗号
type CSVOptions struct {
	Comma     rune
	NoHeader  bool
	SkipDupes bool
}

// 文档注释：街道 CSV 加载
// 背景：列依次为 street_id,name,level,center,polygon；center 为 WKT POINT，polygon 为 WKT POLYGON/MULTIPOLYGON。
// 约束：单行几何非法只丢弃该行几何（仍保留中心点）并计入 BadShape；列数不足或缺少标识的行计入 Rejected。
func LoadStreetsCSV(path string, opts CSVOptions) ([]revgeo.Record, LoadStats, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, LoadStats{}, fmt.Errorf("loader: open streets: %w", err)
	}
	defer f.Close()
	recs, st, err := ReadStreetsCSV(f, opts)
	if err != nil {
		return nil, st, fmt.Errorf("loader: %s: %w", path, err)
	}
	logger.L().Info("loader_csv_done", "path", path, "rows", st.Rows, "shapes", st.WithShape, "center_only", st.CenterOnly, "rejected", st.Rejected, "bad_shape", st.BadShape)
	return recs, st, nil
}

// ReadStreetsCSV 从任意输入读取街道表
func ReadStreetsCSV(r io.Reader, opts CSVOptions) ([]revgeo.Record, LoadStats, error) {
	cr := csv.NewReader(r)
	if opts.Comma != 0 {
		cr.Comma = opts.Comma
	}
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.ReuseRecord = true

	var (
		st   LoadStats
		out  []revgeo.Record
		seen = map[string]struct{}{}
		line = 0
	)
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, st, fmt.Errorf("read line %d: %w", line, err)
		}
		if line == 1 && !opts.NoHeader {
			continue
		}
		st.Rows++
		rec, shapeErr, err := parseStreetRow(row)
		if err != nil {
			st.Rejected++
			logger.L().Warn("loader_row_rejected", "line", line, "err", err)
			continue
		}
		if _, dup := seen[rec.ID]; dup {
			st.Duplicates++
			logger.L().Warn("loader_row_duplicate", "line", line, "id", rec.ID)
			if opts.SkipDupes {
				continue
			}
			return nil, st, fmt.Errorf("line %d: %w: %q", line, revgeo.ErrDuplicateID, rec.ID)
		}
		seen[rec.ID] = struct{}{}
		if shapeErr != nil {
			st.BadShape++
			logger.L().Warn("loader_shape_rejected", "line", line, "id", rec.ID, "err", shapeErr)
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

var errShortRow = errors.New("row has fewer than 3 columns")

// parseStreetRow 第二个返回值为多边形解析错误，此时记录仍以仅中心点形式保留
func parseStreetRow(row []string) (revgeo.Record, error, error) {
	if len(row) < 3 {
		return revgeo.Record{}, nil, errShortRow
	}
	rec := revgeo.Record{
		ID:    strings.TrimSpace(row[0]),
		Name:  strings.TrimSpace(row[1]),
		Level: strings.TrimSpace(row[2]),
	}
	if rec.ID == "" {
		return rec, nil, errors.New("empty street_id")
	}
	if len(row) > 3 && strings.TrimSpace(row[3]) != "" {
		// 中心点损坏不影响多边形
		if c, err := ParsePointWKT(row[3]); err == nil {
			rec.Center = &c
		} else {
			logger.L().Debug("loader_center_invalid", "id", rec.ID, "err", err)
		}
	}
	var shapeErr error
	if len(row) > 4 && strings.TrimSpace(row[4]) != "" {
		rec.Shape, shapeErr = ParseShapeWKT(row[4])
	}
	return rec, shapeErr, nil
}
