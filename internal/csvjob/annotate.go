package csvjob

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"reverse-geo/internal/admin"
	"reverse-geo/internal/logger"
	"reverse-geo/internal/revgeo"
)

// HeaderColumns 追加到表头的列名
var HeaderColumns = []string{"省", "市", "区", "街道"}

// Resolver 精确点查接口，*revgeo.Resolver 满足该接口
type Resolver interface {
	Resolve(pt revgeo.Point) (*revgeo.Record, bool)
}

// AnnotateOptions 补全任务选项
type AnnotateOptions struct {
	// Encoding 输入输出编码：gbk（默认）或 utf-8
	Encoding string
	// LngCol/LatCol 坐标列下标，默认 2、3
	LngCol, LatCol int
	// Out 输出路径，默认 <输入去扩展名>-ok.csv
	Out string
}

// AnnotateStats 补全结果计数
type AnnotateStats struct {
	Rows       int
	Resolved   int
	Unresolved int
	Skipped    int
	Out        string
}

// ErrSameFile 输出路径指向输入文件；创建输出会先截断输入
var ErrSameFile = errors.New("csvjob: output path equals input path")

// samePath 路径相同，或两者都存在且指向同一文件（硬链接、符号链接）
func samePath(in, out string) bool {
	a, err1 := filepath.Abs(in)
	b, err2 := filepath.Abs(out)
	if err1 == nil && err2 == nil && a == b {
		return true
	}
	fi, err1 := os.Stat(in)
	fo, err2 := os.Stat(out)
	return err1 == nil && err2 == nil && os.SameFile(fi, fo)
}

// OutputPath <name>.csv -> <name>-ok.csv
func OutputPath(in string) string {
	return strings.TrimSuffix(in, filepath.Ext(in)) + "-ok.csv"
}

func pickEncoding(name string) (encoding.Encoding, error) {
	switch strings.ToLower(strings.ReplaceAll(name, "-", "")) {
	case "", "gbk":
		return simplifiedchinese.GBK, nil
	case "gb18030":
		return simplifiedchinese.GB18030, nil
	case "utf8":
		return unicode.UTF8, nil
	}
	return nil, fmt.Errorf("csvjob: unsupported encoding %q", name)
}

// AnnotateFile 读取 in 并写出补全后的文件
func AnnotateFile(in string, res Resolver, dir *admin.Directory, opts AnnotateOptions) (AnnotateStats, error) {
	enc, err := pickEncoding(opts.Encoding)
	if err != nil {
		return AnnotateStats{}, err
	}
	out := opts.Out
	if out == "" {
		out = OutputPath(in)
	}
	if samePath(in, out) {
		return AnnotateStats{}, fmt.Errorf("%w: %s", ErrSameFile, out)
	}
	src, err := os.Open(in)
	if err != nil {
		return AnnotateStats{}, fmt.Errorf("csvjob: open %s: %w", in, err)
	}
	defer src.Close()
	dst, err := os.Create(out)
	if err != nil {
		return AnnotateStats{}, fmt.Errorf("csvjob: create %s: %w", out, err)
	}
	st, err := Annotate(transform.NewReader(src, enc.NewDecoder()), transform.NewWriter(dst, enc.NewEncoder()), res, dir, opts)
	if cerr := dst.Close(); err == nil && cerr != nil {
		err = fmt.Errorf("csvjob: close %s: %w", out, cerr)
	}
	st.Out = out
	if err != nil {
		return st, err
	}
	logger.L().Info("annotate_done", "in", in, "out", out, "rows", st.Rows, "resolved", st.Resolved, "unresolved", st.Unresolved, "skipped", st.Skipped)
	return st, nil
}

// 文档注释：按坐标列补全省/市/区/街道
// 背景：业务方导出的网点表第 3、4 列是经纬度，需要补全所属街道后回传。
// 约束：首行坐标不可解析时视为表头并追加列名；可解析但未命中的行原样输出；
// 列数不足或非首行坐标不可解析的行原样输出并计入 Skipped。w 为 *transform.Writer 时由本函数 Close 以冲刷编码器，底层文件仍由调用方关闭。
func Annotate(r io.Reader, w io.Writer, res Resolver, dir *admin.Directory, opts AnnotateOptions) (AnnotateStats, error) {
	lngCol, latCol := opts.LngCol, opts.LatCol
	if lngCol == 0 && latCol == 0 {
		lngCol, latCol = 2, 3
	}
	need := max(lngCol, latCol) + 1

	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cw := csv.NewWriter(w)

	var st AnnotateStats
	for first := true; ; first = false {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return st, fmt.Errorf("csvjob: read row %d: %w", st.Rows+1, err)
		}
		st.Rows++
		out := row
		switch pt, ok := parseCoord(row, lngCol, latCol, need); {
		case ok:
			if rec, hit := res.Resolve(pt); hit {
				a := dir.Address(rec.ID)
				out = append(append([]string(nil), row...), a.Province, a.City, a.District, rec.Name)
				st.Resolved++
			} else {
				st.Unresolved++
			}
		case first && len(row) >= need:
			out = append(append([]string(nil), row...), HeaderColumns...)
		default:
			st.Skipped++
		}
		if err := cw.Write(out); err != nil {
			return st, fmt.Errorf("csvjob: write row %d: %w", st.Rows, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return st, fmt.Errorf("csvjob: flush: %w", err)
	}
	if tw, ok := w.(*transform.Writer); ok {
		if err := tw.Close(); err != nil {
			return st, fmt.Errorf("csvjob: close encoder: %w", err)
		}
	}
	return st, nil
}

func parseCoord(row []string, lngCol, latCol, need int) (revgeo.Point, bool) {
	if len(row) < need {
		return revgeo.Point{}, false
	}
	lng, err1 := strconv.ParseFloat(strings.TrimSpace(row[lngCol]), 64)
	lat, err2 := strconv.ParseFloat(strings.TrimSpace(row[latCol]), 64)
	if err1 != nil || err2 != nil {
		return revgeo.Point{}, false
	}
	return revgeo.Point{Lon: lng, Lat: lat}, true
}
