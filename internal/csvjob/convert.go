// 包 csvjob：离线文件任务，TSV 转 CSV 与按坐标列批量补全省市区街道
package csvjob

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"reverse-geo/internal/logger"
)

// ConvertTSVFile 将制表符分隔文件转为逗号分隔文件（UTF-8）
func ConvertTSVFile(in, out string) (int, error) {
	if samePath(in, out) {
		return 0, fmt.Errorf("%w: %s", ErrSameFile, out)
	}
	src, err := os.Open(in)
	if err != nil {
		return 0, fmt.Errorf("csvjob: open %s: %w", in, err)
	}
	defer src.Close()
	dst, err := os.Create(out)
	if err != nil {
		return 0, fmt.Errorf("csvjob: create %s: %w", out, err)
	}
	n, err := ConvertTSV(src, dst)
	if cerr := dst.Close(); err == nil && cerr != nil {
		err = fmt.Errorf("csvjob: close %s: %w", out, cerr)
	}
	if err != nil {
		return n, err
	}
	logger.L().Info("tsv_convert_done", "in", in, "out", out, "lines", n)
	return n, nil
}

// 文档注释：逐行转换 TSV
// 背景：街道原始导出是 TSV，多边形 WKT 中含逗号，直接当 CSV 读取会错列。
// 约束：按制表符切分并保留末尾空字段；字段含逗号、双引号或换行时整体加引号，内部双引号加倍；每行以 \n 结尾，行尾 \r 被去除。
func ConvertTSV(r io.Reader, w io.Writer) (int, error) {
	br := bufio.NewReaderSize(r, 1<<20)
	bw := bufio.NewWriterSize(w, 1<<20)
	n := 0
	for {
		line, err := br.ReadString('\n')
		if len(line) > 0 {
			line = strings.TrimSuffix(strings.TrimSuffix(line, "\n"), "\r")
			if _, werr := bw.WriteString(tsvLineToCSV(line)); werr != nil {
				return n, fmt.Errorf("csvjob: write: %w", werr)
			}
			if werr := bw.WriteByte('\n'); werr != nil {
				return n, fmt.Errorf("csvjob: write: %w", werr)
			}
			n++
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return n, fmt.Errorf("csvjob: read line %d: %w", n+1, err)
		}
	}
	if err := bw.Flush(); err != nil {
		return n, fmt.Errorf("csvjob: flush: %w", err)
	}
	return n, nil
}

func tsvLineToCSV(line string) string {
	fields := strings.Split(line, "\t")
	for i, f := range fields {
		fields[i] = escapeField(f)
	}
	return strings.Join(fields, ",")
}

func escapeField(f string) string {
	if !strings.ContainsAny(f, ",\"\n") {
		return f
	}
	return `"` + strings.ReplaceAll(f, `"`, `""`) + `"`
}
