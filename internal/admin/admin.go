// 包 admin：行政区划编码到名称的映射，按街道编码前缀拼出省/市/区
package admin

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"reverse-geo/internal/logger"
)

// Level 行政级别，取值即编码前缀长度
type Level int

const (
	Province Level = 2
	City     Level = 4
	District Level = 6
)

// 未命中时的占位名称
const (
	UnknownProvince = "未知省"
	UnknownCity     = "未知市"
	UnknownDistrict = "未知区"
)

func (l Level) String() string {
	switch l {
	case Province:
		return "province"
	case City:
		return "city"
	case District:
		return "district"
	}
	return fmt.Sprintf("level(%d)", int(l))
}

// ParseLevel 接受 province/city/district 或 2/4/6
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "province", "2":
		return Province, nil
	case "city", "4":
		return City, nil
	case "district", "6":
		return District, nil
	}
	return 0, fmt.Errorf("admin: unknown level %q", s)
}

// Entry 一条编码映射
type Entry struct {
	Level Level
	Code  string
	Name  string
}

// Address 街道所属的省市区名称
type Address struct {
	Province string `json:"province"`
	City     string `json:"city"`
	District string `json:"district"`
}

// EntrySource 外部编码来源（如数据库）
type EntrySource interface {
	AdminEntries(ctx context.Context) ([]Entry, error)
}

// 文档注释：行政区划目录
// 背景：街道编码的前 2/4/6 位分别是省/市/区编码，目录只需三张等值映射表。
// 约束：构建完成后只读，可被多个请求并发读取；同一编码重复出现时后者覆盖前者。
type Directory struct {
	names map[Level]map[string]string
}

// NewDirectory 由条目构建目录；未知级别的条目被忽略
func NewDirectory(entries []Entry) *Directory {
	d := &Directory{names: map[Level]map[string]string{
		Province: {},
		City:     {},
		District: {},
	}}
	for _, e := range entries {
		d.add(e)
	}
	return d
}

func (d *Directory) add(e Entry) {
	m, ok := d.names[e.Level]
	if !ok || e.Code == "" {
		return
	}
	m[e.Code] = e.Name
}

// Len 某一级别的条目数
func (d *Directory) Len(l Level) int { return len(d.names[l]) }

// Entries 导出全部条目，按级别再按编码排序
func (d *Directory) Entries() []Entry {
	var out []Entry
	for _, l := range []Level{Province, City, District} {
		codes := make([]string, 0, len(d.names[l]))
		for c := range d.names[l] {
			codes = append(codes, c)
		}
		sort.Strings(codes)
		for _, c := range codes {
			out = append(out, Entry{Level: l, Code: c, Name: d.names[l][c]})
		}
	}
	return out
}

// Name 按级别与编码查名称
func (d *Directory) Name(l Level, code string) (string, bool) {
	n, ok := d.names[l][code]
	return n, ok
}

// Address 按街道编码前缀查省/市/区；编码过短或未登记时返回占位名称
func (d *Directory) Address(streetID string) Address {
	return Address{
		Province: d.lookup(Province, streetID, UnknownProvince),
		City:     d.lookup(City, streetID, UnknownCity),
		District: d.lookup(District, streetID, UnknownDistrict),
	}
}

func (d *Directory) lookup(l Level, id, fallback string) string {
	if len(id) < int(l) {
		return fallback
	}
	if n, ok := d.names[l][id[:l]]; ok {
		return n
	}
	return fallback
}

var files = map[Level]string{
	Province: "province.txt",
	City:     "city.txt",
	District: "district.txt",
}

// 文档注释：从目录读取 province.txt/city.txt/district.txt
// 背景：每行 "编码,名称"；缺失的文件只记日志并视为空表，使服务在编码表不全时仍可返回街道名。
// 约束：无逗号的行跳过；读文件失败（非不存在）返回错误。
func LoadDir(dir string) (*Directory, error) {
	var entries []Entry
	for _, l := range []Level{Province, City, District} {
		p := filepath.Join(dir, files[l])
		f, err := os.Open(p)
		if errors.Is(err, fs.ErrNotExist) {
			logger.L().Warn("admin_file_missing", "path", p)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("admin: open %s: %w", p, err)
		}
		es, err := ReadEntries(f, l)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("admin: read %s: %w", p, err)
		}
		entries = append(entries, es...)
	}
	d := NewDirectory(entries)
	logger.L().Info("admin_dir_loaded", "dir", dir, "province", d.Len(Province), "city", d.Len(City), "district", d.Len(District))
	return d, nil
}

// ReadEntries 读取某一级别的 "编码,名称" 行
func ReadEntries(r io.Reader, l Level) ([]Entry, error) {
	var out []Entry
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(strings.TrimPrefix(sc.Text(), "\ufeff"))
		code, name, ok := strings.Cut(line, ",")
		if !ok {
			continue
		}
		out = append(out, Entry{Level: l, Code: strings.TrimSpace(code), Name: strings.TrimSpace(name)})
	}
	return out, sc.Err()
}

// LoadFrom 从外部来源构建目录
func LoadFrom(ctx context.Context, src EntrySource) (*Directory, error) {
	es, err := src.AdminEntries(ctx)
	if err != nil {
		return nil, fmt.Errorf("admin: load entries: %w", err)
	}
	d := NewDirectory(es)
	logger.L().Info("admin_db_loaded", "province", d.Len(Province), "city", d.Len(City), "district", d.Len(District))
	return d, nil
}
