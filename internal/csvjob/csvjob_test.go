package csvjob

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/simplifiedchinese"

	"reverse-geo/internal/admin"
	"reverse-geo/internal/revgeo"
)

func TestConvertTSV(t *testing.T) {
	in := "id\tname\tpolygon\n" +
		"1\tA\tPOLYGON((0 0,1 0,1 1,0 0))\r\n" +
		"2\tsay \"hi\"\t\t\n" +
		"3\tlast"
	var out bytes.Buffer
	n, err := ConvertTSV(strings.NewReader(in), &out)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Equal(t, "id,name,polygon\n"+
		"1,A,\"POLYGON((0 0,1 0,1 1,0 0))\"\n"+
		"2,\"say \"\"hi\"\"\",,\n"+
		"3,last\n", out.String())
}

func TestConvertTSVFile(t *testing.T) {
	dir := t.TempDir()
	in, out := filepath.Join(dir, "streets.tsv"), filepath.Join(dir, "streets.csv")
	require.NoError(t, os.WriteFile(in, []byte("a\tb\n"), 0o644))
	n, err := ConvertTSVFile(in, out)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	b, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "a,b\n", string(b))

	_, err = ConvertTSVFile(filepath.Join(dir, "missing.tsv"), out)
	assert.Error(t, err)

	_, err = ConvertTSVFile(in, filepath.Join(dir, ".", "streets.tsv"))
	assert.ErrorIs(t, err, ErrSameFile)
}

func TestAnnotateFile_RejectsInputAsOutput(t *testing.T) {
	res, dir := fixture(t)
	tmp := t.TempDir()
	in := filepath.Join(tmp, "stores.csv")
	require.NoError(t, os.WriteFile(in, []byte(annotateInput), 0o644))

	for _, out := range []string{in, filepath.Join(tmp, "sub", "..", "stores.csv")} {
		_, err := AnnotateFile(in, res, dir, AnnotateOptions{Encoding: "utf-8", Out: out})
		assert.ErrorIs(t, err, ErrSameFile, out)
	}
	link := filepath.Join(tmp, "link.csv")
	if err := os.Link(in, link); err == nil {
		_, err := AnnotateFile(in, res, dir, AnnotateOptions{Encoding: "utf-8", Out: link})
		assert.ErrorIs(t, err, ErrSameFile, "hard link")
	}

	b, err := os.ReadFile(in)
	require.NoError(t, err)
	assert.Equal(t, annotateInput, string(b), "input untouched")
}

func fixture(t *testing.T) (*revgeo.Resolver, *admin.Directory) {
	t.Helper()
	sq := func(x0, y0, x1, y1 float64) revgeo.MultiPolygon {
		ring := []revgeo.Point{{Lon: x0, Lat: y0}, {Lon: x1, Lat: y0}, {Lon: x1, Lat: y1}, {Lon: x0, Lat: y1}}
		return revgeo.MultiPolygon{{Rings: [][]revgeo.Point{ring}}}
	}
	s, err := revgeo.NewStore([]revgeo.Record{
		{ID: "110101001", Name: "东华门街道", Shape: sq(0, 0, 10, 10)},
		{ID: "440305002", Name: "南头街道", Shape: sq(20, 0, 30, 10)},
	})
	require.NoError(t, err)
	res := revgeo.NewResolver(s, revgeo.BuildIndex(s, revgeo.IndexOptions{}), revgeo.ResolverOptions{})
	dir := admin.NewDirectory([]admin.Entry{
		{Level: admin.Province, Code: "11", Name: "北京市"},
		{Level: admin.City, Code: "1101", Name: "市辖区"},
		{Level: admin.District, Code: "110101", Name: "东城区"},
		{Level: admin.Province, Code: "44", Name: "广东省"},
	})
	return res, dir
}

const annotateInput = "编号,名称,经度,纬度\n" +
	"1,店A,5,5\n" +
	"2,店B,50,50\n" +
	"3,bad\n" +
	"4,店C,x,y\n" +
	"5,店D,25,5,备注\n"

const annotateOutput = "编号,名称,经度,纬度,省,市,区,街道\n" +
	"1,店A,5,5,北京市,市辖区,东城区,东华门街道\n" +
	"2,店B,50,50\n" +
	"3,bad\n" +
	"4,店C,x,y\n" +
	"5,店D,25,5,备注,广东省,未知市,未知区,南头街道\n"

func TestAnnotate(t *testing.T) {
	res, dir := fixture(t)
	var out bytes.Buffer
	st, err := Annotate(strings.NewReader(annotateInput), &out, res, dir, AnnotateOptions{})
	require.NoError(t, err)
	assert.Equal(t, annotateOutput, out.String())
	assert.Equal(t, AnnotateStats{Rows: 6, Resolved: 2, Unresolved: 1, Skipped: 2}, st)
}

func TestAnnotate_CustomColumns(t *testing.T) {
	res, dir := fixture(t)
	var out bytes.Buffer
	st, err := Annotate(strings.NewReader("5,5\n"), &out, res, dir, AnnotateOptions{LngCol: 0, LatCol: 1})
	require.NoError(t, err)
	assert.Equal(t, 1, st.Resolved)
	assert.Equal(t, "5,5,北京市,市辖区,东城区,东华门街道\n", out.String())
}

func TestAnnotateFile_GBK(t *testing.T) {
	res, dir := fixture(t)
	tmp := t.TempDir()
	in := filepath.Join(tmp, "stores.csv")
	gbk, err := simplifiedchinese.GBK.NewEncoder().String(annotateInput)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(in, []byte(gbk), 0o644))

	st, err := AnnotateFile(in, res, dir, AnnotateOptions{})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(tmp, "stores-ok.csv"), st.Out)

	raw, err := os.ReadFile(st.Out)
	require.NoError(t, err)
	decoded, err := simplifiedchinese.GBK.NewDecoder().Bytes(raw)
	require.NoError(t, err)
	assert.Equal(t, annotateOutput, string(decoded))

	_, err = AnnotateFile(in, res, dir, AnnotateOptions{Encoding: "latin1"})
	assert.Error(t, err)
}

func TestOutputPath(t *testing.T) {
	assert.Equal(t, "data/a-ok.csv", OutputPath("data/a.csv"))
	assert.Equal(t, "noext-ok.csv", OutputPath("noext"))
}
