package admin

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddress(t *testing.T) {
	d := NewDirectory([]Entry{
		{Province, "11", "北京市"},
		{City, "1101", "市辖区"},
		{District, "110101", "东城区"},
	})

	assert.Equal(t, Address{"北京市", "市辖区", "东城区"}, d.Address("110101001000"))
	assert.Equal(t, Address{"北京市", "市辖区", UnknownDistrict}, d.Address("110199001"))
	assert.Equal(t, Address{UnknownProvince, UnknownCity, UnknownDistrict}, d.Address("990000"))

	t.Run("short ids", func(t *testing.T) {
		assert.Equal(t, Address{"北京市", UnknownCity, UnknownDistrict}, d.Address("11"))
		assert.Equal(t, Address{"北京市", "市辖区", UnknownDistrict}, d.Address("11010"))
		assert.Equal(t, Address{UnknownProvince, UnknownCity, UnknownDistrict}, d.Address(""))
	})
}

func TestEntries(t *testing.T) {
	d := NewDirectory([]Entry{
		{District, "110101", "东城区"},
		{Province, "44", "广东省"},
		{Province, "11", "北京市"},
		{Province, "11", "北京"},
	})
	assert.Equal(t, []Entry{
		{Province, "11", "北京"},
		{Province, "44", "广东省"},
		{District, "110101", "东城区"},
	}, d.Entries())
}

func TestReadEntries(t *testing.T) {
	in := "\ufeff11,北京市\n\nbroken line\n12 , 天津市 \n"
	es, err := ReadEntries(strings.NewReader(in), Province)
	require.NoError(t, err)
	assert.Equal(t, []Entry{{Province, "11", "北京市"}, {Province, "12", "天津市"}}, es)
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "province.txt"), []byte("44,广东省\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "district.txt"), []byte("440305,南山区\n"), 0o644))

	d, err := LoadDir(dir)
	require.NoError(t, err)
	assert.Equal(t, 0, d.Len(City), "missing city.txt is an empty table")
	assert.Equal(t, Address{"广东省", UnknownCity, "南山区"}, d.Address("440305001"))
}

type fakeSource struct {
	es  []Entry
	err error
}

func (f fakeSource) AdminEntries(context.Context) ([]Entry, error) { return f.es, f.err }

func TestLoadFrom(t *testing.T) {
	d, err := LoadFrom(context.Background(), fakeSource{es: []Entry{{City, "4403", "深圳市"}, {Level(3), "x", "ignored"}}})
	require.NoError(t, err)
	n, ok := d.Name(City, "4403")
	assert.True(t, ok)
	assert.Equal(t, "深圳市", n)

	_, err = LoadFrom(context.Background(), fakeSource{err: errors.New("boom")})
	assert.Error(t, err)
}

func TestParseLevel(t *testing.T) {
	l, err := ParseLevel("City")
	require.NoError(t, err)
	assert.Equal(t, City, l)
	l, err = ParseLevel("6")
	require.NoError(t, err)
	assert.Equal(t, District, l)
	assert.Equal(t, "province", Province.String())
	_, err = ParseLevel("street")
	assert.Error(t, err)
}
