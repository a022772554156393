package revgeo

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func ring(xy ...float64) []Point {
	out := make([]Point, 0, len(xy)/2)
	for i := 0; i+1 < len(xy); i += 2 {
		out = append(out, Point{Lon: xy[i], Lat: xy[i+1]})
	}
	return out
}

func rect(x0, y0, x1, y1 float64) []Point {
	return ring(x0, y0, x1, y0, x1, y1, x0, y1, x0, y0)
}

func polyRecord(id string, rings ...[]Point) Record {
	return Record{ID: id, Name: "name-" + id, Level: "street", Shape: MultiPolygon{{Rings: rings}}}
}

func newResolver(t *testing.T, opts ResolverOptions, recs ...Record) *Resolver {
	t.Helper()
	s, err := NewStore(recs)
	require.NoError(t, err)
	return NewResolver(s, BuildIndex(s, IndexOptions{}), opts)
}

// randomRecords 生成随机矩形记录；每隔 7 条插入一条只有中心点的记录
func randomRecords(rng *rand.Rand, n int) []Record {
	recs := make([]Record, 0, n)
	for i := 0; i < n; i++ {
		id := fmt.Sprintf("r%04d", i)
		x := rng.Float64() * 100
		y := rng.Float64() * 100
		if i%7 == 3 {
			recs = append(recs, Record{ID: id, Center: &Point{Lon: x, Lat: y}})
			continue
		}
		w := 0.1 + rng.Float64()*5
		h := 0.1 + rng.Float64()*5
		recs = append(recs, polyRecord(id, rect(x, y, x+w, y+h)))
	}
	return recs
}
