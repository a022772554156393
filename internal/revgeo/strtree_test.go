package revgeo

import (
	"fmt"
	"math/rand"
	"slices"
	"testing"

	"github.com/dhconnelly/rtreego"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type oracleItem struct {
	ref  int
	rect rtreego.Rect
}

func (o *oracleItem) Bounds() rtreego.Rect { return o.rect }

func toRect(t *testing.T, b BBox) rtreego.Rect {
	t.Helper()
	r, err := rtreego.NewRect(rtreego.Point{b.MinLon, b.MinLat}, []float64{b.MaxLon - b.MinLon, b.MaxLat - b.MinLat})
	require.NoError(t, err)
	return r
}

func bruteForce(s *Store, box BBox) []int {
	var out []int
	for i := 0; i < s.Len(); i++ {
		if r := s.At(i); r.HasShape() && r.BBox().Intersects(box) {
			out = append(out, i)
		}
	}
	return out
}

func TestBuildIndex_Empty(t *testing.T) {
	t.Run("no records", func(t *testing.T) {
		s, err := NewStore(nil)
		require.NoError(t, err)
		idx := BuildIndex(s, IndexOptions{})
		assert.Equal(t, 0, idx.Len())
		assert.Equal(t, 0, idx.Height())
		assert.Empty(t, idx.Query(BBox{MinLon: -180, MinLat: -90, MaxLon: 180, MaxLat: 90}))
	})

	t.Run("center only records", func(t *testing.T) {
		s, err := NewStore([]Record{{ID: "c1", Center: &Point{Lon: 1, Lat: 1}}})
		require.NoError(t, err)
		idx := BuildIndex(s, IndexOptions{})
		assert.Equal(t, 0, idx.Len())
		assert.Empty(t, idx.Query(PointBox(Point{Lon: 1, Lat: 1})))
	})
}

func TestBuildIndex_SingleLeaf(t *testing.T) {
	s, err := NewStore([]Record{polyRecord("A", rect(0, 0, 10, 10))})
	require.NoError(t, err)
	idx := BuildIndex(s, IndexOptions{})
	assert.Equal(t, 1, idx.Len())
	assert.Equal(t, 1, idx.Height())
	assert.Equal(t, []int{0}, idx.Query(PointBox(Point{Lon: 5, Lat: 5})))
	assert.Equal(t, []int{0}, idx.Query(PointBox(Point{Lon: 10, Lat: 10})), "corner touch must intersect")
	assert.Empty(t, idx.Query(PointBox(Point{Lon: 10.0001, Lat: 5})))
}

func TestBuildIndex_NodeCapacityClamp(t *testing.T) {
	s, err := NewStore(randomRecords(rand.New(rand.NewSource(1)), 50))
	require.NoError(t, err)
	assert.Equal(t, DefaultNodeCapacity, BuildIndex(s, IndexOptions{}).NodeCapacity())
	assert.Equal(t, minNodeCapacity, BuildIndex(s, IndexOptions{NodeCapacity: 1}).NodeCapacity())
	assert.Equal(t, maxNodeCapacity, BuildIndex(s, IndexOptions{NodeCapacity: 1000}).NodeCapacity())
}

func TestBuildIndex_Balanced(t *testing.T) {
	recs := randomRecords(rand.New(rand.NewSource(2)), 5000)
	s, err := NewStore(recs)
	require.NoError(t, err)
	for _, b := range []int{2, 4, 8, 16} {
		idx := BuildIndex(s, IndexOptions{NodeCapacity: b})
		require.Equal(t, s.Indexable(), idx.Len())

		// 所有叶子在同一深度，且每个节点条目数不超过 b
		var leafDepth []int
		var walk func(n, depth int)
		walk = func(n, depth int) {
			nd := idx.nodes[n]
			require.LessOrEqual(t, len(nd.entries), b)
			require.NotEmpty(t, nd.entries)
			if nd.leaf {
				leafDepth = append(leafDepth, depth)
				return
			}
			for _, e := range nd.entries {
				require.Equal(t, idx.nodes[e.ref].box, e.box, "parent entry box must equal child node box")
				walk(e.ref, depth+1)
			}
		}
		walk(idx.root, 1)
		assert.Equal(t, slices.Min(leafDepth), slices.Max(leafDepth), "b=%d", b)
		assert.Equal(t, idx.Height(), leafDepth[0], "b=%d", b)

		// 叶子数不超过 ⌈n/b⌉ 的小常数倍
		leaves := len(leafDepth)
		minLeaves := (idx.Len() + b - 1) / b
		assert.LessOrEqual(t, leaves, 2*minLeaves, "b=%d", b)
	}
}

func TestIndex_NoFalseNegatives(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	s, err := NewStore(randomRecords(rng, 2000))
	require.NoError(t, err)
	idx := BuildIndex(s, IndexOptions{NodeCapacity: 8})

	for i := 0; i < 500; i++ {
		pt := Point{Lon: rng.Float64() * 106, Lat: rng.Float64() * 106}
		got := idx.Query(PointBox(pt))
		assert.Equal(t, bruteForce(s, PointBox(pt)), got)
		for _, ref := range got {
			assert.True(t, s.At(ref).HasShape(), "center-only record %s returned", s.At(ref).ID)
		}
	}
}

func TestIndex_MatchesRtreego(t *testing.T) {
	rng := rand.New(rand.NewSource(4))
	s, err := NewStore(randomRecords(rng, 1500))
	require.NoError(t, err)
	idx := BuildIndex(s, IndexOptions{NodeCapacity: 12})

	var objs []rtreego.Spatial
	for i := 0; i < s.Len(); i++ {
		if r := s.At(i); r.HasShape() {
			objs = append(objs, &oracleItem{ref: i, rect: toRect(t, r.BBox())})
		}
	}
	oracle := rtreego.NewTree(2, 4, 16, objs...)

	for i := 0; i < 300; i++ {
		x, y := rng.Float64()*100, rng.Float64()*100
		box := BBox{MinLon: x, MinLat: y, MaxLon: x + 0.05 + rng.Float64()*10, MaxLat: y + 0.05 + rng.Float64()*10}
		var want []int
		for _, o := range oracle.SearchIntersect(toRect(t, box)) {
			want = append(want, o.(*oracleItem).ref)
		}
		slices.Sort(want)
		assert.Equal(t, want, idx.Query(box))
	}
}

func TestBuildIndex_Deterministic(t *testing.T) {
	recs := randomRecords(rand.New(rand.NewSource(5)), 800)
	// 人为制造中心坐标相同的记录，检验平局规则
	for i := 0; i < 40; i++ {
		recs = append(recs, polyRecord(fmt.Sprintf("dup%02d", i), rect(50, 50, 51, 51)))
	}
	s1, err := NewStore(recs)
	require.NoError(t, err)
	s2, err := NewStore(recs)
	require.NoError(t, err)
	a := BuildIndex(s1, IndexOptions{NodeCapacity: 6})
	b := BuildIndex(s2, IndexOptions{NodeCapacity: 6})

	assert.Equal(t, a.nodes, b.nodes)
	assert.Equal(t, a.root, b.root)
	rng := rand.New(rand.NewSource(6))
	for i := 0; i < 200; i++ {
		pt := Point{Lon: rng.Float64() * 100, Lat: rng.Float64() * 100}
		assert.Equal(t, a.Query(PointBox(pt)), b.Query(PointBox(pt)))
	}
	center := PointBox(Point{Lon: 50.5, Lat: 50.5})
	assert.Equal(t, bruteForce(s1, center), a.Query(center))
	assert.GreaterOrEqual(t, len(a.Query(center)), 40)
}

func TestIndex_ConcurrentQueries(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	s, err := NewStore(randomRecords(rng, 1000))
	require.NoError(t, err)
	idx := BuildIndex(s, IndexOptions{})

	pts := make([]Point, 200)
	want := make([][]int, len(pts))
	for i := range pts {
		pts[i] = Point{Lon: rng.Float64() * 100, Lat: rng.Float64() * 100}
		want[i] = idx.Query(PointBox(pts[i]))
	}
	done := make(chan struct{})
	for w := 0; w < 8; w++ {
		go func() {
			defer func() { done <- struct{}{} }()
			for i, pt := range pts {
				assert.Equal(t, want[i], idx.Query(PointBox(pt)))
			}
		}()
	}
	for w := 0; w < 8; w++ {
		<-done
	}
}
