package revgeo

import (
	"math/rand"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewStore_DuplicateID(t *testing.T) {
	_, err := NewStore([]Record{polyRecord("A", rect(0, 0, 1, 1)), polyRecord("A", rect(2, 2, 3, 3))})
	assert.ErrorIs(t, err, ErrDuplicateID)
}

func TestResolve_Square(t *testing.T) {
	r := newResolver(t, ResolverOptions{}, polyRecord("A", rect(0, 0, 10, 10)))

	rec, ok := r.Resolve(Point{Lon: 5, Lat: 5})
	require.True(t, ok)
	assert.Equal(t, "A", rec.ID)

	_, ok = r.Resolve(Point{Lon: 15, Lat: 15})
	assert.False(t, ok)

	// 默认规则：边界点视为命中
	rec, ok = r.Resolve(Point{Lon: 0, Lat: 0})
	require.True(t, ok)
	assert.Equal(t, "A", rec.ID)

	excl := newResolver(t, ResolverOptions{Boundary: BoundaryExclusive}, polyRecord("A", rect(0, 0, 10, 10)))
	_, ok = excl.Resolve(Point{Lon: 0, Lat: 0})
	assert.False(t, ok)
	_, ok = excl.Resolve(Point{Lon: 5, Lat: 5})
	assert.True(t, ok)
}

func TestResolve_Hole(t *testing.T) {
	r := newResolver(t, ResolverOptions{}, polyRecord("B", rect(0, 0, 10, 10), rect(3, 3, 7, 7)))

	_, ok := r.Resolve(Point{Lon: 5, Lat: 5})
	assert.False(t, ok, "point inside the hole")

	rec, ok := r.Resolve(Point{Lon: 1, Lat: 1})
	require.True(t, ok)
	assert.Equal(t, "B", rec.ID)
}

func TestResolve_OverlapTieBreak(t *testing.T) {
	recs := []Record{
		polyRecord("first", rect(0, 0, 10, 10)),
		polyRecord("second", rect(4, 4, 6, 6)),
		polyRecord("third", rect(-5, -5, 20, 20)),
	}
	r := newResolver(t, ResolverOptions{}, recs...)

	rec, ok := r.Resolve(Point{Lon: 5, Lat: 5})
	require.True(t, ok)
	assert.Equal(t, "first", rec.ID, "lowest store index wins")
	for i := 0; i < 50; i++ {
		again, _ := r.Resolve(Point{Lon: 5, Lat: 5})
		assert.Same(t, rec, again)
	}

	// 调换加载顺序后，胜出者随之改变
	r2 := newResolver(t, ResolverOptions{}, recs[1], recs[0], recs[2])
	rec, ok = r2.Resolve(Point{Lon: 5, Lat: 5})
	require.True(t, ok)
	assert.Equal(t, "second", rec.ID)
}

func TestResolve_CenterOnlyNeverMatches(t *testing.T) {
	r := newResolver(t, ResolverOptions{},
		Record{ID: "center", Center: &Point{Lon: 5, Lat: 5}},
		polyRecord("A", rect(20, 20, 30, 30)),
	)
	_, ok := r.Resolve(Point{Lon: 5, Lat: 5})
	assert.False(t, ok)
	assert.Empty(t, r.Candidates(Point{Lon: 5, Lat: 5}))
	assert.Equal(t, 2, r.Store().Len())
	assert.Equal(t, 1, r.Index().Len())
}

func TestResolve_CandidatesAreSuperset(t *testing.T) {
	// 三角形的包围盒覆盖 (3,3)，但三角形本身不覆盖
	r := newResolver(t, ResolverOptions{}, polyRecord("T", ring(0, 0, 4, 0, 0, 4)))
	assert.Len(t, r.Candidates(Point{Lon: 3, Lat: 3}), 1)
	_, ok := r.Resolve(Point{Lon: 3, Lat: 3})
	assert.False(t, ok)
}

func TestResolve_MatchesBruteForce(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	recs := randomRecords(rng, 1200)
	r := newResolver(t, ResolverOptions{}, recs...)

	for i := 0; i < 400; i++ {
		pt := Point{Lon: rng.Float64() * 100, Lat: rng.Float64() * 100}
		var want *Record
		for j := 0; j < r.Store().Len(); j++ {
			if rec := r.Store().At(j); rec.HasShape() && rec.Shape.Contains(pt, BoundaryInclusive) {
				want = rec
				break
			}
		}
		got, ok := r.Resolve(pt)
		if want == nil {
			assert.False(t, ok)
			continue
		}
		require.True(t, ok)
		assert.Equal(t, want.ID, got.ID)
	}
}

func TestResolve_Concurrent(t *testing.T) {
	rng := rand.New(rand.NewSource(12))
	r := newResolver(t, ResolverOptions{}, randomRecords(rng, 800)...)
	pts := make([]Point, 300)
	want := make([]*Record, len(pts))
	for i := range pts {
		pts[i] = Point{Lon: rng.Float64() * 100, Lat: rng.Float64() * 100}
		want[i], _ = r.Resolve(pts[i])
	}
	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i, pt := range pts {
				got, _ := r.Resolve(pt)
				assert.Same(t, want[i], got)
			}
		}()
	}
	wg.Wait()
}
