package revgeo

import (
	"cmp"
	"math"
	"slices"
)

const (
	DefaultNodeCapacity = 10
	minNodeCapacity     = 2
	maxNodeCapacity     = 64
)

// IndexOptions 空间索引构建参数
type IndexOptions struct {
	// NodeCapacity 每个节点最多条目数（分支因子），<=0 取默认值
	NodeCapacity int
}

// entry 节点内条目：叶子中 ref 为 Store 下标，内部节点中 ref 为子节点在 arena 中的下标
type entry struct {
	box BBox
	ref int
}

type node struct {
	box     BBox
	leaf    bool
	entries []entry
}

// 文档注释：批量装载的 R-Tree（Sort-Tile-Recursive）
// 背景：多边形集合在启动时一次性给定，按 STR 打包可得到高度平衡、叶子填充率接近 100% 的树，构建 O(n log n)。
// 约束：节点以 arena 切片存放、以整数下标互相引用，构建后不可变，可被任意数量的 goroutine 并发只读查询。
// 排序规则：按包围盒中心坐标排序，坐标相等时按 ref 升序（叶子层即插入顺序），因此同一输入序列总是得到同一棵树。
type Index struct {
	nodes  []node
	root   int
	size   int
	height int
	cap    int
}

// BuildIndex 对 Store 中具备几何的记录构建索引；零条可索引记录时返回可用的空索引
func BuildIndex(s *Store, opts IndexOptions) *Index {
	b := opts.NodeCapacity
	if b <= 0 {
		b = DefaultNodeCapacity
	}
	b = min(max(b, minNodeCapacity), maxNodeCapacity)
	idx := &Index{root: -1, cap: b}

	level := make([]entry, 0, s.Indexable())
	for i := 0; i < s.Len(); i++ {
		r := s.At(i)
		if !r.HasShape() {
			continue
		}
		level = append(level, entry{box: r.bbox, ref: i})
	}
	idx.size = len(level)
	if len(level) == 0 {
		return idx
	}

	leaf := true
	for {
		groups := strPack(level, b)
		parents := make([]entry, 0, len(groups))
		for _, g := range groups {
			n := node{box: emptyBox(), leaf: leaf, entries: g}
			for _, e := range g {
				n.box = n.box.Union(e.box)
			}
			idx.nodes = append(idx.nodes, n)
			parents = append(parents, entry{box: n.box, ref: len(idx.nodes) - 1})
		}
		idx.height++
		if len(parents) == 1 {
			idx.root = parents[0].ref
			return idx
		}
		level = parents
		leaf = false
	}
}

// strPack 将一层条目切分为若干组，每组不超过 b 个：
// 先按中心经度排序切为 S 个竖条（每条 S*b 个），条内再按中心纬度排序并每 b 个成组。
func strPack(es []entry, b int) [][]entry {
	n := len(es)
	p := (n + b - 1) / b
	s := int(math.Ceil(math.Sqrt(float64(p))))
	slab := s * b

	sorted := slices.Clone(es)
	sortByCenter(sorted, 0)
	groups := make([][]entry, 0, p)
	for i := 0; i < n; i += slab {
		part := sorted[i:min(i+slab, n)]
		sortByCenter(part, 1)
		for j := 0; j < len(part); j += b {
			groups = append(groups, slices.Clone(part[j:min(j+b, len(part))]))
		}
	}
	return groups
}

func sortByCenter(es []entry, axis int) {
	slices.SortFunc(es, func(a, b entry) int {
		ax, ay := a.box.center()
		bx, by := b.box.center()
		ka, kb := ax, bx
		if axis == 1 {
			ka, kb = ay, by
		}
		if c := cmp.Compare(ka, kb); c != 0 {
			return c
		}
		return cmp.Compare(a.ref, b.ref)
	})
}

// Query 返回包围盒与 box 相交的全部记录下标（候选集，可能含假阳性，不含漏检）
// 结果按 Store 下标升序，这是索引对外约定的迭代顺序；空索引返回 nil。
func (t *Index) Query(box BBox) []int {
	if t.root < 0 || !t.nodes[t.root].box.Intersects(box) {
		return nil
	}
	var out []int
	stack := []int{t.root}
	for len(stack) > 0 {
		n := &t.nodes[stack[len(stack)-1]]
		stack = stack[:len(stack)-1]
		for _, e := range n.entries {
			if !e.box.Intersects(box) {
				continue
			}
			if n.leaf {
				out = append(out, e.ref)
			} else {
				stack = append(stack, e.ref)
			}
		}
	}
	slices.Sort(out)
	return out
}

// Len 已索引记录数
func (t *Index) Len() int { return t.size }

// Height 树高；空索引为 0，单叶子为 1
func (t *Index) Height() int { return t.height }

// NodeCapacity 实际使用的分支因子
func (t *Index) NodeCapacity() int { return t.cap }

// Nodes arena 中的节点数
func (t *Index) Nodes() int { return len(t.nodes) }
