package revgeo

// ResolverOptions 点解析参数
type ResolverOptions struct {
	Boundary BoundaryRule
}

// 文档注释：点解析器（包围盒候选 → 精确点入面）
// 背景：替代进程级单例，显式持有只读的 Store 与 Index；同一进程内可并存多个互不相关的解析器（例如每个测试一个）。
// 约束：构建后不可变，Resolve 为纯读操作，可并发调用无需加锁。
// 重叠策略：多个多边形同时包含该点时（源数据质量问题），返回索引迭代顺序中的第一个，
// 即 Store 下标最小、最先加载的记录。这是确定但任意的约定，不代表该记录“更正确”。
type Resolver struct {
	store *Store
	index *Index
	rule  BoundaryRule
}

func NewResolver(s *Store, idx *Index, opts ResolverOptions) *Resolver {
	return &Resolver{store: s, index: idx, rule: opts.Boundary}
}

// Resolve 返回包含该点的记录；无候选或全部未命中时返回 (nil, false)，不视为错误
func (r *Resolver) Resolve(pt Point) (*Record, bool) {
	for _, i := range r.index.Query(PointBox(pt)) {
		rec := r.store.At(i)
		if rec.Shape.Contains(pt, r.rule) {
			return rec, true
		}
	}
	return nil, false
}

// Candidates 返回包围盒候选（未经精确判定），用于诊断与测试
func (r *Resolver) Candidates(pt Point) []*Record {
	idx := r.index.Query(PointBox(pt))
	out := make([]*Record, 0, len(idx))
	for _, i := range idx {
		out = append(out, r.store.At(i))
	}
	return out
}

func (r *Resolver) Store() *Store         { return r.store }
func (r *Resolver) Index() *Index         { return r.index }
func (r *Resolver) Boundary() BoundaryRule { return r.rule }
