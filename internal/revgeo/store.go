package revgeo

import (
	"errors"
	"fmt"
	"time"
)

// ErrDuplicateID 记录标识重复
var ErrDuplicateID = errors.New("revgeo: duplicate record id")

// 文档注释：几何存储（只读快照）
// 背景：进程启动时由加载器一次性填充，之后只读；空间索引只持有其下标，不持有记录本身。
// 约束：插入顺序即下标顺序，同时也是重叠多边形的命中优先级；包围盒仅在此处计算一次。
type Store struct {
	recs    []Record
	byID    map[string]int
	indexed int
	BuiltAt time.Time
}

// NewStore 复制记录并计算包围盒；标识重复时返回 ErrDuplicateID
func NewStore(recs []Record) (*Store, error) {
	s := &Store{recs: make([]Record, len(recs)), byID: make(map[string]int, len(recs)), BuiltAt: time.Now()}
	for i, r := range recs {
		if _, ok := s.byID[r.ID]; ok {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateID, r.ID)
		}
		r.bbox = r.Shape.Bound()
		if r.HasShape() {
			s.indexed++
		}
		s.recs[i] = r
		s.byID[r.ID] = i
	}
	return s, nil
}

func (s *Store) Len() int { return len(s.recs) }

// Indexable 具备几何、会进入空间索引的记录数
func (s *Store) Indexable() int { return s.indexed }

// At 按下标取记录；返回指针指向 Store 内部，调用方不得修改
func (s *Store) At(i int) *Record { return &s.recs[i] }

// Get 按标识查找
func (s *Store) Get(id string) (*Record, bool) {
	i, ok := s.byID[id]
	if !ok {
		return nil, false
	}
	return &s.recs[i], true
}

// Centers 返回带中心点的记录下标，供最近邻兜底建树
func (s *Store) Centers() []int {
	var out []int
	for i := range s.recs {
		if s.recs[i].Center != nil {
			out = append(out, i)
		}
	}
	return out
}
