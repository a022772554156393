package revgeo

import (
	"context"
	"errors"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// DefaultBatchMax 单批最大坐标数
const DefaultBatchMax = 100

// ErrBatchTooLarge 批量请求超过上限；调用方应拆小后重试
var ErrBatchTooLarge = errors.New("revgeo: batch exceeds limit")

// BatchOptions 批量解析参数
type BatchOptions struct {
	Max     int
	Workers int
}

// 文档注释：批量协调器
// 背景：各坐标的解析互不依赖，按有界并发池扇出后汇总；结果与输入一一对应、保持顺序。
// 约束：超过上限时整体拒绝并返回 ErrBatchTooLarge，不截断、不做部分解析；len == Max 正常处理。
type Batcher struct {
	r       *Resolver
	max     int
	workers int
}

func NewBatcher(r *Resolver, opts BatchOptions) *Batcher {
	b := &Batcher{r: r, max: opts.Max, workers: opts.Workers}
	if b.max <= 0 {
		b.max = DefaultBatchMax
	}
	if b.workers <= 0 {
		b.workers = runtime.NumCPU()
	}
	return b
}

func (b *Batcher) Max() int { return b.max }

// ResolveBatch 并发解析；返回切片长度等于输入，未命中位置为 nil
// ctx 取消时尚未开始的坐标不再解析，并返回 ctx 的错误。
func (b *Batcher) ResolveBatch(ctx context.Context, pts []Point) ([]*Record, error) {
	if len(pts) > b.max {
		return nil, fmt.Errorf("%w: %d points, max %d", ErrBatchTooLarge, len(pts), b.max)
	}
	out := make([]*Record, len(pts))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.workers)
	for i, pt := range pts {
		i, pt := i, pt
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if rec, ok := b.r.Resolve(pt); ok {
				out[i] = rec
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// Dedup 集合语义：丢弃未命中，同一记录标识只保留首次出现
// 返回保留项在 results 中的下标，按出现顺序排列，调用方据此回溯原始输入
func Dedup(results []*Record) []int {
	seen := make(map[string]struct{}, len(results))
	out := make([]int, 0, len(results))
	for i, r := range results {
		if r == nil {
			continue
		}
		if _, ok := seen[r.ID]; ok {
			continue
		}
		seen[r.ID] = struct{}{}
		out = append(out, i)
	}
	return out
}
