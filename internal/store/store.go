// 包 store: 提供与 PostgreSQL 的数据访问层，包含行政区划编码读写与查询统计
package store

import (
	"context"
	"database/sql"
	"fmt"

	"reverse-geo/internal/admin"
	"reverse-geo/internal/logger"
)

// Store: 数据库访问入口，持有连接池并提供编码/统计接口
type Store struct {
	db *sql.DB
}

func AttachDB(db *sql.DB) *Store { return &Store{db: db} }

// Close: 关闭数据库连接
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) DB() *sql.DB { return s.db }

// AdminEntries: 读取全部行政区划编码，实现 admin.EntrySource
func (s *Store) AdminEntries(ctx context.Context) ([]admin.Entry, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT level, code, name FROM _admin_codes ORDER BY level, code")
	if err != nil {
		return nil, fmt.Errorf("store: query admin codes: %w", err)
	}
	defer rows.Close()
	var out []admin.Entry
	for rows.Next() {
		var (
			e     admin.Entry
			level int
		)
		if err := rows.Scan(&level, &e.Code, &e.Name); err != nil {
			return nil, fmt.Errorf("store: scan admin code: %w", err)
		}
		e.Level = admin.Level(level)
		out = append(out, e)
	}
	return out, rows.Err()
}

// 文档注释：批量写入行政区划编码
// 背景：由 admin-import 命令把 province/city/district 文本表导入数据库，多实例部署共享同一份编码。
// 约束：单事务完成；编码已存在时覆盖名称。
func (s *Store) UpsertAdminEntries(ctx context.Context, es []admin.Entry) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("store: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO _admin_codes(level, code, name) VALUES($1,$2,$3)
		ON CONFLICT (level, code) DO UPDATE SET name=EXCLUDED.name`)
	if err != nil {
		return 0, fmt.Errorf("store: prepare: %w", err)
	}
	defer stmt.Close()
	for _, e := range es {
		if _, err := stmt.ExecContext(ctx, int(e.Level), e.Code, e.Name); err != nil {
			return 0, fmt.Errorf("store: upsert %s %s: %w", e.Level, e.Code, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("store: commit: %w", err)
	}
	logger.L().Info("admin_codes_upserted", "count", len(es))
	return len(es), nil
}

// IncrStats: 累加查询次数；hit 为真时同时累加命中数
// 约束：统计失败不影响主查询，调用方通常忽略返回值
func (s *Store) IncrStats(ctx context.Context, queries, hits int) error {
	if queries <= 0 {
		return nil
	}
	if _, err := s.db.ExecContext(ctx, "UPDATE _revgeo_stats_total SET total_queries=total_queries+$1, total_hits=total_hits+$2 WHERE id=1", queries, hits); err != nil {
		return fmt.Errorf("store: incr total: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `INSERT INTO _revgeo_stats_daily(day, queries, hits) VALUES(current_date, $1, $2)
		ON CONFLICT (day) DO UPDATE SET queries=_revgeo_stats_daily.queries+$1, hits=_revgeo_stats_daily.hits+$2`, queries, hits); err != nil {
		return fmt.Errorf("store: incr daily: %w", err)
	}
	logger.L().Debug("stats_incr", "queries", queries, "hits", hits)
	return nil
}

// Totals: 统计返回结构，包含累计与当日查询/命中次数
type Totals struct {
	Total     int64 `json:"total"`
	TotalHits int64 `json:"total_hits"`
	Today     int64 `json:"today"`
	TodayHits int64 `json:"today_hits"`
}

// GetTotals: 读取累计与当日统计；当日尚无记录时为 0
func (s *Store) GetTotals(ctx context.Context) (*Totals, error) {
	var t Totals
	if err := s.db.QueryRowContext(ctx, "SELECT total_queries, total_hits FROM _revgeo_stats_total WHERE id=1").Scan(&t.Total, &t.TotalHits); err != nil && err != sql.ErrNoRows {
		return nil, fmt.Errorf("store: totals: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, "SELECT queries, hits FROM _revgeo_stats_daily WHERE day=current_date").Scan(&t.Today, &t.TodayHits); err != nil && err != sql.ErrNoRows {
		return nil, fmt.Errorf("store: daily: %w", err)
	}
	logger.L().Debug("stats_totals", "total", t.Total, "today", t.Today)
	return &t, nil
}
