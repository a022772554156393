package migrate

import (
	"context"
	"database/sql"
	"fmt"

	"reverse-geo/internal/logger"
)

var stmts = []string{
	`CREATE TABLE IF NOT EXISTS _admin_codes (
		level SMALLINT NOT NULL,
		code TEXT NOT NULL,
		name TEXT NOT NULL,
		PRIMARY KEY (level, code)
	)`,
	`CREATE TABLE IF NOT EXISTS _revgeo_stats_total (
		id INT PRIMARY KEY,
		total_queries BIGINT NOT NULL DEFAULT 0,
		total_hits BIGINT NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS _revgeo_stats_daily (
		day DATE PRIMARY KEY,
		queries BIGINT NOT NULL DEFAULT 0,
		hits BIGINT NOT NULL DEFAULT 0
	)`,
	`INSERT INTO _revgeo_stats_total(id, total_queries, total_hits)
	 VALUES(1, 0, 0)
	 ON CONFLICT (id) DO NOTHING`,
}

// 背景：首次运行自动创建行政区划编码表与统计表
// 约束：使用 IF NOT EXISTS 避免与既有结构冲突；仅创建最小必需结构
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	for i, s := range stmts {
		logger.L().Debug("schema_exec", "idx", i)
		if _, err := db.ExecContext(ctx, s); err != nil {
			return fmt.Errorf("migrate: statement %d: %w", i, err)
		}
	}
	logger.L().Debug("schema_done")
	return nil
}
