package utils

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"reverse-geo/internal/config"
	"reverse-geo/internal/logger"
)

// OpenPostgres：按配置打开连接池并做一次带超时的探活
// 约束：探活失败时关闭连接池并返回错误，调用方据此决定降级
func OpenPostgres(ctx context.Context, pg config.Postgres) (*sql.DB, error) {
	db, err := sql.Open("postgres", pg.DSN())
	if err != nil {
		return nil, fmt.Errorf("utils: open postgres: %w", err)
	}
	db.SetMaxOpenConns(pg.MaxOpenConns)
	db.SetMaxIdleConns(pg.MaxIdleConns)
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("utils: ping postgres %s:%s: %w", pg.Host, pg.Port, err)
	}
	logger.L().Debug("db_env", "host", pg.Host, "db", pg.DB, "max_open", pg.MaxOpenConns)
	return db, nil
}
