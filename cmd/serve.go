package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"reverse-geo/internal/api"
	"reverse-geo/internal/iploc"
	"reverse-geo/internal/logger"
	"reverse-geo/internal/middleware"
	"reverse-geo/internal/migrate"
	"reverse-geo/internal/revgeo"
	"reverse-geo/internal/store"
	"reverse-geo/internal/utils"
)

func newServeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "加载数据并启动 HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.serve(cmd.Context())
		},
	}
}

// openStore 打开 Postgres 并确保表结构；未启用时返回 nil
func openStore(ctx context.Context, a *app) (*store.Store, error) {
	if !a.cfg.PG.Enable {
		logger.L().Info("db_disabled")
		return nil, nil
	}
	db, err := utils.OpenPostgres(ctx, a.cfg.PG)
	if err != nil {
		return nil, err
	}
	if err := migrate.EnsureSchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	logger.L().Info("db_open_ok")
	return store.AttachDB(db), nil
}

// 文档注释：serve 子命令
// 背景：Postgres/Redis/GeoIP 均为可选依赖；Redis 与 GeoIP 打开失败只降级不退出，Postgres 失败时仅在其承担编码来源时退出。
// 约束：收到 SIGINT/SIGTERM 后在 10 秒内优雅关闭。
func (a *app) serve(ctx context.Context) error {
	cfg := a.cfg
	l := logger.L()

	res, err := buildResolver(cfg)
	if err != nil {
		l.Error("index_build_error", "err", err)
		return err
	}

	pg, err := openStore(ctx, a)
	if err != nil {
		if cfg.AdminSource == "postgres" {
			l.Error("db_open_error", "err", err)
			return err
		}
		l.Warn("db_open_error", "err", err, "effect", "stats_disabled")
	}
	if pg != nil {
		defer pg.Close()
	}
	dir, err := loadDirectory(ctx, cfg, pg)
	if err != nil {
		l.Error("admin_load_error", "err", err)
		return err
	}

	deps := api.Deps{
		Locator:          revgeo.NewLocator(res, cfg.LocatorOptions()),
		Batcher:          revgeo.NewBatcher(res, cfg.BatchOptions()),
		Directory:        dir,
		RedisTTL:         cfg.RedisTTL(),
		GeohashPrecision: uint(cfg.Cache.GeohashPrec),
		Fallback:         cfg.Fallback.Enable,
		CORSOrigins:      cfg.Origins(),
	}
	if pg != nil {
		deps.Stats = pg
	}
	if rc := utils.OpenRedisFromConfig(cfg); rc == nil {
		l.Info("redis_disabled")
	} else if err := rc.Ping(ctx).Err(); err != nil {
		l.Error("redis_ping_error", "err", err)
		_ = rc.Close()
	} else {
		l.Info("redis_ping_ok")
		defer rc.Close()
		deps.Redis = rc
	}
	if cfg.GeoIPPath != "" {
		if g, err := iploc.Open(cfg.GeoIPPath); err != nil {
			l.Error("geoip_open_error", "path", cfg.GeoIPPath, "err", err)
		} else {
			l.Info("geoip_ready", "path", cfg.GeoIPPath)
			defer g.Close()
			deps.GeoIP = g
		}
	}

	handler := api.BuildRoutes(cfg.APIBase, deps)
	if cfg.RateLimit.Enabled {
		handler = middleware.NewLimiter(cfg.RateLimit.QPS, cfg.RateLimit.Burst).Wrap(handler)
		l.Info("rate_limit_enabled", "qps", cfg.RateLimit.QPS, "burst", cfg.RateLimit.Burst)
	}
	handler = logger.AccessMiddleware(l)(handler)
	srv := &http.Server{Addr: cfg.Addr, Handler: handler, ReadHeaderTimeout: 10 * time.Second}

	errCh := make(chan error, 1)
	go func() {
		if cfg.TLS.Enable {
			if err := utils.EnsureSelfSignedCert(cfg.TLS.CertPath, cfg.TLS.KeyPath, cfg.TLSHosts()...); err != nil {
				errCh <- fmt.Errorf("tls cert: %w", err)
				return
			}
			l.Info("listening_tls", "addr", cfg.Addr, "base", cfg.APIBase, "cert", cfg.TLS.CertPath)
			errCh <- srv.ListenAndServeTLS(cfg.TLS.CertPath, cfg.TLS.KeyPath)
			return
		}
		l.Info("listening", "addr", cfg.Addr, "base", cfg.APIBase)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		l.Error("server_error", "err", err)
		return err
	case <-ctx.Done():
	}
	l.Info("shutdown_begin")
	sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		l.Error("shutdown_error", "err", err)
		return err
	}
	l.Info("shutdown_ok")
	return nil
}
