// 程序入口：命令行只负责读取配置、组装依赖并分派子命令；API 注册在 internal/api 以便扩展
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"reverse-geo/internal/admin"
	"reverse-geo/internal/config"
	"reverse-geo/internal/loader"
	"reverse-geo/internal/logger"
	"reverse-geo/internal/metrics"
	"reverse-geo/internal/revgeo"
	"reverse-geo/internal/store"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := execute(ctx, newRootCmd())
	stop()
	os.Exit(code)
}

// execute 运行命令并返回退出码；错误写入日志与命令的错误输出
func execute(ctx context.Context, root *cobra.Command) int {
	cmd, err := root.ExecuteContextC(ctx)
	if err == nil {
		return 0
	}
	logger.L().Error("command_error", "cmd", cmd.CommandPath(), "err", err)
	fmt.Fprintln(root.ErrOrStderr(), "Error:", err)
	return 1
}

// app 子命令共享的进程状态
type app struct {
	envFiles []string
	cfg      *config.Config
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "reverse-geo",
		Short:         "坐标到街道的逆地理编码服务与离线工具",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(a.envFiles...)
			if err != nil {
				logger.Setup().Error("config_error", "err", err)
				return err
			}
			logger.Configure(cfg.Log.Level, cfg.Log.Format).Debug("log_init_ok", "cmd", cmd.Name())
			a.cfg = cfg
			return nil
		},
	}
	root.PersistentFlags().StringSliceVar(&a.envFiles, "env",
		[]string{".env", filepath.Join("data", "env", ".env")}, "dotenv files loaded before the environment")
	root.AddCommand(
		newServeCmd(a),
		newConvertCmd(),
		newAnnotateCmd(a),
		newAdminImportCmd(a),
	)
	return root
}

// 文档注释：加载街道数据并构建空间索引
// 背景：serve 与 annotate 共用同一套加载流程；加载计数同时写入日志与指标。
// 约束：数据源缺失或标识冲突时返回错误；单行几何错误只计数不中断。
func buildResolver(cfg *config.Config) (*revgeo.Resolver, error) {
	l := logger.L()
	st, stats, err := loader.Load(loader.Sources{StreetsCSV: cfg.StreetsCSV, GeoJSONDir: cfg.GeoJSONDir})
	if err != nil {
		return nil, fmt.Errorf("load streets: %w", err)
	}
	metrics.LoadRejectedTotal.WithLabelValues("rejected").Add(float64(stats.Rejected))
	metrics.LoadRejectedTotal.WithLabelValues("bad_shape").Add(float64(stats.BadShape))
	metrics.LoadRejectedTotal.WithLabelValues("duplicate").Add(float64(stats.Duplicates))

	idx := revgeo.BuildIndex(st, cfg.IndexOptions())
	metrics.IndexRecords.Set(float64(idx.Len()))
	metrics.IndexHeight.Set(float64(idx.Height()))
	l.Info("index_ready", "records", st.Len(), "indexed", idx.Len(), "height", idx.Height(),
		"rows", stats.Rows, "rejected", stats.Rejected, "bad_shape", stats.BadShape)
	return revgeo.NewResolver(st, idx, cfg.ResolverOptions()), nil
}

// loadDirectory 按 admin_source 选择编码来源；postgres 模式下 pg 必须非 nil
func loadDirectory(ctx context.Context, cfg *config.Config, pg *store.Store) (*admin.Directory, error) {
	if cfg.AdminSource == "postgres" {
		if pg == nil {
			return nil, fmt.Errorf("admin_source=postgres but database is not open")
		}
		return admin.LoadFrom(ctx, pg)
	}
	return admin.LoadDir(cfg.DataDir)
}
