package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"reverse-geo/internal/admin"
	"reverse-geo/internal/csvjob"
	"reverse-geo/internal/logger"
)

// convert 不依赖配置，跳过根命令的配置加载
func newConvertCmd() *cobra.Command {
	return &cobra.Command{
		Use:               "convert <in.tsv> [out.csv]",
		Short:             "TSV 转 CSV（按需加引号转义）",
		Args:              cobra.RangeArgs(1, 2),
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		RunE: func(cmd *cobra.Command, args []string) error {
			in := args[0]
			out := strings.TrimSuffix(in, filepath.Ext(in)) + ".csv"
			if len(args) == 2 {
				out = args[1]
			}
			n, err := csvjob.ConvertTSVFile(in, out)
			if err != nil {
				return err
			}
			logger.L().Info("convert_done", "in", in, "out", out, "lines", n)
			fmt.Fprintln(cmd.OutOrStdout(), out)
			return nil
		},
	}
}

func newAnnotateCmd(a *app) *cobra.Command {
	var opts csvjob.AnnotateOptions
	cmd := &cobra.Command{
		Use:   "annotate <in.csv>",
		Short: "为含经纬度的 CSV 追加省/市/区/街道列",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := buildResolver(a.cfg)
			if err != nil {
				return err
			}
			pg, err := openStore(cmd.Context(), a)
			if err != nil && a.cfg.AdminSource == "postgres" {
				return err
			}
			if pg != nil {
				defer pg.Close()
			}
			dir, err := loadDirectory(cmd.Context(), a.cfg, pg)
			if err != nil {
				return err
			}
			st, err := csvjob.AnnotateFile(args[0], res, dir, opts)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s rows=%d resolved=%d unresolved=%d skipped=%d\n",
				st.Out, st.Rows, st.Resolved, st.Unresolved, st.Skipped)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&opts.Encoding, "encoding", "gbk", "input/output encoding: gbk, gb18030 or utf-8")
	f.IntVar(&opts.LngCol, "lng-col", 2, "zero-based longitude column")
	f.IntVar(&opts.LatCol, "lat-col", 3, "zero-based latitude column")
	f.StringVarP(&opts.Out, "out", "o", "", "output path (default <in>-ok.csv)")
	return cmd
}

// 文档注释：admin-import 子命令
// 背景：把 province.txt/city.txt/district.txt 写入 _admin_codes，之后服务可用 ADMIN_SOURCE=postgres 启动。
// 约束：必须启用 Postgres；同级别同编码的已有行被覆盖。
func newAdminImportCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "admin-import [dir]",
		Short: "导入行政区划编码表到 Postgres",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !a.cfg.PG.Enable {
				return errors.New("admin-import requires PG_ENABLE=true")
			}
			dir := a.cfg.DataDir
			if len(args) == 1 {
				dir = args[0]
			}
			return importAdmin(cmd.Context(), a, dir, cmd)
		},
	}
}

func importAdmin(ctx context.Context, a *app, dir string, cmd *cobra.Command) error {
	d, err := admin.LoadDir(dir)
	if err != nil {
		return err
	}
	pg, err := openStore(ctx, a)
	if err != nil {
		return err
	}
	defer pg.Close()
	n, err := pg.UpsertAdminEntries(ctx, d.Entries())
	if err != nil {
		return err
	}
	logger.L().Info("admin_import_done", "dir", dir, "rows", n)
	fmt.Fprintf(cmd.OutOrStdout(), "imported %d admin codes\n", n)
	return nil
}
