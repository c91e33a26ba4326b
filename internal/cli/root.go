// Package cli 实现 kebiao 命令行：求解、校验、查看课表、质量评估与生成样例
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/paiban/kebiao/internal/config"
	"github.com/paiban/kebiao/pkg/logger"
	"github.com/paiban/kebiao/pkg/output"
)

// globalOptions 全局参数
type globalOptions struct {
	configPath string
	logLevel   string
	noColor    bool
}

// loadConfig 读取配置并初始化日志；命令行日志输出到 stderr
func (g *globalOptions) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(g.configPath)
	if err != nil {
		return nil, err
	}
	lc := cfg.Log.Logger()
	lc.Output = "stderr"
	if g.logLevel != "" {
		lc.Level = g.logLevel
	}
	logger.Init(lc)
	return cfg, nil
}

func (g *globalOptions) renderer(w io.Writer) *output.Renderer {
	return output.NewRenderer(w, !g.noColor)
}

// NewRootCommand 创建根命令
func NewRootCommand(version string) *cobra.Command {
	g := &globalOptions{}
	root := &cobra.Command{
		Use:   "kebiao",
		Short: "中小学排课求解器",
		Long: `kebiao 将学校的教师、班级、教室、课程与节次建模为约束优化问题并求解，
输出带视图与质量报告的课表文档。

配置按 环境变量(KEBIAO_*) > 配置文件 > 默认值 的顺序生效。`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVarP(&g.configPath, "config", "c", "", "配置文件路径 (yaml/json)")
	root.PersistentFlags().StringVar(&g.logLevel, "log-level", "", "日志级别 (debug|info|warn|error)，覆盖配置")
	root.PersistentFlags().BoolVar(&g.noColor, "no-color", false, "关闭终端颜色")

	root.AddCommand(
		newSolveCommand(g),
		newValidateCommand(g),
		newViewCommand(g),
		newMetricsCommand(g),
		newGenerateCommand(g),
	)
	return root
}

// Execute 运行命令行，返回进程退出码
func Execute(version string) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := NewRootCommand(version).ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "错误: %v\n", err)
		return 1
	}
	return 0
}

// writeDocument 写入文件，path 为空时写到 w
func writeDocument(w io.Writer, path, format string, v interface{}) error {
	f := output.FormatFromPath(path)
	if format != "" {
		parsed, err := output.ParseFormat(format)
		if err != nil {
			return err
		}
		f = parsed
	}
	if path == "" {
		return output.Encode(w, f, v)
	}
	return output.Save(path, f, v)
}
