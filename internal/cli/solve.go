package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/paiban/kebiao/pkg/scheduler/solver"
)

type solveOptions struct {
	output    string
	format    string
	timeLimit time.Duration
	workers   int
}

func newSolveCommand(g *globalOptions) *cobra.Command {
	opts := &solveOptions{}
	cmd := &cobra.Command{
		Use:   "solve <input>",
		Short: "求解排课输入并输出课表文档",
		Long: `读取 JSON 或 YAML 排课输入，校验后建模求解，输出课表文档。
未指定 -o 时文档写到标准输出，摘要写到标准错误。
无解（不可行或超时）时仍输出带诊断信息的文档，并以非零状态退出。`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSolve(cmd, g, opts, args[0])
		},
	}
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "输出文件，格式按扩展名推断")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "", "输出格式 (json|yaml)")
	cmd.Flags().DurationVarP(&opts.timeLimit, "time-limit", "t", 0, "求解时限，覆盖配置")
	cmd.Flags().IntVarP(&opts.workers, "workers", "w", 0, "并行求解协程数，覆盖配置")
	return cmd
}

func runSolve(cmd *cobra.Command, g *globalOptions, opts *solveOptions, inputPath string) error {
	cfg, err := g.loadConfig()
	if err != nil {
		return err
	}
	in, err := loadInput(inputPath)
	if err != nil {
		return err
	}

	bc := cfg.Solver.Builder()
	if cmd.Flags().Changed("time-limit") {
		bc.TimeLimit = opts.timeLimit
	}
	if cmd.Flags().Changed("workers") {
		bc.Workers = opts.workers
	}

	out, err := solver.New(bc).Solve(cmd.Context(), in)
	if err != nil {
		return err
	}

	summary := cmd.ErrOrStderr()
	if opts.output != "" {
		summary = cmd.OutOrStdout()
	}
	g.renderer(summary).Summary(out.Document)

	if err := writeDocument(cmd.OutOrStdout(), opts.output, opts.format, out.Document); err != nil {
		return err
	}
	if opts.output != "" {
		fmt.Fprintf(summary, "\n课表已写入 %s\n", opts.output)
	}
	return out.Err()
}
